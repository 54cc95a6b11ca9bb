package testmodels

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/suparena/fieldstore/identity"
)

// Person is a UUID-keyed entity with nested attributes.
type Person struct {
	ID   uuid.UUID  `json:"id"`
	Name string     `json:"name"`
	Age  int        `json:"age"`
	Data PersonData `json:"data"`

	// Session is never persisted.
	Session string `json:"-"`
}

type PersonData struct {
	Address  string  `json:"address"`
	Employer string  `json:"employer"`
	Email    string  `json:"email"`
	Phone    string  `json:"phone"`
	Level    int     `json:"level"`
	Balance  Balance `json:"balance"`
}

type Balance struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// PersonDescriptor resolves Person identifiers and exposes its top-level
// attributes to in-process filters.
var PersonDescriptor = identity.MustNew[uuid.UUID, Person]("id",
	func(p *Person) uuid.UUID { return p.ID }, identity.UUIDKey).
	WithField("name", func(p *Person) any { return p.Name }).
	WithField("age", func(p *Person) any { return p.Age })

// NewPerson is the constructor hook for Person.
func NewPerson(id uuid.UUID) (Person, error) {
	return Person{ID: id, Data: PersonData{Balance: Balance{Currency: "USD"}}}, nil
}

// PersonID returns the fixed test identifier n.
func PersonID(n int) uuid.UUID {
	return uuid.MustParse(fmt.Sprintf("00000000-0000-0000-0000-%012d", n))
}

// SamplePerson builds a person outside the seed set.
func SamplePerson(n int) Person {
	return Person{
		ID:   PersonID(n),
		Name: "Test",
		Age:  100,
		Data: PersonData{
			Address:  "1234 Test Street",
			Employer: "Test Employer",
			Email:    "test@test",
			Phone:    "123-456-7890",
			Level:    100,
			Balance:  Balance{Amount: 100, Currency: "USD"},
		},
	}
}

// SeedPeople returns the sixteen people every storage test starts from.
func SeedPeople() []Person {
	seed := func(n int, name string, age int, address, employer, email, phone string, level int, amount float64) Person {
		return Person{
			ID:   PersonID(n),
			Name: name,
			Age:  age,
			Data: PersonData{
				Address:  address,
				Employer: employer,
				Email:    email,
				Phone:    phone,
				Level:    level,
				Balance:  Balance{Amount: amount, Currency: "USD"},
			},
		}
	}
	return []Person{
		seed(1, "John", 18, "1234 Fake Street", "Fake Employer A", "fakejohna@gmail.com", "123-456-7890", 11, 100),
		seed(2, "Jane", 19, "1234 Fake Street", "Fake Employer B", "fakejanea@gmail.com", "123-456-7890", 19, 200),
		seed(3, "Mike", 25, "5678 Elm Avenue", "Fake Employer C", "fakemikec@gmail.com", "987-654-3210", 15, 150),
		seed(4, "Emily", 22, "7890 Oak Street", "Fake Employer D", "fakeemilyd@gmail.com", "555-555-5555", 17, 50),
		seed(5, "Michael", 30, "1111 Maple Avenue", "Fake Employer E", "fakemichaele@gmail.com", "111-222-3333", 19, 300),
		seed(6, "Sarah", 27, "2222 Pine Street", "Fake Employer F", "fakesarahf@gmail.com", "444-555-6666", 18, 75),
		seed(7, "David", 32, "3333 Cedar Avenue", "Fake Employer G", "fakedavidg@gmail.com", "777-888-9999", 20, 250),
		seed(8, "Olivia", 21, "4444 Birch Street", "Fake Employer H", "fakeoliviah@gmail.com", "000-111-2222", 21, 125),
		seed(9, "Daniel", 29, "5555 Willow Avenue", "Fake Employer I", "fakedanieli@gmail.com", "333-444-5555", 18, 180),
		seed(10, "Sophia", 26, "6666 Elm Avenue", "Fake Employer J", "fakesophiaj@gmail.com", "666-777-8888", 16, 90),
		seed(11, "James", 28, "7777 Oak Street", "Fake Employer K", "fakejamesk@gmail.com", "999-000-1111", 18, 160),
		seed(12, "Emma", 23, "8888 Maple Avenue", "Fake Employer L", "fakeemmal@gmail.com", "222-333-4444", 10, 220),
		seed(13, "Benjamin", 31, "9999 Pine Street", "Fake Employer M", "fakebenjaminm@gmail.com", "555-666-7777", 55, 110),
		seed(14, "Ava", 24, "1111 Cedar Avenue", "Fake Employer N", "fakeavan@gmail.com", "888-999-0000", 66666, 270),
		seed(15, "Ethan", 33, "2222 Birch Street", "Fake Employer O", "fakeethano@gmail.com", "111-222-3333", 888, 80),
		seed(16, "Mia", 20, "3333 Willow Avenue", "Fake Employer P", "fakemiap@gmail.com", "444-555-6666", 0, 140),
	}
}
