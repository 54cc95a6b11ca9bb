/*
Package identity resolves the identifier attribute of entity types without
runtime type introspection.

Each entity type declares a Descriptor once, naming the encoded attribute that
holds the identifier and a plain accessor function:

	var personID = identity.MustNew("id",
	    func(p *Person) uuid.UUID { return p.ID },
	    identity.UUIDKey,
	)

	key, err := personID.Key(person) // "00000000-0000-0000-0000-000000000002"

Optional accessors for other top-level attributes let in-process filters read
values directly:

	personID.WithField("age", func(p *Person) any { return p.Age })
*/
package identity
