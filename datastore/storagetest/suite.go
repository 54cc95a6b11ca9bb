/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package storagetest is the behavioural suite every backend adapter runs, so
// that filters, caching and lifecycle agree across backends.
package storagetest

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/fieldstore/async"
	"github.com/suparena/fieldstore/datastore"
	"github.com/suparena/fieldstore/datastore/testmodels"
	"github.com/suparena/fieldstore/errors"
	"github.com/suparena/fieldstore/filter"
)

// Factory creates a fresh, empty backend for one subtest.
type Factory func(t *testing.T) datastore.Backend[testmodels.Person]

const awaitTimeout = 10 * time.Second

// Await resolves f or fails the test.
func Await[T any](t *testing.T, f *async.Future[T]) T {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), awaitTimeout)
	defer cancel()
	v, err := f.Await(ctx)
	require.NoError(t, err)
	return v
}

// Open builds a Store over a backend from factory, seeded with the sixteen
// test people, and closes it when the test ends.
func Open(t *testing.T, factory Factory, opts ...datastore.Option) *datastore.Store[uuid.UUID, testmodels.Person] {
	t.Helper()
	ctx := context.Background()
	opts = append([]datastore.Option{datastore.WithConstructor(testmodels.NewPerson, nil)}, opts...)
	s, err := datastore.New(ctx, testmodels.PersonDescriptor, factory(t), opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = s.Close(ctx).Await(ctx)
	})

	Await(t, s.DeleteAll(ctx))
	Await(t, s.SaveAll(ctx, testmodels.SeedPeople()))
	Await(t, s.Write(ctx))
	return s
}

func isSnapshot(s *datastore.Store[uuid.UUID, testmodels.Person]) bool {
	return s.Snapshot()
}

func names(people []testmodels.Person) []string {
	out := make([]string, len(people))
	for i, p := range people {
		out[i] = p.Name
	}
	return out
}

func sorted(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

// Run executes the full suite against backends produced by factory.
func Run(t *testing.T, factory Factory, opts ...datastore.Option) {
	ctx := context.Background()

	t.Run("TotalData", func(t *testing.T) {
		s := Open(t, factory, opts...)
		all := Await(t, s.AllValues(ctx))
		assert.Len(t, all, 16)
	})

	t.Run("SaveGetRemove", func(t *testing.T) {
		s := Open(t, factory, opts...)
		p := testmodels.SamplePerson(17)

		Await(t, s.Save(ctx, p))
		assert.Len(t, Await(t, s.AllValues(ctx)), 17)

		got := Await(t, s.Get(ctx, p.ID))
		require.NotNil(t, got)
		assert.Equal(t, p, *got)

		Await(t, s.Remove(ctx, p))
		assert.Nil(t, Await(t, s.Get(ctx, p.ID)))
		assert.Len(t, Await(t, s.AllValues(ctx)), 16)
	})

	t.Run("WriteKeepsValues", func(t *testing.T) {
		s := Open(t, factory, opts...)
		p := testmodels.SamplePerson(18)

		Await(t, s.Save(ctx, p))
		Await(t, s.Write(ctx))
		got := Await(t, s.Get(ctx, p.ID))
		require.NotNil(t, got)
		assert.Equal(t, p, *got)

		if !isSnapshot(s) {
			s.Cache().InvalidateAll()
			got = Await(t, s.Get(ctx, p.ID))
			require.NotNil(t, got, "a cache miss reads the backend")
			assert.Equal(t, p, *got)
		}
	})

	t.Run("GetMissReadsBackend", func(t *testing.T) {
		s := Open(t, factory, opts...)
		if isSnapshot(s) {
			t.Skip("snapshot backends answer from their cache")
		}
		s.Cache().InvalidateAll()

		got := Await(t, s.Get(ctx, testmodels.PersonID(3)))
		require.NotNil(t, got)
		assert.Equal(t, "Mike", got.Name)
		assert.True(t, s.Cache().Contains(testmodels.PersonID(3).String()))
	})

	t.Run("Filters", func(t *testing.T) {
		s := Open(t, factory, opts...)
		tests := []struct {
			name  string
			field string
			value any
			op    filter.Operator
			want  []string
		}{
			{"equals", "name", "Mike", filter.Equals, []string{"Mike"}},
			{"equals is case sensitive", "name", "mike", filter.Equals, nil},
			{"not equals", "name", "Mike", filter.NotEquals, []string{
				"Ava", "Benjamin", "Daniel", "David", "Emily", "Emma", "Ethan", "James",
				"Jane", "John", "Mia", "Michael", "Olivia", "Sarah", "Sophia"}},
			{"contains", "name", "ia", filter.Contains, []string{"Mia", "Olivia", "Sophia"}},
			{"contains is case sensitive", "name", "MIKE", filter.Contains, nil},
			{"not contains", "data.email", "gmail", filter.NotContains, nil},
			{"starts with", "name", "Mi", filter.StartsWith, []string{"Mia", "Michael", "Mike"}},
			{"not starts with", "name", "J", filter.NotStartsWith, []string{
				"Ava", "Benjamin", "Daniel", "David", "Emily", "Emma", "Ethan", "Mia",
				"Michael", "Mike", "Olivia", "Sarah", "Sophia"}},
			{"ends with", "name", "a", filter.EndsWith, []string{"Ava", "Emma", "Mia", "Olivia", "Sophia"}},
			{"not ends with", "data.address", "Street", filter.NotEndsWith, []string{
				"Ava", "Daniel", "David", "Emma", "Mia", "Michael", "Mike", "Sophia"}},
			{"greater than", "age", 30, filter.GreaterThan, []string{"Benjamin", "David", "Ethan"}},
			{"greater than or equal nested float", "data.balance.amount", 250.0, filter.GreaterThanOrEqual, []string{"Ava", "David", "Michael"}},
			{"less than", "data.level", 11, filter.LessThan, []string{"Emma", "Mia"}},
			{"less than or equal", "age", 20, filter.LessThanOrEqual, []string{"Jane", "John", "Mia"}},
			{"nested equals", "data.level", 18, filter.Equals, []string{"Daniel", "James", "Sarah"}},
			{"identifier", "id", testmodels.PersonID(3), filter.Equals, []string{"Mike"}},
			{"number never equals text", "age", "25", filter.Equals, nil},
			{"missing field", "data.nickname", "x", filter.NotEquals, nil},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got := Await(t, s.Find(ctx, tt.field, tt.value, tt.op, filter.None))
				assert.Equal(t, sorted(tt.want), sorted(names(got)))
			})
		}
	})

	t.Run("SortedFilters", func(t *testing.T) {
		s := Open(t, factory, opts...)

		got := Await(t, s.Find(ctx, "age", 28, filter.GreaterThan, filter.Ascending))
		assert.Equal(t, []string{"Daniel", "Michael", "Benjamin", "David", "Ethan"}, names(got))

		got = Await(t, s.Find(ctx, "age", 28, filter.GreaterThan, filter.Descending))
		assert.Equal(t, []string{"Ethan", "David", "Benjamin", "Michael", "Daniel"}, names(got))

		got = Await(t, s.Find(ctx, "name", "E", filter.StartsWith, filter.Ascending))
		assert.Equal(t, []string{"Emily", "Emma", "Ethan"}, names(got))
	})

	t.Run("FindCachesResults", func(t *testing.T) {
		s := Open(t, factory, opts...)
		if isSnapshot(s) {
			t.Skip("snapshot backends answer from their cache")
		}
		s.Cache().InvalidateAll()

		got := Await(t, s.Find(ctx, "name", "Jane", filter.Equals, filter.None))
		require.Len(t, got, 1)
		assert.True(t, s.Cache().Contains(testmodels.PersonID(2).String()))
	})

	t.Run("FindFirst", func(t *testing.T) {
		s := Open(t, factory, opts...)

		got := Await(t, s.FindFirst(ctx, "data.phone", "123-456-7890", filter.Equals))
		require.NotNil(t, got)
		assert.Contains(t, []string{"John", "Jane"}, got.Name)

		assert.Nil(t, Await(t, s.FindFirst(ctx, "name", "Nobody", filter.Equals)))
	})

	t.Run("InapplicableOperator", func(t *testing.T) {
		s := Open(t, factory, opts...)

		got, err := s.Find(ctx, "age", "not-a-number", filter.GreaterThan, filter.None).Await(ctx)
		require.NoError(t, err)
		assert.Empty(t, got)

		got, err = s.Find(ctx, "age", 5, filter.Contains, filter.None).Await(ctx)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("InvalidFieldPath", func(t *testing.T) {
		s := Open(t, factory, opts...)
		_, err := s.Find(ctx, "name') OR 1=1 --", "x", filter.Equals, filter.None).Await(ctx)
		assert.True(t, errors.IsValidationError(err))
	})

	t.Run("DeleteAllIsIdempotent", func(t *testing.T) {
		s := Open(t, factory, opts...)

		Await(t, s.DeleteAll(ctx))
		Await(t, s.DeleteAll(ctx))
		assert.Empty(t, Await(t, s.AllValues(ctx)))
		assert.Equal(t, 0, s.Cache().Size())

		Await(t, s.SaveAll(ctx, testmodels.SeedPeople()))
		assert.Len(t, Await(t, s.AllValues(ctx)), 16)
	})

	t.Run("RenameField", func(t *testing.T) {
		s := Open(t, factory, opts...)

		Await(t, s.RenameField(ctx, "data.employer", "data.email"))
		got := Await(t, s.Find(ctx, "data.email", "Fake Employer C", filter.Equals, filter.None))
		require.Len(t, got, 1)
		assert.Equal(t, "Mike", got[0].Name)
		assert.Empty(t, got[0].Data.Employer)
		assert.Empty(t, Await(t, s.Find(ctx, "data.employer", "Fake Employer C", filter.Equals, filter.None)))

		Await(t, s.RenameFields(ctx, map[string]string{"data.phone": "data.address"}))
		got = Await(t, s.Find(ctx, "data.address", "987-654-3210", filter.Equals, filter.None))
		require.Len(t, got, 1)
		assert.Equal(t, "Mike", got[0].Name)
		assert.Empty(t, got[0].Data.Phone)

		_, err := s.RenameField(ctx, "id", "uuid").Await(ctx)
		assert.True(t, errors.IsValidationError(err))
	})

	t.Run("ConcurrentSaves", func(t *testing.T) {
		s := Open(t, factory, opts...)
		Await(t, s.DeleteAll(ctx))

		var wg sync.WaitGroup
		futures := make([]*async.Future[struct{}], 0, 16)
		var mu sync.Mutex
		for _, p := range testmodels.SeedPeople() {
			wg.Add(1)
			go func() {
				defer wg.Done()
				f := s.Save(ctx, p)
				mu.Lock()
				futures = append(futures, f)
				mu.Unlock()
			}()
		}
		wg.Wait()
		for _, f := range futures {
			Await(t, f)
		}

		got := Await(t, s.Find(ctx, "name", "Mike", filter.Equals, filter.None))
		require.Len(t, got, 1)
		assert.Equal(t, testmodels.PersonID(3), got[0].ID)
	})

	t.Run("GetOrCreate", func(t *testing.T) {
		s := Open(t, factory, opts...)

		existing := Await(t, s.GetOrCreate(ctx, testmodels.PersonID(3)))
		require.NotNil(t, existing)
		assert.Equal(t, "Mike", existing.Name)

		created := Await(t, s.GetOrCreate(ctx, testmodels.PersonID(40)))
		require.NotNil(t, created)
		assert.Equal(t, testmodels.PersonID(40), created.ID)
		assert.Len(t, Await(t, s.AllValues(ctx)), 17)
	})

	t.Run("ClosedStorage", func(t *testing.T) {
		s := Open(t, factory, opts...)
		Await(t, s.Close(ctx))
		Await(t, s.Close(ctx))

		_, err := s.Save(ctx, testmodels.SamplePerson(19)).Await(ctx)
		assert.True(t, errors.IsClosed(err))
		_, err = s.Get(ctx, testmodels.PersonID(3)).Await(ctx)
		assert.True(t, errors.IsClosed(err))
		_, err = s.Find(ctx, "name", "Mike", filter.Equals, filter.None).Await(ctx)
		assert.True(t, errors.IsClosed(err))
	})
}
