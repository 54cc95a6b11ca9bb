/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore_test

import (
	"bytes"
	"context"
	stderrors "errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/fieldstore/async"
	"github.com/suparena/fieldstore/cache"
	"github.com/suparena/fieldstore/datastore"
	"github.com/suparena/fieldstore/datastore/mock"
	"github.com/suparena/fieldstore/datastore/storagetest"
	"github.com/suparena/fieldstore/datastore/testmodels"
	"github.com/suparena/fieldstore/errors"
	"github.com/suparena/fieldstore/filter"
	"github.com/suparena/fieldstore/identity"
)

type Person = testmodels.Person

func newStore(t *testing.T, b datastore.Backend[Person], opts ...datastore.Option) *datastore.Store[uuid.UUID, Person] {
	t.Helper()
	s, err := datastore.New(context.Background(), testmodels.PersonDescriptor, b, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = s.Close(context.Background()).Await(context.Background())
	})
	return s
}

func TestStoreSuiteMock(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) datastore.Backend[Person] {
		return mock.New[Person](nil)
	})
}

func TestStoreSuiteSnapshotMock(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) datastore.Backend[Person] {
		return mock.NewSnapshot(mock.New[Person](nil), testmodels.PersonDescriptor.Key)
	})
}

func TestStoreSuiteSharedPool(t *testing.T) {
	pool := async.NewPool(2, 4)
	defer pool.Stop(time.Second)
	storagetest.Run(t, func(t *testing.T) datastore.Backend[Person] {
		return mock.New[Person](nil)
	}, datastore.WithPool(pool), datastore.WithSaveParallelism(2))
}

func TestCacheCoherencyWithBackendDown(t *testing.T) {
	ctx := context.Background()
	b := mock.New[Person](nil)
	s := newStore(t, b)

	p := testmodels.SamplePerson(17)
	storagetest.Await(t, s.Save(ctx, p))
	b.Disconnect()

	got := storagetest.Await(t, s.Get(ctx, p.ID))
	require.NotNil(t, got)
	assert.Equal(t, p, *got)
	assert.Equal(t, 0, b.Calls(mock.OpQuery), "a cache hit never reaches the backend")
}

func TestDeleteCoherency(t *testing.T) {
	ctx := context.Background()
	b := mock.New[Person](nil)
	s := newStore(t, b)

	p := testmodels.SamplePerson(17)
	storagetest.Await(t, s.Save(ctx, p))

	f := s.Remove(ctx, p)
	assert.False(t, s.Cache().Contains(p.ID.String()), "invalidation is synchronous")
	storagetest.Await(t, f)

	assert.Nil(t, storagetest.Await(t, s.Get(ctx, p.ID)))
	assert.Equal(t, 1, b.Calls(mock.OpQuery))
	assert.Equal(t, 0, b.Count())
}

func TestSaveUpdatesCacheBeforeBackend(t *testing.T) {
	ctx := context.Background()
	b := mock.New[Person](nil).WithUpsertError(stderrors.New("disk full"))
	var logs bytes.Buffer
	s := newStore(t, b, datastore.WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	p := testmodels.SamplePerson(17)
	_, err := s.Save(ctx, p).Await(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsBackendError(err))
	assert.Contains(t, err.Error(), "disk full")
	assert.True(t, s.Cache().Contains(p.ID.String()))
	assert.Contains(t, logs.String(), "storage operation failed")
	assert.Contains(t, logs.String(), "op=save")
}

func TestSaveRejectsMissingIdentifier(t *testing.T) {
	ctx := context.Background()
	b := mock.New[Person](nil)
	s := newStore(t, b)

	_, err := s.Save(ctx, Person{Name: "Nobody"}).Await(ctx)
	assert.True(t, errors.IsIdentifierError(err))
	assert.Equal(t, 0, b.Calls(mock.OpUpsert))
	assert.Equal(t, 0, s.Cache().Size())
}

func TestSaveAllAggregatesFailures(t *testing.T) {
	ctx := context.Background()
	b := mock.New[Person](nil)
	s := newStore(t, b)

	people := append(testmodels.SeedPeople(), Person{Name: "NoID"}, Person{Name: "AlsoNoID"})
	_, err := s.SaveAll(ctx, people).Await(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsIdentifierError(err))
	assert.Equal(t, 16, b.Count(), "valid entities are still written")

	b.WithUpsertError(stderrors.New("boom"))
	_, err = s.SaveAll(ctx, testmodels.SeedPeople()[:3]).Await(ctx)
	assert.True(t, errors.IsBackendError(err))
	assert.Equal(t, 3, len(unwrapJoined(err)))
}

func unwrapJoined(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}

func TestFindBackendFailure(t *testing.T) {
	ctx := context.Background()
	b := mock.New[Person](nil)
	s := newStore(t, b)
	b.WithQueryError(stderrors.New("timeout"))

	_, err := s.Find(ctx, "name", "Mike", filter.Equals, filter.None).Await(ctx)
	assert.True(t, errors.IsBackendError(err))

	_, err = s.Get(ctx, testmodels.PersonID(3)).Await(ctx)
	assert.True(t, errors.IsBackendError(err))
}

func TestInapplicableOperatorSkipsBackend(t *testing.T) {
	ctx := context.Background()
	b := mock.New[Person](nil)
	var logs bytes.Buffer
	s := newStore(t, b, datastore.WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	got, err := s.Find(ctx, "age", "not-a-number", filter.GreaterThan, filter.None).Await(ctx)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, 0, b.Calls(mock.OpQuery))
	assert.Contains(t, logs.String(), "filter operator not applicable")
}

func TestWriteLeavesImmediateBackendAlone(t *testing.T) {
	ctx := context.Background()
	b := mock.New[Person](nil)
	s := newStore(t, b)

	storagetest.Await(t, s.SaveAll(ctx, testmodels.SeedPeople()))
	stale := testmodels.SeedPeople()[2]
	fresh := stale
	fresh.Age = 99
	require.NoError(t, b.Put(stale.ID.String(), fresh))
	b.ResetCalls()

	storagetest.Await(t, s.Write(ctx))
	assert.Equal(t, 0, b.Calls(mock.OpUpsert))

	rows, err := b.Scan(ctx)
	require.NoError(t, err)
	for _, p := range rows {
		if p.ID == stale.ID {
			assert.Equal(t, 99, p.Age, "a cached copy never overwrites a newer row")
		}
	}
}

func TestWriteResavesCacheWhenAsked(t *testing.T) {
	ctx := context.Background()
	b := mock.New[Person](nil).WithResave()
	s := newStore(t, b)

	storagetest.Await(t, s.SaveAll(ctx, testmodels.SeedPeople()))
	b.Clear()
	b.ResetCalls()

	storagetest.Await(t, s.Write(ctx))
	assert.Equal(t, 16, b.Count())
	assert.Equal(t, 16, b.Calls(mock.OpUpsert))
}

func TestAllValuesLeavesCacheCold(t *testing.T) {
	ctx := context.Background()
	b := mock.New[Person](nil)
	for _, p := range testmodels.SeedPeople() {
		require.NoError(t, b.Put(p.ID.String(), p))
	}
	s := newStore(t, b)

	all := storagetest.Await(t, s.AllValues(ctx))
	assert.Len(t, all, 16)
	assert.Equal(t, 0, s.Cache().Size())
	assert.Equal(t, 1, b.Calls(mock.OpScan))
}

func TestSnapshotBackendDefersWrites(t *testing.T) {
	ctx := context.Background()
	inner := mock.New[Person](nil)
	require.NoError(t, inner.Put(testmodels.PersonID(1).String(), testmodels.SeedPeople()[0]))
	b := mock.NewSnapshot(inner, testmodels.PersonDescriptor.Key)

	s, err := datastore.New(ctx, testmodels.PersonDescriptor, b)
	require.NoError(t, err)
	assert.True(t, s.Snapshot())
	assert.IsType(t, &cache.MapCache[string, Person]{}, s.Cache())
	assert.Equal(t, 1, s.Cache().Size(), "snapshot is loaded at construction")

	storagetest.Await(t, s.SaveAll(ctx, testmodels.SeedPeople()))
	assert.Equal(t, 0, b.Calls(mock.OpUpsert))
	assert.Equal(t, 1, b.Count())

	storagetest.Await(t, s.Write(ctx))
	assert.Equal(t, 1, b.Calls(mock.OpReplace))
	assert.Equal(t, 16, b.Count())

	storagetest.Await(t, s.Remove(ctx, testmodels.SeedPeople()[0]))
	assert.Equal(t, 16, b.Count())

	storagetest.Await(t, s.Close(ctx))
	assert.Equal(t, 2, b.Calls(mock.OpReplace), "close flushes the snapshot")
	assert.Equal(t, 15, b.Count())
}

func TestSnapshotLoadFailureIsFatal(t *testing.T) {
	inner := mock.New[Person](nil).WithError(mock.OpLoad, stderrors.New("corrupt file"))
	_, err := datastore.New(context.Background(), testmodels.PersonDescriptor,
		mock.NewSnapshot(inner, testmodels.PersonDescriptor.Key))
	assert.True(t, errors.IsBackendError(err))
}

func TestConstructionErrors(t *testing.T) {
	ctx := context.Background()
	b := mock.New[Person](nil)

	_, err := datastore.New[uuid.UUID, Person](ctx, nil, b)
	assert.True(t, errors.IsConfigurationError(err))

	_, err = datastore.New(ctx, testmodels.PersonDescriptor, nil)
	assert.True(t, errors.IsConfigurationError(err))

	_, err = datastore.New(ctx, testmodels.PersonDescriptor, b,
		datastore.WithCache(cache.NewMap[string, testmodels.Note]()))
	assert.True(t, errors.IsConfigurationError(err))

	_, err = datastore.New(ctx, testmodels.PersonDescriptor, b,
		datastore.WithConstructor(func(id string) (Person, error) { return Person{}, nil }, nil))
	assert.True(t, errors.IsConfigurationError(err))
}

func TestConstructorHook(t *testing.T) {
	ctx := context.Background()
	b := mock.New[Person](nil)

	plain := newStore(t, b)
	_, err := plain.ConstructValue(testmodels.PersonID(1))
	assert.True(t, errors.IsValidationError(err))
	empty, err := plain.ConstructEmpty()
	require.NoError(t, err)
	assert.Equal(t, Person{}, empty)
	_, err = plain.GetOrCreate(ctx, testmodels.PersonID(50)).Await(ctx)
	assert.Error(t, err)

	hooked := newStore(t, b, datastore.WithConstructor(testmodels.NewPerson,
		func() (Person, error) { return Person{Name: "blank"}, nil }))
	v, err := hooked.ConstructValue(testmodels.PersonID(9))
	require.NoError(t, err)
	assert.Equal(t, testmodels.PersonID(9), v.ID)
	empty, err = hooked.ConstructEmpty()
	require.NoError(t, err)
	assert.Equal(t, "blank", empty.Name)

	liar := newStore(t, b, datastore.WithConstructor(func(uuid.UUID) (Person, error) {
		return Person{ID: testmodels.PersonID(1)}, nil
	}, nil))
	_, err = liar.ConstructValue(testmodels.PersonID(2))
	assert.True(t, errors.IsIdentifierError(err))
}

func TestSetCache(t *testing.T) {
	ctx := context.Background()
	b := mock.New[Person](nil)
	s := newStore(t, b)

	replacement := cache.NewMap[string, Person]()
	s.SetCache(replacement)
	s.SetCache(nil)
	assert.Same(t, replacement, s.Cache())

	storagetest.Await(t, s.Save(ctx, testmodels.SamplePerson(17)))
	assert.Equal(t, 1, replacement.Size())
}

func TestRenameInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	b := mock.New[Person](nil)
	s := newStore(t, b)

	storagetest.Await(t, s.SaveAll(ctx, testmodels.SeedPeople()))
	require.Equal(t, 16, s.Cache().Size())

	storagetest.Await(t, s.RenameField(ctx, "data.phone", "data.email"))
	assert.Equal(t, 0, s.Cache().Size())

	doc, ok := b.Document(testmodels.PersonID(3).String())
	require.True(t, ok)
	data := doc["data"].(map[string]any)
	assert.Equal(t, "987-654-3210", data["email"])
	assert.NotContains(t, data, "phone")
}

func TestCloseWaitsForInflightOperations(t *testing.T) {
	ctx := context.Background()
	b := mock.New[Person](nil)
	s, err := datastore.New(ctx, testmodels.PersonDescriptor, b, datastore.WithWorkers(1, 64))
	require.NoError(t, err)

	futures := make([]*async.Future[struct{}], 0, 16)
	for _, p := range testmodels.SeedPeople() {
		futures = append(futures, s.Save(ctx, p))
	}
	storagetest.Await(t, s.Close(ctx))

	for _, f := range futures {
		select {
		case <-f.Done():
		default:
			t.Fatal("close resolved before queued saves")
		}
	}
	assert.Equal(t, 16, b.Count())
	assert.True(t, s.Closed())
	assert.Equal(t, 1, b.Calls(mock.OpClose))
}

type member struct {
	ID   string `json:"id"`
	Tier int    `json:"tier,omitempty"`
}

var memberDescriptor = identity.MustNew[string, member]("id",
	func(m *member) string { return m.ID }, func(k string) string { return k }).
	WithField("tier", func(m *member) any { return m.Tier })

func TestAccessorAgreesWithDocumentOnOmittedFields(t *testing.T) {
	ctx := context.Background()
	members := []member{{ID: "a"}, {ID: "b", Tier: 2}}

	backends := map[string]datastore.Backend[member]{
		"document": mock.New[member](nil),
		"accessor": mock.NewSnapshot(mock.New[member](nil), memberDescriptor.Key),
	}
	for name, b := range backends {
		t.Run(name, func(t *testing.T) {
			s, err := datastore.New(ctx, memberDescriptor, b)
			require.NoError(t, err)
			t.Cleanup(func() { _, _ = s.Close(ctx).Await(ctx) })
			storagetest.Await(t, s.SaveAll(ctx, members))

			got := storagetest.Await(t, s.Find(ctx, "tier", 5, filter.NotEquals, filter.None))
			require.Len(t, got, 1)
			assert.Equal(t, "b", got[0].ID)

			assert.Empty(t, storagetest.Await(t, s.Find(ctx, "tier", 0, filter.Equals, filter.None)))
			assert.Len(t, storagetest.Await(t, s.Find(ctx, "tier", 2, filter.Equals, filter.None)), 1)
		})
	}
}

type blockingBackend struct {
	*mock.Backend[Person]
	release chan struct{}
}

func (b blockingBackend) Upsert(ctx context.Context, key string, value Person) error {
	<-b.release
	return b.Backend.Upsert(ctx, key, value)
}

func TestFullQueueFailsWithoutBlocking(t *testing.T) {
	ctx := context.Background()
	b := blockingBackend{Backend: mock.New[Person](nil), release: make(chan struct{})}
	s := newStore(t, b, datastore.WithWorkers(1, 1))

	people := testmodels.SeedPeople()
	first := s.Save(ctx, people[0])
	queued := make([]*async.Future[struct{}], 0, len(people))
	start := time.Now()
	for _, p := range people[1:] {
		queued = append(queued, s.Save(ctx, p))
	}
	assert.Less(t, time.Since(start), time.Second, "saves never wait for queue room")

	close(b.release)
	storagetest.Await(t, first)
	var rejected int
	for _, f := range queued {
		if _, err := f.Await(ctx); stderrors.Is(err, async.ErrQueueFull) {
			rejected++
		}
	}
	assert.Positive(t, rejected)
	assert.Equal(t, 16, s.Cache().Size(), "the cache still holds every save")
}
