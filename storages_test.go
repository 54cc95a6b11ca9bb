/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package fieldstore_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/fieldstore"
	"github.com/suparena/fieldstore/codec"
	"github.com/suparena/fieldstore/datastore"
	"github.com/suparena/fieldstore/datastore/mock"
	"github.com/suparena/fieldstore/datastore/testmodels"
	storeerrors "github.com/suparena/fieldstore/errors"
)

func newPeople(t *testing.T) *datastore.Store[uuid.UUID, testmodels.Person] {
	t.Helper()
	s, err := datastore.New(context.Background(), testmodels.PersonDescriptor, mock.New[testmodels.Person](codec.JSON))
	require.NoError(t, err)
	return s
}

func newNotes(t *testing.T) *datastore.Store[strfmt.UUID, testmodels.Note] {
	t.Helper()
	s, err := datastore.New(context.Background(), testmodels.NoteDescriptor, mock.New[testmodels.Note](codec.JSON))
	require.NoError(t, err)
	return s
}

func TestTypedStorage(t *testing.T) {
	ts := fieldstore.NewTypedStorage[uuid.UUID, testmodels.Person]()
	people := newPeople(t)

	require.NoError(t, ts.Register("people", people))
	assert.Error(t, ts.Register("people", people), "duplicate names are rejected")
	require.NoError(t, ts.Register("archive", newPeople(t)))

	got, err := ts.Get("people")
	require.NoError(t, err)
	assert.Same(t, people, got)

	assert.Equal(t, []string{"archive", "people"}, ts.List())

	require.NoError(t, ts.Remove("archive"))
	assert.Error(t, ts.Remove("archive"))
	_, err = ts.Get("archive")
	assert.Error(t, err)
}

func TestTypedStorageClose(t *testing.T) {
	ctx := context.Background()
	ts := fieldstore.NewTypedStorage[uuid.UUID, testmodels.Person]()
	people := newPeople(t)
	require.NoError(t, ts.Register("people", people))

	require.NoError(t, ts.Close(ctx))
	assert.True(t, people.Closed())
	assert.Empty(t, ts.List())

	_, err := people.Get(ctx, testmodels.PersonID(1)).Await(ctx)
	assert.True(t, storeerrors.IsClosed(err))
}

func TestMultiTypeStorage(t *testing.T) {
	ctx := context.Background()
	mts := fieldstore.NewMultiTypeStorage()
	people := newPeople(t)
	notes := newNotes(t)

	require.NoError(t, fieldstore.RegisterStorage(mts, "people", datastore.Storage[uuid.UUID, testmodels.Person](people)))
	require.NoError(t, fieldstore.RegisterStorage(mts, "notes", datastore.Storage[strfmt.UUID, testmodels.Note](notes)))

	gotPeople, err := fieldstore.GetStorage[uuid.UUID, testmodels.Person](mts, "people")
	require.NoError(t, err)
	assert.Same(t, people, gotPeople)

	_, err = fieldstore.GetStorage[uuid.UUID, testmodels.Person](mts, "notes")
	assert.Error(t, err, "names are scoped per entity type")

	assert.Equal(t, []string{"notes"}, fieldstore.ListStorages[strfmt.UUID, testmodels.Note](mts))
	assert.Same(t,
		fieldstore.GetTypedStorage[uuid.UUID, testmodels.Person](mts),
		fieldstore.GetTypedStorage[uuid.UUID, testmodels.Person](mts))

	require.NoError(t, mts.Close(ctx))
	assert.True(t, people.Closed())
	assert.True(t, notes.Closed())

	assert.Error(t, fieldstore.RemoveStorage[uuid.UUID, testmodels.Person](mts, "people"), "close empties every type")
}

func TestMultiTypeStorageConcurrency(t *testing.T) {
	mts := fieldstore.NewMultiTypeStorage()
	people := newPeople(t)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name := fmt.Sprintf("people-%d", i)
			assert.NoError(t, fieldstore.RegisterStorage[uuid.UUID, testmodels.Person](mts, name, people))
			_, err := fieldstore.GetStorage[uuid.UUID, testmodels.Person](mts, name)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Len(t, fieldstore.ListStorages[uuid.UUID, testmodels.Person](mts), 20)
}
