/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package filestore_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/fieldstore/codec"
	"github.com/suparena/fieldstore/datastore"
	"github.com/suparena/fieldstore/datastore/filestore"
	"github.com/suparena/fieldstore/datastore/storagetest"
	"github.com/suparena/fieldstore/datastore/testmodels"
	"github.com/suparena/fieldstore/errors"
	"github.com/suparena/fieldstore/filter"
)

func factory(c codec.Codec, opts ...filestore.Option) storagetest.Factory {
	return func(t *testing.T) datastore.Backend[testmodels.Person] {
		s, err := filestore.Open[testmodels.Person](t.TempDir(),
			datastore.Schema{Table: "people", IDField: "id", Codec: c}, opts...)
		require.NoError(t, err)
		return s
	}
}

func TestJSONStorage(t *testing.T) {
	storagetest.Run(t, factory(codec.JSON))
}

func TestYAMLStorage(t *testing.T) {
	storagetest.Run(t, factory(codec.YAML))
}

func TestCompressedStorage(t *testing.T) {
	storagetest.Run(t, factory(codec.JSON, filestore.WithCompressor(codec.Zstd(2))))
}

func open(t *testing.T, dir string, c codec.Codec) *datastore.Store[uuid.UUID, testmodels.Person] {
	t.Helper()
	backend, err := filestore.Open[testmodels.Person](dir, datastore.Schema{Table: "people", IDField: "id", Codec: c})
	require.NoError(t, err)
	s, err := datastore.New(context.Background(), testmodels.PersonDescriptor, backend)
	require.NoError(t, err)
	return s
}

func TestFlushDurability(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s := open(t, dir, codec.JSON)
	storagetest.Await(t, s.SaveAll(ctx, testmodels.SeedPeople()))

	_, err := os.Stat(filepath.Join(dir, "people.json"))
	assert.True(t, os.IsNotExist(err), "saves stay in the cache until written")

	storagetest.Await(t, s.Write(ctx))
	storagetest.Await(t, s.Save(ctx, testmodels.SamplePerson(17)))
	storagetest.Await(t, s.Close(ctx))

	reopened := open(t, dir, codec.JSON)
	defer reopened.Close(ctx)

	all := storagetest.Await(t, reopened.AllValues(ctx))
	assert.Len(t, all, 17, "close flushes the cache")

	got := storagetest.Await(t, reopened.Find(ctx, "name", "Mike", filter.Equals, filter.None))
	require.Len(t, got, 1)
	assert.Equal(t, testmodels.PersonID(3), got[0].ID)
}

func TestYAMLFileLayout(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s := open(t, dir, codec.YAML)
	storagetest.Await(t, s.Save(ctx, testmodels.SeedPeople()[0]))
	storagetest.Await(t, s.Close(ctx))

	data, err := os.ReadFile(filepath.Join(dir, "people.yaml"))
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.HasPrefix(text, "- "), "the file is one sequence of entities")
	assert.Contains(t, text, "name: John")
	assert.NotContains(t, text, "session")
}

func TestBackendOperations(t *testing.T) {
	ctx := context.Background()
	s, err := filestore.Open[testmodels.Person](t.TempDir(), datastore.Schema{Table: "people", IDField: "id"})
	require.NoError(t, err)

	for _, p := range testmodels.SeedPeople()[:3] {
		require.NoError(t, s.Upsert(ctx, p.ID.String(), p))
	}
	mike := testmodels.SeedPeople()[2]
	mike.Age = 26
	require.NoError(t, s.Upsert(ctx, mike.ID.String(), mike))

	all, err := s.Scan(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	got, err := s.Query(ctx, filter.Where("age", filter.GreaterThan, 25))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Mike", got[0].Name)

	require.NoError(t, s.Delete(ctx, mike.ID.String()))
	require.NoError(t, s.RenameFields(ctx, map[string]string{"data.phone": "data.email"}))
	all, err = s.Scan(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "123-456-7890", all[0].Data.Email)

	require.NoError(t, s.Truncate(ctx))
	all, err = s.Scan(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	require.NoError(t, s.Close(ctx))
	_, err = s.Load(ctx)
	assert.Error(t, err)
}

func TestOpenValidation(t *testing.T) {
	_, err := filestore.Open[testmodels.Person]("", datastore.Schema{Table: "people", IDField: "id"})
	assert.True(t, errors.IsConfigurationError(err))

	_, err = filestore.Open[testmodels.Person](t.TempDir(), datastore.Schema{Table: "../people", IDField: "id"})
	assert.True(t, errors.IsConfigurationError(err))

	_, err = filestore.Open[testmodels.Person](t.TempDir(), datastore.Schema{Table: "people"})
	assert.True(t, errors.IsConfigurationError(err))
}
