/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package kvstore

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/fieldstore/codec"
	"github.com/suparena/fieldstore/datastore"
	"github.com/suparena/fieldstore/datastore/testmodels"
	"github.com/suparena/fieldstore/errors"
)

func TestSortedEntries(t *testing.T) {
	got := sortedEntries(map[string]string{"b": "2", "c": "3", "a": "1"})
	assert.Equal(t, []entry{{"a", "1"}, {"b", "2"}, {"c", "3"}}, got)
}

func TestRenameEntries(t *testing.T) {
	john, err := json.Marshal(testmodels.SeedPeople()[0])
	require.NoError(t, err)
	entries := []entry{
		{key: "1", value: string(john)},
		{key: "2", value: `{"id":"2","name":"NoData"}`},
	}

	changed, err := renameEntries(codec.JSON, entries, map[string]string{"data.employer": "data.email"})
	require.NoError(t, err)
	require.Len(t, changed, 1)
	assert.Equal(t, "1", changed[0].key)

	var p testmodels.Person
	require.NoError(t, json.Unmarshal([]byte(changed[0].value), &p))
	assert.Equal(t, "Fake Employer A", p.Data.Email)
	assert.Empty(t, p.Data.Employer)

	_, err = renameEntries(codec.JSON, []entry{{key: "3", value: "not json"}}, map[string]string{"a": "b"})
	assert.Error(t, err)
}

func TestNewValidation(t *testing.T) {
	_, err := New[testmodels.Person](nil, datastore.Schema{Table: "people"})
	assert.True(t, errors.IsConfigurationError(err))
}
