/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package identity_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/fieldstore/errors"
	"github.com/suparena/fieldstore/identity"
)

type account struct {
	ID    uuid.UUID
	Owner string
	Age   int
}

type handle string

type profile struct {
	Handle handle
}

func TestNewRequiresIdentifier(t *testing.T) {
	tests := []struct {
		name   string
		field  string
		id     func(*account) uuid.UUID
		format func(uuid.UUID) string
	}{
		{"missing field", "", func(a *account) uuid.UUID { return a.ID }, identity.UUIDKey},
		{"blank field", "   ", func(a *account) uuid.UUID { return a.ID }, identity.UUIDKey},
		{"missing accessor", "id", nil, identity.UUIDKey},
		{"missing formatter", "id", func(a *account) uuid.UUID { return a.ID }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := identity.New(tt.field, tt.id, tt.format)
			require.Error(t, err)
			assert.True(t, errors.IsIdentifierError(err))
		})
	}
}

func TestValueAndKey(t *testing.T) {
	d := identity.MustNew("id", func(a *account) uuid.UUID { return a.ID }, identity.UUIDKey)
	id := uuid.MustParse("00000000-0000-0000-0000-000000000002")

	got, err := d.Value(account{ID: id})
	require.NoError(t, err)
	assert.Equal(t, id, got)

	key, err := d.Key(account{ID: id})
	require.NoError(t, err)
	assert.Equal(t, "00000000-0000-0000-0000-000000000002", key)
	assert.Equal(t, "id", d.FieldName())
	assert.Equal(t, "identity_test.account", d.TypeName())
}

func TestZeroIdentifierIsRejected(t *testing.T) {
	d := identity.MustNew("id", func(a *account) uuid.UUID { return a.ID }, identity.UUIDKey)

	_, err := d.Key(account{Owner: "nobody"})
	require.Error(t, err)
	assert.True(t, errors.IsIdentifierError(err))
}

func TestStringLikeKeys(t *testing.T) {
	d := identity.MustNew("handle", func(p *profile) handle { return p.Handle }, identity.StringKey[handle])

	key, err := d.Key(profile{Handle: "mike"})
	require.NoError(t, err)
	assert.Equal(t, "mike", key)
	assert.Equal(t, "mike", d.Format("mike"))
}

func TestAccessors(t *testing.T) {
	d := identity.MustNew("id", func(a *account) uuid.UUID { return a.ID }, identity.UUIDKey).
		WithField("owner", func(a *account) any { return a.Owner }).
		WithField("age", func(a *account) any { return a.Age })

	assert.Equal(t, []string{"id", "age", "owner"}, d.Fields())

	get, ok := d.Accessor("age")
	require.True(t, ok)
	a := account{ID: uuid.New(), Owner: "Mike", Age: 25}
	assert.Equal(t, 25, get(&a))

	get, ok = d.Accessor("id")
	require.True(t, ok)
	assert.Equal(t, a.ID.String(), get(&a))

	_, ok = d.Accessor("missing")
	assert.False(t, ok)
}
