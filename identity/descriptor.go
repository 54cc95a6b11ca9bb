/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package identity

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/suparena/fieldstore/errors"
)

// Descriptor describes how to resolve the identifier of an entity type V.
// It is built once per type and is safe for concurrent use once constructed.
type Descriptor[K comparable, V any] struct {
	typeName string
	field    string
	id       func(*V) K
	format   func(K) string
	fields   map[string]func(*V) any
}

// New builds a descriptor for V whose identifier attribute is stored under
// field (the encoded attribute name, e.g. "id") and read by id.
// format converts a key to its canonical string form.
func New[K comparable, V any](field string, id func(*V) K, format func(K) string) (*Descriptor[K, V], error) {
	var zero V
	typeName := fmt.Sprintf("%T", zero)

	field = strings.TrimSpace(field)
	if field == "" {
		return nil, errors.NewIdentifierError(typeName, "no identifier attribute declared")
	}
	if id == nil {
		return nil, errors.NewIdentifierError(typeName, "no identifier accessor declared")
	}
	if format == nil {
		return nil, errors.NewIdentifierError(typeName, "no key formatter declared")
	}

	return &Descriptor[K, V]{
		typeName: typeName,
		field:    field,
		id:       id,
		format:   format,
		fields:   make(map[string]func(*V) any),
	}, nil
}

// MustNew is like New but panics on error. Intended for package-level descriptors.
func MustNew[K comparable, V any](field string, id func(*V) K, format func(K) string) *Descriptor[K, V] {
	d, err := New(field, id, format)
	if err != nil {
		panic(err)
	}
	return d
}

// WithField registers an accessor for a top-level attribute. Filters on a
// registered attribute read it directly instead of going through the codec.
// It returns the descriptor so registrations can be chained.
func (d *Descriptor[K, V]) WithField(name string, get func(*V) any) *Descriptor[K, V] {
	if name != "" && get != nil {
		d.fields[name] = get
	}
	return d
}

// TypeName returns the printable name of V.
func (d *Descriptor[K, V]) TypeName() string {
	return d.typeName
}

// FieldName returns the encoded name of the identifier attribute.
func (d *Descriptor[K, V]) FieldName() string {
	return d.field
}

// Value extracts the identifier of entity. A zero identifier is reported as an
// IdentifierError because it cannot address a row.
func (d *Descriptor[K, V]) Value(entity V) (K, error) {
	key := d.id(&entity)
	var zero K
	if key == zero {
		return zero, errors.NewIdentifierError(d.typeName, "identifier is empty")
	}
	return key, nil
}

// Key returns the canonical string form of entity's identifier.
func (d *Descriptor[K, V]) Key(entity V) (string, error) {
	key, err := d.Value(entity)
	if err != nil {
		return "", err
	}
	return d.format(key), nil
}

// Format converts a key into its canonical string form.
func (d *Descriptor[K, V]) Format(key K) string {
	return d.format(key)
}

// Accessor returns the registered accessor for a top-level attribute.
func (d *Descriptor[K, V]) Accessor(name string) (func(*V) any, bool) {
	if name == d.field {
		return func(v *V) any { return d.format(d.id(v)) }, true
	}
	get, ok := d.fields[name]
	return get, ok
}

// Fields lists the attributes that have registered accessors, identifier first.
func (d *Descriptor[K, V]) Fields() []string {
	names := make([]string, 0, len(d.fields)+1)
	names = append(names, d.field)
	rest := make([]string, 0, len(d.fields))
	for name := range d.fields {
		if name != d.field {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

// StringKey formats any string-like key.
func StringKey[K ~string](key K) string {
	return string(key)
}

// UUIDKey formats a UUID key in its canonical hyphenated form.
func UUIDKey(key uuid.UUID) string {
	return key.String()
}
