package main

import (
	"fmt"

	"github.com/suparena/fieldstore/datastore"
	"github.com/suparena/fieldstore/identity"
)

// record is a schemaless entity: whatever attributes the table holds.
type record map[string]any

func recordDescriptor(idField string) (*identity.Descriptor[string, record], error) {
	return identity.New[string, record](idField, func(r *record) string {
		switch v := (*r)[idField].(type) {
		case nil:
			return ""
		case string:
			return v
		default:
			return fmt.Sprint(v)
		}
	}, identity.StringKey[string])
}

func (r record) id(s *datastore.Store[string, record]) string {
	key, _ := s.Descriptor().Key(r)
	return key
}
