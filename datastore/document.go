/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"sort"

	"github.com/suparena/fieldstore/codec"
	"github.com/suparena/fieldstore/filter"
)

// Document is the generic form of an encoded entity.
type Document = map[string]any

// DocumentField reads path from the JSON document of an entity.
func DocumentField[V any](c codec.Codec, path string) filter.FieldFunc[V] {
	return func(v V) (any, bool) {
		doc, err := codec.ToDocument(c, v)
		if err != nil {
			return nil, false
		}
		return filter.Lookup(doc, path)
	}
}

// MatchDocuments evaluates p in-process against decoded documents.
func MatchDocuments(docs []Document, p filter.Predicate) []Document {
	return filter.Apply(docs, p, func(d Document) (any, bool) {
		return filter.Lookup(d, p.Field)
	})
}

// DecodeDocuments decodes docs into entities.
func DecodeDocuments[V any](c codec.Codec, docs []Document) ([]V, error) {
	out := make([]V, 0, len(docs))
	for _, d := range docs {
		var v V
		if err := codec.FromDocument(c, d, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// RenameDocument applies renames to doc in a stable order and reports whether
// anything moved.
func RenameDocument(doc Document, renames map[string]string) bool {
	olds := make([]string, 0, len(renames))
	for old := range renames {
		olds = append(olds, old)
	}
	sort.Strings(olds)

	changed := false
	for _, old := range olds {
		if filter.Rename(doc, old, renames[old]) {
			changed = true
		}
	}
	return changed
}
