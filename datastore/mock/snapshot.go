/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mock

import (
	"context"

	"github.com/suparena/fieldstore/datastore"
)

// SnapshotBackend is a write-deferred mock: the store keeps its data in the
// cache and only hands it over on Write and Close.
type SnapshotBackend[V any] struct {
	*Backend[V]
	key func(V) (string, error)
}

var _ datastore.SnapshotBackend[struct{}] = (*SnapshotBackend[struct{}])(nil)

// NewSnapshot wraps a mock backend as a snapshot backend. key extracts the
// storage key of an entity when a snapshot is replaced.
func NewSnapshot[V any](b *Backend[V], key func(V) (string, error)) *SnapshotBackend[V] {
	return &SnapshotBackend[V]{Backend: b, key: key}
}

// Load returns the stored entities.
func (s *SnapshotBackend[V]) Load(_ context.Context) ([]V, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpLoad); err != nil {
		return nil, err
	}
	return datastore.DecodeDocuments[V](s.codec, s.documents())
}

// Replace overwrites the stored entities with values.
func (s *SnapshotBackend[V]) Replace(_ context.Context, values []V) error {
	s.mu.Lock()
	if err := s.enter(OpReplace); err != nil {
		s.mu.Unlock()
		return err
	}
	s.data = make(map[string]datastore.Document, len(values))
	s.mu.Unlock()

	for _, v := range values {
		k, err := s.key(v)
		if err != nil {
			return err
		}
		if err := s.Put(k, v); err != nil {
			return err
		}
	}
	return nil
}
