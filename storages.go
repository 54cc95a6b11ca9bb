/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package fieldstore

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/suparena/fieldstore/async"
	"github.com/suparena/fieldstore/datastore"
)

// TypedStorage names the open storages of entity type V.
type TypedStorage[K comparable, V any] struct {
	mu     sync.RWMutex
	stores map[string]datastore.Storage[K, V]
}

// NewTypedStorage creates an empty TypedStorage.
func NewTypedStorage[K comparable, V any]() *TypedStorage[K, V] {
	return &TypedStorage[K, V]{
		stores: make(map[string]datastore.Storage[K, V]),
	}
}

// Register adds s under name.
func (ts *TypedStorage[K, V]) Register(name string, s datastore.Storage[K, V]) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if _, exists := ts.stores[name]; exists {
		return fmt.Errorf("storage %q already registered", name)
	}
	ts.stores[name] = s
	return nil
}

// Get returns the storage registered under name.
func (ts *TypedStorage[K, V]) Get(name string) (datastore.Storage[K, V], error) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	s, exists := ts.stores[name]
	if !exists {
		return nil, fmt.Errorf("storage %q not found", name)
	}
	return s, nil
}

// Remove forgets name without closing its storage.
func (ts *TypedStorage[K, V]) Remove(name string) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if _, exists := ts.stores[name]; !exists {
		return fmt.Errorf("storage %q not found", name)
	}
	delete(ts.stores, name)
	return nil
}

// List returns the registered names in order.
func (ts *TypedStorage[K, V]) List() []string {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	names := make([]string, 0, len(ts.stores))
	for name := range ts.stores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes every registered storage and empties the set.
func (ts *TypedStorage[K, V]) Close(ctx context.Context) error {
	ts.mu.Lock()
	stores := ts.stores
	ts.stores = make(map[string]datastore.Storage[K, V])
	ts.mu.Unlock()

	futures := make(map[string]*async.Future[struct{}], len(stores))
	for name, s := range stores {
		futures[name] = s.Close(ctx)
	}
	var errs []error
	for name, f := range futures {
		if _, err := f.Await(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

type closer interface {
	Close(ctx context.Context) error
}

// MultiTypeStorage holds one TypedStorage per entity type.
type MultiTypeStorage struct {
	mu       sync.Mutex
	storages map[reflect.Type]closer
}

// NewMultiTypeStorage creates an empty MultiTypeStorage.
func NewMultiTypeStorage() *MultiTypeStorage {
	return &MultiTypeStorage{
		storages: make(map[reflect.Type]closer),
	}
}

// GetTypedStorage returns the TypedStorage of V, creating it if necessary.
// It panics if V was first used with another key type.
func GetTypedStorage[K comparable, V any](mts *MultiTypeStorage) *TypedStorage[K, V] {
	mts.mu.Lock()
	defer mts.mu.Unlock()

	typ := reflect.TypeOf((*V)(nil)).Elem()
	if existing, ok := mts.storages[typ]; ok {
		return existing.(*TypedStorage[K, V])
	}
	ts := NewTypedStorage[K, V]()
	mts.storages[typ] = ts
	return ts
}

// Close closes the storages of every type.
func (mts *MultiTypeStorage) Close(ctx context.Context) error {
	mts.mu.Lock()
	all := make([]closer, 0, len(mts.storages))
	for _, ts := range mts.storages {
		all = append(all, ts)
	}
	mts.mu.Unlock()

	var errs []error
	for _, ts := range all {
		errs = append(errs, ts.Close(ctx))
	}
	return errors.Join(errs...)
}

// RegisterStorage registers s for V under name.
func RegisterStorage[K comparable, V any](mts *MultiTypeStorage, name string, s datastore.Storage[K, V]) error {
	return GetTypedStorage[K, V](mts).Register(name, s)
}

// GetStorage returns the storage of V registered under name.
func GetStorage[K comparable, V any](mts *MultiTypeStorage, name string) (datastore.Storage[K, V], error) {
	return GetTypedStorage[K, V](mts).Get(name)
}

// RemoveStorage forgets the storage of V registered under name.
func RemoveStorage[K comparable, V any](mts *MultiTypeStorage, name string) error {
	return GetTypedStorage[K, V](mts).Remove(name)
}

// ListStorages returns the names registered for V.
func ListStorages[K comparable, V any](mts *MultiTypeStorage) []string {
	return GetTypedStorage[K, V](mts).List()
}
