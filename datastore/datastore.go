/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"

	"github.com/suparena/fieldstore/async"
	"github.com/suparena/fieldstore/cache"
	"github.com/suparena/fieldstore/codec"
	"github.com/suparena/fieldstore/filter"
	"github.com/suparena/fieldstore/identity"
)

// Storage is the uniform asynchronous contract over every backend.
//
// Every operation returns immediately with a future. Cache mutations made by
// Save, SaveAll, Remove and DeleteAll are visible as soon as the call returns;
// the backend write completes when the future resolves.
type Storage[K comparable, V any] interface {
	// Get returns the entity stored under key, or nil when there is none.
	// A cached entity is returned without touching the backend.
	Get(ctx context.Context, key K) *async.Future[*V]

	// Find returns every entity whose field matches value under op, ordered by
	// sort. An operator that does not accept value yields an empty result.
	Find(ctx context.Context, field string, value any, op filter.Operator, sort filter.Sort) *async.Future[[]V]

	// FindFirst returns the first unsorted match, or nil.
	FindFirst(ctx context.Context, field string, value any, op filter.Operator) *async.Future[*V]

	Save(ctx context.Context, value V) *async.Future[struct{}]

	// SaveAll saves every value; failures are joined into one error.
	SaveAll(ctx context.Context, values []V) *async.Future[struct{}]

	Remove(ctx context.Context, value V) *async.Future[struct{}]

	DeleteAll(ctx context.Context) *async.Future[struct{}]

	// AllValues scans the backend.
	AllValues(ctx context.Context) *async.Future[[]V]

	// Write flushes the cache to write-deferred backends and re-saves it on
	// backends that ask for that. It is a no-op elsewhere.
	Write(ctx context.Context) *async.Future[struct{}]

	// Close releases the backend. It is idempotent; operations issued after
	// Close fail with errors.ErrClosed.
	Close(ctx context.Context) *async.Future[struct{}]

	RenameField(ctx context.Context, oldPath, newPath string) *async.Future[struct{}]
	RenameFields(ctx context.Context, renames map[string]string) *async.Future[struct{}]

	// GetOrCreate returns the entity under key, constructing and saving one
	// with the constructor hook when absent.
	GetOrCreate(ctx context.Context, key K) *async.Future[*V]

	ConstructValue(key K) (V, error)
	ConstructEmpty() (V, error)

	Cache() cache.Cache[string, V]
	SetCache(c cache.Cache[string, V])

	Descriptor() *identity.Descriptor[K, V]
}

// Schema is what a backend needs to know about the entities it stores.
type Schema struct {
	// Table names the table, collection, hash or file the entities live in.
	Table string
	// IDField is the encoded name of the identifier attribute.
	IDField string
	// Codec encodes entities into JSON documents.
	Codec codec.Codec
}

// Backend is implemented by each adapter. Keys are the canonical text form of
// the entity identifier. Implementations are called from pool workers and must
// be safe for concurrent use.
type Backend[V any] interface {
	// Name identifies the adapter in logs and errors.
	Name() string

	// Query returns the entities matching p, ordered per p.Sort.
	// p has already been validated.
	Query(ctx context.Context, p filter.Predicate) ([]V, error)

	// Scan returns every stored entity.
	Scan(ctx context.Context) ([]V, error)

	Upsert(ctx context.Context, key string, value V) error
	Delete(ctx context.Context, key string) error

	// Truncate removes every entity and restores an empty schema.
	Truncate(ctx context.Context) error

	// RenameFields moves attribute paths old -> new in every stored entity.
	RenameFields(ctx context.Context, renames map[string]string) error

	Close(ctx context.Context) error
}

// KeyReader is implemented by backends with a primary-key lookup faster than
// an EQUALS query on the identifier attribute. A nil entity means absent.
type KeyReader[V any] interface {
	Lookup(ctx context.Context, key string) (*V, error)
}

// BatchUpserter is implemented by backends that can write many entities in one
// round trip.
type BatchUpserter[V any] interface {
	UpsertAll(ctx context.Context, values map[string]V) error
}

// Resaver is implemented by immediate backends whose Write re-saves every
// cached entity. Backends without it persist each mutation as it happens and
// Write leaves them untouched.
type Resaver interface {
	ResaveOnWrite() bool
}

// SnapshotBackend marks a write-deferred backend. The store cache is the
// authoritative copy of its data: it is loaded once at construction, filtered
// in-process, and handed back to Replace on Write and Close.
type SnapshotBackend[V any] interface {
	Backend[V]
	Load(ctx context.Context) ([]V, error)
	Replace(ctx context.Context, values []V) error
}
