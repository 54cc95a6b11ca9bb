/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/suparena/fieldstore/async"
	"github.com/suparena/fieldstore/cache"
	"github.com/suparena/fieldstore/codec"
	storeerrors "github.com/suparena/fieldstore/errors"
	"github.com/suparena/fieldstore/filter"
	"github.com/suparena/fieldstore/identity"
)

const poolStopTimeout = 30 * time.Second

// Store implements Storage over any Backend, keeping its cache coherent with
// the backend writes it issues.
type Store[K comparable, V any] struct {
	desc     *identity.Descriptor[K, V]
	backend  Backend[V]
	snapshot SnapshotBackend[V]
	codec    codec.Codec
	logger   *slog.Logger

	pool    *async.Pool
	ownPool bool

	cacheMu sync.RWMutex
	cache   cache.Cache[string, V]

	fromKey func(K) (V, error)
	empty   func() (V, error)

	saveParallelism int

	lifecycleMu sync.RWMutex
	closed      bool
	closing     *async.Future[struct{}]
	inflight    sync.WaitGroup
}

var _ Storage[string, struct{}] = (*Store[string, struct{}])(nil)

// New binds backend to the entity type described by desc. Snapshot backends
// are loaded into the cache before New returns.
func New[K comparable, V any](ctx context.Context, desc *identity.Descriptor[K, V], backend Backend[V], opts ...Option) (*Store[K, V], error) {
	if desc == nil {
		return nil, storeerrors.NewConfigurationError("descriptor", "an identity descriptor is required")
	}
	if backend == nil {
		return nil, storeerrors.NewConfigurationError("backend", "a backend is required")
	}

	cfg := defaultSettings()
	for _, opt := range opts {
		opt(cfg)
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store[K, V]{
		desc:            desc,
		backend:         backend,
		codec:           cfg.codec,
		logger:          logger.With("backend", backend.Name(), "entity", desc.TypeName()),
		saveParallelism: cfg.saveParallelism,
	}
	s.snapshot, _ = backend.(SnapshotBackend[V])

	switch {
	case cfg.cache != nil:
		c, ok := cfg.cache.(cache.Cache[string, V])
		if !ok {
			return nil, storeerrors.NewConfigurationError("cache",
				fmt.Sprintf("%T does not cache %s values", cfg.cache, desc.TypeName()))
		}
		s.cache = c
	case s.snapshot != nil:
		s.cache = cache.NewMap[string, V]()
	default:
		s.cache = cache.NewDefault[string, V]()
	}

	if cfg.fromKey != nil {
		f, ok := cfg.fromKey.(func(K) (V, error))
		if !ok {
			return nil, storeerrors.NewConfigurationError("constructor",
				fmt.Sprintf("%T does not construct %s", cfg.fromKey, desc.TypeName()))
		}
		s.fromKey = f
	}
	if cfg.empty != nil {
		f, ok := cfg.empty.(func() (V, error))
		if !ok {
			return nil, storeerrors.NewConfigurationError("constructor",
				fmt.Sprintf("%T does not construct %s", cfg.empty, desc.TypeName()))
		}
		s.empty = f
	}

	if cfg.pool != nil {
		s.pool = cfg.pool
	} else {
		var poolOpts []async.Option
		if cfg.registerer != nil && cfg.metricsPrefix != "" {
			poolOpts = append(poolOpts, async.WithMetrics(cfg.registerer, cfg.metricsPrefix))
		}
		s.pool = async.NewPool(cfg.workers, cfg.queueSize, poolOpts...)
		s.ownPool = true
	}

	if s.snapshot != nil {
		values, err := s.snapshot.Load(ctx)
		if err != nil {
			if s.ownPool {
				_ = s.pool.Stop(poolStopTimeout)
			}
			return nil, storeerrors.NewBackendError(backend.Name(), "load", err)
		}
		s.cacheValues("load", values)
		s.logger.Debug("loaded snapshot", "count", len(values))
	}

	return s, nil
}

// Descriptor returns the identity descriptor of V.
func (s *Store[K, V]) Descriptor() *identity.Descriptor[K, V] {
	return s.desc
}

// Cache returns the current cache.
func (s *Store[K, V]) Cache() cache.Cache[string, V] {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return s.cache
}

// SetCache swaps the cache. Entries of the previous cache are not carried over.
func (s *Store[K, V]) SetCache(c cache.Cache[string, V]) {
	if c == nil {
		s.logger.Warn("ignoring nil cache")
		return
	}
	s.cacheMu.Lock()
	s.cache = c
	s.cacheMu.Unlock()
}

// Closed reports whether Close has been called.
func (s *Store[K, V]) Closed() bool {
	s.lifecycleMu.RLock()
	defer s.lifecycleMu.RUnlock()
	return s.closed
}

// Snapshot reports whether the backend is write-deferred, making the cache
// the authoritative copy of the data.
func (s *Store[K, V]) Snapshot() bool {
	return s.snapshot != nil
}

// Get returns the entity stored under key.
func (s *Store[K, V]) Get(ctx context.Context, key K) *async.Future[*V] {
	k := s.desc.Format(key)

	done, err := s.begin("get")
	if err != nil {
		return async.Completed[*V](nil, err)
	}
	if v, ok := s.Cache().GetIfPresent(k); ok {
		done()
		return async.Completed(&v, nil)
	}
	if s.snapshot != nil {
		done()
		return async.Completed[*V](nil, nil)
	}

	return dispatch(s, "get", done, func() (*V, error) {
		found, err := s.lookup(ctx, k)
		if err != nil {
			return nil, s.backendError("get", err, "key", k)
		}
		if found != nil {
			s.Cache().Put(k, *found)
		}
		return found, nil
	})
}

func (s *Store[K, V]) lookup(ctx context.Context, key string) (*V, error) {
	if kr, ok := s.backend.(KeyReader[V]); ok {
		return kr.Lookup(ctx, key)
	}
	values, err := s.backend.Query(ctx, filter.Where(s.desc.FieldName(), filter.Equals, key))
	if err != nil || len(values) == 0 {
		return nil, err
	}
	return &values[0], nil
}

// Find returns the entities whose field matches value.
func (s *Store[K, V]) Find(ctx context.Context, field string, value any, op filter.Operator, order filter.Sort) *async.Future[[]V] {
	p := filter.Predicate{Field: field, Value: value, Op: op, Sort: order}
	if err := p.Validate(); err != nil {
		if storeerrors.IsInapplicableOperator(err) {
			s.logger.Warn("filter operator not applicable",
				"op", "find", "field", field, "operator", op.String(), "operand", fmt.Sprintf("%T", value))
			return async.Completed([]V{}, nil)
		}
		return async.Completed[[]V](nil, s.fail("find", err, "field", field))
	}

	return submit(s, "find", func() ([]V, error) {
		if s.snapshot != nil {
			return filter.Apply(s.snapshotValues(), p, s.fieldReader(p.Field)), nil
		}
		values, err := s.backend.Query(ctx, p)
		if err != nil {
			return nil, s.backendError("find", err, "field", field)
		}
		s.cacheValues("find", values)
		return values, nil
	})
}

// FindFirst returns the first unsorted match.
func (s *Store[K, V]) FindFirst(ctx context.Context, field string, value any, op filter.Operator) *async.Future[*V] {
	return async.Then(s.Find(ctx, field, value, op, filter.None), func(values []V, err error) *async.Future[*V] {
		if err != nil || len(values) == 0 {
			return async.Completed[*V](nil, err)
		}
		first := values[0]
		return async.Completed(&first, nil)
	})
}

// Save caches value and upserts it.
func (s *Store[K, V]) Save(ctx context.Context, value V) *async.Future[struct{}] {
	k, err := s.desc.Key(value)
	if err != nil {
		return async.Completed(struct{}{}, s.fail("save", err))
	}
	done, err := s.begin("save")
	if err != nil {
		return async.Completed(struct{}{}, err)
	}

	s.Cache().Put(k, value)
	if s.snapshot != nil {
		done()
		return async.Completed(struct{}{}, nil)
	}

	bctx := context.WithoutCancel(ctx)
	return dispatch(s, "save", done, func() (struct{}, error) {
		if err := s.backend.Upsert(bctx, k, value); err != nil {
			return struct{}{}, s.backendError("save", err, "key", k)
		}
		return struct{}{}, nil
	})
}

// SaveAll caches and upserts every value. Entities without a resolvable
// identifier are skipped and reported in the joined error.
func (s *Store[K, V]) SaveAll(ctx context.Context, values []V) *async.Future[struct{}] {
	done, err := s.begin("saveAll")
	if err != nil {
		return async.Completed(struct{}{}, err)
	}

	var errs []error
	batch := make(map[string]V, len(values))
	for _, v := range values {
		k, err := s.desc.Key(v)
		if err != nil {
			errs = append(errs, s.fail("saveAll", err))
			continue
		}
		batch[k] = v
	}
	s.Cache().PutAll(batch)

	if s.snapshot != nil || len(batch) == 0 {
		done()
		return async.Completed(struct{}{}, errors.Join(errs...))
	}

	bctx := context.WithoutCancel(ctx)
	return dispatch(s, "saveAll", done, func() (struct{}, error) {
		errs = append(errs, s.upsertAll(bctx, batch)...)
		return struct{}{}, errors.Join(errs...)
	})
}

// upsertAll writes batch in one call when the backend supports it, otherwise
// with bounded parallelism, and returns every failure.
func (s *Store[K, V]) upsertAll(ctx context.Context, batch map[string]V) []error {
	if bu, ok := s.backend.(BatchUpserter[V]); ok {
		if err := bu.UpsertAll(ctx, batch); err != nil {
			return []error{s.backendError("saveAll", err, "count", len(batch))}
		}
		return nil
	}

	var (
		mu   sync.Mutex
		errs []error
		g    errgroup.Group
	)
	g.SetLimit(s.saveParallelism)
	for k, v := range batch {
		g.Go(func() error {
			if err := s.backend.Upsert(ctx, k, v); err != nil {
				err = s.backendError("saveAll", err, "key", k)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

// Remove invalidates value's cache entry and deletes it.
func (s *Store[K, V]) Remove(ctx context.Context, value V) *async.Future[struct{}] {
	k, err := s.desc.Key(value)
	if err != nil {
		return async.Completed(struct{}{}, s.fail("remove", err))
	}
	done, err := s.begin("remove")
	if err != nil {
		return async.Completed(struct{}{}, err)
	}

	s.Cache().Invalidate(k)
	if s.snapshot != nil {
		done()
		return async.Completed(struct{}{}, nil)
	}

	bctx := context.WithoutCancel(ctx)
	return dispatch(s, "remove", done, func() (struct{}, error) {
		if err := s.backend.Delete(bctx, k); err != nil {
			return struct{}{}, s.backendError("remove", err, "key", k)
		}
		return struct{}{}, nil
	})
}

// DeleteAll empties the cache and the backend.
func (s *Store[K, V]) DeleteAll(ctx context.Context) *async.Future[struct{}] {
	done, err := s.begin("deleteAll")
	if err != nil {
		return async.Completed(struct{}{}, err)
	}

	s.Cache().InvalidateAll()

	bctx := context.WithoutCancel(ctx)
	return dispatch(s, "deleteAll", done, func() (struct{}, error) {
		if err := s.backend.Truncate(bctx); err != nil {
			return struct{}{}, s.backendError("deleteAll", err)
		}
		return struct{}{}, nil
	})
}

// AllValues returns every stored entity without caching them. Snapshot
// backends answer from the cache, which is their authoritative copy.
func (s *Store[K, V]) AllValues(ctx context.Context) *async.Future[[]V] {
	return submit(s, "allValues", func() ([]V, error) {
		if s.snapshot != nil {
			return s.snapshotValues(), nil
		}
		values, err := s.backend.Scan(ctx)
		if err != nil {
			return nil, s.backendError("allValues", err)
		}
		return values, nil
	})
}

// Write hands the cache to a snapshot backend, or re-saves it on a backend
// that implements Resaver. Any other backend already holds every mutation.
func (s *Store[K, V]) Write(ctx context.Context) *async.Future[struct{}] {
	if s.snapshot == nil {
		if r, ok := s.backend.(Resaver); ok && r.ResaveOnWrite() {
			return s.SaveAll(ctx, s.snapshotValues())
		}
		return submit(s, "write", func() (struct{}, error) {
			return struct{}{}, nil
		})
	}

	bctx := context.WithoutCancel(ctx)
	return submit(s, "write", func() (struct{}, error) {
		values := s.snapshotValues()
		if err := s.snapshot.Replace(bctx, values); err != nil {
			return struct{}{}, s.backendError("write", err, "count", len(values))
		}
		return struct{}{}, nil
	})
}

// Close waits for in-flight operations, flushes snapshot backends, closes the
// backend and stops an owned pool. Repeated calls return the same future.
func (s *Store[K, V]) Close(ctx context.Context) *async.Future[struct{}] {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if s.closed {
		return s.closing
	}
	s.closed = true

	bctx := context.WithoutCancel(ctx)
	s.closing = async.Spawn(func() (struct{}, error) {
		s.inflight.Wait()

		var errs []error
		if s.snapshot != nil {
			if err := s.snapshot.Replace(bctx, s.snapshotValues()); err != nil {
				errs = append(errs, s.backendError("close", err))
			}
		}
		if err := s.backend.Close(bctx); err != nil {
			errs = append(errs, s.backendError("close", err))
		}
		if s.ownPool {
			if err := s.pool.Stop(poolStopTimeout); err != nil {
				errs = append(errs, s.fail("close", err))
			}
		}
		s.logger.Debug("storage closed")
		return struct{}{}, errors.Join(errs...)
	})
	return s.closing
}

// RenameField moves the attribute at oldPath to newPath in every entity.
func (s *Store[K, V]) RenameField(ctx context.Context, oldPath, newPath string) *async.Future[struct{}] {
	return s.RenameFields(ctx, map[string]string{oldPath: newPath})
}

// RenameFields applies every old -> new rename. The identifier attribute
// cannot be renamed.
func (s *Store[K, V]) RenameFields(ctx context.Context, renames map[string]string) *async.Future[struct{}] {
	for from, to := range renames {
		if !filter.ValidPath(from) || !filter.ValidPath(to) {
			return async.Completed(struct{}{}, s.fail("renameFields",
				storeerrors.NewValidationError("field", fmt.Sprintf("invalid rename %q -> %q", from, to))))
		}
		if from == s.desc.FieldName() || to == s.desc.FieldName() {
			return async.Completed(struct{}{}, s.fail("renameFields",
				storeerrors.NewValidationError("field", "the identifier attribute cannot be renamed")))
		}
	}
	done, err := s.begin("renameFields")
	if err != nil {
		return async.Completed(struct{}{}, err)
	}

	bctx := context.WithoutCancel(ctx)
	if s.snapshot != nil {
		return dispatch(s, "renameFields", done, func() (struct{}, error) {
			if err := s.migrateSnapshot(renames); err != nil {
				return struct{}{}, s.fail("renameFields", err)
			}
			if err := s.snapshot.Replace(bctx, s.snapshotValues()); err != nil {
				return struct{}{}, s.backendError("renameFields", err)
			}
			return struct{}{}, nil
		})
	}

	s.Cache().InvalidateAll()
	return dispatch(s, "renameFields", done, func() (struct{}, error) {
		defer s.Cache().InvalidateAll()
		if err := s.backend.RenameFields(bctx, renames); err != nil {
			return struct{}{}, s.backendError("renameFields", err)
		}
		return struct{}{}, nil
	})
}

// migrateSnapshot rewrites the authoritative cache entries of a snapshot
// backend through their documents.
func (s *Store[K, V]) migrateSnapshot(renames map[string]string) error {
	c := s.Cache()
	var errs []error
	for k, v := range c.Snapshot() {
		doc, err := codec.ToDocument(s.codec, v)
		if err != nil {
			errs = append(errs, fmt.Errorf("encode %s: %w", k, err))
			continue
		}
		if !RenameDocument(doc, renames) {
			continue
		}
		var migrated V
		if err := codec.FromDocument(s.codec, doc, &migrated); err != nil {
			errs = append(errs, fmt.Errorf("decode %s: %w", k, err))
			continue
		}
		c.Put(k, migrated)
	}
	return errors.Join(errs...)
}

// GetOrCreate returns the entity under key, constructing and saving it when
// absent.
func (s *Store[K, V]) GetOrCreate(ctx context.Context, key K) *async.Future[*V] {
	return async.Then(s.Get(ctx, key), func(found *V, err error) *async.Future[*V] {
		if err != nil || found != nil {
			return async.Completed(found, err)
		}
		created, err := s.ConstructValue(key)
		if err != nil {
			return async.Completed[*V](nil, s.fail("getOrCreate", err, "key", s.desc.Format(key)))
		}
		return async.Then(s.Save(ctx, created), func(_ struct{}, err error) *async.Future[*V] {
			if err != nil {
				return async.Completed[*V](nil, err)
			}
			return async.Completed(&created, nil)
		})
	})
}

// ConstructValue builds a placeholder entity identified by key.
func (s *Store[K, V]) ConstructValue(key K) (V, error) {
	var zero V
	if s.fromKey == nil {
		return zero, storeerrors.NewValidationError("constructor", "no constructor registered for "+s.desc.TypeName())
	}
	v, err := s.fromKey(key)
	if err != nil {
		return zero, err
	}
	got, err := s.desc.Value(v)
	if err != nil {
		return zero, err
	}
	if got != key {
		return zero, storeerrors.NewIdentifierError(s.desc.TypeName(),
			fmt.Sprintf("constructed identifier %s does not match %s", s.desc.Format(got), s.desc.Format(key)))
	}
	return v, nil
}

// ConstructEmpty builds an entity with no arguments. Without a registered
// constructor it returns the zero value.
func (s *Store[K, V]) ConstructEmpty() (V, error) {
	if s.empty == nil {
		var zero V
		return zero, nil
	}
	return s.empty()
}

// begin registers an in-flight operation, failing once the store is closed.
func (s *Store[K, V]) begin(op string) (func(), error) {
	s.lifecycleMu.RLock()
	defer s.lifecycleMu.RUnlock()

	if s.closed {
		err := fmt.Errorf("%s %s: %w", s.backend.Name(), op, storeerrors.ErrClosed)
		s.logger.Warn("operation on closed storage", "op", op)
		return nil, err
	}
	s.inflight.Add(1)
	return s.inflight.Done, nil
}

// submit registers and queues fn as one operation.
func submit[T any, K comparable, V any](s *Store[K, V], op string, fn func() (T, error)) *async.Future[T] {
	done, err := s.begin(op)
	if err != nil {
		var zero T
		return async.Completed(zero, err)
	}
	return dispatch(s, op, done, fn)
}

// dispatch queues fn for an operation already registered by begin. A full
// queue fails the operation instead of blocking the caller.
func dispatch[T any, K comparable, V any](s *Store[K, V], op string, done func(), fn func() (T, error)) *async.Future[T] {
	f, err := async.TrySubmit(s.pool, func() (T, error) {
		defer done()
		return fn()
	})
	if err != nil {
		done()
		var zero T
		return async.Completed(zero, s.fail(op, err))
	}
	return f
}

func (s *Store[K, V]) fail(op string, err error, attrs ...any) error {
	s.logger.Warn("storage operation failed", append([]any{"op", op, "error", err}, attrs...)...)
	return err
}

func (s *Store[K, V]) backendError(op string, err error, attrs ...any) error {
	return s.fail(op, storeerrors.NewBackendError(s.backend.Name(), op, err), attrs...)
}

// cacheValues caches each value under its own identifier.
func (s *Store[K, V]) cacheValues(op string, values []V) {
	if len(values) == 0 {
		return
	}
	batch := make(map[string]V, len(values))
	for _, v := range values {
		k, err := s.desc.Key(v)
		if err != nil {
			s.logger.Warn("not caching entity without identifier", "op", op, "error", err)
			continue
		}
		batch[k] = v
	}
	s.Cache().PutAll(batch)
}

// snapshotValues returns the cached entities ordered by key.
func (s *Store[K, V]) snapshotValues() []V {
	snap := s.Cache().Snapshot()
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	values := make([]V, 0, len(keys))
	for _, k := range keys {
		values = append(values, snap[k])
	}
	return values
}

// fieldReader reads path from an entity, through a registered accessor when
// the descriptor has one and through the entity's document otherwise. Nil and
// zero accessor values defer to the document, which may omit them.
func (s *Store[K, V]) fieldReader(path string) filter.FieldFunc[V] {
	fromDoc := DocumentField[V](s.codec, path)
	get, ok := s.desc.Accessor(path)
	if !ok {
		return fromDoc
	}
	return func(v V) (any, bool) {
		f := get(&v)
		if f == nil || reflect.ValueOf(f).IsZero() {
			return fromDoc(v)
		}
		return f, true
	}
}
