/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package kvstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/valkey-io/valkey-go"

	"github.com/suparena/fieldstore/codec"
	"github.com/suparena/fieldstore/datastore"
	storeerrors "github.com/suparena/fieldstore/errors"
	"github.com/suparena/fieldstore/filter"
)

// DefaultPrefix namespaces the hashes this package writes.
const DefaultPrefix = "fieldstore:"

type options struct {
	prefix string
}

// Option configures a Store.
type Option func(*options)

// WithPrefix replaces DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// Store is a datastore.Backend over one Valkey hash.
type Store[V any] struct {
	client valkey.Client
	hash   string
	codec  codec.Codec
}

var (
	_ datastore.Backend[struct{}]       = (*Store[struct{}])(nil)
	_ datastore.KeyReader[struct{}]     = (*Store[struct{}])(nil)
	_ datastore.BatchUpserter[struct{}] = (*Store[struct{}])(nil)
)

// Open connects to the server described by opt and binds schema to it.
// An empty address list means localhost:6379.
func Open[V any](ctx context.Context, opt valkey.ClientOption, schema datastore.Schema, opts ...Option) (*Store[V], error) {
	if len(opt.InitAddress) == 0 {
		opt.InitAddress = []string{"localhost:6379"}
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		return nil, fmt.Errorf("create valkey client: %w", err)
	}
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("valkey ping failed: %w", err)
	}

	s, err := New[V](client, schema, opts...)
	if err != nil {
		client.Close()
		return nil, err
	}
	return s, nil
}

// New binds an existing client to schema. The store closes client on Close.
func New[V any](client valkey.Client, schema datastore.Schema, opts ...Option) (*Store[V], error) {
	if client == nil {
		return nil, storeerrors.NewConfigurationError("client", "a valkey client is required")
	}
	if schema.Table == "" {
		return nil, storeerrors.NewConfigurationError("table", "table name is required")
	}
	o := &options{prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(o)
	}
	c := schema.Codec
	if c == nil {
		c = codec.JSON
	}
	return &Store[V]{client: client, hash: o.prefix + schema.Table, codec: c}, nil
}

func (s *Store[V]) Name() string { return "valkey" }

// Hash returns the name of the hash holding the table.
func (s *Store[V]) Hash() string { return s.hash }

func (s *Store[V]) Lookup(ctx context.Context, key string) (*V, error) {
	data, err := s.client.Do(ctx, s.client.B().Hget().Key(s.hash).Field(key).Build()).AsBytes()
	if valkey.IsValkeyNil(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("valkey hget: %w", err)
	}
	var v V
	if err := s.codec.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &v, nil
}

func (s *Store[V]) Query(ctx context.Context, p filter.Predicate) ([]V, error) {
	entries, err := s.entries(ctx)
	if err != nil {
		return nil, err
	}
	docs, err := documents(s.codec, entries)
	if err != nil {
		return nil, err
	}
	return datastore.DecodeDocuments[V](codec.JSON, datastore.MatchDocuments(docs, p))
}

func (s *Store[V]) Scan(ctx context.Context) ([]V, error) {
	entries, err := s.entries(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]V, 0, len(entries))
	for _, e := range entries {
		var v V
		if err := s.codec.Unmarshal([]byte(e.value), &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", e.key, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *Store[V]) Upsert(ctx context.Context, key string, value V) error {
	data, err := s.codec.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	cmd := s.client.B().Hset().Key(s.hash).FieldValue().FieldValue(key, string(data)).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("valkey hset: %w", err)
	}
	return nil
}

// UpsertAll writes every value with one HSET.
func (s *Store[V]) UpsertAll(ctx context.Context, values map[string]V) error {
	if len(values) == 0 {
		return nil
	}
	cmd := s.client.B().Hset().Key(s.hash).FieldValue()
	for key, value := range values {
		data, err := s.codec.Marshal(value)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		cmd = cmd.FieldValue(key, string(data))
	}
	if err := s.client.Do(ctx, cmd.Build()).Error(); err != nil {
		return fmt.Errorf("valkey hset: %w", err)
	}
	return nil
}

func (s *Store[V]) Delete(ctx context.Context, key string) error {
	if err := s.client.Do(ctx, s.client.B().Hdel().Key(s.hash).Field(key).Build()).Error(); err != nil {
		return fmt.Errorf("valkey hdel: %w", err)
	}
	return nil
}

// Truncate deletes the hash.
func (s *Store[V]) Truncate(ctx context.Context) error {
	if err := s.client.Do(ctx, s.client.B().Del().Key(s.hash).Build()).Error(); err != nil {
		return fmt.Errorf("valkey delete: %w", err)
	}
	return nil
}

// RenameFields rewrites every value that holds one of the old attributes.
func (s *Store[V]) RenameFields(ctx context.Context, renames map[string]string) error {
	entries, err := s.entries(ctx)
	if err != nil {
		return err
	}
	changed, err := renameEntries(s.codec, entries, renames)
	if err != nil || len(changed) == 0 {
		return err
	}

	cmd := s.client.B().Hset().Key(s.hash).FieldValue()
	for _, e := range changed {
		cmd = cmd.FieldValue(e.key, e.value)
	}
	if err := s.client.Do(ctx, cmd.Build()).Error(); err != nil {
		return fmt.Errorf("valkey hset: %w", err)
	}
	return nil
}

func (s *Store[V]) Close(ctx context.Context) error {
	s.client.Close()
	return nil
}

type entry struct {
	key   string
	value string
}

// entries reads the hash in key order.
func (s *Store[V]) entries(ctx context.Context) ([]entry, error) {
	m, err := s.client.Do(ctx, s.client.B().Hgetall().Key(s.hash).Build()).AsStrMap()
	if err != nil {
		return nil, fmt.Errorf("valkey hgetall: %w", err)
	}
	return sortedEntries(m), nil
}

func sortedEntries(m map[string]string) []entry {
	out := make([]entry, 0, len(m))
	for k, v := range m {
		out = append(out, entry{key: k, value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	return out
}

func documents(c codec.Codec, entries []entry) ([]datastore.Document, error) {
	docs := make([]datastore.Document, 0, len(entries))
	for _, e := range entries {
		var doc datastore.Document
		if err := c.Unmarshal([]byte(e.value), &doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", e.key, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// renameEntries returns the re-encoded entries that held an old attribute.
func renameEntries(c codec.Codec, entries []entry, renames map[string]string) ([]entry, error) {
	var changed []entry
	for _, e := range entries {
		doc, err := documents(c, []entry{e})
		if err != nil {
			return nil, err
		}
		if !datastore.RenameDocument(doc[0], renames) {
			continue
		}
		data, err := c.Marshal(doc[0])
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", e.key, err)
		}
		changed = append(changed, entry{key: e.key, value: string(data)})
	}
	return changed, nil
}
