/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package mock provides an in-memory datastore.Backend for testing
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/suparena/fieldstore/codec"
	"github.com/suparena/fieldstore/datastore"
	"github.com/suparena/fieldstore/errors"
	"github.com/suparena/fieldstore/filter"
)

// Operation names counted by Calls.
const (
	OpQuery        = "query"
	OpScan         = "scan"
	OpUpsert       = "upsert"
	OpDelete       = "delete"
	OpTruncate     = "truncate"
	OpRenameFields = "renameFields"
	OpClose        = "close"
	OpLoad         = "load"
	OpReplace      = "replace"
)

// Backend is an in-memory datastore.Backend holding encoded documents, so
// filters and renames behave as they do against a document store.
type Backend[V any] struct {
	mu     sync.RWMutex
	codec  codec.Codec
	data   map[string]datastore.Document
	calls  map[string]int
	errs   map[string]error
	closed bool
	resave bool
}

var (
	_ datastore.Backend[struct{}] = (*Backend[struct{}])(nil)
	_ datastore.Resaver           = (*Backend[struct{}])(nil)
)

// New creates an empty mock backend. A nil codec means codec.JSON.
func New[V any](c codec.Codec) *Backend[V] {
	if c == nil {
		c = codec.JSON
	}
	return &Backend[V]{
		codec: c,
		data:  make(map[string]datastore.Document),
		calls: make(map[string]int),
		errs:  make(map[string]error),
	}
}

// WithError makes every call of op fail with err. A nil err clears it.
func (m *Backend[V]) WithError(op string, err error) *Backend[V] {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.errs, op)
	} else {
		m.errs[op] = err
	}
	return m
}

// WithResave makes Write re-save the cache, as a relational backend does.
func (m *Backend[V]) WithResave() *Backend[V] {
	m.mu.Lock()
	m.resave = true
	m.mu.Unlock()
	return m
}

// ResaveOnWrite reports whether WithResave was set.
func (m *Backend[V]) ResaveOnWrite() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.resave
}

// WithUpsertError makes Upsert fail with err.
func (m *Backend[V]) WithUpsertError(err error) *Backend[V] {
	return m.WithError(OpUpsert, err)
}

// WithDeleteError makes Delete fail with err.
func (m *Backend[V]) WithDeleteError(err error) *Backend[V] {
	return m.WithError(OpDelete, err)
}

// WithQueryError makes Query fail with err.
func (m *Backend[V]) WithQueryError(err error) *Backend[V] {
	return m.WithError(OpQuery, err)
}

// Disconnect simulates a lost connection: every later call fails until
// Reconnect.
func (m *Backend[V]) Disconnect() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

// Reconnect undoes Disconnect.
func (m *Backend[V]) Reconnect() {
	m.mu.Lock()
	m.closed = false
	m.mu.Unlock()
}

// Calls returns how many times op was invoked.
func (m *Backend[V]) Calls(op string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[op]
}

// ResetCalls zeroes every call counter.
func (m *Backend[V]) ResetCalls() {
	m.mu.Lock()
	m.calls = make(map[string]int)
	m.mu.Unlock()
}

// enter counts op and returns the failure configured for it. Callers hold mu.
func (m *Backend[V]) enter(op string) error {
	m.calls[op]++
	if m.closed {
		return fmt.Errorf("mock %s: connection closed", op)
	}
	return m.errs[op]
}

func (m *Backend[V]) Name() string { return "mock" }

// Query evaluates p in-process over the stored documents, in key order.
func (m *Backend[V]) Query(_ context.Context, p filter.Predicate) ([]V, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpQuery); err != nil {
		return nil, err
	}
	return datastore.DecodeDocuments[V](m.codec, datastore.MatchDocuments(m.documents(), p))
}

// Scan returns every stored entity in key order.
func (m *Backend[V]) Scan(_ context.Context) ([]V, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpScan); err != nil {
		return nil, err
	}
	return datastore.DecodeDocuments[V](m.codec, m.documents())
}

func (m *Backend[V]) Upsert(_ context.Context, key string, value V) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpUpsert); err != nil {
		return err
	}
	doc, err := codec.ToDocument(m.codec, value)
	if err != nil {
		return errors.NewValidationError("value", err.Error())
	}
	m.data[key] = doc
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (m *Backend[V]) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpDelete); err != nil {
		return err
	}
	delete(m.data, key)
	return nil
}

func (m *Backend[V]) Truncate(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpTruncate); err != nil {
		return err
	}
	m.data = make(map[string]datastore.Document)
	return nil
}

func (m *Backend[V]) RenameFields(_ context.Context, renames map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpRenameFields); err != nil {
		return err
	}
	for _, doc := range m.data {
		datastore.RenameDocument(doc, renames)
	}
	return nil
}

func (m *Backend[V]) Close(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpClose); err != nil {
		return err
	}
	m.closed = true
	return nil
}

// Helper methods for testing

// Put stores value under key without counting a call.
func (m *Backend[V]) Put(key string, value V) error {
	doc, err := codec.ToDocument(m.codec, value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[key] = doc
	m.mu.Unlock()
	return nil
}

// Document returns a copy of the document stored under key.
func (m *Backend[V]) Document(key string) (datastore.Document, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.data[key]
	if !ok {
		return nil, false
	}
	cp := make(datastore.Document, len(doc))
	for k, v := range doc {
		cp[k] = v
	}
	return cp, true
}

// Keys returns the stored keys in order.
func (m *Backend[V]) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedKeys()
}

// Count returns the number of stored entities.
func (m *Backend[V]) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Clear removes all data without counting a call.
func (m *Backend[V]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]datastore.Document)
}

func (m *Backend[V]) sortedKeys() []string {
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *Backend[V]) documents() []datastore.Document {
	keys := m.sortedKeys()
	docs := make([]datastore.Document, 0, len(keys))
	for _, k := range keys {
		docs = append(docs, m.data[k])
	}
	return docs
}
