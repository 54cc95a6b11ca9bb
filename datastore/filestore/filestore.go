/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package filestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/suparena/fieldstore/codec"
	"github.com/suparena/fieldstore/datastore"
	storeerrors "github.com/suparena/fieldstore/errors"
	"github.com/suparena/fieldstore/filter"
)

var tablePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

type options struct {
	compressor codec.Compressor
}

// Option configures how the file is written.
type Option func(*options)

// WithCompressor compresses the file, e.g. with codec.Zstd(2).
func WithCompressor(c codec.Compressor) Option {
	return func(o *options) {
		o.compressor = c
	}
}

// Store is a datastore.SnapshotBackend over one file.
type Store[V any] struct {
	mu      sync.Mutex
	path    string
	idField string
	codec   codec.Codec
	closed  bool
}

var _ datastore.SnapshotBackend[struct{}] = (*Store[struct{}])(nil)

// Open binds the file <dir>/<table>.<format> to schema, creating dir if needed.
// The file itself is created on the first write.
func Open[V any](dir string, schema datastore.Schema, opts ...Option) (*Store[V], error) {
	if dir == "" {
		return nil, storeerrors.NewConfigurationError("dir", "storage directory is required")
	}
	if !tablePattern.MatchString(schema.Table) {
		return nil, storeerrors.NewConfigurationError("table", fmt.Sprintf("invalid file name %q", schema.Table))
	}
	if schema.IDField == "" {
		return nil, storeerrors.NewConfigurationError("idField", "identifier attribute is required")
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	c := schema.Codec
	if c == nil {
		c = codec.JSON
	}
	c = codec.Compressed(c, o.compressor)

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	return &Store[V]{
		path:    filepath.Join(dir, schema.Table+"."+c.Name()),
		idField: schema.IDField,
		codec:   c,
	}, nil
}

func (s *Store[V]) Name() string { return "file" }

// Path returns the file the store reads and writes.
func (s *Store[V]) Path() string { return s.path }

// Load reads every entity from the file. A missing file is an empty table.
func (s *Store[V]) Load(ctx context.Context) ([]V, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return nil, err
	}
	values := make([]V, 0)
	if err := s.read(&values); err != nil {
		return nil, err
	}
	return values, nil
}

// Replace rewrites the file with values.
func (s *Store[V]) Replace(ctx context.Context, values []V) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return err
	}
	if values == nil {
		values = []V{}
	}
	return s.write(values)
}

func (s *Store[V]) Query(ctx context.Context, p filter.Predicate) ([]V, error) {
	docs, err := s.documents()
	if err != nil {
		return nil, err
	}
	return datastore.DecodeDocuments[V](codec.JSON, datastore.MatchDocuments(docs, p))
}

func (s *Store[V]) Scan(ctx context.Context) ([]V, error) {
	return s.Load(ctx)
}

func (s *Store[V]) Upsert(ctx context.Context, key string, value V) error {
	doc, err := codec.ToDocument(codec.JSON, value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.update(func(docs []datastore.Document) []datastore.Document {
		for i, d := range docs {
			if s.keyOf(d) == key {
				docs[i] = doc
				return docs
			}
		}
		return append(docs, doc)
	})
}

func (s *Store[V]) Delete(ctx context.Context, key string) error {
	return s.update(func(docs []datastore.Document) []datastore.Document {
		out := docs[:0]
		for _, d := range docs {
			if s.keyOf(d) != key {
				out = append(out, d)
			}
		}
		return out
	})
}

// Truncate leaves an empty array in the file.
func (s *Store[V]) Truncate(ctx context.Context) error {
	return s.update(func([]datastore.Document) []datastore.Document {
		return []datastore.Document{}
	})
}

func (s *Store[V]) RenameFields(ctx context.Context, renames map[string]string) error {
	return s.update(func(docs []datastore.Document) []datastore.Document {
		for _, d := range docs {
			datastore.RenameDocument(d, renames)
		}
		return docs
	})
}

// Close marks the store closed. The file is left as last written.
func (s *Store[V]) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store[V]) documents() ([]datastore.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return nil, err
	}
	var docs []datastore.Document
	if err := s.read(&docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *Store[V]) update(fn func([]datastore.Document) []datastore.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return err
	}
	var docs []datastore.Document
	if err := s.read(&docs); err != nil {
		return err
	}
	docs = fn(docs)
	if docs == nil {
		docs = []datastore.Document{}
	}
	return s.write(docs)
}

func (s *Store[V]) keyOf(doc datastore.Document) string {
	v, ok := filter.Lookup(doc, s.idField)
	if !ok || v == nil {
		return ""
	}
	if str, ok := v.(string); ok {
		return str
	}
	return fmt.Sprint(v)
}

func (s *Store[V]) read(into any) error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := s.codec.Unmarshal(data, into); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(s.path), err)
	}
	return nil
}

func (s *Store[V]) write(v any) error {
	data, err := s.codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(s.path), err)
	}

	// Write to temp file first, then rename for atomicity
	tmp := s.path + ".tmp"
	if err := writeSynced(tmp, data); err != nil {
		_ = os.Remove(tmp) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		rmErr := os.Remove(tmp)
		return errors.Join(fmt.Errorf("rename file: %w", err), rmErr)
	}
	return nil
}

func writeSynced(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (s *Store[V]) check() error {
	if s.closed {
		return errors.New("file store closed")
	}
	return nil
}
