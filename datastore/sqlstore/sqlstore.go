/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/suparena/fieldstore/codec"
	"github.com/suparena/fieldstore/datastore"
	storeerrors "github.com/suparena/fieldstore/errors"
	"github.com/suparena/fieldstore/filter"
)

// Conn is the subset of *sql.DB the adapter needs.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
	Close() error
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store is a datastore.Backend over one SQL table.
type Store[V any] struct {
	conn    Conn
	table   string
	idCol   string
	codec   codec.Codec
	closeMu sync.RWMutex
	closed  bool
}

var (
	_ datastore.Backend[struct{}]       = (*Store[struct{}])(nil)
	_ datastore.KeyReader[struct{}]     = (*Store[struct{}])(nil)
	_ datastore.BatchUpserter[struct{}] = (*Store[struct{}])(nil)
	_ datastore.Resaver                 = (*Store[struct{}])(nil)
)

// Open opens the SQLite database at path and binds it to schema.
// The returned store owns the database handle.
func Open[V any](ctx context.Context, path string, schema datastore.Schema) (*Store[V], error) {
	if strings.TrimSpace(path) == "" {
		return nil, storeerrors.NewConfigurationError("path", "storage path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path)
	}
	dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// SQLite allows one writer; a single connection keeps writers queued in
	// the pool instead of failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	s, err := New[V](ctx, db, schema)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New binds an open connection to schema and creates the table if needed.
// The store takes ownership of conn and closes it on Close.
func New[V any](ctx context.Context, conn Conn, schema datastore.Schema) (*Store[V], error) {
	if conn == nil {
		return nil, storeerrors.NewConfigurationError("connection", "a database connection is required")
	}
	if !identifierPattern.MatchString(schema.Table) {
		return nil, storeerrors.NewConfigurationError("table", fmt.Sprintf("invalid table name %q", schema.Table))
	}
	idCol := schema.IDField
	if idCol == "" {
		idCol = "id"
	}
	if !identifierPattern.MatchString(idCol) || idCol == "data" {
		return nil, storeerrors.NewConfigurationError("idField", fmt.Sprintf("invalid identifier column %q", idCol))
	}
	c := schema.Codec
	if c == nil {
		c = codec.JSON
	}
	if c.Name() != codec.JSON.Name() {
		return nil, storeerrors.NewConfigurationError("codec", fmt.Sprintf("sql tables hold JSON documents, not %s", c.Name()))
	}

	s := &Store[V]{conn: conn, table: schema.Table, idCol: idCol, codec: c}
	if err := s.createTable(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store[V]) Name() string { return "sqlite" }

// ResaveOnWrite makes Write upsert every cached row again.
func (s *Store[V]) ResaveOnWrite() bool { return true }

func (s *Store[V]) createTable(ctx context.Context) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (%s TEXT PRIMARY KEY, data TEXT NOT NULL)`,
		quote(s.table), quote(s.idCol))
	if _, err := s.conn.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// Lookup reads one entity by primary key.
func (s *Store[V]) Lookup(ctx context.Context, key string) (*V, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	values, err := s.query(ctx,
		fmt.Sprintf(`SELECT data FROM %s WHERE %s = ?`, quote(s.table), quote(s.idCol)), key)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}
	return &values[0], nil
}

func (s *Store[V]) Query(ctx context.Context, p filter.Predicate) ([]V, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	where, args, err := translate(p)
	if err != nil {
		return nil, err
	}
	stmt := fmt.Sprintf(`SELECT data FROM %s WHERE %s`, quote(s.table), where)
	if _, class := p.Operand(); class == filter.Temporal {
		docs, err := s.queryDocuments(ctx, stmt+` ORDER BY rowid`, args...)
		if err != nil {
			return nil, err
		}
		return datastore.DecodeDocuments[V](s.codec, datastore.MatchDocuments(docs, p))
	}
	order, orderArgs := orderBy(p.Field, p.Sort)
	return s.query(ctx, stmt+order, append(args, orderArgs...)...)
}

func (s *Store[V]) Scan(ctx context.Context) ([]V, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return s.query(ctx, fmt.Sprintf(`SELECT data FROM %s ORDER BY rowid`, quote(s.table)))
}

func (s *Store[V]) query(ctx context.Context, stmt string, args ...any) ([]V, error) {
	rows, err := s.conn.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.table, err)
	}
	defer rows.Close()

	out := make([]V, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", s.table, err)
		}
		var v V
		if err := s.codec.Unmarshal([]byte(data), &v); err != nil {
			return nil, fmt.Errorf("decode %s row: %w", s.table, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s rows: %w", s.table, err)
	}
	return out, nil
}

func (s *Store[V]) queryDocuments(ctx context.Context, stmt string, args ...any) ([]datastore.Document, error) {
	rows, err := s.conn.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.table, err)
	}
	defer rows.Close()

	out := make([]datastore.Document, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", s.table, err)
		}
		var doc datastore.Document
		if err := s.codec.Unmarshal([]byte(data), &doc); err != nil {
			return nil, fmt.Errorf("decode %s row: %w", s.table, err)
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s rows: %w", s.table, err)
	}
	return out, nil
}

func (s *Store[V]) upsertStmt() string {
	return fmt.Sprintf(`INSERT INTO %[1]s (%[2]s, data) VALUES (?, ?)
		ON CONFLICT(%[2]s) DO UPDATE SET data = excluded.data`, quote(s.table), quote(s.idCol))
}

func (s *Store[V]) Upsert(ctx context.Context, key string, value V) error {
	if err := s.check(); err != nil {
		return err
	}
	data, err := s.codec.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if _, err := s.conn.ExecContext(ctx, s.upsertStmt(), key, string(data)); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

// UpsertAll writes values in one transaction.
func (s *Store[V]) UpsertAll(ctx context.Context, values map[string]V) (err error) {
	if err := s.check(); err != nil {
		return err
	}
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, s.upsertStmt())
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for key, value := range values {
		data, err := s.codec.Marshal(value)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		if _, err := stmt.ExecContext(ctx, key, string(data)); err != nil {
			return fmt.Errorf("upsert %s: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *Store[V]) Delete(ctx context.Context, key string) error {
	if err := s.check(); err != nil {
		return err
	}
	stmt := fmt.Sprintf(`DELETE FROM %s WHERE %s = ?`, quote(s.table), quote(s.idCol))
	if _, err := s.conn.ExecContext(ctx, stmt, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Truncate drops and re-creates the table.
func (s *Store[V]) Truncate(ctx context.Context) error {
	if err := s.check(); err != nil {
		return err
	}
	if _, err := s.conn.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, quote(s.table))); err != nil {
		return fmt.Errorf("drop table %s: %w", s.table, err)
	}
	return s.createTable(ctx)
}

// RenameFields moves each attribute with json_set/json_remove, in one
// transaction. Rows without the old attribute are left alone.
func (s *Store[V]) RenameFields(ctx context.Context, renames map[string]string) (err error) {
	if err := s.check(); err != nil {
		return err
	}
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt := fmt.Sprintf(`UPDATE %s
		SET data = json_remove(json_set(data, ?, data -> ?), ?)
		WHERE json_type(data, ?) IS NOT NULL`, quote(s.table))
	for _, old := range sortedKeys(renames) {
		from, to := jsonPath(old), jsonPath(renames[old])
		if _, err := tx.ExecContext(ctx, stmt, to, from, from, from); err != nil {
			return fmt.Errorf("rename %s to %s: %w", old, renames[old], err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Close closes the connection. Calling it again is a no-op.
func (s *Store[V]) Close(ctx context.Context) error {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}

// IsClosed reports whether Close has been called.
func (s *Store[V]) IsClosed() bool {
	s.closeMu.RLock()
	defer s.closeMu.RUnlock()
	return s.closed
}

func (s *Store[V]) check() error {
	if s.IsClosed() {
		return errors.New("sql connection closed")
	}
	return nil
}

func quote(ident string) string {
	return `"` + ident + `"`
}
