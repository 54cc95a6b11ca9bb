/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mongostore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/suparena/fieldstore/codec"
	"github.com/suparena/fieldstore/datastore"
	storeerrors "github.com/suparena/fieldstore/errors"
	"github.com/suparena/fieldstore/filter"
)

const idKey = "_id"

// Store is a datastore.Backend over one collection.
type Store[V any] struct {
	client *mongo.Client
	coll   *mongo.Collection
	codec  codec.Codec
}

var (
	_ datastore.Backend[struct{}]       = (*Store[struct{}])(nil)
	_ datastore.KeyReader[struct{}]     = (*Store[struct{}])(nil)
	_ datastore.BatchUpserter[struct{}] = (*Store[struct{}])(nil)
)

// Open connects to uri and binds the collection schema.Table of database.
// The store disconnects the client on Close.
func Open[V any](ctx context.Context, uri, database string, schema datastore.Schema) (*Store[V], error) {
	if uri == "" {
		return nil, storeerrors.NewConfigurationError("uri", "connection string is required")
	}
	if database == "" {
		return nil, storeerrors.NewConfigurationError("database", "database name is required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	s, err := New[V](client.Database(database), schema)
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	s.client = client
	return s, nil
}

// New binds a collection of db. The caller keeps ownership of the client.
func New[V any](db *mongo.Database, schema datastore.Schema) (*Store[V], error) {
	if db == nil {
		return nil, storeerrors.NewConfigurationError("database", "a database handle is required")
	}
	if schema.Table == "" {
		return nil, storeerrors.NewConfigurationError("table", "collection name is required")
	}
	c := schema.Codec
	if c == nil {
		c = codec.JSON
	}
	if c.Name() != codec.JSON.Name() {
		return nil, storeerrors.NewConfigurationError("codec", fmt.Sprintf("documents are built from JSON, not %s", c.Name()))
	}
	return &Store[V]{coll: db.Collection(schema.Table), codec: c}, nil
}

func (s *Store[V]) Name() string { return "mongodb" }

func (s *Store[V]) document(key string, value V) (bson.M, error) {
	doc, err := codec.ToDocument(s.codec, value)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", key, err)
	}
	doc[idKey] = key
	return bson.M(doc), nil
}

// toDocument converts a stored document to its relaxed extended JSON form,
// without the key.
func toDocument(raw bson.Raw) (datastore.Document, error) {
	data, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return nil, fmt.Errorf("convert document: %w", err)
	}
	var doc datastore.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("convert document: %w", err)
	}
	delete(doc, idKey)
	return doc, nil
}

// decode converts a stored document back into an entity.
func (s *Store[V]) decode(raw bson.Raw) (V, error) {
	var v V
	doc, err := toDocument(raw)
	if err != nil {
		return v, err
	}
	if err := codec.FromDocument(s.codec, doc, &v); err != nil {
		return v, fmt.Errorf("decode document: %w", err)
	}
	return v, nil
}

func (s *Store[V]) Lookup(ctx context.Context, key string) (*V, error) {
	raw, err := s.coll.FindOne(ctx, bson.M{idKey: key}).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", key, err)
	}
	v, err := s.decode(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *Store[V]) Query(ctx context.Context, p filter.Predicate) ([]V, error) {
	query, err := translate(p)
	if err != nil {
		return nil, err
	}
	if _, class := p.Operand(); class == filter.Temporal {
		return s.findMatching(ctx, query, p)
	}
	opts := options.Find()
	switch p.Sort {
	case filter.Ascending:
		opts.SetSort(bson.D{{Key: p.Field, Value: 1}, {Key: idKey, Value: 1}})
	case filter.Descending:
		opts.SetSort(bson.D{{Key: p.Field, Value: -1}, {Key: idKey, Value: 1}})
	}
	return s.find(ctx, query, opts)
}

func (s *Store[V]) Scan(ctx context.Context) ([]V, error) {
	return s.find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: idKey, Value: 1}}))
}

func (s *Store[V]) find(ctx context.Context, query bson.M, opts *options.FindOptions) ([]V, error) {
	cur, err := s.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}
	defer cur.Close(ctx)

	out := make([]V, 0)
	for cur.Next(ctx) {
		v, err := s.decode(cur.Current)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate cursor: %w", err)
	}
	return out, nil
}

// findMatching re-checks the narrowed documents of query against p and sorts
// them in-process.
func (s *Store[V]) findMatching(ctx context.Context, query bson.M, p filter.Predicate) ([]V, error) {
	cur, err := s.coll.Find(ctx, query, options.Find().SetSort(bson.D{{Key: idKey, Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}
	defer cur.Close(ctx)

	docs := make([]datastore.Document, 0)
	for cur.Next(ctx) {
		doc, err := toDocument(cur.Current)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate cursor: %w", err)
	}
	return datastore.DecodeDocuments[V](s.codec, datastore.MatchDocuments(docs, p))
}

func (s *Store[V]) Upsert(ctx context.Context, key string, value V) error {
	doc, err := s.document(key, value)
	if err != nil {
		return err
	}
	_, err = s.coll.ReplaceOne(ctx, bson.M{idKey: key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("replace %s: %w", key, err)
	}
	return nil
}

// UpsertAll replaces every value in one unordered bulk write.
func (s *Store[V]) UpsertAll(ctx context.Context, values map[string]V) error {
	if len(values) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(values))
	for key, value := range values {
		doc, err := s.document(key, value)
		if err != nil {
			return err
		}
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{idKey: key}).
			SetReplacement(doc).
			SetUpsert(true))
	}
	if _, err := s.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("bulk write: %w", err)
	}
	return nil
}

func (s *Store[V]) Delete(ctx context.Context, key string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{idKey: key}); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *Store[V]) Truncate(ctx context.Context) error {
	if _, err := s.coll.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("delete all: %w", err)
	}
	return nil
}

// RenameFields applies $rename once per attribute, in a stable order.
func (s *Store[V]) RenameFields(ctx context.Context, renames map[string]string) error {
	olds := make([]string, 0, len(renames))
	for old := range renames {
		olds = append(olds, old)
	}
	sort.Strings(olds)

	for _, old := range olds {
		_, err := s.coll.UpdateMany(ctx,
			bson.M{old: bson.M{"$exists": true}},
			bson.M{"$rename": bson.M{old: renames[old]}})
		if err != nil {
			return fmt.Errorf("rename %s to %s: %w", old, renames[old], err)
		}
	}
	return nil
}

// Close disconnects a client the store opened itself.
func (s *Store[V]) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}
