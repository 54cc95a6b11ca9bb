/*
Package datastore defines the storage contract of fieldstore and the generic
store that implements it over pluggable backends.

Storage[K, V] is the asynchronous contract callers use:

	type Storage[K comparable, V any] interface {
	    Get(ctx context.Context, key K) *async.Future[*V]
	    Find(ctx context.Context, field string, value any, op filter.Operator, sort filter.Sort) *async.Future[[]V]
	    Save(ctx context.Context, value V) *async.Future[struct{}]
	    Remove(ctx context.Context, value V) *async.Future[struct{}]
	    ...
	}

Store[K, V] implements it once for every backend. It owns the read/write cache
and applies the coherency rules:
  - point reads are answered from the cache when possible
  - every entity returned by Find is cached under its own identifier;
    AllValues leaves the cache alone
  - Save and Remove update the cache before the backend write is queued
  - DeleteAll and field renames invalidate the whole cache

Operations never wait for queue room: when the worker queue is full the
returned future fails with async.ErrQueueFull.

Write hands the cache to write-deferred backends, re-saves it on backends
implementing Resaver (sqlstore), and does nothing on the others.

Adapters implement the synchronous Backend[V] interface:
  - sqlstore: SQLite through database/sql, JSON document column
  - mongostore: MongoDB collection keyed by _id
  - ddb: DynamoDB table keyed by PK
  - kvstore: Valkey/Redis hash of JSON documents
  - filestore: one JSON or YAML file, the cache is authoritative
  - mock: in-memory backend for tests
*/
package datastore
