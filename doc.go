/*
Package fieldstore provides cached, asynchronous key-value storage of Go
entities over interchangeable backends.

Every backend honours the same contract, datastore.Storage: get by key, find
by a field predicate with optional ordering, save, remove, rename fields and
delete everything. Operations return futures and run on a bounded worker
pool; a per-storage cache serves repeated reads.

Backends:
  - SQLite (modernc.org/sqlite), one JSON column per row
  - MongoDB, one document per entity
  - DynamoDB, single-table design with key templates
  - Valkey or Redis, one hash per table
  - JSON or YAML files, optionally compressed

Basic Usage:

	var PersonDescriptor = identity.MustNew[uuid.UUID, Person]("id",
	    func(p *Person) uuid.UUID { return p.ID }, identity.UUIDKey)

	creds, err := storagemodels.LoadCredentials("storage.yaml")
	people, err := fieldstore.Open(ctx, creds, "people", PersonDescriptor)

	_, err = people.Save(ctx, mike).Await(ctx)
	adults, err := people.Find(ctx, "age", 18, filter.GreaterThanOrEqual, filter.Descending).Await(ctx)

Storages of many types can be kept together:

	mts := fieldstore.NewMultiTypeStorage()
	fieldstore.RegisterStorage(mts, "people", people)
	defer mts.Close(ctx)
*/
package fieldstore
