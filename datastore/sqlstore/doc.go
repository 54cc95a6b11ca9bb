// Package sqlstore stores entities in a relational table of JSON documents.
//
// Each table has two columns: the canonical identifier text and a data column
// holding the entity's JSON encoding. Filters are translated into parameterized
// SQL over the SQLite JSON1 functions, so attribute paths never reach the query
// text unescaped.
//
// Example:
//
//	backend, err := sqlstore.Open[Person](ctx, "people.db", datastore.Schema{
//		Table:   "people",
//		IDField: "id",
//	})
//	if err != nil {
//		return err
//	}
//	store, err := datastore.New(ctx, PersonDescriptor, backend)
package sqlstore
