// Package filestore keeps every entity of a table in one structured file.
//
// The file holds a single array of documents encoded with the schema codec
// (JSON by default, or YAML), optionally compressed. It is a snapshot backend:
// the storage cache is the authoritative copy, loaded once when the storage is
// built and written back wholesale on Write and Close. Each rewrite goes to a
// temporary file that is renamed over the previous one.
package filestore
