// Package mongostore stores entities as MongoDB documents.
//
// Every document carries `_id` set to the canonical identifier text next to
// the entity's own attributes, and writes are replace-with-upsert on `_id`.
// Filters translate to native query operators; regex operands are escaped, and
// negated operators exclude missing and null attributes explicitly.
package mongostore
