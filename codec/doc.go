// Package codec is the serialization collaborator of the storages.
//
// Documents are JSON: attribute names and transient fields (`json:"-"`) come
// from the json struct tags, and filter paths address those names. YAML and
// compressed variants exist for file-backed storages.
package codec
