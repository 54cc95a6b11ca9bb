// Package kvstore stores entities as JSON values in a Valkey (or Redis) hash.
//
// Each table is one hash named <prefix><table>; hash fields are entity keys.
// Key lookups, upserts and deletes are single commands. The key-value model
// has no secondary indexes, so filters read the whole hash and are evaluated
// in-process with the same semantics every other backend honours.
package kvstore
