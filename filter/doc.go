// Package filter defines the field comparison algebra shared by every storage
// backend.
//
// An Operator is a closed enumeration backed by a function table: each entry
// declares which operand classes it accepts and how it matches a stored value.
// Negated operators reuse their positive form, so native translators only need
// to express six comparisons plus negation.
//
// Semantics every backend follows:
//   - a missing or null field never matches, negated operators included
//   - numbers compare numerically, text compares byte-wise and case-sensitively
//   - values of different kinds are neither equal nor ordered
//   - time operands compare through their RFC 3339 text form
//
// Apply evaluates a Predicate in-process for backends without a native query
// language.
package filter
