/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package filter

import (
	"sort"
	"time"

	"github.com/suparena/fieldstore/errors"
)

// Predicate is a single field comparison with an optional result ordering.
type Predicate struct {
	Field string
	Value any
	Op    Operator
	Sort  Sort
}

// Where builds an unsorted predicate.
func Where(field string, op Operator, value any) Predicate {
	return Predicate{Field: field, Value: value, Op: op}
}

// Sorted returns a copy of p ordered by s.
func (p Predicate) Sorted(s Sort) Predicate {
	p.Sort = s
	return p
}

// Validate checks the field path and operator. An operand the operator does
// not accept yields an OperatorError.
func (p Predicate) Validate() error {
	if !ValidPath(p.Field) {
		return errors.NewValidationError("field", "invalid attribute path "+p.Field)
	}
	if !p.Op.Valid() {
		return errors.NewValidationError("operator", p.Op.String())
	}
	if !p.Op.IsApplicable(p.Value) {
		return errors.NewOperatorError(p.Op.String(), p.Value)
	}
	switch p.Sort {
	case None, Ascending, Descending:
	default:
		return errors.NewValidationError("sort", p.Sort.String())
	}
	return nil
}

// Operand returns the normalized operand and its class.
func (p Predicate) Operand() (any, Class) {
	return Normalize(p.Value)
}

// Match evaluates p against a stored field value.
func (p Predicate) Match(field any, present bool) bool {
	operand, _ := p.Operand()
	return p.Op.Evaluate(field, present, operand)
}

// FieldFunc reads the predicate's field from an entity.
type FieldFunc[V any] func(V) (any, bool)

// Apply filters values in-process and orders the matches per p.Sort.
// The input slice is not modified.
func Apply[V any](values []V, p Predicate, field FieldFunc[V]) []V {
	operand, class := p.Operand()
	out := make([]V, 0)
	keys := make([]any, 0)
	for _, v := range values {
		f, ok := field(v)
		if !p.Op.Evaluate(f, ok, operand) {
			continue
		}
		out = append(out, v)
		keys = append(keys, sortKey(f, ok, class == Temporal))
	}
	if p.Sort != None {
		sortByKeys(out, keys, p.Sort)
	}
	return out
}

// SortValues orders values by the field read through field.
func SortValues[V any](values []V, s Sort, field FieldFunc[V]) {
	if s == None {
		return
	}
	keys := make([]any, len(values))
	for i, v := range values {
		f, ok := field(v)
		keys[i] = sortKey(f, ok, false)
	}
	sortByKeys(values, keys, s)
}

// composite stands in for object and array values, which sort as a group.
type composite struct{}

// sortKey normalizes a field value for ordering. Under a time operand, text
// that parses as RFC 3339 orders as an instant.
func sortKey(f any, present, temporal bool) any {
	if !present || f == nil {
		return nil
	}
	if temporal {
		if t, ok := instant(f); ok {
			return t
		}
	}
	k, class := Normalize(f)
	if class == Invalid {
		return composite{}
	}
	return k
}

// rank groups values of different kinds in the order document stores use:
// missing, numbers, text, times, objects and arrays, booleans.
func rank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case float64:
		return 1
	case string:
		return 2
	case time.Time:
		return 3
	case composite:
		return 4
	case bool:
		return 5
	}
	return 6
}

func less(a, b any) bool {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra < rb
	}
	c, ok := compare(a, b)
	return ok && c < 0
}

type keyed[V any] struct {
	values []V
	keys   []any
	desc   bool
}

func (k keyed[V]) Len() int { return len(k.values) }

func (k keyed[V]) Less(i, j int) bool {
	if k.desc {
		return less(k.keys[j], k.keys[i])
	}
	return less(k.keys[i], k.keys[j])
}

func (k keyed[V]) Swap(i, j int) {
	k.values[i], k.values[j] = k.values[j], k.values[i]
	k.keys[i], k.keys[j] = k.keys[j], k.keys[i]
}

func sortByKeys[V any](values []V, keys []any, s Sort) {
	sort.Stable(keyed[V]{values: values, keys: keys, desc: s == Descending})
}
