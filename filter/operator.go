/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package filter

import (
	"fmt"
	"strings"
)

// Operator is a field comparison understood by every backend.
type Operator int

const (
	Equals Operator = iota
	NotEquals
	Contains
	NotContains
	StartsWith
	NotStartsWith
	EndsWith
	NotEndsWith
	GreaterThan
	GreaterThanOrEqual
	LessThan
	LessThanOrEqual
)

// operatorDef is one row of the operator table. Negated operators point at
// their positive form and reuse its applicability and match function.
type operatorDef struct {
	name    string
	base    Operator
	negated bool
	accepts func(Class) bool
	match   func(field, operand any) bool
}

func acceptsScalar(c Class) bool   { return c != Invalid }
func acceptsText(c Class) bool     { return c == Text }
func acceptsOrdered(c Class) bool  { return c == Number || c == Temporal }
func stringsOnly(f func(s, sub string) bool) func(field, operand any) bool {
	return func(field, operand any) bool {
		s, ok := field.(string)
		if !ok {
			return false
		}
		sub, ok := operand.(string)
		return ok && f(s, sub)
	}
}

func ordered(accept func(int) bool) func(field, operand any) bool {
	return func(field, operand any) bool {
		c, ok := compare(field, operand)
		return ok && accept(c)
	}
}

var operators = [...]operatorDef{
	Equals:             {name: "EQUALS", base: Equals, accepts: acceptsScalar, match: equal},
	NotEquals:          {name: "NOT_EQUALS", base: Equals, negated: true},
	Contains:           {name: "CONTAINS", base: Contains, accepts: acceptsText, match: stringsOnly(strings.Contains)},
	NotContains:        {name: "NOT_CONTAINS", base: Contains, negated: true},
	StartsWith:         {name: "STARTS_WITH", base: StartsWith, accepts: acceptsText, match: stringsOnly(strings.HasPrefix)},
	NotStartsWith:      {name: "NOT_STARTS_WITH", base: StartsWith, negated: true},
	EndsWith:           {name: "ENDS_WITH", base: EndsWith, accepts: acceptsText, match: stringsOnly(strings.HasSuffix)},
	NotEndsWith:        {name: "NOT_ENDS_WITH", base: EndsWith, negated: true},
	GreaterThan:        {name: "GREATER_THAN", base: GreaterThan, accepts: acceptsOrdered, match: ordered(func(c int) bool { return c > 0 })},
	GreaterThanOrEqual: {name: "GREATER_THAN_OR_EQUAL", base: GreaterThanOrEqual, accepts: acceptsOrdered, match: ordered(func(c int) bool { return c >= 0 })},
	LessThan:           {name: "LESS_THAN", base: LessThan, accepts: acceptsOrdered, match: ordered(func(c int) bool { return c < 0 })},
	LessThanOrEqual:    {name: "LESS_THAN_OR_EQUAL", base: LessThanOrEqual, accepts: acceptsOrdered, match: ordered(func(c int) bool { return c <= 0 })},
}

// Operators lists every operator in declaration order.
func Operators() []Operator {
	ops := make([]Operator, len(operators))
	for i := range operators {
		ops[i] = Operator(i)
	}
	return ops
}

// Valid reports whether op is a declared operator.
func (op Operator) Valid() bool {
	return op >= 0 && int(op) < len(operators)
}

func (op Operator) String() string {
	if !op.Valid() {
		return fmt.Sprintf("Operator(%d)", int(op))
	}
	return operators[op].name
}

// Base returns the positive form of op and whether op negates it.
// NOT_CONTAINS yields (CONTAINS, true); GREATER_THAN yields (GREATER_THAN, false).
func (op Operator) Base() (Operator, bool) {
	def := operators[op]
	return def.base, def.negated
}

// IsApplicable reports whether op accepts operand's runtime type.
func (op Operator) IsApplicable(operand any) bool {
	if !op.Valid() {
		return false
	}
	_, class := Normalize(operand)
	base := operators[operators[op].base]
	return base.accepts(class)
}

// Evaluate applies op to a stored field value. present is false when the
// field is missing; a missing or null field never matches, negated or not.
// operand must already be normalized.
func (op Operator) Evaluate(field any, present bool, operand any) bool {
	if !present || field == nil {
		return false
	}
	field, _ = Normalize(field)
	base, negated := op.Base()
	matched := operators[base].match(field, operand)
	if negated {
		return !matched
	}
	return matched
}

// ParseOperator resolves an operator by its name, e.g. "GREATER_THAN".
func ParseOperator(name string) (Operator, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for i, def := range operators {
		if def.name == name {
			return Operator(i), nil
		}
	}
	return 0, fmt.Errorf("unknown filter operator %q", name)
}

// Sort orders filtered results by the filtered field.
type Sort int

const (
	None Sort = iota
	Ascending
	Descending
)

func (s Sort) String() string {
	switch s {
	case None:
		return "NONE"
	case Ascending:
		return "ASCENDING"
	case Descending:
		return "DESCENDING"
	default:
		return fmt.Sprintf("Sort(%d)", int(s))
	}
}

// ParseSort resolves a sort directive by name. An empty name means None.
func ParseSort(name string) (Sort, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "NONE":
		return None, nil
	case "ASC", "ASCENDING":
		return Ascending, nil
	case "DESC", "DESCENDING":
		return Descending, nil
	default:
		return None, fmt.Errorf("unknown sort %q", name)
	}
}
