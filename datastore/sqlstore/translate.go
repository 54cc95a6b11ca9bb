/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package sqlstore

import (
	"fmt"
	"sort"
	"strings"

	"github.com/suparena/fieldstore/filter"
)

// jsonPath converts a dotted attribute path into a quoted SQLite JSON path.
func jsonPath(field string) string {
	parts := strings.Split(field, ".")
	return `$."` + strings.Join(parts, `"."`) + `"`
}

// typeGuard restricts a comparison to stored values of the operand's kind.
func typeGuard(class filter.Class) (string, error) {
	switch class {
	case filter.Text:
		return `json_type(data, ?) = 'text'`, nil
	case filter.Number:
		return `json_type(data, ?) IN ('integer', 'real')`, nil
	case filter.Bool:
		return `json_type(data, ?) IN ('true', 'false')`, nil
	}
	return "", fmt.Errorf("no SQL form for %s operands", class)
}

// translate renders a validated predicate as a WHERE clause and its arguments.
// A negated operator matches every present, non-null attribute its positive
// form rejects. Time operands only narrow the rows: stored times differ in
// precision and offset, so Query compares them in-process.
func translate(p filter.Predicate) (string, []any, error) {
	operand, class := p.Operand()
	path := jsonPath(p.Field)
	if class == filter.Temporal {
		if _, negated := p.Op.Base(); negated {
			return `json_type(data, ?) <> 'null'`, []any{path}, nil
		}
		return `json_type(data, ?) = 'text'`, []any{path}, nil
	}
	if b, ok := operand.(bool); ok {
		// json_extract reports JSON booleans as 1 and 0.
		operand = 0
		if b {
			operand = 1
		}
	}

	guard, err := typeGuard(class)
	if err != nil {
		return "", nil, err
	}
	args := []any{path}

	const x = `json_extract(data, ?)`
	var cmp string
	base, negated := p.Op.Base()
	switch base {
	case filter.Equals:
		cmp = x + ` = ?`
		args = append(args, path, operand)
	case filter.Contains:
		cmp = `instr(` + x + `, ?) > 0`
		args = append(args, path, operand)
	case filter.StartsWith:
		cmp = `instr(` + x + `, ?) = 1`
		args = append(args, path, operand)
	case filter.EndsWith:
		cmp = `(length(?) = 0 OR substr(` + x + `, -length(?)) = ?)`
		args = append(args, operand, path, operand, operand)
	case filter.GreaterThan:
		cmp = x + ` > ?`
		args = append(args, path, operand)
	case filter.GreaterThanOrEqual:
		cmp = x + ` >= ?`
		args = append(args, path, operand)
	case filter.LessThan:
		cmp = x + ` < ?`
		args = append(args, path, operand)
	case filter.LessThanOrEqual:
		cmp = x + ` <= ?`
		args = append(args, path, operand)
	default:
		return "", nil, fmt.Errorf("no SQL form for operator %s", p.Op)
	}

	clause := guard + ` AND ` + cmp
	if negated {
		return `json_type(data, ?) <> 'null' AND NOT (` + clause + `)`, append([]any{path}, args...), nil
	}
	return clause, args, nil
}

// kindOrder ranks stored values by JSON type before their values are
// compared: numbers, text, objects and arrays, then booleans.
const kindOrder = `CASE json_type(data, ?) WHEN 'integer' THEN 1 WHEN 'real' THEN 1 ` +
	`WHEN 'text' THEN 2 WHEN 'object' THEN 4 WHEN 'array' THEN 4 ` +
	`WHEN 'true' THEN 5 WHEN 'false' THEN 5 ELSE 0 END`

// orderBy renders the ORDER BY clause for s and its arguments. Rows of equal
// rank and value keep insertion order.
func orderBy(field string, s filter.Sort) (string, []any) {
	path := jsonPath(field)
	switch s {
	case filter.Ascending:
		return ` ORDER BY ` + kindOrder + ` ASC, json_extract(data, ?) ASC, rowid`, []any{path, path}
	case filter.Descending:
		return ` ORDER BY ` + kindOrder + ` DESC, json_extract(data, ?) DESC, rowid`, []any{path, path}
	}
	return ` ORDER BY rowid`, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
