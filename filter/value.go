/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package filter

import (
	"encoding"
	"encoding/json"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-openapi/strfmt"
)

// Class is the kind of value an operand or stored field holds after
// normalization.
type Class int

const (
	Invalid Class = iota
	Text
	Number
	Bool
	// Temporal operands compare as instants against stored RFC 3339 text.
	Temporal
)

func (c Class) String() string {
	switch c {
	case Text:
		return "text"
	case Number:
		return "number"
	case Bool:
		return "bool"
	case Temporal:
		return "temporal"
	default:
		return "invalid"
	}
}

// Normalize converts v to the representation backends compare against:
// string, float64, bool or a UTC time.Time. Text marshalers (UUIDs, strfmt
// types) become their text form. Anything else, including nil, maps and
// slices, is Invalid.
func Normalize(v any) (any, Class) {
	switch x := v.(type) {
	case nil:
		return nil, Invalid
	case string:
		return x, Text
	case bool:
		return x, Bool
	case float64:
		return x, Number
	case float32:
		return float64(x), Number
	case int:
		return float64(x), Number
	case int8:
		return float64(x), Number
	case int16:
		return float64(x), Number
	case int32:
		return float64(x), Number
	case int64:
		return float64(x), Number
	case uint:
		return float64(x), Number
	case uint8:
		return float64(x), Number
	case uint16:
		return float64(x), Number
	case uint32:
		return float64(x), Number
	case uint64:
		return float64(x), Number
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return nil, Invalid
		}
		return f, Number
	case time.Time:
		return x.UTC(), Temporal
	case *time.Time:
		if x == nil {
			return nil, Invalid
		}
		return x.UTC(), Temporal
	case strfmt.DateTime:
		return time.Time(x).UTC(), Temporal
	case encoding.TextMarshaler:
		text, err := x.MarshalText()
		if err != nil {
			return nil, Invalid
		}
		return string(text), Text
	}

	// Named scalar types such as `type Handle string`.
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), Text
	case reflect.Bool:
		return rv.Bool(), Bool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), Number
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), Number
	case reflect.Float32, reflect.Float64:
		return rv.Float(), Number
	case reflect.Pointer:
		if rv.IsNil() {
			return nil, Invalid
		}
		return Normalize(rv.Elem().Interface())
	}
	return nil, Invalid
}

// instant reads a normalized value as a point in time. Stored times are RFC
// 3339 text with any precision and offset.
func instant(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		t, err := time.Parse(time.RFC3339Nano, x)
		return t, err == nil
	}
	return time.Time{}, false
}

// compare orders two normalized values of the same kind. A time orders
// against text that parses as RFC 3339.
func compare(a, b any) (int, bool) {
	if _, ok := b.(time.Time); ok {
		x, ok := instant(a)
		if !ok {
			return 0, false
		}
		return x.Compare(b.(time.Time)), true
	}
	switch x := a.(type) {
	case time.Time:
		y, ok := instant(b)
		if !ok {
			return 0, false
		}
		return x.Compare(y), true
	case float64:
		y, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case bool:
		y, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case x == y:
			return 0, true
		case !x:
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

func equal(a, b any) bool {
	c, ok := compare(a, b)
	return ok && c == 0
}

var pathPattern = regexp.MustCompile(`^[A-Za-z0-9_]+(\.[A-Za-z0-9_]+)*$`)

// ValidPath reports whether path is a dot-separated attribute path that is safe
// to embed in a native query.
func ValidPath(path string) bool {
	return pathPattern.MatchString(path)
}

// Lookup resolves a dot-separated path inside a decoded document.
// The second result is false when any segment is missing or not an object.
func Lookup(doc map[string]any, path string) (any, bool) {
	var cur any = doc
	for _, seg := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Rename moves the value at path from to path to inside doc, creating
// intermediate objects as needed. It reports whether doc changed.
func Rename(doc map[string]any, from, to string) bool {
	fromSegs := strings.Split(from, ".")
	parent := doc
	for _, seg := range fromSegs[:len(fromSegs)-1] {
		next, ok := parent[seg].(map[string]any)
		if !ok {
			return false
		}
		parent = next
	}
	last := fromSegs[len(fromSegs)-1]
	value, ok := parent[last]
	if !ok {
		return false
	}
	delete(parent, last)

	toSegs := strings.Split(to, ".")
	parent = doc
	for _, seg := range toSegs[:len(toSegs)-1] {
		next, ok := parent[seg].(map[string]any)
		if !ok {
			next = make(map[string]any)
			parent[seg] = next
		}
		parent = next
	}
	parent[toSegs[len(toSegs)-1]] = value
	return true
}
