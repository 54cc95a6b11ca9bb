/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mongostore

import (
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/suparena/fieldstore/filter"
)

// translate renders a validated predicate as a query document. Comparison
// operators only match values of the operand's BSON type bracket, and regexes
// only match strings; negated operators add `$ne: null` so missing and null
// attributes never match.
func translate(p filter.Predicate) (bson.M, error) {
	operand, class := p.Operand()
	if class == filter.Temporal {
		return narrowTemporal(p), nil
	}

	var cond bson.M
	switch p.Op {
	case filter.Equals:
		cond = bson.M{"$eq": operand}
	case filter.NotEquals:
		cond = bson.M{"$nin": bson.A{nil, operand}}
	case filter.Contains, filter.NotContains,
		filter.StartsWith, filter.NotStartsWith,
		filter.EndsWith, filter.NotEndsWith:
		text, ok := operand.(string)
		if !ok {
			return nil, fmt.Errorf("operator %s needs a text operand", p.Op)
		}
		cond = regexCondition(p.Op, text)
	case filter.GreaterThan:
		cond = bson.M{"$gt": operand}
	case filter.GreaterThanOrEqual:
		cond = bson.M{"$gte": operand}
	case filter.LessThan:
		cond = bson.M{"$lt": operand}
	case filter.LessThanOrEqual:
		cond = bson.M{"$lte": operand}
	default:
		return nil, fmt.Errorf("no query form for operator %s", p.Op)
	}
	return bson.M{p.Field: cond}, nil
}

func regexCondition(op filter.Operator, text string) bson.M {
	base, negated := op.Base()
	pattern := regexp.QuoteMeta(text)
	switch base {
	case filter.StartsWith:
		pattern = "^" + pattern
	case filter.EndsWith:
		pattern = pattern + "$"
	}
	if negated {
		return bson.M{"$ne": nil, "$not": primitive.Regex{Pattern: pattern}}
	}
	return bson.M{"$regex": primitive.Regex{Pattern: pattern}}
}

// narrowTemporal selects the documents a time predicate could match. Stored
// times are RFC 3339 text of any precision and offset, so Query compares the
// instants in-process.
func narrowTemporal(p filter.Predicate) bson.M {
	if _, negated := p.Op.Base(); negated {
		return bson.M{p.Field: bson.M{"$ne": nil}}
	}
	return bson.M{p.Field: bson.M{"$type": "string"}}
}
