/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"

	"github.com/suparena/fieldstore/datastore"
	"github.com/suparena/fieldstore/filter"
)

// Query scans the entity type with p translated into a filter expression.
// Items are re-checked in-process, which also covers the operators DynamoDB
// cannot express, and sorted there: Scan has no ordering.
func (d *Store[V]) Query(ctx context.Context, p filter.Predicate) ([]V, error) {
	docs, err := d.scanDocuments(ctx, d.scope().And(condition(p)))
	if err != nil {
		return nil, err
	}
	return datastore.DecodeDocuments[V](d.codec, datastore.MatchDocuments(docs, p))
}

// Scan returns every item of the entity type.
func (d *Store[V]) Scan(ctx context.Context) ([]V, error) {
	docs, err := d.scanDocuments(ctx, d.scope())
	if err != nil {
		return nil, err
	}
	return datastore.DecodeDocuments[V](d.codec, docs)
}

// condition translates a validated predicate. Operators without a native form
// (ENDS_WITH, text operators with an empty operand, and time operands, whose
// stored text varies in precision and offset) narrow the scan and leave the
// rest to the in-process check.
func condition(p filter.Predicate) expression.ConditionBuilder {
	name := expression.Name(p.Field)
	present := expression.AttributeExists(name).
		And(expression.Not(expression.AttributeType(name, expression.Null)))

	operand, class := p.Operand()
	base, negated := p.Op.Base()
	text, _ := operand.(string)
	isText := expression.AttributeType(name, expression.String)

	if class == filter.Temporal {
		if negated {
			return present
		}
		return isText
	}

	var positive expression.ConditionBuilder
	switch base {
	case filter.Equals:
		positive = name.Equal(expression.Value(operand))
	case filter.Contains:
		if text == "" {
			return present
		}
		positive = isText.And(name.Contains(text))
	case filter.StartsWith:
		if text == "" {
			return present
		}
		positive = isText.And(name.BeginsWith(text))
	case filter.GreaterThan:
		positive = name.GreaterThan(expression.Value(operand))
	case filter.GreaterThanOrEqual:
		positive = name.GreaterThanEqual(expression.Value(operand))
	case filter.LessThan:
		positive = name.LessThan(expression.Value(operand))
	case filter.LessThanOrEqual:
		positive = name.LessThanEqual(expression.Value(operand))
	default:
		return present
	}

	if negated {
		return present.And(expression.Not(positive))
	}
	return positive
}
