/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mongostore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/suparena/fieldstore/filter"
)

func TestTranslate(t *testing.T) {
	when := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		p    filter.Predicate
		want bson.M
	}{
		{"equals", filter.Where("name", filter.Equals, "Mike"),
			bson.M{"name": bson.M{"$eq": "Mike"}}},
		{"not equals excludes null", filter.Where("data.level", filter.NotEquals, 18),
			bson.M{"data.level": bson.M{"$nin": bson.A{nil, float64(18)}}}},
		{"contains escapes", filter.Where("name", filter.Contains, "a.b"),
			bson.M{"name": bson.M{"$regex": primitive.Regex{Pattern: `a\.b`}}}},
		{"starts with", filter.Where("name", filter.StartsWith, "Mi"),
			bson.M{"name": bson.M{"$regex": primitive.Regex{Pattern: "^Mi"}}}},
		{"not ends with", filter.Where("data.address", filter.NotEndsWith, "Street"),
			bson.M{"data.address": bson.M{"$ne": nil, "$not": primitive.Regex{Pattern: "Street$"}}}},
		{"greater than", filter.Where("age", filter.GreaterThan, 30),
			bson.M{"age": bson.M{"$gt": float64(30)}}},
		{"time narrows to text", filter.Where("createdAt", filter.LessThanOrEqual, when),
			bson.M{"createdAt": bson.M{"$type": "string"}}},
		{"negated time narrows to present", filter.Where("createdAt", filter.NotEquals, when),
			bson.M{"createdAt": bson.M{"$ne": nil}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := translate(tt.p)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTranslateRejectsUnknownOperator(t *testing.T) {
	_, err := translate(filter.Where("name", filter.Operator(42), "x"))
	assert.Error(t, err)
}
