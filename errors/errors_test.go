/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypedErrors(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	tests := []struct {
		name     string
		err      error
		message  string
		sentinel error
		is       func(error) bool
	}{
		{"not found", NewNotFoundError("people", "42"),
			`people with key "42" not found`, ErrNotFound, IsNotFound},
		{"validation with field", NewValidationError("field", "bad path"),
			`validation failed for field "field": bad path`, ErrInvalidInput, IsValidationError},
		{"validation without field", NewValidationError("", "bad path"),
			"validation failed: bad path", ErrInvalidInput, IsValidationError},
		{"identifier", NewIdentifierError("Person", "identifier is empty"),
			"identifier of Person: identifier is empty", ErrIdentifierNotFound, IsIdentifierError},
		{"operator", NewOperatorError("CONTAINS", 42),
			"operator CONTAINS is not applicable to int", ErrInapplicableOperator, IsInapplicableOperator},
		{"backend", NewBackendError("sqlite", "upsert", cause),
			"sqlite upsert: connection reset", ErrBackend, IsBackendError},
		{"configuration", NewConfigurationError("region", "AWS region is required"),
			`configuration "region": AWS region is required`, ErrConfiguration, IsConfigurationError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.message, tt.err.Error())
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.True(t, tt.is(tt.err))
			assert.True(t, tt.is(fmt.Errorf("wrapped: %w", tt.err)), "matching survives wrapping")
			assert.True(t, tt.is(errors.Join(errors.New("other"), tt.err)), "matching survives joining")
		})
	}
}

func TestBackendErrorUnwraps(t *testing.T) {
	err := NewBackendError("mongodb", "find", ErrClosed)
	assert.True(t, IsClosed(err))
	assert.True(t, IsBackendError(err))

	var be *BackendError
	assert.True(t, errors.As(err, &be))
	assert.Equal(t, "mongodb", be.Backend)
	assert.Equal(t, "find", be.Operation)

	assert.NoError(t, NewBackendError("mongodb", "find", nil))
}

func TestSentinelsAreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound, ErrInvalidInput, ErrIdentifierNotFound, ErrInapplicableOperator,
		ErrClosed, ErrBackend, ErrConfiguration,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j {
				assert.NotErrorIs(t, a, b)
			}
		}
	}
	assert.False(t, IsNotFound(NewValidationError("", "x")))
}
