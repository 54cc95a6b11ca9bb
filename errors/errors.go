/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrNotFound is returned when an entity is not found
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrIdentifierNotFound is returned when an entity type has no identifier
	// attribute or an instance's identifier cannot be extracted
	ErrIdentifierNotFound = errors.New("identifier not found")

	// ErrInapplicableOperator is returned when a filter operator does not accept
	// the runtime type of its operand
	ErrInapplicableOperator = errors.New("operator not applicable to operand")

	// ErrClosed is returned when an operation is attempted on a closed storage
	ErrClosed = errors.New("storage closed")

	// ErrBackend is returned when the underlying store fails an operation
	ErrBackend = errors.New("backend failure")

	// ErrConfiguration is returned when a connection descriptor is missing or invalid
	ErrConfiguration = errors.New("invalid configuration")
)

// NotFoundError represents an error when an entity is not found
type NotFoundError struct {
	Type string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with key %q not found", e.Type, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ValidationError represents an input validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// IdentifierError represents a failure to resolve an entity's identifier
type IdentifierError struct {
	Type   string
	Reason string
}

func (e *IdentifierError) Error() string {
	return fmt.Sprintf("identifier of %s: %s", e.Type, e.Reason)
}

func (e *IdentifierError) Is(target error) bool {
	return target == ErrIdentifierNotFound
}

// OperatorError represents a filter operator applied to an operand it does not accept
type OperatorError struct {
	Operator string
	Operand  string
}

func (e *OperatorError) Error() string {
	return fmt.Sprintf("operator %s is not applicable to %s", e.Operator, e.Operand)
}

func (e *OperatorError) Is(target error) bool {
	return target == ErrInapplicableOperator
}

// BackendError wraps a failure reported by a storage backend
type BackendError struct {
	Backend   string
	Operation string
	Err       error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Backend, e.Operation, e.Err)
}

func (e *BackendError) Is(target error) bool {
	return target == ErrBackend
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// ConfigurationError represents a missing or invalid connection setting
type ConfigurationError struct {
	Setting string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration %q: %s", e.Setting, e.Message)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// Helper functions for creating errors

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(entityType, key string) error {
	return &NotFoundError{Type: entityType, Key: key}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewIdentifierError creates a new IdentifierError
func NewIdentifierError(entityType, reason string) error {
	return &IdentifierError{Type: entityType, Reason: reason}
}

// NewOperatorError creates a new OperatorError
func NewOperatorError(operator string, operand any) error {
	return &OperatorError{Operator: operator, Operand: fmt.Sprintf("%T", operand)}
}

// NewBackendError wraps err as a BackendError. A nil err yields nil.
func NewBackendError(backend, operation string, err error) error {
	if err == nil {
		return nil
	}
	return &BackendError{Backend: backend, Operation: operation, Err: err}
}

// NewConfigurationError creates a new ConfigurationError
func NewConfigurationError(setting, message string) error {
	return &ConfigurationError{Setting: setting, Message: message}
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsIdentifierError checks if an error is an identifier resolution error
func IsIdentifierError(err error) bool {
	return errors.Is(err, ErrIdentifierNotFound)
}

// IsInapplicableOperator checks if an error is an operator applicability error
func IsInapplicableOperator(err error) bool {
	return errors.Is(err, ErrInapplicableOperator)
}

// IsClosed checks if an error was caused by a closed storage
func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}

// IsBackendError checks if an error was reported by a storage backend
func IsBackendError(err error) bool {
	return errors.Is(err, ErrBackend)
}

// IsConfigurationError checks if an error is a configuration error
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}
