/*
Package errors provides semantic error types for the fieldstore library.

The package defines common error scenarios with specific types that can be
checked using the standard errors.Is() function or the provided helper functions.

Common Errors:

	var (
	    ErrNotFound             = errors.New("entity not found")
	    ErrInvalidInput         = errors.New("invalid input")
	    ErrIdentifierNotFound   = errors.New("identifier not found")
	    ErrInapplicableOperator = errors.New("operator not applicable to operand")
	    ErrClosed               = errors.New("storage closed")
	    ErrBackend              = errors.New("backend failure")
	    ErrConfiguration        = errors.New("invalid configuration")
	)

Usage:

	person, err := store.Get(ctx, id).Await(ctx)
	if err != nil {
	    if errors.IsClosed(err) {
	        // storage was closed before the call
	    }
	    if errors.IsBackendError(err) {
	        // the database rejected or failed the query
	    }
	    return err
	}
	if person == nil {
	    // absent
	}

	// Create typed errors
	err := errors.NewIdentifierError("Person", "identifier is empty")
	err := errors.NewBackendError("sqlite", "upsert", cause)

The error types implement the error interface and support wrapping,
making them compatible with Go's standard error handling patterns.
*/
package errors
