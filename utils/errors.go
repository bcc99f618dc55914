package utils

import (
	"context"
	"errors"
	"fmt"
)

// Error taxonomy shared by the store, services and controllers. Callers
// match with errors.Is; the wrapped message carries the detail.
var (
	// ErrInvalidOperation marks a request that is well formed but not allowed, e.g. following yourself.
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrNotFound marks a missing entity or relation.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument marks malformed input such as a non-positive page size.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrForbidden marks a mutation attempted by someone other than the owner.
	ErrForbidden = errors.New("forbidden")
	// ErrTimeout marks a store call that exceeded its deadline. Retryable.
	ErrTimeout = errors.New("timeout")
)

// AsTimeout converts context deadline errors into ErrTimeout and leaves other errors untouched.
func AsTimeout(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
