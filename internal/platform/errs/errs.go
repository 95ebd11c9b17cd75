// Package errs defines the error classes shared by the domain services and
// their mapping onto HTTP status codes.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrValidation marks malformed or missing input.
	ErrValidation = errors.New("validation error")
	// ErrNotFound covers both absent entities and entities owned by another
	// user, so existence is never leaked across accounts.
	ErrNotFound = errors.New("not found")
	// ErrInternal marks storage or otherwise unexpected failures.
	ErrInternal = errors.New("internal error")
)

func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func NotFound(what string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, what)
}

// Internal wraps a storage failure. The cause stays reachable through
// errors.Unwrap for logging but is never rendered to clients.
func Internal(op string, cause error) error {
	return &internalError{op: op, cause: cause}
}

type internalError struct {
	op    string
	cause error
}

func (e *internalError) Error() string {
	return fmt.Sprintf("%s: %v", e.op, e.cause)
}

func (e *internalError) Unwrap() []error {
	return []error{ErrInternal, e.cause}
}

// Storage passes classified errors through unchanged and marks anything
// else as an internal failure of op. A nil err stays nil.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) || errors.Is(err, ErrInternal) {
		return err
	}
	return Internal(op, err)
}

// Op returns the operation name recorded by Internal, if any.
func Op(err error) string {
	var ie *internalError
	if errors.As(err, &ie) {
		return ie.op
	}
	return ""
}

// HTTPStatus maps an error onto its response status.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the text safe to put in a response body.
func PublicMessage(err error) string {
	switch HTTPStatus(err) {
	case http.StatusBadRequest, http.StatusNotFound:
		return err.Error()
	default:
		return "Internal server error"
	}
}
