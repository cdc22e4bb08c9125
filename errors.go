package iommi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/nlstn/go-iommi/internal/grammar"
	"github.com/nlstn/go-iommi/internal/traversal"
)

// Sentinel errors for query compilation.
// These can be used with errors.Is() for error handling.
var (
	// ErrQuerySyntax indicates the query string does not match the grammar.
	// Maps to HTTP 400 Bad Request.
	ErrQuerySyntax = grammar.ErrSyntax

	// ErrDateOutOfRange indicates a date literal naming a day that does not exist.
	// Maps to HTTP 400 Bad Request.
	ErrDateOutOfRange = grammar.ErrDateOutOfRange

	// ErrUnknownVariable indicates a statement on a variable that is not declared.
	// Maps to HTTP 400 Bad Request.
	ErrUnknownVariable = errors.New("iommi: unknown variable")

	// ErrUnknownValue indicates a value the variable could not resolve, such as
	// a choice that does not exist.
	// Maps to HTTP 400 Bad Request.
	ErrUnknownValue = errors.New("iommi: unknown value")

	// ErrInvalidOperator indicates an operator the variable does not support.
	// Maps to HTTP 400 Bad Request.
	ErrInvalidOperator = errors.New("iommi: invalid operator")

	// ErrInternal indicates a broken invariant. It is never caused by the query
	// string alone.
	// Maps to HTTP 500 Internal Server Error.
	ErrInternal = errors.New("iommi: internal error")

	// ErrNoMatch is returned by a ValueResolver that found nothing for a value.
	ErrNoMatch = errors.New("iommi: no match")

	// ErrDeclaration indicates an invalid variable, query, table or page declaration.
	ErrDeclaration = errors.New("iommi: invalid declaration")

	// ErrMethodNotAllowed indicates a request method that carries no query data.
	// Maps to HTTP 405 Method Not Allowed.
	ErrMethodNotAllowed = errors.New("iommi: method not allowed")

	// ErrReservedName is returned when a declared component uses a reserved name.
	ErrReservedName = traversal.ErrReservedName

	// ErrDuplicatePath is returned when two components resolve to the same path.
	ErrDuplicatePath = traversal.ErrDuplicatePath
)

// ErrorCode classifies a QueryError.
type ErrorCode string

const (
	// ErrorCodeSyntax is a malformed query string.
	ErrorCodeSyntax ErrorCode = "syntax"

	// ErrorCodeDateOutOfRange is a date literal outside the calendar.
	ErrorCodeDateOutOfRange ErrorCode = "date_out_of_range"

	// ErrorCodeUnknownVariable is a statement on an undeclared variable.
	ErrorCodeUnknownVariable ErrorCode = "unknown_variable"

	// ErrorCodeUnknownValue is a value the variable could not resolve.
	ErrorCodeUnknownValue ErrorCode = "unknown_value"

	// ErrorCodeInvalidOperator is an operator the variable does not support.
	ErrorCodeInvalidOperator ErrorCode = "invalid_operator"

	// ErrorCodeInternal is a broken invariant.
	ErrorCodeInternal ErrorCode = "internal"
)

// QueryError is returned when a query string cannot be turned into a filter.
// Message is meant for the end user; Err carries the underlying cause.
//
// Example usage:
//
//	expr, err := bound.ToFilter()
//	var qerr *iommi.QueryError
//	if errors.As(err, &qerr) {
//	    log.Printf("query %q rejected: %s", qerr.Query, qerr.Message)
//	}
type QueryError struct {
	// Code classifies the error.
	Code ErrorCode

	// Message is a human-readable error description.
	Message string

	// Query is the query string that failed.
	Query string

	// Err is the underlying error. It keeps errors.Is() working against the
	// sentinel errors of this package.
	Err error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return e.Message
}

// Unwrap implements error unwrapping for errors.Is() and errors.As().
func (e *QueryError) Unwrap() error {
	return e.Err
}

func newQueryError(code ErrorCode, err error, format string, args ...interface{}) *QueryError {
	return &QueryError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

func syntaxError(query string, err error) *QueryError {
	var dateErr *grammar.DateRangeError
	if errors.As(err, &dateErr) {
		return &QueryError{Code: ErrorCodeDateOutOfRange, Message: dateErr.Error(), Query: query, Err: err}
	}
	return &QueryError{Code: ErrorCodeSyntax, Message: "Invalid syntax for query", Query: query, Err: err}
}

// MapErrorToHTTPStatus returns the appropriate HTTP status code for errors
// returned by this package.
//
// Example usage:
//
//	status := iommi.MapErrorToHTTPStatus(err)
//	w.WriteHeader(status)
func MapErrorToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var qerr *QueryError
	if errors.As(err, &qerr) {
		if qerr.Code == ErrorCodeInternal {
			return http.StatusInternalServerError
		}
		return http.StatusBadRequest
	}

	switch {
	case errors.Is(err, ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed
	case errors.Is(err, ErrQuerySyntax),
		errors.Is(err, ErrDateOutOfRange),
		errors.Is(err, ErrUnknownVariable),
		errors.Is(err, ErrUnknownValue),
		errors.Is(err, ErrInvalidOperator):
		return http.StatusBadRequest
	}

	return http.StatusInternalServerError
}

// IsUserError reports whether err was caused by the query string rather
// than by the program.
func IsUserError(err error) bool {
	return MapErrorToHTTPStatus(err) == http.StatusBadRequest
}
