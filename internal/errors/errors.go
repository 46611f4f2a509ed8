// Package errors defines the exhaustive error taxonomy the pipeline reports
// across the FFI boundary, plus sentinel values for callers using errors.Is.
package errors

import (
	"errors"
	"fmt"
)

// Code identifies one of the error kinds the pipeline can report. The set is
// exhaustive: every fallible API returns one of these, never a bare error.
type Code int

const (
	// InvalidGatewayResponse covers wire data that doesn't match the required
	// shape: missing Documents, non-array orderByItems, an unknown range id,
	// or a duplicate delivery to a buffer with no outstanding request.
	InvalidGatewayResponse Code = iota + 1
	// DeserializationError means the JSON payload failed to parse.
	DeserializationError
	// UnknownPartitionKeyRange means a response named a range outside the
	// selected set.
	UnknownPartitionKeyRange
	// UnsupportedQueryPlan means the plan requires an operator combination,
	// or a partitionedQueryExecutionInfoVersion, this engine does not
	// implement.
	UnsupportedQueryPlan
	// InvalidUtf8 means borrowed bytes crossing the FFI boundary were not
	// valid UTF-8.
	InvalidUtf8
	// ArgumentNull means a required pointer or slice was null/empty.
	ArgumentNull
	// InvalidPartitionKey means a partition key value was outside the
	// five-scalar, 1-3 component domain.
	InvalidPartitionKey
	// InternalError means an invariant was violated or a panic was caught.
	InternalError
)

func (c Code) String() string {
	switch c {
	case InvalidGatewayResponse:
		return "InvalidGatewayResponse"
	case DeserializationError:
		return "DeserializationError"
	case UnknownPartitionKeyRange:
		return "UnknownPartitionKeyRange"
	case UnsupportedQueryPlan:
		return "UnsupportedQueryPlan"
	case InvalidUtf8:
		return "InvalidUtf8"
	case ArgumentNull:
		return "ArgumentNull"
	case InvalidPartitionKey:
		return "InvalidPartitionKey"
	case InternalError:
		return "InternalError"
	default:
		return "Unknown"
	}
}

// Error wraps a Code with a message and optional cause. It satisfies the
// standard error interface and unwraps to the cause for errors.Is/As.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// CodeOf extracts the Code from err if it (or something it wraps) is an
// *Error, and ok=false otherwise.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}

// Sentinel errors for common conditions, usable directly with errors.Is
// against the Cause chain of a returned *Error.
var (
	ErrNullArgument        = errors.New("required argument was null or empty")
	ErrEmptyQuery           = errors.New("query string was empty")
	ErrDuplicateDelivery    = errors.New("range already has no outstanding request")
	ErrRequestIDMismatch    = errors.New("response request_id does not match any outstanding request")
	ErrRangesOverlap        = errors.New("physical partition key ranges overlap")
	ErrMissingOrderByItems  = errors.New("document is missing orderByItems required by the plan")
	ErrMissingGroupByItems  = errors.New("document is missing groupByItems required by the plan")
	ErrTooManySortKeys      = errors.New("orderBy exceeds the maximum number of supported sort keys")
	ErrHybridDisabled       = errors.New("plan requires hybrid search features, which are disabled")
	ErrUnsupportedPlanVersion = errors.New("partitionedQueryExecutionInfoVersion is not supported")
)
