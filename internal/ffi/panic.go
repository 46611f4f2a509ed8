package ffi

import (
	"fmt"

	"github.com/cosmosquery/crosspartition/internal/errors"
)

// guard runs fn and converts any panic into an *errors.Error with code
// InternalError instead of letting it unwind across the cgo boundary. A Go
// panic crossing into C is undefined behavior at best; every exported
// function in this package that calls into the engine routes its body
// through guard or guardValue for exactly this reason (version,
// ffi_free_string and ffi_free_buffer do not). The panic is logged through runtime.Logger before it's turned
// into an error, the same place mockgateway.Dispatcher's pool logs a
// recovered worker panic, so a host embedding this library still gets a
// trace of what failed even though the C caller only sees a ResultCode.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			runtime.Logger.Error("recovered panic crossing the ffi boundary: %v", r)
			err = errors.New(errors.InternalError, fmt.Sprintf("recovered panic: %v", r))
		}
	}()
	return fn()
}

// guardValue is guard's counterpart for exported functions that also
// produce a value (a JSON payload, a handle) alongside the ResultCode.
func guardValue[T any](fn func() (T, error)) (val T, err error) {
	defer func() {
		if r := recover(); r != nil {
			runtime.Logger.Error("recovered panic crossing the ffi boundary: %v", r)
			var zero T
			val = zero
			err = errors.New(errors.InternalError, fmt.Sprintf("recovered panic: %v", r))
		}
	}()
	return fn()
}
