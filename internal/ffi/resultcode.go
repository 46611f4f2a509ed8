package ffi

import "github.com/cosmosquery/crosspartition/internal/errors"

// ResultCode is the C ABI's error signal: every exported function returns
// one, with Success meaning any out-parameters were populated and anything
// else meaning they weren't touched.
type ResultCode int32

const (
	Success ResultCode = 0
)

// codeToResult maps an internal errors.Code to its C ABI counterpart. The
// numbering starts above Success and otherwise follows errors.Code's own
// order, so a caller with both headers in hand sees the same sequence.
func codeToResult(code errors.Code) ResultCode {
	return ResultCode(code)
}

// resultOf turns err into the ResultCode an exported function should
// return: Success for nil, the mapped Code for a *errors.Error, and
// InternalError for anything else (a stdlib error crossing the boundary
// unclassified is itself a bug, but it must not panic the caller).
func resultOf(err error) ResultCode {
	if err == nil {
		return Success
	}
	if code, ok := errors.CodeOf(err); ok {
		return codeToResult(code)
	}
	return codeToResult(errors.InternalError)
}
