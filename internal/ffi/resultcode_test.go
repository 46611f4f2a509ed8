package ffi

import (
	"testing"

	"github.com/cosmosquery/crosspartition/internal/errors"
)

func TestResultOf_NilIsSuccess(t *testing.T) {
	if got := resultOf(nil); got != Success {
		t.Fatalf("got %v, want Success", got)
	}
}

func TestResultOf_MapsKnownCode(t *testing.T) {
	err := errors.New(errors.UnsupportedQueryPlan, "nope")
	if got := resultOf(err); got != codeToResult(errors.UnsupportedQueryPlan) {
		t.Fatalf("got %v, want %v", got, codeToResult(errors.UnsupportedQueryPlan))
	}
}

func TestResultOf_UnclassifiedErrorBecomesInternalError(t *testing.T) {
	err := &fakeErr{}
	if got := resultOf(err); got != codeToResult(errors.InternalError) {
		t.Fatalf("got %v, want InternalError's code", got)
	}
}

type fakeErr struct{}

func (*fakeErr) Error() string { return "unclassified" }
