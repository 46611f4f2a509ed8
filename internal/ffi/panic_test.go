package ffi

import (
	"testing"

	"github.com/cosmosquery/crosspartition/internal/errors"
)

func TestGuard_PassesThroughNormalReturn(t *testing.T) {
	if err := guard(func() error { return nil }); err != nil {
		t.Fatalf("guard: %v", err)
	}

	want := errors.New(errors.ArgumentNull, "boom")
	if err := guard(func() error { return want }); err != want {
		t.Fatalf("guard changed a non-panic error: got %v, want %v", err, want)
	}
}

func TestGuard_RecoversPanicAsInternalError(t *testing.T) {
	err := guard(func() error {
		panic("something went very wrong")
	})
	if err == nil {
		t.Fatal("expected guard to recover the panic into an error")
	}
	code, ok := errors.CodeOf(err)
	if !ok || code != errors.InternalError {
		t.Fatalf("got code %v, want InternalError", code)
	}
}

func TestGuardValue_RecoversPanicAndZeroesValue(t *testing.T) {
	val, err := guardValue(func() (int, error) {
		panic("nope")
	})
	if err == nil {
		t.Fatal("expected guardValue to recover the panic into an error")
	}
	if val != 0 {
		t.Fatalf("expected zero value on panic, got %d", val)
	}
}

func TestGuardValue_PassesThroughNormalReturn(t *testing.T) {
	val, err := guardValue(func() (string, error) { return "ok", nil })
	if err != nil {
		t.Fatalf("guardValue: %v", err)
	}
	if val != "ok" {
		t.Fatalf("got %q, want ok", val)
	}
}
