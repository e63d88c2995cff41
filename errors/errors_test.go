package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestErrorClassString(t *testing.T) {
	tests := []struct {
		class ErrorClass
		want  string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.class.String(); got != tt.want {
			t.Errorf("ErrorClass(%d).String() = %q, want %q", tt.class, got, tt.want)
		}
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"connection timeout", ErrConnectionTimeout, true},
		{"storage unavailable", ErrStorageUnavailable, true},
		{"service unavailable", ErrServiceUnavailable, true},
		{"context deadline", context.DeadlineExceeded, true},
		{"context cancelled", context.Canceled, true},
		{"wrapped transient", WrapTransient(errors.New("boom"), "Store", "Get", "read"), true},
		{"wrapped invalid", WrapInvalid(errors.New("boom"), "Engine", "Evaluate", "parse"), false},
		{"message pattern", errors.New("dial tcp: connection refused"), true},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsInvalid(t *testing.T) {
	if !IsInvalid(ErrInvalidData) {
		t.Error("ErrInvalidData should be invalid")
	}
	if !IsInvalid(WrapInvalid(errors.New("bad shape"), "Trigger", "Parse", "decode")) {
		t.Error("wrapped invalid should be invalid")
	}
	if IsInvalid(ErrConnectionLost) {
		t.Error("connection loss should not be invalid")
	}
	if IsInvalid(nil) {
		t.Error("nil should not be invalid")
	}
}

func TestIsFatal(t *testing.T) {
	if !IsFatal(ErrInvalidConfig) {
		t.Error("ErrInvalidConfig should be fatal")
	}
	if !IsFatal(WrapFatal(errors.New("corrupt"), "Store", "Get", "unmarshal")) {
		t.Error("wrapped fatal should be fatal")
	}
	if IsFatal(ErrConnectionTimeout) {
		t.Error("timeout should not be fatal")
	}
}

func TestWrapFormat(t *testing.T) {
	base := errors.New("underlying")
	wrapped := Wrap(base, "Coordinator", "Transform", "service call")

	want := "Coordinator.Transform: service call failed: underlying"
	if wrapped.Error() != want {
		t.Errorf("Wrap() = %q, want %q", wrapped.Error(), want)
	}
	if !errors.Is(wrapped, base) {
		t.Error("wrapped error should match underlying via errors.Is")
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, "C", "M", "a") != nil {
		t.Error("Wrap(nil) should return nil")
	}
	if WrapTransient(nil, "C", "M", "a") != nil {
		t.Error("WrapTransient(nil) should return nil")
	}
	if WrapInvalid(nil, "C", "M", "a") != nil {
		t.Error("WrapInvalid(nil) should return nil")
	}
	if WrapFatal(nil, "C", "M", "a") != nil {
		t.Error("WrapFatal(nil) should return nil")
	}
}

func TestClassificationPreservedThroughChain(t *testing.T) {
	inner := WrapTransient(ErrConnectionLost, "KVStore", "Get", "fetch")
	outer := fmt.Errorf("store.GetConfig: %w", inner)

	if !IsTransient(outer) {
		t.Error("classification should survive fmt.Errorf wrapping")
	}

	var ce *ClassifiedError
	if !errors.As(outer, &ce) {
		t.Fatal("expected ClassifiedError in chain")
	}
	if ce.Component != "KVStore" {
		t.Errorf("Component = %q, want %q", ce.Component, "KVStore")
	}
}

func TestClassify(t *testing.T) {
	if Classify(ErrInvalidConfig) != ErrorFatal {
		t.Error("invalid config should classify fatal")
	}
	if Classify(ErrParsingFailed) != ErrorInvalid {
		t.Error("parsing failure should classify invalid")
	}
	if Classify(errors.New("boom")) != ErrorTransient {
		t.Error("unknown errors should default to transient")
	}
}

func TestInvalidHelper(t *testing.T) {
	err := Invalid("Engine", "Evaluate", "message is required")
	if !IsInvalid(err) {
		t.Error("Invalid() should produce an invalid-classified error")
	}
	want := "Engine.Evaluate: message is required"
	if err.Error() != want {
		t.Errorf("Invalid() message = %q, want %q", err.Error(), want)
	}
}
