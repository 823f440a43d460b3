package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorClass_String(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorInvalid, "invalid"},
		{ErrorAuthoring, "authoring"},
		{ErrorFatal, "fatal"},
		{ErrorClass(999), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			result := test.class.String()
			if result != test.expected {
				t.Errorf("expected %s, got %s", test.expected, result)
			}
		})
	}
}

func TestIsAuthoring(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"empty manifest", ErrEmptyManifest, true},
		{"invalid exclusion", ErrInvalidExclusion, true},
		{"constraint cycle", ErrConstraintCycle, true},
		{"duplicate role", ErrDuplicateRole, true},
		{"missing role", ErrMissingRole, false},
		{"invalid config", ErrInvalidConfig, false},
		{"wrapped empty manifest", fmt.Errorf("boot: %w", ErrEmptyManifest), true},
		{"classified authoring", &ClassifiedError{Class: ErrorAuthoring, Err: fmt.Errorf("test")}, true},
		{"classified invalid", &ClassifiedError{Class: ErrorInvalid, Err: fmt.Errorf("test")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := IsAuthoring(test.err); got != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, got, test.err)
			}
		})
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"missing role", ErrMissingRole, true},
		{"incompatible", ErrIncompatible, true},
		{"missing config", ErrMissingConfig, true},
		{"authoring also fatal", ErrEmptyManifest, true},
		{"invalid config not fatal", ErrInvalidConfig, false},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := IsFatal(test.err); got != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, got, test.err)
			}
		})
	}
}

func TestIsInvalid(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"invalid config", ErrInvalidConfig, true},
		{"bind failed", ErrBindFailed, true},
		{"unknown candidate", ErrUnknownCandidate, true},
		{"missing role", ErrMissingRole, false},
		{"classified invalid", &ClassifiedError{Class: ErrorInvalid, Err: fmt.Errorf("test")}, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := IsInvalid(test.err); got != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, got, test.err)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	if got := Classify(ErrEmptyManifest); got != ErrorAuthoring {
		t.Errorf("expected authoring, got %s", got)
	}
	if got := Classify(ErrMissingRole); got != ErrorFatal {
		t.Errorf("expected fatal, got %s", got)
	}
	if got := Classify(ErrInvalidConfig); got != ErrorInvalid {
		t.Errorf("expected invalid, got %s", got)
	}
}

func TestWrap(t *testing.T) {
	base := errors.New("connection refused")
	wrapped := Wrap(base, "NATSFactory", "Build", "dial")

	if !errors.Is(wrapped, base) {
		t.Error("expected wrapped error to match base via errors.Is")
	}
	expected := "NATSFactory.Build: dial failed: connection refused"
	if wrapped.Error() != expected {
		t.Errorf("expected %q, got %q", expected, wrapped.Error())
	}

	if got := Wrap(nil, "a", "b", "c"); got != nil {
		t.Errorf("expected nil for nil error, got %v", got)
	}
}

func TestWrapHelpers(t *testing.T) {
	base := errors.New("boom")

	tests := []struct {
		name  string
		wrap  func(error, string, string, string) error
		class ErrorClass
	}{
		{"WrapInvalid", WrapInvalid, ErrorInvalid},
		{"WrapAuthoring", WrapAuthoring, ErrorAuthoring},
		{"WrapFatal", WrapFatal, ErrorFatal},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.wrap(base, "Selector", "Select", "candidate filtering")

			var ce *ClassifiedError
			if !errors.As(err, &ce) {
				t.Fatal("expected a ClassifiedError")
			}
			if ce.Class != test.class {
				t.Errorf("expected class %s, got %s", test.class, ce.Class)
			}
			if !errors.Is(err, base) {
				t.Error("expected wrapped error to match base via errors.Is")
			}
			if test.wrap(nil, "a", "b", "c") != nil {
				t.Error("expected nil for nil error")
			}
		})
	}
}

func TestEnumerate(t *testing.T) {
	err := Enumerate(ErrInvalidExclusion, "no such candidates", []string{"a", "b", "c"})
	if !errors.Is(err, ErrInvalidExclusion) {
		t.Error("expected sentinel to match via errors.Is")
	}
	for _, name := range []string{"a", "b", "c"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("expected message to contain %q: %s", name, err.Error())
		}
	}

	if Enumerate(ErrInvalidExclusion, "none", nil) != nil {
		t.Error("expected nil for empty item list")
	}
}
