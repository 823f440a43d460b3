// Package errors provides standardized error handling patterns for SemBoot.
// It includes error classification, standard error variables, and helper
// functions for consistent error wrapping and classification during boot.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorClass represents the classification of errors for handling purposes
type ErrorClass int

const (
	// ErrorInvalid represents errors due to invalid input or configuration values
	ErrorInvalid ErrorClass = iota
	// ErrorAuthoring represents configuration-authoring bugs (bad manifest,
	// invalid exclusions, conflicting role providers) that must abort startup
	ErrorAuthoring
	// ErrorFatal represents unrecoverable errors that should stop the boot
	ErrorFatal
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorInvalid:
		return "invalid"
	case ErrorAuthoring:
		return "authoring"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions
var (
	// Engine lifecycle errors
	ErrAlreadyStarted = errors.New("engine already started")
	ErrNotStarted     = errors.New("engine not started")

	// Manifest and selection errors
	ErrEmptyManifest      = errors.New("candidate manifest is empty")
	ErrInvalidExclusion   = errors.New("exclusion names no known candidate")
	ErrConstraintCycle    = errors.New("priority constraints form a cycle")
	ErrUnknownCandidate   = errors.New("unknown candidate identifier")
	ErrDuplicateCandidate = errors.New("duplicate candidate registration")

	// Registry errors
	ErrDuplicateRole  = errors.New("role already registered")
	ErrMissingRole    = errors.New("no object registered for required role")
	ErrRegistryFrozen = errors.New("registry is frozen after startup")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingConfig = errors.New("missing required configuration")
	ErrBindFailed    = errors.New("configuration binding failed")

	// Compatibility errors
	ErrIncompatible = errors.New("incompatible library or capability combination")
)

// ClassifiedError wraps an error with its classification
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// IsAuthoring checks if an error is a configuration-authoring bug
func IsAuthoring(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorAuthoring
	}

	return errors.Is(err, ErrEmptyManifest) ||
		errors.Is(err, ErrInvalidExclusion) ||
		errors.Is(err, ErrConstraintCycle) ||
		errors.Is(err, ErrDuplicateCandidate) ||
		errors.Is(err, ErrDuplicateRole)
}

// IsFatal checks if an error should abort the boot
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorFatal || ce.Class == ErrorAuthoring
	}

	if errors.Is(err, ErrMissingRole) ||
		errors.Is(err, ErrIncompatible) ||
		errors.Is(err, ErrMissingConfig) {
		return true
	}

	// Authoring bugs always abort startup
	return IsAuthoring(err)
}

// IsInvalid checks if an error is due to invalid input
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorInvalid
	}

	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrBindFailed) ||
		errors.Is(err, ErrUnknownCandidate)
}

// Classify returns the error class for an error
func Classify(err error) ErrorClass {
	if IsAuthoring(err) {
		return ErrorAuthoring
	}
	if IsFatal(err) {
		return ErrorFatal
	}
	return ErrorInvalid
}

// newClassified creates a new classified error.
// Internal helper - use WrapInvalid(), WrapAuthoring(), or WrapFatal() instead.
func newClassified(class ErrorClass, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapInvalid wraps an error as invalid input with context
func WrapInvalid(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorInvalid, wrappedErr, component, method, wrappedErr.Error())
}

// WrapAuthoring wraps an error as a configuration-authoring bug with context
func WrapAuthoring(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorAuthoring, wrappedErr, component, method, wrappedErr.Error())
}

// WrapFatal wraps an error as fatal with context
func WrapFatal(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorFatal, wrappedErr, component, method, wrappedErr.Error())
}

// Enumerate builds a single error naming every offending item at once.
// Startup errors are reported complete, never one item at a time.
func Enumerate(sentinel error, label string, items []string) error {
	if len(items) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s: %s", sentinel, label, strings.Join(items, ", "))
}
