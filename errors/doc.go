// Package errors provides standardized error handling patterns for SemBoot.
//
// # Overview
//
// The errors package implements a three-class error classification system
// for boot-time configuration assembly: Invalid (bad input or property
// values), Authoring (configuration-authoring bugs such as an empty
// manifest, invalid exclusions, or conflicting role providers), and Fatal
// (unrecoverable states such as a missing required role).
//
// Unlike a streaming runtime, boot-time selection has no retry policy:
// every decision is a pure function of capability, property, and registry
// state evaluated once at startup. Classification therefore only decides
// how an error is reported, never whether it is retried.
//
// # Error Classification
//
//   - Invalid: malformed property values, binding failures, bad identifiers
//   - Authoring: empty manifest, invalid exclusions, constraint cycles,
//     duplicate candidate or role registrations (abort startup)
//   - Fatal: missing required roles, known-incompatible capability
//     combinations (abort startup)
//
// The classification system integrates with Go's standard error handling,
// supporting errors.Is(), errors.As(), and error wrapping chains.
//
// # Quick Start
//
// Use standard error variables for known conditions:
//
//	if len(candidates) == 0 {
//	    return errors.ErrEmptyManifest
//	}
//
// Wrap errors with component context:
//
//	if err := binder.Bind("nats", &cfg); err != nil {
//	    return errors.WrapInvalid(err, "NATSFactory", "Build", "config binding")
//	}
//
// Report every offending item in one error:
//
//	return errors.Enumerate(errors.ErrInvalidExclusion,
//	    "the following exclusions match no candidate", invalid)
package errors
