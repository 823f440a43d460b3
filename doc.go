// Package semboot provides boot-time auto-configuration for Go service
// platforms: a manifest of candidate configuration units is filtered by
// declared capabilities, property state, and already-registered
// infrastructure, ordered by declared priority constraints, and executed to
// assemble infrastructure objects into a role-keyed registry without
// explicit user wiring.
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│             Engine                  │  Boot orchestration
//	│   (select, construct, register)     │  Report + lifecycle
//	└─────────────────────────────────────┘
//	           ↓ orchestrates
//	┌─────────────────────────────────────┐
//	│            Selector                 │  Dedupe, exclusions,
//	│ (manifest → ordered candidate list) │  filtering, ordering
//	└─────────────────────────────────────┘
//	           ↓ activates
//	┌─────────────────────────────────────┐
//	│       Conditional Factories         │  Gated construction of
//	│  (nats, http, cache, user-defined)  │  infrastructure objects
//	└─────────────────────────────────────┘
//	           ↓ populate
//	┌─────────────────────────────────────┐
//	│         Object Registry             │  Role-keyed, append-only
//	│      (service locator, typed)       │  during startup
//	└─────────────────────────────────────┘
//
// Every activation decision is a pure function of boot-time state: the
// capability index, the property source, and the objects registered so far.
// Startup is single-threaded and synchronous; it either completes or aborts
// with a fatal, diagnostics-translated error. There is no retry anywhere.
//
// # Packages
//
//   - manifest:    candidate list loading and priority metadata
//   - capability:  capability-query index (pluggable backends)
//   - property:    hierarchical configuration with typed binding
//   - condition:   activation predicates and batch evaluators
//   - selector:    ordered, deduplicated, filtered candidate selection
//   - factory:     conditional factory contract and registration
//   - registry:    role-keyed object registry
//   - diagnostics: failure-to-remediation translation
//   - engine:      boot orchestration, report, lifecycle
//   - builtin:     built-in factories (NATS, HTTP server, local cache)
package semboot
