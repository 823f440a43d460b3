// Package engine runs the boot pass: select candidates, build them, hold
// the results.
//
// # Overview
//
// The engine ties the other packages together. It derives a manifest from
// the factory registry (or takes an explicit one), runs the selector with
// the built-in capability and property evaluators, and then walks the
// selected candidates in constraint order. Each candidate's factories are
// gated by their conditions against a live environment snapshot; factories
// that match are built and their objects registered under their role.
//
// # Lifecycle
//
//	engine, err := engine.New(factories,
//		engine.WithProperties(props),
//		engine.WithCapabilities(caps),
//		engine.WithMetrics(metrics))
//
//	err = engine.Start(ctx)   // one-shot; registry frozen on success
//	report := engine.Report() // selection result and gate outcomes
//	err = engine.Stop(ctx)    // io.Closer objects, reverse order
//
// Start is single-threaded and synchronous: when it returns nil every
// selected candidate has been built and the object registry is frozen.
// Conditions observe registrations made earlier in the same pass, so
// declaration order inside a candidate and constraint order across
// candidates are both load-bearing.
//
// # Failure Handling
//
// Startup errors are passed through the diagnostics analyzers before being
// returned; a recognized failure logs a description and a suggested action
// alongside the raw error. The error itself is returned unchanged.
package engine
