// Package registry provides the role-keyed object registry that conditional
// factories populate during boot. It replaces container-managed dependency
// injection with an explicit service locator: every infrastructure object
// is registered under a role name ("nats.conn", "http.server"), and
// consumers look roles up directly.
//
// The registry is append-only during startup: factories add entries, but
// nothing removes or mutates an entry added by another factory. Optional
// dependencies are expressed as a missed Lookup, never as an error; a
// duplicate role registration is a fatal authoring bug.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/c360/semboot/errors"
)

// entry pairs a registered object with the factory that provided it,
// for duplicate-role reporting.
type entry struct {
	object   any
	provider string
	order    int
}

// Registry is a thread-safe, role-keyed object registry.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
	frozen  bool
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register adds obj under role, attributed to provider (the factory name,
// used in conflict reports). Registering an already-occupied role is an
// authoring error naming both providers.
func (r *Registry) Register(role, provider string, obj any) error {
	if role == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "Register", "role validation")
	}
	if obj == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "Register", "object validation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return errors.WrapAuthoring(errors.ErrRegistryFrozen, "Registry", "Register", "startup phase check")
	}

	if existing, exists := r.entries[role]; exists {
		return errors.WrapAuthoring(
			fmt.Errorf("%w: role '%s' provided by both '%s' and '%s'",
				errors.ErrDuplicateRole, role, existing.provider, provider),
			"Registry", "Register", "duplicate role check")
	}

	r.entries[role] = entry{object: obj, provider: provider, order: len(r.entries)}
	return nil
}

// Lookup returns the object registered under role. A missed lookup is the
// normal optional-dependency path and carries no error.
func (r *Registry) Lookup(role string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[role]
	if !ok {
		return nil, false
	}
	return e.object, true
}

// Require returns the object registered under role, or a fatal state
// assertion naming the missing role and the active configuration mode.
// Intended for factories whose output cannot exist without the dependency.
func (r *Registry) Require(role, mode string) (any, error) {
	obj, ok := r.Lookup(role)
	if !ok {
		return nil, errors.WrapFatal(
			fmt.Errorf("%w: role '%s' (mode: %s)", errors.ErrMissingRole, role, mode),
			"Registry", "Require", "required role lookup")
	}
	return obj, nil
}

// Has reports whether role is occupied.
func (r *Registry) Has(role string) bool {
	_, ok := r.Lookup(role)
	return ok
}

// Provider returns the name of the factory that filled role.
func (r *Registry) Provider(role string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[role]
	if !ok {
		return "", false
	}
	return e.provider, true
}

// Roles returns all occupied roles sorted by name.
func (r *Registry) Roles() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roles := make([]string, 0, len(r.entries))
	for role := range r.entries {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}

// InOrder returns the registered objects in registration order. Used for
// reverse-order teardown after startup.
func (r *Registry) InOrder() []any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ordered := make([]entry, 0, len(r.entries))
	for _, e := range r.entries {
		ordered = append(ordered, e)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].order < ordered[j].order })

	out := make([]any, len(ordered))
	for i, e := range ordered {
		out[i] = e.object
	}
	return out
}

// Freeze ends the startup phase: further registration is rejected. Lookups
// remain available for the life of the process.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Len returns the number of occupied roles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// As looks role up and type-asserts the result into T. A missed lookup
// returns the zero value and false; a type mismatch is a fatal wiring bug.
func As[T any](r *Registry, role string) (T, bool, error) {
	var zero T
	obj, ok := r.Lookup(role)
	if !ok {
		return zero, false, nil
	}
	typed, ok := obj.(T)
	if !ok {
		return zero, false, errors.WrapFatal(
			fmt.Errorf("role '%s' holds %T, not %T", role, obj, zero),
			"Registry", "As", "role type assertion")
	}
	return typed, true, nil
}
