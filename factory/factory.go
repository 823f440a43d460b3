// Package factory defines the conditional factory contract: a unit that,
// when its conditions hold against the boot environment, constructs an
// infrastructure object and registers it into the object registry under a
// role. Factories are grouped into sets keyed by candidate identifier; the
// engine runs selected sets in selector order.
package factory

import (
	"fmt"
	"log/slog"

	"github.com/c360/semboot/capability"
	"github.com/c360/semboot/condition"
	"github.com/c360/semboot/errors"
	"github.com/c360/semboot/manifest"
	"github.com/c360/semboot/metric"
	"github.com/c360/semboot/property"
	"github.com/c360/semboot/registry"
)

// Dependencies carries everything a Build function may consult: the object
// registry for already-constructed infrastructure, the property source for
// configuration, the capability index, and shared logging/metrics.
type Dependencies struct {
	Registry     *registry.Registry
	Properties   *property.Source
	Capabilities *capability.Index
	Logger       *slog.Logger
	Metrics      *metric.Registry
}

// Environment derives the condition environment snapshot from deps.
func (d Dependencies) Environment() condition.Environment {
	return condition.Environment{
		Capabilities: d.Capabilities,
		Properties:   d.Properties,
		Registry:     d.Registry,
	}
}

// BuildFunc constructs one infrastructure object. Factories perform no
// retries; a failed build aborts startup with the originating error
// intact. Builds that only have side effects may return nil.
type BuildFunc func(deps Dependencies) (any, error)

// Factory is one gated construction step.
type Factory struct {
	// Name identifies the factory in reports and conflict messages.
	Name string

	// Role is the registry key the built object occupies. A factory with a
	// role is implicitly gated on the role being unoccupied, so mutually
	// exclusive variants short-circuit on whichever ran first. Empty Role
	// means the build runs for side effects only.
	Role string

	// Conditions gate execution; all must match.
	Conditions []condition.Condition

	// Build constructs the object.
	Build BuildFunc
}

// Gate combines the factory's conditions with the implicit
// role-unoccupied gate.
func (f Factory) Gate() condition.Condition {
	conditions := f.Conditions
	if f.Role != "" {
		conditions = append([]condition.Condition{condition.OnMissingObject(f.Role)}, conditions...)
	}
	if len(conditions) == 0 {
		return func(condition.Environment) condition.Outcome {
			return condition.Matched("unconditional")
		}
	}
	return condition.AllOf(conditions...)
}

// Set groups the factories activated by one candidate identifier, together
// with the candidate's ordering metadata and capability requirements.
type Set struct {
	// Candidate declares the identifier and before/after constraints the
	// selector orders by.
	Candidate manifest.Candidate

	// Requires lists capabilities the whole set needs; the capability
	// evaluator drops the candidate when any is missing.
	Requires []string

	// Factories run in declaration order when the candidate is selected.
	Factories []Factory
}

// Registry holds factory sets keyed by candidate identifier, in
// registration order.
type Registry struct {
	sets  map[string]Set
	order []string
}

// NewRegistry creates an empty factory registry.
func NewRegistry() *Registry {
	return &Registry{sets: make(map[string]Set)}
}

// Add registers a factory set. Duplicate candidate identifiers and sets
// without factories are authoring errors.
func (r *Registry) Add(set Set) error {
	name := set.Candidate.Name
	if name == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "Add", "candidate name validation")
	}
	if len(set.Factories) == 0 {
		return errors.WrapInvalid(
			fmt.Errorf("candidate '%s' declares no factories", name),
			"Registry", "Add", "factory set validation")
	}
	for _, f := range set.Factories {
		if f.Name == "" || f.Build == nil {
			return errors.WrapInvalid(
				fmt.Errorf("candidate '%s' declares a factory without name or build", name),
				"Registry", "Add", "factory validation")
		}
	}
	if _, exists := r.sets[name]; exists {
		return errors.WrapAuthoring(
			fmt.Errorf("%w: '%s'", errors.ErrDuplicateCandidate, name),
			"Registry", "Add", "duplicate candidate check")
	}

	r.sets[name] = set
	r.order = append(r.order, name)
	return nil
}

// Lookup returns the set registered under the candidate identifier.
func (r *Registry) Lookup(name string) (Set, bool) {
	set, ok := r.sets[name]
	return set, ok
}

// Manifest derives the candidate manifest from the registered sets, in
// registration order.
func (r *Registry) Manifest() (*manifest.Manifest, error) {
	candidates := make([]manifest.Candidate, 0, len(r.order))
	for _, name := range r.order {
		candidates = append(candidates, r.sets[name].Candidate)
	}
	return manifest.New(candidates...)
}

// Requirements derives the capability requirements of all registered sets
// for the capability evaluator.
func (r *Registry) Requirements() condition.CapabilityRequirements {
	requirements := make(condition.CapabilityRequirements)
	for name, set := range r.sets {
		if len(set.Requires) > 0 {
			requirements[name] = set.Requires
		}
	}
	return requirements
}

// Names returns the registered candidate identifiers in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered sets.
func (r *Registry) Len() int {
	return len(r.sets)
}
