package condition

import (
	"github.com/c360/semboot/manifest"
)

// Evaluator filters candidates in batch during selection. The whole
// candidate slice and the manifest metadata are handed over at once so an
// evaluator can amortize cross-candidate lookups instead of answering one
// candidate at a time; the result is an Outcome slice parallel to the
// candidates, and a candidate whose Outcome has Match false is dropped.
//
// A candidate dropped by any evaluator is gone from selection; the
// Outcome's Reason survives in the selection report.
type Evaluator interface {
	// Name identifies the evaluator in selection reports.
	Name() string

	// Skip returns an Outcome per candidate, parallel to candidates;
	// Match false drops the candidate with the Outcome's Reason.
	Skip(candidates []string, m *manifest.Manifest, env Environment) []Outcome
}

// CapabilityRequirements maps candidate identifiers to the capabilities
// they need. Candidates without an entry are never skipped by the
// capability evaluator.
type CapabilityRequirements map[string][]string

// CapabilityEvaluator skips candidates whose declared capability
// requirements are not all available.
type CapabilityEvaluator struct {
	requirements CapabilityRequirements
}

// NewCapabilityEvaluator builds an evaluator over the declared requirements.
func NewCapabilityEvaluator(requirements CapabilityRequirements) *CapabilityEvaluator {
	return &CapabilityEvaluator{requirements: requirements}
}

// Name implements Evaluator.
func (e *CapabilityEvaluator) Name() string { return "capability" }

// Skip implements Evaluator.
func (e *CapabilityEvaluator) Skip(candidates []string, _ *manifest.Manifest, env Environment) []Outcome {
	outcomes := make([]Outcome, len(candidates))
	for i, name := range candidates {
		required, ok := e.requirements[name]
		if !ok {
			outcomes[i] = Matched("no capability requirements declared")
			continue
		}
		outcomes[i] = OnCapability(required...)(env)
	}
	return outcomes
}

// PropertyEvaluator skips candidates disabled through properties: candidate
// "x" is dropped when "<prefix>.x.enabled" is explicitly false. Absent keys
// leave the candidate selected.
type PropertyEvaluator struct {
	prefix string
}

// NewPropertyEvaluator builds an evaluator over keys under prefix
// (conventionally "semboot.candidate").
func NewPropertyEvaluator(prefix string) *PropertyEvaluator {
	return &PropertyEvaluator{prefix: prefix}
}

// Name implements Evaluator.
func (e *PropertyEvaluator) Name() string { return "property" }

// Skip implements Evaluator.
func (e *PropertyEvaluator) Skip(candidates []string, _ *manifest.Manifest, env Environment) []Outcome {
	outcomes := make([]Outcome, len(candidates))
	for i, name := range candidates {
		key := e.prefix + "." + name + ".enabled"
		if env.Properties.Has(key) && !env.Properties.Bool(key, true) {
			outcomes[i] = NoMatch("disabled via property %q", key)
			continue
		}
		outcomes[i] = Matched("not disabled via property")
	}
	return outcomes
}

// EvaluatorFunc adapts a function into a named Evaluator.
type EvaluatorFunc struct {
	EvaluatorName string
	Func          func(candidates []string, m *manifest.Manifest, env Environment) []Outcome
}

// Name implements Evaluator.
func (e EvaluatorFunc) Name() string { return e.EvaluatorName }

// Skip implements Evaluator.
func (e EvaluatorFunc) Skip(candidates []string, m *manifest.Manifest, env Environment) []Outcome {
	return e.Func(candidates, m, env)
}
