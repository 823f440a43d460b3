// Package selector produces the ordered, deduplicated, exclusion-filtered,
// condition-filtered list of candidate configuration units to activate.
//
// Selection is a pure two-phase batch over boot-time state: phase one
// resolves each boot entry (dedupe, exclusion validation, subtraction,
// batch condition filtering); phase two aggregates entries, re-subtracts
// the union of exclusions, and establishes a total order consistent with
// the manifest's declared before/after constraints, breaking ties by the
// survivors' first-seen order across entries.
//
// Identifier identity is case-sensitive throughout: exclusions, property
// lists, and manifest entries that differ only in case name different
// candidates.
package selector

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/c360/semboot/condition"
	"github.com/c360/semboot/errors"
	"github.com/c360/semboot/manifest"
)

// ExcludeProperty is the externalized key holding the property-based
// exclusion list (comma-separated or YAML array form).
const ExcludeProperty = "semboot.exclude"

// Entry is one boot descriptor's contribution to selection: the candidates
// it imports and the exclusions it declares. An empty Candidates slice
// imports the full manifest.
type Entry struct {
	Source     string
	Candidates []string
	Exclusions []string
}

// Exclusion records why a candidate was dropped.
type Exclusion struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Result is the final selection decision.
type Result struct {
	Selected []string    `json:"selected"`
	Excluded []Exclusion `json:"excluded"`
}

// Listener observes the final selection decision before Select returns.
// Notification is a side channel only; it cannot alter the result.
type Listener interface {
	OnSelection(result Result)
}

// ListenerFunc adapts a function into a Listener.
type ListenerFunc func(result Result)

// OnSelection implements Listener.
func (f ListenerFunc) OnSelection(result Result) { f(result) }

// Selector computes activation lists against a fixed manifest.
type Selector struct {
	manifest   *manifest.Manifest
	evaluators []condition.Evaluator
	listeners  []Listener
	logger     *slog.Logger
}

// Option configures the Selector.
type Option func(*Selector)

// WithEvaluators appends batch condition evaluators. A candidate rejected
// by any evaluator is dropped.
func WithEvaluators(evaluators ...condition.Evaluator) Option {
	return func(s *Selector) {
		s.evaluators = append(s.evaluators, evaluators...)
	}
}

// WithListeners appends selection listeners.
func WithListeners(listeners ...Listener) Option {
	return func(s *Selector) {
		s.listeners = append(s.listeners, listeners...)
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Selector) {
		s.logger = logger
	}
}

// New creates a Selector over m. The manifest must be non-empty; manifest
// loading already guarantees that.
func New(m *manifest.Manifest, opts ...Option) *Selector {
	s := &Selector{
		manifest: m,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select resolves entries against the manifest and environment, returning
// the ordered activation list. Fatal conditions (empty manifest, invalid
// exclusions, constraint cycles) abort immediately; all other filtering is
// deterministic and non-throwing.
func (s *Selector) Select(entries []Entry, env condition.Environment) (Result, error) {
	if s.manifest == nil || s.manifest.Len() == 0 {
		return Result{}, errors.WrapAuthoring(
			errors.ErrEmptyManifest, "Selector", "Select", "manifest validation")
	}

	if len(entries) == 0 {
		entries = []Entry{{Source: "default"}}
	}

	// Property exclusions apply to every entry.
	propertyExclusions := env.Properties.StringSlice(ExcludeProperty, nil)

	type resolved struct {
		survivors  []string
		exclusions map[string]struct{}
	}

	var (
		results      []resolved
		allExcluded  []Exclusion
		excludedSeen = make(map[string]struct{})
	)

	recordExcluded := func(name, reason string) {
		if _, seen := excludedSeen[name]; seen {
			return
		}
		excludedSeen[name] = struct{}{}
		allExcluded = append(allExcluded, Exclusion{Name: name, Reason: reason})
	}

	for _, entry := range entries {
		candidates := entry.Candidates
		if len(candidates) == 0 {
			candidates = s.manifest.Names()
		}
		candidates = dedupe(candidates)

		var unknown []string
		for _, name := range candidates {
			if !s.manifest.Contains(name) {
				unknown = append(unknown, name)
			}
		}
		if len(unknown) > 0 {
			return Result{}, errors.WrapInvalid(
				errors.Enumerate(errors.ErrUnknownCandidate,
					"the following candidates are not declared in the manifest", unknown),
				"Selector", "Select", "candidate validation")
		}

		exclusions := unionExclusions(entry.Exclusions, propertyExclusions)
		if err := s.validateExclusions(exclusions, env); err != nil {
			return Result{}, err
		}

		// Subtract exclusions before condition filtering.
		var remaining []string
		for _, name := range candidates {
			if _, excluded := exclusions[name]; excluded {
				recordExcluded(name, fmt.Sprintf("excluded by %s", entry.describeSource()))
				continue
			}
			remaining = append(remaining, name)
		}

		remaining = s.applyEvaluators(remaining, env, recordExcluded)

		results = append(results, resolved{survivors: remaining, exclusions: exclusions})
	}

	// Aggregate: union survivors in first-seen order, union exclusions,
	// subtract the union once more.
	unionExcl := make(map[string]struct{})
	for _, r := range results {
		for name := range r.exclusions {
			unionExcl[name] = struct{}{}
		}
	}

	var (
		aggregated []string
		seen       = make(map[string]struct{})
	)
	for _, r := range results {
		for _, name := range r.survivors {
			if _, dup := seen[name]; dup {
				continue
			}
			if _, excluded := unionExcl[name]; excluded {
				recordExcluded(name, "excluded by another boot entry")
				continue
			}
			seen[name] = struct{}{}
			aggregated = append(aggregated, name)
		}
	}

	ordered, err := s.order(aggregated)
	if err != nil {
		return Result{}, err
	}

	result := Result{Selected: ordered, Excluded: allExcluded}

	s.logger.Debug("configuration selection complete",
		"selected", len(result.Selected),
		"excluded", len(result.Excluded))

	// Side-channel notification only; listeners cannot affect the result.
	for _, l := range s.listeners {
		l.OnSelection(result)
	}

	return result, nil
}

// validateExclusions reports, in one error, every exclusion that names a
// resolvable capability unit yet is absent from the manifest's candidate
// list. Unresolvable exclusions are ignored: excluding a unit the build
// does not carry is harmless.
func (s *Selector) validateExclusions(exclusions map[string]struct{}, env condition.Environment) error {
	var invalid []string
	for name := range exclusions {
		if s.manifest.Contains(name) {
			continue
		}
		if env.Capabilities.Has(name) {
			invalid = append(invalid, name)
		}
	}
	sort.Strings(invalid)

	if len(invalid) > 0 {
		return errors.WrapAuthoring(
			errors.Enumerate(errors.ErrInvalidExclusion,
				"the following exclusions are resolvable but match no candidate", invalid),
			"Selector", "Select", "exclusion validation")
	}
	return nil
}

// applyEvaluators runs the batch evaluators; a candidate rejected by any
// evaluator is dropped with its reason recorded.
func (s *Selector) applyEvaluators(
	candidates []string, env condition.Environment, recordExcluded func(name, reason string),
) []string {
	if len(s.evaluators) == 0 || len(candidates) == 0 {
		return candidates
	}

	dropped := make([]bool, len(candidates))
	for _, evaluator := range s.evaluators {
		outcomes := evaluator.Skip(candidates, s.manifest, env)
		for i, outcome := range outcomes {
			if i >= len(candidates) {
				break
			}
			if !outcome.Match && !dropped[i] {
				dropped[i] = true
				recordExcluded(candidates[i],
					fmt.Sprintf("rejected by %s evaluator: %s", evaluator.Name(), outcome.Reason))
			}
		}
	}

	var survivors []string
	for i, name := range candidates {
		if !dropped[i] {
			survivors = append(survivors, name)
		}
	}
	return survivors
}

// dedupe removes exact duplicates preserving first-occurrence order.
func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// unionExclusions merges exclusion lists into a case-sensitive set.
func unionExclusions(lists ...[]string) map[string]struct{} {
	union := make(map[string]struct{})
	for _, list := range lists {
		for _, name := range list {
			if name != "" {
				union[name] = struct{}{}
			}
		}
	}
	return union
}

func (e Entry) describeSource() string {
	if e.Source == "" {
		return "boot entry"
	}
	return "boot entry " + e.Source
}
