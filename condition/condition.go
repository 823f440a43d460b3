// Package condition provides the activation predicates that gate candidate
// selection and factory execution. Conditions are pure functions over an
// explicit environment snapshot (capability index, property source, object
// registry); they have no side effects beyond the structured reason each
// outcome carries.
package condition

import (
	"fmt"
	"strings"

	"github.com/c360/semboot/capability"
	"github.com/c360/semboot/property"
	"github.com/c360/semboot/registry"
)

// Environment is the boot-time state snapshot conditions evaluate against.
type Environment struct {
	Capabilities *capability.Index
	Properties   *property.Source
	Registry     *registry.Registry
}

// Outcome is a match decision plus a human-readable justification.
// Outcomes are never persisted; they are recomputed per evaluation.
type Outcome struct {
	Match  bool
	Reason string
}

// Matched builds a positive outcome.
func Matched(format string, args ...any) Outcome {
	return Outcome{Match: true, Reason: fmt.Sprintf(format, args...)}
}

// NoMatch builds a negative outcome.
func NoMatch(format string, args ...any) Outcome {
	return Outcome{Match: false, Reason: fmt.Sprintf(format, args...)}
}

// Condition gates one activation decision.
type Condition func(env Environment) Outcome

// OnCapability matches when every named capability is available.
func OnCapability(names ...string) Condition {
	return func(env Environment) Outcome {
		missing := env.Capabilities.Missing(names...)
		if len(missing) > 0 {
			return NoMatch("missing capabilities: %s", strings.Join(missing, ", "))
		}
		return Matched("capabilities present: %s", strings.Join(names, ", "))
	}
}

// OnMissingCapability matches when none of the named capabilities are
// available. Used for fallback factories.
func OnMissingCapability(names ...string) Condition {
	return func(env Environment) Outcome {
		var present []string
		for _, n := range names {
			if env.Capabilities.Has(n) {
				present = append(present, n)
			}
		}
		if len(present) > 0 {
			return NoMatch("capabilities unexpectedly present: %s", strings.Join(present, ", "))
		}
		return Matched("capabilities absent: %s", strings.Join(names, ", "))
	}
}

// OnProperty matches when the property at key equals want (string
// comparison after coercion). When the key is absent, matchIfMissing
// decides the outcome.
func OnProperty(key, want string, matchIfMissing bool) Condition {
	return func(env Environment) Outcome {
		if !env.Properties.Has(key) {
			if matchIfMissing {
				return Matched("property %q absent, matching by default", key)
			}
			return NoMatch("property %q absent", key)
		}
		got := env.Properties.String(key, "")
		if got != want {
			return NoMatch("property %q is %q, want %q", key, got, want)
		}
		return Matched("property %q is %q", key, got)
	}
}

// OnPropertySet matches when the property at key is present, whatever its
// value.
func OnPropertySet(key string) Condition {
	return func(env Environment) Outcome {
		if !env.Properties.Has(key) {
			return NoMatch("property %q absent", key)
		}
		return Matched("property %q present", key)
	}
}

// OnObject matches when role is already occupied in the registry.
func OnObject(role string) Condition {
	return func(env Environment) Outcome {
		if !env.Registry.Has(role) {
			return NoMatch("role %q not registered", role)
		}
		return Matched("role %q registered", role)
	}
}

// OnMissingObject matches when role is unoccupied. This is the
// mutual-exclusion gate: a fallback factory activates only when no other
// factory already produced an object for the role.
func OnMissingObject(role string) Condition {
	return func(env Environment) Outcome {
		if env.Registry.Has(role) {
			provider, _ := env.Registry.Provider(role)
			return NoMatch("role %q already provided by %q", role, provider)
		}
		return Matched("role %q unoccupied", role)
	}
}

// AllOf matches when every condition matches. Evaluation short-circuits on
// the first rejection, whose reason is propagated.
func AllOf(conditions ...Condition) Condition {
	return func(env Environment) Outcome {
		for _, c := range conditions {
			if outcome := c(env); !outcome.Match {
				return outcome
			}
		}
		return Matched("all %d conditions matched", len(conditions))
	}
}

// AnyOf matches when at least one condition matches.
func AnyOf(conditions ...Condition) Condition {
	return func(env Environment) Outcome {
		var reasons []string
		for _, c := range conditions {
			outcome := c(env)
			if outcome.Match {
				return outcome
			}
			reasons = append(reasons, outcome.Reason)
		}
		return NoMatch("no condition matched: %s", strings.Join(reasons, "; "))
	}
}

// Not inverts a condition.
func Not(c Condition) Condition {
	return func(env Environment) Outcome {
		outcome := c(env)
		if outcome.Match {
			return NoMatch("inverted: %s", outcome.Reason)
		}
		return Matched("inverted: %s", outcome.Reason)
	}
}
