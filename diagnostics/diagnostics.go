// Package diagnostics translates boot failures into structured remediation
// guidance. Analyzers inspect an error chain and, when they recognize the
// failure, produce a report describing what went wrong and what the
// operator should change. The first matching analyzer wins; unrecognized
// errors pass through untouched.
package diagnostics

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/c360/semboot/capability"
	"github.com/c360/semboot/errors"
)

// Report is structured remediation guidance for one failure.
type Report struct {
	Description string
	Action      string
}

// Render formats a report for operator consumption.
func (r *Report) Render() string {
	var b strings.Builder
	b.WriteString("Application failed to start\n\n")
	b.WriteString("Description:\n")
	b.WriteString(r.Description)
	b.WriteString("\n\nAction:\n")
	b.WriteString(r.Action)
	b.WriteString("\n")
	return b.String()
}

// Analyzer recognizes one failure class. Analyze returns nil when the
// error is not recognized.
type Analyzer interface {
	Analyze(err error) *Report
}

// AnalyzerFunc adapts a function into an Analyzer.
type AnalyzerFunc func(err error) *Report

// Analyze implements Analyzer.
func (f AnalyzerFunc) Analyze(err error) *Report { return f(err) }

// Analyze runs err through analyzers; the first non-nil report wins.
func Analyze(err error, analyzers ...Analyzer) *Report {
	if err == nil {
		return nil
	}
	for _, a := range analyzers {
		if report := a.Analyze(err); report != nil {
			return report
		}
	}
	return nil
}

// Default returns the built-in analyzer chain.
func Default() []Analyzer {
	return []Analyzer{
		AnalyzerFunc(analyzeEmptyManifest),
		AnalyzerFunc(analyzeInvalidExclusions),
		AnalyzerFunc(analyzeConstraintCycle),
		AnalyzerFunc(analyzeMissingRole),
		AnalyzerFunc(analyzeDuplicateRole),
		AnalyzerFunc(analyzeBindFailure),
		AnalyzerFunc(analyzeIncompatibility),
	}
}

func analyzeEmptyManifest(err error) *Report {
	if !stderrors.Is(err, errors.ErrEmptyManifest) {
		return nil
	}
	return &Report{
		Description: "The candidate manifest contains no configuration units.",
		Action: "An empty manifest indicates a packaging error: verify the manifest " +
			"resource is bundled with the application and that built-in factory sets " +
			"are registered before the engine starts.",
	}
}

func analyzeInvalidExclusions(err error) *Report {
	if !stderrors.Is(err, errors.ErrInvalidExclusion) {
		return nil
	}
	return &Report{
		Description: err.Error(),
		Action: "Each excluded identifier must name a declared candidate. Remove the " +
			"listed exclusions or correct their spelling (identifiers are case-sensitive).",
	}
}

func analyzeConstraintCycle(err error) *Report {
	if !stderrors.Is(err, errors.ErrConstraintCycle) {
		return nil
	}
	return &Report{
		Description: err.Error(),
		Action: "The before/after metadata of the listed candidates forms a cycle. " +
			"Remove one of the conflicting constraints so a total order exists.",
	}
}

func analyzeMissingRole(err error) *Report {
	if !stderrors.Is(err, errors.ErrMissingRole) {
		return nil
	}
	return &Report{
		Description: err.Error(),
		Action: "A factory requires an infrastructure object that no earlier factory " +
			"provided. Enable the candidate that provides the role, or adjust the " +
			"configuration mode so the dependent factory does not activate.",
	}
}

func analyzeDuplicateRole(err error) *Report {
	if !stderrors.Is(err, errors.ErrDuplicateRole) {
		return nil
	}
	return &Report{
		Description: err.Error(),
		Action: "Two factories produced an object for the same role. Gate one of them " +
			"on the role being unoccupied, or exclude one of the candidates.",
	}
}

func analyzeBindFailure(err error) *Report {
	if !stderrors.Is(err, errors.ErrBindFailed) {
		return nil
	}
	return &Report{
		Description: err.Error(),
		Action: "A configuration value does not match the type its holder declares. " +
			"Correct the named key in the configuration file or environment override.",
	}
}

func analyzeIncompatibility(err error) *Report {
	if !stderrors.Is(err, errors.ErrIncompatible) {
		return nil
	}
	return &Report{
		Description: err.Error(),
		Action: "The build carries an incompatible capability combination. Add the " +
			"missing companion capability or remove the partial integration.",
	}
}

// Incompatibility declares a known-problematic capability combination:
// When is present but Needs is missing, the integration cannot work.
// Combinations with a fallback degrade with a warning; the rest are fatal.
type Incompatibility struct {
	Name     string
	When     string
	Needs    string
	Remedy   string
	Fallback bool
}

// CheckIncompatibilities probes the capability index for known-problematic
// combinations. Fallback-capable findings are logged and skipped; the
// first finding without a fallback is returned as a fatal error carrying
// its remediation message.
func CheckIncompatibilities(ix *capability.Index, incompats []Incompatibility, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	for _, inc := range incompats {
		if !ix.Has(inc.When) || ix.Has(inc.Needs) {
			continue
		}
		if inc.Fallback {
			logger.Warn("degraded capability combination",
				"integration", inc.Name,
				"present", inc.When,
				"missing", inc.Needs,
				"remedy", inc.Remedy)
			continue
		}
		return errors.WrapFatal(
			fmt.Errorf("%w: %s requires capability '%s' alongside '%s': %s",
				errors.ErrIncompatible, inc.Name, inc.Needs, inc.When, inc.Remedy),
			"Diagnostics", "CheckIncompatibilities", "capability probe")
	}
	return nil
}
