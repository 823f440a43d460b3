package engine

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/c360/semboot/capability"
	"github.com/c360/semboot/condition"
	"github.com/c360/semboot/diagnostics"
	"github.com/c360/semboot/errors"
	"github.com/c360/semboot/factory"
	"github.com/c360/semboot/manifest"
	"github.com/c360/semboot/metric"
	"github.com/c360/semboot/property"
	"github.com/c360/semboot/registry"
	"github.com/c360/semboot/selector"
)

// PropertyEvaluatorPrefix is the property namespace the default per-candidate
// enable switch lives under ("<prefix>.<candidate>.enabled").
const PropertyEvaluatorPrefix = "semboot.candidate"

// Engine drives a single startup pass: it selects candidates from the
// manifest, runs each selected candidate's factories in constraint order,
// and registers the constructed objects. The object registry is frozen once
// Start returns successfully; Stop releases objects in reverse order.
type Engine struct {
	factories    *factory.Registry
	manifest     *manifest.Manifest
	entries      []selector.Entry
	evaluators   []condition.Evaluator
	listeners    []selector.Listener
	analyzers    []diagnostics.Analyzer
	incompats    []diagnostics.Incompatibility
	properties   *property.Source
	capabilities *capability.Index
	objects      *registry.Registry
	metricsReg   *metric.Registry
	logger       *slog.Logger
	metrics      *engineMetrics
	bootID       string

	mu      sync.Mutex
	started bool
	stopped bool
	report  *Report
}

// Option configures an Engine.
type Option func(*Engine)

// WithManifest overrides the manifest derived from the factory registry.
func WithManifest(m *manifest.Manifest) Option {
	return func(e *Engine) { e.manifest = m }
}

// WithEntries sets the selection entries. Without entries the engine runs a
// single full-manifest entry sourced from the engine itself.
func WithEntries(entries ...selector.Entry) Option {
	return func(e *Engine) { e.entries = append(e.entries, entries...) }
}

// WithEvaluators adds evaluators on top of the built-in capability and
// property evaluators.
func WithEvaluators(evaluators ...condition.Evaluator) Option {
	return func(e *Engine) { e.evaluators = append(e.evaluators, evaluators...) }
}

// WithListeners registers selection listeners.
func WithListeners(listeners ...selector.Listener) Option {
	return func(e *Engine) { e.listeners = append(e.listeners, listeners...) }
}

// WithAnalyzers replaces the default failure analyzers.
func WithAnalyzers(analyzers ...diagnostics.Analyzer) Option {
	return func(e *Engine) { e.analyzers = analyzers }
}

// WithIncompatibilities declares environment combinations checked before
// selection runs.
func WithIncompatibilities(incompats ...diagnostics.Incompatibility) Option {
	return func(e *Engine) { e.incompats = append(e.incompats, incompats...) }
}

// WithProperties sets the property source consulted by conditions,
// evaluators, and factories.
func WithProperties(src *property.Source) Option {
	return func(e *Engine) { e.properties = src }
}

// WithCapabilities sets the capability index.
func WithCapabilities(ix *capability.Index) Option {
	return func(e *Engine) { e.capabilities = ix }
}

// WithMetrics wires a metrics registry. Without one the engine runs with
// metrics disabled.
func WithMetrics(mr *metric.Registry) Option {
	return func(e *Engine) { e.metricsReg = mr }
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// New creates an engine over the given factory registry.
func New(factories *factory.Registry, opts ...Option) (*Engine, error) {
	if factories == nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("factory registry is nil"),
			"engine", "New", "validate configuration")
	}

	e := &Engine{
		factories: factories,
		objects:   registry.New(),
		bootID:    uuid.NewString(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.properties == nil {
		e.properties = property.Empty()
	}
	if e.capabilities == nil {
		e.capabilities = capability.NewIndex(nil)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.logger = e.logger.With("boot_id", e.bootID)
	if e.analyzers == nil {
		e.analyzers = diagnostics.Default()
	}

	metrics, err := newEngineMetrics(e.metricsReg)
	if err != nil {
		e.logger.Error("Failed to initialize engine metrics", "error", err)
		metrics = nil // Continue without metrics
	}
	e.metrics = metrics

	return e, nil
}

// BootID returns the identifier assigned to this engine instance.
func (e *Engine) BootID() string { return e.bootID }

// Objects returns the object registry populated during Start.
func (e *Engine) Objects() *registry.Registry { return e.objects }

// Properties returns the engine's property source.
func (e *Engine) Properties() *property.Source { return e.properties }

// Capabilities returns the engine's capability index.
func (e *Engine) Capabilities() *capability.Index { return e.capabilities }

// Start runs selection and constructs the selected candidates. It is a
// one-shot operation; calling Start on a started engine fails.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "engine", "Start", "begin startup")
	}
	e.started = true

	begin := time.Now()
	success := false
	defer func() {
		e.metrics.recordStartup(success, time.Since(begin).Seconds())
	}()

	report := newReport(e.bootID, begin)
	e.report = report

	err := e.start(ctx, report)
	report.finish(time.Since(begin), err)
	if err != nil {
		e.diagnose(err)
		return err
	}

	success = true
	e.logger.Info("Startup complete",
		"selected", len(report.Selection.Selected),
		"excluded", len(report.Selection.Excluded),
		"roles", len(report.Roles),
		"duration", report.Duration)
	return nil
}

func (e *Engine) start(ctx context.Context, report *Report) error {
	if err := diagnostics.CheckIncompatibilities(e.capabilities, e.incompats, e.logger); err != nil {
		return errors.WrapFatal(err, "engine", "Start", "environment check failed")
	}

	m := e.manifest
	if m == nil {
		derived, err := e.factories.Manifest()
		if err != nil {
			return errors.Wrap(err, "engine", "Start", "derive manifest")
		}
		m = derived
	}

	entries := e.entries
	if len(entries) == 0 {
		entries = []selector.Entry{{Source: "engine"}}
	}

	evaluators := []condition.Evaluator{
		condition.NewCapabilityEvaluator(e.factories.Requirements()),
		condition.NewPropertyEvaluator(PropertyEvaluatorPrefix),
	}
	evaluators = append(evaluators, e.evaluators...)

	sel := selector.New(m,
		selector.WithEvaluators(evaluators...),
		selector.WithListeners(e.listeners...),
		selector.WithLogger(e.logger))

	env := condition.Environment{
		Capabilities: e.capabilities,
		Properties:   e.properties,
		Registry:     e.objects,
	}

	result, err := sel.Select(entries, env)
	if err != nil {
		return errors.Wrap(err, "engine", "Start", "selection failed")
	}
	report.Selection = result
	e.metrics.recordSelection(len(result.Selected), len(result.Excluded))

	for _, name := range result.Selected {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "engine", "Start", "startup canceled")
		}
		if err := e.runCandidate(name, env, report); err != nil {
			return err
		}
	}

	e.objects.Freeze()
	report.Roles = e.objects.Roles()
	return nil
}

// runCandidate evaluates and runs every factory of one selected candidate.
func (e *Engine) runCandidate(name string, env condition.Environment, report *Report) error {
	set, ok := e.factories.Lookup(name)
	if !ok {
		return errors.WrapAuthoring(
			fmt.Errorf("%w: %s", errors.ErrUnknownCandidate, name),
			"engine", "Start", "selected candidate has no factories")
	}

	deps := factory.Dependencies{
		Registry:     e.objects,
		Properties:   e.properties,
		Capabilities: e.capabilities,
		Logger:       e.logger.With("candidate", name),
		Metrics:      e.metricsReg,
	}

	record := CandidateRecord{Name: name}
	for _, f := range set.Factories {
		outcome := f.Gate()(env)
		record.Conditions = append(record.Conditions, ConditionRecord{
			Factory: f.Name,
			Matched: outcome.Match,
			Reason:  outcome.Reason,
		})
		if !outcome.Match {
			e.logger.Debug("Factory skipped",
				"candidate", name, "factory", f.Name, "reason", outcome.Reason)
			continue
		}

		obj, err := f.Build(deps)
		if err != nil {
			e.metrics.recordFactory(name, false)
			report.Candidates = append(report.Candidates, record)
			return errors.Wrap(err, "engine", "Start",
				fmt.Sprintf("factory %s failed", f.Name))
		}
		e.metrics.recordFactory(name, true)

		if f.Role != "" && obj != nil {
			if err := e.objects.Register(f.Role, f.Name, obj); err != nil {
				report.Candidates = append(report.Candidates, record)
				return errors.Wrap(err, "engine", "Start",
					fmt.Sprintf("register role %s", f.Role))
			}
		}
	}
	report.Candidates = append(report.Candidates, record)
	return nil
}

// Stop closes constructed objects implementing io.Closer in reverse
// registration order. Close errors are collected, not short-circuited, so
// every object gets its teardown.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started {
		return errors.WrapInvalid(errors.ErrNotStarted, "engine", "Stop", "begin shutdown")
	}
	if e.stopped {
		return nil
	}
	e.stopped = true

	objects := e.objects.InOrder()
	var errs []error
	for i := len(objects) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		closer, ok := objects[i].(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			e.logger.Error("Object close failed", "error", err)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Wrap(stderrors.Join(errs...), "engine", "Stop", "close objects")
	}
	e.logger.Info("Shutdown complete")
	return nil
}

// Refresh invalidates the capability cache so the next condition probe hits
// the backend again. Selection is not re-run; constructed objects stand.
func (e *Engine) Refresh() {
	e.capabilities.Invalidate()
	e.logger.Debug("Capability cache invalidated")
}

// Report returns a copy of the startup report, or nil before Start runs.
func (e *Engine) Report() *Report {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.report == nil {
		return nil
	}
	return e.report.clone()
}

// diagnose runs the failure analyzers and logs any actionable finding.
func (e *Engine) diagnose(err error) {
	rep := diagnostics.Analyze(err, e.analyzers...)
	if rep == nil {
		e.logger.Error("Startup failed", "error", err)
		return
	}
	e.logger.Error("Startup failed",
		"error", err,
		"description", rep.Description,
		"action", rep.Action)
}
