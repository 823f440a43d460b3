package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semboot/capability"
	"github.com/c360/semboot/condition"
	"github.com/c360/semboot/diagnostics"
	"github.com/c360/semboot/errors"
	"github.com/c360/semboot/factory"
	"github.com/c360/semboot/metric"
	"github.com/c360/semboot/property"
	"github.com/c360/semboot/selector"
)

// recordingCloser tracks close order across objects.
type recordingCloser struct {
	name  string
	order *[]string
}

func (c *recordingCloser) Close() error {
	*c.order = append(*c.order, c.name)
	return nil
}

func constBuild(obj any) factory.BuildFunc {
	return func(factory.Dependencies) (any, error) { return obj, nil }
}

func simpleSet(name, role string) factory.Set {
	set := factory.Set{
		Factories: []factory.Factory{
			{Name: name + ".factory", Role: role, Build: constBuild(name + "-object")},
		},
	}
	set.Candidate.Name = name
	return set
}

func registryWith(t *testing.T, sets ...factory.Set) *factory.Registry {
	t.Helper()
	reg := factory.NewRegistry()
	for _, set := range sets {
		require.NoError(t, reg.Add(set))
	}
	return reg
}

func props(t *testing.T, doc string) *property.Source {
	t.Helper()
	loader := property.NewLoader()
	require.NoError(t, loader.AddYAML(strings.NewReader(doc)))
	return loader.Load()
}

func TestEngine_StartBuildsSelectedCandidates(t *testing.T) {
	reg := registryWith(t,
		simpleSet("alpha", "svc.alpha"),
		simpleSet("beta", "svc.beta"))

	e, err := New(reg)
	require.NoError(t, err)
	require.NotEmpty(t, e.BootID())

	require.NoError(t, e.Start(context.Background()))

	obj, ok := e.Objects().Lookup("svc.alpha")
	require.True(t, ok)
	assert.Equal(t, "alpha-object", obj)
	obj, ok = e.Objects().Lookup("svc.beta")
	require.True(t, ok)
	assert.Equal(t, "beta-object", obj)

	// Registry is frozen after startup.
	err = e.Objects().Register("svc.late", "late", "x")
	assert.ErrorIs(t, err, errors.ErrRegistryFrozen)

	report := e.Report()
	require.NotNil(t, report)
	assert.Equal(t, e.BootID(), report.BootID)
	assert.ElementsMatch(t, []string{"alpha", "beta"}, report.Selection.Selected)
	assert.ElementsMatch(t, []string{"svc.alpha", "svc.beta"}, report.Roles)
	assert.Empty(t, report.Error)
}

func TestEngine_ConstraintOrder(t *testing.T) {
	var built []string
	track := func(name string) factory.BuildFunc {
		return func(factory.Dependencies) (any, error) {
			built = append(built, name)
			return name, nil
		}
	}

	first := factory.Set{Factories: []factory.Factory{{Name: "first.factory", Role: "first", Build: track("first")}}}
	first.Candidate.Name = "first"

	second := factory.Set{Factories: []factory.Factory{{Name: "second.factory", Role: "second", Build: track("second")}}}
	second.Candidate.Name = "second"
	second.Candidate.Before = []string{"first"}

	// Registration order says first, constraint says second runs first.
	reg := registryWith(t, first, second)

	e, err := New(reg)
	require.NoError(t, err)
	require.NoError(t, e.Start(context.Background()))

	assert.Equal(t, []string{"second", "first"}, built)
}

func TestEngine_FactoryConditionSkips(t *testing.T) {
	set := factory.Set{Factories: []factory.Factory{{
		Name:       "gated.factory",
		Role:       "gated",
		Conditions: []condition.Condition{condition.OnProperty("feature.flag", "on", false)},
		Build:      constBuild("gated-object"),
	}}}
	set.Candidate.Name = "gated"

	e, err := New(registryWith(t, set))
	require.NoError(t, err)
	require.NoError(t, e.Start(context.Background()))

	assert.False(t, e.Objects().Has("gated"))

	report := e.Report()
	require.Len(t, report.Candidates, 1)
	require.Len(t, report.Candidates[0].Conditions, 1)
	record := report.Candidates[0].Conditions[0]
	assert.Equal(t, "gated.factory", record.Factory)
	assert.False(t, record.Matched)
	assert.NotEmpty(t, record.Reason)
}

func TestEngine_BackoffWhenRoleOccupied(t *testing.T) {
	primary := factory.Set{Factories: []factory.Factory{{
		Name: "primary.factory", Role: "cache", Build: constBuild("primary-cache"),
	}}}
	primary.Candidate.Name = "primary"

	fallback := factory.Set{Factories: []factory.Factory{{
		Name: "fallback.factory", Role: "cache", Build: constBuild("fallback-cache"),
	}}}
	fallback.Candidate.Name = "fallback"
	fallback.Candidate.After = []string{"primary"}

	e, err := New(registryWith(t, primary, fallback))
	require.NoError(t, err)
	require.NoError(t, e.Start(context.Background()))

	obj, ok := e.Objects().Lookup("cache")
	require.True(t, ok)
	assert.Equal(t, "primary-cache", obj)
	provider, _ := e.Objects().Provider("cache")
	assert.Equal(t, "primary.factory", provider)
}

func TestEngine_CapabilityRequirementExcludesCandidate(t *testing.T) {
	needy := simpleSet("needy", "svc.needy")
	needy.Requires = []string{"nats"}

	e, err := New(registryWith(t, needy, simpleSet("plain", "svc.plain")),
		WithCapabilities(capability.NewIndex(capability.NewStaticBackend())))
	require.NoError(t, err)
	require.NoError(t, e.Start(context.Background()))

	report := e.Report()
	assert.Equal(t, []string{"plain"}, report.Selection.Selected)
	require.Len(t, report.Selection.Excluded, 1)
	assert.Equal(t, "needy", report.Selection.Excluded[0].Name)
	assert.False(t, e.Objects().Has("svc.needy"))
}

func TestEngine_PropertyDisableExcludesCandidate(t *testing.T) {
	e, err := New(registryWith(t, simpleSet("alpha", "svc.alpha")),
		WithProperties(props(t, "semboot:\n  candidate:\n    alpha:\n      enabled: false\n")))
	require.NoError(t, err)
	require.NoError(t, e.Start(context.Background()))

	assert.Empty(t, e.Report().Selection.Selected)
	assert.False(t, e.Objects().Has("svc.alpha"))
}

func TestEngine_ExcludeProperty(t *testing.T) {
	e, err := New(registryWith(t, simpleSet("alpha", "svc.alpha"), simpleSet("beta", "svc.beta")),
		WithProperties(props(t, "semboot:\n  exclude:\n    - beta\n")))
	require.NoError(t, err)
	require.NoError(t, e.Start(context.Background()))

	report := e.Report()
	assert.Equal(t, []string{"alpha"}, report.Selection.Selected)
	require.Len(t, report.Selection.Excluded, 1)
	assert.Equal(t, "beta", report.Selection.Excluded[0].Name)
	assert.Contains(t, report.Selection.Excluded[0].Reason, selector.ExcludeProperty)
}

func TestEngine_StartTwiceFails(t *testing.T) {
	e, err := New(registryWith(t, simpleSet("alpha", "svc.alpha")))
	require.NoError(t, err)
	require.NoError(t, e.Start(context.Background()))

	err = e.Start(context.Background())
	assert.ErrorIs(t, err, errors.ErrAlreadyStarted)
}

func TestEngine_StopClosesReverseOrder(t *testing.T) {
	var closed []string
	a := factory.Set{Factories: []factory.Factory{{
		Name: "a.factory", Role: "a",
		Build: constBuild(&recordingCloser{name: "a", order: &closed}),
	}}}
	a.Candidate.Name = "a"
	b := factory.Set{Factories: []factory.Factory{{
		Name: "b.factory", Role: "b",
		Build: constBuild(&recordingCloser{name: "b", order: &closed}),
	}}}
	b.Candidate.Name = "b"
	b.Candidate.After = []string{"a"}

	e, err := New(registryWith(t, a, b))
	require.NoError(t, err)
	require.NoError(t, e.Start(context.Background()))
	require.NoError(t, e.Stop(context.Background()))

	assert.Equal(t, []string{"b", "a"}, closed)

	// Second Stop is a no-op.
	require.NoError(t, e.Stop(context.Background()))
	assert.Equal(t, []string{"b", "a"}, closed)
}

func TestEngine_StopBeforeStartFails(t *testing.T) {
	e, err := New(registryWith(t, simpleSet("alpha", "svc.alpha")))
	require.NoError(t, err)

	err = e.Stop(context.Background())
	assert.ErrorIs(t, err, errors.ErrNotStarted)
}

func TestEngine_FactoryBuildErrorFailsStartup(t *testing.T) {
	set := factory.Set{Factories: []factory.Factory{{
		Name: "broken.factory", Role: "broken",
		Build: func(factory.Dependencies) (any, error) {
			return nil, errors.WrapFatal(errors.ErrMissingConfig, "broken", "Build", "load config")
		},
	}}}
	set.Candidate.Name = "broken"

	e, err := New(registryWith(t, set))
	require.NoError(t, err)

	err = e.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrMissingConfig)
	assert.NotEmpty(t, e.Report().Error)
}

func TestEngine_IncompatibilityBlocksStart(t *testing.T) {
	e, err := New(registryWith(t, simpleSet("alpha", "svc.alpha")),
		WithCapabilities(capability.NewIndex(capability.NewStaticBackend("tracing"))),
		WithIncompatibilities(diagnostics.Incompatibility{
			Name:   "tracing exporter",
			When:   "tracing",
			Needs:  "tracing.exporter",
			Remedy: "add an exporter or drop tracing",
		}))
	require.NoError(t, err)

	err = e.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrIncompatible)
}

func TestEngine_RefreshInvalidatesCapabilityCache(t *testing.T) {
	available := false
	backend := capability.BackendFunc(func(string) bool { return available })

	e, err := New(registryWith(t, simpleSet("alpha", "svc.alpha")),
		WithCapabilities(capability.NewIndex(backend)))
	require.NoError(t, err)

	assert.False(t, e.Capabilities().Has("nats"))
	available = true
	// Cached miss until refresh.
	assert.False(t, e.Capabilities().Has("nats"))
	e.Refresh()
	assert.True(t, e.Capabilities().Has("nats"))
}

func TestEngine_MetricsWired(t *testing.T) {
	e, err := New(registryWith(t, simpleSet("alpha", "svc.alpha")),
		WithMetrics(metric.NewRegistry()))
	require.NoError(t, err)
	require.NotNil(t, e.metrics)
	require.NoError(t, e.Start(context.Background()))
}

func TestEngine_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e, err := New(registryWith(t, simpleSet("alpha", "svc.alpha")))
	require.NoError(t, err)

	err = e.Start(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_NilFactoriesFails(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}
