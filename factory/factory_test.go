package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semboot/capability"
	"github.com/c360/semboot/condition"
	"github.com/c360/semboot/errors"
	"github.com/c360/semboot/manifest"
	"github.com/c360/semboot/property"
	"github.com/c360/semboot/registry"
)

func testDeps() Dependencies {
	return Dependencies{
		Registry:     registry.New(),
		Properties:   property.Empty(),
		Capabilities: capability.NewIndex(capability.NewStaticBackend("nats")),
	}
}

func noopBuild(Dependencies) (any, error) { return "built", nil }

func TestRegistry_Add(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Add(Set{
		Candidate: manifest.Candidate{Name: "nats-connection"},
		Requires:  []string{"nats"},
		Factories: []Factory{{Name: "nats-conn", Role: "nats.conn", Build: noopBuild}},
	}))
	require.NoError(t, r.Add(Set{
		Candidate: manifest.Candidate{Name: "http-server", After: []string{"nats-connection"}},
		Factories: []Factory{{Name: "http-server", Role: "http.server", Build: noopBuild}},
	}))

	assert.Equal(t, []string{"nats-connection", "http-server"}, r.Names())
	assert.Equal(t, 2, r.Len())

	set, ok := r.Lookup("nats-connection")
	require.True(t, ok)
	assert.Equal(t, "nats-conn", set.Factories[0].Name)

	_, ok = r.Lookup("absent")
	assert.False(t, ok)
}

func TestRegistry_AddValidation(t *testing.T) {
	r := NewRegistry()

	require.Error(t, r.Add(Set{Candidate: manifest.Candidate{Name: ""}}))
	require.Error(t, r.Add(Set{Candidate: manifest.Candidate{Name: "empty-set"}}))
	require.Error(t, r.Add(Set{
		Candidate: manifest.Candidate{Name: "nil-build"},
		Factories: []Factory{{Name: "x"}},
	}))

	require.NoError(t, r.Add(Set{
		Candidate: manifest.Candidate{Name: "dup"},
		Factories: []Factory{{Name: "a", Build: noopBuild}},
	}))
	err := r.Add(Set{
		Candidate: manifest.Candidate{Name: "dup"},
		Factories: []Factory{{Name: "b", Build: noopBuild}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrDuplicateCandidate)
}

func TestRegistry_ManifestAndRequirements(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Add(Set{
		Candidate: manifest.Candidate{Name: "b", Before: []string{"a"}},
		Requires:  []string{"nats"},
		Factories: []Factory{{Name: "b", Build: noopBuild}},
	}))
	require.NoError(t, r.Add(Set{
		Candidate: manifest.Candidate{Name: "a"},
		Factories: []Factory{{Name: "a", Build: noopBuild}},
	}))

	m, err := r.Manifest()
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, m.Names())

	c, ok := m.Lookup("b")
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, c.Before)

	reqs := r.Requirements()
	assert.Equal(t, []string{"nats"}, reqs["b"])
	_, declared := reqs["a"]
	assert.False(t, declared)
}

func TestFactory_Gate(t *testing.T) {
	deps := testDeps()
	env := deps.Environment()

	// Unconditional factory without role always matches
	f := Factory{Name: "plain", Build: noopBuild}
	assert.True(t, f.Gate()(env).Match)

	// Role gate: matches while unoccupied, rejects once filled
	f = Factory{Name: "cache", Role: "cache.local", Build: noopBuild}
	assert.True(t, f.Gate()(env).Match)

	require.NoError(t, deps.Registry.Register("cache.local", "other-factory", "obj"))
	outcome := f.Gate()(env)
	assert.False(t, outcome.Match)
	assert.Contains(t, outcome.Reason, "other-factory")

	// Explicit conditions combine with the role gate
	f = Factory{
		Name:       "nats",
		Role:       "nats.conn",
		Conditions: []condition.Condition{condition.OnCapability("nats")},
		Build:      noopBuild,
	}
	assert.True(t, f.Gate()(env).Match)

	f.Conditions = []condition.Condition{condition.OnCapability("redis")}
	assert.False(t, f.Gate()(env).Match)
}
