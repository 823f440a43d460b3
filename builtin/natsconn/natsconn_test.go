package natsconn

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semboot/capability"
	"github.com/c360/semboot/condition"
	"github.com/c360/semboot/property"
	"github.com/c360/semboot/registry"
)

func sourceOf(t *testing.T, doc string) *property.Source {
	t.Helper()
	loader := property.NewLoader()
	require.NoError(t, loader.AddYAML(strings.NewReader(doc)))
	return loader.Load()
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, []string{"nats://127.0.0.1:4222"}, cfg.URLs)
	assert.Equal(t, "semboot", cfg.Name)
	assert.Equal(t, -1, cfg.MaxReconnects)
	assert.Equal(t, 2*time.Second, cfg.ReconnectWait)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 30*time.Second, cfg.DrainTimeout)
	assert.True(t, cfg.JetStream)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_BindOverrides(t *testing.T) {
	src := sourceOf(t, `
nats:
  urls:
    - nats://broker-1:4222
    - nats://broker-2:4222
  name: edge-node
  reconnect_wait: 500ms
  max_reconnects: 10
`)

	cfg := DefaultConfig()
	require.NoError(t, src.Bind(PropertyPrefix, &cfg))

	assert.Equal(t, []string{"nats://broker-1:4222", "nats://broker-2:4222"}, cfg.URLs)
	assert.Equal(t, "edge-node", cfg.Name)
	assert.Equal(t, 500*time.Millisecond, cfg.ReconnectWait)
	assert.Equal(t, 10, cfg.MaxReconnects)
	// Untouched keys keep their defaults.
	assert.Equal(t, 5*time.Second, cfg.Timeout)
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.URLs = nil
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Timeout = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Token = "tok"
	cfg.Username = "user"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.URLs = []string{"not-a-url"}
	assert.Error(t, cfg.Validate())
}

func TestSet_Shape(t *testing.T) {
	set := Set()
	assert.Equal(t, CandidateName, set.Candidate.Name)
	assert.Equal(t, []string{"httpserver"}, set.Candidate.Before)
	assert.Equal(t, []string{"nats"}, set.Requires)
	require.Len(t, set.Factories, 2)
	assert.Equal(t, RoleConn, set.Factories[0].Role)
	assert.Equal(t, RoleJetStream, set.Factories[1].Role)
}

func TestSet_Gates(t *testing.T) {
	set := Set()
	env := condition.Environment{
		Capabilities: capability.NewIndex(capability.NewStaticBackend("nats")),
		Properties:   sourceOf(t, "nats:\n  enabled: false\n"),
		Registry:     registry.New(),
	}

	// Connection factory backs off when nats.enabled is explicitly false.
	outcome := set.Factories[0].Gate()(env)
	assert.False(t, outcome.Match)

	// JetStream factory never runs without the connection role.
	outcome = set.Factories[1].Gate()(env)
	assert.False(t, outcome.Match)

	// With defaults the connection gate matches.
	env.Properties = property.Empty()
	outcome = set.Factories[0].Gate()(env)
	assert.True(t, outcome.Match)
}
