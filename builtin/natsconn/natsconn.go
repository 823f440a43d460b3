// Package natsconn is the built-in candidate providing a shared NATS
// connection. It activates only when the build carries the "nats"
// capability and "nats.enabled" is not false; the JetStream context is a
// second factory gated on the connection role being occupied.
package natsconn

import (
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/semboot/condition"
	"github.com/c360/semboot/errors"
	"github.com/c360/semboot/factory"
	"github.com/c360/semboot/property"
	"github.com/c360/semboot/registry"
)

const (
	// CandidateName identifies this candidate in the manifest.
	CandidateName = "natsconn"

	// RoleConn is the registry role holding the *Conn wrapper.
	RoleConn = "nats.conn"

	// RoleJetStream is the registry role holding the jetstream.JetStream
	// context.
	RoleJetStream = "nats.jetstream"

	// PropertyPrefix is the configuration subtree bound into Config.
	PropertyPrefix = "nats"
)

// Config is the property holder for the NATS connection.
type Config struct {
	URLs          []string      `yaml:"urls"`
	Name          string        `yaml:"name"`
	Username      string        `yaml:"username"`
	Password      string        `yaml:"password"`
	Token         string        `yaml:"token"`
	MaxReconnects int           `yaml:"max_reconnects"`
	ReconnectWait time.Duration `yaml:"reconnect_wait"`
	Timeout       time.Duration `yaml:"timeout"`
	DrainTimeout  time.Duration `yaml:"drain_timeout"`
	JetStream     bool          `yaml:"jetstream"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		URLs:          []string{nats.DefaultURL},
		Name:          "semboot",
		MaxReconnects: -1, // infinite
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
		DrainTimeout:  30 * time.Second,
		JetStream:     true,
	}
}

// Validate checks the configuration is usable.
func (c Config) Validate() error {
	if len(c.URLs) == 0 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: nats.urls must not be empty", errors.ErrInvalidConfig),
			"natsconn", "Validate", "check urls")
	}
	for _, raw := range c.URLs {
		if _, err := property.SplitURL(raw); err != nil {
			return errors.WrapInvalid(
				fmt.Errorf("%w: nats.urls entry %q: %v", errors.ErrInvalidConfig, raw, err),
				"natsconn", "Validate", "check urls")
		}
	}
	if c.Timeout <= 0 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: nats.timeout must be positive, got %v", errors.ErrInvalidConfig, c.Timeout),
			"natsconn", "Validate", "check timeout")
	}
	if c.Token != "" && c.Username != "" {
		return errors.WrapInvalid(
			fmt.Errorf("%w: nats.token and nats.username are mutually exclusive", errors.ErrInvalidConfig),
			"natsconn", "Validate", "check credentials")
	}
	return nil
}

// options translates the holder into nats.go connect options.
func (c Config) options() []nats.Option {
	opts := []nats.Option{
		nats.Name(c.Name),
		nats.MaxReconnects(c.MaxReconnects),
		nats.ReconnectWait(c.ReconnectWait),
		nats.Timeout(c.Timeout),
		nats.DrainTimeout(c.DrainTimeout),
	}
	switch {
	case c.Token != "":
		opts = append(opts, nats.Token(c.Token))
	case c.Username != "":
		opts = append(opts, nats.UserInfo(c.Username, c.Password))
	}
	return opts
}

// Conn wraps the shared NATS connection with drain-on-close semantics so
// the engine tears it down cleanly in reverse registration order.
type Conn struct {
	conn *nats.Conn
}

// Conn returns the underlying NATS connection.
func (c *Conn) Conn() *nats.Conn { return c.conn }

// IsConnected reports whether the connection is currently up.
func (c *Conn) IsConnected() bool { return c.conn.IsConnected() }

// Close drains in-flight messages and closes the connection. Drain
// already bounds itself with the configured drain timeout.
func (c *Conn) Close() error {
	if err := c.conn.Drain(); err != nil {
		c.conn.Close()
		return errors.Wrap(err, "natsconn", "Close", "drain connection")
	}
	return nil
}

// Set returns the factory set for this candidate. The connection factory
// runs before the management HTTP server so its health is observable from
// the first request.
func Set() factory.Set {
	set := factory.Set{
		Requires: []string{"nats"},
		Factories: []factory.Factory{
			{
				Name: "natsconn.conn",
				Role: RoleConn,
				Conditions: []condition.Condition{
					condition.OnProperty(PropertyPrefix+".enabled", "true", true),
				},
				Build: buildConn,
			},
			{
				Name: "natsconn.jetstream",
				Role: RoleJetStream,
				Conditions: []condition.Condition{
					condition.OnObject(RoleConn),
					condition.OnProperty(PropertyPrefix+".jetstream", "true", true),
				},
				Build: buildJetStream,
			},
		},
	}
	set.Candidate.Name = CandidateName
	set.Candidate.Before = []string{"httpserver"}
	return set
}

func buildConn(deps factory.Dependencies) (any, error) {
	cfg := DefaultConfig()
	if err := deps.Properties.Bind(PropertyPrefix, &cfg); err != nil {
		return nil, errors.Wrap(err, "natsconn", "buildConn", "bind configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	servers := strings.Join(cfg.URLs, ",")
	conn, err := nats.Connect(servers, cfg.options()...)
	if err != nil {
		return nil, errors.Wrap(err, "natsconn", "buildConn",
			fmt.Sprintf("connect to %s", servers))
	}

	deps.Logger.Info("NATS connection established",
		"servers", servers, "name", cfg.Name)
	return &Conn{conn: conn}, nil
}

func buildJetStream(deps factory.Dependencies) (any, error) {
	conn, ok, err := registry.As[*Conn](deps.Registry, RoleConn)
	if err != nil {
		return nil, errors.Wrap(err, "natsconn", "buildJetStream", "resolve connection")
	}
	if !ok {
		// The OnObject gate makes this unreachable in a normal boot.
		return nil, errors.WrapFatal(
			fmt.Errorf("%w: role %s", errors.ErrMissingRole, RoleConn),
			"natsconn", "buildJetStream", "resolve connection")
	}

	js, err := jetstream.New(conn.Conn())
	if err != nil {
		return nil, errors.Wrap(err, "natsconn", "buildJetStream", "create JetStream context")
	}

	deps.Logger.Info("JetStream context created")
	return js, nil
}
