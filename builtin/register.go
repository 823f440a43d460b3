// Package builtin registers the factory sets that ship with the framework.
//
// Built-in candidates:
//   - natsconn: shared NATS connection and JetStream context (requires the
//     "nats" capability)
//   - httpserver: management HTTP surface (health, metrics, boot report)
//   - memcache: in-process LRU/TTL cache
//
// Application candidates are registered separately by the application
// before the engine starts; the manifest derived from the combined
// registry orders natsconn before httpserver so connection health is
// visible from the first management request.
package builtin

import (
	stderrors "errors"

	"github.com/c360/semboot/builtin/httpserver"
	"github.com/c360/semboot/builtin/memcache"
	"github.com/c360/semboot/builtin/natsconn"
	pkgerrors "github.com/c360/semboot/errors"
	"github.com/c360/semboot/factory"
	"github.com/c360/semboot/manifest"
)

// Register adds every built-in factory set to the registry.
func Register(registry *factory.Registry) error {
	if registry == nil {
		return pkgerrors.WrapFatal(
			stderrors.New("registry cannot be nil"),
			"Builtin", "Register", "registry validation")
	}

	if err := registry.Add(natsconn.Set()); err != nil {
		return pkgerrors.WrapInvalid(err, "Builtin", "Register", "natsconn registration")
	}
	if err := registry.Add(httpserver.Set()); err != nil {
		return pkgerrors.WrapInvalid(err, "Builtin", "Register", "httpserver registration")
	}
	if err := registry.Add(memcache.Set()); err != nil {
		return pkgerrors.WrapInvalid(err, "Builtin", "Register", "memcache registration")
	}
	return nil
}

// Manifest returns the manifest carrying only the built-in candidates,
// constraint metadata included.
func Manifest() (*manifest.Manifest, error) {
	return manifest.New(
		natsconn.Set().Candidate,
		httpserver.Set().Candidate,
		memcache.Set().Candidate,
	)
}
