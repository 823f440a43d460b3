// Package capability answers "is this capability available?" queries during
// boot. It replaces runtime classpath reflection with an explicit,
// pluggable backend: applications declare the capabilities their build
// carries (usually via a static list assembled at compile time), and
// conditions query the index instead of probing for types.
//
// Lookups are cached process-wide and lazily populated; Invalidate clears
// the cache on an engine refresh so memory stays bounded across repeated
// evaluations within one process.
package capability

import (
	"sync"
)

// Backend resolves capability names to availability. Implementations must
// be safe for concurrent use and should treat lookups as cheap; expensive
// probing belongs behind the Index cache.
type Backend interface {
	// Resolve reports whether the named capability is available.
	Resolve(name string) bool
}

// BackendFunc adapts a plain function into a Backend.
type BackendFunc func(name string) bool

// Resolve implements Backend.
func (f BackendFunc) Resolve(name string) bool {
	return f(name)
}

// StaticBackend resolves capabilities against a fixed declared set.
type StaticBackend struct {
	names map[string]struct{}
}

// NewStaticBackend builds a backend from the declared capability names.
// Identity is case-sensitive.
func NewStaticBackend(names ...string) *StaticBackend {
	b := &StaticBackend{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		b.names[n] = struct{}{}
	}
	return b
}

// Resolve implements Backend.
func (b *StaticBackend) Resolve(name string) bool {
	_, ok := b.names[name]
	return ok
}

// Index caches capability lookups over a Backend. The zero value is not
// usable; construct with NewIndex.
type Index struct {
	backend Backend

	mu    sync.RWMutex
	cache map[string]bool
}

// NewIndex creates a caching index over backend. A nil backend resolves
// every capability as absent.
func NewIndex(backend Backend) *Index {
	if backend == nil {
		backend = BackendFunc(func(string) bool { return false })
	}
	return &Index{
		backend: backend,
		cache:   make(map[string]bool),
	}
}

// Has reports whether the named capability is available, consulting the
// cache first and the backend on a miss.
func (ix *Index) Has(name string) bool {
	ix.mu.RLock()
	if v, ok := ix.cache[name]; ok {
		ix.mu.RUnlock()
		return v
	}
	ix.mu.RUnlock()

	v := ix.backend.Resolve(name)

	ix.mu.Lock()
	ix.cache[name] = v
	ix.mu.Unlock()

	return v
}

// HasAll reports whether every named capability is available.
func (ix *Index) HasAll(names ...string) bool {
	for _, n := range names {
		if !ix.Has(n) {
			return false
		}
	}
	return true
}

// Missing returns the subset of names that are not available, in input order.
func (ix *Index) Missing(names ...string) []string {
	var missing []string
	for _, n := range names {
		if !ix.Has(n) {
			missing = append(missing, n)
		}
	}
	return missing
}

// Invalidate discards every cached lookup. Called on engine refresh so the
// cache cannot grow unbounded across repeated evaluations.
func (ix *Index) Invalidate() {
	ix.mu.Lock()
	ix.cache = make(map[string]bool)
	ix.mu.Unlock()
}
