// Package memcache is the built-in candidate providing an in-process
// cache: LRU eviction by size with optional TTL expiry and a background
// cleanup loop. It registers under role "cache.local" and activates
// unless "cache.enabled" is explicitly false.
package memcache

import (
	"container/list"
	"fmt"
	"sync"
	"time"

	"github.com/c360/semboot/condition"
	"github.com/c360/semboot/errors"
	"github.com/c360/semboot/factory"
)

const (
	// CandidateName identifies this candidate in the manifest.
	CandidateName = "memcache"

	// Role is the registry role holding the *Cache.
	Role = "cache.local"

	// PropertyPrefix is the configuration subtree bound into Config.
	PropertyPrefix = "cache"
)

// Config is the property holder for the local cache.
type Config struct {
	MaxSize         int           `yaml:"max_size"`
	TTL             time.Duration `yaml:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// DefaultConfig returns the documented defaults. A zero TTL disables
// expiry; entries then leave only through LRU eviction.
func DefaultConfig() Config {
	return Config{
		MaxSize:         1000,
		TTL:             5 * time.Minute,
		CleanupInterval: time.Minute,
	}
}

// Validate checks the configuration is usable.
func (c Config) Validate() error {
	if c.MaxSize <= 0 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: cache.max_size must be positive, got %d", errors.ErrInvalidConfig, c.MaxSize),
			"memcache", "Validate", "check max size")
	}
	if c.TTL > 0 && c.CleanupInterval <= 0 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: cache.cleanup_interval must be positive when ttl is set", errors.ErrInvalidConfig),
			"memcache", "Validate", "check cleanup interval")
	}
	return nil
}

// Stats is a point-in-time snapshot of cache activity.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Expired   uint64
	Size      int
}

type entry struct {
	key       string
	value     any
	expiresAt time.Time // zero when TTL is disabled
}

// Cache is a thread-safe LRU cache with optional TTL expiry.
type Cache struct {
	mu    sync.Mutex
	cfg   Config
	items map[string]*list.Element
	order *list.List // front is most recently used

	hits      uint64
	misses    uint64
	evictions uint64
	expired   uint64

	done      chan struct{}
	closeOnce sync.Once
}

// New creates a cache and starts the cleanup loop when TTL is enabled.
func New(cfg Config) (*Cache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Cache{
		cfg:   cfg,
		items: make(map[string]*list.Element),
		order: list.New(),
		done:  make(chan struct{}),
	}
	if cfg.TTL > 0 {
		go c.cleanupLoop()
	}
	return c, nil
}

// Get retrieves a value and marks it as recently used. Expired entries
// count as misses and are removed on access.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}

	e := element.Value.(*entry)
	if c.isExpired(e) {
		c.removeElement(element)
		c.expired++
		c.misses++
		return nil, false
	}

	c.order.MoveToFront(element)
	c.hits++
	return e.value, true
}

// Set stores a value, evicting the least recently used entry when the
// cache is full.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if c.cfg.TTL > 0 {
		expiresAt = time.Now().Add(c.cfg.TTL)
	}

	if element, ok := c.items[key]; ok {
		e := element.Value.(*entry)
		e.value = value
		e.expiresAt = expiresAt
		c.order.MoveToFront(element)
		return
	}

	element := c.order.PushFront(&entry{key: key, value: value, expiresAt: expiresAt})
	c.items[key] = element

	if len(c.items) > c.cfg.MaxSize {
		if oldest := c.order.Back(); oldest != nil {
			c.removeElement(oldest)
			c.evictions++
		}
	}
}

// Delete removes a key. Returns whether the key was present.
func (c *Cache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, ok := c.items[key]
	if !ok {
		return false
	}
	c.removeElement(element)
	return true
}

// Len returns the number of entries, expired ones included until cleanup.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns an activity snapshot.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Expired:   c.expired,
		Size:      len(c.items),
	}
}

// Close stops the cleanup loop. The cache stays readable after Close.
func (c *Cache) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

func (c *Cache) isExpired(e *entry) bool {
	return !e.expiresAt.IsZero() && time.Now().After(e.expiresAt)
}

// removeElement must be called with the lock held.
func (c *Cache) removeElement(element *list.Element) {
	e := element.Value.(*entry)
	delete(c.items, e.key)
	c.order.Remove(element)
}

func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(c.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *Cache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for element := c.order.Back(); element != nil; {
		prev := element.Prev()
		if e := element.Value.(*entry); c.isExpired(e) {
			c.removeElement(element)
			c.expired++
		}
		element = prev
	}
}

// Set returns the factory set for this candidate.
func Set() factory.Set {
	set := factory.Set{
		Factories: []factory.Factory{
			{
				Name: "memcache.cache",
				Role: Role,
				Conditions: []condition.Condition{
					condition.OnProperty(PropertyPrefix+".enabled", "true", true),
				},
				Build: build,
			},
		},
	}
	set.Candidate.Name = CandidateName
	return set
}

func build(deps factory.Dependencies) (any, error) {
	cfg := DefaultConfig()
	if err := deps.Properties.Bind(PropertyPrefix, &cfg); err != nil {
		return nil, errors.Wrap(err, "memcache", "build", "bind configuration")
	}
	cache, err := New(cfg)
	if err != nil {
		return nil, err
	}
	deps.Logger.Debug("Local cache created",
		"max_size", cfg.MaxSize, "ttl", cfg.TTL)
	return cache, nil
}
