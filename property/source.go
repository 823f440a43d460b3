// Package property provides hierarchical externalized configuration for
// boot-time wiring. Values are addressed by dotted keys ("nats.urls",
// "http.port"), loaded from layered YAML documents with environment
// variable overrides, and consumed either through typed getters with
// coercion or through all-or-nothing binding into typed config structs.
package property

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360/semboot/errors"
)

// Source holds a resolved configuration tree. A Source is immutable after
// construction; layering happens in the Loader.
type Source struct {
	tree map[string]any
}

// NewSource wraps a raw configuration tree. Nested maps may use string or
// any keys (both YAML decodings are accepted).
func NewSource(tree map[string]any) *Source {
	if tree == nil {
		tree = make(map[string]any)
	}
	return &Source{tree: normalize(tree)}
}

// Empty returns a source with no values; every lookup falls back to its
// default.
func Empty() *Source {
	return NewSource(nil)
}

// Loader assembles a Source from YAML layers and environment overrides.
// Later layers override earlier ones; environment variables override both.
type Loader struct {
	layers    []map[string]any
	envPrefix string
}

// NewLoader creates a configuration loader with the SEMBOOT_ env prefix.
func NewLoader() *Loader {
	return &Loader{envPrefix: "SEMBOOT"}
}

// SetEnvPrefix overrides the environment variable prefix.
func (l *Loader) SetEnvPrefix(prefix string) {
	l.envPrefix = prefix
}

// AddYAML parses a YAML document from r and appends it as a layer.
func (l *Loader) AddYAML(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrap(err, "Loader", "AddYAML", "document read")
	}

	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return errors.WrapInvalid(err, "Loader", "AddYAML", "document parsing")
	}
	l.layers = append(l.layers, normalize(tree))
	return nil
}

// AddFile loads the named YAML file from fsys and appends it as a layer.
func (l *Loader) AddFile(fsys fs.FS, path string) error {
	f, err := fsys.Open(path)
	if err != nil {
		return errors.WrapFatal(err, "Loader", "AddFile", "file open")
	}
	defer func() { _ = f.Close() }()

	return l.AddYAML(f)
}

// Load merges all layers and applies environment overrides.
func (l *Loader) Load() *Source {
	merged := make(map[string]any)
	for _, layer := range l.layers {
		merged = deepMerge(merged, layer)
	}

	src := &Source{tree: merged}
	l.applyEnvOverrides(src)
	return src
}

// applyEnvOverrides maps PREFIX_SECTION_KEY variables onto tree paths.
// Variable name segments are matched greedily against existing keys so
// multi-word keys stay addressable (SEMBOOT_HTTP_READ_TIMEOUT lands on
// http.read_timeout when that key exists); unmatched segments become one
// path element each. Values stay strings and rely on getter and binding
// coercion.
func (l *Loader) applyEnvOverrides(src *Source) {
	prefix := l.envPrefix + "_"
	for _, kv := range os.Environ() {
		name, value, found := strings.Cut(kv, "=")
		if !found || !strings.HasPrefix(name, prefix) {
			continue
		}
		src.set(src.resolveKey(strings.TrimPrefix(name, prefix)), value)
	}
}

// resolveKey converts an underscore-separated variable name into a dotted
// key, preferring the longest run of segments that matches an existing
// key at each level of the tree.
func (s *Source) resolveKey(name string) string {
	segments := strings.Split(strings.ToLower(name), "_")
	parts := make([]string, 0, len(segments))
	node := s.tree
	i := 0
	for i < len(segments) && node != nil {
		matched := false
		for j := len(segments); j > i; j-- {
			key := strings.Join(segments[i:j], "_")
			v, ok := node[key]
			if !ok {
				continue
			}
			parts = append(parts, key)
			i = j
			node, _ = v.(map[string]any)
			matched = true
			break
		}
		if !matched {
			break
		}
	}
	for ; i < len(segments); i++ {
		parts = append(parts, segments[i])
	}
	return strings.Join(parts, ".")
}

// Get returns the raw value at the dotted key.
func (s *Source) Get(key string) (any, bool) {
	node := any(s.tree)
	for _, part := range strings.Split(key, ".") {
		m, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}
		node, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return node, true
}

// Has reports whether the key is present.
func (s *Source) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// String returns the value at key coerced to a string, or def when absent.
func (s *Source) String(key, def string) string {
	v, ok := s.Get(key)
	if !ok {
		return def
	}
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return def
	}
}

// Bool returns the value at key coerced to a bool, or def when absent or
// not coercible.
func (s *Source) Bool(key string, def bool) bool {
	v, ok := s.Get(key)
	if !ok {
		return def
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		if b, err := strconv.ParseBool(t); err == nil {
			return b
		}
	}
	return def
}

// Int returns the value at key coerced to an int, or def.
func (s *Source) Int(key string, def int) int {
	v, ok := s.Get(key)
	if !ok {
		return def
	}
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		if t == float64(int(t)) {
			return int(t)
		}
	case string:
		if n, err := strconv.Atoi(t); err == nil {
			return n
		}
	}
	return def
}

// Float returns the value at key coerced to a float64, or def.
func (s *Source) Float(key string, def float64) float64 {
	v, ok := s.Get(key)
	if !ok {
		return def
	}
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case string:
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return f
		}
	}
	return def
}

// Duration returns the value at key coerced to a time.Duration, or def.
// String values accept Go duration syntax plus a day suffix ("14d");
// bare numbers are taken as nanoseconds per encoding convention.
func (s *Source) Duration(key string, def time.Duration) time.Duration {
	v, ok := s.Get(key)
	if !ok {
		return def
	}
	switch t := v.(type) {
	case string:
		if d, err := ParseDuration(t); err == nil {
			return d
		}
	case int:
		return time.Duration(t)
	case int64:
		return time.Duration(t)
	case float64:
		return time.Duration(t)
	}
	return def
}

// StringSlice returns the value at key as a string slice, or def. Accepts
// YAML sequences and comma-separated strings; empty elements are dropped.
func (s *Source) StringSlice(key string, def []string) []string {
	v, ok := s.Get(key)
	if !ok {
		return def
	}
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if str, ok := e.(string); ok && str != "" {
				out = append(out, str)
			}
		}
		return out
	case []string:
		return t
	case string:
		parts := strings.Split(t, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return def
}

// ParseDuration parses durations that may include a day suffix (e.g. "14d").
func ParseDuration(s string) (time.Duration, error) {
	if strings.HasSuffix(s, "d") {
		days := strings.TrimSuffix(s, "d")
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid day duration %q: %w", s, err)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

// set writes a value at the dotted key, creating intermediate maps.
func (s *Source) set(key string, value any) {
	parts := strings.Split(key, ".")
	node := s.tree
	for _, part := range parts[:len(parts)-1] {
		next, ok := node[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			node[part] = next
		}
		node = next
	}
	node[parts[len(parts)-1]] = value
}

// deepMerge recursively merges two trees, with override taking precedence.
func deepMerge(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		result[k] = v
	}
	for k, v := range override {
		if v == nil {
			continue
		}
		if baseMap, ok := result[k].(map[string]any); ok {
			if overrideMap, ok := v.(map[string]any); ok {
				result[k] = deepMerge(baseMap, overrideMap)
				continue
			}
		}
		result[k] = v
	}
	return result
}

// normalize converts map[any]any nodes (older YAML decodings) into
// map[string]any recursively.
func normalize(tree map[string]any) map[string]any {
	out := make(map[string]any, len(tree))
	for k, v := range tree {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return normalize(t)
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[fmt.Sprintf("%v", k)] = normalizeValue(e)
		}
		return m
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeValue(e)
		}
		return out
	default:
		return v
	}
}
