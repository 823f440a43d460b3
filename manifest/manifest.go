// Package manifest loads the static list of candidate configuration units
// that the selector considers at startup. The manifest is a plain-text
// resource, one candidate identifier per line, with optional inline
// priority metadata declaring before/after ordering constraints:
//
//	# core infrastructure
//	nats-connection
//	http-server after=nats-connection
//	local-cache before=http-server,nats-connection
//
// Lines beginning with '#' and blank lines are ignored. The manifest is
// read once per engine start and is immutable after load: an empty
// manifest is a packaging error and aborts startup.
package manifest

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/c360/semboot/errors"
)

// Candidate names one conditionally-activatable configuration unit together
// with its declared ordering constraints. Before and After reference other
// candidate identifiers; referencing an identifier absent from the manifest
// is allowed and simply imposes no constraint.
type Candidate struct {
	Name   string
	Before []string
	After  []string
}

// Manifest is the immutable candidate list in declaration order.
type Manifest struct {
	candidates []Candidate
	index      map[string]int
}

// Parse reads a manifest from r. It fails fast with ErrEmptyManifest when
// no candidates remain after stripping comments and blank lines, since an
// empty manifest indicates a packaging error rather than a valid state.
func Parse(r io.Reader) (*Manifest, error) {
	m := &Manifest{index: make(map[string]int)}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		candidate, err := parseLine(line)
		if err != nil {
			return nil, errors.WrapAuthoring(
				fmt.Errorf("line %d: %w", lineNo, err),
				"Manifest", "Parse", "candidate line parsing")
		}

		// Exact duplicate lines collapse to the first occurrence; duplicates
		// with conflicting metadata are an authoring bug.
		if prev, exists := m.index[candidate.Name]; exists {
			if !equalConstraints(m.candidates[prev], candidate) {
				return nil, errors.WrapAuthoring(
					fmt.Errorf("%w: '%s' declared twice with conflicting metadata",
						errors.ErrDuplicateCandidate, candidate.Name),
					"Manifest", "Parse", "duplicate candidate check")
			}
			continue
		}

		m.index[candidate.Name] = len(m.candidates)
		m.candidates = append(m.candidates, candidate)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "Manifest", "Parse", "manifest read")
	}

	if len(m.candidates) == 0 {
		return nil, errors.WrapAuthoring(
			errors.ErrEmptyManifest, "Manifest", "Parse", "candidate loading")
	}

	return m, nil
}

// Load reads a manifest from the named file in fsys.
func Load(fsys fs.FS, path string) (*Manifest, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, errors.WrapFatal(err, "Manifest", "Load", "manifest open")
	}
	defer func() { _ = f.Close() }()

	return Parse(f)
}

// New builds a manifest directly from candidates, preserving order.
// Used by built-in factory sets that declare their own entries in code.
func New(candidates ...Candidate) (*Manifest, error) {
	m := &Manifest{index: make(map[string]int)}
	for _, c := range candidates {
		if c.Name == "" {
			return nil, errors.WrapInvalid(
				errors.ErrInvalidConfig, "Manifest", "New", "candidate name validation")
		}
		if _, exists := m.index[c.Name]; exists {
			return nil, errors.WrapAuthoring(
				fmt.Errorf("%w: '%s'", errors.ErrDuplicateCandidate, c.Name),
				"Manifest", "New", "duplicate candidate check")
		}
		m.index[c.Name] = len(m.candidates)
		m.candidates = append(m.candidates, c)
	}
	if len(m.candidates) == 0 {
		return nil, errors.WrapAuthoring(
			errors.ErrEmptyManifest, "Manifest", "New", "candidate loading")
	}
	return m, nil
}

// Merge combines manifests in order, collapsing duplicate candidates to
// their first occurrence. Conflicting metadata for the same identifier is
// an authoring bug.
func Merge(manifests ...*Manifest) (*Manifest, error) {
	merged := &Manifest{index: make(map[string]int)}
	for _, m := range manifests {
		if m == nil {
			continue
		}
		for _, c := range m.candidates {
			if prev, exists := merged.index[c.Name]; exists {
				if !equalConstraints(merged.candidates[prev], c) {
					return nil, errors.WrapAuthoring(
						fmt.Errorf("%w: '%s' declared twice with conflicting metadata",
							errors.ErrDuplicateCandidate, c.Name),
						"Manifest", "Merge", "duplicate candidate check")
				}
				continue
			}
			merged.index[c.Name] = len(merged.candidates)
			merged.candidates = append(merged.candidates, c)
		}
	}
	if len(merged.candidates) == 0 {
		return nil, errors.WrapAuthoring(
			errors.ErrEmptyManifest, "Manifest", "Merge", "candidate loading")
	}
	return merged, nil
}

// Candidates returns the candidate list in declaration order.
// The returned slice is a copy.
func (m *Manifest) Candidates() []Candidate {
	out := make([]Candidate, len(m.candidates))
	copy(out, m.candidates)
	return out
}

// Names returns the candidate identifiers in declaration order.
func (m *Manifest) Names() []string {
	names := make([]string, len(m.candidates))
	for i, c := range m.candidates {
		names[i] = c.Name
	}
	return names
}

// Contains reports whether the manifest declares the identifier.
// Identity is case-sensitive.
func (m *Manifest) Contains(name string) bool {
	_, ok := m.index[name]
	return ok
}

// Lookup returns the candidate declared under name.
func (m *Manifest) Lookup(name string) (Candidate, bool) {
	i, ok := m.index[name]
	if !ok {
		return Candidate{}, false
	}
	return m.candidates[i], true
}

// Len returns the number of declared candidates.
func (m *Manifest) Len() int {
	return len(m.candidates)
}

// parseLine parses "ident [before=a,b] [after=c,d]".
func parseLine(line string) (Candidate, error) {
	fields := strings.Fields(line)
	candidate := Candidate{Name: fields[0]}

	if err := validateIdentifier(candidate.Name); err != nil {
		return Candidate{}, err
	}

	for _, field := range fields[1:] {
		key, value, found := strings.Cut(field, "=")
		if !found {
			return Candidate{}, fmt.Errorf("malformed metadata %q (want key=value)", field)
		}
		refs, err := splitRefs(value)
		if err != nil {
			return Candidate{}, fmt.Errorf("metadata %q: %w", field, err)
		}
		switch key {
		case "before":
			candidate.Before = append(candidate.Before, refs...)
		case "after":
			candidate.After = append(candidate.After, refs...)
		default:
			return Candidate{}, fmt.Errorf("unknown metadata key %q", key)
		}
	}

	return candidate, nil
}

// splitRefs splits a comma-separated identifier list, validating each entry.
func splitRefs(value string) ([]string, error) {
	parts := strings.Split(value, ",")
	refs := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if err := validateIdentifier(p); err != nil {
			return nil, err
		}
		refs = append(refs, p)
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("empty identifier list")
	}
	return refs, nil
}

// validateIdentifier restricts identifiers to name-safe characters,
// matching the registry's component naming rules.
func validateIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("empty identifier")
	}
	for _, r := range name {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.') {
			return fmt.Errorf("invalid character %q in identifier %q", r, name)
		}
	}
	return nil
}

func equalConstraints(a, b Candidate) bool {
	return equalStrings(a.Before, b.Before) && equalStrings(a.After, b.After)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
