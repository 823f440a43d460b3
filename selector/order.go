package selector

import (
	"fmt"
	"sort"
	"strings"

	"github.com/c360/semboot/errors"
)

// order produces a total order over the surviving candidates consistent
// with the manifest's before/after constraints: a stable topological sort
// over the full manifest (so constraints stay transitive through dropped
// candidates), filtered to the survivors. The survivors' first-seen
// aggregation order is the tie-break for otherwise-unconstrained pairs,
// so entry-supplied candidate lists keep their declared order; a
// constraint cycle is a configuration-authoring bug.
func (s *Selector) order(survivors []string) ([]string, error) {
	if len(survivors) <= 1 {
		return survivors, nil
	}

	names := s.manifest.Names()
	index := make(map[string]int, len(names))
	for i, name := range names {
		index[name] = i
	}

	// Tie-break rank: survivors by first-seen position, dropped candidates
	// after them in manifest order. Dropped candidates never reach the
	// output; their rank only decides when their outgoing edges release.
	rank := make([]int, len(names))
	for i := range names {
		rank[i] = len(survivors) + i
	}
	for pos, name := range survivors {
		rank[index[name]] = pos
	}

	// Edge u -> v means u must precede v. "x before=y" adds x -> y;
	// "x after=y" adds y -> x. References to identifiers outside the
	// manifest impose no constraint.
	successors := make(map[int][]int, len(names))
	indegree := make([]int, len(names))
	addEdge := func(u, v int) {
		successors[u] = append(successors[u], v)
		indegree[v]++
	}

	for _, c := range s.manifest.Candidates() {
		ci := index[c.Name]
		for _, ref := range c.Before {
			if ri, ok := index[ref]; ok {
				addEdge(ci, ri)
			}
		}
		for _, ref := range c.After {
			if ri, ok := index[ref]; ok {
				addEdge(ri, ci)
			}
		}
	}

	// Kahn's algorithm, always taking the ready candidate with the lowest
	// rank so unconstrained survivors keep their first-seen order.
	var ready []int
	for i := range names {
		if indegree[i] == 0 {
			ready = append(ready, i)
		}
	}
	sort.Slice(ready, func(a, b int) bool { return rank[ready[a]] < rank[ready[b]] })

	sorted := make([]int, 0, len(names))
	for len(ready) > 0 {
		current := ready[0]
		ready = ready[1:]
		sorted = append(sorted, current)

		changed := false
		for _, next := range successors[current] {
			indegree[next]--
			if indegree[next] == 0 {
				ready = append(ready, next)
				changed = true
			}
		}
		if changed {
			sort.Slice(ready, func(a, b int) bool { return rank[ready[a]] < rank[ready[b]] })
		}
	}

	if len(sorted) != len(names) {
		var cycle []string
		for i, name := range names {
			if indegree[i] > 0 {
				cycle = append(cycle, name)
			}
		}
		return nil, errors.WrapAuthoring(
			fmt.Errorf("%w: involving %s", errors.ErrConstraintCycle, strings.Join(cycle, ", ")),
			"Selector", "order", "priority constraint sorting")
	}

	surviving := make(map[string]struct{}, len(survivors))
	for _, name := range survivors {
		surviving[name] = struct{}{}
	}

	ordered := make([]string, 0, len(survivors))
	for _, i := range sorted {
		if _, ok := surviving[names[i]]; ok {
			ordered = append(ordered, names[i])
		}
	}
	return ordered, nil
}
