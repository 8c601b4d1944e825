package index

import "sort"

// DetectCycle walks the directed graph formed by every known package's
// provide/replace edges (package name -> every virtual or real name it
// provides or replaces) and reports the first cycle found, e.g. package A
// provides V while package B replaces A and also provides V, and the chain
// of claims loops back on itself. Composer rejects such a graph outright
// (spec §4.3) rather than let the solver's provider search loop or pick an
// arbitrary side of the cycle.
func (idx *Index) DetectCycle() (cycle []string, found bool) {
	edges := idx.provideReplaceEdges()

	names := make([]string, 0, len(edges))
	for name := range edges {
		names = append(names, name)
	}
	sort.Strings(names)

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(edges))
	var stack []string

	var visit func(name string) ([]string, bool)
	visit = func(name string) ([]string, bool) {
		switch state[name] {
		case visiting:
			// Found the back-edge that closes the cycle: trim the stack to
			// just the loop (from name's first occurrence to here).
			for i, s := range stack {
				if s == name {
					return append(append([]string(nil), stack[i:]...), name), true
				}
			}
			return []string{name, name}, true
		case done:
			return nil, false
		}
		state[name] = visiting
		stack = append(stack, name)
		targets := append([]string(nil), edges[name]...)
		sort.Strings(targets)
		for _, t := range targets {
			if _, ok := edges[t]; !ok {
				continue // t is never itself a provider/replacer, so it can't close a cycle
			}
			if c, found := visit(t); found {
				return c, true
			}
		}
		stack = stack[:len(stack)-1]
		state[name] = done
		return nil, false
	}

	for _, name := range names {
		if state[name] != unvisited {
			continue
		}
		if c, found := visit(name); found {
			return c, true
		}
	}
	return nil, false
}

// provideReplaceEdges builds package-name -> target-name edges from every
// entry currently cached in the index, deduplicated across that package's
// versions (a cycle is a property of package identity, not of any one
// version).
func (idx *Index) provideReplaceEdges() map[string][]string {
	edges := make(map[string][]string)
	for _, shard := range idx.entries {
		shard.mu.RLock()
		for name, item := range shard.m {
			if item.entry == nil {
				continue
			}
			seen := make(map[string]bool)
			var targets []string
			for _, pv := range item.entry.Versions {
				for t := range pv.Provides {
					if !seen[t] {
						seen[t] = true
						targets = append(targets, t)
					}
				}
				for t := range pv.Replaces {
					if !seen[t] {
						seen[t] = true
						targets = append(targets, t)
					}
				}
			}
			if len(targets) > 0 {
				edges[name] = targets
			}
		}
		shard.mu.RUnlock()
	}
	return edges
}
