package solve

import (
	"fmt"
	"sort"

	"strata/pkg/ident"
)

// SolutionEntry is one resolved package within a Solution: its spec,
// the repository it was read from, and — for a source build — the
// build-environment Solution that produced it.
type SolutionEntry struct {
	Spec       *Spec
	Repository PackageRepository
	BuildEnv   *Solution
}

// Solution is the solver's final output: an ordered list of resolved
// package specs, topologically ordered over the runtime dependency
// DAG (providers before consumers), ties broken by resolution order,
// per spec §4.9.
type Solution struct {
	Entries []SolutionEntry
	Options OptionMap
}

// fromResolved builds a Solution from a State's resolved list,
// reordering it topologically. Resolution order alone usually puts a
// consumer ahead of its providers (ResolvePackage only adds a
// dependency's request once the dependent is resolved), so the
// depth-first visit below moves each provider ahead of the packages
// that depend on it.
func fromResolved(s State) (*Solution, error) {
	resolved := s.Resolved()
	index := make(map[string]int, len(resolved))
	for i, r := range resolved {
		index[r.Spec.Pkg.Name] = i
	}

	visited := make([]bool, len(resolved))
	onStack := make([]bool, len(resolved))
	order := make([]int, 0, len(resolved))

	var visit func(i int) error
	visit = func(i int) error {
		if onStack[i] {
			return fmt.Errorf("solve: dependency cycle detected at %s", resolved[i].Spec.Pkg.Name)
		}
		if visited[i] {
			return nil
		}
		onStack[i] = true
		for _, dep := range resolved[i].Spec.Deps {
			if j, ok := index[dep.Name]; ok {
				if err := visit(j); err != nil {
					return err
				}
			}
		}
		onStack[i] = false
		visited[i] = true
		order = append(order, i)
		return nil
	}

	// Visit in original resolution order so ties (packages with no
	// dependency relationship to one another) keep that order, per
	// spec §4.9 ("ties broken by resolution order").
	for i := range resolved {
		if err := visit(i); err != nil {
			return nil, err
		}
	}

	entries := make([]SolutionEntry, 0, len(order))
	for _, i := range order {
		entries = append(entries, SolutionEntry{
			Spec:       resolved[i].Spec,
			Repository: resolved[i].Repository,
			BuildEnv:   resolved[i].BuildEnv,
		})
	}
	return &Solution{Entries: entries, Options: s.Options()}, nil
}

// Idents returns the resolved package identifiers, in solution order —
// a convenience for callers (CLI, tests) that just want the final
// package list.
func (sol *Solution) Idents() []ident.Ident {
	out := make([]ident.Ident, 0, len(sol.Entries))
	for _, e := range sol.Entries {
		out = append(out, e.Spec.Pkg)
	}
	return out
}

// sortedOptionKeys returns m's keys in sorted order, for formatters
// that want deterministic option-map output.
func sortedOptionKeys(m OptionMap) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
