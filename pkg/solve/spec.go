// Package solve implements strata's backtracking dependency solver: an
// append-only search graph of States connected by Changes, walked by
// an Engine that resolves a set of package requests into a topologically
// ordered Solution.
//
// Grounded on original_source's spk/solve/_solver.py (the Solver.solve
// main loop, _step_state, the two-tier OutOfOptions/generic-exception
// catch, build-environment recursion) and spec.md §4.7-4.9/§9 for the
// graph/validation/iterator abstractions that original_source's
// retrieved files (_graph.py, _validation.py, _package_iterator.py) did
// not include in this pack. Structured logging of decisions follows
// the original's structlog usage, translated through internal/obslog.
package solve

import "strata/pkg/ident"

// PkgOpt is a build-time option a package spec declares, matching
// original_source's api.PkgOpt: a named variable whose value can be
// supplied as a build-environment package request.
type PkgOpt struct {
	Name    string
	Default string
}

// Spec is a minimal package specification: its identity, whether it is
// a source (buildable-from-source) package, its runtime dependencies,
// and any build options a source build would need resolved first.
//
// This intentionally only carries the fields the solver's control flow
// needs (spec.md's data flow note describes the solver as consuming
// "Repository package listings", not full package metadata); richer
// spec fields (build scripts, install instructions) live in
// internal/specfile's on-disk YAML form and are irrelevant to solving.
type Spec struct {
	Pkg          ident.Ident
	Source       bool
	Deps         []PkgRequest
	BuildOptions []PkgOpt
}

// IsSource reports whether spec names a source (not yet built) package.
func (s *Spec) IsSource() bool { return s.Source }

// WithBuild returns a copy of spec's identity with its build token
// replaced, or cleared when build is "". Used when a build-from-source
// candidate needs to be re-read as its unbuilt base spec.
func (s *Spec) WithBuild(build string) (ident.Ident, error) {
	return s.Pkg.WithBuild(build)
}
