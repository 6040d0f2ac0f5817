package solve

import (
	"fmt"
	"testing"

	"strata/pkg/ident"
)

// memRepository is a minimal in-memory PackageRepository used to drive
// the Engine through the scenarios spec §8 describes, without needing
// a real on-disk spec store.
type memRepository struct {
	name  string
	specs map[string][]*Spec
}

func newMemRepository(name string) *memRepository {
	return &memRepository{name: name, specs: map[string][]*Spec{}}
}

func (r *memRepository) add(spec *Spec) {
	r.specs[spec.Pkg.Name] = append(r.specs[spec.Pkg.Name], spec)
}

func (r *memRepository) Name() string { return r.name }

func (r *memRepository) ListVersions(pkgName string) ([]*Spec, error) {
	return r.specs[pkgName], nil
}

func (r *memRepository) ReadSpec(identStr string) (*Spec, error) {
	id, err := ident.Parse(identStr)
	if err != nil {
		return nil, err
	}
	for _, s := range r.specs[id.Name] {
		if s.Pkg.Version.Equal(id.Version) {
			return s, nil
		}
	}
	return nil, fmt.Errorf("no such spec: %s", identStr)
}

func (r *memRepository) CanReadSpecs() bool { return true }

func mustIdent(t *testing.T, s string) ident.Ident {
	t.Helper()
	id, err := ident.Parse(s)
	if err != nil {
		t.Fatalf("parse ident %q: %v", s, err)
	}
	return id
}

// TestEngineBacktrack implements spec §8 scenario 5: package A has
// versions {2.0, 1.0}, package B has version {1.0} requiring A<2.0.
// The solver must try A=2.0 first (descending order), fail to resolve
// B against it, step back, and retry with A=1.0.
func TestEngineBacktrack(t *testing.T) {
	repo := newMemRepository("test")
	repo.add(&Spec{Pkg: mustIdent(t, "a/2.0.0")})
	repo.add(&Spec{Pkg: mustIdent(t, "a/1.0.0")})
	repo.add(&Spec{Pkg: mustIdent(t, "b/1.0.0"), Deps: []PkgRequest{{Name: "a", Range: "<2.0.0"}}})

	engine := NewEngine(repo)
	solution, err := engine.SolveRequests([]PkgRequest{{Name: "a"}, {Name: "b"}}, nil)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}

	idents := solution.Idents()
	if len(idents) != 2 {
		t.Fatalf("expected 2 resolved packages, got %d: %v", len(idents), idents)
	}

	var a, b ident.Ident
	for _, id := range idents {
		switch id.Name {
		case "a":
			a = id
		case "b":
			b = id
		}
	}
	if a.Version.String() != "1.0.0" {
		t.Errorf("expected a to backtrack to 1.0.0, got %s", a.Version)
	}
	if b.Version.String() != "1.0.0" {
		t.Errorf("expected b=1.0.0, got %s", b.Version)
	}
}

// TestEngineUnsolvable exercises the all-history-exhausted path: no
// candidate for a requested package exists at all, so the very first
// step raises OutOfOptions with no history left to pop.
func TestEngineUnsolvable(t *testing.T) {
	repo := newMemRepository("test")
	engine := NewEngine(repo)

	if _, err := engine.SolveRequests([]PkgRequest{{Name: "missing"}}, nil); err == nil {
		t.Fatal("expected a SolverError for an unsatisfiable request")
	}
}

// TestEngineBuildFromSource implements spec §8 scenario 6: a requested
// package has only a source spec; the solver recursively solves its
// build options and records a BuildPackage decision carrying the
// build-environment Solution.
func TestEngineBuildFromSource(t *testing.T) {
	repo := newMemRepository("test")
	repo.add(&Spec{
		Pkg:          mustIdent(t, "c/1.0.0"),
		Source:       true,
		BuildOptions: []PkgOpt{{Name: "gcc"}},
	})
	repo.add(&Spec{Pkg: mustIdent(t, "gcc/9.0.0")})

	engine := NewEngine(repo)
	solution, err := engine.SolveRequests([]PkgRequest{{Name: "c"}}, nil)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}

	if len(solution.Entries) != 1 {
		t.Fatalf("expected 1 resolved package, got %d", len(solution.Entries))
	}
	entry := solution.Entries[0]
	if entry.Spec.Pkg.Name != "c" {
		t.Fatalf("expected c resolved, got %s", entry.Spec.Pkg.Name)
	}
	if entry.BuildEnv == nil {
		t.Fatal("expected a recorded build environment Solution")
	}
	buildIdents := entry.BuildEnv.Idents()
	if len(buildIdents) != 1 || buildIdents[0].Name != "gcc" {
		t.Fatalf("expected build env to resolve gcc, got %v", buildIdents)
	}
}

// TestDefaultValidatorsVersionRange checks ValidateVersionRange in
// isolation, independent of the full engine loop.
func TestDefaultValidatorsVersionRange(t *testing.T) {
	state := RequestPackage{Request: PkgRequest{Name: "a", Range: "<2.0.0"}}.Apply(DefaultState())

	ok := ValidateVersionRange(state, &Spec{Pkg: mustIdent(t, "a/1.0.0")})
	if !ok.OK() {
		t.Errorf("expected a/1.0.0 to satisfy <2.0.0, got %v", ok)
	}

	bad := ValidateVersionRange(state, &Spec{Pkg: mustIdent(t, "a/2.0.0")})
	if bad.OK() {
		t.Errorf("expected a/2.0.0 to violate <2.0.0")
	}
}
