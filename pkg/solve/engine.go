package solve

import (
	"fmt"

	"strata/internal/obslog"
)

// SolverError is raised when the Engine backtracks all the way past
// its root without finding a Solution, per spec §7.
type SolverError struct {
	Reason string
}

func (e *SolverError) Error() string { return fmt.Sprintf("solve: %s", e.Reason) }

// OutOfOptionsError signals that a package name's candidate iterator
// was exhausted without yielding a compatible spec. The Engine loop
// catches this (spec §4.7/§7) and converts it into a backtrack rather
// than letting it abort the solve outright.
type OutOfOptionsError struct {
	Package string
	Notes   []Note
}

func (e *OutOfOptionsError) Error() string {
	return fmt.Sprintf("solve: out of options for %s", e.Package)
}

// Engine walks the search graph of spec §4.7-4.9: repeatedly stepping
// the current node's next pending request through its candidate
// iterator, validating each candidate, and branching forward on
// success or backtracking through history on exhaustion.
type Engine struct {
	Repositories []PackageRepository
	Validators   []Validator
}

// NewEngine builds an Engine with the default validator chain (spec
// §4.7: version-range, option-consistency, dependency-consistency).
// Callers that want a binary-only solve should prepend BinaryOnly to
// the returned Engine's Validators.
func NewEngine(repos ...PackageRepository) *Engine {
	return &Engine{Repositories: repos, Validators: DefaultValidators()}
}

// SolveRequests is the common entrypoint: build an initial Decision
// from requests and options, and solve.
func (e *Engine) SolveRequests(requests []PkgRequest, options OptionMap) (*Solution, error) {
	changes := make([]Change, 0, len(requests)+1)
	if len(options) > 0 {
		changes = append(changes, SetOptions{Options: options})
	}
	for _, r := range requests {
		changes = append(changes, RequestPackage{Request: r})
	}
	return e.Solve(NewDecision(changes...))
}

// Solve runs the engine loop starting from initial, per spec §4.7's
// step loop.
//
// Design note (deviation from a literal state-graph replay): rather
// than reconstructing a fresh Node for every StepBack target (which
// would require the Graph to memoize nodes by State value to recover
// an exhausted package's iterator position), this Engine keeps its
// history as actual *Node pointers and, on backtrack, resumes stepping
// the exact prior Node object. That Node's packageIterator for the
// package being retried is already parked at its next candidate (spec
// §4.7: "Iterators are stateful per Node so that backtracking resumes
// from the next candidate, not from scratch"), so reusing the pointer
// gets the resumption property for free without a state-keyed node
// cache. Forward branches (ResolvePackage/BuildPackage) still allocate
// a fresh child Node with its own empty iterator map, per spec §9's
// "each node owns its iterators outright" alternative.
func (e *Engine) Solve(initial *Decision) (*Solution, error) {
	g := NewGraph(DefaultState())
	node := g.AddBranch(g.Root(), initial)
	history := []*Node{node}

	for {
		decision, err := e.step(node)
		if err == nil {
			if decision == nil {
				return fromResolved(node.State)
			}
			for _, n := range decision.Notes {
				obslog.WithField("package", n.Package).Debug(n.Reason)
			}
			node = g.AddBranch(node, decision)
			history = append(history, node)
			continue
		}

		reason := err.Error()
		var notes []Note
		if ooo, ok := err.(*OutOfOptionsError); ok {
			reason = fmt.Sprintf("failed to resolve %q", ooo.Package)
			notes = ooo.Notes
		}

		history = history[:len(history)-1]
		var prev *Node
		if len(history) > 0 {
			prev = history[len(history)-1]
		}
		sb := StepBack{Reason: reason, HasTarget: prev != nil}
		if prev != nil {
			sb.Target = prev.State
		}
		d := sb.AsDecision()
		d.AddNotes(notes...)
		for _, n := range d.Notes {
			obslog.WithField("package", n.Package).Debug(n.Reason)
		}
		obslog.WithField("reason", sb.Reason).Info("solver stepping back")

		if prev == nil {
			node = deadNode
			break
		}
		// Resume stepping the exact prior Node rather than branching
		// through sb.Apply: see the design note on Solve. sb.Target
		// already equals prev.State, so this is behaviorally the same
		// transition add_branch would produce, minus the fresh (and
		// here, unwanted) iterator map a new Node would start with.
		node = prev
	}

	return nil, &SolverError{Reason: "failed to resolve"}
}

// step resolves node's next pending request, returning the Decision to
// branch forward with, nil (solved) if no requests remain, or an
// *OutOfOptionsError if the request's iterator is exhausted. Grounded
// on original_source's Solver._step_state.
func (e *Engine) step(node *Node) (*Decision, error) {
	req, ok := node.State.NextRequest()
	if !ok {
		return nil, nil
	}

	it, ok := node.getIterator(req.Name)
	if !ok {
		it = newPackageIterator(req.Name, e.Repositories)
		node.setIterator(req.Name, it)
	}

	var notes []Note
	for {
		c, ok, err := it.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}

		spec := c.spec
		repository := c.repo
		buildFromSource := spec.IsSource()

		if buildFromSource {
			if !repository.CanReadSpecs() {
				notes = append(notes, SkipNote(spec.Pkg.Name, "cannot build embedded source package"))
				continue
			}
			base, err := spec.WithBuild("")
			if err != nil {
				return nil, err
			}
			reloaded, err := it.readBaseSpec(repository, base)
			if err != nil {
				notes = append(notes, SkipNote(spec.Pkg.Name, "cannot build from source, version spec not available"))
				continue
			}
			spec = reloaded
		}

		compat := e.validate(node.State, spec)
		if !compat.OK() {
			notes = append(notes, SkipNote(spec.Pkg.Name, compat.String()))
			continue
		}

		var decision *Decision
		if buildFromSource {
			buildEnv, err := e.solveBuildEnvironment(spec, node.State)
			if err != nil {
				notes = append(notes, SkipNote(spec.Pkg.Name, fmt.Sprintf("failed to resolve build env: %v", err)))
				continue
			}
			decision = NewDecision(BuildPackage{Spec: spec, Repository: repository, BuildEnv: buildEnv})
		} else {
			decision = NewDecision(ResolvePackage{Spec: spec, Repository: repository})
		}
		decision.AddNotes(notes...)
		return decision, nil
	}

	return nil, &OutOfOptionsError{Package: req.Name, Notes: notes}
}

func (e *Engine) validate(s State, spec *Spec) Compatibility {
	for _, v := range e.Validators {
		if compat := v(s, spec); !compat.OK() {
			return compat
		}
	}
	return Compatible
}

// solveBuildEnvironment spawns a fresh Engine sharing this one's
// repositories, seeded with the current option map plus a PkgRequest
// for each PkgOpt the candidate's build declares (using any
// already-constrained value as the request), per spec §4.8.
func (e *Engine) solveBuildEnvironment(spec *Spec, state State) (*Solution, error) {
	sub := &Engine{Repositories: e.Repositories, Validators: DefaultValidators()}

	changes := []Change{SetOptions{Options: state.Options().Clone()}}
	for _, opt := range spec.BuildOptions {
		given := state.Options()[opt.Name]
		changes = append(changes, RequestPackage{Request: NewPkgOptRequest(opt, given)})
	}
	return sub.Solve(NewDecision(changes...))
}
