package solve

// Resolved is one package the solver has committed to, alongside the
// repository it came from and — for source builds — the Solution used
// to build it.
type Resolved struct {
	Spec       *Spec
	Repository PackageRepository
	BuildEnv   *Solution // nil unless this entry was resolved via BuildPackage
}

// State is an immutable snapshot of solver progress: pending requests,
// resolved packages in resolution order, and the accumulated option
// map. States are conceptually persistent — every Change produces a
// new State rather than mutating one in place, so that history/
// backtracking never has to undo anything; it simply points history at
// an earlier State value.
type State struct {
	requests map[string]PkgRequest
	// requestOrder preserves first-request order so next_request()
	// is deterministic, matching original_source's dict insertion-
	// order semantics for pkg_requests.
	requestOrder []string

	resolved []Resolved
	options  OptionMap
}

// DefaultState is the solver's empty starting point.
func DefaultState() State {
	return State{
		requests: map[string]PkgRequest{},
		options:  OptionMap{},
	}
}

// clone returns a deep-enough copy of s for copy-on-write Change
// application: maps and slices are copied, Resolved entries are
// shared (they are themselves immutable once appended).
func (s State) clone() State {
	requests := make(map[string]PkgRequest, len(s.requests))
	for k, v := range s.requests {
		requests[k] = v
	}
	order := make([]string, len(s.requestOrder))
	copy(order, s.requestOrder)
	resolved := make([]Resolved, len(s.resolved))
	copy(resolved, s.resolved)

	return State{
		requests:     requests,
		requestOrder: order,
		resolved:     resolved,
		options:      s.options.Clone(),
	}
}

// NextRequest returns the first pending request with no resolution yet,
// in original request order, or false if every request is resolved
// (meaning the solve is complete).
func (s State) NextRequest() (PkgRequest, bool) {
	resolvedNames := make(map[string]struct{}, len(s.resolved))
	for _, r := range s.resolved {
		resolvedNames[r.Spec.Pkg.Name] = struct{}{}
	}
	for _, name := range s.requestOrder {
		if _, done := resolvedNames[name]; done {
			continue
		}
		return s.requests[name], true
	}
	return PkgRequest{}, false
}

// Requests returns every request merged into the state so far,
// including those whose package is already resolved.
func (s State) Requests() map[string]PkgRequest {
	return s.requests
}

// Resolved returns the packages resolved so far, in resolution order.
func (s State) Resolved() []Resolved {
	return s.resolved
}

// Options returns the accumulated build-time option map.
func (s State) Options() OptionMap {
	return s.options
}
