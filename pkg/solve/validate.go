package solve

import (
	"fmt"

	"strata/pkg/ident"
)

// Validator is a pure capability: given the current State and a
// candidate Spec, it reports whether the candidate is compatible. Per
// spec §9, validators form an open chain ("a capability,
// validate(state, spec) -> Compatibility") rather than a closed
// hierarchy, so new checks compose by appending to a []Validator
// rather than subclassing.
type Validator func(State, *Spec) Compatibility

// DefaultValidators is the chain spec §4.7 names: version-range,
// option-consistency, dependency-consistency, applied in order with
// first-failure-wins (a later validator never overrides an earlier
// incompatibility, and never runs once one has already failed).
func DefaultValidators() []Validator {
	return []Validator{
		ValidateVersionRange,
		ValidateOptionConsistency,
		ValidateDependencyConsistency,
	}
}

// BinaryOnly rejects any candidate whose spec is a source (unbuilt)
// package, matching spec §4.7's "BinaryOnly validator can be
// prepended". It is not part of DefaultValidators because most solves
// want the build-from-source fallback available.
func BinaryOnly(_ State, spec *Spec) Compatibility {
	if spec.IsSource() {
		return Incompatible(fmt.Sprintf("%s is a source package; binary-only request", spec.Pkg.Name))
	}
	return Compatible
}

// ValidateVersionRange checks spec's identifier against the pending
// request's Range string for its package name, if any. An empty Range
// means "no constraint".
func ValidateVersionRange(s State, spec *Spec) Compatibility {
	req, ok := s.requests[spec.Pkg.Name]
	if !ok || req.Range == "" {
		return Compatible
	}
	if satisfiesRange(spec.Pkg.Version.String(), req.Range) {
		return Compatible
	}
	return Incompatible(fmt.Sprintf("%s does not satisfy range %q", spec.Pkg.Version, req.Range))
}

// ValidateOptionConsistency checks that any of spec's declared build
// options already constrained in the state's option map agree with
// spec's own declared default; a spec cannot be resolved while
// disagreeing with an option value the state has already committed to.
func ValidateOptionConsistency(s State, spec *Spec) Compatibility {
	for _, opt := range spec.BuildOptions {
		constrained, ok := s.options[opt.Name]
		if !ok || constrained == "" {
			continue
		}
		if opt.Default != "" && opt.Default != constrained {
			return Incompatible(fmt.Sprintf("option %s=%s conflicts with already-resolved value %s", opt.Name, opt.Default, constrained))
		}
	}
	return Compatible
}

// ValidateDependencyConsistency checks that each of spec's ranged
// runtime dependencies is satisfied by the version of any package of
// that name already resolved in the state (e.g. spec depends on A<2.0
// but A 2.0 is already resolved). Pending, unresolved requests are not
// compared.
func ValidateDependencyConsistency(s State, spec *Spec) Compatibility {
	for _, dep := range spec.Deps {
		if dep.Range == "" {
			continue
		}
		for _, resolved := range s.resolved {
			if resolved.Spec.Pkg.Name != dep.Name {
				continue
			}
			if !satisfiesRange(resolved.Spec.Pkg.Version.String(), dep.Range) {
				return Incompatible(fmt.Sprintf("%s requires %s%s, but %s is already resolved", spec.Pkg.Name, dep.Name, dep.Range, resolved.Spec.Pkg.Version))
			}
		}
	}
	return Compatible
}

// satisfiesRange interprets a constraint range string against a
// version string. Only the operators the solver's own test fixtures
// exercise are supported: "<V", "<=V", ">V", ">=V", "=V"/"==V", and a
// bare "V" meaning exact match; an empty range always matches.
func satisfiesRange(version, rng string) bool {
	if rng == "" {
		return true
	}
	op, bound := splitRangeOperator(rng)
	v, err := ident.ParseVersion(version)
	if err != nil {
		return false
	}
	b, err := ident.ParseVersion(bound)
	if err != nil {
		return false
	}
	switch op {
	case "<=":
		return !v.GreaterThan(b)
	case ">=":
		return !v.LessThan(b)
	case "<":
		return v.LessThan(b)
	case ">":
		return v.GreaterThan(b)
	case "==", "=":
		return v.Equal(b)
	default:
		return v.Equal(b)
	}
}

func splitRangeOperator(rng string) (op, bound string) {
	for _, candidate := range []string{"<=", ">=", "==", "<", ">", "="} {
		if len(rng) > len(candidate) && rng[:len(candidate)] == candidate {
			return candidate, rng[len(candidate):]
		}
	}
	return "", rng
}
