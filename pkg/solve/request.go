package solve

// PkgRequest names a package by name plus an optional version/build
// range constraint expressed as a raw string (e.g. "<2.0"); the
// default validator chain is what interprets it against candidate
// specs. Requests for the same package name merge (the most recent
// RequestPackage Change narrows, never widens, an existing request).
type PkgRequest struct {
	Name  string
	Range string
}

// Merge combines two requests for the same package name, keeping the
// more specific (non-empty) range. Mirrors original_source's implicit
// request-merging behavior in PkgRequest construction.
func (r PkgRequest) Merge(other PkgRequest) PkgRequest {
	if other.Range != "" {
		return PkgRequest{Name: r.Name, Range: other.Range}
	}
	return r
}

// VarRequest constrains a build-time option variable to a fixed value.
type VarRequest struct {
	Name  string
	Value string
}

// OptionMap is the solver's accumulated build-time variable bindings.
type OptionMap map[string]string

// Clone returns a shallow copy of m.
func (m OptionMap) Clone() OptionMap {
	out := make(OptionMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// NewPkgOptRequest builds a PkgRequest for a PkgOpt declared by a
// spec's build options, using any already-constrained value as the
// request range — mirrors original_source's option.to_request(given).
func NewPkgOptRequest(opt PkgOpt, given string) PkgRequest {
	value := opt.Default
	if given != "" {
		value = given
	}
	return PkgRequest{Name: opt.Name, Range: value}
}

