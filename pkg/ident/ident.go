package ident

import (
	"fmt"
	"strings"

	strataerrors "strata/pkg/errors"
)

// Ident is a package identifier: NAME[/VERSION[/BUILD]].
type Ident struct {
	Name    string
	Version Version
	Build   *Build
}

// String renders the identifier, omitting the version token when it is
// the zero version with no build, and omitting the build token when
// unset — mirroring the original's Ident.__str__.
func (i Ident) String() string {
	out := i.Name
	if !i.Version.IsZero() || i.Build != nil {
		out += "/" + i.Version.String()
	}
	if i.Build != nil {
		out += "/" + i.Build.String()
	}
	return out
}

// Parse parses a package identifier string per spec §6: at most three
// '/'-separated tokens; excess tokens are a parse error.
func Parse(source string) (Ident, error) {
	tokens := strings.Split(source, "/")
	if len(tokens) > 3 {
		return Ident{}, fmt.Errorf("%w: too many tokens in identifier: %s", strataerrors.ErrInvalidIdent, source)
	}

	name := tokens[0]
	if err := ValidateName(name); err != nil {
		return Ident{}, err
	}

	var versionToken, buildToken string
	if len(tokens) > 1 {
		versionToken = tokens[1]
	}
	if len(tokens) > 2 {
		buildToken = tokens[2]
	}

	version, err := ParseVersion(versionToken)
	if err != nil {
		return Ident{}, err
	}

	var build *Build
	if buildToken != "" {
		b, err := ParseBuild(buildToken)
		if err != nil {
			return Ident{}, err
		}
		build = &b
	}

	return Ident{Name: name, Version: version, Build: build}, nil
}

// WithBuild returns a copy of i with its build token replaced; an
// empty string clears the build, matching the original's with_build.
func (i Ident) WithBuild(build string) (Ident, error) {
	if build == "" {
		return Parse(fmt.Sprintf("%s/%s", i.Name, i.Version.String()))
	}
	return Parse(fmt.Sprintf("%s/%s/%s", i.Name, i.Version.String(), build))
}

// Clone returns a deep copy of i, via a round trip through its string
// form — the same approach the original's Ident.clone takes.
func (i Ident) Clone() (Ident, error) {
	return Parse(i.String())
}

// MarshalYAML renders an Ident as its plain string form, mirroring the
// original's yaml.Dumper.add_representer(Ident, ...) custom
// representer — package specs reference dependencies by their
// identifier string, not a nested mapping.
func (i Ident) MarshalYAML() (interface{}, error) {
	return i.String(), nil
}

// UnmarshalYAML parses an Ident from its plain string form.
func (i *Ident) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}
