package ident

import (
	"fmt"
	"unicode"

	strataerrors "strata/pkg/errors"
)

// Build identifies a specific build variant of a package version (the
// original's "release" token, e.g. "r2"). An empty Build means "no
// build" per spec §6.
type Build struct {
	digest string
}

// ParseBuild validates and wraps a build token. An empty string is
// rejected here; callers that need "no build" semantics should treat
// an empty BUILD token as a nil *Build rather than calling ParseBuild
// with "".
func ParseBuild(s string) (Build, error) {
	if s == "" {
		return Build{}, fmt.Errorf("%w: build token must not be empty", strataerrors.ErrInvalidIdent)
	}
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		return Build{}, fmt.Errorf("%w: build token %q contains invalid character %q", strataerrors.ErrInvalidIdent, s, r)
	}
	return Build{digest: s}, nil
}

// String renders the build token.
func (b Build) String() string { return b.digest }

// IsZero reports whether b is the unset build.
func (b Build) IsZero() bool { return b.digest == "" }
