package ident

import (
	"fmt"
	"strconv"
	"strings"

	strataerrors "strata/pkg/errors"
)

// Version is a dotted sequence of non-negative integers, e.g. "1.0.0"
// or "2.7". No semver library appears anywhere in the retrieved
// example corpus, so comparison is hand-rolled dotted-numeric
// comparison rather than a fabricated dependency (documented in
// DESIGN.md as a stdlib-justified exception).
type Version struct {
	parts []uint64
	raw   string
}

// ZeroVersion is the empty/default version, printed as "0.0.0" —
// mirroring the original's Version() default-constructed value used
// whenever an Ident omits its version token.
var ZeroVersion = Version{parts: []uint64{0, 0, 0}, raw: "0.0.0"}

// ParseVersion parses a dotted numeric version string. An empty string
// yields ZeroVersion, matching the original's default-field behavior
// for Ident.version when no version token is present.
func ParseVersion(s string) (Version, error) {
	if s == "" {
		return ZeroVersion, nil
	}
	segments := strings.Split(s, ".")
	parts := make([]uint64, 0, len(segments))
	for _, seg := range segments {
		n, err := strconv.ParseUint(seg, 10, 64)
		if err != nil {
			return Version{}, fmt.Errorf("%w: invalid version %q: %v", strataerrors.ErrInvalidIdent, s, err)
		}
		parts = append(parts, n)
	}
	return Version{parts: parts, raw: s}, nil
}

// String renders the version exactly as parsed.
func (v Version) String() string {
	if v.raw == "" && len(v.parts) == 0 {
		return "0.0.0"
	}
	return v.raw
}

// IsZero reports whether v is the unset/default version.
func (v Version) IsZero() bool {
	return v.raw == "" || v.raw == "0.0.0"
}

// Compare returns -1, 0 or 1 as v is less than, equal to, or greater
// than other, comparing dotted components left-to-right and treating a
// missing trailing component as 0 (so "1.0" == "1.0.0").
func (v Version) Compare(other Version) int {
	n := len(v.parts)
	if len(other.parts) > n {
		n = len(other.parts)
	}
	for i := 0; i < n; i++ {
		var a, b uint64
		if i < len(v.parts) {
			a = v.parts[i]
		}
		if i < len(other.parts) {
			b = other.parts[i]
		}
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
	}
	return 0
}

// LessThan reports whether v < other.
func (v Version) LessThan(other Version) bool { return v.Compare(other) < 0 }

// GreaterThan reports whether v > other.
func (v Version) GreaterThan(other Version) bool { return v.Compare(other) > 0 }

// Equal reports whether v == other.
func (v Version) Equal(other Version) bool { return v.Compare(other) == 0 }
