// Package ident implements strata's package identifier grammar:
// NAME[/VERSION[/BUILD]], at most three slash-separated tokens, with a
// round-trip property (str(parse(str(i))) == str(i) for every Ident i).
//
// Grounded on original_source's spk/api/_ident.py (Ident.parse,
// parse_ident, the yaml representer) and _ident_test.py (the
// "hello/1.0.0/r2", "python/2.7" fixtures), adapted into idiomatic Go
// value types with explicit parsers instead of dataclass field
// defaults.
package ident

import (
	"fmt"
	"unicode"

	strataerrors "strata/pkg/errors"
)

// ValidateName reports whether name satisfies the package name
// grammar: leading alphabetic character, followed by alphanumerics,
// '-' or '_'.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: package name must not be empty", strataerrors.ErrInvalidIdent)
	}
	runes := []rune(name)
	if !unicode.IsLetter(runes[0]) {
		return fmt.Errorf("%w: package name %q must start with a letter", strataerrors.ErrInvalidIdent, name)
	}
	for _, r := range runes[1:] {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			continue
		}
		return fmt.Errorf("%w: package name %q contains invalid character %q", strataerrors.ErrInvalidIdent, name, r)
	}
	return nil
}
