// Package errors provides sentinel error values shared across strata's
// packages.
//
// These sentinel errors allow callers to check for specific error conditions
// using errors.Is(), enabling programmatic error handling.
package errors

import "errors"

// Object store errors
var (
	// ErrUnknownObject indicates no blob exists for a given digest.
	ErrUnknownObject = errors.New("unknown object")

	// ErrUnknownRef indicates a tag or ref does not resolve to anything in
	// the repository.
	ErrUnknownRef = errors.New("unknown reference")

	// ErrAmbiguousRef indicates a ref prefix matches more than one tag.
	ErrAmbiguousRef = errors.New("ambiguous reference")

	// ErrNotRendered indicates a render was requested for a layer whose
	// working directory has no completed render yet.
	ErrNotRendered = errors.New("layer not rendered")
)

// Package/solve errors
var (
	// ErrPackageNotFound indicates no repository in a search path holds a
	// package satisfying a request.
	ErrPackageNotFound = errors.New("package not found")

	// ErrInvalidIdent indicates a package identifier does not match the
	// NAME[/VERSION[/BUILD]] grammar.
	ErrInvalidIdent = errors.New("invalid package identifier")

	// ErrOutOfOptions indicates the solver exhausted every candidate for
	// the current decision and must step back.
	ErrOutOfOptions = errors.New("out of options")
)

// Runtime errors
var (
	// ErrRuntimeNotFound indicates the specified runtime does not exist.
	ErrRuntimeNotFound = errors.New("runtime not found")

	// ErrRuntimeLocked indicates another process holds the runtime's
	// mutation lock.
	ErrRuntimeLocked = errors.New("runtime is locked by another process")
)
