// Package digest provides the opaque content-hash identity used throughout
// strata's object store. It is a thin, sha256-pinned wrapper around
// github.com/opencontainers/go-digest, which already models exactly the
// "opaque fixed-width content hash" value type the store needs.
package digest

import (
	"io"

	godigest "github.com/opencontainers/go-digest"
)

// Digest is a lowercase-hex-rendered SHA-256 content hash. Equality is
// bytewise (string equality on the canonical form).
type Digest = godigest.Digest

// Algorithm is the only hash algorithm strata uses for content addressing.
// Pinning it (rather than accepting go-digest's full algorithm set) keeps
// identical content hashing to an identical digest regardless of which
// algorithm a caller might otherwise have picked.
const Algorithm = godigest.SHA256

// FromBytes computes the digest of b.
func FromBytes(b []byte) Digest {
	return Algorithm.FromBytes(b)
}

// FromString computes the digest of s, treating it as raw bytes. Used for
// symlink targets, which are stored as blobs whose content is the UTF-8
// link target string.
func FromString(s string) Digest {
	return Algorithm.FromString(s)
}

// FromReader consumes r to EOF and returns its digest.
func FromReader(r io.Reader) (Digest, int64, error) {
	digester := Algorithm.Digester()
	n, err := io.Copy(digester.Hash(), r)
	if err != nil {
		return "", 0, err
	}
	return digester.Digest(), n, nil
}

// Parse validates and returns s as a Digest.
func Parse(s string) (Digest, error) {
	return godigest.Parse(s)
}

// Validate reports whether s is a well-formed digest string.
func Validate(s string) error {
	return godigest.Validate(s)
}

// NewDigester returns a Digester for the pinned Algorithm, matching the
// streaming-hash-while-writing pattern used by the blob store's two-phase
// write.
func NewDigester() godigest.Digester {
	return Algorithm.Digester()
}
