package cas

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	strataerrors "strata/pkg/errors"

	"strata/pkg/digest"
)

// DefaultBlobPermissions is the permission mask blobs are stored with.
// 0o777 is appropriate for shared, multi-user repositories: on kernels
// with protected hardlinks enabled, the process rendering a hard-linked
// copy of a blob must either own the file or have rwx on it. Locked-down,
// single-owner repositories can pass a stricter mask to NewBlobStore.
const DefaultBlobPermissions = 0o777

// chunkSize documents the intended streaming granularity; io.Copy
// already chunks internally so this isn't used to gate a manual loop.
const chunkSize = 1024

// BlobStore is a content-addressed store of arbitrary byte sequences,
// sharded on-disk by digest (first two hex chars / remainder).
type BlobStore struct {
	root        string
	permissions os.FileMode
}

// NewBlobStore creates a BlobStore rooted at root, creating the directory
// if necessary. perm is the permission mask new blobs receive; pass 0 to
// use DefaultBlobPermissions.
func NewBlobStore(root string, perm os.FileMode) (*BlobStore, error) {
	if perm == 0 {
		perm = DefaultBlobPermissions
	}
	if err := os.MkdirAll(root, 0o777); err != nil {
		return nil, fmt.Errorf("create blob store root: %w", err)
	}
	return &BlobStore{root: root, permissions: perm}, nil
}

// Write performs a two-phase atomic write: stream b to a uniquely-named
// working file while hashing, then rename it into its digest-sharded
// final path. A uuid4 (not a clock-derived) name is used so that
// concurrent writers on the same host, even within the same
// process-scheduling tick, never collide.
func (s *BlobStore) Write(r io.Reader) (digest.Digest, int64, error) {
	workingPath := filepath.Join(s.root, "work-"+uuid.NewString())
	f, err := os.OpenFile(workingPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, s.permissions)
	if err != nil {
		return "", 0, fmt.Errorf("create working file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(workingPath)
	}()

	digester := digest.NewDigester()
	mw := io.MultiWriter(f, digester.Hash())
	size, err := io.Copy(mw, r)
	if err != nil {
		return "", 0, fmt.Errorf("write blob: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", 0, fmt.Errorf("close working file: %w", err)
	}

	d := digester.Digest()
	targetPath := s.path(d)
	if err := os.MkdirAll(filepath.Dir(targetPath), 0o777); err != nil {
		return "", 0, fmt.Errorf("create blob shard directory: %w", err)
	}

	if err := os.Rename(workingPath, targetPath); err != nil {
		if os.IsExist(err) {
			// Raced with another writer of identical content: the
			// existing copy is byte-identical by construction, so
			// dropping ours is correct, not a data loss.
			return d, size, nil
		}
		return "", 0, fmt.Errorf("finalize blob: %w", err)
	}
	if err := os.Chmod(targetPath, s.permissions); err != nil {
		return "", 0, fmt.Errorf("set blob permissions: %w", err)
	}
	return d, size, nil
}

// WriteBytes is a convenience wrapper satisfying the ComputeManifest
// BlobWriter interface.
func (s *BlobStore) WriteBytes(b []byte) (digest.Digest, error) {
	d, _, err := s.Write(bytes.NewReader(b))
	return d, err
}

// WriteVerified writes r while verifying the resulting digest and size
// against expected values, failing (without storing) on mismatch. Used
// by pkg/sync when copying a blob between repositories, where the
// expected digest is already known ahead of the transfer.
func (s *BlobStore) WriteVerified(r io.Reader, expected digest.Digest, expectedSize int64) error {
	if s.Has(expected) {
		_, _ = io.Copy(io.Discard, r)
		return nil
	}

	workingPath := filepath.Join(s.root, "work-"+uuid.NewString())
	f, err := os.OpenFile(workingPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, s.permissions)
	if err != nil {
		return fmt.Errorf("create working file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(workingPath)
	}()

	digester := expected.Algorithm().Digester()
	mw := io.MultiWriter(f, digester.Hash())
	size, err := io.Copy(mw, r)
	if err != nil {
		return fmt.Errorf("write blob: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close working file: %w", err)
	}

	actual := digester.Digest()
	if actual != expected {
		return fmt.Errorf("digest mismatch: expected %s, got %s", expected, actual)
	}
	if expectedSize > 0 && size != expectedSize {
		return fmt.Errorf("size mismatch: expected %d, got %d", expectedSize, size)
	}

	targetPath := s.path(expected)
	if err := os.MkdirAll(filepath.Dir(targetPath), 0o777); err != nil {
		return fmt.Errorf("create blob shard directory: %w", err)
	}
	if err := os.Rename(workingPath, targetPath); err != nil {
		if os.IsExist(err) {
			return nil
		}
		return fmt.Errorf("finalize blob: %w", err)
	}
	return os.Chmod(targetPath, s.permissions)
}

// Open resolves digest d's sharded path and returns a read handle.
func (s *BlobStore) Open(d digest.Digest) (io.ReadCloser, error) {
	f, err := os.Open(s.path(d))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", strataerrors.ErrUnknownObject, d)
		}
		return nil, fmt.Errorf("open blob %s: %w", d, err)
	}
	return f, nil
}

// Has reports whether digest d is present in the store.
func (s *BlobStore) Has(d digest.Digest) bool {
	_, err := os.Stat(s.path(d))
	return err == nil
}

// Root returns the store's root directory.
func (s *BlobStore) Root() string { return s.root }

// path computes a blob's sharded on-disk path: first two hex characters
// form the directory, the remainder the filename.
func (s *BlobStore) path(d digest.Digest) string {
	encoded := d.Encoded()
	if len(encoded) < 2 {
		return filepath.Join(s.root, encoded)
	}
	return filepath.Join(s.root, encoded[:2], encoded[2:])
}
