package cas

import (
	"os"
	"path/filepath"
	"testing"
)

// TestManifestStability asserts that computing a manifest twice over the
// same directory tree yields the same digest, and the entry count
// matches the number of files/dirs/symlinks present.
func TestManifestStability(t *testing.T) {
	store, err := NewBlobStore(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("NewBlobStore: %v", err)
	}

	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "a", "b"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a", "b", "file.txt"), []byte("content\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("file.txt", filepath.Join(dir, "a", "b", "link")); err != nil {
		t.Fatal(err)
	}

	m1, err := ComputeManifest(dir, store)
	if err != nil {
		t.Fatalf("ComputeManifest (1): %v", err)
	}
	m2, err := ComputeManifest(dir, store)
	if err != nil {
		t.Fatalf("ComputeManifest (2): %v", err)
	}

	if m1.Digest() != m2.Digest() {
		t.Errorf("manifest digest unstable: %s != %s", m1.Digest(), m2.Digest())
	}

	// "/", "/a", "/a/b", "/a/b/file.txt", "/a/b/link".
	entries := m1.Entries()
	if len(entries) != 5 {
		t.Errorf("expected 5 manifest entries, got %d", len(entries))
	}
}

// TestManifestGetPath checks a committed file is addressable by its
// relative path within the manifest.
func TestManifestGetPath(t *testing.T) {
	store, err := NewBlobStore(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("NewBlobStore: %v", err)
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "hello.txt"), []byte("hi\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := ComputeManifest(dir, store)
	if err != nil {
		t.Fatalf("ComputeManifest: %v", err)
	}

	entry, err := m.GetPath("hello.txt")
	if err != nil {
		t.Fatalf("GetPath: %v", err)
	}
	if entry.Kind != KindBlob {
		t.Errorf("expected hello.txt to be a blob entry, got %v", entry.Kind)
	}

	if _, err := m.GetPath("missing.txt"); err == nil {
		t.Error("expected an error for a path not present in the manifest")
	}
}
