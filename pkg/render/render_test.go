package render

import (
	"os"
	"path/filepath"
	"testing"

	"strata/pkg/cas"
)

// TestRenderPermissions implements spec §8 scenario 3: a rendered file
// carries the permission bits recorded in its manifest entry, even
// though it is hard-linked in (shared inode) rather than copied.
func TestRenderPermissions(t *testing.T) {
	store, err := cas.NewBlobStore(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("NewBlobStore: %v", err)
	}
	r := New(store)

	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "exec.sh"), []byte("#!/bin/sh\n"), 0o700); err != nil {
		t.Fatal(err)
	}

	manifest, err := CommitDir(store, src)
	if err != nil {
		t.Fatalf("CommitDir: %v", err)
	}

	dir := filepath.Join(t.TempDir(), "rendered")
	if err := r.Render(manifest, dir); err != nil {
		t.Fatalf("Render: %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, "exec.sh"))
	if err != nil {
		t.Fatalf("stat rendered file: %v", err)
	}
	if info.Mode().Perm() != 0o700 {
		t.Errorf("rendered file mode = %v, want 0700", info.Mode().Perm())
	}

	if !IsRendered(dir) {
		t.Error("expected IsRendered to report true after a successful render")
	}
}

// TestRenderIdempotent checks that a second Render over an
// already-complete directory succeeds.
func TestRenderIdempotent(t *testing.T) {
	store, err := cas.NewBlobStore(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("NewBlobStore: %v", err)
	}
	r := New(store)

	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "f"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	manifest, err := CommitDir(store, src)
	if err != nil {
		t.Fatalf("CommitDir: %v", err)
	}

	dir := filepath.Join(t.TempDir(), "rendered")
	if err := r.Render(manifest, dir); err != nil {
		t.Fatalf("first Render: %v", err)
	}
	if err := r.Render(manifest, dir); err != nil {
		t.Fatalf("second Render: %v", err)
	}
}

// TestRenderAfterSentinelRemoved implements spec §8's universal
// property "re-rendering after deleting the sentinel but leaving files
// succeeds": Render must build directly into dir and ignore EEXIST on
// every entry, not stage into a scratch directory and rename it over
// dir (which would fail with ENOTEMPTY once dir is non-empty).
func TestRenderAfterSentinelRemoved(t *testing.T) {
	store, err := cas.NewBlobStore(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("NewBlobStore: %v", err)
	}
	r := New(store)

	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "f"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	manifest, err := CommitDir(store, src)
	if err != nil {
		t.Fatalf("CommitDir: %v", err)
	}

	dir := filepath.Join(t.TempDir(), "rendered")
	if err := r.Render(manifest, dir); err != nil {
		t.Fatalf("first Render: %v", err)
	}

	if err := os.Remove(filepath.Join(dir, completedSentinel)); err != nil {
		t.Fatalf("remove sentinel: %v", err)
	}

	if err := r.Render(manifest, dir); err != nil {
		t.Fatalf("Render after sentinel removed: %v", err)
	}
	if !IsRendered(dir) {
		t.Error("expected IsRendered to report true after re-render")
	}
}

// TestCommitDirRoundTrip checks that committing a live directory and
// then rendering the resulting manifest reproduces the same file
// content (the inverse-flow property render.CommitDir exists for).
func TestCommitDirRoundTrip(t *testing.T) {
	store, err := cas.NewBlobStore(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("NewBlobStore: %v", err)
	}
	r := New(store)

	src := t.TempDir()
	if err := os.MkdirAll(filepath.Join(src, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "nested", "f.txt"), []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}

	manifest, err := CommitDir(store, src)
	if err != nil {
		t.Fatalf("CommitDir: %v", err)
	}

	dir := filepath.Join(t.TempDir(), "rendered")
	if err := r.Render(manifest, dir); err != nil {
		t.Fatalf("Render: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "nested", "f.txt"))
	if err != nil {
		t.Fatalf("read rendered file: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("rendered content = %q, want %q", data, "payload")
	}
}
