package repo

import (
	"os"
	"path/filepath"
	"testing"

	"strata/pkg/cas"
	"strata/pkg/render"
)

func mustRepo(t *testing.T) *Repository {
	t.Helper()
	r, err := EnsureRepository(t.TempDir())
	if err != nil {
		t.Fatalf("EnsureRepository: %v", err)
	}
	return r
}

func writeLayer(t *testing.T, r *Repository, content string) *cas.Layer {
	t.Helper()
	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "f"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	manifest, err := render.CommitDir(r.Blobs, src)
	if err != nil {
		t.Fatalf("CommitDir: %v", err)
	}
	layer := cas.NewLayer(manifest, nil)
	if err := r.WriteLayer(layer); err != nil {
		t.Fatalf("WriteLayer: %v", err)
	}
	return layer
}

func TestLayerReadWrite(t *testing.T) {
	r := mustRepo(t)
	layer := writeLayer(t, r, "hello")

	if !r.HasLayer(layer.Digest) {
		t.Fatal("expected HasLayer to report true after WriteLayer")
	}
	got, err := r.ReadLayer(layer.Digest)
	if err != nil {
		t.Fatalf("ReadLayer: %v", err)
	}
	if got.Digest != layer.Digest {
		t.Errorf("read layer digest = %s, want %s", got.Digest, layer.Digest)
	}
}

func TestTagAndReadRef(t *testing.T) {
	r := mustRepo(t)
	layer := writeLayer(t, r, "tagged content")

	if err := r.Tag(layer.Digest.String(), "latest"); err != nil {
		t.Fatalf("Tag: %v", err)
	}

	ref, err := r.ReadRef("latest")
	if err != nil {
		t.Fatalf("ReadRef: %v", err)
	}
	if ref.Layer == nil || ref.Layer.Digest != layer.Digest {
		t.Errorf("expected latest to resolve to layer %s, got %+v", layer.Digest, ref)
	}

	aliases, err := r.FindAliases(layer.Digest.String())
	if err != nil {
		t.Fatalf("FindAliases: %v", err)
	}
	if len(aliases) != 1 || aliases[0] != "latest" {
		t.Errorf("expected [\"latest\"], got %v", aliases)
	}
}

func TestReadRefUnknown(t *testing.T) {
	r := mustRepo(t)
	if _, err := r.ReadRef("nope"); err == nil {
		t.Fatal("expected an error resolving an unknown ref")
	}
}

func TestCommitPlatform(t *testing.T) {
	r := mustRepo(t)
	rt, err := r.NewRuntime()
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	if err := os.WriteFile(filepath.Join(rt.UpperDir, "new.txt"), []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	platform, err := r.CommitPlatform(rt, []cas.EnvVar{{Key: "FOO", Value: "bar"}})
	if err != nil {
		t.Fatalf("CommitPlatform: %v", err)
	}
	if !r.HasPlatform(platform.Digest) {
		t.Error("expected HasPlatform to report true after CommitPlatform")
	}
	if len(platform.Stack) != 1 {
		t.Errorf("expected a single-layer stack, got %d entries", len(platform.Stack))
	}

	reloaded, err := r.GetRuntime(rt.ID)
	if err != nil {
		t.Fatalf("GetRuntime: %v", err)
	}
	if len(reloaded.Config.Layers) != 1 {
		t.Errorf("expected runtime config to record the committed layer, got %v", reloaded.Config.Layers)
	}
}
