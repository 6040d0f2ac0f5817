package sync

import (
	"os"
	"path/filepath"
	"testing"

	"strata/pkg/cas"
	"strata/pkg/render"
	"strata/pkg/repo"
)

func mustRepo(t *testing.T) *repo.Repository {
	t.Helper()
	r, err := repo.EnsureRepository(t.TempDir())
	if err != nil {
		t.Fatalf("EnsureRepository: %v", err)
	}
	return r
}

// TestSyncLayer asserts that syncing a tagged layer from src to dest
// copies its blobs and manifest, and tags the ref on dest too.
func TestSyncLayer(t *testing.T) {
	src := mustRepo(t)

	work := t.TempDir()
	if err := os.WriteFile(filepath.Join(work, "payload.bin"), []byte("platform contents"), 0o644); err != nil {
		t.Fatal(err)
	}
	manifest, err := render.CommitDir(src.Blobs, work)
	if err != nil {
		t.Fatalf("CommitDir: %v", err)
	}
	layer := cas.NewLayer(manifest, nil)
	if err := src.WriteLayer(layer); err != nil {
		t.Fatalf("WriteLayer: %v", err)
	}
	if err := src.Tag(layer.Digest.String(), "v1"); err != nil {
		t.Fatalf("Tag: %v", err)
	}

	dest := mustRepo(t)

	var events []ProgressEvent
	result, err := Ref(src, dest, "v1", func(ev ProgressEvent) {
		events = append(events, ev)
	})
	if err != nil {
		t.Fatalf("Ref: %v", err)
	}
	if result.Ref.Layer == nil || result.Ref.Layer.Digest != layer.Digest {
		t.Fatalf("expected synced ref to resolve to layer %s, got %+v", layer.Digest, result.Ref)
	}

	if !dest.HasLayer(layer.Digest) {
		t.Error("expected dest to have the synced layer")
	}
	destRef, err := dest.ReadRef("v1")
	if err != nil {
		t.Fatalf("dest ReadRef(\"v1\"): %v", err)
	}
	if destRef.Layer == nil || destRef.Layer.Digest != layer.Digest {
		t.Errorf("expected dest's \"v1\" tag to resolve to the synced layer")
	}
}

// TestSyncIdempotent asserts that running Ref twice in a row for the
// same ref succeeds both times (standing in for a second sync after a
// simulated crash, without constructing partial dest state directly).
func TestSyncIdempotent(t *testing.T) {
	src := mustRepo(t)
	work := t.TempDir()
	if err := os.WriteFile(filepath.Join(work, "f"), []byte("content"), 0o644); err != nil {
		t.Fatal(err)
	}
	manifest, err := render.CommitDir(src.Blobs, work)
	if err != nil {
		t.Fatalf("CommitDir: %v", err)
	}
	layer := cas.NewLayer(manifest, nil)
	if err := src.WriteLayer(layer); err != nil {
		t.Fatalf("WriteLayer: %v", err)
	}

	dest := mustRepo(t)
	ref := layer.Digest.String()
	if _, err := Ref(src, dest, ref, nil); err != nil {
		t.Fatalf("first sync: %v", err)
	}
	if _, err := Ref(src, dest, ref, nil); err != nil {
		t.Fatalf("second sync: %v", err)
	}
}
