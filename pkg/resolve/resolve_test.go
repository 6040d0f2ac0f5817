package resolve

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"strata/pkg/cas"
	"strata/pkg/render"
	"strata/pkg/repo"
)

func mustLayer(t *testing.T, r *repo.Repository, env []cas.EnvVar) *cas.Layer {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "f"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	manifest, err := render.CommitDir(r.Blobs, dir)
	if err != nil {
		t.Fatalf("CommitDir: %v", err)
	}
	layer := cas.NewLayer(manifest, env)
	if err := r.WriteLayer(layer); err != nil {
		t.Fatalf("WriteLayer: %v", err)
	}
	return layer
}

func TestPackagesToEnvironmentLaterWins(t *testing.T) {
	r, err := repo.EnsureRepository(t.TempDir())
	if err != nil {
		t.Fatalf("EnsureRepository: %v", err)
	}
	l1 := mustLayer(t, r, []cas.EnvVar{{Key: "PATH", Value: "/a"}})
	l2 := mustLayer(t, r, []cas.EnvVar{{Key: "PATH", Value: "/b"}})

	env := PackagesToEnvironment([]*cas.Layer{l1, l2})
	if env["PATH"] != "/b" {
		t.Errorf("expected later layer's PATH to win, got %q", env["PATH"])
	}
}

func TestOverlayOptions(t *testing.T) {
	r, err := repo.EnsureRepository(t.TempDir())
	if err != nil {
		t.Fatalf("EnsureRepository: %v", err)
	}
	layer := mustLayer(t, r, nil)

	rt, err := r.NewRuntime()
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	rt, err = r.MutateRuntime(rt.ID, func(rt *cas.Runtime) error {
		rt.Config.Layers = append(rt.Config.Layers, layer.Digest.String())
		return nil
	})
	if err != nil {
		t.Fatalf("MutateRuntime: %v", err)
	}

	opts, err := OverlayOptions(r, rt)
	if err != nil {
		t.Fatalf("OverlayOptions: %v", err)
	}
	if !strings.Contains(opts, "lowerdir="+rt.LowerDir+":") {
		t.Errorf("expected options to start lowerdir with the runtime's own lowerdir: %s", opts)
	}
	if !strings.Contains(opts, "upperdir="+rt.UpperDir) {
		t.Errorf("expected options to contain upperdir=%s: %s", rt.UpperDir, opts)
	}
	if !strings.Contains(opts, "workdir="+rt.WorkDir) {
		t.Errorf("expected options to contain workdir=%s: %s", rt.WorkDir, opts)
	}
}
