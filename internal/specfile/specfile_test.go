package specfile

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleYAML = `
pkg: mytool/1.2.0
source: false
deps:
  - name: libfoo
    range: ">=2.0.0"
opts:
  - name: gcc
    default: "9.0.0"
`

func TestParse(t *testing.T) {
	spec, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if spec.Pkg.Name != "mytool" {
		t.Errorf("Pkg.Name = %q, want mytool", spec.Pkg.Name)
	}
	if len(spec.Deps) != 1 || spec.Deps[0].Name != "libfoo" || spec.Deps[0].Range != ">=2.0.0" {
		t.Errorf("unexpected deps: %+v", spec.Deps)
	}
	if len(spec.BuildOptions) != 1 || spec.BuildOptions[0].Name != "gcc" {
		t.Errorf("unexpected build options: %+v", spec.BuildOptions)
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	spec, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	data, err := Marshal(spec)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	reparsed, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse(Marshal(...)): %v", err)
	}
	if reparsed.Pkg.String() != spec.Pkg.String() {
		t.Errorf("round trip changed Pkg: %s != %s", reparsed.Pkg, spec.Pkg)
	}
}

func TestFSRepository(t *testing.T) {
	root := t.TempDir()
	repo := NewFSRepository("local", root)

	spec, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := repo.Write(spec); err != nil {
		t.Fatalf("Write: %v", err)
	}

	versions, err := repo.ListVersions("mytool")
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(versions) != 1 {
		t.Fatalf("expected 1 version, got %d", len(versions))
	}

	got, err := repo.ReadSpec("mytool/1.2.0")
	if err != nil {
		t.Fatalf("ReadSpec: %v", err)
	}
	if got.Pkg.String() != spec.Pkg.String() {
		t.Errorf("ReadSpec returned %s, want %s", got.Pkg, spec.Pkg)
	}

	if _, err := os.Stat(filepath.Join(root, "mytool", "mytool-1.2.0.yaml")); err != nil {
		t.Errorf("expected spec file on disk: %v", err)
	}
}
