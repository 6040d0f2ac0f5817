// Package specfile (de)serializes package specs from the YAML files a
// repository's source packages carry on disk, producing the
// pkg/solve.Spec values the solver consumes.
//
// Grounded on the pack's own gopkg.in/yaml.v3 usage and on the
// original's ruamel.yaml-based spec loader (spk's package.py
// Spec.from_yaml / Spec.to_yaml), with Ident's custom representer
// carried over as ident.Ident's MarshalYAML/UnmarshalYAML (mirroring
// `yaml.Dumper.add_representer(Ident, ...)`).
package specfile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"strata/pkg/ident"
	"strata/pkg/solve"
)

// Document is the on-disk shape of a package spec YAML file.
type Document struct {
	Pkg     ident.Ident `yaml:"pkg"`
	Source  bool        `yaml:"source,omitempty"`
	Deps    []DepSpec   `yaml:"deps,omitempty"`
	Options []OptSpec   `yaml:"opts,omitempty"`
}

// DepSpec is a single dependency entry: a package name plus an optional
// version range constraint.
type DepSpec struct {
	Name  string `yaml:"name"`
	Range string `yaml:"range,omitempty"`
}

// OptSpec is a single declared build option: a requestable package name
// plus an optional pinned default.
type OptSpec struct {
	Name    string `yaml:"name"`
	Default string `yaml:"default,omitempty"`
}

// Load reads and parses a package spec YAML file from path.
func Load(path string) (*solve.Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spec file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a package spec YAML document into a solve.Spec.
func Parse(data []byte) (*solve.Spec, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse spec: %w", err)
	}

	deps := make([]solve.PkgRequest, 0, len(doc.Deps))
	for _, d := range doc.Deps {
		deps = append(deps, solve.PkgRequest{Name: d.Name, Range: d.Range})
	}
	opts := make([]solve.PkgOpt, 0, len(doc.Options))
	for _, o := range doc.Options {
		opts = append(opts, solve.PkgOpt{Name: o.Name, Default: o.Default})
	}

	return &solve.Spec{
		Pkg:          doc.Pkg,
		Source:       doc.Source,
		Deps:         deps,
		BuildOptions: opts,
	}, nil
}

// Marshal encodes spec back into a YAML document, the inverse of
// Parse; used by FSRepository.Write to persist a spec to disk.
func Marshal(spec *solve.Spec) ([]byte, error) {
	doc := Document{
		Pkg:    spec.Pkg,
		Source: spec.Source,
	}
	for _, d := range spec.Deps {
		doc.Deps = append(doc.Deps, DepSpec{Name: d.Name, Range: d.Range})
	}
	for _, o := range spec.BuildOptions {
		doc.Options = append(doc.Options, OptSpec{Name: o.Name, Default: o.Default})
	}
	return yaml.Marshal(doc)
}
