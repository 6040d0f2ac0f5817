package solve

// PackageRepository is the solver's view of a spec source: enumerate
// candidate specs for a package name, and re-read a specific
// identifier's unbuilt base spec (needed when a binary request falls
// back to a source build). This is deliberately distinct from
// pkg/repo.Repository (the content-addressed object store) — the
// solver only ever needs package metadata, never blobs/manifests.
type PackageRepository interface {
	// Name identifies the repository for logging/ordering purposes.
	Name() string
	// ListVersions returns every known Spec for pkgName, in no
	// particular order; the iterator is responsible for sorting.
	ListVersions(pkgName string) ([]*Spec, error)
	// ReadSpec re-reads ident's exact spec (used to reload an
	// unbuilt base spec when a candidate needs building from
	// source).
	ReadSpec(identStr string) (*Spec, error)
	// CanReadSpecs reports whether this repository backs real spec
	// files (false for a repository entry that is itself an inline,
	// embedded spec with nothing further to read).
	CanReadSpecs() bool
}
