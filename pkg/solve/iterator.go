package solve

import (
	"fmt"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	"strata/pkg/ident"
)

// specCacheSize bounds each iterator's memoization of the base specs
// readBaseSpec re-reads for the build-from-source path. Every
// packageIterator (one per Node and package name) owns its own cache,
// so several build variants of one version share a single re-read of
// their base spec; ListVersions results are not cached, and an iterator
// created for a new Node lists its package again.
const specCacheSize = 512

// candidate pairs a Spec with the repository it came from, the shape
// RepositoryPackageIterator yields per spec §4.7.
type candidate struct {
	spec *Spec
	repo PackageRepository
	// rank is repo's position in the iterator's repository list.
	rank int
}

// packageIterator enumerates candidate specs for one package name
// across a set of repositories, in registration order, versions within
// a repo in descending order. It is stateful: each call to next()
// advances a cursor, so that a backtrack which reuses a Node's
// iterator resumes from the next candidate rather than restarting.
type packageIterator struct {
	name    string
	repos   []PackageRepository
	cache   *lru.Cache[string, *Spec]
	entries []candidate
	pos     int
	built   bool
}

// newPackageIterator creates an iterator over name across repos. The
// candidate list is built lazily on first next() call, so construction
// itself never touches a repository.
func newPackageIterator(name string, repos []PackageRepository) *packageIterator {
	cache, err := lru.New[string, *Spec](specCacheSize)
	if err != nil {
		// Only returns an error for a non-positive size, which
		// specCacheSize never is.
		panic(fmt.Sprintf("solve: unreachable lru.New failure: %v", err))
	}
	return &packageIterator{name: name, repos: repos, cache: cache}
}

// clone returns a fresh iterator sharing this one's spec cache (the
// cache is read-through memoization, safe to share) but with its own
// cursor, for a child Node that needs to iterate the same package
// independently of its parent's progress.
func (it *packageIterator) clone() *packageIterator {
	return &packageIterator{
		name:    it.name,
		repos:   it.repos,
		cache:   it.cache,
		entries: it.entries,
		pos:     0,
		built:   it.built,
	}
}

func (it *packageIterator) build() error {
	if it.built {
		return nil
	}
	for rank, r := range it.repos {
		specs, err := r.ListVersions(it.name)
		if err != nil {
			return fmt.Errorf("list versions of %s in repository %s: %w", it.name, r.Name(), err)
		}
		for _, spec := range specs {
			it.entries = append(it.entries, candidate{spec: spec, repo: r, rank: rank})
		}
	}

	sort.SliceStable(it.entries, func(i, j int) bool {
		if it.entries[i].rank != it.entries[j].rank {
			return it.entries[i].rank < it.entries[j].rank
		}
		a, b := it.entries[i].spec.Pkg, it.entries[j].spec.Pkg
		if !a.Version.Equal(b.Version) {
			return a.Version.GreaterThan(b.Version)
		}
		aBuild, bBuild := "", ""
		if a.Build != nil {
			aBuild = a.Build.String()
		}
		if b.Build != nil {
			bBuild = b.Build.String()
		}
		return aBuild < bBuild
	})

	it.built = true
	return nil
}

// next returns the next candidate, or ok=false once exhausted.
func (it *packageIterator) next() (candidate, bool, error) {
	if err := it.build(); err != nil {
		return candidate{}, false, err
	}
	if it.pos >= len(it.entries) {
		return candidate{}, false, nil
	}
	c := it.entries[it.pos]
	it.pos++
	return c, true, nil
}

// readBaseSpec re-reads a candidate's unbuilt base spec, memoized by
// identifier string, for the build-from-source fallback path.
func (it *packageIterator) readBaseSpec(repo PackageRepository, base ident.Ident) (*Spec, error) {
	key := repo.Name() + "/" + base.String()
	if cached, ok := it.cache.Get(key); ok {
		return cached, nil
	}
	spec, err := repo.ReadSpec(base.String())
	if err != nil {
		return nil, err
	}
	it.cache.Add(key, spec)
	return spec, nil
}
