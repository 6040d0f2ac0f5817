// Package repo implements strata's Repository: the pack/plat/run/tags
// namespace that aggregates a BlobStore, platform storage, runtime
// storage and tag indirection into the object graph described by the
// spec's data model.
//
// Grounded on original_source's storage/_repository.py (directory
// layout, read_ref's tag-then-storage-order resolution, tag/iter_tags/
// find_aliases, commit_package/commit_platform) and adapted from the
// teacher's internal/image/store.go (JSON-persisted aggregates,
// sharded blob paths) and internal/state/store.go (ID-keyed directory
// layout for mutable state, reused here for run/<id>).
package repo

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"strata/pkg/cas"
	"strata/pkg/digest"
	strataerrors "strata/pkg/errors"
	"strata/pkg/fileutil"
	"strata/pkg/render"
)

const (
	dirPack = "pack"
	dirPlat = "plat"
	dirTag  = "tags"
	dirRun  = "run"
)

// dirs is the set of top-level directories ensure_repository creates,
// in the order original_source declares them.
var dirs = []string{dirPack, dirPlat, dirTag, dirRun}

// Repository is a content-addressed object store rooted at a single
// directory, exposing blob/layer/platform storage, tag indirection and
// runtime working-directory management.
type Repository struct {
	root string

	Blobs    *cas.BlobStore
	Renderer *render.Renderer
}

// Open opens an existing repository rooted at path. It creates only
// the pack/ blob directory (and any missing parents) if absent, not
// plat/, tags/ or run/; use EnsureRepository to create-or-open.
func Open(path string) (*Repository, error) {
	root, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve repository root: %w", err)
	}
	blobs, err := cas.NewBlobStore(filepath.Join(root, dirPack), 0)
	if err != nil {
		return nil, err
	}
	return &Repository{
		root:     root,
		Blobs:    blobs,
		Renderer: render.New(blobs),
	}, nil
}

// EnsureRepository creates the directory structure idempotently and
// returns a Repository over it, mirroring original_source's
// ensure_repository.
func EnsureRepository(path string) (*Repository, error) {
	root, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve repository root: %w", err)
	}
	if err := os.MkdirAll(root, 0o777); err != nil {
		return nil, fmt.Errorf("create repository root: %w", err)
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o777); err != nil {
			return nil, fmt.Errorf("create repository subdirectory %s: %w", d, err)
		}
	}
	return Open(root)
}

// Root returns the repository's absolute root directory.
func (r *Repository) Root() string { return r.root }

func (r *Repository) platformsDir() string { return filepath.Join(r.root, dirPlat) }
func (r *Repository) runsDir() string      { return filepath.Join(r.root, dirRun) }
func (r *Repository) tagsDir() string      { return filepath.Join(r.root, dirTag) }

func (r *Repository) platformPath(d digest.Digest) string {
	enc := d.Encoded()
	return filepath.Join(r.platformsDir(), enc[:2], enc[2:])
}

func (r *Repository) layerManifestPath(d digest.Digest) string {
	enc := d.Encoded()
	return filepath.Join(r.root, dirPack, "layers", enc[:2], enc[2:])
}

// HasLayer reports whether layer digest d has been written.
func (r *Repository) HasLayer(d digest.Digest) bool {
	_, err := os.Stat(r.layerManifestPath(d))
	return err == nil
}

// HasPlatform reports whether platform digest d has been written.
func (r *Repository) HasPlatform(d digest.Digest) bool {
	_, err := os.Stat(r.platformPath(d))
	return err == nil
}

// WriteLayer persists a layer's manifest and env; its blobs must
// already be present. Callers are responsible for write-ordering, e.g.
// Sync writes blobs before calling WriteLayer.
func (r *Repository) WriteLayer(l *cas.Layer) error {
	data, err := encodeLayer(l)
	if err != nil {
		return fmt.Errorf("encode layer %s: %w", l.Digest, err)
	}
	path := r.layerManifestPath(l.Digest)
	if err := os.MkdirAll(filepath.Dir(path), 0o777); err != nil {
		return fmt.Errorf("create layer shard directory: %w", err)
	}
	if err := fileutil.AtomicWriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write layer %s: %w", l.Digest, err)
	}
	return nil
}

// ReadLayer loads a previously written layer by digest.
func (r *Repository) ReadLayer(d digest.Digest) (*cas.Layer, error) {
	data, err := os.ReadFile(r.layerManifestPath(d))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: layer %s", strataerrors.ErrUnknownObject, d)
		}
		return nil, fmt.Errorf("read layer %s: %w", d, err)
	}
	return decodeLayer(data)
}

// WritePlatform persists a platform; its stack entries must already be
// present on this repository (I3, enforced by sync_platform's
// parent-after-children ordering).
func (r *Repository) WritePlatform(p *cas.Platform) error {
	data, err := encodePlatform(p)
	if err != nil {
		return fmt.Errorf("encode platform %s: %w", p.Digest, err)
	}
	path := r.platformPath(p.Digest)
	if err := os.MkdirAll(filepath.Dir(path), 0o777); err != nil {
		return fmt.Errorf("create platform shard directory: %w", err)
	}
	if err := fileutil.AtomicWriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write platform %s: %w", p.Digest, err)
	}
	return nil
}

// ReadPlatform loads a previously written platform by digest.
func (r *Repository) ReadPlatform(d digest.Digest) (*cas.Platform, error) {
	data, err := os.ReadFile(r.platformPath(d))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: platform %s", strataerrors.ErrUnknownObject, d)
		}
		return nil, fmt.Errorf("read platform %s: %w", d, err)
	}
	return decodePlatform(data)
}

// Ref is the result of resolving a ref: exactly one of Layer, Platform
// or Runtime is set.
type Ref struct {
	Digest   digest.Digest
	Layer    *cas.Layer
	Platform *cas.Platform
	Runtime  *cas.Runtime
}

// ReadRef resolves ref: first attempt tag-file indirection (a ref may
// itself already be a digest, in which case the tag file simply won't
// exist and lookup falls through), then try layer, then platform, then
// runtime storage, first success wins.
func (r *Repository) ReadRef(ref string) (*Ref, error) {
	resolved := ref
	if target, ok, err := r.readTagFile(ref); err != nil {
		return nil, err
	} else if ok {
		resolved = target
	}

	if d, err := digest.Parse(resolved); err == nil {
		if l, err := r.ReadLayer(d); err == nil {
			return &Ref{Digest: d, Layer: l}, nil
		}
		if p, err := r.ReadPlatform(d); err == nil {
			return &Ref{Digest: d, Platform: p}, nil
		}
	}
	if rt, err := r.GetRuntime(resolved); err == nil {
		return &Ref{Digest: digest.Digest(""), Runtime: rt}, nil
	}

	return nil, fmt.Errorf("%w: %s", strataerrors.ErrUnknownRef, ref)
}

// readTagFile reads the tag file for ref, if one exists, returning its
// target and true; returns false (not an error) if ref has no tag.
func (r *Repository) readTagFile(ref string) (string, bool, error) {
	path := filepath.Join(r.tagsDir(), filepath.FromSlash(ref))
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read tag %s: %w", ref, err)
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return "", false, fmt.Errorf("read tag %s: empty tag file", ref)
	}
	return strings.TrimSpace(scanner.Text()), true, nil
}

// Tag resolves ref to its canonical digest and atomically writes the
// tag file `tag` → digest, creating any parent directories.
func (r *Repository) Tag(ref, tag string) error {
	resolved, err := r.ReadRef(ref)
	if err != nil {
		return err
	}
	d := resolved.Digest
	if d == "" {
		return fmt.Errorf("cannot tag a runtime ref: %s", ref)
	}

	path := filepath.Join(r.tagsDir(), filepath.FromSlash(tag))
	if err := os.MkdirAll(filepath.Dir(path), 0o777); err != nil {
		return fmt.Errorf("create tag directory: %w", err)
	}
	return fileutil.AtomicWriteFile(path, []byte(d.String()+"\n"), 0o644)
}

// TagEntry is one (tag name, target digest) pair yielded by IterTags.
type TagEntry struct {
	Tag    string
	Target string
}

// IterTags performs a depth-first walk of tags/, yielding every tag
// relative to the tags root alongside its target digest string.
func (r *Repository) IterTags() ([]TagEntry, error) {
	var entries []TagEntry
	tagRoot := r.tagsDir()
	err := filepath.Walk(tagRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(tagRoot, path)
		if err != nil {
			return err
		}
		target, ok, err := r.readTagFile(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		entries = append(entries, TagEntry{Tag: filepath.ToSlash(rel), Target: target})
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("walk tags: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Tag < entries[j].Tag })
	return entries, nil
}

// FindAliases returns every tag pointing at ref's canonical digest,
// excluding the canonical digest string itself.
func (r *Repository) FindAliases(ref string) ([]string, error) {
	resolved, err := r.ReadRef(ref)
	if err != nil {
		return nil, err
	}
	canonical := resolved.Digest.String()

	tags, err := r.IterTags()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	for _, t := range tags {
		if t.Target == canonical && t.Tag != canonical {
			seen[t.Tag] = struct{}{}
		}
	}
	aliases := make([]string, 0, len(seen))
	for a := range seen {
		aliases = append(aliases, a)
	}
	sort.Strings(aliases)
	return aliases, nil
}

// CommitPackage commits the working file changes of a runtime
// (its upperdir) to a new Layer, per spec §4.4.
func (r *Repository) CommitPackage(rt *cas.Runtime, env []cas.EnvVar) (*cas.Layer, error) {
	manifest, err := render.CommitDir(r.Blobs, rt.UpperDir)
	if err != nil {
		return nil, fmt.Errorf("commit runtime %s upperdir: %w", rt.ID, err)
	}
	layer := cas.NewLayer(manifest, env)
	if err := r.WriteLayer(layer); err != nil {
		return nil, err
	}
	return layer, nil
}

// CommitPlatform commits the runtime's upperdir as a top layer,
// appends it to the runtime's layer stack, and snapshots the full
// stack as a new Platform, per spec §4.4.
func (r *Repository) CommitPlatform(rt *cas.Runtime, env []cas.EnvVar) (*cas.Platform, error) {
	top, err := r.CommitPackage(rt, env)
	if err != nil {
		return nil, err
	}
	rt.Config.Layers = append(rt.Config.Layers, top.Digest.String())

	stack := make([]digest.Digest, 0, len(rt.Config.Layers))
	for _, ref := range rt.Config.Layers {
		resolved, err := r.ReadRef(ref)
		if err != nil {
			return nil, fmt.Errorf("resolve platform stack entry %s: %w", ref, err)
		}
		stack = append(stack, resolved.Digest)
	}

	platform := cas.NewPlatform(stack)
	if err := r.WritePlatform(platform); err != nil {
		return nil, err
	}
	if err := r.saveRuntime(rt); err != nil {
		return nil, fmt.Errorf("persist runtime %s layer append: %w", rt.ID, err)
	}
	return platform, nil
}
