// Package render materializes manifests from a BlobStore into real
// directories via hard links, and commits rendered/working directories
// back into a repository's content-addressed storage. Renders build
// directly into the final render directory, ignoring EEXIST on each
// mkdir/link/symlink so concurrent renderers of the same digest (or a
// retry after the .completed sentinel was deleted but files survived)
// converge without a lock; a .completed sentinel written last marks a
// render complete rather than half-finished. Opaque/path whiteouts are
// expressed as MASK manifest entries.
package render

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"strata/pkg/cas"
	"strata/pkg/digest"
)

// completedSentinel is the marker file written as the last step of a
// render, so a reader can distinguish "fully rendered" from a render
// whose entries are still being laid down, or were cut short by a crash
// (spec invariant I5).
const completedSentinel = ".completed"

// Renderer materializes manifests into real directories backed by a
// BlobStore's content.
type Renderer struct {
	store *cas.BlobStore
}

// New returns a Renderer reading blobs from store.
func New(store *cas.BlobStore) *Renderer {
	return &Renderer{store: store}
}

// DirFor computes a layer manifest's render directory, per spec §6's
// on-disk layout: `<pack>/renders/<hex[0:2]>/<hex[2:]>`.
func (r *Renderer) DirFor(manifestDigest digest.Digest) string {
	enc := manifestDigest.Encoded()
	return filepath.Join(r.store.Root(), "renders", enc[:2], enc[2:])
}

// RenderLayer renders l's manifest to its canonical render directory
// and returns that directory.
func (r *Renderer) RenderLayer(l *cas.Layer) (string, error) {
	dir := r.DirFor(l.Manifest.Digest())
	if err := r.Render(l.Manifest, dir); err != nil {
		return "", err
	}
	return dir, nil
}

// IsRendered reports whether dir holds a complete render (the
// .completed sentinel is present).
func IsRendered(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, completedSentinel))
	return err == nil
}

// Render materializes m directly under dir: directories are created,
// regular files are hard-linked in from the blob store (not copied —
// renders share inode storage with the CAS), symlinks are recreated
// from the target string stored in their blob, and on success a
// .completed sentinel is written. Every
// mkdir/link/symlink ignores EEXIST, so Render is safe to run
// concurrently against the same dir from independent processes (spec
// §5: "no locks are required") and idempotent even when dir already
// holds partial or stale content with the sentinel missing (spec §8:
// "re-rendering after deleting the sentinel but leaving files
// succeeds"). If dir already holds a complete render it returns
// immediately.
func (r *Renderer) Render(m *cas.Manifest, dir string) error {
	if IsRendered(dir) {
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create render directory: %w", err)
	}

	if err := m.WalkAbs(dir, func(p string, e cas.Entry) error {
		switch e.Kind {
		case cas.KindTree:
			if err := os.MkdirAll(p, 0o755); err != nil {
				return fmt.Errorf("mkdir %s: %w", p, err)
			}
			return nil
		case cas.KindBlob:
			if e.IsSymlink() {
				target, err := r.readSymlinkTarget(e.Object)
				if err != nil {
					return err
				}
				if err := os.Symlink(target, p); err != nil && !os.IsExist(err) {
					return fmt.Errorf("symlink %s: %w", p, err)
				}
				return nil
			}
			if err := r.hardlinkBlob(e.Object, p); err != nil {
				return err
			}
			return nil
		case cas.KindMask:
			// A MASK entry in a manifest being rendered fresh has no
			// lower layer to hide; rendering is a no-op for it. MASK
			// only matters when a manifest is interpreted as a diff
			// against an existing lower directory, which this package
			// does not do.
			return nil
		default:
			return fmt.Errorf("render %s: unknown entry kind %v", p, e.Kind)
		}
	}); err != nil {
		return err
	}

	if err := r.fixupPermissions(m, dir); err != nil {
		return err
	}

	if err := os.WriteFile(filepath.Join(dir, completedSentinel), nil, 0o644); err != nil {
		return fmt.Errorf("write render sentinel: %w", err)
	}
	return nil
}

// fixupPermissions applies each entry's recorded mode, longest path
// first so that every child is handled before its parent, since hard-linking a
// file preserves the blob's permissions but MkdirAll above always uses
// 0o755 regardless of the manifest's recorded directory mode.
func (r *Renderer) fixupPermissions(m *cas.Manifest, root string) error {
	entries := m.Entries()
	sort.SliceStable(entries, func(i, j int) bool {
		return len(entries[i].Path) > len(entries[j].Path)
	})
	for _, ent := range entries {
		if ent.Entry.Kind == cas.KindMask {
			continue
		}
		if ent.Entry.IsSymlink() {
			continue
		}
		p := filepath.Join(root, filepath.FromSlash(ent.Path))
		if err := os.Chmod(p, ent.Entry.Mode.Perm()); err != nil {
			return fmt.Errorf("chmod %s: %w", p, err)
		}
	}
	return nil
}

func (r *Renderer) readSymlinkTarget(d digest.Digest) (string, error) {
	rc, err := r.store.Open(d)
	if err != nil {
		return "", fmt.Errorf("read symlink target blob %s: %w", d, err)
	}
	defer rc.Close()
	buf := make([]byte, 4096)
	n, err := rc.Read(buf)
	if err != nil && n == 0 {
		return "", fmt.Errorf("read symlink target blob %s: %w", d, err)
	}
	return string(buf[:n]), nil
}

func (r *Renderer) hardlinkBlob(d digest.Digest, target string) error {
	blobPath := filepath.Join(r.store.Root(), d.Encoded()[:2], d.Encoded()[2:])
	if err := os.Link(blobPath, target); err != nil && !os.IsExist(err) {
		return fmt.Errorf("hardlink blob %s to %s: %w", d, target, err)
	}
	return nil
}

// CommitDir walks dir, stores every regular file's content and every
// symlink's target string as a blob (deduplicating against content
// already present, per I1), and returns the resulting Manifest. This
// is the inverse of Render: it turns a freshly-populated working
// directory (e.g. a runtime's upperdir after a build step) into
// content-addressed, immutable storage. Grounded on original_source's
// commit_dir.
//
// This cannot reuse cas.ComputeManifest directly: that helper only
// hashes regular files in place (the expectation there is that a blob
// with the same digest is already stored by some other path), whereas
// commit is precisely the operation that must place the bytes.
func CommitDir(store *cas.BlobStore, dir string) (*cas.Manifest, error) {
	root, err := commitTreeNode(store, dir, "")
	if err != nil {
		return nil, err
	}
	return cas.NewManifest(root), nil
}

func commitTreeNode(store *cas.BlobStore, path, name string) (*cas.TreeNode, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	if fi.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(path)
		if err != nil {
			return nil, fmt.Errorf("readlink %s: %w", path, err)
		}
		d, err := store.WriteBytes([]byte(target))
		if err != nil {
			return nil, fmt.Errorf("commit symlink target %s: %w", path, err)
		}
		return &cas.TreeNode{Entry: cas.Entry{
			Kind:   cas.KindBlob,
			Mode:   fi.Mode(),
			Object: d,
			Size:   int64(len(target)),
			Name:   name,
		}}, nil
	}

	if fi.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("read dir %s: %w", path, err)
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		sort.Strings(names)

		children := make(map[string]*cas.TreeNode, len(names))
		for _, childName := range names {
			child, err := commitTreeNode(store, filepath.Join(path, childName), childName)
			if err != nil {
				return nil, err
			}
			children[childName] = child
		}
		return &cas.TreeNode{
			Entry:    cas.Entry{Kind: cas.KindTree, Mode: fi.Mode(), Name: name},
			Children: children,
		}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	d, size, err := store.Write(f)
	if err != nil {
		return nil, fmt.Errorf("commit file %s: %w", path, err)
	}
	return &cas.TreeNode{Entry: cas.Entry{
		Kind:   cas.KindBlob,
		Mode:   fi.Mode(),
		Object: d,
		Size:   size,
		Name:   name,
	}}, nil
}
