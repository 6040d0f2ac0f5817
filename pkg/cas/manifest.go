package cas

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"strata/pkg/digest"
)

// Manifest is a rooted Merkle tree of path entries describing a directory:
// identical directory contents produce an identical manifest digest,
// independent of filesystem inode ordering.
type Manifest struct {
	root *TreeNode
}

// NewManifest wraps an already-built root TreeNode as a Manifest,
// recomputing digests bottom-up so callers never have to do it by hand.
func NewManifest(root *TreeNode) *Manifest {
	recomputeDigests(root)
	return &Manifest{root: root}
}

func recomputeDigests(t *TreeNode) {
	if t.Entry.Kind != KindTree {
		return
	}
	for _, child := range t.Children {
		recomputeDigests(child)
	}
	t.Entry.Object = computeTreeDigest(t)
}

// Digest returns the manifest's root digest.
func (m *Manifest) Digest() digest.Digest {
	if m.root == nil {
		return ""
	}
	return m.root.Entry.Object
}

// Root returns the manifest's root TreeNode, for callers (persistence,
// diffing) that need direct tree access.
func (m *Manifest) Root() *TreeNode { return m.root }

// MarshalJSON serializes the manifest's root tree, the form persisted
// under a repository's layer storage.
func (m *Manifest) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.root)
}

// UnmarshalJSON restores a manifest from its persisted root tree.
// Digests are not recomputed: the persisted tree is trusted, since it
// was computed once, at write time.
func (m *Manifest) UnmarshalJSON(data []byte) error {
	var root *TreeNode
	if err := json.Unmarshal(data, &root); err != nil {
		return err
	}
	m.root = root
	return nil
}

// WalkFunc is invoked for each (path, entry) pair during a Walk, in
// pre-order (parent before children).
type WalkFunc func(p string, e Entry) error

// Walk performs a pre-order traversal of the manifest, yielding paths
// relative to the manifest root ("/" for the root itself).
func (m *Manifest) Walk(fn WalkFunc) error {
	if m.root == nil {
		return nil
	}
	return walkNode(m.root, "/", fn)
}

func walkNode(t *TreeNode, p string, fn WalkFunc) error {
	if err := fn(p, t.Entry); err != nil {
		return err
	}
	if t.Entry.Kind != KindTree {
		return nil
	}
	names := t.sortedNames()
	for _, name := range names {
		child := t.Children[name]
		childPath := path.Join(p, name)
		if err := walkNode(child, childPath, fn); err != nil {
			return err
		}
	}
	return nil
}

// WalkAbs is Walk with every yielded path prefixed by root, matching the
// original's walk_abs(root) used when rendering a manifest under a real
// filesystem directory.
func (m *Manifest) WalkAbs(root string, fn WalkFunc) error {
	return m.Walk(func(p string, e Entry) error {
		return fn(filepath.Join(root, filepath.FromSlash(p)), e)
	})
}

// Entries returns every (path, entry) pair in pre-order. Callers that need
// reverse pre-order (e.g. the renderer's permission-fixup pass) can simply
// reverse the returned slice.
func (m *Manifest) Entries() []struct {
	Path  string
	Entry Entry
} {
	var out []struct {
		Path  string
		Entry Entry
	}
	_ = m.Walk(func(p string, e Entry) error {
		out = append(out, struct {
			Path  string
			Entry Entry
		}{Path: p, Entry: e})
		return nil
	})
	return out
}

// ErrNotFound is returned by GetPath when no entry exists at the given
// path.
var ErrNotFound = fmt.Errorf("cas: path not found in manifest")

// GetPath resolves a manifest-relative path (slash-separated, "/"-rooted
// or not) to its Entry.
func (m *Manifest) GetPath(p string) (Entry, error) {
	if m.root == nil {
		return Entry{}, ErrNotFound
	}
	p = strings.Trim(path.Clean("/"+p), "/")
	node := m.root
	if p == "" {
		return node.Entry, nil
	}
	for _, part := range strings.Split(p, "/") {
		if node.Entry.Kind != KindTree {
			return Entry{}, ErrNotFound
		}
		next, ok := node.Children[part]
		if !ok {
			return Entry{}, ErrNotFound
		}
		node = next
	}
	return node.Entry, nil
}

// BlobWriter is the subset of a BlobStore that ComputeManifest needs to
// persist symlink-target blobs as it walks. Regular file content is
// hashed in place (no copy) because the store's final blob path is
// itself content-addressed: a later BlobStore.Write (or commit flow)
// places the real bytes, so ComputeManifest only needs to record the
// digests it computed while walking.
type BlobWriter interface {
	// WriteBytes stores raw bytes as a blob (used for symlink target
	// strings) and returns its digest.
	WriteBytes(b []byte) (digest.Digest, error)
}

// ComputeManifest walks dir depth-first and builds its Manifest: regular
// files hash their content, symlinks hash their target string (also
// persisted as a blob via bw so the renderer can later read it back),
// directories recurse and sort children by name.
func ComputeManifest(dir string, bw BlobWriter) (*Manifest, error) {
	root, err := computeTreeNode(dir, "", bw)
	if err != nil {
		return nil, err
	}
	return NewManifest(root), nil
}

func computeTreeNode(dir, name string, bw BlobWriter) (*TreeNode, error) {
	fi, err := os.Lstat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", dir, err)
	}

	switch {
	case fi.Mode()&fs.ModeSymlink != 0:
		target, err := os.Readlink(dir)
		if err != nil {
			return nil, fmt.Errorf("readlink %s: %w", dir, err)
		}
		d, err := bw.WriteBytes([]byte(target))
		if err != nil {
			return nil, fmt.Errorf("store symlink target %s: %w", dir, err)
		}
		return &TreeNode{Entry: Entry{
			Kind:   KindBlob,
			Mode:   fi.Mode(),
			Object: d,
			Size:   int64(len(target)),
			Name:   name,
		}}, nil

	case fi.IsDir():
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("read dir %s: %w", dir, err)
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		sort.Strings(names)

		children := make(map[string]*TreeNode, len(names))
		for _, childName := range names {
			child, err := computeTreeNode(filepath.Join(dir, childName), childName, bw)
			if err != nil {
				return nil, err
			}
			children[childName] = child
		}
		node := &TreeNode{
			Entry:    Entry{Kind: KindTree, Mode: fi.Mode(), Name: name},
			Children: children,
		}
		node.Entry.Object = computeTreeDigest(node)
		return node, nil

	default:
		f, err := os.Open(dir)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", dir, err)
		}
		defer f.Close()
		d, size, err := digest.FromReader(f)
		if err != nil {
			return nil, fmt.Errorf("hash %s: %w", dir, err)
		}
		return &TreeNode{Entry: Entry{
			Kind:   KindBlob,
			Mode:   fi.Mode(),
			Object: d,
			Size:   size,
			Name:   name,
		}}, nil
	}
}
