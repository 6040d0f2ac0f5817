// Package cas implements strata's content-addressed object store: blobs,
// manifests, layers and platforms, plus the two-phase atomic blob writer.
// Its Blob/Manifest/Layer/Platform model generalizes the atomic-write,
// digest-sharded, JSON-persisted aggregate approach used for OCI images
// to a Merkle-tree manifest with MASK whiteout entries and hardlinked,
// sentinel-guarded renders.
package cas

import (
	"encoding/json"
	"io/fs"
	"sort"

	"strata/pkg/digest"
)

// EntryKind is the closed set of manifest entry kinds.
type EntryKind int

const (
	// KindTree is a directory entry; its Object digest is the manifest
	// digest of its own sorted children.
	KindTree EntryKind = iota
	// KindBlob is a regular file or symlink entry; its Object digest
	// addresses the file's content (or the symlink target string).
	KindBlob
	// KindMask records a deletion against lower layers (whiteout).
	KindMask
)

func (k EntryKind) String() string {
	switch k {
	case KindTree:
		return "tree"
	case KindBlob:
		return "blob"
	case KindMask:
		return "mask"
	default:
		return "unknown"
	}
}

// Entry is one path record within a Manifest.
type Entry struct {
	Kind EntryKind `json:"kind"`
	// Mode carries POSIX permission bits plus file-type bits (the
	// symlink bit in particular distinguishes a KindBlob entry that is
	// a symlink from one that is a regular file).
	Mode   fs.FileMode   `json:"mode"`
	Object digest.Digest `json:"object,omitempty"`
	Size   int64         `json:"size"`
	Name   string        `json:"name"`
}

// IsSymlink reports whether this blob entry's content is a symlink target
// rather than regular file data.
func (e Entry) IsSymlink() bool {
	return e.Mode&fs.ModeSymlink != 0
}

// TreeNode is one directory level of a Manifest: an ordered-by-name set of
// child entries, each possibly pointing at a nested TreeNode.
type TreeNode struct {
	Entry    Entry                `json:"entry"`
	Children map[string]*TreeNode `json:"children,omitempty"`
}

// sortedNames returns the child names of t in lexicographic byte order,
// the sort key the Merkle digest is defined over.
func (t *TreeNode) sortedNames() []string {
	names := make([]string, 0, len(t.Children))
	for name := range t.Children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// treeDigestPayload is the canonical, order-independent serialization a
// TREE digest is computed over: sorted children, each reduced to the
// fields that affect content identity (I2 — no inode numbers, no owner,
// no timestamps).
type treeDigestPayload struct {
	Name   string        `json:"name"`
	Kind   EntryKind     `json:"kind"`
	Mode   fs.FileMode   `json:"mode"`
	Object digest.Digest `json:"object,omitempty"`
	Size   int64         `json:"size"`
}

// computeTreeDigest derives the Merkle digest of a directory's sorted
// children: SHA-256 over the canonical serialization of the sorted
// child entries.
func computeTreeDigest(t *TreeNode) digest.Digest {
	names := t.sortedNames()
	payload := make([]treeDigestPayload, 0, len(names))
	for _, name := range names {
		child := t.Children[name]
		payload = append(payload, treeDigestPayload{
			Name:   name,
			Kind:   child.Entry.Kind,
			Mode:   child.Entry.Mode,
			Object: child.Entry.Object,
			Size:   child.Entry.Size,
		})
	}
	// json.Marshal of a slice preserves insertion order, so the explicit
	// sort above is what makes this canonical, not map iteration order.
	data, err := json.Marshal(payload)
	if err != nil {
		// payload is composed entirely of marshalable primitives.
		panic("cas: unreachable marshal failure: " + err.Error())
	}
	return digest.FromBytes(data)
}

// Layer is a manifest plus an ordered environment overlay. Immutable once
// written; its digest derives from (manifest digest ⊕ serialized env).
type Layer struct {
	Digest   digest.Digest `json:"digest"`
	Manifest *Manifest     `json:"manifest"`
	Env      []EnvVar      `json:"env"`
}

// EnvVar is one ordered (key, value) pair of a Layer's environment
// overlay. A slice (not a map) because later values with the same key
// during resolution are defined to override, and ordering must be
// preserved to make that deterministic.
type EnvVar struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// computeLayerDigest derives a Layer's digest from its manifest digest and
// serialized env.
func computeLayerDigest(manifestDigest digest.Digest, env []EnvVar) digest.Digest {
	data, err := json.Marshal(struct {
		Manifest digest.Digest `json:"manifest"`
		Env      []EnvVar      `json:"env"`
	}{Manifest: manifestDigest, Env: env})
	if err != nil {
		panic("cas: unreachable marshal failure: " + err.Error())
	}
	return digest.FromBytes(data)
}

// NewLayer builds a Layer from a manifest and env, computing its digest.
func NewLayer(manifest *Manifest, env []EnvVar) *Layer {
	return &Layer{
		Digest:   computeLayerDigest(manifest.Digest(), env),
		Manifest: manifest,
		Env:      env,
	}
}

// Platform is an ordered, bottom-to-top stack of layer digests. Later
// layers override earlier ones on path conflicts under union-mount
// semantics.
type Platform struct {
	Digest digest.Digest   `json:"digest"`
	Stack  []digest.Digest `json:"stack"`
}

// NewPlatform builds a Platform over stack, computing its digest as
// SHA-256 over the concatenated stack digests.
func NewPlatform(stack []digest.Digest) *Platform {
	var buf []byte
	for _, d := range stack {
		buf = append(buf, []byte(d.String())...)
	}
	cp := make([]digest.Digest, len(stack))
	copy(cp, stack)
	return &Platform{
		Digest: digest.FromBytes(buf),
		Stack:  cp,
	}
}

// RuntimeConfig is the persisted, mutable configuration of a Runtime: the
// ordered list of layer/platform refs composing its filesystem view.
type RuntimeConfig struct {
	Layers []string `json:"layers"`
}

// Runtime is mutable working state backed by a union mount of layers. It
// is not content-addressed; it is identified by a freshly generated ID
// (see pkg/repo for the ID-keyed directory layout and lifecycle).
type Runtime struct {
	ID       string        `json:"id"`
	Config   RuntimeConfig `json:"config"`
	LowerDir string        `json:"lowerdir"`
	UpperDir string        `json:"upperdir"`
	WorkDir  string        `json:"workdir"`
	RootDir  string        `json:"rootdir"`
}
