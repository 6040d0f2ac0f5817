// Package sync implements point-to-point, idempotent transfer of
// objects between two repositories: a ref and everything it
// transitively references (platform stacks, layer manifests, blobs),
// walking parent-after-children so a transfer can resume cleanly after
// a crash, and reporting progress roughly every 100 manifest entries.
package sync

import (
	"fmt"

	"go.uber.org/multierr"

	"strata/internal/obslog"
	"strata/pkg/cas"
	"strata/pkg/digest"
	"strata/pkg/repo"
)

// ProgressEvent is emitted by Sync roughly every 100 manifest entries
// processed within a single layer transfer. It is a typed callback
// rather than a Writer so callers (CLI or tests) can observe structured
// progress without parsing text.
type ProgressEvent struct {
	LayerDigest string
	Processed   int
	Total       int
}

// ProgressFunc receives ProgressEvents during a layer sync. A nil
// ProgressFunc is valid and simply discards events.
type ProgressFunc func(ProgressEvent)

// Result summarizes one sync_ref invocation.
type Result struct {
	// Ref is the resolved object as it exists in dest after the sync.
	Ref *repo.Ref
}

// Ref transfers ref and everything it transitively references from src
// to dest: reads the object from src, syncs it, and — if ref is not
// already the object's canonical digest — tags it on dest too, so that
// named refs (not just digests) become resolvable on the destination.
func Ref(src, dest *repo.Repository, ref string, progress ProgressFunc) (*Result, error) {
	obj, err := src.ReadRef(ref)
	if err != nil {
		return nil, fmt.Errorf("sync read %s from source: %w", ref, err)
	}

	if err := object(obj, src, dest, progress); err != nil {
		return nil, err
	}

	if obj.Digest != "" && ref != obj.Digest.String() {
		if err := dest.Tag(obj.Digest.String(), ref); err != nil {
			return nil, fmt.Errorf("tag synced ref %s: %w", ref, err)
		}
	}
	return &Result{Ref: obj}, nil
}

func object(obj *repo.Ref, src, dest *repo.Repository, progress ProgressFunc) error {
	switch {
	case obj.Layer != nil:
		return Layer(obj.Layer, src, dest, progress)
	case obj.Platform != nil:
		return Platform(obj.Platform, src, dest, progress)
	default:
		return fmt.Errorf("sync: unhandled object kind for ref with digest %q", obj.Digest)
	}
}

// Platform syncs p's full stack — parent-after-children — before
// writing p itself. A crash after the last stack entry lands but before
// WritePlatform leaves dest without p, and a retry simply resumes
// because every step is idempotent via the Has* checks.
func Platform(p *cas.Platform, src, dest *repo.Repository, progress ProgressFunc) error {
	if dest.HasPlatform(p.Digest) {
		obslog.Default().WithField("digest", p.Digest).Debug("platform exists locally")
		return nil
	}
	obslog.Default().WithField("digest", p.Digest).Info("syncing platform")

	for _, d := range p.Stack {
		if _, err := Ref(src, dest, d.String(), progress); err != nil {
			return fmt.Errorf("sync platform %s stack entry %s: %w", p.Digest, d, err)
		}
	}
	return dest.WritePlatform(p)
}

// Layer syncs l's manifest blobs before writing l itself. Non-BLOB
// entries (TREE, MASK) carry no payload and are skipped.
func Layer(l *cas.Layer, src, dest *repo.Repository, progress ProgressFunc) error {
	if dest.HasLayer(l.Digest) {
		obslog.Default().WithField("digest", l.Digest).Debug("layer exists locally")
		return nil
	}
	obslog.Default().WithField("digest", l.Digest).Info("syncing layer")

	entries := l.Manifest.Entries()
	total := len(entries)

	var errs error
	processed := 0
	for _, ent := range entries {
		processed++
		if progress != nil && processed%100 == 0 {
			progress(ProgressEvent{LayerDigest: l.Digest.String(), Processed: processed, Total: total})
		}

		if ent.Entry.Kind != cas.KindBlob {
			continue
		}
		if dest.Blobs.Has(ent.Entry.Object) {
			continue
		}
		if err := copyBlob(src, dest, ent.Entry.Object, ent.Entry.Size); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("sync blob %s: %w", ent.Entry.Object, err))
			continue
		}
	}
	if errs != nil {
		return errs
	}

	return dest.WriteLayer(l)
}

func copyBlob(src, dest *repo.Repository, d digest.Digest, size int64) error {
	rc, err := src.Blobs.Open(d)
	if err != nil {
		return fmt.Errorf("open source blob: %w", err)
	}
	defer rc.Close()

	if err := dest.Blobs.WriteVerified(rc, d, size); err != nil {
		return fmt.Errorf("write dest blob: %w", err)
	}
	return nil
}
