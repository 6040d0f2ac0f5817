package cas

import (
	"io"
	"strings"
	"testing"

	"strata/pkg/digest"
)

// TestBlobRoundTrip asserts that writing "hello\n" produces the literal
// digest sha256:5891b5b5..., and that opening that digest returns the
// same bytes back.
func TestBlobRoundTrip(t *testing.T) {
	store, err := NewBlobStore(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("NewBlobStore: %v", err)
	}

	d, size, err := store.Write(strings.NewReader("hello\n"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if size != 6 {
		t.Errorf("expected size 6, got %d", size)
	}

	const want = digest.Digest("sha256:5891b5b522d5df086d0ff0b110fbd9d21bb4fc7163af34d08286a2e846f6be03")
	if d != want {
		t.Errorf("digest = %s, want %s", d, want)
	}

	rc, err := store.Open(d)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read blob: %v", err)
	}
	if string(got) != "hello\n" {
		t.Errorf("blob content = %q, want %q", got, "hello\n")
	}
}

// TestBlobWriteIdempotent implements the second half of scenario 1: a
// second write of identical content returns the same digest and does
// not error, even though the destination path already exists.
func TestBlobWriteIdempotent(t *testing.T) {
	store, err := NewBlobStore(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("NewBlobStore: %v", err)
	}

	d1, _, err := store.Write(strings.NewReader("hello\n"))
	if err != nil {
		t.Fatalf("first Write: %v", err)
	}
	d2, _, err := store.Write(strings.NewReader("hello\n"))
	if err != nil {
		t.Fatalf("second Write: %v", err)
	}
	if d1 != d2 {
		t.Errorf("expected identical digests, got %s and %s", d1, d2)
	}
}

func TestBlobHas(t *testing.T) {
	store, err := NewBlobStore(t.TempDir(), 0)
	if err != nil {
		t.Fatalf("NewBlobStore: %v", err)
	}
	d, err := store.WriteBytes([]byte("present"))
	if err != nil {
		t.Fatalf("WriteBytes: %v", err)
	}
	if !store.Has(d) {
		t.Error("expected Has to report true for a written blob")
	}
	if store.Has(digest.FromString("absent")) {
		t.Error("expected Has to report false for an unwritten blob")
	}
}
