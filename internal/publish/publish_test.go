package publish

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dirsig/dirsig/internal/manifest"
	"github.com/dirsig/dirsig/internal/snapid"
	"github.com/dirsig/dirsig/internal/store"
)

func newManifest(digest string) *manifest.Manifest {
	return &manifest.Manifest{
		SchemaVersion:      manifest.SchemaVersion,
		ToolVersion:        "0.0.0-test",
		Root:               "/srv/data",
		CreatedAt:          "2026-08-23T12:00:00Z",
		Digest:             digest,
		CaseSensitivePaths: true,
		Files:              map[string]string{"a.txt": "blake3:abc"},
	}
}

// ---------------------------------------------------------------------------
// Publish / Latest tests
// ---------------------------------------------------------------------------

func TestPublishAndLatest(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore("test")

	id, err := Publish(ctx, st, "mytree", newManifest("d1"))
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !snapid.IsValid(id) {
		t.Fatalf("Publish returned malformed ID %q", id)
	}

	gotID, err := LatestID(ctx, st, "mytree")
	if err != nil {
		t.Fatalf("LatestID: %v", err)
	}
	if gotID != id {
		t.Errorf("LatestID = %q, want %q", gotID, id)
	}

	m, err := Latest(ctx, st, "mytree")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if m.SnapshotID != id {
		t.Errorf("manifest SnapshotID = %q, want %q", m.SnapshotID, id)
	}
	if m.Digest != "d1" {
		t.Errorf("manifest Digest = %q, want %q", m.Digest, "d1")
	}
}

func TestPublish_EmptyTreeName(t *testing.T) {
	st := store.NewMemoryStore("test")
	if _, err := Publish(context.Background(), st, "", newManifest("d")); err == nil {
		t.Fatal("expected error for empty tree name, got nil")
	}
}

func TestPublish_PointerMovesForward(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore("test")

	id1, err := Publish(ctx, st, "t", newManifest("d1"))
	if err != nil {
		t.Fatal(err)
	}
	id2, err := Publish(ctx, st, "t", newManifest("d2"))
	if err != nil {
		t.Fatal(err)
	}
	if id1 == id2 {
		t.Fatalf("two publishes produced the same ID %q", id1)
	}

	m, err := Latest(ctx, st, "t")
	if err != nil {
		t.Fatal(err)
	}
	if m.SnapshotID != id2 || m.Digest != "d2" {
		t.Errorf("latest = %q/%q, want second publish %q/d2", m.SnapshotID, m.Digest, id2)
	}

	// Earlier snapshot remains fetchable by ID.
	old, err := Fetch(ctx, st, "t", id1)
	if err != nil {
		t.Fatalf("Fetch(%s): %v", id1, err)
	}
	if old.Digest != "d1" {
		t.Errorf("old snapshot digest = %q, want d1", old.Digest)
	}
}

func TestLatest_NoSnapshot(t *testing.T) {
	st := store.NewMemoryStore("test")

	if _, err := LatestID(context.Background(), st, "empty"); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("LatestID = %v, want ErrNoSnapshot", err)
	}
	if _, err := Latest(context.Background(), st, "empty"); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("Latest = %v, want ErrNoSnapshot", err)
	}
}

func TestLatest_MalformedPointer(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore("test")
	err := st.Put(ctx, latestPointerKey("t"), strings.NewReader("garbage"), store.PutOptions{})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := LatestID(ctx, st, "t"); err == nil {
		t.Fatal("expected error for malformed pointer, got nil")
	}
}

// ---------------------------------------------------------------------------
// Check tests
// ---------------------------------------------------------------------------

func TestCheck(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore("test")

	id, err := Publish(ctx, st, "t", newManifest("published-digest"))
	if err != nil {
		t.Fatal(err)
	}

	match, err := Check(ctx, st, "t", "published-digest")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !match.Match {
		t.Error("equal digests reported as mismatch")
	}
	if match.SnapshotID != id {
		t.Errorf("CheckResult.SnapshotID = %q, want %q", match.SnapshotID, id)
	}

	mismatch, err := Check(ctx, st, "t", "other-digest")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if mismatch.Match {
		t.Error("different digests reported as match")
	}
	if mismatch.PublishedDigest != "published-digest" || mismatch.LiveDigest != "other-digest" {
		t.Errorf("CheckResult digests = %q/%q", mismatch.PublishedDigest, mismatch.LiveDigest)
	}
}

func TestCheck_NoSnapshot(t *testing.T) {
	st := store.NewMemoryStore("test")
	if _, err := Check(context.Background(), st, "t", "d"); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("Check = %v, want ErrNoSnapshot", err)
	}
}

// ---------------------------------------------------------------------------
// Prune tests
// ---------------------------------------------------------------------------

// putSnapshot writes a manifest under a fixed snapshot ID, bypassing
// Publish so tests control the embedded timestamps.
func putSnapshot(t *testing.T, st store.Store, treeName, id string) {
	t.Helper()
	m := newManifest("d")
	m.SnapshotID = id
	data, err := manifest.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Put(context.Background(), snapshotKey(treeName, id), strings.NewReader(string(data)), store.PutOptions{}); err != nil {
		t.Fatal(err)
	}
}

func TestPrune(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore("test")

	ids := []string{
		"snap_20260820T100000Z_00000001",
		"snap_20260821T100000Z_00000002",
		"snap_20260822T100000Z_00000003",
		"snap_20260823T100000Z_00000004",
		"snap_20260823T110000Z_00000005",
	}
	for _, id := range ids {
		putSnapshot(t, st, "t", id)
	}
	latest := ids[len(ids)-1]
	err := st.Put(ctx, latestPointerKey("t"), strings.NewReader(latest), store.PutOptions{})
	if err != nil {
		t.Fatal(err)
	}

	deleted, err := Prune(ctx, st, "t", 2)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if len(deleted) != 3 {
		t.Fatalf("deleted %d snapshots %v, want 3", len(deleted), deleted)
	}

	// The three oldest go; the two newest survive.
	for _, id := range deleted {
		if id == ids[3] || id == latest {
			t.Errorf("prune deleted a retained snapshot %q", id)
		}
	}
	if _, err := Latest(ctx, st, "t"); err != nil {
		t.Errorf("Latest after prune: %v", err)
	}

	items, err := st.List(ctx, snapshotPrefix("t"))
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Errorf("%d snapshots remain, want 2: %v", len(items), items)
	}
}

func TestPrune_NeverDeletesLatest(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore("test")

	old := "snap_20260820T100000Z_0000000a"
	newer := "snap_20260823T100000Z_0000000b"
	putSnapshot(t, st, "t", old)
	putSnapshot(t, st, "t", newer)

	// Point LATEST at the oldest snapshot: it must survive a prune that
	// would otherwise evict it.
	err := st.Put(ctx, latestPointerKey("t"), strings.NewReader(old), store.PutOptions{})
	if err != nil {
		t.Fatal(err)
	}

	deleted, err := Prune(ctx, st, "t", 1)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	for _, id := range deleted {
		if id == old {
			t.Fatalf("prune deleted the snapshot LATEST points at")
		}
	}
	if _, err := st.Head(ctx, snapshotKey("t", old)); err != nil {
		t.Errorf("LATEST snapshot missing after prune: %v", err)
	}
}

func TestPrune_UnderRetention(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore("test")

	if _, err := Publish(ctx, st, "t", newManifest("d")); err != nil {
		t.Fatal(err)
	}

	deleted, err := Prune(ctx, st, "t", 5)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if len(deleted) != 0 {
		t.Errorf("prune under retention deleted %v", deleted)
	}
}

func TestPrune_NegativeRetain(t *testing.T) {
	st := store.NewMemoryStore("test")
	if _, err := Prune(context.Background(), st, "t", -1); err == nil {
		t.Fatal("expected error for negative retain, got nil")
	}
}

func TestPrune_IgnoresForeignObjects(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore("test")

	if _, err := Publish(ctx, st, "t", newManifest("d")); err != nil {
		t.Fatal(err)
	}
	// A stray object under the snapshots prefix must be left alone.
	err := st.Put(ctx, snapshotPrefix("t")+"README.json", strings.NewReader("x"), store.PutOptions{})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := Prune(ctx, st, "t", 0); err != nil {
		t.Fatalf("Prune: %v", err)
	}

	if _, err := st.Head(ctx, snapshotPrefix("t")+"README.json"); err != nil {
		t.Errorf("foreign object was deleted: %v", err)
	}
}
