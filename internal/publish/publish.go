// Package publish writes snapshot manifests to an object store and keeps a
// LATEST pointer per tree, so the most recent published digest can be
// retrieved and verified without scanning the snapshot listing.
package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dirsig/dirsig/internal/manifest"
	"github.com/dirsig/dirsig/internal/snapid"
	"github.com/dirsig/dirsig/internal/store"
)

const (
	latestKey = "LATEST"

	contentTypeManifest = "application/json"
	contentTypePointer  = "text/plain; charset=utf-8"

	// pruneConcurrency bounds parallel snapshot deletions.
	pruneConcurrency = 4
)

// ErrNoSnapshot is returned when a tree has no published snapshots.
var ErrNoSnapshot = errors.New("no published snapshot")

// snapshotKey returns the object key for a snapshot manifest.
func snapshotKey(treeName, id string) string {
	return treeName + "/snapshots/" + id + ".json"
}

// snapshotPrefix returns the listing prefix for a tree's snapshots.
func snapshotPrefix(treeName string) string {
	return treeName + "/snapshots/"
}

// latestPointerKey returns the object key for a tree's LATEST pointer.
func latestPointerKey(treeName string) string {
	return treeName + "/" + latestKey
}

// Publish assigns the manifest a fresh snapshot ID, writes it under the
// tree's snapshots/ prefix, and updates the LATEST pointer. It returns the
// assigned snapshot ID.
func Publish(ctx context.Context, st store.Store, treeName string, m *manifest.Manifest) (string, error) {
	if treeName == "" {
		return "", fmt.Errorf("publish: tree name is required")
	}

	id := snapid.New()
	m.SnapshotID = id
	if m.CreatedAt == "" {
		m.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	data, err := manifest.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("publish: marshaling manifest: %w", err)
	}

	err = st.Put(ctx, snapshotKey(treeName, id), bytes.NewReader(data), store.PutOptions{
		ContentType: contentTypeManifest,
	})
	if err != nil {
		return "", fmt.Errorf("publish: writing snapshot %s: %w", id, err)
	}

	// The pointer is written second so a crash between the two writes
	// leaves LATEST referring to a complete, earlier snapshot.
	err = st.Put(ctx, latestPointerKey(treeName), strings.NewReader(id), store.PutOptions{
		ContentType: contentTypePointer,
	})
	if err != nil {
		return "", fmt.Errorf("publish: updating %s pointer: %w", latestKey, err)
	}

	return id, nil
}

// LatestID reads the tree's LATEST pointer. Returns ErrNoSnapshot when the
// tree has never been published.
func LatestID(ctx context.Context, st store.Store, treeName string) (string, error) {
	rc, _, err := st.Get(ctx, latestPointerKey(treeName))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrNoSnapshot
		}
		return "", fmt.Errorf("publish: reading %s pointer: %w", latestKey, err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("publish: reading %s pointer body: %w", latestKey, err)
	}

	id := strings.TrimSpace(string(raw))
	if !snapid.IsValid(id) {
		return "", fmt.Errorf("publish: %s pointer holds malformed ID %q", latestKey, id)
	}
	return id, nil
}

// Latest fetches the manifest referenced by the tree's LATEST pointer.
func Latest(ctx context.Context, st store.Store, treeName string) (*manifest.Manifest, error) {
	id, err := LatestID(ctx, st, treeName)
	if err != nil {
		return nil, err
	}
	return Fetch(ctx, st, treeName, id)
}

// Fetch retrieves a specific snapshot manifest by ID.
func Fetch(ctx context.Context, st store.Store, treeName, id string) (*manifest.Manifest, error) {
	rc, _, err := st.Get(ctx, snapshotKey(treeName, id))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("publish: reading snapshot %s: %w", id, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("publish: reading snapshot %s body: %w", id, err)
	}

	return manifest.Unmarshal(data)
}

// CheckResult reports the outcome of comparing a live digest against the
// latest published snapshot.
type CheckResult struct {
	SnapshotID      string
	PublishedDigest string
	LiveDigest      string
	Match           bool
}

// Check compares liveDigest against the digest recorded in the tree's
// latest published manifest.
func Check(ctx context.Context, st store.Store, treeName, liveDigest string) (*CheckResult, error) {
	m, err := Latest(ctx, st, treeName)
	if err != nil {
		return nil, err
	}

	return &CheckResult{
		SnapshotID:      m.SnapshotID,
		PublishedDigest: m.Digest,
		LiveDigest:      liveDigest,
		Match:           m.Digest == liveDigest,
	}, nil
}

// Prune deletes old snapshot manifests, keeping the retain most recent by
// embedded timestamp. The snapshot referenced by LATEST is never deleted,
// and objects whose names do not parse as snapshot IDs are left alone.
// Returns the IDs that were deleted.
func Prune(ctx context.Context, st store.Store, treeName string, retain int) ([]string, error) {
	if retain < 0 {
		return nil, fmt.Errorf("publish: retain must be non-negative, got %d", retain)
	}

	latestID, err := LatestID(ctx, st, treeName)
	if err != nil && !errors.Is(err, ErrNoSnapshot) {
		return nil, err
	}

	prefix := snapshotPrefix(treeName)
	objects, err := st.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("publish: listing snapshots: %w", err)
	}

	type snapshot struct {
		id string
		ts time.Time
	}
	var snapshots []snapshot
	for _, obj := range objects {
		name := strings.TrimPrefix(obj.Key, prefix)
		id := strings.TrimSuffix(name, ".json")
		ts, err := snapid.Parse(id)
		if err != nil {
			continue
		}
		snapshots = append(snapshots, snapshot{id: id, ts: ts})
	}

	// Oldest first, ties broken by ID for a stable order.
	sort.Slice(snapshots, func(i, j int) bool {
		if !snapshots[i].ts.Equal(snapshots[j].ts) {
			return snapshots[i].ts.Before(snapshots[j].ts)
		}
		return snapshots[i].id < snapshots[j].id
	})

	excess := len(snapshots) - retain
	if excess <= 0 {
		return nil, nil
	}

	var victims []string
	for _, s := range snapshots[:excess] {
		if s.id == latestID {
			continue
		}
		victims = append(victims, s.id)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(pruneConcurrency)
	for _, id := range victims {
		id := id
		g.Go(func() error {
			if err := st.Delete(gctx, snapshotKey(treeName, id)); err != nil {
				return fmt.Errorf("publish: deleting snapshot %s: %w", id, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return victims, nil
}
