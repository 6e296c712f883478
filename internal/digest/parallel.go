package digest

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/dirsig/dirsig/internal/tree"
)

// hashParallel computes the per-file records on a worker group bounded by
// a weighted semaphore. Each record lands in its entry's slot, so the
// caller's in-order fold is unaffected by completion order. The first
// error cancels the group and fails the whole composition.
func hashParallel(ctx context.Context, entries []tree.Entry, p Params, records []fileRecord) error {
	sem := semaphore.NewWeighted(int64(p.Concurrency))
	g, gctx := errgroup.WithContext(ctx)

	for i, e := range entries {
		i, e := i, e
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			rec, err := hashEntry(e, p.IncludeMetadata)
			if err != nil {
				return err
			}
			records[i] = rec
			return nil
		})
	}

	return g.Wait()
}
