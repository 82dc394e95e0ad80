// Package syncer decides which laws are new, unchanged, updated, or
// removed between two corpus snapshots.
package syncer

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// MaxRemovals is the largest removal set a diff will accept. A truncated
// or malformed source listing would otherwise look like a mass-removal
// event and wipe the corpus.
const MaxRemovals = 250

// ErrDubiousRemovals marks a diff whose removal set exceeds MaxRemovals.
// It requires manual review and must never be retried automatically.
var ErrDubiousRemovals = errors.New("dubious number of laws to remove")

// Diff is the exact three-way partition of two identifier snapshots.
type Diff struct {
	New      []string // in current only
	Existing []string // in both, candidates for update checks
	Removed  []string // in previous only
}

// Calculate partitions previous and current into new, existing and
// removed identifiers. The removal guard runs here, before any caller can
// act on the result.
func Calculate(previous, current []string) (Diff, error) {
	newIDs, removed := lo.Difference(lo.Uniq(current), lo.Uniq(previous))
	existing := lo.Intersect(lo.Uniq(previous), lo.Uniq(current))

	if len(removed) > MaxRemovals {
		return Diff{}, errors.Wrapf(ErrDubiousRemovals, "%d removals", len(removed))
	}

	return Diff{New: newIDs, Existing: existing, Removed: removed}, nil
}

// CheckUpdates runs hasUpdate over the existing identifiers and returns
// those reporting an update. Checks are independent and run concurrently;
// the first error aborts the batch, so a failed check is never silently
// treated as "no update".
func CheckUpdates(ctx context.Context, existing []string, hasUpdate func(ctx context.Context, id string) (bool, error)) ([]string, error) {
	var (
		mu      sync.Mutex
		updated []string
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	for _, id := range existing {
		id := id
		g.Go(func() error {
			ok, err := hasUpdate(ctx, id)
			if err != nil {
				return errors.Wrapf(err, "checking %s for updates", id)
			}
			if ok {
				mu.Lock()
				updated = append(updated, id)
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return updated, nil
}
