package radixspline

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	streamerrors "github.com/tamirms/radixspline/errors"
)

// minCheckChunk keeps small indexes on a single goroutine.
const minCheckChunk = 64 * 1024

// CheckErrorBound re-derives the estimate of every indexed key and verifies
// that it lies within Epsilon of the key's first-occurrence rank. It also
// checks that the stored keys are sorted.
//
// The key array is split into chunks checked by up to workers goroutines
// (GOMAXPROCS when workers <= 0). Cancellation is checked every
// contextCheckInterval keys.
func (idx *Index[K]) CheckErrorBound(ctx context.Context, workers int) error {
	if idx.closed.Load() {
		return streamerrors.ErrIndexClosed
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	n := len(idx.keys)
	chunk := max((n+workers-1)/workers, minCheckChunk)

	g, ctx := errgroup.WithContext(ctx)
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		g.Go(func() error {
			return idx.checkRange(ctx, start, end)
		})
	}
	return g.Wait()
}

// checkRange verifies keys[start:end]. A key equal to its predecessor is a
// duplicate and shares the predecessor's rank, so only run heads are checked.
func (idx *Index[K]) checkRange(ctx context.Context, start, end int) error {
	keys := idx.keys
	for i := start; i < end; i++ {
		if (i-start)%contextCheckInterval == contextCheckInterval-1 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		if i > 0 {
			switch prev := keys[i-1]; {
			case keys[i] == prev:
				continue
			case keys[i] < prev || isNaN(keys[i]):
				return fmt.Errorf("%w: key at position %d is out of order", streamerrors.ErrCorruptedIndex, i)
			}
		}

		est := idx.estimate(idx.codec.image(keys[i]))
		if absDiff(est, uint64(i)) > idx.epsilon {
			return fmt.Errorf("%w: position %d estimated at %d (epsilon %d)",
				streamerrors.ErrErrorBoundExceeded, i, est, idx.epsilon)
		}
	}
	return nil
}

func absDiff(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}
