// Package workers runs per-comment work on a bounded pool of goroutines.
package workers

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Limit returns n when positive, otherwise the number of CPUs.
func Limit(n int) int {
	if n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// Map calls fn for every item with at most limit calls in flight. Each result
// is stored at the index of its input, so the returned slice is ordered like
// items regardless of completion order. fn must handle its own per-item
// failures; Map only returns an error when ctx is cancelled.
func Map[T, R any](ctx context.Context, limit int, items []T, fn func(ctx context.Context, i int, item T) R) ([]R, error) {
	out := make([]R, len(items))
	if len(items) == 0 {
		return out, ctx.Err()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(Limit(limit))

	for i, item := range items {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = fn(gctx, i, item)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, ctx.Err()
}

// Span is a half-open index range [Start, End).
type Span struct {
	Start int
	End   int
}

// Split cuts n items into at most parts contiguous spans of near equal size.
func Split(n, parts int) []Span {
	if n <= 0 {
		return nil
	}
	if parts < 1 {
		parts = 1
	}
	if parts > n {
		parts = n
	}

	spans := make([]Span, 0, parts)
	size, rem := n/parts, n%parts
	start := 0
	for i := 0; i < parts; i++ {
		end := start + size
		if i < rem {
			end++
		}
		spans = append(spans, Span{Start: start, End: end})
		start = end
	}
	return spans
}
