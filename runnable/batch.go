package runnable

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ConcurrentBatch runs r.Invoke once per input, overlapping up to limit
// invocations at a time via errgroup (cancel-on-first-error,
// wait-for-the-rest), returning
// results in input order regardless of completion order. A limit <= 0 means
// unbounded concurrency. This is the concurrent alternative to the
// sequential default in SequentialBatch / Runnable.Batch, offered
// separately since ayas-core leaves the concurrent case to callers too.
func ConcurrentBatch(ctx context.Context, r Runnable, inputs []interface{}, cfg Config, limit int) ([]interface{}, error) {
	out := make([]interface{}, len(inputs))
	eg, egCtx := errgroup.WithContext(ctx)
	if limit > 0 {
		eg.SetLimit(limit)
	}
	for i, in := range inputs {
		i, in := i, in
		eg.Go(func() error {
			v, err := r.Invoke(egCtx, in, cfg)
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
