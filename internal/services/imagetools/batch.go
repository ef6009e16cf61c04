package imagetools

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"workbench/internal/services"
)

// Batch calls fn for every index in [0, count) on at most runtime.NumCPU()
// goroutines. The first error cancels the context handed to the remaining
// calls and is returned once all started calls finish. A panic inside fn is
// returned as a transformation error instead of crashing the process.
func Batch(ctx context.Context, count int, fn func(ctx context.Context, index int) error) error {
	if count <= 0 {
		return nil
	}
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(runtime.NumCPU())
	for i := 0; i < count; i++ {
		index := i
		group.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = services.Fail(services.ErrTransformation, "Image processing failed",
						fmt.Errorf("panic processing image %d: %v", index, r))
				}
			}()
			if err := groupCtx.Err(); err != nil {
				return err
			}
			return fn(groupCtx, index)
		})
	}
	return group.Wait()
}
