package guard

import (
	"context"
	"time"

	"github.com/studyforge/studyforge-backend/internal/pkg/apperr"
)

// WithTimeout runs op under a ceiling duration. If the ceiling elapses first
// the call returns a timeout error; cancellation is best-effort via the
// derived context, so op's side effects are not guaranteed to be undone.
func WithTimeout[T any](ctx context.Context, label string, ceiling time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if ceiling <= 0 {
		return op(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, ceiling)
	defer cancel()

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := op(ctx)
		done <- result{val: v, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && ctx.Err() == context.DeadlineExceeded {
			return zero, apperr.Timeout("%s exceeded %s ceiling", label, ceiling)
		}
		return r.val, r.err
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return zero, apperr.Timeout("%s exceeded %s ceiling", label, ceiling)
		}
		return zero, ctx.Err()
	}
}
