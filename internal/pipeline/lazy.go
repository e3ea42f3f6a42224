package pipeline

import (
	"context"
	"sync"

	"github.com/spacesedan/danmakuflow/internal/internalerr"
)

// lazy runs load at most once and hands every caller the same result.
type lazy[T any] struct {
	once sync.Once
	load func(ctx context.Context) (T, error)
	val  T
	err  error
}

func newLazy[T any](load func(ctx context.Context) (T, error)) *lazy[T] {
	return &lazy[T]{load: load}
}

func (l *lazy[T]) get(ctx context.Context) (T, error) {
	l.once.Do(func() {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				l.val, l.err = zero, internalerr.FromPanic(internalerr.ErrStage, r)
			}
		}()
		l.val, l.err = l.load(ctx)
	})
	return l.val, l.err
}
