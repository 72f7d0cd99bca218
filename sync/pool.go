package sync

import (
	"context"
	gosync "sync"

	"golang.org/x/sync/semaphore"

	"github.com/homemade/nbsync/logging"
)

// WorkPool runs per-record handlers with a bounded number in flight.
// A handler's failure or panic never affects its siblings.
type WorkPool struct {
	sem *semaphore.Weighted
	wg  gosync.WaitGroup
}

func NewWorkPool(size int) *WorkPool {
	if size < 1 {
		size = 1
	}
	return &WorkPool{sem: semaphore.NewWeighted(int64(size))}
}

// Go blocks until a slot is free then runs fn in its own goroutine.
// It only fails when ctx is done before a slot frees up.
func (p *WorkPool) Go(ctx context.Context, fn func(ctx context.Context)) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				logging.Error().Interface("panic", r).Msg("record handler panicked")
			}
		}()
		fn(ctx)
	}()
	return nil
}

// Wait blocks until every handler started with Go has returned.
func (p *WorkPool) Wait() {
	p.wg.Wait()
}
