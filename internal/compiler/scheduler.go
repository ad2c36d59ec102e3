package compiler

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// ProcessOrdered runs produce over items with up to numWorkers concurrent
// workers, then feeds each result to consume strictly in items' original
// order, regardless of the order individual produce calls finish in.
// This is the core concurrency shape of the compiler: blob decompression
// and decode (produce) parallelize freely across blocks, while the
// archive writers consume (append to flatdata vectors, update the id
// maps) are inherently sequential and must see blocks in input order.
//
// If consume returns an error, no further results are delivered to it and
// ctx is canceled so outstanding produce calls can abandon their work
// early; produce implementations should check ctx and return promptly
// when it is done. ProcessOrdered returns the first error encountered,
// whether from produce or consume.
func ProcessOrdered[T, R any](ctx context.Context, items []T, numWorkers int, produce func(context.Context, T) (R, error), consume func(R) error) error {
	if numWorkers <= 0 {
		numWorkers = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	slots := make([]chan R, len(items))
	for i := range slots {
		slots[i] = make(chan R, 1)
	}

	// sem bounds how many produce calls may run at once, independent of
	// errgroup's own bookkeeping, so the worker cap is a resource limit
	// (outstanding decoded blocks) rather than just a goroutine count.
	sem := semaphore.NewWeighted(int64(numWorkers))
	g, gctx := errgroup.WithContext(ctx)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)
			r, err := produce(gctx, item)
			if err != nil {
				return err
			}
			slots[i] <- r
			return nil
		})
	}

	consumeDone := make(chan error, 1)
	go func() {
		for i := range slots {
			select {
			case r := <-slots[i]:
				if err := consume(r); err != nil {
					cancel()
					consumeDone <- err
					return
				}
			case <-gctx.Done():
				consumeDone <- nil
				return
			}
		}
		consumeDone <- nil
	}()

	produceErr := g.Wait()
	consumeErr := <-consumeDone
	// A consume error cancels ctx, so producers still waiting on sem then
	// fail with context.Canceled; the consume error is the first one.
	if consumeErr != nil && (produceErr == nil || errors.Is(produceErr, context.Canceled)) {
		return consumeErr
	}
	if produceErr != nil {
		return produceErr
	}
	return consumeErr
}
