// Package parallel runs data-parallel "for each index" loops on a bounded
// number of goroutines.
//
// Every call is a blocking fan-out/fan-in over a fixed index range. The first
// error returned by a chunk (or a panic inside one) is returned to the caller
// after all started chunks have finished.
package parallel

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"

	"golang.org/x/sync/errgroup"
)

// DefaultMinChunk is the smallest range handed to a single goroutine.
const DefaultMinChunk = 16

// Pool bounds the number of goroutines used by For.
// The zero value uses GOMAXPROCS workers.
type Pool struct {
	Workers  int
	MinChunk int
}

// NewPool returns a pool with the given worker count; n <= 0 means GOMAXPROCS.
func NewPool(n int) *Pool {
	return &Pool{Workers: n}
}

func (p *Pool) workers() int {
	if p == nil || p.Workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return p.Workers
}

func (p *Pool) minChunk() int {
	if p == nil || p.MinChunk <= 0 {
		return DefaultMinChunk
	}
	return p.MinChunk
}

// For calls fn over [0, n) split into contiguous [start, end) chunks.
// Small ranges run inline on the calling goroutine.
func (p *Pool) For(ctx context.Context, n int, fn func(start, end int) error) error {
	if n <= 0 {
		return nil
	}
	minChunk := p.minChunk()
	workers := p.workers()
	if n/minChunk < workers {
		workers = n / minChunk
	}
	if workers <= 1 {
		return guard(0, n, fn)
	}

	chunkSize := (n + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		s, e := start, end
		g.Go(func() error {
			// chunks that have not started yet are skipped once a sibling failed
			if err := gctx.Err(); err != nil {
				return err
			}
			return guard(s, e, fn)
		})
	}
	return g.Wait()
}

// Each is For with a per-index callback.
func (p *Pool) Each(ctx context.Context, n int, fn func(i int) error) error {
	return p.For(ctx, n, func(start, end int) error {
		for i := start; i < end; i++ {
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	})
}

// PanicError is returned when a chunk panicked.
type PanicError struct {
	Start, End int
	Value      any
	Stack      []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("parallel: panic in chunk [%d,%d): %v", e.Start, e.End, e.Value)
}

func guard(start, end int, fn func(start, end int) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Start: start, End: end, Value: r, Stack: debug.Stack()}
		}
	}()
	return fn(start, end)
}
