// Package parallel implements the data-parallel fan-out used by the frame store and
// volume operations: a range of independent iterations is divided into contiguous
// chunks and each chunk runs on its own goroutine.
package parallel

import (
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

var defaultWorkers atomic.Int64

func init() {
	defaultWorkers.Store(int64(runtime.NumCPU()))
}

// SetDefaultWorkers sets the number of workers used when a caller passes workers <= 0.
// Values below 1 reset the default to runtime.NumCPU().
func SetDefaultWorkers(n int) {
	if n < 1 {
		n = runtime.NumCPU()
	}
	defaultWorkers.Store(int64(n))
}

// DefaultWorkers returns the number of workers used when none is requested.
func DefaultWorkers() int {
	return int(defaultWorkers.Load())
}

// Chunks returns the number of chunks For will split n iterations into.
func Chunks(n, workers int) int {
	if n <= 0 {
		return 0
	}
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	if workers > n {
		workers = n
	}
	return workers
}

// For calls fn(lo, hi) over disjoint half-open ranges covering [0, n).  Each range
// is processed by a separate goroutine, with at most workers goroutines running.
// With workers == 1, or a single iteration, fn runs on the calling goroutine.
// For returns once every range has completed.
func For(n, workers int, fn func(lo, hi int)) {
	chunks := Chunks(n, workers)
	if chunks == 0 {
		return
	}
	if chunks == 1 {
		fn(0, n)
		return
	}

	// Divide the work among available cores
	perChunk := (n + chunks - 1) / chunks

	var g errgroup.Group
	g.SetLimit(chunks)
	for c := 0; c < chunks; c++ {
		lo := c * perChunk
		if lo >= n {
			break
		}
		hi := lo + perChunk
		if hi > n {
			hi = n
		}
		g.Go(func() error {
			fn(lo, hi)
			return nil
		})
	}
	g.Wait()
}

// ForErr is like For but fn may fail.  The first error is returned after all
// ranges have finished.
func ForErr(n, workers int, fn func(lo, hi int) error) error {
	chunks := Chunks(n, workers)
	if chunks == 0 {
		return nil
	}
	if chunks == 1 {
		return fn(0, n)
	}
	perChunk := (n + chunks - 1) / chunks

	var g errgroup.Group
	g.SetLimit(chunks)
	for c := 0; c < chunks; c++ {
		lo := c * perChunk
		if lo >= n {
			break
		}
		hi := min(lo+perChunk, n)
		g.Go(func() error {
			return fn(lo, hi)
		})
	}
	return g.Wait()
}
