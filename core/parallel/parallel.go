// Package parallel splits index ranges across a bounded set of goroutines.
package parallel

import (
	"runtime"
	"sync"
)

// Workers resolves a requested thread count. Zero or negative means one
// worker per CPU.
func Workers(requested int) int {
	if requested > 0 {
		return requested
	}
	return runtime.NumCPU()
}

// Parallelize divides items into contiguous ranges and runs fn on each range
// in its own goroutine, using at most workers goroutines. It returns once
// every range has been processed.
func Parallelize(items, workers int, fn func(start, end int)) {
	if items == 0 {
		return
	}

	numWorkers := Workers(workers)
	if numWorkers > items {
		numWorkers = items
	}
	if numWorkers == 1 {
		fn(0, items)
		return
	}

	chunkSize := (items + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ParallelizeWithThreshold runs fn sequentially when items does not exceed
// threshold and falls back to Parallelize otherwise.
func ParallelizeWithThreshold(items, threshold, workers int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, workers, fn)
}
