// Package parallel splits index ranges across a fixed number of goroutines.
package parallel

import (
	"runtime"
	"sync"
)

// Workers resolves a requested worker count, falling back to all available cores
func Workers(n int) int {
	if n <= 0 {
		return runtime.NumCPU()
	}
	return n
}

// For divides [0, n) into contiguous chunks, one per worker, and calls fn for
// each chunk. It returns once every chunk is done. fn must only touch state
// owned by its own index range.
func For(n, workers int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	workers = Workers(workers)
	if workers > n {
		workers = n
	}
	if workers == 1 {
		fn(0, n)
		return
	}

	var wg sync.WaitGroup
	perCore := (n + workers - 1) / workers

	for c := 0; c < workers; c++ {
		start := c * perCore
		end := start + perCore
		if end > n {
			end = n
		}
		// Skip if nothing left for this core
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			fn(start, end)
		}(start, end)
	}

	wg.Wait()
}
