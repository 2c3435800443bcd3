package dynamo

import (
	"context"
	"runtime"
	"sync"
)

// ParallelFor calls fn(i) for every i in [0, n) on at most workers
// goroutines; workers <= 0 means GOMAXPROCS. Indices are handed out one at
// a time, so uneven run times balance out. Once ctx is done no further
// indices are started and the indices never started are returned.
func ParallelFor(ctx context.Context, n, workers int, fn func(i int)) []int {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > n {
		workers = n
	}
	if n == 0 {
		return nil
	}

	next := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				fn(i)
			}
		}()
	}

	var skipped []int
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			skipped = append(skipped, i)
			continue
		}
		select {
		case next <- i:
		case <-ctx.Done():
			skipped = append(skipped, i)
		}
	}
	close(next)
	wg.Wait()
	return skipped
}
