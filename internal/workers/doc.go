/*
Package workers sizes and runs the thumbnail generation pool.

# Sizing

Worker counts are derived from runtime.GOMAXPROCS(0), which Go 1.19+ sets to
the container CPU limit, rather than runtime.NumCPU(), which reports host
CPUs:

	n := workers.ForPipeline(0) // max(2, GOMAXPROCS)
	n := workers.ForCPU(8)      // 1 per CPU, at most 8

THUMBNAIL_WORKERS overrides the automatic calculation. ForPipeline still
enforces a floor of MinPipelineWorkers.

# Pool

Pool runs tasks on a fixed set of goroutines fed by an unbounded FIFO queue:

	pool := workers.NewPool(n, monitor) // monitor may be nil
	if err := pool.Submit(task); err != nil {
	    // ErrPoolClosed
	}
	...
	err := pool.Shutdown(ctx) // drains every queued task

Submit never blocks, so it is safe to call from a render path. Before each
task a worker calls Gate.WaitIfPaused, which lets the memory monitor hold
back decoding while the heap is near its limit. A panicking task is logged
and does not take its worker down.

# Thread Safety

All functions and Pool methods are safe for concurrent use.
*/
package workers
