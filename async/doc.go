// Package async runs storage I/O on a bounded worker pool and hands callers a
// Future for the result.
//
// A Pool has a fixed number of workers reading from a bounded queue. Submit
// applies backpressure: it blocks while the queue is full until the caller's
// context ends. TrySubmit never waits and fails with ErrQueueFull instead.
// Panics inside tasks are recovered and surface as *PanicError.
//
//	pool := async.NewPool(4, 256, async.WithMetrics(prometheus.DefaultRegisterer, "fieldstore_pool"))
//	defer pool.Stop(5 * time.Second)
//
//	f := async.Go(ctx, pool, func() (int, error) { return count(ctx) })
//	n, err := f.Await(ctx)
package async
