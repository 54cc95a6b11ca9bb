/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package async

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultWorkers   = 8
	DefaultQueueSize = 1024
)

// Task is a unit of work run by a Pool worker.
type Task func() error

// Pool runs tasks on a fixed set of workers fed by a bounded queue.
type Pool struct {
	workers   int
	queueSize int
	tasks     chan Task
	wg        sync.WaitGroup

	lifecycleMu sync.RWMutex
	stopped     bool

	submitted int64
	rejected  int64
	processed int64
	failed    int64

	registerer    prometheus.Registerer
	metricsPrefix string
	metrics       *metrics
}

// Option configures a Pool.
type Option func(*Pool)

// WithMetrics registers Prometheus metrics named <prefix>_... with reg.
func WithMetrics(reg prometheus.Registerer, prefix string) Option {
	return func(p *Pool) {
		p.registerer = reg
		p.metricsPrefix = prefix
	}
}

// NewPool starts a pool with the given number of workers and queue capacity.
// Non-positive values fall back to DefaultWorkers and DefaultQueueSize.
func NewPool(workers, queueSize int, opts ...Option) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	p := &Pool{
		workers:   workers,
		queueSize: queueSize,
		tasks:     make(chan Task, queueSize),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.registerer != nil && p.metricsPrefix != "" {
		p.metrics = newMetrics(p.registerer, p.metricsPrefix)
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Submit queues task. It blocks while the queue is full until ctx ends.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	p.lifecycleMu.RLock()
	defer p.lifecycleMu.RUnlock()

	if p.stopped {
		return ErrPoolStopped
	}

	select {
	case p.tasks <- task:
		p.queued()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySubmit queues task without waiting. It fails with ErrQueueFull when the
// queue has no room.
func (p *Pool) TrySubmit(task Task) error {
	p.lifecycleMu.RLock()
	defer p.lifecycleMu.RUnlock()

	if p.stopped {
		return ErrPoolStopped
	}

	select {
	case p.tasks <- task:
		p.queued()
		return nil
	default:
		atomic.AddInt64(&p.rejected, 1)
		if p.metrics != nil {
			p.metrics.rejected.Inc()
		}
		return ErrQueueFull
	}
}

func (p *Pool) queued() {
	atomic.AddInt64(&p.submitted, 1)
	if p.metrics != nil {
		p.metrics.submitted.Inc()
		p.metrics.queueDepth.Set(float64(len(p.tasks)))
	}
}

// Stop rejects new tasks and waits for queued ones to finish.
// Calling Stop more than once is a no-op.
func (p *Pool) Stop(timeout time.Duration) error {
	p.lifecycleMu.Lock()
	if p.stopped {
		p.lifecycleMu.Unlock()
		return nil
	}
	p.stopped = true
	close(p.tasks)
	p.lifecycleMu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		return ErrStopTimeout
	}
}

// Stopped reports whether Stop has been called.
func (p *Pool) Stopped() bool {
	p.lifecycleMu.RLock()
	defer p.lifecycleMu.RUnlock()
	return p.stopped
}

// Stats returns current pool statistics.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Workers:    p.workers,
		QueueSize:  p.queueSize,
		QueueDepth: len(p.tasks),
		Submitted:  atomic.LoadInt64(&p.submitted),
		Rejected:   atomic.LoadInt64(&p.rejected),
		Processed:  atomic.LoadInt64(&p.processed),
		Failed:     atomic.LoadInt64(&p.failed),
	}
}

// PoolStats represents pool statistics.
type PoolStats struct {
	Workers    int   `json:"workers"`
	QueueSize  int   `json:"queue_size"`
	QueueDepth int   `json:"queue_depth"`
	Submitted  int64 `json:"submitted"`
	Rejected   int64 `json:"rejected"`
	Processed  int64 `json:"processed"`
	Failed     int64 `json:"failed"`
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for task := range p.tasks {
		start := time.Now()
		err := run(task)
		duration := time.Since(start)

		atomic.AddInt64(&p.processed, 1)
		if err != nil {
			atomic.AddInt64(&p.failed, 1)
		}

		if p.metrics != nil {
			p.metrics.processed.Inc()
			status := "success"
			if err != nil {
				p.metrics.failed.Inc()
				status = "error"
			}
			p.metrics.processingTime.WithLabelValues(status).Observe(duration.Seconds())
			p.metrics.queueDepth.Set(float64(len(p.tasks)))
		}
	}
}

// run executes task, turning a panic into a PanicError.
func run(task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return task()
}

func fmtValue(v any) string {
	return fmt.Sprint(v)
}
