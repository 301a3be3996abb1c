package track

import "github.com/sourcegraph/conc/pool"

// Dispatcher submits work to a bounded thread pool (spec.md §5:
// "Parallel worker threads executed by a bounded thread pool ... Tracks
// are the unit of work"). A single Dispatcher is shared by every Bridge
// and Track in a pipe.
type Dispatcher interface {
	Submit(fn func())
}

// WorkerPool is the concrete Dispatcher, backed by sourcegraph/conc's
// goroutine pool capped at a configured size (`specs.threads`).
type WorkerPool struct {
	p *pool.Pool
}

// NewWorkerPool creates a pool bounded to maxGoroutines concurrent
// slots. maxGoroutines <= 0 means unbounded (conc's default).
func NewWorkerPool(maxGoroutines int) *WorkerPool {
	p := pool.New()
	if maxGoroutines > 0 {
		p = p.WithMaxGoroutines(maxGoroutines)
	}
	return &WorkerPool{p: p}
}

// Submit enqueues fn for execution on the pool.
func (w *WorkerPool) Submit(fn func()) {
	w.p.Go(fn)
}

// Wait blocks until every submitted task has completed. Used at
// shutdown; submitting after Wait has returned would start a second
// underlying waitgroup generation and is not supported by conc, so
// callers must stop dispatching before calling Wait.
func (w *WorkerPool) Wait() {
	w.p.Wait()
}
