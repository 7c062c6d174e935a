// Package asyncworker implements the single-flight, coalescing task
// scheduler described in §4.1: the primitive underneath the
// replicator's steady loop.
package asyncworker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrNotStarted is returned by Wakeup when called before Start.
var ErrNotStarted = errors.New("asyncworker: wakeup called before start")

// Worker runs task() once immediately on Start, then again each time
// Wakeup is called — with concurrent Wakeups while a run is in flight
// collapsing into exactly one rerun afterward. It is safe for
// concurrent use.
type Worker struct {
	task    func(ctx context.Context) error
	onError func(error)
	log     *slog.Logger

	mu      sync.Mutex
	started bool
	running bool
	rerun   bool
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Worker around task, reporting task errors to onError.
// parent governs the lifetime of all runs: cancelling it cancels the
// context every run receives, but unlike Stop it does not prevent
// later Wakeups from running task again.
func New(parent context.Context, task func(ctx context.Context) error, onError func(error), log *slog.Logger) *Worker {
	ctx, cancel := context.WithCancel(parent)
	if log == nil {
		log = slog.Default()
	}
	return &Worker{
		task:    task,
		onError: onError,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// Start is idempotent: the first call runs task() once and returns
// once idle; later calls are no-ops.
func (w *Worker) Start() {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()

	w.runLoop()
}

// Wakeup schedules one more run of task(). If a run is currently in
// flight, it sets a rerun flag so exactly one additional run happens
// after the current one finishes; repeated Wakeups during a run
// collapse to that single rerun. Wakeup returns ErrNotStarted if
// called before Start.
func (w *Worker) Wakeup() error {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return ErrNotStarted
	}
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	if w.running {
		w.rerun = true
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	w.runLoop()
	return nil
}

// Stop prevents further runs. An in-flight run is allowed to finish;
// Stop does not block on it.
func (w *Worker) Stop() {
	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()
	w.cancel()
}

func (w *Worker) runLoop() {
	for {
		w.mu.Lock()
		if w.stopped {
			w.mu.Unlock()
			return
		}
		w.running = true
		w.mu.Unlock()

		if err := w.task(w.ctx); err != nil && w.onError != nil {
			w.onError(err)
		}

		w.mu.Lock()
		w.running = false
		rerun := w.rerun
		w.rerun = false
		w.mu.Unlock()

		if !rerun {
			return
		}
	}
}
