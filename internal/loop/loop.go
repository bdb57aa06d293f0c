// Package loop provides the single-threaded executor each peer runs on.
//
// A peer's protocol state is only ever touched from tasks on its Loop, so
// the protocol code needs no locking of its own. Tasks run one at a time in
// the order they were posted. A Loop can run on its own goroutine (Start)
// or be pumped by the caller (RunPending), which tests use to make the
// interleaving of the two peers fully deterministic.
package loop

import (
	"sync"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/errors"
	"github.com/Geggles/Japanese-Memrise-Enhancements/internal/logging"
)

// Task is one unit of work.
type Task func()

// Loop is a FIFO serial executor.
type Loop struct {
	name   string
	logger *logging.Logger

	execMu sync.Mutex // held while a task is popped and run

	mu        sync.Mutex
	queue     []Task
	inflight  bool
	closed    bool
	started   bool
	processed uint64
	panicked  uint64

	wake   chan struct{}
	runner conc.WaitGroup
}

// New returns a stopped Loop. name identifies it in logs.
func New(name string, logger *logging.Logger) *Loop {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Loop{
		name:   name,
		logger: logger.WithComponent("loop"),
		wake:   make(chan struct{}, 1),
	}
}

// Name returns the name given to New.
func (l *Loop) Name() string {
	return l.name
}

// Post appends t to the queue. It never blocks and never runs t itself.
// It fails with ErrLoopClosed after Stop.
func (l *Loop) Post(t Task) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return errors.ErrLoopClosed
	}
	l.queue = append(l.queue, t)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

// Start runs the loop on its own goroutine until Stop. Calling Start more
// than once has no effect.
func (l *Loop) Start() {
	l.mu.Lock()
	if l.started || l.closed {
		l.mu.Unlock()
		return
	}
	l.started = true
	l.mu.Unlock()

	l.runner.Go(func() {
		for {
			ran, closed := l.step()
			if ran {
				continue
			}
			if closed {
				return
			}
			<-l.wake
		}
	})
}

// Stop rejects further posts, lets the goroutine started by Start finish
// the queued tasks, and waits for it. It must not be called from a task.
func (l *Loop) Stop() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	l.runner.Wait()
}

// RunPending runs queued tasks on the calling goroutine until the queue is
// empty, including tasks posted by the tasks it runs. It returns how many
// tasks ran. It must not be called from a task.
func (l *Loop) RunPending() int {
	n := 0
	for {
		ran, _ := l.step()
		if !ran {
			return n
		}
		n++
	}
}

// Idle reports whether no task is queued or running.
func (l *Loop) Idle() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue) == 0 && !l.inflight
}

// Len returns the number of queued tasks.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Processed returns the number of tasks run so far, including ones that
// panicked.
func (l *Loop) Processed() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.processed
}

// Panicked returns the number of tasks that panicked.
func (l *Loop) Panicked() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.panicked
}

func (l *Loop) step() (ran, closed bool) {
	l.execMu.Lock()
	defer l.execMu.Unlock()

	l.mu.Lock()
	if len(l.queue) == 0 {
		closed = l.closed
		l.mu.Unlock()
		return false, closed
	}
	task := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	l.inflight = true
	l.mu.Unlock()

	var pc panics.Catcher
	pc.Try(task)
	r := pc.Recovered()
	if r != nil {
		err := errors.FromPanic(r.Value)
		l.logger.Error("task panicked",
			"loop", l.name,
			"error", err.Error(),
			"contract_violation", errors.IsContractViolation(err),
			"stack", string(r.Stack),
		)
	}

	l.mu.Lock()
	l.inflight = false
	l.processed++
	if r != nil {
		l.panicked++
	}
	l.mu.Unlock()
	return true, false
}
