// Package coalesce provides a debounced task that runs at most once at a
// time and queues at most one follow-up run.
package coalesce

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Stats is a point-in-time view of a Task.
type Stats struct {
	Runs         int
	TimerPending bool
	Running      bool
	NeedsRerun   bool
	Suspended    int
}

// Task debounces Request calls into runs of fn.
//
// A request while the task is running or suspended only marks a rerun,
// so bursts collapse into one in-flight run plus at most one pending run.
type Task struct {
	mu    sync.Mutex
	delay time.Duration
	fn    func(context.Context)

	ctx    context.Context
	cancel context.CancelFunc

	timer        *time.Timer
	timerPending bool
	running      bool
	needsRerun   bool
	suspend      int
	runs         int
	stopped      bool

	// changed is closed and replaced on every state transition.
	changed chan struct{}
}

// New creates a task that runs fn delay after the first of a burst of
// requests.
func New(delay time.Duration, fn func(context.Context)) *Task {
	ctx, cancel := context.WithCancel(context.Background())
	return &Task{
		delay:   delay,
		fn:      fn,
		ctx:     ctx,
		cancel:  cancel,
		changed: make(chan struct{}),
	}
}

// Request schedules a run.
func (t *Task) Request() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requestLocked()
}

func (t *Task) requestLocked() {
	if t.stopped {
		return
	}
	if t.suspend > 0 || t.running {
		t.needsRerun = true
		return
	}
	if t.timerPending {
		return
	}

	t.timerPending = true
	t.timer = time.AfterFunc(t.delay, t.fire)
	t.notifyLocked()
}

func (t *Task) fire() {
	t.mu.Lock()
	t.timerPending = false
	if t.stopped {
		t.notifyLocked()
		t.mu.Unlock()
		return
	}
	if t.suspend > 0 || t.running {
		t.needsRerun = true
		t.notifyLocked()
		t.mu.Unlock()
		return
	}

	t.running = true
	t.needsRerun = false
	t.runs++
	ctx := t.ctx
	t.notifyLocked()
	t.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Coalesced task panicked", "panic", r)
		}

		t.mu.Lock()
		defer t.mu.Unlock()
		t.running = false
		if t.needsRerun && t.suspend == 0 {
			t.requestLocked()
		}
		t.notifyLocked()
	}()

	t.fn(ctx)
}

// Suspend holds off runs until a matching Resume. Requests made while
// suspended are remembered.
func (t *Task) Suspend() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.suspend++
	t.notifyLocked()
}

// Resume undoes one Suspend. Reaching zero with a remembered request
// schedules it. Extra calls are ignored.
func (t *Task) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.suspend == 0 {
		slog.Debug("Ignoring unbalanced resume")
		return
	}
	t.suspend--
	if t.suspend == 0 && t.needsRerun {
		t.requestLocked()
	}
	t.notifyLocked()
}

// Wait blocks until no run is pending or in flight.
func (t *Task) Wait(ctx context.Context) error {
	for {
		t.mu.Lock()
		if !t.timerPending && !t.running {
			t.mu.Unlock()
			return nil
		}
		ch := t.changed
		t.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Stop cancels any pending run and the context of the current one.
// Later requests are ignored.
func (t *Task) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopped = true
	if t.timer != nil && t.timer.Stop() {
		t.timerPending = false
	}
	t.cancel()
	t.notifyLocked()
}

func (t *Task) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Stats{
		Runs:         t.runs,
		TimerPending: t.timerPending,
		Running:      t.running,
		NeedsRerun:   t.needsRerun,
		Suspended:    t.suspend,
	}
}

func (t *Task) notifyLocked() {
	close(t.changed)
	t.changed = make(chan struct{})
}
