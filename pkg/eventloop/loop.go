// Package eventloop provides the single logical thread that a Reconciler
// and its projections run on when the source delivers from other goroutines.
package eventloop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/aretw0/introspection"
	"github.com/aretw0/lifecycle"
)

// ErrStopped is returned when work is submitted to a stopped loop.
var ErrStopped = errors.New("event loop stopped")

// Loop runs posted functions one at a time, in posting order, on a single
// goroutine. Posting never blocks, so it is safe to post from inside a task.
type Loop struct {
	logger *slog.Logger

	mu      sync.Mutex
	queue   []func()
	started bool
	stopped bool
	ran     uint64

	wake     chan struct{}
	quit     chan struct{}
	exited   chan struct{}
	stopOnce sync.Once
}

// New creates a loop. It does nothing until Start.
func New(logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loop{
		logger: logger,
		wake:   make(chan struct{}, 1),
		quit:   make(chan struct{}),
		exited: make(chan struct{}),
	}
}

// Start launches the loop goroutine. It stops when ctx is done or Stop is called.
func (l *Loop) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return errors.New("event loop already started")
	}
	l.started = true
	l.mu.Unlock()

	lifecycle.Go(ctx, l.run, lifecycle.WithErrorHandler(func(err error) {
		l.logger.Error("event loop failed", "error", err)
	}))
	return nil
}

// Post enqueues fn. Work posted after Stop is dropped.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		l.logger.Debug("dropping task posted to stopped loop")
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Do posts fn and waits until it has run.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	l.mu.Lock()
	stopped := l.stopped
	l.mu.Unlock()
	if stopped {
		return ErrStopped
	}

	l.Post(func() {
		defer close(done)
		fn()
	})

	select {
	case <-done:
		return nil
	case <-l.exited:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop ends the loop and waits for the running task to finish.
// Tasks still queued are discarded.
func (l *Loop) Stop(ctx context.Context) error {
	l.stopOnce.Do(func() {
		l.mu.Lock()
		l.stopped = true
		started := l.started
		l.mu.Unlock()
		close(l.quit)
		if !started {
			close(l.exited)
		}
	})

	select {
	case <-l.exited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) run(ctx context.Context) error {
	defer close(l.exited)
	defer func() {
		l.mu.Lock()
		l.stopped = true
		l.queue = nil
		l.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-l.quit:
			return nil
		case <-l.wake:
			l.drain(ctx)
		}
	}
}

func (l *Loop) drain(ctx context.Context) {
	for {
		select {
		case <-l.quit:
			return
		default:
		}

		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return
		}
		fn := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.ran++
		l.mu.Unlock()

		l.exec(ctx, fn)
	}
}

// exec runs one task; a panicking task is logged and the loop keeps going.
func (l *Loop) exec(ctx context.Context, fn func()) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err := fmt.Errorf("task panic: %v", recovered)
			if l.logger.Enabled(ctx, slog.LevelDebug) {
				l.logger.Error("event loop task panic", "error", err, "stack", string(debug.Stack()))
				return
			}
			l.logger.Error("event loop task panic", "error", err)
		}
	}()
	fn()
}

// LoopState exposes internal state for observability.
type LoopState struct {
	Pending int    `json:"pending"`
	Ran     uint64 `json:"ran"`
	Started bool   `json:"started"`
	Stopped bool   `json:"stopped"`
}

// State implements introspection.Introspectable.
func (l *Loop) State() any {
	l.mu.Lock()
	defer l.mu.Unlock()
	return LoopState{
		Pending: len(l.queue),
		Ran:     l.ran,
		Started: l.started,
		Stopped: l.stopped,
	}
}

// ComponentType implements introspection.Component.
func (l *Loop) ComponentType() string {
	return "event-loop"
}

var _ introspection.Introspectable = (*Loop)(nil)
var _ introspection.Component = (*Loop)(nil)
