// Package eventloop provides the single logical thread on which all vehicle
// manager state is mutated. Work is queued as tasks and executed strictly in
// FIFO order; a task never runs inline with the code that posted it.
package eventloop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/autopeer-io/groundlink/pkg/log"
)

var (
	// ErrStopped is returned by Call once the loop has exited.
	ErrStopped = errors.New("event loop stopped")

	// ErrFatal marks a task panic that must stop the loop. Run returns a
	// recovered error wrapping it instead of logging and moving on.
	ErrFatal = errors.New("fatal event loop error")
)

// Task is a unit of work executed on the loop.
type Task func()

// Loop is a cooperative FIFO task queue. Post may be called from any
// goroutine; tasks are executed by exactly one driver, either Run or, in
// tests, RunPending.
type Loop struct {
	mu    sync.Mutex
	queue []Task

	wake    chan struct{}
	stopped chan struct{}
	stop    sync.Once
}

// New creates an idle loop.
func New() *Loop {
	return &Loop{
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
}

// Post appends t to the queue. It never blocks and never runs t inline.
func (l *Loop) Post(t Task) {
	if t == nil {
		return
	}

	l.mu.Lock()
	l.queue = append(l.queue, t)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Len returns the number of queued tasks.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

func (l *Loop) next() (Task, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.queue) == 0 {
		return nil, false
	}
	t := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return t, true
}

// Step runs the oldest queued task, if any, and reports whether one ran.
func (l *Loop) Step() bool {
	t, ok := l.next()
	if !ok {
		return false
	}
	t()
	return true
}

// RunPending runs tasks until the queue is empty, including tasks posted by
// the tasks it runs. It returns how many tasks ran. Panics propagate.
func (l *Loop) RunPending() int {
	n := 0
	for l.Step() {
		n++
	}
	return n
}

// Run drives the loop until ctx is done. A panicking task is logged and
// dropped so one bad event cannot take the manager down.
func (l *Loop) Run(ctx context.Context) error {
	defer l.stop.Do(func() { close(l.stopped) })

	log.Info("Event loop started")
	for {
		for {
			t, ok := l.next()
			if !ok {
				break
			}
			if err := l.safeRun(t); err != nil {
				log.Error(err, "Event loop stopped by fatal task", "dropped", l.Len())
				return err
			}
		}

		select {
		case <-ctx.Done():
			log.Info("Event loop stopped", "dropped", l.Len())
			return nil
		case <-l.wake:
		}
	}
}

func (l *Loop) safeRun(t Task) (fatal error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if err, ok := r.(error); ok && errors.Is(err, ErrFatal) {
			fatal = err
			return
		}
		log.Error(fmt.Errorf("%v", r), "Event loop task panicked")
	}()
	t()
	return nil
}

// Call posts fn and waits until it has run on the loop. It must not be
// called from a task, which would deadlock.
//
// fn runs at most once, and only if Call has not given up: when ctx ends
// or the loop stops before fn starts, fn is skipped and Call returns the
// error. Once fn has started, Call waits for it to finish.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	var claimed atomic.Bool
	done := make(chan struct{})
	l.Post(func() {
		if !claimed.CompareAndSwap(false, true) {
			return
		}
		defer close(done)
		fn()
	})

	var err error
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		err = ctx.Err()
	case <-l.stopped:
		err = ErrStopped
	}
	if claimed.CompareAndSwap(false, true) {
		return err
	}
	<-done
	return nil
}
