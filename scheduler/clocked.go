// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package scheduler

import (
	"context"
	"runtime/trace"
	"sync"
	"sync/atomic"
	"time"

	"github.com/juju/clock"
	"github.com/juju/collections/deque"
	"vawter.tech/stream"
	"vawter.tech/stream/disposable"
	"vawter.tech/stream/internal/safe"
)

// Clocked is a [stream.Scheduler] driven by a [clock.Clock]. Timers
// fire on the clock's goroutines, but tasks are queued and executed
// one at a time by [Clocked.Run].
//
// Time zero is the instant the Clocked was created.
type Clocked struct {
	clock  clock.Clock
	origin time.Time
	wake   chan struct{} // Capacity of one; signals a non-empty queue.

	mu struct {
		sync.Mutex
		closed bool
		queue  *deque.Deque // Of *clockedTask.
	}
}

var _ stream.Scheduler = (*Clocked)(nil)

// NewClocked returns a scheduler that follows the given clock, such as
// [clock.WallClock]. Tasks will not execute until [Clocked.Run] is
// called.
func NewClocked(clk clock.Clock) *Clocked {
	c := &Clocked{
		clock:  clk,
		origin: clk.Now(),
		wake:   make(chan struct{}, 1),
	}
	c.mu.queue = deque.New()
	return c
}

// Now implements [stream.Scheduler].
func (c *Clocked) Now() stream.Time {
	return stream.Time(c.clock.Now().Sub(c.origin).Milliseconds())
}

// Delay implements [stream.Scheduler]. A non-positive delay enqueues
// the task immediately.
func (c *Clocked) Delay(delay stream.Time, task func()) disposable.Disposable {
	t := &clockedTask{fn: task}
	if delay <= 0 {
		c.enqueue(t)
		return t
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mu.timer = c.clock.AfterFunc(time.Duration(delay)*time.Millisecond, func() {
		c.enqueue(t)
	})
	return t
}

// Submit enqueues a task to run as soon as possible. This is the
// preferred way to subscribe to a stream from outside of the run loop.
func (c *Clocked) Submit(task func()) disposable.Disposable {
	return c.Delay(0, task)
}

// Run executes queued tasks until the context is canceled. It returns
// the context's error. Tasks queued after Run returns are discarded.
// A task that panics is logged and does not stop the loop.
func (c *Clocked) Run(ctx context.Context) error {
	defer c.close()
	ctx, task := trace.NewTask(ctx, "scheduler.Clocked")
	defer task.End()

	for {
		for {
			t, ok := c.dequeue()
			if !ok {
				break
			}
			if t.canceled.Load() {
				continue
			}
			if err := safe.Call(t.fn); err != nil {
				logger.Errorf("scheduled task failed: %v", err)
			}
		}

		select {
		case <-c.wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Clocked) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mu.closed = true
	c.mu.queue = deque.New()
}

func (c *Clocked) dequeue() (*clockedTask, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.mu.queue.PopFront()
	if !ok {
		return nil, false
	}
	return item.(*clockedTask), true
}

func (c *Clocked) enqueue(t *clockedTask) {
	c.mu.Lock()
	if c.mu.closed {
		c.mu.Unlock()
		t.canceled.Store(true)
		return
	}
	c.mu.queue.PushBack(t)
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

type clockedTask struct {
	canceled atomic.Bool
	fn       func()

	mu struct {
		sync.Mutex
		timer clock.Timer // Nil for immediate tasks.
	}
}

// Dispose cancels the task if it has not started.
func (t *clockedTask) Dispose() error {
	t.canceled.Store(true)
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.mu.timer != nil {
		t.mu.timer.Stop()
	}
	return nil
}
