// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package scheduler

import (
	"container/heap"
	"sync"

	"vawter.tech/stream"
	"vawter.tech/stream/disposable"
)

// Virtual is a [stream.Scheduler] whose time moves only when
// [Virtual.Advance], [Virtual.AdvanceTo], or [Virtual.Run] is called.
// Tasks due at the same time run in the order they were scheduled.
//
// Delay may be called from any goroutine, including from within a
// running task. The advancing methods must not be called concurrently
// with each other.
type Virtual struct {
	mu struct {
		sync.Mutex
		now   stream.Time
		seq   uint64
		tasks taskHeap
	}
}

var _ stream.Scheduler = (*Virtual)(nil)

// NewVirtual returns a Virtual scheduler starting at time zero.
func NewVirtual() *Virtual { return &Virtual{} }

// Now implements [stream.Scheduler].
func (v *Virtual) Now() stream.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mu.now
}

// Delay implements [stream.Scheduler]. A negative delay is treated as
// zero.
func (v *Virtual) Delay(delay stream.Time, task func()) disposable.Disposable {
	v.mu.Lock()
	defer v.mu.Unlock()
	t := &scheduled{
		due: v.mu.now + max(delay, 0),
		seq: v.mu.seq,
		fn:  task,
	}
	v.mu.seq++
	heap.Push(&v.mu.tasks, t)
	return disposable.Func(func() error {
		v.cancel(t)
		return nil
	})
}

// Advance moves time forward by d, running every task that becomes
// due, including tasks scheduled by those tasks.
func (v *Virtual) Advance(d stream.Time) {
	v.AdvanceTo(v.Now() + d)
}

// AdvanceTo moves time forward to t, running every task due at or
// before t. Time never moves backwards.
func (v *Virtual) AdvanceTo(t stream.Time) {
	for {
		task, ok := v.next(t, true)
		if !ok {
			break
		}
		task()
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mu.now = max(v.mu.now, t)
}

// Run executes tasks until none remain and returns the final time. A
// stream that never ends but keeps scheduling work will cause Run to
// loop forever.
func (v *Virtual) Run() stream.Time {
	for {
		task, ok := v.next(0, false)
		if !ok {
			return v.Now()
		}
		task()
	}
}

// Pending returns the number of tasks that have not run or been
// canceled.
func (v *Virtual) Pending() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mu.tasks.Len()
}

// next pops the earliest task, advancing the clock to its due time.
// If bounded is true, only tasks due at or before limit are returned.
func (v *Virtual) next(limit stream.Time, bounded bool) (func(), bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.mu.tasks.Len() == 0 {
		return nil, false
	}
	head := v.mu.tasks[0]
	if bounded && head.due > limit {
		return nil, false
	}
	heap.Pop(&v.mu.tasks)
	v.mu.now = max(v.mu.now, head.due)
	return head.fn, true
}

func (v *Virtual) cancel(t *scheduled) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if t.index >= 0 {
		heap.Remove(&v.mu.tasks, t.index)
	}
}

type scheduled struct {
	due   stream.Time
	fn    func()
	index int // Position in the heap, or -1 once removed.
	seq   uint64
}

// taskHeap orders tasks by due time, then by submission order.
type taskHeap []*scheduled

var _ heap.Interface = (*taskHeap)(nil)

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].due != h[j].due {
		return h[i].due < h[j].due
	}
	return h[i].seq < h[j].seq
}

func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *taskHeap) Push(x any) {
	t := x.(*scheduled)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
