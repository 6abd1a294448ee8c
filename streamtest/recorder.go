// Copyright 2025 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

// Package streamtest contains utilities for testing streams: a
// [Recorder] that reports where still-open subscriptions were created,
// and a [Collector] sink that records every signal it receives.
package streamtest

import (
	"runtime"
	"sync"
	"sync/atomic"

	"vawter.tech/stream"
	"vawter.tech/stream/disposable"
)

// This value is sensitive to the code structure.
const callersOffset = 4

// NewRecorder constructs a [Recorder] that samples the call stack at
// the requested depth whenever a tracked stream is subscribed.
func NewRecorder(depth int) *Recorder {
	return &Recorder{depth: depth}
}

// A Recorder counts the live subscriptions of the streams passed to
// [Track] and records the call stack where each was opened. A
// subscription is live from the call to Subscribe until its handle is
// disposed, regardless of whether the stream has finished.
type Recorder struct {
	counter atomic.Uintptr
	data    sync.Map
	depth   int
	live    atomic.Int64
	peak    atomic.Int64
}

// Callers returns a snapshot of the caller stacks associated with any
// subscriptions that are still live.
func (r *Recorder) Callers() [][]uintptr {
	var ret [][]uintptr
	r.data.Range(func(_, value any) bool {
		ret = append(ret, value.([]uintptr))
		return true
	})
	return ret
}

// Live returns the number of subscriptions that have not been
// disposed.
func (r *Recorder) Live() int { return int(r.live.Load()) }

// Peak returns the largest value that [Recorder.Live] has reached.
func (r *Recorder) Peak() int { return int(r.peak.Load()) }

// Total returns the number of subscriptions ever opened.
func (r *Recorder) Total() int { return int(r.counter.Load()) }

// Track returns a Stream that records each subscription to s in the
// Recorder.
func Track[T any](r *Recorder, s stream.Stream[T]) stream.Stream[T] {
	return stream.StreamFunc[T](func(sink stream.Sink[T], sched stream.Scheduler) disposable.Disposable {
		id := r.open()
		token := s.Subscribe(sink, sched)
		return disposable.Once(disposable.Func(func() error {
			defer r.close(id)
			return token.Dispose()
		}))
	})
}

func (r *Recorder) open() uintptr {
	pc := make([]uintptr, r.depth)
	pc = pc[:runtime.Callers(callersOffset, pc)]

	id := r.counter.Add(1)
	r.data.Store(id, pc)

	live := r.live.Add(1)
	for {
		peak := r.peak.Load()
		if live <= peak || r.peak.CompareAndSwap(peak, live) {
			return id
		}
	}
}

func (r *Recorder) close(id uintptr) {
	r.data.Delete(id)
	r.live.Add(-1)
}
