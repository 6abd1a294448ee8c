// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package stream

import "vawter.tech/stream/disposable"

// Time is a position on a [Scheduler]'s timeline, in milliseconds.
type Time int64

// A Sink receives the signals of one subscription. At most one of End
// or Error is called, and no signal follows it.
//
// Signals for a single subscription are delivered serially; a Sink
// need not be safe for concurrent use unless it is shared.
type Sink[T any] interface {
	// Event delivers a value observed at time t.
	Event(t Time, value T)
	// End reports successful completion. The end value is optional
	// and is usually nil.
	End(t Time, value any)
	// Error reports failure.
	Error(t Time, err error)
}

// A Stream is an immutable description of a producer of events. Each
// call to Subscribe starts an independent run of the producer that
// delivers signals to the sink until the returned handle is disposed
// or a terminal signal has been sent.
type Stream[T any] interface {
	Subscribe(sink Sink[T], sched Scheduler) disposable.Disposable
}

// StreamFunc adapts a function to the [Stream] interface.
type StreamFunc[T any] func(sink Sink[T], sched Scheduler) disposable.Disposable

var _ Stream[any] = StreamFunc[any](nil)

// Subscribe implements [Stream].
func (f StreamFunc[T]) Subscribe(sink Sink[T], sched Scheduler) disposable.Disposable {
	return f(sink, sched)
}

// A Scheduler is the clock and task queue a subscription runs on.
// Combinators in this package forward it unchanged to the streams they
// subscribe to; only producers call its methods.
//
// See package scheduler for implementations.
type Scheduler interface {
	// Now returns the current time.
	Now() Time
	// Delay arranges for the task to run once the given delay has
	// elapsed. Disposing the returned handle cancels a task that has
	// not yet started.
	Delay(delay Time, task func()) disposable.Disposable
}
