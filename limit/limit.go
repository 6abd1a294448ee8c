// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

// Package limit provides stream wrappers that impose execution limits
// on subscriptions.
//
// Limits are evaluated on the timeline of the [stream.Scheduler] that a
// stream is subscribed with, so they behave deterministically under a
// virtual-time scheduler.
package limit

import (
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
	"vawter.tech/stream"
	"vawter.tech/stream/disposable"
)

// ErrExceedsBurst is delivered to a subscriber if the limiter's burst
// size is zero and no subscription could ever be admitted.
var ErrExceedsBurst = errors.New("rate limiter does not permit any subscriptions")

// WithMaxRate returns a Stream that delays each subscription to s
// until the limiter grants it a token. Signals are delivered on the
// subscriber's scheduler as usual. Disposing a subscription that is
// still waiting returns its token to the limiter.
//
// A single limiter may be shared by any number of streams, such as the
// inner streams produced by [stream.MergeMap].
func WithMaxRate[T any](l *rate.Limiter, s stream.Stream[T]) stream.Stream[T] {
	return stream.StreamFunc[T](func(sink stream.Sink[T], sched stream.Scheduler) disposable.Disposable {
		now := instant(sched.Now())
		res := l.ReserveN(now, 1)
		if !res.OK() {
			return sched.Delay(0, func() { sink.Error(sched.Now(), ErrExceedsBurst) })
		}

		w := &waiter[T]{res: res, sink: sink, sched: sched, src: s}
		w.mu.Lock()
		w.mu.pending = sched.Delay(millis(res.DelayFrom(now)), w.start)
		w.mu.Unlock()
		return disposable.Once(w)
	})
}

// instant maps a scheduler time onto the limiter's clock.
func instant(t stream.Time) time.Time {
	return time.UnixMilli(int64(t))
}

// millis rounds up, so that a subscription never starts before its
// reservation is valid.
func millis(d time.Duration) stream.Time {
	return stream.Time((d + time.Millisecond - 1) / time.Millisecond)
}

type waiter[T any] struct {
	res   *rate.Reservation
	sched stream.Scheduler
	sink  stream.Sink[T]
	src   stream.Stream[T]
	token disposable.Deferred

	mu struct {
		sync.Mutex
		pending disposable.Disposable
		started bool
	}
}

func (w *waiter[T]) start() {
	w.mu.Lock()
	if w.mu.started {
		w.mu.Unlock()
		return
	}
	w.mu.started = true
	w.mu.Unlock()

	if w.token.IsRequested() {
		return
	}
	if err := w.token.Set(w.src.Subscribe(w.sink, w.sched)); err != nil {
		w.sink.Error(w.sched.Now(), err)
	}
}

func (w *waiter[T]) Dispose() error {
	w.mu.Lock()
	started := w.mu.started
	w.mu.started = true
	pending := w.mu.pending
	w.mu.Unlock()

	if !started {
		// The subscription never happened.
		w.res.CancelAt(instant(w.sched.Now()))
		return pending.Dispose()
	}
	return w.token.Dispose()
}
