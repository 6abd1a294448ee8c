// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

// Package retry contains stream wrappers that resubscribe to a stream
// after it fails.
//
// [WithClassifier] is a general-purpose building block for retryable
// behaviors using a [Classifier] function to drive the retry policy. An
// exponential [Backoff] and a trivial [Loop] implementation are
// provided.
//
// A retried stream is subscribed again from the beginning, so events
// delivered by a failed attempt may be delivered again.
package retry

import (
	"errors"
	"slices"
	"sync"

	"github.com/juju/loggo"
	"vawter.tech/stream"
	"vawter.tech/stream/disposable"
	"vawter.tech/stream/internal/safe"
)

var logger = loggo.GetLogger("stream.retry")

// A Classifier is a function that determines if an error is retryable.
// Each subscription is associated with a state value, which is
// initially the zero value for the S type. If an attempt fails, the
// error and the current state are passed to the Classifier. The
// Classifier may return an error to fail the subscription if it should
// not be retried.
//
// If the stream should be retried, the Classifier returns the delay
// after which the next attempt is subscribed.
type Classifier[S any] func(state *S, err error) (delay stream.Time, fail error)

// WithClassifier returns a Stream that resubscribes to s whenever it
// fails, as directed by the [Classifier].
func WithClassifier[T, S any](fn Classifier[S], s stream.Stream[T]) stream.Stream[T] {
	return stream.StreamFunc[T](func(sink stream.Sink[T], sched stream.Scheduler) disposable.Disposable {
		r := &retrier[T, S]{fn: fn, sched: sched, sink: sink, src: s}
		r.release = sync.OnceValue(r.dispose)
		r.attempt()
		return r
	})
}

type retrier[T, S any] struct {
	fn      Classifier[S]
	release func() error // Memoized release of the current attempt.
	sched   stream.Scheduler
	sink  stream.Sink[T]
	src   stream.Stream[T]
	state S // Accessed only by the current attempt.

	mu struct {
		sync.Mutex
		current  *attempt[T, S]
		disposed bool
		finished bool                  // A terminal signal was sent.
		wait     disposable.Disposable // Pending resubscription.
		teardown []error               // Release failures of superseded attempts.
	}
}

// attempt is the sink for one subscription to the source.
type attempt[T, S any] struct {
	r     *retrier[T, S]
	token disposable.Deferred
}

func (r *retrier[T, S]) attempt() {
	a := &attempt[T, S]{r: r}
	r.mu.Lock()
	if r.mu.disposed {
		r.mu.Unlock()
		return
	}
	r.mu.current = a
	r.mu.wait = nil
	r.mu.Unlock()

	token, err := safe.CallRE(func() (disposable.Disposable, error) {
		return r.src.Subscribe(a, r.sched), nil
	})
	if err != nil {
		a.Error(r.sched.Now(), err)
	}
	if err := a.token.Set(token); err != nil && !a.fail(r.sched.Now(), err) {
		r.orphaned(a, err)
	}
}

// orphaned records a release failure that could not be delivered
// downstream. The current attempt's failure is already returned by
// Dispose through its memoized token.
func (r *retrier[T, S]) orphaned(a *attempt[T, S], err error) {
	r.mu.Lock()
	if r.mu.current == a {
		r.mu.Unlock()
		return
	}
	r.mu.teardown = append(r.mu.teardown, err)
	r.mu.Unlock()
	logger.Warningf("releasing a superseded attempt failed: %v", err)
}

// isCurrent ignores stragglers from a superseded attempt.
func (a *attempt[T, S]) isCurrent() bool {
	a.r.mu.Lock()
	defer a.r.mu.Unlock()
	return !a.r.mu.disposed && !a.r.mu.finished && a.r.mu.current == a
}

func (a *attempt[T, S]) Event(t stream.Time, value T) {
	if a.isCurrent() {
		a.r.sink.Event(t, value)
	}
}

func (a *attempt[T, S]) End(t stream.Time, value any) {
	a.r.mu.Lock()
	if a.r.mu.disposed || a.r.mu.finished || a.r.mu.current != a {
		a.r.mu.Unlock()
		return
	}
	a.r.mu.finished = true
	a.r.mu.Unlock()
	a.r.sink.End(t, value)
}

func (a *attempt[T, S]) Error(t stream.Time, err error) {
	if !a.isCurrent() {
		return
	}
	delay, fail := safe.CallRE(func() (stream.Time, error) {
		return a.r.fn(&a.r.state, err)
	})
	if fail != nil {
		a.fail(t, fail)
		return
	}

	// Release the failed attempt before trying again.
	if a.token.Dispose() != nil {
		// The outcome is memoized and reported by fail.
		a.fail(t, err)
		return
	}
	wait := a.r.sched.Delay(delay, a.r.attempt)

	a.r.mu.Lock()
	if a.r.mu.disposed {
		a.r.mu.Unlock()
		_ = wait.Dispose()
		return
	}
	a.r.mu.wait = wait
	a.r.mu.Unlock()
}

// fail delivers a terminal error, provided that this attempt is still
// current, and reports whether it did. The attempt and any scheduled
// retry are released first.
func (a *attempt[T, S]) fail(t stream.Time, err error) bool {
	a.r.mu.Lock()
	if a.r.mu.disposed || a.r.mu.finished || a.r.mu.current != a {
		a.r.mu.Unlock()
		return false
	}
	wait := a.r.mu.wait
	a.r.mu.finished = true
	a.r.mu.wait = nil
	a.r.mu.Unlock()

	if wait != nil {
		_ = wait.Dispose()
	}
	// The token's outcome is memoized and may be the error itself.
	if dErr := a.token.Dispose(); dErr != nil && dErr != err {
		err = errors.Join(err, dErr)
	}
	a.r.sink.Error(t, err)
	return true
}

// Dispose implements [disposable.Disposable]. The current attempt is
// released by the first call only. Every call returns that outcome
// joined with any failure to release a superseded attempt.
func (r *retrier[T, S]) Dispose() error {
	err := r.release()
	r.mu.Lock()
	errs := slices.Clone(r.mu.teardown)
	r.mu.Unlock()
	return errors.Join(append(errs, err)...)
}

func (r *retrier[T, S]) dispose() error {
	r.mu.Lock()
	r.mu.disposed = true
	current, wait := r.mu.current, r.mu.wait
	r.mu.current, r.mu.wait = nil, nil
	r.mu.Unlock()

	var errs []error
	if wait != nil {
		errs = append(errs, wait.Dispose())
	}
	if current != nil {
		errs = append(errs, current.token.Dispose())
	}
	return errors.Join(errs...)
}
