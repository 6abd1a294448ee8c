// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package retry

import (
	"math/rand/v2"
	"time"

	"vawter.tech/stream"
)

// Backoff implements an exponential backoff with jitter.
type Backoff struct {
	Jitter      time.Duration    // Delays are adjusted ±50% of this value. Default is 0.
	MaxAttempts int              // Defaults to 4 if unset.
	MaxDelay    time.Duration    // Defaults to 1s if unset.
	MinDelay    time.Duration    // Defaults to 10ms if unset.
	Multiplier  float32          // Defaults to 10.0 if unset.
	Retryable   func(error) bool // Defaults to retrying all errors.
}

type backoffState struct {
	count int
	delay time.Duration
}

// WithBackoff returns a Stream that resubscribes to s after a failure,
// waiting an exponentially increasing delay between attempts.
func WithBackoff[T any](b *Backoff, s stream.Stream[T]) stream.Stream[T] {
	return WithClassifier(b.classifier(), s)
}

func (b *Backoff) classifier() Classifier[backoffState] {
	b = b.sanitize() // Shadowing receiver.
	return func(st *backoffState, err error) (stream.Time, error) {
		if !b.Retryable(err) {
			return 0, err
		}
		st.count++
		if st.count >= b.MaxAttempts {
			return 0, &MaxAttemptsError{Err: err}
		}
		next := time.Duration(float32(st.delay) * b.Multiplier)
		st.delay = min(max(b.MinDelay, next), b.MaxDelay)
		jitter := time.Duration((rand.Float32() - 0.5) * float32(b.Jitter))
		return millis(st.delay + jitter), nil
	}
}

// sanitize returns a copy with all fields initialized to a reasonable default.
func (b *Backoff) sanitize() *Backoff {
	ret := *b
	// Jitter defaults to 0.
	if ret.MaxAttempts == 0 {
		ret.MaxAttempts = 4
	}
	if ret.MaxDelay == 0 {
		ret.MaxDelay = 1 * time.Second
	}
	if ret.MinDelay == 0 {
		ret.MinDelay = 10 * time.Millisecond
	}
	if ret.Multiplier == 0 {
		ret.Multiplier = 10
	}
	if ret.Retryable == nil {
		ret.Retryable = func(_ error) bool { return true }
	}
	return &ret
}

// millis converts a delay to scheduler time, rounding up.
func millis(d time.Duration) stream.Time {
	return stream.Time(max(0, (d+time.Millisecond-1)/time.Millisecond))
}
