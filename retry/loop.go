// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package retry

import "vawter.tech/stream"

// Loop implements a trivial looping behavior that resubscribes on the
// next scheduler turn.
type Loop struct {
	MaxAttempts int              // Defaults to 2 if unset.
	Retryable   func(error) bool // Defaults to retrying all errors.
}

// WithLoop returns a Stream that resubscribes to s immediately after a
// failure.
func WithLoop[T any](l *Loop, s stream.Stream[T]) stream.Stream[T] {
	attempts := l.MaxAttempts
	if attempts == 0 {
		attempts = 2
	}
	fn := l.Retryable
	if fn == nil {
		fn = func(_ error) bool { return true }
	}
	return WithClassifier(func(state *int, err error) (stream.Time, error) {
		if !fn(err) {
			return 0, err
		}
		*state++
		if *state >= attempts {
			return 0, &MaxAttemptsError{err}
		}
		return 0, nil
	}, s)
}
