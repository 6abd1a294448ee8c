// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"errors"
	"fmt"

	"vawter.tech/stream/disposable"
)

var errNilStream = errors.New("mapping function returned a nil stream")

// MergeMap returns a Stream that applies fn to each event of src and
// merges the resulting inner streams into a single output.
//
// At most limit inner streams are subscribed at any time. Inner
// streams created while the limit is reached are queued and
// subscribed in the order that their originating events occurred as
// earlier inner streams end. Every forwarded signal is stamped no
// earlier than the source event that produced its inner stream.
//
// The output ends once src has ended and every inner stream has ended.
// An error from src, from any inner stream, or from fn fails the
// output immediately; all outstanding subscriptions are released as
// part of that transition. A mapping failure is delivered as a
// [MappingError].
//
// A [ConfigurationError] is returned if limit is not positive or if fn
// or src is nil.
func MergeMap[A, B any](
	fn func(A) (Stream[B], error),
	limit int,
	src Stream[A],
	opts ...Option,
) (Stream[B], error) {
	switch {
	case fn == nil:
		return nil, &ConfigurationError{Field: "mapping function", Reason: "must not be nil"}
	case limit <= 0:
		return nil, &ConfigurationError{
			Field:  "concurrency limit",
			Reason: fmt.Sprintf("must be greater than zero, got %d", limit),
		}
	case src == nil:
		return nil, &ConfigurationError{Field: "source stream", Reason: "must not be nil"}
	}
	return &mergeMap[A, B]{
		cfg:   newConfig(opts),
		fn:    fn,
		limit: limit,
		src:   src,
	}, nil
}

// MergeConcurrently merges a stream of streams, subscribing to at most
// limit of them at a time. It is equivalent to [MergeMap] with an
// identity mapping.
func MergeConcurrently[T any](limit int, src Stream[Stream[T]], opts ...Option) (Stream[T], error) {
	return MergeMap(func(s Stream[T]) (Stream[T], error) { return s, nil }, limit, src, opts...)
}

type mergeMap[A, B any] struct {
	cfg   *config
	fn    func(A) (Stream[B], error)
	limit int
	src   Stream[A]
}

var _ Stream[any] = (*mergeMap[any, any])(nil)

// Subscribe implements [Stream]. Each subscription is independent.
func (m *mergeMap[A, B]) Subscribe(sink Sink[B], sched Scheduler) disposable.Disposable {
	o := newOuter(m, sink, sched)
	o.run(m.src)
	return o
}
