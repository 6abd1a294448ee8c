// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

// Package stream provides a push-based stream model and a bounded
// concurrent merge-map combinator built on it.
//
// A [Stream] is an immutable description of a producer. Subscribing a
// [Sink] and a [Scheduler] starts one run of the producer and returns a
// [disposable.Disposable] that releases it:
//
//	token := s.Subscribe(sink, sched)
//	defer token.Dispose()
//
// A Sink receives timestamped events followed by at most one terminal
// signal, either End or Error. Timestamps are expressed as [Time], in
// milliseconds on the scheduler's timeline.
//
// # Bounded merge-map
//
// [MergeMap] applies a mapping function to every event of a source
// stream and merges the resulting inner streams into one output, while
// subscribing to at most limit inner streams at a time:
//
//	results, err := stream.MergeMap(lookup, 4, queries)
//
// Inner streams produced while the limit is reached wait in a FIFO
// queue and are subscribed, in the order their originating events
// occurred, as earlier inner streams end. The slot of an ending inner
// stream passes directly to the oldest waiting stream, so the limit
// holds at every instant. A queued stream is never subscribed before
// it is admitted, and disposing the merge discards it without
// subscribing.
//
// Every signal forwarded from an inner stream is stamped no earlier
// than the source event that produced it. A stream admitted from the
// queue is stamped no earlier than the moment its slot became free.
//
// [MergeConcurrently] is the same operation for a stream of streams.
//
// # Termination
//
// The output ends once the source has ended and every admitted or
// queued inner stream has ended. An error from the source, from any
// inner stream, or from the mapping function fails the output
// immediately without waiting for other inner streams to drain. Before
// the error is delivered, the source and every active inner stream are
// released and the queue is cleared.
//
// Disposing the output releases the source and every active inner
// subscription concurrently and returns the joined outcome. Disposal
// is idempotent: later calls release nothing further. They return the
// outcome of the first, joined with any release failure that was
// recorded afterwards, such as an inner token that only arrived once
// the first call had returned.
//
// # Errors
//
// Construction with invalid arguments returns a [ConfigurationError].
// A failure, panic, or nil result from the mapping function is
// delivered as a [MappingError]. Errors from the source or an inner
// stream are delivered unchanged. A failure to release a subscription
// is a [DisposalError]: it is delivered downstream if no terminal
// signal has been sent yet, and is otherwise logged and returned by
// Dispose. Panics raised by subscriptions or disposal functions are
// recovered and reported as errors.
//
// # Concurrency
//
// Signals for one subscription may be delivered from any goroutine,
// but not concurrently. The merge serializes its bookkeeping with a
// mutex that is never held while calling user code, so a Sink or a
// mapping function may dispose the merge, or subscribe to further
// streams, from within a callback.
//
// # Observability
//
// Each subscription creates a [runtime/trace.Task] named by
// [WithName] and annotates admissions, queueing, and terminal signals
// with trace logs. Diagnostic messages are written to the
// "stream.mergemap" loggo module, or to the logger supplied with
// [WithLogger]. An [Observer] supplied with [WithObserver] receives
// occupancy changes; the metrics sub-package exports them to
// Prometheus.
//
// # Related packages
//
// The scheduler sub-package provides a virtual-time scheduler for
// tests and a clock-driven scheduler for real programs. The source
// sub-package contains simple producers. The streamtest sub-package
// detects subscriptions that are never released.
package stream
