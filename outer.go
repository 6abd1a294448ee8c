// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"context"
	"errors"
	"runtime/trace"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/juju/collections/deque"
	"vawter.tech/stream/disposable"
	"vawter.tech/stream/internal/active"
	"vawter.tech/stream/internal/safe"
	"vawter.tech/stream/internal/state"
)

// queued is an inner stream awaiting a free slot.
type queued[B any] struct {
	at     Time // Time of the source event that produced the stream.
	stream Stream[B]
}

// handoff is a queued stream that has been given a slot but is not yet
// subscribed.
type handoff[A, B any] struct {
	in     *inner[A, B]
	stream Stream[B]
}

// outer is the sink for the source stream and owns every inner
// subscription of one merge.
//
// State transitions are computed while holding mu. Anything that calls
// out of the merge (mapping, subscribing, disposing, downstream
// delivery, observers) happens after mu is released, using the
// callbacks returned by the *Locked methods.
type outer[A, B any] struct {
	cfg       *config
	fn        func(A) (Stream[B], error)
	limit     int
	release   func() error // Memoized release of held subscriptions.
	sched     Scheduler
	sink      Sink[B]
	source    disposable.Deferred
	stopped   atomic.Bool // Downstream may receive no further signals.
	traceCtx  context.Context
	traceTask *trace.Task

	mu struct {
		sync.Mutex
		active   active.Set[*inner[A, B]] // Invariant: Len() <= limit.
		now      Time                     // Latest time observed.
		pending  *deque.Deque             // Of queued[B]; grows only while active is full.
		phase    state.Phase
		ready    *deque.Deque // Of handoff[A, B]; members of active awaiting start.
		starting bool         // A goroutine is draining ready.
		teardown []error      // Disposal failures that could not be sent downstream.
	}
}

var (
	_ Sink[any]             = (*outer[any, any])(nil)
	_ disposable.Disposable = (*outer[any, any])(nil)
)

func newOuter[A, B any](m *mergeMap[A, B], sink Sink[B], sched Scheduler) *outer[A, B] {
	o := &outer[A, B]{
		cfg:   m.cfg,
		fn:    m.fn,
		limit: m.limit,
		sched: sched,
		sink:  sink,
	}
	o.mu.pending = deque.New()
	o.mu.ready = deque.New()
	o.release = sync.OnceValue(o.dispose)
	o.traceCtx, o.traceTask = trace.NewTask(context.Background(), m.cfg.name)
	return o
}

// run subscribes to the source. The source may emit, or even finish,
// before Subscribe returns, so its token passes through a Deferred.
func (o *outer[A, B]) run(src Stream[A]) {
	token, err := safe.CallRE(func() (disposable.Disposable, error) {
		return src.Subscribe(o, o.sched), nil
	})
	if err != nil {
		o.fail(o.latest(), err)
	}
	o.settle(o.source.Set(token))
}

// Dispose implements [disposable.Disposable]. Subscriptions are
// released by the first call only. Every call returns that outcome
// joined with any release failure recorded since, such as a token that
// arrived after the first call and failed to release.
func (o *outer[A, B]) Dispose() error {
	err := o.release()
	o.mu.Lock()
	errs := slices.Clone(o.mu.teardown)
	o.mu.Unlock()
	return errors.Join(append(errs, err)...)
}

// Event implements [Sink] for the source stream.
func (o *outer[A, B]) Event(t Time, value A) {
	o.mu.Lock()
	o.observeLocked(t)
	accepting := o.mu.phase.Accepting()
	o.mu.Unlock()
	if !accepting {
		return
	}

	s, err := safe.Apply(o.fn, value)
	if err == nil && s == nil {
		err = errNilStream
	}
	if err != nil {
		o.fail(t, &MappingError{Err: err})
		return
	}

	o.mu.Lock()
	if !o.mu.phase.Accepting() {
		o.mu.Unlock()
		return
	}
	if o.mu.active.Len() >= o.limit {
		o.mu.pending.PushBack(queued[B]{at: t, stream: s})
		depth := o.mu.pending.Len()
		o.mu.Unlock()

		trace.Logf(o.traceCtx, "queue", "t=%d depth=%d", t, depth)
		o.cfg.logger.Debugf("%s: limit %d reached, queued inner stream from t=%d (%d pending)",
			o.cfg.name, o.limit, t, depth)
		o.cfg.observer.Adjust(0, 1)
		return
	}
	in := o.admitLocked(t)
	o.mu.Unlock()

	o.cfg.observer.Adjust(1, 0)
	o.start(in, s)
}

// End implements [Sink] for the source stream.
func (o *outer[A, B]) End(t Time, value any) {
	// The source will emit nothing further.
	err := o.source.Dispose()

	var then func()
	o.mu.Lock()
	o.observeLocked(t)
	switch {
	case !o.mu.phase.Accepting():
	case err != nil:
		then = o.errorLocked(t, &DisposalError{Err: err})
	default:
		o.mu.phase.To(state.SourceEnded)
		then = o.endLocked(t, value)
	}
	o.mu.Unlock()

	trace.Logf(o.traceCtx, "source", "end t=%d", t)
	if then != nil {
		then()
	}
}

// Error implements [Sink] for the source stream.
func (o *outer[A, B]) Error(t Time, err error) {
	o.fail(t, err)
}

// admitLocked occupies a slot for a new inner subscription.
func (o *outer[A, B]) admitLocked(at Time) *inner[A, B] {
	in := &inner[A, B]{origin: at, outer: o}
	in.handle = o.mu.active.Insert(in)
	return in
}

// start subscribes an admitted inner sink to its stream. A panic from
// Subscribe fails the merge as though the inner stream had reported
// it.
func (o *outer[A, B]) start(in *inner[A, B], s Stream[B]) {
	trace.Logf(o.traceCtx, "admit", "origin=%d", in.origin)
	o.cfg.logger.Tracef("%s: subscribing inner stream from t=%d", o.cfg.name, in.origin)

	token, err := safe.CallRE(func() (disposable.Disposable, error) {
		return s.Subscribe(in, o.sched), nil
	})
	if err != nil {
		in.Error(in.origin, err)
	}
	o.settle(in.token.Set(token))
}

// innerEnd retires a finished inner subscription. Its slot passes to
// the oldest pending stream, if any; otherwise the merge may end.
func (o *outer[A, B]) innerEnd(in *inner[A, B], t Time, value any) {
	// Release while the slot is still occupied so that no newer
	// source event can claim it ahead of the pending queue.
	err := in.Dispose()

	var admitted bool
	var then func()

	o.mu.Lock()
	o.observeLocked(t)
	if !o.mu.active.Remove(in.handle) {
		// Duplicate end, or the merge has already been torn down.
		o.mu.Unlock()
		return
	}
	switch {
	case err != nil:
		then = o.errorLocked(t, &DisposalError{Err: err})
	case o.mu.pending.Len() > 0:
		item, _ := o.mu.pending.PopFront()
		q := item.(queued[B])
		o.mu.ready.PushBack(handoff[A, B]{in: o.admitLocked(max(q.at, t)), stream: q.stream})
		admitted = true
	default:
		then = o.endLocked(t, value)
	}
	o.mu.Unlock()

	o.cfg.observer.Adjust(-1, 0)
	if admitted {
		o.cfg.observer.Adjust(1, -1)
		o.startReady()
	}
	if then != nil {
		then()
	}
}

// startReady subscribes handed-off streams in admission order. Only
// one caller runs the loop at a time, so a stream that ends within
// Subscribe passes its slot on without deepening the stack; the
// running loop picks up the next hand-off.
func (o *outer[A, B]) startReady() {
	o.mu.Lock()
	if o.mu.starting {
		o.mu.Unlock()
		return
	}
	o.mu.starting = true
	for {
		item, ok := o.mu.ready.PopFront()
		if !ok {
			o.mu.starting = false
			o.mu.Unlock()
			return
		}
		h := item.(handoff[A, B])
		// Skip streams whose slot was reclaimed by an error or disposal.
		if !o.mu.active.Contains(h.in.handle) {
			continue
		}
		o.mu.Unlock()
		o.start(h.in, h.stream)
		o.mu.Lock()
	}
}

// fail moves the merge to the errored phase. If the merge has already
// finished, a disposal failure is retained for the caller of Dispose
// and any other error is discarded.
func (o *outer[A, B]) fail(t Time, err error) {
	o.mu.Lock()
	o.observeLocked(t)
	then := o.errorLocked(t, err)
	if then == nil {
		phase := o.mu.phase
		var de *DisposalError
		if errors.As(err, &de) {
			o.mu.teardown = append(o.mu.teardown, err)
			o.cfg.logger.Warningf("%s: %v after merge %s", o.cfg.name, err, phase)
		} else {
			o.cfg.logger.Debugf("%s: discarding error after merge %s: %v", o.cfg.name, phase, err)
		}
	}
	o.mu.Unlock()

	if then != nil {
		then()
	}
}

// settle routes the outcome of a late, deferred release.
func (o *outer[A, B]) settle(err error) {
	if err != nil {
		o.fail(o.latest(), &DisposalError{Err: err})
	}
}

// endLocked sends the end signal once the source has ended and the
// last active inner stream has finished.
func (o *outer[A, B]) endLocked(t Time, value any) func() {
	if o.mu.phase != state.SourceEnded || !o.mu.active.IsEmpty() {
		return nil
	}
	o.mu.phase.To(state.Ended)
	return func() {
		trace.Logf(o.traceCtx, "terminal", "end t=%d", t)
		o.cfg.logger.Tracef("%s: ended at t=%d", o.cfg.name, t)
		o.emitEnd(t, value)
		o.finish(OutcomeEnded)
	}
}

// errorLocked transitions to the errored phase and returns the work
// to perform once the lock is released: every inner subscription and
// the source are released before the error is sent downstream. It
// returns nil if the merge has already reached a terminal phase.
func (o *outer[A, B]) errorLocked(t Time, err error) func() {
	if !o.mu.phase.To(state.Errored) {
		return nil
	}
	inners := o.mu.active.Detach()
	dropped := o.mu.pending.Len()
	o.mu.pending = deque.New()
	o.mu.ready = deque.New()

	return func() {
		trace.Logf(o.traceCtx, "terminal", "error t=%d", t)
		o.cfg.logger.Tracef("%s: failed at t=%d: %v", o.cfg.name, t, err)
		o.cfg.observer.Adjust(-inners.Len(), -dropped)
		if rErr := o.reclaim(inners); rErr != nil {
			o.mu.Lock()
			o.mu.teardown = append(o.mu.teardown, rErr)
			o.mu.Unlock()
			o.cfg.logger.Warningf("%s: %v", o.cfg.name, rErr)
		}
		o.emitError(t, err)
		o.finish(OutcomeErrored)
	}
}

// dispose is memoized by release. Failures recorded elsewhere are
// joined in by Dispose.
func (o *outer[A, B]) dispose() error {
	o.stopped.Store(true)

	o.mu.Lock()
	disposed := o.mu.phase.To(state.Disposed)
	inners := o.mu.active.Detach()
	dropped := o.mu.pending.Len()
	o.mu.pending = deque.New()
	o.mu.ready = deque.New()
	o.mu.Unlock()

	if !disposed {
		return nil
	}
	count := inners.Len()
	o.cfg.logger.Tracef("%s: disposing %d active and %d pending inner streams",
		o.cfg.name, count, dropped)
	err := o.reclaim(inners)
	o.cfg.observer.Adjust(-count, -dropped)
	o.finish(OutcomeDisposed)
	return err
}

// reclaim concurrently releases the source and the detached inner
// subscriptions. The source is skipped if its release was already
// requested by End, which reports that outcome itself.
func (o *outer[A, B]) reclaim(inners *active.Set[*inner[A, B]]) error {
	var also []disposable.Disposable
	if !o.source.IsRequested() {
		also = append(also, &o.source)
	}
	if err := active.DisposeAll(inners, also...); err != nil {
		return &DisposalError{Err: err}
	}
	return nil
}

func (o *outer[A, B]) emitEvent(t Time, value B) {
	if o.stopped.Load() {
		return
	}
	o.sink.Event(t, value)
}

func (o *outer[A, B]) emitEnd(t Time, value any) {
	if o.stopped.Swap(true) {
		return
	}
	o.sink.End(t, value)
}

func (o *outer[A, B]) emitError(t Time, err error) {
	if o.stopped.Swap(true) {
		return
	}
	o.sink.Error(t, err)
}

// finish is called exactly once, by whichever path won the transition
// to a terminal phase.
func (o *outer[A, B]) finish(outcome Outcome) {
	o.cfg.observer.Finished(outcome)
	o.traceTask.End()
}

func (o *outer[A, B]) latest() Time {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mu.now
}

func (o *outer[A, B]) observeLocked(t Time) {
	if t > o.mu.now {
		o.mu.now = t
	}
}
