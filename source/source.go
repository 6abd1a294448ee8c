// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

// Package source contains simple producers of [stream.Stream] values.
//
// Every producer here schedules its signals through the
// [stream.Scheduler] it is subscribed with, never emitting from within
// Subscribe itself, and cancels outstanding work when disposed.
package source

import (
	"iter"
	"slices"
	"sync"
	"sync/atomic"

	"vawter.tech/stream"
	"vawter.tech/stream/disposable"
)

// A Kind identifies the signal that a [Step] produces.
type Kind int

// The signal kinds.
const (
	KindEvent Kind = iota
	KindEnd
	KindError
)

// A Step is one signal of a [Script], delivered At milliseconds after
// the script is subscribed.
type Step[T any] struct {
	At    stream.Time
	Kind  Kind
	Value T
	Err   error
}

// Event returns a Step that emits a value.
func Event[T any](at stream.Time, value T) Step[T] {
	return Step[T]{At: at, Kind: KindEvent, Value: value}
}

// End returns a Step that completes the script.
func End[T any](at stream.Time) Step[T] {
	return Step[T]{At: at, Kind: KindEnd}
}

// Fail returns a Step that fails the script.
func Fail[T any](at stream.Time, err error) Step[T] {
	return Step[T]{At: at, Kind: KindError, Err: err}
}

// Script returns a Stream that replays the steps for each subscriber.
// Steps after the first terminal step in the argument list are
// ignored, and no step is delivered once a terminal step has fired.
func Script[T any](steps ...Step[T]) stream.Stream[T] {
	if idx := slices.IndexFunc(steps, func(s Step[T]) bool { return s.Kind != KindEvent }); idx >= 0 {
		steps = steps[:idx+1]
	}
	steps = slices.Clone(steps)

	return stream.StreamFunc[T](func(sink stream.Sink[T], sched stream.Scheduler) disposable.Disposable {
		var done atomic.Bool
		tokens := make([]disposable.Disposable, 0, len(steps)+1)
		tokens = append(tokens, disposable.Func(func() error {
			done.Store(true)
			return nil
		}))
		for _, step := range steps {
			tokens = append(tokens, sched.Delay(step.At, func() {
				switch step.Kind {
				case KindEvent:
					if !done.Load() {
						sink.Event(sched.Now(), step.Value)
					}
				case KindEnd:
					if !done.Swap(true) {
						sink.End(sched.Now(), nil)
					}
				case KindError:
					if !done.Swap(true) {
						sink.Error(sched.Now(), step.Err)
					}
				}
			}))
		}
		return disposable.Join(tokens...)
	})
}

// Of returns a Stream that emits every value, then ends, all at the
// time of subscription.
func Of[T any](values ...T) stream.Stream[T] {
	steps := make([]Step[T], 0, len(values)+1)
	for _, v := range values {
		steps = append(steps, Event(0, v))
	}
	return Script(append(steps, End[T](0))...)
}

// Empty returns a Stream that ends immediately.
func Empty[T any]() stream.Stream[T] {
	return Script(End[T](0))
}

// Failed returns a Stream that fails immediately.
func Failed[T any](err error) stream.Stream[T] {
	return Script(Fail[T](0, err))
}

// Never returns a Stream that emits nothing and never finishes.
func Never[T any]() stream.Stream[T] {
	return stream.StreamFunc[T](func(stream.Sink[T], stream.Scheduler) disposable.Disposable {
		return disposable.Empty()
	})
}

// FromSeq returns a Stream that emits one element of seq per scheduler
// turn, then ends. Each subscription iterates seq independently.
func FromSeq[T any](seq iter.Seq[T]) stream.Stream[T] {
	return stream.StreamFunc[T](func(sink stream.Sink[T], sched stream.Scheduler) disposable.Disposable {
		p := &puller[T]{sink: sink, sched: sched}
		p.next, p.stop = iter.Pull(seq)
		p.mu.Lock()
		p.mu.pending = sched.Delay(0, p.step)
		p.mu.Unlock()
		return disposable.Once(p)
	})
}

type puller[T any] struct {
	next  func() (T, bool)
	sched stream.Scheduler
	sink  stream.Sink[T]
	stop  func()

	mu struct {
		sync.Mutex
		done    bool
		pending disposable.Disposable
	}
}

func (p *puller[T]) step() {
	p.mu.Lock()
	if p.mu.done {
		p.mu.Unlock()
		return
	}
	v, ok := p.next()
	if !ok {
		p.mu.done = true
		p.stop()
	}
	p.mu.Unlock()

	if !ok {
		p.sink.End(p.sched.Now(), nil)
		return
	}
	p.sink.Event(p.sched.Now(), v)

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.mu.done {
		p.mu.pending = p.sched.Delay(0, p.step)
	}
}

func (p *puller[T]) Dispose() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mu.done {
		return nil
	}
	p.mu.done = true
	p.stop()
	return p.mu.pending.Dispose()
}
