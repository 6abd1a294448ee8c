// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package streamtest

import (
	"fmt"
	"slices"
	"sync"

	"vawter.tech/stream"
	"vawter.tech/stream/source"
)

// A Collector is a [stream.Sink] that records every signal as a
// [source.Step] whose At field is the delivery time. Any signal that
// arrives after a terminal signal is recorded as a violation of the
// sink contract. A Collector is safe for concurrent use.
type Collector[T any] struct {
	mu struct {
		sync.Mutex
		endValue   any
		signals    []source.Step[T]
		terminated bool
		violations []string
	}
}

var _ stream.Sink[any] = (*Collector[any])(nil)

// NewCollector returns an empty Collector.
func NewCollector[T any]() *Collector[T] { return &Collector[T]{} }

// Event implements [stream.Sink].
func (c *Collector[T]) Event(t stream.Time, value T) {
	c.record(source.Event(t, value))
}

// End implements [stream.Sink].
func (c *Collector[T]) End(t stream.Time, value any) {
	c.mu.Lock()
	if !c.mu.terminated {
		c.mu.endValue = value
	}
	c.mu.Unlock()
	c.record(source.End[T](t))
}

// Error implements [stream.Sink].
func (c *Collector[T]) Error(t stream.Time, err error) {
	c.record(source.Fail[T](t, err))
}

func (c *Collector[T]) record(step source.Step[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mu.terminated {
		c.mu.violations = append(c.mu.violations,
			fmt.Sprintf("signal %d at t=%d after terminal signal", step.Kind, step.At))
	}
	if step.Kind != source.KindEvent {
		c.mu.terminated = true
	}
	c.mu.signals = append(c.mu.signals, step)
}

// Signals returns a copy of every recorded signal.
func (c *Collector[T]) Signals() []source.Step[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.mu.signals)
}

// Values returns the values of the recorded events.
func (c *Collector[T]) Values() []T {
	var ret []T
	for _, s := range c.Signals() {
		if s.Kind == source.KindEvent {
			ret = append(ret, s.Value)
		}
	}
	return ret
}

// Times returns the delivery times of the recorded events.
func (c *Collector[T]) Times() []stream.Time {
	var ret []stream.Time
	for _, s := range c.Signals() {
		if s.Kind == source.KindEvent {
			ret = append(ret, s.At)
		}
	}
	return ret
}

// Terminal returns the first terminal signal, if one was received.
func (c *Collector[T]) Terminal() (source.Step[T], bool) {
	for _, s := range c.Signals() {
		if s.Kind != source.KindEvent {
			return s, true
		}
	}
	return source.Step[T]{}, false
}

// Ended returns true if the first terminal signal was an end.
func (c *Collector[T]) Ended() bool {
	s, ok := c.Terminal()
	return ok && s.Kind == source.KindEnd
}

// EndValue returns the value passed with the first end signal.
func (c *Collector[T]) EndValue() any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mu.endValue
}

// Err returns the error of the first terminal signal, if it was an
// error.
func (c *Collector[T]) Err() error {
	s, ok := c.Terminal()
	if !ok || s.Kind != source.KindError {
		return nil
	}
	return s.Err
}

// Count returns the number of signals received.
func (c *Collector[T]) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.mu.signals)
}

// Violations describes any signals that broke the sink contract.
func (c *Collector[T]) Violations() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.mu.violations)
}
