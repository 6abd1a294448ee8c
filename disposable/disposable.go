// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package disposable

import (
	"sync"

	"vawter.tech/stream/internal/safe"
)

// A Disposable releases resources held by a subscription.
type Disposable interface {
	// Dispose releases the resources. Implementations should tolerate
	// repeated calls; use [Once] to adapt those that do not.
	Dispose() error
}

// Func adapts a function to the [Disposable] interface.
type Func func() error

var _ Disposable = Func(nil)

// Dispose implements [Disposable]. A nil Func is a no-op.
func (f Func) Dispose() error {
	if f == nil {
		return nil
	}
	return f()
}

// Empty returns a Disposable that holds nothing.
func Empty() Disposable { return Func(nil) }

// Once returns a Disposable that calls d at most once. Every call
// returns the outcome of the first, including any panic raised by d,
// which is converted to an error.
func Once(d Disposable) Disposable {
	if d == nil {
		return Empty()
	}
	if o, ok := d.(*once); ok {
		return o
	}
	return &once{fn: sync.OnceValue(func() error {
		return safe.CallE(d.Dispose)
	})}
}

type once struct {
	fn func() error
}

func (o *once) Dispose() error { return o.fn() }
