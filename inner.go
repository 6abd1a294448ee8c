// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"vawter.tech/stream/disposable"
	"vawter.tech/stream/internal/active"
)

// inner is the sink for one admitted inner stream. It stamps every
// signal no earlier than origin and reports completion to the outer
// merge rather than to downstream, since the outer merge alone decides
// when downstream sees a terminal signal.
type inner[A, B any] struct {
	origin Time
	outer  *outer[A, B]
	handle *active.Handle[*inner[A, B]] // Guarded by outer.mu.
	token  disposable.Deferred
}

var (
	_ Sink[any]             = (*inner[any, any])(nil)
	_ disposable.Disposable = (*inner[any, any])(nil)
)

func (i *inner[A, B]) Event(t Time, value B) {
	i.outer.emitEvent(max(t, i.origin), value)
}

func (i *inner[A, B]) End(t Time, value any) {
	i.outer.innerEnd(i, max(t, i.origin), value)
}

func (i *inner[A, B]) Error(t Time, err error) {
	i.outer.fail(max(t, i.origin), err)
}

// Dispose releases the inner subscription. It may be called before
// the subscription has returned its token.
func (i *inner[A, B]) Dispose() error {
	return i.token.Dispose()
}
