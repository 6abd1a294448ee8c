// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package retry

import (
	"errors"
	"sync/atomic"

	"vawter.tech/stream"
	"vawter.tech/stream/disposable"
	"vawter.tech/stream/source"
)

// flaky fails the first failures subscriptions at time 1, then emits
// the attempt number and ends.
type flaky struct {
	attempts atomic.Int32
	failures int32
	err      error
	released atomic.Int32
}

func (f *flaky) Subscribe(sink stream.Sink[int], sched stream.Scheduler) disposable.Disposable {
	n := f.attempts.Add(1)
	var s stream.Stream[int]
	if n <= f.failures {
		s = source.Script(source.Event(0, int(n)), source.Fail[int](1, f.err))
	} else {
		s = source.Script(source.Event(0, int(n)), source.End[int](1))
	}
	return disposable.Join(s.Subscribe(sink, sched), disposable.Func(func() error {
		f.released.Add(1)
		return nil
	}))
}

var errFlaky = errors.New("flaky")
