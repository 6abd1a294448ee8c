// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package limit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
	"vawter.tech/stream"
	"vawter.tech/stream/scheduler"
	"vawter.tech/stream/source"
	"vawter.tech/stream/streamtest"
)

func TestWithMaxRate(t *testing.T) {
	r := require.New(t)
	sched := scheduler.NewVirtual()
	l := rate.NewLimiter(10, 1) // One token per 100ms.
	s := WithMaxRate(l, source.Of(1))

	sinks := make([]*streamtest.Collector[int], 3)
	for i := range sinks {
		sinks[i] = streamtest.NewCollector[int]()
		s.Subscribe(sinks[i], sched)
	}
	sched.Run()

	for i, sink := range sinks {
		r.Equal([]stream.Time{stream.Time(i * 100)}, sink.Times())
		r.True(sink.Ended())
	}
}

func TestWithMaxRateDisposeWhileWaiting(t *testing.T) {
	r := require.New(t)
	sched := scheduler.NewVirtual()
	rec := streamtest.NewRecorder(4)
	l := rate.NewLimiter(10, 1)
	s := WithMaxRate(l, streamtest.Track(rec, source.Of(1)))

	first := streamtest.NewCollector[int]()
	s.Subscribe(first, sched)

	waiting := streamtest.NewCollector[int]()
	token := s.Subscribe(waiting, sched)
	sched.Advance(50)
	r.NoError(token.Dispose())
	r.NoError(token.Dispose())

	sched.Run()
	r.Zero(waiting.Count())
	r.Equal(1, rec.Total())
}

func TestWithMaxRateZeroBurst(t *testing.T) {
	r := require.New(t)
	sched := scheduler.NewVirtual()
	sink := streamtest.NewCollector[int]()

	WithMaxRate(rate.NewLimiter(10, 0), source.Of(1)).Subscribe(sink, sched)
	sched.Run()
	r.ErrorIs(sink.Err(), ErrExceedsBurst)
}

func TestMillis(t *testing.T) {
	r := require.New(t)
	r.Equal(stream.Time(0), millis(0))
	r.Equal(stream.Time(1), millis(time.Microsecond))
	r.Equal(stream.Time(100), millis(100*time.Millisecond))
}
