// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package streamtest

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"vawter.tech/stream/scheduler"
	"vawter.tech/stream/source"
)

const sampleDepth = 2

func TestRecorderTracksLiveSubscriptions(t *testing.T) {
	r := require.New(t)
	sched := scheduler.NewVirtual()
	rec := NewRecorder(sampleDepth)
	s := Track(rec, source.Never[int]())

	first := s.Subscribe(NewCollector[int](), sched)
	second := s.Subscribe(NewCollector[int](), sched)
	r.Equal(2, rec.Live())
	r.Equal(2, rec.Peak())
	r.Equal(2, rec.Total())
	checkRecorder(r, rec, "streamtest.TestRecorderTracksLiveSubscriptions")

	r.NoError(first.Dispose())
	r.NoError(first.Dispose())
	r.Equal(1, rec.Live())

	third := s.Subscribe(NewCollector[int](), sched)
	r.Equal(2, rec.Live())
	r.Equal(2, rec.Peak())
	r.Equal(3, rec.Total())

	r.NoError(second.Dispose())
	r.NoError(third.Dispose())
	r.Zero(rec.Live())
	CheckClean(t, rec)
}

func TestRecorderFinishedButNotDisposed(t *testing.T) {
	r := require.New(t)
	sched := scheduler.NewVirtual()
	rec := NewRecorder(sampleDepth)
	sink := NewCollector[int]()

	token := Track(rec, source.Of(1, 2)).Subscribe(sink, sched)
	sched.Run()
	r.True(sink.Ended())

	// Ending does not release the subscription.
	fake := &fakeTB{t: t}
	CheckClean(fake, rec)
	r.True(fake.failed)

	r.NoError(token.Dispose())
	CheckClean(t, rec)
}

func checkRecorder(r *require.Assertions, rec *Recorder, where string) {
	samples := rec.Callers()
	r.NotEmpty(samples)
	for _, sample := range samples {
		r.Len(sample, sampleDepth)
		frames := runtime.CallersFrames(sample)
		for {
			frame, more := frames.Next()
			if strings.HasSuffix(frame.Function, where) {
				break
			}
			if !more {
				r.Failf("missing frame", "did not find expected frame %s: check callersOffset constant", where)
			}
		}
	}
}
