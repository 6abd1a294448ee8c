// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package source_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
	"vawter.tech/stream"
	"vawter.tech/stream/scheduler"
	"vawter.tech/stream/source"
	"vawter.tech/stream/streamtest"
)

func TestScript(t *testing.T) {
	r := require.New(t)
	sched := scheduler.NewVirtual()
	sched.Advance(100)
	sink := streamtest.NewCollector[string]()

	token := source.Script(
		source.Event(0, "a"),
		source.Event(5, "b"),
		source.End[string](7),
	).Subscribe(sink, sched)

	// Nothing is delivered from within Subscribe.
	r.Zero(sink.Count())

	sched.Run()
	r.Equal([]string{"a", "b"}, sink.Values())
	r.Equal([]stream.Time{100, 105}, sink.Times())
	r.True(sink.Ended())
	term, _ := sink.Terminal()
	r.Equal(stream.Time(107), term.At)
	r.NoError(token.Dispose())
}

func TestScriptTruncatesAfterTerminal(t *testing.T) {
	r := require.New(t)
	sched := scheduler.NewVirtual()
	sink := streamtest.NewCollector[int]()
	boom := errors.New("boom")

	source.Script(
		source.Event(1, 1),
		source.Fail[int](2, boom),
		source.Event(3, 3),
		source.End[int](4),
	).Subscribe(sink, sched)

	r.Equal(2, sched.Pending())
	r.Equal(stream.Time(2), sched.Run())
	r.Equal([]int{1}, sink.Values())
	r.ErrorIs(sink.Err(), boom)
	r.Empty(sink.Violations())
}

func TestScriptUnorderedSteps(t *testing.T) {
	r := require.New(t)
	sched := scheduler.NewVirtual()
	sink := streamtest.NewCollector[int]()

	// An early terminal step suppresses later events.
	source.Script(
		source.Event(5, 1),
		source.End[int](3),
	).Subscribe(sink, sched)

	sched.Run()
	r.Empty(sink.Values())
	r.True(sink.Ended())
	r.Empty(sink.Violations())
}

func TestScriptDispose(t *testing.T) {
	r := require.New(t)
	sched := scheduler.NewVirtual()
	sink := streamtest.NewCollector[int]()

	token := source.Script(
		source.Event(1, 1),
		source.Event(10, 2),
		source.End[int](20),
	).Subscribe(sink, sched)

	sched.Advance(5)
	r.NoError(token.Dispose())
	r.Zero(sched.Pending())

	sched.Run()
	r.Equal([]int{1}, sink.Values())
	_, terminated := sink.Terminal()
	r.False(terminated)
}

func TestScriptResubscribe(t *testing.T) {
	r := require.New(t)
	sched := scheduler.NewVirtual()
	s := source.Script(source.Event(1, "x"), source.End[string](2))

	first := streamtest.NewCollector[string]()
	second := streamtest.NewCollector[string]()
	s.Subscribe(first, sched)
	sched.Advance(10)
	s.Subscribe(second, sched)
	sched.Run()

	r.Equal([]stream.Time{1}, first.Times())
	r.Equal([]stream.Time{11}, second.Times())
}

func TestOfEmptyFailed(t *testing.T) {
	boom := errors.New("boom")

	tcs := []struct {
		name   string
		stream stream.Stream[int]
		values []int
		err    error
	}{
		{"of", source.Of(1, 2, 3), []int{1, 2, 3}, nil},
		{"of-nothing", source.Of[int](), nil, nil},
		{"empty", source.Empty[int](), nil, nil},
		{"failed", source.Failed[int](boom), nil, boom},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			r := require.New(t)
			sched := scheduler.NewVirtual()
			sink := streamtest.NewCollector[int]()

			tc.stream.Subscribe(sink, sched)
			r.Zero(sched.Run())
			r.Equal(tc.values, sink.Values())
			if tc.err == nil {
				r.True(sink.Ended())
			} else {
				r.ErrorIs(sink.Err(), tc.err)
			}
		})
	}
}

func TestNever(t *testing.T) {
	r := require.New(t)
	sched := scheduler.NewVirtual()
	sink := streamtest.NewCollector[int]()

	token := source.Never[int]().Subscribe(sink, sched)
	r.Zero(sched.Pending())
	sched.Run()
	r.Zero(sink.Count())
	r.NoError(token.Dispose())
}

func TestFromSeq(t *testing.T) {
	r := require.New(t)
	sched := scheduler.NewVirtual()
	sink := streamtest.NewCollector[string]()

	source.FromSeq(slices.Values([]string{"a", "b", "c"})).Subscribe(sink, sched)
	r.Zero(sink.Count())

	sched.Run()
	r.Equal([]string{"a", "b", "c"}, sink.Values())
	r.True(sink.Ended())
	r.Zero(sched.Pending())
}

func TestFromSeqDispose(t *testing.T) {
	r := require.New(t)
	sched := scheduler.NewVirtual()
	sink := streamtest.NewCollector[int]()
	stopped := false

	seq := func(yield func(int) bool) {
		defer func() { stopped = true }()
		for i := 0; ; i++ {
			if !yield(i) {
				return
			}
		}
	}

	token := source.FromSeq(seq).Subscribe(sink, sched)
	// Runs after the first element has been emitted.
	sched.Delay(0, func() {
		r.NoError(token.Dispose())
	})
	sched.Run()

	r.True(stopped)
	r.Zero(sched.Pending())
	r.Equal([]int{0}, sink.Values())
	_, terminated := sink.Terminal()
	r.False(terminated)
	r.NoError(token.Dispose())
}
