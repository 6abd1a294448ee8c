// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZeroValueIsRunning(t *testing.T) {
	a := assert.New(t)

	var p Phase
	a.Equal(Running, p)
	a.True(p.Accepting())
	a.False(p.Terminal())
}

func TestTransitions(t *testing.T) {
	tcs := []struct {
		from, to Phase
		ok       bool
	}{
		{Running, SourceEnded, true},
		{Running, Ended, true},
		{Running, Errored, true},
		{Running, Disposed, true},
		{Running, Running, false},
		{SourceEnded, Ended, true},
		{SourceEnded, Errored, true},
		{SourceEnded, Disposed, true},
		{SourceEnded, Running, false},
		{SourceEnded, SourceEnded, false},
		{Ended, Errored, false},
		{Ended, Disposed, false},
		{Errored, Ended, false},
		{Errored, Disposed, false},
		{Disposed, Ended, false},
		{Disposed, Running, false},
	}

	for _, tc := range tcs {
		t.Run(tc.from.String()+"->"+tc.to.String(), func(t *testing.T) {
			a := assert.New(t)
			p := tc.from
			a.Equal(tc.ok, p.To(tc.to))
			if tc.ok {
				a.Equal(tc.to, p)
			} else {
				a.Equal(tc.from, p)
			}
		})
	}
}

func TestTerminal(t *testing.T) {
	a := assert.New(t)

	a.False(Running.Terminal())
	a.False(SourceEnded.Terminal())
	a.True(Ended.Terminal())
	a.True(Errored.Terminal())
	a.True(Disposed.Terminal())

	a.False(SourceEnded.Accepting())
	a.False(Ended.Accepting())
}

func TestString(t *testing.T) {
	a := assert.New(t)

	a.Equal("source-ended", SourceEnded.String())
	a.Equal("Phase(42)", Phase(42).String())
}
