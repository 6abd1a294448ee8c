// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package active

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroValue(t *testing.T) {
	a := assert.New(t)

	var s Set[int]
	a.True(s.IsEmpty())
	a.Zero(s.Len())
	a.Empty(s.Drain())
	a.False(s.Remove(nil))
	a.False(s.Contains(nil))
	a.True(s.Detach().IsEmpty())
}

func TestInsertRemove(t *testing.T) {
	r := require.New(t)

	var s Set[string]
	a := s.Insert("a")
	b := s.Insert("b")
	c := s.Insert("c")
	r.Equal(3, s.Len())
	r.True(s.Contains(a))
	r.True(s.Contains(b))
	r.True(s.Contains(c))

	// Removal from the middle.
	r.True(s.Remove(b))
	r.False(s.Contains(b))
	r.Equal(2, s.Len())

	// Removing twice is reported and harmless.
	r.False(s.Remove(b))
	r.Equal(2, s.Len())

	r.True(s.Remove(a))
	r.True(s.Remove(c))
	r.True(s.IsEmpty())
	r.Empty(s.Drain())

	// The set is reusable after being emptied.
	d := s.Insert("d")
	r.True(s.Contains(d))
	r.Equal([]string{"d"}, s.Drain())
}

func TestRemoveForeignHandle(t *testing.T) {
	r := require.New(t)

	var s1, s2 Set[int]
	h := s1.Insert(1)
	r.False(s2.Remove(h))
	r.False(s2.Contains(h))
	r.Equal(1, s1.Len())
	r.Zero(s2.Len())
}

func TestDrain(t *testing.T) {
	r := require.New(t)

	var s Set[int]
	handles := make([]*Handle[int], 5)
	for i := range handles {
		handles[i] = s.Insert(i)
	}

	r.ElementsMatch([]int{0, 1, 2, 3, 4}, s.Drain())
	r.True(s.IsEmpty())
	for _, h := range handles {
		r.False(s.Contains(h))
		r.False(s.Remove(h))
	}
}

func TestDetach(t *testing.T) {
	r := require.New(t)

	var s Set[int]
	handles := make([]*Handle[int], 4)
	for i := range handles {
		handles[i] = s.Insert(i)
	}

	moved := s.Detach()
	r.True(s.IsEmpty())
	r.Equal(4, moved.Len())
	for _, h := range handles {
		r.False(s.Contains(h))
		r.False(s.Remove(h))
		r.True(moved.Contains(h))
	}

	// Both sets stay usable.
	r.True(moved.Remove(handles[1]))
	e := s.Insert(9)
	r.False(moved.Contains(e))
	r.ElementsMatch([]int{0, 2, 3}, moved.Drain())
	r.Equal([]int{9}, s.Drain())
}

type member struct {
	calls atomic.Int32
	err   error
}

func (m *member) Dispose() error {
	m.calls.Add(1)
	return m.err
}

func TestDisposeAll(t *testing.T) {
	r := require.New(t)

	boom := errors.New("boom")
	extraErr := errors.New("extra")
	var s Set[*member]
	ok := &member{}
	bad := &member{err: boom}
	extra := &member{err: extraErr}
	s.Insert(ok)
	s.Insert(bad)

	err := DisposeAll(&s, extra)
	r.ErrorIs(err, boom)
	r.ErrorIs(err, extraErr)
	r.True(s.IsEmpty())
	r.Equal(int32(1), ok.calls.Load())
	r.Equal(int32(1), bad.calls.Load())
	r.Equal(int32(1), extra.calls.Load())

	// Nothing left to release.
	r.NoError(DisposeAll(&s))
	r.Equal(int32(1), ok.calls.Load())
}
