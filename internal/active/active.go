// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

// Package active contains the set of inner subscriptions that a merge
// currently has open.
package active

import "vawter.tech/stream/disposable"

// A Handle identifies one member of a [Set]. It is returned by
// [Set.Insert] and is the key for O(1) removal.
type Handle[T any] struct {
	next, prev *Handle[T]
	set        *Set[T] // Nil once removed.
	Value      T
}

// A Set is an intrusive, doubly linked collection. Order among members
// is not meaningful. The zero value is an empty set.
//
// A Set is not safe for concurrent use; callers provide their own
// mutual exclusion.
type Set[T any] struct {
	root Handle[T] // Sentinel; root.next is the first member.
	len  int
}

// lazyInit makes the zero value usable.
func (s *Set[T]) lazyInit() {
	if s.root.next == nil {
		s.root.next = &s.root
		s.root.prev = &s.root
	}
}

// Insert adds a value and returns its handle.
func (s *Set[T]) Insert(v T) *Handle[T] {
	s.lazyInit()
	h := &Handle[T]{Value: v, set: s}
	h.prev = s.root.prev
	h.next = &s.root
	s.root.prev.next = h
	s.root.prev = h
	s.len++
	return h
}

// Remove deletes the member identified by the handle. It returns false
// if the handle is nil, belongs to another set, or was already
// removed.
func (s *Set[T]) Remove(h *Handle[T]) bool {
	if h == nil || h.set != s {
		return false
	}
	h.prev.next = h.next
	h.next.prev = h.prev
	h.next, h.prev, h.set = nil, nil, nil
	s.len--
	return true
}

// Contains returns true if the handle is a current member of the set.
func (s *Set[T]) Contains(h *Handle[T]) bool {
	return h != nil && h.set == s
}

// Len returns the number of members.
func (s *Set[T]) Len() int { return s.len }

// IsEmpty returns true if the set has no members.
func (s *Set[T]) IsEmpty() bool { return s.len == 0 }

// Drain removes every member, returning their values.
func (s *Set[T]) Drain() []T {
	ret := make([]T, 0, s.len)
	if s.len == 0 {
		return ret
	}
	for h := s.root.next; h != &s.root; {
		next := h.next
		ret = append(ret, h.Value)
		h.next, h.prev, h.set = nil, nil, nil
		h = next
	}
	s.root.next = &s.root
	s.root.prev = &s.root
	s.len = 0
	return ret
}

// Detach moves every member into a new Set, leaving the receiver
// empty. Handles remain valid for the returned Set only, so a later
// Remove through the receiver reports false.
func (s *Set[T]) Detach() *Set[T] {
	ret := &Set[T]{}
	ret.lazyInit()
	if s.len == 0 {
		return ret
	}
	ret.root.next, ret.root.prev = s.root.next, s.root.prev
	ret.root.next.prev = &ret.root
	ret.root.prev.next = &ret.root
	ret.len = s.len
	for h := ret.root.next; h != &ret.root; h = h.next {
		h.set = ret
	}
	s.root.next = &s.root
	s.root.prev = &s.root
	s.len = 0
	return ret
}

// DisposeAll drains the set and releases every member, together with
// any additional tokens, concurrently via [disposable.All]. The set is
// empty afterwards even if some releases fail.
func DisposeAll[T disposable.Disposable](s *Set[T], also ...disposable.Disposable) error {
	members := s.Drain()
	all := make([]disposable.Disposable, 0, len(members)+len(also))
	all = append(all, also...)
	for _, m := range members {
		all = append(all, m)
	}
	return disposable.All(all)
}
