// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package disposable

import (
	"errors"
	"sync"

	"vawter.tech/stream/internal/safe"
)

// ErrAlreadySet is returned by [Deferred.Set] if it is called more
// than once. The extra token is released before returning.
var ErrAlreadySet = errors.New("deferred token already set")

// A Deferred is a placeholder for a Disposable that may not exist
// yet. A release requested before [Deferred.Set] is remembered and
// applied as soon as the token is supplied.
//
// The zero value is ready to use. A Deferred must not be copied after
// first use.
type Deferred struct {
	mu struct {
		sync.Mutex
		done      chan struct{} // Non-nil once a release has begun.
		err       error         // Valid once done is closed.
		requested bool          // Dispose has been called.
		token     Disposable    // Nil until Set.
	}
}

var _ Disposable = (*Deferred)(nil)

// NewDeferred returns a Deferred awaiting its token.
func NewDeferred() *Deferred { return &Deferred{} }

// Dispose implements [Disposable]. If the token has been supplied, it
// is released once and its outcome returned to this and every later
// call. If the token has not been supplied, the request is recorded,
// nil is returned, and the outcome is reported by [Deferred.Set].
func (d *Deferred) Dispose() error {
	token, done, mine := d.claim()
	switch {
	case mine:
		return d.settle(token, done)
	case done != nil:
		<-done
		d.mu.Lock()
		defer d.mu.Unlock()
		return d.mu.err
	default:
		return nil
	}
}

// IsRequested returns true once Dispose has been called.
func (d *Deferred) IsRequested() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mu.requested
}

// Set supplies the underlying token. If a release was already
// requested, the token is released immediately and the outcome is
// returned. Otherwise, Set returns nil and the token will be released
// by a later call to Dispose.
func (d *Deferred) Set(token Disposable) error {
	if token == nil {
		token = Empty()
	}
	d.mu.Lock()
	if d.mu.token != nil {
		d.mu.Unlock()
		return errors.Join(ErrAlreadySet, safe.CallE(token.Dispose))
	}
	d.mu.token = token
	if !d.mu.requested {
		d.mu.Unlock()
		return nil
	}
	done := make(chan struct{})
	d.mu.done = done
	d.mu.Unlock()

	return d.settle(token, done)
}

// claim marks the Deferred as requested. It returns the token if this
// caller is responsible for releasing it, or the channel to wait on if
// another caller already is.
func (d *Deferred) claim() (token Disposable, done chan struct{}, mine bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mu.requested = true
	if d.mu.token == nil || d.mu.done != nil {
		return nil, d.mu.done, false
	}
	d.mu.done = make(chan struct{})
	return d.mu.token, d.mu.done, true
}

// settle releases the token outside of the mutex, since it is
// user-provided code, and publishes the outcome.
func (d *Deferred) settle(token Disposable, done chan struct{}) error {
	err := safe.CallE(token.Dispose)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mu.err = err
	close(done)
	return err
}
