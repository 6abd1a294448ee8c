// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"strings"
	"sync"

	"vawter.tech/stream"
)

// reporter logs each result and stops the run loop on a terminal
// signal.
type reporter struct {
	stop context.CancelFunc

	mu struct {
		sync.Mutex
		err     error
		results []Result
	}
}

var _ stream.Sink[Result] = (*reporter)(nil)

func newReporter(stop context.CancelFunc) *reporter {
	return &reporter{stop: stop}
}

func (r *reporter) Event(t stream.Time, res Result) {
	r.mu.Lock()
	r.mu.results = append(r.mu.results, res)
	r.mu.Unlock()
	logger.Infof("t=%dms %q: %s", t, res.Query, strings.Join(res.Matches, ", "))
}

func (r *reporter) End(t stream.Time, _ any) {
	logger.Infof("t=%dms search finished", t)
	r.stop()
}

func (r *reporter) Error(t stream.Time, err error) {
	r.mu.Lock()
	r.mu.err = err
	r.mu.Unlock()
	logger.Errorf("t=%dms search failed: %v", t, err)
	r.stop()
}

// Err returns the error that terminated the search, if any.
func (r *reporter) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mu.err
}

// Results returns the results received so far.
func (r *reporter) Results() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Result(nil), r.mu.results...)
}
