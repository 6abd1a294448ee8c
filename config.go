// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package stream

import "github.com/juju/loggo"

var logger = loggo.GetLogger("stream.mergemap")

// An Outcome describes how a merge subscription finished.
type Outcome int

const (
	// OutcomeEnded means downstream received an end signal.
	OutcomeEnded Outcome = iota
	// OutcomeErrored means downstream received an error signal.
	OutcomeErrored
	// OutcomeDisposed means the subscription was released before
	// either terminal signal was sent.
	OutcomeDisposed
)

// String returns a short label, suitable for metrics.
func (o Outcome) String() string {
	switch o {
	case OutcomeEnded:
		return "ended"
	case OutcomeErrored:
		return "errored"
	case OutcomeDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// An Observer is notified of changes in a merge's occupancy. One
// Observer may be shared by many subscriptions, so implementations
// must be safe for concurrent use. Observer methods are never called
// while the merge holds its internal lock, but they run on the
// signal-delivery path and should return promptly.
type Observer interface {
	// Adjust reports a change in the number of active inner
	// subscriptions and in the depth of the pending queue. A positive
	// activeDelta is only ever reported for newly admitted streams.
	Adjust(activeDelta, pendingDelta int)
	// Finished is called exactly once per subscription.
	Finished(outcome Outcome)
}

type nopObserver struct{}

func (nopObserver) Adjust(int, int)  {}
func (nopObserver) Finished(Outcome) {}

// An Option configures a merge.
type Option func(*config)

// WithLogger replaces the package logger.
func WithLogger(l loggo.Logger) Option {
	return func(c *config) { c.logger = &l }
}

// WithName sets the name used for the [runtime/trace] task and in log
// messages.
func WithName(name string) Option {
	return func(c *config) { c.name = name }
}

// WithObserver attaches an [Observer].
func WithObserver(obs Observer) Option {
	return func(c *config) { c.observer = obs }
}

type config struct {
	logger   *loggo.Logger
	name     string
	observer Observer
}

func newConfig(opts []Option) *config {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	cfg.Sanitize()
	return cfg
}

// Sanitize fills in defaults.
func (c *config) Sanitize() {
	if c.logger == nil {
		c.logger = &logger
	}
	if c.name == "" {
		c.name = "mergemap"
	}
	if c.observer == nil {
		c.observer = nopObserver{}
	}
}
