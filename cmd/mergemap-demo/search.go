// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
	"vawter.tech/stream"
	"vawter.tech/stream/disposable"
	"vawter.tech/stream/limit"
	"vawter.tech/stream/retry"
	"vawter.tech/stream/source"
)

// errUnavailable is reported by the first attempt of a flaky lookup.
var errUnavailable = errors.New("search backend unavailable")

// catalog is the data set that lookups search.
var catalog = []string{
	"gc", "generics", "go", "gofmt", "golang", "gopher", "gophers",
	"goroutine", "gorilla", "govulncheck",
}

// A Result is the answer to one query.
type Result struct {
	Query   string
	Matches []string
}

// keystrokes emits one query per interval, then ends.
func keystrokes(queries []string, interval time.Duration) stream.Stream[string] {
	steps := make([]source.Step[string], 0, len(queries)+1)
	at := stream.Time(0)
	for _, q := range queries {
		steps = append(steps, source.Event(at, q))
		at += stream.Time(interval.Milliseconds())
	}
	return source.Script(append(steps, source.End[string](at))...)
}

// lookup returns a function that answers a query after the simulated
// latency. Lookups are started no faster than the limiter permits. If
// failEvery is positive, the first attempt of every failEvery-th
// lookup fails and is retried with a backoff.
func lookup(l *rate.Limiter, latency time.Duration, failEvery int) func(string) (stream.Stream[Result], error) {
	delay := stream.Time(latency.Milliseconds())
	backoff := &retry.Backoff{
		MinDelay:   50 * time.Millisecond,
		Multiplier: 2,
		Retryable:  func(err error) bool { return errors.Is(err, errUnavailable) },
	}
	var count int
	return func(q string) (stream.Stream[Result], error) {
		var matches []string
		for _, entry := range catalog {
			if strings.HasPrefix(entry, q) {
				matches = append(matches, entry)
			}
		}
		res := Result{Query: q, Matches: slices.Clip(matches)}
		ok := source.Script(
			source.Event(delay, res),
			source.End[Result](delay),
		)

		count++
		flaky := failEvery > 0 && count%failEvery == 0
		var attempts atomic.Int32
		attempt := stream.StreamFunc[Result](func(sink stream.Sink[Result], sched stream.Scheduler) disposable.Disposable {
			if flaky && attempts.Add(1) == 1 {
				logger.Debugf("lookup %q will fail", q)
				return source.Script(source.Fail[Result](delay, errUnavailable)).Subscribe(sink, sched)
			}
			return ok.Subscribe(sink, sched)
		})
		return retry.WithBackoff(backoff, limit.WithMaxRate(l, attempt)), nil
	}
}

// search wires the demo pipeline together.
func search(cfg *Config, opts ...stream.Option) (stream.Stream[Result], error) {
	l := rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst)
	return stream.MergeMap(
		lookup(l, cfg.Latency, cfg.FailEvery),
		cfg.Limit,
		keystrokes(cfg.Queries, cfg.Interval),
		opts...,
	)
}
