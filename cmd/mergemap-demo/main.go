// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

// Command mergemap-demo simulates a type-to-search box. Each keystroke
// starts a lookup, at most limit lookups run at once, and results are
// logged as they arrive. Prometheus metrics are printed on exit.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/juju/clock"
	"github.com/juju/loggo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"vawter.tech/stream"
	"vawter.tech/stream/disposable"
	"vawter.tech/stream/metrics"
	"vawter.tech/stream/scheduler"
)

var logger = loggo.GetLogger("mergemap.demo")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "mergemap-demo: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	cfg, err := LoadConfig(args)
	if err != nil {
		return err
	}
	if err := loggo.ConfigureLoggers(fmt.Sprintf("<root>=%s", cfg.LogLevel)); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt)
	defer signal.Stop(signals)
	watcher := disposable.OnReceive(signals, disposable.Func(func() error {
		logger.Warningf("interrupted")
		cancel()
		return nil
	}))
	defer func() { _ = watcher.Dispose() }()

	collector := metrics.New("demo", "search")
	reg := prometheus.NewRegistry()
	if err := reg.Register(collector); err != nil {
		return err
	}

	results, err := search(cfg, stream.WithName("search"), stream.WithObserver(collector))
	if err != nil {
		return err
	}

	sched := scheduler.NewClocked(clock.WallClock)
	sink := newReporter(cancel)
	var token disposable.Disposable
	sched.Submit(func() { token = results.Subscribe(sink, sched) })

	// Run returns once the merge finishes or an interrupt arrives.
	if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if token != nil {
		if err := token.Dispose(); err != nil {
			return err
		}
	}
	if err := sink.Err(); err != nil {
		return err
	}
	return writeMetrics(out, reg)
}

func writeMetrics(out io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(out, mf); err != nil {
			return err
		}
	}
	return nil
}
