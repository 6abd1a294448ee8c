// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

// Package metrics exports the occupancy of merge-map subscriptions to
// Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"vawter.tech/stream"
)

const subsystem = "mergemap"

// Collector is a prometheus.Collector that is also a [stream.Observer].
// A Collector may be shared by any number of subscriptions, whose
// values are aggregated.
type Collector struct {
	active   prometheus.Gauge
	admitted prometheus.Counter
	finished *prometheus.CounterVec
	pending  prometheus.Gauge
}

var (
	_ prometheus.Collector = (*Collector)(nil)
	_ stream.Observer      = (*Collector)(nil)
)

// New returns a Collector whose metrics carry the namespace and a
// constant "name" label. Use [stream.WithObserver] to attach it to a
// merge and register it with a [prometheus.Registerer].
func New(namespace, name string) *Collector {
	labels := prometheus.Labels{"name": name}
	return &Collector{
		active: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace:   namespace,
				Subsystem:   subsystem,
				Name:        "active_inner",
				Help:        "The number of inner streams currently subscribed.",
				ConstLabels: labels,
			},
		),
		admitted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Subsystem:   subsystem,
				Name:        "admitted_total",
				Help:        "The number of inner streams that have been subscribed.",
				ConstLabels: labels,
			},
		),
		finished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   namespace,
				Subsystem:   subsystem,
				Name:        "finished_total",
				Help:        "The number of merge subscriptions that have finished.",
				ConstLabels: labels,
			}, []string{"outcome"},
		),
		pending: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace:   namespace,
				Subsystem:   subsystem,
				Name:        "pending_inner",
				Help:        "The number of inner streams waiting for a free slot.",
				ConstLabels: labels,
			},
		),
	}
}

// Adjust implements [stream.Observer].
func (c *Collector) Adjust(activeDelta, pendingDelta int) {
	c.active.Add(float64(activeDelta))
	c.pending.Add(float64(pendingDelta))
	if activeDelta > 0 {
		c.admitted.Add(float64(activeDelta))
	}
}

// Finished implements [stream.Observer].
func (c *Collector) Finished(outcome stream.Outcome) {
	c.finished.WithLabelValues(outcome.String()).Inc()
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.active.Describe(ch)
	c.admitted.Describe(ch)
	c.finished.Describe(ch)
	c.pending.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.active.Collect(ch)
	c.admitted.Collect(ch)
	c.finished.Collect(ch)
	c.pending.Collect(ch)
}
