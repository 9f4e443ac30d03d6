// Copyright 2026 ETH Zurich
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics creates prometheus collectors registered on a configurable
// registry. Components take a Factory so that tests can use a private
// registry and production code the default one.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/netupdate/netupdate/pkg/private/prom"
)

// Namespace is the prometheus namespace of all netupdate metrics.
const Namespace = "netupdate"

type Option func(*Options)

// Options configures the metrics Factory, construct it using ApplyOptions.
type Options struct {
	registry prometheus.Registerer
}

func (o Options) registerer() prometheus.Registerer {
	if o.registry != nil {
		return o.registry
	}
	return prometheus.DefaultRegisterer
}

// WithRegistry registers every collector on the given registry instead of the
// default one.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(o *Options) {
		o.registry = registry
	}
}

func ApplyOptions(options ...Option) Options {
	opts := Options{}
	for _, option := range options {
		option(&opts)
	}
	return opts
}

// Auto creates a Factory that registers on the configured registry.
func (o Options) Auto() Factory {
	return Factory{opts: o}
}

// Factory registers collectors using the provided Options.
type Factory struct {
	opts Options
}

// register returns the collector registered under the same descriptor if
// there is one, so that repeated runs in one process share their collectors.
func (f Factory) register(c prometheus.Collector) prometheus.Collector {
	return prom.SafeRegister(f.opts.registerer(), c)
}

func (f Factory) NewCounter(opts prometheus.CounterOpts) prometheus.Counter {
	return f.register(prometheus.NewCounter(opts)).(prometheus.Counter)
}

func (f Factory) NewCounterVec(
	opts prometheus.CounterOpts,
	labelNames []string,
) *prometheus.CounterVec {
	return f.register(prometheus.NewCounterVec(opts, labelNames)).(*prometheus.CounterVec)
}

func (f Factory) NewGauge(opts prometheus.GaugeOpts) prometheus.Gauge {
	return f.register(prometheus.NewGauge(opts)).(prometheus.Gauge)
}

func (f Factory) NewHistogram(opts prometheus.HistogramOpts) prometheus.Histogram {
	return f.register(prometheus.NewHistogram(opts)).(prometheus.Histogram)
}

// Synthesis groups the collectors updated by a synthesis run. A nil
// *Synthesis is valid and records nothing.
type Synthesis struct {
	Zones         prometheus.Gauge
	SolveDuration prometheus.Histogram
	Solved        prometheus.Counter
	Failed        *prometheus.CounterVec
	Explored      prometheus.Counter
}

// NewSynthesis registers the synthesis collectors with f.
func NewSynthesis(f Factory) *Synthesis {
	return &Synthesis{
		Zones: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "synthesis",
			Name:      "zones",
			Help:      "Number of zones of the last partitioned network.",
		}),
		SolveDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "synthesis",
			Name:      "zone_solve_duration_seconds",
			Help:      "Time spent ordering the configs bound to a single zone.",
			Buckets:   prom.DefaultLatencyBuckets,
		}),
		Solved: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "synthesis",
			Name:      "zones_solved_total",
			Help:      "Number of zones for which an ordering was found.",
		}),
		Failed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "synthesis",
			Name:      "zones_failed_total",
			Help:      "Number of zones for which no ordering was found, by reason.",
		}, []string{prom.LabelReason}),
		Explored: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "synthesis",
			Name:      "explored_states_total",
			Help:      "Number of intermediate states checked against the policy.",
		}),
	}
}

func (s *Synthesis) SetZones(n int) {
	if s == nil {
		return
	}
	s.Zones.Set(float64(n))
}

func (s *Synthesis) ObserveSolve(seconds float64, err error, reason string) {
	if s == nil {
		return
	}
	s.SolveDuration.Observe(seconds)
	if err != nil {
		s.Failed.WithLabelValues(reason).Inc()
		return
	}
	s.Solved.Inc()
}

func (s *Synthesis) AddExplored(n int) {
	if s == nil || n <= 0 {
		return
	}
	s.Explored.Add(float64(n))
}
