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


// Package linear orders all modifiers with a single solver run over the
// whole network and returns the ordering as a chain.
package linear

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"

	"github.com/netupdate/netupdate/pkg/dag"
	"github.com/netupdate/netupdate/pkg/log"
	"github.com/netupdate/netupdate/pkg/metrics"
	"github.com/netupdate/netupdate/pkg/netsim"
	"github.com/netupdate/netupdate/pkg/policy"
	"github.com/netupdate/netupdate/pkg/private/serrors"
	"github.com/netupdate/netupdate/pkg/strategy"
	"github.com/netupdate/netupdate/private/strategy/backtrack"
)

type options struct {
	solver  strategy.SolverFactory
	metrics *metrics.Synthesis
}

// Option configures the strategy.
type Option func(*options)

// WithSolverFactory replaces the backtracking solver.
func WithSolverFactory(f strategy.SolverFactory) Option {
	return func(o *options) {
		o.solver = f
	}
}

// WithMetrics records solver metrics.
func WithMetrics(m *metrics.Synthesis) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// Strategy is the linear DAG strategy.
type Strategy struct {
	net  *netsim.Network
	mods []netsim.Modifier
	pol  *policy.HardPolicy
	opts options
}

var _ strategy.DAGStrategy = (*Strategy)(nil)

// New returns the strategy for mods on net. Modifier keys must be unique.
func New(net *netsim.Network, mods []netsim.Modifier, pol *policy.HardPolicy,
	opts ...Option) (*Strategy, error) {

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.solver == nil {
		o.solver = backtrack.Factory(backtrack.WithMetrics(o.metrics))
	}
	seen := make(map[netsim.ExprKey]struct{}, len(mods))
	for i, m := range mods {
		if _, ok := seen[m.Key()]; ok {
			return nil, serrors.Join(strategy.ErrZoneSegmentationFailed, nil,
				"reason", "duplicate modifier", "config", i, "modifier", m)
		}
		seen[m.Key()] = struct{}{}
	}
	return &Strategy{
		net:  net.Clone(),
		mods: append([]netsim.Modifier(nil), mods...),
		pol:  pol.Clone(),
		opts: o,
	}, nil
}

// Work returns the chain 0 -> 1 -> ... in the order found by the solver.
func (s *Strategy) Work(ctx context.Context) (*dag.DAG[strategy.ConfigID], error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "linear.work")
	defer span.Finish()
	ctx, _ = log.WithLabels(ctx, "strategy", strategy.KindLinear.String())

	g, err := s.work(ctx)
	if err != nil {
		ext.LogError(span, err)
		return nil, err
	}
	return g, nil
}

func (s *Strategy) work(ctx context.Context) (*dag.DAG[strategy.ConfigID], error) {
	s.opts.metrics.SetZones(1)
	solver, err := s.opts.solver(s.net, s.mods, s.pol)
	if err != nil {
		s.opts.metrics.ObserveSolve(0, err, strategy.FailureReason(err))
		return nil, err
	}
	start := time.Now()
	ordered, err := solver.Work(ctx)
	err = strategy.Timeout(err)
	s.opts.metrics.ObserveSolve(time.Since(start).Seconds(), err, strategy.FailureReason(err))
	if err != nil {
		return nil, err
	}

	index := make(map[netsim.ExprKey]strategy.ConfigID, len(s.mods))
	for i, m := range s.mods {
		index[m.Key()] = i
	}
	if len(ordered) != len(s.mods) {
		return nil, serrors.Join(strategy.ErrExecutionFailed, nil,
			"reason", "incomplete ordering", "expected", len(s.mods), "actual", len(ordered))
	}
	g := dag.New[strategy.ConfigID]()
	prev := -1
	for _, m := range ordered {
		id, ok := index[m.Key()]
		if !ok {
			return nil, serrors.Join(strategy.ErrExecutionFailed, nil,
				"reason", "unknown modifier", "modifier", m)
		}
		if g.InsertNode(id) {
			return nil, serrors.Join(strategy.ErrExecutionFailed, nil,
				"reason", "repeated modifier", "modifier", m)
		}
		if prev >= 0 {
			if err := g.AddDependency(prev, id); err != nil {
				return nil, serrors.Wrap("chaining ordering", err)
			}
		}
		prev = id
	}
	log.FromCtx(ctx).Debug("Linear ordering found", "modifiers", len(ordered))
	return g, nil
}

