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


// Package synth selects a DAG strategy by kind and runs it with a time
// budget.
package synth

import (
	"context"
	"time"

	"github.com/netupdate/netupdate/pkg/dag"
	"github.com/netupdate/netupdate/pkg/log"
	"github.com/netupdate/netupdate/pkg/metrics"
	"github.com/netupdate/netupdate/pkg/netsim"
	"github.com/netupdate/netupdate/pkg/policy"
	"github.com/netupdate/netupdate/pkg/private/serrors"
	"github.com/netupdate/netupdate/pkg/strategy"
	"github.com/netupdate/netupdate/private/strategy/linear"
	"github.com/netupdate/netupdate/private/strategy/zonal"
)

// Options are the strategy independent settings.
type Options struct {
	// Budget bounds the duration of Work. Zero means no bound.
	Budget time.Duration
	// Parallelism bounds the zones solved concurrently. Zero selects the
	// default of the zonal strategy.
	Parallelism int
	// Solver replaces the per zone solver if set.
	Solver strategy.SolverFactory
	// Metrics may be nil.
	Metrics *metrics.Synthesis
}

// Result is the outcome of Synthesize. Node ids of DAG index Modifiers.
type Result struct {
	Modifiers []netsim.Modifier
	DAG       *dag.DAG[strategy.ConfigID]
}

type budgeted struct {
	inner  strategy.DAGStrategy
	budget time.Duration
}

func (b budgeted) Work(ctx context.Context) (*dag.DAG[strategy.ConfigID], error) {
	ctx, cancel := strategy.WithBudget(ctx, b.budget)
	defer cancel()
	g, err := b.inner.Work(ctx)
	if err != nil {
		return nil, strategy.Timeout(err)
	}
	return g, nil
}

// New constructs the strategy of kind. The returned strategy stops with
// ErrTimeout once the budget expires.
func New(kind strategy.Kind, net *netsim.Network, mods []netsim.Modifier,
	pol *policy.HardPolicy, opts Options) (strategy.DAGStrategy, error) {

	var inner strategy.DAGStrategy
	var err error
	switch kind {
	case strategy.KindZone:
		zopts := []zonal.Option{zonal.WithMetrics(opts.Metrics)}
		if opts.Parallelism > 0 {
			zopts = append(zopts, zonal.WithParallelism(opts.Parallelism))
		}
		if opts.Solver != nil {
			zopts = append(zopts, zonal.WithSolverFactory(opts.Solver))
		}
		inner, err = zonal.New(net, mods, pol, zopts...)
	case strategy.KindLinear:
		lopts := []linear.Option{linear.WithMetrics(opts.Metrics)}
		if opts.Solver != nil {
			lopts = append(lopts, linear.WithSolverFactory(opts.Solver))
		}
		inner, err = linear.New(net, mods, pol, lopts...)
	default:
		return nil, serrors.Join(strategy.ErrNotImplemented, nil, "kind", kind.String())
	}
	if err != nil {
		return nil, err
	}
	return budgeted{inner: inner, budget: opts.Budget}, nil
}

// Synthesize computes the modifiers turning the configuration of net into
// target and orders them with the strategy of kind.
func Synthesize(ctx context.Context, kind strategy.Kind, net *netsim.Network,
	target *netsim.Config, pol *policy.HardPolicy, opts Options) (*Result, error) {

	mods := net.Config().Diff(target)
	logger := log.FromCtx(ctx)
	logger.Debug("Synthesizing migration", "strategy", kind.String(), "modifiers", len(mods))
	st, err := New(kind, net, mods, pol, opts)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	g, err := st.Work(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info("Synthesized migration", "strategy", kind.String(), "modifiers", len(mods),
		"dependencies", len(g.Edges()), "duration", time.Since(start))
	return &Result{Modifiers: mods, DAG: g}, nil
}
