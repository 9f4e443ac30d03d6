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

// Package zonal implements the zone based DAG strategy.
//
// The network is partitioned into zones, every modifier is bound to the
// zones it influences and the global reachability policy is split into zone
// local policies. Every zone is ordered on its own emulated network, and the
// orderings are merged together with the router level dependencies found
// while splitting into one configuration level DAG. The merged DAG is then
// reconciled against the global policy on the full network: concurrent
// modifiers whose interleaving violates it are serialized, and zones whose
// orderings cannot be combined safely are solved again as one.
package zonal

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"golang.org/x/sync/errgroup"

	"github.com/netupdate/netupdate/pkg/dag"
	"github.com/netupdate/netupdate/pkg/fwstate"
	"github.com/netupdate/netupdate/pkg/log"
	"github.com/netupdate/netupdate/pkg/metrics"
	"github.com/netupdate/netupdate/pkg/netsim"
	"github.com/netupdate/netupdate/pkg/policy"
	"github.com/netupdate/netupdate/pkg/private/serrors"
	"github.com/netupdate/netupdate/pkg/strategy"
	"github.com/netupdate/netupdate/private/solution"
	"github.com/netupdate/netupdate/private/strategy/backtrack"
	"github.com/netupdate/netupdate/private/zone"
)

// DefaultParallelism is the number of zones solved concurrently by default.
const DefaultParallelism = 4

type options struct {
	parallelism int
	stateLimit  int
	noMerge     bool
	solver      strategy.SolverFactory
	metrics     *metrics.Synthesis
}

// Option configures the strategy.
type Option func(*options)

// WithParallelism bounds the number of zones solved concurrently. Values
// below one solve the zones one after the other.
func WithParallelism(n int) Option {
	return func(o *options) {
		o.parallelism = max(n, 1)
	}
}

// WithStateLimit bounds the number of intermediate states visited while
// reconciling the merged DAG. The default is solution.DefaultStateLimit.
func WithStateLimit(n int) Option {
	return func(o *options) {
		o.stateLimit = n
	}
}

// WithoutMerging surfaces ordering conflicts between zones as
// ErrZoneSegmentationFailed instead of solving the conflicting zones again as
// one on the full network.
func WithoutMerging() Option {
	return func(o *options) {
		o.noMerge = true
	}
}

// WithSolverFactory replaces the solver used for every zone. The default is
// the backtracking solver.
func WithSolverFactory(f strategy.SolverFactory) Option {
	return func(o *options) {
		o.solver = f
	}
}

// WithMetrics records zone and solver metrics.
func WithMetrics(m *metrics.Synthesis) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// Strategy is the zone based DAG strategy.
type Strategy struct {
	net    *netsim.Network
	mods   []netsim.Modifier
	pol    *policy.HardPolicy
	before *fwstate.State
	after  *fwstate.State
	opts   options

	zones  []*zone.Zone
	solved []*task
}

var _ strategy.DAGStrategy = (*Strategy)(nil)

// New returns the strategy for migrating net with mods under pol. The
// modifiers must have distinct keys and the policy must hold before and
// after applying all of them.
func New(net *netsim.Network, mods []netsim.Modifier, pol *policy.HardPolicy,
	opts ...Option) (*Strategy, error) {

	o := options{parallelism: DefaultParallelism, stateLimit: solution.DefaultStateLimit}
	for _, opt := range opts {
		opt(&o)
	}
	if o.solver == nil {
		o.solver = backtrack.Factory(backtrack.WithMetrics(o.metrics))
	}
	seen := make(map[netsim.ExprKey]int, len(mods))
	for i, m := range mods {
		if j, ok := seen[m.Key()]; ok {
			return nil, serrors.Join(strategy.ErrZoneSegmentationFailed, nil,
				"reason", "modifiers share a key", "first", j, "second", i)
		}
		seen[m.Key()] = i
	}
	afterNet := net.Clone()
	if err := afterNet.ApplyModifiers(mods); err != nil {
		return nil, serrors.Wrap("computing final state", err)
	}
	before, after := fwstate.New(net), fwstate.New(afterNet)
	if err := pol.Evaluate(before); err != nil {
		return nil, serrors.Join(strategy.ErrInvalidInitialState, err)
	}
	if err := pol.Evaluate(after); err != nil {
		return nil, serrors.Join(strategy.ErrInvalidFinalState, err)
	}
	return &Strategy{
		net:    net.Clone(),
		mods:   append([]netsim.Modifier(nil), mods...),
		pol:    pol.Clone(),
		before: before,
		after:  after,
		opts:   o,
	}, nil
}

// Zones returns the zones of the last call to Work.
func (s *Strategy) Zones() []*zone.Zone {
	return s.zones
}

// Ordering is the solved ordering of one zone, of the residual modifiers or
// of zones merged while reconciling.
type Ordering struct {
	Name  string
	Order []strategy.ConfigID
}

// Orderings returns the orderings the DAG of the last successful call to
// Work was assembled from. Projecting any topological order of that DAG onto
// the modifiers of an ordering yields the ordering.
func (s *Strategy) Orderings() []Ordering {
	var out []Ordering
	for _, t := range s.solved {
		out = append(out, Ordering{Name: t.name, Order: slices.Clone(t.order)})
	}
	return out
}

// task is one independent ordering problem: a zone, the residual modifiers
// bound to no zone or a merge of zones.
type task struct {
	name    string
	net     *netsim.Network
	pol     *policy.HardPolicy
	configs []strategy.ConfigID
	routers []netsim.RouterID
	order   []strategy.ConfigID
	// global tasks are solved on the full network under the global policy.
	global bool
}

// Work synthesizes the dependency graph. It never returns a partial graph.
func (s *Strategy) Work(ctx context.Context) (*dag.DAG[strategy.ConfigID], error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "zonal.work")
	defer span.Finish()
	ctx, _ = log.WithLabels(ctx, "strategy", strategy.KindZone.String())

	g, err := s.work(ctx)
	if err != nil {
		ext.LogError(span, err)
		return nil, err
	}
	span.SetTag("nodes", g.Len())
	return g, nil
}

func (s *Strategy) work(ctx context.Context) (*dag.DAG[strategy.ConfigID], error) {
	logger := log.FromCtx(ctx)
	if !s.pol.IsGlobalReachability() {
		return nil, serrors.Join(strategy.ErrNotImplemented, nil,
			"reason", "only global reachability can be split into zones")
	}
	s.solved = nil
	zones, err := s.partition(ctx)
	if err != nil {
		return nil, err
	}
	s.zones = zones
	logger.Debug("Partitioned network", "zones", len(zones))

	deps, err := s.split(ctx, zones)
	if err != nil {
		return nil, err
	}
	tasks := s.tasks(zones)
	if err := s.solve(ctx, tasks); err != nil {
		return nil, err
	}
	for {
		g, err := s.assemble(ctx, tasks, deps)
		var conflict *solution.ConflictError
		if s.opts.noMerge || !errors.As(err, &conflict) {
			if err == nil {
				s.solved = tasks
			}
			return g, err
		}
		merged, m, ok := s.merge(tasks, slices.Concat(conflict.Last, conflict.Pending))
		if !ok {
			merged, m, ok = s.merge(tasks, slices.Concat(conflict.State, conflict.Pending))
		}
		if !ok {
			return nil, err
		}
		logger.Info("Merging zones with conflicting orderings", "zones", m.name,
			"state", conflict.State, "cause", conflict.Cause)
		if err := s.solveTask(ctx, m); err != nil {
			return nil, err
		}
		tasks = merged
	}
}

func (s *Strategy) partition(ctx context.Context) ([]*zone.Zone, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "zonal.partition")
	defer span.Finish()

	zones := zone.Partition(s.net)
	zone.Bind(s.net, zones, s.mods)
	for _, z := range zones {
		if err := z.Emulate(s.net, s.before, s.after); err != nil {
			return nil, err
		}
	}
	s.opts.metrics.SetZones(len(zones))
	span.SetTag("zones", len(zones))
	return zones, nil
}

func (s *Strategy) split(ctx context.Context, zones []*zone.Zone) ([]zone.Dependency, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "zonal.split")
	defer span.Finish()

	deps, err := zone.Split(s.pol, zones, s.before, s.after)
	if err != nil {
		return nil, err
	}
	span.SetTag("dependencies", len(deps))
	return deps, nil
}

// tasks returns one task per zone with bound modifiers, in anchor order,
// followed by the residual task over the whole network if some modifiers are
// bound to no zone.
func (s *Strategy) tasks(zones []*zone.Zone) []*task {
	var tasks []*task
	for _, z := range zones {
		if len(z.Configs) == 0 {
			continue
		}
		tasks = append(tasks, &task{
			name:    s.net.Name(z.Anchor),
			net:     z.Net,
			pol:     z.Policy.Clone(),
			configs: z.Configs,
			routers: z.Members,
		})
	}
	if unbound := zone.Unbound(zones, len(s.mods)); len(unbound) > 0 {
		tasks = append(tasks, &task{
			name:    "residual",
			net:     s.net.Clone(),
			pol:     s.pol.Clone(),
			configs: unbound,
			routers: s.net.Routers(),
			global:  true,
		})
	}
	return tasks
}

// merge replaces the tasks owning any of ids by one global task that takes
// the place of the first of them. It reports false if that would only
// replace a task that is already global.
func (s *Strategy) merge(tasks []*task, ids []strategy.ConfigID) ([]*task, *task, bool) {
	var picked, rest []*task
	pos := -1
	for _, t := range tasks {
		if !slices.ContainsFunc(t.configs, func(id strategy.ConfigID) bool {
			return slices.Contains(ids, id)
		}) {
			rest = append(rest, t)
			continue
		}
		if pos < 0 {
			pos = len(rest)
		}
		picked = append(picked, t)
	}
	if len(picked) == 0 || (len(picked) == 1 && picked[0].global) {
		return nil, nil, false
	}
	m := &task{
		net:     s.net.Clone(),
		pol:     s.pol.Clone(),
		routers: s.net.Routers(),
		global:  true,
	}
	names := make([]string, 0, len(picked))
	for _, t := range picked {
		names = append(names, t.name)
		m.configs = append(m.configs, t.configs...)
	}
	slices.Sort(m.configs)
	m.name = strings.Join(names, "+")
	return slices.Insert(rest, pos, m), m, true
}

func (s *Strategy) solve(ctx context.Context, tasks []*task) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "zonal.solve")
	defer span.Finish()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.parallelism)
	for _, t := range tasks {
		g.Go(func() error {
			return s.solveTask(gctx, t)
		})
	}
	return g.Wait()
}

func (s *Strategy) solveTask(ctx context.Context, t *task) error {
	ctx, logger := log.WithLabels(ctx, "zone", t.name)
	start := time.Now()
	order, err := s.orderTask(ctx, t)
	elapsed := time.Since(start)
	s.opts.metrics.ObserveSolve(elapsed.Seconds(), err, strategy.FailureReason(err))
	if err != nil {
		return serrors.Wrap("solving zone", err, "zone", t.name)
	}
	t.order = order
	logger.Debug("Solved zone", "modifiers", len(order), "duration", elapsed)
	return nil
}

func (s *Strategy) orderTask(ctx context.Context, t *task) ([]strategy.ConfigID, error) {
	mods := make([]netsim.Modifier, len(t.configs))
	byKey := make(map[netsim.ExprKey]strategy.ConfigID, len(t.configs))
	for i, id := range t.configs {
		mods[i] = s.mods[id]
		byKey[s.mods[id].Key()] = id
	}
	solver, err := s.opts.solver(t.net, mods, t.pol)
	if err != nil {
		return nil, err
	}
	ordered, err := solver.Work(ctx)
	if err != nil {
		return nil, strategy.Timeout(err)
	}
	// The ordering must be a permutation of the bound modifiers.
	if len(ordered) != len(mods) {
		return nil, serrors.Join(strategy.ErrZoneSegmentationFailed, nil,
			"reason", "ordering is incomplete", "expected", len(mods), "actual", len(ordered))
	}
	order := make([]strategy.ConfigID, 0, len(ordered))
	for _, m := range ordered {
		id, ok := byKey[m.Key()]
		if !ok || !m.Equal(s.mods[id]) {
			return nil, serrors.Join(strategy.ErrZoneSegmentationFailed, nil,
				"reason", "unknown modifier in ordering", "modifier", m)
		}
		delete(byKey, m.Key())
		order = append(order, id)
	}
	return order, nil
}

// assemble merges the task orderings and the router dependencies into one
// DAG and reconciles it. An ordering conflict no edge can resolve is returned
// as a *solution.ConflictError.
func (s *Strategy) assemble(ctx context.Context, tasks []*task,
	deps []zone.Dependency) (*dag.DAG[strategy.ConfigID], error) {

	span, ctx := opentracing.StartSpanFromContext(ctx, "zonal.assemble")
	defer span.Finish()

	b := solution.NewBuilder()
	for _, d := range deps {
		if err := b.AddRouterDependency(d.From, d.To); err != nil {
			return nil, serrors.Join(strategy.ErrZoneSegmentationFailed, err)
		}
	}
	for _, t := range tasks {
		ordered := make([]netsim.Modifier, len(t.order))
		for i, id := range t.order {
			ordered[i] = s.mods[id]
		}
		touched, err := s.net.Clone().ApplyModifiersCheckNextHop(t.routers, ordered)
		if err != nil {
			return nil, serrors.Join(strategy.ErrZoneSegmentationFailed, err, "zone", t.name)
		}
		steps := make([]solution.Step, len(t.order))
		for i, id := range t.order {
			steps[i] = solution.Step{Config: id, Touches: touched[i]}
		}
		if err := b.InsertOrdering(steps); err != nil {
			return nil, serrors.Wrap("inserting ordering", err, "zone", t.name)
		}
	}
	g, err := b.Build()
	if err != nil {
		return nil, err
	}
	for id := range s.mods {
		if !g.HasNode(id) {
			return nil, serrors.Join(strategy.ErrZoneSegmentationFailed, nil,
				"reason", "modifier missing from graph", "config", id)
		}
	}
	added, err := solution.Reconcile(ctx, g, s.mods, s.net, s.pol, s.opts.stateLimit)
	if err != nil {
		return nil, err
	}
	span.SetTag("serialized", added)
	log.FromCtx(ctx).Debug("Reconciled zone orderings", "edges", added)
	return g, nil
}
