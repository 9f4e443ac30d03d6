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

// Package exec applies configuration level dependency graphs to a network.
//
// MaxDepth measures the critical path of a graph: the largest cumulative
// cost along any chain of dependent modifiers, which is the time a fully
// parallel deployment needs. Deployer applies every modifier exactly once in
// dependency order.
package exec

import (
	"context"
	"slices"
	"time"

	"github.com/netupdate/netupdate/pkg/dag"
	"github.com/netupdate/netupdate/pkg/fwstate"
	"github.com/netupdate/netupdate/pkg/log"
	"github.com/netupdate/netupdate/pkg/netsim"
	"github.com/netupdate/netupdate/pkg/policy"
	"github.com/netupdate/netupdate/pkg/private/serrors"
	"github.com/netupdate/netupdate/pkg/strategy"
)

// Applier applies and reverts modifiers. *netsim.Network implements it.
type Applier interface {
	ApplyModifier(m netsim.Modifier) error
	UndoModifier(m netsim.Modifier) error
}

var _ Applier = (*netsim.Network)(nil)

func modifierOf(mods []netsim.Modifier, id strategy.ConfigID) (netsim.Modifier, error) {
	if id < 0 || id >= len(mods) {
		return netsim.Modifier{}, serrors.Join(strategy.ErrExecutionFailed, nil,
			"reason", "unknown modifier", "config", id, "modifiers", len(mods))
	}
	return mods[id], nil
}

// MaxDepth measures the critical path of a graph.
type MaxDepth struct {
	// Now returns the current time. If nil, time.Now is used.
	Now func() time.Time
}

func (e MaxDepth) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Execute walks the graph depth first from every ready node. Each modifier is
// applied to net, its cost measured and its successors visited before it is
// rolled back, so sibling branches start from the same state. net is
// unchanged when Execute returns.
func (e MaxDepth) Execute(ctx context.Context, g *dag.DAG[strategy.ConfigID],
	mods []netsim.Modifier, net Applier) (time.Duration, error) {

	if err := g.CheckCycle(); err != nil {
		return 0, serrors.Join(strategy.ErrExecutionFailed, err)
	}
	starters, err := g.StarterNodes()
	if err != nil {
		return 0, serrors.Join(strategy.ErrExecutionFailed, err)
	}
	if len(starters) == 0 {
		return 0, serrors.Join(strategy.ErrExecutionFailed, nil, "reason", "no ready node")
	}
	var longest time.Duration
	for _, s := range starters {
		d, err := e.visit(ctx, s, g, mods, net)
		if err != nil {
			return 0, err
		}
		longest = max(longest, d)
	}
	log.FromCtx(ctx).Debug("Measured critical path", "duration", longest, "nodes", g.Len())
	return longest, nil
}

func (e MaxDepth) visit(ctx context.Context, id strategy.ConfigID, g *dag.DAG[strategy.ConfigID],
	mods []netsim.Modifier, net Applier) (time.Duration, error) {

	if err := ctx.Err(); err != nil {
		return 0, strategy.Timeout(err)
	}
	m, err := modifierOf(mods, id)
	if err != nil {
		return 0, err
	}
	start := e.now()
	if err := net.ApplyModifier(m); err != nil {
		return 0, serrors.Join(strategy.ErrExecutionFailed, err, "config", id)
	}
	cost := e.now().Sub(start)
	defer func() {
		if err := net.UndoModifier(m); err != nil {
			log.FromCtx(ctx).Error("Rolling back modifier", "config", id, "err", err)
		}
	}()

	next, err := g.NextOf(id)
	if err != nil {
		return 0, serrors.Join(strategy.ErrExecutionFailed, err)
	}
	var tail time.Duration
	for _, n := range next {
		d, err := e.visit(ctx, n, g, mods, net)
		if err != nil {
			return 0, err
		}
		tail = max(tail, d)
	}
	return cost + tail, nil
}

// Report describes a deployment.
type Report struct {
	// Levels are the waves of modifiers that may be applied concurrently.
	Levels [][]strategy.ConfigID
	// Applied lists the modifiers in the order they were applied. After a
	// failed deployment it lists the modifiers that were rolled back.
	Applied []strategy.ConfigID
}

// Deployer applies every modifier of a graph exactly once, wave by wave.
type Deployer struct{}

// Deploy applies the graph to net. On failure the applied modifiers are
// rolled back in reverse order and the error wraps ErrExecutionFailed. The
// graph must contain every modifier index exactly once.
func (Deployer) Deploy(ctx context.Context, g *dag.DAG[strategy.ConfigID],
	mods []netsim.Modifier, net Applier) (Report, error) {

	logger := log.FromCtx(ctx)
	levels, err := g.Levels()
	if err != nil {
		return Report{}, serrors.Join(strategy.ErrExecutionFailed, err)
	}
	if g.Len() != len(mods) {
		return Report{}, serrors.Join(strategy.ErrExecutionFailed, nil,
			"reason", "graph does not cover all modifiers", "nodes", g.Len(), "modifiers", len(mods))
	}
	for _, id := range g.Nodes() {
		if _, err := modifierOf(mods, id); err != nil {
			return Report{}, err
		}
	}
	report := Report{Levels: levels}
	rollback := func(cause error) (Report, error) {
		for _, id := range slices.Backward(report.Applied) {
			if err := net.UndoModifier(mods[id]); err != nil {
				logger.Error("Rolling back modifier", "config", id, "err", err)
			}
		}
		return report, serrors.Join(strategy.ErrExecutionFailed, cause)
	}
	for i, level := range levels {
		for _, id := range level {
			if err := ctx.Err(); err != nil {
				return rollback(strategy.Timeout(err))
			}
			if err := net.ApplyModifier(mods[id]); err != nil {
				return rollback(serrors.Wrap("applying modifier", err, "config", id, "level", i))
			}
			report.Applied = append(report.Applied, id)
		}
		logger.Debug("Applied level", "level", i, "modifiers", len(level))
	}
	return report, nil
}

// Verify applies the topological order of the graph to a copy of net and
// checks pol in every intermediate state. Only this one linearization is
// checked.
func Verify(ctx context.Context, g *dag.DAG[strategy.ConfigID], mods []netsim.Modifier,
	net *netsim.Network, pol *policy.HardPolicy) error {

	order, err := g.TopologicalOrder()
	if err != nil {
		return serrors.Join(strategy.ErrExecutionFailed, err)
	}
	n := net.Clone()
	if err := pol.Evaluate(fwstate.New(n)); err != nil {
		return serrors.Join(strategy.ErrInvalidInitialState, err)
	}
	for i, id := range order {
		if err := ctx.Err(); err != nil {
			return strategy.Timeout(err)
		}
		m, err := modifierOf(mods, id)
		if err != nil {
			return err
		}
		if err := n.ApplyModifier(m); err != nil {
			return serrors.Join(strategy.ErrExecutionFailed, err, "step", i, "config", id)
		}
		if err := pol.Evaluate(fwstate.New(n)); err != nil {
			return serrors.Join(strategy.ErrExecutionFailed, err, "step", i, "config", id)
		}
	}
	log.FromCtx(ctx).Debug("Verified ordering", "steps", len(order))
	return nil
}
