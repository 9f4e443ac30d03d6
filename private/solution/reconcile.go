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

package solution

import (
	"context"
	"fmt"
	"slices"

	"github.com/netupdate/netupdate/pkg/dag"
	"github.com/netupdate/netupdate/pkg/fwstate"
	"github.com/netupdate/netupdate/pkg/netsim"
	"github.com/netupdate/netupdate/pkg/policy"
	"github.com/netupdate/netupdate/pkg/private/serrors"
	"github.com/netupdate/netupdate/pkg/strategy"
)

// DefaultStateLimit is the number of intermediate states Reconcile visits
// per walk by default.
const DefaultStateLimit = 1 << 14

// ConflictError reports a violating state that every linearization of a
// graph passes through. No edge can exclude it.
type ConflictError struct {
	// State holds the applied modifiers in ascending order.
	State []strategy.ConfigID
	// Last holds the modifiers of State without a successor in State.
	Last []strategy.ConfigID
	// Pending holds the modifiers not yet applied.
	Pending []strategy.ConfigID
	Cause   error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("unavoidable violation after applying %v: %v", e.State, e.Cause)
}

func (e *ConflictError) Unwrap() []error {
	if e.Cause == nil {
		return []error{strategy.ErrZoneSegmentationFailed}
	}
	return []error{strategy.ErrZoneSegmentationFailed, e.Cause}
}

// Reconcile adds edges to g until every linearization of g is safe under pol.
// The intermediate states of a linearization only depend on the set of
// applied modifiers, so Reconcile walks the downward closed node sets of g
// and evaluates pol on a copy of net for each. A violating set is excluded
// with an edge from a pending modifier to one of the last modifiers of the
// set. When every pending modifier depends on all of them, Reconcile fails
// with a *ConflictError. Walks visiting more than limit sets fail with
// ErrZoneSegmentationFailed; a limit below one selects DefaultStateLimit.
//
// g is modified in place and the number of added edges is returned.
func Reconcile(ctx context.Context, g *dag.DAG[strategy.ConfigID], mods []netsim.Modifier,
	net *netsim.Network, pol *policy.HardPolicy, limit int) (int, error) {

	if err := g.CheckCycle(); err != nil {
		return 0, serrors.Join(strategy.ErrZoneSegmentationFailed, err)
	}
	nodes := g.Nodes()
	slices.Sort(nodes)
	for _, id := range nodes {
		if id < 0 || id >= len(mods) {
			return 0, serrors.Join(strategy.ErrZoneSegmentationFailed, nil,
				"reason", "unknown modifier", "config", id, "modifiers", len(mods))
		}
	}
	if limit < 1 {
		limit = DefaultStateLimit
	}
	r := &reconciler{
		ctx:      ctx,
		g:        g,
		mods:     mods,
		pol:      pol,
		nodes:    nodes,
		limit:    limit,
		verdicts: make(map[string]error),
	}
	added := 0
	for {
		v, err := r.walk(net.Clone())
		if err != nil {
			return added, err
		}
		if v == nil {
			return added, nil
		}
		from, to, ok := r.exclude(v)
		if !ok {
			return added, r.conflict(v)
		}
		if err := g.AddDependency(from, to); err != nil {
			return added, serrors.Join(strategy.ErrZoneSegmentationFailed, err)
		}
		added++
	}
}

type reconciler struct {
	ctx   context.Context
	g     *dag.DAG[strategy.ConfigID]
	mods  []netsim.Modifier
	pol   *policy.HardPolicy
	nodes []strategy.ConfigID
	limit int
	// verdicts caches the policy result per applied set across walks.
	verdicts map[string]error
}

// violation is a downward closed set in which the policy does not hold.
type violation struct {
	in    []bool
	cause error
}

func setKey(in []bool) string {
	b := make([]byte, len(in))
	for i, v := range in {
		if v {
			b[i] = 1
		}
	}
	return string(b)
}

// walk visits every downward closed set reachable from the empty one and
// returns the first violating set. n is consumed.
func (r *reconciler) walk(n *netsim.Network) (*violation, error) {
	in := make([]bool, len(r.mods))
	visited := make(map[string]struct{})
	var visit func() (*violation, error)
	visit = func() (*violation, error) {
		k := setKey(in)
		if _, ok := visited[k]; ok {
			return nil, nil
		}
		if len(visited) >= r.limit {
			return nil, serrors.Join(strategy.ErrZoneSegmentationFailed, nil,
				"reason", "too many intermediate states", "limit", r.limit)
		}
		visited[k] = struct{}{}
		for _, id := range r.nodes {
			if in[id] || !r.ready(in, id) {
				continue
			}
			if err := r.ctx.Err(); err != nil {
				return nil, strategy.Timeout(err)
			}
			in[id] = true
			if err := n.ApplyModifier(r.mods[id]); err != nil {
				return &violation{in: in, cause: err}, nil
			}
			if err := r.check(in, n); err != nil {
				return &violation{in: in, cause: err}, nil
			}
			if v, err := visit(); v != nil || err != nil {
				return v, err
			}
			if err := n.UndoModifier(r.mods[id]); err != nil {
				return nil, serrors.Wrap("reverting modifier", err, "config", id)
			}
			in[id] = false
		}
		return nil, nil
	}
	return visit()
}

func (r *reconciler) ready(in []bool, id strategy.ConfigID) bool {
	prev, err := r.g.PrevOf(id)
	if err != nil {
		return false
	}
	for _, p := range prev {
		if !in[p] {
			return false
		}
	}
	return true
}

func (r *reconciler) check(in []bool, n *netsim.Network) error {
	k := setKey(in)
	if err, ok := r.verdicts[k]; ok {
		return err
	}
	err := r.pol.Evaluate(fwstate.New(n))
	r.verdicts[k] = err
	return err
}

// last returns the members of the violating set without a successor in it.
func (r *reconciler) last(v *violation) []strategy.ConfigID {
	var last []strategy.ConfigID
	for _, id := range r.nodes {
		if !v.in[id] {
			continue
		}
		next, _ := r.g.NextOf(id)
		if !slices.ContainsFunc(next, func(n strategy.ConfigID) bool { return v.in[n] }) {
			last = append(last, id)
		}
	}
	return last
}

// exclude picks an edge from a pending modifier to a last modifier of v that
// keeps g acyclic. Pending modifiers that could replace the last one in v are
// preferred.
func (r *reconciler) exclude(v *violation) (strategy.ConfigID, strategy.ConfigID, bool) {
	last := r.last(v)
	var fallback [2]strategy.ConfigID
	found := false
	for _, y := range r.nodes {
		if v.in[y] {
			continue
		}
		for _, z := range last {
			if r.g.Reachable(z, y) {
				continue
			}
			v.in[z] = false
			ready := r.ready(v.in, y)
			v.in[z] = true
			if ready {
				return y, z, true
			}
			if !found {
				fallback, found = [2]strategy.ConfigID{y, z}, true
			}
		}
	}
	return fallback[0], fallback[1], found
}

func (r *reconciler) conflict(v *violation) *ConflictError {
	e := &ConflictError{Last: r.last(v), Cause: v.cause}
	for _, id := range r.nodes {
		if v.in[id] {
			e.State = append(e.State, id)
		} else {
			e.Pending = append(e.Pending, id)
		}
	}
	return e
}
