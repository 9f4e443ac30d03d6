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

// Package solution assembles per-zone orderings and router level
// dependencies into one configuration level dependency graph.
package solution

import (
	"github.com/netupdate/netupdate/pkg/dag"
	"github.com/netupdate/netupdate/pkg/netsim"
	"github.com/netupdate/netupdate/pkg/private/serrors"
	"github.com/netupdate/netupdate/pkg/strategy"
)

// Step is one entry of a zone ordering: the modifier and the routers whose
// next hop changed when it was applied.
type Step struct {
	Config  strategy.ConfigID
	Touches []netsim.RouterID
}

// Builder folds zone orderings into a DAG. It is not safe for concurrent use.
type Builder struct {
	routers *dag.DAG[netsim.RouterID]
	configs *dag.DAG[strategy.ConfigID]
	// first and last hold, per router, the first and the last inserted
	// modifier that changed its next hop.
	first map[netsim.RouterID]strategy.ConfigID
	last  map[netsim.RouterID]strategy.ConfigID
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		routers: dag.New[netsim.RouterID](),
		configs: dag.New[strategy.ConfigID](),
		first:   make(map[netsim.RouterID]strategy.ConfigID),
		last:    make(map[netsim.RouterID]strategy.ConfigID),
	}
}

// AddRouterDependency records that the next hop change of from must happen
// before the one of to. Dependencies of a router on itself are ignored.
func (b *Builder) AddRouterDependency(from, to netsim.RouterID) error {
	if from == to {
		return nil
	}
	b.routers.InsertNode(from)
	b.routers.InsertNode(to)
	return b.routers.AddDependency(from, to)
}

// RouterDependencies returns a copy of the router level graph. It may
// contain cycles.
func (b *Builder) RouterDependencies() *dag.DAG[netsim.RouterID] {
	return b.routers.Clone()
}

// InsertOrdering chains the steps of one zone. An empty ordering adds
// nothing. An ordering that repeats a modifier or contradicts an ordering
// inserted before fails with ErrZoneSegmentationFailed.
func (b *Builder) InsertOrdering(steps []Step) error {
	seen := make(map[strategy.ConfigID]struct{}, len(steps))
	for i, s := range steps {
		if _, ok := seen[s.Config]; ok {
			return serrors.Join(strategy.ErrZoneSegmentationFailed, nil,
				"reason", "duplicate modifier", "config", s.Config)
		}
		seen[s.Config] = struct{}{}
		b.configs.InsertNode(s.Config)
		if i > 0 {
			if err := b.addConfigDependency(steps[i-1].Config, s.Config); err != nil {
				return err
			}
		}
		for _, r := range s.Touches {
			if _, ok := b.first[r]; !ok {
				b.first[r] = s.Config
			}
			b.last[r] = s.Config
		}
	}
	return nil
}

func (b *Builder) addConfigDependency(from, to strategy.ConfigID) error {
	if from == to || b.configs.HasDependency(from, to) {
		return nil
	}
	if b.configs.Reachable(to, from) {
		return serrors.Join(strategy.ErrZoneSegmentationFailed, nil,
			"reason", "inconsistent ordering", "from", from, "to", to)
	}
	return b.configs.AddDependency(from, to)
}

// Build translates every router dependency X before Y into an edge from the
// last modifier touching X to the first modifier touching Y and returns the
// cycle checked configuration graph.
func (b *Builder) Build() (*dag.DAG[strategy.ConfigID], error) {
	for _, e := range b.routers.Edges() {
		from, ok := b.last[e[0]]
		if !ok {
			continue
		}
		to, ok := b.first[e[1]]
		if !ok {
			continue
		}
		if err := b.addConfigDependency(from, to); err != nil {
			return nil, serrors.Wrap("translating router dependency", err,
				"from_router", e[0], "to_router", e[1])
		}
	}
	if err := b.configs.CheckCycle(); err != nil {
		return nil, serrors.Join(strategy.ErrZoneSegmentationFailed, err)
	}
	return b.configs.Clone(), nil
}
