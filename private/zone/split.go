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

package zone

import (
	"slices"

	"github.com/netupdate/netupdate/pkg/fwstate"
	"github.com/netupdate/netupdate/pkg/netsim"
	"github.com/netupdate/netupdate/pkg/policy"
	"github.com/netupdate/netupdate/pkg/private/serrors"
	"github.com/netupdate/netupdate/pkg/strategy"
)

// Dependency states that the next hop change of From must happen before the
// one of To.
type Dependency struct {
	From, To netsim.RouterID
}

// Split projects every reachability condition of pol onto the zones. The
// before and after paths of a condition are cut into segments, a segment
// being a maximal run of routers sharing at least one zone. Each zone
// containing both ends of a segment gets the condition that the first router
// of the segment reaches the prefix. Routers in later segments whose next hop
// changes must update after the source of the condition on the before path
// and before it on the after path.
//
// Only global reachability is supported. A condition that does not hold in
// the before or after state fails with ErrInvalidInitialState or
// ErrInvalidFinalState.
func Split(pol *policy.HardPolicy, zones []*Zone, before, after *fwstate.State) ([]Dependency, error) {
	if !pol.IsGlobalReachability() {
		return nil, serrors.Join(strategy.ErrNotImplemented, nil, "reason", "policy is not global reachability")
	}
	byAnchor := make(map[netsim.RouterID]*Zone, len(zones))
	for _, z := range zones {
		byAnchor[z.Anchor] = z
	}
	member := Memberships(zones)
	var deps []Dependency
	addDep := func(d Dependency) {
		if d.From != d.To && !slices.Contains(deps, d) {
			deps = append(deps, d)
		}
	}
	for _, c := range pol.Conditions {
		r, p := c.Router, c.Prefix
		beforePath, err := before.RouteTo(r, netsim.BGP(p))
		if err != nil {
			return nil, serrors.Join(strategy.ErrInvalidInitialState, err, "condition", c)
		}
		afterPath, err := after.RouteTo(r, netsim.BGP(p))
		if err != nil {
			return nil, serrors.Join(strategy.ErrInvalidFinalState, err, "condition", c)
		}
		beforeSegs := segmentPath(member, beforePath)
		afterSegs := segmentPath(member, afterPath)
		addConditions(byAnchor, member, p, beforeSegs)
		addConditions(byAnchor, member, p, afterSegs)

		for _, seg := range tail(beforeSegs) {
			for _, s := range seg {
				if before.HasDiffNextHop(s, p, after) {
					addDep(Dependency{From: r, To: s})
				}
			}
		}
		for _, seg := range tail(afterSegs) {
			for _, s := range seg {
				if before.HasDiffNextHop(s, p, after) {
					addDep(Dependency{From: s, To: r})
				}
			}
		}
	}
	return deps, nil
}

func tail(segs [][]netsim.RouterID) [][]netsim.RouterID {
	if len(segs) == 0 {
		return nil
	}
	return segs[1:]
}

// segmentPath cuts path into maximal runs whose zone sets have a common
// zone. Consecutive routers without any zone form a run of their own.
func segmentPath(member map[netsim.RouterID][]netsim.RouterID,
	path []netsim.RouterID) [][]netsim.RouterID {

	var segs [][]netsim.RouterID
	var cur, common []netsim.RouterID
	for _, r := range path {
		zs := member[r]
		if len(cur) == 0 {
			cur, common = []netsim.RouterID{r}, zs
			continue
		}
		if len(common) == 0 && len(zs) == 0 {
			cur = append(cur, r)
			continue
		}
		if shared := intersect(common, zs); len(shared) > 0 {
			cur, common = append(cur, r), shared
			continue
		}
		segs = append(segs, cur)
		cur, common = []netsim.RouterID{r}, zs
	}
	if len(cur) > 0 {
		segs = append(segs, cur)
	}
	return segs
}

func addConditions(byAnchor map[netsim.RouterID]*Zone, member map[netsim.RouterID][]netsim.RouterID,
	p netsim.Prefix, segs [][]netsim.RouterID) {

	for _, seg := range segs {
		first, last := seg[0], seg[len(seg)-1]
		for _, a := range intersect(member[first], member[last]) {
			if z, ok := byAnchor[a]; ok {
				z.Policy.Add(policy.Reachable(first, p))
			}
		}
	}
}

// intersect returns the common elements of two ascending slices.
func intersect(a, b []netsim.RouterID) []netsim.RouterID {
	var out []netsim.RouterID
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return out
}
