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

package netsim

import (
	"cmp"
	"maps"
	"slices"

	"github.com/netupdate/netupdate/pkg/private/serrors"
)

const defaultLocalPref = 100

// route is a BGP route as selected by some internal router.
type route struct {
	prefix    Prefix
	asPath    []AsID
	localPref uint32
	// egress is the boundary router traffic leaves the network at. For routes
	// learned over eBGP it is the external neighbor itself.
	egress   RouterID
	from     RouterID
	fromType SessionType
}

func (r route) equal(o route) bool {
	return r.prefix == o.prefix && r.localPref == o.localPref && r.egress == o.egress &&
		r.from == o.from && r.fromType == o.fromType && slices.Equal(r.asPath, o.asPath)
}

type routeMaps struct {
	in, out []BgpRouteMap
}

func (n *Network) collectRouteMaps() map[RouterID]*routeMaps {
	rms := make(map[RouterID]*routeMaps)
	for _, e := range n.config.exprs {
		m, ok := e.(BgpRouteMap)
		if !ok {
			continue
		}
		rm := rms[m.Router]
		if rm == nil {
			rm = &routeMaps{}
			rms[m.Router] = rm
		}
		if m.Direction == RouteMapOut {
			rm.out = append(rm.out, m)
		} else {
			rm.in = append(rm.in, m)
		}
	}
	byOrder := func(a, b BgpRouteMap) int { return cmp.Compare(a.Order, b.Order) }
	for _, rm := range rms {
		slices.SortFunc(rm.in, byOrder)
		slices.SortFunc(rm.out, byOrder)
	}
	return rms
}

// applyRouteMaps evaluates maps in order; the first match decides.
func applyRouteMaps(maps []BgpRouteMap, neighbor RouterID, rt route) (route, bool) {
	for _, m := range maps {
		if !m.matches(neighbor, rt.prefix) {
			continue
		}
		if m.Deny {
			return rt, false
		}
		if m.LocalPref != 0 {
			rt.localPref = m.LocalPref
		}
		return rt, true
	}
	return rt, true
}

// computeBGP runs synchronous propagation rounds, starting from empty routing
// tables, until no router changes its selection.
func (n *Network) computeBGP() ([]map[Prefix]route, error) {
	rms := n.collectRouteMaps()
	mapsOf := func(r RouterID) *routeMaps {
		if rm := rms[r]; rm != nil {
			return rm
		}
		return &routeMaps{}
	}
	cur := make([]map[Prefix]route, len(n.devices))
	maxRounds := 4*len(n.devices) + 16
	for round := 0; round < maxRounds; round++ {
		next := make([]map[Prefix]route, len(n.devices))
		for i, d := range n.devices {
			if d.external {
				continue
			}
			r := RouterID(i)
			next[i] = n.selectRoutes(r, cur, mapsOf)
		}
		if selectionsEqual(cur, next) {
			return next, nil
		}
		cur = next
	}
	return nil, serrors.Join(ErrNoConvergence, nil, "rounds", maxRounds)
}

func (n *Network) selectRoutes(r RouterID, cur []map[Prefix]route,
	mapsOf func(RouterID) *routeMaps) map[Prefix]route {

	best := make(map[Prefix]route)
	consider := func(rt route) {
		rt, ok := applyRouteMaps(mapsOf(r).in, rt.from, rt)
		if !ok {
			return
		}
		if old, ok := best[rt.prefix]; !ok || n.preferred(r, rt, old) {
			best[rt.prefix] = rt
		}
	}
	for _, nb := range n.sessions[r] {
		if nb.Type == EBGP {
			for _, adv := range n.adverts[nb.ID] {
				consider(route{
					prefix:    adv.Prefix,
					asPath:    adv.AsPath,
					localPref: defaultLocalPref,
					egress:    nb.ID,
					from:      nb.ID,
					fromType:  EBGP,
				})
			}
			continue
		}
		// The sender's view of r decides whether it reflects a route.
		senderView, _ := n.SessionType(nb.ID, r)
		for _, sel := range cur[nb.ID] {
			if !exportAllowed(sel, senderView, r) {
				continue
			}
			out, ok := applyRouteMaps(mapsOf(nb.ID).out, r, sel)
			if !ok {
				continue
			}
			egress := out.egress
			if out.fromType == EBGP {
				egress = nb.ID
			}
			if egress == r {
				continue
			}
			if _, ok := n.igp.cost(r, egress); !ok {
				continue
			}
			consider(route{
				prefix:    out.prefix,
				asPath:    out.asPath,
				localPref: out.localPref,
				egress:    egress,
				from:      nb.ID,
				fromType:  nb.Type,
			})
		}
	}
	return best
}

// exportAllowed implements the iBGP export rules. Routes learned over eBGP or
// from a client go to every iBGP neighbor, routes learned from a non-client
// only to clients. Nothing is sent back to where it came from.
func exportAllowed(sel route, receiverType SessionType, receiver RouterID) bool {
	if sel.from == receiver {
		return false
	}
	switch sel.fromType {
	case EBGP, IBGPClient:
		return true
	default:
		return receiverType == IBGPClient
	}
}

// preferred reports whether a is better than b at router r.
func (n *Network) preferred(r RouterID, a, b route) bool {
	if a.localPref != b.localPref {
		return a.localPref > b.localPref
	}
	if len(a.asPath) != len(b.asPath) {
		return len(a.asPath) < len(b.asPath)
	}
	aExt, bExt := a.fromType == EBGP, b.fromType == EBGP
	if aExt != bExt {
		return aExt
	}
	if ca, cb := n.egressCost(r, a), n.egressCost(r, b); ca != cb {
		return ca < cb
	}
	return a.from < b.from
}

func (n *Network) egressCost(r RouterID, rt route) float64 {
	if rt.fromType == EBGP {
		return 0
	}
	c, _ := n.igp.cost(r, rt.egress)
	return c
}

func selectionsEqual(a, b []map[Prefix]route) bool {
	for i := range b {
		if len(a[i]) != len(b[i]) {
			return false
		}
		for p, rt := range b[i] {
			old, ok := a[i][p]
			if !ok || !old.equal(rt) {
				return false
			}
		}
	}
	return true
}

// SelectedEgress returns the egress of the route r selected for p. For routes
// learned over eBGP this is the external neighbor.
func (n *Network) SelectedEgress(r RouterID, p Prefix) (RouterID, bool) {
	if !n.isInternal(r) {
		return 0, false
	}
	rt, ok := n.selected[r][p]
	if !ok {
		return 0, false
	}
	return rt.egress, true
}

// SelectedPrefixes returns the prefixes r has a BGP route for.
func (n *Network) SelectedPrefixes(r RouterID) []Prefix {
	if !n.isInternal(r) {
		return nil
	}
	return slices.Sorted(maps.Keys(n.selected[r]))
}
