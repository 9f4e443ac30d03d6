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

// Package zone decomposes a network into overlapping zones that can be
// reconfigured independently.
//
// A zone is anchored at a router that is neither a boundary router nor the
// client of any route reflector. Its members are the routers whose
// advertisements can reach the anchor. Modifiers are bound to the zones they
// influence, global reachability conditions are split into zone local ones
// and every zone gets an emulated network in which traffic leaving the zone
// is short cut to the external router it ultimately reaches.
package zone

import (
	"maps"
	"slices"

	"github.com/netupdate/netupdate/pkg/netsim"
	"github.com/netupdate/netupdate/pkg/policy"
	"github.com/netupdate/netupdate/pkg/private/serrors"
	"github.com/netupdate/netupdate/pkg/strategy"
)

// Zone is a set of routers solved independently.
type Zone struct {
	// Anchor identifies the zone.
	Anchor netsim.RouterID
	// Members in ascending order. The anchor is a member.
	Members []netsim.RouterID
	// Configs are the indices of the modifiers bound to the zone, ascending.
	Configs []strategy.ConfigID
	// Policy holds the zone local conditions.
	Policy *policy.HardPolicy
	// Boundary lists the members with a link leaving the zone.
	Boundary []netsim.RouterID
	// Net is the emulated network, set by Emulate. It is a full copy of
	// the network with virtual links added on boundary members; routers
	// outside the zone keep their configuration and keep forwarding.
	Net *netsim.Network

	members map[netsim.RouterID]struct{}
}

func newZone(anchor netsim.RouterID, members []netsim.RouterID) *Zone {
	z := &Zone{
		Anchor:  anchor,
		Policy:  policy.NewGlobally(nil),
		members: make(map[netsim.RouterID]struct{}, len(members)),
	}
	for _, m := range members {
		z.members[m] = struct{}{}
	}
	z.Members = slices.Sorted(maps.Keys(z.members))
	return z
}

// Contains reports whether r is a member of the zone.
func (z *Zone) Contains(r netsim.RouterID) bool {
	_, ok := z.members[r]
	return ok
}

// Modifiers returns the modifiers bound to the zone.
func (z *Zone) Modifiers(mods []netsim.Modifier) ([]netsim.Modifier, error) {
	out := make([]netsim.Modifier, 0, len(z.Configs))
	for _, id := range z.Configs {
		if id < 0 || id >= len(mods) {
			return nil, serrors.Join(strategy.ErrZoneSegmentationFailed, nil,
				"anchor", z.Anchor, "config", id, "modifiers", len(mods))
		}
		out = append(out, mods[id])
	}
	return out, nil
}

// IsAnchor reports whether r anchors a zone: it has no eBGP session and is
// not the client of any of its session partners.
func IsAnchor(net *netsim.Network, r netsim.RouterID) bool {
	if net.IsExternal(r) {
		return false
	}
	for _, nb := range net.Sessions(r) {
		if nb.Type == netsim.EBGP || net.IsClientOf(r, nb.ID) {
			return false
		}
	}
	return true
}

// Partition returns the zones of net in anchor order.
func Partition(net *netsim.Network) []*Zone {
	var zones []*Zone
	for _, r := range net.Routers() {
		if !IsAnchor(net, r) {
			continue
		}
		zones = append(zones, newZone(r, collectMembers(net, r)))
	}
	return zones
}

// collectMembers walks the iBGP sessions from the anchor. Clients are always
// visited. A non-client neighbor is visited only if it is a reflector or
// boundary router and the current router forwards its routes toward the
// anchor, which holds for the anchor itself and for routers reached from one
// of their own clients.
func collectMembers(net *netsim.Network, anchor netsim.RouterID) []netsim.RouterID {
	type visit struct {
		router netsim.RouterID
		up     bool
	}
	seen := map[netsim.RouterID]bool{anchor: true}
	queue := []visit{{router: anchor, up: true}}
	enqueue := func(r netsim.RouterID, up bool) {
		wasUp, ok := seen[r]
		if ok && (wasUp || !up) {
			return
		}
		seen[r] = up
		queue = append(queue, visit{router: r, up: up})
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, nb := range net.Sessions(cur.router) {
			switch {
			case nb.Type == netsim.EBGP:
			case nb.Type == netsim.IBGPClient:
				enqueue(nb.ID, false)
			case cur.up && net.IsReflectorOrBoundary(nb.ID):
				enqueue(nb.ID, net.IsClientOf(cur.router, nb.ID))
			}
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

// Memberships maps every router to the anchors of the zones containing it,
// in anchor order.
func Memberships(zones []*Zone) map[netsim.RouterID][]netsim.RouterID {
	m := make(map[netsim.RouterID][]netsim.RouterID)
	for _, z := range zones {
		for _, r := range z.Members {
			m[r] = append(m[r], z.Anchor)
		}
	}
	return m
}
