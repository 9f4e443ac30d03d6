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
	"github.com/netupdate/netupdate/pkg/netsim"
	"github.com/netupdate/netupdate/pkg/strategy"
)

// Bind assigns every modifier to the zones it influences and stores the
// indices in Zone.Configs. A modifier may be bound to several zones or to
// none.
func Bind(net *netsim.Network, zones []*Zone, mods []netsim.Modifier) {
	for _, z := range zones {
		z.Configs = z.Configs[:0]
		for i, m := range mods {
			if binds(net, z, m) {
				z.Configs = append(z.Configs, i)
			}
		}
	}
}

// Unbound returns the indices of the modifiers bound to no zone.
func Unbound(zones []*Zone, n int) []strategy.ConfigID {
	bound := make([]bool, n)
	for _, z := range zones {
		for _, id := range z.Configs {
			if id >= 0 && id < n {
				bound[id] = true
			}
		}
	}
	var out []strategy.ConfigID
	for i, b := range bound {
		if !b {
			out = append(out, i)
		}
	}
	return out
}

func binds(net *netsim.Network, z *Zone, m netsim.Modifier) bool {
	if m.Kind == netsim.Update {
		return bindsUpdate(z, m)
	}
	switch e := m.Expr.(type) {
	case netsim.BgpSession:
		src, dst := z.Contains(e.Source), z.Contains(e.Target)
		switch {
		case src && dst:
			return true
		case src:
			if e.Type == netsim.IBGPClient || e.Type == netsim.EBGP {
				return true
			}
			return net.IsReflectorOrBoundary(e.Target) && !net.IsClientOf(e.Source, e.Target)
		}
		return false
	case netsim.BgpRouteMap:
		return z.Contains(e.Router)
	case netsim.StaticRoute:
		return z.Contains(e.Router)
	case netsim.AccessControl:
		return z.Contains(e.Router)
	case netsim.IgpLinkWeight:
		return z.Contains(e.Source) && z.Contains(e.Target)
	}
	return false
}

func bindsUpdate(z *Zone, m netsim.Modifier) bool {
	switch from := m.Expr.(type) {
	case netsim.BgpSession:
		to, ok := m.To.(netsim.BgpSession)
		if !ok {
			return false
		}
		src, dst := z.Contains(from.Source), z.Contains(from.Target)
		switch {
		case src && dst:
			return true
		case src:
			return from.Type == netsim.IBGPClient || to.Type == netsim.IBGPClient
		}
		return false
	case netsim.BgpRouteMap:
		return z.Contains(from.Router)
	case netsim.StaticRoute:
		return z.Contains(from.Router)
	case netsim.AccessControl:
		return z.Contains(from.Router)
	case netsim.IgpLinkWeight:
		return z.Contains(from.Source) && z.Contains(from.Target)
	}
	return false
}
