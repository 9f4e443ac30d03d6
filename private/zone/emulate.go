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
	"github.com/netupdate/netupdate/pkg/fwstate"
	"github.com/netupdate/netupdate/pkg/netsim"
	"github.com/netupdate/netupdate/pkg/private/serrors"
)

// Emulate builds the emulated network of the zone from a clone of net. Every
// boundary member whose next hop toward a prefix leaves the zone toward an
// internal router, in the before or in the after state, gets a virtual link
// to the external router that traffic finally reaches.
func (z *Zone) Emulate(net *netsim.Network, before, after *fwstate.State) error {
	z.Net = net.Clone()
	z.Boundary = net.VirtualBoundaryRouters(z.Members)
	prefixes := net.KnownPrefixes()
	for _, r := range z.Boundary {
		var links []netsim.VirtualLink
		for _, p := range prefixes {
			for _, fw := range []*fwstate.State{before, after} {
				path, err := fw.Route(r, p)
				if err != nil || len(path) < 2 {
					continue
				}
				nh := path[1]
				if z.Contains(nh) || net.IsExternal(nh) {
					continue
				}
				links = append(links, netsim.VirtualLink{
					NextHop:  nh,
					Prefix:   p,
					External: path[len(path)-1],
				})
			}
		}
		if err := z.Net.SetVirtualLinks(r, links); err != nil {
			return serrors.Wrap("installing virtual links", err, "anchor", z.Anchor, "router", r)
		}
	}
	return nil
}
