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


package main

import (
	"fmt"
	"strings"

	"github.com/netupdate/netupdate/pkg/netsim"
	"github.com/netupdate/netupdate/private/scenario"
)

// describe renders a modifier with router names instead of ids.
func describe(sc *scenario.Scenario, m netsim.Modifier) string {
	if m.Kind == netsim.Update {
		return fmt.Sprintf("update %s -> %s", describeExpr(sc.Net, m.Expr), describeExpr(sc.Net, m.To))
	}
	return fmt.Sprintf("%s %s", m.Kind, describeExpr(sc.Net, m.Expr))
}

func describeExpr(net *netsim.Network, e netsim.Expr) string {
	name := net.Name
	switch e := e.(type) {
	case netsim.BgpSession:
		return fmt.Sprintf("bgp-session(%s->%s %s)", name(e.Source), name(e.Target), e.Type)
	case netsim.IgpLinkWeight:
		return fmt.Sprintf("igp-weight(%s->%s=%g)", name(e.Source), name(e.Target), e.Weight)
	case netsim.StaticRoute:
		return fmt.Sprintf("static-route(%s %s via %s)", name(e.Router), e.Prefix, name(e.Target))
	case netsim.BgpRouteMap:
		action := fmt.Sprintf("local-pref=%d", e.LocalPref)
		if e.Deny {
			action = "deny"
		}
		return fmt.Sprintf("route-map(%s %s #%d %s)", name(e.Router), e.Direction, e.Order, action)
	case netsim.AccessControl:
		names := func(ids []netsim.RouterID) string {
			s := make([]string, len(ids))
			for i, id := range ids {
				s[i] = name(id)
			}
			return strings.Join(s, ",")
		}
		if len(e.Accept) != 0 {
			return fmt.Sprintf("acl(%s accept %s)", name(e.Router), names(e.Accept))
		}
		return fmt.Sprintf("acl(%s deny %s)", name(e.Router), names(e.Deny))
	default:
		return fmt.Sprint(e)
	}
}
