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


// Package scenario loads a migration scenario from TOML. A scenario names
// the routers, physical links and external advertisements of a network, its
// initial and final configuration and optionally the conditions that must
// hold during the migration. Without conditions every internal router must
// reach every advertised prefix.
//
//	[[router]]
//	name = "r1"
//
//	[[external]]
//	name = "e1"
//	as = 65001
//
//	[[link]]
//	a = "r1"
//	b = "e1"
//
//	[[advertisement]]
//	router = "e1"
//	prefix = 0
//	as_path = [65001]
//
//	[[common.session]]
//	source = "r1"
//	target = "e1"
//	type = "ebgp"
//
// The tables common, initial and final each hold session, weight,
// static_route, route_map and acl arrays. Expressions in common are part of
// both configurations.
package scenario

import (
	"os"

	"github.com/netupdate/netupdate/pkg/netsim"
	"github.com/netupdate/netupdate/pkg/policy"
	"github.com/netupdate/netupdate/pkg/private/serrors"
	"github.com/netupdate/netupdate/private/config"
)

// File is the TOML layout of a scenario.
type File struct {
	Routers        []Router        `toml:"router"`
	Externals      []External      `toml:"external"`
	Links          []Link          `toml:"link"`
	Advertisements []Advertisement `toml:"advertisement"`
	Common         Exprs           `toml:"common"`
	Initial        Exprs           `toml:"initial"`
	Final          Exprs           `toml:"final"`
	Conditions     []Condition     `toml:"condition"`
}

type Router struct {
	Name string `toml:"name"`
}

type External struct {
	Name string `toml:"name"`
	AS   uint32 `toml:"as"`
}

// Link is a physical link. If Weight is set, IGP weights in both directions
// are added to the common configuration.
type Link struct {
	A      string  `toml:"a"`
	B      string  `toml:"b"`
	Weight float64 `toml:"weight,omitempty"`
}

type Advertisement struct {
	Router string   `toml:"router"`
	Prefix uint32   `toml:"prefix"`
	AsPath []uint32 `toml:"as_path"`
}

// Exprs are the configuration expressions of one configuration.
type Exprs struct {
	Sessions     []Session     `toml:"session"`
	Weights      []Weight      `toml:"weight"`
	StaticRoutes []StaticRoute `toml:"static_route"`
	RouteMaps    []RouteMap    `toml:"route_map"`
	ACLs         []ACL         `toml:"acl"`
}

type Session struct {
	Source string `toml:"source"`
	Target string `toml:"target"`
	Type   string `toml:"type"`
}

type Weight struct {
	Source string  `toml:"source"`
	Target string  `toml:"target"`
	Weight float64 `toml:"weight"`
}

type StaticRoute struct {
	Router string `toml:"router"`
	Prefix uint32 `toml:"prefix"`
	Target string `toml:"target"`
}

type RouteMap struct {
	Router    string  `toml:"router"`
	Direction string  `toml:"direction"`
	Order     int     `toml:"order"`
	Neighbor  string  `toml:"neighbor,omitempty"`
	Prefix    *uint32 `toml:"prefix,omitempty"`
	Deny      bool    `toml:"deny,omitempty"`
	LocalPref uint32  `toml:"local_pref,omitempty"`
}

type ACL struct {
	Router string   `toml:"router"`
	Accept []string `toml:"accept,omitempty"`
	Deny   []string `toml:"deny,omitempty"`
}

// Condition is one policy condition. Kind is reachable, not_reachable or
// reachable_igp. Target is only used by reachable_igp.
type Condition struct {
	Kind   string `toml:"kind"`
	Router string `toml:"router"`
	Prefix uint32 `toml:"prefix,omitempty"`
	Target string `toml:"target,omitempty"`
}

// Scenario is a loaded scenario. Net is in the initial configuration.
type Scenario struct {
	Net     *netsim.Network
	Initial *netsim.Config
	Final   *netsim.Config
	Policy  *policy.HardPolicy
}

// Modifiers returns the changes from the initial to the final configuration.
func (s *Scenario) Modifiers() []netsim.Modifier {
	return s.Initial.Diff(s.Final)
}

// LoadFile loads the scenario in file.
func LoadFile(file string) (*Scenario, error) {
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, serrors.Wrap("reading scenario", err, "file", file)
	}
	s, err := Decode(raw)
	if err != nil {
		return nil, serrors.Wrap("loading scenario", err, "file", file)
	}
	return s, nil
}

// Decode parses and builds a scenario.
func Decode(raw []byte) (*Scenario, error) {
	var f File
	if err := config.Decode(raw, &f); err != nil {
		return nil, err
	}
	return f.Build()
}

// Build constructs the network and configurations described by f.
func (f *File) Build() (*Scenario, error) {
	b := &builder{net: netsim.New()}
	for _, r := range f.Routers {
		if _, err := b.net.AddRouter(r.Name); err != nil {
			return nil, serrors.Wrap("adding router", err, "router", r.Name)
		}
	}
	for _, e := range f.Externals {
		if _, err := b.net.AddExternalRouter(e.Name, netsim.AsID(e.AS)); err != nil {
			return nil, serrors.Wrap("adding external router", err, "router", e.Name)
		}
	}
	var weights []netsim.Expr
	for _, l := range f.Links {
		a, c := b.id(l.A), b.id(l.B)
		if b.err != nil {
			return nil, b.err
		}
		if err := b.net.AddLink(a, c); err != nil {
			return nil, serrors.Wrap("adding link", err, "a", l.A, "b", l.B)
		}
		if l.Weight != 0 {
			weights = append(weights,
				netsim.IgpLinkWeight{Source: a, Target: c, Weight: l.Weight},
				netsim.IgpLinkWeight{Source: c, Target: a, Weight: l.Weight},
			)
		}
	}
	for _, adv := range f.Advertisements {
		r := b.id(adv.Router)
		if b.err != nil {
			return nil, b.err
		}
		path := make([]netsim.AsID, len(adv.AsPath))
		for i, as := range adv.AsPath {
			path[i] = netsim.AsID(as)
		}
		if err := b.net.AdvertiseExternalRoute(r, netsim.Prefix(adv.Prefix), path...); err != nil {
			return nil, serrors.Wrap("adding advertisement", err, "router", adv.Router)
		}
	}

	common := append(weights, b.exprs(f.Common)...)
	initial := append(append([]netsim.Expr(nil), common...), b.exprs(f.Initial)...)
	final := append(append([]netsim.Expr(nil), common...), b.exprs(f.Final)...)
	if b.err != nil {
		return nil, b.err
	}
	s := &Scenario{Net: b.net}
	var err error
	if s.Initial, err = netsim.NewConfig(initial...); err != nil {
		return nil, serrors.Wrap("building initial config", err)
	}
	if s.Final, err = netsim.NewConfig(final...); err != nil {
		return nil, serrors.Wrap("building final config", err)
	}
	// The final configuration must be valid for the topology as well.
	probe := b.net.Clone()
	if err := probe.SetConfig(s.Final); err != nil {
		return nil, serrors.Wrap("applying final config", err)
	}
	if err := s.Net.SetConfig(s.Initial); err != nil {
		return nil, serrors.Wrap("applying initial config", err)
	}
	if s.Policy, err = b.policy(f.Conditions); err != nil {
		return nil, err
	}
	return s, nil
}

// builder resolves router names. The first failure is kept in err and later
// lookups return zero ids.
type builder struct {
	net *netsim.Network
	err error
}

func (b *builder) id(name string) netsim.RouterID {
	if b.err != nil {
		return 0
	}
	id, err := b.net.RouterByName(name)
	if err != nil {
		b.err = serrors.Wrap("resolving router", err, "router", name)
	}
	return id
}

func (b *builder) ids(names []string) []netsim.RouterID {
	var out []netsim.RouterID
	for _, n := range names {
		out = append(out, b.id(n))
	}
	return out
}

func (b *builder) exprs(e Exprs) []netsim.Expr {
	var out []netsim.Expr
	for _, s := range e.Sessions {
		typ, err := netsim.ParseSessionType(s.Type)
		if err != nil && b.err == nil {
			b.err = serrors.Wrap("parsing session", err, "source", s.Source, "target", s.Target)
		}
		out = append(out, netsim.BgpSession{Source: b.id(s.Source), Target: b.id(s.Target), Type: typ})
	}
	for _, w := range e.Weights {
		out = append(out, netsim.IgpLinkWeight{
			Source: b.id(w.Source), Target: b.id(w.Target), Weight: w.Weight})
	}
	for _, r := range e.StaticRoutes {
		out = append(out, netsim.StaticRoute{
			Router: b.id(r.Router), Prefix: netsim.Prefix(r.Prefix), Target: b.id(r.Target)})
	}
	for _, m := range e.RouteMaps {
		rm := netsim.BgpRouteMap{
			Router:    b.id(m.Router),
			Order:     m.Order,
			Deny:      m.Deny,
			LocalPref: m.LocalPref,
		}
		switch m.Direction {
		case "in", "":
			rm.Direction = netsim.RouteMapIn
		case "out":
			rm.Direction = netsim.RouteMapOut
		default:
			if b.err == nil {
				b.err = serrors.New("unknown route map direction", "direction", m.Direction)
			}
		}
		if m.Neighbor != "" {
			rm.Neighbor, rm.MatchNeighbor = b.id(m.Neighbor), true
		}
		if m.Prefix != nil {
			rm.Prefix, rm.MatchPrefix = netsim.Prefix(*m.Prefix), true
		}
		out = append(out, rm)
	}
	for _, a := range e.ACLs {
		out = append(out, netsim.AccessControl{
			Router: b.id(a.Router), Accept: b.ids(a.Accept), Deny: b.ids(a.Deny)})
	}
	return out
}

func (b *builder) policy(conds []Condition) (*policy.HardPolicy, error) {
	if len(conds) == 0 {
		return policy.Reachability(b.net), nil
	}
	out := make([]policy.Condition, 0, len(conds))
	for _, c := range conds {
		r := b.id(c.Router)
		p := netsim.Prefix(c.Prefix)
		switch c.Kind {
		case "reachable":
			out = append(out, policy.Reachable(r, p))
		case "not_reachable":
			out = append(out, policy.NotReachable(r, p))
		case "reachable_igp":
			out = append(out, policy.ReachableIGP(r, b.id(c.Target)))
		default:
			return nil, serrors.New("unknown condition", "kind", c.Kind)
		}
	}
	if b.err != nil {
		return nil, b.err
	}
	return policy.NewGlobally(out), nil
}
