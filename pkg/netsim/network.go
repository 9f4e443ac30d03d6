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
	"fmt"
	"maps"
	"slices"

	"github.com/netupdate/netupdate/pkg/private/serrors"
)

type device struct {
	name     string
	external bool
	as       AsID
}

type virtualKey struct {
	nextHop RouterID
	prefix  Prefix
}

// Network is a simulated network. The zero value is not usable, use New.
//
// Every mutation recomputes the IGP and BGP outcome. A Network is not safe for
// concurrent mutation; use Clone to hand independent copies to goroutines.
type Network struct {
	devices []device
	names   map[string]RouterID
	links   [][]RouterID
	adverts map[RouterID][]Advertisement
	config  *Config
	virtual map[RouterID]map[virtualKey]RouterID

	// Derived state, replaced as a whole by recompute and therefore shared
	// between clones.
	sessions [][]Neighbor
	igp      *igpTable
	selected []map[Prefix]route
	nextHop  []map[Prefix]RouterID
}

// New returns an empty network.
func New() *Network {
	n := &Network{
		names:   make(map[string]RouterID),
		adverts: make(map[RouterID][]Advertisement),
		config:  &Config{exprs: make(map[ExprKey]Expr)},
		virtual: make(map[RouterID]map[virtualKey]RouterID),
	}
	// An empty network always converges.
	_ = n.recompute()
	return n
}

func (n *Network) addDevice(d device) (RouterID, error) {
	if _, ok := n.names[d.name]; ok {
		return 0, serrors.Join(ErrDuplicateName, nil, "name", d.name)
	}
	id := RouterID(len(n.devices))
	n.devices = append(n.devices, d)
	n.links = append(n.links, nil)
	n.names[d.name] = id
	return id, n.recompute()
}

// AddRouter adds an internal router.
func (n *Network) AddRouter(name string) (RouterID, error) {
	return n.addDevice(device{name: name})
}

// AddExternalRouter adds an external router of the given AS.
func (n *Network) AddExternalRouter(name string, as AsID) (RouterID, error) {
	return n.addDevice(device{name: name, external: true, as: as})
}

// AddLink adds an undirected physical link. Adding an existing link is a
// no-op. External routers may only be linked to internal routers.
func (n *Network) AddLink(a, b RouterID) error {
	if err := n.checkDevice(a); err != nil {
		return err
	}
	if err := n.checkDevice(b); err != nil {
		return err
	}
	if a == b || (n.devices[a].external && n.devices[b].external) {
		return serrors.Join(ErrInvalidLink, nil, "a", a, "b", b)
	}
	if n.HasLink(a, b) {
		return nil
	}
	n.links[a] = insertSorted(n.links[a], b)
	n.links[b] = insertSorted(n.links[b], a)
	return n.recompute()
}

// AdvertiseExternalRoute makes external router ext announce prefix p.
func (n *Network) AdvertiseExternalRoute(ext RouterID, p Prefix, asPath ...AsID) error {
	if err := n.checkDevice(ext); err != nil {
		return err
	}
	if !n.devices[ext].external {
		return serrors.Join(ErrDeviceNotFound, nil, "external", ext)
	}
	if len(asPath) == 0 {
		asPath = []AsID{n.devices[ext].as}
	}
	advs := slices.DeleteFunc(slices.Clone(n.adverts[ext]), func(a Advertisement) bool {
		return a.Prefix == p
	})
	advs = append(advs, Advertisement{Prefix: p, AsPath: slices.Clone(asPath)})
	slices.SortFunc(advs, func(a, b Advertisement) int { return int(a.Prefix) - int(b.Prefix) })
	n.adverts[ext] = advs
	return n.recompute()
}

// SetConfig replaces the configuration. The network is unchanged on error.
func (n *Network) SetConfig(c *Config) error {
	for _, e := range c.Exprs() {
		if err := n.validateExpr(e); err != nil {
			return err
		}
	}
	old := n.config
	n.config = c.Clone()
	if err := n.recompute(); err != nil {
		n.config = old
		_ = n.recompute()
		return err
	}
	return nil
}

// Config returns a copy of the current configuration.
func (n *Network) Config() *Config {
	return n.config.Clone()
}

// ApplyModifier applies m and recomputes the network state. The network is
// unchanged on error.
func (n *Network) ApplyModifier(m Modifier) error {
	switch m.Kind {
	case Insert:
		if err := n.validateExpr(m.Expr); err != nil {
			return err
		}
	case Update:
		if m.To == nil {
			return serrors.Join(ErrExprMismatch, nil, "from", m.Expr)
		}
		if err := n.validateExpr(m.To); err != nil {
			return err
		}
	}
	if err := n.config.Apply(m); err != nil {
		return err
	}
	if err := n.recompute(); err != nil {
		// Rolling back restores a state that was computed before.
		_ = n.config.Apply(m.Inverse())
		_ = n.recompute()
		return serrors.Wrap("applying modifier", err, "modifier", m)
	}
	return nil
}

// ApplyModifiers applies all modifiers in order and stops at the first error.
func (n *Network) ApplyModifiers(mods []Modifier) error {
	for i, m := range mods {
		if err := n.ApplyModifier(m); err != nil {
			return serrors.Wrap("applying modifiers", err, "index", i)
		}
	}
	return nil
}

// UndoModifier reverts a previously applied modifier.
func (n *Network) UndoModifier(m Modifier) error {
	return n.ApplyModifier(m.Inverse())
}

// ApplyModifiersCheckNextHop applies mods in order and reports, for every
// step, which of the given routers changed their next hop toward any prefix.
func (n *Network) ApplyModifiersCheckNextHop(routers []RouterID,
	mods []Modifier) ([][]RouterID, error) {

	prefixes := n.KnownPrefixes()
	snapshot := func() map[RouterID][]RouterID {
		s := make(map[RouterID][]RouterID, len(routers))
		for _, r := range routers {
			hops := make([]RouterID, len(prefixes))
			for i, p := range prefixes {
				nh, ok := n.NextHop(r, p)
				if !ok {
					nh = r
				}
				hops[i] = nh
			}
			s[r] = hops
		}
		return s
	}
	touched := make([][]RouterID, 0, len(mods))
	before := snapshot()
	for i, m := range mods {
		if err := n.ApplyModifier(m); err != nil {
			return nil, serrors.Wrap("applying modifiers", err, "index", i)
		}
		after := snapshot()
		var changed []RouterID
		for _, r := range routers {
			if !slices.Equal(before[r], after[r]) {
				changed = append(changed, r)
			}
		}
		touched = append(touched, changed)
		before = after
	}
	return touched, nil
}

// Clone returns an independent copy of the network.
func (n *Network) Clone() *Network {
	c := &Network{
		devices:  slices.Clone(n.devices),
		names:    maps.Clone(n.names),
		links:    make([][]RouterID, len(n.links)),
		adverts:  maps.Clone(n.adverts),
		config:   n.config.Clone(),
		virtual:  make(map[RouterID]map[virtualKey]RouterID, len(n.virtual)),
		sessions: n.sessions,
		igp:      n.igp,
		selected: n.selected,
		nextHop:  n.nextHop,
	}
	for i, l := range n.links {
		c.links[i] = slices.Clone(l)
	}
	for r, v := range n.virtual {
		c.virtual[r] = maps.Clone(v)
	}
	return c
}

func (n *Network) checkDevice(r RouterID) error {
	if int(r) >= len(n.devices) {
		return serrors.Join(ErrDeviceNotFound, nil, "router", r)
	}
	return nil
}

func (n *Network) isInternal(r RouterID) bool {
	return int(r) < len(n.devices) && !n.devices[r].external
}

func (n *Network) validateExpr(e Expr) error {
	invalid := func(reason string) error {
		return serrors.Join(ErrInvalidExpr, nil, "expr", e, "reason", reason)
	}
	switch e := e.(type) {
	case IgpLinkWeight:
		if !n.isInternal(e.Source) || !n.isInternal(e.Target) {
			return invalid("igp weights connect internal routers")
		}
		if !n.HasLink(e.Source, e.Target) {
			return serrors.Join(ErrInvalidLink, nil, "a", e.Source, "b", e.Target)
		}
		if !(e.Weight > 0) {
			return invalid("weight must be positive")
		}
	case BgpSession:
		if err := n.checkDevice(e.Source); err != nil {
			return err
		}
		if err := n.checkDevice(e.Target); err != nil {
			return err
		}
		if e.Source == e.Target {
			return invalid("session with itself")
		}
		ext := n.devices[e.Source].external || n.devices[e.Target].external
		switch {
		case e.Type == EBGP && !ext:
			return invalid("ebgp session between internal routers")
		case e.Type == EBGP && n.devices[e.Source].external == n.devices[e.Target].external:
			return invalid("ebgp session between external routers")
		case e.Type == EBGP && !n.HasLink(e.Source, e.Target):
			return serrors.Join(ErrInvalidLink, nil, "a", e.Source, "b", e.Target)
		case e.Type != EBGP && ext:
			return invalid("ibgp session with external router")
		}
	case BgpRouteMap:
		if !n.isInternal(e.Router) {
			return invalid("route maps are installed on internal routers")
		}
	case StaticRoute:
		if !n.isInternal(e.Router) {
			return invalid("static routes are installed on internal routers")
		}
		if !n.HasLink(e.Router, e.Target) {
			return serrors.Join(ErrInvalidLink, nil, "a", e.Router, "b", e.Target)
		}
	case AccessControl:
		if !n.isInternal(e.Router) {
			return invalid("acls are installed on internal routers")
		}
	case nil:
		return invalid("nil expression")
	default:
		return invalid(fmt.Sprintf("unsupported expression %T", e))
	}
	return nil
}

// NumDevices returns the number of internal and external routers.
func (n *Network) NumDevices() int {
	return len(n.devices)
}

// Routers returns the internal routers in id order.
func (n *Network) Routers() []RouterID {
	var ids []RouterID
	for i, d := range n.devices {
		if !d.external {
			ids = append(ids, RouterID(i))
		}
	}
	return ids
}

// ExternalRouters returns the external routers in id order.
func (n *Network) ExternalRouters() []RouterID {
	var ids []RouterID
	for i, d := range n.devices {
		if d.external {
			ids = append(ids, RouterID(i))
		}
	}
	return ids
}

// IsExternal reports whether r is an external router.
func (n *Network) IsExternal(r RouterID) bool {
	return int(r) < len(n.devices) && n.devices[r].external
}

// AS returns the AS of an external router.
func (n *Network) AS(r RouterID) (AsID, bool) {
	if !n.IsExternal(r) {
		return 0, false
	}
	return n.devices[r].as, true
}

// Name returns the name of r.
func (n *Network) Name(r RouterID) string {
	if int(r) >= len(n.devices) {
		return fmt.Sprintf("#%d", r)
	}
	return n.devices[r].name
}

// RouterByName looks up a device by name.
func (n *Network) RouterByName(name string) (RouterID, error) {
	id, ok := n.names[name]
	if !ok {
		return 0, serrors.Join(ErrDeviceNotFound, nil, "name", name)
	}
	return id, nil
}

// Neighbors returns the physical neighbors of r in id order.
func (n *Network) Neighbors(r RouterID) []RouterID {
	if int(r) >= len(n.links) {
		return nil
	}
	return slices.Clone(n.links[r])
}

// HasLink reports whether a and b are physically connected.
func (n *Network) HasLink(a, b RouterID) bool {
	if int(a) >= len(n.links) {
		return false
	}
	_, ok := slices.BinarySearch(n.links[a], b)
	return ok
}

// KnownPrefixes returns every advertised prefix in ascending order.
func (n *Network) KnownPrefixes() []Prefix {
	set := make(map[Prefix]struct{})
	for _, advs := range n.adverts {
		for _, a := range advs {
			set[a.Prefix] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(set))
}

// Advertises reports whether external router r announces p.
func (n *Network) Advertises(r RouterID, p Prefix) bool {
	return slices.ContainsFunc(n.adverts[r], func(a Advertisement) bool {
		return a.Prefix == p
	})
}

// Sessions returns the BGP sessions of r as seen from r, in neighbor order.
func (n *Network) Sessions(r RouterID) []Neighbor {
	if int(r) >= len(n.sessions) {
		return nil
	}
	return slices.Clone(n.sessions[r])
}

// SessionType returns the type of the session between a and b as seen from a.
func (n *Network) SessionType(a, b RouterID) (SessionType, bool) {
	if int(a) >= len(n.sessions) {
		return 0, false
	}
	i, ok := slices.BinarySearchFunc(n.sessions[a], b, func(nb Neighbor, id RouterID) int {
		return int(nb.ID) - int(id)
	})
	if !ok {
		return 0, false
	}
	return n.sessions[a][i].Type, true
}

// IsClientOf reports whether a is a route reflector client of b.
func (n *Network) IsClientOf(a, b RouterID) bool {
	t, ok := n.SessionType(b, a)
	return ok && t == IBGPClient
}

// IsReflectorOrBoundary reports whether r has an eBGP session or at least one
// route reflector client.
func (n *Network) IsReflectorOrBoundary(r RouterID) bool {
	if int(r) >= len(n.sessions) {
		return false
	}
	for _, nb := range n.sessions[r] {
		if nb.Type == EBGP || nb.Type == IBGPClient {
			return true
		}
	}
	return false
}

// NextHop returns the next hop of r toward prefix p. External routers have no
// next hop.
func (n *Network) NextHop(r RouterID, p Prefix) (RouterID, bool) {
	if !n.isInternal(r) {
		return 0, false
	}
	nh, ok := n.nextHop[r][p]
	if !ok {
		return 0, false
	}
	if ext, ok := n.virtual[r][virtualKey{nextHop: nh, prefix: p}]; ok {
		return ext, true
	}
	return nh, true
}

// IGPNextHop returns the IGP next hop of r toward device d. For d == r the
// router itself is returned. External destinations are reached through the
// closest internal router attached to them.
func (n *Network) IGPNextHop(r, d RouterID) (RouterID, bool) {
	if !n.isInternal(r) || int(d) >= len(n.devices) {
		return 0, false
	}
	if r == d {
		return r, true
	}
	if !n.devices[d].external {
		return n.igp.next(r, d)
	}
	if n.HasLink(r, d) {
		return d, true
	}
	gw, ok := n.igpGateway(r, d)
	if !ok {
		return 0, false
	}
	return n.igp.next(r, gw)
}

// IGPCost returns the IGP distance from r to internal router d.
func (n *Network) IGPCost(r, d RouterID) (float64, bool) {
	if !n.isInternal(r) || !n.isInternal(d) {
		return 0, false
	}
	return n.igp.cost(r, d)
}

func (n *Network) igpGateway(r, ext RouterID) (RouterID, bool) {
	var best RouterID
	found := false
	bestCost := 0.0
	for _, a := range n.links[ext] {
		c, ok := n.igp.cost(r, a)
		if !ok {
			continue
		}
		if !found || c < bestCost {
			best, bestCost, found = a, c, true
		}
	}
	return best, found
}

// ACL returns the access control list installed on r.
func (n *Network) ACL(r RouterID) (AccessControl, bool) {
	e, ok := n.config.Get(ExprKey{Kind: KindAccessControl, A: r})
	if !ok {
		return AccessControl{}, false
	}
	return e.(AccessControl), true
}

// VirtualBoundaryRouters returns the members that have a physical link to an
// internal router outside of the member set, in id order.
func (n *Network) VirtualBoundaryRouters(members []RouterID) []RouterID {
	set := make(map[RouterID]struct{}, len(members))
	for _, m := range members {
		set[m] = struct{}{}
	}
	var boundary []RouterID
	for _, m := range slices.Sorted(maps.Keys(set)) {
		if !n.isInternal(m) {
			continue
		}
		for _, nb := range n.links[m] {
			if _, in := set[nb]; !in && n.isInternal(nb) {
				boundary = append(boundary, m)
				break
			}
		}
	}
	return boundary
}

// SetVirtualLinks replaces the virtual links of internal router r. If two
// links share next hop and prefix, the first one wins.
func (n *Network) SetVirtualLinks(r RouterID, links []VirtualLink) error {
	if !n.isInternal(r) {
		return serrors.Join(ErrDeviceNotFound, nil, "router", r)
	}
	v := make(map[virtualKey]RouterID, len(links))
	for _, l := range links {
		if !n.IsExternal(l.External) {
			return serrors.Join(ErrInvalidLink, nil, "router", r, "external", l.External)
		}
		k := virtualKey{nextHop: l.NextHop, prefix: l.Prefix}
		if _, ok := v[k]; !ok {
			v[k] = l.External
		}
	}
	if len(v) == 0 {
		delete(n.virtual, r)
		return nil
	}
	n.virtual[r] = v
	return nil
}

// VirtualLinks returns the virtual links of r ordered by prefix and next hop.
func (n *Network) VirtualLinks(r RouterID) []VirtualLink {
	links := make([]VirtualLink, 0, len(n.virtual[r]))
	for k, ext := range n.virtual[r] {
		links = append(links, VirtualLink{NextHop: k.nextHop, Prefix: k.prefix, External: ext})
	}
	slices.SortFunc(links, func(a, b VirtualLink) int {
		if a.Prefix != b.Prefix {
			return int(a.Prefix) - int(b.Prefix)
		}
		return int(a.NextHop) - int(b.NextHop)
	})
	return links
}

func (n *Network) recompute() error {
	n.sessions = n.computeSessions()
	n.igp = n.computeIGP()
	selected, err := n.computeBGP()
	if err != nil {
		return err
	}
	n.selected = selected
	n.nextHop = n.computeNextHops()
	return nil
}

func (n *Network) computeSessions() [][]Neighbor {
	sessions := make([][]Neighbor, len(n.devices))
	for _, e := range n.config.exprs {
		s, ok := e.(BgpSession)
		if !ok {
			continue
		}
		targetView := s.Type
		if s.Type == IBGPClient {
			targetView = IBGPPeer
		}
		sessions[s.Source] = append(sessions[s.Source], Neighbor{ID: s.Target, Type: s.Type})
		sessions[s.Target] = append(sessions[s.Target], Neighbor{ID: s.Source, Type: targetView})
	}
	for _, s := range sessions {
		slices.SortFunc(s, func(a, b Neighbor) int { return int(a.ID) - int(b.ID) })
	}
	return sessions
}

func (n *Network) computeNextHops() []map[Prefix]RouterID {
	hops := make([]map[Prefix]RouterID, len(n.devices))
	for i, d := range n.devices {
		if d.external {
			continue
		}
		r := RouterID(i)
		m := make(map[Prefix]RouterID, len(n.selected[r]))
		for p, rt := range n.selected[r] {
			if rt.fromType == EBGP {
				m[p] = rt.from
				continue
			}
			if nh, ok := n.igp.next(r, rt.egress); ok {
				m[p] = nh
			}
		}
		for _, e := range n.config.exprs {
			if s, ok := e.(StaticRoute); ok && s.Router == r {
				m[s.Prefix] = s.Target
			}
		}
		hops[i] = m
	}
	return hops
}

func insertSorted(s []RouterID, v RouterID) []RouterID {
	i, found := slices.BinarySearch(s, v)
	if found {
		return s
	}
	return slices.Insert(s, i, v)
}
