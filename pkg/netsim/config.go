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
	"fmt"
	"slices"

	"github.com/netupdate/netupdate/pkg/private/serrors"
)

// ExprKind is the kind of a configuration expression.
type ExprKind int

const (
	KindIgpLinkWeight ExprKind = iota
	KindBgpSession
	KindBgpRouteMap
	KindStaticRoute
	KindAccessControl
)

func (k ExprKind) String() string {
	switch k {
	case KindIgpLinkWeight:
		return "igp-link-weight"
	case KindBgpSession:
		return "bgp-session"
	case KindBgpRouteMap:
		return "bgp-route-map"
	case KindStaticRoute:
		return "static-route"
	case KindAccessControl:
		return "access-control"
	default:
		return fmt.Sprintf("expr-kind(%d)", int(k))
	}
}

// ExprKey identifies a configuration expression. A config holds at most one
// expression per key.
type ExprKey struct {
	Kind      ExprKind
	A, B      RouterID
	Prefix    Prefix
	Direction RouteMapDirection
	Order     int
}

func compareKeys(a, b ExprKey) int {
	return cmp.Or(
		cmp.Compare(a.Kind, b.Kind),
		cmp.Compare(a.A, b.A),
		cmp.Compare(a.B, b.B),
		cmp.Compare(a.Prefix, b.Prefix),
		cmp.Compare(a.Direction, b.Direction),
		cmp.Compare(a.Order, b.Order),
	)
}

// Expr is a single configuration expression.
type Expr interface {
	Key() ExprKey
	String() string
}

// IgpLinkWeight sets the weight of the directed link Source to Target.
type IgpLinkWeight struct {
	Source, Target RouterID
	Weight         float64
}

func (e IgpLinkWeight) Key() ExprKey {
	return ExprKey{Kind: KindIgpLinkWeight, A: e.Source, B: e.Target}
}

func (e IgpLinkWeight) String() string {
	return fmt.Sprintf("igp-weight(%d->%d=%g)", e.Source, e.Target, e.Weight)
}

// BgpSession establishes a BGP session. For IBGPClient, Target is the client
// of Source. Sessions are keyed by the unordered pair of endpoints.
type BgpSession struct {
	Source, Target RouterID
	Type           SessionType
}

func (e BgpSession) Key() ExprKey {
	a, b := e.Source, e.Target
	if b < a {
		a, b = b, a
	}
	return ExprKey{Kind: KindBgpSession, A: a, B: b}
}

func (e BgpSession) String() string {
	return fmt.Sprintf("bgp-session(%d->%d %s)", e.Source, e.Target, e.Type)
}

// RouteMapDirection is the direction a route map is applied in.
type RouteMapDirection int

const (
	RouteMapIn RouteMapDirection = iota
	RouteMapOut
)

func (d RouteMapDirection) String() string {
	if d == RouteMapOut {
		return "out"
	}
	return "in"
}

// BgpRouteMap filters or modifies routes exchanged with neighbors. Maps of a
// router and direction are evaluated in ascending Order and the first
// matching map decides.
type BgpRouteMap struct {
	Router    RouterID
	Direction RouteMapDirection
	Order     int
	// Neighbor is matched if MatchNeighbor is set.
	Neighbor      RouterID
	MatchNeighbor bool
	// Prefix is matched if MatchPrefix is set.
	Prefix      Prefix
	MatchPrefix bool
	// Deny drops matching routes. Otherwise a non-zero LocalPref is set.
	Deny      bool
	LocalPref uint32
}

func (e BgpRouteMap) Key() ExprKey {
	return ExprKey{Kind: KindBgpRouteMap, A: e.Router, Direction: e.Direction, Order: e.Order}
}

func (e BgpRouteMap) String() string {
	action := fmt.Sprintf("local-pref=%d", e.LocalPref)
	if e.Deny {
		action = "deny"
	}
	return fmt.Sprintf("route-map(%d %s #%d %s)", e.Router, e.Direction, e.Order, action)
}

func (e BgpRouteMap) matches(neighbor RouterID, p Prefix) bool {
	if e.MatchNeighbor && e.Neighbor != neighbor {
		return false
	}
	if e.MatchPrefix && e.Prefix != p {
		return false
	}
	return true
}

// StaticRoute forces the next hop of Router toward Prefix to Target, which
// must be a physical neighbor.
type StaticRoute struct {
	Router RouterID
	Prefix Prefix
	Target RouterID
}

func (e StaticRoute) Key() ExprKey {
	return ExprKey{Kind: KindStaticRoute, A: e.Router, Prefix: e.Prefix}
}

func (e StaticRoute) String() string {
	return fmt.Sprintf("static-route(%d %s via %d)", e.Router, e.Prefix, e.Target)
}

// AccessControl filters traffic traversing Router by its source. If Accept is
// non-empty only flows from the listed sources pass, otherwise flows from the
// sources in Deny are dropped.
type AccessControl struct {
	Router RouterID
	Accept []RouterID
	Deny   []RouterID
}

func (e AccessControl) Key() ExprKey {
	return ExprKey{Kind: KindAccessControl, A: e.Router}
}

func (e AccessControl) String() string {
	if len(e.Accept) != 0 {
		return fmt.Sprintf("acl(%d accept %v)", e.Router, e.Accept)
	}
	return fmt.Sprintf("acl(%d deny %v)", e.Router, e.Deny)
}

// Allows reports whether traffic originating at src may pass.
func (e AccessControl) Allows(src RouterID) bool {
	if len(e.Accept) != 0 {
		return slices.Contains(e.Accept, src)
	}
	return !slices.Contains(e.Deny, src)
}

// ExprEqual reports whether two expressions are identical.
func ExprEqual(a, b Expr) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	aa, okA := a.(AccessControl)
	ba, okB := b.(AccessControl)
	if okA || okB {
		return okA && okB && aa.Router == ba.Router &&
			slices.Equal(aa.Accept, ba.Accept) && slices.Equal(aa.Deny, ba.Deny)
	}
	return a == b
}

// ModifierKind is the kind of a configuration change.
type ModifierKind int

const (
	Insert ModifierKind = iota
	Remove
	Update
)

func (k ModifierKind) String() string {
	switch k {
	case Insert:
		return "insert"
	case Remove:
		return "remove"
	case Update:
		return "update"
	default:
		return fmt.Sprintf("modifier-kind(%d)", int(k))
	}
}

// Modifier is an atomic configuration change. For Update, Expr is replaced by
// To; both must have the same key.
type Modifier struct {
	Kind ModifierKind
	Expr Expr
	To   Expr
}

// InsertExpr returns a modifier inserting e.
func InsertExpr(e Expr) Modifier { return Modifier{Kind: Insert, Expr: e} }

// RemoveExpr returns a modifier removing e.
func RemoveExpr(e Expr) Modifier { return Modifier{Kind: Remove, Expr: e} }

// UpdateExpr returns a modifier replacing from by to.
func UpdateExpr(from, to Expr) Modifier { return Modifier{Kind: Update, Expr: from, To: to} }

// Key returns the key of the expression the modifier changes.
func (m Modifier) Key() ExprKey {
	return m.Expr.Key()
}

// Inverse returns the modifier that undoes m.
func (m Modifier) Inverse() Modifier {
	switch m.Kind {
	case Insert:
		return RemoveExpr(m.Expr)
	case Remove:
		return InsertExpr(m.Expr)
	default:
		return UpdateExpr(m.To, m.Expr)
	}
}

// Equal reports whether two modifiers perform the same change.
func (m Modifier) Equal(o Modifier) bool {
	return m.Kind == o.Kind && ExprEqual(m.Expr, o.Expr) && ExprEqual(m.To, o.To)
}

func (m Modifier) String() string {
	if m.Kind == Update {
		return fmt.Sprintf("update %s -> %s", m.Expr, m.To)
	}
	return fmt.Sprintf("%s %s", m.Kind, m.Expr)
}

// Config is a set of configuration expressions.
type Config struct {
	exprs map[ExprKey]Expr
}

// NewConfig returns a config holding the given expressions.
func NewConfig(exprs ...Expr) (*Config, error) {
	c := &Config{exprs: make(map[ExprKey]Expr, len(exprs))}
	for _, e := range exprs {
		if err := c.Add(e); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Add inserts e. Adding a second expression with the same key fails.
func (c *Config) Add(e Expr) error {
	if c.exprs == nil {
		c.exprs = make(map[ExprKey]Expr)
	}
	if old, ok := c.exprs[e.Key()]; ok {
		return serrors.Join(ErrExprExists, nil, "expr", e, "existing", old)
	}
	c.exprs[e.Key()] = e
	return nil
}

// Get returns the expression with key k.
func (c *Config) Get(k ExprKey) (Expr, bool) {
	e, ok := c.exprs[k]
	return e, ok
}

// Len returns the number of expressions.
func (c *Config) Len() int {
	return len(c.exprs)
}

// Exprs returns all expressions ordered by key.
func (c *Config) Exprs() []Expr {
	keys := c.keys()
	exprs := make([]Expr, 0, len(keys))
	for _, k := range keys {
		exprs = append(exprs, c.exprs[k])
	}
	return exprs
}

func (c *Config) keys() []ExprKey {
	keys := make([]ExprKey, 0, len(c.exprs))
	for k := range c.exprs {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeys)
	return keys
}

// Apply applies m to the config. The config is unchanged if Apply fails.
func (c *Config) Apply(m Modifier) error {
	if m.Expr == nil {
		return serrors.Join(ErrInvalidExpr, nil, "modifier", m.Kind)
	}
	k := m.Expr.Key()
	old, exists := c.exprs[k]
	switch m.Kind {
	case Insert:
		return c.Add(m.Expr)
	case Remove:
		if !exists {
			return serrors.Join(ErrExprMissing, nil, "expr", m.Expr)
		}
		if !ExprEqual(old, m.Expr) {
			return serrors.Join(ErrExprMismatch, nil, "expr", m.Expr, "existing", old)
		}
		delete(c.exprs, k)
		return nil
	case Update:
		if m.To == nil || m.To.Key() != k {
			return serrors.Join(ErrExprMismatch, nil, "from", m.Expr, "to", m.To)
		}
		if !exists {
			return serrors.Join(ErrExprMissing, nil, "expr", m.Expr)
		}
		if !ExprEqual(old, m.Expr) {
			return serrors.Join(ErrExprMismatch, nil, "expr", m.Expr, "existing", old)
		}
		c.exprs[k] = m.To
		return nil
	default:
		return serrors.Join(ErrInvalidExpr, nil, "modifier", m.Kind)
	}
}

// Clone returns a copy of the config.
func (c *Config) Clone() *Config {
	n := &Config{exprs: make(map[ExprKey]Expr, len(c.exprs))}
	for k, e := range c.exprs {
		n.exprs[k] = e
	}
	return n
}

// Diff returns the modifiers transforming c into target, ordered by key.
func (c *Config) Diff(target *Config) []Modifier {
	keys := c.keys()
	for _, k := range target.keys() {
		if _, ok := c.exprs[k]; !ok {
			keys = append(keys, k)
		}
	}
	slices.SortFunc(keys, compareKeys)
	var mods []Modifier
	for _, k := range keys {
		from, inSelf := c.exprs[k]
		to, inTarget := target.exprs[k]
		switch {
		case inSelf && !inTarget:
			mods = append(mods, RemoveExpr(from))
		case !inSelf && inTarget:
			mods = append(mods, InsertExpr(to))
		case !ExprEqual(from, to):
			mods = append(mods, UpdateExpr(from, to))
		}
	}
	return mods
}
