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

package zone_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netupdate/netupdate/pkg/fwstate"
	"github.com/netupdate/netupdate/pkg/netsim"
	"github.com/netupdate/netupdate/pkg/netsim/netsimtest"
	"github.com/netupdate/netupdate/pkg/policy"
	"github.com/netupdate/netupdate/pkg/strategy"
	"github.com/netupdate/netupdate/private/zone"
)

func states(t *testing.T, s *netsimtest.Sigcomm) (*fwstate.State, *fwstate.State) {
	t.Helper()
	after := s.Net.Clone()
	require.NoError(t, after.ApplyModifiers(s.Modifiers()))
	return fwstate.New(s.Net), fwstate.New(after)
}

func TestPartition(t *testing.T) {
	s := netsimtest.NewSigcomm(t)
	for _, r := range []netsim.RouterID{s.B1, s.B2, s.R1, s.R2, s.E1} {
		assert.False(t, zone.IsAnchor(s.Net, r), s.Net.Name(r))
	}
	zones := zone.Partition(s.Net)
	require.Len(t, zones, 2)
	assert.Equal(t, s.T1, zones[0].Anchor)
	assert.Equal(t, []netsim.RouterID{s.T1, s.B1, s.B2, s.R1}, zones[0].Members)
	assert.Equal(t, s.T2, zones[1].Anchor)
	assert.Equal(t, []netsim.RouterID{s.T2, s.B2, s.R2}, zones[1].Members)
	assert.True(t, zones[0].Contains(s.B2))
	assert.False(t, zones[1].Contains(s.R1))

	member := zone.Memberships(zones)
	assert.Equal(t, []netsim.RouterID{s.T1, s.T2}, member[s.B2])
	assert.Equal(t, []netsim.RouterID{s.T2}, member[s.R2])
	assert.Empty(t, member[s.E1])
}

func TestPartitionMultiLevel(t *testing.T) {
	// top -> mid (client) -> leaf (client); leaf peers with ext. other only
	// peers with top.
	n := netsim.New()
	top, _ := n.AddRouter("top")
	mid, _ := n.AddRouter("mid")
	leaf, _ := n.AddRouter("leaf")
	other, _ := n.AddRouter("other")
	ext, _ := n.AddExternalRouter("ext", 1)
	for _, l := range [][2]netsim.RouterID{{top, mid}, {mid, leaf}, {top, other}, {leaf, ext}} {
		require.NoError(t, n.AddLink(l[0], l[1]))
	}
	cfg, err := netsim.NewConfig(
		netsim.BgpSession{Source: top, Target: mid, Type: netsim.IBGPClient},
		netsim.BgpSession{Source: mid, Target: leaf, Type: netsim.IBGPClient},
		netsim.BgpSession{Source: leaf, Target: ext, Type: netsim.EBGP},
		netsim.BgpSession{Source: top, Target: other, Type: netsim.IBGPPeer},
	)
	require.NoError(t, err)
	require.NoError(t, n.SetConfig(cfg))

	zones := zone.Partition(n)
	require.Len(t, zones, 2)
	assert.Equal(t, []netsim.RouterID{top, mid, leaf}, zones[0].Members)
	// top is a reflector, so the zone of other descends into it and its
	// clients.
	assert.Equal(t, other, zones[1].Anchor)
	assert.Equal(t, []netsim.RouterID{top, mid, leaf, other}, zones[1].Members)
}

func TestBind(t *testing.T) {
	s := netsimtest.NewSigcomm(t)
	zones := zone.Partition(s.Net)
	zone.Bind(s.Net, zones, s.Modifiers())
	assert.Equal(t, []strategy.ConfigID{0, 2}, zones[0].Configs)
	assert.Equal(t, []strategy.ConfigID{1, 3}, zones[1].Configs)
	assert.Empty(t, zone.Unbound(zones, 4))

	testCases := map[string]struct {
		mod  netsim.Modifier
		want []netsim.RouterID
	}{
		"static route": {
			mod:  netsim.InsertExpr(netsim.StaticRoute{Router: s.B1, Prefix: s.P0, Target: s.T1}),
			want: []netsim.RouterID{s.T1},
		},
		"route map on shared router": {
			mod:  netsim.InsertExpr(netsim.BgpRouteMap{Router: s.B2, Direction: netsim.RouteMapIn}),
			want: []netsim.RouterID{s.T1, s.T2},
		},
		"weight across zones": {
			mod:  netsim.UpdateExpr(netsim.IgpLinkWeight{Source: s.R1, Target: s.R2, Weight: 1}, netsim.IgpLinkWeight{Source: s.R1, Target: s.R2, Weight: 5}),
			want: nil,
		},
		"weight inside zone": {
			mod:  netsim.RemoveExpr(netsim.IgpLinkWeight{Source: s.B2, Target: s.R1, Weight: 1}),
			want: []netsim.RouterID{s.T1},
		},
		"peer toward reflector": {
			mod:  netsim.InsertExpr(netsim.BgpSession{Source: s.T1, Target: s.T2, Type: netsim.IBGPPeer}),
			want: []netsim.RouterID{s.T1},
		},
		"member toward foreign reflector": {
			mod:  netsim.InsertExpr(netsim.BgpSession{Source: s.R1, Target: s.T2, Type: netsim.IBGPPeer}),
			want: []netsim.RouterID{s.T1},
		},
		"source outside every zone": {
			mod:  netsim.InsertExpr(netsim.BgpSession{Source: s.E1, Target: s.T1, Type: netsim.EBGP}),
			want: nil,
		},
		"update to client": {
			mod: netsim.UpdateExpr(
				netsim.BgpSession{Source: s.R2, Target: s.B1, Type: netsim.IBGPPeer},
				netsim.BgpSession{Source: s.R2, Target: s.B1, Type: netsim.IBGPClient}),
			want: []netsim.RouterID{s.T2},
		},
		"update between peers": {
			mod: netsim.UpdateExpr(
				netsim.BgpSession{Source: s.R2, Target: s.R1, Type: netsim.IBGPPeer},
				netsim.BgpSession{Source: s.R2, Target: s.R1, Type: netsim.IBGPPeer}),
			want: nil,
		},
		"acl": {
			mod:  netsim.InsertExpr(netsim.AccessControl{Router: s.R2, Deny: []netsim.RouterID{s.T1}}),
			want: []netsim.RouterID{s.T2},
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			zones := zone.Partition(s.Net)
			zone.Bind(s.Net, zones, []netsim.Modifier{tc.mod})
			var got []netsim.RouterID
			for _, z := range zones {
				if len(z.Configs) > 0 {
					got = append(got, z.Anchor)
				}
			}
			assert.Equal(t, tc.want, got)
			if tc.want == nil {
				assert.Equal(t, []strategy.ConfigID{0}, zone.Unbound(zones, 1))
			}
		})
	}
}

func TestModifiers(t *testing.T) {
	s := netsimtest.NewSigcomm(t)
	zones := zone.Partition(s.Net)
	mods := s.Modifiers()
	zone.Bind(s.Net, zones, mods)
	got, err := zones[0].Modifiers(mods)
	require.NoError(t, err)
	assert.Equal(t, []netsim.Modifier{mods[0], mods[2]}, got)
	_, err = zones[0].Modifiers(mods[:1])
	assert.ErrorIs(t, err, strategy.ErrZoneSegmentationFailed)
}

func TestEmulate(t *testing.T) {
	s := netsimtest.NewSigcomm(t)
	before, after := states(t, s)
	zones := zone.Partition(s.Net)
	for _, z := range zones {
		require.NoError(t, z.Emulate(s.Net, before, after))
	}
	z1, z2 := zones[0], zones[1]
	assert.Equal(t, []netsim.RouterID{s.T1, s.B1, s.B2, s.R1}, z1.Boundary)
	assert.Equal(t, []netsim.VirtualLink{{NextHop: s.R2, Prefix: s.P0, External: s.E1}},
		z1.Net.VirtualLinks(s.R1))
	assert.Empty(t, z1.Net.VirtualLinks(s.T1))

	assert.Equal(t, []netsim.RouterID{s.T2, s.B2, s.R2}, z2.Boundary)
	assert.Equal(t, []netsim.VirtualLink{
		{NextHop: s.B1, Prefix: s.P0, External: s.E1},
		{NextHop: s.R1, Prefix: s.P0, External: s.E2},
	}, z2.Net.VirtualLinks(s.R2))
	assert.Equal(t, []netsim.VirtualLink{{NextHop: s.T1, Prefix: s.P0, External: s.E1}},
		z2.Net.VirtualLinks(s.T2))

	path, err := fwstate.New(z1.Net).RouteTo(s.T1, netsim.BGP(s.P0))
	require.NoError(t, err)
	assert.Equal(t, []netsim.RouterID{s.T1, s.B1, s.E1}, path)
	path, err = fwstate.New(z2.Net).RouteTo(s.R2, netsim.BGP(s.P0))
	require.NoError(t, err)
	assert.Equal(t, []netsim.RouterID{s.R2, s.E2}, path)

	// The original network is untouched.
	assert.Empty(t, s.Net.VirtualLinks(s.R2))
}

func TestSplit(t *testing.T) {
	s := netsimtest.NewSigcomm(t)
	before, after := states(t, s)
	zones := zone.Partition(s.Net)

	deps, err := zone.Split(policy.Reachability(s.Net), zones, before, after)
	require.NoError(t, err)
	assert.Equal(t, []zone.Dependency{{From: s.R2, To: s.R1}}, deps)
	assert.Equal(t, []policy.Condition{
		policy.Reachable(s.T1, s.P0),
		policy.Reachable(s.B1, s.P0),
		policy.Reachable(s.B2, s.P0),
		policy.Reachable(s.R1, s.P0),
	}, zones[0].Policy.Conditions)
	assert.Equal(t, []policy.Condition{
		policy.Reachable(s.T2, s.P0),
		policy.Reachable(s.B2, s.P0),
		policy.Reachable(s.R2, s.P0),
	}, zones[1].Policy.Conditions)
}

func TestSplitErrors(t *testing.T) {
	s := netsimtest.NewSigcomm(t)
	before, after := states(t, s)

	broken := s.Net.Clone()
	require.NoError(t, broken.ApplyModifier(s.Modifiers()[2]))
	loop := fwstate.New(broken)

	testCases := map[string]struct {
		pol    *policy.HardPolicy
		before *fwstate.State
		after  *fwstate.State
		err    error
	}{
		"not reachability": {
			pol:    policy.NewGlobally([]policy.Condition{policy.NotReachable(s.T1, s.P0)}),
			before: before, after: after,
			err: strategy.ErrNotImplemented,
		},
		"violated before": {
			pol:    policy.Reachability(s.Net),
			before: loop, after: after,
			err: strategy.ErrInvalidInitialState,
		},
		"violated after": {
			pol:    policy.Reachability(s.Net),
			before: before, after: loop,
			err: strategy.ErrInvalidFinalState,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := zone.Split(tc.pol, zone.Partition(s.Net), tc.before, tc.after)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}
