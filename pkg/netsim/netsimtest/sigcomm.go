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

// Package netsimtest provides test networks.
package netsimtest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/netupdate/netupdate/pkg/netsim"
)

// Sigcomm is the six router reconfiguration example with two top-level
// reflectors t1 and t2, second level reflectors r1 and r2 and boundary
// routers b1 and b2 peering with e1 and e2:
//
//	t1 ---- t2
//	|        |
//	b1      b2
//	|  \   / |
//	e1  r2-r1  e2
//
// The migration removes the t1-b1 and t2-b2 peerings and moves b2 from r1 to
// r2 while b1 becomes a client of r2. Every intermediate state must keep p0
// reachable. Naive orderings create forwarding loops between r1 and r2, or
// between t1 and t2.
type Sigcomm struct {
	Net                            *netsim.Network
	T1, T2, B1, B2, R1, R2, E1, E2 netsim.RouterID
	P0                             netsim.Prefix
	Initial, Final                 *netsim.Config
}

// NewSigcomm builds the network in its initial configuration.
func NewSigcomm(t testing.TB) *Sigcomm {
	t.Helper()
	n := netsim.New()
	s := &Sigcomm{Net: n, P0: 0}
	add := func(name string) netsim.RouterID {
		id, err := n.AddRouter(name)
		require.NoError(t, err)
		return id
	}
	s.T1, s.T2 = add("t1"), add("t2")
	s.B1, s.B2 = add("b1"), add("b2")
	s.R1, s.R2 = add("r1"), add("r2")
	var err error
	s.E1, err = n.AddExternalRouter("e1", 65008)
	require.NoError(t, err)
	s.E2, err = n.AddExternalRouter("e2", 65009)
	require.NoError(t, err)

	internal := [][2]netsim.RouterID{
		{s.T1, s.T2}, {s.B1, s.T1}, {s.B1, s.R2}, {s.B2, s.T2}, {s.B2, s.R1}, {s.R1, s.R2},
	}
	for _, l := range internal {
		require.NoError(t, n.AddLink(l[0], l[1]))
	}
	require.NoError(t, n.AddLink(s.B1, s.E1))
	require.NoError(t, n.AddLink(s.B2, s.E2))
	require.NoError(t, n.AdvertiseExternalRoute(s.E1, s.P0, 65008, 65100))
	require.NoError(t, n.AdvertiseExternalRoute(s.E2, s.P0, 65009, 65100))

	var common []netsim.Expr
	for _, l := range internal {
		common = append(common,
			netsim.IgpLinkWeight{Source: l[0], Target: l[1], Weight: 1},
			netsim.IgpLinkWeight{Source: l[1], Target: l[0], Weight: 1},
		)
	}
	common = append(common,
		netsim.BgpSession{Source: s.B1, Target: s.E1, Type: netsim.EBGP},
		netsim.BgpSession{Source: s.B2, Target: s.E2, Type: netsim.EBGP},
		netsim.BgpSession{Source: s.R1, Target: s.B1, Type: netsim.IBGPClient},
		netsim.BgpSession{Source: s.R2, Target: s.B2, Type: netsim.IBGPClient},
		netsim.BgpSession{Source: s.T1, Target: s.R1, Type: netsim.IBGPClient},
		netsim.BgpSession{Source: s.T2, Target: s.R2, Type: netsim.IBGPClient},
	)
	initial := append(append([]netsim.Expr(nil), common...), s.initialOnly()...)
	final := append(append([]netsim.Expr(nil), common...), s.finalOnly()...)

	s.Initial, err = netsim.NewConfig(initial...)
	require.NoError(t, err)
	s.Final, err = netsim.NewConfig(final...)
	require.NoError(t, err)
	require.NoError(t, n.SetConfig(s.Initial))
	return s
}

func (s *Sigcomm) initialOnly() []netsim.Expr {
	return []netsim.Expr{
		netsim.BgpSession{Source: s.T1, Target: s.B1, Type: netsim.IBGPPeer},
		netsim.BgpSession{Source: s.T2, Target: s.B2, Type: netsim.IBGPPeer},
		netsim.BgpSession{Source: s.R1, Target: s.B2, Type: netsim.IBGPClient},
	}
}

func (s *Sigcomm) finalOnly() []netsim.Expr {
	return []netsim.Expr{
		netsim.BgpSession{Source: s.R2, Target: s.B1, Type: netsim.IBGPClient},
	}
}

// Modifiers returns the four changes of the migration in a fixed order:
//
//	0: remove t1-b1, 1: remove t2-b2, 2: remove r1->b2, 3: insert r2->b1
func (s *Sigcomm) Modifiers() []netsim.Modifier {
	before := s.initialOnly()
	return []netsim.Modifier{
		netsim.RemoveExpr(before[0]),
		netsim.RemoveExpr(before[1]),
		netsim.RemoveExpr(before[2]),
		netsim.InsertExpr(s.finalOnly()[0]),
	}
}
