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


package scenario_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netupdate/netupdate/pkg/fwstate"
	"github.com/netupdate/netupdate/pkg/netsim"
	"github.com/netupdate/netupdate/pkg/netsim/netsimtest"
	"github.com/netupdate/netupdate/pkg/policy"
	"github.com/netupdate/netupdate/private/scenario"
)

func TestLoadSigcomm(t *testing.T) {
	sc, err := scenario.LoadFile("testdata/sigcomm.toml")
	require.NoError(t, err)
	want := netsimtest.NewSigcomm(t)

	if diff := cmp.Diff(want.Initial.Exprs(), sc.Initial.Exprs()); diff != "" {
		t.Errorf("initial config mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want.Final.Exprs(), sc.Final.Exprs()); diff != "" {
		t.Errorf("final config mismatch (-want +got):\n%s", diff)
	}
	assert.ElementsMatch(t, want.Modifiers(), sc.Modifiers())
	for _, name := range []string{"t1", "t2", "b1", "b2", "r1", "r2", "e1", "e2"} {
		id, err := sc.Net.RouterByName(name)
		require.NoError(t, err)
		wid, _ := want.Net.RouterByName(name)
		assert.Equal(t, wid, id, name)
	}
	assert.True(t, sc.Policy.IsGlobalReachability())
	assert.NoError(t, sc.Policy.Evaluate(fwstate.New(sc.Net)))
}

func TestDecode(t *testing.T) {
	base := `
[[router]]
name = "r1"
[[router]]
name = "r2"
[[external]]
name = "e1"
as = 65001
[[link]]
a = "r1"
b = "r2"
weight = 2
[[link]]
a = "r1"
b = "e1"
[[advertisement]]
router = "e1"
prefix = 3
as_path = [65001]
[[common.session]]
source = "r1"
target = "e1"
type = "ebgp"
[[common.session]]
source = "r1"
target = "r2"
type = "client"
`
	t.Run("expressions", func(t *testing.T) {
		raw := base + `
[[final.static_route]]
router = "r2"
prefix = 3
target = "r1"
[[final.route_map]]
router = "r1"
direction = "in"
order = 1
neighbor = "e1"
local_pref = 200
[[final.acl]]
router = "r1"
deny = ["r2"]
[[condition]]
kind = "reachable"
router = "r2"
prefix = 3
[[condition]]
kind = "reachable_igp"
router = "r2"
target = "r1"
`
		sc, err := scenario.Decode([]byte(raw))
		require.NoError(t, err)
		r1, _ := sc.Net.RouterByName("r1")
		r2, _ := sc.Net.RouterByName("r2")
		e1, _ := sc.Net.RouterByName("e1")
		assert.ElementsMatch(t, []netsim.Modifier{
			netsim.InsertExpr(netsim.StaticRoute{Router: r2, Prefix: 3, Target: r1}),
			netsim.InsertExpr(netsim.BgpRouteMap{
				Router: r1, Order: 1, Neighbor: e1, MatchNeighbor: true, LocalPref: 200}),
			netsim.InsertExpr(netsim.AccessControl{Router: r1, Deny: []netsim.RouterID{r2}}),
		}, sc.Modifiers())
		assert.False(t, sc.Policy.IsGlobalReachability())
		assert.Equal(t, []policy.Condition{
			policy.Reachable(r2, 3), policy.ReachableIGP(r2, r1),
		}, sc.Policy.Conditions)
		cost, ok := sc.Net.IGPCost(r2, r1)
		require.True(t, ok)
		assert.Equal(t, 2.0, cost)
	})

	testCases := map[string]string{
		"unknown field":      base + "\n[[router]]\nname = \"x\"\ncolor = \"red\"\n",
		"unknown router":     base + "\n[[link]]\na = \"r1\"\nb = \"nope\"\n",
		"unknown session":    base + "\n[[final.session]]\nsource = \"r2\"\ntarget = \"e1\"\ntype = \"odd\"\n",
		"invalid session":    base + "\n[[final.session]]\nsource = \"r2\"\ntarget = \"e1\"\ntype = \"ebgp\"\n",
		"unknown direction":  base + "\n[[final.route_map]]\nrouter = \"r1\"\ndirection = \"up\"\n",
		"unknown condition":  base + "\n[[condition]]\nkind = \"fast\"\nrouter = \"r1\"\n",
		"duplicate router":   base + "\n[[router]]\nname = \"r1\"\n",
		"conflicting common": base + "\n[[initial.session]]\nsource = \"r1\"\ntarget = \"e1\"\ntype = \"ebgp\"\n",
	}
	for name, raw := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := scenario.Decode([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := scenario.LoadFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
