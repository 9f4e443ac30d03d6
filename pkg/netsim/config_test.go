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

package netsim_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netupdate/netupdate/pkg/netsim"
)

func TestBgpSessionKey(t *testing.T) {
	a := netsim.BgpSession{Source: 1, Target: 2, Type: netsim.IBGPClient}
	b := netsim.BgpSession{Source: 2, Target: 1, Type: netsim.IBGPPeer}
	assert.Equal(t, a.Key(), b.Key())
	assert.False(t, netsim.ExprEqual(a, b))
}

func TestAccessControl(t *testing.T) {
	accept := netsim.AccessControl{Router: 1, Accept: []netsim.RouterID{3}}
	deny := netsim.AccessControl{Router: 1, Deny: []netsim.RouterID{3}}
	assert.True(t, accept.Allows(3))
	assert.False(t, accept.Allows(4))
	assert.False(t, deny.Allows(3))
	assert.True(t, deny.Allows(4))
	assert.True(t, netsim.ExprEqual(accept,
		netsim.AccessControl{Router: 1, Accept: []netsim.RouterID{3}}))
	assert.False(t, netsim.ExprEqual(accept, deny))
	assert.False(t, netsim.ExprEqual(accept, netsim.StaticRoute{Router: 1}))
}

func TestConfigApply(t *testing.T) {
	w := netsim.IgpLinkWeight{Source: 0, Target: 1, Weight: 1}
	w2 := netsim.IgpLinkWeight{Source: 0, Target: 1, Weight: 5}
	other := netsim.IgpLinkWeight{Source: 1, Target: 0, Weight: 1}
	testCases := map[string]struct {
		mod       netsim.Modifier
		err       error
		wantExprs []netsim.Expr
	}{
		"insert": {
			mod:       netsim.InsertExpr(other),
			wantExprs: []netsim.Expr{w, other},
		},
		"insert duplicate": {
			mod:       netsim.InsertExpr(w2),
			err:       netsim.ErrExprExists,
			wantExprs: []netsim.Expr{w},
		},
		"remove": {
			mod:       netsim.RemoveExpr(w),
			wantExprs: []netsim.Expr{},
		},
		"remove with different value": {
			mod:       netsim.RemoveExpr(w2),
			err:       netsim.ErrExprMismatch,
			wantExprs: []netsim.Expr{w},
		},
		"update": {
			mod:       netsim.UpdateExpr(w, w2),
			wantExprs: []netsim.Expr{w2},
		},
		"update across keys": {
			mod:       netsim.UpdateExpr(w, other),
			err:       netsim.ErrExprMismatch,
			wantExprs: []netsim.Expr{w},
		},
		"update missing": {
			mod:       netsim.UpdateExpr(other, other),
			err:       netsim.ErrExprMissing,
			wantExprs: []netsim.Expr{w},
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			c, err := netsim.NewConfig(w)
			require.NoError(t, err)
			err = c.Apply(tc.mod)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tc.wantExprs, append([]netsim.Expr{}, c.Exprs()...))
		})
	}
}

func TestModifierInverse(t *testing.T) {
	w := netsim.IgpLinkWeight{Source: 0, Target: 1, Weight: 1}
	w2 := netsim.IgpLinkWeight{Source: 0, Target: 1, Weight: 2}
	for _, m := range []netsim.Modifier{
		netsim.InsertExpr(w), netsim.RemoveExpr(w), netsim.UpdateExpr(w, w2),
	} {
		assert.True(t, m.Inverse().Inverse().Equal(m), m.String())
		c, err := netsim.NewConfig()
		require.NoError(t, err)
		if m.Kind != netsim.Insert {
			require.NoError(t, c.Add(w))
		}
		before := c.Clone()
		require.NoError(t, c.Apply(m))
		require.NoError(t, c.Apply(m.Inverse()))
		assert.Empty(t, c.Diff(before))
	}
}

func TestConfigDiff(t *testing.T) {
	s1 := netsim.BgpSession{Source: 0, Target: 1, Type: netsim.IBGPPeer}
	s1c := netsim.BgpSession{Source: 0, Target: 1, Type: netsim.IBGPClient}
	s2 := netsim.BgpSession{Source: 0, Target: 2, Type: netsim.IBGPPeer}
	s3 := netsim.BgpSession{Source: 1, Target: 2, Type: netsim.IBGPPeer}
	from, err := netsim.NewConfig(s1, s2)
	require.NoError(t, err)
	to, err := netsim.NewConfig(s1c, s3)
	require.NoError(t, err)

	diff := from.Diff(to)
	require.Len(t, diff, 3)
	assert.True(t, diff[0].Equal(netsim.UpdateExpr(s1, s1c)))
	assert.True(t, diff[1].Equal(netsim.RemoveExpr(s2)))
	assert.True(t, diff[2].Equal(netsim.InsertExpr(s3)))

	for _, m := range diff {
		require.NoError(t, from.Apply(m))
	}
	assert.Empty(t, from.Diff(to))
}
