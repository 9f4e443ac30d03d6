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

package backtrack_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/netupdate/netupdate/pkg/fwstate"
	"github.com/netupdate/netupdate/pkg/log/testlog"
	"github.com/netupdate/netupdate/pkg/metrics"
	"github.com/netupdate/netupdate/pkg/netsim"
	"github.com/netupdate/netupdate/pkg/netsim/netsimtest"
	"github.com/netupdate/netupdate/pkg/policy"
	"github.com/netupdate/netupdate/pkg/strategy"
	"github.com/netupdate/netupdate/private/strategy/backtrack"
)

// replay applies order to a copy of net and checks pol in every state.
func replay(t *testing.T, net *netsim.Network, order []netsim.Modifier, pol *policy.HardPolicy) {
	t.Helper()
	n := net.Clone()
	for i, m := range order {
		require.NoError(t, n.ApplyModifier(m), i)
		require.NoError(t, pol.Evaluate(fwstate.New(n)), "after step %d", i)
	}
}

func TestSigcomm(t *testing.T) {
	s := netsimtest.NewSigcomm(t)
	mods := s.Modifiers()
	pol := policy.Reachability(s.Net)
	reg := prometheus.NewRegistry()
	m := metrics.NewSynthesis(metrics.ApplyOptions(metrics.WithRegistry(reg)).Auto())

	solver, err := backtrack.New(s.Net, mods, pol, backtrack.WithMetrics(m))
	require.NoError(t, err)
	ctx := testlog.Context(t, zapcore.DebugLevel)
	order, err := solver.Work(ctx)
	require.NoError(t, err)
	require.Len(t, order, len(mods))
	assert.ElementsMatch(t, mods, order)
	replay(t, s.Net, order, pol)

	assert.Positive(t, solver.Explored())
	assert.Equal(t, float64(solver.Explored()), testutil.ToFloat64(m.Explored))
	// The solver works on copies.
	assert.Empty(t, s.Net.Config().Diff(s.Initial))
	assert.Empty(t, pol.Violations())
}

func TestNaiveOrderIsUnsafe(t *testing.T) {
	// The ordering found must differ from the modifier order, which loops.
	s := netsimtest.NewSigcomm(t)
	n := s.Net.Clone()
	pol := policy.Reachability(s.Net)
	var violated bool
	for _, m := range s.Modifiers() {
		require.NoError(t, n.ApplyModifier(m))
		if pol.Evaluate(fwstate.New(n)) != nil {
			violated = true
		}
	}
	assert.True(t, violated)
}

func TestErrors(t *testing.T) {
	s := netsimtest.NewSigcomm(t)

	t.Run("invalid initial state", func(t *testing.T) {
		pol := policy.NewGlobally([]policy.Condition{policy.NotReachable(s.T1, s.P0)})
		_, err := backtrack.New(s.Net, s.Modifiers(), pol)
		assert.ErrorIs(t, err, strategy.ErrInvalidInitialState)
	})
	t.Run("no safe ordering", func(t *testing.T) {
		mods := []netsim.Modifier{
			netsim.RemoveExpr(netsim.BgpSession{Source: s.B1, Target: s.E1, Type: netsim.EBGP}),
			netsim.RemoveExpr(netsim.BgpSession{Source: s.B2, Target: s.E2, Type: netsim.EBGP}),
		}
		solver, err := backtrack.New(s.Net, mods, policy.Reachability(s.Net))
		require.NoError(t, err)
		_, err = solver.Work(context.Background())
		assert.ErrorIs(t, err, strategy.ErrNoSafeOrdering)
	})
	t.Run("stopped", func(t *testing.T) {
		solver, err := backtrack.New(s.Net, s.Modifiers(), policy.Reachability(s.Net))
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = solver.Work(ctx)
		assert.ErrorIs(t, err, strategy.ErrTimeout)
	})
	t.Run("memo size", func(t *testing.T) {
		_, err := backtrack.New(s.Net, s.Modifiers(), policy.Reachability(s.Net),
			backtrack.WithMemoSize(0))
		assert.Error(t, err)
	})
	t.Run("nothing to order", func(t *testing.T) {
		solver, err := backtrack.New(s.Net, nil, policy.Reachability(s.Net))
		require.NoError(t, err)
		order, err := solver.Work(context.Background())
		assert.NoError(t, err)
		assert.Empty(t, order)
	})
}

func TestSmallMemo(t *testing.T) {
	// Evicted dead ends are searched again, the result stays safe.
	s := netsimtest.NewSigcomm(t)
	pol := policy.Reachability(s.Net)
	solver, err := backtrack.New(s.Net, s.Modifiers(), pol, backtrack.WithMemoSize(1))
	require.NoError(t, err)
	order, err := solver.Work(context.Background())
	require.NoError(t, err)
	replay(t, s.Net, order, pol)
}

func TestFactory(t *testing.T) {
	s := netsimtest.NewSigcomm(t)
	mods := s.Modifiers()
	solver, err := backtrack.Factory()(s.Net, mods[:1], policy.Reachability(s.Net))
	require.NoError(t, err)
	order, err := solver.Work(context.Background())
	require.NoError(t, err)
	assert.Equal(t, mods[:1], order)
}
