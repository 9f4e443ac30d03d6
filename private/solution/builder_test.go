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

package solution_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netupdate/netupdate/pkg/netsim"
	"github.com/netupdate/netupdate/pkg/strategy"
	"github.com/netupdate/netupdate/private/solution"
)

func TestBuilderChainsOrderings(t *testing.T) {
	b := solution.NewBuilder()
	require.NoError(t, b.InsertOrdering([]solution.Step{
		{Config: 0, Touches: []netsim.RouterID{0}},
		{Config: 2, Touches: []netsim.RouterID{0, 4}},
	}))
	require.NoError(t, b.InsertOrdering([]solution.Step{
		{Config: 1},
		{Config: 3, Touches: []netsim.RouterID{1, 5}},
	}))
	require.NoError(t, b.AddRouterDependency(5, 4))
	require.NoError(t, b.AddRouterDependency(5, 4))
	require.NoError(t, b.AddRouterDependency(4, 4))

	d, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 1, 3}, d.Nodes())
	assert.ElementsMatch(t, [][2]int{{0, 2}, {1, 3}, {3, 2}}, d.Edges())
	assert.NoError(t, d.CheckCycle())
	assert.Equal(t, 2, b.RouterDependencies().Len())
}

func TestBuilderIgnoresUntouchedRouters(t *testing.T) {
	b := solution.NewBuilder()
	require.NoError(t, b.InsertOrdering([]solution.Step{{Config: 0, Touches: []netsim.RouterID{1}}}))
	require.NoError(t, b.AddRouterDependency(1, 2))
	require.NoError(t, b.AddRouterDependency(3, 1))
	d, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, 1, d.Len())
	assert.Empty(t, d.Edges())
}

func TestBuilderEmpty(t *testing.T) {
	b := solution.NewBuilder()
	require.NoError(t, b.InsertOrdering(nil))
	d, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, 0, d.Len())
}

func TestBuilderInconsistent(t *testing.T) {
	testCases := map[string]struct {
		orderings [][]solution.Step
		deps      [][2]netsim.RouterID
		failBuild bool
	}{
		"duplicate in one zone": {
			orderings: [][]solution.Step{{{Config: 0}, {Config: 1}, {Config: 0}}},
		},
		"two zones disagree": {
			orderings: [][]solution.Step{
				{{Config: 0}, {Config: 1}},
				{{Config: 1}, {Config: 0}},
			},
		},
		"router dependency against zone order": {
			orderings: [][]solution.Step{{
				{Config: 0, Touches: []netsim.RouterID{1}},
				{Config: 1, Touches: []netsim.RouterID{2}},
			}},
			deps:      [][2]netsim.RouterID{{2, 1}},
			failBuild: true,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			b := solution.NewBuilder()
			var err error
			for _, o := range tc.orderings {
				if err = b.InsertOrdering(o); err != nil {
					break
				}
			}
			if !tc.failBuild {
				assert.ErrorIs(t, err, strategy.ErrZoneSegmentationFailed)
				return
			}
			require.NoError(t, err)
			for _, d := range tc.deps {
				require.NoError(t, b.AddRouterDependency(d[0], d[1]))
			}
			_, err = b.Build()
			assert.ErrorIs(t, err, strategy.ErrZoneSegmentationFailed)
		})
	}
}

func TestBuilderSharedConfigAcrossZones(t *testing.T) {
	// Overlapping zones may both order the same modifiers consistently.
	b := solution.NewBuilder()
	require.NoError(t, b.InsertOrdering([]solution.Step{{Config: 0}, {Config: 1}}))
	require.NoError(t, b.InsertOrdering([]solution.Step{{Config: 0}, {Config: 1}, {Config: 2}}))
	d, err := b.Build()
	require.NoError(t, err)
	order, err := d.TopologicalOrder()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, order)
}
