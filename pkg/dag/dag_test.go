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

package dag_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netupdate/netupdate/pkg/dag"
)

func build(t *testing.T, nodes []int, edges [][2]int) *dag.DAG[int] {
	t.Helper()
	d := dag.New[int]()
	for _, n := range nodes {
		require.NoError(t, d.InsertNewNode(n))
	}
	for _, e := range edges {
		require.NoError(t, d.AddDependency(e[0], e[1]))
	}
	return d
}

func TestInsert(t *testing.T) {
	d := dag.New[string]()
	assert.False(t, d.InsertNode("a"))
	assert.True(t, d.InsertNode("a"))
	assert.ErrorIs(t, d.InsertNewNode("a"), dag.ErrNodeAlreadyExists)
	assert.Equal(t, 1, d.Len())

	assert.ErrorIs(t, d.AddDependency("a", "b"), dag.ErrNodeDoesNotExist)
	assert.ErrorIs(t, d.AddDependency("b", "a"), dag.ErrNodeDoesNotExist)
	require.NoError(t, d.InsertNewNode("b"))
	require.NoError(t, d.AddDependency("a", "b"))
	require.NoError(t, d.AddDependency("a", "b"))
	assert.Equal(t, [][2]string{{"a", "b"}}, d.Edges())
	assert.True(t, d.HasDependency("a", "b"))
	assert.False(t, d.HasDependency("b", "a"))

	var zero dag.DAG[int]
	assert.False(t, zero.InsertNode(1))
	assert.True(t, zero.HasNode(1))
}

func TestNeighbors(t *testing.T) {
	d := build(t, []int{0, 1, 2, 3}, [][2]int{{0, 2}, {1, 2}, {2, 3}})
	next, err := d.NextOf(2)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, next)
	prev, err := d.PrevOf(2)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, prev)
	_, err = d.NextOf(9)
	assert.ErrorIs(t, err, dag.ErrNodeDoesNotExist)
	_, err = d.PrevOf(9)
	assert.ErrorIs(t, err, dag.ErrNodeDoesNotExist)

	assert.True(t, d.Reachable(0, 3))
	assert.True(t, d.Reachable(3, 3))
	assert.False(t, d.Reachable(3, 0))
	assert.False(t, d.Reachable(0, 1))
}

func TestStarterNodes(t *testing.T) {
	testCases := map[string]struct {
		nodes    []int
		edges    [][2]int
		starters []int
		err      error
	}{
		"empty": {},
		"chain": {
			nodes: []int{0, 1, 2}, edges: [][2]int{{0, 1}, {1, 2}}, starters: []int{0},
		},
		"independent": {
			nodes: []int{5, 3, 4}, starters: []int{5, 3, 4},
		},
		"pure cycle": {
			nodes: []int{0, 1}, edges: [][2]int{{0, 1}, {1, 0}}, err: dag.ErrDagHasCycle,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			d := build(t, tc.nodes, tc.edges)
			starters, err := d.StarterNodes()
			assert.ErrorIs(t, err, tc.err)
			assert.Equal(t, tc.starters, starters)
		})
	}
}

func TestCheckCycle(t *testing.T) {
	testCases := map[string]struct {
		nodes []int
		edges [][2]int
		cycle bool
	}{
		"empty":   {},
		"diamond": {nodes: []int{0, 1, 2, 3}, edges: [][2]int{{0, 1}, {0, 2}, {1, 3}, {2, 3}}},
		"cycle reachable from starter": {
			nodes: []int{0, 1, 2}, edges: [][2]int{{0, 1}, {1, 2}, {2, 1}}, cycle: true,
		},
		"cycle unreachable from starter": {
			nodes: []int{0, 1, 2, 3}, edges: [][2]int{{0, 1}, {2, 3}, {3, 2}}, cycle: true,
		},
		"self loop": {
			nodes: []int{0, 1}, edges: [][2]int{{0, 1}, {1, 1}}, cycle: true,
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			d := build(t, tc.nodes, tc.edges)
			err := d.CheckCycle()
			_, topoErr := d.TopologicalOrder()
			if tc.cycle {
				assert.ErrorIs(t, err, dag.ErrDagHasCycle)
				assert.ErrorIs(t, topoErr, dag.ErrDagHasCycle)
				return
			}
			assert.NoError(t, err)
			assert.NoError(t, topoErr)
		})
	}
}

func TestOrder(t *testing.T) {
	d := build(t, []int{3, 0, 1, 2}, [][2]int{{0, 1}, {3, 1}, {1, 2}})
	order, err := d.TopologicalOrder()
	require.NoError(t, err)
	assert.Equal(t, []int{3, 0, 1, 2}, order)

	levels, err := d.Levels()
	require.NoError(t, err)
	assert.Equal(t, [][]int{{3, 0}, {1}, {2}}, levels)

	wide := build(t, []int{0, 1, 2, 3}, [][2]int{{0, 3}})
	levels, err = wide.Levels()
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 1, 2}, {3}}, levels)
	order, err = wide.TopologicalOrder()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3}, order)
}

func TestClone(t *testing.T) {
	d := build(t, []int{0, 1}, [][2]int{{0, 1}})
	c := d.Clone()
	c.InsertNode(2)
	require.NoError(t, c.AddDependency(1, 2))
	assert.Equal(t, 2, d.Len())
	assert.Equal(t, [][2]int{{0, 1}}, d.Edges())
	assert.Equal(t, [][2]int{{0, 1}, {1, 2}}, c.Edges())
	assert.Equal(t, []int{0, 1, 2}, c.Nodes())
}
