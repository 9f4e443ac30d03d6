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

// Package dag implements a generic directed acyclic graph used to express
// must-happen-before relations, e.g. between configuration changes.
//
// Nodes are kept in an arena in insertion order and addressed through an
// index keyed by the node identifier. All enumerations are deterministic and
// follow insertion order.
package dag

import (
	"errors"
	"slices"

	"github.com/netupdate/netupdate/pkg/private/serrors"
)

var (
	ErrNodeAlreadyExists = errors.New("node already exists")
	ErrNodeDoesNotExist  = errors.New("node does not exist")
	ErrDagHasCycle       = errors.New("dag has a cycle")
)

type node[T comparable] struct {
	id   T
	prev []int
	next []int
}

// DAG is a directed graph over comparable identifiers. An edge from a to b
// means a must happen before b. The zero value is an empty DAG ready to use.
type DAG[T comparable] struct {
	nodes []node[T]
	index map[T]int
}

// New returns an empty DAG.
func New[T comparable]() *DAG[T] {
	return &DAG[T]{index: make(map[T]int)}
}

// InsertNode inserts id unless it already exists and reports whether it
// existed before.
func (d *DAG[T]) InsertNode(id T) bool {
	if _, ok := d.index[id]; ok {
		return true
	}
	if d.index == nil {
		d.index = make(map[T]int)
	}
	d.index[id] = len(d.nodes)
	d.nodes = append(d.nodes, node[T]{id: id})
	return false
}

// InsertNewNode inserts id and fails if it already exists.
func (d *DAG[T]) InsertNewNode(id T) error {
	if d.InsertNode(id) {
		return serrors.Join(ErrNodeAlreadyExists, nil, "node", id)
	}
	return nil
}

// AddDependency adds the edge from -> to. Both nodes must exist. Adding an
// existing edge is a no-op. The edge is not checked for cycles, use
// CheckCycle.
func (d *DAG[T]) AddDependency(from, to T) error {
	f, ok := d.index[from]
	if !ok {
		return serrors.Join(ErrNodeDoesNotExist, nil, "node", from)
	}
	t, ok := d.index[to]
	if !ok {
		return serrors.Join(ErrNodeDoesNotExist, nil, "node", to)
	}
	if slices.Contains(d.nodes[f].next, t) {
		return nil
	}
	d.nodes[f].next = append(d.nodes[f].next, t)
	d.nodes[t].prev = append(d.nodes[t].prev, f)
	return nil
}

// HasNode reports whether id exists.
func (d *DAG[T]) HasNode(id T) bool {
	_, ok := d.index[id]
	return ok
}

// HasDependency reports whether the edge from -> to exists.
func (d *DAG[T]) HasDependency(from, to T) bool {
	f, ok := d.index[from]
	if !ok {
		return false
	}
	t, ok := d.index[to]
	if !ok {
		return false
	}
	return slices.Contains(d.nodes[f].next, t)
}

// Len returns the number of nodes.
func (d *DAG[T]) Len() int {
	return len(d.nodes)
}

// Nodes returns all nodes in insertion order.
func (d *DAG[T]) Nodes() []T {
	ids := make([]T, 0, len(d.nodes))
	for _, n := range d.nodes {
		ids = append(ids, n.id)
	}
	return ids
}

// Edges returns all edges ordered by source insertion order and then by the
// order the edges were added.
func (d *DAG[T]) Edges() [][2]T {
	var edges [][2]T
	for _, n := range d.nodes {
		for _, t := range n.next {
			edges = append(edges, [2]T{n.id, d.nodes[t].id})
		}
	}
	return edges
}

// StarterNodes returns the nodes without predecessors. An empty DAG has no
// starter nodes; a non-empty DAG without any has a cycle.
func (d *DAG[T]) StarterNodes() ([]T, error) {
	if len(d.nodes) == 0 {
		return nil, nil
	}
	var starters []T
	for _, n := range d.nodes {
		if len(n.prev) == 0 {
			starters = append(starters, n.id)
		}
	}
	if len(starters) == 0 {
		return nil, serrors.Join(ErrDagHasCycle, nil, "reason", "no starter nodes")
	}
	return starters, nil
}

// NextOf returns the successors of id.
func (d *DAG[T]) NextOf(id T) ([]T, error) {
	i, ok := d.index[id]
	if !ok {
		return nil, serrors.Join(ErrNodeDoesNotExist, nil, "node", id)
	}
	return d.ids(d.nodes[i].next), nil
}

// PrevOf returns the predecessors of id.
func (d *DAG[T]) PrevOf(id T) ([]T, error) {
	i, ok := d.index[id]
	if !ok {
		return nil, serrors.Join(ErrNodeDoesNotExist, nil, "node", id)
	}
	return d.ids(d.nodes[i].prev), nil
}

func (d *DAG[T]) ids(idx []int) []T {
	ids := make([]T, 0, len(idx))
	for _, i := range idx {
		ids = append(ids, d.nodes[i].id)
	}
	return ids
}

const (
	white = iota
	gray
	black
)

// CheckCycle verifies that the graph is acyclic. It runs a depth first search
// from every starter node; reaching a node on the current stack, or leaving
// a node unreached, proves a cycle.
func (d *DAG[T]) CheckCycle() error {
	if len(d.nodes) == 0 {
		return nil
	}
	if _, err := d.StarterNodes(); err != nil {
		return err
	}
	color := make([]int, len(d.nodes))
	var visit func(i int) error
	visit = func(i int) error {
		color[i] = gray
		for _, j := range d.nodes[i].next {
			switch color[j] {
			case gray:
				return serrors.Join(ErrDagHasCycle, nil,
					"from", d.nodes[i].id, "to", d.nodes[j].id)
			case white:
				if err := visit(j); err != nil {
					return err
				}
			}
		}
		color[i] = black
		return nil
	}
	for i, n := range d.nodes {
		if len(n.prev) != 0 {
			continue
		}
		if err := visit(i); err != nil {
			return err
		}
	}
	for i, c := range color {
		if c == white {
			return serrors.Join(ErrDagHasCycle, nil,
				"reason", "unreachable node", "node", d.nodes[i].id)
		}
	}
	return nil
}

// Reachable reports whether to can be reached from from. A node reaches
// itself.
func (d *DAG[T]) Reachable(from, to T) bool {
	f, ok := d.index[from]
	if !ok {
		return false
	}
	t, ok := d.index[to]
	if !ok {
		return false
	}
	seen := make([]bool, len(d.nodes))
	stack := []int{f}
	seen[f] = true
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == t {
			return true
		}
		for _, j := range d.nodes[cur].next {
			if !seen[j] {
				seen[j] = true
				stack = append(stack, j)
			}
		}
	}
	return false
}

// TopologicalOrder returns all nodes such that every node comes after its
// predecessors. Among ready nodes the one inserted first is emitted first.
func (d *DAG[T]) TopologicalOrder() ([]T, error) {
	levels, err := d.levels(true)
	if err != nil {
		return nil, err
	}
	order := make([]T, 0, len(d.nodes))
	for _, l := range levels {
		order = append(order, l...)
	}
	return order, nil
}

// Levels partitions the nodes into waves: the first level holds the starter
// nodes, each following level the nodes whose predecessors are all in
// earlier levels. Nodes of one level are independent of each other.
func (d *DAG[T]) Levels() ([][]T, error) {
	return d.levels(false)
}

// levels implements Kahn's algorithm. With single set, every node forms its
// own level, picking the ready node with the lowest insertion index.
func (d *DAG[T]) levels(single bool) ([][]T, error) {
	indeg := make([]int, len(d.nodes))
	var ready []int
	for i, n := range d.nodes {
		indeg[i] = len(n.prev)
		if indeg[i] == 0 {
			ready = append(ready, i)
		}
	}
	var levels [][]T
	emitted := 0
	for len(ready) > 0 {
		var wave []int
		if single {
			slices.Sort(ready)
			wave, ready = ready[:1:1], ready[1:]
		} else {
			slices.Sort(ready)
			wave, ready = ready, nil
		}
		for _, i := range wave {
			for _, j := range d.nodes[i].next {
				indeg[j]--
				if indeg[j] == 0 {
					ready = append(ready, j)
				}
			}
		}
		levels = append(levels, d.ids(wave))
		emitted += len(wave)
	}
	if emitted != len(d.nodes) {
		return nil, serrors.Join(ErrDagHasCycle, nil, "sorted", emitted, "nodes", len(d.nodes))
	}
	return levels, nil
}

// Clone returns an independent copy.
func (d *DAG[T]) Clone() *DAG[T] {
	c := &DAG[T]{
		nodes: make([]node[T], len(d.nodes)),
		index: make(map[T]int, len(d.index)),
	}
	for i, n := range d.nodes {
		c.nodes[i] = node[T]{id: n.id, prev: slices.Clone(n.prev), next: slices.Clone(n.next)}
		c.index[n.id] = i
	}
	return c
}
