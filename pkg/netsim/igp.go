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
	"container/heap"
	"math"
)

const noHop = -1

// igpTable holds all-pairs shortest paths over the internal routers, indexed
// by router id. Externals have empty rows.
type igpTable struct {
	dist  [][]float64
	first [][]int
}

func (t *igpTable) cost(src, dst RouterID) (float64, bool) {
	if int(src) >= len(t.dist) || t.dist[src] == nil {
		return 0, false
	}
	d := t.dist[src][dst]
	if math.IsInf(d, 1) {
		return 0, false
	}
	return d, true
}

func (t *igpTable) next(src, dst RouterID) (RouterID, bool) {
	if src == dst {
		return src, true
	}
	if int(src) >= len(t.first) || t.first[src] == nil || int(dst) >= len(t.first[src]) {
		return 0, false
	}
	f := t.first[src][dst]
	if f == noHop {
		return 0, false
	}
	return RouterID(f), true
}

type igpEdge struct {
	to     RouterID
	weight float64
}

func (n *Network) computeIGP() *igpTable {
	size := len(n.devices)
	adj := make([][]igpEdge, size)
	for _, e := range n.config.exprs {
		w, ok := e.(IgpLinkWeight)
		if !ok {
			continue
		}
		adj[w.Source] = append(adj[w.Source], igpEdge{to: w.Target, weight: w.Weight})
	}
	t := &igpTable{
		dist:  make([][]float64, size),
		first: make([][]int, size),
	}
	for src := 0; src < size; src++ {
		if n.devices[src].external {
			continue
		}
		t.dist[src], t.first[src] = dijkstra(RouterID(src), adj)
	}
	return t
}

// dijkstra computes distances and first hops from src. Among equal cost paths
// the one with the lowest first hop id wins.
func dijkstra(src RouterID, adj [][]igpEdge) ([]float64, []int) {
	dist := make([]float64, len(adj))
	first := make([]int, len(adj))
	for i := range dist {
		dist[i] = math.Inf(1)
		first[i] = noHop
	}
	dist[src] = 0
	first[src] = int(src)
	pq := &igpQueue{{id: src}}
	done := make([]bool, len(adj))
	for pq.Len() > 0 {
		cur := heap.Pop(pq).(igpItem)
		if done[cur.id] {
			continue
		}
		done[cur.id] = true
		for _, e := range adj[cur.id] {
			nd := dist[cur.id] + e.weight
			hop := first[cur.id]
			if cur.id == src {
				hop = int(e.to)
			}
			if nd < dist[e.to] || (nd == dist[e.to] && hop < first[e.to]) {
				dist[e.to] = nd
				first[e.to] = hop
				heap.Push(pq, igpItem{id: e.to, dist: nd, hop: hop})
			}
		}
	}
	first[src] = noHop
	return dist, first
}

type igpItem struct {
	id   RouterID
	dist float64
	hop  int
}

type igpQueue []igpItem

func (q igpQueue) Len() int { return len(q) }
func (q igpQueue) Less(i, j int) bool {
	if q[i].dist != q[j].dist {
		return q[i].dist < q[j].dist
	}
	return q[i].id < q[j].id
}
func (q igpQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *igpQueue) Push(x any) { *q = append(*q, x.(igpItem)) }
func (q *igpQueue) Pop() any {
	old := *q
	item := old[len(old)-1]
	*q = old[:len(old)-1]
	return item
}
