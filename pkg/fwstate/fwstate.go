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

// Package fwstate computes forwarding paths on a snapshot of a network.
//
// A State is built once from a network and records the selected next hop of
// every router toward every destination. Paths are computed by walking the
// next hop chain. Every walked suffix is cached, so that repeated queries and
// queries from routers on an already known path are answered without walking
// again. A State is safe for concurrent use.
package fwstate

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/netupdate/netupdate/pkg/netsim"
)

var (
	ErrDeviceNotFound      = errors.New("device not found")
	ErrForwardingBlackHole = errors.New("forwarding black hole")
	ErrForwardingLoop      = errors.New("forwarding loop")
	ErrAccessDenied        = errors.New("access denied")
)

// PathError is returned for every query that does not result in a valid
// path. Path holds the routers traversed until the failure: the path up to
// the router without next hop for black holes, the path including the
// repeated router for loops, and the path up to the denying router for access
// denials.
type PathError struct {
	Err  error
	Path []netsim.RouterID
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s: path %v", e.Err, e.Path)
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// LastHop returns the last router of the path, i.e. the black hole, the
// repeated router or the router denying access.
func (e *PathError) LastHop() (netsim.RouterID, bool) {
	if len(e.Path) == 0 {
		return 0, false
	}
	return e.Path[len(e.Path)-1], true
}

// Network is the view of a network needed to build a State.
type Network interface {
	NumDevices() int
	IsExternal(r netsim.RouterID) bool
	KnownPrefixes() []netsim.Prefix
	NextHop(r netsim.RouterID, p netsim.Prefix) (netsim.RouterID, bool)
	IGPNextHop(r, d netsim.RouterID) (netsim.RouterID, bool)
	Advertises(r netsim.RouterID, p netsim.Prefix) bool
	ACL(r netsim.RouterID) (netsim.AccessControl, bool)
}

type resultKind int

const (
	resultValid resultKind = iota
	resultBlackHole
	resultLoop
)

type cacheKey struct {
	router netsim.RouterID
	dest   int
}

type cacheEntry struct {
	path []netsim.RouterID
	kind resultKind
}

// State is a forwarding snapshot.
type State struct {
	numDevices int
	prefixes   []netsim.Prefix
	prefixIdx  map[netsim.Prefix]int
	external   []bool
	// next is indexed by router*numDest+dest and holds -1 for no next hop.
	next []int32
	acls map[netsim.RouterID]netsim.AccessControl

	mu    sync.Mutex
	cache map[cacheKey]cacheEntry
}

// New builds the forwarding state of net.
func New(net Network) *State {
	n := net.NumDevices()
	s := &State{
		numDevices: n,
		prefixes:   net.KnownPrefixes(),
		prefixIdx:  make(map[netsim.Prefix]int),
		external:   make([]bool, n),
		acls:       make(map[netsim.RouterID]netsim.AccessControl),
		cache:      make(map[cacheKey]cacheEntry),
	}
	for i, p := range s.prefixes {
		s.prefixIdx[p] = i
	}
	numDest := s.numDest()
	s.next = make([]int32, n*numDest)
	for i := range s.next {
		s.next[i] = -1
	}
	for i := 0; i < n; i++ {
		r := netsim.RouterID(i)
		s.external[i] = net.IsExternal(r)
		row := s.next[i*numDest : (i+1)*numDest]
		for j, p := range s.prefixes {
			if s.external[i] {
				if net.Advertises(r, p) {
					row[n+j] = int32(r)
				}
				continue
			}
			if nh, ok := net.NextHop(r, p); ok {
				row[n+j] = int32(nh)
			}
		}
		for d := 0; d < n; d++ {
			if s.external[i] {
				if d == i {
					row[d] = int32(r)
				}
				continue
			}
			if nh, ok := net.IGPNextHop(r, netsim.RouterID(d)); ok {
				row[d] = int32(nh)
			}
		}
		if !s.external[i] {
			if acl, ok := net.ACL(r); ok {
				s.acls[r] = acl
			}
		}
	}
	return s
}

func (s *State) numDest() int {
	return s.numDevices + len(s.prefixes)
}

func (s *State) destIndex(d netsim.Destination) (int, bool) {
	if d.Kind == netsim.DestIGP {
		if int(d.Router) >= s.numDevices {
			return 0, false
		}
		return int(d.Router), true
	}
	i, ok := s.prefixIdx[d.Prefix]
	if !ok {
		return 0, false
	}
	return s.numDevices + i, true
}

func (s *State) nextOf(r netsim.RouterID, dest int) int32 {
	return s.next[int(r)*s.numDest()+dest]
}

// Route returns the path from source toward prefix p. Access control lists are
// not considered.
func (s *State) Route(source netsim.RouterID, p netsim.Prefix) ([]netsim.RouterID, error) {
	if int(source) >= s.numDevices {
		return nil, &PathError{Err: ErrDeviceNotFound, Path: []netsim.RouterID{source}}
	}
	dest, ok := s.destIndex(netsim.BGP(p))
	if !ok {
		return nil, &PathError{Err: ErrForwardingBlackHole, Path: []netsim.RouterID{source}}
	}
	path, kind := s.walk(source, dest)
	return resultOf(path, kind)
}

// RouteTo returns the path from source toward dst, applying the access
// control lists of traversed routers to traffic originating at source.
func (s *State) RouteTo(source netsim.RouterID,
	dst netsim.Destination) ([]netsim.RouterID, error) {

	if int(source) >= s.numDevices {
		return nil, &PathError{Err: ErrDeviceNotFound, Path: []netsim.RouterID{source}}
	}
	dest, ok := s.destIndex(dst)
	if !ok {
		if dst.Kind == netsim.DestIGP {
			return nil, &PathError{Err: ErrDeviceNotFound, Path: []netsim.RouterID{dst.Router}}
		}
		return nil, &PathError{Err: ErrForwardingBlackHole, Path: []netsim.RouterID{source}}
	}
	path, kind := s.walk(source, dest)
	checked := path
	if kind != resultValid {
		// The last router of a loop is a repetition, the last router of a
		// black hole drops the traffic anyway.
		checked = path[:len(path)-1]
	}
	for i, r := range checked {
		if acl, ok := s.acls[r]; ok && !acl.Allows(source) {
			return nil, &PathError{Err: ErrAccessDenied, Path: slices.Clone(path[:i+1])}
		}
	}
	return resultOf(path, kind)
}

func resultOf(path []netsim.RouterID, kind resultKind) ([]netsim.RouterID, error) {
	switch kind {
	case resultBlackHole:
		return nil, &PathError{Err: ErrForwardingBlackHole, Path: slices.Clone(path)}
	case resultLoop:
		return nil, &PathError{Err: ErrForwardingLoop, Path: slices.Clone(path)}
	default:
		return slices.Clone(path), nil
	}
}

// walk follows the next hop chain from source. The returned path is shared
// with the cache and must not be modified.
func (s *State) walk(source netsim.RouterID, dest int) ([]netsim.RouterID, resultKind) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var path []netsim.RouterID
	visited := make(map[netsim.RouterID]int)
	cur := source
	kind := resultValid
	walked := 0
	freshLoop := false
	for {
		if e, ok := s.cache[cacheKey{router: cur, dest: dest}]; ok {
			path = append(path, e.path...)
			kind = e.kind
			break
		}
		if _, seen := visited[cur]; seen {
			path = append(path, cur)
			kind = resultLoop
			freshLoop = true
			break
		}
		visited[cur] = len(path)
		path = append(path, cur)
		walked++
		nh := s.nextOf(cur, dest)
		if nh < 0 {
			kind = resultBlackHole
			break
		}
		if netsim.RouterID(nh) == cur {
			if !s.external[cur] && dest != int(cur) {
				kind = resultBlackHole
			}
			break
		}
		cur = netsim.RouterID(nh)
	}

	updateUpto := walked
	if freshLoop {
		last := path[len(path)-1]
		loopPos := visited[last]
		for i := loopPos; i < len(path)-1; i++ {
			rotated := make([]netsim.RouterID, 0, len(path)-loopPos)
			rotated = append(rotated, path[i:len(path)-1]...)
			rotated = append(rotated, path[loopPos:i+1]...)
			s.cache[cacheKey{router: path[i], dest: dest}] = cacheEntry{
				path: rotated,
				kind: resultLoop,
			}
		}
		updateUpto = loopPos
	}
	for i := 0; i < updateUpto; i++ {
		s.cache[cacheKey{router: path[i], dest: dest}] = cacheEntry{path: path[i:], kind: kind}
	}
	return path, kind
}

// NextHop returns the next hop of r toward prefix p.
func (s *State) NextHop(r netsim.RouterID, p netsim.Prefix) (netsim.RouterID, bool) {
	dest, ok := s.destIndex(netsim.BGP(p))
	if !ok || int(r) >= s.numDevices {
		return 0, false
	}
	nh := s.nextOf(r, dest)
	if nh < 0 {
		return 0, false
	}
	return netsim.RouterID(nh), true
}

// HasDiffNextHop reports whether r forwards p differently in s and other.
func (s *State) HasDiffNextHop(r netsim.RouterID, p netsim.Prefix, other *State) bool {
	a, okA := s.NextHop(r, p)
	b, okB := other.NextHop(r, p)
	return okA != okB || a != b
}

// Equal reports whether both states forward every destination identically.
func (s *State) Equal(other *State) bool {
	return s.numDevices == other.numDevices &&
		slices.Equal(s.prefixes, other.prefixes) &&
		slices.Equal(s.next, other.next)
}

// Prefixes returns the prefixes known to the state in ascending order.
func (s *State) Prefixes() []netsim.Prefix {
	return slices.Clone(s.prefixes)
}

// NumDevices returns the number of devices of the snapshot.
func (s *State) NumDevices() int {
	return s.numDevices
}

// IsExternal reports whether r is an external router.
func (s *State) IsExternal(r netsim.RouterID) bool {
	return int(r) < s.numDevices && s.external[r]
}

// Flow is a valid forwarding path of one router toward one prefix.
type Flow struct {
	Router netsim.RouterID
	Prefix netsim.Prefix
	Path   []netsim.RouterID
}

// Flows returns every valid path starting at an internal router, ordered by
// router and prefix.
func (s *State) Flows() []Flow {
	var flows []Flow
	for i := 0; i < s.numDevices; i++ {
		if s.external[i] {
			continue
		}
		for _, p := range s.prefixes {
			path, err := s.Route(netsim.RouterID(i), p)
			if err != nil {
				continue
			}
			flows = append(flows, Flow{Router: netsim.RouterID(i), Prefix: p, Path: path})
		}
	}
	return flows
}
