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

// Package netsim is a logical simulator for BGP/IGP networks. It computes the
// outcome of route propagation, i.e. the selected next hop of every router
// toward every prefix, without modelling timers or messages.
//
// A network consists of internal routers, external routers that advertise
// prefixes, undirected physical links and a Config. The Config holds every
// configuration expression (IGP link weights, BGP sessions, route maps, static
// routes and access control lists). Configuration changes are expressed as
// Modifiers and applied one at a time.
package netsim

import (
	"errors"
	"fmt"

	"github.com/netupdate/netupdate/pkg/private/serrors"
)

// RouterID identifies a device of a network. IDs are dense and assigned in
// creation order.
type RouterID uint32

// Prefix is an IP prefix, abstracted to an integer.
type Prefix uint32

// AsID is an autonomous system number.
type AsID uint32

func (p Prefix) String() string {
	return fmt.Sprintf("p%d", uint32(p))
}

func (a AsID) String() string {
	return fmt.Sprintf("AS%d", uint32(a))
}

// SessionType is the type of a BGP session.
type SessionType int

const (
	// EBGP is a session between an internal and an external router.
	EBGP SessionType = iota
	// IBGPPeer is a regular iBGP session. A client sees its route reflector
	// as IBGPPeer.
	IBGPPeer
	// IBGPClient is a route reflector session; the target of the session is
	// the client of the source.
	IBGPClient
)

func (t SessionType) String() string {
	switch t {
	case EBGP:
		return "ebgp"
	case IBGPPeer:
		return "ibgp-peer"
	case IBGPClient:
		return "ibgp-client"
	default:
		return fmt.Sprintf("session-type(%d)", int(t))
	}
}

// ParseSessionType parses the names returned by SessionType.String.
func ParseSessionType(s string) (SessionType, error) {
	switch s {
	case "ebgp":
		return EBGP, nil
	case "ibgp-peer", "peer":
		return IBGPPeer, nil
	case "ibgp-client", "client":
		return IBGPClient, nil
	default:
		return 0, serrors.New("unknown session type", "type", s)
	}
}

// Neighbor is a BGP session as seen from one of its endpoints.
type Neighbor struct {
	ID   RouterID
	Type SessionType
}

// DestinationKind distinguishes BGP and IGP destinations.
type DestinationKind int

const (
	// DestBGP is a BGP prefix.
	DestBGP DestinationKind = iota
	// DestIGP is the IGP reachability of a device.
	DestIGP
)

// Destination is the target of a forwarding query.
type Destination struct {
	Kind   DestinationKind
	Prefix Prefix
	Router RouterID
}

// BGP returns the destination of prefix p.
func BGP(p Prefix) Destination {
	return Destination{Kind: DestBGP, Prefix: p}
}

// IGP returns the IGP destination of router r.
func IGP(r RouterID) Destination {
	return Destination{Kind: DestIGP, Router: r}
}

func (d Destination) String() string {
	if d.Kind == DestIGP {
		return fmt.Sprintf("igp(%d)", d.Router)
	}
	return fmt.Sprintf("bgp(%s)", d.Prefix)
}

// Advertisement is a route announced by an external router.
type Advertisement struct {
	Prefix Prefix
	AsPath []AsID
}

// VirtualLink replaces next hop NextHop of a router toward Prefix by a
// symbolic direct link to External.
type VirtualLink struct {
	NextHop  RouterID
	Prefix   Prefix
	External RouterID
}

var (
	ErrDeviceNotFound = errors.New("device not found")
	ErrDuplicateName  = errors.New("duplicate device name")
	ErrExprExists     = errors.New("config expression already exists")
	ErrExprMissing    = errors.New("config expression does not exist")
	ErrExprMismatch   = errors.New("config expression does not match")
	ErrNoConvergence  = errors.New("bgp did not converge")
	ErrInvalidLink    = errors.New("invalid link")
	ErrInvalidExpr    = errors.New("invalid config expression")
)
