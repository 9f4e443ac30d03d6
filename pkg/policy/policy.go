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

// Package policy expresses hard policies: conditions over the forwarding
// state that must hold in every state visited during a migration.
package policy

import (
	"errors"
	"fmt"
	"slices"

	"github.com/netupdate/netupdate/pkg/fwstate"
	"github.com/netupdate/netupdate/pkg/netsim"
	"github.com/netupdate/netupdate/pkg/private/serrors"
)

// ErrViolated is returned if a condition does not hold.
var ErrViolated = errors.New("condition violated")

// ConditionKind is the kind of a condition.
type ConditionKind int

const (
	// KindReachable requires a valid path from Router toward Prefix.
	KindReachable ConditionKind = iota
	// KindNotReachable requires that Router cannot reach Prefix.
	KindNotReachable
	// KindReachableIGP requires Target to be IGP reachable from Router.
	KindReachableIGP
)

// Condition is a single propositional variable of a hard policy.
type Condition struct {
	Kind   ConditionKind
	Router netsim.RouterID
	Prefix netsim.Prefix
	Target netsim.RouterID
}

// Reachable returns the condition that r reaches p.
func Reachable(r netsim.RouterID, p netsim.Prefix) Condition {
	return Condition{Kind: KindReachable, Router: r, Prefix: p}
}

// NotReachable returns the condition that r does not reach p.
func NotReachable(r netsim.RouterID, p netsim.Prefix) Condition {
	return Condition{Kind: KindNotReachable, Router: r, Prefix: p}
}

// ReachableIGP returns the condition that r reaches target through the IGP.
func ReachableIGP(r, target netsim.RouterID) Condition {
	return Condition{Kind: KindReachableIGP, Router: r, Target: target}
}

func (c Condition) String() string {
	switch c.Kind {
	case KindNotReachable:
		return fmt.Sprintf("not-reachable(%d, %s)", c.Router, c.Prefix)
	case KindReachableIGP:
		return fmt.Sprintf("reachable-igp(%d, %d)", c.Router, c.Target)
	default:
		return fmt.Sprintf("reachable(%d, %s)", c.Router, c.Prefix)
	}
}

// Check evaluates the condition on fw. It returns an error wrapping
// ErrViolated, and the forwarding error if there is one, if the condition
// does not hold.
func (c Condition) Check(fw *fwstate.State) error {
	switch c.Kind {
	case KindReachable:
		if _, err := fw.RouteTo(c.Router, netsim.BGP(c.Prefix)); err != nil {
			return serrors.Join(ErrViolated, err, "condition", c)
		}
	case KindNotReachable:
		if path, err := fw.RouteTo(c.Router, netsim.BGP(c.Prefix)); err == nil {
			return serrors.Join(ErrViolated, nil, "condition", c, "path", path)
		}
	case KindReachableIGP:
		if _, err := fw.RouteTo(c.Router, netsim.IGP(c.Target)); err != nil {
			return serrors.Join(ErrViolated, err, "condition", c)
		}
	default:
		return serrors.New("unknown condition kind", "kind", int(c.Kind))
	}
	return nil
}

// Modality is the temporal modality of a hard policy.
type Modality int

const (
	// Globally requires the conditions to hold in every state.
	Globally Modality = iota
)

// HardPolicy is a set of conditions with a modality. It keeps the history of
// the states it was stepped through, so that a search can step forward and
// undo.
type HardPolicy struct {
	Modality   Modality
	Conditions []Condition

	history [][]error
}

// NewGlobally returns a policy requiring all conditions in every state.
// Duplicate conditions are dropped.
func NewGlobally(conds []Condition) *HardPolicy {
	h := &HardPolicy{Modality: Globally}
	for _, c := range conds {
		h.Add(c)
	}
	return h
}

// Reachability returns the policy that every internal router of net reaches
// every known prefix in every state.
func Reachability(net *netsim.Network) *HardPolicy {
	var conds []Condition
	for _, r := range net.Routers() {
		for _, p := range net.KnownPrefixes() {
			conds = append(conds, Reachable(r, p))
		}
	}
	return NewGlobally(conds)
}

// Add adds c unless the policy already contains it and reports whether it
// was added.
func (h *HardPolicy) Add(c Condition) bool {
	if slices.Contains(h.Conditions, c) {
		return false
	}
	h.Conditions = append(h.Conditions, c)
	return true
}

// IsGlobalReachability reports whether the policy only requires reachability
// conditions globally.
func (h *HardPolicy) IsGlobalReachability() bool {
	if h.Modality != Globally {
		return false
	}
	for _, c := range h.Conditions {
		if c.Kind != KindReachable {
			return false
		}
	}
	return true
}

// Evaluate checks all conditions on fw without touching the history.
func (h *HardPolicy) Evaluate(fw *fwstate.State) error {
	return serrors.List(h.violations(fw)).ToError()
}

func (h *HardPolicy) violations(fw *fwstate.State) []error {
	var errs []error
	for _, c := range h.Conditions {
		if err := c.Check(fw); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Step records the evaluation of the policy on a new state.
func (h *HardPolicy) Step(fw *fwstate.State) {
	h.history = append(h.history, h.violations(fw))
}

// Undo drops the last recorded state.
func (h *HardPolicy) Undo() {
	if len(h.history) > 0 {
		h.history = h.history[:len(h.history)-1]
	}
}

// Check reports whether the policy holds over all recorded states.
func (h *HardPolicy) Check() bool {
	for _, v := range h.history {
		if len(v) != 0 {
			return false
		}
	}
	return true
}

// Violations returns the violations of the last recorded state.
func (h *HardPolicy) Violations() []error {
	if len(h.history) == 0 {
		return nil
	}
	return slices.Clone(h.history[len(h.history)-1])
}

// Depth returns the number of recorded states.
func (h *HardPolicy) Depth() int {
	return len(h.history)
}

// Reset drops the history.
func (h *HardPolicy) Reset() {
	h.history = nil
}

// Clone returns a copy with the same conditions and an empty history.
func (h *HardPolicy) Clone() *HardPolicy {
	return &HardPolicy{Modality: h.Modality, Conditions: slices.Clone(h.Conditions)}
}
