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

// Package backtrack implements an exhaustive depth first search for a
// linear ordering of modifiers that keeps a hard policy satisfied in every
// intermediate state.
package backtrack

import (
	"context"

	"github.com/hashicorp/golang-lru/arc/v2"

	"github.com/netupdate/netupdate/pkg/fwstate"
	"github.com/netupdate/netupdate/pkg/log"
	"github.com/netupdate/netupdate/pkg/metrics"
	"github.com/netupdate/netupdate/pkg/netsim"
	"github.com/netupdate/netupdate/pkg/policy"
	"github.com/netupdate/netupdate/pkg/private/serrors"
	"github.com/netupdate/netupdate/pkg/strategy"
)

// DefaultMemoSize is the number of dead-end states remembered per search.
const DefaultMemoSize = 1 << 16

type options struct {
	metrics  *metrics.Synthesis
	memoSize int
}

// Option configures a Solver.
type Option func(*options)

// WithMetrics records the number of explored states.
func WithMetrics(m *metrics.Synthesis) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithMemoSize bounds the number of dead-end states remembered. Forgetting
// a state only costs search time.
func WithMemoSize(n int) Option {
	return func(o *options) {
		o.memoSize = n
	}
}

// Solver searches an ordering. It keeps its own copies of the network and
// the policy.
type Solver struct {
	net  *netsim.Network
	mods []netsim.Modifier
	pol  *policy.HardPolicy
	opts options

	explored int
}

var _ strategy.Strategy = (*Solver)(nil)

// New returns a solver for ordering mods on net. It fails with
// ErrInvalidInitialState if pol does not hold on net.
func New(net *netsim.Network, mods []netsim.Modifier, pol *policy.HardPolicy,
	opts ...Option) (*Solver, error) {

	o := options{memoSize: DefaultMemoSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.memoSize <= 0 {
		return nil, serrors.New("memo size must be positive", "size", o.memoSize)
	}
	s := &Solver{
		net:  net.Clone(),
		mods: append([]netsim.Modifier(nil), mods...),
		pol:  pol.Clone(),
		opts: o,
	}
	if err := s.pol.Evaluate(fwstate.New(s.net)); err != nil {
		return nil, serrors.Join(strategy.ErrInvalidInitialState, err)
	}
	return s, nil
}

// Factory returns a strategy.SolverFactory constructing solvers with opts.
func Factory(opts ...Option) strategy.SolverFactory {
	return func(net *netsim.Network, mods []netsim.Modifier,
		pol *policy.HardPolicy) (strategy.Strategy, error) {

		return New(net, mods, pol, opts...)
	}
}

// Explored returns the number of states checked by the last call to Work.
func (s *Solver) Explored() int {
	return s.explored
}

// Work returns a safe ordering of all modifiers. It fails with
// ErrNoSafeOrdering if none exists and with ErrTimeout if ctx is done before
// the search completes.
func (s *Solver) Work(ctx context.Context) ([]netsim.Modifier, error) {
	s.explored = 0
	defer func() { s.opts.metrics.AddExplored(s.explored) }()

	if len(s.mods) == 0 {
		return nil, nil
	}
	failed, err := arc.NewARC[string, struct{}](s.opts.memoSize)
	if err != nil {
		return nil, serrors.Wrap("creating memo", err)
	}
	search := &search{
		ctx:    ctx,
		net:    s.net.Clone(),
		mods:   s.mods,
		pol:    s.pol.Clone(),
		used:   make([]bool, len(s.mods)),
		failed: failed,
	}
	search.pol.Step(fwstate.New(search.net))
	ok, err := search.run()
	s.explored = search.explored
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, serrors.Join(strategy.ErrNoSafeOrdering, nil,
			"modifiers", len(s.mods), "explored", s.explored)
	}
	order := make([]netsim.Modifier, len(search.order))
	for i, idx := range search.order {
		order[i] = s.mods[idx]
	}
	log.FromCtx(ctx).Debug("Found safe ordering", "modifiers", len(order), "explored", s.explored)
	return order, nil
}

type search struct {
	ctx  context.Context
	net  *netsim.Network
	mods []netsim.Modifier
	pol  *policy.HardPolicy

	used  []bool
	order []int
	// failed holds the sets of applied modifiers from which no safe
	// completion exists. The state only depends on the set, not on the order
	// it was reached in.
	failed   *arc.ARCCache[string, struct{}]
	explored int
}

func (s *search) key() string {
	b := make([]byte, (len(s.used)+7)/8)
	for i, u := range s.used {
		if u {
			b[i/8] |= 1 << (i % 8)
		}
	}
	return string(b)
}

func (s *search) run() (bool, error) {
	if len(s.order) == len(s.mods) {
		return true, nil
	}
	key := s.key()
	if s.failed.Contains(key) {
		return false, nil
	}
	for i, m := range s.mods {
		if s.used[i] {
			continue
		}
		if err := s.ctx.Err(); err != nil {
			return false, strategy.Timeout(err)
		}
		s.explored++
		if err := s.net.ApplyModifier(m); err != nil {
			// A modifier that cannot be applied in this state, for example
			// because BGP does not converge, is not a safe step.
			continue
		}
		s.pol.Step(fwstate.New(s.net))
		if s.pol.Check() {
			s.used[i] = true
			s.order = append(s.order, i)
			ok, err := s.run()
			if err != nil || ok {
				return ok, err
			}
			s.used[i] = false
			s.order = s.order[:len(s.order)-1]
		}
		s.pol.Undo()
		if err := s.net.UndoModifier(m); err != nil {
			return false, serrors.Wrap("undoing modifier", err, "modifier", m)
		}
	}
	s.failed.Add(key, struct{}{})
	return false, nil
}
