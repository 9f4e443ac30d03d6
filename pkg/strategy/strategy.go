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

// Package strategy defines the interfaces of the migration ordering
// algorithms and the errors they report.
//
// A Strategy returns one safe linear ordering of the modifiers it was
// constructed with. A DAGStrategy returns a dependency graph over the indices
// of the modifiers instead: any two modifiers without a path between them may
// be applied concurrently.
package strategy

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/netupdate/netupdate/pkg/dag"
	"github.com/netupdate/netupdate/pkg/netsim"
	"github.com/netupdate/netupdate/pkg/policy"
	"github.com/netupdate/netupdate/pkg/private/prom"
	"github.com/netupdate/netupdate/pkg/private/serrors"
)

var (
	// ErrZoneSegmentationFailed indicates that the zone orderings could not
	// be merged into one consistent dependency graph.
	ErrZoneSegmentationFailed = errors.New("zone segmentation failed")
	// ErrInvalidInitialState indicates that the policy does not hold before
	// any modifier is applied.
	ErrInvalidInitialState = errors.New("policy violated in the initial state")
	// ErrInvalidFinalState indicates that the policy does not hold after all
	// modifiers are applied.
	ErrInvalidFinalState = errors.New("policy violated in the final state")
	// ErrNotImplemented indicates an unsupported policy or strategy.
	ErrNotImplemented = errors.New("not implemented")
	// ErrExecutionFailed indicates a failure while applying a graph.
	ErrExecutionFailed = errors.New("execution failed")
	// ErrTimeout indicates that the time budget expired or the search was
	// stopped.
	ErrTimeout = errors.New("timeout")
	// ErrNoSafeOrdering indicates that no ordering satisfies the policy.
	ErrNoSafeOrdering = errors.New("no safe ordering")
)

// ConfigID is the index of a modifier in the list a strategy was constructed
// with.
type ConfigID = int

// Strategy computes a linear ordering of modifiers.
type Strategy interface {
	Work(ctx context.Context) ([]netsim.Modifier, error)
}

// DAGStrategy computes a dependency graph over modifier indices.
type DAGStrategy interface {
	Work(ctx context.Context) (*dag.DAG[ConfigID], error)
}

// SolverFactory constructs the linear solver used for a part of the problem.
type SolverFactory func(net *netsim.Network, mods []netsim.Modifier,
	pol *policy.HardPolicy) (Strategy, error)

// Kind selects a DAG strategy.
type Kind int

const (
	// KindZone partitions the network into zones and solves them separately.
	KindZone Kind = iota
	// KindLinear solves the whole network at once and chains the result.
	KindLinear
)

func (k Kind) String() string {
	switch k {
	case KindZone:
		return "zone"
	case KindLinear:
		return "linear"
	default:
		return "unknown"
	}
}

// ParseKind parses the name of a strategy kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "zone", "zonal":
		return KindZone, nil
	case "linear":
		return KindLinear, nil
	default:
		return 0, serrors.Join(ErrNotImplemented, nil, "kind", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if k != KindZone && k != KindLinear {
		return nil, serrors.Join(ErrNotImplemented, nil, "kind", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Timeout converts the outcome of a stopped search into ErrTimeout. Errors
// other than context cancellation are returned unchanged.
func Timeout(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return serrors.Join(ErrTimeout, err)
	}
	return err
}

// FailureReason classifies err for metric labels. It returns the empty string
// for nil.
func FailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return prom.ReasonTimeout
	case errors.Is(err, ErrNoSafeOrdering):
		return prom.ReasonNoSafeOrdering
	case errors.Is(err, ErrInvalidInitialState):
		return prom.ReasonInvalidInitialState
	default:
		return prom.ReasonOther
	}
}

// WithBudget derives a context that expires after budget. A zero budget
// leaves ctx unchanged.
func WithBudget(ctx context.Context, budget time.Duration) (context.Context, context.CancelFunc) {
	if budget <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, budget)
}
