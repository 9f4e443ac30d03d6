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

// Package prom contains label names, label values and helpers shared by the
// prometheus collectors.
package prom

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// LabelReason is the label for failure classifications, possible values are
// prefixed with Reason*.
const LabelReason = "reason"

// Failure reasons.
const (
	ReasonTimeout             = "timeout"
	ReasonNoSafeOrdering      = "no_safe_ordering"
	ReasonInvalidInitialState = "invalid_initial_state"
	// ReasonOther is an error that is not further classified.
	ReasonOther = "other"
)

var (
	// DefaultLatencyBuckets 1ms, 4ms, 16ms, ... 65.5s, 262s.
	DefaultLatencyBuckets = prometheus.ExponentialBuckets(0.001, 4, 10)
)

// SafeRegister registers c with reg and returns the registered collector. If
// an equal collector was already registered the existing one is returned. In
// case of any other error this method panics (as MustRegister).
func SafeRegister(reg prometheus.Registerer, c prometheus.Collector) prometheus.Collector {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector
		}
		panic(err)
	}
	return c
}
