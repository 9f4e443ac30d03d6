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

package prom_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"github.com/netupdate/netupdate/pkg/private/prom"
)

func TestSafeRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	opts := prometheus.CounterOpts{Name: "test_total", Help: "Test."}
	first := prometheus.NewCounter(opts)
	assert.Same(t, first, prom.SafeRegister(reg, first))

	second := prometheus.NewCounter(opts)
	assert.Same(t, first, prom.SafeRegister(reg, second))

	// Same name with a different label set.
	clash := prometheus.NewCounterVec(opts, []string{prom.LabelReason})
	assert.Panics(t, func() { prom.SafeRegister(reg, clash) })
}

func TestDefaultLatencyBuckets(t *testing.T) {
	assert.Len(t, prom.DefaultLatencyBuckets, 10)
	assert.InDelta(t, 0.001, prom.DefaultLatencyBuckets[0], 1e-12)
	assert.InDelta(t, 0.004, prom.DefaultLatencyBuckets[1], 1e-12)
}
