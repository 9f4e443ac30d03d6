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

package metrics_test

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/netupdate/netupdate/pkg/metrics"
	"github.com/netupdate/netupdate/pkg/private/prom"
)

func TestSynthesis(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewSynthesis(metrics.ApplyOptions(metrics.WithRegistry(reg)).Auto())

	m.SetZones(3)
	m.ObserveSolve(0.5, nil, "")
	m.ObserveSolve(0.1, errors.New("boom"), prom.ReasonTimeout)
	m.AddExplored(12)
	m.AddExplored(-1)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.Zones))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Solved))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Failed.WithLabelValues(prom.ReasonTimeout)))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.Explored))
	n, err := testutil.GatherAndCount(reg)
	assert.NoError(t, err)
	assert.Equal(t, 5, n)

	again := metrics.NewSynthesis(metrics.ApplyOptions(metrics.WithRegistry(reg)).Auto())
	assert.Equal(t, 3.0, testutil.ToFloat64(again.Zones))
}

func TestNilSynthesis(t *testing.T) {
	var m *metrics.Synthesis
	assert.NotPanics(t, func() {
		m.SetZones(1)
		m.ObserveSolve(1, nil, "")
		m.AddExplored(1)
	})
}
