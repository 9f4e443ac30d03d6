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

package log_test

import (
	"context"
	"testing"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/mocktracer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/netupdate/netupdate/pkg/log"
)

func TestFromCtx(t *testing.T) {
	t.Run("nil context returns root", func(t *testing.T) {
		//nolint:staticcheck // nil context on purpose.
		assert.NotNil(t, log.FromCtx(nil))
	})
	t.Run("embedded logger is returned", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		l := log.FromZap(zap.New(core))
		ctx := log.CtxWith(context.Background(), l)
		log.FromCtx(ctx).Info("hello", "zone", 3)
		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		assert.Equal(t, "hello", entry.Message)
		assert.Equal(t, int64(3), entry.ContextMap()["zone"])
	})
	t.Run("span receives log lines", func(t *testing.T) {
		tracer := mocktracer.New()
		span := tracer.StartSpan("synthesize")
		ctx := opentracing.ContextWithSpan(context.Background(), span)
		core, logs := observer.New(zapcore.DebugLevel)
		ctx = log.CtxWith(ctx, log.FromZap(zap.New(core)))
		log.FromCtx(ctx).Debug("solving", "anchor", "t1")
		span.Finish()

		require.Equal(t, 1, logs.Len())
		finished := tracer.FinishedSpans()
		require.Len(t, finished, 1)
		require.Len(t, finished[0].Logs(), 1)
		fields := finished[0].Logs()[0].Fields
		require.Len(t, fields, 3)
		assert.Equal(t, "level", fields[0].Key)
		assert.Equal(t, "debug", fields[0].ValueString)
		assert.Equal(t, "anchor", fields[2].Key)
	})
}

func TestWithLabels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := log.CtxWith(context.Background(), log.FromZap(zap.New(core)))
	ctx, l := log.WithLabels(ctx, "strategy", "zone")
	l.Info("first")
	log.FromCtx(ctx).Info("second")
	require.Equal(t, 2, logs.Len())
	for _, e := range logs.All() {
		assert.Equal(t, "zone", e.ContextMap()["strategy"])
	}
}

func TestConfig(t *testing.T) {
	testCases := map[string]struct {
		cfg       log.Config
		assertErr assert.ErrorAssertionFunc
	}{
		"defaults":       {cfg: log.Config{}, assertErr: assert.NoError},
		"json debug":     {cfg: log.Config{Level: "debug", Format: "json"}, assertErr: assert.NoError},
		"unknown level":  {cfg: log.Config{Level: "loud"}, assertErr: assert.Error},
		"unknown format": {cfg: log.Config{Format: "xml"}, assertErr: assert.Error},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			tc.cfg.InitDefaults()
			tc.assertErr(t, tc.cfg.Validate())
		})
	}
}
