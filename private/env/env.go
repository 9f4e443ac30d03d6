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


// Package env contains the configuration blocks and initialization code
// shared by the netupdate commands: logging, metrics export and tracing.
package env

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	jaeger "github.com/uber/jaeger-client-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"

	"github.com/netupdate/netupdate/pkg/log"
	"github.com/netupdate/netupdate/pkg/private/serrors"
	"github.com/netupdate/netupdate/private/config"
)

// HandlerTimeout is the time after which the metrics handler gives up.
const HandlerTimeout = 30 * time.Second

var (
	_ config.Config = (*Logging)(nil)
	_ config.Config = (*Metrics)(nil)
	_ config.Config = (*Tracing)(nil)
)

// Logging is the [log] block.
type Logging struct {
	log.Config
}

func (cfg *Logging) InitDefaults() {
	cfg.Config.InitDefaults()
}

func (cfg *Logging) Validate() error {
	return cfg.Config.Validate()
}

func (cfg *Logging) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	config.WriteString(dst, loggingSample)
}

func (cfg *Logging) ConfigName() string {
	return "log"
}

// Setup installs the root logger.
func (cfg *Logging) Setup() error {
	return log.Setup(cfg.Config)
}

// Metrics is the [metrics] block.
type Metrics struct {
	config.NoDefaulter
	// Prometheus is the address metrics are exported on. If empty, metrics
	// are not exported.
	Prometheus string `toml:"prometheus,omitempty"`
}

func (cfg *Metrics) Validate() error {
	if cfg.Prometheus == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(cfg.Prometheus); err != nil {
		return serrors.Wrap("invalid prometheus address", err, "addr", cfg.Prometheus)
	}
	return nil
}

func (cfg *Metrics) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	config.WriteString(dst, metricsSample)
}

func (cfg *Metrics) ConfigName() string {
	return "metrics"
}

// ServePrometheus serves the metrics of gatherer until ctx is done. It
// returns immediately if no address is configured.
func (cfg *Metrics) ServePrometheus(ctx context.Context, gatherer prometheus.Gatherer) error {
	if cfg.Prometheus == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		Timeout: HandlerTimeout,
	}))
	server := &http.Server{
		Addr:              cfg.Prometheus,
		Handler:           mux,
		ReadHeaderTimeout: time.Second,
	}
	log.FromCtx(ctx).Info("Exporting prometheus metrics", "addr", cfg.Prometheus)
	go func() {
		<-ctx.Done()
		server.Close()
	}()
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return serrors.Wrap("serving prometheus metrics", err)
	}
	return nil
}

// Tracing is the [tracing] block.
type Tracing struct {
	// Enabled enables tracing.
	Enabled bool `toml:"enabled,omitempty"`
	// Debug samples every span.
	Debug bool `toml:"debug,omitempty"`
	// Agent is the address of the jaeger agent.
	Agent string `toml:"agent,omitempty"`
}

func (cfg *Tracing) InitDefaults() {
	if cfg.Agent == "" {
		cfg.Agent = net.JoinHostPort(
			jaeger.DefaultUDPSpanServerHost,
			strconv.Itoa(jaeger.DefaultUDPSpanServerPort),
		)
	}
}

func (cfg *Tracing) Validate() error {
	if !cfg.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(cfg.Agent); err != nil {
		return serrors.Wrap("invalid tracing agent", err, "agent", cfg.Agent)
	}
	return nil
}

func (cfg *Tracing) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	config.WriteString(dst, tracingSample)
}

func (cfg *Tracing) ConfigName() string {
	return "tracing"
}

// NewTracer creates a tracer for service id. If tracing is disabled the
// tracer does nothing.
func (cfg *Tracing) NewTracer(id string) (opentracing.Tracer, io.Closer, error) {
	traceConfig := jaegercfg.Configuration{
		ServiceName: id,
		Disabled:    !cfg.Enabled,
		Reporter: &jaegercfg.ReporterConfig{
			LocalAgentHostPort: cfg.Agent,
		},
	}
	if cfg.Debug {
		traceConfig.Sampler = &jaegercfg.SamplerConfig{
			Type:  jaeger.SamplerTypeConst,
			Param: 1,
		}
	}
	tracer, closer, err := traceConfig.NewTracer()
	if err != nil {
		return nil, nil, serrors.Wrap("creating tracer", err)
	}
	return tracer, closer, nil
}

// InitTracer installs the tracer of cfg as the global tracer.
func InitTracer(cfg Tracing, id string) (io.Closer, error) {
	tracer, closer, err := cfg.NewTracer(id)
	if err != nil {
		return nil, err
	}
	opentracing.SetGlobalTracer(tracer)
	return closer, nil
}
