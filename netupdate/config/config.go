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


// Package config contains the configuration of the netupdate command.
package config

import (
	"io"
	"time"

	"github.com/netupdate/netupdate/pkg/private/serrors"
	"github.com/netupdate/netupdate/pkg/private/util"
	"github.com/netupdate/netupdate/pkg/strategy"
	"github.com/netupdate/netupdate/private/config"
	"github.com/netupdate/netupdate/private/env"
	"github.com/netupdate/netupdate/private/strategy/zonal"
)

const (
	// DefaultBudget is the default time budget of one synthesis run.
	DefaultBudget = 5 * time.Minute
)

var _ config.Config = (*Config)(nil)

// Config is the netupdate configuration.
type Config struct {
	Logging   env.Logging `toml:"log,omitempty"`
	Metrics   env.Metrics `toml:"metrics,omitempty"`
	Tracing   env.Tracing `toml:"tracing,omitempty"`
	Synthesis Synthesis   `toml:"synthesis,omitempty"`
}

// InitDefaults initializes the default values for all parts of the config.
func (cfg *Config) InitDefaults() {
	config.InitAll(
		&cfg.Logging,
		&cfg.Metrics,
		&cfg.Tracing,
		&cfg.Synthesis,
	)
}

// Validate validates all parts of the config.
func (cfg *Config) Validate() error {
	return config.ValidateAll(
		&cfg.Logging,
		&cfg.Metrics,
		&cfg.Tracing,
		&cfg.Synthesis,
	)
}

// Sample generates a sample config file for netupdate.
func (cfg *Config) Sample(dst io.Writer, path config.Path, _ config.CtxMap) {
	config.WriteSample(dst, path, nil,
		&cfg.Logging,
		&cfg.Metrics,
		&cfg.Tracing,
		&cfg.Synthesis,
	)
}

// Load reads, defaults and validates the configuration in file. An empty
// file name yields the defaults.
func Load(file string) (Config, error) {
	var cfg Config
	if file != "" {
		if err := config.LoadFile(file, &cfg); err != nil {
			return Config{}, err
		}
	}
	cfg.InitDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var _ config.Config = (*Synthesis)(nil)

// Synthesis is the [synthesis] block.
type Synthesis struct {
	// Strategy is zone or linear.
	Strategy strategy.Kind `toml:"strategy,omitempty"`
	// Parallelism bounds the zones solved concurrently.
	Parallelism int `toml:"parallelism,omitempty"`
	// Budget bounds the duration of a synthesis run.
	Budget util.DurWrap `toml:"budget,omitempty"`
	// Verify replays the topological order of the result and checks the
	// policy in every state.
	Verify bool `toml:"verify,omitempty"`
}

func (cfg *Synthesis) InitDefaults() {
	if cfg.Parallelism == 0 {
		cfg.Parallelism = zonal.DefaultParallelism
	}
	if cfg.Budget.Duration == 0 {
		cfg.Budget.Duration = DefaultBudget
	}
}

func (cfg *Synthesis) Validate() error {
	if _, err := cfg.Strategy.MarshalText(); err != nil {
		return err
	}
	if cfg.Parallelism < 1 {
		return serrors.New("parallelism must be positive", "parallelism", cfg.Parallelism)
	}
	if cfg.Budget.Duration < 0 {
		return serrors.New("budget must not be negative", "budget", cfg.Budget)
	}
	return nil
}

func (cfg *Synthesis) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	config.WriteString(dst, synthesisSample)
}

func (cfg *Synthesis) ConfigName() string {
	return "synthesis"
}
