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


// Package config defines how configuration blocks are defaulted, validated
// and rendered as commented TOML samples.
//
// Every block implements Config. InitDefaults fills unset fields, Validate
// rejects invalid values and Sample writes a sample that decodes back into
// the defaults. Blocks that appear as a TOML table also implement
// TableSampler so that WriteSample can emit the table header.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/netupdate/netupdate/pkg/private/serrors"
)

// Config is implemented by every configuration block.
type Config interface {
	Sampler
	Validator
	Defaulter
}

// Validator checks a block.
type Validator interface {
	// Validate returns an error if any field holds an invalid value.
	Validate() error
}

// Defaulter initializes a block.
type Defaulter interface {
	// InitDefaults sets all unset fields to their default.
	InitDefaults()
}

// Sampler writes a sample block. Sample panics if writing fails.
type Sampler interface {
	Sample(dst io.Writer, path Path, ctx CtxMap)
}

// TableSampler is a Sampler for a named TOML table.
type TableSampler interface {
	Sampler
	// ConfigName is the table name of the block.
	ConfigName() string
}

// Path is the dotted name of a nested table.
type Path []string

// Extend returns a copy of p with s appended.
func (p Path) Extend(s string) Path {
	c := append(Path(nil), p...)
	return append(c, s)
}

// NoValidator can be embedded by blocks without validation.
type NoValidator struct{}

// Validate returns nil.
func (NoValidator) Validate() error {
	return nil
}

// NoDefaulter can be embedded by blocks without defaults.
type NoDefaulter struct{}

// InitDefaults does nothing.
func (NoDefaulter) InitDefaults() {}

// ValidateAll validates in order and returns the first error.
func ValidateAll(validators ...Validator) error {
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return serrors.Wrap("invalid config", err, "type", fmt.Sprintf("%T", v))
		}
	}
	return nil
}

// InitAll initializes all defaulters.
func InitAll(defaulters ...Defaulter) {
	for _, d := range defaulters {
		d.InitDefaults()
	}
}

// Decode decodes TOML into cfg. Unknown keys are an error.
func Decode(raw []byte, cfg any) error {
	if err := toml.NewDecoder(bytes.NewReader(raw)).DisallowUnknownFields().Decode(cfg); err != nil {
		return serrors.Wrap("decoding toml", err)
	}
	return nil
}

// LoadFile decodes the TOML file into cfg.
func LoadFile(file string, cfg any) error {
	raw, err := os.ReadFile(file)
	if err != nil {
		return serrors.Wrap("reading config", err, "file", file)
	}
	if err := Decode(raw, cfg); err != nil {
		return serrors.Wrap("loading config", err, "file", file)
	}
	return nil
}
