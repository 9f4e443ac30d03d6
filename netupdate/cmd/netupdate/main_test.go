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


package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"

	"github.com/netupdate/netupdate/netupdate/config"
	libconfig "github.com/netupdate/netupdate/private/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("NETUPDATE_CONFIG", "")
	root := newRoot()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSample(t *testing.T) {
	out, err := execute(t, "sample")
	require.NoError(t, err)
	var cfg config.Config
	require.NoError(t, libconfig.Decode([]byte(out), &cfg))
}

func TestSynthesizeLinear(t *testing.T) {
	out, err := execute(t, "synthesize", "--scenario", "testdata/sigcomm.toml",
		"--strategy", "linear", "--verify", "--critical-path", "--format", "json")
	require.NoError(t, err)

	var res result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "linear", res.Strategy)
	require.Len(t, res.Steps, 4)
	assert.Equal(t, 4, res.Levels)
	require.NotNil(t, res.Verified)
	assert.True(t, *res.Verified)
	assert.NotNil(t, res.CriticalPath)
	assert.Empty(t, res.Steps[0].After)
	for i, s := range res.Steps[1:] {
		assert.Equal(t, []int{res.Steps[i].ID}, s.After)
	}
}

func TestSynthesizeYAML(t *testing.T) {
	out, err := execute(t, "synthesize", "--scenario", "testdata/sigcomm.toml",
		"-s", "linear", "--format", "yaml")
	require.NoError(t, err)

	var res result
	require.NoError(t, yaml.Unmarshal([]byte(out), &res))
	assert.Equal(t, "linear", res.Strategy)
	assert.Len(t, res.Steps, 4)
	assert.Nil(t, res.Verified)
	assert.Contains(t, out, "r2->b1")
}

func TestSynthesizeZoneHuman(t *testing.T) {
	out, err := execute(t, "synthesize", "--scenario", "testdata/sigcomm.toml")
	require.NoError(t, err)
	assert.Contains(t, out, "Strategy: zone, 4 changes")
	assert.Contains(t, out, "LEVEL")
	assert.Contains(t, out, "bgp-session(r2->b1 ibgp-client)")
	assert.NotContains(t, out, "Verification")
}

func TestSynthesizeErrors(t *testing.T) {
	testCases := map[string][]string{
		"missing scenario": {"synthesize"},
		"unknown strategy": {"synthesize", "--scenario", "testdata/sigcomm.toml", "-s", "random"},
		"unknown format":   {"synthesize", "--scenario", "testdata/sigcomm.toml", "--format", "xml"},
		"no such file":     {"synthesize", "--scenario", "testdata/missing.toml"},
		"bad config":       {"synthesize", "--scenario", "testdata/sigcomm.toml", "-c", "testdata/missing.toml"},
	}
	for name, args := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := execute(t, args...)
			assert.Error(t, err)
		})
	}
}

func TestPrintHumanColor(t *testing.T) {
	ok := true
	res := result{Strategy: "linear", Verified: &ok}

	var plain bytes.Buffer
	printHuman(&plain, res, false)
	assert.Contains(t, plain.String(), "Verification: ok")
	assert.NotContains(t, plain.String(), "\x1b[")

	var colored bytes.Buffer
	printHuman(&colored, res, true)
	assert.Contains(t, colored.String(), "\x1b[32mok")
}
