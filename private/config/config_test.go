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


package config_test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netupdate/netupdate/private/config"
)

type block struct {
	config.NoDefaulter
	config.NoValidator
	Name string `toml:"name"`
}

func (b *block) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	config.WriteString(dst, "name = \"x\"\n\n# trailing\n")
}

func (b *block) ConfigName() string { return "block" }

type plain struct{}

func (plain) Sample(dst io.Writer, _ config.Path, _ config.CtxMap) {
	config.WriteString(dst, "top = 1\n")
}

func TestWriteSample(t *testing.T) {
	var buf bytes.Buffer
	config.WriteSample(&buf, config.Path{"root"}, nil, plain{}, &block{})
	assert.Equal(t, "top = 1\n\n[root.block]\n    name = \"x\"\n\n    # trailing\n", buf.String())
}

func TestDecode(t *testing.T) {
	var b struct {
		Block block `toml:"block"`
	}
	require.NoError(t, config.Decode([]byte("[block]\nname = \"a\"\n"), &b))
	assert.Equal(t, "a", b.Block.Name)
	assert.Error(t, config.Decode([]byte("[block]\nnope = 1\n"), &b))
}

func TestLoadFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "cfg.toml")
	require.NoError(t, os.WriteFile(file, []byte("name = \"b\"\n"), 0o644))
	var b block
	require.NoError(t, config.LoadFile(file, &b))
	assert.Equal(t, "b", b.Name)
	assert.Error(t, config.LoadFile(filepath.Join(t.TempDir(), "missing.toml"), &b))
}

func TestPathExtend(t *testing.T) {
	p := config.Path{"a"}
	q := p.Extend("b")
	assert.Equal(t, config.Path{"a"}, p)
	assert.Equal(t, config.Path{"a", "b"}, q)
}

func TestValidateAll(t *testing.T) {
	assert.NoError(t, config.ValidateAll(config.NoValidator{}, &block{}))
}
