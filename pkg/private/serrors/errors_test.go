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

package serrors_test

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/netupdate/netupdate/pkg/private/serrors"
)

type customErr struct {
	code int
}

func (e *customErr) Error() string { return "custom" }

func TestErrorString(t *testing.T) {
	testCases := map[string]struct {
		err      error
		expected string
	}{
		"new without context": {
			err:      serrors.New("simple"),
			expected: "simple",
		},
		"new with sorted context": {
			err:      serrors.New("walk failed", "router", 3, "prefix", 1),
			expected: "walk failed {prefix=1; router=3}",
		},
		"wrap": {
			err:      serrors.Wrap("reading", io.EOF, "file", "a.toml"),
			expected: "reading {file=a.toml}: EOF",
		},
		"join": {
			err:      serrors.Join(io.ErrUnexpectedEOF, io.EOF, "step", 2),
			expected: "unexpected EOF {step=2}: EOF",
		},
		"list": {
			err:      serrors.List{io.EOF, serrors.New("x")},
			expected: "[ EOF; x ]",
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.err.Error())
		})
	}
}

func TestIsAs(t *testing.T) {
	sentinel := errors.New("sentinel")
	custom := &customErr{code: 7}

	joined := serrors.Join(sentinel, custom, "k", "v")
	assert.ErrorIs(t, joined, sentinel)
	var ce *customErr
	require.True(t, errors.As(joined, &ce))
	assert.Equal(t, 7, ce.code)

	wrapped := serrors.Wrap("outer", joined)
	assert.ErrorIs(t, wrapped, sentinel)
	assert.ErrorIs(t, serrors.List{io.EOF, wrapped}, sentinel)
}

func TestJoinNil(t *testing.T) {
	assert.NoError(t, serrors.Join(nil, nil))
	err := serrors.Join(nil, io.EOF)
	assert.ErrorIs(t, err, io.EOF)
	assert.NoError(t, serrors.List{}.ToError())
}

func TestContext(t *testing.T) {
	err := serrors.Wrap("outer", serrors.New("inner"), "zone", "t1", "configs", 4)
	assert.Equal(t, map[string]any{"zone": "t1", "configs": 4}, serrors.Context(err))
	assert.Nil(t, serrors.Context(io.EOF))
}

func TestMarshalLogObject(t *testing.T) {
	err := serrors.Wrap("solve failed", io.EOF, "zone", "t2")
	m, ok := err.(zapcore.ObjectMarshaler)
	require.True(t, ok)
	enc := zapcore.NewMapObjectEncoder()
	require.NoError(t, m.MarshalLogObject(enc))
	assert.Equal(t, "solve failed", enc.Fields["msg"])
	assert.Equal(t, "EOF", enc.Fields["cause"])
	assert.Equal(t, "t2", enc.Fields["zone"])
}
