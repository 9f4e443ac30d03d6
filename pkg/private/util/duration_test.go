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


package util_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netupdate/netupdate/pkg/private/util"
)

func TestParseDuration(t *testing.T) {
	testCases := map[string]struct {
		in        string
		out       time.Duration
		assertErr assert.ErrorAssertionFunc
	}{
		"seconds": {in: "30s", out: 30 * time.Second, assertErr: assert.NoError},
		"mixed":   {in: "1m30s", out: 90 * time.Second, assertErr: assert.NoError},
		"days":    {in: "2d", out: 48 * time.Hour, assertErr: assert.NoError},
		"zero":    {in: "0", out: 0, assertErr: assert.NoError},
		"garbage": {in: "soon", assertErr: assert.Error},
		"bad day": {in: "xd", assertErr: assert.Error},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			d, err := util.ParseDuration(tc.in)
			tc.assertErr(t, err)
			if err == nil {
				assert.Equal(t, tc.out, d)
			}
		})
	}
}

func TestDurWrap(t *testing.T) {
	var d util.DurWrap
	require.NoError(t, d.UnmarshalText([]byte("1500ms")))
	assert.Equal(t, 1500*time.Millisecond, d.Duration)
	b, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1.5s", string(b))
	assert.Error(t, d.Set("later"))
}
