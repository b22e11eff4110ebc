// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/consensys/go-x86hoare/pkg/scenario"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Check_00(t *testing.T) {
	var buf bytes.Buffer
	//
	ok := runCheck(&buf, scenario.All(), checkConfig{fuel: DEFAULT_FUEL})
	assert.True(t, ok, buf.String())
	assert.Equal(t, len(scenario.All()), strings.Count(buf.String(), "proved"))
}

func Test_Check_01(t *testing.T) {
	all, err := selectScenarios(nil)
	require.NoError(t, err)
	assert.Len(t, all, len(scenario.All()))
	//
	some, err := selectScenarios([]string{"swap", "max"})
	require.NoError(t, err)
	require.Len(t, some, 2)
	assert.Equal(t, "swap", some[0].Name)
	//
	_, err = selectScenarios([]string{"swap", "nonexistent"})
	assert.ErrorIs(t, err, scenario.ErrUnknown)
}

func Test_Check_02(t *testing.T) {
	var buf bytes.Buffer
	//
	s, err := scenario.Lookup("countdown")
	require.NoError(t, err)
	//
	ok := runCheck(&buf, []*scenario.Scenario{s}, checkConfig{fuel: 4})
	assert.False(t, ok)
	assert.Contains(t, buf.String(), "exhausted")
}

func Test_List_00(t *testing.T) {
	var buf bytes.Buffer
	//
	runList(&buf, scenario.All(), false)
	//
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, len(scenario.All()))
	assert.NotContains(t, buf.String(), "\033")
}

func Test_Disasm_00(t *testing.T) {
	var buf bytes.Buffer
	//
	s, err := scenario.Lookup("mov-const")
	require.NoError(t, err)
	require.NoError(t, runDisasm(&buf, s, false))
	//
	assert.Contains(t, buf.String(), "mov")
	assert.Contains(t, buf.String(), "400000:")
}

func Test_Disasm_01(t *testing.T) {
	var buf bytes.Buffer
	//
	s, err := scenario.Lookup("mov-const")
	require.NoError(t, err)
	require.NoError(t, runDisasm(&buf, s, true))
	// movabs rax, 42
	assert.True(t, strings.HasPrefix(buf.String(), "48 b8 2a 00"), buf.String())
}

func Test_Version_00(t *testing.T) {
	defer func(v string) { Version = v }(Version)
	//
	Version = "v1.2.3"
	assert.Equal(t, "v1.2.3", versionString())
	//
	Version = ""
	assert.NotEmpty(t, versionString())
}
