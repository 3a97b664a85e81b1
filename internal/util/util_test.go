// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetResolvedPath_AbsoluteAndEmptyPassThrough(t *testing.T) {
	for _, input := range []string{"", "/var/log/hellofs.log"} {
		resolved, err := GetResolvedPath(input)

		require.NoError(t, err)
		assert.Equal(t, input, resolved)
	}
}

func TestGetResolvedPath_TildeResolvesAgainstHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	resolved, err := GetResolvedPath("~/hellofs.log")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "hellofs.log"), resolved)
}

func TestGetResolvedPath_RelativeResolvesAgainstParentProcessDir(t *testing.T) {
	t.Setenv(LIBFUSEGO_PARENT_PROCESS_DIR, "/some/cwd")

	resolved, err := GetResolvedPath("./logs/hellofs.log")

	require.NoError(t, err)
	assert.Equal(t, "/some/cwd/logs/hellofs.log", resolved)
}

func TestGetResolvedPath_RelativeWithoutParentProcessDirIsMadeAbsolute(t *testing.T) {
	t.Setenv(LIBFUSEGO_PARENT_PROCESS_DIR, "")
	wd, err := os.Getwd()
	require.NoError(t, err)

	resolved, err := GetResolvedPath("hellofs.log")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "hellofs.log"), resolved)
}

func TestYAMLStringify(t *testing.T) {
	type doc struct {
		Name  string `yaml:"name"`
		Count int    `yaml:"count"`
	}

	str, err := YAMLStringify(&doc{Name: "hello", Count: 2})

	require.NoError(t, err)
	assert.Equal(t, "name: hello\ncount: 2\n", str)
}
