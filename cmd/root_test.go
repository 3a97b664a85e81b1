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

package cmd

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/googlecloudplatform/libfusego/cfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeRootCmd(t *testing.T, args []string) (*cfg.Config, string, error) {
	t.Helper()
	var gotConfig *cfg.Config
	var gotMountPoint string
	rootCmd, err := NewRootCmd(func(newConfig *cfg.Config, mountPoint string) error {
		gotConfig = newConfig
		gotMountPoint = mountPoint
		return nil
	})
	require.NoError(t, err)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(io.Discard)
	rootCmd.SetErr(io.Discard)

	return gotConfig, gotMountPoint, rootCmd.Execute()
}

func TestRootCmd_DefaultsReachTheMountFunction(t *testing.T) {
	config, mountPoint, err := executeRootCmd(t, []string{"/mnt/hello"})

	require.NoError(t, err)
	assert.Equal(t, "/mnt/hello", mountPoint)
	assert.False(t, config.Foreground)
	assert.Equal(t, "hello", config.Hello.FileName)
	assert.Equal(t, cfg.InfoLogSeverity, config.Logging.Severity)
}

func TestRootCmd_FlagsOverrideDefaults(t *testing.T) {
	config, _, err := executeRootCmd(t, []string{
		"--foreground",
		"--hello-contents=Hi!\n",
		"--log-severity=error",
		"/mnt/hello",
	})

	require.NoError(t, err)
	assert.True(t, config.Foreground)
	assert.Equal(t, "Hi!\n", config.Hello.Contents)
	assert.Equal(t, cfg.ErrorLogSeverity, config.Logging.Severity)
}

func TestRootCmd_ConfigFileFillsUnsetFlags(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	contents := `
logging:
  severity: warning
hello:
  file-name: greeting
file-system:
  kernel-cache: false
`
	require.NoError(t, os.WriteFile(configPath, []byte(contents), 0644))

	config, _, err := executeRootCmd(t, []string{"--config-file", configPath, "/mnt/hello"})

	require.NoError(t, err)
	assert.Equal(t, cfg.WarningLogSeverity, config.Logging.Severity)
	assert.Equal(t, "greeting", config.Hello.FileName)
	assert.False(t, config.FileSystem.KernelCache)
}

func TestRootCmd_ChangedFlagBeatsConfigFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("logging:\n  severity: warning\n"), 0644))

	config, _, err := executeRootCmd(t, []string{
		"--config-file", configPath,
		"--log-severity=debug",
		"/mnt/hello",
	})

	require.NoError(t, err)
	assert.Equal(t, cfg.DebugLogSeverity, config.Logging.Severity)
}

func TestRootCmd_InvalidSeverityFails(t *testing.T) {
	_, _, err := executeRootCmd(t, []string{"--log-severity=shouting", "/mnt/hello"})

	assert.Error(t, err)
}

func TestRootCmd_InvalidConfigFails(t *testing.T) {
	_, _, err := executeRootCmd(t, []string{"--hello-file-name=", "/mnt/hello"})

	require.Error(t, err)
	assert.ErrorContains(t, err, "file-name")
}

func TestRootCmd_MissingMountPointFails(t *testing.T) {
	_, _, err := executeRootCmd(t, []string{})

	assert.Error(t, err)
}
