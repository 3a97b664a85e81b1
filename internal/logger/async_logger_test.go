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

package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/natefinch/lumberjack.v2"
)

func TestAsyncLogger_FlushesInOrderOnClose(t *testing.T) {
	// Arrange
	logPath := filepath.Join(t.TempDir(), "test.log")
	lj := &lumberjack.Logger{Filename: logPath}
	asyncLogger := NewAsyncLogger(lj, 10)

	// Act
	fmt.Fprintln(asyncLogger, "message 1")
	fmt.Fprintln(asyncLogger, "message 2")
	fmt.Fprintln(asyncLogger, "message 3")
	err := asyncLogger.Close()

	// Assert
	require.NoError(t, err)
	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	expected := "message 1\nmessage 2\nmessage 3\n"
	assert.Equal(t, expected, string(content))
}

func TestAsyncLogger_CloseIsIdempotent(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.log")
	asyncLogger := NewAsyncLogger(&lumberjack.Logger{Filename: logPath}, 10)

	require.NoError(t, asyncLogger.Close())
	require.NoError(t, asyncLogger.Close())
}

func TestAsyncLogger_WriteAfterCloseFails(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.log")
	asyncLogger := NewAsyncLogger(&lumberjack.Logger{Filename: logPath}, 10)
	require.NoError(t, asyncLogger.Close())

	_, err := asyncLogger.Write([]byte("late message\n"))

	assert.ErrorIs(t, err, os.ErrClosed)
}
