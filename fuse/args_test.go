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

package fuse

import (
	"errors"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/googlecloudplatform/libfusego/ffi"
)

func TestFromSequence_AcceptsPlainTokens(t *testing.T) {
	// Arrange & Act
	args, err := FromSequence([]string{"prog", "-o", "ro"})

	// Assert
	require.NoError(t, err)
	defer args.Close()
	assert.NotZero(t, args.Len())
	assert.Contains(t, args.String(), "prog")
}

func TestFromSequence_ParserRejectionCarriesErrno(t *testing.T) {
	// A dangling -o has no option string for the parser to consume.
	args, err := FromSequence([]string{"prog", "-o"})

	require.Error(t, err)
	assert.Nil(t, args, "a rejected sequence must not construct a set")
	var errno syscall.Errno
	assert.True(t, errors.As(err, &errno), "parser rejections surface as OS errors, got %v", err)
}

func TestFromSequence_EmptySetIsTheParsersCall(t *testing.T) {
	// The layer does not special-case empty input; the parser treats an
	// empty vector as a no-op.
	args, err := FromSequence(nil)

	require.NoError(t, err)
	defer args.Close()
	assert.Zero(t, args.Len())
}

func TestFromProcessArgs_UsesInvocationArguments(t *testing.T) {
	args, err := FromProcessArgs()

	require.NoError(t, err)
	defer args.Close()
	assert.Equal(t, len(os.Args), args.Len())
}

func TestFromMountPoint_BuildsProgramAndPath(t *testing.T) {
	args, err := FromMountPoint("/mnt/x")

	require.NoError(t, err)
	defer args.Close()
	assert.Equal(t, 2, args.Len())
	assert.Contains(t, args.String(), "/mnt/x")
}

func TestArgs_CloseIsIdempotent(t *testing.T) {
	args, err := FromSequence([]string{"prog"})
	require.NoError(t, err)

	require.NoError(t, args.Close())
	require.ErrorIs(t, args.Close(), ffi.ErrClosed)
	assert.Equal(t, "Args(closed)", args.String())
	assert.Zero(t, args.Len())
}
