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

package hellofs

import (
	"testing"

	"github.com/googlecloudplatform/libfusego/cfg"
	"github.com/googlecloudplatform/libfusego/fuse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func testFileSystem(t *testing.T) *fileSystem {
	t.Helper()
	return &fileSystem{
		fileName:    "hello",
		contents:    []byte("Hello World!\n"),
		fileMode:    0444,
		dirMode:     0755,
		kernelCache: true,
	}
}

func TestNewOperations_InstallsOnlyTheReadSideCallbacks(t *testing.T) {
	ops := NewOperations(&cfg.Config{
		Hello: cfg.HelloConfig{FileName: "hello", Contents: "hi"},
	})

	assert.NotNil(t, ops.Init)
	assert.NotNil(t, ops.Getattr)
	assert.NotNil(t, ops.Readdir)
	assert.NotNil(t, ops.Open)
	assert.NotNil(t, ops.Read)
	assert.Nil(t, ops.Write)
	assert.Nil(t, ops.Create)
	assert.Nil(t, ops.Unlink)
}

func TestGetattr_Root(t *testing.T) {
	fs := testFileSystem(t)
	var st fuse.Stat

	require.NoError(t, fs.getattr("/", &st, nil))

	assert.Equal(t, uint32(unix.S_IFDIR|0755), st.Mode)
	assert.Equal(t, uint64(2), st.Nlink)
}

func TestGetattr_TheFile(t *testing.T) {
	fs := testFileSystem(t)
	var st fuse.Stat

	require.NoError(t, fs.getattr("/hello", &st, nil))

	assert.Equal(t, uint32(unix.S_IFREG|0444), st.Mode)
	assert.Equal(t, uint64(1), st.Nlink)
	assert.Equal(t, int64(len("Hello World!\n")), st.Size)
}

func TestGetattr_UnknownPath(t *testing.T) {
	fs := testFileSystem(t)
	var st fuse.Stat

	err := fs.getattr("/nope", &st, nil)

	assert.ErrorIs(t, err, unix.ENOENT)
}

func TestReaddir_RootListsTheFile(t *testing.T) {
	fs := testFileSystem(t)
	var names []string
	fill := func(name string, st *fuse.Stat) error {
		names = append(names, name)
		return nil
	}

	require.NoError(t, fs.readdir("/", fill, 0, nil))

	assert.Equal(t, []string{".", "..", "hello"}, names)
}

func TestReaddir_StopsQuietlyWhenTheBufferFills(t *testing.T) {
	fs := testFileSystem(t)
	var names []string
	fill := func(name string, st *fuse.Stat) error {
		if len(names) == 2 {
			return fuse.ErrDirBufferFull
		}
		names = append(names, name)
		return nil
	}

	require.NoError(t, fs.readdir("/", fill, 0, nil))

	assert.Equal(t, []string{".", ".."}, names)
}

func TestReaddir_NonRootFails(t *testing.T) {
	fs := testFileSystem(t)
	fill := func(name string, st *fuse.Stat) error { return nil }

	err := fs.readdir("/hello", fill, 0, nil)

	assert.ErrorIs(t, err, unix.ENOENT)
}

func TestOpen_UnknownPath(t *testing.T) {
	fs := testFileSystem(t)

	err := fs.open("/nope", nil)

	assert.ErrorIs(t, err, unix.ENOENT)
}

func TestRead_FullContents(t *testing.T) {
	fs := testFileSystem(t)
	dst := make([]byte, 64)

	n, err := fs.read("/hello", dst, 0, nil)

	require.NoError(t, err)
	assert.Equal(t, "Hello World!\n", string(dst[:n]))
}

func TestRead_OffsetWithinContents(t *testing.T) {
	fs := testFileSystem(t)
	dst := make([]byte, 5)

	n, err := fs.read("/hello", dst, 6, nil)

	require.NoError(t, err)
	assert.Equal(t, "World", string(dst[:n]))
}

func TestRead_OffsetPastEndIsEOF(t *testing.T) {
	fs := testFileSystem(t)
	dst := make([]byte, 8)

	n, err := fs.read("/hello", dst, 1000, nil)

	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRead_UnknownPath(t *testing.T) {
	fs := testFileSystem(t)

	_, err := fs.read("/nope", make([]byte, 8), 0, nil)

	assert.ErrorIs(t, err, unix.ENOENT)
}
