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

// Package hellofs serves a single read-only file from the root of the
// mount. It is the sample filesystem wired to the hellofs command and
// doubles as the smallest realistic consumer of the fuse package.
package hellofs

import (
	"errors"

	"github.com/googlecloudplatform/libfusego/cfg"
	"github.com/googlecloudplatform/libfusego/fuse"
	"github.com/googlecloudplatform/libfusego/internal/logger"
	"golang.org/x/sys/unix"
)

type fileSystem struct {
	fileName string
	contents []byte
	fileMode uint32
	dirMode  uint32

	kernelCache bool
}

// NewOperations builds the callback table for the hello filesystem
// described by config.
func NewOperations(config *cfg.Config) *fuse.Operations {
	fs := &fileSystem{
		fileName:    config.Hello.FileName,
		contents:    []byte(config.Hello.Contents),
		fileMode:    uint32(config.FileSystem.FileMode),
		dirMode:     uint32(config.FileSystem.DirMode),
		kernelCache: config.FileSystem.KernelCache,
	}

	return &fuse.Operations{
		Init:    fs.init,
		Getattr: fs.getattr,
		Readdir: fs.readdir,
		Open:    fs.open,
		Read:    fs.read,
	}
}

func (fs *fileSystem) init(conn *fuse.ConnInfo, config *fuse.InitConfig) {
	logger.Tracef("hellofs: init (proto %d.%d)", conn.ProtoMajor(), conn.ProtoMinor())
	config.SetKernelCache(fs.kernelCache)
}

func (fs *fileSystem) getattr(path string, st *fuse.Stat, fi *fuse.FileInfo) error {
	logger.Tracef("hellofs: getattr %q", path)
	switch {
	case path == "/":
		st.Mode = unix.S_IFDIR | fs.dirMode
		st.Nlink = 2
		return nil
	case fs.isTheFile(path):
		st.Mode = unix.S_IFREG | fs.fileMode
		st.Nlink = 1
		st.Size = int64(len(fs.contents))
		return nil
	}
	return unix.ENOENT
}

func (fs *fileSystem) readdir(path string, fill fuse.FillFunc, off int64, fi *fuse.FileInfo) error {
	logger.Tracef("hellofs: readdir %q", path)
	if path != "/" {
		return unix.ENOENT
	}
	for _, name := range []string{".", "..", fs.fileName} {
		if err := fill(name, nil); err != nil {
			if errors.Is(err, fuse.ErrDirBufferFull) {
				return nil
			}
			return err
		}
	}
	return nil
}

func (fs *fileSystem) open(path string, fi *fuse.FileInfo) error {
	logger.Tracef("hellofs: open %q", path)
	if !fs.isTheFile(path) {
		return unix.ENOENT
	}
	if fi.Flags()&unix.O_ACCMODE != unix.O_RDONLY {
		return unix.EACCES
	}
	return nil
}

func (fs *fileSystem) read(path string, dst []byte, off int64, fi *fuse.FileInfo) (int, error) {
	logger.Tracef("hellofs: read %q (off: %d, size: %d)", path, off, len(dst))
	if !fs.isTheFile(path) {
		return 0, unix.ENOENT
	}
	if off >= int64(len(fs.contents)) {
		return 0, nil
	}
	return copy(dst, fs.contents[off:]), nil
}

func (fs *fileSystem) isTheFile(path string) bool {
	return len(path) > 1 && path[0] == '/' && path[1:] == fs.fileName
}
