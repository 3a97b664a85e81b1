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

/*
#cgo pkg-config: fuse3
#cgo CFLAGS: -DFUSE_USE_VERSION=31
#include <errno.h>
#include <stdlib.h>
#include <fuse.h>

extern void *fusego_init(struct fuse_conn_info *conn, struct fuse_config *cfg);
extern void fusego_destroy(void *data);
extern int fusego_getattr(const char *path, struct stat *st, struct fuse_file_info *fi);
extern int fusego_readdir(const char *path, void *buf, fuse_fill_dir_t filler,
                          off_t off, struct fuse_file_info *fi,
                          enum fuse_readdir_flags flags);
extern int fusego_open(const char *path, struct fuse_file_info *fi);
extern int fusego_release(const char *path, struct fuse_file_info *fi);
extern int fusego_read(const char *path, char *buf, size_t size, off_t off,
                       struct fuse_file_info *fi);
extern int fusego_write(const char *path, const char *buf, size_t size, off_t off,
                        struct fuse_file_info *fi);
extern int fusego_create(const char *path, mode_t mode, struct fuse_file_info *fi);
extern int fusego_mkdir(const char *path, mode_t mode);
extern int fusego_unlink(const char *path);
extern int fusego_rmdir(const char *path);
extern int fusego_rename(const char *from, const char *to, unsigned int flags);
extern int fusego_truncate(const char *path, off_t size, struct fuse_file_info *fi);

// Bit positions match the op* constants on the Go side.
void fusego_install(struct fuse_operations *ops, unsigned mask) {
	if (mask & (1u << 0)) ops->init = fusego_init;
	if (mask & (1u << 1)) ops->destroy = fusego_destroy;
	if (mask & (1u << 2)) ops->getattr = fusego_getattr;
	if (mask & (1u << 3)) ops->readdir = fusego_readdir;
	if (mask & (1u << 4)) ops->open = fusego_open;
	if (mask & (1u << 5)) ops->release = fusego_release;
	if (mask & (1u << 6)) ops->read = fusego_read;
	if (mask & (1u << 7)) ops->write = fusego_write;
	if (mask & (1u << 8)) ops->create = fusego_create;
	if (mask & (1u << 9)) ops->mkdir = fusego_mkdir;
	if (mask & (1u << 10)) ops->unlink = fusego_unlink;
	if (mask & (1u << 11)) ops->rmdir = fusego_rmdir;
	if (mask & (1u << 12)) ops->rename = fusego_rename;
	if (mask & (1u << 13)) ops->truncate = fusego_truncate;
}

int fusego_call_filler(fuse_fill_dir_t filler, void *buf, const char *name,
                              const struct stat *st, off_t off) {
	if (filler == NULL)
		return 1;
	return filler(buf, name, st, off, 0);
}
*/
import "C"

import (
	"errors"
	"runtime/cgo"
)

// ErrDirBufferFull is reported by a FillFunc when the kernel's readdir
// buffer cannot take another entry. The callback should stop enumerating
// and return nil.
var ErrDirBufferFull = errors.New("fuse: readdir buffer full")

// FillFunc appends one directory entry to the reply being assembled for the
// kernel. st may be nil when the entry's attributes are unknown.
type FillFunc func(name string, st *Stat) error

// Operations is the application's callback table. Nil entries are not
// installed in the native table, so the kernel sees them as unimplemented
// rather than reaching a stub. The table is handed to the library as a
// fixed-size block of callback addresses; this layer does not interpret
// individual entries beyond installing them.
type Operations struct {
	// Init runs when the filesystem is initialized, before any other
	// callback. conn and cfg are valid only for the call.
	Init func(conn *ConnInfo, cfg *InitConfig)

	// Destroy runs while the driver handle is torn down.
	Destroy func()

	Getattr  func(path string, st *Stat, fi *FileInfo) error
	Readdir  func(path string, fill FillFunc, off int64, fi *FileInfo) error
	Open     func(path string, fi *FileInfo) error
	Release  func(path string, fi *FileInfo) error
	Read     func(path string, dst []byte, off int64, fi *FileInfo) (int, error)
	Write    func(path string, src []byte, off int64, fi *FileInfo) (int, error)
	Create   func(path string, mode uint32, fi *FileInfo) error
	Mkdir    func(path string, mode uint32) error
	Unlink   func(path string) error
	Rmdir    func(path string) error
	Rename   func(oldPath, newPath string, flags uint32) error
	Truncate func(path string, size int64, fi *FileInfo) error
}

const (
	opInit = 1 << iota
	opDestroy
	opGetattr
	opReaddir
	opOpen
	opRelease
	opRead
	opWrite
	opCreate
	opMkdir
	opUnlink
	opRmdir
	opRename
	opTruncate
)

func (o *Operations) mask() uint32 {
	var m uint32
	set := func(bit uint32, present bool) {
		if present {
			m |= bit
		}
	}
	set(opInit, o.Init != nil)
	set(opDestroy, o.Destroy != nil)
	set(opGetattr, o.Getattr != nil)
	set(opReaddir, o.Readdir != nil)
	set(opOpen, o.Open != nil)
	set(opRelease, o.Release != nil)
	set(opRead, o.Read != nil)
	set(opWrite, o.Write != nil)
	set(opCreate, o.Create != nil)
	set(opMkdir, o.Mkdir != nil)
	set(opUnlink, o.Unlink != nil)
	set(opRmdir, o.Rmdir != nil)
	set(opRename, o.Rename != nil)
	set(opTruncate, o.Truncate != nil)
	return m
}

// buildTable assembles the native callback table and reports its byte size,
// which the constructor passes through to the library for version checking.
func (o *Operations) buildTable() (C.struct_fuse_operations, uintptr) {
	var table C.struct_fuse_operations
	C.fusego_install(&table, C.uint(o.mask()))
	return table, C.sizeof_struct_fuse_operations
}

// dispatchState is what the opaque private_data pointer resolves to: the
// installed callback table plus the application context, if any.
type dispatchState struct {
	ops  *Operations
	data any
}

// currentState resolves the dispatch state for the request being served.
// Callable only from within a callback on the dispatch thread.
func currentState() *dispatchState {
	ctx := C.fuse_get_context()
	if ctx == nil || ctx.private_data == nil {
		return nil
	}
	s, _ := cgo.Handle(uintptr(ctx.private_data)).Value().(*dispatchState)
	return s
}

// PrivateData returns the application context the driver was constructed
// with, or nil if there is none or the type does not match. Callable only
// from within a callback.
func PrivateData[T any]() *T {
	s := currentState()
	if s == nil || s.data == nil {
		return nil
	}
	p, _ := s.data.(*T)
	return p
}
