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
#include <fuse.h>
#include <stdint.h>
#include <sys/stat.h>

// cgo cannot assign across the libc typedefs (__ino_t, __nlink_t, ...) or
// touch the fuse_file_info bitfields, so the stores happen on the C side.
static void fusego_store_stat(struct stat *st, uint64_t ino, uint32_t mode,
                              uint64_t nlink, int64_t size, uint32_t uid,
                              uint32_t gid, int64_t atime_sec, int64_t atime_nsec,
                              int64_t mtime_sec, int64_t mtime_nsec,
                              int64_t ctime_sec, int64_t ctime_nsec) {
	st->st_ino = ino;
	st->st_mode = mode;
	st->st_nlink = nlink;
	st->st_size = size;
	st->st_uid = uid;
	st->st_gid = gid;
	st->st_atim.tv_sec = atime_sec;
	st->st_atim.tv_nsec = atime_nsec;
	st->st_mtim.tv_sec = mtime_sec;
	st->st_mtim.tv_nsec = mtime_nsec;
	st->st_ctim.tv_sec = ctime_sec;
	st->st_ctim.tv_nsec = ctime_nsec;
}

static void fusego_fi_set_keep_cache(struct fuse_file_info *fi, int v) {
	fi->keep_cache = v;
}

static void fusego_fi_set_direct_io(struct fuse_file_info *fi, int v) {
	fi->direct_io = v;
}
*/
import "C"

import (
	"time"
)

// Stat is the Go mirror of the attributes a callback reports through
// struct stat. Zero times are stored as epoch zero rather than the Go zero
// time's negative Unix seconds.
type Stat struct {
	Ino   uint64
	Mode  uint32
	Nlink uint64
	Size  int64
	Uid   uint32
	Gid   uint32
	Atime time.Time
	Mtime time.Time
	Ctime time.Time
}

func storeCStat(dst *C.struct_stat, s *Stat) {
	asec, ansec := unixParts(s.Atime)
	msec, mnsec := unixParts(s.Mtime)
	csec, cnsec := unixParts(s.Ctime)
	C.fusego_store_stat(dst,
		C.uint64_t(s.Ino), C.uint32_t(s.Mode), C.uint64_t(s.Nlink),
		C.int64_t(s.Size), C.uint32_t(s.Uid), C.uint32_t(s.Gid),
		C.int64_t(asec), C.int64_t(ansec),
		C.int64_t(msec), C.int64_t(mnsec),
		C.int64_t(csec), C.int64_t(cnsec))
}

func unixParts(t time.Time) (sec int64, nsec int64) {
	if t.IsZero() {
		return 0, 0
	}
	return t.Unix(), int64(t.Nanosecond())
}

// FileInfo is a borrowed view over the fuse_file_info the library hands a
// callback. It is valid only for the duration of that callback.
type FileInfo struct {
	fi *C.struct_fuse_file_info
}

func wrapFileInfo(fi *C.struct_fuse_file_info) *FileInfo {
	if fi == nil {
		return nil
	}
	return &FileInfo{fi: fi}
}

// Flags returns the open(2) flags for this file.
func (f *FileInfo) Flags() int {
	return int(f.fi.flags)
}

// Handle returns the file handle a previous Open or Create stored.
func (f *FileInfo) Handle() uint64 {
	return uint64(f.fi.fh)
}

// SetHandle stores an application file handle the library will pass back
// on subsequent operations against this open file.
func (f *FileInfo) SetHandle(h uint64) {
	f.fi.fh = C.uint64_t(h)
}

// SetKeepCache tells the kernel to keep previously cached data for this
// file instead of invalidating it on open.
func (f *FileInfo) SetKeepCache(v bool) {
	C.fusego_fi_set_keep_cache(f.fi, cBool(v))
}

// SetDirectIO disables page caching for this open file.
func (f *FileInfo) SetDirectIO(v bool) {
	C.fusego_fi_set_direct_io(f.fi, cBool(v))
}

func cBool(v bool) C.int {
	if v {
		return 1
	}
	return 0
}

// ConnInfo is a borrowed view over fuse_conn_info, valid during Init only.
type ConnInfo struct {
	conn *C.struct_fuse_conn_info
}

// ProtoMajor and ProtoMinor report the negotiated FUSE protocol version.
func (c *ConnInfo) ProtoMajor() uint { return uint(c.conn.proto_major) }
func (c *ConnInfo) ProtoMinor() uint { return uint(c.conn.proto_minor) }

// InitConfig is a borrowed view over fuse_config, valid during Init only.
type InitConfig struct {
	cfg *C.struct_fuse_config
}

// SetKernelCache enables caching of file contents across open calls.
func (c *InitConfig) SetKernelCache(v bool) {
	c.cfg.kernel_cache = cBool(v)
}

// SetDirectIO bypasses the page cache for all files on this mount.
func (c *InitConfig) SetDirectIO(v bool) {
	c.cfg.direct_io = cBool(v)
}
