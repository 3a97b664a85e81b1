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

// The exported trampolines the native callback table points at. This file's
// preamble must stay declaration-only (the cgo //export rule); the helper
// it calls is defined in the ops.go preamble.

/*
#cgo pkg-config: fuse3
#cgo CFLAGS: -DFUSE_USE_VERSION=31
#include <errno.h>
#include <stdlib.h>
#include <fuse.h>

extern int fusego_call_filler(fuse_fill_dir_t filler, void *buf, const char *name,
                              const struct stat *st, off_t off);
*/
import "C"

import (
	"runtime/cgo"
	"unsafe"
)

//export fusego_init
func fusego_init(conn *C.struct_fuse_conn_info, cfg *C.struct_fuse_config) unsafe.Pointer {
	ctx := C.fuse_get_context()
	if s := currentState(); s != nil && s.ops.Init != nil {
		s.ops.Init(&ConnInfo{conn: conn}, &InitConfig{cfg: cfg})
	}
	// The dispatch handle stays installed as private_data for the life of
	// the mount; Init has no say in the matter.
	if ctx == nil {
		return nil
	}
	return ctx.private_data
}

//export fusego_destroy
func fusego_destroy(data unsafe.Pointer) {
	if data == nil {
		return
	}
	// The driver deletes the handle only after fuse_destroy has returned,
	// so it is still resolvable here.
	s, _ := cgo.Handle(uintptr(data)).Value().(*dispatchState)
	if s != nil && s.ops.Destroy != nil {
		s.ops.Destroy()
	}
}

//export fusego_getattr
func fusego_getattr(path *C.char, st *C.struct_stat, fi *C.struct_fuse_file_info) C.int {
	s := currentState()
	if s == nil || s.ops.Getattr == nil {
		return -C.ENOSYS
	}
	var attr Stat
	if err := s.ops.Getattr(C.GoString(path), &attr, wrapFileInfo(fi)); err != nil {
		return C.int(errnoResult(err))
	}
	storeCStat(st, &attr)
	return 0
}

//export fusego_readdir
func fusego_readdir(path *C.char, buf unsafe.Pointer, filler C.fuse_fill_dir_t,
	off C.off_t, fi *C.struct_fuse_file_info, flags C.enum_fuse_readdir_flags) C.int {
	s := currentState()
	if s == nil || s.ops.Readdir == nil {
		return -C.ENOSYS
	}
	fill := func(name string, st *Stat) error {
		cname := C.CString(name)
		defer C.free(unsafe.Pointer(cname))
		var cst C.struct_stat
		var stp *C.struct_stat
		if st != nil {
			storeCStat(&cst, st)
			stp = &cst
		}
		if C.fusego_call_filler(filler, buf, cname, stp, 0) != 0 {
			return ErrDirBufferFull
		}
		return nil
	}
	return C.int(errnoResult(s.ops.Readdir(C.GoString(path), fill, int64(off), wrapFileInfo(fi))))
}

//export fusego_open
func fusego_open(path *C.char, fi *C.struct_fuse_file_info) C.int {
	s := currentState()
	if s == nil || s.ops.Open == nil {
		return -C.ENOSYS
	}
	return C.int(errnoResult(s.ops.Open(C.GoString(path), wrapFileInfo(fi))))
}

//export fusego_release
func fusego_release(path *C.char, fi *C.struct_fuse_file_info) C.int {
	s := currentState()
	if s == nil || s.ops.Release == nil {
		return -C.ENOSYS
	}
	return C.int(errnoResult(s.ops.Release(C.GoString(path), wrapFileInfo(fi))))
}

//export fusego_read
func fusego_read(path *C.char, buf *C.char, size C.size_t, off C.off_t,
	fi *C.struct_fuse_file_info) C.int {
	s := currentState()
	if s == nil || s.ops.Read == nil {
		return -C.ENOSYS
	}
	// The callback writes straight into the kernel-provided buffer.
	dst := unsafe.Slice((*byte)(unsafe.Pointer(buf)), int(size))
	n, err := s.ops.Read(C.GoString(path), dst, int64(off), wrapFileInfo(fi))
	if err != nil {
		return C.int(errnoResult(err))
	}
	return C.int(n)
}

//export fusego_write
func fusego_write(path *C.char, buf *C.char, size C.size_t, off C.off_t,
	fi *C.struct_fuse_file_info) C.int {
	s := currentState()
	if s == nil || s.ops.Write == nil {
		return -C.ENOSYS
	}
	src := C.GoBytes(unsafe.Pointer(buf), C.int(size))
	n, err := s.ops.Write(C.GoString(path), src, int64(off), wrapFileInfo(fi))
	if err != nil {
		return C.int(errnoResult(err))
	}
	return C.int(n)
}

//export fusego_create
func fusego_create(path *C.char, mode C.mode_t, fi *C.struct_fuse_file_info) C.int {
	s := currentState()
	if s == nil || s.ops.Create == nil {
		return -C.ENOSYS
	}
	return C.int(errnoResult(s.ops.Create(C.GoString(path), uint32(mode), wrapFileInfo(fi))))
}

//export fusego_mkdir
func fusego_mkdir(path *C.char, mode C.mode_t) C.int {
	s := currentState()
	if s == nil || s.ops.Mkdir == nil {
		return -C.ENOSYS
	}
	return C.int(errnoResult(s.ops.Mkdir(C.GoString(path), uint32(mode))))
}

//export fusego_unlink
func fusego_unlink(path *C.char) C.int {
	s := currentState()
	if s == nil || s.ops.Unlink == nil {
		return -C.ENOSYS
	}
	return C.int(errnoResult(s.ops.Unlink(C.GoString(path))))
}

//export fusego_rmdir
func fusego_rmdir(path *C.char) C.int {
	s := currentState()
	if s == nil || s.ops.Rmdir == nil {
		return -C.ENOSYS
	}
	return C.int(errnoResult(s.ops.Rmdir(C.GoString(path))))
}

//export fusego_rename
func fusego_rename(from *C.char, to *C.char, flags C.uint) C.int {
	s := currentState()
	if s == nil || s.ops.Rename == nil {
		return -C.ENOSYS
	}
	return C.int(errnoResult(s.ops.Rename(C.GoString(from), C.GoString(to), uint32(flags))))
}

//export fusego_truncate
func fusego_truncate(path *C.char, size C.off_t, fi *C.struct_fuse_file_info) C.int {
	s := currentState()
	if s == nil || s.ops.Truncate == nil {
		return -C.ENOSYS
	}
	return C.int(errnoResult(s.ops.Truncate(C.GoString(path), int64(size), wrapFileInfo(fi))))
}
