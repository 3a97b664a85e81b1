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
#include <stdlib.h>

// The dispatch handle travels as the opaque private_data pointer. Routing
// the uintptr through C keeps the conversion out of Go, where it would trip
// unsafe-pointer vetting.
static struct fuse *fusego_new(struct fuse_args *args, const struct fuse_operations *op,
                               size_t op_size, uintptr_t data) {
	static char *empty_argv[] = { (char *)"", NULL };
	struct fuse_args empty = { 1, empty_argv, 0 };
	if (args == NULL)
		args = &empty;
	return fuse_new(args, op, op_size, (void *)data);
}
*/
import "C"

import (
	"fmt"
	"runtime/cgo"
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/googlecloudplatform/libfusego/ffi"
)

// fuseHandle is the phantom payload type for the Box owning a struct fuse.
// The handle is opaque to this layer beyond its address and destructor.
type fuseHandle struct{}

func destroyDriverHandle(p unsafe.Pointer) {
	C.fuse_destroy((*C.struct_fuse)(p))
}

// Driver owns a native driver handle plus the optional pinned application
// context the library retains as an opaque pointer. The handle's backing
// storage belongs to the library (fuse_destroy is the whole teardown), so
// the owning Box carries freeBacking=false.
//
// Apart from Unmount and Finalize against a running LoopSingle, methods
// must not be called concurrently; the caller serializes.
type Driver[T any] struct {
	handle *ffi.Box[fuseHandle]
	ctx    cgo.Handle
	data   *T

	// mu guards the lifecycle flags below and serializes teardown against
	// Unmount. It is never held across the blocking dispatch loop; the
	// teardown calls it does cover (fuse_exit, fuse_unmount, fuse_destroy)
	// are non-blocking by the infallible-teardown contract.
	mu              sync.Mutex
	mounted         bool
	mountpoint      string
	looping         bool
	finalized       bool
	finalizePending bool
}

// New constructs a driver handle from an argument set, an operation table
// and an optional application context. args may be nil (an empty set).
//
// A nil result means the library could not build a handle from these
// inputs: a rejected argument, a nil or mis-sized operation table, or an
// internal allocation failure. This is a documented non-exceptional
// outcome signalling a caller-input problem, not a transient condition to
// retry.
//
// data, when non-nil, is pinned for the driver's whole life and handed to
// the library as its opaque private_data; callbacks recover it with
// PrivateData. The driver must outlive any foreign call that might still
// dereference it, which Finalize guarantees.
func New[T any](args *Args, ops *Operations, data *T) *Driver[T] {
	if ops == nil {
		return nil
	}
	_, size := ops.buildTable()
	return newDriver(args, ops, data, size)
}

func newDriver[T any](args *Args, ops *Operations, data *T, opSize uintptr) *Driver[T] {
	if ops == nil || opSize != C.sizeof_struct_fuse_operations {
		return nil
	}
	table, _ := ops.buildTable()

	st := &dispatchState{ops: ops}
	if data != nil {
		st.data = data
	}
	h := cgo.NewHandle(st)

	var argp *C.struct_fuse_args
	if args != nil {
		if args.box.Closed() {
			h.Delete()
			return nil
		}
		argp = args.ptr()
	}

	fp := C.fusego_new(argp, &table, C.size_t(opSize), C.uintptr_t(h))
	if fp == nil {
		h.Delete()
		return nil
	}
	return &Driver[T]{
		handle: ffi.NewBox[fuseHandle](unsafe.Pointer(fp), false, destroyDriverHandle),
		ctx:    h,
		data:   data,
	}
}

func (d *Driver[T]) raw() *C.struct_fuse {
	return (*C.struct_fuse)(d.handle.Ptr())
}

// Data returns the application context, or nil if none was supplied.
func (d *Driver[T]) Data() *T {
	return d.data
}

// Mountpoint returns the path of the current mount, or "" when unmounted.
func (d *Driver[T]) Mountpoint() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mountpoint
}

// Mount binds the handle to a filesystem path. Mounting an already-mounted
// driver fails with EBUSY without touching the library; other failures
// propagate the library's errno. No state changes on failure.
func (d *Driver[T]) Mount(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.finalized {
		return fmt.Errorf("fuse: mount after finalize: %w", unix.EBADF)
	}
	if d.mounted {
		return fmt.Errorf("fuse: already mounted at %q: %w", d.mountpoint, unix.EBUSY)
	}

	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))
	ret, errno := C.fuse_mount(d.raw(), cpath)
	if ret != 0 {
		return fmt.Errorf("fuse_mount %q: %w", path, errnoOf(errno, unix.EINVAL))
	}
	d.mounted = true
	d.mountpoint = path
	return nil
}

// Unmount detaches the handle from its filesystem path. Safe whether or
// not the dispatch loop has returned; unmounting is also what wakes an
// idle loop so it can observe an exit request. It does not release the
// handle, and it is a no-op once teardown has run. Unmount is modeled as
// infallible per the library contract.
func (d *Driver[T]) Unmount() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.handle.Closed() {
		return
	}
	C.fuse_unmount(d.raw())
	d.mounted = false
	d.mountpoint = ""
}

// LoopSingle runs the single-threaded dispatch loop on the calling
// goroutine, blocking until the loop is told to exit. All operation-table
// callbacks execute synchronously on this thread in the order the library
// chooses. A negative loop status surfaces as the propagated errno.
func (d *Driver[T]) LoopSingle() error {
	d.mu.Lock()
	if d.finalized {
		d.mu.Unlock()
		return fmt.Errorf("fuse: loop after finalize: %w", unix.EBADF)
	}
	if d.looping {
		d.mu.Unlock()
		return fmt.Errorf("fuse: loop already running: %w", unix.EBUSY)
	}
	d.looping = true
	p := d.raw()
	d.mu.Unlock()

	ret := C.fuse_loop(p)

	d.mu.Lock()
	d.looping = false
	if d.finalizePending {
		d.finalizePending = false
		d.teardownLocked()
	}
	d.mu.Unlock()

	if ret < 0 {
		return fmt.Errorf("fuse_loop: %w", syscall.Errno(-ret))
	}
	return nil
}

// Finalize requests loop exit and releases the driver. The exit request is
// advisory and non-blocking: it flags the loop to stop at its next
// checkpoint and does not wait for LoopSingle to return. When a loop is
// still running, the handle teardown is deferred to the moment that loop
// returns; either way the destroy function runs exactly once. After
// Finalize no further operations reach the library: Mount and LoopSingle
// report EBADF, Unmount and a second Finalize are no-ops.
func (d *Driver[T]) Finalize() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.finalized {
		return
	}
	d.finalized = true
	C.fuse_exit(d.raw())
	if d.looping {
		d.finalizePending = true
		return
	}
	d.teardownLocked()
}

// teardownLocked runs the destroy callback for the handle and then drops
// the pinned context. Called with d.mu held so that a concurrent Unmount
// observes either a live handle or a closed one, never one mid-destroy.
// The ordering matters within too: the library's destroy path may still
// resolve private_data, so the handle is deleted strictly after
// fuse_destroy returns.
func (d *Driver[T]) teardownLocked() {
	_ = d.handle.Close()
	if d.ctx != 0 {
		d.ctx.Delete()
		d.ctx = 0
	}
}
