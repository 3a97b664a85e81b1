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

// Package ffi provides owning wrappers for values allocated on the foreign
// (C) heap.
//
// A Box pairs a raw address with the destructor the foreign library
// prescribes for it, and guarantees the destructor runs exactly once over
// the Box's lifetime: on Close, or from a garbage-collector finalizer if
// the owner never closed it. Ownership can be handed back out with
// Release, which permanently disarms the Box's own teardown.
package ffi

// #include <stdlib.h>
import "C"

import (
	"errors"
	"runtime"
	"unsafe"
)

// DestroyFunc deinitializes the foreign value at p. It must be safe to call
// exactly once per value and must not free p itself; backing-storage
// deallocation is the Box's job when requested.
type DestroyFunc func(p unsafe.Pointer)

// ErrClosed is returned by Close when teardown has already run.
var ErrClosed = errors.New("ffi: box already closed")

// Box owns exactly one foreign value of type T reachable through a raw
// address. T is a phantom: the Box never allocates or copies a T, it only
// types the accessors.
//
// A Box is not safe for concurrent use; callers serialize access the same
// way they would around the underlying foreign handle.
type Box[T any] struct {
	ptr         unsafe.Pointer
	destroy     DestroyFunc
	freeBacking bool
}

// NewBox wraps the foreign value at ptr. The caller attests that ptr is
// valid per the foreign contract and that destroy deinitializes it. When
// freeBacking is set, the backing storage is additionally released with
// free(3) after destroy returns.
//
// Panics if ptr or destroy is nil: an unowned or indestructible wrapper is
// a programming error, not a runtime condition.
func NewBox[T any](ptr unsafe.Pointer, freeBacking bool, destroy DestroyFunc) *Box[T] {
	if ptr == nil {
		panic("ffi: NewBox with nil pointer")
	}
	if destroy == nil {
		panic("ffi: NewBox with nil destructor")
	}
	b := &Box[T]{
		ptr:         ptr,
		destroy:     destroy,
		freeBacking: freeBacking,
	}
	// Backstop for owners that go out of scope without closing. Cleared by
	// Close and Release, so the destructor still runs at most once.
	runtime.SetFinalizer(b, (*Box[T]).finalize)
	return b
}

// AllocBox copies val onto the C heap and returns a Box owning the copy,
// with backing-storage deallocation enabled. T must not contain Go
// pointers.
func AllocBox[T any](val T, destroy DestroyFunc) *Box[T] {
	p := C.malloc(C.size_t(unsafe.Sizeof(val)))
	*(*T)(p) = val
	return NewBox[T](p, true, destroy)
}

// Ptr exposes the address without transferring ownership. Nil after the Box
// has been closed or released.
func (b *Box[T]) Ptr() unsafe.Pointer {
	return b.ptr
}

// Get returns the payload as a typed pointer, or nil after teardown.
func (b *Box[T]) Get() *T {
	return (*T)(b.ptr)
}

// Borrow returns a view into the payload whose validity is tied to the
// Box. The view keeps the Box reachable, so the finalizer backstop cannot
// tear the value down under a live borrow.
func (b *Box[T]) Borrow() *Ref[T] {
	return &Ref[T]{owner: b}
}

// Release consumes the Box's authority over the value: it returns the raw
// address and disarms this Box's teardown. Responsibility for eventual
// release passes entirely to the receiver. Panics if teardown already ran.
func (b *Box[T]) Release() unsafe.Pointer {
	if b.ptr == nil {
		panic("ffi: release of closed box")
	}
	runtime.SetFinalizer(b, nil)
	p := b.ptr
	b.ptr = nil
	return p
}

// Closed reports whether the Box no longer owns a value, either because
// teardown ran or because ownership was transferred out.
func (b *Box[T]) Closed() bool {
	return b.ptr == nil
}

// Close tears the value down: the destructor runs, then the backing
// storage is freed if the Box owns it. The second and subsequent calls
// return ErrClosed without touching the foreign value again.
func (b *Box[T]) Close() error {
	if b.ptr == nil {
		return ErrClosed
	}
	runtime.SetFinalizer(b, nil)
	p := b.ptr
	b.ptr = nil
	b.destroy(p)
	if b.freeBacking {
		C.free(p)
	}
	return nil
}

func (b *Box[T]) finalize() {
	_ = b.Close()
}

// Ref is a read/write accessor into the payload of a Box, carrying no
// destructor. Dropping a Ref has no effect on the foreign value.
type Ref[T any] struct {
	owner *Box[T]
}

// Get returns the payload pointer. Panics if the owner tore the value down
// or released it while the borrow was outstanding; a borrow outliving its
// owner is a caller bug and is surfaced loudly rather than handed a
// dangling address.
func (r *Ref[T]) Get() *T {
	if r.owner.ptr == nil {
		panic("ffi: borrow outlived its owner")
	}
	return (*T)(r.owner.ptr)
}
