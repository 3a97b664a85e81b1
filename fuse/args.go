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
#include <stdlib.h>
*/
import "C"

import (
	"fmt"
	"os"
	"strings"
	"unsafe"

	"github.com/kardianos/osext"
	"golang.org/x/sys/unix"

	"github.com/googlecloudplatform/libfusego/ffi"
)

// Args owns a parsed fuse_args argument set. Construction hands the token
// storage to fuse_opt_parse, which is permitted by contract to grow and
// rewrite the array; the rewritten set is owned here and released through
// fuse_opt_free_args. Once parsed the set is immutable from this layer.
type Args struct {
	box *ffi.Box[C.struct_fuse_args]
}

func freeArgs(p unsafe.Pointer) {
	C.fuse_opt_free_args((*C.struct_fuse_args)(p))
}

// FromSequence allocates one native string per token, builds an argv-style
// array and runs it through the FUSE option parser with no custom option
// schema. A parser rejection surfaces as an error carrying the propagated
// errno; nothing is left allocated on failure. Empty and malformed token
// lists are not special-cased; the parser's verdict is the outcome.
func FromSequence(tokens []string) (*Args, error) {
	n := len(tokens)
	argv := (**C.char)(C.calloc(C.size_t(n+1), C.size_t(unsafe.Sizeof((*C.char)(nil)))))
	defer C.free(unsafe.Pointer(argv))
	view := unsafe.Slice(argv, n+1)
	for i, tok := range tokens {
		view[i] = C.CString(tok)
	}
	defer func() {
		for _, p := range view[:n] {
			C.free(unsafe.Pointer(p))
		}
	}()

	fargs := C.struct_fuse_args{
		argc:      C.int(n),
		argv:      argv,
		allocated: 0,
	}
	ret, errno := C.fuse_opt_parse(&fargs, nil, nil, nil)
	if ret < 0 {
		return nil, fmt.Errorf("fuse_opt_parse: %w", errnoOf(errno, unix.EINVAL))
	}
	if fargs.allocated == 0 {
		// The parser rebuilt nothing (empty set). Do not wrap the
		// caller-side array the defers above are about to free.
		fargs.argv = nil
	}
	return &Args{box: ffi.AllocBox[C.struct_fuse_args](fargs, freeArgs)}, nil
}

// FromProcessArgs builds an argument set from the current process's
// invocation arguments.
func FromProcessArgs() (*Args, error) {
	return FromSequence(os.Args)
}

// FromMountPoint builds the minimal argument set for mounting at path:
// the executable's own path followed by the mount point.
func FromMountPoint(path string) (*Args, error) {
	exe, err := osext.Executable()
	if err != nil {
		return nil, fmt.Errorf("locating executable: %w", err)
	}
	return FromSequence([]string{exe, path})
}

// ShowHelp prints the library's option help for this set to the process's
// standard output, querying the library's modules for their options. No
// ownership changes.
func (a *Args) ShowHelp() {
	if a.box.Closed() {
		return
	}
	C.fuse_lib_help(a.ptr())
}

// Len returns the number of tokens in the parsed set.
func (a *Args) Len() int {
	if a.box.Closed() {
		return 0
	}
	return int(a.box.Get().argc)
}

// String renders the parsed tokens and the parser's allocated flag.
func (a *Args) String() string {
	if a.box.Closed() {
		return "Args(closed)"
	}
	ref := a.box.Borrow().Get()
	toks := make([]string, 0, int(ref.argc))
	if ref.argv != nil {
		for _, p := range unsafe.Slice(ref.argv, int(ref.argc)) {
			toks = append(toks, C.GoString(p))
		}
	}
	return fmt.Sprintf("Args(allocated=%t, [%s])", ref.allocated != 0, strings.Join(toks, " "))
}

// Close releases the set through the library's free function. Safe to call
// more than once; only the first call reaches the library.
func (a *Args) Close() error {
	if err := a.box.Close(); err != nil {
		return ffi.ErrClosed
	}
	return nil
}

func (a *Args) ptr() *C.struct_fuse_args {
	return (*C.struct_fuse_args)(a.box.Ptr())
}
