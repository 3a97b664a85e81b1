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

// Package fuse is the native binding API for the high-level libfuse3
// interface.
//
// It wraps the library's three C-ABI surfaces (the fuse_args argument
// structure, the fuse driver handle, and the fuse_operations callback
// table) behind types that cannot be misused to double-free a handle,
// touch it after release, or tear it down out of order.
//
// The usual call sequence mirrors libfuse's own:
//
//	args, err := fuse.FromSequence([]string{"myfs", "-o", "ro"})
//	// handle err
//	defer args.Close()
//
//	ops := &fuse.Operations{Getattr: ..., Readdir: ..., Read: ...}
//	drv := fuse.New(args, ops, &myData)
//	if drv == nil {
//		// the library rejected the arguments or the table; not retryable
//	}
//	if err := drv.Mount("/mnt/x"); err != nil { ... }
//	err = drv.LoopSingle() // blocks; callbacks run on this thread
//	drv.Unmount()
//	drv.Finalize()
//
// Only the single-threaded dispatch loop is bound. Unmount and Finalize
// may be called from another goroutine to stop a running loop; everything
// else on a Driver must be serialized by the caller.
package fuse
