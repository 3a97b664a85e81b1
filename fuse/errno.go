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
	"syscall"
)

// errnoOf extracts the errno carried by err (typically the cgo-captured
// errno of a failed foreign call) and falls back to the given code when the
// foreign call left nothing behind.
func errnoOf(err error, fallback syscall.Errno) syscall.Errno {
	var e syscall.Errno
	if errors.As(err, &e) && e != 0 {
		return e
	}
	return fallback
}

// errnoResult maps a callback's error to the negated errno convention the
// kernel expects. A nil error is success; an error without an errno maps to
// EIO rather than leaking a zero status for a failed operation.
func errnoResult(err error) int {
	if err == nil {
		return 0
	}
	var e syscall.Errno
	if errors.As(err, &e) && e != 0 {
		return -int(e)
	}
	return -int(syscall.EIO)
}
