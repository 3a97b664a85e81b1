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

package ffi

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeValue stands in for a foreign allocation. The tests that do not
// exercise backing-storage deallocation point Boxes at Go memory and pass
// freeBacking=false, so free(3) is never reached.
type fakeValue struct {
	n int
}

func TestBox_CloseRunsDestructorExactlyOnce(t *testing.T) {
	// Arrange
	v := &fakeValue{n: 7}
	calls := 0
	b := NewBox[fakeValue](unsafe.Pointer(v), false, func(p unsafe.Pointer) {
		calls++
		assert.Equal(t, unsafe.Pointer(v), p)
	})

	// Act
	err1 := b.Close()
	err2 := b.Close()

	// Assert
	require.NoError(t, err1)
	require.ErrorIs(t, err2, ErrClosed)
	assert.Equal(t, 1, calls)
	assert.True(t, b.Closed())
	assert.Nil(t, b.Ptr())
}

func TestBox_ReleaseDisarmsTeardown(t *testing.T) {
	// Arrange
	v := &fakeValue{n: 3}
	calls := 0
	b := NewBox[fakeValue](unsafe.Pointer(v), false, func(unsafe.Pointer) { calls++ })

	// Act
	p := b.Release()
	err := b.Close()

	// Assert: the receiver now owns p; the inert wrapper must neither run
	// the destructor nor report an open box.
	assert.Equal(t, unsafe.Pointer(v), p)
	require.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, 0, calls)
	assert.True(t, b.Closed())
}

func TestBox_ReleaseAfterClosePanics(t *testing.T) {
	b := NewBox[fakeValue](unsafe.Pointer(&fakeValue{}), false, func(unsafe.Pointer) {})
	require.NoError(t, b.Close())

	assert.Panics(t, func() { b.Release() })
}

func TestBox_NewBoxPreconditions(t *testing.T) {
	v := &fakeValue{}

	assert.Panics(t, func() { NewBox[fakeValue](nil, false, func(unsafe.Pointer) {}) })
	assert.Panics(t, func() { NewBox[fakeValue](unsafe.Pointer(v), false, nil) })
}

func TestBox_GetTypesThePayload(t *testing.T) {
	v := &fakeValue{n: 42}
	b := NewBox[fakeValue](unsafe.Pointer(v), false, func(unsafe.Pointer) {})
	defer b.Close()

	got := b.Get()

	require.NotNil(t, got)
	assert.Equal(t, 42, got.n)
}

func TestAllocBox_RoundTripsAndTearsDownInOrder(t *testing.T) {
	// Arrange
	type payload struct {
		a, b int64
	}
	destroyed := false
	bx := AllocBox[payload](payload{a: 1, b: 2}, func(p unsafe.Pointer) {
		// The destructor must see the live value; backing free happens
		// after it returns.
		destroyed = true
		got := (*payload)(p)
		assert.Equal(t, int64(1), got.a)
		assert.Equal(t, int64(2), got.b)
	})

	// Act
	got := *bx.Get()
	err := bx.Close()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, payload{a: 1, b: 2}, got)
	assert.True(t, destroyed)
}

func TestRef_TracksOwner(t *testing.T) {
	v := &fakeValue{n: 9}
	b := NewBox[fakeValue](unsafe.Pointer(v), false, func(unsafe.Pointer) {})
	r := b.Borrow()

	r.Get().n = 11

	assert.Equal(t, 11, v.n)
	require.NoError(t, b.Close())
	assert.Panics(t, func() { r.Get() }, "a borrow that outlives its owner must fail loudly")
}

func TestRef_SurvivesOwnershipTransferAsABug(t *testing.T) {
	b := NewBox[fakeValue](unsafe.Pointer(&fakeValue{}), false, func(unsafe.Pointer) {})
	r := b.Borrow()
	b.Release()

	assert.Panics(t, func() { r.Get() })
}
