// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package value

import (
	"bytes"
	"testing"

	"github.com/consensys/go-x86hoare/pkg/block"
	"github.com/consensys/go-x86hoare/pkg/machine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	DATA = 0x1000
	HEAP = 0x2000
)

func Test_Word_00(t *testing.T) {
	assert.Equal(t, uint64(1), U8.Size())
	assert.Equal(t, uint64(2), U16.Size())
	assert.Equal(t, uint64(4), U32.Size())
	assert.Equal(t, uint64(8), U64.Size())
	//
	enc, ok := U16.Encode(0x1234)
	assert.True(t, ok)
	assert.Equal(t, []byte{0x34, 0x12}, enc)
	//
	_, ok = U32.Decode([]byte{1, 2})
	assert.False(t, ok)
	//
	assert.Equal(t, uint8(0x34), U8.FromUint64(0x1234))
	assert.Equal(t, uint64(1), U64.Uint64(U64.One()))
	assert.Equal(t, uint16(0), U16.Zero())
}

func Test_Serial_00(t *testing.T) {
	for _, v := range []uint64{0, 1, 0xff, 0x1234, 1 << 63, 0xffffffffffffffff} {
		assert.NoError(t, CheckSerial[uint8](U8, uint8(v), eq))
		assert.NoError(t, CheckSerial[uint16](U16, uint16(v), eq))
		assert.NoError(t, CheckSerial[uint32](U32, uint32(v), eq))
		assert.NoError(t, CheckSerial[uint64](U64, v, eq))
	}
	//
	assert.NoError(t, CheckSerial[[]byte](ByteString{3}, []byte{1, 2, 3}, bytes.Equal))
}

func Test_RoundTrip_00(t *testing.T) {
	k := config()
	//
	for _, v := range []uint64{0, 1, 0x8000, 0xdeadbeef, 0xffffffffffffffff} {
		for _, b := range blocksOf(1) {
			assert.NoError(t, CheckRoundTrip[uint8](U8, uint8(v), b, k, eq))
		}
		//
		for _, b := range blocksOf(2) {
			assert.NoError(t, CheckRoundTrip[uint16](U16, uint16(v), b, k, eq))
		}
		//
		for _, b := range blocksOf(4) {
			assert.NoError(t, CheckRoundTrip[uint32](U32, uint32(v), b, k, eq))
		}
		//
		for _, b := range blocksOf(8) {
			assert.NoError(t, CheckRoundTrip[uint64](U64, v, b, k, eq))
		}
	}
}

func Test_RoundTrip_01(t *testing.T) {
	ty := Bytes(3)
	k := config()
	//
	for _, b := range []block.Block{block.Memory{Addr: DATA, Len: 3}, block.NewConst(1, 2, 3)} {
		assert.NoError(t, CheckRoundTrip[[]byte](ty, []byte{7, 8, 9}, b, k, bytes.Equal))
	}
	// Size mismatch
	_, _, ok := ty.Read(block.Memory{Addr: DATA, Len: 4}, k)
	assert.False(t, ok)
	_, ok = ty.Write([]byte{1, 2, 3}, block.Memory{Addr: DATA, Len: 2}, k)
	assert.False(t, ok)
}

func Test_RoundTrip_02(t *testing.T) {
	ty := Bytes(3)
	k := config()
	// Values of the wrong length cannot be written
	for _, val := range [][]byte{nil, {9}, {1, 2}, {1, 2, 3, 4}, {1, 2, 3, 4, 5}} {
		_, ok := ty.Encode(val)
		assert.False(t, ok)
		//
		k2, ok := ty.Write(val, block.Memory{Addr: DATA, Len: 3}, k)
		assert.False(t, ok)
		assert.Equal(t, k, k2)
		//
		assert.NoError(t, CheckRoundTrip[[]byte](ty, val, block.Memory{Addr: DATA, Len: 3}, k, bytes.Equal))
		assert.NoError(t, CheckSerial[[]byte](ByteString{3}, val, bytes.Equal))
	}
}

func Test_Box_00(t *testing.T) {
	var (
		box = NewBox[uint32](U32)
		ptr = block.NewRegister(machine.RSI, 8)
		k   = config()
	)
	//
	k.Regs[machine.RSI] = HEAP
	//
	assert.Equal(t, uint64(POINTER_SIZE), box.Size())
	assert.NoError(t, CheckRoundTrip[uint32](box, 0xcafe, ptr, k, eq))
	// The footprint covers both the pointer and the pointee
	k2, ok := box.Write(0xcafe, ptr, k)
	require.True(t, ok)
	//
	val, footprint, ok := box.Read(ptr, k2)
	require.True(t, ok)
	assert.Equal(t, uint32(0xcafe), val)
	assert.True(t, footprint.Contains(machine.RegAt(machine.RSI)))
	assert.True(t, footprint.Contains(machine.MemAt(HEAP+3)))
	assert.Equal(t, 5, footprint.Len())
	// The pointer is unchanged
	assert.Equal(t, uint64(HEAP), k2.Regs[machine.RSI])
}

func Test_Box_01(t *testing.T) {
	var (
		box = NewBox[uint64](U64)
		ptr = block.Memory{Addr: DATA, Len: 8}
		k   = config()
	)
	// Pointer held in memory, to an unmapped address
	k, ok := U64.Write(0x9000, ptr, k)
	require.True(t, ok)
	//
	_, _, ok = box.Read(ptr, k)
	assert.False(t, ok)
	_, ok = box.Write(1, ptr, k)
	assert.False(t, ok)
	// Box of box
	k, ok = U64.Write(HEAP, ptr, k)
	require.True(t, ok)
	k, ok = U64.Write(HEAP+8, block.Memory{Addr: HEAP, Len: 8}, k)
	require.True(t, ok)
	//
	boxbox := NewBox[uint64](box)
	assert.NoError(t, CheckRoundTrip[uint64](boxbox, 42, ptr, k, eq))
}

func Test_Box_02(t *testing.T) {
	var (
		box = NewBox[uint64](U64)
		ptr = block.Memory{Addr: DATA, Len: 8}
		k   = config()
	)
	// Pointee overlaps the pointer itself
	for _, addr := range []uint64{DATA, DATA + 4} {
		k, ok := U64.Write(addr, ptr, k)
		require.True(t, ok)
		//
		k2, ok := box.Write(0xdeadbeef, ptr, k)
		assert.False(t, ok)
		assert.Equal(t, k, k2)
		assert.NoError(t, CheckRoundTrip[uint64](box, 0xdeadbeef, ptr, k, eq))
	}
	// Inner pointee reaches back to the outer pointer
	k, ok := U64.Write(HEAP, ptr, k)
	require.True(t, ok)
	k, ok = U64.Write(DATA, block.Memory{Addr: HEAP, Len: 8}, k)
	require.True(t, ok)
	//
	boxbox := NewBox[uint64](box)
	_, ok = boxbox.Write(7, ptr, k)
	assert.False(t, ok)
	assert.NoError(t, CheckRoundTrip[uint64](boxbox, 7, ptr, k, eq))
}

func Test_Box_03(t *testing.T) {
	var (
		box = NewBox[[]byte](Bytes(4))
		ptr = block.NewRegister(machine.RSI, 8)
		k   = config()
	)
	//
	k.Regs[machine.RSI] = HEAP
	// Over-long and short values are rejected through the pointer
	for _, val := range [][]byte{{1, 2, 3, 4, 5}, {1}} {
		k2, ok := box.Write(val, ptr, k)
		assert.False(t, ok)
		assert.Equal(t, k, k2)
	}
	//
	assert.NoError(t, CheckRoundTrip[[]byte](box, []byte{1, 2, 3, 4}, ptr, k, bytes.Equal))
}

// ============================================================================
// Test Helpers
// ============================================================================

func eq[T comparable](l, r T) bool {
	return l == r
}

func config() machine.Config {
	k := machine.NewConfig()
	k.Mem = k.Mem.Map(DATA, make([]byte, 16), machine.PERM_RW)
	k.Mem = k.Mem.Map(HEAP, make([]byte, 16), machine.PERM_RW)
	//
	return k
}

func blocksOf(size uint8) []block.Block {
	return []block.Block{
		block.NewRegister(machine.RDX, size),
		block.NewRegister(machine.R12, size),
		block.Memory{Addr: DATA + 3, Len: uint64(size)},
		block.Memory{Addr: DATA + 15, Len: uint64(size)},
	}
}
