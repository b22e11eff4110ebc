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
package block

import (
	"encoding/hex"
	"fmt"
	"slices"

	"github.com/consensys/go-x86hoare/pkg/machine"
)

// Block represents a contiguous, sized region which can be read (and possibly
// written) as a sequence of bytes.  A block is either (part of) a register, a
// range of memory or a constant.  Every block satisfies the following laws:
//
// (1) Reads and writes only touch places within the footprint of the block.
//
// (2) A successful read or write always involves exactly Size() bytes.
//
// (3) A successful write can be immediately read back.
type Block interface {
	// Size returns the number of bytes in this block.
	Size() uint64
	// Footprint returns the places denoted by this block.
	Footprint() machine.Footprint
	// Read the contents of this block from a given configuration.  This fails
	// if some byte of the block is not readable.
	Read(k machine.Config) ([]byte, bool)
	// Write the contents of this block in a given configuration, returning the
	// updated configuration.  This fails if the number of bytes is incorrect,
	// or some byte of the block is not writable.
	Write(k machine.Config, val []byte) (machine.Config, bool)
	// Writable determines precisely when a write to this block will succeed in
	// a given configuration (assuming the correct number of bytes).
	Writable(k machine.Config) bool
	// Provide human-readable form of block
	String() string
}

// Disjoint checks whether the footprints of two blocks are disjoint.  Writing
// to one of two disjoint blocks leaves the other unchanged.
func Disjoint(b1, b2 Block) bool {
	return b1.Footprint().Disjoint(b2.Footprint())
}

// Sub returns the block covering a given number of bytes of a block, starting
// at a given offset.  The sub-block of a register must start at offset zero,
// and a four byte sub-block is only permitted of a four byte register (since
// writing it zero-extends into the upper half).
func Sub(b Block, offset uint64, size uint64) (Block, bool) {
	if end := offset + size; end < offset || end > b.Size() {
		return nil, false
	}
	//
	switch b := b.(type) {
	case Memory:
		return Memory{b.Addr + offset, size}, true
	case Const:
		return NewConst(b.Bytes[offset : offset+size]...), true
	case Register:
		switch {
		case offset != 0:
			return nil, false
		case size == 4 && b.Width != 4:
			return nil, false
		case size == 1, size == 2, size == 4, size == 8:
			return NewRegister(b.Reg, uint8(size)), true
		}
	}
	//
	return nil, false
}

// ============================================================================
// Register
// ============================================================================

// Register is a block covering the low bytes of a general purpose register.
// Writes follow the x86 convention: writing four bytes zero-extends into the
// upper half, whilst writing one or two bytes leaves the remainder untouched.
type Register struct {
	Reg   machine.Reg
	Width uint8
}

// NewRegister constructs a register block of a given width, which must be 1,
// 2, 4 or 8 bytes.
func NewRegister(reg machine.Reg, width uint8) Register {
	switch width {
	case 1, 2, 4, 8:
		return Register{reg, width}
	default:
		panic(fmt.Sprintf("invalid register width %d", width))
	}
}

// Size implementation for Block interface.
func (p Register) Size() uint64 {
	return uint64(p.Width)
}

// Footprint implementation for Block interface.
func (p Register) Footprint() machine.Footprint {
	return machine.NewFootprint(machine.RegAt(p.Reg))
}

// Read implementation for Block interface.
func (p Register) Read(k machine.Config) ([]byte, bool) {
	var (
		word = k.Regs[p.Reg]
		val  = make([]byte, p.Width)
	)
	//
	for i := range val {
		val[i] = byte(word >> (8 * i))
	}
	//
	return val, true
}

// Write implementation for Block interface.
func (p Register) Write(k machine.Config, val []byte) (machine.Config, bool) {
	if len(val) != int(p.Width) {
		return k, false
	}
	//
	var word uint64
	//
	switch p.Width {
	case 4, 8:
		// upper bytes are zeroed
	default:
		word = k.Regs[p.Reg] &^ ((uint64(1) << (8 * p.Width)) - 1)
	}
	//
	for i, b := range val {
		word |= uint64(b) << (8 * i)
	}
	//
	k.Regs[p.Reg] = word
	//
	return k, true
}

// Writable implementation for Block interface.  Registers are always live.
func (p Register) Writable(k machine.Config) bool {
	return true
}

func (p Register) String() string {
	return fmt.Sprintf("%s:%d", p.Reg, p.Width)
}

// ============================================================================
// Memory
// ============================================================================

// Memory is a block covering a contiguous range of memory.
type Memory struct {
	Addr uint64
	Len  uint64
}

// Size implementation for Block interface.
func (p Memory) Size() uint64 {
	return p.Len
}

// Footprint implementation for Block interface.
func (p Memory) Footprint() machine.Footprint {
	return machine.MemRange(p.Addr, p.Len)
}

// Read implementation for Block interface.
func (p Memory) Read(k machine.Config) ([]byte, bool) {
	val := make([]byte, p.Len)
	//
	for i := range p.Len {
		b, ok := k.Mem.ReadByteAt(p.Addr+i, machine.PERM_READ)
		//
		if !ok {
			return nil, false
		}
		//
		val[i] = b
	}
	//
	return val, true
}

// Write implementation for Block interface.
func (p Memory) Write(k machine.Config, val []byte) (machine.Config, bool) {
	if uint64(len(val)) != p.Len || !p.Writable(k) {
		return k, false
	}
	//
	for i, b := range val {
		mem, ok := k.Mem.WriteByteAt(p.Addr+uint64(i), b)
		//
		if !ok {
			return k, false
		}
		//
		k.Mem = mem
	}
	//
	return k, true
}

// Writable implementation for Block interface.  Every byte must currently be
// readable with write permission.
func (p Memory) Writable(k machine.Config) bool {
	for i := range p.Len {
		if _, ok := k.Mem.ReadByteAt(p.Addr+i, machine.PERM_RW); !ok {
			return false
		}
	}
	//
	return true
}

func (p Memory) String() string {
	return fmt.Sprintf("[0x%x;%d]", p.Addr, p.Len)
}

// ============================================================================
// Constant
// ============================================================================

// Const is a block holding a fixed sequence of bytes.  It can be read in any
// configuration, never written and has an empty footprint.
type Const struct {
	Bytes []byte
}

// NewConst constructs a constant block.
func NewConst(bytes ...byte) Const {
	return Const{slices.Clone(bytes)}
}

// Size implementation for Block interface.
func (p Const) Size() uint64 {
	return uint64(len(p.Bytes))
}

// Footprint implementation for Block interface.
func (p Const) Footprint() machine.Footprint {
	return machine.NewFootprint()
}

// Read implementation for Block interface.
func (p Const) Read(k machine.Config) ([]byte, bool) {
	return slices.Clone(p.Bytes), true
}

// Write implementation for Block interface.
func (p Const) Write(k machine.Config, val []byte) (machine.Config, bool) {
	return k, false
}

// Writable implementation for Block interface.
func (p Const) Writable(k machine.Config) bool {
	return false
}

func (p Const) String() string {
	return fmt.Sprintf("$0x%s", hex.EncodeToString(p.Bytes))
}
