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
package machine

import "fmt"

// Reg identifies one of the sixteen general purpose registers.  The numbering
// follows the x86 encoding, such that register n is encoded using the value n
// in the ModRM / REX fields.
type Reg uint8

const (
	// RAX is the accumulator register.
	RAX Reg = iota
	// RCX is the counter register.
	RCX
	// RDX is the data register.
	RDX
	// RBX is the base register.
	RBX
	// RSP is the stack pointer.
	RSP
	// RBP is the frame pointer.
	RBP
	// RSI is the source index.
	RSI
	// RDI is the destination index.
	RDI
	// R8 is an extended register.
	R8
	// R9 is an extended register.
	R9
	// R10 is an extended register.
	R10
	// R11 is an extended register.
	R11
	// R12 is an extended register.
	R12
	// R13 is an extended register.
	R13
	// R14 is an extended register.
	R14
	// R15 is an extended register.
	R15
)

// NUM_REGS is the number of general purpose registers.
const NUM_REGS = 16

var regNames = [NUM_REGS]string{
	"rax", "rcx", "rdx", "rbx", "rsp", "rbp", "rsi", "rdi",
	"r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15",
}

func (r Reg) String() string {
	if int(r) < len(regNames) {
		return regNames[r]
	}
	//
	return fmt.Sprintf("r?%d", uint8(r))
}

// PlaceKind distinguishes the four kinds of location within a configuration.
type PlaceKind uint8

const (
	// FLAG_PLACE identifies a single status flag.
	FLAG_PLACE PlaceKind = iota
	// REG_PLACE identifies a general purpose register.
	REG_PLACE
	// RIP_PLACE identifies the instruction pointer.
	RIP_PLACE
	// MEM_PLACE identifies a single byte of memory.
	MEM_PLACE
)

// Place is a uniform handle for anything which can be read or written within a
// configuration: a flag, a register, the instruction pointer or a single byte
// of memory.  For flags and registers the index holds the flag (resp.
// register) number, for memory it holds the address and for the instruction
// pointer it is always zero.  Places are comparable and, hence, can be used
// as map keys.
type Place struct {
	Kind  PlaceKind
	Index uint64
}

// FlagAt constructs the place for a given flag.
func FlagAt(f Flag) Place {
	return Place{FLAG_PLACE, uint64(f)}
}

// RegAt constructs the place for a given register.
func RegAt(r Reg) Place {
	return Place{REG_PLACE, uint64(r)}
}

// RipAt constructs the (unique) place for the instruction pointer.
func RipAt() Place {
	return Place{RIP_PLACE, 0}
}

// MemAt constructs the place for the byte at a given address.
func MemAt(addr uint64) Place {
	return Place{MEM_PLACE, addr}
}

// Width returns the number of bits read or written through this place.
func (p Place) Width() uint {
	switch p.Kind {
	case FLAG_PLACE:
		return 1
	case MEM_PLACE:
		return 8
	default:
		return 64
	}
}

func (p Place) String() string {
	switch p.Kind {
	case FLAG_PLACE:
		return Flag(p.Index).String()
	case REG_PLACE:
		return Reg(p.Index).String()
	case RIP_PLACE:
		return "rip"
	default:
		return fmt.Sprintf("[0x%x]", p.Index)
	}
}
