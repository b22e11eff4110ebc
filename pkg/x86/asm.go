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
package x86

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/consensys/go-x86hoare/pkg/machine"
)

// ErrRange arises when a jump target cannot be reached with a 32-bit relative
// displacement.
var ErrRange = errors.New("jump target out of range")

// ErrWidth arises when an operand width is not one of 1, 2, 4 or 8 bytes.
var ErrWidth = errors.New("invalid operand width")

// JCC_LEN is the length of an encoded conditional jump (rel32).
const JCC_LEN = 6

// JMP_LEN is the length of an encoded unconditional jump (rel32).
const JMP_LEN = 5

// UD2_LEN is the length of an encoded "ud2".
const UD2_LEN = 2

// AluOp identifies a binary operation which combines rcx into rax.
type AluOp uint8

const (
	// ADD computes rax + rcx.
	ADD AluOp = iota
	// SUB computes rax - rcx.
	SUB
	// AND computes rax & rcx.
	AND
	// OR computes rax | rcx.
	OR
	// XOR computes rax ^ rcx.
	XOR
	// IMUL computes rax * rcx.
	IMUL
	// CMP compares rax with rcx (i.e. computes rax - rcx for the flags only).
	CMP
)

// UnaryOp identifies a unary operation on rax.
type UnaryOp uint8

const (
	// NOT computes ^rax.
	NOT UnaryOp = iota
	// NEG computes -rax.
	NEG
)

// Asm assembles the fixed subset of x86-64 instructions used when lowering
// statements.  Every instruction has a length which does not depend on where
// it is placed: memory is accessed through 64-bit absolute addresses, and jumps
// always use 32-bit displacements.  The origin is only needed to compute these
// displacements.
type Asm struct {
	origin uint64
	bytes  []byte
}

// NewAsm constructs an assembler for code placed at a given origin.
func NewAsm(origin uint64) *Asm {
	return &Asm{origin, nil}
}

// Bytes returns the bytes assembled so far.
func (p *Asm) Bytes() []byte {
	return p.bytes
}

// Len returns the number of bytes assembled so far.
func (p *Asm) Len() uint64 {
	return uint64(len(p.bytes))
}

// Pc returns the address of the next instruction to be assembled.
func (p *Asm) Pc() uint64 {
	return p.origin + p.Len()
}

// Raw appends arbitrary bytes.
func (p *Asm) Raw(bytes ...byte) {
	p.bytes = append(p.bytes, bytes...)
}

// MovRaxImm assembles "movabs rax, imm64".
func (p *Asm) MovRaxImm(imm uint64) {
	p.Raw(0x48, 0xB8)
	p.bytes = binary.LittleEndian.AppendUint64(p.bytes, imm)
}

// LoadRax assembles a load of width bytes from an absolute address into the
// low bytes of rax (i.e. "mov al/ax/eax/rax, [moffs64]").
func (p *Asm) LoadRax(addr uint64, width uint) error {
	switch width {
	case 1:
		p.Raw(0xA0)
	case 2:
		p.Raw(0x66, 0xA1)
	case 4:
		p.Raw(0xA1)
	case 8:
		p.Raw(0x48, 0xA1)
	default:
		return fmt.Errorf("%w: %d", ErrWidth, width)
	}
	//
	p.bytes = binary.LittleEndian.AppendUint64(p.bytes, addr)
	//
	return nil
}

// StoreRax assembles a store of the low width bytes of rax to an absolute
// address (i.e. "mov [moffs64], al/ax/eax/rax").
func (p *Asm) StoreRax(addr uint64, width uint) error {
	switch width {
	case 1:
		p.Raw(0xA2)
	case 2:
		p.Raw(0x66, 0xA3)
	case 4:
		p.Raw(0xA3)
	case 8:
		p.Raw(0x48, 0xA3)
	default:
		return fmt.Errorf("%w: %d", ErrWidth, width)
	}
	//
	p.bytes = binary.LittleEndian.AppendUint64(p.bytes, addr)
	//
	return nil
}

// MovRegReg assembles "mov dst, src" for 64-bit registers.
func (p *Asm) MovRegReg(dst machine.Reg, src machine.Reg) {
	p.Raw(rex(true, src, dst), 0x89, modrm(src, dst))
}

// StoreRaxReg assembles a move of the low width bytes of rax into a register.
// Following x86, a 4-byte move zero-extends into the destination, whilst 1 and
// 2 byte moves leave its upper bytes untouched.
func (p *Asm) StoreRaxReg(dst machine.Reg, width uint) error {
	switch width {
	case 1:
		// A REX prefix is always used so that 4..7 denote spl..dil
		p.Raw(rex(false, machine.RAX, dst), 0x88, modrm(machine.RAX, dst))
	case 2:
		p.Raw(0x66)
		p.optRex(dst)
		p.Raw(0x89, modrm(machine.RAX, dst))
	case 4:
		p.optRex(dst)
		p.Raw(0x89, modrm(machine.RAX, dst))
	case 8:
		p.MovRegReg(dst, machine.RAX)
	default:
		return fmt.Errorf("%w: %d", ErrWidth, width)
	}
	//
	return nil
}

// ZeroExtendRax assembles the zero extension of the low width bytes of rax
// into the whole register.
func (p *Asm) ZeroExtendRax(width uint) error {
	switch width {
	case 1:
		// movzx rax, al
		p.Raw(0x48, 0x0F, 0xB6, 0xC0)
	case 2:
		// movzx rax, ax
		p.Raw(0x48, 0x0F, 0xB7, 0xC0)
	case 4:
		// mov eax, eax
		p.Raw(0x89, 0xC0)
	case 8:
		// nothing to do
	default:
		return fmt.Errorf("%w: %d", ErrWidth, width)
	}
	//
	return nil
}

// Alu assembles a binary operation of the form "op rax, rcx".
func (p *Asm) Alu(op AluOp) {
	switch op {
	case ADD:
		p.Raw(0x48, 0x01, 0xC8)
	case SUB:
		p.Raw(0x48, 0x29, 0xC8)
	case AND:
		p.Raw(0x48, 0x21, 0xC8)
	case OR:
		p.Raw(0x48, 0x09, 0xC8)
	case XOR:
		p.Raw(0x48, 0x31, 0xC8)
	case IMUL:
		p.Raw(0x48, 0x0F, 0xAF, 0xC1)
	case CMP:
		p.Raw(0x48, 0x39, 0xC8)
	default:
		panic(fmt.Sprintf("unknown alu operation %d", op))
	}
}

// Unary assembles a unary operation of the form "op rax".
func (p *Asm) Unary(op UnaryOp) {
	switch op {
	case NOT:
		p.Raw(0x48, 0xF7, 0xD0)
	case NEG:
		p.Raw(0x48, 0xF7, 0xD8)
	default:
		panic(fmt.Sprintf("unknown unary operation %d", op))
	}
}

// CmpRaxRax assembles "cmp rax, rax", which sets ZF and clears CF, SF and OF
// whatever rax holds.
func (p *Asm) CmpRaxRax() {
	p.Raw(0x48, 0x39, 0xC0)
}

// Ud2 assembles "ud2", which always raises an invalid opcode exception.
func (p *Asm) Ud2() {
	p.Raw(0x0F, 0x0B)
}

// Jcc assembles a jump to a given target which is taken when the condition
// holds.  An ALWAYS condition assembles an unconditional jump, whilst a NEVER
// condition assembles nothing at all.
func (p *Asm) Jcc(cond Cond, target uint64) error {
	switch {
	case cond == NEVER:
		return nil
	case cond == ALWAYS:
		return p.Jmp(target)
	case !cond.IsValid():
		return fmt.Errorf("unmodelled condition 0x%x", uint8(cond))
	}
	//
	rel, err := displacement(p.Pc()+JCC_LEN, target)
	//
	if err != nil {
		return err
	}
	//
	p.Raw(0x0F, 0x80+byte(cond))
	p.bytes = binary.LittleEndian.AppendUint32(p.bytes, rel)
	//
	return nil
}

// Jmp assembles an unconditional jump to a given target.
func (p *Asm) Jmp(target uint64) error {
	rel, err := displacement(p.Pc()+JMP_LEN, target)
	//
	if err != nil {
		return err
	}
	//
	p.Raw(0xE9)
	p.bytes = binary.LittleEndian.AppendUint32(p.bytes, rel)
	//
	return nil
}

// Syscall assembles "syscall".
func (p *Asm) Syscall() {
	p.Raw(0x0F, 0x05)
}

// JccLen returns the number of bytes assembled by Jcc for a given condition.
func JccLen(cond Cond) uint64 {
	switch cond {
	case NEVER:
		return 0
	case ALWAYS:
		return JMP_LEN
	default:
		return JCC_LEN
	}
}

func (p *Asm) optRex(rm machine.Reg) {
	if rm >= machine.R8 {
		p.Raw(0x41)
	}
}

func rex(w bool, reg machine.Reg, rm machine.Reg) byte {
	b := byte(0x40)
	//
	if w {
		b |= 0x08
	}
	//
	if reg >= machine.R8 {
		b |= 0x04
	}
	//
	if rm >= machine.R8 {
		b |= 0x01
	}
	//
	return b
}

func modrm(reg machine.Reg, rm machine.Reg) byte {
	return 0xC0 | (byte(reg)&7)<<3 | byte(rm)&7
}

func displacement(next uint64, target uint64) (uint32, error) {
	rel := int64(target - next)
	//
	if rel < math.MinInt32 || rel > math.MaxInt32 {
		return 0, fmt.Errorf("%w: 0x%x from 0x%x", ErrRange, target, next)
	}
	//
	return uint32(int32(rel)), nil
}
