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
	"slices"

	"github.com/consensys/go-x86hoare/pkg/hoare"
	"github.com/consensys/go-x86hoare/pkg/machine"
	log "github.com/sirupsen/logrus"
	"golang.org/x/arch/x86/x86asm"
)

// MAX_INST_LEN is the maximum length of an x86 instruction.
const MAX_INST_LEN = 15

// Linux system call numbers understood by the stepper.
const (
	SYS_READ       = 0
	SYS_WRITE      = 1
	SYS_EXIT       = 60
	SYS_EXIT_GROUP = 231
)

// Errno values returned (negated) by system calls.
const (
	EBADF  = 9
	EFAULT = 14
)

// Stepper is a reference single-step semantics for a small subset of x86-64
// in long mode, sufficient to execute the code produced by Asm (and a little
// more).  Instructions are fetched from memory mapped with execute permission
// and decoded with x86asm.  Anything outside the subset leaves the machine
// stuck.  The stepper is deterministic, hence every result has at most one
// successor.
type Stepper struct{}

// Step implementation for hoare.Stepper interface.
func (p Stepper) Step(k hoare.KConfig) hoare.Result {
	inst, ok := Fetch(k.Config, k.Rip)
	//
	if !ok {
		log.Debugf("cannot decode instruction at 0x%x", k.Rip)
		return hoare.Stuck()
	}
	//
	s := state{k, k.Rip + uint64(inst.Len), inst}
	//
	return s.exec()
}

// Fetch reads and decodes the instruction at a given address.  Only bytes
// mapped with execute permission can be fetched.
func Fetch(k machine.Config, addr uint64) (x86asm.Inst, bool) {
	var bytes []byte
	//
	for i := range uint64(MAX_INST_LEN) {
		b, ok := k.Mem.ReadByteAt(addr+i, machine.PERM_EXEC)
		if !ok {
			break
		}
		//
		bytes = append(bytes, b)
	}
	//
	inst, err := x86asm.Decode(bytes, 64)
	//
	return inst, err == nil && inst.Op != 0
}

// state captures an instruction being executed.
type state struct {
	k    hoare.KConfig
	next uint64
	inst x86asm.Inst
}

func (p *state) exec() hoare.Result {
	var (
		args = p.inst.Args
		ok   = true
	)
	// Jumps may override this
	p.k.Rip = p.next
	//
	switch p.inst.Op {
	case x86asm.NOP:
		// nothing
	case x86asm.MOV:
		var val uint64
		if val, ok = p.read(args[1], p.width(args[0])); ok {
			ok = p.write(args[0], val)
		}
	case x86asm.MOVZX:
		var val uint64
		if val, ok = p.read(args[1], p.width(args[1])); ok {
			ok = p.write(args[0], val)
		}
	case x86asm.ADD, x86asm.SUB, x86asm.CMP, x86asm.AND, x86asm.OR, x86asm.XOR, x86asm.IMUL:
		ok = p.binary(args[0], args[1])
	case x86asm.NOT, x86asm.NEG, x86asm.INC, x86asm.DEC:
		ok = p.unary(args[0])
	case x86asm.JMP:
		ok = p.jump(args[0], true)
	case x86asm.SYSCALL:
		return p.syscall()
	default:
		if cond, isJcc := jccConds[p.inst.Op]; isJcc {
			ok = p.jump(args[0], cond.Eval(p.k.Flags))
		} else {
			log.Debugf("unsupported instruction %s at 0x%x", p.inst.Op, p.current())
			return hoare.Stuck()
		}
	}
	//
	if !ok {
		return hoare.Stuck()
	}
	//
	return hoare.Continue(p.k)
}

// current returns the address of the instruction being executed.
func (p *state) current() uint64 {
	return p.next - uint64(p.inst.Len)
}

func (p *state) binary(dst x86asm.Arg, src x86asm.Arg) bool {
	var (
		w      = p.width(dst)
		msb    = uint64(1) << (8*w - 1)
		mask   = widthMask(w)
		a, ok1 = p.read(dst, w)
		b, ok2 = p.read(src, w)
		res    uint64
		cf, of bool
	)
	//
	if !ok1 || !ok2 {
		return false
	}
	//
	switch p.inst.Op {
	case x86asm.ADD:
		res = (a + b) & mask
		cf = res < a
		of = (a^res)&(b^res)&msb != 0
	case x86asm.SUB, x86asm.CMP:
		res = (a - b) & mask
		cf = a < b
		of = (a^b)&(a^res)&msb != 0
	case x86asm.AND:
		res = a & b
	case x86asm.OR:
		res = a | b
	case x86asm.XOR:
		res = a ^ b
	case x86asm.IMUL:
		res = (a * b) & mask
		of = !signedMulFits(a, b, w)
		cf = of
	}
	//
	p.setFlags(res, msb, cf, of)
	//
	if p.inst.Op == x86asm.CMP {
		return true
	}
	//
	return p.write(dst, res)
}

func (p *state) unary(dst x86asm.Arg) bool {
	var (
		w     = p.width(dst)
		msb   = uint64(1) << (8*w - 1)
		mask  = widthMask(w)
		a, ok = p.read(dst, w)
		res   uint64
	)
	//
	if !ok {
		return false
	}
	//
	switch p.inst.Op {
	case x86asm.NOT:
		// Flags are unaffected
		return p.write(dst, ^a&mask)
	case x86asm.NEG:
		res = (0 - a) & mask
		p.setFlags(res, msb, a != 0, a == msb)
	case x86asm.INC:
		res = (a + 1) & mask
		p.setFlags(res, msb, p.k.Flags.Get(machine.CF), a == msb-1)
	case x86asm.DEC:
		res = (a - 1) & mask
		p.setFlags(res, msb, p.k.Flags.Get(machine.CF), a == msb)
	}
	//
	return p.write(dst, res)
}

func (p *state) setFlags(res uint64, msb uint64, cf bool, of bool) {
	p.k.Flags = p.k.Flags.
		Set(machine.CF, cf).
		Set(machine.ZF, res == 0).
		Set(machine.SF, res&msb != 0).
		Set(machine.OF, of)
}

func (p *state) jump(arg x86asm.Arg, taken bool) bool {
	rel, ok := arg.(x86asm.Rel)
	//
	if !ok {
		return false
	} else if taken {
		p.k.Rip = p.next + uint64(int64(rel))
	}
	//
	return true
}

func (p *state) syscall() hoare.Result {
	var (
		regs = &p.k.Regs
		nr   = regs[machine.RAX]
	)
	// The kernel clobbers rcx and r11
	regs[machine.RCX] = p.next
	regs[machine.R11] = packFlags(p.k.Flags)
	//
	switch nr {
	case SYS_EXIT, SYS_EXIT_GROUP:
		return hoare.Exit(regs[machine.RDI])
	case SYS_READ:
		regs[machine.RAX] = p.sysRead(regs[machine.RDI], regs[machine.RSI], regs[machine.RDX])
	case SYS_WRITE:
		regs[machine.RAX] = p.sysWrite(regs[machine.RDI], regs[machine.RSI], regs[machine.RDX])
	default:
		log.Debugf("unsupported system call %d at 0x%x", nr, p.current())
		return hoare.Stuck()
	}
	//
	return hoare.Continue(p.k)
}

func (p *state) sysRead(fd uint64, buf uint64, count uint64) uint64 {
	if fd != 0 {
		return errno(EBADF)
	}
	//
	n := min(count, uint64(len(p.k.Input)))
	k := p.k.Config
	//
	for i := range n {
		var ok bool
		//
		if k, ok = k.Write(machine.MemAt(buf+i), uint64(p.k.Input[i])); !ok {
			return errno(EFAULT)
		}
	}
	//
	p.k.Config = k
	p.k.Input = p.k.Input[n:]
	//
	return n
}

func (p *state) sysWrite(fd uint64, buf uint64, count uint64) uint64 {
	if fd != 1 && fd != 2 {
		return errno(EBADF)
	}
	//
	var bytes []byte
	//
	for i := range count {
		_, val, ok := p.k.Read(machine.MemAt(buf + i))
		if !ok {
			return errno(EFAULT)
		}
		//
		bytes = append(bytes, byte(val))
	}
	//
	p.k.Output = append(slices.Clone(p.k.Output), bytes...)
	//
	return count
}

// width returns the operand width (in bytes) of an argument.
func (p *state) width(arg x86asm.Arg) uint {
	switch arg := arg.(type) {
	case x86asm.Reg:
		_, w, _ := regOf(arg)
		return w
	case x86asm.Mem:
		return uint(p.inst.MemBytes)
	default:
		return uint(p.inst.DataSize / 8)
	}
}

// read the low w bytes of an argument.
func (p *state) read(arg x86asm.Arg, w uint) (uint64, bool) {
	switch arg := arg.(type) {
	case x86asm.Reg:
		reg, rw, high := regOf(arg)
		if rw == 0 {
			return 0, false
		}
		//
		val := p.k.Regs[reg]
		//
		if high {
			val >>= 8
		}
		//
		return val & widthMask(rw), true
	case x86asm.Mem:
		addr, ok := p.address(arg)
		if !ok {
			return 0, false
		}
		//
		var val uint64
		//
		for i := range uint64(w) {
			_, b, ok := p.k.Read(machine.MemAt(addr + i))
			if !ok {
				return 0, false
			}
			//
			val |= b << (8 * i)
		}
		//
		return val, true
	case x86asm.Imm:
		return uint64(int64(arg)) & widthMask(w), true
	default:
		return 0, false
	}
}

// write the low bytes of a value to an argument, according to its width.
func (p *state) write(arg x86asm.Arg, val uint64) bool {
	switch arg := arg.(type) {
	case x86asm.Reg:
		reg, w, high := regOf(arg)
		old := p.k.Regs[reg]
		//
		switch {
		case w == 0:
			return false
		case high:
			p.k.Regs[reg] = old&^0xff00 | (val&0xff)<<8
		case w >= 4:
			// 32-bit writes zero extend
			p.k.Regs[reg] = val & widthMask(w)
		default:
			p.k.Regs[reg] = old&^widthMask(w) | val&widthMask(w)
		}
		//
		return true
	case x86asm.Mem:
		addr, ok := p.address(arg)
		if !ok {
			return false
		}
		//
		k := p.k.Config
		//
		for i := range uint64(p.inst.MemBytes) {
			if k, ok = k.Write(machine.MemAt(addr+i), val>>(8*i)); !ok {
				return false
			}
		}
		//
		p.k.Config = k
		//
		return true
	default:
		return false
	}
}

// address computes the effective address of a memory argument.
func (p *state) address(mem x86asm.Mem) (uint64, bool) {
	addr := uint64(mem.Disp)
	//
	switch {
	case mem.Segment != 0:
		return 0, false
	case mem.Base == x86asm.RIP:
		addr += p.next
	case mem.Base != 0:
		reg, w, _ := regOf(mem.Base)
		if w != 8 {
			return 0, false
		}
		//
		addr += p.k.Regs[reg]
	}
	//
	if mem.Index != 0 {
		reg, w, _ := regOf(mem.Index)
		if w != 8 {
			return 0, false
		}
		//
		addr += p.k.Regs[reg] * uint64(mem.Scale)
	}
	//
	return addr, true
}

// regOf maps a decoded register onto a machine register, its width in bytes
// and whether it is one of the legacy high byte registers (ah, ch, dh, bh).  A
// width of zero indicates an unmodelled register.
func regOf(r x86asm.Reg) (machine.Reg, uint, bool) {
	switch {
	case x86asm.AL <= r && r <= x86asm.BL:
		return machine.Reg(r - x86asm.AL), 1, false
	case x86asm.AH <= r && r <= x86asm.BH:
		return machine.Reg(r - x86asm.AH), 1, true
	case x86asm.SPB <= r && r <= x86asm.R15B:
		return machine.Reg(r-x86asm.SPB) + machine.RSP, 1, false
	case x86asm.AX <= r && r <= x86asm.R15W:
		return machine.Reg(r - x86asm.AX), 2, false
	case x86asm.EAX <= r && r <= x86asm.R15L:
		return machine.Reg(r - x86asm.EAX), 4, false
	case x86asm.RAX <= r && r <= x86asm.R15:
		return machine.Reg(r - x86asm.RAX), 8, false
	default:
		return 0, 0, false
	}
}

var jccConds = map[x86asm.Op]Cond{
	x86asm.JO: O, x86asm.JNO: NO, x86asm.JB: B, x86asm.JAE: AE,
	x86asm.JE: E, x86asm.JNE: NE, x86asm.JBE: BE, x86asm.JA: A,
	x86asm.JS: S, x86asm.JNS: NS, x86asm.JL: L, x86asm.JGE: GE,
	x86asm.JLE: LE, x86asm.JG: G,
}

func widthMask(w uint) uint64 {
	if w >= 8 {
		return ^uint64(0)
	}
	//
	return uint64(1)<<(8*w) - 1
}

// signedMulFits checks whether the signed product of two w-byte values fits in
// w bytes.
func signedMulFits(a, b uint64, w uint) bool {
	var (
		shift = 64 - 8*w
		sa    = int64(a<<shift) >> shift
		sb    = int64(b<<shift) >> shift
	)
	//
	if sa == 0 || sb == 0 {
		return true
	}
	//
	prod := sa * sb
	// Detect 64-bit overflow
	if prod/sb != sa || (sa == -1 && sb == -1<<63) || (sb == -1 && sa == -1<<63) {
		return false
	}
	//
	return int64(uint64(prod)<<shift)>>shift == prod
}

// packFlags encodes flags in the layout of rflags.
func packFlags(f machine.Flags) uint64 {
	var (
		rflags uint64 = 0x2
		bits          = []uint{machine.CF: 0, machine.ZF: 6, machine.SF: 7, machine.OF: 11}
	)
	//
	for flag, bit := range bits {
		if f.Get(machine.Flag(flag)) {
			rflags |= 1 << bit
		}
	}
	//
	return rflags
}

func errno(code uint64) uint64 {
	return -code
}
