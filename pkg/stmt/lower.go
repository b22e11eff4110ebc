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
package stmt

import (
	"encoding/binary"
	"fmt"

	"github.com/consensys/go-x86hoare/pkg/block"
	"github.com/consensys/go-x86hoare/pkg/machine"
	"github.com/consensys/go-x86hoare/pkg/value"
	"github.com/consensys/go-x86hoare/pkg/x86"
)

// lowering is the state threaded through the lowering of straight-line code.
// Code is always emitted, whilst the outcome is only updated when present.
// The frame accumulates every place written, and the context accumulates
// temporaries allocated on the stack.
type lowering struct {
	ctx   Context
	asm   *x86.Asm
	out   *Outcome
	frame machine.Footprint
}

func newLowering(ctx Context, origin uint64, out *Outcome) *lowering {
	return &lowering{ctx, x86.NewAsm(origin), out, baseFrame()}
}

// baseFrame returns the places disturbed by any lowered code: the instruction
// pointer, the flags and the scratch registers.
func baseFrame() machine.Footprint {
	frame := machine.FlagPlaces().Insert(machine.RipAt())
	//
	for _, r := range SCRATCH {
		frame = frame.Insert(machine.RegAt(r))
	}
	//
	return frame
}

// simulating determines whether an outcome is being computed.
func (p *lowering) simulating() bool {
	return p.out != nil
}

// clobber havocs the scratch registers and, optionally, the flags.
func (p *lowering) clobber(flags bool, regs ...machine.Reg) {
	if !p.simulating() {
		return
	}
	//
	for _, r := range regs {
		*p.out = p.out.Clobber(machine.NewFootprint(machine.RegAt(r)))
	}
	//
	if flags {
		*p.out = p.out.WithFlags(machine.ALL_FLAGS)
	}
}

// temp allocates a temporary block on the stack.
func (p *lowering) temp(size uint64) (block.Block, error) {
	b, ctx, err := p.ctx.Alloc(size)
	//
	if err != nil {
		return nil, err
	} else if p.simulating() && !b.Writable(p.out.Config) {
		return nil, fmt.Errorf("%w: %s not writable", ErrStack, b)
	}
	//
	p.ctx = ctx
	p.frame = p.frame.Union(b.Footprint())
	//
	return b, nil
}

// move copies the contents of one block into another of the same size.  This
// goes through rax in chunks of eight, four, two and one bytes.
func (p *lowering) move(dst block.Block, src block.Block) error {
	if dst.Size() != src.Size() {
		return fmt.Errorf("%w: %s (%d bytes) := %s (%d bytes)", ErrSize, dst, dst.Size(), src, src.Size())
	}
	//
	for _, c := range chunks(dst.Size()) {
		s, d := slice(src, c.offset, c.size), slice(dst, c.offset, c.size)
		//
		if err := p.emitLoad(s, false); err != nil {
			return err
		} else if err := p.emitStore(d); err != nil {
			return err
		}
		//
		if p.simulating() {
			bytes, err := p.out.Read(s)
			if err != nil {
				return err
			}
			//
			if *p.out, err = p.out.Write(d, bytes); err != nil {
				return err
			}
		}
	}
	//
	p.frame = p.frame.Union(dst.Footprint())
	p.clobber(false, machine.RAX)
	//
	return nil
}

// emitLoad emits code to load a block of 1, 2, 4 or 8 bytes into rax,
// optionally zero-extending it.
func (p *lowering) emitLoad(b block.Block, zext bool) error {
	w := uint(b.Size())
	//
	if !isWord(b.Size()) {
		return fmt.Errorf("%w: cannot load %d bytes", ErrSize, w)
	}
	//
	switch b := b.(type) {
	case block.Register:
		p.asm.MovRegReg(machine.RAX, b.Reg)
	case block.Memory:
		if err := p.asm.LoadRax(b.Addr, w); err != nil {
			return err
		}
	case block.Const:
		var word [8]byte
		// Constants are loaded already extended
		copy(word[:], b.Bytes)
		p.asm.MovRaxImm(binary.LittleEndian.Uint64(word[:]))
		//
		return nil
	default:
		return fmt.Errorf("%w: cannot load %s", ErrRead, b)
	}
	//
	if zext {
		return p.asm.ZeroExtendRax(w)
	}
	//
	return nil
}

// emitStore emits code to store the low bytes of rax into a block of 1, 2, 4
// or 8 bytes.
func (p *lowering) emitStore(b block.Block) error {
	w := uint(b.Size())
	//
	if !isWord(b.Size()) {
		return fmt.Errorf("%w: cannot store %d bytes", ErrSize, w)
	}
	//
	switch b := b.(type) {
	case block.Register:
		return p.asm.StoreRaxReg(b.Reg, w)
	case block.Memory:
		return p.asm.StoreRax(b.Addr, w)
	default:
		return fmt.Errorf("%w: cannot store %s", ErrWrite, b)
	}
}

// emitOperands emits code loading the first operand into rax and the second
// into rcx, both zero-extended.
func (p *lowering) emitOperands(a block.Block, b block.Block) error {
	if err := p.emitLoad(b, true); err != nil {
		return err
	}
	//
	p.asm.MovRegReg(machine.RCX, machine.RAX)
	//
	return p.emitLoad(a, true)
}

// readInt reads a typed operand from the outcome being computed.
func readInt[T any](p *lowering, ty value.Int[T], b block.Block) (uint64, error) {
	if b.Size() != ty.Size() {
		return 0, fmt.Errorf("%w: %s has %d bytes, expected %d", ErrSize, b, b.Size(), ty.Size())
	}
	//
	val, footprint, ok := ty.Read(b, p.out.Config)
	//
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrRead, b)
	} else if err := p.out.constrained(footprint); err != nil {
		return 0, err
	}
	//
	return ty.Uint64(val), nil
}

// writeInt writes a typed result into the outcome being computed.
func writeInt[T any](p *lowering, ty value.Int[T], b block.Block, word uint64) error {
	val := ty.FromUint64(word)
	//
	out, err := p.out.Update(b, func(k machine.Config) (machine.Config, bool) {
		return ty.Write(val, b, k)
	})
	//
	if err == nil {
		*p.out = out
	}
	//
	return err
}

// binop lowers "dst := a op b".
func binop[T any](p *lowering, op Op, ty value.Int[T], dst, a, b block.Block) error {
	if err := checkSizes(ty.Size(), dst, a, b); err != nil {
		return err
	} else if err := p.emitOperands(a, b); err != nil {
		return err
	}
	//
	p.asm.Alu(op.alu())
	//
	if err := p.emitStore(dst); err != nil {
		return err
	}
	//
	if p.simulating() {
		va, err1 := readInt(p, ty, a)
		vb, err2 := readInt(p, ty, b)
		//
		if err1 != nil {
			return err1
		} else if err2 != nil {
			return err2
		} else if err := writeInt(p, ty, dst, op.Apply(va, vb)); err != nil {
			return err
		}
	}
	//
	p.frame = p.frame.Union(dst.Footprint())
	p.clobber(true, machine.RAX, machine.RCX)
	//
	return nil
}

// unop lowers "dst := op a".
func unop[T any](p *lowering, op UnOp, ty value.Int[T], dst, a block.Block) error {
	if err := checkSizes(ty.Size(), dst, a); err != nil {
		return err
	} else if err := p.emitLoad(a, true); err != nil {
		return err
	}
	//
	p.asm.Unary(op.unary())
	//
	if err := p.emitStore(dst); err != nil {
		return err
	}
	//
	if p.simulating() {
		va, err := readInt(p, ty, a)
		//
		if err != nil {
			return err
		} else if err := writeInt(p, ty, dst, op.Apply(va)); err != nil {
			return err
		}
	}
	//
	p.frame = p.frame.Union(dst.Footprint())
	// not leaves the flags alone, but neg does not
	p.clobber(op != NOT, machine.RAX)
	//
	return nil
}

// compare lowers the comparison "a rel b", returning the condition which
// holds exactly when the comparison does.
func compare[T any](p *lowering, rel Rel, ty value.Int[T], a, b block.Block) (x86.Cond, error) {
	cond := rel.Cond()
	//
	if err := checkSizes(ty.Size(), a, b); err != nil {
		return cond, err
	} else if err := p.emitOperands(a, b); err != nil {
		return cond, err
	}
	//
	p.asm.Alu(x86.CMP)
	//
	if p.simulating() {
		va, err1 := readInt(p, ty, a)
		vb, err2 := readInt(p, ty, b)
		//
		if err1 != nil {
			return cond, err1
		} else if err2 != nil {
			return cond, err2
		}
		//
		p.clobber(false, machine.RAX, machine.RCX)
		//
		if rel.Apply(va, vb) {
			*p.out = p.out.WithFlags(cond.Flags())
		} else {
			*p.out = p.out.WithFlags(cond.Not().Flags())
		}
	}
	//
	return cond, nil
}

func checkSizes(size uint64, blocks ...block.Block) error {
	if !isWord(size) {
		return fmt.Errorf("%w: %d byte arithmetic", ErrSize, size)
	}
	//
	for _, b := range blocks {
		if b.Size() != size {
			return fmt.Errorf("%w: %s has %d bytes, expected %d", ErrSize, b, b.Size(), size)
		}
	}
	//
	return nil
}

func isWord(size uint64) bool {
	return size == 1 || size == 2 || size == 4 || size == 8
}

type chunk struct {
	offset uint64
	size   uint64
}

// chunks splits a block of n bytes into the fewest word-sized pieces.
func chunks(n uint64) []chunk {
	var (
		pieces []chunk
		offset uint64
	)
	//
	for _, size := range []uint64{8, 4, 2, 1} {
		for n-offset >= size {
			pieces = append(pieces, chunk{offset, size})
			offset += size
		}
	}
	//
	return pieces
}

// slice extracts a contiguous piece of a block.  Registers are never split,
// since they always have word size.
func slice(b block.Block, offset uint64, size uint64) block.Block {
	if _, isReg := b.(block.Register); isReg {
		return b
	} else if sub, ok := block.Sub(b, offset, size); ok {
		return sub
	}
	//
	return b
}
