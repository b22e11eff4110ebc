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
	"math"
	"slices"
	"testing"

	"github.com/consensys/go-x86hoare/pkg/block"
	"github.com/consensys/go-x86hoare/pkg/hoare"
	"github.com/consensys/go-x86hoare/pkg/logic"
	"github.com/consensys/go-x86hoare/pkg/machine"
	"github.com/consensys/go-x86hoare/pkg/value"
	"github.com/consensys/go-x86hoare/pkg/x86"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ORIGIN    = 0x400000
	DATA      = 0x600000
	STACK     = 0x700000
	STACK_LEN = 256
	UNMAPPED  = 0x900000
	MAX_STEPS = 100_000
)

var (
	rdx = block.NewRegister(machine.RDX, 8)
	rbx = block.NewRegister(machine.RBX, 8)
	rsi = block.NewRegister(machine.RSI, 8)
	rdi = block.NewRegister(machine.RDI, 8)
)

func Test_Labels_00(t *testing.T) {
	labels := NewLabels(10, 20, 30)
	//
	for l, expected := range map[Label]uint64{0: 20, 1: 30, FAIL: 10} {
		addr, err := labels.Resolve(l)
		require.NoError(t, err)
		assert.Equal(t, expected, addr)
	}
	//
	_, err := labels.Resolve(2)
	assert.ErrorIs(t, err, ErrLabel)
}

func Test_Labels_01(t *testing.T) {
	labels := NewLabels(10, 30).Cons(5, 20)
	//
	assert.Equal(t, uint64(5), labels.Fallthrough())
	assert.Equal(t, uint64(10), labels.Fail())
	assert.Equal(t, []uint64{5, 10, 20, 30}, labels.Exits())
	assert.True(t, labels.IsExit(20))
	assert.False(t, labels.IsExit(15))
	//
	addr, err := labels.Resolve(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(30), addr)
}

func Test_Context_00(t *testing.T) {
	ctx := newContext()
	//
	b1, ctx, err := ctx.Alloc(3)
	require.NoError(t, err)
	b2, ctx, err := ctx.Alloc(8)
	require.NoError(t, err)
	//
	assert.Equal(t, block.Memory{Addr: STACK, Len: 3}, b1)
	assert.Equal(t, block.Memory{Addr: STACK + STACK_ALIGN, Len: 8}, b2)
	//
	_, _, err = ctx.Alloc(STACK_LEN)
	assert.ErrorIs(t, err, ErrStack)
}

func Test_Context_01(t *testing.T) {
	ctx := newContext()
	//
	_, err := ctx.WithLocal(0, block.NewRegister(machine.RAX, 8))
	assert.ErrorIs(t, err, ErrScratch)
	//
	_, err = ctx.WithLocal(0, block.NewRegister(machine.RCX, 1))
	assert.ErrorIs(t, err, ErrScratch)
	//
	ctx, err = ctx.WithLocal(0, rdx)
	require.NoError(t, err)
	//
	b, err := ctx.Lookup(0)
	require.NoError(t, err)
	assert.Equal(t, block.Block(rdx), b)
	//
	_, err = ctx.Lookup(1)
	assert.ErrorIs(t, err, ErrUnbound)
}

func Test_Stmt_00(t *testing.T) {
	// nop
	s := Nop()
	k := candidate()
	//
	n, err := s.Len(newContext())
	require.NoError(t, err)
	assert.Equal(t, uint64(0), n)
	//
	outcomes := exec(t, s, k)
	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Admits(load(t, s, k)))
	checkProves(t, s, k)
}

func Test_Stmt_01(t *testing.T) {
	// rdx = 42
	s := Let(0, rdx, Mov(Var(0), Lit(value.U64, 42)))
	k := candidate()
	//
	assert.Equal(t, uint64(42), run(t, s, k).Regs[machine.RDX])
	assert.Equal(t, uint64(42), execRdx(t, s, k))
	checkProves(t, s, k)
}

func Test_Stmt_02(t *testing.T) {
	// swap rdx and rbx through a stack local
	s := swap()
	k := candidate()
	k.Regs[machine.RDX] = 1
	k.Regs[machine.RBX] = 2
	//
	final := run(t, s, k)
	assert.Equal(t, uint64(2), final.Regs[machine.RDX])
	assert.Equal(t, uint64(1), final.Regs[machine.RBX])
	checkProves(t, s, k)
}

func Test_Stmt_03(t *testing.T) {
	var (
		s1 = Let(0, rdx, Mov(Var(0), Lit(value.U64, 1)))
		s2 = Let(0, rbx, Mov(Var(0), Lit(value.U64, 2)))
		k  = candidate()
	)
	// if true behaves as the then branch, if false as the else branch.
	checkEquiv(t, s1, If(True(), s1, s2), k)
	checkEquiv(t, s2, If(False(), s1, s2), k)
	assert.Equal(t, uint64(1), run(t, If(True(), s1, s2), k).Regs[machine.RDX])
	assert.Equal(t, uint64(2), run(t, If(False(), s1, s2), k).Regs[machine.RBX])
	checkProves(t, If(True(), s1, s2), k)
	checkProves(t, If(False(), s1, s2), k)
	// The frame covers both branches
	s := If(True(), s1, s2)
	frame, err := s.Frame(outermost(t, s))
	require.NoError(t, err)
	assert.True(t, frame.Contains(machine.RegAt(machine.RDX)))
	assert.True(t, frame.Contains(machine.RegAt(machine.RBX)))
}

func Test_Stmt_04(t *testing.T) {
	// while 0 < 0 { rdx += 1 }
	body := Let(0, rdx, Incr(value.U64, Var(0)))
	s := While(Lt(value.U64, Lit(value.U64, 0), Lit(value.U64, 0)), body)
	k := candidate()
	k.Regs[machine.RDX] = 7
	//
	outcomes := exec(t, s, k)
	require.Len(t, outcomes, 1)
	assert.Equal(t, uint64(7), outcomes[0].Config.Regs[machine.RDX])
	assert.Equal(t, uint64(7), run(t, s, k).Regs[machine.RDX])
	checkEquiv(t, Nop(), s, k)
	checkProves(t, s, k)
}

func Test_Stmt_16(t *testing.T) {
	// Outcomes differing only in scratch places
	var (
		k  = candidate()
		o1 = Exact(k)
		o2 = Exact(k).Clobber(machine.NewFootprint(machine.RegAt(machine.RAX))).At(0x10)
		o3 = Exact(k).Clobber(machine.NewFootprint(machine.RegAt(machine.RDX)))
	)
	//
	o2.Config.Regs[machine.RCX] = 9
	o2 = o2.WithFlags(machine.ALL_FLAGS)
	//
	assert.False(t, o1.Equal(o2))
	assert.True(t, o1.EqualModulo(o2, baseFrame()))
	assert.False(t, o1.EqualModulo(o2, machine.NewFootprint(machine.RegAt(machine.RAX), machine.RipAt())))
	assert.False(t, o1.EqualModulo(o3, baseFrame()))
}

func Test_Stmt_05(t *testing.T) {
	// rdx = 0 + 1 + 2
	s := sum(3)
	k := candidate()
	//
	assert.Equal(t, uint64(3), execRdx(t, s, k))
	assert.Equal(t, uint64(3), run(t, s, k).Regs[machine.RDX])
	checkProves(t, s, k)
}

func Test_Stmt_06(t *testing.T) {
	// rdx = max(rsi, rdi)
	s := maxOf()
	//
	for _, pair := range [][2]uint64{{0, 0}, {1, 2}, {2, 1}, {math.MaxUint64, 5}} {
		k := candidate()
		k.Regs[machine.RSI] = pair[0]
		k.Regs[machine.RDI] = pair[1]
		//
		expected := pair[0]
		if pair[1] > expected {
			expected = pair[1]
		}
		//
		assert.Equal(t, expected, execRdx(t, s, k))
		assert.Equal(t, expected, run(t, s, k).Regs[machine.RDX])
		checkProves(t, s, k)
	}
}

func Test_Stmt_07(t *testing.T) {
	// block { rdx = 1; goto 0; rdx = 2 }
	s := Let(0, rdx, Block(Seq(
		Mov(Var(0), Lit(value.U64, 1)),
		Jump(0),
		Mov(Var(0), Lit(value.U64, 2)))))
	k := candidate()
	//
	assert.Equal(t, uint64(1), execRdx(t, s, k))
	assert.Equal(t, uint64(1), run(t, s, k).Regs[machine.RDX])
	checkProves(t, s, k)
}

func Test_Stmt_08(t *testing.T) {
	// rdx = rdx * 3, via an intermediate
	s := Let(0, rdx, Init(1, Binop(MUL, value.U64, Var(0), Lit(value.U64, 3)), Mov(Var(0), Var(1))))
	k := candidate()
	k.Regs[machine.RDX] = 5
	//
	assert.Equal(t, uint64(15), execRdx(t, s, k))
	assert.Equal(t, uint64(15), run(t, s, k).Regs[machine.RDX])
	checkProves(t, s, k)
}

func Test_Stmt_09(t *testing.T) {
	// dl = -dl, leaving the rest of rdx untouched
	s := Let(0, block.NewRegister(machine.RDX, 1), AsnUnop(NEG, value.U8, Var(0)))
	k := candidate()
	k.Regs[machine.RDX] = 0x1205
	//
	assert.Equal(t, uint64(0x12FB), execRdx(t, s, k))
	assert.Equal(t, uint64(0x12FB), run(t, s, k).Regs[machine.RDX])
	checkProves(t, s, k)
}

func Test_Stmt_10(t *testing.T) {
	// 32-bit counter in memory
	cell := block.Memory{Addr: DATA, Len: 4}
	s := Let(0, cell, Seq(Mov(Var(0), Lit(value.U32, 0xFFFFFFFF)), Incr(value.U32, Var(0))))
	k := candidate()
	//
	outcomes := exec(t, s, k)
	require.Len(t, outcomes, 1)
	//
	bytes, ok := cell.Read(outcomes[0].Config)
	require.True(t, ok)
	assert.Equal(t, []byte{0, 0, 0, 0}, bytes)
	checkProves(t, s, k)
}

func Test_Stmt_11(t *testing.T) {
	// rdx = ~rdx, binding the result of an expression
	s := Let(0, rdx, Bind(Unop(NOT, value.U64, Var(0)), func(b block.Block) Stmt {
		return Let(1, b, Mov(Var(0), Var(1)))
	}))
	k := candidate()
	k.Regs[machine.RDX] = 0xF0
	//
	assert.Equal(t, ^uint64(0xF0), execRdx(t, s, k))
	assert.Equal(t, ^uint64(0xF0), run(t, s, k).Regs[machine.RDX])
	checkProves(t, s, k)
}

func Test_Stmt_12(t *testing.T) {
	// block { rdx = 1; if rsi rel rdi goto 0; rdx = 0 }
	jumpIf := func(cond BoolExpr) Stmt {
		return Let(0, rdx, Let(1, rsi, Let(2, rdi, Block(Seq(
			Mov(Var(0), Lit(value.U64, 1)),
			JumpIf(cond, 0),
			Mov(Var(0), Lit(value.U64, 0)))))))
	}
	//
	for _, rel := range []Rel{LT, LE, EQ, NE, GT, GE} {
		for _, pair := range [][2]uint64{{1, 2}, {2, 2}, {3, 2}} {
			k := candidate()
			k.Regs[machine.RSI] = pair[0]
			k.Regs[machine.RDI] = pair[1]
			//
			for _, negate := range []bool{false, true} {
				var (
					cond     BoolExpr = Compare(rel, value.U64, Var(1), Var(2))
					expected uint64
				)
				//
				if negate {
					cond = NotB(cond)
				}
				//
				if rel.Apply(pair[0], pair[1]) != negate {
					expected = 1
				}
				//
				s := jumpIf(cond)
				assert.Equal(t, expected, execRdx(t, s, k), "%s", s)
				assert.Equal(t, expected, run(t, s, k).Regs[machine.RDX], "%s", s)
				checkProves(t, s, k)
			}
		}
	}
}

func Test_Stmt_13(t *testing.T) {
	// block { rdx -= rdx; je 0; rdx = 9 }
	s := Let(0, rdx, Block(Seq(
		AsnBinop(SUB, value.U64, Var(0), Var(0)),
		JumpCC(x86.E, 0),
		Mov(Var(0), Lit(value.U64, 9)))))
	k := candidate()
	k.Regs[machine.RDX] = 5
	// The flags after arithmetic are unknown, so both paths are possible
	assert.Len(t, exec(t, s, k), 2)
	assert.Equal(t, uint64(0), run(t, s, k).Regs[machine.RDX])
	checkProves(t, s, k)
}

func Test_Stmt_14(t *testing.T) {
	// rdx = 1; fail; rdx = 2
	s := Let(0, rdx, Seq(
		Mov(Var(0), Lit(value.U64, 1)),
		Fail(),
		Mov(Var(0), Lit(value.U64, 2))))
	k := candidate()
	//
	assert.Equal(t, uint64(1), execRdx(t, s, k))
	assert.Equal(t, uint64(1), run(t, s, k).Regs[machine.RDX])
	checkProves(t, s, k)
}

func Test_Stmt_15(t *testing.T) {
	// rdx + 1, evaluated for its effect only
	s := Let(0, rdx, Eval(Binop(ADD, value.U64, Var(0), Lit(value.U64, 1))))
	k := candidate()
	k.Regs[machine.RDX] = 4
	//
	assert.Equal(t, uint64(4), execRdx(t, s, k))
	assert.Equal(t, uint64(4), run(t, s, k).Regs[machine.RDX])
	checkProves(t, s, k)
	// The temporary is part of the frame
	frame, err := s.Frame(outermost(t, s))
	require.NoError(t, err)
	assert.True(t, frame.Contains(machine.MemAt(STACK)))
	assert.False(t, frame.Contains(machine.RegAt(machine.RDX)))
}

func Test_Stmt_17(t *testing.T) {
	// assert rsi < 10; rdx = 1
	s := Let(0, rdx, Let(1, rsi, Seq(
		Assert(Lt(value.U64, Var(1), Lit(value.U64, 10))),
		Mov(Var(0), Lit(value.U64, 1)))))
	//
	for _, pair := range [][2]uint64{{3, 1}, {10, 0}, {30, 0}} {
		k := candidate()
		k.Regs[machine.RSI] = pair[0]
		//
		assert.Equal(t, pair[1], execRdx(t, s, k))
		assert.Equal(t, pair[1], run(t, s, k).Regs[machine.RDX])
		checkProves(t, s, k)
	}
	//
	checkEquiv(t, Nop(), Assert(True()), candidate())
}

func Test_Stmt_18(t *testing.T) {
	// block { rdx = 1; goto 0; unreachable }
	s1 := Let(0, rdx, Block(Seq(
		Mov(Var(0), Lit(value.U64, 1)),
		Jump(0),
		Unreachable())))
	s2 := Let(0, rdx, If(True(), Mov(Var(0), Lit(value.U64, 1)), Unreachable()))
	k := candidate()
	//
	for _, s := range []Stmt{s1, s2} {
		assert.Equal(t, uint64(1), execRdx(t, s, k))
		assert.Equal(t, uint64(1), run(t, s, k).Regs[machine.RDX])
		checkProves(t, s, k)
	}
	// Reaching it is an error
	s3 := Let(0, rdx, Seq(Mov(Var(0), Lit(value.U64, 1)), Unreachable()))
	_, err := s3.Exec(outermost(t, s3), ORIGIN, Exact(k))
	assert.ErrorIs(t, err, ErrReachable)
}

func Test_Stmt_19(t *testing.T) {
	// dl = 0xab; data[2] = 0xbeef (as u16)
	data := block.Memory{Addr: DATA, Len: 8}
	s := Let(0, rdx, Let(1, data, Seq(
		Mov(Proj(Var(0), 0, 1), Lit(value.U8, 0xAB)),
		Mov(Index(Var(1), value.U16, 2), Lit(value.U16, 0xBEEF)))))
	k := candidate()
	k.Regs[machine.RDX] = 0x1200
	//
	outcomes := exec(t, s, k)
	require.Len(t, outcomes, 1)
	assert.Equal(t, uint64(0x12AB), outcomes[0].Config.Regs[machine.RDX])
	//
	bytes, ok := data.Read(outcomes[0].Config)
	require.True(t, ok)
	assert.Equal(t, []byte{0, 0, 0, 0, 0xEF, 0xBE, 0, 0}, bytes)
	assert.Equal(t, uint64(0x12AB), run(t, s, k).Regs[machine.RDX])
	checkProves(t, s, k)
	// Out of bounds
	checkLenError(t, Let(0, data, Mov(Proj(Var(0), 6, 4), Lit(value.U32, 1))), ErrSize)
	checkLenError(t, Let(0, data, Mov(Index(Var(0), value.U64, 1), Lit(value.U64, 1))), ErrSize)
	checkLenError(t, Let(0, rdx, Mov(Proj(Var(0), 0, 4), Lit(value.U32, 1))), ErrSize)
}

func Test_Stmt_20(t *testing.T) {
	// block { goto 0 (rdx = 5, rbx = rdx); rdx = 9 }
	s := Let(0, rdx, Let(1, rbx, Block(Seq(
		Goto(0, Arg{Var(0), Lit(value.U64, 5)}, Arg{Var(1), Var(0)}),
		Mov(Var(0), Lit(value.U64, 9))))))
	k := candidate()
	//
	assert.Equal(t, uint64(5), execRdx(t, s, k))
	//
	final := run(t, s, k)
	assert.Equal(t, uint64(5), final.Regs[machine.RDX])
	assert.Equal(t, uint64(5), final.Regs[machine.RBX])
	checkProves(t, s, k)
	checkEquiv(t, Jump(FAIL), Goto(FAIL), k)
}

func Test_Frame_00(t *testing.T) {
	for _, s := range []Stmt{sum(3), swap(), maxOf()} {
		k := candidate()
		k.Regs[machine.RDX] = 3
		k.Regs[machine.RSI] = 9
		//
		ctx := outermost(t, s)
		frame, err := s.Frame(ctx)
		require.NoError(t, err)
		//
		start := load(t, s, k)
		final := run(t, s, k)
		//
		place, unstable := machine.UnstableOutside(start, final, frame)
		assert.False(t, unstable, "%s disturbed outside frame of %s", place, s)
	}
}

func Test_Quant_00(t *testing.T) {
	k := candidate()
	s := Ex([]uint64{DATA, UNMAPPED}, stable)
	//
	outcomes, err := s.Exec(outermost(t, s), ORIGIN, Exact(k))
	require.NoError(t, err)
	assert.Len(t, outcomes, 1)
	//
	_, err = All([]uint64{DATA, UNMAPPED}, stable).Exec(outermost(t, s), ORIGIN, Exact(k))
	assert.ErrorIs(t, err, ErrRead)
	//
	_, err = Ex([]uint64{UNMAPPED}, stable).Exec(outermost(t, s), ORIGIN, Exact(k))
	assert.ErrorIs(t, err, ErrRead)
	//
	_, err = All([]uint64{DATA, DATA + 1}, stable).Exec(outermost(t, s), ORIGIN, Exact(k))
	assert.NoError(t, err)
}

func Test_Quant_01(t *testing.T) {
	s := Ex([]uint64{1, 2}, func(v uint64) Stmt {
		return Let(0, rdx, Mov(Var(0), Lit(value.U64, v)))
	})
	//
	_, err := s.Assemble(newContext(), ORIGIN)
	assert.ErrorIs(t, err, ErrEncoding)
	//
	_, err = Ex([]uint64{}, stable).Len(newContext())
	assert.ErrorIs(t, err, ErrEncoding)
}

func Test_Quant_02(t *testing.T) {
	// Members writing to an unbound local cannot be lowered
	member := func(id LocalId) Stmt {
		return Let(0, rdx, Mov(Var(id), Lit(value.U64, 1)))
	}
	ex := Ex([]LocalId{7, 0, 8}, member)
	all := All([]LocalId{0, 7}, member)
	k := candidate()
	//
	assert.Equal(t, uint64(1), execRdx(t, ex, k))
	assert.Equal(t, uint64(1), run(t, ex, k).Regs[machine.RDX])
	checkProves(t, ex, k)
	//
	frame, err := ex.Frame(outermost(t, ex))
	require.NoError(t, err)
	assert.True(t, frame.Contains(machine.RegAt(machine.RDX)))
	//
	_, err = all.Assemble(newContext(), ORIGIN)
	assert.ErrorIs(t, err, ErrUnbound)
	_, err = all.Frame(newContext())
	assert.ErrorIs(t, err, ErrUnbound)
	// No member can be lowered
	checkLenError(t, Ex([]LocalId{7, 8}, member), ErrUnbound)
	_, err = Ex([]LocalId{7, 8}, member).Assemble(newContext(), ORIGIN)
	assert.ErrorIs(t, err, ErrUnbound)
}

func Test_Check_00(t *testing.T) {
	s := Let(0, rdx, Mov(Var(0), Lit(value.U64, 1)))
	ctx := outermost(t, s)
	stuck := hoare.StepperFunc(func(hoare.KConfig) hoare.Result { return hoare.Stuck() })
	//
	report, err := Check(s, ctx, ORIGIN, logic.True(), []machine.Config{candidate()}, stuck, 100)
	require.NoError(t, err)
	assert.Equal(t, hoare.REFUTED, report.Verdict)
}

func Test_Check_01(t *testing.T) {
	s := maxOf()
	ctx := outermost(t, s)
	candidates := []machine.Config{candidate(), candidate()}
	candidates[1].Regs[machine.RSI] = 1
	// Only the second candidate satisfies the precondition
	pre := logic.PlaceIs(machine.RegAt(machine.RSI), 1)
	//
	all, err := Check(s, ctx, ORIGIN, logic.True(), candidates, x86.Stepper{}, MAX_STEPS)
	require.NoError(t, err)
	one, err := Check(s, ctx, ORIGIN, pre, candidates, x86.Stepper{}, MAX_STEPS)
	require.NoError(t, err)
	//
	assert.True(t, all.Proved())
	assert.True(t, one.Proved())
	assert.Less(t, one.Steps, all.Steps)
}

// ============================================================================
// Errors
// ============================================================================

func Test_Invalid_00(t *testing.T) {
	// size mismatch
	checkLenError(t, Let(0, rdx, Mov(Var(0), Const(1, 2))), ErrSize)
	checkLenError(t, Let(0, rdx, AsnBinop(ADD, value.U32, Var(0), Lit(value.U32, 1))), ErrSize)
}

func Test_Invalid_01(t *testing.T) {
	checkLenError(t, Mov(Var(7), Lit(value.U64, 1)), ErrUnbound)
	checkLenError(t, Let(0, block.NewRegister(machine.RAX, 8), Nop()), ErrScratch)
	checkLenError(t, Decl(0, 2*STACK_LEN, Nop()), ErrStack)
	checkLenError(t, Mov(Lit(value.U64, 1), Lit(value.U64, 2)), ErrWrite)
}

func Test_Invalid_02(t *testing.T) {
	s := Jump(3)
	//
	_, err := s.Assemble(outermost(t, s), ORIGIN)
	assert.ErrorIs(t, err, ErrLabel)
}

func Test_Invalid_03(t *testing.T) {
	// nop does not reach a fallthrough one byte further on
	ctx := newContext().WithLabels(NewLabels(ORIGIN + 1))
	//
	_, err := Nop().Exec(ctx, ORIGIN, Exact(candidate()))
	assert.ErrorIs(t, err, ErrFallthrough)
}

func Test_Invalid_04(t *testing.T) {
	// loop { }
	s := Loop(Nop())
	ctx := outermost(t, s)
	ctx.Fuel = 8
	//
	_, err := s.Exec(ctx, ORIGIN, Exact(candidate()))
	assert.ErrorIs(t, err, ErrFuel)
}

func Test_Invalid_05(t *testing.T) {
	// reading a declared local before it is written
	s := Let(0, rdx, Decl(1, 8, Mov(Var(0), Var(1))))
	//
	_, err := s.Exec(outermost(t, s), ORIGIN, Exact(candidate()))
	assert.ErrorIs(t, err, ErrUnconstrained)
}

func Test_Invalid_06(t *testing.T) {
	// declaring a local with no stack mapped
	s := Decl(0, 8, Nop())
	//
	_, err := s.Exec(outermost(t, s), ORIGIN, Exact(machine.NewConfig()))
	assert.ErrorIs(t, err, ErrStack)
}

func Test_Invalid_07(t *testing.T) {
	// parity and out-of-range conditions
	for _, cond := range []x86.Cond{0xA, 0xB, 0x12, 0xFF} {
		s := Let(0, rdx, Block(Seq(JumpCC(cond, 0), Mov(Var(0), Lit(value.U64, 1)))))
		checkLenError(t, s, ErrCondition)
		//
		_, err := JumpCC(cond, FAIL).Exec(newContext(), ORIGIN, Exact(candidate()))
		assert.ErrorIs(t, err, ErrCondition)
		_, err = JumpCC(cond, FAIL).Assemble(newContext(), ORIGIN)
		assert.ErrorIs(t, err, ErrCondition)
	}
}

// ============================================================================
// Test Helpers
// ============================================================================

func swap() Stmt {
	return Let(0, rdx, Let(1, rbx, Decl(2, 8, Seq(
		Mov(Var(2), Var(0)),
		Mov(Var(0), Var(1)),
		Mov(Var(1), Var(2))))))
}

func sum(n uint64) Stmt {
	const OUT, SUM, I = 0, 1, 2
	//
	return Let(OUT, rdx, Decl(SUM, 8, Seq(
		Mov(Var(SUM), Lit(value.U64, 0)),
		ForSeq(I, value.U64, Lit(value.U64, n), AsnBinop(ADD, value.U64, Var(SUM), Var(I))),
		Mov(Var(OUT), Var(SUM)))))
}

func maxOf() Stmt {
	const OUT, A, B = 0, 1, 2
	//
	return Let(OUT, rdx, Let(A, rsi, Let(B, rdi,
		If(Lt(value.U64, Var(A), Var(B)), Mov(Var(OUT), Var(B)), Mov(Var(OUT), Var(A))))))
}

func stable(addr uint64) Stmt {
	return Stabilize(machine.NewFootprint(machine.MemAt(addr)), Nop())
}

func newContext() Context {
	return NewContext(NewLabels(0), block.Memory{Addr: STACK, Len: STACK_LEN})
}

// candidate constructs a configuration with the stack and data regions mapped.
func candidate() machine.Config {
	k := machine.NewConfig()
	k.Mem = k.Mem.Map(STACK, make([]byte, STACK_LEN), machine.PERM_RW)
	k.Mem = k.Mem.Map(DATA, make([]byte, 16), machine.PERM_RW)
	//
	return k
}

func outermost(t *testing.T, s Stmt) Context {
	t.Helper()
	//
	ctx, err := Outermost(s, newContext(), ORIGIN)
	require.NoError(t, err)
	//
	return ctx
}

// load places the code of a statement into a configuration, ready to run.
func load(t *testing.T, s Stmt, k machine.Config) machine.Config {
	t.Helper()
	//
	code, err := s.Assemble(outermost(t, s), ORIGIN)
	require.NoError(t, err)
	//
	k.Mem = k.Mem.Map(ORIGIN, code, machine.PERM_RX)
	k.Rip = ORIGIN
	//
	return k
}

func exec(t *testing.T, s Stmt, k machine.Config) []Outcome {
	t.Helper()
	//
	outcomes, err := s.Exec(outermost(t, s), ORIGIN, Exact(load(t, s, k)))
	require.NoError(t, err)
	//
	return outcomes
}

func execRdx(t *testing.T, s Stmt, k machine.Config) uint64 {
	t.Helper()
	//
	outcomes := exec(t, s, k)
	require.Len(t, outcomes, 1)
	//
	return outcomes[0].Config.Regs[machine.RDX]
}

// run steps the code of a statement until it reaches the fallthrough.
func run(t *testing.T, s Stmt, k machine.Config) machine.Config {
	t.Helper()
	//
	ctx := outermost(t, s)
	kc := hoare.NewKConfig(load(t, s, k))
	//
	for i := 0; kc.Rip != ctx.Labels.Fallthrough(); i++ {
		require.Less(t, i, MAX_STEPS, "%s does not terminate", s)
		//
		r := x86.Stepper{}.Step(kc)
		require.Len(t, r.Next, 1, "stuck at 0x%x", kc.Rip)
		kc = r.Next[0]
	}
	//
	return kc.Config
}

// checkEquiv checks that two statements have the same outcomes and final
// configuration at every place outside the scratch frame and their code.  The
// frame of the second must cover that of the first.
func checkEquiv(t *testing.T, s1 Stmt, s2 Stmt, k machine.Config) {
	t.Helper()
	//
	var (
		n1, err1 = s1.Len(newContext())
		n2, err2 = s2.Len(newContext())
		ignore   = baseFrame().Union(machine.MemRange(ORIGIN, max(n1, n2)))
		left     = exec(t, s1, k)
		right    = exec(t, s2, k)
	)
	//
	require.NoError(t, err1)
	require.NoError(t, err2)
	require.Len(t, right, len(left))
	//
	for _, o := range left {
		found := slices.ContainsFunc(right, func(q Outcome) bool { return o.EqualModulo(q, ignore) })
		assert.True(t, found, "%s has no counterpart in %s", o, s2)
	}
	//
	place, bad := machine.UnstableOutside(run(t, s1, k), run(t, s2, k), ignore)
	assert.False(t, bad, "%s and %s differ at %s", s1, s2, place)
	//
	f1, err := s1.Frame(outermost(t, s1))
	require.NoError(t, err)
	f2, err := s2.Frame(outermost(t, s2))
	require.NoError(t, err)
	assert.True(t, f1.Subset(f2), "frame %s not within %s", f1, f2)
}

func checkProves(t *testing.T, s Stmt, k machine.Config) {
	t.Helper()
	//
	report, err := Check(s, outermost(t, s), ORIGIN, logic.True(), []machine.Config{k}, x86.Stepper{}, MAX_STEPS)
	require.NoError(t, err)
	assert.True(t, report.Proved(), report.String())
}

func checkLenError(t *testing.T, s Stmt, expected error) {
	t.Helper()
	//
	_, err := s.Len(newContext())
	assert.ErrorIs(t, err, expected, "%s", s)
}
