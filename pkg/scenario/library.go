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
package scenario

import (
	"bytes"

	"github.com/consensys/go-x86hoare/pkg/block"
	"github.com/consensys/go-x86hoare/pkg/logic"
	"github.com/consensys/go-x86hoare/pkg/machine"
	"github.com/consensys/go-x86hoare/pkg/stmt"
	"github.com/consensys/go-x86hoare/pkg/value"
)

var (
	rdx = block.NewRegister(machine.RDX, 8)
	rbx = block.NewRegister(machine.RBX, 8)
	rsi = block.NewRegister(machine.RSI, 8)
	rdi = block.NewRegister(machine.RDI, 8)
	dl  = block.NewRegister(machine.RDX, 1)
)

func library() []*Scenario {
	return []*Scenario{
		movConst(), swap(), sum(), ifTrue(), ifFalse(), whileFalse(), maximum(), countdown(), negByte(),
		incrWord(), incrBox(), copyBytes(), triple(), stabilize(),
	}
}

func movConst() *Scenario {
	return &Scenario{
		Name:       "mov-const",
		Summary:    "rdx = 42",
		Stmt:       stmt.Let(0, rdx, stmt.Mov(stmt.Var(0), stmt.Lit(value.U64, 42))),
		Pre:        logic.True(),
		Post:       regAfter(machine.RDX, func(machine.Config) uint64 { return 42 }),
		Candidates: []machine.Config{candidate()},
	}
}

func swap() *Scenario {
	const A, B, TMP = 0, 1, 2
	//
	body := stmt.Let(A, rdx, stmt.Let(B, rbx, stmt.Decl(TMP, 8, stmt.Seq(
		stmt.Mov(stmt.Var(TMP), stmt.Var(A)),
		stmt.Mov(stmt.Var(A), stmt.Var(B)),
		stmt.Mov(stmt.Var(B), stmt.Var(TMP))))))
	//
	return &Scenario{
		Name:    "swap",
		Summary: "exchange rdx and rbx through a stack local",
		Stmt:    body,
		Pre:     logic.True(),
		Post: logic.Relation(func(k1, k2 machine.Config) bool {
			return k2.Regs[machine.RDX] == k1.Regs[machine.RBX] && k2.Regs[machine.RBX] == k1.Regs[machine.RDX]
		}),
		Candidates: grid(machine.RDX, machine.RBX, 0, 1, 0xdeadbeef),
	}
}

func sum() *Scenario {
	const OUT, SUM, I = 0, 1, 2
	//
	body := stmt.Let(OUT, rdx, stmt.Decl(SUM, 8, stmt.Seq(
		stmt.Mov(stmt.Var(SUM), stmt.Lit(value.U64, 0)),
		stmt.ForSeq(I, value.U64, stmt.Lit(value.U64, 3),
			stmt.AsnBinop(stmt.ADD, value.U64, stmt.Var(SUM), stmt.Var(I))),
		stmt.Mov(stmt.Var(OUT), stmt.Var(SUM)))))
	//
	return &Scenario{
		Name:       "sum3",
		Summary:    "rdx = 0 + 1 + 2, using a counted loop",
		Stmt:       body,
		Pre:        logic.True(),
		Post:       regAfter(machine.RDX, func(machine.Config) uint64 { return 3 }),
		Candidates: []machine.Config{candidate(), candidate(reg(machine.RDX, 99))},
	}
}

func ifTrue() *Scenario {
	return &Scenario{
		Name:       "if-true",
		Summary:    "if true { rdx = 1 } else { rdx = 2 }",
		Stmt:       stmt.Let(0, rdx, stmt.If(stmt.True(), assign(0, 1), assign(0, 2))),
		Pre:        logic.True(),
		Post:       regAfter(machine.RDX, func(machine.Config) uint64 { return 1 }),
		Candidates: []machine.Config{candidate()},
	}
}

func ifFalse() *Scenario {
	return &Scenario{
		Name:       "if-false",
		Summary:    "if false { rdx = 1 } else { rdx = 2 }",
		Stmt:       stmt.Let(0, rdx, stmt.If(stmt.False(), assign(0, 1), assign(0, 2))),
		Pre:        logic.True(),
		Post:       regAfter(machine.RDX, func(machine.Config) uint64 { return 2 }),
		Candidates: []machine.Config{candidate()},
	}
}

func whileFalse() *Scenario {
	cond := stmt.Lt(value.U64, stmt.Lit(value.U64, 0), stmt.Lit(value.U64, 0))
	//
	return &Scenario{
		Name:       "while-false",
		Summary:    "while 0 < 0 { rdx += 1 }",
		Stmt:       stmt.Let(0, rdx, stmt.While(cond, stmt.Incr(value.U64, stmt.Var(0)))),
		Pre:        logic.True(),
		Post:       regAfter(machine.RDX, func(k machine.Config) uint64 { return k.Regs[machine.RDX] }),
		Candidates: []machine.Config{candidate(reg(machine.RDX, 7))},
	}
}

func maximum() *Scenario {
	const OUT, A, B = 0, 1, 2
	//
	cond := stmt.Lt(value.U64, stmt.Var(A), stmt.Var(B))
	body := stmt.Let(OUT, rdx, stmt.Let(A, rsi, stmt.Let(B, rdi,
		stmt.If(cond, stmt.Mov(stmt.Var(OUT), stmt.Var(B)), stmt.Mov(stmt.Var(OUT), stmt.Var(A))))))
	//
	return &Scenario{
		Name:    "max",
		Summary: "rdx = max(rsi, rdi)",
		Stmt:    body,
		Pre:     logic.True(),
		Post: regAfter(machine.RDX, func(k machine.Config) uint64 {
			return max(k.Regs[machine.RSI], k.Regs[machine.RDI])
		}),
		Candidates: grid(machine.RSI, machine.RDI, 0, 1, 1<<63, 0xffffffffffffffff),
	}
}

func countdown() *Scenario {
	const ACC, N = 0, 1
	//
	body := stmt.Let(ACC, rdx, stmt.Let(N, rdi,
		stmt.While(stmt.Lt(value.U64, stmt.Lit(value.U64, 0), stmt.Var(N)), stmt.Seq(
			stmt.AsnBinop(stmt.SUB, value.U64, stmt.Var(N), stmt.Lit(value.U64, 1)),
			stmt.AsnBinop(stmt.ADD, value.U64, stmt.Var(ACC), stmt.Lit(value.U64, 2))))))
	//
	return &Scenario{
		Name:    "countdown",
		Summary: "while 0 < rdi { rdi -= 1; rdx += 2 }",
		Stmt:    body,
		Pre:     logic.True(),
		Post: logic.Relation(func(k1, k2 machine.Config) bool {
			expected := k1.Regs[machine.RDX] + 2*k1.Regs[machine.RDI]
			return k2.Regs[machine.RDI] == 0 && k2.Regs[machine.RDX] == expected
		}),
		Candidates: grid(machine.RDX, machine.RDI, 0, 1, 5, 7),
	}
}

func negByte() *Scenario {
	return &Scenario{
		Name:    "neg-byte",
		Summary: "dl = -dl, preserving the rest of rdx",
		Stmt:    stmt.Let(0, dl, stmt.AsnUnop(stmt.NEG, value.U8, stmt.Var(0))),
		Pre:     logic.True(),
		Post: regAfter(machine.RDX, func(k machine.Config) uint64 {
			rdx := k.Regs[machine.RDX]
			return rdx&^0xff | uint64(uint8(-rdx))
		}),
		Candidates: []machine.Config{
			candidate(), candidate(reg(machine.RDX, 0x1205)), candidate(reg(machine.RDX, 0xff80)),
		},
	}
}

func incrWord() *Scenario {
	cell := block.Memory{Addr: DATA, Len: 4}
	//
	return &Scenario{
		Name:    "incr-u32",
		Summary: "[data]:u32 += 1, wrapping",
		Stmt:    stmt.Let(0, cell, stmt.Incr(value.U32, stmt.Var(0))),
		Pre:     logic.True(),
		Post: logic.Relation(func(k1, k2 machine.Config) bool {
			before, _, ok1 := value.U32.Read(cell, k1)
			after, _, ok2 := value.U32.Read(cell, k2)
			//
			return ok1 && ok2 && after == before+1
		}),
		Candidates: []machine.Config{
			candidate(), candidate(mem(DATA, 0xff, 0xff, 0xff, 0xff)), candidate(mem(DATA, 0x34, 0x12)),
		},
	}
}

func incrBox() *Scenario {
	var (
		cell = block.Memory{Addr: DATA, Len: 8}
		box  = value.NewBox[uint64](value.U64)
	)
	//
	return &Scenario{
		Name:    "incr-box",
		Summary: "*rsi += 1, where rsi points at the data region",
		Stmt:    stmt.Let(0, cell, stmt.Incr(value.U64, stmt.Var(0))),
		Pre:     logic.PlaceIs(machine.RegAt(machine.RSI), DATA),
		Post: logic.Relation(func(k1, k2 machine.Config) bool {
			before, _, ok1 := box.Read(rsi, k1)
			after, _, ok2 := box.Read(rsi, k2)
			//
			return ok1 && ok2 && after == before+1
		}),
		Candidates: []machine.Config{
			candidate(reg(machine.RSI, DATA), mem(DATA, 41)),
			// excluded by the precondition
			candidate(reg(machine.RSI, 0)),
		},
	}
}

func copyBytes() *Scenario {
	var (
		src = block.Memory{Addr: DATA, Len: 11}
		dst = block.Memory{Addr: DATA + 16, Len: 11}
		ty  = value.Bytes(11)
	)
	//
	return &Scenario{
		Name:    "copy11",
		Summary: "copy eleven bytes between memory blocks",
		Stmt:    stmt.Let(0, src, stmt.Let(1, dst, stmt.Mov(stmt.Var(1), stmt.Var(0)))),
		Pre:     logic.True(),
		Post: logic.Relation(func(k1, k2 machine.Config) bool {
			before, _, ok1 := ty.Read(src, k1)
			after, _, ok2 := ty.Read(dst, k2)
			//
			return ok1 && ok2 && bytes.Equal(before, after)
		}),
		Candidates: []machine.Config{
			candidate(), candidate(mem(DATA, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11)),
		},
	}
}

func triple() *Scenario {
	body := stmt.Let(0, rdx,
		stmt.Init(1, stmt.Binop(stmt.MUL, value.U64, stmt.Var(0), stmt.Lit(value.U64, 3)),
			stmt.Mov(stmt.Var(0), stmt.Var(1))))
	//
	return &Scenario{
		Name:       "triple",
		Summary:    "rdx = rdx * 3, through an intermediate",
		Stmt:       body,
		Pre:        logic.True(),
		Post:       regAfter(machine.RDX, func(k machine.Config) uint64 { return 3 * k.Regs[machine.RDX] }),
		Candidates: []machine.Config{candidate(reg(machine.RDX, 5)), candidate(reg(machine.RDX, 1<<62))},
	}
}

func stabilize() *Scenario {
	cell := block.Memory{Addr: DATA, Len: 8}
	//
	return &Scenario{
		Name:    "stabilize",
		Summary: "[data]:u64 = 7, keeping the data live throughout",
		Stmt: stmt.Stabilize(cell.Footprint(),
			stmt.Let(0, cell, stmt.Mov(stmt.Var(0), stmt.Lit(value.U64, 7)))),
		Pre: logic.Reserve(cell.Footprint()),
		Post: logic.Relation(func(_, k2 machine.Config) bool {
			val, _, ok := value.U64.Read(cell, k2)
			return ok && val == 7
		}),
		Candidates: []machine.Config{candidate(), candidate(mem(DATA, 1, 2, 3))},
	}
}

// ============================================================================
// Helpers
// ============================================================================

// assign constructs "x = val" for a 64-bit local.
func assign(id stmt.LocalId, val uint64) stmt.Stmt {
	return stmt.Mov(stmt.Var(id), stmt.Lit(value.U64, val))
}

// regAfter relates configurations where a register ends up holding a value
// determined by the initial configuration.
func regAfter(r machine.Reg, fn func(machine.Config) uint64) logic.Trans {
	return logic.Relation(func(k1, k2 machine.Config) bool {
		return k2.Regs[r] == fn(k1)
	})
}

// candidate constructs a configuration with the data and stack regions mapped
// and zeroed, and then applies some updates.
func candidate(updates ...func(machine.Config) machine.Config) machine.Config {
	k := machine.NewConfig()
	k.Mem = k.Mem.Map(DATA, make([]byte, DATA_LEN), machine.PERM_RW)
	k.Mem = k.Mem.Map(STACK, make([]byte, STACK_LEN), machine.PERM_RW)
	//
	for _, fn := range updates {
		k = fn(k)
	}
	//
	return k
}

func reg(r machine.Reg, val uint64) func(machine.Config) machine.Config {
	return func(k machine.Config) machine.Config {
		k.Regs[r] = val
		return k
	}
}

func mem(addr uint64, data ...byte) func(machine.Config) machine.Config {
	return func(k machine.Config) machine.Config {
		k.Mem = k.Mem.Map(addr, data, machine.PERM_RW)
		return k
	}
}

// grid constructs a candidate for every pair of values in two registers.
func grid(r1, r2 machine.Reg, vals ...uint64) []machine.Config {
	var configs []machine.Config
	//
	for _, v1 := range vals {
		for _, v2 := range vals {
			configs = append(configs, candidate(reg(r1, v1), reg(r2, v2)))
		}
	}
	//
	return configs
}
