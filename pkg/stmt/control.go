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
	"fmt"

	"github.com/consensys/go-x86hoare/pkg/machine"
	"github.com/consensys/go-x86hoare/pkg/value"
	"github.com/consensys/go-x86hoare/pkg/x86"
)

// ============================================================================
// Block
// ============================================================================

// BlockStmt introduces a label (0) for the address just after its body, which
// can be used to break out of it.
type BlockStmt struct {
	Body Stmt
}

// Block constructs a block around a given body.
func Block(body Stmt) *BlockStmt {
	return &BlockStmt{body}
}

// Len implementation for Stmt interface.
func (s *BlockStmt) Len(ctx Context) (uint64, error) {
	return s.Body.Len(ctx)
}

// Assemble implementation for Stmt interface.
func (s *BlockStmt) Assemble(ctx Context, origin uint64) ([]byte, error) {
	inner, _, err := s.inner(ctx, origin)
	if err != nil {
		return nil, err
	}
	//
	return s.Body.Assemble(inner, origin)
}

// Exec implementation for Stmt interface.
func (s *BlockStmt) Exec(ctx Context, origin uint64, pre Outcome) ([]Outcome, error) {
	inner, end, err := s.inner(ctx, origin)
	if err != nil {
		return nil, err
	}
	//
	outcomes, err := s.Body.Exec(inner, origin, pre)
	if err != nil {
		return nil, err
	}
	//
	return outcomes, checkExits(ctx, end, outcomes)
}

// Frame implementation for Stmt interface.
func (s *BlockStmt) Frame(ctx Context) (machine.Footprint, error) {
	return s.Body.Frame(ctx)
}

func (s *BlockStmt) String() string {
	return fmt.Sprintf("block { %s }", s.Body)
}

func (s *BlockStmt) inner(ctx Context, origin uint64) (Context, uint64, error) {
	n, err := s.Body.Len(ctx)
	end := origin + n
	//
	return ctx.WithLabels(ctx.Labels.Cons(end, end)), end, err
}

// ============================================================================
// Loop
// ============================================================================

// LoopStmt introduces a label (0) for the start of its body, which can be used
// to continue the loop.  Falling off the end of the body also continues the
// loop, hence a loop only terminates by jumping to some outer label.
type LoopStmt struct {
	Body Stmt
}

// Loop constructs a loop around a given body.
func Loop(body Stmt) *LoopStmt {
	return &LoopStmt{body}
}

// Len implementation for Stmt interface.
func (s *LoopStmt) Len(ctx Context) (uint64, error) {
	return s.Body.Len(ctx)
}

// Assemble implementation for Stmt interface.
func (s *LoopStmt) Assemble(ctx Context, origin uint64) ([]byte, error) {
	return s.Body.Assemble(s.inner(ctx, origin), origin)
}

// Exec implementation for Stmt interface.  The body is unrolled for as long as
// control returns to the start of the loop, up to the available fuel.
func (s *LoopStmt) Exec(ctx Context, origin uint64, pre Outcome) ([]Outcome, error) {
	var (
		inner    = s.inner(ctx, origin)
		worklist = []Outcome{pre}
		outcomes []Outcome
	)
	//
	for i := uint(0); len(worklist) > 0; i++ {
		var next []Outcome
		//
		if i >= ctx.Fuel {
			return nil, fmt.Errorf("%w: loop at 0x%x unrolled %d times", ErrFuel, origin, i)
		}
		//
		for _, o := range worklist {
			outs, err := s.Body.Exec(inner, origin, o)
			if err != nil {
				return nil, err
			}
			//
			for _, out := range outs {
				if out.Config.Rip == origin {
					next = mergeOutcomes(next, out)
				} else {
					outcomes = mergeOutcomes(outcomes, out)
				}
			}
		}
		//
		worklist = next
	}
	//
	n, err := s.Body.Len(ctx)
	if err != nil {
		return nil, err
	}
	//
	return outcomes, checkExits(ctx, origin+n, outcomes)
}

// Frame implementation for Stmt interface.
func (s *LoopStmt) Frame(ctx Context) (machine.Footprint, error) {
	return s.Body.Frame(ctx)
}

func (s *LoopStmt) String() string {
	return fmt.Sprintf("loop { %s }", s.Body)
}

func (s *LoopStmt) inner(ctx Context, origin uint64) Context {
	return ctx.WithLabels(ctx.Labels.Cons(origin, origin))
}

// ============================================================================
// If
// ============================================================================

// IfStmt is a conditional.  The code is laid out as follows:
//
//	[cond] [jcc !cond else] [then] [jmp end] else: [else] end:
//
// Within either branch, label 0 refers to the end of the conditional.
type IfStmt struct {
	Cond BoolExpr
	Then Stmt
	Else Stmt
}

// If constructs a conditional.
func If(cond BoolExpr, then Stmt, els Stmt) *IfStmt {
	return &IfStmt{cond, then, els}
}

// ifLayout records the addresses of each piece of a conditional.
type ifLayout struct {
	cond                x86.Cond
	then, jmp, els, end uint64
}

// Len implementation for Stmt interface.
func (s *IfStmt) Len(ctx Context) (uint64, error) {
	l, err := s.layout(ctx, 0)
	return l.end, err
}

// Assemble implementation for Stmt interface.
func (s *IfStmt) Assemble(ctx Context, origin uint64) ([]byte, error) {
	l, err := s.layout(ctx, origin)
	if err != nil {
		return nil, err
	}
	//
	p := newLowering(ctx, origin, nil)
	//
	if _, err := s.Cond.lower(p); err != nil {
		return nil, err
	} else if err := p.asm.Jcc(l.cond.Not(), l.els); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRange, err)
	}
	//
	then, err := s.Then.Assemble(s.thenContext(ctx, l), l.then)
	if err != nil {
		return nil, err
	}
	//
	p.asm.Raw(then...)
	//
	if err := p.asm.Jmp(l.end); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRange, err)
	}
	//
	els, err := s.Else.Assemble(s.elseContext(ctx, l), l.els)
	if err != nil {
		return nil, err
	}
	//
	p.asm.Raw(els...)
	//
	return p.asm.Bytes(), nil
}

// Exec implementation for Stmt interface.
func (s *IfStmt) Exec(ctx Context, origin uint64, pre Outcome) ([]Outcome, error) {
	var outcomes []Outcome
	//
	l, err := s.layout(ctx, origin)
	if err != nil {
		return nil, err
	}
	//
	out := pre.At(origin)
	p := newLowering(ctx, origin, &out)
	//
	if _, err := s.Cond.lower(p); err != nil {
		return nil, err
	}
	// Split on the condition
	then := out.WithFlags(out.Flags.Intersect(l.cond.Flags()))
	els := out.WithFlags(out.Flags.Intersect(l.cond.Not().Flags()))
	//
	if !then.IsEmpty() {
		outs, err := s.Then.Exec(s.thenContext(ctx, l), l.then, then)
		if err != nil {
			return nil, err
		}
		// Falling out of the then branch reaches the jump over the else branch
		for _, o := range outs {
			if o.Config.Rip == l.jmp {
				o = o.At(l.end)
			}
			//
			outcomes = mergeOutcomes(outcomes, o)
		}
	}
	//
	if !els.IsEmpty() {
		outs, err := s.Else.Exec(s.elseContext(ctx, l), l.els, els)
		if err != nil {
			return nil, err
		}
		//
		outcomes = mergeOutcomes(outcomes, outs...)
	}
	//
	return outcomes, checkExits(ctx, l.end, outcomes)
}

// Frame implementation for Stmt interface.
func (s *IfStmt) Frame(ctx Context) (machine.Footprint, error) {
	p := newLowering(ctx, 0, nil)
	//
	if _, err := s.Cond.lower(p); err != nil {
		return p.frame, err
	}
	//
	frame, err := unionFrames(ctx, s.Then, s.Else)
	//
	return frame.Union(p.frame), err
}

func (s *IfStmt) String() string {
	return fmt.Sprintf("if %s { %s } else { %s }", s.Cond, s.Then, s.Else)
}

func (s *IfStmt) layout(ctx Context, origin uint64) (ifLayout, error) {
	var l ifLayout
	//
	p := newLowering(ctx, origin, nil)
	//
	cond, err := s.Cond.lower(p)
	if err != nil {
		return l, err
	}
	//
	n, err := s.Then.Len(ctx)
	if err != nil {
		return l, err
	}
	//
	m, err := s.Else.Len(ctx)
	if err != nil {
		return l, err
	}
	//
	l.cond = cond
	l.then = p.asm.Pc() + x86.JccLen(cond.Not())
	l.jmp = l.then + n
	l.els = l.jmp + x86.JMP_LEN
	l.end = l.els + m
	//
	return l, nil
}

func (s *IfStmt) thenContext(ctx Context, l ifLayout) Context {
	return ctx.WithLabels(ctx.Labels.Cons(l.jmp, l.end))
}

func (s *IfStmt) elseContext(ctx Context, l ifLayout) Context {
	return ctx.WithLabels(ctx.Labels.Cons(l.end, l.end))
}

// ============================================================================
// Unreachable
// ============================================================================

// UnreachableStmt marks a point which control never reaches.  Its code is a
// single trapping instruction, and its contract holds only when no
// configuration arrives there.
type UnreachableStmt struct{}

// Unreachable constructs a statement which is never reached.
func Unreachable() *UnreachableStmt {
	return &UnreachableStmt{}
}

// Len implementation for Stmt interface.
func (s *UnreachableStmt) Len(ctx Context) (uint64, error) {
	return x86.UD2_LEN, nil
}

// Assemble implementation for Stmt interface.
func (s *UnreachableStmt) Assemble(ctx Context, origin uint64) ([]byte, error) {
	asm := x86.NewAsm(origin)
	asm.Ud2()
	//
	return asm.Bytes(), nil
}

// Exec implementation for Stmt interface.
func (s *UnreachableStmt) Exec(ctx Context, origin uint64, pre Outcome) ([]Outcome, error) {
	if pre.IsEmpty() {
		return nil, nil
	}
	//
	return nil, fmt.Errorf("%w: 0x%x from %s", ErrReachable, origin, pre)
}

// Frame implementation for Stmt interface.
func (s *UnreachableStmt) Frame(ctx Context) (machine.Footprint, error) {
	return baseFrame(), nil
}

func (s *UnreachableStmt) String() string {
	return "unreachable"
}

// ============================================================================
// Derived forms
// ============================================================================

// While constructs a loop which executes its body for as long as a condition
// holds.  Within the body, label 0 continues the loop and label 1 breaks out
// of it.
func While(cond BoolExpr, body Stmt) Stmt {
	return Block(Loop(Seq(JumpIf(NotB(cond), 1), body, Jump(0))))
}

// Assert constructs a statement which continues when a condition holds, and
// otherwise jumps to the failure exit.
func Assert(cond BoolExpr) Stmt {
	return If(cond, Nop(), Fail())
}

// ForSeq constructs a counted loop, where a local of a given type counts from
// zero up to (but excluding) a bound.  Within the body, label 0 continues the
// loop without incrementing the counter, whilst label 1 breaks out of it.
func ForSeq[T any](id LocalId, ty value.Int[T], bound Expr, body Stmt) Stmt {
	counter := Var(id)
	//
	return Decl(id, ty.Size(),
		Seq(
			Mov(counter, Lit(ty, ty.Zero())),
			While(Lt(ty, counter, bound), Seq(body, Incr(ty, counter)))))
}
