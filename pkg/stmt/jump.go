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
	"github.com/consensys/go-x86hoare/pkg/x86"
)

// GotoStmt jumps to a label when a condition holds, and otherwise falls
// through.  The condition is either given directly over the flags, or
// determined by evaluating a boolean expression.
type GotoStmt struct {
	// Boolean expression (or nil)
	Test BoolExpr
	// Condition over flags (when no test)
	Cond x86.Cond
	// Target of jump
	Target Label
}

// JumpCC constructs a jump to a label taken when a condition holds over the
// current flags.
func JumpCC(cond x86.Cond, target Label) *GotoStmt {
	return &GotoStmt{nil, cond, target}
}

// Jump constructs an unconditional jump to a label.
func Jump(target Label) *GotoStmt {
	return JumpCC(x86.ALWAYS, target)
}

// Fail constructs an unconditional jump to the failure exit.
func Fail() *GotoStmt {
	return Jump(FAIL)
}

// Arg assigns the value of an expression to the block of another on the way
// to a jump target.
type Arg struct {
	Dst Expr
	Src Expr
}

// Goto constructs an unconditional jump to a label, which first performs a
// sequence of assignments in order.
func Goto(target Label, args ...Arg) Stmt {
	stmts := make([]Stmt, 0, len(args)+1)
	//
	for _, arg := range args {
		stmts = append(stmts, Mov(arg.Dst, arg.Src))
	}
	//
	return Seq(append(stmts, Jump(target))...)
}

// JumpIf constructs a jump to a label taken when a boolean expression holds.
func JumpIf(test BoolExpr, target Label) *GotoStmt {
	return &GotoStmt{test, 0, target}
}

// Len implementation for Stmt interface.
func (s *GotoStmt) Len(ctx Context) (uint64, error) {
	p := newLowering(ctx, 0, nil)
	//
	cond, err := s.test(p)
	//
	return p.asm.Len() + x86.JccLen(cond), err
}

// Assemble implementation for Stmt interface.
func (s *GotoStmt) Assemble(ctx Context, origin uint64) ([]byte, error) {
	p := newLowering(ctx, origin, nil)
	//
	cond, err := s.test(p)
	if err != nil {
		return nil, err
	}
	//
	target, err := ctx.Labels.Resolve(s.Target)
	if err != nil {
		return nil, err
	}
	//
	if err := p.asm.Jcc(cond, target); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRange, err)
	}
	//
	return p.asm.Bytes(), nil
}

// Exec implementation for Stmt interface.
func (s *GotoStmt) Exec(ctx Context, origin uint64, pre Outcome) ([]Outcome, error) {
	var (
		out = pre.At(origin)
		p   = newLowering(ctx, origin, &out)
	)
	//
	cond, err := s.test(p)
	if err != nil {
		return nil, err
	}
	//
	target, err := ctx.Labels.Resolve(s.Target)
	if err != nil {
		return nil, err
	}
	//
	var (
		end      = p.asm.Pc() + x86.JccLen(cond)
		taken    = out.WithFlags(out.Flags.Intersect(cond.Flags())).At(target)
		notTaken = out.WithFlags(out.Flags.Intersect(cond.Not().Flags())).At(end)
	)
	//
	if !notTaken.IsEmpty() && end != ctx.Labels.Fallthrough() {
		return nil, fmt.Errorf("%w: jump falls through to 0x%x, expected 0x%x", ErrFallthrough, end,
			ctx.Labels.Fallthrough())
	}
	//
	return mergeOutcomes(nil, taken, notTaken), nil
}

// Frame implementation for Stmt interface.
func (s *GotoStmt) Frame(ctx Context) (machine.Footprint, error) {
	p := newLowering(ctx, 0, nil)
	//
	_, err := s.test(p)
	//
	return p.frame, err
}

func (s *GotoStmt) String() string {
	switch {
	case s.Test != nil:
		return fmt.Sprintf("if %s goto %s", s.Test, s.Target)
	case s.Cond == x86.ALWAYS:
		return fmt.Sprintf("goto %s", s.Target)
	default:
		return fmt.Sprintf("j%s %s", s.Cond, s.Target)
	}
}

// test lowers the test (if any), returning the condition for the jump.
func (s *GotoStmt) test(p *lowering) (x86.Cond, error) {
	if s.Test == nil && !s.Cond.IsValid() {
		return 0, fmt.Errorf("%w: 0x%x", ErrCondition, uint8(s.Cond))
	} else if s.Test == nil {
		return s.Cond, nil
	}
	//
	return s.Test.lower(p)
}
