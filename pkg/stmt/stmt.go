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
	"strings"

	"github.com/consensys/go-x86hoare/pkg/machine"
	"github.com/consensys/go-x86hoare/pkg/value"
)

// Stmt is a statement of the structured language.  A statement knows how to
// assemble itself at a given origin, and what its code does: starting from any
// configuration of a given outcome with the instruction pointer at the origin,
// the code eventually reaches one of the outcomes returned by Exec.  Every such
// outcome lies at an exit of the label context.  Furthermore, the code only
// ever disturbs places within the frame.  The length of a statement's encoding
// never depends on its origin or labels.
type Stmt interface {
	// Len returns the number of bytes in this statement's encoding.
	Len(ctx Context) (uint64, error)
	// Assemble this statement at a given origin.
	Assemble(ctx Context, origin uint64) ([]byte, error)
	// Exec computes the contract of this statement for a given pre-state.
	Exec(ctx Context, origin uint64, pre Outcome) ([]Outcome, error)
	// Frame returns every place which this statement's code may disturb.
	Frame(ctx Context) (machine.Footprint, error)
	// Provide human-readable form of statement
	String() string
}

// checkExits checks every outcome lies at an exit of the label context.
func checkExits(ctx Context, end uint64, outcomes []Outcome) error {
	for _, o := range outcomes {
		switch {
		case ctx.Labels.IsExit(o.Config.Rip):
			continue
		case o.Config.Rip == end:
			return fmt.Errorf("%w: 0x%x, expected 0x%x", ErrFallthrough, end, ctx.Labels.Fallthrough())
		default:
			return fmt.Errorf("%w: 0x%x not in %s", ErrExit, o.Config.Rip, ctx.Labels)
		}
	}
	//
	return nil
}

// ============================================================================
// Basic
// ============================================================================

// BasicStmt is a straight-line statement: its code always falls through.
type BasicStmt struct {
	name string
	body func(p *lowering) error
}

// Nop constructs the statement which does nothing.
func Nop() *BasicStmt {
	return &BasicStmt{"nop", func(*lowering) error { return nil }}
}

// Mov constructs the statement which copies the value of one expression into
// the block of another.  Both must have the same size.
func Mov(dst Expr, src Expr) *BasicStmt {
	return &BasicStmt{fmt.Sprintf("%s = %s", dst, src), func(p *lowering) error {
		s, err := src.lower(p)
		if err != nil {
			return err
		}
		//
		d, err := dst.lower(p)
		if err != nil {
			return err
		}
		//
		return p.move(d, s)
	}}
}

// Eval constructs the statement which evaluates an expression for its effect.
func Eval(e Expr) *BasicStmt {
	return &BasicStmt{e.String(), func(p *lowering) error {
		_, err := e.lower(p)
		return err
	}}
}

// AsnBinop constructs the statement "dst op= src", which updates the block of
// dst in place.
func AsnBinop[T any](op Op, ty value.Int[T], dst Expr, src Expr) *BasicStmt {
	return &BasicStmt{fmt.Sprintf("%s %s= %s", dst, op, src), func(p *lowering) error {
		s, err := src.lower(p)
		if err != nil {
			return err
		}
		//
		d, err := dst.lower(p)
		if err != nil {
			return err
		}
		//
		return binop(p, op, ty, d, d, s)
	}}
}

// AsnUnop constructs the statement "dst = op dst", which updates the block of
// dst in place.
func AsnUnop[T any](op UnOp, ty value.Int[T], dst Expr) *BasicStmt {
	return &BasicStmt{fmt.Sprintf("%s = %s%s", dst, op, dst), func(p *lowering) error {
		d, err := dst.lower(p)
		if err != nil {
			return err
		}
		//
		return unop(p, op, ty, d, d)
	}}
}

// Incr constructs the statement "dst += 1".
func Incr[T any](ty value.Int[T], dst Expr) *BasicStmt {
	return AsnBinop(ADD, ty, dst, Lit(ty, ty.One()))
}

// Len implementation for Stmt interface.
func (s *BasicStmt) Len(ctx Context) (uint64, error) {
	p := newLowering(ctx, 0, nil)
	//
	if err := s.body(p); err != nil {
		return 0, err
	}
	//
	return p.asm.Len(), nil
}

// Assemble implementation for Stmt interface.
func (s *BasicStmt) Assemble(ctx Context, origin uint64) ([]byte, error) {
	p := newLowering(ctx, origin, nil)
	//
	if err := s.body(p); err != nil {
		return nil, err
	}
	//
	return p.asm.Bytes(), nil
}

// Exec implementation for Stmt interface.
func (s *BasicStmt) Exec(ctx Context, origin uint64, pre Outcome) ([]Outcome, error) {
	var (
		out = pre.At(origin)
		p   = newLowering(ctx, origin, &out)
	)
	//
	if err := s.body(p); err != nil {
		return nil, err
	}
	//
	end := p.asm.Pc()
	//
	if end != ctx.Labels.Fallthrough() {
		return nil, fmt.Errorf("%w: %s ends at 0x%x, expected 0x%x", ErrFallthrough, s.name, end,
			ctx.Labels.Fallthrough())
	}
	//
	return []Outcome{out.At(end)}, nil
}

// Frame implementation for Stmt interface.
func (s *BasicStmt) Frame(ctx Context) (machine.Footprint, error) {
	p := newLowering(ctx, 0, nil)
	//
	if err := s.body(p); err != nil {
		return machine.Footprint{}, err
	}
	//
	return p.frame, nil
}

func (s *BasicStmt) String() string {
	return s.name
}

// ============================================================================
// Seq
// ============================================================================

// SeqStmt executes one statement followed by another.  The encoding is the
// concatenation of both.
type SeqStmt struct {
	First  Stmt
	Second Stmt
}

// Seq constructs the sequential composition of zero or more statements.  The
// empty sequence is Nop.
func Seq(stmts ...Stmt) Stmt {
	switch len(stmts) {
	case 0:
		return Nop()
	case 1:
		return stmts[0]
	default:
		return &SeqStmt{stmts[0], Seq(stmts[1:]...)}
	}
}

// Len implementation for Stmt interface.
func (s *SeqStmt) Len(ctx Context) (uint64, error) {
	n, err := s.First.Len(ctx)
	if err != nil {
		return 0, err
	}
	//
	m, err := s.Second.Len(ctx)
	//
	return n + m, err
}

// Assemble implementation for Stmt interface.
func (s *SeqStmt) Assemble(ctx Context, origin uint64) ([]byte, error) {
	mid, first, err := s.split(ctx, origin)
	if err != nil {
		return nil, err
	}
	//
	bytes, err := s.First.Assemble(first, origin)
	if err != nil {
		return nil, err
	}
	//
	rest, err := s.Second.Assemble(ctx, mid)
	//
	return append(bytes, rest...), err
}

// Exec implementation for Stmt interface.
func (s *SeqStmt) Exec(ctx Context, origin uint64, pre Outcome) ([]Outcome, error) {
	var outcomes []Outcome
	//
	mid, first, err := s.split(ctx, origin)
	if err != nil {
		return nil, err
	}
	//
	outs, err := s.First.Exec(first, origin, pre)
	if err != nil {
		return nil, err
	}
	//
	for _, o := range outs {
		if o.Config.Rip != mid {
			outcomes = mergeOutcomes(outcomes, o)
			continue
		}
		//
		rest, err := s.Second.Exec(ctx, mid, o)
		if err != nil {
			return nil, err
		}
		//
		outcomes = mergeOutcomes(outcomes, rest...)
	}
	//
	return outcomes, nil
}

// Frame implementation for Stmt interface.
func (s *SeqStmt) Frame(ctx Context) (machine.Footprint, error) {
	return unionFrames(ctx, s.First, s.Second)
}

func (s *SeqStmt) String() string {
	return fmt.Sprintf("%s; %s", s.First, s.Second)
}

// split determines the address where the second statement begins, and the
// context of the first statement (which falls through into the second).
func (s *SeqStmt) split(ctx Context, origin uint64) (uint64, Context, error) {
	n, err := s.First.Len(ctx)
	//
	mid := origin + n
	//
	return mid, ctx.WithLabels(ctx.Labels.WithFallthrough(mid)), err
}

func unionFrames(ctx Context, stmts ...Stmt) (machine.Footprint, error) {
	frame := baseFrame()
	//
	for _, s := range stmts {
		f, err := s.Frame(ctx)
		if err != nil {
			return frame, err
		}
		//
		frame = frame.Union(f)
	}
	//
	return frame, nil
}

func stmtsString(stmts []Stmt) string {
	var builder strings.Builder
	//
	for i, s := range stmts {
		if i != 0 {
			builder.WriteString(", ")
		}
		//
		builder.WriteString(s.String())
	}
	//
	return builder.String()
}
