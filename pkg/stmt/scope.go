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

	"github.com/consensys/go-x86hoare/pkg/block"
	"github.com/consensys/go-x86hoare/pkg/machine"
)

// ============================================================================
// Decl
// ============================================================================

// DeclStmt declares a fresh local, allocated on the stack, for the duration of
// its body.  The initial contents of the local are unknown.
type DeclStmt struct {
	Id   LocalId
	Size uint64
	Body Stmt
}

// Decl constructs a declaration of a local with a given size.
func Decl(id LocalId, size uint64, body Stmt) *DeclStmt {
	return &DeclStmt{id, size, body}
}

// Len implementation for Stmt interface.
func (s *DeclStmt) Len(ctx Context) (uint64, error) {
	_, inner, err := s.inner(ctx)
	if err != nil {
		return 0, err
	}
	//
	return s.Body.Len(inner)
}

// Assemble implementation for Stmt interface.
func (s *DeclStmt) Assemble(ctx Context, origin uint64) ([]byte, error) {
	_, inner, err := s.inner(ctx)
	if err != nil {
		return nil, err
	}
	//
	return s.Body.Assemble(inner, origin)
}

// Exec implementation for Stmt interface.
func (s *DeclStmt) Exec(ctx Context, origin uint64, pre Outcome) ([]Outcome, error) {
	b, inner, err := s.inner(ctx)
	//
	if err != nil {
		return nil, err
	} else if !b.Writable(pre.Config) {
		return nil, fmt.Errorf("%w: %s not writable", ErrStack, b)
	}
	//
	return s.Body.Exec(inner, origin, pre.Clobber(b.Footprint()))
}

// Frame implementation for Stmt interface.
func (s *DeclStmt) Frame(ctx Context) (machine.Footprint, error) {
	b, inner, err := s.inner(ctx)
	if err != nil {
		return machine.Footprint{}, err
	}
	//
	frame, err := s.Body.Frame(inner)
	//
	return frame.Union(b.Footprint()), err
}

func (s *DeclStmt) String() string {
	return fmt.Sprintf("var x%d[%d] { %s }", s.Id, s.Size, s.Body)
}

func (s *DeclStmt) inner(ctx Context) (block.Memory, Context, error) {
	b, inner, err := ctx.Alloc(s.Size)
	if err != nil {
		return b, ctx, err
	}
	//
	inner, err = inner.WithLocal(s.Id, b)
	inner.Footprint = inner.Footprint.Union(b.Footprint())
	//
	return b, inner, err
}

// ============================================================================
// Let
// ============================================================================

// LetStmt binds a local to an existing block for the duration of its body.
type LetStmt struct {
	Id    LocalId
	Block block.Block
	Body  Stmt
}

// Let constructs a binding of a local to a given block.
func Let(id LocalId, b block.Block, body Stmt) *LetStmt {
	return &LetStmt{id, b, body}
}

// Len implementation for Stmt interface.
func (s *LetStmt) Len(ctx Context) (uint64, error) {
	inner, err := s.inner(ctx)
	if err != nil {
		return 0, err
	}
	//
	return s.Body.Len(inner)
}

// Assemble implementation for Stmt interface.
func (s *LetStmt) Assemble(ctx Context, origin uint64) ([]byte, error) {
	inner, err := s.inner(ctx)
	if err != nil {
		return nil, err
	}
	//
	return s.Body.Assemble(inner, origin)
}

// Exec implementation for Stmt interface.
func (s *LetStmt) Exec(ctx Context, origin uint64, pre Outcome) ([]Outcome, error) {
	inner, err := s.inner(ctx)
	if err != nil {
		return nil, err
	}
	//
	return s.Body.Exec(inner, origin, pre)
}

// Frame implementation for Stmt interface.
func (s *LetStmt) Frame(ctx Context) (machine.Footprint, error) {
	inner, err := s.inner(ctx)
	if err != nil {
		return machine.Footprint{}, err
	}
	//
	return s.Body.Frame(inner)
}

func (s *LetStmt) String() string {
	return fmt.Sprintf("let x%d = %s { %s }", s.Id, s.Block, s.Body)
}

func (s *LetStmt) inner(ctx Context) (Context, error) {
	inner, err := ctx.WithLocal(s.Id, s.Block)
	inner.Footprint = inner.Footprint.Union(s.Block.Footprint())
	//
	return inner, err
}

// ============================================================================
// Bind
// ============================================================================

// BindStmt evaluates an expression, and continues with a statement built from
// the block holding its value.  The encoding is the expression's code followed
// by the statement's.
type BindStmt struct {
	Expr Expr
	Fn   func(block.Block) Stmt
}

// Bind constructs a binding of an expression's value.
func Bind(e Expr, fn func(block.Block) Stmt) *BindStmt {
	return &BindStmt{e, fn}
}

// Init constructs a declaration of a local initialised by an expression.  The
// local refers directly to the block holding the expression's value.
func Init(id LocalId, e Expr, body Stmt) *BindStmt {
	return Bind(e, func(b block.Block) Stmt {
		return Let(id, b, body)
	})
}

// Len implementation for Stmt interface.
func (s *BindStmt) Len(ctx Context) (uint64, error) {
	p, rest, err := s.split(ctx, 0, nil)
	if err != nil {
		return 0, err
	}
	//
	n, err := rest.Len(p.ctx)
	//
	return p.asm.Len() + n, err
}

// Assemble implementation for Stmt interface.
func (s *BindStmt) Assemble(ctx Context, origin uint64) ([]byte, error) {
	p, rest, err := s.split(ctx, origin, nil)
	if err != nil {
		return nil, err
	}
	//
	bytes, err := rest.Assemble(p.ctx, p.asm.Pc())
	if err != nil {
		return nil, err
	}
	//
	p.asm.Raw(bytes...)
	//
	return p.asm.Bytes(), nil
}

// Exec implementation for Stmt interface.
func (s *BindStmt) Exec(ctx Context, origin uint64, pre Outcome) ([]Outcome, error) {
	out := pre.At(origin)
	//
	p, rest, err := s.split(ctx, origin, &out)
	if err != nil {
		return nil, err
	}
	//
	return rest.Exec(p.ctx, p.asm.Pc(), out)
}

// Frame implementation for Stmt interface.
func (s *BindStmt) Frame(ctx Context) (machine.Footprint, error) {
	p, rest, err := s.split(ctx, 0, nil)
	if err != nil {
		return machine.Footprint{}, err
	}
	//
	frame, err := rest.Frame(p.ctx)
	//
	return frame.Union(p.frame), err
}

func (s *BindStmt) String() string {
	return fmt.Sprintf("bind %s", s.Expr)
}

// split lowers the expression, and constructs the continuation.
func (s *BindStmt) split(ctx Context, origin uint64, out *Outcome) (*lowering, Stmt, error) {
	p := newLowering(ctx, origin, out)
	//
	b, err := s.Expr.lower(p)
	if err != nil {
		return nil, nil, err
	}
	//
	return p, s.Fn(b), nil
}
