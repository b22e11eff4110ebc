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
	"github.com/consensys/go-x86hoare/pkg/value"
)

// Expr is an expression which evaluates to a block holding its value.  Simple
// expressions (locals and constants) have no code, whilst compound expressions
// compute their value into a temporary allocated on the stack.
type Expr interface {
	// Lower this expression, returning the block which holds its value.
	lower(p *lowering) (block.Block, error)
	// Provide human-readable form of expression
	String() string
}

// ============================================================================
// Var
// ============================================================================

// VarExpr is a reference to a local.
type VarExpr struct {
	Id LocalId
}

// Var constructs a reference to a given local.
func Var(id LocalId) *VarExpr {
	return &VarExpr{id}
}

func (e *VarExpr) lower(p *lowering) (block.Block, error) {
	return p.ctx.Lookup(e.Id)
}

func (e *VarExpr) String() string {
	return fmt.Sprintf("x%d", e.Id)
}

// ============================================================================
// Proj
// ============================================================================

// ProjExpr refers to a fixed range of bytes within the block of another
// expression, such as a field of a structure or an element of an array.
type ProjExpr struct {
	Base   Expr
	Offset uint64
	Size   uint64
}

// Proj constructs a projection of a given number of bytes from an expression,
// starting at a given offset.
func Proj(base Expr, offset uint64, size uint64) *ProjExpr {
	return &ProjExpr{base, offset, size}
}

// Index constructs a projection of the i'th element of an array whose elements
// have a given type.
func Index[T any](base Expr, ty value.Type[T], i uint64) *ProjExpr {
	return Proj(base, i*ty.Size(), ty.Size())
}

func (e *ProjExpr) lower(p *lowering) (block.Block, error) {
	b, err := e.Base.lower(p)
	if err != nil {
		return nil, err
	}
	//
	sub, ok := block.Sub(b, e.Offset, e.Size)
	//
	if !ok {
		return nil, fmt.Errorf("%w: %s[%d:%d]", ErrSize, b, e.Offset, e.Offset+e.Size)
	}
	//
	return sub, nil
}

func (e *ProjExpr) String() string {
	return fmt.Sprintf("%s[%d:%d]", e.Base, e.Offset, e.Offset+e.Size)
}

// ============================================================================
// Const
// ============================================================================

// ConstExpr is a fixed sequence of bytes.
type ConstExpr struct {
	Bytes []byte
}

// Const constructs a constant expression from its bytes.
func Const(bytes ...byte) *ConstExpr {
	return &ConstExpr{bytes}
}

// Lit constructs a constant expression from a typed value.
func Lit[T any](ty value.Int[T], val T) *ConstExpr {
	var word [8]byte
	//
	binary.LittleEndian.PutUint64(word[:], ty.Uint64(val))
	//
	if ty.Size() > 8 {
		panic(fmt.Sprintf("literal of %d bytes", ty.Size()))
	}
	//
	return &ConstExpr{word[:ty.Size()]}
}

func (e *ConstExpr) lower(p *lowering) (block.Block, error) {
	return block.NewConst(e.Bytes...), nil
}

func (e *ConstExpr) String() string {
	return fmt.Sprintf("0x%x", e.Bytes)
}

// ============================================================================
// Binop
// ============================================================================

// BinopExpr applies a binary operation to two typed operands.
type BinopExpr[T any] struct {
	Op    Op
	Type  value.Int[T]
	Left  Expr
	Right Expr
}

// Binop constructs a binary operation over operands of a given type.
func Binop[T any](op Op, ty value.Int[T], left Expr, right Expr) *BinopExpr[T] {
	return &BinopExpr[T]{op, ty, left, right}
}

func (e *BinopExpr[T]) lower(p *lowering) (block.Block, error) {
	a, err := e.Left.lower(p)
	if err != nil {
		return nil, err
	}
	//
	b, err := e.Right.lower(p)
	if err != nil {
		return nil, err
	}
	//
	t, err := p.temp(e.Type.Size())
	if err != nil {
		return nil, err
	}
	//
	return t, binop(p, e.Op, e.Type, t, a, b)
}

func (e *BinopExpr[T]) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left, e.Op, e.Right)
}

// ============================================================================
// Unop
// ============================================================================

// UnopExpr applies a unary operation to a typed operand.
type UnopExpr[T any] struct {
	Op      UnOp
	Type    value.Int[T]
	Operand Expr
}

// Unop constructs a unary operation over an operand of a given type.
func Unop[T any](op UnOp, ty value.Int[T], operand Expr) *UnopExpr[T] {
	return &UnopExpr[T]{op, ty, operand}
}

func (e *UnopExpr[T]) lower(p *lowering) (block.Block, error) {
	a, err := e.Operand.lower(p)
	if err != nil {
		return nil, err
	}
	//
	t, err := p.temp(e.Type.Size())
	if err != nil {
		return nil, err
	}
	//
	return t, unop(p, e.Op, e.Type, t, a)
}

func (e *UnopExpr[T]) String() string {
	return fmt.Sprintf("%s%s", e.Op, e.Operand)
}
