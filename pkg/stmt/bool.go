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

// BoolExpr is a boolean expression.  Its code sets the flags such that the
// returned condition holds exactly when the expression is true.
type BoolExpr interface {
	// Lower this expression, returning the condition which holds when it is
	// true.  When computing an outcome, its flags are restricted accordingly.
	lower(p *lowering) (x86.Cond, error)
	// Provide human-readable form of expression
	String() string
}

// ============================================================================
// Compare
// ============================================================================

// CompareExpr compares two typed operands.
type CompareExpr[T any] struct {
	Rel   Rel
	Type  value.Int[T]
	Left  Expr
	Right Expr
}

// Compare constructs a comparison of operands of a given type.
func Compare[T any](rel Rel, ty value.Int[T], left Expr, right Expr) *CompareExpr[T] {
	return &CompareExpr[T]{rel, ty, left, right}
}

// Lt constructs the comparison "left < right".
func Lt[T any](ty value.Int[T], left Expr, right Expr) *CompareExpr[T] {
	return Compare(LT, ty, left, right)
}

func (e *CompareExpr[T]) lower(p *lowering) (x86.Cond, error) {
	a, err := e.Left.lower(p)
	if err != nil {
		return 0, err
	}
	//
	b, err := e.Right.lower(p)
	if err != nil {
		return 0, err
	}
	//
	return compare(p, e.Rel, e.Type, a, b)
}

func (e *CompareExpr[T]) String() string {
	return fmt.Sprintf("%s %s %s", e.Left, e.Rel, e.Right)
}

// ============================================================================
// Not
// ============================================================================

// NotExpr is the negation of a boolean expression.  This has the same code,
// but the opposite condition.
type NotExpr struct {
	Operand BoolExpr
}

// NotB constructs the negation of a boolean expression.
func NotB(operand BoolExpr) *NotExpr {
	return &NotExpr{operand}
}

func (e *NotExpr) lower(p *lowering) (x86.Cond, error) {
	cond, err := e.Operand.lower(p)
	return cond.Not(), err
}

func (e *NotExpr) String() string {
	return fmt.Sprintf("!(%s)", e.Operand)
}

// ============================================================================
// Truth
// ============================================================================

// TruthExpr is a boolean constant.  Its code compares rax with itself, after
// which ZF is set and every other flag is clear.
type TruthExpr struct {
	Value bool
}

// True constructs the boolean expression which always holds.
func True() *TruthExpr {
	return &TruthExpr{true}
}

// False constructs the boolean expression which never holds.
func False() *TruthExpr {
	return &TruthExpr{false}
}

func (e *TruthExpr) lower(p *lowering) (x86.Cond, error) {
	p.asm.CmpRaxRax()
	//
	if p.simulating() {
		var flags machine.Flags
		//
		*p.out = p.out.WithFlags(machine.SingleFlags(flags.Set(machine.ZF, true)))
	}
	//
	if e.Value {
		return x86.E, nil
	}
	//
	return x86.NE, nil
}

func (e *TruthExpr) String() string {
	return fmt.Sprintf("%t", e.Value)
}
