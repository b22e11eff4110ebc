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

	"github.com/consensys/go-x86hoare/pkg/x86"
)

// Op is a binary arithmetic or logical operation over machine words.
type Op uint8

const (
	// ADD is addition (modulo the word size).
	ADD Op = iota
	// SUB is subtraction (modulo the word size).
	SUB
	// MUL is multiplication (modulo the word size).
	MUL
	// AND is bitwise conjunction.
	AND
	// OR is bitwise disjunction.
	OR
	// XOR is bitwise exclusive or.
	XOR
)

var opNames = []string{"+", "-", "*", "&", "|", "^"}

// Apply this operation to two words.  Since every operation commutes with
// truncation, the result can be truncated to any word size afterwards.
func (op Op) Apply(a, b uint64) uint64 {
	switch op {
	case ADD:
		return a + b
	case SUB:
		return a - b
	case MUL:
		return a * b
	case AND:
		return a & b
	case OR:
		return a | b
	case XOR:
		return a ^ b
	default:
		panic(fmt.Sprintf("unknown operation %d", op))
	}
}

func (op Op) alu() x86.AluOp {
	switch op {
	case ADD:
		return x86.ADD
	case SUB:
		return x86.SUB
	case MUL:
		return x86.IMUL
	case AND:
		return x86.AND
	case OR:
		return x86.OR
	case XOR:
		return x86.XOR
	default:
		panic(fmt.Sprintf("unknown operation %d", op))
	}
}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	//
	return "?"
}

// UnOp is a unary operation over machine words.
type UnOp uint8

const (
	// NOT is bitwise negation.
	NOT UnOp = iota
	// NEG is arithmetic negation (modulo the word size).
	NEG
)

// Apply this operation to a word.
func (op UnOp) Apply(a uint64) uint64 {
	switch op {
	case NOT:
		return ^a
	case NEG:
		return -a
	default:
		panic(fmt.Sprintf("unknown operation %d", op))
	}
}

func (op UnOp) unary() x86.UnaryOp {
	if op == NOT {
		return x86.NOT
	}
	//
	return x86.NEG
}

func (op UnOp) String() string {
	if op == NOT {
		return "~"
	}
	//
	return "-"
}

// Rel is an (unsigned) comparison between machine words.
type Rel uint8

const (
	// LT is "less than".
	LT Rel = iota
	// LE is "less than or equal".
	LE
	// EQ is "equal".
	EQ
	// NE is "not equal".
	NE
	// GT is "greater than".
	GT
	// GE is "greater than or equal".
	GE
)

var relNames = []string{"<", "<=", "==", "!=", ">", ">="}

// Apply this comparison to two words.
func (r Rel) Apply(a, b uint64) bool {
	switch r {
	case LT:
		return a < b
	case LE:
		return a <= b
	case EQ:
		return a == b
	case NE:
		return a != b
	case GT:
		return a > b
	case GE:
		return a >= b
	default:
		panic(fmt.Sprintf("unknown comparison %d", r))
	}
}

// Cond returns the condition which holds after "cmp a, b" exactly when this
// comparison holds.
func (r Rel) Cond() x86.Cond {
	switch r {
	case LT:
		return x86.B
	case LE:
		return x86.BE
	case EQ:
		return x86.E
	case NE:
		return x86.NE
	case GT:
		return x86.A
	case GE:
		return x86.AE
	default:
		panic(fmt.Sprintf("unknown comparison %d", r))
	}
}

func (r Rel) String() string {
	if int(r) < len(relNames) {
		return relNames[r]
	}
	//
	return "?"
}
