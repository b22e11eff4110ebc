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
package x86

import (
	"github.com/consensys/go-x86hoare/pkg/machine"
)

// Cond is a predicate over the status flags.  Values 0 through 15 coincide
// with the x86 condition code encoding (as used in Jcc), except that the
// parity conditions (0xA, 0xB) are not modelled.  Two further conditions,
// Always and Never, describe unconditional jumps.
type Cond uint8

const (
	// O holds on overflow.
	O Cond = 0x0
	// NO holds on no overflow.
	NO Cond = 0x1
	// B holds on below (unsigned), i.e. carry.
	B Cond = 0x2
	// AE holds on above or equal (unsigned), i.e. no carry.
	AE Cond = 0x3
	// E holds on equal, i.e. zero.
	E Cond = 0x4
	// NE holds on not equal, i.e. not zero.
	NE Cond = 0x5
	// BE holds on below or equal (unsigned).
	BE Cond = 0x6
	// A holds on above (unsigned).
	A Cond = 0x7
	// S holds on sign.
	S Cond = 0x8
	// NS holds on no sign.
	NS Cond = 0x9
	// L holds on less (signed).
	L Cond = 0xC
	// GE holds on greater or equal (signed).
	GE Cond = 0xD
	// LE holds on less or equal (signed).
	LE Cond = 0xE
	// G holds on greater (signed).
	G Cond = 0xF
	// ALWAYS holds for all flags.
	ALWAYS Cond = 0x10
	// NEVER holds for no flags.
	NEVER Cond = 0x11
)

var condNames = map[Cond]string{
	O: "o", NO: "no", B: "b", AE: "ae", E: "e", NE: "ne", BE: "be", A: "a",
	S: "s", NS: "ns", L: "l", GE: "ge", LE: "le", G: "g", ALWAYS: "always", NEVER: "never",
}

// IsValid checks whether this is a modelled condition.
func (c Cond) IsValid() bool {
	_, ok := condNames[c]
	return ok
}

func (c Cond) String() string {
	if name, ok := condNames[c]; ok {
		return name
	}
	//
	return "?"
}

// Not returns the negation of this condition.  Conveniently, x86 condition
// codes are arranged so that negation flips the least significant bit.
func (c Cond) Not() Cond {
	return c ^ 1
}

// Eval determines whether this condition holds for a given set of flags.  An
// unmodelled condition holds for no flags.
func (c Cond) Eval(f machine.Flags) bool {
	var (
		cf = f.Get(machine.CF)
		zf = f.Get(machine.ZF)
		sf = f.Get(machine.SF)
		of = f.Get(machine.OF)
		r  bool
	)
	// Evaluate the positive form
	switch c &^ 1 {
	case O:
		r = of
	case B:
		r = cf
	case E:
		r = zf
	case BE:
		r = cf || zf
	case S:
		r = sf
	case L:
		r = sf != of
	case LE:
		r = zf || sf != of
	case ALWAYS:
		r = true
	default:
		return false
	}
	// Odd codes are negations
	if c&1 == 1 {
		return !r
	}
	//
	return r
}

// Flags returns the set of flag vectors for which this condition holds.
func (c Cond) Flags() machine.FlagSet {
	return machine.FlagsWhere(c.Eval)
}
