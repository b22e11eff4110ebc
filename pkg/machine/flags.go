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
package machine

import (
	"math/bits"
	"strings"
)

// Flag identifies one of the four modelled status flags.
type Flag uint8

const (
	// CF is the carry flag.
	CF Flag = iota
	// ZF is the zero flag.
	ZF
	// SF is the sign flag.
	SF
	// OF is the overflow flag.
	OF
)

// NUM_FLAGS is the number of modelled status flags.
const NUM_FLAGS = 4

func (f Flag) String() string {
	switch f {
	case CF:
		return "cf"
	case ZF:
		return "zf"
	case SF:
		return "sf"
	case OF:
		return "of"
	default:
		return "f?"
	}
}

// Flags holds the value of all four status flags, where flag f is stored in
// bit f.
type Flags uint8

// Get returns the value of a given flag.
func (p Flags) Get(f Flag) bool {
	return (p>>f)&1 == 1
}

// Set returns a copy of these flags with the given flag updated.
func (p Flags) Set(f Flag, val bool) Flags {
	if val {
		return p | (1 << f)
	}
	//
	return p &^ (1 << f)
}

func (p Flags) String() string {
	var builder strings.Builder
	//
	for f := range Flag(NUM_FLAGS) {
		if p.Get(f) {
			builder.WriteString(strings.ToUpper(f.String()))
		} else {
			builder.WriteString(f.String())
		}
	}
	//
	return builder.String()
}

// FlagSet is a set of flag vectors.  Since there are only sixteen possible
// vectors, a set is represented as a 16-bit mask where bit n indicates vector n
// is a member.  This gives an explicit representation of any predicate over
// the flags.
type FlagSet uint16

// ALL_FLAGS is the set of all flag vectors (i.e. flags are unconstrained).
const ALL_FLAGS = FlagSet(0xffff)

// NO_FLAGS is the empty set of flag vectors.
const NO_FLAGS = FlagSet(0)

// SingleFlags returns the set containing exactly one flag vector.
func SingleFlags(f Flags) FlagSet {
	return FlagSet(1) << (f & 0xf)
}

// FlagsWhere returns the set of flag vectors satisfying a given predicate.
func FlagsWhere(pred func(Flags) bool) FlagSet {
	var set FlagSet
	//
	for f := range Flags(1 << NUM_FLAGS) {
		if pred(f) {
			set |= SingleFlags(f)
		}
	}
	//
	return set
}

// Contains checks whether a given flag vector is in this set.
func (p FlagSet) Contains(f Flags) bool {
	return p&SingleFlags(f) != 0
}

// Intersect returns the intersection of two sets.
func (p FlagSet) Intersect(q FlagSet) FlagSet {
	return p & q
}

// Union returns the union of two sets.
func (p FlagSet) Union(q FlagSet) FlagSet {
	return p | q
}

// IsEmpty checks whether any flag vector remains.
func (p FlagSet) IsEmpty() bool {
	return p == 0
}

// Count returns the number of flag vectors in this set.
func (p FlagSet) Count() uint {
	return uint(bits.OnesCount16(uint16(p)))
}

// Witness returns some member of this set, or false if it is empty.
func (p FlagSet) Witness() (Flags, bool) {
	if p == 0 {
		return 0, false
	}
	//
	return Flags(bits.TrailingZeros16(uint16(p))), true
}
