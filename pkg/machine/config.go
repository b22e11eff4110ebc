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
	"fmt"
	"strings"
)

// Config captures the complete state of the machine at some point: the
// registers, the status flags, the instruction pointer and memory.  A Config is
// a value, and all updates return a fresh configuration leaving the original
// untouched (memory is persistent).
type Config struct {
	// General purpose registers
	Regs [NUM_REGS]uint64
	// Status flags
	Flags Flags
	// Instruction pointer
	Rip uint64
	// Memory
	Mem Memory
}

// NewConfig constructs a configuration with all registers and flags zeroed,
// and an empty memory.
func NewConfig() Config {
	return Config{Mem: NewSparseMemory()}
}

// Read the value at a given place.  Flags, registers and the instruction
// pointer can always be read.  Reading memory fails when the address is not
// mapped, or is not readable.  The width returned is that of the place.
func (p Config) Read(place Place) (uint, uint64, bool) {
	return p.ReadWith(place, PERM_READ)
}

// ReadWith reads the value at a given place, where the given permission is
// required for memory places.
func (p Config) ReadWith(place Place, perm Perm) (uint, uint64, bool) {
	switch place.Kind {
	case FLAG_PLACE:
		if p.Flags.Get(Flag(place.Index)) {
			return 1, 1, true
		}
		//
		return 1, 0, true
	case REG_PLACE:
		return 64, p.Regs[place.Index], true
	case RIP_PLACE:
		return 64, p.Rip, true
	default:
		val, ok := p.Mem.ReadByteAt(place.Index, perm)
		return 8, uint64(val), ok
	}
}

// Write a value to a given place, returning the updated configuration.  Only
// the low bits of the value (according to the width of the place) are used.
// Writing memory fails when the address is unmapped or not writable.
func (p Config) Write(place Place, val uint64) (Config, bool) {
	switch place.Kind {
	case FLAG_PLACE:
		p.Flags = p.Flags.Set(Flag(place.Index), val&1 == 1)
	case REG_PLACE:
		p.Regs[place.Index] = val
	case RIP_PLACE:
		p.Rip = val
	default:
		mem, ok := p.Mem.WriteByteAt(place.Index, byte(val))
		if !ok {
			return p, false
		}
		//
		p.Mem = mem
	}
	//
	return p, true
}

// Stable checks whether a given place is unchanged between two configurations.
// For memory this includes whether the address is mapped, its permission and
// its contents.
func Stable(k1, k2 Config, place Place) bool {
	switch place.Kind {
	case FLAG_PLACE:
		f := Flag(place.Index)
		return k1.Flags.Get(f) == k2.Flags.Get(f)
	case REG_PLACE:
		return k1.Regs[place.Index] == k2.Regs[place.Index]
	case RIP_PLACE:
		return k1.Rip == k2.Rip
	default:
		return memStable(k1.Mem, k2.Mem, place.Index)
	}
}

// StableAt checks that every place in a given footprint is stable between two
// configurations.
func StableAt(k1, k2 Config, places Footprint) bool {
	for _, place := range places.Places() {
		if !Stable(k1, k2, place) {
			return false
		}
	}
	//
	return true
}

// StableOutside checks that every place not in a given footprint is stable
// between two configurations.  This is the executable form of "only places
// within the footprint were disturbed".
func StableOutside(k1, k2 Config, places Footprint) bool {
	_, ok := UnstableOutside(k1, k2, places)
	return !ok
}

// UnstableOutside returns the first place (if any) outside a given footprint
// which differs between two configurations.
func UnstableOutside(k1, k2 Config, places Footprint) (Place, bool) {
	for f := range Flag(NUM_FLAGS) {
		if place := FlagAt(f); !places.Contains(place) && !Stable(k1, k2, place) {
			return place, true
		}
	}
	//
	for r := range Reg(NUM_REGS) {
		if place := RegAt(r); !places.Contains(place) && !Stable(k1, k2, place) {
			return place, true
		}
	}
	//
	if place := RipAt(); !places.Contains(place) && !Stable(k1, k2, place) {
		return place, true
	}
	// Check memory mapped on either side
	var (
		unstable Place
		found    bool
	)
	//
	check := func(addr uint64, _ byte, _ Perm) bool {
		place := MemAt(addr)
		//
		if !places.Contains(place) && !memStable(k1.Mem, k2.Mem, addr) {
			unstable, found = place, true
		}
		//
		return !found
	}
	//
	k1.Mem.Range(check)
	//
	if !found {
		k2.Mem.Range(check)
	}
	//
	return unstable, found
}

// Unstable returns every place which differs between two configurations.
func Unstable(k1, k2 Config) Footprint {
	var places = NewFootprint()
	//
	for f := range Flag(NUM_FLAGS) {
		if place := FlagAt(f); !Stable(k1, k2, place) {
			places = places.Insert(place)
		}
	}
	//
	for r := range Reg(NUM_REGS) {
		if place := RegAt(r); !Stable(k1, k2, place) {
			places = places.Insert(place)
		}
	}
	//
	if !Stable(k1, k2, RipAt()) {
		places = places.Insert(RipAt())
	}
	//
	check := func(addr uint64, _ byte, _ Perm) bool {
		if !memStable(k1.Mem, k2.Mem, addr) {
			places = places.Insert(MemAt(addr))
		}
		//
		return true
	}
	//
	k1.Mem.Range(check)
	k2.Mem.Range(check)
	//
	return places
}

// Restore returns a configuration which agrees with k on every place outside a
// given footprint, and with src on every place within it.  Memory which is
// unmapped in src is left as in k, since nothing can be unmapped.
func Restore(k, src Config, places Footprint) Config {
	for _, place := range places.Places() {
		switch place.Kind {
		case MEM_PLACE:
			if perm, ok := src.Mem.Perm(place.Index); ok {
				val, _ := src.Mem.ReadByteAt(place.Index, PERM_NONE)
				k.Mem = k.Mem.Map(place.Index, []byte{val}, perm)
			}
		default:
			_, val, _ := src.Read(place)
			k, _ = k.Write(place, val)
		}
	}
	//
	return k
}

// Equal checks whether two configurations are identical.
func (p Config) Equal(q Config) bool {
	return StableOutside(p, q, NewFootprint())
}

func (p Config) String() string {
	var builder strings.Builder
	//
	builder.WriteString(fmt.Sprintf("rip=0x%x flags=%s", p.Rip, p.Flags))
	//
	for r, v := range p.Regs {
		if v != 0 {
			builder.WriteString(fmt.Sprintf(" %s=0x%x", Reg(r), v))
		}
	}
	//
	return builder.String()
}

func memStable(m1, m2 Memory, addr uint64) bool {
	p1, ok1 := m1.Perm(addr)
	p2, ok2 := m2.Perm(addr)
	//
	if ok1 != ok2 || p1 != p2 {
		return false
	} else if !ok1 {
		return true
	}
	// Compare contents regardless of permission
	b1, _ := m1.ReadByteAt(addr, PERM_NONE)
	b2, _ := m2.ReadByteAt(addr, PERM_NONE)
	//
	return b1 == b2
}
