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
	"maps"
	"slices"
	"strings"
)

// Perm is a set of access permissions attached to a mapped byte of memory.
type Perm uint8

const (
	// PERM_READ allows a byte to be read.
	PERM_READ Perm = 1 << iota
	// PERM_WRITE allows a byte to be written.
	PERM_WRITE
	// PERM_EXEC allows a byte to be fetched as an instruction.
	PERM_EXEC
	// PERM_NONE grants nothing.
	PERM_NONE Perm = 0
	// PERM_RW is the usual permission for data.
	PERM_RW = PERM_READ | PERM_WRITE
	// PERM_RX is the usual permission for code.
	PERM_RX = PERM_READ | PERM_EXEC
	// PERM_ALL grants everything.
	PERM_ALL = PERM_READ | PERM_WRITE | PERM_EXEC
)

// Subset checks whether every permission in p is also granted by q.
func (p Perm) Subset(q Perm) bool {
	return p&q == p
}

func (p Perm) String() string {
	var builder strings.Builder
	//
	for i, c := range "rwx" {
		if p&(1<<i) != 0 {
			builder.WriteRune(c)
		} else {
			builder.WriteRune('-')
		}
	}
	//
	return builder.String()
}

// Memory abstracts a byte-addressable memory where every mapped address carries
// a set of permissions.  Implementations are persistent: writes never modify
// the receiver, but instead return an updated memory.  All operations preserve
// the validity and permission of every other address.
type Memory interface {
	// Valid checks whether a given address is mapped.
	Valid(addr uint64) bool
	// Perm returns the permission of a mapped address, or false if unmapped.
	Perm(addr uint64) (Perm, bool)
	// ReadByteAt reads the byte at a given address, provided it is mapped and the
	// requested permission is a subset of that stored.
	ReadByteAt(addr uint64, perm Perm) (byte, bool)
	// WriteByteAt writes a byte at a given address, provided it is mapped with
	// write permission.
	WriteByteAt(addr uint64, val byte) (Memory, bool)
	// Map a contiguous sequence of bytes with a given permission, replacing
	// whatever was previously mapped there.  This is intended for setting up
	// configurations rather than as part of execution.
	Map(addr uint64, data []byte, perm Perm) Memory
	// Range visits every mapped address in ascending order, stopping early if
	// the visitor returns false.
	Range(fn func(addr uint64, val byte, perm Perm) bool)
}

type cell struct {
	val  byte
	perm Perm
}

// SparseMemory is a straightforward persistent implementation of Memory using
// a map from addresses to cells.  Every update copies the map, which is
// acceptable for the small configurations used when checking obligations.
type SparseMemory struct {
	cells map[uint64]cell
}

// NewSparseMemory constructs an empty memory (i.e. where nothing is mapped).
func NewSparseMemory() *SparseMemory {
	return &SparseMemory{make(map[uint64]cell)}
}

// Valid implementation for Memory interface.
func (p *SparseMemory) Valid(addr uint64) bool {
	_, ok := p.cells[addr]
	return ok
}

// Perm implementation for Memory interface.
func (p *SparseMemory) Perm(addr uint64) (Perm, bool) {
	c, ok := p.cells[addr]
	return c.perm, ok
}

// ReadByteAt implementation for Memory interface.
func (p *SparseMemory) ReadByteAt(addr uint64, perm Perm) (byte, bool) {
	if c, ok := p.cells[addr]; ok && perm.Subset(c.perm) {
		return c.val, true
	}
	//
	return 0, false
}

// WriteByteAt implementation for Memory interface.
func (p *SparseMemory) WriteByteAt(addr uint64, val byte) (Memory, bool) {
	c, ok := p.cells[addr]
	//
	if !ok || !PERM_WRITE.Subset(c.perm) {
		return p, false
	}
	//
	ncells := maps.Clone(p.cells)
	ncells[addr] = cell{val, c.perm}
	//
	return &SparseMemory{ncells}, true
}

// Map implementation for Memory interface.
func (p *SparseMemory) Map(addr uint64, data []byte, perm Perm) Memory {
	ncells := maps.Clone(p.cells)
	//
	for i, b := range data {
		ncells[addr+uint64(i)] = cell{b, perm}
	}
	//
	return &SparseMemory{ncells}
}

// Range implementation for Memory interface.
func (p *SparseMemory) Range(fn func(addr uint64, val byte, perm Perm) bool) {
	addrs := slices.Sorted(maps.Keys(p.cells))
	//
	for _, addr := range addrs {
		c := p.cells[addr]
		if !fn(addr, c.val, c.perm) {
			return
		}
	}
}
