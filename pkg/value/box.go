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
package value

import (
	"github.com/consensys/go-x86hoare/pkg/block"
	"github.com/consensys/go-x86hoare/pkg/machine"
)

// POINTER_SIZE is the number of bytes in an address.
const POINTER_SIZE = 8

// Box is the type of values held indirectly through a pointer.  The immediate
// block holds an address, and the value itself is held (according to the inner
// type) in the memory block found at that address.  The footprint of a read
// is that of the pointer, plus whatever the inner type used.
type Box[T any] struct {
	Inner Type[T]
}

// NewBox constructs a boxed type from an inner type.
func NewBox[T any](inner Type[T]) Box[T] {
	return Box[T]{inner}
}

// Size implementation for Type interface.  Only the pointer is held in the
// immediate block.
func (p Box[T]) Size() uint64 {
	return POINTER_SIZE
}

// Pointee returns the memory block that the pointer held in a given block
// currently refers to.
func (p Box[T]) Pointee(b block.Block, k machine.Config) (block.Memory, bool) {
	ptr, _, ok := U64.Read(b, k)
	//
	if !ok {
		return block.Memory{}, false
	}
	//
	return block.Memory{Addr: ptr, Len: p.Inner.Size()}, true
}

// Read implementation for Type interface.
func (p Box[T]) Read(b block.Block, k machine.Config) (T, machine.Footprint, bool) {
	var empty T
	//
	target, ok := p.Pointee(b, k)
	//
	if !ok {
		return empty, machine.Footprint{}, false
	}
	//
	val, footprint, ok := p.Inner.Read(target, k)
	//
	if !ok {
		return empty, machine.Footprint{}, false
	}
	//
	return val, b.Footprint().Union(footprint), true
}

// Write implementation for Type interface.  This writes the value through the
// pointer, leaving the pointer itself unchanged.  A write which would disturb
// the pointer (i.e. the pointee overlaps it) fails.
func (p Box[T]) Write(val T, b block.Block, k machine.Config) (machine.Config, bool) {
	target, ok := p.Pointee(b, k)
	//
	if !ok || !block.Disjoint(b, target) {
		return k, false
	}
	//
	k2, ok := p.Inner.Write(val, target, k)
	// Nested pointees can still reach the outer pointer
	if after, ok2 := p.Pointee(b, k2); !ok || !ok2 || after.Addr != target.Addr {
		return k, false
	}
	//
	return k2, true
}
