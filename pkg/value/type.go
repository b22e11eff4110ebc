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

// Type describes how values of some domain type T are stored in blocks.  A
// read reports, in addition to the value, the footprint it actually used.
// This may extend beyond the block itself (e.g. when following a pointer).
// Every type inherits the laws of blocks: a successful write can be read
// back, and a read is stable under any transition which is stable on the
// footprint it reported.
type Type[T any] interface {
	// Size returns the number of bytes occupied in the immediate block.
	Size() uint64
	// Read a value out of a given block.
	Read(b block.Block, k machine.Config) (T, machine.Footprint, bool)
	// Write a value into a given block.
	Write(val T, b block.Block, k machine.Config) (machine.Config, bool)
}

// Serial describes a type with a fixed-size, deterministic serialisation into
// bytes.
type Serial[T any] interface {
	// Size returns the number of bytes in any serialised value.
	Size() uint64
	// Encode a value into exactly Size() bytes, failing if the value is not
	// representable.
	Encode(val T) ([]byte, bool)
	// Decode a value from bytes, failing if they do not represent a value.
	Decode(bytes []byte) (T, bool)
}

// Int is a type whose values can be viewed as unsigned machine words.  This is
// what the statement language requires in order to apply arithmetic.
type Int[T any] interface {
	Type[T]
	// Uint64 converts a value into a machine word.
	Uint64(val T) uint64
	// FromUint64 converts a machine word into a value, truncating as necessary.
	FromUint64(word uint64) T
	// Zero returns the typed zero.
	Zero() T
	// One returns the typed one.
	One() T
}

// Plain lifts a serial type into a type which reads and writes its encoding
// directly from a block of the same size.
type Plain[T any] struct {
	Serial[T]
}

// Read implementation for Type interface.
func (p Plain[T]) Read(b block.Block, k machine.Config) (T, machine.Footprint, bool) {
	var empty T
	//
	if b.Size() != p.Size() {
		return empty, machine.Footprint{}, false
	}
	//
	bytes, ok := b.Read(k)
	//
	if !ok {
		return empty, machine.Footprint{}, false
	}
	//
	val, ok := p.Decode(bytes)
	//
	return val, b.Footprint(), ok
}

// Write implementation for Type interface.
func (p Plain[T]) Write(val T, b block.Block, k machine.Config) (machine.Config, bool) {
	if b.Size() != p.Size() {
		return k, false
	}
	//
	bytes, ok := p.Encode(val)
	//
	if !ok {
		return k, false
	}
	//
	return b.Write(k, bytes)
}
