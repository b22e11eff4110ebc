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
	"math/bits"
	"slices"
)

// Unsigned captures the fixed-width unsigned integers used as bit-vectors.
type Unsigned interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Word is the serial type of a little-endian bit-vector.
type Word[T Unsigned] struct{}

// Size implementation for Serial interface.
func (p Word[T]) Size() uint64 {
	var ones = ^T(0)
	// Width is determined by the number of bits in an all-ones word
	return uint64(bits.Len64(uint64(ones))) / 8
}

// Encode implementation for Serial interface.
func (p Word[T]) Encode(val T) ([]byte, bool) {
	bytes := make([]byte, p.Size())
	//
	for i := range bytes {
		bytes[i] = byte(uint64(val) >> (8 * i))
	}
	//
	return bytes, true
}

// Decode implementation for Serial interface.
func (p Word[T]) Decode(bytes []byte) (T, bool) {
	if uint64(len(bytes)) != p.Size() {
		return 0, false
	}
	//
	var word uint64
	//
	for i, b := range bytes {
		word |= uint64(b) << (8 * i)
	}
	//
	return T(word), true
}

// UintType is the Int type of a little-endian bit-vector.
type UintType[T Unsigned] struct {
	Plain[T]
}

// Uint64 implementation for Int interface.
func (p UintType[T]) Uint64(val T) uint64 {
	return uint64(val)
}

// FromUint64 implementation for Int interface.
func (p UintType[T]) FromUint64(word uint64) T {
	return T(word)
}

// Zero implementation for Int interface.
func (p UintType[T]) Zero() T {
	return 0
}

// One implementation for Int interface.
func (p UintType[T]) One() T {
	return 1
}

// NewUint constructs the bit-vector type of a given unsigned integer.
func NewUint[T Unsigned]() UintType[T] {
	return UintType[T]{Plain[T]{Word[T]{}}}
}

var (
	// U8 is the type of 8-bit words.
	U8 = NewUint[uint8]()
	// U16 is the type of 16-bit words.
	U16 = NewUint[uint16]()
	// U32 is the type of 32-bit words.
	U32 = NewUint[uint32]()
	// U64 is the type of 64-bit words.
	U64 = NewUint[uint64]()
)

// ByteString is the serial type of fixed-length byte sequences.
type ByteString struct {
	Len uint64
}

// Size implementation for Serial interface.
func (p ByteString) Size() uint64 {
	return p.Len
}

// Encode implementation for Serial interface.  Values of the wrong length have
// no encoding.
func (p ByteString) Encode(val []byte) ([]byte, bool) {
	if uint64(len(val)) != p.Len {
		return nil, false
	}
	//
	return slices.Clone(val), true
}

// Decode implementation for Serial interface.
func (p ByteString) Decode(bytes []byte) ([]byte, bool) {
	return slices.Clone(bytes), uint64(len(bytes)) == p.Len
}

// Bytes constructs the type of byte sequences of a given length.
func Bytes(n uint64) Plain[[]byte] {
	return Plain[[]byte]{ByteString{n}}
}
