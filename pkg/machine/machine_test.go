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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const DATA = 0x1000

func Test_Flags_00(t *testing.T) {
	var f Flags
	//
	f = f.Set(ZF, true).Set(OF, true)
	assert.True(t, f.Get(ZF))
	assert.True(t, f.Get(OF))
	assert.False(t, f.Get(CF))
	assert.Equal(t, "cfZFsfOF", f.String())
	assert.False(t, f.Set(ZF, false).Get(ZF))
}

func Test_FlagSet_00(t *testing.T) {
	zf := FlagsWhere(func(f Flags) bool { return f.Get(ZF) })
	cf := FlagsWhere(func(f Flags) bool { return f.Get(CF) })
	//
	assert.Equal(t, uint(8), zf.Count())
	assert.Equal(t, uint(4), zf.Intersect(cf).Count())
	assert.Equal(t, uint(12), zf.Union(cf).Count())
	assert.Equal(t, ALL_FLAGS, zf.Union(FlagsWhere(func(f Flags) bool { return !f.Get(ZF) })))
	assert.True(t, zf.Intersect(FlagsWhere(func(f Flags) bool { return !f.Get(ZF) })).IsEmpty())
}

func Test_FlagSet_01(t *testing.T) {
	f := Flags(0).Set(SF, true)
	s := SingleFlags(f)
	//
	assert.True(t, s.Contains(f))
	assert.False(t, s.Contains(0))
	//
	w, ok := s.Witness()
	require.True(t, ok)
	assert.Equal(t, f, w)
	//
	_, ok = NO_FLAGS.Witness()
	assert.False(t, ok)
}

func Test_Footprint_00(t *testing.T) {
	var empty Footprint
	//
	a := NewFootprint(RegAt(RAX), FlagAt(CF))
	b := NewFootprint(RegAt(RAX), MemAt(DATA))
	//
	assert.True(t, empty.IsEmpty())
	assert.Equal(t, 0, empty.Len())
	assert.Equal(t, 3, a.Union(b).Len())
	assert.Equal(t, 1, a.Intersect(b).Len())
	assert.True(t, a.Difference(b).Contains(FlagAt(CF)))
	assert.False(t, a.Difference(b).Contains(RegAt(RAX)))
	assert.False(t, a.Disjoint(b))
	assert.True(t, a.Difference(b).Disjoint(b))
	assert.True(t, empty.Subset(a))
	assert.True(t, a.Intersect(b).Subset(a))
	assert.False(t, a.Subset(b))
}

func Test_Footprint_01(t *testing.T) {
	var empty Footprint
	// Operations on the zero value
	a := empty.Insert(RipAt())
	//
	assert.True(t, a.Contains(RipAt()))
	assert.True(t, empty.IsEmpty())
	assert.True(t, empty.Union(a).Contains(RipAt()))
	assert.True(t, empty.Disjoint(a))
	assert.Equal(t, 8, MemRange(DATA, 8).Len())
	assert.Equal(t, 4, FlagPlaces().Len())
	// Places are ordered
	places := NewFootprint(MemAt(DATA), RegAt(RBX), FlagAt(ZF), RegAt(RAX)).Places()
	assert.Equal(t, []Place{FlagAt(ZF), RegAt(RAX), RegAt(RBX), MemAt(DATA)}, places)
}

func Test_Memory_00(t *testing.T) {
	m := Memory(NewSparseMemory()).Map(DATA, []byte{1, 2}, PERM_READ)
	//
	v, ok := m.ReadByteAt(DATA+1, PERM_READ)
	assert.True(t, ok)
	assert.Equal(t, byte(2), v)
	// Not writable
	_, ok = m.WriteByteAt(DATA, 9)
	assert.False(t, ok)
	// Not executable
	_, ok = m.ReadByteAt(DATA, PERM_EXEC)
	assert.False(t, ok)
	// Not mapped
	_, ok = m.ReadByteAt(DATA+2, PERM_NONE)
	assert.False(t, ok)
	assert.False(t, m.Valid(DATA+2))
}

func Test_Memory_01(t *testing.T) {
	m1 := Memory(NewSparseMemory()).Map(DATA, []byte{1}, PERM_RW)
	m2, ok := m1.WriteByteAt(DATA, 7)
	require.True(t, ok)
	// Persistence
	v1, _ := m1.ReadByteAt(DATA, PERM_READ)
	v2, _ := m2.ReadByteAt(DATA, PERM_READ)
	assert.Equal(t, byte(1), v1)
	assert.Equal(t, byte(7), v2)
	//
	perm, ok := m2.Perm(DATA)
	require.True(t, ok)
	assert.Equal(t, PERM_RW, perm)
}

func Test_Config_00(t *testing.T) {
	k := NewConfig()
	k.Mem = k.Mem.Map(DATA, []byte{0}, PERM_RW)
	//
	for _, place := range []Place{FlagAt(OF), RegAt(R15), RipAt(), MemAt(DATA)} {
		k2, ok := k.Write(place, 0xff)
		require.True(t, ok, place.String())
		//
		w, v, ok := k2.Read(place)
		require.True(t, ok)
		assert.Equal(t, place.Width(), w)
		assert.Equal(t, uint64(0xff)&(1<<w-1), v)
		// Only the written place changed
		assert.True(t, StableOutside(k, k2, NewFootprint(place)))
		assert.False(t, Stable(k, k2, place))
	}
}

func Test_Config_01(t *testing.T) {
	k := NewConfig()
	k.Mem = k.Mem.Map(DATA, []byte{0}, PERM_READ)
	//
	_, ok := k.Write(MemAt(DATA), 1)
	assert.False(t, ok)
	//
	_, _, ok = k.Read(MemAt(DATA + 1))
	assert.False(t, ok)
}

func Test_Config_02(t *testing.T) {
	k1 := NewConfig()
	k1.Mem = k1.Mem.Map(DATA, []byte{0}, PERM_RW)
	// Changing a permission is a disturbance
	k2 := k1
	k2.Mem = k2.Mem.Map(DATA, []byte{0}, PERM_READ)
	//
	place, ok := UnstableOutside(k1, k2, NewFootprint())
	require.True(t, ok)
	assert.Equal(t, MemAt(DATA), place)
	// As is mapping a fresh address
	k3 := k1
	k3.Mem = k3.Mem.Map(DATA+1, []byte{0}, PERM_RW)
	assert.False(t, k1.Equal(k3))
	assert.True(t, StableOutside(k1, k3, NewFootprint(MemAt(DATA+1))))
	assert.True(t, k1.Equal(k1))
}

func Test_Config_03(t *testing.T) {
	k1 := NewConfig()
	k1.Mem = k1.Mem.Map(DATA, []byte{1, 2}, PERM_RW)
	//
	k2, _ := k1.Write(RegAt(RAX), 5)
	k2, _ = k2.Write(FlagAt(CF), 1)
	k2, _ = k2.Write(MemAt(DATA+1), 9)
	k2, _ = k2.Write(RipAt(), 0x40)
	//
	unstable := Unstable(k1, k2)
	assert.Equal(t, []Place{FlagAt(CF), RegAt(RAX), RipAt(), MemAt(DATA + 1)}, unstable.Places())
	assert.True(t, Unstable(k1, k1).IsEmpty())
	// Restoring every unstable place recovers the original
	assert.True(t, Restore(k2, k1, unstable).Equal(k1))
	// Restoring some leaves the rest
	k3 := Restore(k2, k1, NewFootprint(RegAt(RAX), MemAt(DATA+1)))
	assert.Equal(t, []Place{FlagAt(CF), RipAt()}, Unstable(k1, k3).Places())
}
