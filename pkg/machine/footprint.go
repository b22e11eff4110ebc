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
	"cmp"
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// Footprint is a finite set of places.  Footprints are treated as immutable
// values: all operations return fresh footprints.  The zero value is a valid
// empty footprint.
type Footprint struct {
	set mapset.Set[Place]
}

// NewFootprint constructs a footprint from zero or more places.
func NewFootprint(places ...Place) Footprint {
	return Footprint{mapset.NewThreadUnsafeSet(places...)}
}

// MemRange constructs the footprint covering n bytes of memory starting from a
// given address.
func MemRange(addr uint64, n uint64) Footprint {
	places := make([]Place, n)
	//
	for i := range n {
		places[i] = MemAt(addr + i)
	}
	//
	return NewFootprint(places...)
}

// FlagPlaces returns the footprint of all status flags.
func FlagPlaces() Footprint {
	return NewFootprint(FlagAt(CF), FlagAt(ZF), FlagAt(SF), FlagAt(OF))
}

// Len returns the number of places in this footprint.
func (p Footprint) Len() int {
	if p.set == nil {
		return 0
	}
	//
	return p.set.Cardinality()
}

// IsEmpty checks whether this footprint contains no places.
func (p Footprint) IsEmpty() bool {
	return p.Len() == 0
}

// Contains checks whether a given place is within this footprint.
func (p Footprint) Contains(place Place) bool {
	return p.set != nil && p.set.Contains(place)
}

// Insert returns this footprint extended with zero or more places.
func (p Footprint) Insert(places ...Place) Footprint {
	r := p.clone()
	//
	for _, place := range places {
		r.set.Add(place)
	}
	//
	return r
}

// Union returns the union of this footprint with zero or more others.
func (p Footprint) Union(others ...Footprint) Footprint {
	r := p.clone()
	//
	for _, q := range others {
		if q.set != nil {
			r.set = r.set.Union(q.set)
		}
	}
	//
	return r
}

// Intersect returns the places common to both footprints.
func (p Footprint) Intersect(q Footprint) Footprint {
	if p.set == nil || q.set == nil {
		return NewFootprint()
	}
	//
	return Footprint{p.set.Intersect(q.set)}
}

// Difference returns the places of this footprint not in the other.
func (p Footprint) Difference(q Footprint) Footprint {
	if q.set == nil {
		return p.clone()
	}
	//
	return Footprint{p.clone().set.Difference(q.set)}
}

// Disjoint checks whether two footprints have no place in common.  Disjoint
// footprints are said to be compatible.
func (p Footprint) Disjoint(q Footprint) bool {
	// Iterate the smaller one
	if p.Len() > q.Len() {
		p, q = q, p
	}
	//
	for _, place := range p.Places() {
		if q.Contains(place) {
			return false
		}
	}
	//
	return true
}

// Subset checks whether every place of this footprint is in the other.
func (p Footprint) Subset(q Footprint) bool {
	for _, place := range p.Places() {
		if !q.Contains(place) {
			return false
		}
	}
	//
	return true
}

// Places returns the places of this footprint in a deterministic order.
func (p Footprint) Places() []Place {
	if p.set == nil {
		return nil
	}
	//
	places := p.set.ToSlice()
	//
	slices.SortFunc(places, func(l, r Place) int {
		if c := cmp.Compare(l.Kind, r.Kind); c != 0 {
			return c
		}
		//
		return cmp.Compare(l.Index, r.Index)
	})
	//
	return places
}

func (p Footprint) String() string {
	var builder strings.Builder
	//
	builder.WriteString("{")
	//
	for i, place := range p.Places() {
		if i != 0 {
			builder.WriteString(", ")
		}
		//
		builder.WriteString(place.String())
	}
	//
	builder.WriteString("}")
	//
	return builder.String()
}

func (p Footprint) clone() Footprint {
	if p.set == nil {
		return NewFootprint()
	}
	//
	return Footprint{p.set.Clone()}
}
