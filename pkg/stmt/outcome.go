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

	"github.com/consensys/go-x86hoare/pkg/block"
	"github.com/consensys/go-x86hoare/pkg/machine"
)

// Outcome describes a set of configurations abstractly.  A configuration
// belongs to the outcome when its flags lie within the flag set, and it agrees
// with the representative configuration at every place outside the havoc
// footprint and the flags.  Havoc'd memory must still agree in validity and
// permission, only its contents are unknown.  Outcomes are what statements
// produce as their contract: every exit state of the statement's code must
// belong to one of them.
type Outcome struct {
	// Representative configuration
	Config machine.Config
	// Possible flag vectors
	Flags machine.FlagSet
	// Places whose values are unknown
	Havoc machine.Footprint
}

// Exact constructs the outcome containing exactly one configuration.
func Exact(k machine.Config) Outcome {
	return Outcome{k, machine.SingleFlags(k.Flags), machine.NewFootprint()}
}

// Admits determines whether a given configuration belongs to this outcome.
func (p Outcome) Admits(k machine.Config) bool {
	if !p.Flags.Contains(k.Flags) {
		return false
	} else if !machine.StableOutside(p.Config, k, p.Havoc.Union(machine.FlagPlaces())) {
		return false
	}
	// Havoc'd memory must retain its permissions
	for _, place := range p.Havoc.Places() {
		if place.Kind != machine.MEM_PLACE {
			continue
		}
		//
		p1, ok1 := p.Config.Mem.Perm(place.Index)
		p2, ok2 := k.Mem.Perm(place.Index)
		//
		if ok1 != ok2 || p1 != p2 {
			return false
		}
	}
	//
	return true
}

// At returns this outcome with the instruction pointer set to a given
// address.
func (p Outcome) At(rip uint64) Outcome {
	p.Config.Rip = rip
	return p
}

// WithFlags returns this outcome restricted to a given set of flag vectors.
func (p Outcome) WithFlags(flags machine.FlagSet) Outcome {
	p.Flags = flags
	return p
}

// Clobber returns this outcome where the given places are havoc'd.
func (p Outcome) Clobber(places machine.Footprint) Outcome {
	p.Havoc = p.Havoc.Union(places)
	return p
}

// IsEmpty determines whether this outcome describes no configurations at all.
func (p Outcome) IsEmpty() bool {
	return p.Flags.IsEmpty()
}

// Read the contents of a block, which must be readable and not overlap any
// havoc'd place.
func (p Outcome) Read(b block.Block) ([]byte, error) {
	if err := p.constrained(b.Footprint()); err != nil {
		return nil, err
	}
	//
	bytes, ok := b.Read(p.Config)
	//
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRead, b)
	}
	//
	return bytes, nil
}

// Write the contents of a block.
func (p Outcome) Write(b block.Block, bytes []byte) (Outcome, error) {
	return p.Update(b, func(k machine.Config) (machine.Config, bool) {
		return b.Write(k, bytes)
	})
}

// Update a block using a given write function (e.g. a typed write).  Places of
// the block which are completely determined by the write are no longer
// havoc'd.
func (p Outcome) Update(b block.Block, write func(machine.Config) (machine.Config, bool)) (Outcome, error) {
	k, ok := write(p.Config)
	//
	if !ok {
		return p, fmt.Errorf("%w: %s", ErrWrite, b)
	}
	//
	p.Config = k
	// Narrow writes to a register leave its upper bytes as they were
	if r, isReg := b.(block.Register); !isReg || r.Width >= 4 {
		p.Havoc = p.Havoc.Difference(b.Footprint())
	}
	//
	return p, nil
}

// Equal determines whether two outcomes are identical.
func (p Outcome) Equal(q Outcome) bool {
	return p.Flags == q.Flags && p.Havoc.Subset(q.Havoc) && q.Havoc.Subset(p.Havoc) && p.Config.Equal(q.Config)
}

// EqualModulo determines whether two outcomes describe the same
// configurations at every place outside a given footprint.  Flags are ignored
// only when the footprint covers all of them.
func (p Outcome) EqualModulo(q Outcome, places machine.Footprint) bool {
	var (
		ph = p.Havoc.Difference(places)
		qh = q.Havoc.Difference(places)
	)
	//
	if !machine.FlagPlaces().Subset(places) && p.Flags != q.Flags {
		return false
	} else if !ph.Subset(qh) || !qh.Subset(ph) {
		return false
	}
	//
	return machine.StableOutside(p.Config, q.Config, places.Union(ph, machine.FlagPlaces()))
}

func (p Outcome) String() string {
	return fmt.Sprintf("%s flags=%016b havoc=%s", p.Config.String(), uint16(p.Flags), p.Havoc.String())
}

// constrained checks a footprint does not overlap any havoc'd place.
func (p Outcome) constrained(places machine.Footprint) error {
	if overlap := p.Havoc.Intersect(places); !overlap.IsEmpty() {
		return fmt.Errorf("%w: %s", ErrUnconstrained, overlap.String())
	}
	//
	return nil
}

// mergeOutcomes appends outcomes onto a list, dropping empty outcomes and
// duplicates.
func mergeOutcomes(outcomes []Outcome, more ...Outcome) []Outcome {
	for _, o := range more {
		if o.IsEmpty() || containsOutcome(outcomes, o) {
			continue
		}
		//
		outcomes = append(outcomes, o)
	}
	//
	return outcomes
}

func containsOutcome(outcomes []Outcome, o Outcome) bool {
	for _, ith := range outcomes {
		if ith.Equal(o) {
			return true
		}
	}
	//
	return false
}
