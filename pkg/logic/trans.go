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
package logic

import (
	"fmt"

	"github.com/consensys/go-x86hoare/pkg/machine"
)

// Trans is a predicate relating a configuration before some effect with a
// configuration after it.  A transition always decides membership (Holds).
// In addition, a transition may be enumerable, meaning it can produce every
// configuration related to a given one (Post).  Enumerability is what allows
// existential quantification over intermediate configurations (e.g. in
// relational composition) to be computed by search rather than stated.
type Trans struct {
	holds func(k1, k2 machine.Config) bool
	post  func(k machine.Config) []machine.Config
	// Operands of a composition whose left operand is not enumerable
	split *composite
}

type composite struct {
	head Trans
	tail Trans
}

// Relation constructs a non-enumerable transition from a membership test.
func Relation(holds func(k1, k2 machine.Config) bool) Trans {
	return Trans{holds, nil, nil}
}

// Enumerable constructs a transition from a witness producer.  Membership is
// then derived: k1 and k2 are related if k2 is amongst the witnesses of k1.
func Enumerable(post func(k machine.Config) []machine.Config) Trans {
	holds := func(k1, k2 machine.Config) bool {
		return containsConfig(post(k1), k2)
	}
	//
	return Trans{holds, post, nil}
}

// Effect constructs a transition from a deterministic partial function.
func Effect(fn func(k machine.Config) (machine.Config, bool)) Trans {
	return Enumerable(func(k machine.Config) []machine.Config {
		if k2, ok := fn(k); ok {
			return []machine.Config{k2}
		}
		//
		return nil
	})
}

// Holds checks whether two configurations are related by this transition.
func (p Trans) Holds(k1, k2 machine.Config) bool {
	return p.holds(k1, k2)
}

// Post returns every configuration related to a given configuration, or false
// if this transition is not enumerable.
func (p Trans) Post(k machine.Config) ([]machine.Config, bool) {
	if p.post == nil {
		return nil, false
	}
	//
	return p.post(k), true
}

// IsEnumerable determines whether this transition can produce witnesses.
func (p Trans) IsEnumerable() bool {
	return p.post != nil
}

// ============================================================================
// Lattice
// ============================================================================

// Id relates every configuration to itself, and nothing else.  This is the
// identity of relational composition.
func Id() Trans {
	return Enumerable(func(k machine.Config) []machine.Config {
		return []machine.Config{k}
	})
}

// Top relates every pair of configurations.
func Top() Trans {
	return Relation(func(machine.Config, machine.Config) bool { return true })
}

// Bottom relates no configurations.
func Bottom() Trans {
	return Enumerable(func(machine.Config) []machine.Config { return nil })
}

// Meet relates two configurations when both transitions do.  The result is
// enumerable if either argument is.
func Meet(a, b Trans) Trans {
	holds := func(k1, k2 machine.Config) bool {
		return a.holds(k1, k2) && b.holds(k1, k2)
	}
	// Enumerate whichever side can be, and filter with the other
	if !a.IsEnumerable() {
		a, b = b, a
	}
	//
	if !a.IsEnumerable() {
		return Relation(holds)
	}
	//
	return Trans{holds, func(k machine.Config) []machine.Config {
		return filterConfigs(a.post(k), func(k2 machine.Config) bool { return b.holds(k, k2) })
	}, nil}
}

// Join relates two configurations when either transition does.  The result
// is enumerable only when both arguments are.
func Join(a, b Trans) Trans {
	holds := func(k1, k2 machine.Config) bool {
		return a.holds(k1, k2) || b.holds(k1, k2)
	}
	//
	if !a.IsEnumerable() || !b.IsEnumerable() {
		return Relation(holds)
	}
	//
	return Trans{holds, func(k machine.Config) []machine.Config {
		return unionConfigs(a.post(k), b.post(k))
	}, nil}
}

// Ex relates two configurations when some member of a transition family,
// indexed over a finite domain, does.
func Ex[T any](dom []T, fn func(T) Trans) Trans {
	var result = Bottom()
	//
	for _, x := range dom {
		result = Join(result, fn(x))
	}
	//
	return result
}

// All relates two configurations when every member of a transition family,
// indexed over a finite domain, does.
func All[T any](dom []T, fn func(T) Trans) Trans {
	var result = Top()
	//
	for _, x := range dom {
		result = Meet(result, fn(x))
	}
	//
	return result
}

// Comp is the relational composition of zero or more transitions, such that
// k1 and k3 are related if there exists some k2 with a(k1, k2) and b(k2, k3).
// Composition is associative with identity Id.  When the left operand is
// enumerable, witnesses for the intermediate configuration are found by
// search.  Otherwise, they are sought amongst a finite set of candidates
// derived from the endpoints (see intermediates), and the result is not
// enumerable.
func Comp(trans ...Trans) Trans {
	if len(trans) == 0 {
		return Id()
	}
	//
	result := trans[0]
	//
	for _, next := range trans[1:] {
		result = comp2(result, next)
	}
	//
	return result
}

func comp2(a, b Trans) Trans {
	if !a.IsEnumerable() {
		// Reassociate so the enumerable tail is composed first
		if a.split != nil {
			return comp2(a.split.head, comp2(a.split.tail, b))
		}
		//
		result := Relation(func(k1, k3 machine.Config) bool {
			for _, k2 := range intermediates(k1, k3, b) {
				if a.holds(k1, k2) && b.holds(k2, k3) {
					return true
				}
			}
			//
			return false
		})
		result.split = &composite{a, b}
		//
		return result
	}
	//
	holds := func(k1, k3 machine.Config) bool {
		for _, k2 := range a.post(k1) {
			if b.holds(k2, k3) {
				return true
			}
		}
		//
		return false
	}
	//
	if !b.IsEnumerable() {
		return Relation(holds)
	}
	//
	return Trans{holds, func(k1 machine.Config) []machine.Config {
		var result []machine.Config
		//
		for _, k2 := range a.post(k1) {
			result = unionConfigs(result, b.post(k2))
		}
		//
		return result
	}, nil}
}

// ============================================================================
// Primitive transitions
// ============================================================================

// WritePlace is the transition which writes a value into a given place,
// leaving everything else unchanged.  It relates nothing when the write fails.
func WritePlace(place machine.Place, val uint64) Trans {
	return Effect(func(k machine.Config) (machine.Config, bool) {
		return k.Write(place, val)
	})
}

// SetRip is the transition which moves the instruction pointer to a given
// address.
func SetRip(addr uint64) Trans {
	return WritePlace(machine.RipAt(), addr)
}

// Stabilizes relates two configurations which agree on every place in the
// footprint.
func Stabilizes(places machine.Footprint) Trans {
	return Relation(func(k1, k2 machine.Config) bool {
		return machine.StableAt(k1, k2, places)
	})
}

// ============================================================================
// Images & Frames
// ============================================================================

// Apply computes the post-image of a state predicate under a transition,
// restricted to a finite set of candidate pre-states.  That is, it returns
// every configuration k2 such that Q(k1, k2) for some candidate k1 satisfying
// P.
func Apply(q Trans, p StateP, candidates []machine.Config) ([]machine.Config, error) {
	var result []machine.Config
	//
	for _, k1 := range candidates {
		if !p(k1) {
			continue
		}
		//
		post, ok := q.Post(k1)
		//
		if !ok {
			return nil, ErrNotEnumerable
		}
		//
		result = unionConfigs(result, post)
	}
	//
	return result, nil
}

// Exterior computes the largest sub-footprint of a given universe at which
// every sampled pair of configurations related by the transition is stable.
// The universe must be supplied, since the set of all places is unbounded.
func Exterior(q Trans, samples []machine.Config, universe machine.Footprint) (machine.Footprint, error) {
	var unstable = machine.NewFootprint()
	//
	for _, k1 := range samples {
		post, ok := q.Post(k1)
		//
		if !ok {
			return unstable, ErrNotEnumerable
		}
		//
		for _, k2 := range post {
			for _, place := range universe.Places() {
				if !machine.Stable(k1, k2, place) {
					unstable = unstable.Insert(place)
				}
			}
		}
	}
	//
	return universe.Difference(unstable), nil
}

// CheckFrame checks the frame law for a transition over some sample
// configurations: every pair related by the transition must be stable outside
// the given frame.
func CheckFrame(q Trans, frame machine.Footprint, samples []machine.Config) error {
	for _, k1 := range samples {
		post, ok := q.Post(k1)
		//
		if !ok {
			return ErrNotEnumerable
		}
		//
		for _, k2 := range post {
			if place, bad := machine.UnstableOutside(k1, k2, frame); bad {
				return fmt.Errorf("%w: %s changed outside frame %s", ErrFrame, place, frame)
			}
		}
	}
	//
	return nil
}

// ============================================================================
// Helpers
// ============================================================================

// intermediates returns candidate configurations k2 for which b(k2, k3) may
// hold, given the outer endpoints k1 and k3.  These are the endpoints
// themselves and, where b is enumerable, k3 with every place that b writes
// (when started from k1) restored to its value in k1.  This finds a witness
// whenever the left operand constrains the intermediate only through the
// stability of places, as for Top and Stabilizes.
func intermediates(k1, k3 machine.Config, b Trans) []machine.Config {
	candidates := []machine.Config{k3, k1}
	//
	if post, ok := b.Post(k1); ok {
		for _, k := range post {
			written := machine.Unstable(k1, k)
			candidates = unionConfigs(candidates, []machine.Config{machine.Restore(k3, k1, written)})
		}
	}
	//
	return candidates
}

func containsConfig(configs []machine.Config, k machine.Config) bool {
	for _, c := range configs {
		if c.Equal(k) {
			return true
		}
	}
	//
	return false
}

func unionConfigs(left []machine.Config, right []machine.Config) []machine.Config {
	for _, k := range right {
		if !containsConfig(left, k) {
			left = append(left, k)
		}
	}
	//
	return left
}

func filterConfigs(configs []machine.Config, pred func(machine.Config) bool) []machine.Config {
	var result []machine.Config
	//
	for _, k := range configs {
		if pred(k) {
			result = append(result, k)
		}
	}
	//
	return result
}
