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

import "github.com/consensys/go-x86hoare/pkg/machine"

// StateP is a predicate over a single configuration.
type StateP func(k machine.Config) bool

// True is the predicate which holds for every configuration.
func True() StateP {
	return func(machine.Config) bool { return true }
}

// False is the predicate which holds for no configuration.
func False() StateP {
	return func(machine.Config) bool { return false }
}

// And holds when all of the given predicates hold.  The conjunction of zero
// predicates is True.
func And(preds ...StateP) StateP {
	return func(k machine.Config) bool {
		for _, p := range preds {
			if !p(k) {
				return false
			}
		}
		//
		return true
	}
}

// Or holds when some given predicate holds.  The disjunction of zero
// predicates is False.
func Or(preds ...StateP) StateP {
	return func(k machine.Config) bool {
		for _, p := range preds {
			if p(k) {
				return true
			}
		}
		//
		return false
	}
}

// Not holds when the given predicate does not.
func Not(pred StateP) StateP {
	return func(k machine.Config) bool {
		return !pred(k)
	}
}

// ExS holds when the predicate family holds for some value in a given domain.
func ExS[T any](dom []T, fn func(T) StateP) StateP {
	return func(k machine.Config) bool {
		for _, x := range dom {
			if fn(x)(k) {
				return true
			}
		}
		//
		return false
	}
}

// AllS holds when the predicate family holds for every value in a given domain.
func AllS[T any](dom []T, fn func(T) StateP) StateP {
	return func(k machine.Config) bool {
		for _, x := range dom {
			if !fn(x)(k) {
				return false
			}
		}
		//
		return true
	}
}

// Reserve holds when every place in a footprint currently denotes some readable
// value, irrespective of what that value is.  This captures the notion that a
// set of registers and memory is "live".
func Reserve(places machine.Footprint) StateP {
	return func(k machine.Config) bool {
		for _, place := range places.Places() {
			if _, _, ok := k.Read(place); !ok {
				return false
			}
		}
		//
		return true
	}
}

// PlaceIs holds when a given place currently reads as a given value.
func PlaceIs(place machine.Place, val uint64) StateP {
	return func(k machine.Config) bool {
		_, v, ok := k.Read(place)
		return ok && v == val
	}
}
