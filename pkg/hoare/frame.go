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
package hoare

import (
	"errors"
	"fmt"

	"github.com/consensys/go-x86hoare/pkg/logic"
	"github.com/consensys/go-x86hoare/pkg/machine"
)

// ErrFrameOverlap arises when the frame rule is applied to a predicate whose
// footprint overlaps the frame of the transition.
var ErrFrameOverlap = errors.New("predicate footprint overlaps frame")

// ErrFrameRule arises when a predicate over untouched places does not survive
// a transition.
var ErrFrameRule = errors.New("frame rule violated")

// FrameRule checks the frame rule over a set of samples.  Suppose transition q
// only disturbs places within frame, and predicate p only observes places
// within over, where frame and over are disjoint.  Then p must survive q: for
// every sample satisfying p, every configuration related by q also satisfies
// p.  The transition must be enumerable.
func FrameRule(q logic.Trans, frame machine.Footprint, p logic.StateP, over machine.Footprint,
	samples []machine.Config) error {
	//
	if !frame.Disjoint(over) {
		return fmt.Errorf("%w: %s", ErrFrameOverlap, frame.Intersect(over))
	}
	//
	if err := logic.CheckFrame(q, frame, samples); err != nil {
		return err
	}
	//
	for _, k1 := range samples {
		if !p(k1) {
			continue
		}
		//
		post, _ := q.Post(k1)
		//
		for _, k2 := range post {
			if !p(k2) {
				return fmt.Errorf("%w: from %s to %s", ErrFrameRule, k1.String(), k2.String())
			}
		}
	}
	//
	return nil
}
