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
	"github.com/consensys/go-x86hoare/pkg/hoare"
	"github.com/consensys/go-x86hoare/pkg/logic"
	"github.com/consensys/go-x86hoare/pkg/machine"
	log "github.com/sirupsen/logrus"
)

// Check discharges the proof obligation of a statement against a step
// relation, for every candidate configuration satisfying a precondition.  The
// statement is assembled and placed at the origin (readable and executable),
// and execution starts there.  Its contract is computed from the candidate,
// and the code must then reach an exit of the label context in some outcome of
// the contract, without performing any input or output.  Candidates in which
// the footprint of the context is not live are ignored.  An error indicates
// the contract could not be computed for some candidate.
func Check(s Stmt, ctx Context, origin uint64, pre logic.StateP, candidates []machine.Config,
	stepper hoare.Stepper, fuel uint) (hoare.Report, error) {
	var total uint
	//
	code, err := s.Assemble(ctx, origin)
	if err != nil {
		return hoare.Report{}, err
	}
	//
	log.Debugf("assembled %d bytes at 0x%x: %s", len(code), origin, s)
	//
	live := logic.And(pre, logic.Reserve(ctx.Footprint))
	//
	for i, k := range candidates {
		k.Mem = k.Mem.Map(origin, code, machine.PERM_RX)
		k.Rip = origin
		//
		if !live(k) {
			log.Debugf("candidate %d does not satisfy precondition", i)
			continue
		}
		//
		outcomes, err := s.Exec(ctx, origin, Exact(k))
		if err != nil {
			return hoare.Report{}, err
		}
		//
		log.Debugf("candidate %d has %d outcome(s)", i, len(outcomes))
		//
		report := hoare.HoareNoIO(logic.True(), Admitted(outcomes), []hoare.KConfig{hoare.NewKConfig(k)},
			stepper, fuel)
		total += report.Steps
		//
		if !report.Proved() {
			report.Steps = total
			return report, nil
		}
	}
	//
	return hoare.Report{Verdict: hoare.PROVED, Steps: total}, nil
}

// Admitted constructs the goal which holds for configurations admitted by some
// outcome.
func Admitted(outcomes []Outcome) hoare.Goal {
	return func(k hoare.KConfig) bool {
		for _, o := range outcomes {
			if o.Admits(k.Config) {
				return true
			}
		}
		//
		return false
	}
}

// Outermost returns a context for a statement placed at a given origin, whose
// fallthrough (and failure exit) is the address just after its code.
func Outermost(s Stmt, ctx Context, origin uint64) (Context, error) {
	n, err := s.Len(ctx)
	//
	return ctx.WithLabels(NewLabels(origin + n)), err
}
