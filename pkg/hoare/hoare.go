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
	"bytes"
	"fmt"

	"github.com/consensys/go-x86hoare/pkg/logic"
	log "github.com/sirupsen/logrus"
)

// Goal is a predicate over kernel configurations which a program is expected
// to eventually reach.
type Goal func(k KConfig) bool

// IOGoal is a goal which additionally receives the input consumed and the
// output produced since the start of execution.
type IOGoal func(consumed []byte, produced []byte, k KConfig) bool

// Verdict summarises the outcome of checking a judgment.
type Verdict uint8

const (
	// PROVED indicates the goal is reached along every path.
	PROVED Verdict = iota
	// REFUTED indicates some path cannot reach the goal.
	REFUTED
	// EXHAUSTED indicates some path ran out of fuel before reaching the goal,
	// and no path refutes it.
	EXHAUSTED
)

func (p Verdict) String() string {
	switch p {
	case PROVED:
		return "proved"
	case REFUTED:
		return "refuted"
	default:
		return "exhausted"
	}
}

// Report records the outcome of checking a judgment.
type Report struct {
	// Overall verdict
	Verdict Verdict
	// Number of steps taken across all paths
	Steps uint
	// Configuration responsible for the verdict (when not proved)
	Witness *KConfig
	// Explanation (when not proved)
	Reason string
}

// Proved determines whether this report indicates success.
func (p Report) Proved() bool {
	return p.Verdict == PROVED
}

func (p Report) String() string {
	if p.Verdict == PROVED {
		return fmt.Sprintf("%s (%d steps)", p.Verdict, p.Steps)
	}
	//
	return fmt.Sprintf("%s after %d steps: %s", p.Verdict, p.Steps, p.Reason)
}

// Eventually is the bounded unfolding of the judgment "the goal eventually
// holds", starting from a given configuration.  Every path is explored until
// one of the following:
//
// (1) the goal holds, in which case the path succeeds;
//
// (2) the machine exits with a non-zero code, in which case the path succeeds
// vacuously (abnormal termination is not held to the goal);
//
// (3) the machine exits with code zero, or is stuck, in which case the
// judgment is refuted;
//
// (4) the path exceeds the fuel, in which case it is exhausted.
//
// A path which steps succeeds only if every successor succeeds.  The fuel
// bounds the length of any single path, rather than the total work.
func Eventually(goal Goal, k KConfig, stepper Stepper, fuel uint) Report {
	type item struct {
		state KConfig
		depth uint
	}
	//
	var (
		worklist  = []item{{k, 0}}
		steps     uint
		exhausted *KConfig
	)
	//
	for len(worklist) > 0 {
		// Pop last item
		n := len(worklist) - 1
		ith := worklist[n]
		worklist = worklist[:n]
		// Case (1)
		if goal(ith.state) {
			continue
		} else if ith.depth >= fuel {
			// Case (4)
			if exhausted == nil {
				exhausted = &ith.state
			}
			//
			continue
		}
		//
		steps++
		//
		result := stepper.Step(ith.state)
		//
		switch {
		case result.Exited && result.Code != 0:
			// Case (2)
			continue
		case result.Exited:
			// Case (3)
			return refuted(steps, ith.state, "exited normally without reaching goal")
		case result.IsStuck():
			return refuted(steps, ith.state, "stuck")
		}
		//
		for _, next := range result.Next {
			worklist = append(worklist, item{next, ith.depth + 1})
		}
	}
	//
	if exhausted != nil {
		log.Debugf("out of fuel (%d) at %s", fuel, exhausted.String())
		//
		return Report{EXHAUSTED, steps, exhausted, fmt.Sprintf("fuel (%d) exhausted", fuel)}
	}
	//
	return Report{PROVED, steps, nil, ""}
}

func refuted(steps uint, k KConfig, reason string) Report {
	log.Debugf("refuted at %s: %s", k.String(), reason)
	//
	return Report{REFUTED, steps, &k, reason}
}

// Hoare checks the triple {pre} code {goal} over a finite set of candidate
// configurations (the code being whatever the candidates hold in memory at
// their instruction pointer).  Candidates which do not satisfy the
// precondition are ignored.  The first report which does not prove its goal is
// returned, otherwise a report summing all steps is returned.
func Hoare(pre logic.StateP, goal Goal, candidates []KConfig, stepper Stepper, fuel uint) Report {
	var total uint
	//
	for _, k := range candidates {
		if !pre(k.Config) {
			continue
		}
		//
		report := Eventually(goal, k, stepper, fuel)
		total += report.Steps
		//
		if !report.Proved() {
			report.Steps = total
			return report
		}
	}
	//
	return Report{PROVED, total, nil, ""}
}

// HoareIO checks a triple whose goal concerns input / output.  The triple
// quantifies over whatever the streams held initially (i.e. as given in each
// candidate): the goal receives exactly the input consumed and the output
// produced since then.  A path where the remaining input is not a suffix of
// the original input, or the original output is not a prefix of the final
// output, cannot satisfy the goal.
func HoareIO(pre logic.StateP, goal IOGoal, candidates []KConfig, stepper Stepper, fuel uint) Report {
	var total uint
	//
	for _, k := range candidates {
		if !pre(k.Config) {
			continue
		}
		//
		report := Eventually(framedGoal(k, goal), k, stepper, fuel)
		total += report.Steps
		//
		if !report.Proved() {
			report.Steps = total
			return report
		}
	}
	//
	return Report{PROVED, total, nil, ""}
}

// HoareNoIO checks a triple for code which performs no input / output.  That
// is, the goal must be reached without consuming any input or producing any
// output.
func HoareNoIO(pre logic.StateP, goal Goal, candidates []KConfig, stepper Stepper, fuel uint) Report {
	return HoareIO(pre, func(consumed []byte, produced []byte, k KConfig) bool {
		return len(consumed) == 0 && len(produced) == 0 && goal(k)
	}, candidates, stepper, fuel)
}

func framedGoal(start KConfig, goal IOGoal) Goal {
	return func(k KConfig) bool {
		if len(k.Input) > len(start.Input) || len(k.Output) < len(start.Output) {
			return false
		}
		//
		n := len(start.Input) - len(k.Input)
		//
		if !bytes.Equal(start.Input[n:], k.Input) || !bytes.Equal(start.Output, k.Output[:len(start.Output)]) {
			return false
		}
		//
		return goal(start.Input[:n], k.Output[len(start.Output):], k)
	}
}
