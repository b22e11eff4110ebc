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
package scenario

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/consensys/go-x86hoare/pkg/block"
	"github.com/consensys/go-x86hoare/pkg/hoare"
	"github.com/consensys/go-x86hoare/pkg/logic"
	"github.com/consensys/go-x86hoare/pkg/machine"
	"github.com/consensys/go-x86hoare/pkg/stmt"
	log "github.com/sirupsen/logrus"
)

// ORIGIN is the address at which every scenario is placed.
const ORIGIN = 0x400000

// DATA is the start of the data region mapped in every candidate.
const DATA = 0x600000

// DATA_LEN is the number of bytes in the data region.
const DATA_LEN = 64

// STACK is the start of the region used for locals and temporaries.
const STACK = 0x7f0000

// STACK_LEN is the number of bytes in the stack region.
const STACK_LEN = 512

// ErrUnknown arises when looking up a scenario which does not exist.
var ErrUnknown = errors.New("unknown scenario")

// Scenario is a named proof obligation.  The statement must meet its own
// contract from every candidate satisfying the precondition and, furthermore,
// the configuration it exits in must be related to the one it started from by
// the postcondition.
type Scenario struct {
	// Identifies the scenario on the command line
	Name string
	// One line description
	Summary string
	// Statement under test
	Stmt stmt.Stmt
	// Precondition on initial configurations
	Pre logic.StateP
	// Relation between initial and final configurations
	Post logic.Trans
	// Initial configurations to check from
	Candidates []machine.Config
}

// Context returns the outermost context of this scenario's statement.
func (p *Scenario) Context() (stmt.Context, error) {
	ctx := stmt.NewContext(stmt.NewLabels(0), block.Memory{Addr: STACK, Len: STACK_LEN})
	//
	return stmt.Outermost(p.Stmt, ctx, ORIGIN)
}

// Assemble this scenario's statement at the origin.
func (p *Scenario) Assemble() ([]byte, error) {
	ctx, err := p.Context()
	if err != nil {
		return nil, err
	}
	//
	return p.Stmt.Assemble(ctx, ORIGIN)
}

// Check discharges this scenario's obligation against a given step relation.
// The report accounts for the steps taken over both the contract of the
// statement, and its postcondition.
func (p *Scenario) Check(stepper hoare.Stepper, fuel uint) (hoare.Report, error) {
	ctx, err := p.Context()
	if err != nil {
		return hoare.Report{}, err
	}
	//
	report, err := stmt.Check(p.Stmt, ctx, ORIGIN, p.Pre, p.Candidates, stepper, fuel)
	//
	if err != nil || !report.Proved() {
		return report, err
	}
	//
	code, err := p.Stmt.Assemble(ctx, ORIGIN)
	if err != nil {
		return report, err
	}
	//
	live := logic.And(p.Pre, logic.Reserve(ctx.Footprint))
	//
	for _, k := range p.Candidates {
		start := Load(k, code)
		//
		if !live(start) {
			continue
		}
		//
		goal := func(k hoare.KConfig) bool {
			return ctx.Labels.IsExit(k.Rip) && p.Post.Holds(start, k.Config)
		}
		//
		r := hoare.HoareNoIO(logic.True(), goal, []hoare.KConfig{hoare.NewKConfig(start)}, stepper, fuel)
		report.Steps += r.Steps
		//
		if !r.Proved() {
			log.Debugf("%s: postcondition fails from %s", p.Name, start.String())
			//
			r.Steps = report.Steps
			//
			return r, nil
		}
	}
	//
	return report, nil
}

func (p *Scenario) String() string {
	return fmt.Sprintf("%s: %s", p.Name, p.Stmt)
}

// Load places code at the origin of a given configuration, ready to run.
func Load(k machine.Config, code []byte) machine.Config {
	k.Mem = k.Mem.Map(ORIGIN, code, machine.PERM_RX)
	k.Rip = ORIGIN
	//
	return k
}

// All returns every scenario in the library, sorted by name.
func All() []*Scenario {
	scenarios := library()
	//
	slices.SortFunc(scenarios, func(l, r *Scenario) int {
		return strings.Compare(l.Name, r.Name)
	})
	//
	return scenarios
}

// Lookup a scenario by name.
func Lookup(name string) (*Scenario, error) {
	for _, s := range library() {
		if s.Name == name {
			return s, nil
		}
	}
	//
	return nil, fmt.Errorf("%w: %s", ErrUnknown, name)
}
