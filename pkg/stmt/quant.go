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
	"bytes"
	"errors"
	"fmt"

	"github.com/consensys/go-x86hoare/pkg/logic"
	"github.com/consensys/go-x86hoare/pkg/machine"
)

// ============================================================================
// Ex / All
// ============================================================================

// QuantStmt is a family of statements sharing a single encoding.  An
// existential family holds when some member does, whilst a universal family
// holds when every member does.
type QuantStmt struct {
	Members   []Stmt
	Universal bool
}

// Ex constructs the existential quantification of a statement family over a
// finite domain.
func Ex[T any](dom []T, fn func(T) Stmt) *QuantStmt {
	return &QuantStmt{family(dom, fn), false}
}

// All constructs the universal quantification of a statement family over a
// finite domain.
func All[T any](dom []T, fn func(T) Stmt) *QuantStmt {
	return &QuantStmt{family(dom, fn), true}
}

func family[T any](dom []T, fn func(T) Stmt) []Stmt {
	members := make([]Stmt, len(dom))
	//
	for i, v := range dom {
		members[i] = fn(v)
	}
	//
	return members
}

// Len implementation for Stmt interface.  An existential family takes the
// length of its first member which can be lowered.
func (s *QuantStmt) Len(ctx Context) (uint64, error) {
	var errs []error
	//
	if len(s.Members) == 0 {
		return 0, fmt.Errorf("%w: empty family", ErrEncoding)
	} else if s.Universal {
		return s.Members[0].Len(ctx)
	}
	//
	for _, m := range s.Members {
		n, err := m.Len(ctx)
		if err == nil {
			return n, nil
		}
		//
		errs = append(errs, err)
	}
	//
	return 0, errors.Join(errs...)
}

// Assemble implementation for Stmt interface.  Every member must have the same
// encoding, except that members of an existential family which cannot be
// assembled are ignored (provided at least one can).
func (s *QuantStmt) Assemble(ctx Context, origin uint64) ([]byte, error) {
	var (
		encoding []byte
		first    Stmt
		errs     []error
	)
	//
	if len(s.Members) == 0 {
		return nil, fmt.Errorf("%w: empty family", ErrEncoding)
	}
	//
	for _, m := range s.Members {
		ith, err := m.Assemble(ctx, origin)
		//
		switch {
		case err != nil && s.Universal:
			return nil, err
		case err != nil:
			errs = append(errs, err)
		case first == nil:
			encoding, first = ith, m
		case !bytes.Equal(encoding, ith):
			return nil, fmt.Errorf("%w: %s and %s", ErrEncoding, first, m)
		}
	}
	//
	if first == nil {
		return nil, errors.Join(errs...)
	}
	//
	return encoding, nil
}

// Exec implementation for Stmt interface.  For an existential family, the
// outcomes of every member which holds are combined.  For a universal family,
// every member must hold and the outcomes of the first are reported.
func (s *QuantStmt) Exec(ctx Context, origin uint64, pre Outcome) ([]Outcome, error) {
	var (
		outcomes []Outcome
		errs     []error
		holds    bool
	)
	//
	if len(s.Members) == 0 {
		return nil, fmt.Errorf("%w: empty family", ErrEncoding)
	}
	//
	for i, m := range s.Members {
		outs, err := m.Exec(ctx, origin, pre)
		//
		switch {
		case err != nil && s.Universal:
			return nil, err
		case err != nil:
			errs = append(errs, err)
		case s.Universal && i > 0:
			continue
		default:
			holds = true
			outcomes = mergeOutcomes(outcomes, outs...)
		}
	}
	//
	if !holds {
		return nil, errors.Join(errs...)
	}
	//
	return outcomes, nil
}

// Frame implementation for Stmt interface.  A universal family disturbs only
// what every member disturbs, whilst an existential one may disturb anything
// some (lowerable) member does.
func (s *QuantStmt) Frame(ctx Context) (machine.Footprint, error) {
	var (
		frame machine.Footprint
		found bool
		errs  []error
	)
	//
	for _, m := range s.Members {
		f, err := m.Frame(ctx)
		//
		switch {
		case err != nil && s.Universal:
			return frame, err
		case err != nil:
			errs = append(errs, err)
		case !found:
			frame, found = f, true
		case s.Universal:
			frame = frame.Intersect(f)
		default:
			frame = frame.Union(f)
		}
	}
	//
	if !found && len(errs) > 0 {
		return frame, errors.Join(errs...)
	}
	//
	return frame.Union(baseFrame()), nil
}

func (s *QuantStmt) String() string {
	if s.Universal {
		return fmt.Sprintf("all { %s }", stmtsString(s.Members))
	}
	//
	return fmt.Sprintf("ex { %s }", stmtsString(s.Members))
}

// ============================================================================
// Stabilize
// ============================================================================

// StabilizeStmt requires a set of places to be live both before and after its
// body, and adds them to the footprint of its body.
type StabilizeStmt struct {
	Places machine.Footprint
	Body   Stmt
}

// Stabilize constructs a statement keeping a given footprint live across its
// body.
func Stabilize(places machine.Footprint, body Stmt) *StabilizeStmt {
	return &StabilizeStmt{places, body}
}

// Len implementation for Stmt interface.
func (s *StabilizeStmt) Len(ctx Context) (uint64, error) {
	return s.Body.Len(s.inner(ctx))
}

// Assemble implementation for Stmt interface.
func (s *StabilizeStmt) Assemble(ctx Context, origin uint64) ([]byte, error) {
	return s.Body.Assemble(s.inner(ctx), origin)
}

// Exec implementation for Stmt interface.
func (s *StabilizeStmt) Exec(ctx Context, origin uint64, pre Outcome) ([]Outcome, error) {
	live := logic.Reserve(s.Places)
	//
	if !live(pre.Config) {
		return nil, fmt.Errorf("%w: %s not live on entry", ErrRead, s.Places)
	}
	//
	outcomes, err := s.Body.Exec(s.inner(ctx), origin, pre)
	if err != nil {
		return nil, err
	}
	//
	for _, o := range outcomes {
		if !live(o.Config) {
			return nil, fmt.Errorf("%w: %s not live at 0x%x", ErrRead, s.Places, o.Config.Rip)
		}
	}
	//
	return outcomes, nil
}

// Frame implementation for Stmt interface.
func (s *StabilizeStmt) Frame(ctx Context) (machine.Footprint, error) {
	return s.Body.Frame(s.inner(ctx))
}

func (s *StabilizeStmt) String() string {
	return fmt.Sprintf("stabilize %s { %s }", s.Places, s.Body)
}

func (s *StabilizeStmt) inner(ctx Context) Context {
	ctx.Footprint = ctx.Footprint.Union(s.Places)
	return ctx
}
