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
	"maps"
	"slices"
	"strings"

	"github.com/consensys/go-x86hoare/pkg/block"
	"github.com/consensys/go-x86hoare/pkg/machine"
)

// DEFAULT_FUEL is the default bound on the number of iterations of any loop
// which will be unrolled when computing the contract of a statement.
const DEFAULT_FUEL = 1024

// STACK_ALIGN is the alignment of every block allocated from the stack.
const STACK_ALIGN = 8

// SCRATCH is the set of registers clobbered by lowering.  These cannot be
// used by locals.
var SCRATCH = []machine.Reg{machine.RAX, machine.RCX}

// Label identifies a jump target by its position in the enclosing label
// context, where 0 is the innermost target.
type Label int

// FAIL is the label of the failure exit, which resolves to the outermost
// fallthrough address.
const FAIL Label = -1

func (l Label) String() string {
	if l == FAIL {
		return "fail"
	}
	//
	return fmt.Sprintf("%d", int(l))
}

// Labels describes the exits of a statement: its fallthrough address, a stack
// of jump targets (innermost first) and the failure address.  Labels are
// values, and nesting returns a fresh context.
type Labels struct {
	next    uint64
	targets []uint64
	fail    uint64
}

// NewLabels constructs an outermost label context with a given fallthrough
// address and targets (innermost first).  The failure address coincides with
// the fallthrough.
func NewLabels(next uint64, targets ...uint64) Labels {
	return Labels{next, slices.Clone(targets), next}
}

// Fallthrough returns the address where control continues after falling off
// the end of a statement.
func (p Labels) Fallthrough() uint64 {
	return p.next
}

// Fail returns the address of the failure exit.
func (p Labels) Fail() uint64 {
	return p.fail
}

// Cons nests a new label context within this one, with a given fallthrough and
// a new innermost target.  Every existing target moves one level out.
func (p Labels) Cons(next uint64, target uint64) Labels {
	targets := make([]uint64, 0, len(p.targets)+1)
	targets = append(targets, target)
	targets = append(targets, p.targets...)
	//
	return Labels{next, targets, p.fail}
}

// WithFallthrough returns this label context with a different fallthrough.
func (p Labels) WithFallthrough(next uint64) Labels {
	return Labels{next, p.targets, p.fail}
}

// Resolve determines the address of a given label.
func (p Labels) Resolve(l Label) (uint64, error) {
	switch {
	case l == FAIL:
		return p.fail, nil
	case l >= 0 && int(l) < len(p.targets):
		return p.targets[l], nil
	default:
		return 0, fmt.Errorf("%w: %s (%d in scope)", ErrLabel, l, len(p.targets))
	}
}

// Exits returns every address through which control may leave a statement in
// this context.
func (p Labels) Exits() []uint64 {
	exits := []uint64{p.next, p.fail}
	exits = append(exits, p.targets...)
	//
	slices.Sort(exits)
	//
	return slices.Compact(exits)
}

// IsExit determines whether a given address is an exit of this context.
func (p Labels) IsExit(addr uint64) bool {
	_, found := slices.BinarySearch(p.Exits(), addr)
	return found
}

func (p Labels) String() string {
	var builder strings.Builder
	//
	builder.WriteString(fmt.Sprintf("{fallthrough=0x%x", p.next))
	//
	for i, t := range p.targets {
		builder.WriteString(fmt.Sprintf(" %d=0x%x", i, t))
	}
	//
	builder.WriteString(fmt.Sprintf(" fail=0x%x}", p.fail))
	//
	return builder.String()
}

// LocalId identifies a local variable.
type LocalId uint

// Locals maps local identifiers to the blocks holding them.  Locals are
// values, and insertion returns a fresh map leaving the original unchanged.
type Locals struct {
	blocks map[LocalId]block.Block
}

// Insert binds a local to a given block, shadowing any existing binding.
func (p Locals) Insert(id LocalId, b block.Block) Locals {
	blocks := maps.Clone(p.blocks)
	//
	if blocks == nil {
		blocks = make(map[LocalId]block.Block)
	}
	//
	blocks[id] = b
	//
	return Locals{blocks}
}

// Lookup the block bound to a given local.
func (p Locals) Lookup(id LocalId) (block.Block, bool) {
	b, ok := p.blocks[id]
	return b, ok
}

// Context captures everything a statement needs from its surroundings: its
// exits, its locals, the footprint which must remain live, the stack region
// used for declarations and temporaries, and the bound on loop unrolling.
type Context struct {
	Labels Labels
	Locals Locals
	// Places required to remain live
	Footprint machine.Footprint
	// Region from which locals and temporaries are allocated
	Stack block.Memory
	// Bound on loop iterations
	Fuel uint
	// Offset of next free byte in stack
	sp uint64
}

// NewContext constructs a context with given labels and stack region, no
// locals and the default fuel.
func NewContext(labels Labels, stack block.Memory) Context {
	return Context{Labels: labels, Stack: stack, Fuel: DEFAULT_FUEL}
}

// WithLabels returns this context with different labels.
func (p Context) WithLabels(labels Labels) Context {
	p.Labels = labels
	return p
}

// WithLocal returns this context with a local bound to a given block.  Blocks
// overlapping a scratch register are rejected.
func (p Context) WithLocal(id LocalId, b block.Block) (Context, error) {
	if err := checkScratch(b); err != nil {
		return p, err
	}
	//
	p.Locals = p.Locals.Insert(id, b)
	//
	return p, nil
}

// Lookup the block bound to a given local.
func (p Context) Lookup(id LocalId) (block.Block, error) {
	b, ok := p.Locals.Lookup(id)
	//
	if !ok {
		return nil, fmt.Errorf("%w: x%d", ErrUnbound, id)
	}
	//
	return b, checkScratch(b)
}

// Alloc allocates a fresh block of a given size from the stack, returning the
// block and the context in which it is allocated.
func (p Context) Alloc(size uint64) (block.Memory, Context, error) {
	aligned := (size + STACK_ALIGN - 1) / STACK_ALIGN * STACK_ALIGN
	//
	if p.sp+aligned > p.Stack.Len {
		return block.Memory{}, p, fmt.Errorf("%w: %d bytes requested, %d remaining", ErrStack, size,
			p.Stack.Len-p.sp)
	}
	//
	b := block.Memory{Addr: p.Stack.Addr + p.sp, Len: size}
	p.sp += aligned
	//
	return b, p, nil
}

func checkScratch(b block.Block) error {
	for _, r := range SCRATCH {
		if b.Footprint().Contains(machine.RegAt(r)) {
			return fmt.Errorf("%w: %s", ErrScratch, b)
		}
	}
	//
	return nil
}
