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

	"github.com/consensys/go-x86hoare/pkg/machine"
)

// KConfig is a "kernel" configuration: a machine configuration together with
// the state of its input and output streams.  Input holds what remains to be
// consumed, whilst Output holds everything produced so far.  Streams evolve
// monotonically: input is only ever consumed from the front, and output is
// only ever appended to.
type KConfig struct {
	machine.Config
	// Remaining input
	Input []byte
	// Output produced so far
	Output []byte
}

// NewKConfig wraps a machine configuration with empty streams.
func NewKConfig(k machine.Config) KConfig {
	return KConfig{Config: k}
}

// Equal checks whether two kernel configurations are identical.
func (p KConfig) Equal(q KConfig) bool {
	return p.Config.Equal(q.Config) && bytes.Equal(p.Input, q.Input) && bytes.Equal(p.Output, q.Output)
}

func (p KConfig) String() string {
	return fmt.Sprintf("%s in=%d out=%d", p.Config.String(), len(p.Input), len(p.Output))
}

// Result describes what can happen when a kernel configuration takes a step.
// Either it has one or more successors, or it has terminated with a return
// code.  A result with neither is stuck (e.g. an undecodable instruction).
type Result struct {
	// Possible successor configurations
	Next []KConfig
	// Indicates the program terminated
	Exited bool
	// Return code (when terminated)
	Code uint64
}

// Continue constructs a result with the given successor(s).
func Continue(next ...KConfig) Result {
	return Result{Next: next}
}

// Exit constructs a terminal result with a given return code.
func Exit(code uint64) Result {
	return Result{Exited: true, Code: code}
}

// Stuck constructs a result with no successors.
func Stuck() Result {
	return Result{}
}

// IsStuck determines whether this result has neither successors, nor
// terminated.
func (p Result) IsStuck() bool {
	return !p.Exited && len(p.Next) == 0
}

// Stepper represents the (opaque) single-step transition relation of the
// machine.  The relation may be nondeterministic, in which case every
// successor must be reported.
type Stepper interface {
	Step(k KConfig) Result
}

// StepperFunc adapts a function into a Stepper.
type StepperFunc func(k KConfig) Result

// Step implementation for Stepper interface.
func (fn StepperFunc) Step(k KConfig) Result {
	return fn(k)
}
