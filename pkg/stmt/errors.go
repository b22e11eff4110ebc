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
	"errors"
)

var (
	// ErrSize indicates blocks (or types) of mismatched sizes.
	ErrSize = errors.New("size mismatch")
	// ErrUnbound indicates a reference to an unbound local.
	ErrUnbound = errors.New("unbound local")
	// ErrLabel indicates a jump to an unbound label.
	ErrLabel = errors.New("unbound label")
	// ErrRead indicates a block which could not be read.
	ErrRead = errors.New("block not readable")
	// ErrWrite indicates a block which could not be written.
	ErrWrite = errors.New("block not writable")
	// ErrUnconstrained indicates a read from a place whose value is unknown.
	ErrUnconstrained = errors.New("read of unconstrained place")
	// ErrFallthrough indicates control falls off the end of a statement
	// somewhere other than its fallthrough address.
	ErrFallthrough = errors.New("invalid fallthrough")
	// ErrExit indicates control leaves a statement through an address which is
	// not an exit of its label context.
	ErrExit = errors.New("invalid exit")
	// ErrReachable indicates control reaches a statement marked unreachable.
	ErrReachable = errors.New("unreachable code reached")
	// ErrFuel indicates a loop could not be unrolled within the available fuel.
	ErrFuel = errors.New("out of fuel")
	// ErrStack indicates the stack region cannot hold a declaration.
	ErrStack = errors.New("stack exhausted")
	// ErrScratch indicates a local which overlaps a scratch register.
	ErrScratch = errors.New("local overlaps scratch register")
	// ErrEncoding indicates quantified statements which disagree on encoding.
	ErrEncoding = errors.New("inconsistent encoding")
	// ErrCondition indicates a jump on a condition which is not modelled (e.g.
	// parity).
	ErrCondition = errors.New("unsupported condition")
	// ErrRange indicates a jump target which cannot be encoded.
	ErrRange = errors.New("jump out of range")
)
