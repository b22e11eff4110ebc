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
package value

import (
	"errors"
	"fmt"

	"github.com/consensys/go-x86hoare/pkg/block"
	"github.com/consensys/go-x86hoare/pkg/machine"
)

// ErrLaw indicates a typed value failed to satisfy one of its laws.
var ErrLaw = errors.New("type law violated")

// CheckRoundTrip checks that writing a value into a block (when successful)
// can be read back as an equal value, and that the write only disturbed the
// footprint subsequently reported by the read.
func CheckRoundTrip[T any](ty Type[T], val T, b block.Block, k machine.Config, eq func(T, T) bool) error {
	k2, ok := ty.Write(val, b, k)
	//
	if !ok {
		return nil
	}
	//
	rval, footprint, ok := ty.Read(b, k2)
	//
	switch {
	case !ok:
		return fmt.Errorf("%w: cannot read back from %s", ErrLaw, b)
	case !eq(val, rval):
		return fmt.Errorf("%w: read back %v from %s, expected %v", ErrLaw, rval, b, val)
	}
	//
	if place, bad := machine.UnstableOutside(k, k2, footprint); bad {
		return fmt.Errorf("%w: write to %s changed %s", ErrLaw, b, place)
	}
	//
	return nil
}

// CheckSerial checks that a serial type encodes a value (when representable)
// into exactly Size() bytes, and that the encoding decodes back to an equal value.
func CheckSerial[T any](ty Serial[T], val T, eq func(T, T) bool) error {
	bytes, ok := ty.Encode(val)
	//
	if !ok {
		return nil
	} else if uint64(len(bytes)) != ty.Size() {
		return fmt.Errorf("%w: encoding has %d bytes, expected %d", ErrLaw, len(bytes), ty.Size())
	}
	//
	if rval, ok := ty.Decode(bytes); !ok || !eq(val, rval) {
		return fmt.Errorf("%w: decoded %v, expected %v", ErrLaw, rval, val)
	}
	//
	return nil
}
