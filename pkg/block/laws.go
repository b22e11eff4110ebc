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
package block

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/consensys/go-x86hoare/pkg/machine"
)

// ErrLaw indicates that a block failed to satisfy one of its laws.
var ErrLaw = errors.New("block law violated")

// CheckWrite checks the laws governing a single write of a given value to a
// block in a given configuration.  Specifically: that the write succeeds
// exactly when the block is writable and the value has the right size; that a
// successful write can be read back; and, that it only disturbs the footprint
// of the block.
func CheckWrite(b Block, k machine.Config, val []byte) error {
	k2, ok := b.Write(k, val)
	expected := b.Writable(k) && uint64(len(val)) == b.Size()
	//
	switch {
	case ok != expected:
		return fmt.Errorf("%w: write to %s succeeded=%t, expected %t", ErrLaw, b, ok, expected)
	case !ok:
		return nil
	case uint64(len(val)) != b.Size():
		return fmt.Errorf("%w: wrote %d bytes to %s of size %d", ErrLaw, len(val), b, b.Size())
	}
	// Read after write
	if rval, ok := b.Read(k2); !ok || !bytes.Equal(rval, val) {
		return fmt.Errorf("%w: read after write of %s gave %x, expected %x", ErrLaw, b, rval, val)
	}
	// Frame
	if place, bad := machine.UnstableOutside(k, k2, b.Footprint()); bad {
		return fmt.Errorf("%w: write to %s changed %s", ErrLaw, b, place)
	}
	//
	return nil
}

// CheckRead checks that a read of a block returns exactly Size() bytes, and
// that the same read is obtained in any other configuration which agrees on
// the footprint of the block.
func CheckRead(b Block, k machine.Config, other machine.Config) error {
	val, ok := b.Read(k)
	//
	if !ok {
		return nil
	} else if uint64(len(val)) != b.Size() {
		return fmt.Errorf("%w: read %d bytes from %s of size %d", ErrLaw, len(val), b, b.Size())
	}
	//
	if machine.StableAt(k, other, b.Footprint()) {
		oval, ok := b.Read(other)
		//
		if !ok || !bytes.Equal(oval, val) {
			return fmt.Errorf("%w: read of %s not stable under its footprint", ErrLaw, b)
		}
	}
	//
	return nil
}
