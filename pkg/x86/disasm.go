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
package x86

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/arch/x86/x86asm"
)

// ErrDecode arises when bytes do not encode a known instruction.
var ErrDecode = errors.New("unknown instruction")

// Line is a single disassembled instruction.
type Line struct {
	// Address of instruction
	Addr uint64
	// Encoded bytes
	Bytes []byte
	// Intel syntax rendering
	Text string
}

func (p Line) String() string {
	var hex strings.Builder
	//
	for _, b := range p.Bytes {
		hex.WriteString(fmt.Sprintf("%02x ", b))
	}
	//
	return fmt.Sprintf("%8x:  %-33s %s", p.Addr, hex.String(), p.Text)
}

// Disassemble decodes a contiguous sequence of instructions placed at a given
// origin.  An error is returned if any part of the code cannot be decoded.
func Disassemble(code []byte, origin uint64) ([]Line, error) {
	var (
		lines []Line
		pc    uint64
	)
	//
	for pc < uint64(len(code)) {
		inst, err := x86asm.Decode(code[pc:], 64)
		//
		if err != nil {
			return lines, fmt.Errorf("0x%x: %w", origin+pc, err)
		} else if inst.Op == 0 {
			return lines, fmt.Errorf("0x%x: %w (% x)", origin+pc, ErrDecode, code[pc:pc+uint64(inst.Len)])
		}
		//
		next := pc + uint64(inst.Len)
		text := x86asm.IntelSyntax(inst, origin+pc, nil)
		lines = append(lines, Line{origin + pc, code[pc:next], text})
		pc = next
	}
	//
	return lines, nil
}
