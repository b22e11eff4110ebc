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
package cmd

import (
	"fmt"
	"os"

	"github.com/consensys/go-x86hoare/pkg/hoare"
	"github.com/consensys/go-x86hoare/pkg/scenario"
	"github.com/consensys/go-x86hoare/pkg/util/termio"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Get an expected flag, or exit if an error arises.
func getFlag(cmd *cobra.Command, flag string) bool {
	r, err := cmd.Flags().GetBool(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// Get an expected unsigned integer, or exit if an error arises.
func getUint(cmd *cobra.Command, flag string) uint {
	r, err := cmd.Flags().GetUint(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// Determine whether output should be coloured.  This requires both that colour
// is enabled, and that standard output is a terminal.
func useColour(cmd *cobra.Command) bool {
	return getFlag(cmd, "colour") && term.IsTerminal(int(os.Stdout.Fd()))
}

// Select the scenarios named on the command line, or all of them when none are
// named.
func selectScenarios(names []string) ([]*scenario.Scenario, error) {
	if len(names) == 0 {
		return scenario.All(), nil
	}
	//
	scenarios := make([]*scenario.Scenario, len(names))
	//
	for i, name := range names {
		s, err := scenario.Lookup(name)
		if err != nil {
			return nil, err
		}
		//
		scenarios[i] = s
	}
	//
	return scenarios, nil
}

// Determine the escape used to highlight a given verdict.
func verdictEscape(v hoare.Verdict) termio.AnsiEscape {
	switch v {
	case hoare.PROVED:
		return termio.FgColourAnsiEscape(termio.TERM_GREEN)
	case hoare.REFUTED:
		return termio.BoldAnsiEscape().FgColour(termio.TERM_RED)
	default:
		return termio.FgColourAnsiEscape(termio.TERM_YELLOW)
	}
}
