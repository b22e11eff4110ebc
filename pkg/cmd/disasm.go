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
	"io"
	"os"

	"github.com/consensys/go-x86hoare/pkg/scenario"
	"github.com/consensys/go-x86hoare/pkg/x86"
	"github.com/spf13/cobra"
)

// disasmCmd represents the disasm command
var disasmCmd = &cobra.Command{
	Use:   "disasm [flags] scenario",
	Short: "Disassemble the code of a scenario.",
	Long: `Assemble the statement of a given scenario, and print the resulting code
	as an x86-64 listing.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		//
		s, err := scenario.Lookup(args[0])
		if err == nil {
			err = runDisasm(os.Stdout, s, getFlag(cmd, "raw"))
		}
		//
		if err != nil {
			fmt.Println(err)
			os.Exit(2)
		}
	},
}

func runDisasm(out io.Writer, s *scenario.Scenario, raw bool) error {
	code, err := s.Assemble()
	if err != nil {
		return err
	}
	//
	if raw {
		fmt.Fprintf(out, "% x\n", code)
		return nil
	}
	//
	lines, err := x86.Disassemble(code, scenario.ORIGIN)
	if err != nil {
		return err
	}
	//
	fmt.Fprintf(out, "; %s\n", s.Stmt)
	//
	for _, l := range lines {
		fmt.Fprintln(out, l.String())
	}
	//
	return nil
}

//nolint:errcheck
func init() {
	rootCmd.AddCommand(disasmCmd)
	disasmCmd.Flags().Bool("raw", false, "print encoded bytes only")
}
