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
	"io"
	"os"

	"github.com/consensys/go-x86hoare/pkg/scenario"
	"github.com/consensys/go-x86hoare/pkg/util/termio"
	"github.com/spf13/cobra"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the available scenarios.",
	Run: func(cmd *cobra.Command, args []string) {
		runList(os.Stdout, scenario.All(), useColour(cmd))
	},
}

func runList(out io.Writer, scenarios []*scenario.Scenario, colour bool) {
	table := termio.NewTablePrinter(2)
	table.AnsiEscapes(colour)
	//
	for _, s := range scenarios {
		row := table.AddRow(s.Name, s.Summary)
		table.SetEscape(0, row, termio.BoldAnsiEscape())
	}
	//
	table.Print(out)
}

//nolint:errcheck
func init() {
	rootCmd.AddCommand(listCmd)
}
