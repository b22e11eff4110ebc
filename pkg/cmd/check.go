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
	"github.com/consensys/go-x86hoare/pkg/util"
	"github.com/consensys/go-x86hoare/pkg/util/termio"
	"github.com/consensys/go-x86hoare/pkg/x86"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check [flags] [scenario...]",
	Short: "Check one or more scenarios.",
	Long: `Check one or more scenarios against the reference step relation.
	When no scenarios are given, every scenario is checked.  The exit code is
	non-zero if any scenario is not proved.`,
	Run: func(cmd *cobra.Command, args []string) {
		scenarios, err := selectScenarios(args)
		if err != nil {
			fmt.Println(err)
			os.Exit(2)
		}
		//
		cfg := checkConfig{
			fuel:   getUint(cmd, "fuel"),
			colour: useColour(cmd),
		}
		//
		if !runCheck(os.Stdout, scenarios, cfg) {
			os.Exit(1)
		}
	},
}

// check config encapsulates certain parameters to be used when checking
// scenarios.
type checkConfig struct {
	// Bound on the length of any execution path
	fuel uint
	// Determines whether verdicts are coloured
	colour bool
}

// Check each scenario in turn, printing a table of verdicts.  This returns
// true only when every scenario is proved.
func runCheck(out io.Writer, scenarios []*scenario.Scenario, cfg checkConfig) bool {
	var (
		table = termio.NewTablePrinter(4)
		ok    = true
	)
	//
	table.AnsiEscapes(cfg.colour)
	//
	for _, s := range scenarios {
		log.Debugf("checking %s", s)
		//
		stats := util.NewPerfStats()
		report, err := s.Check(x86.Stepper{}, cfg.fuel)
		//
		stats.Log(fmt.Sprintf("Checking %s", s.Name))
		//
		if err != nil {
			row := table.AddRow(s.Name, "error", "-", err.Error())
			table.SetEscape(1, row, termio.BoldAnsiEscape().FgColour(termio.TERM_RED))
			ok = false
			//
			continue
		}
		//
		row := table.AddRow(s.Name, report.Verdict.String(), fmt.Sprintf("%d", report.Steps), report.Reason)
		table.SetEscape(1, row, verdictEscape(report.Verdict))
		ok = ok && report.Proved()
	}
	//
	table.Print(out)
	//
	return ok
}

//nolint:errcheck
func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().Uint("fuel", DEFAULT_FUEL, "bound on the length of any execution path")
}
