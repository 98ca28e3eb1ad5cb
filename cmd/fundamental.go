// Copyright 2025
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package cmd

import (
	"context"
	"fmt"

	"github.com/penny-vault/pvlean/data"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// fundamentalCmd represents the fundamental command
var fundamentalCmd = &cobra.Command{
	Use:   "fundamental ticker property [yyyyMMdd]",
	Short: "Evaluate a point-in-time fundamental property",
	Long: `Evaluate a fundamental property for a ticker as of a date, e.g.:

    pvlean fundamental AAPL FinancialStatements_IncomeStatement_TotalRevenue_TwelveMonths 20231201

Only filings filed on or before the given date are visible to the
lookup.`,
	Args: cobra.RangeArgs(2, 3),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		stack := newStack()

		day := data.Today()
		if len(args) == 3 {
			var err error
			if day, err = data.ParseFileDay(args[2]); err != nil {
				log.Fatal().Str("Date", args[2]).Msg("dates must be formatted as yyyyMMdd")
			}
		}

		value := stack.universe.Fundamentals().Lookup(ctx, args[0], day, args[1])
		fmt.Printf("%s %s %s = %v\n", args[0], args[1], day.ISO(), value)
	},
}

func init() {
	rootCmd.AddCommand(fundamentalCmd)
}
