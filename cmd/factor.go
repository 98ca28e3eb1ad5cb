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

	"github.com/penny-vault/pvlean/data"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// factorCmd represents the factor command
var factorCmd = &cobra.Command{
	Use:   "factor ticker...",
	Short: "Materialize factor files for the given tickers",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		stack := newStack()

		for _, ticker := range args {
			f := stack.factors.Get(ctx, data.Equity(ticker))
			if f == nil {
				log.Warn().Str("Ticker", ticker).Msg("no factor file produced")
				continue
			}

			log.Info().Str("Ticker", f.Symbol).Int("Rows", len(f.Rows)).Msg("factor file ready")
		}
	},
}

func init() {
	rootCmd.AddCommand(factorCmd)
}
