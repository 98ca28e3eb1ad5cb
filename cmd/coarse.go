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

// coarseCmd represents the coarse command
var coarseCmd = &cobra.Command{
	Use:   "coarse [yyyyMMdd]",
	Short: "Materialize the coarse universe snapshot for a trading day",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		stack := newStack()

		day := data.Today()
		if len(args) == 1 {
			var err error
			if day, err = data.ParseFileDay(args[0]); err != nil {
				log.Fatal().Str("Date", args[0]).Msg("dates must be formatted as yyyyMMdd")
			}
		}

		if err := stack.universe.GenerateFor(ctx, day); err != nil {
			log.Fatal().Err(err).Str("Date", day.ISO()).Msg("coarse universe generation failed")
		}

		log.Info().Str("Date", day.ISO()).Msg("coarse universe ready")
	},
}

func init() {
	rootCmd.AddCommand(coarseCmd)
}
