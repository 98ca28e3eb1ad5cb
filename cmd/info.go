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
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/penny-vault/pvlean/library"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/xeonx/timeago"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Display information about the artifact library",
	Run: func(cmd *cobra.Command, args []string) {
		lib := library.New(viper.GetString("data-dir"))

		fmt.Printf("library: %s\n\n", lib.Root)

		for _, section := range []struct {
			title string
			dir   string
		}{
			{"factor files", filepath.Join("equity", "usa", "factor_files")},
			{"map files", filepath.Join("equity", "usa", "map_files")},
			{"coarse universe", filepath.Join("equity", "usa", "fundamental", "coarse")},
			{"fine fundamentals", filepath.Join("equity", "usa", "fundamental", "fine", "polygon")},
		} {
			entries, err := os.ReadDir(filepath.Join(lib.Root, section.dir))
			if err != nil {
				fmt.Printf("%-18s (empty)\n", section.title)
				continue
			}

			var newest time.Time
			for _, entry := range entries {
				if info, err := entry.Info(); err == nil && info.ModTime().After(newest) {
					newest = info.ModTime()
				}
			}

			fmt.Printf("%-18s %d artifacts, newest updated %s\n", section.title, len(entries), timeago.English.Format(newest))
		}
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
