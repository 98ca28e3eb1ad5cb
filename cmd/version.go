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

	"github.com/penny-vault/pvlean/pkginfo"
	"github.com/spf13/cobra"
)

var (
	versionBare    bool
	versionModules bool
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print pvlean build information",
	Long: `Print the version, platform, and commit of this pvlean binary.
Include the build information when reporting artifacts that differ from
what the backtesting engine expects; factor and map file output can
change between releases.`,
	Run: func(cmd *cobra.Command, args []string) {
		info := pkginfo.Current(rootCmd.Use)

		if versionBare {
			fmt.Println(info.Version)
			return
		}

		fmt.Println(info.String())

		if versionModules {
			fmt.Println()
			for _, dep := range pkginfo.Dependencies() {
				fmt.Println(dep)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVar(&versionBare, "bare", false, "print only the version number")
	versionCmd.Flags().BoolVarP(&versionModules, "modules", "m", false, "also list the modules linked into this binary")
}
