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
	"os"

	"github.com/penny-vault/pvlean/calendar"
	"github.com/penny-vault/pvlean/factors"
	"github.com/penny-vault/pvlean/library"
	"github.com/penny-vault/pvlean/mapfiles"
	"github.com/penny-vault/pvlean/polygon"
	"github.com/penny-vault/pvlean/universe"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pvlean",
	Short: "pvlean materializes LEAN-layout reference data from Polygon.io",
	Long: `pvlean is a command line utility that synthesizes the derived equity
reference artifacts a LEAN backtest reads from local disk: factor files
(cumulative price and split adjustments), map files (ticker identity
history), coarse universe snapshots, and point-in-time fundamental data.

Artifacts are generated on demand from the Polygon.io REST API and
written into a local data library using the same on-disk layout the
backtesting engine expects, so a library maintained by pvlean can be
dropped directly under an engine's data folder.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.pvlean.toml)")
	rootCmd.PersistentFlags().String("data-dir", "./data", "root directory of the artifact library")
	if err := viper.BindPFlag("data-dir", rootCmd.PersistentFlags().Lookup("data-dir")); err != nil {
		log.Panic().Err(err).Msg("BindPFlag for data-dir failed")
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".pvlean" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("toml")
		viper.SetConfigName(".pvlean")
	}

	viper.SetDefault("polygon-financials-cache-hours", 24)
	viper.SetDefault("polygon-coarse-max-concurrent", 10)
	viper.SetDefault("polygon-rate-limit", 5000)

	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		log.Info().Str("ConfigFN", viper.ConfigFileUsed()).Msg("Using config file")
	}
}

// stack wires the engines against the configured library and gateway.
type stack struct {
	lib      *library.Library
	factors  *factors.Engine
	mapfiles *mapfiles.Engine
	universe *universe.Engine
}

// newStack builds the engine stack, failing fast when the required
// API key is not configured.
func newStack() *stack {
	apiKey := viper.GetString("polygon-api-key")
	if apiKey == "" {
		log.Fatal().Msg("polygon-api-key is not configured; set it in the config file or environment")
	}

	lib := library.New(viper.GetString("data-dir"))
	api := polygon.New(apiKey, viper.GetInt("polygon-rate-limit"))
	hours := calendar.NewUS()

	factorEngine := factors.New(lib, api, hours)
	fund := universe.NewFundamentalService(lib, api, viper.GetInt("polygon-financials-cache-hours"), false)

	return &stack{
		lib:      lib,
		factors:  factorEngine,
		mapfiles: mapfiles.New(lib, api),
		universe: universe.NewEngine(lib, api, factorEngine, fund, viper.GetInt("polygon-coarse-max-concurrent")),
	}
}
