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

// Package library owns the on-disk artifact library: the directory
// layout consumed by the backtesting engine's local-disk readers, plus
// existence probes, reads, and atomic writes.
package library

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/penny-vault/pvlean/data"
	"github.com/rs/zerolog/log"
)

type Library struct {
	Root  string
	filer data.Filer
}

// New opens an artifact library rooted at the given directory.
func New(root string) *Library {
	return &Library{
		Root:  root,
		filer: data.NewFilerFromString("file://" + root),
	}
}

func (lib *Library) FactorFilePath(ticker string) string {
	return filepath.Join("equity", "usa", "factor_files", strings.ToLower(ticker)+".csv")
}

func (lib *Library) MapFilePath(ticker string) string {
	return filepath.Join("equity", "usa", "map_files", strings.ToLower(ticker)+".csv")
}

func (lib *Library) CoarsePath(day data.Day) string {
	return filepath.Join("equity", "usa", "fundamental", "coarse", fmt.Sprintf("%s.csv", day.FileString()))
}

func (lib *Library) FinePath(ticker string) string {
	return filepath.Join("equity", "usa", "fundamental", "fine", "polygon", strings.ToLower(ticker)+".json")
}

func (lib *Library) abs(name string) string {
	return filepath.Join(lib.Root, name)
}

// Exists reports whether the named artifact is on disk.
func (lib *Library) Exists(name string) bool {
	info, err := os.Stat(lib.abs(name))
	return err == nil && !info.IsDir()
}

// ModTime returns the artifact's last modification time, or the zero
// time when the artifact is absent.
func (lib *Library) ModTime(name string) time.Time {
	info, err := os.Stat(lib.abs(name))
	if err != nil {
		return time.Time{}
	}

	return info.ModTime()
}

func (lib *Library) Read(name string) ([]byte, error) {
	return os.ReadFile(lib.abs(name))
}

// Write atomically replaces the named artifact.
func (lib *Library) Write(name string, content []byte) error {
	_, err := lib.filer.CreateFile(name, content)
	return err
}

// Remove deletes a corrupt artifact so the next request regenerates
// it.
func (lib *Library) Remove(name string) {
	if err := os.Remove(lib.abs(name)); err != nil && !os.IsNotExist(err) {
		log.Error().Err(err).Str("Artifact", name).Msg("could not remove artifact")
	}
}
