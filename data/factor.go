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
package data

import (
	"bytes"
	"errors"
	"io"
	"slices"
	"sort"
	"time"

	"github.com/gocarina/gocsv"
)

// EarliestDate anchors every factor and map file; no US equity data is
// materialized before it.
var EarliestDate = NewDay(2000, time.January, 1)

var ErrEmptyFactorFile = errors.New("factor file has no rows")

// FactorRow is one line of a factor file. PriceFactor and SplitFactor
// are the cumulative adjustments converting a raw price on Date into
// the top-sentinel basis; ReferencePrice is the raw close the factors
// were computed from (0 on sentinel rows).
type FactorRow struct {
	Date           Day     `csv:"date"`
	PriceFactor    Decimal `csv:"price_factor"`
	SplitFactor    Decimal `csv:"split_factor"`
	ReferencePrice Decimal `csv:"reference_price"`
}

// FactorFile is the ordered per-symbol corporate action series. Rows
// are strictly ascending by date; the first row is the earliest
// sentinel and the last row is the verification-date sentinel with
// both factors at 1.
type FactorFile struct {
	Symbol string
	Rows   []FactorRow
}

// MinimalFactorFile covers a symbol with no corporate actions: one row
// at the earliest sentinel and one at the verification date.
func MinimalFactorFile(symbol string, verified Day) *FactorFile {
	return &FactorFile{
		Symbol: symbol,
		Rows: []FactorRow{
			{Date: EarliestDate, PriceFactor: 1, SplitFactor: 1},
			{Date: verified, PriceFactor: 1, SplitFactor: 1},
		},
	}
}

// Top returns the verification sentinel (the last row).
func (f *FactorFile) Top() (FactorRow, error) {
	if len(f.Rows) == 0 {
		return FactorRow{}, ErrEmptyFactorFile
	}

	return f.Rows[len(f.Rows)-1], nil
}

// FactorsOn returns the price and split factors in effect for raw
// prices on the given day: the factors of the first row at or after
// day. Days beyond the top sentinel scale by 1.
func (f *FactorFile) FactorsOn(day Day) (priceFactor, splitFactor float64) {
	idx := sort.Search(len(f.Rows), func(i int) bool {
		return !f.Rows[i].Date.Before(day)
	})

	if idx >= len(f.Rows) {
		return 1, 1
	}

	return float64(f.Rows[idx].PriceFactor), float64(f.Rows[idx].SplitFactor)
}

// Sort orders rows ascending by date.
func (f *FactorFile) Sort() {
	slices.SortFunc(f.Rows, func(a, b FactorRow) int {
		return a.Date.Compare(b.Date.Time)
	})
}

func (f *FactorFile) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	if err := gocsv.MarshalWithoutHeaders(&f.Rows, &buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func ParseFactorFile(symbol string, r io.Reader) (*FactorFile, error) {
	rows := []FactorRow{}
	if err := gocsv.UnmarshalWithoutHeaders(r, &rows); err != nil {
		return nil, err
	}

	return &FactorFile{Symbol: symbol, Rows: rows}, nil
}
