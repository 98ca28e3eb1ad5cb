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
	"io"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
)

// FarFuture marks a still-active security in the final map file row.
var FarFuture = NewDay(2050, time.December, 31)

// MapRow states that the security traded under Symbol from the prior
// row's date (exclusive) through Date (inclusive).
type MapRow struct {
	Date     Day          `csv:"date"`
	Symbol   string       `csv:"symbol"`
	Exchange ExchangeCode `csv:"exchange"`
}

// MapFile is the ticker identity history of one permanent identifier,
// rows strictly ascending by date.
type MapFile struct {
	Symbol string
	Rows   []MapRow
}

// MinimalMapFile covers a symbol with no known ticker events: active
// under one symbol from the earliest sentinel to the far future.
func MinimalMapFile(symbol string, exchange ExchangeCode) *MapFile {
	symbol = strings.ToUpper(symbol)

	return &MapFile{
		Symbol: symbol,
		Rows: []MapRow{
			{Date: EarliestDate, Symbol: symbol, Exchange: exchange},
			{Date: FarFuture, Symbol: symbol, Exchange: exchange},
		},
	}
}

// IsFresh reports whether the file has been verified recently enough
// to skip an upstream round trip: the last row is dated within a day
// of today, or carries the still-active far-future sentinel.
func (m *MapFile) IsFresh(today Day) bool {
	if len(m.Rows) == 0 {
		return false
	}

	last := m.Rows[len(m.Rows)-1].Date
	if !last.Before(today.AddDays(-1)) {
		return true
	}

	return !last.Before(FarFuture.AddYears(-1))
}

// Delisted reports whether the final row records a delisting rather
// than the still-active sentinel.
func (m *MapFile) Delisted() bool {
	if len(m.Rows) == 0 {
		return false
	}

	return m.Rows[len(m.Rows)-1].Date.Before(FarFuture)
}

// SymbolOn resolves the trading symbol for the given day, or "" when
// the day falls after the final row (delisted).
func (m *MapFile) SymbolOn(day Day) string {
	idx := sort.Search(len(m.Rows), func(i int) bool {
		return !m.Rows[i].Date.Before(day)
	})

	if idx >= len(m.Rows) {
		return ""
	}

	return m.Rows[idx].Symbol
}

// Sort orders rows ascending by date.
func (m *MapFile) Sort() {
	slices.SortFunc(m.Rows, func(a, b MapRow) int {
		return a.Date.Compare(b.Date.Time)
	})
}

func (m *MapFile) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	if err := gocsv.MarshalWithoutHeaders(&m.Rows, &buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func ParseMapFile(symbol string, r io.Reader) (*MapFile, error) {
	rows := []MapRow{}
	if err := gocsv.UnmarshalWithoutHeaders(r, &rows); err != nil {
		return nil, err
	}

	return &MapFile{Symbol: strings.ToUpper(symbol), Rows: rows}, nil
}
