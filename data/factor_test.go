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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDecimal(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  string
	}{
		{name: "half", value: 0.5, want: "0.5"},
		{name: "one", value: 1.0, want: "1"},
		{name: "whole price", value: 400, want: "400"},
		{name: "round-off noise trimmed", value: 0.49999999999, want: "0.5"},
		{name: "seven places kept", value: 0.3333333333, want: "0.3333333"},
		{name: "zero", value: 0, want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDecimal(tt.value))
		})
	}
}

func TestFactorFileRoundTrip(t *testing.T) {
	f := &FactorFile{
		Symbol: "AAPL",
		Rows: []FactorRow{
			{Date: EarliestDate, PriceFactor: 0.8754321, SplitFactor: 0.25},
			{Date: NewDay(2020, time.August, 28), PriceFactor: 1, SplitFactor: 0.5, ReferencePrice: 400},
			{Date: NewDay(2024, time.June, 3), PriceFactor: 1, SplitFactor: 1},
		},
	}

	raw, err := f.Marshal()
	require.NoError(t, err)

	parsed, err := ParseFactorFile("AAPL", bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, f.Rows, parsed.Rows)

	// re-marshaling produces byte-identical rows
	raw2, err := parsed.Marshal()
	require.NoError(t, err)
	assert.Equal(t, raw, raw2)
}

func TestFactorsOn(t *testing.T) {
	f := &FactorFile{
		Symbol: "AAPL",
		Rows: []FactorRow{
			{Date: EarliestDate, PriceFactor: 0.9, SplitFactor: 0.25},
			{Date: NewDay(2020, time.August, 28), PriceFactor: 1, SplitFactor: 0.5, ReferencePrice: 400},
			{Date: NewDay(2024, time.June, 3), PriceFactor: 1, SplitFactor: 1},
		},
	}

	tests := []struct {
		name      string
		day       Day
		wantPrice float64
		wantSplit float64
	}{
		{name: "before all actions", day: NewDay(2005, time.March, 1), wantPrice: 1, wantSplit: 0.5},
		{name: "on action row", day: NewDay(2020, time.August, 28), wantPrice: 1, wantSplit: 0.5},
		{name: "after action", day: NewDay(2020, time.August, 31), wantPrice: 1, wantSplit: 1},
		{name: "beyond top sentinel", day: NewDay(2030, time.January, 1), wantPrice: 1, wantSplit: 1},
		{name: "earliest sentinel", day: EarliestDate, wantPrice: 0.9, wantSplit: 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, split := f.FactorsOn(tt.day)
			assert.Equal(t, tt.wantPrice, price)
			assert.Equal(t, tt.wantSplit, split)
		})
	}
}

func TestMinimalFactorFile(t *testing.T) {
	today := NewDay(2024, time.July, 1)
	f := MinimalFactorFile("XYZ", today)

	require.Len(t, f.Rows, 2)
	assert.True(t, f.Rows[0].Date.Equal(EarliestDate))
	assert.True(t, f.Rows[1].Date.Equal(today))

	top, err := f.Top()
	require.NoError(t, err)
	assert.Equal(t, Decimal(1), top.PriceFactor)
	assert.Equal(t, Decimal(1), top.SplitFactor)
	assert.Equal(t, Decimal(0), top.ReferencePrice)
}
