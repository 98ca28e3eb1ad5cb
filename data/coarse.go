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
	"strings"

	"github.com/gocarina/gocsv"
)

// CoarseRow is one active US common stock on one trading day.
type CoarseRow struct {
	PermID             string  `csv:"perm_id"`
	Ticker             string  `csv:"ticker"`
	Close              Decimal `csv:"close"`
	Volume             int64   `csv:"volume"`
	DollarVolume       int64   `csv:"dollar_volume"`
	HasFundamentalData Flag    `csv:"has_fundamental_data"`
	PriceFactor        Decimal `csv:"price_factor"`
	SplitFactor        Decimal `csv:"split_factor"`
}

// SortCoarseRows orders rows lexicographically by permanent
// identifier, the order the downstream reader expects.
func SortCoarseRows(rows []CoarseRow) {
	slices.SortFunc(rows, func(a, b CoarseRow) int {
		return strings.Compare(a.PermID, b.PermID)
	})
}

func MarshalCoarseRows(rows []CoarseRow) ([]byte, error) {
	var buf bytes.Buffer
	if err := gocsv.MarshalWithoutHeaders(&rows, &buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func ParseCoarseRows(r io.Reader) ([]CoarseRow, error) {
	rows := []CoarseRow{}
	if err := gocsv.UnmarshalWithoutHeaders(r, &rows); err != nil {
		return nil, err
	}

	return rows, nil
}
