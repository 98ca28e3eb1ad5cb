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
	"math"
	"strconv"
)

// decimalPlaces bounds the precision written to artifact files; factor
// accumulation otherwise leaks binary round-off into the CSV.
const decimalPlaces = 7

// Decimal is a float64 that serializes with invariant-culture decimal
// formatting and trailing zeros removed.
type Decimal float64

func (d Decimal) MarshalCSV() (string, error) {
	return FormatDecimal(float64(d)), nil
}

func (d *Decimal) UnmarshalCSV(field string) error {
	v, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return err
	}

	*d = Decimal(v)
	return nil
}

// FormatDecimal rounds to the artifact precision and renders the
// shortest decimal form: 0.5 not 0.5000000, 1 not 1.0.
func FormatDecimal(v float64) string {
	shift := math.Pow10(decimalPlaces)
	v = math.Round(v*shift) / shift

	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Flag is a bool that serializes as True/False, matching the coarse
// universe reader.
type Flag bool

func (f Flag) MarshalCSV() (string, error) {
	if f {
		return "True", nil
	}

	return "False", nil
}

func (f *Flag) UnmarshalCSV(field string) error {
	*f = field == "True" || field == "true" || field == "1"
	return nil
}
