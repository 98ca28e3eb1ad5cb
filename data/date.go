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
	"errors"
	"time"
)

const (
	fileDateFormat = "20060102"
	isoDateFormat  = "2006-01-02"
)

var ErrInvalidDate = errors.New("invalid date")

// Day is a civil date pinned to UTC midnight. It is the only date
// representation used in artifact files and upstream query parameters.
type Day struct {
	time.Time
}

// NewDay constructs a Day from calendar components.
func NewDay(year int, month time.Month, day int) Day {
	return Day{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DayOf truncates a timestamp to its UTC calendar date.
func DayOf(t time.Time) Day {
	t = t.UTC()
	return NewDay(t.Year(), t.Month(), t.Day())
}

// Today returns the current UTC calendar date.
func Today() Day {
	return DayOf(time.Now())
}

// ParseISODay parses yyyy-MM-dd, the format used by all upstream date
// fields.
func ParseISODay(s string) (Day, error) {
	t, err := time.Parse(isoDateFormat, s)
	if err != nil {
		return Day{}, ErrInvalidDate
	}

	return DayOf(t), nil
}

// ParseFileDay parses yyyyMMdd, the format used in artifact rows and
// coarse file names.
func ParseFileDay(s string) (Day, error) {
	t, err := time.Parse(fileDateFormat, s)
	if err != nil {
		return Day{}, ErrInvalidDate
	}

	return DayOf(t), nil
}

func (d Day) ISO() string {
	return d.Format(isoDateFormat)
}

func (d Day) FileString() string {
	return d.Format(fileDateFormat)
}

func (d Day) AddDays(n int) Day {
	return DayOf(d.Time.AddDate(0, 0, n))
}

func (d Day) AddYears(n int) Day {
	return DayOf(d.Time.AddDate(n, 0, 0))
}

func (d Day) After(other Day) bool {
	return d.Time.After(other.Time)
}

func (d Day) Before(other Day) bool {
	return d.Time.Before(other.Time)
}

func (d Day) Equal(other Day) bool {
	return d.Time.Equal(other.Time)
}

// MarshalCSV renders the yyyyMMdd artifact form.
func (d Day) MarshalCSV() (string, error) {
	return d.FileString(), nil
}

func (d *Day) UnmarshalCSV(field string) error {
	parsed, err := ParseFileDay(field)
	if err != nil {
		return err
	}

	*d = parsed
	return nil
}

// MarshalJSON renders the upstream yyyy-MM-dd form used in the fine
// fundamental cache.
func (d Day) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}

	return []byte(`"` + d.ISO() + `"`), nil
}

func (d *Day) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == `""` || s == "null" {
		*d = Day{}
		return nil
	}

	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return ErrInvalidDate
	}

	parsed, err := ParseISODay(s[1 : len(s)-1])
	if err != nil {
		return err
	}

	*d = parsed
	return nil
}
