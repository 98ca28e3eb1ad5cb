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

// Package calendar answers trading-day questions for the US equity
// market: full-day NYSE/NASDAQ closures plus weekends. Early closes
// don't matter here; a shortened session still produces a daily bar.
package calendar

import (
	"time"

	"github.com/penny-vault/pvlean/data"
)

// MarketHours is the process-wide trading calendar. It is read-only
// after construction and safe for concurrent use.
type MarketHours struct {
	holidays map[string]struct{}
}

// NewUS builds the US equity calendar covering the full artifact date
// range (the earliest sentinel through the far-future sentinel).
func NewUS() *MarketHours {
	m := &MarketHours{holidays: make(map[string]struct{}, 512)}

	for year := data.EarliestDate.Year(); year <= data.FarFuture.Year(); year++ {
		for _, d := range usHolidays(year) {
			m.holidays[d.FileString()] = struct{}{}
		}
	}

	return m
}

// IsTradingDay reports whether the market holds a session on the
// given day.
func (m *MarketHours) IsTradingDay(day data.Day) bool {
	switch day.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}

	_, holiday := m.holidays[day.FileString()]
	return !holiday
}

// PreviousTradingDay returns the last session strictly before day.
func (m *MarketHours) PreviousTradingDay(day data.Day) data.Day {
	prev := day.AddDays(-1)
	for !m.IsTradingDay(prev) {
		prev = prev.AddDays(-1)
	}

	return prev
}

// observed shifts weekend holidays to the adjacent weekday: Saturday
// observes Friday, Sunday observes Monday.
func observed(d data.Day) data.Day {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDays(-1)
	case time.Sunday:
		return d.AddDays(1)
	}

	return d
}

// nthWeekday returns the nth given weekday of the month (n >= 1).
func nthWeekday(year int, month time.Month, weekday time.Weekday, n int) data.Day {
	d := data.NewDay(year, month, 1)
	offset := (int(weekday) - int(d.Weekday()) + 7) % 7

	return d.AddDays(offset + (n-1)*7)
}

// lastWeekday returns the final given weekday of the month.
func lastWeekday(year int, month time.Month, weekday time.Weekday) data.Day {
	d := data.NewDay(year, month+1, 1).AddDays(-1)
	offset := (int(d.Weekday()) - int(weekday) + 7) % 7

	return d.AddDays(-offset)
}

// easter computes Easter Sunday with the anonymous Gregorian
// algorithm.
func easter(year int) data.Day {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1

	return data.NewDay(year, time.Month(month), day)
}

// usHolidays lists the full-day market closures for one year.
func usHolidays(year int) []data.Day {
	days := []data.Day{
		observed(data.NewDay(year, time.January, 1)),
		nthWeekday(year, time.January, time.Monday, 3),  // Martin Luther King Jr. Day
		nthWeekday(year, time.February, time.Monday, 3), // Washington's Birthday
		easter(year).AddDays(-2),                        // Good Friday
		lastWeekday(year, time.May, time.Monday),        // Memorial Day
		observed(data.NewDay(year, time.July, 4)),
		nthWeekday(year, time.September, time.Monday, 1),  // Labor Day
		nthWeekday(year, time.November, time.Thursday, 4), // Thanksgiving
		observed(data.NewDay(year, time.December, 25)),
	}

	// Juneteenth became a market holiday in 2022.
	if year >= 2022 {
		days = append(days, observed(data.NewDay(year, time.June, 19)))
	}

	return days
}
