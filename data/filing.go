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

import "slices"

const (
	TimeframeQuarterly = "quarterly"
	TimeframeAnnual    = "annual"
)

// Canonical statement names used by property lookups.
const (
	StatementIncome   = "income_statement"
	StatementBalance  = "balance_sheet"
	StatementCashFlow = "cash_flow_statement"
)

// StatementEntry is one reported line item.
type StatementEntry struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
	Label string  `json:"label,omitempty"`
}

// Statements holds the three named field maps of one filing.
type Statements struct {
	IncomeStatement   map[string]StatementEntry `json:"income_statement,omitempty"`
	BalanceSheet      map[string]StatementEntry `json:"balance_sheet,omitempty"`
	CashFlowStatement map[string]StatementEntry `json:"cash_flow_statement,omitempty"`
}

// Get resolves a statement map by canonical name.
func (s *Statements) Get(statement string) map[string]StatementEntry {
	switch statement {
	case StatementIncome:
		return s.IncomeStatement
	case StatementBalance:
		return s.BalanceSheet
	case StatementCashFlow:
		return s.CashFlowStatement
	}

	return nil
}

// FilingRecord is one quarterly or annual financial filing as cached
// in the fine fundamental tier.
type FilingRecord struct {
	Ticker       string     `json:"ticker"`
	FiscalYear   string     `json:"fiscalYear"`
	FiscalPeriod string     `json:"fiscalPeriod"`
	StartDate    Day        `json:"startDate"`
	EndDate      Day        `json:"endDate"`
	FilingDate   Day        `json:"filingDate"`
	Timeframe    string     `json:"timeframe"`
	Financials   Statements `json:"financials"`
}

// SortFilings orders filings ascending by filing date, the invariant
// order of the cached list.
func SortFilings(filings []FilingRecord) {
	slices.SortFunc(filings, func(a, b FilingRecord) int {
		return a.FilingDate.Compare(b.FilingDate.Time)
	})
}
