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
package universe

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/penny-vault/pvlean/data"
	"github.com/penny-vault/pvlean/library"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quarterlyFiling(filed data.Day, income, balance, cashflow map[string]float64) data.FilingRecord {
	entries := func(fields map[string]float64) map[string]data.StatementEntry {
		if fields == nil {
			return nil
		}

		out := make(map[string]data.StatementEntry, len(fields))
		for key, value := range fields {
			out[key] = data.StatementEntry{Value: value, Unit: "USD"}
		}

		return out
	}

	return data.FilingRecord{
		Ticker:     "AAPL",
		FilingDate: filed,
		EndDate:    filed.AddDays(-30),
		Timeframe:  data.TimeframeQuarterly,
		Financials: data.Statements{
			IncomeStatement:   entries(income),
			BalanceSheet:      entries(balance),
			CashFlowStatement: entries(cashflow),
		},
	}
}

func newTestService(t *testing.T) *FundamentalService {
	t.Helper()
	return NewFundamentalService(library.New(t.TempDir()), &stubGateway{fail: true}, 24, false)
}

func seedQuarters(svc *FundamentalService, n int) {
	filingDates := []data.Day{
		data.NewDay(2023, time.February, 3),
		data.NewDay(2023, time.May, 5),
		data.NewDay(2023, time.August, 4),
		data.NewDay(2023, time.November, 3),
	}
	revenues := []float64{100000, 110000, 120000, 130000}
	assets := []float64{1000000, 1100000, 1200000, 1300000}
	operating := []float64{30000, 32000, 28000, 35000}
	capex := []float64{-5000, -6000, -4000, -7000}

	filings := make([]data.FilingRecord, 0, n)
	for i := 0; i < n; i++ {
		filings = append(filings, quarterlyFiling(
			filingDates[i],
			map[string]float64{"revenues": revenues[i]},
			map[string]float64{"assets": assets[i]},
			map[string]float64{
				"net_cash_flow_from_operating_activities": operating[i],
				"capital_expenditure":                     capex[i],
			},
		))
	}

	svc.Seed("AAPL", filings)
}

func TestTTMRevenue(t *testing.T) {
	// S4: four quarterly revenues sum once all four are filed
	svc := newTestService(t)
	seedQuarters(svc, 4)

	got := svc.Lookup(context.Background(), "AAPL", data.NewDay(2023, time.December, 1),
		"FinancialStatements_IncomeStatement_TotalRevenue_TwelveMonths")
	assert.Equal(t, 460000.0, got)
}

func TestTTMRequiresFourQuarters(t *testing.T) {
	// S4: only two filings visible on 2023-06-01
	svc := newTestService(t)
	seedQuarters(svc, 2)

	got := svc.Lookup(context.Background(), "AAPL", data.NewDay(2023, time.June, 1),
		"FinancialStatements_IncomeStatement_TotalRevenue_TwelveMonths")
	assert.True(t, math.IsNaN(got))
}

func TestTTMPointInTime(t *testing.T) {
	// all four quarters exist, but only two were filed by the query
	// date: the lookup must not see the future
	svc := newTestService(t)
	seedQuarters(svc, 4)

	got := svc.Lookup(context.Background(), "AAPL", data.NewDay(2023, time.June, 1),
		"FinancialStatements_IncomeStatement_TotalRevenue_TwelveMonths")
	assert.True(t, math.IsNaN(got))
}

func TestTTMFreeCashFlow(t *testing.T) {
	// S5: (30-5)+(32-6)+(28-4)+(35-7) = 103 thousand
	svc := newTestService(t)
	seedQuarters(svc, 4)

	got := svc.Lookup(context.Background(), "AAPL", data.NewDay(2023, time.December, 1),
		"FinancialStatements_CashFlowStatement_FreeCashFlow_TwelveMonths")
	assert.Equal(t, 103000.0, got)
}

func TestTTMBalanceSheetTakesLatest(t *testing.T) {
	// stock items report the most recent observation, not a sum
	svc := newTestService(t)
	seedQuarters(svc, 4)

	got := svc.Lookup(context.Background(), "AAPL", data.NewDay(2023, time.December, 1),
		"FinancialStatements_BalanceSheet_TotalAssets_TwelveMonths")
	assert.Equal(t, 1300000.0, got)
}

func TestQuarterlyLookup(t *testing.T) {
	svc := newTestService(t)
	seedQuarters(svc, 4)

	tests := []struct {
		name string
		day  data.Day
		want float64
	}{
		{name: "latest filing visible", day: data.NewDay(2023, time.December, 1), want: 130000},
		{name: "mid-year", day: data.NewDay(2023, time.June, 1), want: 110000},
		{name: "on the filing date", day: data.NewDay(2023, time.May, 5), want: 110000},
		{name: "day before filing", day: data.NewDay(2023, time.May, 4), want: 100000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := svc.Lookup(context.Background(), "AAPL", tt.day,
				"FinancialStatements_IncomeStatement_TotalRevenue_ThreeMonths")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQuarterlyBeforeAnyFiling(t *testing.T) {
	svc := newTestService(t)
	seedQuarters(svc, 4)

	got := svc.Lookup(context.Background(), "AAPL", data.NewDay(2022, time.December, 1),
		"FinancialStatements_IncomeStatement_TotalRevenue_ThreeMonths")
	assert.True(t, math.IsNaN(got))
}

func TestMissingFieldIsNaN(t *testing.T) {
	svc := newTestService(t)
	seedQuarters(svc, 4)

	got := svc.Lookup(context.Background(), "AAPL", data.NewDay(2023, time.December, 1),
		"FinancialStatements_IncomeStatement_GrossProfit_ThreeMonths")
	assert.True(t, math.IsNaN(got))
}

func TestHasFundamentalData(t *testing.T) {
	svc := newTestService(t)

	assert.Equal(t, 0.0, svc.Lookup(context.Background(), "AAPL", data.NewDay(2023, time.December, 1), "HasFundamentalData"))

	seedQuarters(svc, 4)
	assert.Equal(t, 1.0, svc.Lookup(context.Background(), "AAPL", data.NewDay(2023, time.December, 1), "HasFundamentalData"))
}

func TestParseProperty(t *testing.T) {
	tests := []struct {
		name string
		want PropertyKind
	}{
		{name: "FinancialStatements_IncomeStatement_TotalRevenue_ThreeMonths", want: PropertyFinancial},
		{name: "FinancialStatements_CashFlowStatement_FreeCashFlow_TwelveMonths", want: PropertyFinancial},
		{name: "FinancialStatements_BalanceSheet_TotalEquity_TwelveMonths", want: PropertyFinancial},
		{name: "FinancialStatements_IncomeStatement_TotalRevenue_SixMonths", want: PropertyFinancial},
		{name: "CompanyProfile_MarketCap", want: PropertyMarketCap},
		{name: "HasFundamentalData", want: PropertyHasFundamental},
		{name: "FinancialStatements_IncomeStatement_Bogus_ThreeMonths", want: PropertyUnknown},
		{name: "FinancialStatements_Ledger_TotalRevenue_ThreeMonths", want: PropertyUnknown},
		{name: "FinancialStatements_IncomeStatement_TotalRevenue_Forever", want: PropertyUnknown},
		{name: "Price", want: PropertyUnknown},
		{name: "", want: PropertyUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseProperty(tt.name).Kind)
		})
	}
}

func TestNonFiniteWindowsAreNaN(t *testing.T) {
	svc := newTestService(t)
	seedQuarters(svc, 4)

	for _, name := range []string{
		"FinancialStatements_IncomeStatement_TotalRevenue_OneMonth",
		"FinancialStatements_IncomeStatement_TotalRevenue_SixMonths",
		"FinancialStatements_IncomeStatement_TotalRevenue_NineMonths",
		"CompanyProfile_MarketCap",
		"TotallyUnknownProperty",
	} {
		got := svc.Lookup(context.Background(), "AAPL", data.NewDay(2023, time.December, 1), name)
		require.True(t, math.IsNaN(got), "%s must be NaN", name)
	}
}
