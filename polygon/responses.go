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
package polygon

// Typed payloads for the resources the engines consume. All date
// strings are ISO yyyy-MM-dd; bar timestamps are milliseconds since
// the Unix epoch.

type Split struct {
	ExecutionDate string  `json:"execution_date"`
	SplitFrom     float64 `json:"split_from"`
	SplitTo       float64 `json:"split_to"`
	Ticker        string  `json:"ticker"`
}

// Factor returns oldShares/newShares: < 1 for a forward split, > 1
// for a reverse split, 0 when the payload is degenerate.
func (s Split) Factor() float64 {
	if s.SplitTo == 0 {
		return 0
	}

	return s.SplitFrom / s.SplitTo
}

const (
	DividendCash        = "CD"
	DividendSpecialCash = "SC"
)

type Dividend struct {
	ExDividendDate string  `json:"ex_dividend_date"`
	CashAmount     float64 `json:"cash_amount"`
	DividendType   string  `json:"dividend_type"`
	Ticker         string  `json:"ticker"`
}

type AggBar struct {
	Timestamp int64   `json:"t"`
	Open      float64 `json:"o"`
	High      float64 `json:"h"`
	Low       float64 `json:"l"`
	Close     float64 `json:"c"`
	Volume    float64 `json:"v"`
}

// AggsResponse is the non-enveloped aggregates body; results are not
// paginated through next_url for daily ranges.
type AggsResponse struct {
	Ticker       string   `json:"ticker"`
	QueryCount   int      `json:"queryCount"`
	ResultsCount int      `json:"resultsCount"`
	Results      []AggBar `json:"results"`
	Status       string   `json:"status"`
}

const (
	EventTickerChange = "ticker_change"
	EventDelisted     = "delisted"
)

type TickerChange struct {
	Ticker string `json:"ticker"`
}

type TickerEvent struct {
	Type         string       `json:"type"`
	Date         string       `json:"date"`
	TickerChange TickerChange `json:"ticker_change"`
}

// TickerEventsResult is the results object of the ticker events
// resource: identity metadata plus the event list.
type TickerEventsResult struct {
	Name   string        `json:"name"`
	FIGI   string        `json:"composite_figi"`
	CIK    string        `json:"cik"`
	Events []TickerEvent `json:"events"`
}

type Ticker struct {
	Ticker          string `json:"ticker"`
	Name            string `json:"name"`
	CompositeFIGI   string `json:"composite_figi"`
	ShareClassFIGI  string `json:"share_class_figi"`
	PrimaryExchange string `json:"primary_exchange"`
	Type            string `json:"type"`
	Active          bool   `json:"active"`
	CIK             string `json:"cik"`
	LastUpdated     string `json:"last_updated_utc"`
}

type SnapshotBar struct {
	Open   float64 `json:"o"`
	High   float64 `json:"h"`
	Low    float64 `json:"l"`
	Close  float64 `json:"c"`
	Volume float64 `json:"v"`
}

type SnapshotTicker struct {
	Ticker  string      `json:"ticker"`
	Day     SnapshotBar `json:"day"`
	PrevDay SnapshotBar `json:"prevDay"`
	Updated int64       `json:"updated"`
}

// SnapshotResponse is the full-market snapshot body: one entry per
// ticker with the current and previous session bars.
type SnapshotResponse struct {
	Tickers []SnapshotTicker `json:"tickers"`
	Status  string           `json:"status"`
	Count   int              `json:"count"`
}

type Financial struct {
	Tickers      []string           `json:"tickers"`
	StartDate    string             `json:"start_date"`
	EndDate      string             `json:"end_date"`
	FilingDate   string             `json:"filing_date"`
	FiscalPeriod string             `json:"fiscal_period"`
	FiscalYear   string             `json:"fiscal_year"`
	Timeframe    string             `json:"timeframe"`
	Financials   FinancialStatement `json:"financials"`
}

type FinancialEntry struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
	Label string  `json:"label"`
}

type FinancialStatement struct {
	IncomeStatement   map[string]FinancialEntry `json:"income_statement"`
	BalanceSheet      map[string]FinancialEntry `json:"balance_sheet"`
	CashFlowStatement map[string]FinancialEntry `json:"cash_flow_statement"`
}
