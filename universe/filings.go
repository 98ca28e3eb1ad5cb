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
	"strings"
	"time"

	"github.com/alphadose/haxmap"
	"github.com/goccy/go-json"
	"github.com/penny-vault/pvlean/data"
	"github.com/penny-vault/pvlean/keyed"
	"github.com/penny-vault/pvlean/library"
	"github.com/penny-vault/pvlean/polygon"
	"github.com/rs/zerolog/log"
)

// FundamentalService answers point-in-time financial lookups over a
// dual-tier per-ticker filing cache: a hot in-memory list plus a
// pretty-printed JSON file in the artifact library.
type FundamentalService struct {
	lib        *library.Library
	api        polygon.Gateway
	flight     *keyed.Flight
	cache      *haxmap.Map[string, *tickerFilings]
	cacheHours int

	// live re-validates the cache every cacheHours; batch runs trust
	// whatever is already loaded for the life of the process.
	live bool

	now func() time.Time
}

type tickerFilings struct {
	records  []data.FilingRecord
	loadedAt time.Time
}

func NewFundamentalService(lib *library.Library, api polygon.Gateway, cacheHours int, live bool) *FundamentalService {
	if cacheHours <= 0 {
		cacheHours = 24
	}

	return &FundamentalService{
		lib:        lib,
		api:        api,
		flight:     keyed.New(),
		cache:      haxmap.New[string, *tickerFilings](),
		cacheHours: cacheHours,
		live:       live,
		now:        time.Now,
	}
}

func (s *FundamentalService) maxAge() time.Duration {
	return time.Duration(s.cacheHours) * time.Hour
}

func (s *FundamentalService) valid(entry *tickerFilings) bool {
	if entry.loadedAt.IsZero() {
		return false
	}

	return !s.live || s.now().Sub(entry.loadedAt) < s.maxAge()
}

// filings returns the ticker's filing list sorted ascending by filing
// date, loading it from memory, disk, or upstream in that order. An
// upstream failure leaves the cache unmarked so the next call retries.
func (s *FundamentalService) filings(ctx context.Context, ticker string) []data.FilingRecord {
	ticker = strings.ToUpper(ticker)

	if entry, ok := s.cache.Get(ticker); ok && s.valid(entry) {
		return entry.records
	}

	var out []data.FilingRecord

	err := s.flight.Execute(ticker, false, func() error {
		if entry, ok := s.cache.Get(ticker); ok && s.valid(entry) {
			out = entry.records
			return nil
		}

		if records, ok := s.loadDisk(ticker); ok {
			s.cache.Set(ticker, &tickerFilings{records: records, loadedAt: s.now()})
			out = records
			return nil
		}

		records, err := s.download(ctx, ticker)
		if err != nil {
			log.Error().Err(err).Str("Ticker", ticker).Msg("could not download financials; cache left unloaded")
			return nil
		}

		s.storeDisk(ticker, records)
		s.cache.Set(ticker, &tickerFilings{records: records, loadedAt: s.now()})
		out = records

		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("Ticker", ticker).Msg("filing cache singleflight failed")
	}

	return out
}

// loadDisk reads the fine cache file when it is present and young
// enough; a corrupt file is deleted so it re-downloads.
func (s *FundamentalService) loadDisk(ticker string) ([]data.FilingRecord, bool) {
	name := s.lib.FinePath(ticker)
	if !s.lib.Exists(name) {
		return nil, false
	}

	if s.live && s.now().Sub(s.lib.ModTime(name)) >= s.maxAge() {
		return nil, false
	}

	raw, err := s.lib.Read(name)
	if err != nil {
		log.Error().Err(err).Str("Ticker", ticker).Msg("could not read fine fundamental cache")
		return nil, false
	}

	records := []data.FilingRecord{}
	if err := json.Unmarshal(raw, &records); err != nil {
		log.Error().Err(err).Str("Ticker", ticker).Msg("corrupt fine fundamental cache removed")
		s.lib.Remove(name)
		return nil, false
	}

	return records, true
}

func (s *FundamentalService) storeDisk(ticker string, records []data.FilingRecord) {
	raw, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		log.Error().Err(err).Str("Ticker", ticker).Msg("could not marshal fine fundamental cache")
		return
	}

	if err := s.lib.Write(s.lib.FinePath(ticker), raw); err != nil {
		log.Error().Err(err).Str("Ticker", ticker).Msg("could not write fine fundamental cache")
	}
}

// download pages through the quarterly financials for a ticker,
// dropping records without a valid filing date.
func (s *FundamentalService) download(ctx context.Context, ticker string) ([]data.FilingRecord, error) {
	results, err := polygon.FetchAll[polygon.Financial](ctx, s.api, "vX/reference/financials", map[string]string{
		"ticker":    ticker,
		"timeframe": data.TimeframeQuarterly,
		"order":     "asc",
		"sort":      "filing_date",
		"limit":     "100",
	})
	if err != nil {
		return nil, err
	}

	records := make([]data.FilingRecord, 0, len(results))

	for _, result := range results {
		filingDate, err := data.ParseISODay(result.FilingDate)
		if err != nil {
			continue
		}

		startDate, _ := data.ParseISODay(result.StartDate)
		endDate, _ := data.ParseISODay(result.EndDate)

		records = append(records, data.FilingRecord{
			Ticker:       ticker,
			FiscalYear:   result.FiscalYear,
			FiscalPeriod: result.FiscalPeriod,
			StartDate:    startDate,
			EndDate:      endDate,
			FilingDate:   filingDate,
			Timeframe:    result.Timeframe,
			Financials: data.Statements{
				IncomeStatement:   toEntries(result.Financials.IncomeStatement),
				BalanceSheet:      toEntries(result.Financials.BalanceSheet),
				CashFlowStatement: toEntries(result.Financials.CashFlowStatement),
			},
		})
	}

	data.SortFilings(records)

	return records, nil
}

func toEntries(fields map[string]polygon.FinancialEntry) map[string]data.StatementEntry {
	if len(fields) == 0 {
		return nil
	}

	entries := make(map[string]data.StatementEntry, len(fields))
	for key, field := range fields {
		entries[key] = data.StatementEntry{Value: field.Value, Unit: field.Unit, Label: field.Label}
	}

	return entries
}

// Seed pre-loads a ticker's filing list into the in-memory tier,
// bypassing the disk tier and the upstream. Tests and embedding hosts use it instead of
// poking at private state.
func (s *FundamentalService) Seed(ticker string, records []data.FilingRecord) {
	data.SortFilings(records)
	s.cache.Set(strings.ToUpper(ticker), &tickerFilings{records: records, loadedAt: s.now()})
}
