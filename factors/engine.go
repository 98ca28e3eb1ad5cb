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

// Package factors materializes per-symbol factor files on demand:
// the cumulative price and split adjustment series derived from a
// symbol's corporate action history.
package factors

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/penny-vault/pvlean/calendar"
	"github.com/penny-vault/pvlean/data"
	"github.com/penny-vault/pvlean/keyed"
	"github.com/penny-vault/pvlean/library"
	"github.com/penny-vault/pvlean/polygon"
	"github.com/rs/zerolog/log"
)

// referenceWindowDays bounds how far back of an event the reference
// close may be.
const referenceWindowDays = 5

type Engine struct {
	lib    *library.Library
	api    polygon.Gateway
	hours  *calendar.MarketHours
	flight *keyed.Flight
	now    func() data.Day
}

func New(lib *library.Library, api polygon.Gateway, hours *calendar.MarketHours) *Engine {
	return &Engine{
		lib:    lib,
		api:    api,
		hours:  hours,
		flight: keyed.New(),
		now:    data.Today,
	}
}

// Get returns the factor file for an equity, generating or refreshing
// the on-disk copy when it is absent or stale. Non-equities resolve
// to nil. Upstream failures degrade: a stale file is returned as-is,
// a missing one yields an uncached minimal file.
func (e *Engine) Get(ctx context.Context, sec data.Security) *data.FactorFile {
	if !sec.IsEquity() {
		return nil
	}

	ticker := strings.ToUpper(sec.Ticker)
	today := e.now()

	if f := e.load(ticker); f != nil && e.fresh(f, today) {
		return f
	}

	var result *data.FactorFile

	err := e.flight.Execute(ticker, false, func() error {
		f := e.load(ticker)
		if f != nil && e.fresh(f, today) {
			result = f
			return nil
		}

		if f != nil {
			result = e.refresh(ctx, ticker, f, today)
			return nil
		}

		result = e.generate(ctx, ticker, today, nil)
		return nil
	})
	if err != nil {
		// work never returns an error; a panic would have propagated
		log.Error().Err(err).Str("Ticker", ticker).Msg("factor file singleflight failed")
	}

	return result
}

// load parses the on-disk factor file, deleting it when corrupt.
func (e *Engine) load(ticker string) *data.FactorFile {
	name := e.lib.FactorFilePath(ticker)
	if !e.lib.Exists(name) {
		return nil
	}

	raw, err := e.lib.Read(name)
	if err != nil {
		log.Error().Err(err).Str("Ticker", ticker).Msg("could not read factor file")
		e.lib.Remove(name)
		return nil
	}

	f, err := data.ParseFactorFile(ticker, bytes.NewReader(raw))
	if err != nil || len(f.Rows) == 0 {
		log.Error().Err(err).Str("Ticker", ticker).Msg("corrupt factor file removed")
		e.lib.Remove(name)
		return nil
	}

	return f
}

// fresh reports whether the top sentinel was verified within a day of
// today.
func (e *Engine) fresh(f *data.FactorFile, today data.Day) bool {
	top, err := f.Top()
	if err != nil {
		return false
	}

	return !top.Date.Before(today.AddDays(-1))
}

// refresh brings a stale file forward: when no corporate actions
// occurred since the last verification the top sentinel simply moves
// to today; otherwise the whole series is regenerated.
func (e *Engine) refresh(ctx context.Context, ticker string, f *data.FactorFile, today data.Day) *data.FactorFile {
	top, err := f.Top()
	if err != nil {
		return e.generate(ctx, ticker, today, nil)
	}

	from := top.Date.AddDays(1)

	splits, err := e.fetchSplits(ctx, ticker, from, today)
	if err != nil {
		log.Error().Err(err).Str("Ticker", ticker).Msg("split refresh failed; keeping stale factor file")
		return f
	}

	dividends, err := e.fetchDividends(ctx, ticker, from, today)
	if err != nil {
		log.Error().Err(err).Str("Ticker", ticker).Msg("dividend refresh failed; keeping stale factor file")
		return f
	}

	if len(splits) == 0 && len(dividends) == 0 {
		f.Rows[len(f.Rows)-1].Date = today
		e.store(f)
		return f
	}

	return e.generate(ctx, ticker, today, f)
}

// generate rebuilds the full factor series from upstream corporate
// action history. prev, when non-nil, is returned unchanged on
// upstream failure so a stale-but-valid file survives a bad refresh.
func (e *Engine) generate(ctx context.Context, ticker string, today data.Day, prev *data.FactorFile) *data.FactorFile {
	degraded := func() *data.FactorFile {
		if prev != nil {
			return prev
		}

		// not stored: the next request should retry upstream
		return data.MinimalFactorFile(ticker, today)
	}

	splits, err := e.fetchSplits(ctx, ticker, data.EarliestDate, today)
	if err != nil {
		log.Error().Err(err).Str("Ticker", ticker).Msg("could not fetch splits")
		return degraded()
	}

	dividends, err := e.fetchDividends(ctx, ticker, data.EarliestDate, today)
	if err != nil {
		log.Error().Err(err).Str("Ticker", ticker).Msg("could not fetch dividends")
		return degraded()
	}

	if len(splits) == 0 && len(dividends) == 0 {
		f := data.MinimalFactorFile(ticker, today)
		e.store(f)
		return f
	}

	closes, err := e.fetchDailyCloses(ctx, ticker, data.EarliestDate, today)
	if err != nil {
		log.Error().Err(err).Str("Ticker", ticker).Msg("could not fetch daily closes")
		return degraded()
	}

	if len(closes) == 0 {
		log.Warn().Str("Ticker", ticker).Msg("no daily closes for symbol with corporate actions; writing minimal factor file")
		f := data.MinimalFactorFile(ticker, today)
		e.store(f)
		return f
	}

	earliest := earliestClose(closes)
	actions := e.toActions(splits, dividends, closes)
	data.SortActions(actions)

	f := &data.FactorFile{
		Symbol: ticker,
		Rows: []data.FactorRow{
			{Date: earliest, PriceFactor: 1, SplitFactor: 1},
			{Date: today, PriceFactor: 1, SplitFactor: 1},
		},
	}

	for _, action := range actions {
		applyAction(f, action, today)
	}

	f.Sort()
	e.store(f)

	return f
}

// applyAction folds one corporate action into the series: every row
// below the top sentinel is scaled by the action's factor, and a row
// dated at the action's reference close carries the accumulated
// adjustment. A row already present at that date keeps accumulating.
func applyAction(f *data.FactorFile, action data.CorporateAction, topDate data.Day) {
	rowDate := action.ReferenceDate
	if rowDate.Equal(topDate) {
		// the top sentinel is the as-of-today basis and stays (1, 1)
		return
	}

	priceFactor, splitFactor := 1.0, 1.0

	switch action.Kind {
	case data.ActionSplit:
		splitFactor = action.SplitFactor
	case data.ActionDividend:
		priceFactor = (action.ReferencePrice - action.Cash) / action.ReferencePrice
	}

	idx := -1
	for i := range f.Rows {
		if f.Rows[i].Date.Equal(rowDate) {
			idx = i
			break
		}
	}

	if idx < 0 {
		f.Rows = append(f.Rows, data.FactorRow{
			Date:           rowDate,
			PriceFactor:    1,
			SplitFactor:    1,
			ReferencePrice: data.Decimal(action.ReferencePrice),
		})
	} else {
		f.Rows[idx].ReferencePrice = data.Decimal(action.ReferencePrice)
	}

	for i := range f.Rows {
		if f.Rows[i].Date.Equal(topDate) {
			continue
		}

		f.Rows[i].PriceFactor *= data.Decimal(priceFactor)
		f.Rows[i].SplitFactor *= data.Decimal(splitFactor)
	}
}

// toActions converts raw upstream events into corporate actions with
// resolved reference prices, dropping events the series cannot price.
func (e *Engine) toActions(splits []polygon.Split, dividends []polygon.Dividend, closes map[string]float64) []data.CorporateAction {
	actions := make([]data.CorporateAction, 0, len(splits)+len(dividends))

	for _, split := range splits {
		day, err := data.ParseISODay(split.ExecutionDate)
		if err != nil {
			continue
		}

		factor := split.Factor()
		if factor == 0 {
			continue
		}

		refDate, refPrice := e.referenceClose(day, closes)
		if refPrice <= 0 {
			log.Debug().Str("Ticker", split.Ticker).Str("ExecutionDate", split.ExecutionDate).Msg("split dropped: no reference close")
			continue
		}

		action := data.NewSplit(day, factor)
		action.ReferenceDate = refDate
		action.ReferencePrice = refPrice
		actions = append(actions, action)
	}

	for _, dividend := range dividends {
		day, err := data.ParseISODay(dividend.ExDividendDate)
		if err != nil {
			continue
		}

		if dividend.CashAmount <= 0 {
			continue
		}

		refDate, refPrice := e.referenceClose(day, closes)
		if refPrice <= 0 {
			log.Debug().Str("Ticker", dividend.Ticker).Str("ExDate", dividend.ExDividendDate).Msg("dividend dropped: no reference close")
			continue
		}

		action := data.NewDividend(day, dividend.CashAmount)
		action.ReferenceDate = refDate
		action.ReferencePrice = refPrice
		actions = append(actions, action)
	}

	return actions
}

// referenceClose finds the raw close on the most recent trading day
// strictly inside [event-5d, event-1d].
func (e *Engine) referenceClose(event data.Day, closes map[string]float64) (data.Day, float64) {
	earliest := event.AddDays(-referenceWindowDays)

	for day := e.hours.PreviousTradingDay(event); !day.Before(earliest); day = e.hours.PreviousTradingDay(day) {
		if close, ok := closes[day.FileString()]; ok && close > 0 {
			return day, close
		}
	}

	return data.Day{}, 0
}

func (e *Engine) fetchSplits(ctx context.Context, ticker string, from, to data.Day) ([]polygon.Split, error) {
	results, err := polygon.FetchAll[polygon.Split](ctx, e.api, "v3/reference/splits", map[string]string{
		"ticker":             ticker,
		"execution_date.gte": from.ISO(),
		"execution_date.lte": to.ISO(),
		"order":              "asc",
		"limit":              "1000",
	})
	if err != nil {
		return nil, err
	}

	// keep the first split reported per execution date
	seen := make(map[string]struct{}, len(results))
	splits := make([]polygon.Split, 0, len(results))

	for _, split := range results {
		if _, err := data.ParseISODay(split.ExecutionDate); err != nil {
			continue
		}

		if _, ok := seen[split.ExecutionDate]; ok {
			continue
		}

		seen[split.ExecutionDate] = struct{}{}
		splits = append(splits, split)
	}

	return splits, nil
}

func (e *Engine) fetchDividends(ctx context.Context, ticker string, from, to data.Day) ([]polygon.Dividend, error) {
	results, err := polygon.FetchAll[polygon.Dividend](ctx, e.api, "v3/reference/dividends", map[string]string{
		"ticker":               ticker,
		"ex_dividend_date.gte": from.ISO(),
		"ex_dividend_date.lte": to.ISO(),
		"order":                "asc",
		"limit":                "1000",
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(results))
	dividends := make([]polygon.Dividend, 0, len(results))

	for _, dividend := range results {
		if dividend.DividendType != polygon.DividendCash && dividend.DividendType != polygon.DividendSpecialCash {
			continue
		}

		if _, err := data.ParseISODay(dividend.ExDividendDate); err != nil {
			continue
		}

		if _, ok := seen[dividend.ExDividendDate]; ok {
			continue
		}

		seen[dividend.ExDividendDate] = struct{}{}
		dividends = append(dividends, dividend)
	}

	return dividends, nil
}

// fetchDailyCloses returns unadjusted daily closes keyed by yyyyMMdd.
func (e *Engine) fetchDailyCloses(ctx context.Context, ticker string, from, to data.Day) (map[string]float64, error) {
	var respContent polygon.AggsResponse

	err := e.api.GetJSON(ctx, polygon.AggsPath(ticker, from.ISO(), to.ISO()), map[string]string{
		"adjusted": "false",
		"sort":     "desc",
		"limit":    "50000",
	}, &respContent)
	if err != nil {
		return nil, err
	}

	closes := make(map[string]float64, len(respContent.Results))
	for _, bar := range respContent.Results {
		day := data.DayOf(time.UnixMilli(bar.Timestamp))
		closes[day.FileString()] = bar.Close
	}

	return closes, nil
}

func earliestClose(closes map[string]float64) data.Day {
	var earliest data.Day

	for key := range closes {
		day, err := data.ParseFileDay(key)
		if err != nil {
			continue
		}

		if earliest.IsZero() || day.Before(earliest) {
			earliest = day
		}
	}

	return earliest
}

func (e *Engine) store(f *data.FactorFile) {
	raw, err := f.Marshal()
	if err != nil {
		log.Error().Err(err).Str("Ticker", f.Symbol).Msg("could not marshal factor file")
		return
	}

	if err := e.lib.Write(e.lib.FactorFilePath(f.Symbol), raw); err != nil {
		log.Error().Err(err).Str("Ticker", f.Symbol).Msg("could not write factor file")
	}
}
