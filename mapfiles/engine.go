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

// Package mapfiles materializes per-symbol map files: the ticker
// identity history (renames, delisting) of a permanent equity
// identifier, synthesized from the upstream ticker-event stream.
package mapfiles

import (
	"bytes"
	"context"
	"slices"
	"strings"

	"github.com/goccy/go-json"
	"github.com/penny-vault/pvlean/data"
	"github.com/penny-vault/pvlean/keyed"
	"github.com/penny-vault/pvlean/library"
	"github.com/penny-vault/pvlean/polygon"
	"github.com/rs/zerolog/log"
)

type Engine struct {
	lib    *library.Library
	api    polygon.Gateway
	flight *keyed.Flight
	now    func() data.Day
}

func New(lib *library.Library, api polygon.Gateway) *Engine {
	return &Engine{
		lib:    lib,
		api:    api,
		flight: keyed.New(),
		now:    data.Today,
	}
}

// Resolve returns the map file covering the symbol on the given day,
// synthesizing it from upstream ticker events when the local library
// has no usable copy. Upstream failures yield an uncached minimal
// file so the next request retries.
func (e *Engine) Resolve(ctx context.Context, sec data.Security, day data.Day) *data.MapFile {
	ticker := strings.ToUpper(sec.Ticker)
	exchange := data.PrimaryExchange(sec.Market)
	today := e.now()

	// the local resolver answers first
	if f := e.load(ticker); f != nil {
		return f
	}

	var result *data.MapFile

	err := e.flight.Execute(ticker, false, func() error {
		if f := e.load(ticker); f != nil && f.IsFresh(today) {
			result = f
			return nil
		}

		events, err := e.fetchEvents(ctx, ticker)
		if err != nil {
			log.Error().Err(err).Str("Ticker", ticker).Msg("could not fetch ticker events; returning minimal map file")
			result = data.MinimalMapFile(ticker, exchange)
			return nil
		}

		f := synthesize(ticker, exchange, events)
		e.store(f)
		result = f

		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("Ticker", ticker).Msg("map file singleflight failed")
	}

	if result != nil {
		log.Trace().Str("Ticker", ticker).Str("SymbolOnDate", result.SymbolOn(day)).Msg("resolved map file")
	}

	return result
}

// synthesize builds map rows from chronologically ordered events. A
// ticker_change event closes out the prior symbol on the day before
// the change; a delisting replaces the far-future sentinel on the
// final row.
func synthesize(ticker string, exchange data.ExchangeCode, events []polygon.TickerEvent) *data.MapFile {
	rows := []data.MapRow{{Date: data.EarliestDate, Symbol: ticker, Exchange: exchange}}

	var delisted data.Day

	for _, event := range events {
		day, err := data.ParseISODay(event.Date)
		if err != nil {
			continue
		}

		switch event.Type {
		case polygon.EventTickerChange:
			old := strings.ToUpper(event.TickerChange.Ticker)
			if old == "" {
				old = ticker
			}

			rows = append(rows, data.MapRow{Date: day.AddDays(-1), Symbol: old, Exchange: exchange})
		case polygon.EventDelisted:
			delisted = day
		}
	}

	if delisted.IsZero() {
		rows = append(rows, data.MapRow{Date: data.FarFuture, Symbol: ticker, Exchange: exchange})
	} else {
		rows = append(rows, data.MapRow{Date: delisted, Symbol: ticker, Exchange: exchange})
	}

	// retain the last entry per date
	byDate := make(map[string]data.MapRow, len(rows))
	for _, row := range rows {
		byDate[row.Date.FileString()] = row
	}

	rows = rows[:0]
	for _, row := range byDate {
		rows = append(rows, row)
	}

	f := &data.MapFile{Symbol: ticker, Rows: rows}
	f.Sort()

	return f
}

// fetchEvents retrieves rename and delisting events ascending by
// date.
func (e *Engine) fetchEvents(ctx context.Context, ticker string) ([]polygon.TickerEvent, error) {
	var events []polygon.TickerEvent

	err := e.api.FetchPages(ctx, polygon.TickerEventsPath(ticker), map[string]string{
		"types": "ticker_change,delisted",
		"limit": "1000",
	}, func(results json.RawMessage) error {
		var page polygon.TickerEventsResult
		if err := json.Unmarshal(results, &page); err != nil {
			return err
		}

		events = append(events, page.Events...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(events, func(a, b polygon.TickerEvent) int {
		return strings.Compare(a.Date, b.Date)
	})

	return events, nil
}

// load parses the on-disk map file, deleting it when corrupt.
func (e *Engine) load(ticker string) *data.MapFile {
	name := e.lib.MapFilePath(ticker)
	if !e.lib.Exists(name) {
		return nil
	}

	raw, err := e.lib.Read(name)
	if err != nil {
		log.Error().Err(err).Str("Ticker", ticker).Msg("could not read map file")
		e.lib.Remove(name)
		return nil
	}

	f, err := data.ParseMapFile(ticker, bytes.NewReader(raw))
	if err != nil || len(f.Rows) == 0 {
		log.Error().Err(err).Str("Ticker", ticker).Msg("corrupt map file removed")
		e.lib.Remove(name)
		return nil
	}

	return f
}

func (e *Engine) store(f *data.MapFile) {
	raw, err := f.Marshal()
	if err != nil {
		log.Error().Err(err).Str("Ticker", f.Symbol).Msg("could not marshal map file")
		return
	}

	if err := e.lib.Write(e.lib.MapFilePath(f.Symbol), raw); err != nil {
		log.Error().Err(err).Str("Ticker", f.Symbol).Msg("could not write map file")
	}
}
