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

// Package universe materializes per-day coarse universe snapshots
// (one row per active US common stock) and serves per-property
// lookups over them, delegating fundamental properties to the
// point-in-time filing service.
package universe

import (
	"bytes"
	"context"
	"math"
	"strings"
	"sync"

	"github.com/penny-vault/pvlean/data"
	"github.com/penny-vault/pvlean/keyed"
	"github.com/penny-vault/pvlean/library"
	"github.com/penny-vault/pvlean/polygon"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// FactorSource supplies corporate-action factors for coarse rows;
// the factor engine satisfies it.
type FactorSource interface {
	Get(ctx context.Context, sec data.Security) *data.FactorFile
}

type Engine struct {
	lib           *library.Library
	api           polygon.Gateway
	factors       FactorSource
	fund          *FundamentalService
	flight        *keyed.Flight
	maxConcurrent int64

	// single-entry per-date row cache; rebuilt when a different day
	// is requested
	mu       sync.Mutex
	cacheDay data.Day
	rows     map[string]data.CoarseRow
}

func NewEngine(lib *library.Library, api polygon.Gateway, factors FactorSource, fund *FundamentalService, maxConcurrent int) *Engine {
	if maxConcurrent <= 0 {
		maxConcurrent = 10
	}

	return &Engine{
		lib:           lib,
		api:           api,
		factors:       factors,
		fund:          fund,
		flight:        keyed.New(),
		maxConcurrent: int64(maxConcurrent),
	}
}

// Fundamentals exposes the filing service for direct point-in-time
// queries.
func (e *Engine) Fundamentals() *FundamentalService {
	return e.fund
}

// GenerateFor materializes the coarse universe file for one trading
// day; a file already on disk is left untouched.
func (e *Engine) GenerateFor(ctx context.Context, day data.Day) error {
	name := e.lib.CoarsePath(day)
	if e.lib.Exists(name) {
		return nil
	}

	return e.flight.Execute("coarse-"+day.FileString(), false, func() error {
		if e.lib.Exists(name) {
			return nil
		}

		permIDs, err := e.activeCommonStocks(ctx)
		if err != nil {
			log.Error().Err(err).Str("Date", day.ISO()).Msg("could not fetch active tickers for coarse universe")
			return err
		}

		var snapshot polygon.SnapshotResponse
		if err := e.api.GetJSON(ctx, "v2/snapshot/locale/us/markets/stocks/tickers", nil, &snapshot); err != nil {
			log.Error().Err(err).Str("Date", day.ISO()).Msg("could not fetch market snapshot for coarse universe")
			return err
		}

		rows := e.buildRows(ctx, day, snapshot.Tickers, permIDs)
		data.SortCoarseRows(rows)

		raw, err := data.MarshalCoarseRows(rows)
		if err != nil {
			log.Error().Err(err).Str("Date", day.ISO()).Msg("could not marshal coarse universe")
			return err
		}

		if err := e.lib.Write(name, raw); err != nil {
			log.Error().Err(err).Str("Date", day.ISO()).Msg("could not write coarse universe")
			return err
		}

		log.Info().Str("Date", day.ISO()).Int("Rows", len(rows)).Msg("coarse universe generated")

		return nil
	})
}

// activeCommonStocks returns the permanent identifier for every
// active US common stock, keyed by ticker.
func (e *Engine) activeCommonStocks(ctx context.Context) (map[string]string, error) {
	tickers, err := polygon.FetchAll[polygon.Ticker](ctx, e.api, "v3/reference/tickers", map[string]string{
		"type":   "CS",
		"market": "stocks",
		"active": "true",
		"limit":  "1000",
	})
	if err != nil {
		return nil, err
	}

	permIDs := make(map[string]string, len(tickers))

	for _, ticker := range tickers {
		symbol := strings.ToUpper(ticker.Ticker)

		permID := ticker.CompositeFIGI
		if permID == "" {
			permID = symbol
		}

		permIDs[symbol] = permID
	}

	return permIDs, nil
}

// buildRows converts snapshots for active tickers into coarse rows
// with bounded parallelism; factor lookups happen per ticker and
// dominate the wall clock.
func (e *Engine) buildRows(ctx context.Context, day data.Day, snapshots []polygon.SnapshotTicker, permIDs map[string]string) []data.CoarseRow {
	sem := semaphore.NewWeighted(e.maxConcurrent)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		rows []data.CoarseRow
	)

	for _, snapshot := range snapshots {
		permID, ok := permIDs[strings.ToUpper(snapshot.Ticker)]
		if !ok {
			continue
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}

		wg.Add(1)

		go func(snapshot polygon.SnapshotTicker, permID string) {
			defer wg.Done()
			defer sem.Release(1)

			row, ok := e.coarseRow(ctx, day, snapshot, permID)
			if !ok {
				return
			}

			mu.Lock()
			rows = append(rows, row)
			mu.Unlock()
		}(snapshot, permID)
	}

	wg.Wait()

	return rows
}

func (e *Engine) coarseRow(ctx context.Context, day data.Day, snapshot polygon.SnapshotTicker, permID string) (data.CoarseRow, bool) {
	bar := snapshot.PrevDay
	if bar.Close == 0 && bar.Volume == 0 {
		bar = snapshot.Day
	}

	if bar.Close <= 0 || bar.Volume <= 0 {
		return data.CoarseRow{}, false
	}

	ticker := strings.ToUpper(snapshot.Ticker)

	priceFactor, splitFactor := 1.0, 1.0
	if f := e.factors.Get(ctx, data.Equity(ticker)); f != nil {
		priceFactor, splitFactor = f.FactorsOn(day)
	}

	return data.CoarseRow{
		PermID:       permID,
		Ticker:       ticker,
		Close:        data.Decimal(bar.Close),
		Volume:       int64(bar.Volume),
		DollarVolume: int64(math.Trunc(bar.Close * bar.Volume)),
		PriceFactor:  data.Decimal(priceFactor),
		SplitFactor:  data.Decimal(splitFactor),
	}, true
}

// Get returns the named property for a security on a day: financial
// properties delegate to the filing service, anything else reads the
// coarse row for permID. A financial property with no coarse row is
// NaN; unknown coarse names and missing rows resolve to zero.
func (e *Engine) Get(ctx context.Context, property string, day data.Day, permID string) float64 {
	rows := e.ensureDay(ctx, day)

	row, ok := rows[permID]

	if parsed := ParseProperty(property); parsed.Kind != PropertyUnknown {
		if !ok {
			return math.NaN()
		}

		return e.fund.Lookup(ctx, row.Ticker, day, property)
	}

	if !ok {
		return 0
	}

	switch property {
	case "Price", "Close":
		return float64(row.Close)
	case "Volume":
		return float64(row.Volume)
	case "DollarVolume":
		return float64(row.DollarVolume)
	case "PriceFactor":
		return float64(row.PriceFactor)
	case "SplitFactor":
		return float64(row.SplitFactor)
	}

	return 0
}

// ensureDay loads the coarse file for day into the single-entry row
// cache, generating it first when absent. Requests for distinct days
// serialize here and evict one another.
func (e *Engine) ensureDay(ctx context.Context, day data.Day) map[string]data.CoarseRow {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.rows != nil && e.cacheDay.Equal(day) {
		return e.rows
	}

	if err := e.GenerateFor(ctx, day); err != nil {
		return nil
	}

	raw, err := e.lib.Read(e.lib.CoarsePath(day))
	if err != nil {
		log.Error().Err(err).Str("Date", day.ISO()).Msg("could not read coarse universe")
		return nil
	}

	parsed, err := data.ParseCoarseRows(bytes.NewReader(raw))
	if err != nil {
		log.Error().Err(err).Str("Date", day.ISO()).Msg("corrupt coarse universe removed")
		e.lib.Remove(e.lib.CoarsePath(day))
		return nil
	}

	rows := make(map[string]data.CoarseRow, len(parsed))
	for _, row := range parsed {
		rows[row.PermID] = row
	}

	e.cacheDay = day
	e.rows = rows

	return rows
}
