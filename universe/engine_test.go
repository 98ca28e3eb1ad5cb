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
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/penny-vault/pvlean/data"
	"github.com/penny-vault/pvlean/library"
	"github.com/penny-vault/pvlean/polygon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream down")

type stubGateway struct {
	mu       sync.Mutex
	calls    map[string]int
	tickers  []polygon.Ticker
	snapshot polygon.SnapshotResponse
	fail     bool
}

func newStubGateway() *stubGateway {
	return &stubGateway{calls: make(map[string]int)}
}

func (g *stubGateway) count(path string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.calls == nil {
		g.calls = make(map[string]int)
	}
	g.calls[path]++
}

func (g *stubGateway) callCount(path string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[path]
}

func (g *stubGateway) FetchPages(_ context.Context, path string, _ map[string]string, page func(json.RawMessage) error) error {
	g.count(path)

	if g.fail {
		return errUpstream
	}

	var payload any
	if path == "v3/reference/tickers" {
		payload = g.tickers
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return page(raw)
}

func (g *stubGateway) GetJSON(_ context.Context, path string, _ map[string]string, result any) error {
	g.count(path)

	if g.fail {
		return errUpstream
	}

	if strings.HasPrefix(path, "v2/snapshot/") {
		*(result.(*polygon.SnapshotResponse)) = g.snapshot
	}

	return nil
}

// stubFactors serves pre-built factor files by ticker.
type stubFactors struct {
	files map[string]*data.FactorFile
}

func (s stubFactors) Get(_ context.Context, sec data.Security) *data.FactorFile {
	return s.files[sec.Ticker]
}

func marketFixture() *stubGateway {
	api := newStubGateway()
	api.tickers = []polygon.Ticker{
		{Ticker: "AAPL", CompositeFIGI: "BBG000B9XRY4", Type: "CS", Active: true},
		{Ticker: "MSFT", CompositeFIGI: "BBG000BPH459", Type: "CS", Active: true},
		{Ticker: "NOID", Type: "CS", Active: true},
	}
	api.snapshot = polygon.SnapshotResponse{
		Tickers: []polygon.SnapshotTicker{
			{Ticker: "AAPL", PrevDay: polygon.SnapshotBar{Close: 190.25, Volume: 1000}},
			{Ticker: "MSFT", Day: polygon.SnapshotBar{Close: 410.50, Volume: 2000}},
			{Ticker: "NOID", PrevDay: polygon.SnapshotBar{Close: 5.25, Volume: 100}},
			{Ticker: "ETFX", PrevDay: polygon.SnapshotBar{Close: 50, Volume: 9999}},
			{Ticker: "HALT", PrevDay: polygon.SnapshotBar{Close: 12.50, Volume: 0}},
		},
	}

	return api
}

func newCoarseEngine(t *testing.T, api polygon.Gateway, factors FactorSource) (*Engine, *library.Library) {
	t.Helper()

	lib := library.New(t.TempDir())
	fund := NewFundamentalService(lib, api, 24, false)

	return NewEngine(lib, api, factors, fund, 4), lib
}

func TestGenerateForWritesSortedRows(t *testing.T) {
	day := data.NewDay(2024, time.July, 1)
	api := marketFixture()

	aaplFactors := &data.FactorFile{
		Symbol: "AAPL",
		Rows: []data.FactorRow{
			{Date: data.EarliestDate, PriceFactor: 0.9, SplitFactor: 0.25},
			{Date: data.NewDay(2024, time.August, 30), PriceFactor: 0.9, SplitFactor: 0.25, ReferencePrice: 200},
			{Date: data.NewDay(2030, time.January, 1), PriceFactor: 1, SplitFactor: 1},
		},
	}

	engine, lib := newCoarseEngine(t, api, stubFactors{files: map[string]*data.FactorFile{"AAPL": aaplFactors}})

	require.NoError(t, engine.GenerateFor(context.Background(), day))

	raw, err := lib.Read(lib.CoarsePath(day))
	require.NoError(t, err)

	rows, err := data.ParseCoarseRows(bytes.NewReader(raw))
	require.NoError(t, err)

	// ETFX is not an active common stock and HALT has no volume
	require.Len(t, rows, 3)

	// sorted by permanent identifier string: BBG... before the
	// ticker fallback
	assert.Equal(t, "BBG000B9XRY4", rows[0].PermID)
	assert.Equal(t, "BBG000BPH459", rows[1].PermID)
	assert.Equal(t, "NOID", rows[2].PermID, "missing FIGI falls back to the ticker")

	aapl := rows[0]
	assert.Equal(t, "AAPL", aapl.Ticker)
	assert.Equal(t, data.Decimal(190.25), aapl.Close)
	assert.Equal(t, int64(1000), aapl.Volume)
	assert.Equal(t, int64(190250), aapl.DollarVolume)
	assert.Equal(t, data.Flag(false), aapl.HasFundamentalData)
	assert.Equal(t, data.Decimal(0.9), aapl.PriceFactor)
	assert.Equal(t, data.Decimal(0.25), aapl.SplitFactor)

	// MSFT had no prev-day bar; the day bar stands in, with factors
	// defaulting to 1
	msft := rows[1]
	assert.Equal(t, data.Decimal(410.50), msft.Close)
	assert.Equal(t, int64(821000), msft.DollarVolume)
	assert.Equal(t, data.Decimal(1), msft.PriceFactor)
	assert.Equal(t, data.Decimal(1), msft.SplitFactor)
}

func TestGenerateForIsIdempotent(t *testing.T) {
	day := data.NewDay(2024, time.July, 1)
	api := marketFixture()
	engine, _ := newCoarseEngine(t, api, stubFactors{})

	require.NoError(t, engine.GenerateFor(context.Background(), day))
	require.NoError(t, engine.GenerateFor(context.Background(), day))

	assert.Equal(t, 1, api.callCount("v3/reference/tickers"), "an existing coarse file skips upstream entirely")
}

func TestGenerateForConcurrent(t *testing.T) {
	day := data.NewDay(2024, time.July, 1)
	api := marketFixture()
	engine, _ := newCoarseEngine(t, api, stubFactors{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, engine.GenerateFor(context.Background(), day))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, api.callCount("v3/reference/tickers"))
	assert.Equal(t, 1, api.callCount("v2/snapshot/locale/us/markets/stocks/tickers"))
}

func TestGenerateForUpstreamFailure(t *testing.T) {
	day := data.NewDay(2024, time.July, 1)
	api := newStubGateway()
	api.fail = true
	engine, lib := newCoarseEngine(t, api, stubFactors{})

	assert.Error(t, engine.GenerateFor(context.Background(), day))
	assert.False(t, lib.Exists(lib.CoarsePath(day)))
}

func TestGetCoarseProperties(t *testing.T) {
	day := data.NewDay(2024, time.July, 1)
	api := marketFixture()
	engine, _ := newCoarseEngine(t, api, stubFactors{})

	ctx := context.Background()

	assert.Equal(t, 190.25, engine.Get(ctx, "Price", day, "BBG000B9XRY4"))
	assert.Equal(t, 1000.0, engine.Get(ctx, "Volume", day, "BBG000B9XRY4"))
	assert.Equal(t, 190250.0, engine.Get(ctx, "DollarVolume", day, "BBG000B9XRY4"))
	assert.Equal(t, 1.0, engine.Get(ctx, "SplitFactor", day, "BBG000B9XRY4"))
	assert.Equal(t, 0.0, engine.Get(ctx, "Price", day, "MISSING"))
	assert.Equal(t, 0.0, engine.Get(ctx, "NoSuchColumn", day, "BBG000B9XRY4"))
}

func TestGetDelegatesFundamentals(t *testing.T) {
	day := data.NewDay(2024, time.July, 1)
	api := marketFixture()
	engine, _ := newCoarseEngine(t, api, stubFactors{})

	seedQuarters(engine.Fundamentals(), 4)

	ctx := context.Background()

	got := engine.Get(ctx, "FinancialStatements_IncomeStatement_TotalRevenue_TwelveMonths", day, "BBG000B9XRY4")
	assert.Equal(t, 460000.0, got)

	assert.Equal(t, 1.0, engine.Get(ctx, "HasFundamentalData", day, "BBG000B9XRY4"))
	assert.Equal(t, 0.0, engine.Get(ctx, "HasFundamentalData", day, "BBG000BPH459"))

	got = engine.Get(ctx, "FinancialStatements_IncomeStatement_TotalRevenue_TwelveMonths", day, "MISSING")
	assert.True(t, math.IsNaN(got), "financial lookups without a coarse row are NaN")
}

func TestPerDayCacheEvicts(t *testing.T) {
	dayOne := data.NewDay(2024, time.July, 1)
	dayTwo := data.NewDay(2024, time.July, 2)
	api := marketFixture()
	engine, _ := newCoarseEngine(t, api, stubFactors{})

	ctx := context.Background()

	assert.Equal(t, 190.25, engine.Get(ctx, "Price", dayOne, "BBG000B9XRY4"))
	assert.Equal(t, 190.25, engine.Get(ctx, "Price", dayTwo, "BBG000B9XRY4"))
	assert.Equal(t, 190.25, engine.Get(ctx, "Price", dayOne, "BBG000B9XRY4"))

	// each day generated once; flipping back to dayOne re-reads the
	// file without touching upstream
	assert.Equal(t, 2, api.callCount("v3/reference/tickers"))
}
