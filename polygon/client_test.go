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

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(serverURL string) *Client {
	c := New("test-key", 5000)
	c.http.SetBaseURL(serverURL)

	return c
}

func TestFetchAllFollowsContinuations(t *testing.T) {
	var server *httptest.Server

	mux := http.NewServeMux()
	mux.HandleFunc("/v3/reference/splits", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("apiKey"))
		assert.Equal(t, "AAPL", r.URL.Query().Get("ticker"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"OK","results":[{"execution_date":"2020-08-31","split_from":1,"split_to":4}],"next_url":"%s/page2"}`, server.URL)
	})
	mux.HandleFunc("/page2", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("apiKey"), "continuation requests stay authenticated")

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"OK","results":[{"execution_date":"2014-06-09","split_from":1,"split_to":7}]}`)
	})

	server = httptest.NewServer(mux)
	defer server.Close()

	splits, err := FetchAll[Split](context.Background(), newTestClient(server.URL), "v3/reference/splits", map[string]string{"ticker": "AAPL"})
	require.NoError(t, err)
	require.Len(t, splits, 2)

	assert.Equal(t, "2020-08-31", splits[0].ExecutionDate)
	assert.Equal(t, 0.25, splits[0].Factor())
	assert.Equal(t, "2014-06-09", splits[1].ExecutionDate)
}

func TestFetchPagesInvalidStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := FetchAll[Split](context.Background(), newTestClient(server.URL), "v3/reference/splits", nil)
	assert.ErrorIs(t, err, ErrInvalidStatusCode)
}

func TestGetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"OK","tickers":[{"ticker":"AAPL","prevDay":{"c":190.25,"v":1000}}]}`)
	}))
	defer server.Close()

	var snapshot SnapshotResponse
	err := newTestClient(server.URL).GetJSON(context.Background(), "v2/snapshot/locale/us/markets/stocks/tickers", nil, &snapshot)
	require.NoError(t, err)

	require.Len(t, snapshot.Tickers, 1)
	assert.Equal(t, 190.25, snapshot.Tickers[0].PrevDay.Close)
	assert.Equal(t, 1000.0, snapshot.Tickers[0].PrevDay.Volume)
}

func TestSplitFactor(t *testing.T) {
	assert.Equal(t, 0.5, Split{SplitFrom: 1, SplitTo: 2}.Factor())
	assert.Equal(t, 10.0, Split{SplitFrom: 10, SplitTo: 1}.Factor(), "reverse split factors exceed one")
	assert.Equal(t, 0.0, Split{SplitFrom: 1}.Factor(), "degenerate payloads resolve to zero")
}
