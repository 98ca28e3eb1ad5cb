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

// Package polygon is the upstream gateway to the Polygon.io REST API.
// Engines hand it resource paths and parameter maps; the gateway owns
// URLs, pagination, rate limiting, and response decoding.
package polygon

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var (
	ErrInvalidStatusCode = errors.New("invalid status code received")
)

const baseURL = "https://api.polygon.io"

// maxPages is a protective measure to make sure a broken next_url
// chain can't put us into an infinite loop.
const maxPages = 1000

// Gateway is the engine-facing contract: page through a listing
// resource, or fetch a single payload.
type Gateway interface {
	// FetchPages retrieves the resource and invokes page with each
	// page's raw results array, transparently following next_url
	// continuation links until exhausted.
	FetchPages(ctx context.Context, path string, params map[string]string, page func(results json.RawMessage) error) error

	// GetJSON retrieves the resource once and decodes the full body
	// into result.
	GetJSON(ctx context.Context, path string, params map[string]string, result any) error
}

type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
}

// New builds a client authenticated with apiKey, pacing requests to
// requestsPerMinute (0 or less means the generous paid-tier default).
func New(apiKey string, requestsPerMinute int) *Client {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 5000
	}

	return &Client{
		http:    resty.New().SetBaseURL(baseURL).SetQueryParam("apiKey", apiKey),
		limiter: rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/float64(61)), 1),
	}
}

// envelope is the common wrapper on Polygon listing responses.
type envelope struct {
	Results   json.RawMessage `json:"results"`
	Status    string          `json:"status"`
	RequestID string          `json:"request_id"`
	Count     int             `json:"count"`
	Next      string          `json:"next_url"`
}

func (c *Client) FetchPages(ctx context.Context, path string, params map[string]string, page func(results json.RawMessage) error) error {
	logger := zerolog.Ctx(ctx)

	var respContent envelope

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&respContent).
		Get(path)
	if err != nil {
		logger.Error().Err(err).Str("Path", path).Msg("resty returned an error when querying polygon")
		return err
	}

	for ii := 0; ii < maxPages; ii++ {
		if resp.StatusCode() >= 300 {
			logger.Error().Int("StatusCode", resp.StatusCode()).Str("ResponseBody", string(resp.Body())).
				Str("Path", path).
				Msg("received an invalid status code when querying polygon")
			return fmt.Errorf("%w (%d): %s", ErrInvalidStatusCode, resp.StatusCode(), string(resp.Body()))
		}

		if len(respContent.Results) > 0 {
			if err := page(respContent.Results); err != nil {
				return err
			}
		}

		// check if all results have been returned
		if respContent.Next == "" {
			break
		}

		// get next result
		next := respContent.Next
		respContent = envelope{}

		logger.Debug().Str("Next", next).Str("Path", path).Int("ii", ii).Msg("making next query")

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		resp, err = c.http.R().
			SetContext(ctx).
			SetResult(&respContent).
			Get(next)
		if err != nil {
			logger.Error().Err(err).Str("Path", path).Msg("resty returned an error when querying polygon")
			return err
		}
	}

	return nil
}

func (c *Client) GetJSON(ctx context.Context, path string, params map[string]string, result any) error {
	logger := zerolog.Ctx(ctx)

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(result).
		Get(path)
	if err != nil {
		logger.Error().Err(err).Str("Path", path).Msg("resty returned an error when querying polygon")
		return err
	}

	if resp.StatusCode() >= 300 {
		logger.Error().Int("StatusCode", resp.StatusCode()).Str("ResponseBody", string(resp.Body())).
			Str("Path", path).
			Msg("received an invalid status code when querying polygon")
		return fmt.Errorf("%w (%d): %s", ErrInvalidStatusCode, resp.StatusCode(), string(resp.Body()))
	}

	return nil
}

// FetchAll pages through a listing resource and accumulates every
// decoded result.
func FetchAll[T any](ctx context.Context, api Gateway, path string, params map[string]string) ([]T, error) {
	var out []T

	err := api.FetchPages(ctx, path, params, func(results json.RawMessage) error {
		page := []T{}
		if err := json.Unmarshal(results, &page); err != nil {
			return err
		}

		out = append(out, page...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// AggsPath builds the daily unadjusted aggregates resource path for a
// ticker and date range.
func AggsPath(ticker string, from, to string) string {
	return fmt.Sprintf("v2/aggs/ticker/%s/range/1/day/%s/%s", strings.ToUpper(ticker), from, to)
}

// TickerEventsPath builds the ticker events resource path.
func TickerEventsPath(ticker string) string {
	return fmt.Sprintf("v3/reference/tickers/%s/events", strings.ToUpper(ticker))
}
