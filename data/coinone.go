// Copyright 2021-2023
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package data

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/penny-vault/pv-benchmark/common"
	"github.com/penny-vault/pv-benchmark/observability/opentelemetry"
	"github.com/penny-vault/pv-benchmark/roster"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

const (
	CoinoneAPI      = "https://api.coinone.co.kr"
	CoinonePageSize = 500
)

// Coinone serves the crypto exchange feed from the Coinone public chart API.
// Each call returns at most CoinonePageSize daily candles ending at the
// requested timestamp, so long windows are assembled from several pages.
type Coinone struct {
	baseURL  string
	quote    string
	maxPages int
	client   *http.Client
	limiter  *rate.Limiter
}

type coinoneCandle struct {
	Timestamp int64           `json:"timestamp"`
	Close     decimal.Decimal `json:"close"`
}

type coinoneChartResponse struct {
	Result    string          `json:"result"`
	ErrorCode string          `json:"error_code"`
	IsLast    bool            `json:"is_last"`
	Chart     []coinoneCandle `json:"chart"`
}

// NewCoinone creates an exchange feed provider. quote is the default quote
// currency for instruments that do not name one; maxPages bounds pagination.
func NewCoinone(baseURL, quote string, maxPages int, requestsPerSecond float64) *Coinone {
	if baseURL == "" {
		baseURL = CoinoneAPI
	}
	if quote == "" {
		quote = roster.DefaultQuote
	}
	if maxPages <= 0 {
		maxPages = 1
	}
	return &Coinone{
		baseURL:  baseURL,
		quote:    strings.ToUpper(quote),
		maxPages: maxPages,
		client:   &http.Client{},
		limiter:  newLimiter(requestsPerSecond),
	}
}

func (c *Coinone) Source() roster.Source {
	return roster.SourceExchange
}

func (c *Coinone) Name() string {
	return "coinone"
}

// FetchCloses walks the chart backwards from End until the page covering Begin
// has been read. Candles are bucketed by calendar day in the location of Begin.
func (c *Coinone) FetchCloses(ctx context.Context, req Request) ([]float64, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "coinone.FetchCloses")
	defer span.End()

	quote := c.quote
	if req.Instrument.Quote != "" {
		quote = strings.ToUpper(req.Instrument.Quote)
	}
	target := strings.ToUpper(req.Instrument.Symbol)
	loc := req.Begin.Location()
	begin := day(req.Begin)
	end := day(req.End.In(loc))
	cursor := end.AddDate(0, 0, 1).UnixMilli() - 1

	span.SetAttributes(
		attribute.String("Target", target),
		attribute.String("Quote", quote),
	)

	subLog := log.With().Str("Provider", c.Name()).Str("Symbol", target).Str("Quote", quote).Time("Begin", begin).Time("End", end).Logger()

	candles := make([]coinoneCandle, 0, CoinonePageSize)
	covered := false
	pages := 0
	for pages < c.maxPages {
		page, err := c.fetchPage(ctx, quote, target, cursor)
		pages++
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "coinone fetch failed")
			subLog.Warn().Err(err).Int("Page", pages).Msg("coinone fetch failed")
			return nil, err
		}

		if len(page.Chart) == 0 {
			break
		}

		oldest := page.Chart[0].Timestamp
		for _, candle := range page.Chart {
			if candle.Timestamp < oldest {
				oldest = candle.Timestamp
			}
		}
		candles = append(candles, page.Chart...)

		if oldest <= begin.UnixMilli() {
			covered = true
			break
		}
		if page.IsLast || len(page.Chart) < CoinonePageSize {
			// the market has no older history
			covered = true
			break
		}
		cursor = oldest - 1
	}

	if !covered {
		subLog.Warn().Int("MaxPages", c.maxPages).Msg("coinone history truncated before start of window")
	}

	// pages arrive newest first; in timestamp order the latest candle of a day wins
	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].Timestamp < candles[j].Timestamp
	})

	byDay := make(map[string]int, len(candles))
	closes := make([]Close, 0, len(candles))
	for _, candle := range candles {
		dt := time.UnixMilli(candle.Timestamp).In(loc)
		if dt.Before(begin) || !dt.Before(end.AddDate(0, 0, 1)) {
			continue
		}
		dayClose := Close{
			Date:  day(dt),
			Price: candle.Close.InexactFloat64(),
		}
		key := dt.Format(common.DateFormat)
		if idx, ok := byDay[key]; ok {
			closes[idx] = dayClose
			continue
		}
		byDay[key] = len(closes)
		closes = append(closes, dayClose)
	}

	// an empty window is not a feed error; callers treat it as insufficient data
	if len(closes) == 0 {
		subLog.Warn().Int("Pages", pages).Msg("no candles inside window")
		return []float64{}, nil
	}

	subLog.Debug().Int("NumCloses", len(closes)).Int("Pages", pages).Msg("fetched closes")
	return sortedPrices(closes), nil
}

func (c *Coinone) fetchPage(ctx context.Context, quote, target string, cursor int64) (*coinoneChartResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: throttle: %v", ErrDataSource, err)
	}

	u := fmt.Sprintf("%s/public/v2/chart/%s/%s?interval=1d&size=%d&timestamp=%d", c.baseURL,
		url.PathEscape(quote), url.PathEscape(target), CoinonePageSize, cursor)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataSource, err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: coinone fetch: %v", ErrDataSource, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: coinone: status %d", ErrDataSource, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: coinone read body: %v", ErrDataSource, err)
	}

	page := coinoneChartResponse{}
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("%w: coinone decode: %v", ErrDataSource, err)
	}

	if page.Result != "success" {
		return nil, fmt.Errorf("%w: coinone: result %q error code %s", ErrDataSource, page.Result, page.ErrorCode)
	}

	return &page, nil
}
