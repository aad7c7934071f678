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
	"time"

	"github.com/goccy/go-json"
	"github.com/penny-vault/pv-benchmark/observability/opentelemetry"
	"github.com/penny-vault/pv-benchmark/roster"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

const (
	YahooAPI = "https://query1.finance.yahoo.com"
)

// Yahoo serves the market feed (equities, indices, ETFs) from the Yahoo
// Finance chart API
type Yahoo struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// NewYahoo creates a market feed provider. An empty baseURL selects the public
// Yahoo endpoint.
func NewYahoo(baseURL string, requestsPerSecond float64) *Yahoo {
	if baseURL == "" {
		baseURL = YahooAPI
	}
	return &Yahoo{
		baseURL: baseURL,
		client:  &http.Client{},
		limiter: newLimiter(requestsPerSecond),
	}
}

func (y *Yahoo) Source() roster.Source {
	return roster.SourceMarket
}

func (y *Yahoo) Name() string {
	return "yahoo"
}

// FetchCloses requests daily bars for [Begin, End]. period2 is exclusive on the
// Yahoo side so it is pushed to the start of the day after End.
func (y *Yahoo) FetchCloses(ctx context.Context, req Request) ([]float64, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "yahoo.FetchCloses")
	defer span.End()

	symbol := req.Instrument.Symbol
	begin := day(req.Begin)
	end := day(req.End).AddDate(0, 0, 1)

	subLog := log.With().Str("Provider", y.Name()).Str("Symbol", symbol).Time("Begin", begin).Time("End", req.End).Logger()

	u := fmt.Sprintf("%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=1d", y.baseURL, url.PathEscape(symbol), begin.Unix(), end.Unix())
	span.SetAttributes(
		attribute.String("Url", u),
		attribute.String("Symbol", symbol),
	)

	fail := func(err error, msg string) ([]float64, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, msg)
		subLog.Warn().Err(err).Msg(msg)
		return nil, err
	}

	if err := y.limiter.Wait(ctx); err != nil {
		return fail(fmt.Errorf("%w: throttle: %v", ErrDataSource, err), "throttle wait aborted")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fail(fmt.Errorf("%w: %v", ErrDataSource, err), "could not build yahoo request")
	}
	httpReq.Header.Set("User-Agent", "Mozilla/5.0")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := y.client.Do(httpReq)
	if err != nil {
		return fail(fmt.Errorf("%w: yahoo fetch: %v", ErrDataSource, err), "yahoo http request failed")
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("StatusCode", resp.StatusCode))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(fmt.Errorf("%w: yahoo read body: %v", ErrDataSource, err), "could not read yahoo body")
	}

	chart := yahooChartResponse{}
	decodeErr := json.Unmarshal(body, &chart)

	// yahoo reports unknown symbols as a 404 with an error object in the body
	if chart.Chart.Error != nil {
		return fail(fmt.Errorf("%w: yahoo: %s: %s", ErrDataSource, chart.Chart.Error.Code, chart.Chart.Error.Description), "yahoo returned an error")
	}
	if resp.StatusCode != http.StatusOK {
		return fail(fmt.Errorf("%w: yahoo: status %d", ErrDataSource, resp.StatusCode), "yahoo returned invalid response code")
	}
	if decodeErr != nil {
		return fail(fmt.Errorf("%w: yahoo decode: %v", ErrDataSource, decodeErr), "could not unmarshal json")
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return fail(fmt.Errorf("%w: yahoo: no data returned", ErrDataSource), "no results returned")
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	closes := make([]Close, 0, len(result.Timestamp))
	for idx, ts := range result.Timestamp {
		if idx >= len(quote.Close) {
			break
		}
		// skip null bars (holidays, halted sessions)
		if quote.Close[idx] == nil {
			continue
		}
		closes = append(closes, Close{
			Date:  time.Unix(ts, 0),
			Price: *quote.Close[idx],
		})
	}

	if len(closes) == 0 {
		return fail(fmt.Errorf("%w: yahoo: no data returned", ErrDataSource), "no results returned")
	}

	subLog.Debug().Int("NumCloses", len(closes)).Msg("fetched closes")
	return sortedPrices(closes), nil
}
