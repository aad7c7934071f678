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

package data_test

import (
	"context"
	"net/http"

	"github.com/jarcoal/httpmock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pv-benchmark/data"
	"github.com/penny-vault/pv-benchmark/roster"
)

const yahooSPY = `{"chart":{"result":[{"meta":{"symbol":"SPY"},
"timestamp":[1641220200,1641306600,1641393000],
"indicators":{"quote":[{"close":[477.71,null,468.38]}]}}],"error":null}`

const yahooAllNull = `{"chart":{"result":[{"meta":{"symbol":"SPY"},
"timestamp":[1641220200,1641306600],
"indicators":{"quote":[{"close":[null,null]}]}}],"error":null}`

const yahooNotFound = `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`

var _ = Describe("Yahoo", func() {
	var (
		yahoo *data.Yahoo
		req   data.Request
		query map[string]string
		url   string
	)

	BeforeEach(func() {
		yahoo = data.NewYahoo("", 0)
		req = data.Request{
			Instrument: roster.Instrument{Name: "SPY", Source: roster.SourceMarket, Symbol: "SPY"},
			Begin:      utcDay(2022, 1, 3),
			End:        utcDay(2022, 1, 5),
		}
		url = "https://query1.finance.yahoo.com/v8/finance/chart/SPY"
		query = map[string]string{
			"period1":  "1641168000",
			"period2":  "1641427200",
			"interval": "1d",
		}
	})

	It("identifies as the market source", func() {
		Expect(yahoo.Source()).To(Equal(roster.SourceMarket))
		Expect(yahoo.Name()).To(Equal("yahoo"))
	})

	It("returns closes in date order and skips null bars", func() {
		httpmock.RegisterResponderWithQuery("GET", url, query, httpmock.NewStringResponder(200, yahooSPY))

		closes, err := yahoo.FetchCloses(context.Background(), req)
		Expect(err).To(BeNil())
		Expect(closes).To(Equal([]float64{477.71, 468.38}))
	})

	It("sends a browser user agent", func() {
		var agent string
		httpmock.RegisterResponderWithQuery("GET", url, query, func(r *http.Request) (*http.Response, error) {
			agent = r.Header.Get("User-Agent")
			return httpmock.NewStringResponse(200, yahooSPY), nil
		})

		_, err := yahoo.FetchCloses(context.Background(), req)
		Expect(err).To(BeNil())
		Expect(agent).To(Equal("Mozilla/5.0"))
	})

	It("reports an unknown symbol as a data source error", func() {
		httpmock.RegisterResponderWithQuery("GET", url, query, httpmock.NewStringResponder(404, yahooNotFound))

		_, err := yahoo.FetchCloses(context.Background(), req)
		Expect(err).To(MatchError(data.ErrDataSource))
	})

	It("reports a server error as a data source error", func() {
		httpmock.RegisterResponderWithQuery("GET", url, query, httpmock.NewStringResponder(500, "oops"))

		_, err := yahoo.FetchCloses(context.Background(), req)
		Expect(err).To(MatchError(data.ErrDataSource))
	})

	It("reports a window without closes as a data source error", func() {
		httpmock.RegisterResponderWithQuery("GET", url, query, httpmock.NewStringResponder(200, yahooAllNull))

		_, err := yahoo.FetchCloses(context.Background(), req)
		Expect(err).To(MatchError(data.ErrDataSource))
	})

	It("reports malformed json as a data source error", func() {
		httpmock.RegisterResponderWithQuery("GET", url, query, httpmock.NewStringResponder(200, `{"chart":`))

		_, err := yahoo.FetchCloses(context.Background(), req)
		Expect(err).To(MatchError(data.ErrDataSource))
	})

	It("reports a transport failure as a data source error", func() {
		httpmock.RegisterResponderWithQuery("GET", url, query, httpmock.NewErrorResponder(context.DeadlineExceeded))

		_, err := yahoo.FetchCloses(context.Background(), req)
		Expect(err).To(MatchError(data.ErrDataSource))
	})

	It("honors a custom base url", func() {
		yahoo = data.NewYahoo("http://localhost:9999", 0)
		httpmock.RegisterResponderWithQuery("GET", "http://localhost:9999/v8/finance/chart/SPY", query, httpmock.NewStringResponder(200, yahooSPY))

		closes, err := yahoo.FetchCloses(context.Background(), req)
		Expect(err).To(BeNil())
		Expect(closes).To(HaveLen(2))
	})
})
