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

package benchmark_test

import (
	"context"
	"fmt"
	"time"

	"github.com/jarcoal/httpmock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pv-benchmark/benchmark"
	"github.com/penny-vault/pv-benchmark/data"
	"github.com/penny-vault/pv-benchmark/metrics"
	"github.com/penny-vault/pv-benchmark/roster"
)

var _ = Describe("ResolveRange", func() {
	month := roster.Period{Key: "1m", Label: "1 month", Days: 30}

	It("ends at midnight of the current day", func() {
		now := time.Date(2022, 6, 15, 13, 45, 0, 0, time.UTC)
		start, end := benchmark.ResolveRange(now, month, time.UTC)
		Expect(end).To(Equal(time.Date(2022, 6, 15, 0, 0, 0, 0, time.UTC)))
		Expect(start).To(Equal(time.Date(2022, 5, 16, 0, 0, 0, 0, time.UTC)))
	})

	It("resolves identical ranges within a calendar day", func() {
		morning := time.Date(2022, 6, 15, 0, 0, 1, 0, time.UTC)
		night := time.Date(2022, 6, 15, 23, 59, 59, 0, time.UTC)
		s1, e1 := benchmark.ResolveRange(morning, month, time.UTC)
		s2, e2 := benchmark.ResolveRange(night, month, time.UTC)
		Expect(s1).To(Equal(s2))
		Expect(e1).To(Equal(e2))
	})

	It("uses the calendar day of the given timezone", func() {
		seoul, err := time.LoadLocation("Asia/Seoul")
		Expect(err).To(BeNil())

		// 20:00 UTC is already the next day in Seoul
		now := time.Date(2022, 6, 15, 20, 0, 0, 0, time.UTC)
		_, end := benchmark.ResolveRange(now, month, seoul)
		Expect(end).To(Equal(time.Date(2022, 6, 16, 0, 0, 0, 0, seoul)))
	})

	It("defaults to UTC", func() {
		now := time.Date(2022, 6, 15, 20, 0, 0, 0, time.UTC)
		_, end := benchmark.ResolveRange(now, month, nil)
		Expect(end).To(Equal(time.Date(2022, 6, 15, 0, 0, 0, 0, time.UTC)))
	})
})

var _ = Describe("Evaluator", func() {
	var (
		market    *fakeProvider
		evaluator *benchmark.Evaluator
		gold      roster.Instrument
		month     roster.Period
		now       time.Time
	)

	BeforeEach(func() {
		market = newFakeProvider(roster.SourceMarket)
		evaluator = benchmark.NewEvaluator(data.NewRegistry(market), time.UTC, time.Second)
		gold = roster.Instrument{Name: "GOLD", Source: roster.SourceMarket, Symbol: "GLD", Category: "Commodities"}
		month = roster.Period{Key: "1m", Label: "1 month", Days: 30}
		now = time.Date(2022, 6, 15, 9, 0, 0, 0, time.UTC)
	})

	It("computes metrics for a good series", func() {
		market.closes["GOLD"] = []float64{100, 80, 120}

		outcome := evaluator.Evaluate(context.Background(), gold, month, now)
		Expect(outcome.Status).To(Equal(benchmark.StatusSucceeded))
		Expect(outcome.Result).To(Equal(&metrics.Result{ReturnPct: 20, MaxDrawDownPct: -20}))
		Expect(outcome.Period).To(Equal(month))
	})

	It("requests the resolved range under a deadline", func() {
		market.closes["GOLD"] = []float64{1, 2}

		evaluator.Evaluate(context.Background(), gold, month, now)
		Expect(market.requests).To(HaveLen(1))
		Expect(market.requests[0].Begin).To(Equal(time.Date(2022, 5, 16, 0, 0, 0, 0, time.UTC)))
		Expect(market.requests[0].End).To(Equal(time.Date(2022, 6, 15, 0, 0, 0, 0, time.UTC)))
		Expect(market.requests[0].Instrument).To(Equal(gold))
		Expect(market.deadline).To(BeTrue())
	})

	It("fails with a data source error when the provider fails", func() {
		outcome := evaluator.Evaluate(context.Background(), gold, month, now)
		Expect(outcome.Status).To(Equal(benchmark.StatusFailed))
		Expect(outcome.Reason).To(Equal(benchmark.ReasonDataSource))
		Expect(outcome.Err).To(MatchError(data.ErrDataSource))
		Expect(outcome.Result).To(BeNil())
	})

	It("fails with a data source error when no provider serves the source", func() {
		btc := roster.Instrument{Name: "BTC", Source: roster.SourceExchange, Symbol: "BTC", Quote: "KRW"}
		outcome := evaluator.Evaluate(context.Background(), btc, month, now)
		Expect(outcome.Status).To(Equal(benchmark.StatusFailed))
		Expect(outcome.Reason).To(Equal(benchmark.ReasonDataSource))
		Expect(outcome.Err).To(MatchError(data.ErrUnknownSource))
	})

	DescribeTable("fails with insufficient data for short series",
		func(prices []float64) {
			market.closes["GOLD"] = prices
			outcome := evaluator.Evaluate(context.Background(), gold, month, now)
			Expect(outcome.Status).To(Equal(benchmark.StatusFailed))
			Expect(outcome.Reason).To(Equal(benchmark.ReasonInsufficientData))
			Expect(outcome.Err).To(MatchError(metrics.ErrInsufficientData))
		},
		Entry("single close", []float64{50}),
		Entry("no closes", []float64{}),
	)

	It("is repeatable within a day", func() {
		market.closes["GOLD"] = []float64{10, 12, 9, 14}
		first := evaluator.Evaluate(context.Background(), gold, month, now)
		second := evaluator.Evaluate(context.Background(), gold, month, now.Add(5*time.Hour))
		Expect(second).To(Equal(first))
	})

	It("evaluates every period in order", func() {
		market.closes["GOLD"] = []float64{100, 110}
		market.failures[failureKey("GOLD", 90)] = true
		periods := []roster.Period{
			month,
			{Key: "3m", Label: "3 months", Days: 90},
			{Key: "6m", Label: "6 months", Days: 180},
		}

		report := evaluator.EvaluateInstrument(context.Background(), gold, periods, now)
		Expect(report.Instrument).To(Equal(gold))
		Expect(report.Outcomes).To(HaveLen(3))
		Expect(report.Outcomes[0].Period.Key).To(Equal("1m"))
		Expect(report.Outcomes[1].Period.Key).To(Equal("3m"))
		Expect(report.Outcomes[2].Period.Key).To(Equal("6m"))
		Expect(report.Outcomes[0].Status).To(Equal(benchmark.StatusSucceeded))
		Expect(report.Outcomes[1].Status).To(Equal(benchmark.StatusFailed))
		Expect(report.Outcomes[2].Status).To(Equal(benchmark.StatusSucceeded))
		Expect(report.Failures()).To(Equal(1))
	})
})

var _ = Describe("Evaluator with the exchange feed", func() {
	var (
		evaluator *benchmark.Evaluator
		btc       roster.Instrument
		month     roster.Period
		now       time.Time
		chartURL  string
		query     map[string]string
	)

	BeforeEach(func() {
		httpmock.Activate()
		evaluator = benchmark.NewEvaluator(data.NewRegistry(data.NewCoinone("", "KRW", 4, 0)), time.UTC, time.Second)
		btc = roster.Instrument{Name: "BTC", Source: roster.SourceExchange, Symbol: "BTC", Quote: "KRW"}
		month = roster.Period{Key: "1m", Label: "1 month", Days: 30}
		now = time.Date(2022, 6, 15, 9, 0, 0, 0, time.UTC)
		chartURL = data.CoinoneAPI + "/public/v2/chart/KRW/BTC"
		query = map[string]string{
			"interval":  "1d",
			"size":      "500",
			"timestamp": fmt.Sprintf("%d", time.Date(2022, 6, 16, 0, 0, 0, 0, time.UTC).UnixMilli()-1),
		}
	})

	AfterEach(func() {
		httpmock.DeactivateAndReset()
	})

	It("fails with insufficient data when no candle falls inside the window", func() {
		body := `{"result":"success","error_code":"0","is_last":true,"chart":[{"timestamp":1609459200000,"close":"35000000"}]}`
		httpmock.RegisterResponderWithQuery("GET", chartURL, query, httpmock.NewStringResponder(200, body))

		outcome := evaluator.Evaluate(context.Background(), btc, month, now)
		Expect(outcome.Status).To(Equal(benchmark.StatusFailed))
		Expect(outcome.Reason).To(Equal(benchmark.ReasonInsufficientData))
		Expect(outcome.Err).To(MatchError(metrics.ErrInsufficientData))
	})

	It("fails with a data source error when the exchange reports an error", func() {
		body := `{"result":"error","error_code":"107"}`
		httpmock.RegisterResponderWithQuery("GET", chartURL, query, httpmock.NewStringResponder(200, body))

		outcome := evaluator.Evaluate(context.Background(), btc, month, now)
		Expect(outcome.Status).To(Equal(benchmark.StatusFailed))
		Expect(outcome.Reason).To(Equal(benchmark.ReasonDataSource))
		Expect(outcome.Err).To(MatchError(data.ErrDataSource))
	})
})

var _ = Describe("Report", func() {
	It("maps failed periods to nil cells", func() {
		report := benchmark.Report{
			Instrument: roster.Instrument{Name: "BTC"},
			Outcomes: []benchmark.Outcome{
				{Period: roster.Period{Key: "1m"}, Status: benchmark.StatusSucceeded, Result: &metrics.Result{ReturnPct: 12.5, MaxDrawDownPct: -3.25}},
				{Period: roster.Period{Key: "3m"}, Status: benchmark.StatusFailed, Reason: benchmark.ReasonDataSource},
			},
		}

		row := report.Row()
		Expect(row.Name).To(Equal("BTC"))
		Expect(row.Ror).To(HaveLen(2))
		Expect(row.Mdd).To(HaveLen(2))
		Expect(*row.Ror["1m"]).To(Equal(12.5))
		Expect(*row.Mdd["1m"]).To(Equal(-3.25))
		Expect(row.Ror).To(HaveKeyWithValue("3m", BeNil()))
		Expect(row.Mdd).To(HaveKeyWithValue("3m", BeNil()))
	})

	It("names statuses", func() {
		Expect(benchmark.StatusSucceeded.String()).To(Equal("succeeded"))
		Expect(benchmark.StatusFailed.String()).To(Equal("failed"))
	})
})
