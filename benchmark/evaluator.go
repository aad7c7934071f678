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

package benchmark

import (
	"context"
	"time"

	"github.com/penny-vault/pv-benchmark/common"
	"github.com/penny-vault/pv-benchmark/data"
	"github.com/penny-vault/pv-benchmark/metrics"
	"github.com/penny-vault/pv-benchmark/roster"
	"github.com/rs/zerolog/log"
)

const DefaultRequestTimeout = 30 * time.Second

// ResolveRange returns the inclusive date range of period p as seen at now.
// end is now truncated to midnight in tz so every evaluation made during the
// same calendar day resolves to the same range.
func ResolveRange(now time.Time, p roster.Period, tz *time.Location) (start, end time.Time) {
	if tz == nil {
		tz = time.UTC
	}
	local := now.In(tz)
	end = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, tz)
	start = end.AddDate(0, 0, -p.Days)
	return
}

// Evaluator turns one (instrument, period) pair into a terminal Outcome
type Evaluator struct {
	Registry *data.Registry
	Timezone *time.Location
	Timeout  time.Duration
}

func NewEvaluator(registry *data.Registry, tz *time.Location, timeout time.Duration) *Evaluator {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Evaluator{
		Registry: registry,
		Timezone: tz,
		Timeout:  timeout,
	}
}

// Evaluate never returns an error; every failure becomes a Failed outcome
func (e *Evaluator) Evaluate(ctx context.Context, inst roster.Instrument, period roster.Period, now time.Time) Outcome {
	begin, end := ResolveRange(now, period, e.Timezone)

	subLog := log.With().Str("Instrument", inst.Name).Str("Period", period.Key).Str("Begin", begin.Format(common.DateFormat)).Str("End", end.Format(common.DateFormat)).Logger()

	provider, err := e.Registry.Provider(inst.Source)
	if err != nil {
		subLog.Error().Err(err).Msg("no provider for instrument")
		return failed(period, ReasonDataSource, err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	prices, err := provider.FetchCloses(reqCtx, data.Request{
		Instrument: inst,
		Begin:      begin,
		End:        end,
	})
	if err != nil {
		subLog.Warn().Err(err).Str("Provider", provider.Name()).Msg("fetch closes failed")
		return failed(period, ReasonDataSource, err)
	}

	res, err := metrics.Compute(prices)
	if err != nil {
		// only ErrInsufficientData is possible here
		subLog.Warn().Err(err).Int("NumCloses", len(prices)).Msg("not enough closes to compute metrics")
		return failed(period, ReasonInsufficientData, err)
	}

	subLog.Debug().Float64("ReturnPct", res.ReturnPct).Float64("MaxDrawDownPct", res.MaxDrawDownPct).Int("NumCloses", len(prices)).Msg("evaluated period")
	return succeeded(period, res)
}

// EvaluateInstrument evaluates every period in order
func (e *Evaluator) EvaluateInstrument(ctx context.Context, inst roster.Instrument, periods []roster.Period, now time.Time) Report {
	report := Report{
		Instrument: inst,
		Outcomes:   make([]Outcome, 0, len(periods)),
		Evaluated:  now,
	}
	for _, period := range periods {
		report.Outcomes = append(report.Outcomes, e.Evaluate(ctx, inst, period, now))
	}
	return report
}
