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
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/penny-vault/pv-benchmark/roster"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Summary describes a completed run
type Summary struct {
	RunID           uuid.UUID
	Started         time.Time
	Finished        time.Time
	Instruments     int
	Succeeded       int
	Failed          int
	Published       int
	PublishFailures int
}

// Runner evaluates every instrument of a roster and publishes the results
type Runner struct {
	Roster    *roster.Roster
	Evaluator *Evaluator
	Publisher Publisher

	// Workers bounds how many instruments are evaluated at once; values below
	// 1 run sequentially
	Workers int

	// Now is the clock; defaults to time.Now
	Now func() time.Time
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Run walks the full roster even when earlier instruments fail. The returned
// error is non-nil only when ctx is cancelled before the run completes.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	workers := r.Workers
	if workers < 1 {
		workers = 1
	}

	summary := Summary{
		RunID:       uuid.New(),
		Started:     r.now(),
		Instruments: len(r.Roster.Instruments),
	}

	subLog := log.With().Str("RunID", summary.RunID.String()).Logger()
	subLog.Info().Int("Instruments", summary.Instruments).Int("Periods", len(r.Roster.Periods)).Int("Workers", workers).Msg("starting benchmark run")

	// every instrument sees the same ranges
	now := summary.Started

	var mu sync.Mutex
	g := errgroup.Group{}
	g.SetLimit(workers)

	for _, inst := range r.Roster.Instruments {
		inst := inst
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			report := r.Evaluator.EvaluateInstrument(ctx, inst, r.Roster.Periods, now)
			failures := report.Failures()

			pubErr := r.Publisher.Publish(ctx, report)
			if pubErr != nil {
				subLog.Error().Stack().Err(pubErr).Str("Instrument", inst.Name).Msg("could not publish benchmark row")
			}

			mu.Lock()
			defer mu.Unlock()
			summary.Failed += failures
			summary.Succeeded += len(report.Outcomes) - failures
			if pubErr != nil {
				summary.PublishFailures++
			} else {
				summary.Published++
			}
			return nil
		})
	}

	err := g.Wait()
	summary.Finished = r.now()

	if summary.Published > 0 {
		if markErr := r.Publisher.MarkUpdated(ctx, summary.Finished); markErr != nil {
			subLog.Error().Stack().Err(markErr).Msg("could not record update time")
		}
	}

	subLog.Info().
		Int("Succeeded", summary.Succeeded).
		Int("Failed", summary.Failed).
		Int("Published", summary.Published).
		Int("PublishFailures", summary.PublishFailures).
		Dur("Elapsed", summary.Finished.Sub(summary.Started)).
		Msg("benchmark run finished")

	if err != nil {
		subLog.Warn().Err(err).Msg("benchmark run cancelled")
		return summary, err
	}
	return summary, nil
}
