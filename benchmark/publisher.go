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

	"github.com/rs/zerolog/log"
)

// Publisher persists finished reports. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, report Report) error
	MarkUpdated(ctx context.Context, updatedAt time.Time) error
}

// LogPublisher writes reports to the log instead of storing them
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, report Report) error {
	row := report.Row()
	event := log.Info().Str("Instrument", row.Name).Str("Category", report.Instrument.Category)
	for _, outcome := range report.Outcomes {
		key := outcome.Period.Key
		if ror := row.Ror[key]; ror != nil {
			event = event.Float64(outcome.Period.ReturnColumn(), *ror)
		} else {
			event = event.Interface(outcome.Period.ReturnColumn(), nil)
		}
		if mdd := row.Mdd[key]; mdd != nil {
			event = event.Float64(outcome.Period.DrawDownColumn(), *mdd)
		} else {
			event = event.Interface(outcome.Period.DrawDownColumn(), nil)
		}
	}
	event.Msg("benchmark row")
	return nil
}

func (LogPublisher) MarkUpdated(ctx context.Context, updatedAt time.Time) error {
	log.Info().Time("UpdatedAt", updatedAt).Msg("benchmark updated")
	return nil
}

// MultiPublisher fans a report out to several publishers. Every publisher is
// called even when an earlier one fails; the first error is returned.
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(ctx context.Context, report Report) error {
	var first error
	for _, p := range m {
		if err := p.Publish(ctx, report); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m MultiPublisher) MarkUpdated(ctx context.Context, updatedAt time.Time) error {
	var first error
	for _, p := range m {
		if err := p.MarkUpdated(ctx, updatedAt); err != nil && first == nil {
			first = err
		}
	}
	return first
}
