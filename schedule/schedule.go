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

package schedule

import (
	"errors"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const (
	DefaultSpec = "0 9 * * *"
)

var (
	ErrEmptySpec = errors.New("schedule spec is empty")
)

// Schedule is a standard 5 field cron spec evaluated in a fixed timezone:
// Minutes(Min) Hours(H) DayOfMonth(DoM) Month(M) DayOfWeek(DoW)
//
// Trailing fields may be omitted and default to '*'; descriptors such as
// @daily or @every 1h are accepted as well.
//
// Examples:
//   - daily at 09:00: 0 9 * * *
//   - every 30 minutes: */30
//   - weekdays at 18:15: 15 18 * * 1-5
type Schedule struct {
	Spec     string
	Timezone *time.Location
	schedule cron.Schedule
}

// Parse validates spec and returns a schedule evaluated in tz (UTC when nil)
func Parse(spec string, tz *time.Location) (*Schedule, error) {
	if tz == nil {
		tz = time.UTC
	}

	expanded := expandBriefFormat(strings.TrimSpace(spec))
	if expanded == "" {
		return nil, ErrEmptySpec
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	sched, err := parser.Parse(expanded)
	if err != nil {
		log.Error().Err(err).Str("Spec", spec).Msg("robfig/cron could not parse schedule")
		return nil, err
	}

	return &Schedule{
		Spec:     expanded,
		Timezone: tz,
		schedule: sched,
	}, nil
}

// Next returns the first activation strictly after t, expressed in the schedule's timezone
func (s *Schedule) Next(t time.Time) time.Time {
	return s.schedule.Next(t.In(s.Timezone))
}

// Upcoming returns the next n activations after t
func (s *Schedule) Upcoming(t time.Time, n int) []time.Time {
	times := make([]time.Time, 0, n)
	for idx := 0; idx < n; idx++ {
		t = s.Next(t)
		if t.IsZero() {
			break
		}
		times = append(times, t)
	}
	return times
}

// expandBriefFormat pads a timespec that has fields omitted for brevity
func expandBriefFormat(spec string) string {
	if spec == "" || spec[0] == '@' {
		return spec
	}

	tokens := strings.Fields(spec)
	for len(tokens) < 5 {
		tokens = append(tokens, "*")
	}
	return strings.Join(tokens, " ")
}
