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
	"time"

	"github.com/penny-vault/pv-benchmark/metrics"
	"github.com/penny-vault/pv-benchmark/roster"
)

type Status int

const (
	StatusSucceeded Status = iota
	StatusFailed
)

const (
	ReasonDataSource       = "data source error"
	ReasonInsufficientData = "insufficient data"
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the terminal state of one (instrument, period) evaluation
type Outcome struct {
	Period roster.Period
	Status Status
	Result *metrics.Result
	Reason string
	Err    error
}

func succeeded(p roster.Period, res metrics.Result) Outcome {
	return Outcome{
		Period: p,
		Status: StatusSucceeded,
		Result: &res,
	}
}

func failed(p roster.Period, reason string, err error) Outcome {
	return Outcome{
		Period: p,
		Status: StatusFailed,
		Reason: reason,
		Err:    err,
	}
}

// Report collects one Outcome per configured period for a single instrument.
// Outcomes are stored in period order and failed periods are never omitted.
type Report struct {
	Instrument roster.Instrument
	Outcomes   []Outcome
	Evaluated  time.Time
}

// Row is the persisted shape of a Report. A nil value means the cell is unknown.
type Row struct {
	Name string              `json:"name"`
	Ror  map[string]*float64 `json:"ror"`
	Mdd  map[string]*float64 `json:"mdd"`
}

// Row flattens the report keyed by period key
func (r Report) Row() Row {
	row := Row{
		Name: r.Instrument.Name,
		Ror:  make(map[string]*float64, len(r.Outcomes)),
		Mdd:  make(map[string]*float64, len(r.Outcomes)),
	}
	for _, outcome := range r.Outcomes {
		key := outcome.Period.Key
		if outcome.Status != StatusSucceeded || outcome.Result == nil {
			row.Ror[key] = nil
			row.Mdd[key] = nil
			continue
		}
		ror := outcome.Result.ReturnPct
		mdd := outcome.Result.MaxDrawDownPct
		row.Ror[key] = &ror
		row.Mdd[key] = &mdd
	}
	return row
}

// Failures returns the number of failed periods in the report
func (r Report) Failures() int {
	cnt := 0
	for _, outcome := range r.Outcomes {
		if outcome.Status == StatusFailed {
			cnt++
		}
	}
	return cnt
}
