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

package metrics

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

const (
	// Places is the number of decimal places metrics are reported with
	Places = 2
)

var (
	ErrInsufficientData = errors.New("insufficient data")
)

// Result holds the finalized metrics for a single price series. Both values are
// percentages rounded to Places.
type Result struct {
	ReturnPct      float64 `json:"returnPct"`
	MaxDrawDownPct float64 `json:"maxDrawDownPct"`
}

// Return computes the percent change from the first to the last price in the
// series. At least two observations are required.
func Return(prices []float64) (float64, error) {
	n := len(prices)
	if n < 2 {
		return math.NaN(), ErrInsufficientData
	}
	return (prices[n-1]/prices[0] - 1.0) * 100, nil
}

// MaxDrawDown computes the largest peak-to-trough decline of the series as a
// non-positive percentage. A series that never falls below its running peak,
// including an empty or single element series, has a draw down of 0.
func MaxDrawDown(prices []float64) float64 {
	peak := math.Inf(-1)
	mdd := 0.0
	for _, price := range prices {
		peak = math.Max(peak, price)
		dd := (price - peak) / peak
		if dd < mdd {
			mdd = dd
		}
	}
	return mdd * 100
}

// Round rounds v to the given number of decimal places, half away from zero
func Round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// Compute evaluates return and max draw down over prices. Rounding happens only
// here so intermediate steps keep full precision.
func Compute(prices []float64) (Result, error) {
	ret, err := Return(prices)
	if err != nil {
		return Result{}, err
	}

	return Result{
		ReturnPct:      Round(ret, Places),
		MaxDrawDownPct: Round(MaxDrawDown(prices), Places),
	}, nil
}
