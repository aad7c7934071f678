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
	"math"
	"sort"
	"time"

	"github.com/penny-vault/pv-benchmark/roster"
	"golang.org/x/time/rate"
)

// Request describes the closing prices wanted for one instrument. Begin and End
// are calendar days and both are inclusive.
type Request struct {
	Instrument roster.Instrument
	Begin      time.Time
	End        time.Time
}

// Provider fetches daily closing prices from a single upstream feed
type Provider interface {
	Source() roster.Source
	Name() string

	// FetchCloses returns the closing prices of the requested range in ascending
	// date order. Callers must not assume a minimum length. Every failure wraps
	// ErrDataSource.
	FetchCloses(ctx context.Context, req Request) ([]float64, error)
}

// Close is a single dated closing price
type Close struct {
	Date  time.Time
	Price float64
}

// Registry selects the provider that serves an instrument's source
type Registry struct {
	providers map[roster.Source]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{
		providers: make(map[roster.Source]Provider, len(providers)),
	}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

func (r *Registry) Register(p Provider) {
	r.providers[p.Source()] = p
}

// Provider returns the provider registered for src
func (r *Registry) Provider(src roster.Source) (Provider, error) {
	if p, ok := r.providers[src]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownSource, src)
}

// Validate ensures every instrument in the roster can be served
func (r *Registry) Validate(rost *roster.Roster) error {
	for _, inst := range rost.Instruments {
		if _, err := r.Provider(inst.Source); err != nil {
			return fmt.Errorf("%s: %w", inst.Name, err)
		}
	}
	return nil
}

// newLimiter creates a throttle for outbound requests; a non-positive rate disables throttling
func newLimiter(requestsPerSecond float64) *rate.Limiter {
	if requestsPerSecond <= 0 || math.IsInf(requestsPerSecond, 1) {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
}

// day truncates t to midnight in its own location
func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// sortedPrices orders closes by date and drops the dates
func sortedPrices(closes []Close) []float64 {
	sort.SliceStable(closes, func(i, j int) bool {
		return closes[i].Date.Before(closes[j].Date)
	})
	prices := make([]float64, len(closes))
	for idx, c := range closes {
		prices[idx] = c.Price
	}
	return prices
}
