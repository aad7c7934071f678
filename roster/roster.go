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

package roster

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

// Source selects which price feed serves an instrument
type Source string

const (
	SourceMarket   Source = "market"
	SourceExchange Source = "exchange"
)

const (
	DefaultQuote = "KRW"
)

var (
	ErrNoInstruments       = errors.New("roster has no instruments")
	ErrNoPeriods           = errors.New("roster has no periods")
	ErrDuplicateInstrument = errors.New("duplicate instrument name")
	ErrDuplicatePeriod     = errors.New("duplicate period key")
	ErrInvalidInstrument   = errors.New("invalid instrument")
	ErrInvalidPeriod       = errors.New("invalid period")
)

//go:embed roster.toml
var defaultRoster []byte

var periodKeyRe = regexp.MustCompile(`^[a-z0-9]+$`)

// Instrument is the immutable identity of something we benchmark
type Instrument struct {
	Name        string `toml:"name" json:"name"`
	Source      Source `toml:"source" json:"source"`
	Symbol      string `toml:"symbol" json:"symbol"`
	Quote       string `toml:"quote" json:"quote,omitempty"`
	Category    string `toml:"category" json:"category"`
	Description string `toml:"description" json:"description"`
}

// Period is a trailing look-back window measured in calendar days
type Period struct {
	Key   string `toml:"key" json:"key"`
	Label string `toml:"label" json:"label"`
	Days  int    `toml:"days" json:"days"`
}

// ReturnColumn is the name of the persisted return column for this period
func (p Period) ReturnColumn() string {
	return "ror_" + p.Key
}

// DrawDownColumn is the name of the persisted max draw down column for this period
func (p Period) DrawDownColumn() string {
	return "mdd_" + p.Key
}

type Roster struct {
	Categories  []string     `toml:"categories"`
	Periods     []Period     `toml:"periods"`
	Instruments []Instrument `toml:"instruments"`

	byName map[string]int
}

// Default returns the roster compiled into the binary
func Default() (*Roster, error) {
	return Parse(defaultRoster)
}

// Load reads the roster from fn; an empty fn selects the default roster
func Load(fn string) (*Roster, error) {
	if fn == "" {
		log.Debug().Msg("using built-in roster")
		return Default()
	}

	doc, err := os.ReadFile(fn)
	if err != nil {
		log.Error().Err(err).Str("File", fn).Msg("failed to read roster file")
		return nil, err
	}

	r, err := Parse(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	return r, nil
}

// Parse decodes a TOML roster document and validates it
func Parse(doc []byte) (*Roster, error) {
	r := &Roster{}
	if err := toml.Unmarshal(doc, r); err != nil {
		return nil, err
	}

	for idx := range r.Instruments {
		inst := &r.Instruments[idx]
		inst.Source = Source(strings.ToLower(string(inst.Source)))
		if inst.Source == SourceExchange && inst.Quote == "" {
			inst.Quote = DefaultQuote
		}
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate checks the invariants every run depends on. It also builds the name index.
func (r *Roster) Validate() error {
	if len(r.Instruments) == 0 {
		return ErrNoInstruments
	}
	if len(r.Periods) == 0 {
		return ErrNoPeriods
	}

	keys := make(map[string]bool, len(r.Periods))
	for _, p := range r.Periods {
		if !periodKeyRe.MatchString(p.Key) {
			return fmt.Errorf("%w: key %q must be lower case alphanumeric", ErrInvalidPeriod, p.Key)
		}
		if p.Days <= 0 {
			return fmt.Errorf("%w: %s must span at least one day", ErrInvalidPeriod, p.Key)
		}
		if keys[p.Key] {
			return fmt.Errorf("%w: %s", ErrDuplicatePeriod, p.Key)
		}
		keys[p.Key] = true
	}

	r.byName = make(map[string]int, len(r.Instruments))
	for idx, inst := range r.Instruments {
		if inst.Name == "" || inst.Symbol == "" {
			return fmt.Errorf("%w: entry %d needs a name and a symbol", ErrInvalidInstrument, idx)
		}
		switch inst.Source {
		case SourceMarket, SourceExchange:
		default:
			return fmt.Errorf("%w: %s has unknown source %q", ErrInvalidInstrument, inst.Name, inst.Source)
		}
		if _, ok := r.byName[inst.Name]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateInstrument, inst.Name)
		}
		r.byName[inst.Name] = idx
	}

	return nil
}

// Instrument looks up an instrument by its display name
func (r *Roster) Instrument(name string) (Instrument, bool) {
	idx, ok := r.byName[name]
	if !ok {
		return Instrument{}, false
	}
	return r.Instruments[idx], true
}

// Sources lists the distinct sources used by the roster
func (r *Roster) Sources() []Source {
	seen := make(map[Source]bool)
	sources := make([]Source, 0, 2)
	for _, inst := range r.Instruments {
		if !seen[inst.Source] {
			seen[inst.Source] = true
			sources = append(sources, inst.Source)
		}
	}
	return sources
}

// CategoryOrder returns the display order of categories. Categories used by an
// instrument but missing from the configured list are appended in roster order.
func (r *Roster) CategoryOrder() []string {
	seen := make(map[string]bool, len(r.Categories))
	order := make([]string, 0, len(r.Categories))
	for _, c := range r.Categories {
		if !seen[c] {
			seen[c] = true
			order = append(order, c)
		}
	}
	for _, inst := range r.Instruments {
		if !seen[inst.Category] {
			seen[inst.Category] = true
			order = append(order, inst.Category)
		}
	}
	return order
}
