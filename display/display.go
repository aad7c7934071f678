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

package display

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/penny-vault/pv-benchmark/benchmark"
	"github.com/penny-vault/pv-benchmark/roster"
)

const (
	NameColumn = "name"
	Unknown    = "-"
)

var (
	ErrUnknownColumn = errors.New("unknown sort column")
)

// Section is one category of the display, rows in display order
type Section struct {
	Category string          `json:"category"`
	Rows     []benchmark.Row `json:"rows"`
}

type columnKind int

const (
	kindName columnKind = iota
	kindReturn
	kindDrawDown
)

// Column identifies a sortable column
type Column struct {
	Name string
	kind columnKind
	key  string
}

// ParseColumn resolves name, ror_<key> or mdd_<key> against the configured periods
func ParseColumn(name string, periods []roster.Period) (Column, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == NameColumn {
		return Column{Name: NameColumn, kind: kindName}, nil
	}
	for _, p := range periods {
		switch name {
		case p.ReturnColumn():
			return Column{Name: name, kind: kindReturn, key: p.Key}, nil
		case p.DrawDownColumn():
			return Column{Name: name, kind: kindDrawDown, key: p.Key}, nil
		}
	}
	return Column{}, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
}

func (c Column) value(row benchmark.Row) *float64 {
	switch c.kind {
	case kindReturn:
		return row.Ror[c.key]
	case kindDrawDown:
		return row.Mdd[c.key]
	default:
		return nil
	}
}

// Group splits rows into sections following the roster's category order. Rows
// keep their relative order; rows for names missing from the roster are dropped.
func Group(rows []benchmark.Row, rost *roster.Roster) []Section {
	order := rost.CategoryOrder()
	byCategory := make(map[string][]benchmark.Row, len(order))
	for _, row := range rows {
		inst, ok := rost.Instrument(row.Name)
		if !ok {
			continue
		}
		byCategory[inst.Category] = append(byCategory[inst.Category], row)
	}

	sections := make([]Section, 0, len(order))
	for _, category := range order {
		sectionRows, ok := byCategory[category]
		if !ok {
			continue
		}
		sections = append(sections, Section{
			Category: category,
			Rows:     sectionRows,
		})
	}
	return sections
}

// Sort orders rows in place by col. Unknown values are placed last in both
// directions and ties keep their existing order.
func Sort(rows []benchmark.Row, col Column, desc bool) {
	if col.kind == kindName {
		sort.SliceStable(rows, func(i, j int) bool {
			if desc {
				return rows[i].Name > rows[j].Name
			}
			return rows[i].Name < rows[j].Name
		})
		return
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a := col.value(rows[i])
		b := col.value(rows[j])
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		case desc:
			return *a > *b
		default:
			return *a < *b
		}
	})
}

// SortSections sorts the rows of every section
func SortSections(sections []Section, col Column, desc bool) {
	for idx := range sections {
		Sort(sections[idx].Rows, col, desc)
	}
}

// Format renders a percentage with an explicit sign for gains, e.g. +12.34%
func Format(v *float64) string {
	if v == nil {
		return Unknown
	}
	val := *v
	if val == 0 {
		// avoid rendering negative zero
		val = 0
	}
	s := strconv.FormatFloat(val, 'f', 2, 64) + "%"
	if val > 0 {
		return "+" + s
	}
	return s
}
