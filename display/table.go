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
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/penny-vault/pv-benchmark/roster"
)

// Render writes an ASCII table per section. Each table lists the return of
// every period and the draw down of the longest period.
func Render(w io.Writer, sections []Section, rost *roster.Roster, updatedAt time.Time) {
	if updatedAt.IsZero() {
		fmt.Fprintln(w, "Last updated: never")
	} else {
		fmt.Fprintf(w, "Last updated: %s\n", updatedAt.Format("2006-01-02 15:04:05 MST"))
	}

	if len(sections) == 0 {
		fmt.Fprintln(w, "<NO DATA>")
		return
	}

	var longest roster.Period
	for _, p := range rost.Periods {
		if p.Days > longest.Days {
			longest = p
		}
	}

	header := []string{"Asset"}
	for _, p := range rost.Periods {
		header = append(header, p.Label)
	}
	header = append(header, fmt.Sprintf("MDD (%s)", longest.Label))

	alignment := make([]int, len(header))
	alignment[0] = tablewriter.ALIGN_LEFT
	for idx := 1; idx < len(alignment); idx++ {
		alignment[idx] = tablewriter.ALIGN_RIGHT
	}

	for _, section := range sections {
		fmt.Fprintf(w, "\n%s\n", section.Category)

		table := tablewriter.NewWriter(w)
		table.SetHeader(header)
		table.SetAutoFormatHeaders(false)
		table.SetColumnAlignment(alignment)
		table.SetBorder(false)

		for _, row := range section.Rows {
			line := make([]string, 0, len(header))
			line = append(line, row.Name)
			for _, p := range rost.Periods {
				line = append(line, Format(row.Ror[p.Key]))
			}
			line = append(line, Format(row.Mdd[longest.Key]))
			table.Append(line)
		}

		table.Render()
	}
}

// RenderRoster writes the configured instruments as a table
func RenderRoster(w io.Writer, rost *roster.Roster) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Name", "Category", "Source", "Symbol", "Quote", "Description"})
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	for _, inst := range rost.Instruments {
		table.Append([]string{inst.Name, inst.Category, string(inst.Source), inst.Symbol, inst.Quote, inst.Description})
	}
	footer := make([]string, 6)
	footer[0] = "Periods"
	for idx, p := range rost.Periods {
		if idx+1 < len(footer) {
			footer[idx+1] = fmt.Sprintf("%s (%dd)", p.Key, p.Days)
		}
	}
	table.SetFooter(footer)
	table.Render()
}
