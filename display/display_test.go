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

package display_test

import (
	"bytes"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pv-benchmark/benchmark"
	"github.com/penny-vault/pv-benchmark/display"
	"github.com/penny-vault/pv-benchmark/roster"
)

func pct(v float64) *float64 {
	return &v
}

func row(name string, ror1m *float64) benchmark.Row {
	return benchmark.Row{
		Name: name,
		Ror:  map[string]*float64{"1m": ror1m},
		Mdd:  map[string]*float64{"1m": nil},
	}
}

func names(rows []benchmark.Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Name)
	}
	return out
}

var _ = Describe("Display", func() {
	var rost *roster.Roster

	BeforeEach(func() {
		var err error
		rost, err = roster.Default()
		Expect(err).To(BeNil())
	})

	DescribeTable("formats percentages",
		func(v *float64, expected string) {
			Expect(display.Format(v)).To(Equal(expected))
		},
		Entry("gain", pct(12.34), "+12.34%"),
		Entry("loss", pct(-5.5), "-5.50%"),
		Entry("flat", pct(0), "0.00%"),
		Entry("negative zero", pct(-0.0), "0.00%"),
		Entry("unknown", nil, "-"),
	)

	Describe("parsing sort columns", func() {
		It("accepts name and every period column", func() {
			for _, col := range []string{"name", "ror_1m", "mdd_1m", "ror_12m", "MDD_12M", ""} {
				_, err := display.ParseColumn(col, rost.Periods)
				Expect(err).To(BeNil(), col)
			}
		})

		It("rejects unknown columns", func() {
			_, err := display.ParseColumn("ror_2y", rost.Periods)
			Expect(err).To(MatchError(display.ErrUnknownColumn))
		})
	})

	Describe("sorting", func() {
		var rows []benchmark.Row

		BeforeEach(func() {
			rows = []benchmark.Row{
				row("A", pct(3)),
				row("B", nil),
				row("C", pct(-1)),
				row("D", pct(3)),
				row("E", nil),
				row("F", pct(10)),
			}
		})

		It("sorts ascending with unknown values last", func() {
			col, err := display.ParseColumn("ror_1m", rost.Periods)
			Expect(err).To(BeNil())
			display.Sort(rows, col, false)
			Expect(names(rows)).To(Equal([]string{"C", "A", "D", "F", "B", "E"}))
		})

		It("sorts descending with unknown values last", func() {
			col, err := display.ParseColumn("ror_1m", rost.Periods)
			Expect(err).To(BeNil())
			display.Sort(rows, col, true)
			Expect(names(rows)).To(Equal([]string{"F", "A", "D", "C", "B", "E"}))
		})

		It("sorts by name", func() {
			col, err := display.ParseColumn("name", rost.Periods)
			Expect(err).To(BeNil())
			display.Sort(rows, col, true)
			Expect(names(rows)).To(Equal([]string{"F", "E", "D", "C", "B", "A"}))
		})

		It("keeps every row when all values are unknown", func() {
			col, err := display.ParseColumn("mdd_1m", rost.Periods)
			Expect(err).To(BeNil())
			display.Sort(rows, col, false)
			Expect(names(rows)).To(Equal([]string{"A", "B", "C", "D", "E", "F"}))
		})
	})

	Describe("grouping", func() {
		It("follows the roster category order and drops unknown names", func() {
			rows := []benchmark.Row{
				row("BTC", pct(1)),
				row("GOLD", pct(2)),
				row("DELISTED", pct(3)),
				row("ETH", pct(4)),
				row("KOSPI", nil),
			}

			sections := display.Group(rows, rost)
			Expect(sections).To(HaveLen(3))
			Expect(sections[0].Category).To(Equal("Commodities"))
			Expect(names(sections[0].Rows)).To(Equal([]string{"GOLD"}))
			Expect(sections[1].Category).To(Equal("Indices"))
			Expect(names(sections[1].Rows)).To(Equal([]string{"KOSPI"}))
			Expect(sections[2].Category).To(Equal("Crypto"))
			Expect(names(sections[2].Rows)).To(Equal([]string{"BTC", "ETH"}))
		})
	})

	Describe("rendering", func() {
		It("prints a table per section", func() {
			sections := display.Group([]benchmark.Row{
				{Name: "GOLD", Ror: map[string]*float64{"1m": pct(1.25), "12m": pct(11.4)}, Mdd: map[string]*float64{"12m": pct(-8.75)}},
			}, rost)

			buf := &bytes.Buffer{}
			display.Render(buf, sections, rost, time.Date(2022, 6, 15, 9, 0, 0, 0, time.UTC))
			out := buf.String()
			Expect(out).To(ContainSubstring("Last updated: 2022-06-15 09:00:00 UTC"))
			Expect(out).To(ContainSubstring("Commodities"))
			Expect(out).To(ContainSubstring("GOLD"))
			Expect(out).To(ContainSubstring("+1.25%"))
			Expect(out).To(ContainSubstring("+11.40%"))
			Expect(out).To(ContainSubstring("-8.75%"))
			Expect(out).To(ContainSubstring("MDD (1 year)"))
		})

		It("reports an empty table", func() {
			buf := &bytes.Buffer{}
			display.Render(buf, nil, rost, time.Time{})
			Expect(buf.String()).To(ContainSubstring("never"))
			Expect(buf.String()).To(ContainSubstring("<NO DATA>"))
		})

		It("prints the roster", func() {
			buf := &bytes.Buffer{}
			display.RenderRoster(buf, rost)
			Expect(buf.String()).To(ContainSubstring("005930.KS"))
			Expect(buf.String()).To(ContainSubstring("KRW"))
		})
	})
})
