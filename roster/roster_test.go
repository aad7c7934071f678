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

package roster_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pv-benchmark/roster"
)

var _ = Describe("Roster", func() {
	Context("with the built-in roster", func() {
		var r *roster.Roster

		BeforeEach(func() {
			var err error
			r, err = roster.Default()
			Expect(err).To(BeNil())
		})

		It("has the four standard look-back periods", func() {
			Expect(r.Periods).To(Equal([]roster.Period{
				{Key: "1m", Label: "1 month", Days: 30},
				{Key: "3m", Label: "3 months", Days: 90},
				{Key: "6m", Label: "6 months", Days: 180},
				{Key: "12m", Label: "1 year", Days: 365},
			}))
		})

		It("uses both sources", func() {
			Expect(r.Sources()).To(ConsistOf(roster.SourceMarket, roster.SourceExchange))
		})

		It("finds instruments by name", func() {
			btc, ok := r.Instrument("BTC")
			Expect(ok).To(BeTrue())
			Expect(btc.Source).To(Equal(roster.SourceExchange))
			Expect(btc.Quote).To(Equal("KRW"))

			spx, ok := r.Instrument("S&P500")
			Expect(ok).To(BeTrue())
			Expect(spx.Symbol).To(Equal("^GSPC"))

			_, ok = r.Instrument("DOES_NOT_EXIST")
			Expect(ok).To(BeFalse())
		})

		It("puts every instrument in a known category", func() {
			categories := r.CategoryOrder()
			Expect(categories).To(HaveLen(len(r.Categories)))
			for _, inst := range r.Instruments {
				Expect(categories).To(ContainElement(inst.Category))
			}
		})
	})

	It("names persisted columns after the period key", func() {
		p := roster.Period{Key: "3m", Days: 90}
		Expect(p.ReturnColumn()).To(Equal("ror_3m"))
		Expect(p.DrawDownColumn()).To(Equal("mdd_3m"))
	})

	It("defaults the quote currency for exchange instruments", func() {
		r, err := roster.Parse([]byte(`
[[periods]]
key = "1m"
days = 30

[[instruments]]
name = "ETH"
source = "Exchange"
symbol = "ETH"
category = "Crypto"
`))
		Expect(err).To(BeNil())
		Expect(r.Instruments[0].Source).To(Equal(roster.SourceExchange))
		Expect(r.Instruments[0].Quote).To(Equal(roster.DefaultQuote))
		Expect(r.CategoryOrder()).To(Equal([]string{"Crypto"}))
	})

	DescribeTable("rejects invalid rosters",
		func(doc string, expected error) {
			_, err := roster.Parse([]byte(doc))
			Expect(err).To(MatchError(expected))
		},
		Entry("when there are no instruments", `
[[periods]]
key = "1m"
days = 30
`, roster.ErrNoInstruments),
		Entry("when there are no periods", `
[[instruments]]
name = "A"
source = "market"
symbol = "A"
`, roster.ErrNoPeriods),
		Entry("when a name is duplicated", `
[[periods]]
key = "1m"
days = 30

[[instruments]]
name = "A"
source = "market"
symbol = "A"

[[instruments]]
name = "A"
source = "market"
symbol = "B"
`, roster.ErrDuplicateInstrument),
		Entry("when the source is unknown", `
[[periods]]
key = "1m"
days = 30

[[instruments]]
name = "A"
source = "broker"
symbol = "A"
`, roster.ErrInvalidInstrument),
		Entry("when a period key would make a bad column name", `
[[periods]]
key = "1 month"
days = 30

[[instruments]]
name = "A"
source = "market"
symbol = "A"
`, roster.ErrInvalidPeriod),
		Entry("when a period has no days", `
[[periods]]
key = "1m"
days = 0

[[instruments]]
name = "A"
source = "market"
symbol = "A"
`, roster.ErrInvalidPeriod),
		Entry("when a period key is duplicated", `
[[periods]]
key = "1m"
days = 30

[[periods]]
key = "1m"
days = 31

[[instruments]]
name = "A"
source = "market"
symbol = "A"
`, roster.ErrDuplicatePeriod),
	)
})
