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

package common_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/viper"

	"github.com/penny-vault/pv-benchmark/common"
)

var _ = Describe("Common", func() {
	AfterEach(func() {
		viper.Set("timezone", "")
	})

	DescribeTable("formats versions",
		func(v common.Version, expected string) {
			Expect(v.String()).To(Equal(expected))
		},
		Entry("release", common.Version{Major: 1, Minor: 2, Patch: 3}, "1.2.3"),
		Entry("pre-release", common.Version{Major: 0, Minor: 3, Patch: 0, Suffix: "dev"}, "0.3.0-dev"),
	)

	It("includes the program name in the build string", func() {
		Expect(common.BuildVersionString()).To(HavePrefix(common.ProgramName + " v"))
	})

	It("defaults the timezone to UTC", func() {
		viper.Set("timezone", "")
		Expect(common.GetTimezone()).To(Equal(time.UTC))
	})

	It("loads a configured timezone", func() {
		viper.Set("timezone", "Asia/Seoul")
		Expect(common.GetTimezone().String()).To(Equal("Asia/Seoul"))
	})

	It("panics on an unknown timezone", func() {
		viper.Set("timezone", "Mars/Olympus_Mons")
		Expect(func() { common.GetTimezone() }).To(Panic())
	})
})
