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

package cmd

import (
	"os"

	"github.com/penny-vault/pv-benchmark/common"
	"github.com/penny-vault/pv-benchmark/display"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var showSort string
var showDesc bool

func init() {
	showCmd.Flags().StringVar(&showSort, "sort", display.NameColumn, "Column to sort by: name, ror_<period>, or mdd_<period>")
	showCmd.Flags().BoolVar(&showDesc, "desc", false, "Sort in descending order")
	rootCmd.AddCommand(showCmd)
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored benchmark grouped by category",
	Run: func(cmd *cobra.Command, args []string) {
		common.SetupLogging()

		ctx, cancel := signalContext()
		defer cancel()

		rost := loadRoster()
		col, err := display.ParseColumn(showSort, rost.Periods)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid sort column")
		}

		store := connectStore(ctx, rost)
		rows, err := store.Rows(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("could not read benchmark rows")
		}
		updatedAt, err := store.UpdatedAt(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("could not read update time")
		}

		sections := display.Group(rows, rost)
		display.SortSections(sections, col, showDesc)
		display.Render(os.Stdout, sections, rost, updatedAt.In(common.GetTimezone()))
	},
}
