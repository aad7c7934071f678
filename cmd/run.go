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
	"context"

	"github.com/penny-vault/pv-benchmark/benchmark"
	"github.com/penny-vault/pv-benchmark/common"
	"github.com/penny-vault/pv-benchmark/roster"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var runDryRun bool
var runMigrate bool

func init() {
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Log the benchmark rows instead of saving them to the database")
	runCmd.Flags().BoolVar(&runMigrate, "migrate", false, "Create or update the benchmark tables before running")

	viper.BindEnv("benchmark.workers", "PVB_WORKERS")
	runCmd.Flags().Int("workers", 1, "Number of instruments to evaluate concurrently")
	viper.BindPFlag("benchmark.workers", runCmd.Flags().Lookup("workers"))

	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Compute the benchmark once and save the results",
	Run: func(cmd *cobra.Command, args []string) {
		common.SetupLogging()
		log.Info().Msg("initialized logging")

		stopProfiling := startProfiling()
		defer stopProfiling()

		ctx, cancel := signalContext()
		defer cancel()

		flush := setupTracing(ctx)
		defer flush()

		rost := loadRoster()

		var publisher benchmark.Publisher = benchmark.LogPublisher{}
		if !runDryRun {
			store := connectStore(ctx, rost)
			if runMigrate {
				if err := store.Migrate(ctx); err != nil {
					log.Fatal().Err(err).Msg("could not migrate benchmark tables")
				}
			}
			publisher = store
		}

		publisher, closeMessenger := withMessenger(publisher)
		defer closeMessenger()

		runOnce(ctx, rost, publisher)
	},
}

// runOnce executes a single benchmark run; failures are logged, never fatal
func runOnce(ctx context.Context, rost *roster.Roster, publisher benchmark.Publisher) {
	summary, err := newRunner(rost, publisher).Run(ctx)
	if err != nil {
		log.Warn().Err(err).Str("RunID", summary.RunID.String()).Msg("benchmark run did not complete")
	}
}
