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
	"time"

	"github.com/go-co-op/gocron"
	"github.com/penny-vault/pv-benchmark/common"
	"github.com/penny-vault/pv-benchmark/schedule"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var scheduleRunNow bool

func init() {
	viper.BindEnv("schedule.cron", "PVB_SCHEDULE")
	scheduleCmd.Flags().String("cron", schedule.DefaultSpec, "Cron spec (Min H DoM M DoW) in the configured timezone")
	viper.BindPFlag("schedule.cron", scheduleCmd.Flags().Lookup("cron"))

	scheduleCmd.Flags().BoolVar(&scheduleRunNow, "run-now", false, "Run the benchmark immediately in addition to the schedule")

	rootCmd.AddCommand(scheduleCmd)
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the benchmark on a recurring schedule",
	Long: `Run the benchmark on a recurring schedule until interrupted. The default
schedule runs every day at 09:00 in the configured timezone.`,
	Run: func(cmd *cobra.Command, args []string) {
		common.SetupLogging()
		log.Info().Msg("initialized logging")

		ctx, cancel := signalContext()
		defer cancel()

		flush := setupTracing(ctx)
		defer flush()

		tz := common.GetTimezone()
		sched, err := schedule.Parse(viper.GetString("schedule.cron"), tz)
		if err != nil {
			log.Fatal().Err(err).Str("Spec", viper.GetString("schedule.cron")).Msg("invalid schedule")
		}

		rost := loadRoster()
		store := connectStore(ctx, rost)
		if err := store.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("could not migrate benchmark tables")
		}

		publisher, closeMessenger := withMessenger(store)
		defer closeMessenger()

		scheduler := gocron.NewScheduler(tz)
		_, err = scheduler.Cron(sched.Spec).SingletonMode().Do(func() {
			runOnce(ctx, rost, publisher)
			log.Info().Time("NextRun", sched.Next(time.Now())).Msg("waiting for next run")
		})
		if err != nil {
			log.Fatal().Err(err).Str("Spec", sched.Spec).Msg("could not schedule benchmark job")
		}

		scheduler.StartAsync()
		log.Info().Str("Spec", sched.Spec).Str("Timezone", tz.String()).Time("NextRun", sched.Next(time.Now())).Msg("benchmark scheduled")

		if scheduleRunNow {
			scheduler.RunAll()
		}

		<-ctx.Done()
		log.Info().Msg("received signal; shutting down scheduler")
		scheduler.Stop()
	},
}
