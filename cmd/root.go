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
	"fmt"
	"os"

	"github.com/penny-vault/pv-benchmark/common"
	"github.com/penny-vault/pv-benchmark/data"
	"github.com/penny-vault/pv-benchmark/schedule"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Profile bool
var Trace bool

func init() {
	// Defaults
	viper.SetDefault("timezone", "UTC")
	viper.SetDefault("benchmark.workers", 1)
	viper.SetDefault("benchmark.request_timeout", "30s")
	viper.SetDefault("yahoo.base_url", data.YahooAPI)
	viper.SetDefault("yahoo.requests_per_second", 2.0)
	viper.SetDefault("coinone.base_url", data.CoinoneAPI)
	viper.SetDefault("coinone.quote", "KRW")
	viper.SetDefault("coinone.max_pages", 4)
	viper.SetDefault("coinone.requests_per_second", 5.0)
	viper.SetDefault("schedule.cron", schedule.DefaultSpec)
	viper.SetDefault("server.port", 3000)

	// Database
	viper.BindEnv("database.url", "DATABASE_URL")
	rootCmd.PersistentFlags().String("database-url", "", "PostgreSQL connection string")
	viper.BindPFlag("database.url", rootCmd.PersistentFlags().Lookup("database-url"))

	// Roster
	viper.BindEnv("roster.file", "PVB_ROSTER")
	rootCmd.PersistentFlags().String("roster", "", "TOML roster file; blank uses the built-in roster")
	viper.BindPFlag("roster.file", rootCmd.PersistentFlags().Lookup("roster"))

	viper.BindEnv("timezone", "PVB_TIMEZONE")
	rootCmd.PersistentFlags().String("timezone", "UTC", "Timezone used to determine the current calendar day")
	viper.BindPFlag("timezone", rootCmd.PersistentFlags().Lookup("timezone"))

	// Logging configuration
	viper.BindEnv("log.level", "PVB_LOG_LEVEL")
	rootCmd.PersistentFlags().String("log-level", "info", "Logging level")
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	viper.BindEnv("log.report_caller", "PVB_LOG_REPORT_CALLER")
	rootCmd.PersistentFlags().Bool("log-report-caller", false, "Log function name that called log statement")
	viper.BindPFlag("log.report_caller", rootCmd.PersistentFlags().Lookup("log-report-caller"))

	viper.BindEnv("log.output", "PVB_LOG_OUTPUT")
	rootCmd.PersistentFlags().String("log-output", "stdout", "Write logs to specified output one of: file path, `stdout`, or `stderr`")
	viper.BindPFlag("log.output", rootCmd.PersistentFlags().Lookup("log-output"))

	viper.BindEnv("log.pretty", "PVB_LOG_PRETTY")
	rootCmd.PersistentFlags().Bool("log-pretty", false, "Write human readable logs instead of json")
	viper.BindPFlag("log.pretty", rootCmd.PersistentFlags().Lookup("log-pretty"))

	// Messaging
	viper.BindEnv("nats.server", "NATS_SERVER")
	viper.BindEnv("nats.credentials", "NATS_CREDENTIALS")
	viper.BindEnv("nats.subject", "PVB_NATS_SUBJECT")
	rootCmd.PersistentFlags().String("nats-server", "", "NATS server that benchmark rows are announced on; blank disables")
	viper.BindPFlag("nats.server", rootCmd.PersistentFlags().Lookup("nats-server"))

	// Tracing
	viper.BindEnv("otlp.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
	rootCmd.PersistentFlags().String("otlp-endpoint", "", "OTLP collector endpoint; blank disables tracing")
	viper.BindPFlag("otlp.endpoint", rootCmd.PersistentFlags().Lookup("otlp-endpoint"))

	rootCmd.PersistentFlags().BoolVar(&Profile, "cpu-profile", false, "Run pprof and save in profile.out")
	rootCmd.PersistentFlags().BoolVar(&Trace, "trace", false, "Trace program execution and save in trace.out")
}

var rootCmd = &cobra.Command{
	Use:     common.ProgramName,
	Version: common.CurrentVersion.String(),
	Short:   "Asset benchmark computes trailing return and max draw down for a roster of assets",
	Long: `Asset benchmark computes total return and maximum draw down over trailing
look-back periods for equities, indices, ETFs, currencies, and crypto assets
and keeps one current row per asset in PostgreSQL.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
