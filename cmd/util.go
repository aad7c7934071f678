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
	"os"
	"os/signal"
	"runtime/pprof"
	"runtime/trace"
	"syscall"

	"github.com/penny-vault/pv-benchmark/benchmark"
	"github.com/penny-vault/pv-benchmark/common"
	"github.com/penny-vault/pv-benchmark/data"
	"github.com/penny-vault/pv-benchmark/database"
	"github.com/penny-vault/pv-benchmark/messenger"
	"github.com/penny-vault/pv-benchmark/observability/opentelemetry"
	"github.com/penny-vault/pv-benchmark/roster"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// startProfiling honors the --cpu-profile and --trace flags; the returned func stops them
func startProfiling() func() {
	stops := make([]func(), 0, 2)

	if Profile {
		f, err := os.Create("profile.out")
		if err != nil {
			log.Fatal().Err(err).Msg("could not create cpu profile")
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal().Err(err).Msg("could not start cpu profile")
		}
		stops = append(stops, pprof.StopCPUProfile)
	}

	if Trace {
		f, err := os.Create("trace.out")
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create trace output file")
		}
		if err := trace.Start(f); err != nil {
			log.Fatal().Err(err).Msg("failed to start trace")
		}
		stops = append(stops, func() {
			trace.Stop()
			if err := f.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close trace file")
			}
		})
	}

	return func() {
		for _, stop := range stops {
			stop()
		}
	}
}

// setupTracing installs the otlp exporter; the returned func flushes it
func setupTracing(ctx context.Context) func() {
	shutdown, err := opentelemetry.Setup(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("could not setup opentelemetry")
	}
	return func() {
		if err := shutdown(context.Background()); err != nil {
			log.Error().Err(err).Msg("could not flush traces")
		}
	}
}

func loadRoster() *roster.Roster {
	rost, err := roster.Load(viper.GetString("roster.file"))
	if err != nil {
		log.Fatal().Err(err).Str("File", viper.GetString("roster.file")).Msg("invalid roster")
	}
	return rost
}

func newRegistry(rost *roster.Roster) *data.Registry {
	registry := data.NewRegistry(
		data.NewYahoo(viper.GetString("yahoo.base_url"), viper.GetFloat64("yahoo.requests_per_second")),
		data.NewCoinone(viper.GetString("coinone.base_url"), viper.GetString("coinone.quote"),
			viper.GetInt("coinone.max_pages"), viper.GetFloat64("coinone.requests_per_second")),
	)
	if err := registry.Validate(rost); err != nil {
		log.Fatal().Err(err).Msg("roster uses a source without a provider")
	}
	return registry
}

func newRunner(rost *roster.Roster, publisher benchmark.Publisher) *benchmark.Runner {
	evaluator := benchmark.NewEvaluator(newRegistry(rost), common.GetTimezone(), viper.GetDuration("benchmark.request_timeout"))
	return &benchmark.Runner{
		Roster:    rost,
		Evaluator: evaluator,
		Publisher: publisher,
		Workers:   viper.GetInt("benchmark.workers"),
	}
}

// connectStore opens the database pool and returns a store for the roster's periods
func connectStore(ctx context.Context, rost *roster.Roster) *database.Store {
	if err := database.Connect(ctx); err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	return database.NewStore(rost.Periods)
}

// withMessenger adds the NATS publisher when nats.server is configured; the
// returned func closes the connection
func withMessenger(publisher benchmark.Publisher) (benchmark.Publisher, func()) {
	if viper.GetString("nats.server") == "" {
		return publisher, func() {}
	}

	js, err := messenger.Connect()
	if err != nil {
		log.Fatal().Err(err).Msg("could not connect to NATS")
	}
	multi := benchmark.MultiPublisher{publisher, messenger.NewPublisher(js, viper.GetString("nats.subject"))}
	return multi, messenger.Close
}
