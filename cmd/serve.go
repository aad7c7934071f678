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

	"github.com/penny-vault/pv-benchmark/common"
	"github.com/penny-vault/pv-benchmark/handler"
	"github.com/penny-vault/pv-benchmark/router"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	viper.BindEnv("server.port", "PORT")
	serveCmd.Flags().IntP("port", "p", 3000, "Port to run application server on")
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))

	viper.BindEnv("server.allow_origins", "PVB_ALLOW_ORIGINS")
	serveCmd.Flags().String("allow-origins", "*", "Comma separated list of origins allowed by CORS")
	viper.BindPFlag("server.allow_origins", serveCmd.Flags().Lookup("allow-origins"))

	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the stored benchmark over HTTP",
	Long:  `Run an HTTP server that exposes the stored benchmark rows as JSON`,
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
		store := connectStore(ctx, rost)

		app := router.NewApp(&handler.API{Reader: store, Roster: rost}, viper.GetString("server.allow_origins"))

		// shutdown cleanly on interrupt
		go func() {
			<-ctx.Done()
			log.Info().Msg("received signal; shutting down")
			if err := app.Shutdown(); err != nil {
				log.Error().Err(err).Msg("error shutting down server")
			}
		}()

		addr := fmt.Sprintf(":%d", viper.GetInt("server.port"))
		log.Info().Str("Addr", addr).Msg("starting server")
		if err := app.Listen(addr); err != nil {
			log.Fatal().Err(err).Msg("server failed")
		}
	},
}
