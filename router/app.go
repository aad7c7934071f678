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

package router

import (
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/penny-vault/pv-benchmark/handler"
	"github.com/penny-vault/pv-benchmark/middleware"
)

// NewApp creates the fiber application serving the benchmark api
func NewApp(api *handler.API, allowOrigins string) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "pvbench",
		DisableStartupMessage: true,
		JSONEncoder:           json.Marshal,
	})

	// Configure CORS
	if allowOrigins == "" {
		allowOrigins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowOrigins,
		AllowHeaders: "*",
		AllowMethods: "GET,HEAD",
	}))

	// Setup logging middleware
	app.Use(middleware.NewLogger())

	SetupRoutes(app, api)
	return app
}
