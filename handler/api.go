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

package handler

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/penny-vault/pv-benchmark/benchmark"
	"github.com/penny-vault/pv-benchmark/display"
	"github.com/penny-vault/pv-benchmark/observability/opentelemetry"
	"github.com/penny-vault/pv-benchmark/roster"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RowReader provides the stored benchmark rows
type RowReader interface {
	Rows(ctx context.Context) ([]benchmark.Row, error)
	UpdatedAt(ctx context.Context) (time.Time, error)
}

type PingResponse struct {
	Status  string `json:"status" example:"success"`
	Message string `json:"message" example:"API is alive"`
	Time    string `json:"time" example:"2021-06-19T08:09:10.115924-05:00"`
}

// BenchmarkSection is one category of rows; each row is flattened to
// name, description, ror_<key> and mdd_<key> fields
type BenchmarkSection struct {
	Category string                   `json:"category"`
	Rows     []map[string]interface{} `json:"rows"`
}

type BenchmarkResponse struct {
	UpdatedAt *time.Time         `json:"updatedAt"`
	Sort      string             `json:"sort"`
	Order     string             `json:"order"`
	Sections  []BenchmarkSection `json:"sections"`
}

type API struct {
	Reader RowReader
	Roster *roster.Roster
}

func (api *API) Ping(c *fiber.Ctx) error {
	var response PingResponse
	now, err := time.Now().MarshalText()
	if err != nil {
		log.Error().Stack().Err(err).Msg("error while getting time in ping")
		response = PingResponse{
			Status:  "error",
			Message: err.Error(),
			Time:    string(now),
		}
	} else {
		response = PingResponse{
			Status:  "success",
			Message: "API is alive",
			Time:    string(now),
		}
	}
	return c.JSON(response)
}

// Benchmark returns the stored rows grouped by category. Query parameters:
// sort (name, ror_<key> or mdd_<key>) and order (asc or desc).
func (api *API) Benchmark(c *fiber.Ctx) error {
	sortCol := c.Query("sort", display.NameColumn)
	order := strings.ToLower(c.Query("order", "asc"))

	subLog := log.With().Str("Sort", sortCol).Str("Order", order).Logger()

	if order != "asc" && order != "desc" {
		subLog.Warn().Msg("invalid sort order")
		return fiber.NewError(fiber.StatusBadRequest, "order must be asc or desc")
	}

	col, err := display.ParseColumn(sortCol, api.Roster.Periods)
	if err != nil {
		subLog.Warn().Err(err).Msg("invalid sort column")
		if errors.Is(err, display.ErrUnknownColumn) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return err
	}

	ctx, span := otel.Tracer(opentelemetry.Name).Start(c.UserContext(), "handler.Benchmark", trace.WithAttributes(
		opentelemetry.SpanAttributesFromFiber(c)...,
	))
	defer span.End()

	rows, err := api.Reader.Rows(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "could not read benchmark rows")
		subLog.Error().Stack().Err(err).Msg("could not read benchmark rows")
		return fiber.ErrInternalServerError
	}

	updatedAt, err := api.Reader.UpdatedAt(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "could not read update time")
		subLog.Error().Stack().Err(err).Msg("could not read update time")
		return fiber.ErrInternalServerError
	}

	sections := display.Group(rows, api.Roster)
	display.SortSections(sections, col, order == "desc")

	response := BenchmarkResponse{
		Sort:     col.Name,
		Order:    order,
		Sections: make([]BenchmarkSection, 0, len(sections)),
	}
	if !updatedAt.IsZero() {
		response.UpdatedAt = &updatedAt
	}

	for _, section := range sections {
		flat := make([]map[string]interface{}, 0, len(section.Rows))
		for _, row := range section.Rows {
			flat = append(flat, api.flatten(row))
		}
		response.Sections = append(response.Sections, BenchmarkSection{
			Category: section.Category,
			Rows:     flat,
		})
	}

	return c.JSON(response)
}

func (api *API) flatten(row benchmark.Row) map[string]interface{} {
	out := make(map[string]interface{}, len(api.Roster.Periods)*2+2)
	out["name"] = row.Name
	if inst, ok := api.Roster.Instrument(row.Name); ok {
		out["description"] = inst.Description
	}
	for _, p := range api.Roster.Periods {
		out[p.ReturnColumn()] = row.Ror[p.Key]
		out[p.DrawDownColumn()] = row.Mdd[p.Key]
	}
	return out
}
