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

package pgxmockhelper

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pashagolub/pgxmock"
	"github.com/rs/zerolog/log"
)

type CSVRows struct {
	rows   [][]any
	header []string
}

// NewCSVRows loads mock rows from a csv fixture. typeMap converts columns by
// name: "date", "float64" or "nullfloat64" (an empty cell becomes a nil *float64).
func NewCSVRows(csvFn string, typeMap map[string]string) *CSVRows {
	subLog := log.With().Str("CsvFn", csvFn).Logger()

	rows := &CSVRows{
		rows: make([][]any, 0),
	}
	rawData, err := os.ReadFile(csvFn)
	if err != nil {
		subLog.Panic().Err(err).Msg("could not read file")
	}

	// break raw data into an array of lines
	lines := strings.Split(string(rawData), "\n")

	// sanity checks:
	// - array length is at least 2 (header + trailing newline)
	// - make sure last line ends in newline
	if len(lines) < 2 {
		subLog.Panic().Int("NumLines", len(lines)).Msg("input file does not have enough lines, need at least 2 (header + trailing new line)")
	}
	if lines[len(lines)-1] != "" {
		subLog.Panic().Msg("input file is missing a trailing new line")
	}

	// parse header
	headerRaw := lines[0]
	lines = lines[1 : len(lines)-1] // discard first and last rows
	rows.header = strings.Split(headerRaw, ",")

	// parse each line and create a row
	for _, ll := range lines {
		cols := make([]any, len(rows.header))
		parts := strings.Split(ll, ",")
		for idx, val := range parts {
			colName := rows.header[idx]
			switch typeMap[colName] {
			case "date":
				parsed, err := time.Parse("2006-01-02", val)
				if err != nil {
					subLog.Panic().Err(err).Str("Val", val).Msg("could not convert val to datetime of format 2006-01-02")
				}
				cols[idx] = parsed
			case "float64":
				parsed, err := strconv.ParseFloat(val, 64)
				if err != nil {
					subLog.Panic().Err(err).Str("Val", val).Msg("could not convert val to float64")
				}
				cols[idx] = parsed
			case "nullfloat64":
				if val == "" {
					cols[idx] = (*float64)(nil)
					continue
				}
				parsed, err := strconv.ParseFloat(val, 64)
				if err != nil {
					subLog.Panic().Err(err).Str("Val", val).Msg("could not convert val to float64")
				}
				cols[idx] = &parsed
			default:
				// no type conversion specified - use as is
				cols[idx] = val
			}
		}
		rows.rows = append(rows.rows, cols)
	}

	return rows
}

func (csvRows *CSVRows) Len() int {
	return len(csvRows.rows)
}

func (csvRows *CSVRows) Rows() *pgxmock.Rows {
	r := pgxmock.NewRows(csvRows.header)
	for _, row := range csvRows.rows {
		r.AddRow(row...)
	}
	return r
}

// BenchmarkTypes maps every ror/mdd column of the fixture header to a nullable float
func BenchmarkTypes(csvFn string) map[string]string {
	rawData, err := os.ReadFile(csvFn)
	if err != nil {
		log.Panic().Err(err).Str("CsvFn", csvFn).Msg("could not read file")
	}
	header := strings.SplitN(string(rawData), "\n", 2)[0]
	typeMap := make(map[string]string)
	for _, col := range strings.Split(header, ",") {
		if strings.HasPrefix(col, "ror_") || strings.HasPrefix(col, "mdd_") {
			typeMap[col] = "nullfloat64"
		}
	}
	return typeMap
}

// MockBenchmarkQuery expects the store's row query and answers it with the fixture
func MockBenchmarkQuery(db pgxmock.PgxConnIface, fn string) {
	db.ExpectQuery("SELECT name, .* FROM benchmark ORDER BY name").WillReturnRows(
		NewCSVRows(fn, BenchmarkTypes(fn)).Rows())
}

// MockUpdatedAtQuery expects the store's update time query
func MockUpdatedAtQuery(db pgxmock.PgxConnIface, updatedAt time.Time) {
	db.ExpectQuery("SELECT updated_at FROM benchmark_updated_at").WillReturnRows(
		pgxmock.NewRows([]string{"updated_at"}).AddRow(updatedAt))
}
