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

package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/penny-vault/pv-benchmark/benchmark"
	"github.com/penny-vault/pv-benchmark/roster"
	"github.com/rs/zerolog/log"
)

const (
	BenchmarkTable = "benchmark"
	UpdatedAtTable = "benchmark_updated_at"
)

// Store persists benchmark rows in postgres. One row exists per instrument
// name; writing the same instrument again replaces its values.
type Store struct {
	periods []roster.Period
}

func NewStore(periods []roster.Period) *Store {
	return &Store{
		periods: periods,
	}
}

// columns returns the sanitized ror/mdd column pair of every period
func (s *Store) columns() []string {
	cols := make([]string, 0, len(s.periods)*2)
	for _, p := range s.periods {
		cols = append(cols,
			pgx.Identifier{p.ReturnColumn()}.Sanitize(),
			pgx.Identifier{p.DrawDownColumn()}.Sanitize(),
		)
	}
	return cols
}

// Migrate creates the benchmark tables and adds any period columns that are missing
func (s *Store) Migrate(ctx context.Context) error {
	if pool == nil {
		return ErrNotConnected
	}

	trx, err := pool.Begin(ctx)
	if err != nil {
		log.Error().Stack().Err(err).Msg("could not begin transaction")
		return err
	}

	stmts := []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (name TEXT PRIMARY KEY)", BenchmarkTable),
	}
	if len(s.periods) > 0 {
		adds := make([]string, 0, len(s.periods)*2)
		for _, col := range s.columns() {
			adds = append(adds, fmt.Sprintf("ADD COLUMN IF NOT EXISTS %s DOUBLE PRECISION NULL", col))
		}
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s %s", BenchmarkTable, strings.Join(adds, ", ")))
	}
	stmts = append(stmts, fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id INTEGER PRIMARY KEY, updated_at TIMESTAMPTZ NOT NULL)", UpdatedAtTable))

	for _, sql := range stmts {
		if _, err := trx.Exec(ctx, sql); err != nil {
			log.Error().Stack().Err(err).Str("Query", sql).Msg("migration statement failed")
			rollback(ctx, trx)
			return err
		}
	}

	if err := trx.Commit(ctx); err != nil {
		log.Error().Stack().Err(err).Msg("could not commit migration")
		rollback(ctx, trx)
		return err
	}

	log.Info().Int("Periods", len(s.periods)).Msg("benchmark tables migrated")
	return nil
}

// upsertSQL builds the insert statement for the configured periods
func (s *Store) upsertSQL() string {
	cols := s.columns()
	placeholders := make([]string, 0, len(cols)+1)
	updates := make([]string, 0, len(cols))
	placeholders = append(placeholders, "$1")
	for idx, col := range cols {
		placeholders = append(placeholders, fmt.Sprintf("$%d", idx+2))
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
	}

	sql := fmt.Sprintf("INSERT INTO %s (name, %s) VALUES (%s) ON CONFLICT (name) DO UPDATE SET %s",
		BenchmarkTable, strings.Join(cols, ", "), strings.Join(placeholders, ", "), strings.Join(updates, ", "))
	return sql
}

// Publish upserts the report keyed by instrument name. Failed periods are stored as NULL.
func (s *Store) Publish(ctx context.Context, report benchmark.Report) error {
	if pool == nil {
		return ErrNotConnected
	}

	row := report.Row()
	args := make([]interface{}, 0, len(s.periods)*2+1)
	args = append(args, row.Name)
	for _, p := range s.periods {
		args = append(args, nullable(row.Ror[p.Key]), nullable(row.Mdd[p.Key]))
	}

	sql := s.upsertSQL()
	if _, err := pool.Exec(ctx, sql, args...); err != nil {
		log.Error().Stack().Err(err).Str("Instrument", row.Name).Str("Query", sql).Msg("could not upsert benchmark row")
		return err
	}

	log.Debug().Str("Instrument", row.Name).Int("Failures", report.Failures()).Msg("saved benchmark row")
	return nil
}

// MarkUpdated records when the benchmark table was last refreshed
func (s *Store) MarkUpdated(ctx context.Context, updatedAt time.Time) error {
	if pool == nil {
		return ErrNotConnected
	}

	sql := fmt.Sprintf("INSERT INTO %s (id, updated_at) VALUES (1, $1) ON CONFLICT (id) DO UPDATE SET updated_at = EXCLUDED.updated_at", UpdatedAtTable)
	if _, err := pool.Exec(ctx, sql, updatedAt); err != nil {
		log.Error().Stack().Err(err).Time("UpdatedAt", updatedAt).Msg("could not save update time")
		return err
	}
	return nil
}

// UpdatedAt returns the time of the last refresh; the zero time means the
// table has never been refreshed
func (s *Store) UpdatedAt(ctx context.Context) (time.Time, error) {
	if pool == nil {
		return time.Time{}, ErrNotConnected
	}

	var updatedAt time.Time
	sql := fmt.Sprintf("SELECT updated_at FROM %s WHERE id = 1", UpdatedAtTable)
	if err := pool.QueryRow(ctx, sql).Scan(&updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, nil
		}
		log.Error().Stack().Err(err).Msg("could not read update time")
		return time.Time{}, err
	}
	return updatedAt, nil
}

// Rows reads every stored benchmark row ordered by name
func (s *Store) Rows(ctx context.Context) ([]benchmark.Row, error) {
	if pool == nil {
		return nil, ErrNotConnected
	}

	cols := s.columns()
	sql := fmt.Sprintf("SELECT name, %s FROM %s ORDER BY name", strings.Join(cols, ", "), BenchmarkTable)
	if len(cols) == 0 {
		sql = fmt.Sprintf("SELECT name FROM %s ORDER BY name", BenchmarkTable)
	}

	rows, err := pool.Query(ctx, sql)
	if err != nil {
		log.Error().Stack().Err(err).Str("Query", sql).Msg("could not query benchmark rows")
		return nil, err
	}
	defer rows.Close()

	result := make([]benchmark.Row, 0)
	for rows.Next() {
		row := benchmark.Row{
			Ror: make(map[string]*float64, len(s.periods)),
			Mdd: make(map[string]*float64, len(s.periods)),
		}
		values := make([]*float64, len(cols))
		dest := make([]interface{}, 0, len(cols)+1)
		dest = append(dest, &row.Name)
		for idx := range values {
			dest = append(dest, &values[idx])
		}

		if err := rows.Scan(dest...); err != nil {
			log.Error().Stack().Err(err).Msg("could not scan benchmark row")
			return nil, err
		}

		for idx, p := range s.periods {
			row.Ror[p.Key] = values[idx*2]
			row.Mdd[p.Key] = values[idx*2+1]
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		log.Error().Stack().Err(err).Msg("error while reading benchmark rows")
		return nil, err
	}

	return result, nil
}

func nullable(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

var _ benchmark.Publisher = (*Store)(nil)
