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

package messenger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/penny-vault/pv-benchmark/benchmark"
	"github.com/rs/zerolog/log"
)

const (
	DefaultSubject = "benchmark"
)

// RowMessage is published for every finished instrument
type RowMessage struct {
	benchmark.Row
	Category  string    `json:"category"`
	Failures  int       `json:"failures"`
	Evaluated time.Time `json:"evaluated"`
}

// UpdatedMessage is published once the benchmark table has been refreshed
type UpdatedMessage struct {
	UpdatedAt time.Time `json:"updated_at"`
}

// Publisher announces benchmark results on jetstream subjects:
// <subject>.row.<name> for each instrument and <subject>.updated per run
type Publisher struct {
	js      JetStream
	subject string
}

func NewPublisher(js JetStream, subject string) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Publisher{
		js:      js,
		subject: subject,
	}
}

// subjectToken makes an instrument name safe to use as a subject token
func subjectToken(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t':
			return '_'
		default:
			return r
		}
	}, name)
}

func (p *Publisher) Publish(ctx context.Context, report benchmark.Report) error {
	msg := RowMessage{
		Row:       report.Row(),
		Category:  report.Instrument.Category,
		Failures:  report.Failures(),
		Evaluated: report.Evaluated,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("Instrument", msg.Name).Msg("could not serialize row to JSON")
		return err
	}

	subject := fmt.Sprintf("%s.row.%s", p.subject, subjectToken(msg.Name))
	if _, err := p.js.Publish(subject, data); err != nil {
		log.Error().Err(err).Str("Subject", subject).Msg("could not publish benchmark row")
		return err
	}
	return nil
}

func (p *Publisher) MarkUpdated(ctx context.Context, updatedAt time.Time) error {
	data, err := json.Marshal(UpdatedMessage{UpdatedAt: updatedAt})
	if err != nil {
		log.Error().Err(err).Msg("could not serialize update message to JSON")
		return err
	}

	subject := p.subject + ".updated"
	if _, err := p.js.Publish(subject, data); err != nil {
		log.Error().Err(err).Str("Subject", subject).Msg("could not publish update message")
		return err
	}
	return nil
}

var _ benchmark.Publisher = (*Publisher)(nil)
