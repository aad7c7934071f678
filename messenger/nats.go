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
	"errors"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// JetStream is the subset of nats.JetStreamContext used to announce results
type JetStream interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

var (
	ErrNotConfigured = errors.New("nats.server is not configured")
)

var natsConnection *nats.Conn

// Connect to the nats server and return a jetstream context
func Connect() (JetStream, error) {
	url := viper.GetString("nats.server")
	if url == "" {
		return nil, ErrNotConfigured
	}

	opts := []nats.Option{nats.Name("pvbench")}
	credentialsFile := viper.GetString("nats.credentials")
	if credentialsFile != "" {
		opts = append(opts, nats.UserCredentials(credentialsFile))
	}

	log.Info().Str("NATSServer", url).Str("Credentials", credentialsFile).Msg("connecting to NATS server")

	var err error
	if natsConnection, err = nats.Connect(url, opts...); err != nil {
		log.Error().Err(err).Msg("could not connect to NATS server")
		return nil, err
	}

	// get jetstream connection
	jetStream, err := natsConnection.JetStream(nats.PublishAsyncMaxPending(256))
	if err != nil {
		log.Error().Err(err).Msg("could not create jetstream context")
		return nil, err
	}

	return jetStream, nil
}

// Close drains the connection so pending publishes are flushed
func Close() {
	if natsConnection == nil {
		return
	}
	if err := natsConnection.Drain(); err != nil {
		log.Error().Err(err).Msg("could not drain NATS connection")
	}
	natsConnection = nil
}
