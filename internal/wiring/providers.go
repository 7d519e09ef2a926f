// Copyright 2023 The Cockroach Authors
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
//
// SPDX-License-Identifier: Apache-2.0

// Package wiring assembles a StreamGroup, its backing kafkaingest.Ingestor,
// and the shared kgo.Client from a config.Config.
package wiring

import (
	"github.com/google/wire"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/vkorna/kafka/internal/config"
	"github.com/vkorna/kafka/internal/kafkaingest"
	"github.com/vkorna/kafka/internal/stream"
)

// Set is used by Wire.
var Set = wire.NewSet(
	ProvideKafkaClient,
	ProvideStreamGroup,
	ProvideIngestor,
	wire.Struct(new(App), "*"),
)

// App bundles the assembled StreamGroup and its driving Ingestor.
type App struct {
	Group    *stream.StreamGroup
	Ingestor *kafkaingest.Ingestor
}

// ProvideKafkaClient constructs the shared kgo.Client for cfg's brokers and
// consumer group.
func ProvideKafkaClient(cfg *config.Config) (*kgo.Client, func(), error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.BrokerList()...),
		kgo.ConsumerGroup(cfg.ConsumerGroup),
		kgo.ConsumeTopics(cfg.TopicList()...),
	)
	if err != nil {
		return nil, nil, err
	}
	return client, client.Close, nil
}

// ProvideStreamGroup constructs the core StreamGroup for cfg, with no
// partitions registered; callers add partitions once topic metadata is
// known.
func ProvideStreamGroup(cfg *config.Config) (*stream.StreamGroup, error) {
	return stream.NewStreamGroup(stream.Config{
		DesiredUnprocessedPerPartition: cfg.DesiredUnprocessedPerPartition,
		Extractor:                      stream.TimestampExtractorFunc(noopExtractor),
	})
}

// noopExtractor is the TimestampExtractor the StreamGroup is built with. It
// stamps every record with 0, so stream time stays at 0 and the time-based
// chooser serves queues in the order they were added to it.
func noopExtractor(string, any, any) (int64, error) { return 0, nil }

// ProvideIngestor constructs the kafkaingest.Ingestor binding client to
// group, and installs it on group via SetIngestor so the core's
// backpressure checks (group.ingestor != nil) actually reach it. group is
// constructed without an Ingestor in its Config to avoid a construction
// cycle (the Ingestor needs the already-built group); this call is what
// closes the cycle.
func ProvideIngestor(client *kgo.Client, group *stream.StreamGroup) *kafkaingest.Ingestor {
	ingestor := kafkaingest.New(client, group)
	group.SetIngestor(ingestor)
	return ingestor
}
