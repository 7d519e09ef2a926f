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

package wiring

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/vkorna/kafka/internal/config"
	"github.com/vkorna/kafka/internal/stream"
)

// newTestClient builds a kgo.Client against an unreachable seed broker.
// Constructing a client never dials, so this is safe without a running
// Kafka cluster; see internal/kafkaingest's test for the same approach.
func newTestClient(t *testing.T) *kgo.Client {
	client, err := kgo.NewClient(kgo.SeedBrokers("127.0.0.1:0"))
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func TestProvideIngestorInstallsItselfOnTheGroup(t *testing.T) {
	cfg := &config.Config{DesiredUnprocessedPerPartition: 1}

	group, err := ProvideStreamGroup(cfg)
	require.NoError(t, err)
	defer group.Close()

	client := newTestClient(t)
	ingestor := ProvideIngestor(client, group)
	require.NotNil(t, ingestor)

	// ProvideIngestor must have closed the group<->ingestor construction
	// cycle via SetIngestor: Pause on the chosen queue should now reach
	// the real client's PauseFetchPartitions rather than being silently
	// skipped because group.ingestor is nil.
	p := stream.PartitionID{Topic: "orders", Partition: 0}
	require.NoError(t, group.AddPartition(p, stream.PartitionConfig{
		Topic:           "orders",
		KeyDeserializer: stream.DeserializerFunc(func(_ string, raw []byte) (any, error) { return raw, nil }),
		ValDeserializer: stream.DeserializerFunc(func(_ string, raw []byte) (any, error) { return raw, nil }),
		Receiver: stream.ReceiverFunc(func(any, any, int64, int64) error {
			return nil
		}),
	}))
	require.NoError(t, group.AddRecords(p, []stream.RawRecord{{Offset: 0}}))

	var status stream.ProcessStatus
	require.NotPanics(t, func() { require.NoError(t, group.Process(&status)) })
}
