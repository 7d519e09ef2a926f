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

// Package streamtest provides shared fixtures for exercising a
// stream.StreamGroup end to end without a real Kafka cluster.
package streamtest

import (
	"sync"

	"github.com/vkorna/kafka/internal/stream"
)

// Fixture bundles a StreamGroup together with a recording Receiver and a
// recording Ingestor, for tests that need to assert on delivery order,
// stream time, and backpressure signaling.
type Fixture struct {
	Group    *stream.StreamGroup
	Ingestor *RecordingIngestor

	mu         sync.Mutex
	deliveries []Delivery
}

// Delivery captures one call to Receive.
type Delivery struct {
	Partition       stream.PartitionID
	Key             any
	Value           any
	RecordTimestamp int64
	StreamTime      int64
}

// NewFixture constructs a Fixture with the given backpressure threshold and
// TimestampExtractor. Partitions registered through AddPartition are bound
// to a Receiver that records into the Fixture's Deliveries.
func NewFixture(desiredUnprocessed int, extractor stream.TimestampExtractor) (*Fixture, error) {
	f := &Fixture{Ingestor: NewRecordingIngestor()}
	group, err := stream.NewStreamGroup(stream.Config{
		DesiredUnprocessedPerPartition: desiredUnprocessed,
		Extractor:                      extractor,
		Ingestor:                       f.Ingestor,
	})
	if err != nil {
		return nil, err
	}
	f.Group = group
	return f, nil
}

// AddPartition registers partition on the underlying StreamGroup with a
// recording Receiver, using the given Deserializers.
func (f *Fixture) AddPartition(partition stream.PartitionID, keyDes, valDes stream.Deserializer) error {
	return f.Group.AddPartition(partition, stream.PartitionConfig{
		Topic:           partition.Topic,
		KeyDeserializer: keyDes,
		ValDeserializer: valDes,
		Receiver:        &recordingReceiver{fixture: f, partition: partition},
	})
}

// Deliveries returns a snapshot of every delivery recorded so far.
func (f *Fixture) Deliveries() []Delivery {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Delivery, len(f.deliveries))
	copy(out, f.deliveries)
	return out
}

type recordingReceiver struct {
	fixture   *Fixture
	partition stream.PartitionID
}

func (r *recordingReceiver) Receive(key, value any, recordTimestamp, streamTime int64) error {
	r.fixture.mu.Lock()
	defer r.fixture.mu.Unlock()
	r.fixture.deliveries = append(r.fixture.deliveries, Delivery{
		Partition:       r.partition,
		Key:             key,
		Value:           value,
		RecordTimestamp: recordTimestamp,
		StreamTime:      streamTime,
	})
	return nil
}

// RecordingIngestor is a stream.Ingestor that records every Pause/Unpause
// call it receives, for assertions on backpressure behavior.
type RecordingIngestor struct {
	mu      sync.Mutex
	paused  map[stream.PartitionID]bool
	resumes []stream.PartitionID
}

var _ stream.Ingestor = (*RecordingIngestor)(nil)

// NewRecordingIngestor returns an empty RecordingIngestor.
func NewRecordingIngestor() *RecordingIngestor {
	return &RecordingIngestor{paused: make(map[stream.PartitionID]bool)}
}

// Pause implements stream.Ingestor.
func (r *RecordingIngestor) Pause(partition stream.PartitionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused[partition] = true
}

// Unpause implements stream.Ingestor.
func (r *RecordingIngestor) Unpause(partition stream.PartitionID, _ int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.paused, partition)
	r.resumes = append(r.resumes, partition)
}

// IsPaused reports whether partition is currently paused.
func (r *RecordingIngestor) IsPaused(partition stream.PartitionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paused[partition]
}

// BytesDeserializer is a stream.Deserializer that passes raw bytes through
// unchanged.
var BytesDeserializer = stream.DeserializerFunc(func(_ string, raw []byte) (any, error) {
	return raw, nil
})
