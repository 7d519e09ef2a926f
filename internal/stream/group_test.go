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

package stream

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

// identityDeserializer passes raw bytes through unchanged, as an any.
var identityDeserializer = DeserializerFunc(func(_ string, raw []byte) (any, error) {
	return raw, nil
})

// int64Extractor extracts a stream timestamp from the first 8 bytes of the
// record value, big-endian. Used throughout these tests to drive stream
// time deterministically from record payloads.
var int64Extractor = TimestampExtractorFunc(func(_ string, _, value any) (int64, error) {
	b := value.([]byte)
	return int64(binary.BigEndian.Uint64(b)), nil
})

func tsBytes(ts int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(ts))
	return b
}

type recordedDelivery struct {
	partition       string
	recordTimestamp int64
	streamTime      int64
}

type capturingReceiver struct {
	name      string
	deliveries *[]recordedDelivery
}

func (r capturingReceiver) Receive(_, value any, recordTimestamp, streamTime int64) error {
	*r.deliveries = append(*r.deliveries, recordedDelivery{
		partition:       r.name,
		recordTimestamp: recordTimestamp,
		streamTime:      streamTime,
	})
	return nil
}

type fakeIngestor struct {
	paused  map[PartitionID]bool
	resumed []PartitionID
}

func newFakeIngestor() *fakeIngestor {
	return &fakeIngestor{paused: make(map[PartitionID]bool)}
}

func (f *fakeIngestor) Pause(partition PartitionID) {
	f.paused[partition] = true
}

func (f *fakeIngestor) Unpause(partition PartitionID, _ int64) {
	delete(f.paused, partition)
	f.resumed = append(f.resumed, partition)
}

func rawRecord(offset, ts int64) RawRecord {
	return RawRecord{ValueBytes: tsBytes(ts), Offset: offset}
}

func TestStreamGroupFIFOWithinPartition(t *testing.T) {
	var deliveries []recordedDelivery
	g, err := NewStreamGroup(Config{
		DesiredUnprocessedPerPartition: 10,
		Extractor:                      int64Extractor,
	})
	require.NoError(t, err)

	p := PartitionID{Topic: "orders", Partition: 0}
	require.NoError(t, g.AddPartition(p, PartitionConfig{
		Topic:           "orders",
		KeyDeserializer: identityDeserializer,
		ValDeserializer: identityDeserializer,
		Receiver:        capturingReceiver{name: "orders", deliveries: &deliveries},
	}))

	require.NoError(t, g.AddRecords(p, []RawRecord{
		rawRecord(0, 50),
		rawRecord(1, 10),
		rawRecord(2, 30),
	}))

	var status ProcessStatus
	for i := 0; i < 3; i++ {
		require.NoError(t, g.Process(&status))
	}

	require.Len(t, deliveries, 3)
	require.Equal(t, int64(50), deliveries[0].recordTimestamp)
	require.Equal(t, int64(10), deliveries[1].recordTimestamp)
	require.Equal(t, int64(30), deliveries[2].recordTimestamp)
}

func TestStreamGroupStreamTimeIsMonotone(t *testing.T) {
	var deliveries []recordedDelivery
	g, err := NewStreamGroup(Config{
		DesiredUnprocessedPerPartition: 10,
		Extractor:                      int64Extractor,
	})
	require.NoError(t, err)

	p := PartitionID{Topic: "orders", Partition: 0}
	require.NoError(t, g.AddPartition(p, PartitionConfig{
		Topic:           "orders",
		KeyDeserializer: identityDeserializer,
		ValDeserializer: identityDeserializer,
		Receiver:        capturingReceiver{name: "orders", deliveries: &deliveries},
	}))
	require.NoError(t, g.AddRecords(p, []RawRecord{
		rawRecord(0, 50),
		rawRecord(1, 10),
	}))

	var status ProcessStatus
	require.NoError(t, g.Process(&status))
	require.NoError(t, g.Process(&status))

	// streamTime never goes backward even though the second record's own
	// timestamp (10) is smaller than the first's (50).
	require.Equal(t, int64(50), deliveries[0].streamTime)
	require.Equal(t, int64(50), deliveries[1].streamTime)
	require.Equal(t, int64(50), g.StreamTime())
}

func TestStreamGroupBiasesTowardOldestPartition(t *testing.T) {
	var deliveries []recordedDelivery
	g, err := NewStreamGroup(Config{
		DesiredUnprocessedPerPartition: 10,
		Extractor:                      int64Extractor,
	})
	require.NoError(t, err)

	fast := PartitionID{Topic: "fast", Partition: 0}
	slow := PartitionID{Topic: "slow", Partition: 0}
	require.NoError(t, g.AddPartition(fast, PartitionConfig{
		Topic: "fast", KeyDeserializer: identityDeserializer, ValDeserializer: identityDeserializer,
		Receiver: capturingReceiver{name: "fast", deliveries: &deliveries},
	}))
	require.NoError(t, g.AddPartition(slow, PartitionConfig{
		Topic: "slow", KeyDeserializer: identityDeserializer, ValDeserializer: identityDeserializer,
		Receiver: capturingReceiver{name: "slow", deliveries: &deliveries},
	}))

	require.NoError(t, g.AddRecords(fast, []RawRecord{rawRecord(0, 100)}))
	require.NoError(t, g.AddRecords(slow, []RawRecord{rawRecord(0, 1)}))

	var status ProcessStatus
	require.NoError(t, g.Process(&status))
	require.Len(t, deliveries, 1)
	require.Equal(t, "slow", deliveries[0].partition)
}

func TestStreamGroupBufferedAccounting(t *testing.T) {
	var deliveries []recordedDelivery
	g, err := NewStreamGroup(Config{
		DesiredUnprocessedPerPartition: 10,
		Extractor:                      int64Extractor,
	})
	require.NoError(t, err)

	p := PartitionID{Topic: "orders", Partition: 0}
	require.NoError(t, g.AddPartition(p, PartitionConfig{
		Topic: "orders", KeyDeserializer: identityDeserializer, ValDeserializer: identityDeserializer,
		Receiver: capturingReceiver{name: "orders", deliveries: &deliveries},
	}))
	require.Equal(t, int64(0), g.Buffered())

	require.NoError(t, g.AddRecords(p, []RawRecord{rawRecord(0, 1), rawRecord(1, 2)}))
	require.Equal(t, int64(0), g.Buffered()) // not drained yet

	var status ProcessStatus
	require.NoError(t, g.Process(&status))
	require.Equal(t, int64(1), g.Buffered())

	require.NoError(t, g.Process(&status))
	require.Equal(t, int64(0), g.Buffered())
}

func TestStreamGroupBackpressurePauseAndUnpause(t *testing.T) {
	var deliveries []recordedDelivery
	ingestor := newFakeIngestor()
	g, err := NewStreamGroup(Config{
		DesiredUnprocessedPerPartition: 2,
		Extractor:                      int64Extractor,
		Ingestor:                       ingestor,
	})
	require.NoError(t, err)

	p := PartitionID{Topic: "orders", Partition: 0}
	require.NoError(t, g.AddPartition(p, PartitionConfig{
		Topic: "orders", KeyDeserializer: identityDeserializer, ValDeserializer: identityDeserializer,
		Receiver: capturingReceiver{name: "orders", deliveries: &deliveries},
	}))

	require.NoError(t, g.AddRecords(p, []RawRecord{
		rawRecord(0, 1), rawRecord(1, 2), rawRecord(2, 3),
	}))

	var status ProcessStatus
	require.NoError(t, g.Process(&status)) // drain brings size to 3 >= 2: paused
	require.True(t, ingestor.paused[p])

	require.NoError(t, g.Process(&status)) // size was 2 == threshold before this pop: unpaused
	require.False(t, ingestor.paused[p])

	require.NoError(t, g.Process(&status)) // size was 1, below threshold: stays unpaused
	require.False(t, ingestor.paused[p])
	require.Len(t, deliveries, 3)
}

func TestStreamGroupPunctuationFiresDuringProcess(t *testing.T) {
	var deliveries []recordedDelivery
	punctuations := NewPunctuationQueue()
	var fired []int64
	require.NoError(t, punctuations.Schedule(PunctuatorFunc(func(streamTime int64) {
		fired = append(fired, streamTime)
	}), 10, 0))

	g, err := NewStreamGroup(Config{
		DesiredUnprocessedPerPartition: 10,
		Extractor:                      int64Extractor,
		Punctuations:                   punctuations,
	})
	require.NoError(t, err)

	p := PartitionID{Topic: "orders", Partition: 0}
	require.NoError(t, g.AddPartition(p, PartitionConfig{
		Topic: "orders", KeyDeserializer: identityDeserializer, ValDeserializer: identityDeserializer,
		Receiver: capturingReceiver{name: "orders", deliveries: &deliveries},
	}))
	require.NoError(t, g.AddRecords(p, []RawRecord{rawRecord(0, 15)}))

	var status ProcessStatus
	require.NoError(t, g.Process(&status))
	require.Equal(t, []int64{15}, fired)
}

func TestStreamGroupDuplicatePartitionRejected(t *testing.T) {
	g, err := NewStreamGroup(Config{DesiredUnprocessedPerPartition: 1, Extractor: int64Extractor})
	require.NoError(t, err)

	p := PartitionID{Topic: "orders", Partition: 0}
	require.NoError(t, g.AddPartition(p, PartitionConfig{}))
	err = g.AddPartition(p, PartitionConfig{})
	require.ErrorIs(t, err, ErrDuplicatePartition)
}

func TestStreamGroupEmptyChooserRequestsPoll(t *testing.T) {
	g, err := NewStreamGroup(Config{DesiredUnprocessedPerPartition: 1, Extractor: int64Extractor})
	require.NoError(t, err)

	var status ProcessStatus
	require.NoError(t, g.Process(&status))
	require.True(t, status.PollRequired)
}

func TestStreamGroupRejectsInvalidConfiguration(t *testing.T) {
	_, err := NewStreamGroup(Config{DesiredUnprocessedPerPartition: 0})
	require.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestStreamGroupProcessStatusReportsPartition(t *testing.T) {
	var deliveries []recordedDelivery
	g, err := NewStreamGroup(Config{
		DesiredUnprocessedPerPartition: 10,
		Extractor:                      int64Extractor,
	})
	require.NoError(t, err)

	p := PartitionID{Topic: "orders", Partition: 0}
	require.NoError(t, g.AddPartition(p, PartitionConfig{
		Topic: "orders", KeyDeserializer: identityDeserializer, ValDeserializer: identityDeserializer,
		Receiver: capturingReceiver{name: "orders", deliveries: &deliveries},
	}))
	require.NoError(t, g.AddRecords(p, []RawRecord{rawRecord(0, 1)}))

	var status ProcessStatus
	require.NoError(t, g.Process(&status))
	require.Equal(t, p, status.Partition)

	// A call that finds no ready partition reports the zero PartitionID.
	require.NoError(t, g.Process(&status))
	require.Equal(t, PartitionID{}, status.Partition)
}

func TestStreamGroupSetIngestorDrivesBackpressure(t *testing.T) {
	var deliveries []recordedDelivery
	g, err := NewStreamGroup(Config{
		DesiredUnprocessedPerPartition: 2,
		Extractor:                      int64Extractor,
	})
	require.NoError(t, err)

	p := PartitionID{Topic: "orders", Partition: 0}
	require.NoError(t, g.AddPartition(p, PartitionConfig{
		Topic: "orders", KeyDeserializer: identityDeserializer, ValDeserializer: identityDeserializer,
		Receiver: capturingReceiver{name: "orders", deliveries: &deliveries},
	}))

	ingestor := newFakeIngestor()
	// Installed after construction, mirroring how an Ingestor adapter that
	// needs the group is wired back in once both exist.
	g.SetIngestor(ingestor)

	require.NoError(t, g.AddRecords(p, []RawRecord{rawRecord(0, 1), rawRecord(1, 2), rawRecord(2, 3)}))

	var status ProcessStatus
	require.NoError(t, g.Process(&status))
	require.True(t, ingestor.paused[p])
}

func TestStreamGroupClosedRejectsOperations(t *testing.T) {
	g, err := NewStreamGroup(Config{DesiredUnprocessedPerPartition: 1, Extractor: int64Extractor})
	require.NoError(t, err)
	g.Close()
	g.Close() // idempotent

	require.ErrorIs(t, g.AddPartition(PartitionID{Topic: "a"}, PartitionConfig{}), ErrClosed)
	require.ErrorIs(t, g.AddRecords(PartitionID{Topic: "a"}, []RawRecord{{Offset: 0}}), ErrClosed)

	var status ProcessStatus
	require.ErrorIs(t, g.Process(&status), ErrClosed)
}
