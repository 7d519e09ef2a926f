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

// Package kafkaingest adapts a franz-go kgo.Client into the stream
// package's Ingestor interface and pumps fetched records into a
// stream.StreamGroup.
package kafkaingest

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/vkorna/kafka/internal/metrics"
	"github.com/vkorna/kafka/internal/stream"
)

// Ingestor wraps a kgo.Client, translating stream.Ingestor's Pause/Unpause
// calls into the client's fetch pause/resume calls and driving a
// stream.StreamGroup from the client's fetched records.
type Ingestor struct {
	client *kgo.Client
	group  *stream.StreamGroup
}

var _ stream.Ingestor = (*Ingestor)(nil)

// New returns an Ingestor backed by client, feeding group.
func New(client *kgo.Client, group *stream.StreamGroup) *Ingestor {
	return &Ingestor{client: client, group: group}
}

// Pause implements stream.Ingestor by pausing fetches for the given
// partition on the underlying client.
func (in *Ingestor) Pause(partition stream.PartitionID) {
	in.client.PauseFetchPartitions(map[string][]int32{
		partition.Topic: {partition.Partition},
	})
	metrics.PartitionPaused(partition.Topic)
}

// Unpause implements stream.Ingestor by resuming fetches for the given
// partition. fromOffset is advisory only: franz-go resumes from wherever
// its internal cursor for the partition currently sits, since the records
// already fetched were simply queued, not discarded.
func (in *Ingestor) Unpause(partition stream.PartitionID, fromOffset int64) {
	in.client.ResumeFetchPartitions(map[string][]int32{
		partition.Topic: {partition.Partition},
	})
	metrics.PartitionUnpaused(partition.Topic)
}

// Pump runs a fetch loop that polls client for records and forwards them,
// batched per partition, into group via AddRecords. Pump blocks until ctx
// is canceled or the client is closed, returning ctx.Err() in the former
// case. It is meant to run on its own goroutine, independent of whatever
// goroutine is calling group.Process.
func (in *Ingestor) Pump(ctx context.Context) error {
	for {
		fetches := in.client.PollFetches(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}
		if fetches.IsClientClosed() {
			return nil
		}
		if errs := fetches.Errors(); len(errs) > 0 {
			for _, fe := range errs {
				logrus.WithError(fe.Err).
					WithField("topic", fe.Topic).
					WithField("partition", fe.Partition).
					Warn("fetch error")
			}
		}

		batches := make(map[stream.PartitionID][]stream.RawRecord)
		fetches.EachRecord(func(rec *kgo.Record) {
			partition := stream.PartitionID{Topic: rec.Topic, Partition: rec.Partition}
			batches[partition] = append(batches[partition], stream.RawRecord{
				KeyBytes:   rec.Key,
				ValueBytes: rec.Value,
				Offset:     rec.Offset,
			})
		})

		for partition, records := range batches {
			if err := in.group.AddRecords(partition, records); err != nil {
				if errors.Is(err, stream.ErrClosed) {
					return nil
				}
				return errors.Wrapf(err, "adding records for partition %s", partition)
			}
			for range records {
				metrics.RecordIngested(partition.Topic)
			}
		}
	}
}
