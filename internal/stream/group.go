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
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

// pendingBatch is one (partition, records) pair deferred by AddRecords
// until the next Process call drains it. Deferring batches this way keeps
// the fetcher goroutine's critical section O(1): deserialization and
// timestamp extraction happen later, on the processing goroutine.
type pendingBatch struct {
	partition PartitionID
	records   []RawRecord
}

// StreamGroup is the per-task stream synchronization core. It owns a set of
// input partitions, drains their buffered records into user receivers one
// at a time, advances a single monotonic stream-time clock, biases
// consumption toward the logically oldest partition via its Chooser,
// applies per-partition backpressure through its Ingestor, and fires
// PunctuationQueue callbacks as stream time advances.
//
// A StreamGroup holds no threads of its own: it is entirely synchronous
// with respect to its caller. Exactly one goroutine may be inside Process
// at a time; AddPartition and AddRecords may be called concurrently with
// Process and with each other, all serialized by the group's own lock.
type StreamGroup struct {
	ingestor           Ingestor
	extractor          TimestampExtractor
	chooser            Chooser
	desiredUnprocessed int
	punctuations       *PunctuationQueue

	mu struct {
		sync.Mutex
		closed     bool
		stash      map[PartitionID]*recordQueue
		staging    []pendingBatch
		consumed   map[PartitionID]int64
		streamTime int64
	}

	buffered int64 // accessed atomically; mirrors the locked total for lock-free reads
}

// Config controls the behavior of a StreamGroup.
type Config struct {
	// DesiredUnprocessedPerPartition is the per-partition buffer depth
	// that triggers backpressure: crossing it while draining staged
	// records pauses the partition's Ingestor; dropping to exactly this
	// level again unpauses it. Must be >= 1.
	DesiredUnprocessedPerPartition int

	// Ingestor is the upstream fetcher's pause/resume handle.
	Ingestor Ingestor

	// Extractor derives the stream-time timestamp for each record.
	Extractor TimestampExtractor

	// Chooser selects which partition to drain next. If nil, a
	// NewTimeBasedChooser is used.
	Chooser Chooser

	// Punctuations holds the registered punctuation schedules. If nil, a
	// fresh NewPunctuationQueue is used.
	Punctuations *PunctuationQueue
}

// NewStreamGroup constructs a StreamGroup from cfg. ErrInvalidConfiguration
// is returned if DesiredUnprocessedPerPartition < 1.
func NewStreamGroup(cfg Config) (*StreamGroup, error) {
	if cfg.DesiredUnprocessedPerPartition < 1 {
		return nil, errors.Wrap(ErrInvalidConfiguration, "desiredUnprocessedPerPartition must be >= 1")
	}
	chooser := cfg.Chooser
	if chooser == nil {
		chooser = NewTimeBasedChooser()
	}
	punctuations := cfg.Punctuations
	if punctuations == nil {
		punctuations = NewPunctuationQueue()
	}

	g := &StreamGroup{
		ingestor:           cfg.Ingestor,
		extractor:          cfg.Extractor,
		chooser:            chooser,
		desiredUnprocessed: cfg.DesiredUnprocessedPerPartition,
		punctuations:       punctuations,
	}
	g.mu.stash = make(map[PartitionID]*recordQueue)
	g.mu.consumed = make(map[PartitionID]int64)
	g.mu.streamTime = NoTimestamp
	return g, nil
}

// AddPartition registers partition with the group, bound to the given
// PartitionConfig. ErrDuplicatePartition is returned, and state left
// unchanged, if the partition is already present.
func (g *StreamGroup) AddPartition(partition PartitionID, config PartitionConfig) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.mu.closed {
		return ErrClosed
	}
	if _, exists := g.mu.stash[partition]; exists {
		return errors.Wrapf(ErrDuplicatePartition, "partition %s", partition)
	}
	g.mu.stash[partition] = newRecordQueue(partition, config)
	return nil
}

// AddRecords defers records for partition into the staging buffer. No
// deserialization, timestamp extraction, or enqueue into the partition's
// recordQueue happens here; that work is deferred to the next Process
// call. Unknown partitions are accepted here and silently dropped at drain
// time, since the partition may have been revoked in the interim.
func (g *StreamGroup) AddRecords(partition PartitionID, records []RawRecord) error {
	if len(records) == 0 {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.mu.closed {
		return ErrClosed
	}
	g.mu.staging = append(g.mu.staging, pendingBatch{partition: partition, records: records})
	return nil
}

// Buffered returns the total number of records currently buffered across
// all partitions. It may be called without holding the group lock; the
// value is published through an atomic so out-of-lock observers see a
// recent count.
func (g *StreamGroup) Buffered() int64 {
	return atomic.LoadInt64(&g.buffered)
}

// ConsumedOffsets returns the live partition->offset map of the most
// recently delivered record per partition. Callers must not mutate the
// returned map.
func (g *StreamGroup) ConsumedOffsets() map[PartitionID]int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mu.consumed
}

// StreamTime returns the current stream-time clock value, or NoTimestamp
// if no record has yet been delivered.
func (g *StreamGroup) StreamTime() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mu.streamTime
}

// SetIngestor installs ingestor as the group's backpressure handle. It
// exists to break the construction cycle between a StreamGroup and an
// Ingestor adapter that needs the group it drives records into (the
// Ingestor is typically constructed after the group, then wired back in
// with SetIngestor rather than threaded through Config). Safe to call
// concurrently with Process; takes effect on the next Pause/Unpause
// check.
func (g *StreamGroup) SetIngestor(ingestor Ingestor) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ingestor = ingestor
}

// BufferedByPartition returns the number of records currently buffered in
// each registered partition's queue. Intended for metrics collection; it
// allocates a fresh map on every call and is not meant to be called on a
// hot path.
func (g *StreamGroup) BufferedByPartition() map[PartitionID]int {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make(map[PartitionID]int, len(g.mu.stash))
	for partition, queue := range g.mu.stash {
		out[partition] = queue.size()
	}
	return out
}

// Close releases the Chooser and clears the stash. It is safe to call
// Close more than once.
func (g *StreamGroup) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.mu.closed {
		return
	}
	g.chooser.close()
	g.mu.stash = nil
	g.mu.staging = nil
	g.mu.closed = true
}

// Process performs one synchronization step: it drains the staging buffer
// into per-partition queues, selects the logically oldest ready partition,
// delivers exactly one record to its Receiver, advances stream time, and
// fires any punctuations that have matured. status is populated to advise
// the caller on whether the fetcher should be polled again; see
// ProcessStatus.
func (g *StreamGroup) Process(status *ProcessStatus) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	*status = ProcessStatus{}

	if g.mu.closed {
		return ErrClosed
	}

	if err := g.ingestNewRecords(); err != nil {
		return err
	}

	queue := g.chooser.next()
	if queue == nil {
		status.PollRequired = true
		return nil
	}

	if queue.isEmpty() {
		return errors.Wrapf(ErrEmptyChosenQueue, "partition %s", queue.partition)
	}
	status.Partition = queue.partition

	// Backpressure release: the unpause fires exactly when the chosen
	// queue's size equals the threshold that triggered the pause (the v1
	// behavior fixed by SPEC_FULL.md §A.9), carrying the resume offset.
	if queue.size() == g.desiredUnprocessed && g.ingestor != nil {
		g.ingestor.Unpause(queue.partition, queue.lastOffset())
	}

	trackedTimestamp := queue.trackedTimestamp()
	rec, ok := queue.next()
	if !ok {
		return errors.Wrapf(ErrEmptyChosenQueue, "partition %s", queue.partition)
	}
	atomic.AddInt64(&g.buffered, -1)
	if queue.size() < g.desiredUnprocessed {
		status.PollRequired = true
	}

	if trackedTimestamp > g.mu.streamTime {
		g.mu.streamTime = trackedTimestamp
	}
	streamTime := g.mu.streamTime

	if err := queue.config.Receiver.Receive(rec.Key, rec.Value, rec.Timestamp, streamTime); err != nil {
		return err
	}

	g.mu.consumed[queue.partition] = rec.Offset

	if !queue.isEmpty() {
		g.chooser.add(queue)
	}

	g.punctuations.MayPunctuate(streamTime)

	return nil
}

// ingestNewRecords drains the staging buffer built up by AddRecords into
// each target partition's recordQueue, extracting timestamps and applying
// the configured Deserializers along the way. This is where the expensive
// per-record work that AddRecords deliberately deferred actually happens,
// under the group lock, on the processing goroutine.
func (g *StreamGroup) ingestNewRecords() error {
	staging := g.mu.staging
	g.mu.staging = nil

	for _, batch := range staging {
		queue, known := g.mu.stash[batch.partition]
		if !known {
			// UnknownPartition: the partition may have been revoked
			// in-between. Deliberately silent, see SPEC_FULL.md §A.7.
			continue
		}

		wasEmpty := queue.isEmpty()

		for _, raw := range batch.records {
			key, err := queue.config.KeyDeserializer.Deserialize(queue.config.Topic, raw.KeyBytes)
			if err != nil {
				return errors.Wrapf(err, "deserializing key for partition %s", batch.partition)
			}
			value, err := queue.config.ValDeserializer.Deserialize(queue.config.Topic, raw.ValueBytes)
			if err != nil {
				return errors.Wrapf(err, "deserializing value for partition %s", batch.partition)
			}
			ts, err := g.extractor.Extract(queue.config.Topic, key, value)
			if err != nil {
				return errors.Wrapf(err, "extracting timestamp for partition %s", batch.partition)
			}

			queue.add(&StampedRecord{
				Key:       key,
				Value:     value,
				Timestamp: ts,
				Offset:    raw.Offset,
			})
			atomic.AddInt64(&g.buffered, 1)
		}

		if wasEmpty && queue.size() > 0 {
			g.chooser.add(queue)
		}
		if queue.size() >= g.desiredUnprocessed && g.ingestor != nil {
			g.ingestor.Pause(batch.partition)
		}
	}

	return nil
}
