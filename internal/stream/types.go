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

// Package stream contains the per-task stream synchronization core: the
// StreamGroup state machine and the data types and collaborator interfaces
// it is built from. The package holds no threads of its own and performs no
// network or disk I/O; it is driven entirely by its caller.
package stream

import (
	"fmt"
	"math"
)

// NoTimestamp is returned by a timestampTracker or recordQueue when no
// record is currently buffered. It is the minimum representable int64 so
// that any real timestamp compares greater.
const NoTimestamp int64 = math.MinInt64

// PartitionID identifies one partition of one topic. It is comparable and
// hashable, so it may be used directly as a map key.
type PartitionID struct {
	Topic     string
	Partition int32
}

// String implements fmt.Stringer for diagnostic output.
func (p PartitionID) String() string {
	return fmt.Sprintf("%s[%d]", p.Topic, p.Partition)
}

// StampedRecord is an immutable record paired with the stream-time
// timestamp extracted from it and the offset it occupied within its source
// partition. The physical meaning of Timestamp is opaque to this package.
type StampedRecord struct {
	Key       any
	Value     any
	Timestamp int64
	Offset    int64
}

// RawRecord is a single record as handed to AddRecords, before timestamp
// extraction or deserialization. KeyBytes/ValueBytes are passed through the
// partition's Deserializer at drain time (see StreamGroup.Process); the
// deferred-deserialization boundary is deliberate, see SPEC_FULL.md §A.9.
type RawRecord struct {
	KeyBytes   []byte
	ValueBytes []byte
	Offset     int64
}

// Receiver is the downstream sink bound to one partition. Receive is
// invoked synchronously, under the owning StreamGroup's lock, once per
// popped record. A Receiver must not call back into the StreamGroup it is
// attached to; doing so is undefined behavior (see SPEC_FULL.md §A.5).
type Receiver interface {
	Receive(key, value any, recordTimestamp, streamTime int64) error
}

// ReceiverFunc adapts a plain function to a Receiver.
type ReceiverFunc func(key, value any, recordTimestamp, streamTime int64) error

// Receive implements Receiver.
func (f ReceiverFunc) Receive(key, value any, recordTimestamp, streamTime int64) error {
	return f(key, value, recordTimestamp, streamTime)
}

// Deserializer turns the raw bytes of one record field into a typed value.
// Implementations must be pure and must not block.
type Deserializer interface {
	Deserialize(topic string, raw []byte) (any, error)
}

// DeserializerFunc adapts a plain function to a Deserializer.
type DeserializerFunc func(topic string, raw []byte) (any, error)

// Deserialize implements Deserializer.
func (f DeserializerFunc) Deserialize(topic string, raw []byte) (any, error) { return f(topic, raw) }

// TimestampExtractor derives the stream-time timestamp for one record from
// its topic, key, and deserialized value. Implementations must be pure,
// side-effect-free, and fast: they run on the processing goroutine, under
// the group lock, once per record drained from the staging buffer.
type TimestampExtractor interface {
	Extract(topic string, key, value any) (int64, error)
}

// TimestampExtractorFunc adapts a plain function to a TimestampExtractor.
type TimestampExtractorFunc func(topic string, key, value any) (int64, error)

// Extract implements TimestampExtractor.
func (f TimestampExtractorFunc) Extract(topic string, key, value any) (int64, error) {
	return f(topic, key, value)
}

// Ingestor is the external fetcher abstraction. Pause and Unpause must both
// be idempotent and safe to call from the StreamGroup's processing
// goroutine while a separate fetcher goroutine is mid-fetch.
type Ingestor interface {
	// Pause requests that no further records be delivered for partition
	// until a matching Unpause.
	Pause(partition PartitionID)
	// Unpause requests that delivery for partition resume starting at
	// fromOffset.
	Unpause(partition PartitionID, fromOffset int64)
}

// Punctuator is invoked synchronously, inside Process, when a scheduled
// stream-time threshold has been reached or passed.
type Punctuator interface {
	Punctuate(streamTime int64)
}

// PunctuatorFunc adapts a plain function to a Punctuator.
type PunctuatorFunc func(streamTime int64)

// Punctuate implements Punctuator.
func (f PunctuatorFunc) Punctuate(streamTime int64) { f(streamTime) }

// PartitionConfig binds the collaborators needed to drain one partition:
// the Deserializers for its key and value, and the downstream Receiver.
type PartitionConfig struct {
	Topic           string
	KeyDeserializer Deserializer
	ValDeserializer Deserializer
	Receiver        Receiver
}

// ProcessStatus is filled in by StreamGroup.Process to advise the caller on
// whether the fetcher should be polled again. PollRequired is advisory, not
// a promise: a spurious true is acceptable, a false negative is a bug (see
// SPEC_FULL.md §A.4.5).
type ProcessStatus struct {
	PollRequired bool

	// Partition is the partition whose record was delivered during this
	// call, or the zero PartitionID if Process found no ready partition
	// to drain.
	Partition PartitionID
}
