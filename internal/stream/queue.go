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

// recordQueue is a per-partition FIFO of StampedRecord, paired with a
// timestampTracker over the same elements and a reference to the
// downstream Receiver. The queue owns the Receiver reference; the Receiver
// does not reference the queue back (see SPEC_FULL.md §A.9).
type recordQueue struct {
	partition PartitionID
	config    PartitionConfig

	fifo    []*StampedRecord
	tracker timestampTracker
	offset  int64
}

func newRecordQueue(partition PartitionID, config PartitionConfig) *recordQueue {
	return &recordQueue{
		partition: partition,
		config:    config,
		offset:    -1,
	}
}

// add appends rec to the FIFO and to the tracker, and records rec's offset
// as the queue's most-recently-enqueued offset.
func (q *recordQueue) add(rec *StampedRecord) {
	q.fifo = append(q.fifo, rec)
	q.tracker.add(rec)
	q.offset = rec.Offset
}

// next pops the front record, removing it from the tracker as well. ok is
// false if the queue was empty.
func (q *recordQueue) next() (rec *StampedRecord, ok bool) {
	if len(q.fifo) == 0 {
		return nil, false
	}
	rec = q.fifo[0]
	q.fifo[0] = nil
	q.fifo = q.fifo[1:]
	q.tracker.remove(rec)
	return rec, true
}

// trackedTimestamp returns the minimum timestamp among the records
// currently buffered, or NoTimestamp if the queue is empty.
func (q *recordQueue) trackedTimestamp() int64 {
	return q.tracker.get()
}

func (q *recordQueue) size() int { return len(q.fifo) }

func (q *recordQueue) isEmpty() bool { return len(q.fifo) == 0 }

// lastOffset is the offset of the most recently added record, or -1 if no
// record has ever been added.
func (q *recordQueue) lastOffset() int64 { return q.offset }
