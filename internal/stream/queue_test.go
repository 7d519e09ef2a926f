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
	"testing"

	"github.com/stretchr/testify/require"
)

func testPartition() PartitionID {
	return PartitionID{Topic: "orders", Partition: 0}
}

func TestRecordQueueFIFOOrder(t *testing.T) {
	q := newRecordQueue(testPartition(), PartitionConfig{})
	require.True(t, q.isEmpty())
	require.Equal(t, int64(-1), q.lastOffset())

	q.add(&StampedRecord{Timestamp: 5, Offset: 0})
	q.add(&StampedRecord{Timestamp: 1, Offset: 1})
	q.add(&StampedRecord{Timestamp: 9, Offset: 2})

	require.Equal(t, 3, q.size())
	require.Equal(t, int64(2), q.lastOffset())
	require.Equal(t, int64(1), q.trackedTimestamp())

	rec, ok := q.next()
	require.True(t, ok)
	require.Equal(t, int64(0), rec.Offset)

	rec, ok = q.next()
	require.True(t, ok)
	require.Equal(t, int64(1), rec.Offset)

	rec, ok = q.next()
	require.True(t, ok)
	require.Equal(t, int64(2), rec.Offset)

	require.True(t, q.isEmpty())
	_, ok = q.next()
	require.False(t, ok)
}

func TestRecordQueueTrackedTimestampAfterDrain(t *testing.T) {
	q := newRecordQueue(testPartition(), PartitionConfig{})
	q.add(&StampedRecord{Timestamp: 3, Offset: 0})
	q.add(&StampedRecord{Timestamp: 7, Offset: 1})

	require.Equal(t, int64(3), q.trackedTimestamp())
	_, _ = q.next()
	require.Equal(t, int64(7), q.trackedTimestamp())
	_, _ = q.next()
	require.Equal(t, NoTimestamp, q.trackedTimestamp())
}
