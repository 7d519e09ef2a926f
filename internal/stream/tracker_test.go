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

func TestTimestampTrackerEmpty(t *testing.T) {
	var tr timestampTracker
	require.Equal(t, NoTimestamp, tr.get())
}

func TestTimestampTrackerMonotoneAdds(t *testing.T) {
	var tr timestampTracker
	a := &StampedRecord{Timestamp: 10}
	b := &StampedRecord{Timestamp: 20}
	c := &StampedRecord{Timestamp: 30}

	tr.add(a)
	tr.add(b)
	tr.add(c)
	require.Equal(t, int64(10), tr.get())
}

func TestTimestampTrackerOutOfOrderDisplacesGreater(t *testing.T) {
	var tr timestampTracker
	a := &StampedRecord{Timestamp: 30}
	b := &StampedRecord{Timestamp: 20}
	c := &StampedRecord{Timestamp: 10}

	tr.add(a)
	tr.add(b) // displaces a: a can never again be the minimum
	tr.add(c) // displaces b for the same reason
	require.Equal(t, int64(10), tr.get())

	tr.remove(c)
	// a and b were both displaced on add; nothing remains tracked.
	require.Equal(t, NoTimestamp, tr.get())
}

func TestTimestampTrackerRemoveOnlyFront(t *testing.T) {
	var tr timestampTracker
	a := &StampedRecord{Timestamp: 5}
	b := &StampedRecord{Timestamp: 15}

	tr.add(a)
	tr.add(b)
	require.Equal(t, int64(5), tr.get())

	// b is not currently the front; removing it must be a no-op.
	tr.remove(b)
	require.Equal(t, int64(5), tr.get())

	tr.remove(a)
	require.Equal(t, int64(15), tr.get())
}

func TestTimestampTrackerTiesPreserveFIFO(t *testing.T) {
	var tr timestampTracker
	a := &StampedRecord{Timestamp: 10}
	b := &StampedRecord{Timestamp: 10}

	tr.add(a)
	tr.add(b)
	require.Equal(t, int64(10), tr.get())

	tr.remove(a)
	require.Equal(t, int64(10), tr.get())
	tr.remove(b)
	require.Equal(t, NoTimestamp, tr.get())
}
