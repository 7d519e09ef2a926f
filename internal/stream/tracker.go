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

// timestampTracker maintains the minimum timestamp of a FIFO-ordered
// multiset of *StampedRecord under addStamped/removeStamped, where removals
// are guaranteed by the caller to occur in the same order as additions
// (recordQueue uses it as a parallel tracker to its own FIFO).
//
// It is a monotone-minimum deque: amortized O(1) add/remove/get, tolerant
// of arbitrary timestamp orderings within the window. Ties preserve FIFO,
// since the displacement comparison on add is strict.
type timestampTracker struct {
	deque []*StampedRecord
}

// add records e as the newest element. Every element at the back of the
// deque with a strictly greater timestamp is popped first, since such an
// element can never again be the minimum while e is buffered.
func (t *timestampTracker) add(e *StampedRecord) {
	back := len(t.deque)
	for back > 0 && t.deque[back-1].Timestamp > e.Timestamp {
		back--
	}
	t.deque = append(t.deque[:back], e)
}

// remove pops e if it is still the front of the deque. If e has already
// been displaced by a later, smaller timestamp, this is a no-op: e is
// simply no longer tracked.
func (t *timestampTracker) remove(e *StampedRecord) {
	if len(t.deque) > 0 && t.deque[0] == e {
		t.deque[0] = nil
		t.deque = t.deque[1:]
	}
}

// get returns the minimum timestamp currently tracked, or NoTimestamp if
// nothing is buffered.
func (t *timestampTracker) get() int64 {
	if len(t.deque) == 0 {
		return NoTimestamp
	}
	return t.deque[0].Timestamp
}
