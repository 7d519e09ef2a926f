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

// punctuationSchedule is one registered (nextFiringTime, interval,
// processor) tuple. It belongs to exactly one registered Punctuator.
type punctuationSchedule struct {
	nextFiringTime int64
	intervalMs     int64
	processor      Punctuator
	seq            uint64
}

// PunctuationQueue is an ordered collection of stream-time-indexed
// callback schedules, ordered ascending by nextFiringTime, ties broken by
// insertion order. It is not safe for concurrent use; the StreamGroup
// serializes all access under its own lock.
type PunctuationQueue struct {
	schedules []punctuationSchedule
	seq       uint64
}

// NewPunctuationQueue returns an empty PunctuationQueue.
func NewPunctuationQueue() *PunctuationQueue {
	return &PunctuationQueue{}
}

// Schedule registers processor to fire every intervalMs of stream time,
// starting at initialStreamTime+intervalMs. ErrInvalidConfiguration is
// returned if intervalMs <= 0.
func (q *PunctuationQueue) Schedule(processor Punctuator, intervalMs, initialStreamTime int64) error {
	if intervalMs <= 0 {
		return ErrInvalidConfiguration
	}
	q.insert(punctuationSchedule{
		nextFiringTime: initialStreamTime + intervalMs,
		intervalMs:     intervalMs,
		processor:      processor,
		seq:            q.seq,
	})
	q.seq++
	return nil
}

// insert places s in schedules, keeping the slice ordered ascending by
// (nextFiringTime, seq).
func (q *PunctuationQueue) insert(s punctuationSchedule) {
	i := len(q.schedules)
	for i > 0 && less(s, q.schedules[i-1]) {
		i--
	}
	q.schedules = append(q.schedules, punctuationSchedule{})
	copy(q.schedules[i+1:], q.schedules[i:])
	q.schedules[i] = s
}

func less(a, b punctuationSchedule) bool {
	if a.nextFiringTime != b.nextFiringTime {
		return a.nextFiringTime < b.nextFiringTime
	}
	return a.seq < b.seq
}

// MayPunctuate fires every schedule whose nextFiringTime has been reached
// or passed by streamTime, in ascending nextFiringTime order. streamTime
// jumping forward by many intervals is tolerated: firings are not
// coalesced, and each receives the same streamTime argument. Each firing
// runs synchronously on the calling goroutine before MayPunctuate returns.
func (q *PunctuationQueue) MayPunctuate(streamTime int64) {
	for len(q.schedules) > 0 && q.schedules[0].nextFiringTime <= streamTime {
		s := q.schedules[0]
		q.schedules = q.schedules[1:]

		s.processor.Punctuate(streamTime)

		s.nextFiringTime += s.intervalMs
		q.insert(s)
	}
}
