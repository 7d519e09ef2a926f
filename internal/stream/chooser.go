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

import "container/heap"

// Chooser selects which of the currently non-empty partitions should be
// drained next. Callers guarantee that a given queue is added via Add at
// most once while it remains resident in the Chooser (idempotency of Add
// itself is not required). Chooser implementations are single-goroutine-
// owned: all calls happen from the StreamGroup's processing goroutine
// while holding the group lock.
type Chooser interface {
	add(q *recordQueue)
	next() *recordQueue
	close()
}

// NewFIFOChooser returns a Chooser that hands queues back in strict
// arrival order, ignoring their tracked timestamps. This is the "RoundRobin"
// variant named in the original source; the name is misleading, since it is
// really just arrival-order FIFO.
func NewFIFOChooser() Chooser {
	return &fifoChooser{}
}

type fifoChooser struct {
	queue []*recordQueue
}

func (c *fifoChooser) add(q *recordQueue) {
	c.queue = append(c.queue, q)
}

func (c *fifoChooser) next() *recordQueue {
	if len(c.queue) == 0 {
		return nil
	}
	q := c.queue[0]
	c.queue[0] = nil
	c.queue = c.queue[1:]
	return q
}

func (c *fifoChooser) close() {
	c.queue = nil
}

// NewTimeBasedChooser returns a Chooser that hands back the queue with the
// smallest tracked timestamp, breaking ties by arrival order. This is how
// the core biases cross-topic consumption toward whichever partition is
// furthest behind in event time.
func NewTimeBasedChooser() Chooser {
	tc := &timeBasedChooser{}
	heap.Init(&tc.h)
	return tc
}

type timeBasedChooser struct {
	h   timeHeap
	seq uint64
}

func (c *timeBasedChooser) add(q *recordQueue) {
	heap.Push(&c.h, timeHeapEntry{queue: q, ts: q.trackedTimestamp(), seq: c.seq})
	c.seq++
}

func (c *timeBasedChooser) next() *recordQueue {
	if c.h.Len() == 0 {
		return nil
	}
	entry := heap.Pop(&c.h).(timeHeapEntry)
	return entry.queue
}

func (c *timeBasedChooser) close() {
	c.h = nil
}

// timeHeapEntry snapshots a queue's tracked timestamp at the moment it was
// added to the chooser, along with a monotonically increasing sequence
// number used to break ties in arrival order.
type timeHeapEntry struct {
	queue *recordQueue
	ts    int64
	seq   uint64
}

// timeHeap implements container/heap.Interface, ordered ascending by
// (ts, seq).
type timeHeap []timeHeapEntry

func (h timeHeap) Len() int { return len(h) }

func (h timeHeap) Less(i, j int) bool {
	if h[i].ts != h[j].ts {
		return h[i].ts < h[j].ts
	}
	return h[i].seq < h[j].seq
}

func (h timeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timeHeap) Push(x any) {
	*h = append(*h, x.(timeHeapEntry))
}

func (h *timeHeap) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	*h = old[:n-1]
	return entry
}
