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

// Package chaos provides wrappers that inject synthetic failures into a
// stream.Receiver or stream.Deserializer for resilience testing, without
// touching the stream package itself.
package chaos

import (
	"math/rand"

	"github.com/pkg/errors"

	"github.com/vkorna/kafka/internal/stream"
)

// ErrChaos is the error injected by the wrappers in this package.
var ErrChaos = errors.New("chaos")

func doChaos(where string) error {
	return errors.Wrap(ErrChaos, where)
}

// WithReceiverChaos returns a Receiver that injects ErrChaos into roughly
// prob fraction of calls to Receive. delegate is returned unwrapped if prob
// is less than or equal to zero.
func WithReceiverChaos(delegate stream.Receiver, prob float32) stream.Receiver {
	if prob <= 0 {
		return delegate
	}
	return &chaosReceiver{delegate: delegate, prob: prob}
}

// This could include a *rand.Rand, but as soon as Receive is called from
// multiple goroutines there's no hope of repeatable behavior; the stream
// package only ever calls Receive from the processing goroutine, so the
// global source is fine here.
type chaosReceiver struct {
	delegate stream.Receiver
	prob     float32
}

func (r *chaosReceiver) Receive(key, value any, recordTimestamp, streamTime int64) error {
	if rand.Float32() < r.prob {
		return doChaos("Receive")
	}
	return r.delegate.Receive(key, value, recordTimestamp, streamTime)
}

// WithDeserializerChaos returns a Deserializer that injects ErrChaos into
// roughly prob fraction of calls to Deserialize. delegate is returned
// unwrapped if prob is less than or equal to zero.
func WithDeserializerChaos(delegate stream.Deserializer, prob float32) stream.Deserializer {
	if prob <= 0 {
		return delegate
	}
	return &chaosDeserializer{delegate: delegate, prob: prob}
}

type chaosDeserializer struct {
	delegate stream.Deserializer
	prob     float32
}

func (d *chaosDeserializer) Deserialize(topic string, raw []byte) (any, error) {
	if rand.Float32() < d.prob {
		return nil, doChaos("Deserialize")
	}
	return d.delegate.Deserialize(topic, raw)
}

// WithIngestorChaos returns an Ingestor whose Pause calls are occasionally
// dropped, simulating a fetcher that is slow to honor backpressure. Unpause
// is never dropped: a missed Unpause would stall the partition forever,
// which is not a failure mode worth simulating here.
func WithIngestorChaos(delegate stream.Ingestor, prob float32) stream.Ingestor {
	if prob <= 0 {
		return delegate
	}
	return &chaosIngestor{delegate: delegate, prob: prob}
}

type chaosIngestor struct {
	delegate stream.Ingestor
	prob     float32
}

func (i *chaosIngestor) Pause(partition stream.PartitionID) {
	if rand.Float32() < i.prob {
		return
	}
	i.delegate.Pause(partition)
}

func (i *chaosIngestor) Unpause(partition stream.PartitionID, fromOffset int64) {
	i.delegate.Unpause(partition, fromOffset)
}
