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

// Package metrics exposes Prometheus instrumentation for a stream.StreamGroup.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// LatencyBuckets is the shared histogram bucket layout for per-record
// processing latency, in seconds.
var LatencyBuckets = []float64{.0005, .001, .002, .005, .01, .02, .05, .1, .2, .5, 1, 2, 5}

// TopicLabel is the label name applied to every per-topic vector below.
const TopicLabel = "topic"

var (
	recordsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stream_records_delivered_total",
		Help: "the number of records delivered to a Receiver",
	}, []string{TopicLabel})
	recordsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stream_records_ingested_total",
		Help: "the number of records fetched and handed to a StreamGroup's staging buffer",
	}, []string{TopicLabel})
	receiveErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stream_receive_errors_total",
		Help: "the number of errors returned by a Receiver",
	}, []string{TopicLabel})
	processDurations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stream_process_duration_seconds",
		Help:    "the length of time a single StreamGroup.Process call took",
		Buckets: LatencyBuckets,
	}, []string{TopicLabel})
	partitionPauses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stream_partition_pauses_total",
		Help: "the number of times a partition's Ingestor was paused for backpressure",
	}, []string{TopicLabel})
	partitionUnpauses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stream_partition_unpauses_total",
		Help: "the number of times a partition's Ingestor was unpaused",
	}, []string{TopicLabel})
)

// RecordDelivered increments the delivered-record counter for topic.
func RecordDelivered(topic string) {
	recordsDelivered.WithLabelValues(topic).Inc()
}

// RecordIngested increments the fetched-record counter for topic.
func RecordIngested(topic string) {
	recordsIngested.WithLabelValues(topic).Inc()
}

// ReceiveError increments the Receiver error counter for topic.
func ReceiveError(topic string) {
	receiveErrors.WithLabelValues(topic).Inc()
}

// ObserveProcessDuration records how long one Process call took for topic.
func ObserveProcessDuration(topic string, seconds float64) {
	processDurations.WithLabelValues(topic).Observe(seconds)
}

// PartitionPaused increments the pause counter for topic.
func PartitionPaused(topic string) {
	partitionPauses.WithLabelValues(topic).Inc()
}

// PartitionUnpaused increments the unpause counter for topic.
func PartitionUnpaused(topic string) {
	partitionUnpauses.WithLabelValues(topic).Inc()
}
