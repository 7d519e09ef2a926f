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

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vkorna/kafka/internal/stream"
)

// group is the subset of *stream.StreamGroup that GroupCollector depends
// on, so tests can substitute a fake.
type group interface {
	BufferedByPartition() map[stream.PartitionID]int
	StreamTime() int64
}

var (
	bufferedDesc = prometheus.NewDesc(
		"stream_partition_buffered_records",
		"the number of records currently buffered for a partition",
		[]string{TopicLabel, "partition"}, nil)
	streamTimeDesc = prometheus.NewDesc(
		"stream_time",
		"the current stream-time clock value of a StreamGroup",
		nil, nil)
)

// GroupCollector is a prometheus.Collector that reports the live,
// per-partition buffered-record counts and stream-time clock of a
// StreamGroup. Unlike the counters in metrics.go, these values are not
// accumulated: they are read directly from the StreamGroup on every scrape,
// since the set of partitions can grow or shrink between scrapes.
type GroupCollector struct {
	group group
}

var _ prometheus.Collector = (*GroupCollector)(nil)

// NewGroupCollector returns a GroupCollector over g. The caller is
// responsible for registering it with a prometheus.Registerer.
func NewGroupCollector(g *stream.StreamGroup) *GroupCollector {
	return &GroupCollector{group: g}
}

// Describe implements prometheus.Collector.
func (c *GroupCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- bufferedDesc
	ch <- streamTimeDesc
}

// Collect implements prometheus.Collector.
func (c *GroupCollector) Collect(ch chan<- prometheus.Metric) {
	for partition, buffered := range c.group.BufferedByPartition() {
		ch <- prometheus.MustNewConstMetric(
			bufferedDesc, prometheus.GaugeValue, float64(buffered),
			partition.Topic, partition.String())
	}
	ch <- prometheus.MustNewConstMetric(
		streamTimeDesc, prometheus.GaugeValue, float64(c.group.StreamTime()))
}
