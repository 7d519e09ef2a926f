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

// Package config contains user-visible configuration for running a
// StreamGroup against a real Kafka cluster.
package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

// Config contains the flags needed to wire up a StreamGroup and its
// backing Kafka Ingestor.
type Config struct {
	// Brokers is the comma-separated list of seed broker addresses.
	Brokers string
	// Topics is the comma-separated list of topics to subscribe to.
	Topics string
	// ConsumerGroup is the Kafka consumer group id.
	ConsumerGroup string
	// DesiredUnprocessedPerPartition is the per-partition buffer depth
	// that triggers backpressure.
	DesiredUnprocessedPerPartition int
	// ChaosProbability, if greater than zero, injects synthetic failures
	// into each partition's Receiver at approximately this rate.
	ChaosProbability float32
	// MetricsAddr is the network address to serve /metrics on. Empty
	// disables the metrics server.
	MetricsAddr string
}

// Bind registers the configuration's flags onto flags.
func (c *Config) Bind(flags *pflag.FlagSet) {
	flags.StringVar(&c.Brokers, "brokers", "",
		"comma-separated list of seed Kafka broker addresses")
	flags.StringVar(&c.Topics, "topics", "",
		"comma-separated list of topics to consume")
	flags.StringVar(&c.ConsumerGroup, "consumerGroup", "streamdemo",
		"the Kafka consumer group id")
	flags.IntVar(&c.DesiredUnprocessedPerPartition, "desiredUnprocessed", 1000,
		"the per-partition buffer depth that triggers backpressure")
	flags.Float32Var(&c.ChaosProbability, "chaosProbability", 0,
		"if set, the fraction of calls that will synthetically fail")
	flags.StringVar(&c.MetricsAddr, "metricsAddr", "",
		"network address to serve Prometheus metrics on; disabled if empty")
}

// Preflight validates the configuration.
func (c *Config) Preflight() error {
	if c.Brokers == "" {
		return errors.New("brokers unset")
	}
	if c.Topics == "" {
		return errors.New("topics unset")
	}
	if c.ConsumerGroup == "" {
		return errors.New("consumerGroup unset")
	}
	if c.DesiredUnprocessedPerPartition < 1 {
		return errors.New("desiredUnprocessed must be >= 1")
	}
	if c.ChaosProbability < 0 || c.ChaosProbability > 1 {
		return errors.New("chaosProbability must be between 0 and 1")
	}
	return nil
}

// BrokerList splits Brokers on commas, trimming whitespace.
func (c *Config) BrokerList() []string {
	return splitAndTrim(c.Brokers)
}

// TopicList splits Topics on commas, trimming whitespace.
func (c *Config) TopicList() []string {
	return splitAndTrim(c.Topics)
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
