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

// Command streamdemo drives a StreamGroup against a real Kafka cluster,
// logging each delivered record and serving Prometheus metrics.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/vkorna/kafka/internal/chaos"
	"github.com/vkorna/kafka/internal/config"
	"github.com/vkorna/kafka/internal/metrics"
	"github.com/vkorna/kafka/internal/stream"
	"github.com/vkorna/kafka/internal/streamtest"
	"github.com/vkorna/kafka/internal/wiring"
)

func main() {
	if err := run(); err != nil {
		log.WithError(err).Fatal("streamdemo exiting")
	}
}

func run() error {
	var cfg config.Config
	cfg.Bind(pflag.CommandLine)
	pflag.Parse()

	if err := cfg.Preflight(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	app, cleanup, err := wiring.NewApp(&cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	defer app.Group.Close()

	for _, topic := range cfg.TopicList() {
		if err := addLoggingPartition(app.Group, topic, cfg.ChaosProbability); err != nil {
			return err
		}
	}

	if cfg.MetricsAddr != "" {
		prometheus.MustRegister(metrics.NewGroupCollector(app.Group))
		go serveMetrics(cfg.MetricsAddr)
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return app.Ingestor.Pump(ctx) })
	group.Go(func() error { return processLoop(ctx, app.Group) })
	return group.Wait()
}

// addLoggingPartition registers a demo partition (partition 0 of topic)
// whose Receiver logs every delivery and increments the delivered-record
// metric, wrapped with chaos injection per cfg and with error-counting on
// top of that.
func addLoggingPartition(group *stream.StreamGroup, topic string, chaosProb float32) error {
	receiver := stream.ReceiverFunc(func(_, _ any, recordTimestamp, streamTime int64) error {
		log.WithFields(log.Fields{
			"topic":           topic,
			"recordTimestamp": recordTimestamp,
			"streamTime":      streamTime,
		}).Info("delivered record")
		metrics.RecordDelivered(topic)
		return nil
	})

	withChaos := chaos.WithReceiverChaos(receiver, chaosProb)
	instrumented := stream.ReceiverFunc(func(key, value any, recordTimestamp, streamTime int64) error {
		if err := withChaos.Receive(key, value, recordTimestamp, streamTime); err != nil {
			metrics.ReceiveError(topic)
			return err
		}
		return nil
	})

	return group.AddPartition(stream.PartitionID{Topic: topic, Partition: 0}, stream.PartitionConfig{
		Topic:           topic,
		KeyDeserializer: streamtest.BytesDeserializer,
		ValDeserializer: streamtest.BytesDeserializer,
		Receiver:        instrumented,
	})
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.WithError(err).Warn("metrics server stopped")
	}
}

// processLoop repeatedly calls group.Process until ctx is canceled or
// Process returns an error. PollRequired is not consulted: Process is called
// again immediately after every return, since a StreamGroup does not block
// on its own: work arrives from the Pump goroutine calling AddRecords
// concurrently.
func processLoop(ctx context.Context, group *stream.StreamGroup) error {
	var status stream.ProcessStatus
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		start := time.Now()
		err := group.Process(&status)
		if topic := status.Partition.Topic; topic != "" {
			metrics.ObserveProcessDuration(topic, time.Since(start).Seconds())
		}
		if err != nil {
			return err
		}
	}
}
