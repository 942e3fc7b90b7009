// Copyright 2023 Sneller, Inc.
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

// Package metrics provides Prometheus metrics
// for split enumeration and batch encoding.
//
// All methods on a nil *Metrics are no-ops,
// so components can hold an optional *Metrics.
package metrics

import (
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// DefaultNamespace is used by New
// when namespace is empty.
const DefaultNamespace = "partsplit"

// Metrics holds the metrics for one process.
type Metrics struct {
	reg prometheus.Gatherer

	// Enumeration metrics
	SplitsEnumerated    *prometheus.CounterVec
	InvalidSplits       *prometheus.CounterVec
	EnumerationDuration *prometheus.HistogramVec

	// Batch metrics
	BatchesWritten *prometheus.CounterVec
	BatchesRead    *prometheus.CounterVec
	BatchBytes     *prometheus.HistogramVec
}

// New creates a Metrics registered with a fresh registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		SplitsEnumerated: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "splits_enumerated_total",
				Help:      "Total number of splits produced by enumeration",
			},
			[]string{"connector", "table"},
		),
		InvalidSplits: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invalid_splits_total",
				Help:      "Total number of rejected split constructions or decodes",
			},
			[]string{"connector", "op"},
		),
		EnumerationDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "enumeration_duration_seconds",
				Help:      "Time to enumerate the splits of one table",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8), // 100us to ~1.6s
			},
			[]string{"connector"},
		),
		BatchesWritten: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "batches_written_total",
				Help:      "Total number of split batches written",
			},
			[]string{"compression"},
		),
		BatchesRead: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "batches_read_total",
				Help:      "Total number of split batches read",
			},
			[]string{"result"},
		),
		BatchBytes: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "batch_bytes",
				Help:      "Size of written split batches in bytes",
				Buckets:   prometheus.ExponentialBuckets(64, 4, 10), // 64B to ~16MB
			},
			[]string{"compression"},
		),
	}
}

// Gatherer returns the registry holding m's metrics.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.reg
}

// Enumerated records n splits produced for table in d.
func (m *Metrics) Enumerated(connector, table string, n int, d time.Duration) {
	if m == nil {
		return
	}
	m.SplitsEnumerated.WithLabelValues(connector, table).Add(float64(n))
	m.EnumerationDuration.WithLabelValues(connector).Observe(d.Seconds())
}

// Invalid records a split rejected during op
// ("construct" or "decode").
func (m *Metrics) Invalid(connector, op string) {
	if m == nil {
		return
	}
	m.InvalidSplits.WithLabelValues(connector, op).Inc()
}

// BatchWritten records a batch of size bytes
// (after compression) written with algo.
func (m *Metrics) BatchWritten(algo string, size int) {
	if m == nil {
		return
	}
	if algo == "" {
		algo = "none"
	}
	m.BatchesWritten.WithLabelValues(algo).Inc()
	m.BatchBytes.WithLabelValues(algo).Observe(float64(size))
}

// BatchRead records the outcome of reading one batch.
func (m *Metrics) BatchRead(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.BatchesRead.WithLabelValues(result).Inc()
}

// WriteText writes the current value of every
// metric to w in the Prometheus text format.
func (m *Metrics) WriteText(w io.Writer) error {
	if m == nil {
		return nil
	}
	families, err := m.reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
