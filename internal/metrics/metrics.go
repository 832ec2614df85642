// Copyright 2025 KrakLabs
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

// Package metrics holds the Prometheus metrics for the encoder and evolver
// subsystems, directly grounded on the teacher's pkg/ingestion/metrics.go:
// a package-level struct guarded by sync.Once, counters named
// rpg_<subsystem>_<noun>_total, and histograms rpg_<subsystem>_<phase>_seconds
// (spec §2 AMBIENT STACK "Metrics").
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the registered collectors. Call Init once per process before
// scraping; encoder/evolver record through the package-level helpers below,
// which are safe to call even if Init was never invoked (the underlying
// prometheus.Counter/Histogram fields stay nil until Init runs, so every
// helper guards with ready()).
type Metrics struct {
	once        sync.Once
	initialized bool

	encodeRuns      prometheus.Counter
	encodeFiles     prometheus.Counter
	encodeEntities  prometheus.Counter
	encodeErrors    prometheus.Counter
	encodeDiscover  prometheus.Histogram
	encodeParse     prometheus.Histogram
	encodeLift      prometheus.Histogram
	encodeGround    prometheus.Histogram
	encodeTotal     prometheus.Histogram

	evolveRuns     prometheus.Counter
	evolveInserted prometheus.Counter
	evolveDeleted  prometheus.Counter
	evolveModified prometheus.Counter
	evolveRerouted prometheus.Counter
	evolvePruned   prometheus.Counter
	evolveErrors   prometheus.Counter
	evolveTotal    prometheus.Histogram
}

var m Metrics

var defaultBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// Init registers every collector exactly once. Calling it more than once,
// or never calling it at all, is safe: record helpers no-op until Init has
// run, matching the teacher's init()-guarded metricsIngestion.
func Init() {
	m.once.Do(func() {
		m.encodeRuns = prometheus.NewCounter(prometheus.CounterOpts{Name: "rpg_encode_runs_total", Help: "Encoder runs started"})
		m.encodeFiles = prometheus.NewCounter(prometheus.CounterOpts{Name: "rpg_encode_files_total", Help: "Files successfully processed by the encoder"})
		m.encodeEntities = prometheus.NewCounter(prometheus.CounterOpts{Name: "rpg_encode_entities_total", Help: "Entities semantically extracted by the encoder"})
		m.encodeErrors = prometheus.NewCounter(prometheus.CounterOpts{Name: "rpg_encode_errors_total", Help: "Non-fatal errors recorded during an encode"})

		m.encodeDiscover = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "rpg_encode_discover_seconds", Help: "Phase 1 discover-files duration", Buckets: defaultBuckets})
		m.encodeParse = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "rpg_encode_parse_seconds", Help: "Phase 2 extract-entities duration", Buckets: defaultBuckets})
		m.encodeLift = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "rpg_encode_lift_seconds", Help: "Phase 3 lift-features duration", Buckets: defaultBuckets})
		m.encodeGround = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "rpg_encode_ground_seconds", Help: "Phase 5 ground duration", Buckets: defaultBuckets})
		m.encodeTotal = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "rpg_encode_total_seconds", Help: "Total encode duration", Buckets: defaultBuckets})

		m.evolveRuns = prometheus.NewCounter(prometheus.CounterOpts{Name: "rpg_evolve_runs_total", Help: "Evolve runs started"})
		m.evolveInserted = prometheus.NewCounter(prometheus.CounterOpts{Name: "rpg_evolve_inserted_total", Help: "Nodes inserted by the evolver"})
		m.evolveDeleted = prometheus.NewCounter(prometheus.CounterOpts{Name: "rpg_evolve_deleted_total", Help: "Nodes deleted by the evolver"})
		m.evolveModified = prometheus.NewCounter(prometheus.CounterOpts{Name: "rpg_evolve_modified_total", Help: "Nodes updated in place by the evolver"})
		m.evolveRerouted = prometheus.NewCounter(prometheus.CounterOpts{Name: "rpg_evolve_rerouted_total", Help: "Nodes re-routed after semantic drift"})
		m.evolvePruned = prometheus.NewCounter(prometheus.CounterOpts{Name: "rpg_evolve_pruned_total", Help: "Orphaned high-level nodes pruned"})
		m.evolveErrors = prometheus.NewCounter(prometheus.CounterOpts{Name: "rpg_evolve_errors_total", Help: "Non-fatal errors recorded during an evolve"})
		m.evolveTotal = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "rpg_evolve_total_seconds", Help: "Total evolve duration", Buckets: defaultBuckets})

		prometheus.MustRegister(
			m.encodeRuns, m.encodeFiles, m.encodeEntities, m.encodeErrors,
			m.encodeDiscover, m.encodeParse, m.encodeLift, m.encodeGround, m.encodeTotal,
			m.evolveRuns, m.evolveInserted, m.evolveDeleted, m.evolveModified,
			m.evolveRerouted, m.evolvePruned, m.evolveErrors, m.evolveTotal,
		)
		m.initialized = true
	})
}

func ready() bool { return m.initialized }

// EncodeRunStarted records the start of an Encode call.
func EncodeRunStarted() {
	if ready() {
		m.encodeRuns.Inc()
	}
}

// ObserveEncodeDiscover records phase 1's duration in seconds.
func ObserveEncodeDiscover(seconds float64) {
	if ready() {
		m.encodeDiscover.Observe(seconds)
	}
}

// ObserveEncodeParse records phase 2's duration in seconds.
func ObserveEncodeParse(seconds float64) {
	if ready() {
		m.encodeParse.Observe(seconds)
	}
}

// ObserveEncodeLift records phase 3's duration in seconds.
func ObserveEncodeLift(seconds float64) {
	if ready() {
		m.encodeLift.Observe(seconds)
	}
}

// ObserveEncodeGround records phase 5's duration in seconds.
func ObserveEncodeGround(seconds float64) {
	if ready() {
		m.encodeGround.Observe(seconds)
	}
}

// EncodeRunFinished records a completed Encode call's totals.
func EncodeRunFinished(filesProcessed, entitiesExtracted, errs int, seconds float64) {
	if !ready() {
		return
	}
	m.encodeFiles.Add(float64(filesProcessed))
	m.encodeEntities.Add(float64(entitiesExtracted))
	m.encodeErrors.Add(float64(errs))
	m.encodeTotal.Observe(seconds)
}

// EvolveRunStarted records the start of an Evolve call.
func EvolveRunStarted() {
	if ready() {
		m.evolveRuns.Inc()
	}
}

// EvolveRunFinished records a completed Evolve call's counters.
func EvolveRunFinished(inserted, deleted, modified, rerouted, pruned, errs int, seconds float64) {
	if !ready() {
		return
	}
	m.evolveInserted.Add(float64(inserted))
	m.evolveDeleted.Add(float64(deleted))
	m.evolveModified.Add(float64(modified))
	m.evolveRerouted.Add(float64(rerouted))
	m.evolvePruned.Add(float64(pruned))
	m.evolveErrors.Add(float64(errs))
	m.evolveTotal.Observe(seconds)
}
