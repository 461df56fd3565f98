// Copyright 2025 Certen Protocol
//
// Package metrics counts ingestion outcomes, reducer invocations, and
// proof validations on a private prometheus.Registry. Exposing
// /metrics over HTTP is left to the embedding process.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the counters this module registers on a private
// registry, so embedding the module never collides with the host
// process's own default registry.
type Metrics struct {
	Registry *prometheus.Registry

	IngestOutcomes     *prometheus.CounterVec
	ReducerInvocations prometheus.Counter
	ProofValidations   *prometheus.CounterVec
}

// New constructs a Metrics value and registers all collectors on a
// fresh, private prometheus.Registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		IngestOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "provenance_ledger",
			Subsystem: "ingest",
			Name:      "outcomes_total",
			Help:      "Count of ingestion attempts by outcome.",
		}, []string{"outcome"}),
		ReducerInvocations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "provenance_ledger",
			Subsystem: "reducer",
			Name:      "invocations_total",
			Help:      "Count of replay reducer invocations.",
		}),
		ProofValidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "provenance_ledger",
			Subsystem: "proofview",
			Name:      "validations_total",
			Help:      "Count of proof-view validations by result reason.",
		}, []string{"reason"}),
	}

	reg.MustRegister(m.IngestOutcomes, m.ReducerInvocations, m.ProofValidations)
	return m
}

// ObserveIngestOutcome increments the outcome counter for one of
// ingest_success, deduped_by_event_id, deduped_by_idempotency_key,
// deduped_by_conflict, ingest_failed.
func (m *Metrics) ObserveIngestOutcome(outcome string) {
	m.IngestOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveReducerInvocation increments the reducer invocation counter.
func (m *Metrics) ObserveReducerInvocation() {
	m.ReducerInvocations.Inc()
}

// ObserveProofValidation increments the proof validation counter for
// a result reason; pass the empty string for a successful validation.
func (m *Metrics) ObserveProofValidation(reason string) {
	if reason == "" {
		reason = "valid"
	}
	m.ProofValidations.WithLabelValues(reason).Inc()
}
