package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveIngestOutcomeIncrementsCounter(t *testing.T) {
	m := New()
	m.ObserveIngestOutcome("ingest_success")
	m.ObserveIngestOutcome("ingest_success")
	m.ObserveIngestOutcome("ingest_failed")

	if got := testutil.ToFloat64(m.IngestOutcomes.WithLabelValues("ingest_success")); got != 2 {
		t.Fatalf("got %v", got)
	}
	if got := testutil.ToFloat64(m.IngestOutcomes.WithLabelValues("ingest_failed")); got != 1 {
		t.Fatalf("got %v", got)
	}
}

func TestObserveProofValidationDefaultsReasonToValid(t *testing.T) {
	m := New()
	m.ObserveProofValidation("")

	if got := testutil.ToFloat64(m.ProofValidations.WithLabelValues("valid")); got != 1 {
		t.Fatalf("got %v", got)
	}
}

func TestNewRegistersOnPrivateRegistry(t *testing.T) {
	m1 := New()
	m2 := New()
	m1.ObserveReducerInvocation()
	if m1.Registry == m2.Registry {
		t.Fatal("expected distinct private registries")
	}
}
