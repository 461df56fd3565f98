package canonical

import (
	"math"
	"testing"
)

func TestBytesKeyOrderInvariant(t *testing.T) {
	a := map[string]interface{}{"b": 1, "a": 2}
	b := map[string]interface{}{"a": 2, "b": 1}

	ba, err := Bytes(a)
	if err != nil {
		t.Fatalf("Bytes(a): %v", err)
	}
	bb, err := Bytes(b)
	if err != nil {
		t.Fatalf("Bytes(b): %v", err)
	}
	if string(ba) != string(bb) {
		t.Fatalf("canonical bytes differ by key order: %s vs %s", ba, bb)
	}
}

func TestBytesDropsNullFields(t *testing.T) {
	v := map[string]interface{}{"present": "x", "absent": nil}
	b, err := Bytes(v)
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if string(b) != `{"present":"x"}` {
		t.Fatalf("unexpected canonical bytes: %s", b)
	}
}

func TestHashStable(t *testing.T) {
	h1, err := Hash(map[string]interface{}{"x": 1, "y": 2})
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	h2, err := Hash(map[string]interface{}{"y": 2, "x": 1})
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("hash not invariant under key order: %s vs %s", h1, h2)
	}
}

func TestEvidenceSetHashOrderInvariant(t *testing.T) {
	h1 := EvidenceSetHash([]string{"c", "a", "b"})
	h2 := EvidenceSetHash([]string{"b", "c", "a"})
	if h1 != h2 {
		t.Fatalf("evidence set hash not order-invariant: %s vs %s", h1, h2)
	}
}

func TestEvidenceSetHashFiltersEmpty(t *testing.T) {
	h1 := EvidenceSetHash([]string{"a", "", "b"})
	h2 := EvidenceSetHash([]string{"a", "b"})
	if h1 != h2 {
		t.Fatalf("evidence set hash should ignore empty entries: %s vs %s", h1, h2)
	}
}

func TestAssetStateHashDeterministic(t *testing.T) {
	in := AssetStateInput{
		RulesetVersion: "v1.0.0",
		Claim:          map[string]interface{}{"owner": "acme"},
		EvidenceHashes: []string{"h2", "h1"},
	}
	h1, err := AssetStateHash(in)
	if err != nil {
		t.Fatalf("AssetStateHash: %v", err)
	}
	in.EvidenceHashes = []string{"h1", "h2"}
	h2, err := AssetStateHash(in)
	if err != nil {
		t.Fatalf("AssetStateHash: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("asset state hash should not depend on evidence hash order: %s vs %s", h1, h2)
	}
}

func TestBytesRejectsNonFiniteNumbers(t *testing.T) {
	_, err := Bytes(map[string]interface{}{"x": math.NaN()})
	if err == nil {
		t.Fatalf("expected error for NaN input")
	}
}
