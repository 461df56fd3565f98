package proofview

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/proveniq/ledger/pkg/reducer"
)

func validGrant(eventID uuid.UUID) reducer.DerivedState {
	return reducer.DerivedState{
		AssetID:                 "asset-1",
		Status:                  reducer.StatusVerifiedActive,
		LastVerificationEventID: eventID.String(),
		AssetStateHashCurrent:   "hash-a",
		EvidenceSetHashCurrent:  "evidence-a",
	}
}

func issuedProof(t *testing.T, eventID uuid.UUID, grant reducer.DerivedState, ttl time.Duration) *ProofView {
	t.Helper()
	hash, err := snapshotHash(grant.AssetStateHashCurrent, grant.EvidenceSetHashCurrent)
	if err != nil {
		t.Fatalf("snapshot hash: %v", err)
	}
	now := time.Now().UTC()
	return &ProofView{
		ProofID:             uuid.New(),
		AssetID:             grant.AssetID,
		VerificationEventID: eventID,
		SnapshotHash:        hash,
		AssetStateHash:      grant.AssetStateHashCurrent,
		EvidenceSetHash:     grant.EvidenceSetHashCurrent,
		CreatedAt:           now,
		ExpiresAt:           now.Add(ttl),
	}
}

func TestValidateFreshProofOK(t *testing.T) {
	eventID := uuid.New()
	grant := validGrant(eventID)
	proof := issuedProof(t, eventID, grant, time.Hour)

	ok, reason := Validate(proof, time.Now().UTC(), grant)
	if !ok || reason != "" {
		t.Fatalf("got ok=%v reason=%q", ok, reason)
	}
}

func TestValidateRevoked(t *testing.T) {
	eventID := uuid.New()
	grant := validGrant(eventID)
	proof := issuedProof(t, eventID, grant, time.Hour)
	proof.RevokedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}

	ok, reason := Validate(proof, time.Now().UTC(), grant)
	if ok || reason != ReasonProofRevoked {
		t.Fatalf("got ok=%v reason=%q", ok, reason)
	}
}

func TestValidateExpired(t *testing.T) {
	eventID := uuid.New()
	grant := validGrant(eventID)
	proof := issuedProof(t, eventID, grant, time.Hour)

	ok, reason := Validate(proof, proof.ExpiresAt.Add(time.Second), grant)
	if ok || reason != ReasonProofExpired {
		t.Fatalf("got ok=%v reason=%q", ok, reason)
	}
}

func TestValidateInvalidatedWhenStatusChanged(t *testing.T) {
	eventID := uuid.New()
	grant := validGrant(eventID)
	proof := issuedProof(t, eventID, grant, time.Hour)

	invalidated := grant
	invalidated.Status = reducer.StatusInvalidated

	ok, reason := Validate(proof, time.Now().UTC(), invalidated)
	if ok || reason != ReasonInvalidated {
		t.Fatalf("got ok=%v reason=%q", ok, reason)
	}
}

func TestValidateNotActiveGrantWhenNewerGrantIssued(t *testing.T) {
	eventID := uuid.New()
	grant := validGrant(eventID)
	proof := issuedProof(t, eventID, grant, time.Hour)

	newerGrant := grant
	newerGrant.LastVerificationEventID = uuid.New().String()

	ok, reason := Validate(proof, time.Now().UTC(), newerGrant)
	if ok || reason != ReasonNotActiveGrant {
		t.Fatalf("got ok=%v reason=%q", ok, reason)
	}
}

func TestValidateInvalidatedWhenHashesDrift(t *testing.T) {
	eventID := uuid.New()
	grant := validGrant(eventID)
	proof := issuedProof(t, eventID, grant, time.Hour)

	drifted := grant
	drifted.AssetStateHashCurrent = "hash-b"

	ok, reason := Validate(proof, time.Now().UTC(), drifted)
	if ok || reason != ReasonInvalidated {
		t.Fatalf("got ok=%v reason=%q", ok, reason)
	}
}

func TestValidateOrderRevokedBeatsExpired(t *testing.T) {
	eventID := uuid.New()
	grant := validGrant(eventID)
	proof := issuedProof(t, eventID, grant, -time.Hour) // already expired
	proof.RevokedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}

	_, reason := Validate(proof, time.Now().UTC(), grant)
	if reason != ReasonProofRevoked {
		t.Fatalf("revoked should take precedence over expired, got %q", reason)
	}
}
