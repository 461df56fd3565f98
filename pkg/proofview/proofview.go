// Copyright 2025 Certen Protocol
//
// Package proofview implements the proof-view lifecycle: issuing a
// time-bounded attestation that an asset was verified under a specific
// grant at a specific snapshot, validating one against current derived
// state, and revoking it.
package proofview

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/proveniq/ledger/pkg/canonical"
	"github.com/proveniq/ledger/pkg/metrics"
	"github.com/proveniq/ledger/pkg/reducer"
)

// ProofView is an issued attestation. Maps to the proof_views table.
type ProofView struct {
	ProofID              uuid.UUID
	AssetID              string
	VerificationEventID  uuid.UUID
	SnapshotHash         string
	AssetStateHash       string
	EvidenceSetHash      string
	RulesetVersion       string
	Scope                map[string]interface{}
	CreatedBy            string
	CreatedAt            time.Time
	ExpiresAt            time.Time
	RevokedAt            sql.NullTime
}

// Validation failure reasons, normative order per the component design.
const (
	ReasonProofRevoked  = "PROOF_REVOKED"
	ReasonProofExpired  = "PROOF_EXPIRED"
	ReasonInvalidated   = "INVALIDATED"
	ReasonNotActiveGrant = "NOT_ACTIVE_GRANT"
)

// snapshotHash computes SHA256Hex(CanonicalBytes({asset_state_hash, evidence_set_hash})).
func snapshotHash(assetStateHash, evidenceSetHash string) (string, error) {
	return canonical.Hash(map[string]interface{}{
		"asset_state_hash":  assetStateHash,
		"evidence_set_hash": evidenceSetHash,
	})
}

// Service issues, validates, and revokes proof views against the
// proof_views table.
type Service struct {
	repo    *Repository
	metrics *metrics.Metrics // optional
}

// NewService returns a Service over repo. m may be nil.
func NewService(repo *Repository, m *metrics.Metrics) *Service {
	return &Service{repo: repo, metrics: m}
}

// ValidateAndRecord wraps the pure Validate check, additionally
// recording the outcome on the service's metrics (if configured).
func (s *Service) ValidateAndRecord(proof *ProofView, now time.Time, derived reducer.DerivedState) (ok bool, reason string) {
	ok, reason = Validate(proof, now, derived)
	if s.metrics != nil {
		s.metrics.ObserveProofValidation(reason)
	}
	return ok, reason
}

// Issue computes the snapshot hash of the grant's recorded hashes and
// persists a new proof view valid for ttl. grant must be VERIFIED_ACTIVE
// with verificationEventID as its last verification event, so that its
// current hashes are the ones that grant recorded; otherwise Issue
// returns an error.
func (s *Service) Issue(ctx context.Context, verificationEventID uuid.UUID, grant reducer.DerivedState, ttl time.Duration, createdBy string, scope map[string]interface{}) (*ProofView, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("proofview: ttl must be positive")
	}
	if grant.Status != reducer.StatusVerifiedActive || grant.LastVerificationEventID != verificationEventID.String() {
		return nil, fmt.Errorf("proofview: verification event %s is not the active grant for asset %s", verificationEventID, grant.AssetID)
	}
	hash, err := snapshotHash(grant.AssetStateHashCurrent, grant.EvidenceSetHashCurrent)
	if err != nil {
		return nil, fmt.Errorf("proofview: compute snapshot hash: %w", err)
	}

	now := time.Now().UTC()
	pv := &ProofView{
		ProofID:             uuid.New(),
		AssetID:             grant.AssetID,
		VerificationEventID: verificationEventID,
		SnapshotHash:        hash,
		AssetStateHash:      grant.AssetStateHashCurrent,
		EvidenceSetHash:     grant.EvidenceSetHashCurrent,
		Scope:               scope,
		CreatedBy:           createdBy,
		CreatedAt:           now,
		ExpiresAt:           now.Add(ttl),
	}
	if err := s.repo.Insert(ctx, pv); err != nil {
		return nil, fmt.Errorf("proofview: persist: %w", err)
	}
	return pv, nil
}

// Validate is pure: it never touches the database, operating only on
// the proof and the derived state the caller already fetched. Checks
// run in the normative order documented in the component design.
func Validate(proof *ProofView, now time.Time, derived reducer.DerivedState) (ok bool, reason string) {
	if proof.RevokedAt.Valid {
		return false, ReasonProofRevoked
	}
	if !now.Before(proof.ExpiresAt) {
		return false, ReasonProofExpired
	}
	if derived.Status != reducer.StatusVerifiedActive {
		return false, ReasonInvalidated
	}
	if derived.LastVerificationEventID != proof.VerificationEventID.String() {
		return false, ReasonNotActiveGrant
	}
	recomputed, err := snapshotHash(derived.AssetStateHashCurrent, derived.EvidenceSetHashCurrent)
	if err != nil || recomputed != proof.SnapshotHash {
		return false, ReasonInvalidated
	}
	return true, ""
}

// Revoke marks proofID revoked. Irreversible.
func (s *Service) Revoke(ctx context.Context, proofID uuid.UUID) error {
	return s.repo.Revoke(ctx, proofID, time.Now().UTC())
}
