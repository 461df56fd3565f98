// Copyright 2025 Certen Protocol
//
// Repository for the proof_views table.

package proofview

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/proveniq/ledger/pkg/database"
)

// Repository reads and writes proof_views.
type Repository struct {
	client *database.Client
}

// NewRepository returns a Repository over client.
func NewRepository(client *database.Client) *Repository {
	return &Repository{client: client}
}

const proofViewColumns = `proof_id, asset_id, verification_event_id, snapshot_hash,
	asset_state_hash, evidence_set_hash, ruleset_version, scope_json,
	created_by, created_at, expires_at, revoked_at`

func scanProofView(row interface{ Scan(dest ...interface{}) error }) (*ProofView, error) {
	var pv ProofView
	var scopeRaw []byte
	var createdBy sql.NullString
	var rulesetVersion sql.NullString

	err := row.Scan(
		&pv.ProofID, &pv.AssetID, &pv.VerificationEventID, &pv.SnapshotHash,
		&pv.AssetStateHash, &pv.EvidenceSetHash, &rulesetVersion, &scopeRaw,
		&createdBy, &pv.CreatedAt, &pv.ExpiresAt, &pv.RevokedAt,
	)
	if err == sql.ErrNoRows {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("proofview: scan: %w", err)
	}
	pv.CreatedBy = createdBy.String
	pv.RulesetVersion = rulesetVersion.String
	if len(scopeRaw) > 0 {
		if err := json.Unmarshal(scopeRaw, &pv.Scope); err != nil {
			return nil, fmt.Errorf("proofview: unmarshal scope: %w", err)
		}
	}
	return &pv, nil
}

// Insert persists a new proof view.
func (r *Repository) Insert(ctx context.Context, pv *ProofView) error {
	scopeBytes, err := json.Marshal(pv.Scope)
	if err != nil {
		return fmt.Errorf("proofview: marshal scope: %w", err)
	}
	query := `
		INSERT INTO proof_views (
			proof_id, asset_id, verification_event_id, snapshot_hash,
			asset_state_hash, evidence_set_hash, ruleset_version, scope_json,
			created_by, created_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err = r.client.ExecContext(ctx, query,
		pv.ProofID, pv.AssetID, pv.VerificationEventID, pv.SnapshotHash,
		pv.AssetStateHash, pv.EvidenceSetHash, pv.RulesetVersion, scopeBytes,
		pv.CreatedBy, pv.CreatedAt, pv.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("proofview: insert: %w", err)
	}
	return nil
}

// ByID returns the proof view with the given id, or database.ErrNotFound.
func (r *Repository) ByID(ctx context.Context, proofID uuid.UUID) (*ProofView, error) {
	query := `SELECT ` + proofViewColumns + ` FROM proof_views WHERE proof_id = $1`
	row := r.client.QueryRowContext(ctx, query, proofID)
	return scanProofView(row)
}

// Revoke sets revoked_at for proofID.
func (r *Repository) Revoke(ctx context.Context, proofID uuid.UUID, revokedAt time.Time) error {
	result, err := r.client.ExecContext(ctx,
		`UPDATE proof_views SET revoked_at = $2 WHERE proof_id = $1 AND revoked_at IS NULL`,
		proofID, revokedAt,
	)
	if err != nil {
		return fmt.Errorf("proofview: revoke: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("proofview: revoke rows affected: %w", err)
	}
	if rows == 0 {
		return database.ErrNotFound
	}
	return nil
}
