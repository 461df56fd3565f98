// Copyright 2025 Certen Protocol
//
// Repository for the ledger_entries table: tip lookup, dedupe lookups,
// and the insert used by the ingestion transaction.

package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/proveniq/ledger/pkg/database"
)

// Repository reads and writes ledger_entries. Writes are only ever
// issued from within the ingestion transaction (pkg/ingest); this type
// does not itself serialize writers.
type Repository struct {
	client *database.Client
}

// NewRepository returns a Repository over client.
func NewRepository(client *database.Client) *Repository {
	return &Repository{client: client}
}

// scanEntry scans a single ledger_entries row, dual-decoding the JSONB
// subject/signatures columns.
func scanEntry(row interface {
	Scan(dest ...interface{}) error
}) (*Entry, error) {
	var e Entry
	var subjectRaw, signaturesRaw []byte

	err := row.Scan(
		&e.ID, &e.SequenceNumber, &e.Source, &e.ProducerVersion, &e.EventType,
		&e.CorrelationID, &subjectRaw, &e.Payload, &e.PayloadHash, &e.PreviousHash,
		&e.EntryHash, &signaturesRaw, &e.SignatureKeyID, &e.IdempotencyKey,
		&e.SchemaVersion, &e.OccurredAt, &e.CommittedAt, &e.RulesetVersion,
		&e.AssetStateHash, &e.EvidenceSetHash, &e.VerificationTier,
	)
	if err == sql.ErrNoRows {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: scan entry: %w", err)
	}

	if len(subjectRaw) > 0 {
		if err := json.Unmarshal(subjectRaw, &e.Subject); err != nil {
			return nil, fmt.Errorf("ledger: unmarshal subject: %w", err)
		}
	}
	if len(signaturesRaw) > 0 {
		if err := json.Unmarshal(signaturesRaw, &e.Signatures); err != nil {
			return nil, fmt.Errorf("ledger: unmarshal signatures: %w", err)
		}
	}

	return &e, nil
}

const entryColumns = `id, sequence_number, source, producer_version, event_type,
	correlation_id, subject, payload, payload_hash, previous_hash,
	entry_hash, signatures, signature_key_id, idempotency_key,
	schema_version, occurred_at, committed_at, ruleset_version,
	asset_state_hash, evidence_set_hash, verification_tier`

// ByEventID returns the entry with the given event id, or ErrEntryNotFound.
func (r *Repository) ByEventID(ctx context.Context, tx *sql.Tx, eventID uuid.UUID) (*Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE id = $1`
	row := tx.QueryRowContext(ctx, query, eventID)
	return scanEntry(row)
}

// ByIdempotencyKey returns the entry matching (source, idempotencyKey), or ErrEntryNotFound.
func (r *Repository) ByIdempotencyKey(ctx context.Context, tx *sql.Tx, source, idempotencyKey string) (*Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE source = $1 AND idempotency_key = $2`
	row := tx.QueryRowContext(ctx, query, source, idempotencyKey)
	return scanEntry(row)
}

// Tip returns the entry with the greatest sequence_number, or ErrEmptyLedger.
func (r *Repository) Tip(ctx context.Context, tx *sql.Tx) (*Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries ORDER BY sequence_number DESC LIMIT 1`
	row := tx.QueryRowContext(ctx, query)
	e, err := scanEntry(row)
	if err == ErrEntryNotFound {
		return nil, ErrEmptyLedger
	}
	return e, err
}

// Insert appends e with ON CONFLICT (source, idempotency_key) DO NOTHING,
// matching the race-safe idempotency fallback. Returns false if the
// insert was skipped due to a concurrent winner.
func (r *Repository) Insert(ctx context.Context, tx *sql.Tx, e *Entry) (bool, error) {
	subjectBytes, err := json.Marshal(e.Subject)
	if err != nil {
		return false, fmt.Errorf("ledger: marshal subject: %w", err)
	}
	signaturesBytes, err := json.Marshal(e.Signatures)
	if err != nil {
		return false, fmt.Errorf("ledger: marshal signatures: %w", err)
	}

	query := `
		INSERT INTO ledger_entries (
			id, sequence_number, source, producer_version, event_type,
			correlation_id, subject, payload, payload_hash, previous_hash,
			entry_hash, signatures, signature_key_id, idempotency_key,
			schema_version, occurred_at, committed_at, ruleset_version,
			asset_state_hash, evidence_set_hash, verification_tier
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21
		)
		ON CONFLICT (source, idempotency_key) WHERE idempotency_key IS NOT NULL DO NOTHING`

	result, err := tx.ExecContext(ctx, query,
		e.ID, e.SequenceNumber, e.Source, e.ProducerVersion, e.EventType,
		e.CorrelationID, subjectBytes, e.Payload, e.PayloadHash, e.PreviousHash,
		e.EntryHash, signaturesBytes, e.SignatureKeyID, e.IdempotencyKey,
		e.SchemaVersion, e.OccurredAt, e.CommittedAt, e.RulesetVersion,
		e.AssetStateHash, e.EvidenceSetHash, e.VerificationTier,
	)
	if err != nil {
		return false, fmt.Errorf("ledger: insert entry: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ledger: rows affected: %w", err)
	}
	return rows > 0, nil
}

// ByAssetID returns every committed entry concerning assetID, ordered
// by sequence_number ascending, for use by the replay reducer.
func (r *Repository) ByAssetID(ctx context.Context, q interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}, assetID string) ([]*Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries
		WHERE subject->>'asset_id' = $1 ORDER BY sequence_number ASC`
	rows, err := q.QueryContext(ctx, query, assetID)
	if err != nil {
		return nil, fmt.Errorf("ledger: query by asset id: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// AllOrderedBySequence streams the entire table in commit order, for
// full read-model rebuilds.
func (r *Repository) AllOrderedBySequence(ctx context.Context) (*sql.Rows, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries ORDER BY sequence_number ASC`
	rows, err := r.client.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ledger: query all ordered: %w", err)
	}
	return rows, nil
}

// ScanNext scans the next row of rows (as returned by AllOrderedBySequence).
func ScanNext(rows *sql.Rows) (*Entry, error) {
	return scanEntry(rows)
}
