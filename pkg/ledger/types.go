// Copyright 2025 Certen Protocol
//
// Ledger entry types for the provenance ledger.
// Maps to: ledger_entries table (pkg/database/migrations/001_initial_schema.sql)

package ledger

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Subject is the structured reference to the thing an event concerns.
type Subject struct {
	AssetID    string `json:"asset_id"`
	AnchorID   string `json:"anchor_id,omitempty"`
	ShipmentID string `json:"shipment_id,omitempty"`
	ClaimID    string `json:"claim_id,omitempty"`
	PolicyID   string `json:"policy_id,omitempty"`
	EnvelopeID string `json:"envelope_id,omitempty"`
	AccountID  string `json:"account_id,omitempty"`
}

// Entry is an immutable, committed row on the ledger.
// Maps to: ledger_entries table.
type Entry struct {
	ID               uuid.UUID       `db:"id" json:"event_id"`
	SequenceNumber   int64           `db:"sequence_number" json:"sequence_number"`
	Source           string          `db:"source" json:"source"`
	ProducerVersion  sql.NullString  `db:"producer_version" json:"producer_version,omitempty"`
	EventType        string          `db:"event_type" json:"event_type"`
	CorrelationID    uuid.NullUUID   `db:"correlation_id" json:"correlation_id,omitempty"`
	Subject          Subject         `db:"subject" json:"subject"`
	Payload          json.RawMessage `db:"payload" json:"payload"`
	PayloadHash      string          `db:"payload_hash" json:"payload_hash"`
	PreviousHash     sql.NullString  `db:"previous_hash" json:"previous_hash,omitempty"`
	EntryHash        string          `db:"entry_hash" json:"entry_hash"`
	Signatures       map[string]string `db:"signatures" json:"signatures,omitempty"`
	SignatureKeyID   sql.NullString  `db:"signature_key_id" json:"signature_key_id,omitempty"`
	IdempotencyKey   sql.NullString  `db:"idempotency_key" json:"idempotency_key,omitempty"`
	SchemaVersion    int             `db:"schema_version" json:"schema_version"`
	OccurredAt       sql.NullTime    `db:"occurred_at" json:"occurred_at,omitempty"`
	CommittedAt      time.Time       `db:"committed_at" json:"committed_at"`
	RulesetVersion   string          `db:"ruleset_version" json:"ruleset_version"`
	AssetStateHash   sql.NullString  `db:"asset_state_hash" json:"asset_state_hash,omitempty"`
	EvidenceSetHash  sql.NullString  `db:"evidence_set_hash" json:"evidence_set_hash,omitempty"`
	VerificationTier sql.NullString  `db:"verification_tier" json:"verification_tier,omitempty"`
}

// IngestInput is the producer-facing envelope submitted to the
// ingestion transaction.
type IngestInput struct {
	EventID         uuid.UUID
	Source          string
	ProducerVersion string
	SchemaVersion   int
	EventType       string
	CorrelationID   uuid.NullUUID
	OccurredAt      *time.Time
	IdempotencyKey  string
	Subject         Subject
	Payload         map[string]interface{}
	Signatures      map[string]string // pre-supplied signatures, merged with computed ones
}

// IngestResult is returned by a successful (or deduplicated) ingest.
type IngestResult struct {
	Deduped        bool
	SequenceNumber int64
	EntryHash      string
	CommittedAt    time.Time
}
