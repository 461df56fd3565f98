// Copyright 2025 Certen Protocol
//
// Package ingest implements the single-writer-serialized ingestion
// transaction: acquire the chain lock, check idempotency, read the
// tip, compute hashes, sign, and insert with a race-safe fallback.
package ingest

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/proveniq/ledger/pkg/canonical"
	"github.com/proveniq/ledger/pkg/database"
	"github.com/proveniq/ledger/pkg/ledger"
	"github.com/proveniq/ledger/pkg/metrics"
	"github.com/proveniq/ledger/pkg/obslog"
	"github.com/proveniq/ledger/pkg/registry"
	"github.com/proveniq/ledger/pkg/signer"
)

// Advisory lock key components. pg_advisory_xact_lock takes two int32s;
// deriving them from fixed 4-byte tags keeps the lock stable across
// deployments without a magic numeric constant in the code.
const (
	lockNamespaceTag = "PRVN"
	lockResourceTag  = "LEDG"
)

func lockKeys() (int32, int32) {
	return tagToInt32(lockNamespaceTag), tagToInt32(lockResourceTag)
}

func tagToInt32(tag string) int32 {
	var n int32
	for i := 0; i < len(tag) && i < 4; i++ {
		n = n<<8 | int32(tag[i])
	}
	return n
}

// Transaction runs the ingestion algorithm against a database.Client.
type Transaction struct {
	client   *database.Client
	repo     *ledger.Repository
	signer   signer.Signer
	coSigner signer.Signer // optional
	registry *registry.Registry
	log      *obslog.Logger
	metrics  *metrics.Metrics // optional
}

// New returns a Transaction. coSigner and m may be nil.
func New(client *database.Client, repo *ledger.Repository, s signer.Signer, coSigner signer.Signer, reg *registry.Registry, logger *obslog.Logger, m *metrics.Metrics) *Transaction {
	return &Transaction{client: client, repo: repo, signer: s, coSigner: coSigner, registry: reg, log: logger, metrics: m}
}

// Ingest runs the full algorithm described in the component design:
// lock, dedupe, read tip, hash, sign, insert with race fallback.
func (t *Transaction) Ingest(ctx context.Context, input ledger.IngestInput) (ledger.IngestResult, error) {
	result, err := t.ingest(ctx, input)
	if err != nil {
		t.logOutcome("ingest_failed", input, nil, err)
	}
	return result, err
}

func (t *Transaction) ingest(ctx context.Context, input ledger.IngestInput) (ledger.IngestResult, error) {
	normalizedType, err := t.registry.Normalize(input.EventType)
	if err != nil {
		return ledger.IngestResult{}, ledger.NewError(ledger.CodeUnrecognizedEventType, err.Error(), nil)
	}
	if err := t.registry.CheckSchemaVersion(input.SchemaVersion); err != nil {
		return ledger.IngestResult{}, ledger.NewError(ledger.CodeUnsupportedSchema, err.Error(), nil)
	}
	input.EventType = normalizedType

	tx, err := t.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return ledger.IngestResult{}, ledger.NewError(ledger.CodeWriteFailed, fmt.Sprintf("begin transaction: %v", err), nil)
	}
	defer tx.Rollback()

	nsKey, resKey := lockKeys()
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, nsKey, resKey); err != nil {
		return ledger.IngestResult{}, ledger.NewError(ledger.CodeWriteFailed, fmt.Sprintf("acquire chain lock: %v", err), nil)
	}

	if existing, err := t.repo.ByEventID(ctx, tx, input.EventID); err == nil {
		t.logOutcome("deduped_by_event_id", input, existing, nil)
		if commitErr := tx.Commit(); commitErr != nil {
			return ledger.IngestResult{}, ledger.NewError(ledger.CodeWriteFailed, fmt.Sprintf("commit dedupe: %v", commitErr), nil)
		}
		return resultFromEntry(existing, true), nil
	} else if err != ledger.ErrEntryNotFound {
		return ledger.IngestResult{}, ledger.NewError(ledger.CodeWriteFailed, fmt.Sprintf("lookup by event id: %v", err), nil)
	}

	if input.IdempotencyKey != "" {
		if existing, err := t.repo.ByIdempotencyKey(ctx, tx, input.Source, input.IdempotencyKey); err == nil {
			t.logOutcome("deduped_by_idempotency_key", input, existing, nil)
			if commitErr := tx.Commit(); commitErr != nil {
				return ledger.IngestResult{}, ledger.NewError(ledger.CodeWriteFailed, fmt.Sprintf("commit dedupe: %v", commitErr), nil)
			}
			return resultFromEntry(existing, true), nil
		} else if err != ledger.ErrEntryNotFound {
			return ledger.IngestResult{}, ledger.NewError(ledger.CodeWriteFailed, fmt.Sprintf("lookup by idempotency key: %v", err), nil)
		}
	}

	var previousHash sql.NullString
	var nextSeq int64
	tip, err := t.repo.Tip(ctx, tx)
	switch err {
	case nil:
		previousHash = sql.NullString{String: tip.EntryHash, Valid: true}
		nextSeq = tip.SequenceNumber + 1
	case ledger.ErrEmptyLedger:
		nextSeq = 0
	default:
		return ledger.IngestResult{}, ledger.NewError(ledger.CodeWriteFailed, fmt.Sprintf("read tip: %v", err), nil)
	}

	payloadBytes, err := canonical.Bytes(input.Payload)
	if err != nil {
		return ledger.IngestResult{}, ledger.NewError(ledger.CodeValidationFailed, fmt.Sprintf("canonicalize payload: %v", err), nil)
	}
	payloadHash := canonical.SHA256Hex(payloadBytes)

	entryHash, err := canonical.Hash(map[string]interface{}{
		"previous_hash":   nullableString(previousHash),
		"payload_hash":    payloadHash,
		"sequence_number": nextSeq,
		"event_id":        input.EventID.String(),
	})
	if err != nil {
		return ledger.IngestResult{}, ledger.NewError(ledger.CodeInternal, fmt.Sprintf("compute entry hash: %v", err), nil)
	}

	rulesetVersion := extractString(input.Payload, "ruleset_version", "v1.0.0")
	evidenceSetHash := extractEvidenceSetHash(input.Payload)
	assetStateHash := extractAssetStateHash(input.Payload, rulesetVersion)
	verificationTier := extractString(input.Payload, "verification_tier", "")

	signatures := map[string]string{}
	for k, v := range input.Signatures {
		signatures[k] = v
	}
	if _, ok := signatures[signer.ReservedKeyName]; !ok {
		sig, err := t.signer.Sign(payloadBytes)
		if err != nil {
			return ledger.IngestResult{}, ledger.NewError(ledger.CodeWriteFailed, fmt.Sprintf("sign payload: %v", err), nil)
		}
		signatures[signer.ReservedKeyName] = hex.EncodeToString(sig)
	}
	if t.coSigner != nil {
		if _, ok := signatures[signer.CoSignerKeyName]; !ok {
			sig, err := t.coSigner.Sign(payloadBytes)
			if err != nil {
				return ledger.IngestResult{}, ledger.NewError(ledger.CodeWriteFailed, fmt.Sprintf("co-sign payload: %v", err), nil)
			}
			signatures[signer.CoSignerKeyName] = hex.EncodeToString(sig)
		}
	}

	occurredAt := sql.NullTime{}
	if input.OccurredAt != nil {
		occurredAt = sql.NullTime{Time: *input.OccurredAt, Valid: true}
	}

	entry := &ledger.Entry{
		ID:               input.EventID,
		SequenceNumber:   nextSeq,
		Source:           input.Source,
		ProducerVersion:  sql.NullString{String: input.ProducerVersion, Valid: input.ProducerVersion != ""},
		EventType:        input.EventType,
		CorrelationID:    input.CorrelationID,
		Subject:          input.Subject,
		Payload:          payloadBytes,
		PayloadHash:      payloadHash,
		PreviousHash:     previousHash,
		EntryHash:        entryHash,
		Signatures:       signatures,
		SignatureKeyID:   sql.NullString{String: t.signer.KeyID(), Valid: true},
		IdempotencyKey:   sql.NullString{String: input.IdempotencyKey, Valid: input.IdempotencyKey != ""},
		SchemaVersion:    input.SchemaVersion,
		OccurredAt:       occurredAt,
		CommittedAt:      time.Now().UTC(),
		RulesetVersion:   rulesetVersion,
		AssetStateHash:   sql.NullString{String: assetStateHash, Valid: assetStateHash != ""},
		EvidenceSetHash:  sql.NullString{String: evidenceSetHash, Valid: evidenceSetHash != ""},
		VerificationTier: sql.NullString{String: verificationTier, Valid: verificationTier != ""},
	}

	inserted, err := t.repo.Insert(ctx, tx, entry)
	if err != nil {
		return ledger.IngestResult{}, ledger.NewError(ledger.CodeWriteFailed, fmt.Sprintf("insert entry: %v", err), nil)
	}

	if !inserted {
		// Lost the idempotency race: another writer committed first.
		existing, err := t.repo.ByIdempotencyKey(ctx, tx, input.Source, input.IdempotencyKey)
		if err != nil {
			return ledger.IngestResult{}, ledger.NewError(ledger.CodeWriteFailed, fmt.Sprintf("refetch after conflict: %v", err), nil)
		}
		t.logOutcome("deduped_by_conflict", input, existing, nil)
		if commitErr := tx.Commit(); commitErr != nil {
			return ledger.IngestResult{}, ledger.NewError(ledger.CodeWriteFailed, fmt.Sprintf("commit after conflict: %v", commitErr), nil)
		}
		return resultFromEntry(existing, true), nil
	}

	if err := tx.Commit(); err != nil {
		return ledger.IngestResult{}, ledger.NewError(ledger.CodeWriteFailed, fmt.Sprintf("commit: %v", err), nil)
	}

	t.logOutcome("ingest_success", input, entry, nil)
	return resultFromEntry(entry, false), nil
}

func resultFromEntry(e *ledger.Entry, deduped bool) ledger.IngestResult {
	return ledger.IngestResult{
		Deduped:        deduped,
		SequenceNumber: e.SequenceNumber,
		EntryHash:      e.EntryHash,
		CommittedAt:    e.CommittedAt,
	}
}

func (t *Transaction) logOutcome(outcome string, input ledger.IngestInput, entry *ledger.Entry, failure error) {
	fields := map[string]interface{}{
		"client_id": input.Source,
		"event_id":  input.EventID.String(),
	}
	if entry != nil {
		fields["sequence_number"] = entry.SequenceNumber
		fields["previous_hash"] = nullableString(entry.PreviousHash)
	}
	if failure != nil {
		fields["error"] = failure.Error()
	}
	t.log.Log(outcome, fields)
	if t.metrics != nil {
		t.metrics.ObserveIngestOutcome(outcome)
	}
}

func nullableString(s sql.NullString) interface{} {
	if !s.Valid {
		return nil
	}
	return s.String
}

func extractString(payload map[string]interface{}, key, fallback string) string {
	if v, ok := payload[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return fallback
}

func extractEvidenceSetHash(payload map[string]interface{}) string {
	if v, ok := payload["evidence_set_hash"].(string); ok && v != "" {
		return v
	}
	raw, ok := payload["evidence_hashes"].([]interface{})
	if !ok {
		return ""
	}
	hashes := make([]string, 0, len(raw))
	for _, h := range raw {
		if s, ok := h.(string); ok {
			hashes = append(hashes, s)
		}
	}
	return canonical.EvidenceSetHash(hashes)
}

func extractAssetStateHash(payload map[string]interface{}, rulesetVersion string) string {
	if v, ok := payload["asset_state_hash"].(string); ok && v != "" {
		return v
	}
	claim, ok := payload["claim_json"]
	if !ok {
		return ""
	}
	var evidenceHashes []string
	if raw, ok := payload["evidence_hashes"].([]interface{}); ok {
		for _, h := range raw {
			if s, ok := h.(string); ok {
				evidenceHashes = append(evidenceHashes, s)
			}
		}
	}
	h, err := canonical.AssetStateHash(canonical.AssetStateInput{
		RulesetVersion: rulesetVersion,
		Claim:          claim,
		EvidenceHashes: evidenceHashes,
	})
	if err != nil {
		return ""
	}
	return h
}
