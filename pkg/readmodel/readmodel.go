// Copyright 2025 Certen Protocol
//
// Package readmodel rebuilds the derived_verification_state table from
// scratch by replaying the entire entry log through pkg/reducer. The
// table is a cache, never a source of truth: rebuilding is always
// safe and always idempotent.
package readmodel

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/proveniq/ledger/pkg/database"
	"github.com/proveniq/ledger/pkg/ledger"
	"github.com/proveniq/ledger/pkg/metrics"
	"github.com/proveniq/ledger/pkg/obslog"
	"github.com/proveniq/ledger/pkg/reducer"
)

// Rebuilder drives a full derived-state rebuild.
type Rebuilder struct {
	client    *database.Client
	repo      *ledger.Repository
	semantics reducer.Semantics
	log       *obslog.Logger
	metrics   *metrics.Metrics // optional
}

// New returns a Rebuilder. m may be nil.
func New(client *database.Client, repo *ledger.Repository, semantics reducer.Semantics, logger *obslog.Logger, m *metrics.Metrics) *Rebuilder {
	return &Rebuilder{client: client, repo: repo, semantics: semantics, log: logger, metrics: m}
}

// Rebuild truncates derived_verification_state, streams ledger_entries
// in sequence_number order, reduces per asset_id, and inserts the
// final state for every asset observed in the log.
func (r *Rebuilder) Rebuild(ctx context.Context) (ok bool, rebuiltAssets int, err error) {
	tx, err := r.client.DB().BeginTx(ctx, nil)
	if err != nil {
		return false, 0, fmt.Errorf("readmodel: begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `TRUNCATE TABLE derived_verification_state`); err != nil {
		return false, 0, fmt.Errorf("readmodel: truncate: %w", err)
	}

	rows, err := r.repo.AllOrderedBySequence(ctx)
	if err != nil {
		return false, 0, fmt.Errorf("readmodel: stream entries: %w", err)
	}
	defer rows.Close()

	byAsset := map[string][]*ledger.Entry{}
	order := []string{}
	for rows.Next() {
		e, err := ledger.ScanNext(rows)
		if err != nil {
			return false, 0, fmt.Errorf("readmodel: scan entry: %w", err)
		}
		assetID := e.Subject.AssetID
		if assetID == "" {
			continue
		}
		if _, seen := byAsset[assetID]; !seen {
			order = append(order, assetID)
		}
		byAsset[assetID] = append(byAsset[assetID], e)
	}
	if err := rows.Err(); err != nil {
		return false, 0, fmt.Errorf("readmodel: iterate entries: %w", err)
	}

	for _, assetID := range order {
		entries := byAsset[assetID]
		state := reducer.Reduce(assetID, entries, r.semantics)
		if r.metrics != nil {
			r.metrics.ObserveReducerInvocation()
		}
		if err := insertDerivedState(ctx, tx, state); err != nil {
			return false, 0, fmt.Errorf("readmodel: insert derived state for %s: %w", assetID, err)
		}
		rebuiltAssets++
	}

	if err := tx.Commit(); err != nil {
		return false, 0, fmt.Errorf("readmodel: commit: %w", err)
	}

	r.log.Log("read_model_rebuilt", map[string]interface{}{
		"rebuilt_assets": rebuiltAssets,
	})
	return true, rebuiltAssets, nil
}

func insertDerivedState(ctx context.Context, tx *sql.Tx, state reducer.DerivedState) error {
	query := `
		INSERT INTO derived_verification_state (
			asset_id, status, reason_code, last_verification_event_id,
			asset_state_hash_current, evidence_set_hash_current, updated_at
		) VALUES ($1, $2, $3, NULLIF($4, '')::uuid, $5, $6, now())
		ON CONFLICT (asset_id) DO UPDATE SET
			status = EXCLUDED.status,
			reason_code = EXCLUDED.reason_code,
			last_verification_event_id = EXCLUDED.last_verification_event_id,
			asset_state_hash_current = EXCLUDED.asset_state_hash_current,
			evidence_set_hash_current = EXCLUDED.evidence_set_hash_current,
			updated_at = now()`
	_, err := tx.ExecContext(ctx, query,
		state.AssetID, string(state.Status), nullIfEmpty(state.ReasonCode),
		state.LastVerificationEventID, nullIfEmpty(state.AssetStateHashCurrent),
		nullIfEmpty(state.EvidenceSetHashCurrent),
	)
	return err
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
