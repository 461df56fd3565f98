// Copyright 2025 Certen Protocol
//
// Package policy implements the issuance gate: before a
// verification-granted event is appended, the asset's history is
// replayed inside a short-lived read transaction, and frozen/revoked
// assets are rejected before the write is ever attempted.
package policy

import (
	"context"
	"fmt"

	"github.com/proveniq/ledger/pkg/database"
	"github.com/proveniq/ledger/pkg/ledger"
	"github.com/proveniq/ledger/pkg/metrics"
	"github.com/proveniq/ledger/pkg/reducer"
)

// Gate replays an asset's history and rejects issuance when the
// derived status is FROZEN or REVOKED.
type Gate struct {
	client    *database.Client
	repo      *ledger.Repository
	semantics reducer.Semantics
	metrics   *metrics.Metrics // optional
}

// New returns a Gate. m may be nil.
func New(client *database.Client, repo *ledger.Repository, semantics reducer.Semantics, m *metrics.Metrics) *Gate {
	return &Gate{client: client, repo: repo, semantics: semantics, metrics: m}
}

// CheckIssuance replays assetID's committed history and returns an
// error if a verification-granted event may not be appended for it.
// The gate and the subsequent ingest transaction (pkg/ingest) are
// deliberately separate transactions: correctness holds because
// freeze/revoke are themselves committed, chain-serialized entries.
func (g *Gate) CheckIssuance(ctx context.Context, assetID string) error {
	tx, err := g.client.DB().BeginTx(ctx, &database.ReadOnlyTxOptions)
	if err != nil {
		return fmt.Errorf("policy: begin read transaction: %w", err)
	}
	defer tx.Rollback()

	entries, err := g.repo.ByAssetID(ctx, tx, assetID)
	if err != nil {
		return fmt.Errorf("policy: replay history for %s: %w", assetID, err)
	}

	state := reducer.Reduce(assetID, entries, g.semantics)
	if g.metrics != nil {
		g.metrics.ObserveReducerInvocation()
	}
	switch state.Status {
	case reducer.StatusFrozen:
		return ledger.NewError(ledger.CodeAssetFrozen, fmt.Sprintf("asset %s is frozen", assetID), nil)
	case reducer.StatusRevoked:
		return ledger.NewError(ledger.CodeAssetRevoked, fmt.Sprintf("asset %s is revoked", assetID), nil)
	default:
		return nil
	}
}
