// Copyright 2025 Certen Protocol
//
// Package reducer collapses an asset's ordered event history into its
// current derived verification state. Pure function, no I/O: the state
// machine here is the single source of truth both for live replay
// during issuance (pkg/policy) and for full read-model rebuilds
// (pkg/readmodel).
package reducer

import (
	"github.com/proveniq/ledger/pkg/ledger"
)

// Status mirrors the values persisted in derived_verification_state.status.
type Status string

const (
	StatusNone           Status = "NONE"
	StatusVerifiedActive Status = "VERIFIED_ACTIVE"
	StatusInvalidated    Status = "INVALIDATED"
	StatusFrozen         Status = "FROZEN"
	StatusRevoked        Status = "REVOKED"
)

// Reason codes recorded alongside a derived status.
const (
	ReasonStateHashMismatch = "STATE_HASH_MISMATCH"
)

// DerivedState is the reduction of an asset's event history at a point
// in time. Maps to the derived_verification_state table.
type DerivedState struct {
	AssetID                string
	Status                 Status
	ReasonCode             string
	LastVerificationEventID string
	AssetStateHashCurrent  string
	EvidenceSetHashCurrent string
}

// Semantics maps the event semantics the state machine reacts to onto
// the caller's own event-type names. The reducer never hardcodes
// domain event names: the recognized-type set and its semantic
// grouping are owned by the registry's embedder.
type Semantics struct {
	VerificationGranted map[string]struct{}
	ClaimUpdated        map[string]struct{}
	EvidenceAdded       map[string]struct{}
	EvidenceRemoved     map[string]struct{}
	EvidenceFrozen      map[string]struct{}
	VerificationRevoked map[string]struct{}
}

// DefaultSemantics returns the canonical event-type names this system
// ships with out of the box; embedders with a different registry can
// construct their own Semantics value instead.
func DefaultSemantics() Semantics {
	return Semantics{
		VerificationGranted: set("ASSET_VERIFICATION_GRANTED"),
		ClaimUpdated:        set("ASSET_CLAIM_UPDATED"),
		EvidenceAdded:       set("ASSET_EVIDENCE_ADDED"),
		EvidenceRemoved:     set("ASSET_EVIDENCE_REMOVED"),
		EvidenceFrozen:      set("ASSET_EVIDENCE_FROZEN"),
		VerificationRevoked: set("ASSET_VERIFICATION_REVOKED"),
	}
}

func set(names ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

func (s Semantics) classify(eventType string) string {
	switch {
	case has(s.VerificationGranted, eventType):
		return "verification_granted"
	case has(s.ClaimUpdated, eventType):
		return "claim_updated"
	case has(s.EvidenceAdded, eventType):
		return "evidence_added"
	case has(s.EvidenceRemoved, eventType):
		return "evidence_removed"
	case has(s.EvidenceFrozen, eventType):
		return "evidence_frozen"
	case has(s.VerificationRevoked, eventType):
		return "verification_revoked"
	default:
		return ""
	}
}

func has(m map[string]struct{}, k string) bool {
	_, ok := m[k]
	return ok
}

// Reduce applies the state-transition table over events, which must
// already be ordered by sequence_number ascending and all concern the
// same assetID. It is a pure function: identical input always yields
// an identical DerivedState.
func Reduce(assetID string, events []*ledger.Entry, semantics Semantics) DerivedState {
	state := DerivedState{AssetID: assetID, Status: StatusNone}

	for _, e := range events {
		switch semantics.classify(e.EventType) {
		case "verification_granted":
			state.Status = StatusVerifiedActive
			state.ReasonCode = ""
			state.LastVerificationEventID = e.ID.String()
			if e.AssetStateHash.Valid {
				state.AssetStateHashCurrent = e.AssetStateHash.String
			}
			if e.EvidenceSetHash.Valid {
				state.EvidenceSetHashCurrent = e.EvidenceSetHash.String
			}

		case "claim_updated":
			newHash := ""
			if e.AssetStateHash.Valid {
				newHash = e.AssetStateHash.String
			}
			if state.Status == StatusVerifiedActive && newHash != "" && newHash != state.AssetStateHashCurrent {
				state.Status = StatusInvalidated
				state.ReasonCode = ReasonStateHashMismatch
			}
			if newHash != "" {
				state.AssetStateHashCurrent = newHash
			}

		case "evidence_added", "evidence_removed":
			newHash := ""
			if e.EvidenceSetHash.Valid {
				newHash = e.EvidenceSetHash.String
			}
			if state.Status == StatusVerifiedActive && newHash != "" && newHash != state.EvidenceSetHashCurrent {
				state.Status = StatusInvalidated
				state.ReasonCode = ReasonStateHashMismatch
			}
			if newHash != "" {
				state.EvidenceSetHashCurrent = newHash
			}

		case "evidence_frozen":
			if state.Status != StatusRevoked {
				state.Status = StatusFrozen
			}

		case "verification_revoked":
			state.Status = StatusRevoked

		default:
			// Unrecognized-for-this-asset semantic: no state change.
		}
	}

	return state
}
