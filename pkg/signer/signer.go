// Copyright 2025 Certen Protocol
//
// Package signer provides the key-identified signing abstraction the
// ledger uses to attest ingested payloads. A Signer signs raw canonical
// bytes and names the key it signed with; it has no opinion about what
// those bytes mean.
package signer

// Signer signs canonical payload bytes and identifies the key used.
type Signer interface {
	// KeyID returns a stable identifier for the signing key, persisted
	// alongside the signature so verifiers know which key to check.
	KeyID() string

	// Sign returns a detached signature over message.
	Sign(message []byte) ([]byte, error)
}

// ReservedKeyName is the name under which the default signer's
// signature is stored in a LedgerEntry's signatures map.
const ReservedKeyName = "provider_sig"

// CoSignerKeyName is the name under which an optional co-signer's
// signature is stored, when configured.
const CoSignerKeyName = "attestor_sig"
