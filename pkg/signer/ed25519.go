// Copyright 2025 Certen Protocol
//
// Default signer implementation: Ed25519 with a deterministic key
// derived from a configured seed.

package signer

import (
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"fmt"
)

// Ed25519Signer is the ledger's default signer. The key is derived
// deterministically from a seed rather than generated at random, so a
// redeployed process with the same configured seed recovers the same
// key rather than silently starting to sign with a new one.
type Ed25519Signer struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	keyID      string
}

// NewEd25519Signer derives an Ed25519 keypair from seed via
// SHA-256(seed) as the 32-byte Ed25519 seed. KeyID is derived from the
// SPKI-encoded public key, not the seed, so it is safe to log and
// persist.
func NewEd25519Signer(seed []byte) (*Ed25519Signer, error) {
	if len(seed) == 0 {
		return nil, fmt.Errorf("signer: seed must not be empty")
	}
	digest := sha256.Sum256(seed)
	privateKey := ed25519.NewKeyFromSeed(digest[:])
	publicKey := privateKey.Public().(ed25519.PublicKey)

	spki, err := x509.MarshalPKIXPublicKey(publicKey)
	if err != nil {
		return nil, fmt.Errorf("signer: marshal public key: %w", err)
	}
	pubDigest := sha256.Sum256(spki)
	keyID := "dev-ed25519:" + hex.EncodeToString(pubDigest[:])

	return &Ed25519Signer{
		privateKey: privateKey,
		publicKey:  publicKey,
		keyID:      keyID,
	}, nil
}

// KeyID implements Signer.
func (s *Ed25519Signer) KeyID() string {
	return s.keyID
}

// Sign implements Signer.
func (s *Ed25519Signer) Sign(message []byte) ([]byte, error) {
	return ed25519.Sign(s.privateKey, message), nil
}

// PublicKey returns the signer's Ed25519 public key, for verifiers.
func (s *Ed25519Signer) PublicKey() ed25519.PublicKey {
	return s.publicKey
}

// Verify checks a detached Ed25519 signature against a public key.
func Verify(publicKey ed25519.PublicKey, message, signature []byte) bool {
	if len(publicKey) != ed25519.PublicKeySize || len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(publicKey, message, signature)
}
