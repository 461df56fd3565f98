// Copyright 2025 Certen Protocol
//
// Optional BLS12-381 co-signer. When configured, every entry carries a
// second, independent detached signature under CoSignerKeyName in
// addition to the default Ed25519 provider_sig. No aggregation is
// attempted here: each entry is signed individually, never batched.

package signer

import (
	"encoding/hex"
	"fmt"

	"github.com/proveniq/ledger/pkg/crypto/bls"
)

// BLSCoSigner wraps a BLS12-381 private key derived from a configured
// seed, producing a second detached signature over the same canonical
// payload bytes the default signer signs.
type BLSCoSigner struct {
	privateKey *bls.PrivateKey
	publicKey  *bls.PublicKey
	keyID      string
}

// NewBLSCoSigner derives a BLS12-381 keypair deterministically from
// seed. Returns an error if the BLS library fails to initialize.
func NewBLSCoSigner(seed []byte) (*BLSCoSigner, error) {
	if len(seed) < 32 {
		return nil, fmt.Errorf("signer: BLS co-signer seed must be at least 32 bytes")
	}
	priv, pub, err := bls.GenerateKeyPairFromSeed(seed)
	if err != nil {
		return nil, fmt.Errorf("signer: derive BLS keypair: %w", err)
	}
	return &BLSCoSigner{
		privateKey: priv,
		publicKey:  pub,
		keyID:      "bls12381:" + hex.EncodeToString(pub.Bytes()),
	}, nil
}

// KeyID implements Signer.
func (s *BLSCoSigner) KeyID() string {
	return s.keyID
}

// Sign implements Signer, using the ledger's attestation domain tag.
func (s *BLSCoSigner) Sign(message []byte) ([]byte, error) {
	sig := s.privateKey.SignWithDomain(message, bls.DomainCoSignature)
	return sig.Bytes(), nil
}

// PublicKey returns the co-signer's BLS public key, for verifiers.
func (s *BLSCoSigner) PublicKey() *bls.PublicKey {
	return s.publicKey
}
