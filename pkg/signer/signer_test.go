package signer

import "testing"

func TestEd25519SignerDeterministicFromSeed(t *testing.T) {
	seed := []byte("test-seed-material")

	s1, err := NewEd25519Signer(seed)
	if err != nil {
		t.Fatalf("NewEd25519Signer: %v", err)
	}
	s2, err := NewEd25519Signer(seed)
	if err != nil {
		t.Fatalf("NewEd25519Signer: %v", err)
	}

	if s1.KeyID() != s2.KeyID() {
		t.Fatalf("same seed produced different key IDs: %s vs %s", s1.KeyID(), s2.KeyID())
	}

	msg := []byte("payload bytes")
	sig1, err := s1.Sign(msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !Verify(s2.PublicKey(), msg, sig1) {
		t.Fatalf("signature from s1 did not verify against s2's (deterministic) public key")
	}
}

func TestEd25519SignerDifferentSeedsDiffer(t *testing.T) {
	s1, err := NewEd25519Signer([]byte("seed-a"))
	if err != nil {
		t.Fatalf("NewEd25519Signer: %v", err)
	}
	s2, err := NewEd25519Signer([]byte("seed-b"))
	if err != nil {
		t.Fatalf("NewEd25519Signer: %v", err)
	}
	if s1.KeyID() == s2.KeyID() {
		t.Fatalf("distinct seeds produced the same key ID")
	}
}

func TestEd25519SignerRejectsEmptySeed(t *testing.T) {
	if _, err := NewEd25519Signer(nil); err == nil {
		t.Fatalf("expected error for empty seed")
	}
}

func TestBLSCoSignerDeterministicFromSeed(t *testing.T) {
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = byte(i)
	}

	s1, err := NewBLSCoSigner(seed)
	if err != nil {
		t.Fatalf("NewBLSCoSigner: %v", err)
	}
	s2, err := NewBLSCoSigner(seed)
	if err != nil {
		t.Fatalf("NewBLSCoSigner: %v", err)
	}
	if s1.KeyID() != s2.KeyID() {
		t.Fatalf("same seed produced different BLS key IDs")
	}

	msg := []byte("payload bytes")
	sig, err := s1.Sign(msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if len(sig) == 0 {
		t.Fatalf("expected non-empty signature")
	}
}
