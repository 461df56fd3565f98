package registry

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizeAcceptsWellFormedType(t *testing.T) {
	r := New(1)
	got, err := r.Normalize("ASSET_VERIFICATION_GRANTED")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ASSET_VERIFICATION_GRANTED" {
		t.Fatalf("got %q", got)
	}
}

func TestNormalizeRejectsMalformedShape(t *testing.T) {
	r := New(1)
	cases := []string{"asset_verified", "ASSETVERIFIED", "ASSET-VERIFIED", ""}
	for _, c := range cases {
		if _, err := r.Normalize(c); err == nil {
			t.Fatalf("expected error for %q", c)
		}
	}
}

func TestCheckSchemaVersionRequiresExactMatch(t *testing.T) {
	r := New(2)
	if err := r.CheckSchemaVersion(3); err == nil {
		t.Fatal("expected error for future schema version")
	}
	if err := r.CheckSchemaVersion(1); err == nil {
		t.Fatal("expected error for a superseded schema version")
	}
	if err := r.CheckSchemaVersion(0); err == nil {
		t.Fatal("expected error for non-positive schema version")
	}
	if err := r.CheckSchemaVersion(2); err != nil {
		t.Fatalf("current schema version should be accepted: %v", err)
	}
}

func TestNormalizeAcceptsAnyShapeWhenNoTypesRegistered(t *testing.T) {
	r := New(1)
	if _, err := r.Normalize("SOME_UNREGISTERED_TYPE"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNormalizeRejectsUnrecognizedTypeOnceRegistered(t *testing.T) {
	r := New(1)
	r.Register("ASSET_VERIFICATION_GRANTED", "ASSET_CLAIM_UPDATED")

	if _, err := r.Normalize("ASSET_VERIFICATION_GRANTED"); err != nil {
		t.Fatalf("unexpected error for recognized type: %v", err)
	}
	if _, err := r.Normalize("ASSET_MYSTERY_EVENT"); err == nil {
		t.Fatal("expected error for a shape-valid but unrecognized type")
	}
}

func TestNormalizeChecksRecognizedSetAfterAliasResolution(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aliases.yaml")
	content := []byte("aliases:\n  LEGACY_ASSET_VERIFIED: ASSET_VERIFICATION_GRANTED\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write aliases file: %v", err)
	}

	r := New(1)
	if err := r.LoadAliases(path); err != nil {
		t.Fatalf("load aliases: %v", err)
	}
	r.Register("ASSET_VERIFICATION_GRANTED")

	if _, err := r.Normalize("LEGACY_ASSET_VERIFIED"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadAliasesResolvesLegacyNames(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aliases.yaml")
	content := []byte("aliases:\n  LEGACY_ASSET_VERIFIED: ASSET_VERIFICATION_GRANTED\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write aliases file: %v", err)
	}

	r := New(1)
	if err := r.LoadAliases(path); err != nil {
		t.Fatalf("load aliases: %v", err)
	}

	got, err := r.Normalize("LEGACY_ASSET_VERIFIED")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ASSET_VERIFICATION_GRANTED" {
		t.Fatalf("got %q", got)
	}
}

func TestLoadAliasesNoopOnEmptyPath(t *testing.T) {
	r := New(1)
	if err := r.LoadAliases(""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadAliasesRejectsMalformedTarget(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aliases.yaml")
	content := []byte("aliases:\n  LEGACY_NAME: not-a-valid-event-type\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write aliases file: %v", err)
	}

	r := New(1)
	if err := r.LoadAliases(path); err == nil {
		t.Fatal("expected error for malformed alias target")
	}
}
