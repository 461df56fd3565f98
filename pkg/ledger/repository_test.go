// Copyright 2025 Certen Protocol
//
// Repository tests require a real Postgres instance; set
// LEDGER_TEST_DB to a connection string to run them.

package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq" // PostgreSQL driver
)

var testDB *sql.DB

func TestMain(m *testing.M) {
	connStr := os.Getenv("LEDGER_TEST_DB")
	if connStr == "" {
		os.Exit(0)
	}

	var err error
	testDB, err = sql.Open("postgres", connStr)
	if err != nil {
		panic("failed to connect to test database: " + err.Error())
	}

	code := m.Run()
	testDB.Close()
	os.Exit(code)
}

func newTestEntry(t *testing.T, seq int64, source, idempotencyKey string) *Entry {
	t.Helper()
	return &Entry{
		ID:             uuid.New(),
		SequenceNumber: seq,
		Source:         source,
		EventType:      "ASSET_VERIFICATION_GRANTED",
		Subject:        Subject{AssetID: "asset-" + uuid.New().String()[:8]},
		Payload:        json.RawMessage(`{"claim_json":{"k":"v"}}`),
		PayloadHash:    "deadbeef",
		EntryHash:      "cafebabe" + uuid.New().String()[:8],
		Signatures:     map[string]string{"provider_sig": "sig"},
		SchemaVersion:  1,
		CommittedAt:    time.Now().UTC(),
		RulesetVersion: "v1.0.0",
		IdempotencyKey: sql.NullString{String: idempotencyKey, Valid: idempotencyKey != ""},
	}
}

func TestInsertAndByEventID(t *testing.T) {
	if testDB == nil {
		t.Skip("test database not configured")
	}
	repo := &Repository{}
	ctx := context.Background()
	tx, err := testDB.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	defer tx.Rollback()

	e := newTestEntry(t, 0, "test-source", "idem-1")
	inserted, err := repo.Insert(ctx, tx, e)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if !inserted {
		t.Fatal("expected insert to succeed")
	}

	got, err := repo.ByEventID(ctx, tx, e.ID)
	if err != nil {
		t.Fatalf("by event id: %v", err)
	}
	if got.EntryHash != e.EntryHash {
		t.Fatalf("got entry hash %q, want %q", got.EntryHash, e.EntryHash)
	}
}

func TestInsertDuplicateIdempotencyKeySkipped(t *testing.T) {
	if testDB == nil {
		t.Skip("test database not configured")
	}
	repo := &Repository{}
	ctx := context.Background()
	tx, err := testDB.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	defer tx.Rollback()

	first := newTestEntry(t, 0, "dup-source", "dup-key")
	if _, err := repo.Insert(ctx, tx, first); err != nil {
		t.Fatalf("insert first: %v", err)
	}

	second := newTestEntry(t, 1, "dup-source", "dup-key")
	inserted, err := repo.Insert(ctx, tx, second)
	if err != nil {
		t.Fatalf("insert second: %v", err)
	}
	if inserted {
		t.Fatal("expected second insert with same idempotency key to be skipped")
	}
}

func TestTipOnEmptyLedger(t *testing.T) {
	if testDB == nil {
		t.Skip("test database not configured")
	}
	repo := &Repository{}
	ctx := context.Background()
	tx, err := testDB.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, "DELETE FROM ledger_entries"); err != nil {
		t.Fatalf("clear table: %v", err)
	}

	_, err = repo.Tip(ctx, tx)
	if err != ErrEmptyLedger {
		t.Fatalf("got %v, want ErrEmptyLedger", err)
	}
}
