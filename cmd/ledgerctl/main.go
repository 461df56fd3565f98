// ledgerctl is the operator CLI for the provenance ledger: schema
// migrations, ad hoc event ingestion from a file, derived-state
// rebuilds, and proof-view issuance/validation.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/proveniq/ledger/pkg/config"
	"github.com/proveniq/ledger/pkg/database"
	"github.com/proveniq/ledger/pkg/ingest"
	"github.com/proveniq/ledger/pkg/ledger"
	"github.com/proveniq/ledger/pkg/metrics"
	"github.com/proveniq/ledger/pkg/obslog"
	"github.com/proveniq/ledger/pkg/proofview"
	"github.com/proveniq/ledger/pkg/readmodel"
	"github.com/proveniq/ledger/pkg/reducer"
	"github.com/proveniq/ledger/pkg/registry"
	"github.com/proveniq/ledger/pkg/signer"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: ledgerctl <migrate|migrate-status|health|ingest|rebuild|issue-proof|validate-proof> [flags]")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Environment == "production" {
		err = cfg.Validate()
	} else {
		err = cfg.ValidateForDevelopment()
	}
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	switch args[0] {
	case "migrate":
		return runMigrate(cfg)
	case "migrate-status":
		return runMigrateStatus(cfg)
	case "health":
		return runHealth(cfg)
	case "ingest":
		return runIngest(cfg, args[1:])
	case "rebuild":
		return runRebuild(cfg)
	case "issue-proof":
		return runIssueProof(cfg, args[1:])
	case "validate-proof":
		return runValidateProof(cfg, args[1:])
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func newClient(cfg *config.Config) (*database.Client, error) {
	return database.NewClient(cfg)
}

func newRegistry(cfg *config.Config) (*registry.Registry, error) {
	reg := registry.New(cfg.CurrentSchemaVersion)
	if err := reg.LoadAliases(cfg.EventAliasesPath); err != nil {
		return nil, err
	}
	sem := reducer.DefaultSemantics()
	for _, group := range []map[string]struct{}{
		sem.VerificationGranted, sem.ClaimUpdated, sem.EvidenceAdded,
		sem.EvidenceRemoved, sem.EvidenceFrozen, sem.VerificationRevoked,
	} {
		for t := range group {
			reg.Register(t)
		}
	}
	return reg, nil
}

func runMigrate(cfg *config.Config) error {
	client, err := newClient(cfg)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer client.Close()

	if err := client.MigrateUp(context.Background()); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	fmt.Println("migrations applied")
	return nil
}

func runMigrateStatus(cfg *config.Config) error {
	client, err := newClient(cfg)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer client.Close()

	status, err := client.MigrationStatus(context.Background())
	if err != nil {
		return fmt.Errorf("migrate-status: %w", err)
	}
	for _, m := range status {
		fmt.Printf("%s applied=%v\n", m.Version, m.Applied)
	}
	return nil
}

func runHealth(cfg *config.Config) error {
	client, err := newClient(cfg)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer client.Close()

	status, err := client.Health(context.Background())
	if err != nil {
		return fmt.Errorf("health: %w", err)
	}
	fmt.Printf("healthy=%v open_connections=%d in_use=%d idle=%d version=%q\n",
		status.Healthy, status.OpenConnections, status.InUse, status.Idle, status.Version)
	if !status.Healthy {
		return fmt.Errorf("health: %s", status.Error)
	}
	return nil
}

// ingestFileRecord is the on-disk shape accepted by `ledgerctl ingest`.
type ingestFileRecord struct {
	EventID         string                 `json:"event_id"`
	Source          string                 `json:"source"`
	ProducerVersion string                 `json:"producer_version"`
	SchemaVersion   int                    `json:"schema_version"`
	EventType       string                 `json:"event_type"`
	IdempotencyKey  string                 `json:"idempotency_key"`
	AssetID         string                 `json:"asset_id"`
	Payload         map[string]interface{} `json:"payload"`
}

func runIngest(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	path := fs.String("file", "", "path to a JSON-encoded ingestion record")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return fmt.Errorf("ingest: -file is required")
	}

	data, err := os.ReadFile(*path)
	if err != nil {
		return fmt.Errorf("ingest: read file: %w", err)
	}
	var rec ingestFileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("ingest: parse file: %w", err)
	}

	eventID := uuid.New()
	if rec.EventID != "" {
		eventID, err = uuid.Parse(rec.EventID)
		if err != nil {
			return fmt.Errorf("ingest: parse event_id: %w", err)
		}
	}

	client, err := newClient(cfg)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer client.Close()

	reg, err := newRegistry(cfg)
	if err != nil {
		return fmt.Errorf("load registry: %w", err)
	}

	s, err := signer.NewEd25519Signer([]byte(cfg.SignerSeed))
	if err != nil {
		return fmt.Errorf("init signer: %w", err)
	}
	var coSigner signer.Signer
	if cfg.CoSignerSeed != "" {
		bls, err := signer.NewBLSCoSigner([]byte(cfg.CoSignerSeed))
		if err != nil {
			return fmt.Errorf("init co-signer: %w", err)
		}
		coSigner = bls
	}

	repo := ledger.NewRepository(client)
	log := obslog.New("ledgerctl")
	m := metrics.New()
	tx := ingest.New(client, repo, s, coSigner, reg, log, m)

	result, err := tx.Ingest(context.Background(), ledger.IngestInput{
		EventID:         eventID,
		Source:          rec.Source,
		ProducerVersion: rec.ProducerVersion,
		SchemaVersion:   rec.SchemaVersion,
		EventType:       rec.EventType,
		IdempotencyKey:  rec.IdempotencyKey,
		Subject:         ledger.Subject{AssetID: rec.AssetID},
		Payload:         rec.Payload,
	})
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	fmt.Printf("sequence_number=%d entry_hash=%s deduped=%v\n", result.SequenceNumber, result.EntryHash, result.Deduped)
	return nil
}

func runRebuild(cfg *config.Config) error {
	client, err := newClient(cfg)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer client.Close()

	repo := ledger.NewRepository(client)
	log := obslog.New("ledgerctl")
	m := metrics.New()
	rebuilder := readmodel.New(client, repo, reducer.DefaultSemantics(), log, m)

	ok, count, err := rebuilder.Rebuild(context.Background())
	if err != nil {
		return fmt.Errorf("rebuild: %w", err)
	}
	fmt.Printf("ok=%v rebuilt_assets=%d\n", ok, count)
	return nil
}

func runIssueProof(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("issue-proof", flag.ExitOnError)
	assetID := fs.String("asset-id", "", "asset id to issue a proof view for")
	eventIDStr := fs.String("verification-event-id", "", "the verification-granted event id backing this proof")
	ttl := fs.Duration("ttl", cfg.ProofDefaultTTL, "proof validity duration")
	createdBy := fs.String("created-by", "ledgerctl", "identifier of the issuing operator")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *assetID == "" || *eventIDStr == "" {
		return fmt.Errorf("issue-proof: -asset-id and -verification-event-id are required")
	}
	eventID, err := uuid.Parse(*eventIDStr)
	if err != nil {
		return fmt.Errorf("issue-proof: parse verification-event-id: %w", err)
	}

	client, err := newClient(cfg)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer client.Close()

	repo := ledger.NewRepository(client)
	entries, err := repo.ByAssetID(context.Background(), client.DB(), *assetID)
	if err != nil {
		return fmt.Errorf("issue-proof: load history: %w", err)
	}
	state := reducer.Reduce(*assetID, entries, reducer.DefaultSemantics())

	pvRepo := proofview.NewRepository(client)
	svc := proofview.NewService(pvRepo, metrics.New())
	pv, err := svc.Issue(context.Background(), eventID, state, *ttl, *createdBy, nil)
	if err != nil {
		return fmt.Errorf("issue-proof: %w", err)
	}

	fmt.Printf("proof_id=%s snapshot_hash=%s expires_at=%s\n", pv.ProofID, pv.SnapshotHash, pv.ExpiresAt.Format(time.RFC3339))
	return nil
}

func runValidateProof(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("validate-proof", flag.ExitOnError)
	proofIDStr := fs.String("proof-id", "", "proof id to validate")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *proofIDStr == "" {
		return fmt.Errorf("validate-proof: -proof-id is required")
	}
	proofID, err := uuid.Parse(*proofIDStr)
	if err != nil {
		return fmt.Errorf("validate-proof: parse proof-id: %w", err)
	}

	client, err := newClient(cfg)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer client.Close()

	pvRepo := proofview.NewRepository(client)
	pv, err := pvRepo.ByID(context.Background(), proofID)
	if err != nil {
		return fmt.Errorf("validate-proof: load proof: %w", err)
	}

	ledgerRepo := ledger.NewRepository(client)
	entries, err := ledgerRepo.ByAssetID(context.Background(), client.DB(), pv.AssetID)
	if err != nil {
		return fmt.Errorf("validate-proof: load history: %w", err)
	}
	state := reducer.Reduce(pv.AssetID, entries, reducer.DefaultSemantics())

	svc := proofview.NewService(pvRepo, metrics.New())
	ok, reason := svc.ValidateAndRecord(pv, time.Now().UTC(), state)
	fmt.Printf("ok=%v reason=%q\n", ok, reason)
	return nil
}
