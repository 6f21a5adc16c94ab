package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"

	_ "github.com/lib/pq"

	"github.com/R3E-Network/valuation_engine/internal/app/domain/oracle"
	"github.com/R3E-Network/valuation_engine/internal/app/domain/valuation"
	"github.com/R3E-Network/valuation_engine/internal/app/storage"
	"github.com/R3E-Network/valuation_engine/internal/platform/migrations"
)

func TestStoreIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := migrations.Apply(ctx, db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	store := New(db)

	p := valuation.DefaultParams()
	p.AdminAddress = "admin"
	if err := store.SetParams(ctx, p); err != nil {
		t.Fatalf("set params: %v", err)
	}
	got, err := store.GetParams(ctx)
	if err != nil {
		t.Fatalf("get params: %v", err)
	}
	if got != p {
		t.Fatalf("params roundtrip mismatch: %#v vs %#v", got, p)
	}

	suffix := fmt.Sprintf("%d", os.Getpid())
	addrA := "it-oracle-a-" + suffix
	addrB := "it-oracle-b-" + suffix
	t.Cleanup(func() {
		db.Exec(`DELETE FROM price_submissions WHERE oracle_address IN ($1, $2)`, addrA, addrB)
		db.Exec(`DELETE FROM oracle_activity WHERE address IN ($1, $2)`, addrA, addrB)
		db.Exec(`DELETE FROM oracle_registry WHERE address IN ($1, $2)`, addrA, addrB)
	})

	if _, err := store.PutOracle(ctx, oracle.Oracle{Address: addrA, Weight: 50}); err != nil {
		t.Fatalf("put oracle a: %v", err)
	}
	if _, err := store.PutOracle(ctx, oracle.Oracle{Address: addrB, Weight: 30}); err != nil {
		t.Fatalf("put oracle b: %v", err)
	}

	const subject = uint64(987654)
	first, err := store.UpsertSubmission(ctx, valuation.Submission{Subject: subject, Oracle: addrA, Price: 100})
	if err != nil {
		t.Fatalf("upsert submission: %v", err)
	}
	second, err := store.UpsertSubmission(ctx, valuation.Submission{Subject: subject, Oracle: addrA, Price: 200})
	if err != nil {
		t.Fatalf("overwrite submission: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("overwrite must keep the slot id: %q vs %q", second.ID, first.ID)
	}
	if _, err := store.UpsertSubmission(ctx, valuation.Submission{Subject: subject, Oracle: addrB, Price: 300}); err != nil {
		t.Fatalf("second oracle submission: %v", err)
	}

	act, err := store.GetActivity(ctx, addrA)
	if err != nil {
		t.Fatalf("get activity: %v", err)
	}
	if act.SubmissionCount != 2 {
		t.Fatalf("expected counter 2, got %d", act.SubmissionCount)
	}

	subs, err := store.SubmissionsFor(ctx, subject)
	if err != nil {
		t.Fatalf("submissions for: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("expected 2 submissions, got %d", len(subs))
	}
	if subs[0].Weight != 50 || subs[1].Weight != 30 {
		t.Fatalf("expected registry weights, got %#v", subs)
	}

	if err := store.DeleteOracle(ctx, addrB); err != nil {
		t.Fatalf("delete oracle: %v", err)
	}
	subs, err = store.SubmissionsFor(ctx, subject)
	if err != nil {
		t.Fatalf("submissions for after delete: %v", err)
	}
	if len(subs) != 1 || subs[0].Oracle != addrA {
		t.Fatalf("expected removed oracle filtered by the join, got %#v", subs)
	}

	if _, err := store.PutValuation(ctx, valuation.Valuation{Subject: subject, Value: 200, SourceCount: 2}); err != nil {
		t.Fatalf("put valuation: %v", err)
	}
	v, err := store.GetValuation(ctx, subject)
	if err != nil {
		t.Fatalf("get valuation: %v", err)
	}
	if v.Value != 200 || v.SourceCount != 2 {
		t.Fatalf("unexpected valuation: %#v", v)
	}

	if _, err := store.GetOracle(ctx, "never-registered"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
