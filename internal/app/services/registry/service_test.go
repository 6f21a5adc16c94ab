package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/R3E-Network/valuation_engine/internal/app/domain/valuation"
	"github.com/R3E-Network/valuation_engine/internal/app/storage/memory"
	"github.com/R3E-Network/valuation_engine/pkg/logger"
)

func seededService(t *testing.T, params valuation.Params) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	svc := New(store, store, nil)
	if _, err := svc.EnsureParams(context.Background(), params); err != nil {
		t.Fatalf("seed params: %v", err)
	}
	return svc, store
}

func adminParams() valuation.Params {
	p := valuation.DefaultParams()
	p.AdminAddress = "admin"
	return p
}

func TestService_AddOracle(t *testing.T) {
	svc, _ := seededService(t, adminParams())
	ctx := context.Background()

	o, err := svc.AddOracle(ctx, "admin", "oracle-a", 50)
	if err != nil {
		t.Fatalf("add oracle: %v", err)
	}
	if o.Address != "oracle-a" || o.Weight != 50 {
		t.Fatalf("unexpected oracle: %#v", o)
	}

	if _, err := svc.AddOracle(ctx, "not-admin", "oracle-b", 50); !errors.Is(err, valuation.ErrNotAuthorized) {
		t.Fatalf("expected authorization failure, got %v", err)
	}
	if _, err := svc.AddOracle(ctx, "admin", "oracle-b", 0); !errors.Is(err, valuation.ErrInvalidWeight) {
		t.Fatalf("expected invalid weight for 0, got %v", err)
	}
	if _, err := svc.AddOracle(ctx, "admin", "oracle-b", 101); !errors.Is(err, valuation.ErrInvalidWeight) {
		t.Fatalf("expected invalid weight for 101, got %v", err)
	}
	if _, err := svc.AddOracle(ctx, "admin", "", 50); err == nil {
		t.Fatalf("expected error for empty address")
	}

	// Re-approval is rejected and the stored weight is untouched.
	if _, err := svc.AddOracle(ctx, "admin", "oracle-a", 10); !errors.Is(err, valuation.ErrOracleAlreadyApproved) {
		t.Fatalf("expected already approved, got %v", err)
	}
	weight, err := svc.WeightOf(ctx, "oracle-a")
	if err != nil {
		t.Fatalf("weight of: %v", err)
	}
	if weight != 50 {
		t.Fatalf("duplicate add must not change weight, got %d", weight)
	}
}

func TestService_RegistryFull(t *testing.T) {
	params := adminParams()
	params.MaxOracles = 2
	svc, _ := seededService(t, params)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := svc.AddOracle(ctx, "admin", fmt.Sprintf("oracle-%d", i), 10); err != nil {
			t.Fatalf("add oracle %d: %v", i, err)
		}
	}
	if _, err := svc.AddOracle(ctx, "admin", "one-too-many", 10); !errors.Is(err, valuation.ErrMaxOraclesExceeded) {
		t.Fatalf("expected registry full, got %v", err)
	}

	// Removing one frees a slot.
	if err := svc.RemoveOracle(ctx, "admin", "oracle-0"); err != nil {
		t.Fatalf("remove oracle: %v", err)
	}
	if _, err := svc.AddOracle(ctx, "admin", "oracle-2", 10); err != nil {
		t.Fatalf("add after removal: %v", err)
	}
}

func TestService_RemoveOracle(t *testing.T) {
	svc, _ := seededService(t, adminParams())
	ctx := context.Background()

	if _, err := svc.AddOracle(ctx, "admin", "oracle-a", 50); err != nil {
		t.Fatalf("add oracle: %v", err)
	}

	if err := svc.RemoveOracle(ctx, "not-admin", "oracle-a"); !errors.Is(err, valuation.ErrNotAuthorized) {
		t.Fatalf("expected authorization failure, got %v", err)
	}
	if err := svc.RemoveOracle(ctx, "admin", "unknown"); !errors.Is(err, valuation.ErrOracleNotApproved) {
		t.Fatalf("expected not approved, got %v", err)
	}
	if err := svc.RemoveOracle(ctx, "admin", "oracle-a"); err != nil {
		t.Fatalf("remove oracle: %v", err)
	}

	approved, err := svc.IsApproved(ctx, "oracle-a")
	if err != nil {
		t.Fatalf("is approved: %v", err)
	}
	if approved {
		t.Fatalf("oracle still approved after removal")
	}
	if _, err := svc.WeightOf(ctx, "oracle-a"); !errors.Is(err, valuation.ErrOracleNotApproved) {
		t.Fatalf("expected weight lookup to fail after removal, got %v", err)
	}
}

func TestService_ActivityOfUnknownOracle(t *testing.T) {
	svc, _ := seededService(t, adminParams())

	act, err := svc.ActivityOf(context.Background(), "never-submitted")
	if err != nil {
		t.Fatalf("activity of: %v", err)
	}
	if act.SubmissionCount != 0 {
		t.Fatalf("expected zero counter, got %d", act.SubmissionCount)
	}
}

func TestService_SetConsensusThreshold(t *testing.T) {
	svc, _ := seededService(t, adminParams())
	ctx := context.Background()

	if err := svc.SetConsensusThreshold(ctx, "not-admin", 5); !errors.Is(err, valuation.ErrNotAuthorized) {
		t.Fatalf("expected authorization failure, got %v", err)
	}
	if err := svc.SetConsensusThreshold(ctx, "admin", 0); !errors.Is(err, valuation.ErrInvalidWeight) {
		t.Fatalf("expected rejection for 0, got %v", err)
	}
	if err := svc.SetConsensusThreshold(ctx, "admin", 11); !errors.Is(err, valuation.ErrInvalidWeight) {
		t.Fatalf("expected rejection for 11, got %v", err)
	}

	if err := svc.SetConsensusThreshold(ctx, "admin", 5); err != nil {
		t.Fatalf("set threshold: %v", err)
	}
	p, err := svc.Params(ctx)
	if err != nil {
		t.Fatalf("params: %v", err)
	}
	if p.ConsensusThreshold != 5 {
		t.Fatalf("threshold not persisted, got %d", p.ConsensusThreshold)
	}
	if p.AdminAddress != "admin" {
		t.Fatalf("admin address must survive threshold updates, got %q", p.AdminAddress)
	}
}

func TestService_EnsureParams(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)
	ctx := context.Background()

	if _, err := svc.EnsureParams(ctx, valuation.DefaultParams()); err == nil {
		t.Fatalf("expected seeding without admin address to fail")
	}

	first := adminParams()
	seeded, err := svc.EnsureParams(ctx, first)
	if err != nil {
		t.Fatalf("seed params: %v", err)
	}
	if seeded != first {
		t.Fatalf("unexpected seeded params: %#v", seeded)
	}

	// An existing row wins over later defaults.
	second := adminParams()
	second.ConsensusThreshold = 7
	kept, err := svc.EnsureParams(ctx, second)
	if err != nil {
		t.Fatalf("reseed params: %v", err)
	}
	if kept.ConsensusThreshold != first.ConsensusThreshold {
		t.Fatalf("existing params overwritten: %#v", kept)
	}
}

func ExampleService_AddOracle() {
	store := memory.New()
	log := logger.NewDefault("example-registry")
	log.SetOutput(io.Discard)
	svc := New(store, store, log)

	params := valuation.DefaultParams()
	params.AdminAddress = "admin"
	svc.EnsureParams(context.Background(), params)

	o, _ := svc.AddOracle(context.Background(), "admin", "oracle-a", 50)
	fmt.Println(o.Address, o.Weight)
	// Output:
	// oracle-a 50
}
