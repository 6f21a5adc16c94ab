package storage

import (
	"context"
	"errors"

	"github.com/R3E-Network/valuation_engine/internal/app/domain/oracle"
	"github.com/R3E-Network/valuation_engine/internal/app/domain/valuation"
)

// ErrNotFound is returned by every store when the requested record does not
// exist. Implementations wrap it so callers can discriminate with errors.Is.
var ErrNotFound = errors.New("record not found")

// OracleStore persists the approved-oracle registry and per-oracle activity
// counters. Approval state lives only here; submission history is keyed
// independently so removing an oracle never requires cascading deletes.
type OracleStore interface {
	PutOracle(ctx context.Context, o oracle.Oracle) (oracle.Oracle, error)
	GetOracle(ctx context.Context, address string) (oracle.Oracle, error)
	DeleteOracle(ctx context.Context, address string) error
	ListOracles(ctx context.Context) ([]oracle.Oracle, error)
	CountOracles(ctx context.Context) (int, error)

	GetActivity(ctx context.Context, address string) (oracle.Activity, error)
}

// SubmissionStore persists the per-(subject, oracle) submission ledger.
type SubmissionStore interface {
	// UpsertSubmission overwrites the (subject, oracle) slot and increments
	// the oracle's activity counter in the same atomic step.
	UpsertSubmission(ctx context.Context, sub valuation.Submission) (valuation.Submission, error)

	// SubmissionsFor returns the live submissions for a subject, filtered to
	// oracles approved at query time and carrying their current weights.
	// Rows from removed oracles remain stored but are not returned.
	SubmissionsFor(ctx context.Context, subject uint64) ([]valuation.Submission, error)
}

// ValuationStore persists the published consensus results.
type ValuationStore interface {
	PutValuation(ctx context.Context, v valuation.Valuation) (valuation.Valuation, error)
	GetValuation(ctx context.Context, subject uint64) (valuation.Valuation, error)
}

// ParamsStore persists the engine-wide parameter row.
type ParamsStore interface {
	// GetParams returns ErrNotFound when no row has been seeded yet.
	GetParams(ctx context.Context) (valuation.Params, error)
	SetParams(ctx context.Context, p valuation.Params) error
}
