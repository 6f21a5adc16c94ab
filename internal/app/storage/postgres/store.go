package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/R3E-Network/valuation_engine/internal/app/domain/oracle"
	"github.com/R3E-Network/valuation_engine/internal/app/domain/valuation"
	"github.com/R3E-Network/valuation_engine/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.OracleStore = (*Store)(nil)
var _ storage.SubmissionStore = (*Store)(nil)
var _ storage.ValuationStore = (*Store)(nil)
var _ storage.ParamsStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// --- OracleStore ------------------------------------------------------------

func (s *Store) PutOracle(ctx context.Context, o oracle.Oracle) (oracle.Oracle, error) {
	if o.ApprovedAt.IsZero() {
		o.ApprovedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO oracle_registry (address, weight, approved_at)
		VALUES ($1, $2, $3)
	`, o.Address, o.Weight, o.ApprovedAt)
	if err != nil {
		return oracle.Oracle{}, err
	}
	return o, nil
}

func (s *Store) GetOracle(ctx context.Context, address string) (oracle.Oracle, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT address, weight, approved_at
		FROM oracle_registry
		WHERE address = $1
	`, address)

	var o oracle.Oracle
	if err := row.Scan(&o.Address, &o.Weight, &o.ApprovedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return oracle.Oracle{}, fmt.Errorf("oracle %s: %w", address, storage.ErrNotFound)
		}
		return oracle.Oracle{}, err
	}
	return o, nil
}

func (s *Store) DeleteOracle(ctx context.Context, address string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM oracle_registry WHERE address = $1
	`, address)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("oracle %s: %w", address, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) ListOracles(ctx context.Context) ([]oracle.Oracle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT address, weight, approved_at
		FROM oracle_registry
		ORDER BY address
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []oracle.Oracle
	for rows.Next() {
		var o oracle.Oracle
		if err := rows.Scan(&o.Address, &o.Weight, &o.ApprovedAt); err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	return result, rows.Err()
}

func (s *Store) CountOracles(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM oracle_registry`).Scan(&count)
	return count, err
}

func (s *Store) GetActivity(ctx context.Context, address string) (oracle.Activity, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT address, submission_count, last_active_at
		FROM oracle_activity
		WHERE address = $1
	`, address)

	var act oracle.Activity
	if err := row.Scan(&act.Address, &act.SubmissionCount, &act.LastActiveAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return oracle.Activity{Address: address}, nil
		}
		return oracle.Activity{}, err
	}
	return act, nil
}

// --- SubmissionStore --------------------------------------------------------

func (s *Store) UpsertSubmission(ctx context.Context, sub valuation.Submission) (valuation.Submission, error) {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return valuation.Submission{}, err
	}
	defer tx.Rollback()

	// The slot write and the counter bump must land together: the engine's
	// quota check reads the counter before accepting the next submission.
	err = tx.QueryRowContext(ctx, `
		INSERT INTO price_submissions (id, subject, oracle_address, price, submitted_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (subject, oracle_address)
		DO UPDATE SET price = EXCLUDED.price, submitted_at = EXCLUDED.submitted_at
		RETURNING id
	`, sub.ID, int64(sub.Subject), sub.Oracle, sub.Price, sub.SubmittedAt).Scan(&sub.ID)
	if err != nil {
		return valuation.Submission{}, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO oracle_activity (address, submission_count, last_active_at)
		VALUES ($1, 1, $2)
		ON CONFLICT (address)
		DO UPDATE SET submission_count = oracle_activity.submission_count + 1,
		              last_active_at = EXCLUDED.last_active_at
	`, sub.Oracle, sub.SubmittedAt)
	if err != nil {
		return valuation.Submission{}, err
	}

	if err := tx.Commit(); err != nil {
		return valuation.Submission{}, err
	}
	return sub, nil
}

func (s *Store) SubmissionsFor(ctx context.Context, subject uint64) ([]valuation.Submission, error) {
	// Joining against the registry applies the approval filter at read time;
	// rows from removed oracles stay stored but drop out of the result.
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.subject, s.oracle_address, s.price, s.submitted_at, r.weight
		FROM price_submissions s
		JOIN oracle_registry r ON r.address = s.oracle_address
		WHERE s.subject = $1
		ORDER BY s.oracle_address
	`, int64(subject))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []valuation.Submission
	for rows.Next() {
		var (
			sub  valuation.Submission
			subj int64
		)
		if err := rows.Scan(&sub.ID, &subj, &sub.Oracle, &sub.Price, &sub.SubmittedAt, &sub.Weight); err != nil {
			return nil, err
		}
		sub.Subject = uint64(subj)
		result = append(result, sub)
	}
	return result, rows.Err()
}

// --- ValuationStore ---------------------------------------------------------

func (s *Store) PutValuation(ctx context.Context, v valuation.Valuation) (valuation.Valuation, error) {
	if v.ComputedAt.IsZero() {
		v.ComputedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subject_valuations (subject, value, source_count, computed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (subject)
		DO UPDATE SET value = EXCLUDED.value,
		              source_count = EXCLUDED.source_count,
		              computed_at = EXCLUDED.computed_at
	`, int64(v.Subject), v.Value, v.SourceCount, v.ComputedAt)
	if err != nil {
		return valuation.Valuation{}, err
	}
	return v, nil
}

func (s *Store) GetValuation(ctx context.Context, subject uint64) (valuation.Valuation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT subject, value, source_count, computed_at
		FROM subject_valuations
		WHERE subject = $1
	`, int64(subject))

	var (
		v   valuation.Valuation
		sub int64
	)
	if err := row.Scan(&sub, &v.Value, &v.SourceCount, &v.ComputedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return valuation.Valuation{}, fmt.Errorf("valuation for subject %d: %w", subject, storage.ErrNotFound)
		}
		return valuation.Valuation{}, err
	}
	v.Subject = uint64(sub)
	return v, nil
}

// --- ParamsStore ------------------------------------------------------------

func (s *Store) GetParams(ctx context.Context) (valuation.Params, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT max_oracles, consensus_threshold, max_submissions_per_oracle,
		       staleness_window_secs, admin_address
		FROM engine_params
		WHERE id = 1
	`)

	var p valuation.Params
	err := row.Scan(&p.MaxOracles, &p.ConsensusThreshold, &p.MaxSubmissionsPerOracle,
		&p.StalenessWindowSecs, &p.AdminAddress)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return valuation.Params{}, fmt.Errorf("engine params: %w", storage.ErrNotFound)
		}
		return valuation.Params{}, err
	}
	return p, nil
}

func (s *Store) SetParams(ctx context.Context, p valuation.Params) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO engine_params (id, max_oracles, consensus_threshold,
		                           max_submissions_per_oracle, staleness_window_secs, admin_address)
		VALUES (1, $1, $2, $3, $4, $5)
		ON CONFLICT (id)
		DO UPDATE SET max_oracles = EXCLUDED.max_oracles,
		              consensus_threshold = EXCLUDED.consensus_threshold,
		              max_submissions_per_oracle = EXCLUDED.max_submissions_per_oracle,
		              staleness_window_secs = EXCLUDED.staleness_window_secs,
		              admin_address = EXCLUDED.admin_address
	`, p.MaxOracles, p.ConsensusThreshold, p.MaxSubmissionsPerOracle,
		p.StalenessWindowSecs, p.AdminAddress)
	return err
}
