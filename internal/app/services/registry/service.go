package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/R3E-Network/valuation_engine/internal/app/domain/oracle"
	"github.com/R3E-Network/valuation_engine/internal/app/domain/valuation"
	"github.com/R3E-Network/valuation_engine/internal/app/metrics"
	"github.com/R3E-Network/valuation_engine/internal/app/storage"
	"github.com/R3E-Network/valuation_engine/pkg/logger"
)

// Service manages the approved-oracle registry and the engine parameters.
// All mutating operations are gated on the administrative identity carried in
// the durable Params row.
type Service struct {
	oracles storage.OracleStore
	params  storage.ParamsStore
	log     *logger.Logger
}

// New constructs a registry service.
func New(oracles storage.OracleStore, params storage.ParamsStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("registry")
	}
	return &Service{
		oracles: oracles,
		params:  params,
		log:     log,
	}
}

// EnsureParams seeds the durable parameter row on first startup. An existing
// row wins over the supplied defaults so admin-applied changes survive
// restarts.
func (s *Service) EnsureParams(ctx context.Context, defaults valuation.Params) (valuation.Params, error) {
	existing, err := s.params.GetParams(ctx)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return valuation.Params{}, err
	}

	if err := defaults.Validate(); err != nil {
		return valuation.Params{}, fmt.Errorf("seed engine params: %w", err)
	}
	if strings.TrimSpace(defaults.AdminAddress) == "" {
		return valuation.Params{}, fmt.Errorf("seed engine params: admin_address is required")
	}
	if err := s.params.SetParams(ctx, defaults); err != nil {
		return valuation.Params{}, err
	}
	s.log.WithField("admin", defaults.AdminAddress).
		WithField("consensus_threshold", defaults.ConsensusThreshold).
		Info("engine params seeded")
	return defaults, nil
}

// AddOracle approves a new oracle with a fixed trust weight.
func (s *Service) AddOracle(ctx context.Context, caller, address string, weight int) (oracle.Oracle, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return oracle.Oracle{}, fmt.Errorf("oracle address is required")
	}

	p, err := s.engineParams(ctx)
	if err != nil {
		return oracle.Oracle{}, err
	}
	if caller != p.AdminAddress {
		return oracle.Oracle{}, valuation.ErrNotAuthorized
	}
	if weight < oracle.MinWeight || weight > oracle.MaxWeight {
		return oracle.Oracle{}, valuation.ErrInvalidWeight
	}

	if _, err := s.oracles.GetOracle(ctx, address); err == nil {
		return oracle.Oracle{}, valuation.ErrOracleAlreadyApproved
	} else if !errors.Is(err, storage.ErrNotFound) {
		return oracle.Oracle{}, err
	}

	count, err := s.oracles.CountOracles(ctx)
	if err != nil {
		return oracle.Oracle{}, err
	}
	if count >= p.MaxOracles {
		return oracle.Oracle{}, valuation.ErrMaxOraclesExceeded
	}

	o, err := s.oracles.PutOracle(ctx, oracle.Oracle{Address: address, Weight: weight})
	if err != nil {
		return oracle.Oracle{}, err
	}
	metrics.SetApprovedOracles(count + 1)

	s.log.WithField("oracle", o.Address).
		WithField("weight", o.Weight).
		Info("oracle approved")
	return o, nil
}

// RemoveOracle revokes an oracle's approval and deletes its weight. Historical
// submissions stay in the ledger; the read-time approval filter makes them
// invisible to future consensus computations.
func (s *Service) RemoveOracle(ctx context.Context, caller, address string) error {
	p, err := s.engineParams(ctx)
	if err != nil {
		return err
	}
	if caller != p.AdminAddress {
		return valuation.ErrNotAuthorized
	}

	if err := s.oracles.DeleteOracle(ctx, address); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return valuation.ErrOracleNotApproved
		}
		return err
	}

	if count, err := s.oracles.CountOracles(ctx); err == nil {
		metrics.SetApprovedOracles(count)
	}

	s.log.WithField("oracle", address).Info("oracle removed")
	return nil
}

// IsApproved reports whether the oracle is currently in the approved set.
func (s *Service) IsApproved(ctx context.Context, address string) (bool, error) {
	if _, err := s.oracles.GetOracle(ctx, address); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// WeightOf returns the stored weight. Absent oracles report an error rather
// than weight zero; zero is never a stored value.
func (s *Service) WeightOf(ctx context.Context, address string) (int, error) {
	o, err := s.oracles.GetOracle(ctx, address)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, valuation.ErrOracleNotApproved
		}
		return 0, err
	}
	return o.Weight, nil
}

// ActivityOf exposes an oracle's lifetime submission bookkeeping.
func (s *Service) ActivityOf(ctx context.Context, address string) (oracle.Activity, error) {
	return s.oracles.GetActivity(ctx, address)
}

// ListOracles returns the approved set.
func (s *Service) ListOracles(ctx context.Context) ([]oracle.Oracle, error) {
	return s.oracles.ListOracles(ctx)
}

// SetConsensusThreshold replaces the single threshold gating both the
// distinct-source count and the aggregate weight.
func (s *Service) SetConsensusThreshold(ctx context.Context, caller string, n int) error {
	p, err := s.engineParams(ctx)
	if err != nil {
		return err
	}
	if caller != p.AdminAddress {
		return valuation.ErrNotAuthorized
	}
	if n < valuation.MinConsensusThreshold || n > valuation.MaxConsensusThreshold {
		return valuation.ErrInvalidWeight
	}

	p.ConsensusThreshold = n
	if err := s.params.SetParams(ctx, p); err != nil {
		return err
	}

	s.log.WithField("consensus_threshold", n).Info("consensus threshold updated")
	return nil
}

// Params returns the current engine parameters.
func (s *Service) Params(ctx context.Context) (valuation.Params, error) {
	return s.engineParams(ctx)
}

func (s *Service) engineParams(ctx context.Context) (valuation.Params, error) {
	p, err := s.params.GetParams(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return valuation.Params{}, fmt.Errorf("engine params not seeded")
		}
		return valuation.Params{}, err
	}
	return p, nil
}
