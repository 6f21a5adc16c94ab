package consensus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/R3E-Network/valuation_engine/internal/app/domain/valuation"
	"github.com/R3E-Network/valuation_engine/internal/app/metrics"
	"github.com/R3E-Network/valuation_engine/internal/app/storage"
	"github.com/R3E-Network/valuation_engine/pkg/logger"
)

// Service is the single write entry point of the engine. A submission is
// validated, recorded in the ledger, and immediately followed by a consensus
// recomputation for its subject. The service holds no persistent state of its
// own; everything durable lives in the stores.
type Service struct {
	oracles    storage.OracleStore
	ledger     storage.SubmissionStore
	valuations storage.ValuationStore
	params     storage.ParamsStore
	log        *logger.Logger

	now func() time.Time

	// Submissions for the same subject must not interleave their
	// record-then-recompute sequence; different subjects may proceed
	// independently.
	mu           sync.Mutex
	subjectLocks map[uint64]*sync.Mutex
}

// New constructs a consensus service.
func New(oracles storage.OracleStore, ledger storage.SubmissionStore, valuations storage.ValuationStore, params storage.ParamsStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("consensus")
	}
	return &Service{
		oracles:      oracles,
		ledger:       ledger,
		valuations:   valuations,
		params:       params,
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
		subjectLocks: make(map[uint64]*sync.Mutex),
	}
}

// SubmitDataFeed validates and records a price observation from an oracle,
// then recomputes consensus for the subject. The success value is the price
// the caller submitted, not the computed median; the aggregate is read
// separately through GetValuation. Validation failures leave no state behind.
// A consensus failure after recording keeps the submission in the ledger and
// only skips the valuation write.
func (s *Service) SubmitDataFeed(ctx context.Context, caller string, subject uint64, price int64, oracleAddr string) (int64, error) {
	start := time.Now()

	accepted, committed, err := s.submit(ctx, caller, subject, price, oracleAddr)
	metrics.RecordSubmission(outcomeLabel(err), time.Since(start), committed)
	if err != nil {
		return 0, err
	}
	return accepted, nil
}

func (s *Service) submit(ctx context.Context, caller string, subject uint64, price int64, oracleAddr string) (int64, bool, error) {
	if caller != oracleAddr {
		return 0, false, valuation.ErrNotOracle
	}
	if subject == 0 {
		return 0, false, valuation.ErrInvalidSubjectID
	}
	if price <= 0 {
		return 0, false, valuation.ErrInvalidPrice
	}

	now := s.now()
	if now.IsZero() || now.Unix() <= 0 {
		return 0, false, valuation.ErrInvalidTimestamp
	}

	o, err := s.oracles.GetOracle(ctx, oracleAddr)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, false, valuation.ErrOracleNotApproved
		}
		return 0, false, err
	}

	p, err := s.params.GetParams(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, false, fmt.Errorf("engine params not seeded")
		}
		return 0, false, err
	}

	// The deployed contract compares the clock against itself shifted by the
	// window, so this gate can never fire. Kept for behavioural parity.
	if now.Unix() < now.Unix()-p.StalenessWindowSecs {
		return 0, false, valuation.ErrStaleData
	}

	act, err := s.oracles.GetActivity(ctx, oracleAddr)
	if err != nil {
		return 0, false, err
	}
	if act.SubmissionCount >= p.MaxSubmissionsPerOracle {
		return 0, false, valuation.ErrMaxSubmissionsExceeded
	}

	lock := s.subjectLock(subject)
	lock.Lock()
	defer lock.Unlock()

	if _, err := s.ledger.UpsertSubmission(ctx, valuation.Submission{
		Subject:     subject,
		Oracle:      oracleAddr,
		Price:       price,
		Weight:      o.Weight,
		SubmittedAt: now,
	}); err != nil {
		return 0, false, err
	}

	if err := s.recompute(ctx, subject, p, now); err != nil {
		return 0, false, err
	}
	return price, true, nil
}

// GetValuation returns the committed consensus result for a subject. Repeated
// reads without intervening submissions return the identical record.
func (s *Service) GetValuation(ctx context.Context, subject uint64) (valuation.Valuation, error) {
	v, err := s.valuations.GetValuation(ctx, subject)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return valuation.Valuation{}, valuation.ErrValuationNotFound
		}
		return valuation.Valuation{}, err
	}
	return v, nil
}

func (s *Service) subjectLock(subject uint64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.subjectLocks[subject]
	if !ok {
		lock = &sync.Mutex{}
		s.subjectLocks[subject] = lock
	}
	return lock
}

func outcomeLabel(err error) string {
	if err == nil {
		return "committed"
	}
	var coded *valuation.Error
	if errors.As(err, &coded) {
		return fmt.Sprintf("err_%d", coded.Code)
	}
	return "error"
}
