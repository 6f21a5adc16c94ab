package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/R3E-Network/valuation_engine/internal/app/domain/oracle"
	"github.com/R3E-Network/valuation_engine/internal/app/domain/valuation"
	"github.com/R3E-Network/valuation_engine/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
type Store struct {
	mu          sync.RWMutex
	nextID      int64
	oracles     map[string]oracle.Oracle
	activities  map[string]oracle.Activity
	submissions map[uint64]map[string]valuation.Submission
	valuations  map[uint64]valuation.Valuation
	params      *valuation.Params
}

var _ storage.OracleStore = (*Store)(nil)
var _ storage.SubmissionStore = (*Store)(nil)
var _ storage.ValuationStore = (*Store)(nil)
var _ storage.ParamsStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:      1,
		oracles:     make(map[string]oracle.Oracle),
		activities:  make(map[string]oracle.Activity),
		submissions: make(map[uint64]map[string]valuation.Submission),
		valuations:  make(map[uint64]valuation.Valuation),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

// OracleStore implementation --------------------------------------------------

func (s *Store) PutOracle(_ context.Context, o oracle.Oracle) (oracle.Oracle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.oracles[o.Address]; exists {
		return oracle.Oracle{}, fmt.Errorf("oracle %s already registered", o.Address)
	}
	if o.ApprovedAt.IsZero() {
		o.ApprovedAt = time.Now().UTC()
	}
	s.oracles[o.Address] = o
	return o, nil
}

func (s *Store) GetOracle(_ context.Context, address string) (oracle.Oracle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.oracles[address]
	if !ok {
		return oracle.Oracle{}, fmt.Errorf("oracle %s: %w", address, storage.ErrNotFound)
	}
	return o, nil
}

func (s *Store) DeleteOracle(_ context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.oracles[address]; !ok {
		return fmt.Errorf("oracle %s: %w", address, storage.ErrNotFound)
	}
	delete(s.oracles, address)
	return nil
}

func (s *Store) ListOracles(_ context.Context) ([]oracle.Oracle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]oracle.Oracle, 0, len(s.oracles))
	for _, o := range s.oracles {
		result = append(result, o)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Address < result[j].Address })
	return result, nil
}

func (s *Store) CountOracles(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.oracles), nil
}

func (s *Store) GetActivity(_ context.Context, address string) (oracle.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	act, ok := s.activities[address]
	if !ok {
		// An oracle with no accepted submissions has a zero counter.
		return oracle.Activity{Address: address}, nil
	}
	return act, nil
}

// SubmissionStore implementation ----------------------------------------------

func (s *Store) UpsertSubmission(_ context.Context, sub valuation.Submission) (valuation.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sub.ID == "" {
		sub.ID = s.nextIDLocked()
	}
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = time.Now().UTC()
	}

	slots, ok := s.submissions[sub.Subject]
	if !ok {
		slots = make(map[string]valuation.Submission)
		s.submissions[sub.Subject] = slots
	}
	if prior, exists := slots[sub.Oracle]; exists {
		sub.ID = prior.ID
	}
	slots[sub.Oracle] = sub

	act := s.activities[sub.Oracle]
	act.Address = sub.Oracle
	act.SubmissionCount++
	act.LastActiveAt = sub.SubmittedAt
	s.activities[sub.Oracle] = act

	return sub, nil
}

func (s *Store) SubmissionsFor(_ context.Context, subject uint64) ([]valuation.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slots := s.submissions[subject]
	result := make([]valuation.Submission, 0, len(slots))
	for addr, sub := range slots {
		o, approved := s.oracles[addr]
		if !approved {
			continue
		}
		sub.Weight = o.Weight
		result = append(result, sub)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Oracle < result[j].Oracle })
	return result, nil
}

// ValuationStore implementation -----------------------------------------------

func (s *Store) PutValuation(_ context.Context, v valuation.Valuation) (valuation.Valuation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v.ComputedAt.IsZero() {
		v.ComputedAt = time.Now().UTC()
	}
	s.valuations[v.Subject] = v
	return v, nil
}

func (s *Store) GetValuation(_ context.Context, subject uint64) (valuation.Valuation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.valuations[subject]
	if !ok {
		return valuation.Valuation{}, fmt.Errorf("valuation for subject %d: %w", subject, storage.ErrNotFound)
	}
	return v, nil
}

// ParamsStore implementation --------------------------------------------------

func (s *Store) GetParams(_ context.Context) (valuation.Params, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.params == nil {
		return valuation.Params{}, fmt.Errorf("engine params: %w", storage.ErrNotFound)
	}
	return *s.params, nil
}

func (s *Store) SetParams(_ context.Context, p valuation.Params) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := p
	s.params = &copied
	return nil
}
