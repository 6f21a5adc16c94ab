package valuation

import (
	"fmt"
	"time"
)

// Submission is the latest price observation an oracle holds for a subject.
// There is at most one live submission per (subject, oracle) pair; a newer
// submission from the same oracle overwrites the previous one.
type Submission struct {
	ID          string    `json:"id"`
	Subject     uint64    `json:"subject"`
	Oracle      string    `json:"oracle"`
	Price       int64     `json:"price"`
	Weight      int       `json:"weight"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Valuation is the published consensus result for a subject. It is written
// only when both consensus gates pass and persists until overwritten by a
// later successful computation.
type Valuation struct {
	Subject     uint64    `json:"subject"`
	Value       int64     `json:"value"`
	SourceCount int       `json:"source_count"`
	ComputedAt  time.Time `json:"computed_at"`
}

// Params holds the engine-wide configuration. AdminAddress is fixed at
// initialization; ConsensusThreshold is the only field mutable afterwards,
// through the admin-gated setter. The threshold gates both the distinct-source
// count and the aggregate weight — one configured number read twice.
type Params struct {
	MaxOracles              int    `json:"max_oracles"`
	ConsensusThreshold      int    `json:"consensus_threshold"`
	MaxSubmissionsPerOracle int64  `json:"max_submissions_per_oracle"`
	StalenessWindowSecs     int64  `json:"staleness_window_secs"`
	AdminAddress            string `json:"admin_address"`
}

// Threshold bounds accepted by SetConsensusThreshold, kept small relative to
// MaxOracles so quorum requirements stay satisfiable.
const (
	MinConsensusThreshold = 1
	MaxConsensusThreshold = 10
)

// DefaultParams mirrors the parameters the contract shipped with.
func DefaultParams() Params {
	return Params{
		MaxOracles:              10,
		ConsensusThreshold:      3,
		MaxSubmissionsPerOracle: 5,
		StalenessWindowSecs:     3600,
	}
}

// Validate checks the parameter ranges before seeding or replacing the
// durable Params row.
func (p Params) Validate() error {
	if p.MaxOracles <= 0 {
		return fmt.Errorf("max_oracles must be positive, got %d", p.MaxOracles)
	}
	if p.ConsensusThreshold < MinConsensusThreshold || p.ConsensusThreshold > MaxConsensusThreshold {
		return fmt.Errorf("consensus_threshold must be within [%d,%d], got %d",
			MinConsensusThreshold, MaxConsensusThreshold, p.ConsensusThreshold)
	}
	if p.MaxSubmissionsPerOracle <= 0 {
		return fmt.Errorf("max_submissions_per_oracle must be positive, got %d", p.MaxSubmissionsPerOracle)
	}
	if p.StalenessWindowSecs <= 0 {
		return fmt.Errorf("staleness_window_secs must be positive, got %d", p.StalenessWindowSecs)
	}
	return nil
}
