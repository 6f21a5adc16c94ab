package consensus

import (
	"context"
	"sort"
	"time"

	"github.com/R3E-Network/valuation_engine/internal/app/domain/valuation"
)

// recompute gathers the live submissions for a subject, applies the quorum
// and weight gates, and commits the aggregated valuation. Both gates read the
// same configured threshold. On a gate failure the prior valuation is left
// untouched; it is never cleared or partially updated.
func (s *Service) recompute(ctx context.Context, subject uint64, p valuation.Params, now time.Time) error {
	subs, err := s.ledger.SubmissionsFor(ctx, subject)
	if err != nil {
		return err
	}

	if len(subs) < p.ConsensusThreshold {
		s.log.WithField("subject", subject).
			WithField("sources", len(subs)).
			WithField("threshold", p.ConsensusThreshold).
			Debug("consensus deferred: not enough distinct sources")
		return valuation.ErrInsufficientOracles
	}

	total := 0
	for _, sub := range subs {
		total += sub.Weight
	}
	if total < p.ConsensusThreshold {
		s.log.WithField("subject", subject).
			WithField("total_weight", total).
			WithField("threshold", p.ConsensusThreshold).
			Debug("consensus deferred: aggregate weight below threshold")
		return valuation.ErrConsensusFailed
	}

	value := medianPrice(subs)
	v, err := s.valuations.PutValuation(ctx, valuation.Valuation{
		Subject:     subject,
		Value:       value,
		SourceCount: len(subs),
		ComputedAt:  now,
	})
	if err != nil {
		return err
	}

	s.log.WithField("subject", subject).
		WithField("value", v.Value).
		WithField("sources", v.SourceCount).
		Info("valuation committed")
	return nil
}

// medianPrice returns the element at index floor(n/2) of the ascending price
// set: the upper-middle element on even n, never an interpolated pair. The
// deterministic pick keeps the aggregate stable under re-ordering and denies
// any single source control over the published value.
func medianPrice(subs []valuation.Submission) int64 {
	prices := make([]int64, len(subs))
	for i, sub := range subs {
		prices[i] = sub.Price
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i] < prices[j] })
	return prices[len(prices)/2]
}
