package oracle

import "time"

// Weight bounds accepted at approval time. A stored weight is always inside
// this range; zero is never a valid stored value, so "weight 0" is reliably
// distinguishable from "not approved".
const (
	MinWeight = 1
	MaxWeight = 100
)

// Oracle is an approved data source identity and its trust weight. The weight
// is fixed at approval time and only disappears when the oracle is removed.
type Oracle struct {
	Address    string    `json:"address"`
	Weight     int       `json:"weight"`
	ApprovedAt time.Time `json:"approved_at"`
}

// Activity tracks per-oracle submission bookkeeping across all subjects
// combined. The counter is a lifetime total: it is incremented on every
// accepted submission and never decremented or reset.
type Activity struct {
	Address         string    `json:"address"`
	SubmissionCount int64     `json:"submission_count"`
	LastActiveAt    time.Time `json:"last_active_at"`
}
