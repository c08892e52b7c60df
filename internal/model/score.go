package model

import "time"

// Score is one trust value for one validator within one scoring run. Immutable.
type Score struct {
	CreatedAt    time.Time `json:"created_at"`
	Value        float64   `json:"value"`
	ID           int64     `json:"id"`
	ValidatorID  int64     `json:"validator_id"`
	ScoringRunID int64     `json:"scoring_run_id"`
}
