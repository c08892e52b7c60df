package model

import "time"

// Validator is a tracked Solana validator, keyed by its node identity pubkey.
// Fetch jobs upsert it; nothing deletes it.
type Validator struct {
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Name        *string   `json:"name,omitempty"`
	Commission  *float64  `json:"commission,omitempty"`
	Pubkey      string    `json:"pubkey"`
	VoteAccount string    `json:"vote_account"`
	Uptime      float64   `json:"uptime"`
	ID          int64     `json:"id"`
}
