package dto

import (
	"time"

	"github.com/SeunOnTech/sol-stake-backend/internal/model"
	"github.com/SeunOnTech/sol-stake-backend/internal/service"
)

type PageQuery struct {
	Limit  int32 `form:"limit" binding:"omitempty,min=1,max=200"`
	Offset int32 `form:"offset" binding:"omitempty,min=0"`
}

type ValidatorResponse struct {
	ID          int64     `json:"id,string"`
	Pubkey      string    `json:"pubkey"`
	VoteAccount string    `json:"vote_account"`
	Name        *string   `json:"name,omitempty"`
	Commission  *float64  `json:"commission,omitempty"`
	Uptime      float64   `json:"uptime"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ValidatorListResponse struct {
	Validators []ValidatorResponse `json:"validators"`
	Total      int64               `json:"total"`
	Limit      int32               `json:"limit"`
	Offset     int32               `json:"offset"`
}

type ValidatorDetailResponse struct {
	ValidatorResponse
	LatestScore *ScoreResponse `json:"latest_score,omitempty"`
}

type ScoreResponse struct {
	ID           int64     `json:"id,string"`
	ValidatorID  int64     `json:"validator_id,string"`
	ScoringRunID int64     `json:"scoring_run_id,string"`
	Value        float64   `json:"value"`
	CreatedAt    time.Time `json:"created_at"`
}

func ToValidatorResponse(v *model.Validator) ValidatorResponse {
	return ValidatorResponse{
		ID:          v.ID,
		Pubkey:      v.Pubkey,
		VoteAccount: v.VoteAccount,
		Name:        v.Name,
		Commission:  v.Commission,
		Uptime:      v.Uptime,
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
	}
}

func ToValidatorListResponse(p *service.ValidatorPage) *ValidatorListResponse {
	out := &ValidatorListResponse{
		Validators: make([]ValidatorResponse, 0, len(p.Validators)),
		Total:      p.Total,
		Limit:      p.Limit,
		Offset:     p.Offset,
	}
	for i := range p.Validators {
		out.Validators = append(out.Validators, ToValidatorResponse(&p.Validators[i]))
	}
	return out
}

func ToValidatorDetailResponse(d *service.ValidatorDetail) *ValidatorDetailResponse {
	out := &ValidatorDetailResponse{ValidatorResponse: ToValidatorResponse(&d.Validator)}
	if d.LatestScore != nil {
		s := ToScoreResponse(d.LatestScore)
		out.LatestScore = &s
	}
	return out
}

func ToScoreResponse(s *model.Score) ScoreResponse {
	return ScoreResponse{
		ID:           s.ID,
		ValidatorID:  s.ValidatorID,
		ScoringRunID: s.ScoringRunID,
		Value:        s.Value,
		CreatedAt:    s.CreatedAt,
	}
}

func ToScoreResponses(scores []model.Score) []ScoreResponse {
	out := make([]ScoreResponse, 0, len(scores))
	for i := range scores {
		out = append(out, ToScoreResponse(&scores[i]))
	}
	return out
}
