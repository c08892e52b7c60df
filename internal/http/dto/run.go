package dto

import (
	"time"

	"github.com/SeunOnTech/sol-stake-backend/internal/model"
	"github.com/SeunOnTech/sol-stake-backend/internal/service"
)

type RunResponse struct {
	ID         int64      `json:"id,string"`
	Status     string     `json:"status"`
	Attempted  int32      `json:"attempted"`
	Succeeded  int32      `json:"succeeded"`
	Failed     int32      `json:"failed"`
	Error      *string    `json:"error,omitempty"`
	RunAt      time.Time  `json:"run_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

type RunDetailResponse struct {
	RunResponse
	ScoreCount int64 `json:"score_count"`
}

func ToRunResponse(r *model.ScoringRun) RunResponse {
	return RunResponse{
		ID:         r.ID,
		Status:     string(r.Status),
		Attempted:  r.Attempted,
		Succeeded:  r.Succeeded,
		Failed:     r.Failed,
		Error:      r.Error,
		RunAt:      r.RunAt,
		FinishedAt: r.FinishedAt,
	}
}

func ToRunResponses(runs []model.ScoringRun) []RunResponse {
	out := make([]RunResponse, 0, len(runs))
	for i := range runs {
		out = append(out, ToRunResponse(&runs[i]))
	}
	return out
}

func ToRunDetailResponse(d *service.RunDetail) *RunDetailResponse {
	return &RunDetailResponse{RunResponse: ToRunResponse(&d.Run), ScoreCount: d.ScoreCount}
}
