// Package scheduler keeps the repeatable fetch and score registrations and drives
// them on their intervals.
package scheduler

import (
	"fmt"
	"time"

	"github.com/SeunOnTech/sol-stake-backend/internal/queue"
)

type Preset string

const (
	PresetFast Preset = "fast"
	PresetSlow Preset = "slow"
)

const (
	FetchRepeatID = "fetch-repeatable"
	ScoreRepeatID = "score-repeatable"
)

// JobSpec describes one repeatable job before it is registered.
type JobSpec struct {
	ID        string
	Type      queue.TaskType
	Every     time.Duration
	Retention queue.Retention
}

func PresetJobs(p Preset) ([]JobSpec, error) {
	switch p {
	case PresetFast:
		keep := queue.Retention{KeepCompleted: time.Hour, KeepFailed: 24 * time.Hour}
		return []JobSpec{
			{ID: FetchRepeatID, Type: queue.TaskTypeFetch, Every: 30 * time.Second, Retention: keep},
			{ID: ScoreRepeatID, Type: queue.TaskTypeScore, Every: time.Minute, Retention: keep},
		}, nil
	case PresetSlow:
		keep := queue.Retention{KeepCompleted: 7 * 24 * time.Hour, KeepFailed: 30 * 24 * time.Hour}
		return []JobSpec{
			{ID: FetchRepeatID, Type: queue.TaskTypeFetch, Every: 6 * time.Hour, Retention: keep},
			{ID: ScoreRepeatID, Type: queue.TaskTypeScore, Every: 6 * time.Hour, Retention: keep},
		}, nil
	default:
		return nil, fmt.Errorf("unknown preset %q (want fast or slow)", p)
	}
}
