// Package scoring turns validator performance into bounded trust scores and records
// each pass over the validator set as a scoring run.
package scoring

import (
	"math"

	"github.com/SeunOnTech/sol-stake-backend/common/fault"
)

// DefaultCommission is assumed when a validator does not report one.
const DefaultCommission = 5.0

// Score is uptime minus commission, clamped to [0, 100] and rounded to two decimals.
func Score(uptime float64, commission *float64) float64 {
	c := DefaultCommission
	if commission != nil {
		c = *commission
	}
	raw := uptime - c
	return math.Round(math.Min(100, math.Max(0, raw))*100) / 100
}

// ValidateInputs rejects values Score would not produce a meaningful result for.
func ValidateInputs(uptime float64, commission *float64) error {
	if math.IsNaN(uptime) || math.IsInf(uptime, 0) || uptime < 0 || uptime > 100 {
		return fault.Newf(fault.KindValidation, "scoring.validate", "uptime %v outside [0, 100]", uptime)
	}
	if commission != nil {
		c := *commission
		if math.IsNaN(c) || math.IsInf(c, 0) || c < 0 || c > 100 {
			return fault.Newf(fault.KindValidation, "scoring.validate", "commission %v outside [0, 100]", c)
		}
	}
	return nil
}
