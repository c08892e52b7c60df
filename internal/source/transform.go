package source

import (
	"context"
	"log/slog"
	"math"

	"github.com/go-playground/validator/v10"

	"github.com/SeunOnTech/sol-stake-backend/common/logger"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// transform converts vote accounts into validated records. Uptime for an account is
// the credits it earned in its latest epoch over the best credits any account earned
// in that same epoch.
func transform(ctx context.Context, accounts []voteAccount) ([]RawRecord, Tally) {
	best := bestCreditsByEpoch(accounts)

	records := make([]RawRecord, 0, len(accounts))
	var tally Tally
	for _, acc := range accounts {
		rec := toRecord(acc, best)
		if err := validate.Struct(rec); err != nil {
			tally.Failed++
			slog.WarnContext(logger.WithLogFields(ctx, logger.LogFields{ValidatorPubkey: logger.Ptr(acc.NodePubkey)}),
				"skipping validator record",
				"vote_account", acc.VotePubkey,
				"error", err)
			continue
		}
		tally.Succeeded++
		records = append(records, rec)
	}
	return records, tally
}

func toRecord(acc voteAccount, best map[uint64]uint64) RawRecord {
	rec := RawRecord{
		Pubkey:      acc.NodePubkey,
		VoteAccount: acc.VotePubkey,
		Commission:  acc.Commission,
		Delinquent:  acc.delinquent,
	}

	epoch, earned, ok := latestEpoch(acc.EpochCredits)
	if !ok || best[epoch] == 0 {
		return rec
	}
	rec.Uptime = round2(float64(earned) / float64(best[epoch]) * 100)
	return rec
}

func bestCreditsByEpoch(accounts []voteAccount) map[uint64]uint64 {
	best := make(map[uint64]uint64)
	for _, acc := range accounts {
		for _, row := range acc.EpochCredits {
			epoch, earned, ok := creditsRow(row)
			if !ok {
				continue
			}
			if earned > best[epoch] {
				best[epoch] = earned
			}
		}
	}
	return best
}

func latestEpoch(rows [][]uint64) (epoch, earned uint64, ok bool) {
	for _, row := range rows {
		e, c, valid := creditsRow(row)
		if !valid {
			continue
		}
		if !ok || e >= epoch {
			epoch, earned, ok = e, c, true
		}
	}
	return epoch, earned, ok
}

func creditsRow(row []uint64) (epoch, earned uint64, ok bool) {
	if len(row) < 3 || row[1] < row[2] {
		return 0, 0, false
	}
	return row[0], row[1] - row[2], true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
