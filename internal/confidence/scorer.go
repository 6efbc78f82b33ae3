// Package confidence normalizes raw validator sub-scores into the 0-100
// confidence scale and a tier. The forex ceiling is lower than the stock
// ceiling on purpose: tick volume only measures activity, it cannot
// confirm institutional participation the way real traded volume can.
package confidence

import (
	"math"

	"github.com/jthadison/bmad4-wyck-vol-sub011/models"
)

const (
	weightVolume   = 40.0
	weightLevel    = 35.0
	weightRecovery = 25.0
	maxBonus       = 20.0
	rawCap         = 140.0

	stockCeiling = 100.0
	forexCeiling = 85.0

	// RejectFloor is a hard floor for both asset classes; bonuses cannot
	// lift a sub-70 score out of REJECT.
	RejectFloor = 70.0
)

// Score combines the sub-scores (each 0-1) and bonus points into a
// normalized confidence and tier for the asset class.
func Score(volumeScore, levelScore, recoveryScore, bonus float64, class models.AssetClass) (float64, models.ConfidenceTier) {
	raw := clamp01(volumeScore)*weightVolume +
		clamp01(levelScore)*weightLevel +
		clamp01(recoveryScore)*weightRecovery +
		math.Min(math.Max(bonus, 0), maxBonus)
	if raw > rawCap {
		raw = rawCap
	}

	ceiling := stockCeiling
	if class == models.AssetClassForex {
		ceiling = forexCeiling
	}

	conf := raw
	if conf < 0 {
		conf = 0
	}
	if conf > ceiling {
		conf = ceiling
	}

	return conf, tierFor(conf, class)
}

func tierFor(conf float64, class models.AssetClass) models.ConfidenceTier {
	if conf < RejectFloor {
		return models.TierReject
	}
	if class == models.AssetClassForex {
		switch {
		case conf >= 80:
			return models.TierExcellent
		case conf >= 75:
			return models.TierGood
		default:
			return models.TierMarginal
		}
	}
	switch {
	case conf >= 90:
		return models.TierExcellent
	case conf >= 80:
		return models.TierGood
	default:
		return models.TierMarginal
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
