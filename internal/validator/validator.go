package validator

import (
	"math"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jthadison/bmad4-wyck-vol-sub011/internal/confidence"
	"github.com/jthadison/bmad4-wyck-vol-sub011/models"
)

// Config holds the validation thresholds. Values come from the application
// config, which has already rejected out-of-range numbers at startup.
type Config struct {
	ActionableConfidence float64
	SpringMaxVolumeRatio float64
	ClimaxMinVolumeRatio float64
	SOSMinClearancePct   float64
	SOSMaxClearancePct   float64
	// StrictVolume turns the volume stage into a hard gate. Off by
	// default: out-of-band volume only drags the confidence inputs.
	StrictVolume bool
}

// DefaultConfig returns the standard validation thresholds.
func DefaultConfig() Config {
	return Config{
		ActionableConfidence: 60,
		SpringMaxVolumeRatio: 0.7,
		ClimaxMinVolumeRatio: 1.5,
		SOSMinClearancePct:   1.0,
		SOSMaxClearancePct:   3.0,
	}
}

// legalPhases is the phase gate: a candidate type is only valid inside the
// phases where the methodology defines it.
var legalPhases = map[models.PatternType]map[models.Phase]bool{
	models.PatternSC:     {models.PhaseA: true},
	models.PatternAR:     {models.PhaseA: true, models.PhaseB: true},
	models.PatternST:     {models.PhaseB: true},
	models.PatternSpring: {models.PhaseC: true},
	models.PatternUTAD:   {models.PhaseC: true},
	models.PatternSOS:    {models.PhaseD: true},
	models.PatternLPS:    {models.PhaseD: true},
}

// lowVolumePatterns must print on quiet volume (supply exhausted); the
// rest must print on expanding volume (institutional participation).
var lowVolumePatterns = map[models.PatternType]bool{
	models.PatternSpring: true,
	models.PatternST:     true,
	models.PatternLPS:    true,
	models.PatternUTAD:   true,
}

// testPatterns have recovery semantics: the bar must reclaim the level
// within a few bars for the test to count.
var testPatterns = map[models.PatternType]bool{
	models.PatternSpring: true,
	models.PatternST:     true,
	models.PatternUTAD:   true,
}

// Validator runs the phase, level, volume pipeline for candidates. The
// ordering is load-bearing: the phase gate is the cheapest and the most
// fundamental, so later stages never run for a candidate that is already
// structurally wrong.
type Validator struct {
	cfg    Config
	logger zerolog.Logger
}

// New creates a validator with the given thresholds.
func New(cfg Config) *Validator {
	return &Validator{
		cfg:    cfg,
		logger: log.With().Str("component", "pattern_validator").Logger(),
	}
}

// Validate checks one candidate against the classification and trading
// range. Rejections come back as data with a structured reason; Validate
// never returns an error.
func (v *Validator) Validate(cand models.PatternCandidate, cls *models.PhaseClassification, tr models.TradingRange) *models.ValidationResult {
	// Stage 1: phase gate.
	if cls.Confidence < v.cfg.ActionableConfidence {
		return v.reject(cand, models.StagePhase, &Reason{
			Primary:   "Phase Confidence Below Threshold",
			RuleType:  "Non-Negotiable Rule",
			Actual:    Num(cls.Confidence),
			Operator:  "<",
			Threshold: Num(v.cfg.ActionableConfidence),
		})
	}
	if !legalPhases[cand.Type][cls.Phase] {
		return v.reject(cand, models.StagePhase, &Reason{
			Primary:  "Pattern Not Valid In Phase",
			RuleType: "Phase Rule",
			Detail:   string(cand.Type) + " requires a different phase than " + string(cls.Phase),
		})
	}

	// Stage 2: level proximity.
	levelScore, levelReason := v.checkLevel(cand, tr)
	if levelReason != nil {
		return v.reject(cand, models.StageLevel, levelReason)
	}

	// Stage 3: volume. Never rejects in the default configuration; it
	// shapes the scorer inputs instead.
	volumeScore, bonus, secondary, volumeReason := v.checkVolume(cand)
	if volumeReason != nil && v.cfg.StrictVolume {
		volumeReason.Secondary = secondary
		return v.reject(cand, models.StageVolume, volumeReason)
	}

	recoveryScore := v.recoveryQuality(cand)
	if bonusFromTests(cls) {
		bonus += 10
	}

	conf, tier := confidence.Score(volumeScore, levelScore, recoveryScore, bonus, cand.AssetClass)
	if tier == models.TierReject {
		reason := &Reason{
			Primary:   "Confidence Below Floor",
			RuleType:  "Scoring Rule",
			Actual:    Num(math.Round(conf*10) / 10),
			Operator:  "<",
			Threshold: Num(confidence.RejectFloor),
			Secondary: secondary,
		}
		res := v.reject(cand, models.StagePassed, reason)
		res.Confidence = conf
		res.Tier = tier
		return res
	}

	v.logger.Debug().
		Str("symbol", cand.Symbol).
		Str("pattern", string(cand.Type)).
		Float64("confidence", conf).
		Str("tier", string(tier)).
		Msg("candidate accepted")

	return &models.ValidationResult{
		Accepted:     true,
		Confidence:   conf,
		Tier:         tier,
		StageReached: models.StagePassed,
	}
}

func (v *Validator) reject(cand models.PatternCandidate, stage models.ValidationStage, reason *Reason) *models.ValidationResult {
	v.logger.Debug().
		Str("symbol", cand.Symbol).
		Str("pattern", string(cand.Type)).
		Str("stage", string(stage)).
		Str("reason", reason.String()).
		Msg("candidate rejected")
	return &models.ValidationResult{
		Accepted:        false,
		Tier:            models.TierReject,
		RejectionReason: reason.String(),
		StageReached:    stage,
	}
}

// checkLevel verifies the triggering price sits inside the proximity band
// of the relevant reference level. Returns the level quality score, or a
// rejection reason.
func (v *Validator) checkLevel(cand models.PatternCandidate, tr models.TradingRange) (float64, *Reason) {
	creek, ice := tr.CreekLevel, tr.IceLevel

	switch cand.Type {
	case models.PatternSpring:
		// The spring pokes under the creek; the poke must stay inside the
		// ice distance or the breakdown is real.
		if cand.BarLow >= creek {
			return 0, &Reason{
				Primary: "No Creek Penetration", RuleType: "Level Rule",
				Actual: Num(cand.BarLow), Operator: ">", Threshold: Num(creek),
			}
		}
		if cand.BarLow < ice {
			return 0, &Reason{
				Primary: "Penetration Too Deep", RuleType: "Non-Negotiable Rule",
				Actual: Num(cand.BarLow), Operator: "<", Threshold: Num(ice),
			}
		}
		penetration := creek - cand.BarLow
		iceDistance := creek - ice
		if iceDistance > 0 && penetration <= iceDistance/2 {
			return 1.0, nil
		}
		return 0.7, nil

	case models.PatternUTAD:
		// Mirror of the spring above the resistance creek.
		if cand.BarHigh <= creek {
			return 0, &Reason{
				Primary: "No Creek Penetration", RuleType: "Level Rule",
				Actual: Num(cand.BarHigh), Operator: "<", Threshold: Num(creek),
			}
		}
		if cand.BarHigh > ice {
			return 0, &Reason{
				Primary: "Penetration Too Deep", RuleType: "Non-Negotiable Rule",
				Actual: Num(cand.BarHigh), Operator: ">", Threshold: Num(ice),
			}
		}
		penetration := cand.BarHigh - creek
		iceDistance := ice - creek
		if iceDistance > 0 && penetration <= iceDistance/2 {
			return 1.0, nil
		}
		return 0.7, nil

	case models.PatternSOS:
		// The breakout must clear the ice boundary by 1-3%: less is a
		// hesitant poke, more is already extended.
		clearancePct := (cand.BarClose - ice) / ice * 100
		if clearancePct < v.cfg.SOSMinClearancePct {
			return 0, &Reason{
				Primary: "Breakout Clearance Insufficient", RuleType: "Level Rule",
				Actual: Num(math.Round(clearancePct*100) / 100), Operator: "<", Threshold: Num(v.cfg.SOSMinClearancePct),
			}
		}
		if clearancePct > v.cfg.SOSMaxClearancePct {
			return 0, &Reason{
				Primary: "Breakout Overextended", RuleType: "Level Rule",
				Actual: Num(math.Round(clearancePct*100) / 100), Operator: ">", Threshold: Num(v.cfg.SOSMaxClearancePct),
			}
		}
		mid := (v.cfg.SOSMinClearancePct + v.cfg.SOSMaxClearancePct) / 2
		if math.Abs(clearancePct-mid) <= (v.cfg.SOSMaxClearancePct-v.cfg.SOSMinClearancePct)/4 {
			return 1.0, nil
		}
		return 0.8, nil

	case models.PatternLPS:
		// The retest has to hold the creek.
		if cand.BarLow < creek {
			return 0, &Reason{
				Primary: "Retest Lost Support", RuleType: "Level Rule",
				Actual: Num(cand.BarLow), Operator: "<", Threshold: Num(creek),
			}
		}
		if creek > 0 && (cand.BarLow-creek)/creek*100 > 3 {
			return 0, &Reason{
				Primary: "Retest Too Shallow", RuleType: "Level Rule",
				Actual: Num(cand.BarLow), Operator: ">", Threshold: Num(creek * 1.03),
			}
		}
		return 1.0, nil

	case models.PatternSC:
		// The climax must actually reach the support area.
		if cand.BarLow > creek*1.01 {
			return 0, &Reason{
				Primary: "Climax Above Support", RuleType: "Level Rule",
				Actual: Num(cand.BarLow), Operator: ">", Threshold: Num(creek * 1.01),
			}
		}
		return 1.0, nil

	case models.PatternAR:
		// The rally must reclaim the creek from below.
		if cand.BarHigh <= creek {
			return 0, &Reason{
				Primary: "Rally Failed To Reclaim Level", RuleType: "Level Rule",
				Actual: Num(cand.BarHigh), Operator: "<", Threshold: Num(creek),
			}
		}
		return 0.9, nil

	case models.PatternST:
		// The test revisits the support area without losing the ice.
		if cand.BarLow < ice {
			return 0, &Reason{
				Primary: "Test Lost Support", RuleType: "Non-Negotiable Rule",
				Actual: Num(cand.BarLow), Operator: "<", Threshold: Num(ice),
			}
		}
		if creek > 0 && math.Abs(cand.BarLow-creek)/creek*100 > 1.5 {
			return 0.6, nil
		}
		return 1.0, nil
	}

	return 0.5, nil
}

// checkVolume places the candidate's volume ratio in its pattern band.
// Zero ratio means the feed had no volume (or a gap) and stays neutral.
// The returned reason is only acted on under StrictVolume.
func (v *Validator) checkVolume(cand models.PatternCandidate) (score, bonus float64, secondary []SecondaryReason, reason *Reason) {
	r := cand.VolumeRatio
	if r == 0 {
		secondary = append(secondary, SecondaryReason{
			Label:  "Volume unconfirmed",
			Detail: "zero or gapped volume treated as neutral",
		})
		return 0.5, 0, secondary, nil
	}

	if lowVolumePatterns[cand.Type] {
		limit := v.cfg.SpringMaxVolumeRatio
		switch {
		case r <= limit-0.2: // well under the cap: supply genuinely gone
			return 1.0, 10, secondary, nil
		case r <= limit:
			return 0.75, 0, secondary, nil
		case r <= limit+0.1: // borderline: penalize, don't reject
			return 0.35, 0, secondary, nil
		default:
			reason = &Reason{
				Primary: "Volume Too High", RuleType: "Non-Negotiable Rule",
				Actual: Ratio(r), Operator: ">", Threshold: Ratio(limit),
			}
			if testPatterns[cand.Type] && cand.RecoveryBars == 0 {
				secondary = append(secondary, SecondaryReason{
					Label:  "Test not confirmed",
					Detail: "0 bars vs 3-15 required",
				})
			}
			return 0.1, 0, secondary, reason
		}
	}

	limit := v.cfg.ClimaxMinVolumeRatio
	switch {
	case r >= 2.0:
		return 1.0, 10, secondary, nil
	case r >= limit:
		return 0.75, 0, secondary, nil
	case r >= limit-0.1:
		return 0.35, 0, secondary, nil
	default:
		reason = &Reason{
			Primary: "Volume Too Low", RuleType: "Non-Negotiable Rule",
			Actual: Ratio(r), Operator: "<", Threshold: Ratio(limit),
		}
		return 0.1, 0, secondary, reason
	}
}

// recoveryQuality scores how decisively the triggering bar resolved. Test
// patterns are scored on how fast price reclaimed the level; for the rest
// the close position inside the bar stands in for follow-through.
func (v *Validator) recoveryQuality(cand models.PatternCandidate) float64 {
	if testPatterns[cand.Type] {
		switch {
		case cand.RecoveryBars >= 1 && cand.RecoveryBars <= 3:
			return 1.0
		case cand.RecoveryBars >= 4 && cand.RecoveryBars <= 5:
			return 0.5
		default:
			return 0.25
		}
	}
	barRange := cand.BarHigh - cand.BarLow
	if barRange <= 0 {
		return 0.5
	}
	return (cand.BarClose - cand.BarLow) / barRange
}

// bonusFromTests grants the repeated-test bonus when the classification
// saw more than one successful secondary test.
func bonusFromTests(cls *models.PhaseClassification) bool {
	tests := 0
	for _, ev := range cls.SupportingEvents {
		if ev.Type == models.EventSecondaryTest {
			tests++
		}
	}
	return tests > 1
}
