package validator

import (
	"strings"
	"testing"
	"time"

	"github.com/jthadison/bmad4-wyck-vol-sub011/models"
)

func classification(phase models.Phase, confidence float64, events ...models.PhaseEvent) *models.PhaseClassification {
	return &models.PhaseClassification{
		Symbol:           "AAPL",
		Phase:            phase,
		Confidence:       confidence,
		SupportingEvents: events,
		BarCount:         60,
	}
}

func springCandidate() models.PatternCandidate {
	return models.PatternCandidate{
		Type:          models.PatternSpring,
		Symbol:        "AAPL",
		DetectedPhase: models.PhaseC,
		BarLow:        98,
		BarHigh:       101,
		BarClose:      100.8,
		VolumeRatio:   0.4,
		RecoveryBars:  2,
		AssetClass:    models.AssetClassStock,
		Timestamp:     time.Now(),
	}
}

func supportRange() models.TradingRange {
	return models.TradingRange{CreekLevel: 100, IceLevel: 96, AssetClass: models.AssetClassStock}
}

func TestValidatePhaseGate(t *testing.T) {
	v := New(DefaultConfig())

	tests := []struct {
		name    string
		pattern models.PatternType
		phase   models.Phase
	}{
		{"spring outside phase C", models.PatternSpring, models.PhaseB},
		{"SOS outside phase D", models.PatternSOS, models.PhaseC},
		{"SC outside phase A", models.PatternSC, models.PhaseD},
		{"ST outside phase B", models.PatternST, models.PhaseA},
		{"LPS outside phase D", models.PatternLPS, models.PhaseE},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cand := springCandidate()
			cand.Type = tt.pattern
			res := v.Validate(cand, classification(tt.phase, 85), supportRange())
			if res.Accepted {
				t.Fatal("illegal (phase, pattern) pair was accepted")
			}
			if res.StageReached != models.StagePhase {
				t.Errorf("stage = %v, want PHASE: level/volume must not run", res.StageReached)
			}
			if !strings.Contains(res.RejectionReason, "Pattern Not Valid In Phase") {
				t.Errorf("reason = %q, want phase rule rejection", res.RejectionReason)
			}
		})
	}
}

func TestValidateNonActionableClassification(t *testing.T) {
	v := New(DefaultConfig())
	res := v.Validate(springCandidate(), classification(models.PhaseC, 45), supportRange())

	if res.Accepted {
		t.Fatal("non-actionable classification was accepted")
	}
	if res.StageReached != models.StagePhase {
		t.Errorf("stage = %v, want PHASE", res.StageReached)
	}
	want := "Phase Confidence Below Threshold (Non-Negotiable Rule): 45 < 60 threshold"
	if res.RejectionReason != want {
		t.Errorf("reason = %q, want %q", res.RejectionReason, want)
	}
}

func TestValidateSpringAccepted(t *testing.T) {
	// Creek at 100.00, spring low at 98.00: a 2% penetration inside half
	// the ice distance, reclaimed in 2 bars on 0.4x volume.
	v := New(DefaultConfig())
	res := v.Validate(springCandidate(), classification(models.PhaseC, 80), supportRange())

	if !res.Accepted {
		t.Fatalf("spring rejected: %s", res.RejectionReason)
	}
	if res.StageReached != models.StagePassed {
		t.Errorf("stage = %v, want PASSED", res.StageReached)
	}
	if res.Confidence != 100 {
		t.Errorf("confidence = %v, want 100", res.Confidence)
	}
	if res.Tier != models.TierExcellent {
		t.Errorf("tier = %v, want EXCELLENT", res.Tier)
	}
}

func TestValidateSpringForexCeiling(t *testing.T) {
	v := New(DefaultConfig())
	cand := springCandidate()
	cand.Symbol = "EUR/USD"
	cand.AssetClass = models.AssetClassForex
	tr := supportRange()
	tr.AssetClass = models.AssetClassForex

	res := v.Validate(cand, classification(models.PhaseC, 80), tr)
	if !res.Accepted {
		t.Fatalf("spring rejected: %s", res.RejectionReason)
	}
	if res.Confidence != 85 {
		t.Errorf("forex confidence = %v, want ceiling 85", res.Confidence)
	}
}

func TestValidateSpringLevelRejections(t *testing.T) {
	v := New(DefaultConfig())

	tests := []struct {
		name   string
		barLow float64
		stage  models.ValidationStage
		reason string
	}{
		{"no penetration", 100.5, models.StageLevel, "No Creek Penetration"},
		{"penetration below ice", 95.5, models.StageLevel, "Penetration Too Deep"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cand := springCandidate()
			cand.BarLow = tt.barLow
			res := v.Validate(cand, classification(models.PhaseC, 80), supportRange())
			if res.Accepted {
				t.Fatal("invalid spring level was accepted")
			}
			if res.StageReached != tt.stage {
				t.Errorf("stage = %v, want %v", res.StageReached, tt.stage)
			}
			if !strings.Contains(res.RejectionReason, tt.reason) {
				t.Errorf("reason = %q, want %q", res.RejectionReason, tt.reason)
			}
		})
	}
}

func TestValidateSOSVolumeBoost(t *testing.T) {
	// SOS closing at 107.00 over ice 105.00: 1.9% clearance inside the
	// 1-3% band. The 2.0x print earns the ideal-volume bonus; the same
	// breakout at 1.5x scores lower.
	v := New(DefaultConfig())
	tr := models.TradingRange{CreekLevel: 103, IceLevel: 105, AssetClass: models.AssetClassStock}
	cand := models.PatternCandidate{
		Type:          models.PatternSOS,
		Symbol:        "AAPL",
		DetectedPhase: models.PhaseD,
		BarLow:        104.5,
		BarHigh:       107.2,
		BarClose:      107,
		VolumeRatio:   2.0,
		AssetClass:    models.AssetClassStock,
	}

	boosted := v.Validate(cand, classification(models.PhaseD, 80), tr)
	if !boosted.Accepted {
		t.Fatalf("SOS rejected: %s", boosted.RejectionReason)
	}

	cand.VolumeRatio = 1.5
	plain := v.Validate(cand, classification(models.PhaseD, 80), tr)
	if !plain.Accepted {
		t.Fatalf("SOS at 1.5x rejected: %s", plain.RejectionReason)
	}
	if boosted.Confidence <= plain.Confidence {
		t.Errorf("ideal volume confidence %v not above baseline %v", boosted.Confidence, plain.Confidence)
	}
}

func TestValidateSOSClearanceBand(t *testing.T) {
	v := New(DefaultConfig())
	tr := models.TradingRange{CreekLevel: 103, IceLevel: 105, AssetClass: models.AssetClassStock}

	tests := []struct {
		name   string
		close  float64
		reason string
	}{
		{"hesitant poke", 105.5, "Breakout Clearance Insufficient"},
		{"overextended", 109.5, "Breakout Overextended"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cand := models.PatternCandidate{
				Type:          models.PatternSOS,
				Symbol:        "AAPL",
				DetectedPhase: models.PhaseD,
				BarClose:      tt.close,
				VolumeRatio:   2.0,
				AssetClass:    models.AssetClassStock,
			}
			res := v.Validate(cand, classification(models.PhaseD, 80), tr)
			if res.Accepted {
				t.Fatal("out-of-band clearance was accepted")
			}
			if res.StageReached != models.StageLevel {
				t.Errorf("stage = %v, want LEVEL", res.StageReached)
			}
			if !strings.Contains(res.RejectionReason, tt.reason) {
				t.Errorf("reason = %q, want %q", res.RejectionReason, tt.reason)
			}
		})
	}
}

func TestValidateVolumeNeverRejectsByDefault(t *testing.T) {
	// A spring printed on 0.82x volume is out of band. The default
	// pipeline keeps it alive and lets the score decide; here the damaged
	// inputs land under the floor.
	v := New(DefaultConfig())
	cand := springCandidate()
	cand.VolumeRatio = 0.82
	cand.RecoveryBars = 0

	res := v.Validate(cand, classification(models.PhaseC, 80), supportRange())
	if res.Accepted {
		t.Fatal("sub-floor confidence was accepted")
	}
	if res.StageReached != models.StagePassed {
		t.Errorf("stage = %v, want PASSED: volume must not hard-reject", res.StageReached)
	}
	if res.Tier != models.TierReject {
		t.Errorf("tier = %v, want REJECT", res.Tier)
	}
	if !strings.HasPrefix(res.RejectionReason, "Confidence Below Floor (Scoring Rule)") {
		t.Errorf("reason = %q, want scoring-rule rejection", res.RejectionReason)
	}
}

func TestValidateStrictVolumeRejection(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StrictVolume = true
	v := New(cfg)

	cand := springCandidate()
	cand.VolumeRatio = 0.82
	cand.RecoveryBars = 0

	res := v.Validate(cand, classification(models.PhaseC, 80), supportRange())
	if res.Accepted {
		t.Fatal("strict volume accepted an out-of-band print")
	}
	if res.StageReached != models.StageVolume {
		t.Errorf("stage = %v, want VOLUME", res.StageReached)
	}
	want := "Volume Too High (Non-Negotiable Rule): 0.82x > 0.7x threshold; Test not confirmed: 0 bars vs 3-15 required"
	if res.RejectionReason != want {
		t.Errorf("reason = %q, want %q", res.RejectionReason, want)
	}
}

func TestValidateZeroVolumeNeutral(t *testing.T) {
	v := New(DefaultConfig())
	cand := springCandidate()
	cand.VolumeRatio = 0

	res := v.Validate(cand, classification(models.PhaseC, 80), supportRange())
	if !res.Accepted {
		t.Fatalf("zero-volume spring rejected: %s", res.RejectionReason)
	}
	if res.Confidence != 80 {
		t.Errorf("confidence = %v, want 80 with neutral volume", res.Confidence)
	}
}

func TestValidateRepeatedTestBonus(t *testing.T) {
	v := New(DefaultConfig())
	cand := springCandidate()
	cand.VolumeRatio = 0.6 // inside the band but short of ideal, no volume bonus

	plain := v.Validate(cand, classification(models.PhaseC, 80), supportRange())

	tested := v.Validate(cand, classification(models.PhaseC, 80,
		models.PhaseEvent{Type: models.EventSecondaryTest, BarIndex: 20, Price: 98.2},
		models.PhaseEvent{Type: models.EventSecondaryTest, BarIndex: 31, Price: 98.1},
	), supportRange())

	if !plain.Accepted || !tested.Accepted {
		t.Fatalf("springs rejected: %q / %q", plain.RejectionReason, tested.RejectionReason)
	}
	if tested.Confidence <= plain.Confidence {
		t.Errorf("repeated tests confidence %v not above single-test %v", tested.Confidence, plain.Confidence)
	}
}
