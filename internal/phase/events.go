package phase

import (
	"math"

	"github.com/jthadison/bmad4-wyck-vol-sub011/models"
)

// volumeRatio compares a bar's volume to the rolling baseline ending just
// before it. Returns 0 when the baseline cannot be established (missing
// volume data), which downstream treats as unconfirmed.
func volumeRatio(candles []models.Candle, idx, baselinePeriod int) float64 {
	start := idx - baselinePeriod
	if start < 0 {
		start = 0
	}
	if start == idx {
		return 0
	}
	var total int64
	for i := start; i < idx; i++ {
		total += candles[i].Volume
	}
	if total == 0 {
		return 0
	}
	baseline := float64(total) / float64(idx-start)
	return float64(candles[idx].Volume) / baseline
}

// averageRange is the mean high-low spread over the window ending before
// idx.
func averageRange(candles []models.Candle, idx, period int) float64 {
	start := idx - period
	if start < 0 {
		start = 0
	}
	if start == idx {
		return 0
	}
	var total float64
	for i := start; i < idx; i++ {
		total += candles[i].High - candles[i].Low
	}
	return total / float64(idx-start)
}

// DetectEvents scans a candle window for stopping-action events: the
// selling climax, the automatic rally off its low, and secondary tests of
// the climax low. Events are returned in bar order.
func DetectEvents(candles []models.Candle, baselinePeriod int) []models.PhaseEvent {
	if len(candles) < baselinePeriod+5 {
		return nil
	}

	var events []models.PhaseEvent

	// Selling climax: the lowest low printed on a wide-spread, high-volume
	// down bar. Only qualifying bars compete for the climax; a later quiet
	// shakeout that undercuts the low is a test of the climax, not a new
	// one.
	climaxIdx := -1
	lowestLow := math.Inf(1)
	for i := baselinePeriod; i < len(candles); i++ {
		avg := averageRange(candles, i, baselinePeriod)
		if avg == 0 || candles[i].High-candles[i].Low <= avg*1.5 {
			continue
		}
		if volumeRatio(candles, i, baselinePeriod) < 1.5 {
			continue
		}
		if candles[i].Low < lowestLow {
			lowestLow = candles[i].Low
			climaxIdx = i
		}
	}
	if climaxIdx < 0 {
		return nil
	}

	climax := candles[climaxIdx]
	climaxVol := volumeRatio(candles, climaxIdx, baselinePeriod)
	avgRange := averageRange(candles, climaxIdx, baselinePeriod)

	events = append(events, models.PhaseEvent{
		Type:        models.EventSellingClimax,
		BarIndex:    climaxIdx,
		Price:       climax.Low,
		VolumeRatio: climaxVol,
		Strength:    math.Min(climaxVol/3.0, 1.0),
	})

	// Automatic rally: the strongest bounce off the climax low inside the
	// next ten bars. A rally worth the name recovers at least one average
	// range.
	rallyIdx := -1
	rallyHigh := 0.0
	rallyEnd := climaxIdx + 10
	if rallyEnd > len(candles) {
		rallyEnd = len(candles)
	}
	for i := climaxIdx + 1; i < rallyEnd; i++ {
		if candles[i].High > rallyHigh {
			rallyHigh = candles[i].High
			rallyIdx = i
		}
	}
	if rallyIdx < 0 || avgRange == 0 || rallyHigh-climax.Low < avgRange {
		return events
	}

	rallyStrength := math.Min((rallyHigh-climax.Low)/(avgRange*3), 1.0)
	events = append(events, models.PhaseEvent{
		Type:        models.EventAutomaticRally,
		BarIndex:    rallyIdx,
		Price:       rallyHigh,
		VolumeRatio: volumeRatio(candles, rallyIdx, baselinePeriod),
		Strength:    rallyStrength,
	})

	// Secondary tests: later bars that revisit the climax low within one
	// percent on markedly lighter volume. Each qualifying revisit counts;
	// repeated successful tests strengthen the cause.
	tolerance := climax.Low * 0.01
	for i := rallyIdx + 1; i < len(candles); i++ {
		if math.Abs(candles[i].Low-climax.Low) > tolerance {
			continue
		}
		vr := volumeRatio(candles, i, baselinePeriod)
		if vr > 0 && vr >= climaxVol*0.6 {
			continue
		}
		strength := 1.0
		if vr > 0 {
			strength = math.Min((climaxVol*0.6)/math.Max(vr, 0.1)/3.0, 1.0)
		}
		events = append(events, models.PhaseEvent{
			Type:        models.EventSecondaryTest,
			BarIndex:    i,
			Price:       candles[i].Low,
			VolumeRatio: vr,
			Strength:    strength,
		})
	}

	return events
}
