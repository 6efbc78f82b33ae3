// Package detect finds trading ranges and raises pattern candidates from
// raw candles. Candidates are proposals only: every one of them still has
// to survive the validation pipeline.
package detect

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jthadison/bmad4-wyck-vol-sub011/models"
)

// Detection pairs a candidate with the trading range whose boundary it
// tests.
type Detection struct {
	Candidate models.PatternCandidate
	Range     models.TradingRange
}

// Detector scans candle windows for Wyckoff pattern candidates.
type Detector struct {
	baselinePeriod int
	logger         zerolog.Logger
}

// NewDetector creates a detector using the given rolling volume baseline.
func NewDetector(baselinePeriod int) *Detector {
	return &Detector{
		baselinePeriod: baselinePeriod,
		logger:         log.With().Str("component", "pattern_detector").Logger(),
	}
}

// Detect raises candidates triggered by the most recent bars of the
// window, using the classification's structural events to anchor the
// trading range. At most one candidate per pattern type is raised per
// call.
func (d *Detector) Detect(symbol string, candles []models.Candle, cls *models.PhaseClassification) []Detection {
	if len(candles) < d.baselinePeriod+5 || cls == nil {
		return nil
	}

	var climax, rally *models.PhaseEvent
	for i := range cls.SupportingEvents {
		switch cls.SupportingEvents[i].Type {
		case models.EventSellingClimax:
			climax = &cls.SupportingEvents[i]
		case models.EventAutomaticRally:
			rally = &cls.SupportingEvents[i]
		}
	}
	if climax == nil {
		return nil
	}

	class := models.AssetClassForSymbol(symbol)
	last := len(candles) - 1
	lastBar := candles[last]
	lastVol := rollingVolumeRatio(candles, last, d.baselinePeriod)

	var out []Detection

	supportRange := d.supportRange(candles, climax, class)

	// Event-anchored candidates trigger when the event bar is the latest
	// bar in the window.
	for _, ev := range cls.SupportingEvents {
		if ev.BarIndex != last {
			continue
		}
		var pt models.PatternType
		var ph models.Phase
		switch ev.Type {
		case models.EventSellingClimax:
			pt, ph = models.PatternSC, models.PhaseA
		case models.EventAutomaticRally:
			pt, ph = models.PatternAR, models.PhaseA
		case models.EventSecondaryTest:
			pt, ph = models.PatternST, models.PhaseB
		default:
			continue
		}
		out = append(out, Detection{
			Candidate: d.candidate(symbol, pt, ph, lastBar, ev.VolumeRatio, 0, class),
			Range:     supportRange,
		})
	}

	if rally == nil {
		return out
	}
	resistanceRange := d.resistanceRange(candles, rally, class)

	// Spring: a recent poke under the creek that the latest bar has
	// reclaimed.
	if cls.Phase == models.PhaseC {
		if penIdx, penBar := d.findPenetration(candles, supportRange); penIdx > 0 {
			recovery := last - penIdx
			if recovery >= 1 && recovery <= 5 && lastBar.Close > supportRange.CreekLevel {
				cand := d.candidate(symbol, models.PatternSpring, models.PhaseC, lastBar,
					rollingVolumeRatio(candles, penIdx, d.baselinePeriod), recovery, class)
				cand.BarLow = penBar.Low
				out = append(out, Detection{Candidate: cand, Range: supportRange})
			}
		}

		// UTAD: the distribution mirror, a poke over the resistance creek
		// that closed back inside.
		for i := last - 3; i < last; i++ {
			if i <= 0 {
				continue
			}
			if candles[i].High > resistanceRange.CreekLevel && candles[i].Close < resistanceRange.CreekLevel &&
				lastBar.Close < resistanceRange.CreekLevel {
				cand := d.candidate(symbol, models.PatternUTAD, models.PhaseC, lastBar,
					rollingVolumeRatio(candles, i, d.baselinePeriod), last-i, class)
				cand.BarHigh = candles[i].High
				out = append(out, Detection{Candidate: cand, Range: resistanceRange})
				break
			}
		}
	}

	if cls.Phase == models.PhaseD || cls.Phase == models.PhaseE {
		// SOS: the latest close clears the resistance-side ice boundary.
		if lastBar.Close > resistanceRange.IceLevel {
			out = append(out, Detection{
				Candidate: d.candidate(symbol, models.PatternSOS, models.PhaseD, lastBar, lastVol, 0, class),
				Range:     resistanceRange,
			})
		}

		// LPS: a pullback after a breakout that holds the old resistance.
		if brokeOut(candles, resistanceRange.IceLevel, last) &&
			lastBar.Close < candles[last-1].Close && lastBar.Low >= resistanceRange.CreekLevel {
			out = append(out, Detection{
				Candidate: d.candidate(symbol, models.PatternLPS, models.PhaseD, lastBar, lastVol, 0, class),
				Range:     resistanceRange,
			})
		}
	}

	return out
}

func (d *Detector) candidate(symbol string, pt models.PatternType, ph models.Phase, bar models.Candle, volRatio float64, recovery int, class models.AssetClass) models.PatternCandidate {
	return models.PatternCandidate{
		Type:          pt,
		Symbol:        symbol,
		DetectedPhase: ph,
		BarLow:        bar.Low,
		BarHigh:       bar.High,
		BarClose:      bar.Close,
		VolumeRatio:   volRatio,
		RecoveryBars:  recovery,
		AssetClass:    class,
		Timestamp:     bar.Timestamp,
	}
}

// supportRange anchors the accumulation range on the climax low. Ice sits
// twice the deepest observed penetration under the creek, with a 2% floor
// before any penetration exists.
func (d *Detector) supportRange(candles []models.Candle, climax *models.PhaseEvent, class models.AssetClass) models.TradingRange {
	creek := climax.Price
	maxPen := creek * 0.01
	for i := climax.BarIndex + 1; i < len(candles); i++ {
		if pen := creek - candles[i].Low; pen > maxPen {
			maxPen = pen
		}
	}
	return models.TradingRange{
		CreekLevel: creek,
		IceLevel:   creek - 2*maxPen,
		AssetClass: class,
	}
}

// resistanceRange anchors the breakout boundary on the automatic rally
// high. Only failed pokes (highs over the creek that closed back under)
// widen the boundary; a genuine breakout close must not raise its own
// bar.
func (d *Detector) resistanceRange(candles []models.Candle, rally *models.PhaseEvent, class models.AssetClass) models.TradingRange {
	creek := rally.Price
	maxPen := creek * 0.01
	for i := rally.BarIndex + 1; i < len(candles); i++ {
		if candles[i].Close >= creek {
			continue
		}
		if pen := candles[i].High - creek; pen > maxPen {
			maxPen = pen
		}
	}
	return models.TradingRange{
		CreekLevel: creek,
		IceLevel:   creek + 2*maxPen,
		AssetClass: class,
	}
}

// findPenetration locates the most recent bar that traded under the creek
// without losing the ice, scanning the last six bars.
func (d *Detector) findPenetration(candles []models.Candle, tr models.TradingRange) (int, models.Candle) {
	last := len(candles) - 1
	start := last - 6
	if start < 0 {
		start = 0
	}
	for i := last - 1; i >= start; i-- {
		if candles[i].Low < tr.CreekLevel && candles[i].Low >= tr.IceLevel {
			return i, candles[i]
		}
	}
	return -1, models.Candle{}
}

func brokeOut(candles []models.Candle, level float64, last int) bool {
	start := last - 10
	if start < 0 {
		start = 0
	}
	for i := start; i < last; i++ {
		if candles[i].Close > level {
			return true
		}
	}
	return false
}

// rollingVolumeRatio compares a bar's volume to the rolling baseline
// ending just before it; 0 when volume data is missing.
func rollingVolumeRatio(candles []models.Candle, idx, period int) float64 {
	start := idx - period
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
