package phase

import (
	"math"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jthadison/bmad4-wyck-vol-sub011/models"
)

// Confidence weights for the three stopping-action events. Absence of all
// events yields low confidence regardless of the phase label.
const (
	climaxWeight = 40.0
	rallyWeight  = 30.0
	testWeight   = 30.0
)

// Classifier derives a phase label and confidence from a candle window.
// Classification is pure given its inputs; the injected cache is the only
// shared state and is updated atomically per (symbol, bar count) key.
type Classifier struct {
	cache          *Cache
	minBars        int
	baselinePeriod int
	logger         zerolog.Logger
}

// NewClassifier creates a classifier backed by the given cache.
func NewClassifier(cache *Cache, minBars, baselinePeriod int) *Classifier {
	return &Classifier{
		cache:          cache,
		minBars:        minBars,
		baselinePeriod: baselinePeriod,
		logger:         log.With().Str("component", "phase_classifier").Logger(),
	}
}

// Invalidate drops cached classifications for a symbol. Call on new-bar
// arrival.
func (c *Classifier) Invalidate(symbol string) {
	c.cache.Invalidate(symbol)
}

// Classify determines the current phase for a symbol's candle window.
// Windows shorter than the minimum return phase A with confidence 0; that
// is degraded input, not an error. A cache hit for an unchanged bar count
// returns the same object.
func (c *Classifier) Classify(symbol string, candles []models.Candle) *models.PhaseClassification {
	if len(candles) < c.minBars {
		return &models.PhaseClassification{
			Symbol:     symbol,
			Phase:      models.PhaseA,
			Confidence: 0,
			BarCount:   len(candles),
		}
	}

	if cached := c.cache.Get(symbol, len(candles)); cached != nil {
		return cached
	}

	events := DetectEvents(candles, c.baselinePeriod)
	cls := &models.PhaseClassification{
		Symbol:           symbol,
		Phase:            c.labelPhase(candles, events),
		Confidence:       confidenceFromEvents(events),
		SupportingEvents: events,
		BarCount:         len(candles),
	}

	c.cache.Put(cls)
	c.logger.Debug().
		Str("symbol", symbol).
		Str("phase", string(cls.Phase)).
		Float64("confidence", cls.Confidence).
		Int("events", len(events)).
		Msg("classified window")
	return cls
}

// labelPhase walks the structural narrative: climax stops the decline (A),
// the rally and tests build cause (B), a shakeout under the test lows is
// the final test (C), a breakout over the rally high starts markup (D),
// and sustained trade above the range is the trend (E).
func (c *Classifier) labelPhase(candles []models.Candle, events []models.PhaseEvent) models.Phase {
	var climax, rally *models.PhaseEvent
	tests := 0
	for i := range events {
		switch events[i].Type {
		case models.EventSellingClimax:
			climax = &events[i]
		case models.EventAutomaticRally:
			rally = &events[i]
		case models.EventSecondaryTest:
			tests++
		}
	}

	if climax == nil || rally == nil {
		return models.PhaseA
	}
	if tests == 0 {
		return models.PhaseB
	}

	last := candles[len(candles)-1]
	rangeHigh := rally.Price
	rangeLow := climax.Price

	// Sustained closes above the range high mark the trend phase.
	if len(candles) >= 5 {
		above := 0
		for _, cd := range candles[len(candles)-5:] {
			if cd.Close > rangeHigh {
				above++
			}
		}
		if above == 5 {
			return models.PhaseE
		}
	}
	if last.Close > rangeHigh {
		return models.PhaseD
	}
	// A recent poke under the range low that closed back inside is the
	// phase C shakeout.
	for _, cd := range candles[len(candles)-3:] {
		if cd.Low < rangeLow && cd.Close > rangeLow {
			return models.PhaseC
		}
	}
	return models.PhaseB
}

func confidenceFromEvents(events []models.PhaseEvent) float64 {
	var climaxStrength, rallyStrength, testStrength float64
	for _, ev := range events {
		switch ev.Type {
		case models.EventSellingClimax:
			climaxStrength = math.Max(climaxStrength, ev.Strength)
		case models.EventAutomaticRally:
			rallyStrength = math.Max(rallyStrength, ev.Strength)
		case models.EventSecondaryTest:
			testStrength = math.Max(testStrength, ev.Strength)
		}
	}
	conf := climaxStrength*climaxWeight + rallyStrength*rallyWeight + testStrength*testWeight
	return math.Min(conf, 100)
}
