package phase

import (
	"testing"
	"time"

	"github.com/jthadison/bmad4-wyck-vol-sub011/models"
)

const (
	testMinBars  = 20
	testBaseline = 10
)

func bar(i int, high, low, close float64, volume int64) models.Candle {
	return models.Candle{
		Timestamp: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Hour),
		Open:      close,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    volume,
	}
}

// accumulationWindow builds a 30-bar schematic: quiet trade, a selling
// climax at bar 15, the automatic rally at bar 16, a light-volume
// secondary test at bar 20, then range trade.
func accumulationWindow() []models.Candle {
	candles := make([]models.Candle, 0, 30)
	for i := 0; i < 15; i++ {
		candles = append(candles, bar(i, 101, 99, 100, 1000))
	}
	candles = append(candles, bar(15, 100, 90, 91, 3000)) // selling climax
	candles = append(candles, bar(16, 98, 91, 97, 1500))  // automatic rally
	for i := 17; i < 20; i++ {
		candles = append(candles, bar(i, 96, 93, 95, 1000))
	}
	candles = append(candles, bar(20, 94, 90.3, 93, 700)) // secondary test
	for i := 21; i < 30; i++ {
		candles = append(candles, bar(i, 96, 92, 95, 1000))
	}
	return candles
}

func TestDetectEventsAccumulation(t *testing.T) {
	events := DetectEvents(accumulationWindow(), testBaseline)

	var climax, rally, test *models.PhaseEvent
	for i := range events {
		switch events[i].Type {
		case models.EventSellingClimax:
			climax = &events[i]
		case models.EventAutomaticRally:
			rally = &events[i]
		case models.EventSecondaryTest:
			test = &events[i]
		}
	}

	if climax == nil || climax.BarIndex != 15 || climax.Price != 90 {
		t.Fatalf("climax = %+v, want bar 15 at 90", climax)
	}
	if climax.VolumeRatio != 3 {
		t.Errorf("climax volume ratio = %v, want 3", climax.VolumeRatio)
	}
	if rally == nil || rally.BarIndex != 16 || rally.Price != 98 {
		t.Fatalf("rally = %+v, want bar 16 at 98", rally)
	}
	if test == nil || test.BarIndex != 20 {
		t.Fatalf("secondary test = %+v, want bar 20", test)
	}
}

func TestDetectEventsQuietWindow(t *testing.T) {
	candles := make([]models.Candle, 30)
	for i := range candles {
		candles[i] = bar(i, 101, 99, 100, 1000)
	}
	if events := DetectEvents(candles, testBaseline); len(events) != 0 {
		t.Errorf("quiet window produced %d events", len(events))
	}
}

func TestClassifyShortWindow(t *testing.T) {
	c := NewClassifier(NewCache(), testMinBars, testBaseline)
	cls := c.Classify("AAPL", accumulationWindow()[:5])

	if cls.Phase != models.PhaseA {
		t.Errorf("phase = %v, want A", cls.Phase)
	}
	if cls.Confidence != 0 {
		t.Errorf("confidence = %v, want 0", cls.Confidence)
	}
	if cls.BarCount != 5 {
		t.Errorf("bar count = %d, want 5", cls.BarCount)
	}
}

func TestClassifyPhases(t *testing.T) {
	phaseC := accumulationWindow()
	phaseC[28] = bar(28, 93, 89.5, 92, 700) // shakeout under the climax low, reclaimed

	phaseD := accumulationWindow()
	phaseD[29] = bar(29, 100, 96, 99, 1800) // close over the rally high

	phaseE := accumulationWindow()
	for i := 25; i < 30; i++ { // five sustained closes above the range
		phaseE[i] = bar(i, 104, 98.5, 99+float64(i-25), 1200)
	}

	noTest := accumulationWindow()
	noTest[20] = bar(20, 96, 93, 95, 1000) // remove the secondary test

	tests := []struct {
		name    string
		candles []models.Candle
		want    models.Phase
	}{
		{"cause building", accumulationWindow(), models.PhaseB},
		{"climax and rally only", noTest, models.PhaseB},
		{"final shakeout", phaseC, models.PhaseC},
		{"markup breakout", phaseD, models.PhaseD},
		{"trend in progress", phaseE, models.PhaseE},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier(NewCache(), testMinBars, testBaseline)
			cls := c.Classify("AAPL", tt.candles)
			if cls.Phase != tt.want {
				t.Errorf("phase = %v, want %v", cls.Phase, tt.want)
			}
			if cls.Confidence <= 0 {
				t.Errorf("confidence = %v, want positive with structural events", cls.Confidence)
			}
		})
	}
}

func TestClassifyCache(t *testing.T) {
	cache := NewCache()
	c := NewClassifier(cache, testMinBars, testBaseline)
	window := accumulationWindow()

	first := c.Classify("AAPL", window)
	second := c.Classify("AAPL", window)
	if first != second {
		t.Error("unchanged bar count did not return the cached object")
	}

	// A longer window is a different key: fresh classification, old entry
	// untouched.
	extended := append(accumulationWindow(), bar(30, 96, 92, 95, 1000))
	third := c.Classify("AAPL", extended)
	if third == first {
		t.Error("extended window returned the stale classification")
	}
	if cache.Len() != 2 {
		t.Errorf("cache entries = %d, want 2", cache.Len())
	}

	c.Invalidate("AAPL")
	if cache.Len() != 0 {
		t.Errorf("cache entries after invalidation = %d, want 0", cache.Len())
	}
	fourth := c.Classify("AAPL", window)
	if fourth == first {
		t.Error("invalidated symbol returned the old object")
	}
	if fourth.Phase != first.Phase || fourth.Confidence != first.Confidence {
		t.Error("reclassification of identical input diverged")
	}
}

func TestCacheIsolatesSymbols(t *testing.T) {
	cache := NewCache()
	c := NewClassifier(cache, testMinBars, testBaseline)
	window := accumulationWindow()

	c.Classify("AAPL", window)
	c.Classify("MSFT", window)
	c.Invalidate("AAPL")

	if cache.Get("MSFT", len(window)) == nil {
		t.Error("invalidating AAPL dropped the MSFT entry")
	}
	if cache.Get("AAPL", len(window)) != nil {
		t.Error("AAPL entry survived invalidation")
	}
}
