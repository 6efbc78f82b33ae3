package detect

import (
	"math"
	"testing"
	"time"

	"github.com/jthadison/bmad4-wyck-vol-sub011/models"
)

const testBaseline = 10

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

// rangeEvents anchors the trading range: climax low 90 at bar 10, rally
// high 98 at bar 11.
func rangeEvents() []models.PhaseEvent {
	return []models.PhaseEvent{
		{Type: models.EventSellingClimax, BarIndex: 10, Price: 90, VolumeRatio: 3, Strength: 1},
		{Type: models.EventAutomaticRally, BarIndex: 11, Price: 98, VolumeRatio: 1.5, Strength: 1},
	}
}

func rangeClassification(phase models.Phase) *models.PhaseClassification {
	return &models.PhaseClassification{
		Symbol:           "AAPL",
		Phase:            phase,
		Confidence:       80,
		SupportingEvents: rangeEvents(),
		BarCount:         20,
	}
}

func baseWindow() []models.Candle {
	candles := make([]models.Candle, 0, 20)
	for i := 0; i < 10; i++ {
		candles = append(candles, bar(i, 96, 94, 95, 1000))
	}
	candles = append(candles, bar(10, 95, 90, 91, 3000)) // climax
	candles = append(candles, bar(11, 98, 91, 97, 1500)) // rally
	return candles
}

func TestDetectSpring(t *testing.T) {
	candles := baseWindow()
	for i := 12; i < 17; i++ {
		candles = append(candles, bar(i, 96, 92, 94, 900))
	}
	candles = append(candles, bar(17, 92, 88.5, 89.5, 500)) // poke under the creek
	candles = append(candles, bar(18, 93, 90.5, 92.5, 800))
	candles = append(candles, bar(19, 94, 91, 92, 700)) // reclaimed

	d := NewDetector(testBaseline)
	detections := d.Detect("AAPL", candles, rangeClassification(models.PhaseC))

	if len(detections) != 1 {
		t.Fatalf("detections = %d, want 1", len(detections))
	}
	det := detections[0]
	if det.Candidate.Type != models.PatternSpring {
		t.Fatalf("type = %v, want SPRING", det.Candidate.Type)
	}
	if det.Candidate.DetectedPhase != models.PhaseC {
		t.Errorf("phase = %v, want C", det.Candidate.DetectedPhase)
	}
	if det.Candidate.BarLow != 88.5 {
		t.Errorf("bar low = %v, want the penetration low 88.5", det.Candidate.BarLow)
	}
	if det.Candidate.RecoveryBars != 2 {
		t.Errorf("recovery = %d bars, want 2", det.Candidate.RecoveryBars)
	}
	if det.Candidate.VolumeRatio >= 0.7 {
		t.Errorf("volume ratio = %v, want a quiet print", det.Candidate.VolumeRatio)
	}
	if det.Range.CreekLevel != 90 {
		t.Errorf("creek = %v, want the climax low 90", det.Range.CreekLevel)
	}
	if det.Range.IceLevel != 87 {
		t.Errorf("ice = %v, want 87 (twice the 1.5 penetration)", det.Range.IceLevel)
	}
}

func TestDetectSOS(t *testing.T) {
	candles := baseWindow()
	for i := 12; i < 19; i++ {
		candles = append(candles, bar(i, 97, 93, 95, 1000))
	}
	candles = append(candles, bar(19, 101.5, 99, 101, 2000)) // breakout close

	d := NewDetector(testBaseline)
	detections := d.Detect("AAPL", candles, rangeClassification(models.PhaseD))

	if len(detections) != 1 {
		t.Fatalf("detections = %d, want 1", len(detections))
	}
	det := detections[0]
	if det.Candidate.Type != models.PatternSOS {
		t.Fatalf("type = %v, want SOS", det.Candidate.Type)
	}
	if det.Candidate.BarClose != 101 {
		t.Errorf("bar close = %v, want 101", det.Candidate.BarClose)
	}
	if det.Candidate.VolumeRatio <= 1.5 {
		t.Errorf("volume ratio = %v, want an expanding print", det.Candidate.VolumeRatio)
	}
	// No failed pokes above the rally high: the boundary keeps the 1%
	// floor at 98 * 1.02.
	if math.Abs(det.Range.IceLevel-99.96) > 1e-9 {
		t.Errorf("ice = %v, want 99.96", det.Range.IceLevel)
	}
}

func TestDetectLPS(t *testing.T) {
	candles := baseWindow()
	for i := 12; i < 15; i++ {
		candles = append(candles, bar(i, 97, 93, 95, 1000))
	}
	candles = append(candles, bar(15, 101, 99, 100.5, 1800)) // earlier breakout
	for i := 16; i < 18; i++ {
		candles = append(candles, bar(i, 102, 100, 101, 1000))
	}
	candles = append(candles, bar(18, 101.5, 99.5, 100.8, 900))
	candles = append(candles, bar(19, 100.5, 98.6, 99.5, 800)) // pullback holding the creek

	d := NewDetector(testBaseline)
	detections := d.Detect("AAPL", candles, rangeClassification(models.PhaseD))

	if len(detections) != 1 {
		t.Fatalf("detections = %d, want 1", len(detections))
	}
	if detections[0].Candidate.Type != models.PatternLPS {
		t.Fatalf("type = %v, want LPS", detections[0].Candidate.Type)
	}
	if detections[0].Candidate.BarLow != 98.6 {
		t.Errorf("bar low = %v, want 98.6", detections[0].Candidate.BarLow)
	}
}

func TestDetectEventAnchoredST(t *testing.T) {
	candles := baseWindow()
	for i := 12; i < 19; i++ {
		candles = append(candles, bar(i, 96, 92, 94, 900))
	}
	candles = append(candles, bar(19, 94, 90.3, 93, 600)) // test of the climax low

	cls := rangeClassification(models.PhaseB)
	cls.SupportingEvents = append(cls.SupportingEvents, models.PhaseEvent{
		Type: models.EventSecondaryTest, BarIndex: 19, Price: 90.3, VolumeRatio: 0.55, Strength: 0.9,
	})

	d := NewDetector(testBaseline)
	detections := d.Detect("AAPL", candles, cls)

	if len(detections) != 1 {
		t.Fatalf("detections = %d, want 1", len(detections))
	}
	det := detections[0]
	if det.Candidate.Type != models.PatternST {
		t.Fatalf("type = %v, want ST", det.Candidate.Type)
	}
	if det.Candidate.DetectedPhase != models.PhaseB {
		t.Errorf("phase = %v, want B", det.Candidate.DetectedPhase)
	}
	if det.Candidate.VolumeRatio != 0.55 {
		t.Errorf("volume ratio = %v, want the event's 0.55", det.Candidate.VolumeRatio)
	}
}

func TestDetectForexAssetClass(t *testing.T) {
	candles := baseWindow()
	for i := 12; i < 19; i++ {
		candles = append(candles, bar(i, 97, 93, 95, 1000))
	}
	candles = append(candles, bar(19, 101.5, 99, 101, 2000))

	d := NewDetector(testBaseline)
	detections := d.Detect("EUR/USD", candles, rangeClassification(models.PhaseD))

	if len(detections) != 1 {
		t.Fatalf("detections = %d, want 1", len(detections))
	}
	if detections[0].Candidate.AssetClass != models.AssetClassForex {
		t.Errorf("asset class = %v, want forex for a slash symbol", detections[0].Candidate.AssetClass)
	}
}

func TestDetectWithoutStructure(t *testing.T) {
	candles := baseWindow()
	for i := 12; i < 20; i++ {
		candles = append(candles, bar(i, 96, 92, 94, 900))
	}

	d := NewDetector(testBaseline)

	if got := d.Detect("AAPL", candles, nil); got != nil {
		t.Errorf("nil classification produced %d detections", len(got))
	}

	cls := rangeClassification(models.PhaseB)
	cls.SupportingEvents = nil
	if got := d.Detect("AAPL", candles, cls); got != nil {
		t.Errorf("no climax event produced %d detections", len(got))
	}

	if got := d.Detect("AAPL", candles[:8], rangeClassification(models.PhaseB)); got != nil {
		t.Errorf("short window produced %d detections", len(got))
	}
}
