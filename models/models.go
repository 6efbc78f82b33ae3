package models

import (
	"time"

	"github.com/google/uuid"
)

// AssetClass distinguishes instruments with real traded volume from
// tick-volume instruments.
type AssetClass string

const (
	AssetClassStock AssetClass = "stock"
	AssetClassForex AssetClass = "forex"
)

// Phase is one stage of an accumulation/distribution cycle.
type Phase string

const (
	PhaseA Phase = "A" // stopping action
	PhaseB Phase = "B" // building cause
	PhaseC Phase = "C" // final test
	PhaseD Phase = "D" // markup/markdown begins
	PhaseE Phase = "E" // trend in progress
)

// Index returns the ordinal position of the phase (A=0 .. E=4), or -1 for
// an unknown phase.
func (p Phase) Index() int {
	switch p {
	case PhaseA:
		return 0
	case PhaseB:
		return 1
	case PhaseC:
		return 2
	case PhaseD:
		return 3
	case PhaseE:
		return 4
	}
	return -1
}

// Candle represents a single price candle
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume,omitempty"`
}

// EventType labels a stopping-action event found inside a candle window.
type EventType string

const (
	EventSellingClimax  EventType = "SELLING_CLIMAX"
	EventAutomaticRally EventType = "AUTOMATIC_RALLY"
	EventSecondaryTest  EventType = "SECONDARY_TEST"
)

// PhaseEvent is a structural event supporting a phase classification.
type PhaseEvent struct {
	Type        EventType `json:"type"`
	BarIndex    int       `json:"bar_index"`
	Price       float64   `json:"price"`
	VolumeRatio float64   `json:"volume_ratio"`
	Strength    float64   `json:"strength"` // 0-1
}

// ActionableConfidence is the floor below which a classification must not
// feed pattern validation.
const ActionableConfidence = 60.0

// PhaseClassification is the classifier output for one (symbol, bar count).
type PhaseClassification struct {
	Symbol           string       `json:"symbol"`
	Phase            Phase        `json:"phase"`
	Confidence       float64      `json:"confidence"`
	SupportingEvents []PhaseEvent `json:"supporting_events"`
	BarCount         int          `json:"bar_count"`
}

// Actionable reports whether the classification is strong enough for
// pattern validation to proceed.
func (c *PhaseClassification) Actionable() bool {
	return c.Confidence >= ActionableConfidence
}

// TradingRange bounds the structure being worked. Creek is the primary
// support/resistance level; Ice is the deeper invalidation boundary at
// roughly twice the creek's penetration distance.
type TradingRange struct {
	CreekLevel float64    `json:"creek_level"`
	IceLevel   float64    `json:"ice_level"`
	AssetClass AssetClass `json:"asset_class"`
}

// PatternType enumerates every pattern the engine understands. The set is
// closed: adding a pattern means adding a constant and teaching the
// validator its rules, there is no catch-all variant.
type PatternType string

const (
	PatternSC     PatternType = "SC"     // selling climax
	PatternAR     PatternType = "AR"     // automatic rally
	PatternST     PatternType = "ST"     // secondary test
	PatternSpring PatternType = "SPRING" // false breakdown under the creek
	PatternSOS    PatternType = "SOS"    // sign of strength breakout
	PatternLPS    PatternType = "LPS"    // last point of support retest
	PatternUTAD   PatternType = "UTAD"   // upthrust after distribution
)

// PatternCandidate is produced by the upstream detectors and consumed,
// never mutated, by the validator.
type PatternCandidate struct {
	Type          PatternType `json:"type"`
	Symbol        string      `json:"symbol"`
	DetectedPhase Phase       `json:"detected_phase"`
	BarLow        float64     `json:"bar_low"`
	BarHigh       float64     `json:"bar_high"`
	BarClose      float64     `json:"bar_close"`
	VolumeRatio   float64     `json:"volume_ratio"` // ratio to the rolling baseline, 0 = unconfirmed
	RecoveryBars  int         `json:"recovery_bars"`
	AssetClass    AssetClass  `json:"asset_class"`
	Timestamp     time.Time   `json:"timestamp"`
}

// ValidationStage marks how far a candidate got through the pipeline.
type ValidationStage string

const (
	StagePhase  ValidationStage = "PHASE"
	StageLevel  ValidationStage = "LEVEL"
	StageVolume ValidationStage = "VOLUME"
	StagePassed ValidationStage = "PASSED"
)

// ConfidenceTier buckets a normalized confidence score.
type ConfidenceTier string

const (
	TierExcellent ConfidenceTier = "EXCELLENT"
	TierGood      ConfidenceTier = "GOOD"
	TierMarginal  ConfidenceTier = "MARGINAL"
	TierReject    ConfidenceTier = "REJECT"
)

// ValidationResult is the immutable outcome of validating one candidate.
// Rejection is data, never an error: RejectionReason carries the structured
// string the UI layer parses.
type ValidationResult struct {
	Accepted        bool            `json:"accepted"`
	Confidence      float64         `json:"confidence"`
	Tier            ConfidenceTier  `json:"tier"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	StageReached    ValidationStage `json:"stage_reached"`
}

// CampaignState is the campaign-level lifecycle state.
type CampaignState string

const (
	CampaignActive    CampaignState = "ACTIVE"
	CampaignCompleted CampaignState = "COMPLETED"
	CampaignFailed    CampaignState = "FAILED"
)

// ReturnPoint is one per-bar equity return observation while a campaign is
// active, keyed by bar timestamp for cross-campaign alignment.
type ReturnPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Return    float64   `json:"return"`
}

// Campaign tracks the lifecycle of one instrument's pattern sequence from
// first accepted signal to exit.
type Campaign struct {
	ID              uuid.UUID          `json:"id"`
	Symbol          string             `json:"symbol"`
	AssetClass      AssetClass         `json:"asset_class"`
	PatternSequence []PatternCandidate `json:"pattern_sequence"`
	CurrentPhase    Phase              `json:"current_phase"`
	State           CampaignState      `json:"state"`
	EntryPrice      float64            `json:"entry_price"`
	StopLoss        float64            `json:"stop_loss"`
	ExitPrice       float64            `json:"exit_price,omitempty"`
	RMultiple       float64            `json:"r_multiple,omitempty"`
	ExitReason      string             `json:"exit_reason,omitempty"`
	RiskPct         float64            `json:"risk_pct"` // allocated risk, % of equity
	ReturnSeries    []ReturnPoint      `json:"return_series,omitempty"`
	DurationBars    int                `json:"duration_bars"`
	StartedAt       time.Time          `json:"started_at"`
	ClosedAt        time.Time          `json:"closed_at,omitempty"`

	lastClose float64
}

// LastClose returns the most recent observed close for the campaign's
// symbol, or the entry price before any bar has been observed.
func (c *Campaign) LastClose() float64 {
	if c.lastClose == 0 {
		return c.EntryPrice
	}
	return c.lastClose
}

// SetLastClose records the most recent observed close.
func (c *Campaign) SetLastClose(price float64) {
	c.lastClose = price
}

// BlockedPair names two campaigns whose combined entry would carry
// excessive correlated risk.
type BlockedPair struct {
	CampaignA   string  `json:"campaign_a"`
	CampaignB   string  `json:"campaign_b"`
	Correlation float64 `json:"correlation"`
}

// CorrelationEntry is one pairwise correlation observation. It is derived
// on demand from campaign return history and never persisted.
type CorrelationEntry struct {
	CampaignA   string  `json:"campaign_a"`
	CampaignB   string  `json:"campaign_b"`
	Correlation float64 `json:"correlation"`
	Blocked     bool    `json:"blocked"`
}

// CorrelationReport is the risk engine output consumed by admission
// control and the UI layer.
type CorrelationReport struct {
	Campaigns     []string      `json:"campaigns"`
	Matrix        [][]float64   `json:"matrix"`
	HeatThreshold float64       `json:"heat_threshold"`
	LastUpdated   time.Time     `json:"last_updated"`
	BlockedPairs  []BlockedPair `json:"blocked_pairs"`
}

// CampaignStats is the campaign statistics summary exposed to consumers.
type CampaignStats struct {
	Overview struct {
		Total          int     `json:"total"`
		Completed      int     `json:"completed"`
		Failed         int     `json:"failed"`
		Active         int     `json:"active"`
		SuccessRatePct float64 `json:"success_rate_pct"`
	} `json:"overview"`
	Performance struct {
		WinRatePct      float64 `json:"win_rate_pct"`
		AvgRMultiple    float64 `json:"avg_r_multiple"`
		MedianRMultiple float64 `json:"median_r_multiple"`
		BestRMultiple   float64 `json:"best_r_multiple"`
		WorstRMultiple  float64 `json:"worst_r_multiple"`
		TotalR          float64 `json:"total_r"`
		AvgDurationBars float64 `json:"avg_duration_bars"`
	} `json:"performance"`
	ExitReasons map[string]int `json:"exit_reasons"`
	Patterns    map[string]int `json:"patterns"`
	Phases      map[string]int `json:"phases"`
}
