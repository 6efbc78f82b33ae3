package replay

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jthadison/bmad4-wyck-vol-sub011/internal/campaign"
	"github.com/jthadison/bmad4-wyck-vol-sub011/internal/detect"
	"github.com/jthadison/bmad4-wyck-vol-sub011/internal/phase"
	"github.com/jthadison/bmad4-wyck-vol-sub011/internal/risk"
	"github.com/jthadison/bmad4-wyck-vol-sub011/internal/validator"
	"github.com/jthadison/bmad4-wyck-vol-sub011/models"
)

// Engine replays historical candles through the full pipeline: classify,
// detect, validate, campaign. It produces the same statistics summary the
// live scanner exposes, so rule changes can be compared on history before
// touching live behavior.
type Engine struct {
	client     models.CandleClient
	classifier *phase.Classifier
	detector   *detect.Detector
	validator  *validator.Validator
	campaigns  *campaign.Manager
	riskEngine *risk.Engine
	minBars    int
	logger     zerolog.Logger
}

// Results bundles the replay outputs.
type Results struct {
	Stats       *models.CampaignStats
	Correlation *models.CorrelationReport
	Heat        float64
}

// NewEngine creates a replay engine over its own campaign manager.
func NewEngine(client models.CandleClient, classifier *phase.Classifier, detector *detect.Detector, v *validator.Validator, campaigns *campaign.Manager, riskEngine *risk.Engine, minBars int) *Engine {
	return &Engine{
		client:     client,
		classifier: classifier,
		detector:   detector,
		validator:  v,
		campaigns:  campaigns,
		riskEngine: riskEngine,
		minBars:    minBars,
		logger:     log.With().Str("component", "replay_engine").Logger(),
	}
}

// Run replays the given symbols over a historical day span.
func (e *Engine) Run(ctx context.Context, symbols []string, interval string, days int) (*Results, error) {
	for _, symbol := range symbols {
		candles, err := e.client.GetHistoricalCandles(ctx, symbol, interval, days)
		if err != nil {
			return nil, fmt.Errorf("fetching history for %s: %w", symbol, err)
		}
		if len(candles) < e.minBars {
			e.logger.Warn().Str("symbol", symbol).Int("candles", len(candles)).Msg("insufficient history, skipping")
			continue
		}
		e.replaySymbol(symbol, candles)
	}

	all := e.campaigns.AllCampaigns()
	active := e.campaigns.ActiveCampaigns()
	return &Results{
		Stats:       campaign.BuildStats(all),
		Correlation: e.riskEngine.Compute(active),
		Heat:        risk.PortfolioHeat(active),
	}, nil
}

// replaySymbol walks the window forward one bar at a time, exactly as the
// live scanner would have seen it.
func (e *Engine) replaySymbol(symbol string, candles []models.Candle) {
	for i := e.minBars; i <= len(candles); i++ {
		window := candles[:i]
		bar := window[len(window)-1]

		e.classifier.Invalidate(symbol)
		cls := e.classifier.Classify(symbol, window)

		detections := e.detector.Detect(symbol, window, cls)
		for _, det := range detections {
			res := e.validator.Validate(det.Candidate, cls, det.Range)
			if !res.Accepted {
				continue
			}
			if c, applied := e.campaigns.Apply(det.Candidate, res, det.Range); applied {
				e.logger.Debug().
					Str("symbol", symbol).
					Str("pattern", string(det.Candidate.Type)).
					Str("campaign", c.ID.String()).
					Msg("replay accepted pattern")
			}
		}

		if c := e.campaigns.Active(symbol); c != nil {
			e.campaigns.ObserveBar(symbol, c.StopLoss, bar)
		}
	}

	// Whatever is still open at the end of history closes at the last
	// price so R-multiples are comparable.
	if c := e.campaigns.Active(symbol); c != nil {
		last := candles[len(candles)-1]
		e.campaigns.Complete(symbol, last.Close, last.Timestamp, "end_of_history")
	}
}
