package risk

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jthadison/bmad4-wyck-vol-sub011/models"
)

// minOverlap is the minimum number of timestamp-aligned return
// observations for a pair's correlation to mean anything; below it the
// pair reports 0 and is never blocked.
const minOverlap = 3

// Engine computes pairwise correlation across active campaigns and flags
// pairs whose combined entry would carry excessive correlated risk. The
// engine only reads campaign snapshots: blocking is advisory output for
// admission control, never an internal mutation.
type Engine struct {
	heatThreshold float64
	riskLimitPct  float64
	logger        zerolog.Logger
}

// NewEngine creates a risk engine. Out-of-range thresholds are a
// configuration error and fail construction.
func NewEngine(heatThreshold, riskLimitPct float64) (*Engine, error) {
	if heatThreshold < 0 || heatThreshold > 1 {
		return nil, fmt.Errorf("risk: heat threshold must be in [0,1], got %g", heatThreshold)
	}
	if riskLimitPct <= 0 {
		return nil, fmt.Errorf("risk: correlated risk limit must be positive, got %g", riskLimitPct)
	}
	return &Engine{
		heatThreshold: heatThreshold,
		riskLimitPct:  riskLimitPct,
		logger:        log.With().Str("component", "correlation_risk").Logger(),
	}, nil
}

// Compute builds the correlation report from a snapshot of active
// campaigns. A pair is blocked only when both clauses hold: correlation
// above the heat threshold AND combined allocated risk above the limit.
func (e *Engine) Compute(campaigns []*models.Campaign) *models.CorrelationReport {
	sorted := make([]*models.Campaign, len(campaigns))
	copy(sorted, campaigns)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Symbol < sorted[j].Symbol })

	n := len(sorted)
	report := &models.CorrelationReport{
		Campaigns:     make([]string, n),
		Matrix:        make([][]float64, n),
		HeatThreshold: e.heatThreshold,
		LastUpdated:   time.Now().UTC(),
		BlockedPairs:  []models.BlockedPair{},
	}
	for i, c := range sorted {
		report.Campaigns[i] = c.Symbol
		report.Matrix[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		// Self-correlation is definitionally 1, not computed.
		report.Matrix[i][i] = 1.0
		for j := i + 1; j < n; j++ {
			corr := pairCorrelation(sorted[i].ReturnSeries, sorted[j].ReturnSeries)
			report.Matrix[i][j] = corr
			report.Matrix[j][i] = corr

			combinedRisk := sorted[i].RiskPct + sorted[j].RiskPct
			if corr > e.heatThreshold && combinedRisk > e.riskLimitPct {
				report.BlockedPairs = append(report.BlockedPairs, models.BlockedPair{
					CampaignA:   sorted[i].Symbol,
					CampaignB:   sorted[j].Symbol,
					Correlation: corr,
				})
				e.logger.Warn().
					Str("campaign_a", sorted[i].Symbol).
					Str("campaign_b", sorted[j].Symbol).
					Float64("correlation", corr).
					Float64("combined_risk_pct", combinedRisk).
					Msg("correlated risk limit exceeded")
			}
		}
	}
	return report
}

// Entries flattens the report into pairwise entries, blocked flags set.
func (e *Engine) Entries(report *models.CorrelationReport) []models.CorrelationEntry {
	blocked := make(map[[2]string]bool, len(report.BlockedPairs))
	for _, bp := range report.BlockedPairs {
		blocked[[2]string{bp.CampaignA, bp.CampaignB}] = true
	}

	var entries []models.CorrelationEntry
	for i := range report.Campaigns {
		for j := i + 1; j < len(report.Campaigns); j++ {
			a, b := report.Campaigns[i], report.Campaigns[j]
			entries = append(entries, models.CorrelationEntry{
				CampaignA:   a,
				CampaignB:   b,
				Correlation: report.Matrix[i][j],
				Blocked:     blocked[[2]string{a, b}],
			})
		}
	}
	return entries
}

// pairCorrelation aligns two return series by timestamp and computes the
// Pearson coefficient over the overlap. Bars present in one series only
// are excluded from the pair, not zero-filled.
func pairCorrelation(a, b []models.ReturnPoint) float64 {
	byTime := make(map[time.Time]float64, len(b))
	for _, p := range b {
		byTime[p.Timestamp] = p.Return
	}

	var xs, ys []float64
	for _, p := range a {
		if y, ok := byTime[p.Timestamp]; ok {
			xs = append(xs, p.Return)
			ys = append(ys, y)
		}
	}
	if len(xs) < minOverlap {
		return 0
	}
	return pearson(xs, ys)
}

func pearson(xs, ys []float64) float64 {
	n := float64(len(xs))
	var sumX, sumY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX, meanY := sumX/n, sumY/n

	var cov, varX, varY float64
	for i := range xs {
		dx, dy := xs[i]-meanX, ys[i]-meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	r := cov / math.Sqrt(varX*varY)
	// guard rounding drift at the extremes
	if r > 1 {
		r = 1
	}
	if r < -1 {
		r = -1
	}
	return r
}
