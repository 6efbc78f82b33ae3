package campaign

import (
	"sort"

	"github.com/jthadison/bmad4-wyck-vol-sub011/models"
)

// BuildStats aggregates the campaign statistics summary consumed by the
// UI layer. Win-rate style figures only count closed campaigns.
func BuildStats(campaigns []*models.Campaign) *models.CampaignStats {
	stats := &models.CampaignStats{
		ExitReasons: make(map[string]int),
		Patterns:    make(map[string]int),
		Phases:      make(map[string]int),
	}

	var rMultiples []float64
	var totalDuration int
	wins := 0

	for _, c := range campaigns {
		stats.Overview.Total++
		stats.Phases[string(c.CurrentPhase)]++
		for _, p := range c.PatternSequence {
			stats.Patterns[string(p.Type)]++
		}

		switch c.State {
		case models.CampaignActive:
			stats.Overview.Active++
			continue
		case models.CampaignCompleted:
			stats.Overview.Completed++
		case models.CampaignFailed:
			stats.Overview.Failed++
		}

		if c.ExitReason != "" {
			stats.ExitReasons[c.ExitReason]++
		}
		rMultiples = append(rMultiples, c.RMultiple)
		totalDuration += c.DurationBars
		if c.RMultiple > 0 {
			wins++
		}
	}

	closed := len(rMultiples)
	if stats.Overview.Total > 0 {
		stats.Overview.SuccessRatePct = float64(stats.Overview.Completed) / float64(stats.Overview.Total) * 100
	}
	if closed == 0 {
		return stats
	}

	sort.Float64s(rMultiples)
	var total float64
	best, worst := rMultiples[closed-1], rMultiples[0]
	for _, r := range rMultiples {
		total += r
	}

	stats.Performance.WinRatePct = float64(wins) / float64(closed) * 100
	stats.Performance.AvgRMultiple = total / float64(closed)
	stats.Performance.MedianRMultiple = median(rMultiples)
	stats.Performance.BestRMultiple = best
	stats.Performance.WorstRMultiple = worst
	stats.Performance.TotalR = total
	stats.Performance.AvgDurationBars = float64(totalDuration) / float64(closed)
	return stats
}

// median expects sorted input.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
