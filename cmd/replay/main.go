package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jthadison/bmad4-wyck-vol-sub011/internal/api/twelvedata"
	"github.com/jthadison/bmad4-wyck-vol-sub011/internal/campaign"
	"github.com/jthadison/bmad4-wyck-vol-sub011/internal/config"
	"github.com/jthadison/bmad4-wyck-vol-sub011/internal/detect"
	"github.com/jthadison/bmad4-wyck-vol-sub011/internal/phase"
	"github.com/jthadison/bmad4-wyck-vol-sub011/internal/replay"
	"github.com/jthadison/bmad4-wyck-vol-sub011/internal/risk"
	"github.com/jthadison/bmad4-wyck-vol-sub011/internal/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration invalid")
	}

	lvl, _ := zerolog.ParseLevel(cfg.LogLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl)

	client := twelvedata.NewClient(twelvedata.ClientOptions{
		APIKey:         cfg.TwelveAPIKey,
		RequestTimeout: time.Duration(cfg.RequestTimeout) * time.Second,
	})

	riskEngine, err := risk.NewEngine(cfg.HeatThreshold, cfg.CorrelatedRiskLimit)
	if err != nil {
		log.Fatal().Err(err).Msg("risk engine configuration invalid")
	}

	engine := replay.NewEngine(
		client,
		phase.NewClassifier(phase.NewCache(), cfg.MinPhaseBars, cfg.VolumeBaselinePeriod),
		detect.NewDetector(cfg.VolumeBaselinePeriod),
		validator.New(validator.Config{
			ActionableConfidence: cfg.ActionableConfidence,
			SpringMaxVolumeRatio: cfg.SpringMaxVolumeRatio,
			ClimaxMinVolumeRatio: cfg.ClimaxMinVolumeRatio,
			SOSMinClearancePct:   cfg.SOSMinClearancePct,
			SOSMaxClearancePct:   cfg.SOSMaxClearancePct,
			StrictVolume:         cfg.StrictVolume,
		}),
		campaign.NewManager(cfg.RiskPerCampaignPct, cfg.AllowRedistribution),
		riskEngine,
		cfg.MinPhaseBars,
	)

	log.Info().Strs("symbols", cfg.Symbols).Int("days", cfg.ReplayDays).Msg("running replay")

	results, err := engine.Run(context.Background(), cfg.Symbols, cfg.Interval, cfg.ReplayDays)
	if err != nil {
		log.Fatal().Err(err).Msg("replay failed")
	}

	out, err := json.MarshalIndent(map[string]any{
		"stats":              results.Stats,
		"correlation":        results.Correlation,
		"portfolio_heat_pct": results.Heat,
	}, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("marshaling results")
	}
	fmt.Println(string(out))
}
