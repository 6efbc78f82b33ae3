package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jthadison/bmad4-wyck-vol-sub011/internal/api/twelvedata"
	"github.com/jthadison/bmad4-wyck-vol-sub011/internal/campaign"
	"github.com/jthadison/bmad4-wyck-vol-sub011/internal/config"
	"github.com/jthadison/bmad4-wyck-vol-sub011/internal/database"
	"github.com/jthadison/bmad4-wyck-vol-sub011/internal/detect"
	"github.com/jthadison/bmad4-wyck-vol-sub011/internal/notify"
	"github.com/jthadison/bmad4-wyck-vol-sub011/internal/phase"
	"github.com/jthadison/bmad4-wyck-vol-sub011/internal/risk"
	"github.com/jthadison/bmad4-wyck-vol-sub011/internal/validator"
	"github.com/jthadison/bmad4-wyck-vol-sub011/models"
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

	cache := phase.NewCache()
	classifier := phase.NewClassifier(cache, cfg.MinPhaseBars, cfg.VolumeBaselinePeriod)
	detector := detect.NewDetector(cfg.VolumeBaselinePeriod)
	v := validator.New(validator.Config{
		ActionableConfidence: cfg.ActionableConfidence,
		SpringMaxVolumeRatio: cfg.SpringMaxVolumeRatio,
		ClimaxMinVolumeRatio: cfg.ClimaxMinVolumeRatio,
		SOSMinClearancePct:   cfg.SOSMinClearancePct,
		SOSMaxClearancePct:   cfg.SOSMaxClearancePct,
		StrictVolume:         cfg.StrictVolume,
	})
	campaigns := campaign.NewManager(cfg.RiskPerCampaignPct, cfg.AllowRedistribution)

	riskEngine, err := risk.NewEngine(cfg.HeatThreshold, cfg.CorrelatedRiskLimit)
	if err != nil {
		log.Fatal().Err(err).Msg("risk engine configuration invalid")
	}

	notifier, err := notify.New(cfg.TelegramToken, cfg.TelegramChatID)
	if err != nil {
		log.Fatal().Err(err).Msg("telegram notifier failed to start")
	}

	var store models.CampaignStore
	if cfg.DatabaseEnabled {
		db, err := database.New(database.ConnectionParams{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			DBName:   cfg.DBName,
			SSLMode:  cfg.DBSSLMode,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("database connection failed")
		}
		defer db.Close()
		store = db
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Strs("symbols", cfg.Symbols).Str("interval", cfg.Interval).Msg("scanner started")

	ticker := time.NewTicker(time.Duration(cfg.PollInterval) * time.Second)
	defer ticker.Stop()

	for {
		scanOnce(ctx, cfg, client, classifier, detector, v, campaigns, riskEngine, notifier, store)
		select {
		case <-ctx.Done():
			log.Info().Msg("scanner stopped")
			return
		case <-ticker.C:
		}
	}
}

func scanOnce(
	ctx context.Context,
	cfg *config.Config,
	client models.CandleClient,
	classifier *phase.Classifier,
	detector *detect.Detector,
	v *validator.Validator,
	campaigns *campaign.Manager,
	riskEngine *risk.Engine,
	notifier *notify.Notifier,
	store models.CampaignStore,
) {
	for _, symbol := range cfg.Symbols {
		candles, err := client.GetCandles(ctx, symbol, cfg.Interval, cfg.CandleCount)
		if err != nil {
			log.Error().Err(err).Str("symbol", symbol).Msg("fetch candles failed")
			continue
		}

		// new bars arrived: the cached classification is stale
		classifier.Invalidate(symbol)
		cls := classifier.Classify(symbol, candles)

		for _, det := range detector.Detect(symbol, candles, cls) {
			res := v.Validate(det.Candidate, cls, det.Range)
			if !res.Accepted {
				continue
			}
			if c, applied := campaigns.Apply(det.Candidate, res, det.Range); applied {
				notifier.SignalAccepted(c, det.Candidate, res)
				persist(store, c)
			}
		}

		if c := campaigns.Active(symbol); c != nil && len(candles) > 0 {
			campaigns.ObserveBar(symbol, c.StopLoss, candles[len(candles)-1])
			if c.State != models.CampaignActive {
				notifier.CampaignClosed(c)
			}
			persist(store, c)
		}
	}

	report := riskEngine.Compute(campaigns.ActiveCampaigns())
	for _, bp := range report.BlockedPairs {
		notifier.PairBlocked(bp)
	}
	log.Info().
		Int("active_campaigns", len(report.Campaigns)).
		Int("blocked_pairs", len(report.BlockedPairs)).
		Float64("portfolio_heat_pct", risk.PortfolioHeat(campaigns.ActiveCampaigns())).
		Msg("scan cycle complete")
}

func persist(store models.CampaignStore, c *models.Campaign) {
	if store == nil {
		return
	}
	if err := store.SaveCampaign(c); err != nil {
		log.Error().Err(err).Str("symbol", c.Symbol).Msg("failed to persist campaign")
	}
}
