package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all application configuration
type Config struct {
	TwelveAPIKey string   `env:"TWELVE_API_KEY" envDefault:"-"`
	Symbols      []string `env:"SYMBOLS" envDefault:"AAPL"`
	Interval     string   `env:"INTERVAL" envDefault:"1day"`
	CandleCount  int      `env:"CANDLE_COUNT" envDefault:"120"`

	// classification
	MinPhaseBars         int     `env:"MIN_PHASE_BARS" envDefault:"30"`
	VolumeBaselinePeriod int     `env:"VOLUME_BASELINE_PERIOD" envDefault:"20"`
	ActionableConfidence float64 `env:"ACTIONABLE_CONFIDENCE" envDefault:"60"`

	// validation bands
	SpringMaxVolumeRatio float64 `env:"SPRING_MAX_VOLUME_RATIO" envDefault:"0.7"`
	ClimaxMinVolumeRatio float64 `env:"CLIMAX_MIN_VOLUME_RATIO" envDefault:"1.5"`
	SOSMinClearancePct   float64 `env:"SOS_MIN_CLEARANCE_PCT" envDefault:"1.0"`
	SOSMaxClearancePct   float64 `env:"SOS_MAX_CLEARANCE_PCT" envDefault:"3.0"`
	StrictVolume         bool    `env:"STRICT_VOLUME" envDefault:"false"`

	// campaign / risk
	AllowRedistribution bool    `env:"ALLOW_REDISTRIBUTION" envDefault:"false"`
	RiskPerCampaignPct  float64 `env:"RISK_PER_CAMPAIGN_PCT" envDefault:"2.0"`
	HeatThreshold       float64 `env:"HEAT_THRESHOLD" envDefault:"0.6"`
	CorrelatedRiskLimit float64 `env:"CORRELATED_RISK_LIMIT" envDefault:"6.0"`

	// infrastructure
	LogLevel        string `env:"LOG_LEVEL" envDefault:"info"`
	RequestTimeout  int    `env:"REQUEST_TIMEOUT" envDefault:"30"` // seconds
	PollInterval    int    `env:"POLL_INTERVAL" envDefault:"60"`   // seconds
	ReplayDays      int    `env:"REPLAY_DAYS" envDefault:"90"`
	TelegramToken   string `env:"TELEGRAM_TOKEN" envDefault:""`
	TelegramChatID  int64  `env:"TELEGRAM_CHAT_ID" envDefault:"0"`
	DatabaseEnabled bool   `env:"DATABASE_ENABLED" envDefault:"false"`
	DBHost          string `env:"DB_HOST" envDefault:"localhost"`
	DBPort          string `env:"DB_PORT" envDefault:"5432"`
	DBUser          string `env:"DB_USER" envDefault:"postgres"`
	DBPassword      string `env:"DB_PASSWORD" envDefault:""`
	DBName          string `env:"DB_NAME" envDefault:"wyckoff"`
	DBSSLMode       string `env:"DB_SSLMODE" envDefault:"disable"`
}

// Load initializes configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	cfg := Config{
		TwelveAPIKey: os.Getenv("TWELVE_API_KEY"),
		Interval:     getEnvWithDefault("INTERVAL", "1day"),
		CandleCount:  getEnvIntWithDefault("CANDLE_COUNT", 120),

		MinPhaseBars:         getEnvIntWithDefault("MIN_PHASE_BARS", 30),
		VolumeBaselinePeriod: getEnvIntWithDefault("VOLUME_BASELINE_PERIOD", 20),
		ActionableConfidence: getEnvFloatWithDefault("ACTIONABLE_CONFIDENCE", 60),

		SpringMaxVolumeRatio: getEnvFloatWithDefault("SPRING_MAX_VOLUME_RATIO", 0.7),
		ClimaxMinVolumeRatio: getEnvFloatWithDefault("CLIMAX_MIN_VOLUME_RATIO", 1.5),
		SOSMinClearancePct:   getEnvFloatWithDefault("SOS_MIN_CLEARANCE_PCT", 1.0),
		SOSMaxClearancePct:   getEnvFloatWithDefault("SOS_MAX_CLEARANCE_PCT", 3.0),
		StrictVolume:         getEnvBoolWithDefault("STRICT_VOLUME", false),

		AllowRedistribution: getEnvBoolWithDefault("ALLOW_REDISTRIBUTION", false),
		RiskPerCampaignPct:  getEnvFloatWithDefault("RISK_PER_CAMPAIGN_PCT", 2.0),
		HeatThreshold:       getEnvFloatWithDefault("HEAT_THRESHOLD", 0.6),
		CorrelatedRiskLimit: getEnvFloatWithDefault("CORRELATED_RISK_LIMIT", 6.0),

		LogLevel:        getEnvWithDefault("LOG_LEVEL", "info"),
		RequestTimeout:  getEnvIntWithDefault("REQUEST_TIMEOUT", 30),
		PollInterval:    getEnvIntWithDefault("POLL_INTERVAL", 60),
		ReplayDays:      getEnvIntWithDefault("REPLAY_DAYS", 90),
		TelegramToken:   os.Getenv("TELEGRAM_TOKEN"),
		TelegramChatID:  getEnvInt64WithDefault("TELEGRAM_CHAT_ID", 0),
		DatabaseEnabled: getEnvBoolWithDefault("DATABASE_ENABLED", false),
		DBHost:          getEnvWithDefault("DB_HOST", "localhost"),
		DBPort:          getEnvWithDefault("DB_PORT", "5432"),
		DBUser:          getEnvWithDefault("DB_USER", "postgres"),
		DBPassword:      os.Getenv("DB_PASSWORD"),
		DBName:          getEnvWithDefault("DB_NAME", "wyckoff"),
		DBSSLMode:       getEnvWithDefault("DB_SSLMODE", "disable"),
	}

	symbols := getEnvWithDefault("SYMBOLS", "AAPL")
	for _, s := range strings.Split(symbols, ",") {
		if s = strings.TrimSpace(s); s != "" {
			cfg.Symbols = append(cfg.Symbols, s)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects out-of-range thresholds. A bad threshold is a fatal
// startup failure, never silently clamped.
func (c *Config) Validate() error {
	if len(c.Symbols) == 0 {
		return fmt.Errorf("config: no symbols configured")
	}
	if c.MinPhaseBars <= 0 {
		return fmt.Errorf("config: MIN_PHASE_BARS must be positive, got %d", c.MinPhaseBars)
	}
	if c.VolumeBaselinePeriod <= 0 {
		return fmt.Errorf("config: VOLUME_BASELINE_PERIOD must be positive, got %d", c.VolumeBaselinePeriod)
	}
	if c.ActionableConfidence < 0 || c.ActionableConfidence > 100 {
		return fmt.Errorf("config: ACTIONABLE_CONFIDENCE must be in [0,100], got %g", c.ActionableConfidence)
	}
	if c.SpringMaxVolumeRatio <= 0 {
		return fmt.Errorf("config: SPRING_MAX_VOLUME_RATIO must be positive, got %g", c.SpringMaxVolumeRatio)
	}
	if c.ClimaxMinVolumeRatio <= 0 {
		return fmt.Errorf("config: CLIMAX_MIN_VOLUME_RATIO must be positive, got %g", c.ClimaxMinVolumeRatio)
	}
	if c.SOSMinClearancePct < 0 || c.SOSMaxClearancePct <= c.SOSMinClearancePct {
		return fmt.Errorf("config: SOS clearance band invalid: [%g, %g]", c.SOSMinClearancePct, c.SOSMaxClearancePct)
	}
	if c.HeatThreshold < 0 || c.HeatThreshold > 1 {
		return fmt.Errorf("config: HEAT_THRESHOLD must be in [0,1], got %g", c.HeatThreshold)
	}
	if c.CorrelatedRiskLimit <= 0 {
		return fmt.Errorf("config: CORRELATED_RISK_LIMIT must be positive, got %g", c.CorrelatedRiskLimit)
	}
	if c.RiskPerCampaignPct <= 0 {
		return fmt.Errorf("config: RISK_PER_CAMPAIGN_PCT must be positive, got %g", c.RiskPerCampaignPct)
	}
	return nil
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64WithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}
