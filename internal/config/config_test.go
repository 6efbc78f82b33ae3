package config

import "testing"

func validConfig() *Config {
	return &Config{
		Symbols:              []string{"AAPL"},
		MinPhaseBars:         30,
		VolumeBaselinePeriod: 20,
		ActionableConfidence: 60,
		SpringMaxVolumeRatio: 0.7,
		ClimaxMinVolumeRatio: 1.5,
		SOSMinClearancePct:   1.0,
		SOSMaxClearancePct:   3.0,
		RiskPerCampaignPct:   2.0,
		HeatThreshold:        0.6,
		CorrelatedRiskLimit:  6.0,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults pass", func(c *Config) {}, false},
		{"no symbols", func(c *Config) { c.Symbols = nil }, true},
		{"zero phase bars", func(c *Config) { c.MinPhaseBars = 0 }, true},
		{"negative baseline", func(c *Config) { c.VolumeBaselinePeriod = -1 }, true},
		{"actionable confidence above 100", func(c *Config) { c.ActionableConfidence = 120 }, true},
		{"inverted SOS band", func(c *Config) { c.SOSMinClearancePct, c.SOSMaxClearancePct = 3, 1 }, true},
		{"heat threshold above 1", func(c *Config) { c.HeatThreshold = 1.5 }, true},
		{"zero risk limit", func(c *Config) { c.CorrelatedRiskLimit = 0 }, true},
		{"zero campaign risk", func(c *Config) { c.RiskPerCampaignPct = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetEnvWithDefault(t *testing.T) {
	t.Setenv("WYCKOFF_TEST_KEY", "override")
	if got := getEnvWithDefault("WYCKOFF_TEST_KEY", "fallback"); got != "override" {
		t.Errorf("getEnvWithDefault() = %q, want override", got)
	}
	if got := getEnvWithDefault("WYCKOFF_TEST_MISSING", "fallback"); got != "fallback" {
		t.Errorf("getEnvWithDefault() = %q, want fallback", got)
	}

	t.Setenv("WYCKOFF_TEST_FLOAT", "0.45")
	if got := getEnvFloatWithDefault("WYCKOFF_TEST_FLOAT", 1.0); got != 0.45 {
		t.Errorf("getEnvFloatWithDefault() = %v, want 0.45", got)
	}
	t.Setenv("WYCKOFF_TEST_FLOAT", "garbage")
	if got := getEnvFloatWithDefault("WYCKOFF_TEST_FLOAT", 1.0); got != 1.0 {
		t.Errorf("getEnvFloatWithDefault() on garbage = %v, want default", got)
	}

	t.Setenv("WYCKOFF_TEST_BOOL", "yes")
	if !getEnvBoolWithDefault("WYCKOFF_TEST_BOOL", false) {
		t.Error("getEnvBoolWithDefault() = false for yes")
	}
}
