package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/defstats/go-match-risk/internal/model"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestDefaultLedgerSumsToNormalizationMax(t *testing.T) {
	cfg := Default()
	var sum float64
	for code, w := range cfg.Weights {
		if code == model.CodeGoals {
			continue
		}
		sum += w.Opponent
	}
	if sum != cfg.NormalizationMax {
		t.Fatalf("non-GOALS opponent weights sum to %.1f, want %.1f", sum, cfg.NormalizationMax)
	}
}

func TestWeightSides(t *testing.T) {
	cfg := Default()
	cases := []struct {
		code model.EventCode
		side model.Side
		want float64
	}{
		{model.CodeBallInTheBox, model.SideOpponent, 8},
		{model.CodeBallInTheBox, model.SideOwn, 0},
		{model.CodeDefensiveTransition, model.SideOwn, 4},
		{model.CodeDefensiveTransition, model.SideOpponent, 0},
		{model.EventCode("NOT A CODE"), model.SideOpponent, 0},
		{model.CodeGoals, model.SideUnknown, 0},
	}
	for _, c := range cases {
		if got := cfg.Weight(c.code, c.side); got != c.want {
			t.Errorf("Weight(%q, %v) = %.1f, want %.1f", c.code, c.side, got, c.want)
		}
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative weight", func(c *Config) {
			c.Weights[model.CodeBuildUp] = RiskWeight{Opponent: -1}
		}},
		{"even smoothing window", func(c *Config) { c.SmoothingWindowSec = 14 }},
		{"zero normalization max", func(c *Config) { c.NormalizationMax = 0 }},
		{"percentile above 100", func(c *Config) { c.Detector.PeakPercentile = 101 }},
		{"zero min distance", func(c *Config) { c.Detector.MinDistanceSec = 0 }},
		{"negative prominence", func(c *Config) { c.Detector.Prominence = -1 }},
		{"similarity above 1", func(c *Config) { c.Miner.MinSimilarity = 1.5 }},
		{"inverted tiers", func(c *Config) { c.Miner.TierMedium = 0.8 }},
		{"ci level 1", func(c *Config) { c.Miner.CILevel = 1 }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := Default()
			c.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("expected *ConfigError, got %T", err)
			}
		})
	}
}

func TestLoadOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weights.yaml")
	doc := `
weights:
  "BALL IN THE BOX":
    opponent: 12
detector:
  threshold_floor: 50
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.Weight(model.CodeBallInTheBox, model.SideOpponent); got != 12 {
		t.Errorf("overridden weight = %.1f, want 12", got)
	}
	if cfg.Detector.ThresholdFloor != 50 {
		t.Errorf("threshold floor = %.1f, want 50", cfg.Detector.ThresholdFloor)
	}
	// untouched defaults survive the overlay
	if cfg.Detector.MinDistanceSec != 35 {
		t.Errorf("min distance = %d, want 35", cfg.Detector.MinDistanceSec)
	}
}

func TestLoadRejectsInvalidOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weights.yaml")
	if err := os.WriteFile(path, []byte("smoothing_window_sec: 10\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for even smoothing window")
	}
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}
	if cfg.NormalizationMax != 30 {
		t.Errorf("normalization max = %.1f, want 30", cfg.NormalizationMax)
	}
}
