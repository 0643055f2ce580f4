// Package config holds the static risk configuration: the EventCode weight
// table and the detection/mining parameter set. Loaded once at process start;
// nothing here is redefined at runtime.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/defstats/go-match-risk/internal/model"
)

// ConfigError reports an invalid parameter value. Fatal at startup.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// RiskWeight is the static (opponent, own) weight pair for one code.
type RiskWeight struct {
	Opponent float64 `yaml:"opponent"`
	Own      float64 `yaml:"own"`
}

// Detector carries the danger-detection parameter set.
type Detector struct {
	PeakPercentile  float64 `yaml:"peak_percentile"`
	ThresholdFloor  float64 `yaml:"threshold_floor"`
	MinDistanceSec  int     `yaml:"min_distance_sec"`
	Prominence      float64 `yaml:"prominence"`
	GoalLookbackSec int     `yaml:"goal_lookback_sec"`
	MergeWindowSec  int     `yaml:"merge_window_sec"`
}

// Miner carries the fingerprinting and pattern-mining parameter set.
type Miner struct {
	FingerprintWindowSec int     `yaml:"fingerprint_window_sec"`
	TopKCodes            int     `yaml:"top_k_codes"`
	StopwordPresence     float64 `yaml:"stopword_presence"` // fraction of episodes
	MinSimilarity        float64 `yaml:"min_similarity"`
	MinMatches           int     `yaml:"min_matches"`
	MinOccurrences       int     `yaml:"min_occurrences"`
	MinLift              float64 `yaml:"min_lift"`
	MinPatternLen        int     `yaml:"min_pattern_len"`
	RequireCauseCode     bool    `yaml:"require_cause_code"`
	SupportTarget        int     `yaml:"support_target"` // occurrences until fully supported
	CILevel              float64 `yaml:"ci_level"`
	TimeToGoalLookahead  int     `yaml:"time_to_goal_lookahead_sec"`
	TierHigh             float64 `yaml:"tier_high"`
	TierMedium           float64 `yaml:"tier_medium"`
}

// Config is the full static configuration.
type Config struct {
	Weights map[model.EventCode]RiskWeight `yaml:"weights"`

	// SmoothingWindowSec is the centered moving-average width (odd).
	SmoothingWindowSec int `yaml:"smoothing_window_sec"`

	// NormalizationMax is the fixed non-GOALS weight ledger sum used as the
	// normalization denominator.
	NormalizationMax float64 `yaml:"normalization_max"`

	// GoalSpikeSec forces normalized score to 100 within the final N seconds
	// of an active GOALS interval. Output clamp only; never smoothed.
	GoalSpikeSec int `yaml:"goal_spike_sec"`

	Detector Detector `yaml:"detector"`
	Miner    Miner    `yaml:"miner"`
}

// CauseCodes are the codes that can anchor a reported pattern. A cluster with
// none of these in its sequence describes context, not a cause, and is dropped.
var CauseCodes = map[model.EventCode]struct{}{
	model.CodeAttackingTransition: {},
	model.CodeDefensiveTransition: {},
	model.CodeProgression:         {},
	model.CodeCreatingChances:     {},
}

// Default returns the built-in configuration. The opponent-side weight ledger
// excluding GOALS sums to NormalizationMax (30).
func Default() *Config {
	return &Config{
		Weights: map[model.EventCode]RiskWeight{
			model.CodeGoals:               {Opponent: 10, Own: 0},
			model.CodeBallInTheBox:        {Opponent: 8, Own: 0},
			model.CodeCreatingChances:     {Opponent: 6, Own: 0},
			model.CodeAttackingTransition: {Opponent: 5, Own: 0},
			model.CodeSetPieces:           {Opponent: 3, Own: 0},
			model.CodeBallInFinalThird:    {Opponent: 3, Own: 0},
			model.CodePlayersInTheBox:     {Opponent: 2, Own: 0},
			model.CodeProgression:         {Opponent: 2, Own: 0},
			model.CodeBuildUp:             {Opponent: 1, Own: 0},
			model.CodeDefensiveTransition: {Opponent: 0, Own: 4},
			model.CodeDefendingDefThird:   {Opponent: 0, Own: 3},
		},
		SmoothingWindowSec: 15,
		NormalizationMax:   30,
		GoalSpikeSec:       5,
		Detector: Detector{
			PeakPercentile:  70,
			ThresholdFloor:  40.0,
			MinDistanceSec:  35,
			Prominence:      10.0,
			GoalLookbackSec: 90,
			MergeWindowSec:  60,
		},
		Miner: Miner{
			FingerprintWindowSec: 60,
			TopKCodes:            4,
			StopwordPresence:     0.90,
			MinSimilarity:        0.85,
			MinMatches:           2,
			MinOccurrences:       3,
			MinLift:              1.15,
			MinPatternLen:        2,
			RequireCauseCode:     true,
			SupportTarget:        10,
			CILevel:              0.90,
			TimeToGoalLookahead:  120,
			TierHigh:             0.70,
			TierMedium:           0.45,
		},
	}
}

// Load returns the default configuration overlaid with the YAML file at path.
// An empty path returns the defaults. Validation always runs.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read weights file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse weights file: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Weight returns the additive weight for a code on the given side.
// Unknown codes contribute zero.
func (c *Config) Weight(code model.EventCode, side model.Side) float64 {
	w, ok := c.Weights[code]
	if !ok {
		return 0
	}
	switch side {
	case model.SideOpponent:
		return w.Opponent
	case model.SideOwn:
		return w.Own
	default:
		return 0
	}
}

// RankWeight returns the (opponent, own) pair used for fingerprint ranking.
func (c *Config) RankWeight(code model.EventCode) (opp, own float64) {
	w := c.Weights[code]
	return w.Opponent, w.Own
}

// Validate fails fast on parameter values the pipeline cannot run with.
func (c *Config) Validate() error {
	for code, w := range c.Weights {
		if w.Opponent < 0 || w.Own < 0 {
			return &ConfigError{Field: "weights." + string(code), Reason: "weights must be >= 0"}
		}
	}
	if c.SmoothingWindowSec < 1 || c.SmoothingWindowSec%2 == 0 {
		return &ConfigError{Field: "smoothing_window_sec", Reason: "must be a positive odd number"}
	}
	if c.NormalizationMax <= 0 {
		return &ConfigError{Field: "normalization_max", Reason: "must be > 0"}
	}
	if c.GoalSpikeSec < 0 {
		return &ConfigError{Field: "goal_spike_sec", Reason: "must be >= 0"}
	}
	d := c.Detector
	if d.PeakPercentile < 0 || d.PeakPercentile > 100 {
		return &ConfigError{Field: "detector.peak_percentile", Reason: "must be in [0,100]"}
	}
	if d.ThresholdFloor < 0 {
		return &ConfigError{Field: "detector.threshold_floor", Reason: "must be >= 0"}
	}
	if d.MinDistanceSec <= 0 {
		return &ConfigError{Field: "detector.min_distance_sec", Reason: "must be > 0"}
	}
	if d.Prominence < 0 {
		return &ConfigError{Field: "detector.prominence", Reason: "must be >= 0"}
	}
	if d.GoalLookbackSec <= 0 {
		return &ConfigError{Field: "detector.goal_lookback_sec", Reason: "must be > 0"}
	}
	if d.MergeWindowSec < 0 {
		return &ConfigError{Field: "detector.merge_window_sec", Reason: "must be >= 0"}
	}
	m := c.Miner
	if m.FingerprintWindowSec <= 0 {
		return &ConfigError{Field: "miner.fingerprint_window_sec", Reason: "must be > 0"}
	}
	if m.TopKCodes <= 0 {
		return &ConfigError{Field: "miner.top_k_codes", Reason: "must be > 0"}
	}
	if m.StopwordPresence <= 0 || m.StopwordPresence > 1 {
		return &ConfigError{Field: "miner.stopword_presence", Reason: "must be in (0,1]"}
	}
	if m.MinSimilarity <= 0 || m.MinSimilarity > 1 {
		return &ConfigError{Field: "miner.min_similarity", Reason: "must be in (0,1]"}
	}
	if m.MinMatches < 1 || m.MinOccurrences < 1 {
		return &ConfigError{Field: "miner.min_matches/min_occurrences", Reason: "must be >= 1"}
	}
	if m.MinLift < 0 {
		return &ConfigError{Field: "miner.min_lift", Reason: "must be >= 0"}
	}
	if m.SupportTarget < 1 {
		return &ConfigError{Field: "miner.support_target", Reason: "must be >= 1"}
	}
	if m.CILevel <= 0 || m.CILevel >= 1 {
		return &ConfigError{Field: "miner.ci_level", Reason: "must be in (0,1)"}
	}
	if m.TierMedium >= m.TierHigh {
		return &ConfigError{Field: "miner.tier_medium", Reason: "must be below tier_high"}
	}
	return nil
}
