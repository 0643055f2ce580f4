// Package evidence builds the structured packs consumed by the external
// explanation service and its response cache. Packs carry a content hash so
// identical evidence always caches to the same key; the core never stores or
// depends on any returned text.
package evidence

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/defstats/go-match-risk/internal/model"
)

// DangerPack is the evidence for one danger episode.
type DangerPack struct {
	Kind           string            `json:"kind"`
	MatchID        string            `json:"match_id"`
	MatchName      string            `json:"match_name"`
	PeakTime       int               `json:"peak_time"`
	WindowStart    int               `json:"window_start"`
	WindowEnd      int               `json:"window_end"`
	PeakScore      float64           `json:"peak_score"`
	Severity       string            `json:"severity"`
	ActiveCodes    []model.EventCode `json:"active_codes"`
	ResultedInGoal bool              `json:"resulted_in_goal"`
	Fingerprint    []model.EventCode `json:"fingerprint,omitempty"`
}

// PatternPack is the evidence for one mined pattern.
type PatternPack struct {
	Kind             string            `json:"kind"`
	Sequence         []model.EventCode `json:"sequence"`
	OccurrenceCount  int               `json:"occurrence_count"`
	MatchCount       int               `json:"match_count"`
	GoalCount        int               `json:"goal_count"`
	GoalRate         float64           `json:"goal_rate"`
	BaselineRate     float64           `json:"baseline_rate"`
	Lift             float64           `json:"lift"`
	Confidence       float64           `json:"confidence"`
	Tier             string            `json:"tier"`
	AvgTimeToGoalSec float64           `json:"avg_time_to_goal_sec"`
}

// ForEpisode builds the pack for a single episode of a match.
func ForEpisode(m *model.Match, ep *model.DangerEpisode) *DangerPack {
	return &DangerPack{
		Kind:           "danger_episode",
		MatchID:        m.ID,
		MatchName:      m.Name,
		PeakTime:       ep.PeakTime,
		WindowStart:    ep.WindowStart,
		WindowEnd:      ep.WindowEnd,
		PeakScore:      ep.PeakScore,
		Severity:       ep.Severity.String(),
		ActiveCodes:    ep.CodesSorted(),
		ResultedInGoal: ep.ResultedInGoal,
		Fingerprint:    ep.Fingerprint,
	}
}

// ForPattern builds the pack for a mined pattern.
func ForPattern(p *model.Pattern) *PatternPack {
	return &PatternPack{
		Kind:             "pattern",
		Sequence:         p.Sequence,
		OccurrenceCount:  len(p.Occurrences),
		MatchCount:       p.MatchCount,
		GoalCount:        p.GoalCount,
		GoalRate:         p.GoalRate,
		BaselineRate:     p.BaselineRate,
		Lift:             p.Lift,
		Confidence:       p.Confidence,
		Tier:             p.Tier,
		AvgTimeToGoalSec: p.AvgTimeToGoalSec,
	}
}

// Hash returns the sha256 content hash of the pack's canonical JSON form.
// Struct field order is fixed, so equal packs always hash equal.
func Hash(pack any) (string, error) {
	data, err := json.Marshal(pack)
	if err != nil {
		return "", fmt.Errorf("marshal evidence pack: %w", err)
	}
	return fmt.Sprintf("%x", sha256.Sum256(data)), nil
}

// Encode returns the pack's JSON document plus its content hash.
func Encode(pack any) ([]byte, string, error) {
	data, err := json.MarshalIndent(pack, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("marshal evidence pack: %w", err)
	}
	hash, err := Hash(pack)
	if err != nil {
		return nil, "", err
	}
	return data, hash, nil
}
