package evidence

import (
	"encoding/json"
	"testing"

	"github.com/defstats/go-match-risk/internal/model"
)

func sampleEpisode() (*model.Match, *model.DangerEpisode) {
	m := &model.Match{ID: "abc123", Name: "vs Test FC (H)"}
	ep := &model.DangerEpisode{
		PeakTime: 1520, WindowStart: 1490, WindowEnd: 1555, PeakScore: 91.2,
		Severity: model.SeverityCritical, ResultedInGoal: true,
		ActiveCodes: map[model.EventCode]struct{}{
			model.CodeBallInTheBox:        {},
			model.CodeAttackingTransition: {},
		},
		Fingerprint: []model.EventCode{model.CodeAttackingTransition, model.CodeBallInTheBox},
	}
	return m, ep
}

func TestHashStable(t *testing.T) {
	m, ep := sampleEpisode()
	h1, err := Hash(ForEpisode(m, ep))
	if err != nil {
		t.Fatal(err)
	}
	h2, err := Hash(ForEpisode(m, ep))
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Errorf("identical packs hashed differently: %s vs %s", h1, h2)
	}
	if len(h1) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(h1))
	}
}

func TestHashChangesWithContent(t *testing.T) {
	m, ep := sampleEpisode()
	h1, _ := Hash(ForEpisode(m, ep))
	ep.PeakScore = 50
	h2, _ := Hash(ForEpisode(m, ep))
	if h1 == h2 {
		t.Error("different packs produced the same hash")
	}
}

func TestDangerPackFields(t *testing.T) {
	m, ep := sampleEpisode()
	pack := ForEpisode(m, ep)
	if pack.Kind != "danger_episode" || pack.Severity != "critical" {
		t.Errorf("pack = %+v", pack)
	}
	// Active codes are emitted sorted so hashing is set-order independent.
	if pack.ActiveCodes[0] != model.CodeAttackingTransition {
		t.Errorf("active codes = %v, want sorted", pack.ActiveCodes)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	p := &model.Pattern{
		Sequence:   []model.EventCode{model.CodeProgression, model.CodeCreatingChances},
		MatchCount: 3, GoalCount: 2, GoalRate: 0.5, BaselineRate: 0.3,
		Lift: 1.67, Confidence: 0.72, Tier: "high", AvgTimeToGoalSec: 18,
		Occurrences: make([]model.PatternOccurrence, 4),
	}
	data, hash, err := Encode(ForPattern(p))
	if err != nil {
		t.Fatal(err)
	}
	if hash == "" {
		t.Error("empty hash")
	}
	var decoded PatternPack
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("encoded pack is not valid JSON: %v", err)
	}
	if decoded.Kind != "pattern" || decoded.OccurrenceCount != 4 || decoded.Tier != "high" {
		t.Errorf("decoded = %+v", decoded)
	}
}
