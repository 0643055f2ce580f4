package risk

import (
	"math"
	"testing"

	"github.com/defstats/go-match-risk/internal/config"
	"github.com/defstats/go-match-risk/internal/model"
)

func makeMatch(duration int, events ...model.EventInterval) *model.Match {
	return &model.Match{
		ID:          "test",
		Name:        "vs Test FC (H)",
		DurationSec: duration,
		Events:      events,
	}
}

func TestScoreSingleInterval(t *testing.T) {
	// One opponent BALL IN THE BOX (weight 8) over [100,110] in a 120s match.
	m := makeMatch(120, model.EventInterval{
		Code: model.CodeBallInTheBox, Side: model.SideOpponent, StartSec: 100, EndSec: 110,
	})
	series := NewScorer(config.Default()).Score(m)

	if len(series) != 121 {
		t.Fatalf("series length = %d, want 121", len(series))
	}
	for t2 := 100; t2 <= 110; t2++ {
		if series[t2].RawScore != 8 {
			t.Errorf("raw(%d) = %.2f, want 8", t2, series[t2].RawScore)
		}
	}
	if series[99].RawScore != 0 || series[111].RawScore != 0 {
		t.Error("raw score leaked outside the interval")
	}

	// Plateau center: full 15s window covers the whole 11s interval.
	wantSmoothed := 8.0 * 11 / 15
	if math.Abs(series[105].SmoothedScore-wantSmoothed) > 1e-9 {
		t.Errorf("smoothed(105) = %.4f, want %.4f", series[105].SmoothedScore, wantSmoothed)
	}

	// Smoothed values decay outward from the plateau.
	if !(series[98].SmoothedScore < series[101].SmoothedScore) {
		t.Error("smoothed score does not decay approaching the interval")
	}

	// Normalized never exceeds the raw ceiling 8/30*100.
	ceiling := 8.0 / 30 * 100
	for _, p := range series {
		if p.NormalizedScore > ceiling+1e-9 {
			t.Fatalf("normalized(%d) = %.2f exceeds ceiling %.2f", p.Second, p.NormalizedScore, ceiling)
		}
	}
}

func TestScoreBounds(t *testing.T) {
	// Stack every opponent code at once; normalized must clamp at 100.
	var events []model.EventInterval
	for _, code := range []model.EventCode{
		model.CodeGoals, model.CodeBallInTheBox, model.CodeCreatingChances,
		model.CodeAttackingTransition, model.CodeSetPieces, model.CodeBallInFinalThird,
		model.CodePlayersInTheBox, model.CodeProgression, model.CodeBuildUp,
	} {
		events = append(events, model.EventInterval{
			Code: code, Side: model.SideOpponent, StartSec: 20, EndSec: 80,
		})
	}
	series := NewScorer(config.Default()).Score(makeMatch(100, events...))
	for _, p := range series {
		if p.NormalizedScore < 0 || p.NormalizedScore > 100 {
			t.Fatalf("normalized(%d) = %.2f out of [0,100]", p.Second, p.NormalizedScore)
		}
	}
	// Mid-plateau raw is 40 (sum incl GOALS), normalized clamps at 100.
	if series[50].NormalizedScore != 100 {
		t.Errorf("normalized(50) = %.2f, want 100", series[50].NormalizedScore)
	}
}

func TestScoreSidesCompound(t *testing.T) {
	m := makeMatch(60,
		model.EventInterval{Code: model.CodeBallInTheBox, Side: model.SideOpponent, StartSec: 10, EndSec: 50},
		model.EventInterval{Code: model.CodeDefensiveTransition, Side: model.SideOwn, StartSec: 10, EndSec: 50},
	)
	series := NewScorer(config.Default()).Score(m)
	if series[30].RawScore != 12 {
		t.Errorf("raw(30) = %.1f, want 12 (8 opponent + 4 own)", series[30].RawScore)
	}
}

func TestGoalSpikeOverride(t *testing.T) {
	m := makeMatch(200, model.EventInterval{
		Code: model.CodeGoals, Side: model.SideOpponent, StartSec: 108, EndSec: 118,
	})
	series := NewScorer(config.Default()).Score(m)

	for t2 := 114; t2 <= 118; t2++ {
		if series[t2].NormalizedScore != 100 {
			t.Errorf("normalized(%d) = %.2f, want 100 (goal spike)", t2, series[t2].NormalizedScore)
		}
	}
	if series[113].NormalizedScore == 100 {
		t.Error("spike applied before the final 5 seconds of the GOALS interval")
	}
	// The spike is an output clamp: smoothing of neighbors stays untouched.
	if series[119].NormalizedScore == 100 {
		t.Error("spike bled past the GOALS interval end")
	}
}

func TestGoalSpikeIgnoresOwnGoals(t *testing.T) {
	m := makeMatch(200, model.EventInterval{
		Code: model.CodeGoals, Side: model.SideOwn, StartSec: 100, EndSec: 110,
	})
	series := NewScorer(config.Default()).Score(m)
	for _, p := range series {
		if p.NormalizedScore == 100 {
			t.Fatalf("own-side GOALS produced a spike at %d", p.Second)
		}
	}
}

func TestScoreFractionalBounds(t *testing.T) {
	// Interval [10.4, 12.6] is active at integer seconds 11 and 12 only.
	m := makeMatch(20, model.EventInterval{
		Code: model.CodeBuildUp, Side: model.SideOpponent, StartSec: 10.4, EndSec: 12.6,
	})
	series := NewScorer(config.Default()).Score(m)
	if series[10].RawScore != 0 {
		t.Errorf("raw(10) = %.1f, want 0", series[10].RawScore)
	}
	if series[11].RawScore != 1 || series[12].RawScore != 1 {
		t.Errorf("raw(11,12) = %.1f,%.1f, want 1,1", series[11].RawScore, series[12].RawScore)
	}
	if series[13].RawScore != 0 {
		t.Errorf("raw(13) = %.1f, want 0", series[13].RawScore)
	}
}

func TestScoreDeterministic(t *testing.T) {
	m := makeMatch(300,
		model.EventInterval{Code: model.CodeBallInTheBox, Side: model.SideOpponent, StartSec: 40, EndSec: 90},
		model.EventInterval{Code: model.CodeSetPieces, Side: model.SideOpponent, StartSec: 80, EndSec: 95},
	)
	s := NewScorer(config.Default())
	a := s.Score(m)
	b := s.Score(m)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("series diverges at second %d", i)
		}
	}
}
