package danger

import (
	"math"
	"testing"

	"github.com/defstats/go-match-risk/internal/config"
	"github.com/defstats/go-match-risk/internal/model"
	"github.com/defstats/go-match-risk/internal/risk"
)

// seriesOf builds a risk series with the given normalized values.
func seriesOf(norm []float64) []model.RiskPoint {
	out := make([]model.RiskPoint, len(norm))
	for i, v := range norm {
		out[i] = model.RiskPoint{Second: i, NormalizedScore: v}
	}
	return out
}

// flatSeries returns n seconds at zero.
func flatSeries(n int) []float64 {
	return make([]float64, n)
}

// addBump writes a triangular bump peaking at center with the given height,
// falling off by slope per second.
func addBump(norm []float64, center int, height, slope float64) {
	for t := range norm {
		v := height - math.Abs(float64(t-center))*slope
		if v > norm[t] {
			norm[t] = v
		}
	}
}

func emptyMatch(duration int, events ...model.EventInterval) *model.Match {
	return &model.Match{ID: "m1", Name: "vs Test FC (A)", DurationSec: duration, Events: events}
}

func TestDetectSinglePeak(t *testing.T) {
	norm := flatSeries(1000)
	addBump(norm, 500, 80, 2)
	m := emptyMatch(999)

	eps := NewDetector(config.Default()).Detect(m, seriesOf(norm))
	if len(eps) != 1 {
		t.Fatalf("got %d episodes, want 1", len(eps))
	}
	ep := eps[0]
	if ep.PeakTime != 500 {
		t.Errorf("peak time = %d, want 500", ep.PeakTime)
	}
	if ep.PeakScore != 80 {
		t.Errorf("peak score = %.1f, want 80", ep.PeakScore)
	}
	if ep.Severity != model.SeverityHigh {
		t.Errorf("severity = %v, want high", ep.Severity)
	}
	// Tolerance band: score >= 80-10 holds for t in [495,505].
	if ep.WindowStart != 495 || ep.WindowEnd != 505 {
		t.Errorf("window = [%d,%d], want [495,505]", ep.WindowStart, ep.WindowEnd)
	}
	if ep.WindowStart > ep.PeakTime || ep.PeakTime > ep.WindowEnd {
		t.Error("peak time outside its own window")
	}
}

func TestDetectBelowFloorNoEpisode(t *testing.T) {
	// A single 8-weight interval tops out near 19.6 normalized, under the
	// 40.0 floor even though it clears the 70th percentile.
	m := emptyMatch(120, model.EventInterval{
		Code: model.CodeBallInTheBox, Side: model.SideOpponent, StartSec: 100, EndSec: 110,
	})
	cfg := config.Default()
	series := risk.NewScorer(cfg).Score(m)
	eps := NewDetector(cfg).Detect(m, series)
	if len(eps) != 0 {
		t.Fatalf("got %d episodes, want 0 (peak below threshold floor)", len(eps))
	}
}

func TestDetectShortSeriesEmpty(t *testing.T) {
	norm := flatSeries(69) // < 2 * min_distance(35)
	addBump(norm, 30, 90, 2)
	eps := NewDetector(config.Default()).Detect(emptyMatch(68), seriesOf(norm))
	if len(eps) != 0 {
		t.Fatalf("got %d episodes from a short series, want 0", len(eps))
	}
}

func TestDetectMergesNearbyPeaks(t *testing.T) {
	// Peaks at 500 and 540: 40s apart, past the 35s min distance but inside
	// the 60s merge window. They must merge into one episode.
	norm := flatSeries(1000)
	addBump(norm, 500, 80, 4)
	addBump(norm, 540, 75, 4)
	eps := NewDetector(config.Default()).Detect(emptyMatch(999), seriesOf(norm))
	if len(eps) != 1 {
		t.Fatalf("got %d episodes, want 1 after merging", len(eps))
	}
	ep := eps[0]
	if ep.PeakTime != 500 || ep.PeakScore != 80 {
		t.Errorf("merged peak = (%d, %.1f), want (500, 80.0)", ep.PeakTime, ep.PeakScore)
	}
	if ep.Severity != model.SeverityHigh {
		t.Errorf("severity = %v, want high", ep.Severity)
	}
	// Window spans both tolerance bands.
	if ep.WindowEnd < 540 {
		t.Errorf("merged window end = %d, want >= 540", ep.WindowEnd)
	}
}

func TestDetectDistantPeaksStaySeparate(t *testing.T) {
	norm := flatSeries(1000)
	addBump(norm, 300, 80, 4)
	addBump(norm, 500, 90, 4)
	eps := NewDetector(config.Default()).Detect(emptyMatch(999), seriesOf(norm))
	if len(eps) != 2 {
		t.Fatalf("got %d episodes, want 2", len(eps))
	}
	if eps[0].PeakTime != 300 || eps[1].PeakTime != 500 {
		t.Errorf("peaks at %d,%d, want 300,500", eps[0].PeakTime, eps[1].PeakTime)
	}
	if eps[1].Severity != model.SeverityCritical {
		t.Errorf("severity of 90-score peak = %v, want critical", eps[1].Severity)
	}
}

func TestGoalSynthesizesEpisode(t *testing.T) {
	// Goal at t=2000 with nothing above the floor in [1910,2000]: the
	// detector must still anchor a critical episode at the lookback max.
	norm := flatSeries(2100)
	addBump(norm, 1950, 30, 2)
	m := emptyMatch(2099, model.EventInterval{
		Code: model.CodeGoals, Side: model.SideOpponent, StartSec: 2000, EndSec: 2010,
	})
	eps := NewDetector(config.Default()).Detect(m, seriesOf(norm))
	if len(eps) != 1 {
		t.Fatalf("got %d episodes, want 1 synthesized", len(eps))
	}
	ep := eps[0]
	if !ep.ResultedInGoal {
		t.Error("synthesized episode not marked resulted_in_goal")
	}
	if ep.Severity != model.SeverityCritical {
		t.Errorf("severity = %v, want critical (goal override)", ep.Severity)
	}
	if ep.PeakTime != 1950 {
		t.Errorf("anchor = %d, want 1950 (lookback max)", ep.PeakTime)
	}
}

func TestGoalPromotesNearbyPeak(t *testing.T) {
	// A detected peak within 5s of the lookback max is promoted, not
	// duplicated.
	norm := flatSeries(2100)
	addBump(norm, 1950, 80, 2)
	m := emptyMatch(2099, model.EventInterval{
		Code: model.CodeGoals, Side: model.SideOpponent, StartSec: 2000, EndSec: 2010,
	})
	eps := NewDetector(config.Default()).Detect(m, seriesOf(norm))
	if len(eps) != 1 {
		t.Fatalf("got %d episodes, want 1 promoted", len(eps))
	}
	ep := eps[0]
	if !ep.ResultedInGoal || ep.Severity != model.SeverityCritical {
		t.Errorf("promoted episode = (goal=%v, sev=%v), want (true, critical)", ep.ResultedInGoal, ep.Severity)
	}
	if ep.PeakScore != 80 {
		t.Errorf("peak score = %.1f, want the original 80", ep.PeakScore)
	}
}

func TestGoalCoverageEarlyGoal(t *testing.T) {
	// Goal before the 90s horizon truncates the lookback to [0, goal_time].
	norm := flatSeries(500)
	addBump(norm, 20, 25, 1)
	m := emptyMatch(499, model.EventInterval{
		Code: model.CodeGoals, Side: model.SideOpponent, StartSec: 40, EndSec: 50,
	})
	eps := NewDetector(config.Default()).Detect(m, seriesOf(norm))
	if len(eps) != 1 {
		t.Fatalf("got %d episodes, want 1", len(eps))
	}
	if eps[0].PeakTime != 20 || !eps[0].ResultedInGoal {
		t.Errorf("episode = (t=%d, goal=%v), want (20, true)", eps[0].PeakTime, eps[0].ResultedInGoal)
	}
}

func TestGoalCoverageInvariant(t *testing.T) {
	// Two goals, one near a real peak and one in a quiet stretch: each must
	// have exactly one critical goal episode.
	norm := flatSeries(4000)
	addBump(norm, 1000, 88, 2)
	addBump(norm, 2950, 20, 1)
	m := emptyMatch(3999,
		model.EventInterval{Code: model.CodeGoals, Side: model.SideOpponent, StartSec: 1004, EndSec: 1014},
		model.EventInterval{Code: model.CodeGoals, Side: model.SideOpponent, StartSec: 3000, EndSec: 3010},
	)
	eps := NewDetector(config.Default()).Detect(m, seriesOf(norm))
	goalEpisodes := 0
	for _, ep := range eps {
		if ep.ResultedInGoal {
			goalEpisodes++
			if ep.Severity != model.SeverityCritical {
				t.Errorf("goal episode at %d has severity %v, want critical", ep.PeakTime, ep.Severity)
			}
		}
	}
	if goalEpisodes != 2 {
		t.Fatalf("got %d goal episodes, want 2 (one per conceded goal)", goalEpisodes)
	}
}

func TestActiveCodesFromWindow(t *testing.T) {
	norm := flatSeries(1000)
	addBump(norm, 500, 80, 2)
	m := emptyMatch(999,
		model.EventInterval{Code: model.CodeSetPieces, Side: model.SideOpponent, StartSec: 490, EndSec: 502},
		model.EventInterval{Code: model.CodeBuildUp, Side: model.SideOwn, StartSec: 100, EndSec: 120},
	)
	eps := NewDetector(config.Default()).Detect(m, seriesOf(norm))
	if len(eps) != 1 {
		t.Fatalf("got %d episodes, want 1", len(eps))
	}
	if _, ok := eps[0].ActiveCodes[model.CodeSetPieces]; !ok {
		t.Error("SET PIECES active in window but missing from active_codes")
	}
	if _, ok := eps[0].ActiveCodes[model.CodeBuildUp]; ok {
		t.Error("BUILD UP outside window but present in active_codes")
	}
}

func TestAcceptPeaksDistanceInvariant(t *testing.T) {
	cands := []peak{
		{time: 100, score: 90},
		{time: 120, score: 85}, // within 35s of 100, suppressed
		{time: 130, score: 80}, // suppressed by 100, not rescued by 120 losing
		{time: 200, score: 70},
	}
	accepted := acceptPeaks(cands, 35)
	for i := 0; i < len(accepted); i++ {
		for j := i + 1; j < len(accepted); j++ {
			d := accepted[j].time - accepted[i].time
			if d < 0 {
				d = -d
			}
			if d < 35 {
				t.Fatalf("accepted peaks %d and %d closer than min distance", accepted[i].time, accepted[j].time)
			}
		}
	}
	if len(accepted) != 2 || accepted[0].time != 100 || accepted[1].time != 200 {
		t.Errorf("accepted = %v, want peaks at 100 and 200", accepted)
	}
}

func TestAcceptPeaksKeepsDistantCandidates(t *testing.T) {
	// 140 is 40s from the winner at 100: far enough, must survive.
	cands := []peak{
		{time: 100, score: 90},
		{time: 140, score: 80},
		{time: 175, score: 60},
	}
	accepted := acceptPeaks(cands, 35)
	if len(accepted) != 3 {
		t.Fatalf("accepted = %v, want all three", accepted)
	}
	if accepted[0].time != 100 || accepted[1].time != 140 || accepted[2].time != 175 {
		t.Errorf("accepted = %v, want peaks at 100, 140, 175", accepted)
	}
}

func TestAcceptPeaksTieBreak(t *testing.T) {
	// Equal scores: the earlier candidate wins the min-distance contest.
	cands := []peak{{time: 130, score: 80}, {time: 100, score: 80}}
	accepted := acceptPeaks(cands, 35)
	if len(accepted) != 1 || accepted[0].time != 100 {
		t.Errorf("accepted = %v, want single peak at 100", accepted)
	}
}

func TestMergeIdempotent(t *testing.T) {
	eps := []model.DangerEpisode{
		{PeakTime: 100, WindowStart: 90, WindowEnd: 110, PeakScore: 80, Severity: model.SeverityHigh},
		{PeakTime: 150, WindowStart: 140, WindowEnd: 160, PeakScore: 90, Severity: model.SeverityCritical},
		{PeakTime: 400, WindowStart: 390, WindowEnd: 410, PeakScore: 50, Severity: model.SeverityModerate},
	}
	once := Merge(eps, 60)
	twice := Merge(once, 60)
	if len(once) != len(twice) {
		t.Fatalf("merge not idempotent: %d then %d episodes", len(once), len(twice))
	}
	for i := range once {
		if once[i].PeakTime != twice[i].PeakTime || once[i].PeakScore != twice[i].PeakScore {
			t.Fatalf("merge not idempotent at index %d", i)
		}
	}
	// 100 and 150 fold into the higher-scoring 150; 400 stays.
	if len(once) != 2 || once[0].PeakTime != 150 || once[0].WindowStart != 90 {
		t.Errorf("merged = %+v, want peak 150 with window from 90", once[0])
	}
}

func TestMergeTransitive(t *testing.T) {
	// 100-150-200: each neighbor within 60s, ends within one episode even
	// though 100 and 200 are 100s apart.
	eps := []model.DangerEpisode{
		{PeakTime: 100, WindowStart: 95, WindowEnd: 105, PeakScore: 60},
		{PeakTime: 150, WindowStart: 145, WindowEnd: 155, PeakScore: 65},
		{PeakTime: 200, WindowStart: 195, WindowEnd: 205, PeakScore: 70},
	}
	out := Merge(eps, 60)
	if len(out) != 1 {
		t.Fatalf("got %d episodes, want 1 after transitive merge", len(out))
	}
	if out[0].PeakScore != 70 || out[0].WindowStart != 95 || out[0].WindowEnd != 205 {
		t.Errorf("merged = %+v, want score 70 window [95,205]", out[0])
	}
}

func TestPercentile(t *testing.T) {
	vals := []float64{10, 20, 30, 40, 50}
	cases := []struct {
		p    float64
		want float64
	}{
		{0, 10},
		{50, 30},
		{70, 38}, // rank 2.8: 30 + 0.8*(40-30)
		{100, 50},
	}
	for _, c := range cases {
		if got := percentile(vals, c.p); math.Abs(got-c.want) > 1e-9 {
			t.Errorf("percentile(%.0f) = %.2f, want %.2f", c.p, got, c.want)
		}
	}
}

func TestClassifyBoundaries(t *testing.T) {
	cases := []struct {
		score float64
		goal  bool
		want  model.Severity
	}{
		{85, false, model.SeverityCritical},
		{84.9, false, model.SeverityHigh},
		{70, false, model.SeverityHigh},
		{69.9, false, model.SeverityModerate},
		{40, false, model.SeverityModerate},
		{45, true, model.SeverityCritical},
	}
	for _, c := range cases {
		if got := classify(c.score, c.goal); got != c.want {
			t.Errorf("classify(%.1f, %v) = %v, want %v", c.score, c.goal, got, c.want)
		}
	}
}
