package pattern

import (
	"sort"

	"github.com/defstats/go-match-risk/internal/config"
	"github.com/defstats/go-match-risk/internal/model"
)

// Input is one fingerprinted episode fed to the miner.
type Input struct {
	MatchID        string
	EpisodeIdx     int
	PeakTime       int
	ResultedInGoal bool

	// TimeToGoalSec is the delta from peak to the next conceded goal within
	// the lookahead horizon; negative when no such goal exists.
	TimeToGoalSec float64

	Sequence []model.EventCode
}

// Miner clusters fingerprints across the corpus. The greedy clustering step
// is order-dependent; Mine sorts its input into a stable order and runs
// single-threaded.
type Miner struct {
	cfg *config.Config
}

func NewMiner(cfg *config.Config) *Miner {
	return &Miner{cfg: cfg}
}

type cluster struct {
	seed    []model.EventCode
	members []Input
}

// Mine clusters the corpus fingerprints and returns the surviving patterns,
// sorted by confidence descending, ties by occurrence count descending.
// An empty or all-filtered corpus yields an empty list, never an error.
func (mn *Miner) Mine(inputs []Input) []model.Pattern {
	m := mn.cfg.Miner

	// ---- Pass 1: stable order, drop undersized sequences ----
	var items []Input
	for _, in := range inputs {
		if len(in.Sequence) >= m.MinPatternLen {
			items = append(items, in)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].MatchID != items[j].MatchID {
			return items[i].MatchID < items[j].MatchID
		}
		return items[i].PeakTime < items[j].PeakTime
	})
	if len(items) == 0 {
		return nil
	}

	// Baseline goal rate over every mined episode.
	goals := 0
	for _, in := range items {
		if in.ResultedInGoal {
			goals++
		}
	}
	baseline := float64(goals) / float64(len(items))

	// ---- Pass 2: greedy clustering against cluster seeds ----
	var clusters []*cluster
	for _, in := range items {
		placed := false
		for _, c := range clusters {
			if Similarity(in.Sequence, c.seed) >= m.MinSimilarity {
				c.members = append(c.members, in)
				placed = true
				break
			}
		}
		if !placed {
			clusters = append(clusters, &cluster{seed: in.Sequence, members: []Input{in}})
		}
	}

	// ---- Pass 3: support, lift, and cause-code filters ----
	var out []model.Pattern
	for _, c := range clusters {
		p, ok := mn.evaluate(c, baseline)
		if ok {
			out = append(out, p)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return len(out[i].Occurrences) > len(out[j].Occurrences)
	})
	return out
}

func (mn *Miner) evaluate(c *cluster, baseline float64) (model.Pattern, bool) {
	m := mn.cfg.Miner

	matches := make(map[string]struct{})
	goals := 0
	var occurrences []model.PatternOccurrence
	var ttgSum float64
	ttgCount := 0
	rep := c.members[0].Sequence
	for _, in := range c.members {
		matches[in.MatchID] = struct{}{}
		if in.ResultedInGoal {
			goals++
			if in.TimeToGoalSec >= 0 {
				ttgSum += in.TimeToGoalSec
				ttgCount++
			}
		}
		if len(in.Sequence) < len(rep) {
			rep = in.Sequence // shortest member keeps the pattern readable
		}
		occurrences = append(occurrences, model.PatternOccurrence{
			MatchID:        in.MatchID,
			EpisodeIdx:     in.EpisodeIdx,
			PeakTime:       in.PeakTime,
			ResultedInGoal: in.ResultedInGoal,
		})
	}

	if len(matches) < m.MinMatches || len(occurrences) < m.MinOccurrences {
		return model.Pattern{}, false
	}
	if m.RequireCauseCode && !hasCauseCode(rep) {
		return model.Pattern{}, false
	}

	goalRate := float64(goals) / float64(len(occurrences))
	lift := 0.0
	if baseline > 0 {
		lift = goalRate / baseline
	}
	if lift < m.MinLift {
		return model.Pattern{}, false
	}

	// Beta(1,1) prior over the per-occurrence goal outcome.
	a := 1 + float64(goals)
	b := 1 + float64(len(occurrences)-goals)
	pGt := 1 - betaCDF(baseline, a, b)
	support := float64(len(occurrences)) / float64(m.SupportTarget)
	if support > 1 {
		support = 1
	}
	confidence := pGt * support

	tail := (1 - m.CILevel) / 2
	p := model.Pattern{
		Sequence:      rep,
		Occurrences:   occurrences,
		MatchCount:    len(matches),
		GoalCount:     goals,
		GoalRate:      goalRate,
		BaselineRate:  baseline,
		Lift:          lift,
		PosteriorMean: a / (a + b),
		CILow:         betaQuantile(tail, a, b),
		CIHigh:        betaQuantile(1-tail, a, b),
		PGtBaseline:   pGt,
		Confidence:    confidence,
		Tier:          mn.tier(confidence),
	}
	if ttgCount > 0 {
		p.AvgTimeToGoalSec = ttgSum / float64(ttgCount)
	} else {
		p.AvgTimeToGoalSec = -1
	}
	return p, true
}

func (mn *Miner) tier(confidence float64) string {
	switch {
	case confidence >= mn.cfg.Miner.TierHigh:
		return "high"
	case confidence >= mn.cfg.Miner.TierMedium:
		return "medium"
	default:
		return "low"
	}
}

func hasCauseCode(seq []model.EventCode) bool {
	for _, c := range seq {
		if _, ok := config.CauseCodes[c]; ok {
			return true
		}
	}
	return false
}

// Similarity is the length of the longest common ordered subsequence divided
// by the length of the longer sequence.
func Similarity(a, b []model.EventCode) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	longer := len(a)
	if len(b) > longer {
		longer = len(b)
	}
	return float64(lcs(a, b)) / float64(longer)
}

func lcs(a, b []model.EventCode) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
			} else if prev[j] >= cur[j-1] {
				cur[j] = prev[j]
			} else {
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
