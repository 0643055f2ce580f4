// Package risk converts a match's event timeline into the per-second
// defensive risk series.
package risk

import (
	"github.com/defstats/go-match-risk/internal/config"
	"github.com/defstats/go-match-risk/internal/model"
)

// Scorer computes risk series from event timelines. Stateless; safe for
// concurrent use across matches.
type Scorer struct {
	cfg *config.Config
}

func NewScorer(cfg *config.Config) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score returns the full risk series for the match, one RiskPoint per integer
// second in [0, DurationSec]. Deterministic given the same timeline and
// weights.
func (s *Scorer) Score(m *model.Match) []model.RiskPoint {
	n := m.DurationSec + 1
	if n < 1 {
		return nil
	}
	series := make([]model.RiskPoint, n)

	// ---- Pass 1: raw score ----
	// Opponent and own weights both add positively; simultaneous opponent
	// attack and own deep defending compound.
	for _, iv := range m.Events {
		w := s.cfg.Weight(iv.Code, iv.Side)
		if w == 0 {
			continue
		}
		lo := int(iv.StartSec)
		if float64(lo) < iv.StartSec {
			lo++
		}
		hi := int(iv.EndSec)
		if lo < 0 {
			lo = 0
		}
		if hi > m.DurationSec {
			hi = m.DurationSec
		}
		for t := lo; t <= hi; t++ {
			series[t].RawScore += w
		}
	}
	for t := range series {
		series[t].Second = t
	}

	// ---- Pass 2: centered moving average, truncated at the boundaries ----
	half := s.cfg.SmoothingWindowSec / 2
	prefix := make([]float64, n+1)
	for t := 0; t < n; t++ {
		prefix[t+1] = prefix[t] + series[t].RawScore
	}
	for t := 0; t < n; t++ {
		lo := t - half
		if lo < 0 {
			lo = 0
		}
		hi := t + half
		if hi > n-1 {
			hi = n - 1
		}
		series[t].SmoothedScore = (prefix[hi+1] - prefix[lo]) / float64(hi-lo+1)
	}

	// ---- Pass 3: normalize and clamp ----
	for t := range series {
		v := series[t].SmoothedScore / s.cfg.NormalizationMax * 100
		if v < 0 {
			v = 0
		}
		if v > 100 {
			v = 100
		}
		series[t].NormalizedScore = v
	}

	// ---- Pass 4: goal spike override ----
	// Output clamp only; the smoothed values above are left untouched so the
	// spike never bleeds into neighboring seconds.
	if s.cfg.GoalSpikeSec > 0 {
		for _, iv := range m.Events {
			if iv.Code != model.CodeGoals || iv.Side != model.SideOpponent {
				continue
			}
			end := int(iv.EndSec)
			lo := end - s.cfg.GoalSpikeSec + 1
			if float64(lo) < iv.StartSec {
				lo = int(iv.StartSec)
			}
			if lo < 0 {
				lo = 0
			}
			if end > m.DurationSec {
				end = m.DurationSec
			}
			for t := lo; t <= end; t++ {
				series[t].NormalizedScore = 100
			}
		}
	}

	return series
}
