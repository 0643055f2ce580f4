// Package corpus orchestrates per-match risk pipelines across the full match
// set and serves cached query results to the CLI and the HTTP surface.
package corpus

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/defstats/go-match-risk/internal/config"
	"github.com/defstats/go-match-risk/internal/danger"
	"github.com/defstats/go-match-risk/internal/model"
	"github.com/defstats/go-match-risk/internal/pattern"
	"github.com/defstats/go-match-risk/internal/risk"
)

// MatchArtifacts is everything derived for one match. Immutable after Load.
type MatchArtifacts struct {
	Match    *model.Match
	Series   []model.RiskPoint
	Episodes []model.DangerEpisode

	// Sequences holds the raw pre-peak entry sequence per episode, kept so
	// the corpus-wide stopword pass can run after all matches join.
	Sequences [][]model.EventCode
}

// WindowSummary aggregates risk and event activity over a sub-interval.
type WindowSummary struct {
	MatchID       string
	StartSec      int
	EndSec        int
	AvgRisk       float64
	MaxRisk       float64
	MaxRiskSecond int
	EventCounts   map[model.EventCode]int
	EpisodeCount  int
}

// Aggregator caches per-match artifacts and the corpus-wide pattern pass.
// Populate with Load before any concurrent reads; queries never mutate.
type Aggregator struct {
	cfg       *config.Config
	scorer    *risk.Scorer
	detector  *danger.Detector
	extractor *pattern.Extractor
	miner     *pattern.Miner

	byID      map[string]*MatchArtifacts
	order     []string
	patterns  []model.Pattern
	stopwords map[model.EventCode]struct{}
}

func New(cfg *config.Config) *Aggregator {
	return &Aggregator{
		cfg:       cfg,
		scorer:    risk.NewScorer(cfg),
		detector:  danger.NewDetector(cfg),
		extractor: pattern.NewExtractor(cfg),
		miner:     pattern.NewMiner(cfg),
		byID:      make(map[string]*MatchArtifacts),
	}
}

// Load runs the per-match pipelines across workers, joins the results, and
// runs the single-threaded corpus pattern pass. It replaces any previous
// corpus; matches are immutable so there is no partial invalidation.
func (a *Aggregator) Load(ctx context.Context, matches []*model.Match, workers int) error {
	if workers < 1 {
		workers = 1
	}

	// ---- Fork: one pure pipeline per match ----
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	results := make(chan *MatchArtifacts, len(matches))
	for _, m := range matches {
		m := m
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			results <- a.pipeline(m)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("corpus load: %w", err)
	}
	close(results)

	// ---- Join: single-threaded from here on ----
	byID := make(map[string]*MatchArtifacts, len(matches))
	for art := range results {
		byID[art.Match.ID] = art
	}
	order := make([]string, 0, len(byID))
	for id := range byID {
		order = append(order, id)
	}
	sort.Strings(order)

	a.byID = byID
	a.order = order
	a.remine()
	return nil
}

// pipeline is the pure per-match stage: score, detect, extract sequences.
func (a *Aggregator) pipeline(m *model.Match) *MatchArtifacts {
	series := a.scorer.Score(m)
	episodes := a.detector.Detect(m, series)
	sequences := make([][]model.EventCode, len(episodes))
	for i, ep := range episodes {
		sequences[i] = a.extractor.EntrySequence(m, ep.PeakTime)
	}
	return &MatchArtifacts{Match: m, Series: series, Episodes: episodes, Sequences: sequences}
}

// remine recomputes stopwords, fingerprints, and patterns over the whole
// corpus. The mining barrier: runs only after every pipeline has joined.
func (a *Aggregator) remine() {
	var allSeqs [][]model.EventCode
	for _, id := range a.order {
		allSeqs = append(allSeqs, a.byID[id].Sequences...)
	}
	a.stopwords = a.extractor.DeriveStopwords(allSeqs)

	var inputs []pattern.Input
	for _, id := range a.order {
		art := a.byID[id]
		goals := art.Match.ConcededGoalTimes()
		for i := range art.Episodes {
			fp := a.extractor.Fingerprint(art.Sequences[i], a.stopwords)
			art.Episodes[i].Fingerprint = fp
			if fp == nil {
				continue // fully stopword-filtered, excluded from mining
			}
			inputs = append(inputs, pattern.Input{
				MatchID:        id,
				EpisodeIdx:     i,
				PeakTime:       art.Episodes[i].PeakTime,
				ResultedInGoal: art.Episodes[i].ResultedInGoal,
				TimeToGoalSec:  timeToGoal(art.Episodes[i].PeakTime, goals, a.cfg.Miner.TimeToGoalLookahead),
				Sequence:       fp,
			})
		}
	}
	a.patterns = a.miner.Mine(inputs)
}

func timeToGoal(peak int, goals []int, lookahead int) float64 {
	for _, g := range goals {
		if g >= peak && g-peak <= lookahead {
			return float64(g - peak)
		}
	}
	return -1
}

// Stopwords returns the corpus-derived stopword set from the last mining pass.
func (a *Aggregator) Stopwords() map[model.EventCode]struct{} {
	return a.stopwords
}

// RiskSeries returns the cached per-second series for a match.
func (a *Aggregator) RiskSeries(matchID string) ([]model.RiskPoint, error) {
	art, ok := a.byID[matchID]
	if !ok {
		return nil, fmt.Errorf("unknown match %q", matchID)
	}
	return art.Series, nil
}

// Dangers returns the cached episode list for a match, ordered by peak time.
func (a *Aggregator) Dangers(matchID string) ([]model.DangerEpisode, error) {
	art, ok := a.byID[matchID]
	if !ok {
		return nil, fmt.Errorf("unknown match %q", matchID)
	}
	return art.Episodes, nil
}

// Patterns returns the corpus patterns from the last mining pass.
func (a *Aggregator) Patterns() []model.Pattern {
	return a.patterns
}

// Matches returns per-match summaries in stable id order.
func (a *Aggregator) Matches() []model.MatchSummary {
	out := make([]model.MatchSummary, 0, len(a.order))
	for _, id := range a.order {
		art := a.byID[id]
		s := model.MatchSummary{
			ID:            id,
			Name:          art.Match.Name,
			Competition:   art.Match.Competition,
			MatchDate:     art.Match.MatchDate,
			DurationSec:   art.Match.DurationSec,
			EventCount:    len(art.Match.Events),
			GoalsConceded: len(art.Match.ConcededGoalTimes()),
			EpisodeCount:  len(art.Episodes),
		}
		for _, ep := range art.Episodes {
			if ep.Severity == model.SeverityCritical {
				s.CriticalCount++
			}
		}
		out = append(out, s)
	}
	return out
}

// Window reduces the cached series and timeline over [startSec, endSec].
// A simple reduction, not a re-derivation of episodes.
func (a *Aggregator) Window(matchID string, startSec, endSec int) (*WindowSummary, error) {
	art, ok := a.byID[matchID]
	if !ok {
		return nil, fmt.Errorf("unknown match %q", matchID)
	}
	if startSec < 0 {
		startSec = 0
	}
	if endSec > len(art.Series)-1 {
		endSec = len(art.Series) - 1
	}
	if startSec > endSec {
		return nil, fmt.Errorf("invalid window [%d,%d]", startSec, endSec)
	}

	ws := &WindowSummary{
		MatchID:       matchID,
		StartSec:      startSec,
		EndSec:        endSec,
		MaxRiskSecond: startSec,
		EventCounts:   make(map[model.EventCode]int),
	}
	var sum float64
	for t := startSec; t <= endSec; t++ {
		v := art.Series[t].NormalizedScore
		sum += v
		if v > ws.MaxRisk {
			ws.MaxRisk = v
			ws.MaxRiskSecond = t
		}
	}
	ws.AvgRisk = sum / float64(endSec-startSec+1)

	for _, iv := range art.Match.Events {
		if iv.EndSec >= float64(startSec) && iv.StartSec <= float64(endSec) {
			ws.EventCounts[iv.Code]++
		}
	}
	for _, ep := range art.Episodes {
		if ep.WindowEnd >= startSec && ep.WindowStart <= endSec {
			ws.EpisodeCount++
		}
	}
	return ws, nil
}
