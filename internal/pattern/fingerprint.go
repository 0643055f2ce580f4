// Package pattern derives episode fingerprints and mines recurring
// cross-match patterns with calibrated confidence.
package pattern

import (
	"sort"

	"github.com/defstats/go-match-risk/internal/config"
	"github.com/defstats/go-match-risk/internal/model"
)

// Extractor derives the ordered code sequence leading into a danger episode.
type Extractor struct {
	cfg *config.Config
}

func NewExtractor(cfg *config.Config) *Extractor {
	return &Extractor{cfg: cfg}
}

// EntrySequence returns the codes that transition from inactive to active in
// the lookback window before the episode peak, deduplicated in
// first-entry order. This is the raw sequence; stopword filtering and
// truncation happen in Fingerprint once the corpus stopword set is known.
func (e *Extractor) EntrySequence(m *model.Match, peakTime int) []model.EventCode {
	lo := peakTime - e.cfg.Miner.FingerprintWindowSec
	if lo < 0 {
		lo = 0
	}

	seen := make(map[model.EventCode]struct{})
	var seq []model.EventCode
	for t := lo; t <= peakTime; t++ {
		for _, iv := range m.Events {
			if !iv.ActiveAt(t) {
				continue
			}
			if t > 0 && iv.ActiveAt(t-1) {
				continue // already active, not an entry
			}
			if _, ok := seen[iv.Code]; ok {
				continue
			}
			seen[iv.Code] = struct{}{}
			seq = append(seq, iv.Code)
		}
	}
	return seq
}

// DeriveStopwords returns the codes present in at least the configured share
// of entry sequences, always including GOALS. Recomputed on every full
// mining pass since the set is corpus-dependent.
func (e *Extractor) DeriveStopwords(sequences [][]model.EventCode) map[model.EventCode]struct{} {
	stop := map[model.EventCode]struct{}{model.CodeGoals: {}}
	if len(sequences) == 0 {
		return stop
	}
	counts := make(map[model.EventCode]int)
	for _, seq := range sequences {
		for _, c := range seq {
			counts[c]++
		}
	}
	cutoff := e.cfg.Miner.StopwordPresence * float64(len(sequences))
	for c, n := range counts {
		if float64(n) >= cutoff {
			stop[c] = struct{}{}
		}
	}
	return stop
}

// Fingerprint filters the entry sequence against the stopword set and keeps
// the top codes by static weight (opponent primary, own secondary), in
// original entry order. An empty result excludes the episode from mining.
func (e *Extractor) Fingerprint(seq []model.EventCode, stopwords map[model.EventCode]struct{}) []model.EventCode {
	type ranked struct {
		code model.EventCode
		pos  int
	}
	var kept []ranked
	for i, c := range seq {
		if _, ok := stopwords[c]; ok {
			continue
		}
		kept = append(kept, ranked{code: c, pos: i})
	}
	if len(kept) == 0 {
		return nil
	}
	if k := e.cfg.Miner.TopKCodes; len(kept) > k {
		sort.SliceStable(kept, func(i, j int) bool {
			oi, wi := e.cfg.RankWeight(kept[i].code)
			oj, wj := e.cfg.RankWeight(kept[j].code)
			if oi != oj {
				return oi > oj
			}
			if wi != wj {
				return wi > wj
			}
			return kept[i].pos < kept[j].pos
		})
		kept = kept[:k]
		sort.Slice(kept, func(i, j int) bool { return kept[i].pos < kept[j].pos })
	}
	out := make([]model.EventCode, len(kept))
	for i, r := range kept {
		out[i] = r.code
	}
	return out
}
