// Package danger finds, goal-anchors, merges, and classifies danger episodes
// in a per-second risk series.
package danger

import (
	"sort"

	"github.com/defstats/go-match-risk/internal/config"
	"github.com/defstats/go-match-risk/internal/model"
)

// Detector runs episode detection for one match at a time. Stateless; safe
// for concurrent use across matches.
type Detector struct {
	cfg *config.Config
}

func NewDetector(cfg *config.Config) *Detector {
	return &Detector{cfg: cfg}
}

type peak struct {
	time  int
	score float64
}

// Detect returns the match's danger episodes, ordered by peak time.
// A series shorter than twice the minimum peak distance yields an empty
// list: a legitimate low-action match, not an error.
func (d *Detector) Detect(m *model.Match, series []model.RiskPoint) []model.DangerEpisode {
	det := d.cfg.Detector
	if len(series) < 2*det.MinDistanceSec {
		return nil
	}

	norm := make([]float64, len(series))
	for i, p := range series {
		norm[i] = p.NormalizedScore
	}

	// ---- Pass 1: detection threshold ----
	threshold := percentile(norm, det.PeakPercentile)
	if threshold < det.ThresholdFloor {
		threshold = det.ThresholdFloor
	}

	// ---- Pass 2: peak finding ----
	peaks := acceptPeaks(candidatePeaks(norm, threshold, det.Prominence), det.MinDistanceSec)

	// ---- Pass 3: tolerance-band windows ----
	// Advisory until the merge pass; capped at neighboring accepted peaks.
	episodes := make([]model.DangerEpisode, 0, len(peaks))
	for i, pk := range peaks {
		lo, hi := 0, len(norm)-1
		if i > 0 {
			lo = peaks[i-1].time + 1
		}
		if i < len(peaks)-1 {
			hi = peaks[i+1].time - 1
		}
		ws, we := toleranceWindow(norm, pk, det.Prominence, lo, hi)
		episodes = append(episodes, model.DangerEpisode{
			PeakTime:    pk.time,
			WindowStart: ws,
			WindowEnd:   we,
			PeakScore:   pk.score,
		})
	}

	// ---- Pass 4: goal anchoring ----
	// Every conceded goal maps to exactly one episode with resulted_in_goal.
	for _, goal := range m.ConcededGoalTimes() {
		g := goal
		if g > len(norm)-1 {
			g = len(norm) - 1
		}
		lo := g - det.GoalLookbackSec
		if lo < 0 {
			lo = 0
		}
		anchor := lo
		for t := lo; t <= g; t++ {
			if norm[t] > norm[anchor] {
				anchor = t
			}
		}

		// Promote a peak within 5s of the anchor rather than duplicating it.
		best := -1
		for i := range episodes {
			dist := episodes[i].PeakTime - anchor
			if dist < 0 {
				dist = -dist
			}
			if dist <= 5 && (best < 0 || closer(episodes[i].PeakTime, anchor, episodes[best].PeakTime)) {
				best = i
			}
		}
		if best >= 0 {
			episodes[best].ResultedInGoal = true
			continue
		}
		ws, we := toleranceWindow(norm, peak{anchor, norm[anchor]}, det.Prominence, 0, len(norm)-1)
		episodes = append(episodes, model.DangerEpisode{
			PeakTime:       anchor,
			WindowStart:    ws,
			WindowEnd:      we,
			PeakScore:      norm[anchor],
			ResultedInGoal: true,
		})
	}

	// ---- Pass 5: transitive merging ----
	episodes = Merge(episodes, det.MergeWindowSec)

	// ---- Pass 6: severity + active codes ----
	for i := range episodes {
		episodes[i].Severity = classify(episodes[i].PeakScore, episodes[i].ResultedInGoal)
		episodes[i].ActiveCodes = windowCodes(m, episodes[i].WindowStart, episodes[i].WindowEnd)
	}

	sort.Slice(episodes, func(i, j int) bool { return episodes[i].PeakTime < episodes[j].PeakTime })
	return episodes
}

// Merge repeatedly folds episode pairs whose peaks are within windowSec of
// each other until no such pair remains. Idempotent on an already-merged list.
func Merge(episodes []model.DangerEpisode, windowSec int) []model.DangerEpisode {
	out := make([]model.DangerEpisode, len(episodes))
	copy(out, episodes)
	for {
		sort.Slice(out, func(i, j int) bool { return out[i].PeakTime < out[j].PeakTime })
		merged := false
		for i := 0; i+1 < len(out); i++ {
			if out[i+1].PeakTime-out[i].PeakTime > windowSec {
				continue
			}
			out[i] = mergePair(out[i], out[i+1])
			out = append(out[:i+1], out[i+2:]...)
			merged = true
			break
		}
		if !merged {
			return out
		}
	}
}

func mergePair(a, b model.DangerEpisode) model.DangerEpisode {
	win := a
	if b.PeakScore > a.PeakScore {
		win = b
	}
	m := model.DangerEpisode{
		PeakTime:       win.PeakTime,
		PeakScore:      win.PeakScore,
		WindowStart:    min(a.WindowStart, b.WindowStart),
		WindowEnd:      max(a.WindowEnd, b.WindowEnd),
		ResultedInGoal: a.ResultedInGoal || b.ResultedInGoal,
	}
	if a.Severity > b.Severity {
		m.Severity = a.Severity
	} else {
		m.Severity = b.Severity
	}
	if a.ActiveCodes != nil || b.ActiveCodes != nil {
		m.ActiveCodes = make(map[model.EventCode]struct{}, len(a.ActiveCodes)+len(b.ActiveCodes))
		for c := range a.ActiveCodes {
			m.ActiveCodes[c] = struct{}{}
		}
		for c := range b.ActiveCodes {
			m.ActiveCodes[c] = struct{}{}
		}
	}
	return m
}

// candidatePeaks returns local maxima above threshold with sufficient
// prominence. Plateaus report their first second.
func candidatePeaks(norm []float64, threshold, minProm float64) []peak {
	var out []peak
	n := len(norm)
	for i := 0; i < n; i++ {
		v := norm[i]
		if v < threshold {
			continue
		}
		if i > 0 && norm[i-1] >= v {
			continue // not a rise, or mid-plateau
		}
		// Find the plateau end; require a drop (or boundary) after it.
		j := i
		for j+1 < n && norm[j+1] == v {
			j++
		}
		if j+1 < n && norm[j+1] > v {
			continue
		}
		if prominence(norm, i, v) >= minProm {
			out = append(out, peak{time: i, score: v})
		}
		i = j
	}
	return out
}

// prominence is the peak's height above the higher of the two valley minima
// flanking it, each taken out to the nearest strictly-higher point or the
// series boundary.
func prominence(norm []float64, i int, v float64) float64 {
	leftMin := v
	for t := i - 1; t >= 0; t-- {
		if norm[t] > v {
			break
		}
		if norm[t] < leftMin {
			leftMin = norm[t]
		}
	}
	rightMin := v
	for t := i + 1; t < len(norm); t++ {
		if norm[t] > v {
			break
		}
		if norm[t] < rightMin {
			rightMin = norm[t]
		}
	}
	base := leftMin
	if rightMin > base {
		base = rightMin
	}
	return v - base
}

// acceptPeaks keeps candidates in score-descending (then time-ascending)
// order, suppressing any candidate within minDistance of an accepted peak.
func acceptPeaks(cands []peak, minDistance int) []peak {
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score > cands[j].score
		}
		return cands[i].time < cands[j].time
	})
	var accepted []peak
	for _, c := range cands {
		ok := true
		for _, a := range accepted {
			dist := c.time - a.time
			if dist < 0 {
				dist = -dist
			}
			if dist < minDistance {
				ok = false
				break
			}
		}
		if ok {
			accepted = append(accepted, c)
		}
	}
	sort.Slice(accepted, func(i, j int) bool { return accepted[i].time < accepted[j].time })
	return accepted
}

// toleranceWindow extends outward from the peak while the score stays within
// the band [peak-prominence, peak], bounded by [lo, hi].
func toleranceWindow(norm []float64, pk peak, prom float64, lo, hi int) (int, int) {
	band := pk.score - prom
	ws := pk.time
	for ws-1 >= lo && norm[ws-1] >= band {
		ws--
	}
	we := pk.time
	for we+1 <= hi && norm[we+1] >= band {
		we++
	}
	return ws, we
}

func classify(score float64, goal bool) model.Severity {
	switch {
	case goal || score >= 85:
		return model.SeverityCritical
	case score >= 70:
		return model.SeverityHigh
	default:
		return model.SeverityModerate
	}
}

func windowCodes(m *model.Match, start, end int) map[model.EventCode]struct{} {
	out := make(map[model.EventCode]struct{})
	for _, iv := range m.Events {
		lo := int(iv.StartSec)
		hi := int(iv.EndSec)
		if hi < start || lo > end {
			continue
		}
		// Confirm an integer second inside the window is covered.
		for t := max(start, lo); t <= min(end, hi); t++ {
			if iv.ActiveAt(t) {
				out[iv.Code] = struct{}{}
				break
			}
		}
	}
	return out
}

// percentile computes the p-th percentile with linear interpolation between
// order statistics.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(rank)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[lo+1]*frac
}

func closer(a, anchor, b int) bool {
	da, db := a-anchor, b-anchor
	if da < 0 {
		da = -da
	}
	if db < 0 {
		db = -db
	}
	return da < db
}
