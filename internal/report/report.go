// Package report renders terminal tables for the matchrisk CLI.
package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/defstats/go-match-risk/internal/corpus"
	"github.com/defstats/go-match-risk/internal/model"
	"github.com/defstats/go-match-risk/internal/storage"
)

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))
}

// PrintMatchHeader prints a one-line summary header for the match.
func PrintMatchHeader(w io.Writer, s model.MatchSummary) {
	fmt.Fprintf(w, "\n%s  |  %s  |  %s  |  Conceded: %d  |  ID: %s\n\n",
		s.Name, s.Competition, s.MatchDate, s.GoalsConceded, shortID(s.ID))
}

// PrintMatchList prints the stored-matches table.
func PrintMatchList(w io.Writer, matches []model.MatchSummary) {
	table := newTable(w)
	table.Header("ID", "NAME", "COMP", "DATE", "DUR", "EVENTS", "CONCEDED", "EPISODES", "CRIT")
	for _, s := range matches {
		table.Append(
			shortID(s.ID),
			s.Name,
			s.Competition,
			s.MatchDate,
			clock(s.DurationSec),
			strconv.Itoa(s.EventCount),
			strconv.Itoa(s.GoalsConceded),
			strconv.Itoa(s.EpisodeCount),
			strconv.Itoa(s.CriticalCount),
		)
	}
	table.Render()
}

// PrintEpisodeTable prints the danger episodes for one match.
func PrintEpisodeTable(w io.Writer, episodes []model.DangerEpisode) {
	table := newTable(w)
	table.Header("PEAK", "WINDOW", "SCORE", "SEVERITY", "GOAL", "FINGERPRINT", "ACTIVE CODES")
	for _, ep := range episodes {
		goal := ""
		if ep.ResultedInGoal {
			goal = "⚽"
		}
		table.Append(
			clock(ep.PeakTime),
			fmt.Sprintf("%s–%s", clock(ep.WindowStart), clock(ep.WindowEnd)),
			fmt.Sprintf("%.1f", ep.PeakScore),
			strings.ToUpper(ep.Severity.String()),
			goal,
			codeList(ep.Fingerprint),
			codeList(ep.CodesSorted()),
		)
	}
	table.Render()
}

// PrintPatternTable prints mined patterns, confidence-descending as mined.
func PrintPatternTable(w io.Writer, patterns []model.Pattern) {
	table := newTable(w)
	table.Header("TIER", "SEQUENCE", "OCC", "MATCHES", "GOALS", "RATE", "LIFT", "CONF", "90% CI", "T2G")
	for _, p := range patterns {
		t2g := "—"
		if p.AvgTimeToGoalSec >= 0 {
			t2g = fmt.Sprintf("%.0fs", p.AvgTimeToGoalSec)
		}
		table.Append(
			strings.ToUpper(p.Tier),
			codeList(p.Sequence),
			strconv.Itoa(len(p.Occurrences)),
			strconv.Itoa(p.MatchCount),
			strconv.Itoa(p.GoalCount),
			fmt.Sprintf("%.0f%%", p.GoalRate*100),
			fmt.Sprintf("%.2f", p.Lift),
			fmt.Sprintf("%.2f", p.Confidence),
			fmt.Sprintf("%.2f–%.2f", p.CILow, p.CIHigh),
			t2g,
		)
	}
	table.Render()
}

// PrintWindowSummary prints the reduction over an arbitrary sub-interval.
func PrintWindowSummary(w io.Writer, ws *corpus.WindowSummary) {
	fmt.Fprintf(w, "\nWindow %s–%s  |  avg risk %.1f  |  max risk %.1f @ %s  |  episodes %d\n\n",
		clock(ws.StartSec), clock(ws.EndSec), ws.AvgRisk, ws.MaxRisk,
		clock(ws.MaxRiskSecond), ws.EpisodeCount)

	type codeCount struct {
		code model.EventCode
		n    int
	}
	var counts []codeCount
	for c, n := range ws.EventCounts {
		counts = append(counts, codeCount{c, n})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].n != counts[j].n {
			return counts[i].n > counts[j].n
		}
		return counts[i].code < counts[j].code
	})

	table := newTable(w)
	table.Header("CODE", "INTERVALS")
	for _, cc := range counts {
		table.Append(string(cc.code), strconv.Itoa(cc.n))
	}
	table.Render()
}

// PrintOverview prints the corpus summary.
func PrintOverview(w io.Writer, ov *storage.Overview) {
	fmt.Fprintf(w, "\nMatches: %d  |  Episodes: %d  |  Goal episodes: %d  |  Critical: %d  |  Conceded: %d\n",
		ov.Matches, ov.Episodes, ov.GoalEpisodes, ov.CriticalCount, ov.GoalsConceded)
	if len(ov.PatternsByTier) == 0 {
		fmt.Fprintln(w, "Patterns: none")
		return
	}
	fmt.Fprintf(w, "Patterns: high %d  |  medium %d  |  low %d\n",
		ov.PatternsByTier["high"], ov.PatternsByTier["medium"], ov.PatternsByTier["low"])
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// clock renders seconds as M:SS or H:MM:SS match time.
func clock(sec int) string {
	if sec >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", sec/3600, sec%3600/60, sec%60)
	}
	return fmt.Sprintf("%d:%02d", sec/60, sec%60)
}

func codeList(codes []model.EventCode) string {
	if len(codes) == 0 {
		return "—"
	}
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = string(c)
	}
	return strings.Join(parts, " → ")
}
