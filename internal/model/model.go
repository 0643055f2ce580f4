package model

import (
	"fmt"
	"sort"
)

// Side says which team an event interval was tagged against.
type Side int

const (
	SideUnknown  Side = 0
	SideOwn      Side = 1
	SideOpponent Side = 2
)

func (s Side) String() string {
	switch s {
	case SideOwn:
		return "own"
	case SideOpponent:
		return "opponent"
	default:
		return "?"
	}
}

// ParseSide maps the tagging source's side label onto a Side.
func ParseSide(s string) Side {
	switch s {
	case "own":
		return SideOwn
	case "opponent":
		return SideOpponent
	default:
		return SideUnknown
	}
}

// EventCode is a tactical phase label from the tagging source.
// Codes keep the source's exact spelling (upper case, spaces).
type EventCode string

const (
	CodeGoals               EventCode = "GOALS"
	CodeBallInTheBox        EventCode = "BALL IN THE BOX"
	CodeBallInFinalThird    EventCode = "BALL IN FINAL THIRD"
	CodeCreatingChances     EventCode = "CREATING CHANCES"
	CodeAttackingTransition EventCode = "ATTACKING TRANSITION"
	CodeDefensiveTransition EventCode = "DEFENSIVE TRANSITION"
	CodeProgression         EventCode = "PROGRESSION"
	CodeBuildUp             EventCode = "BUILD UP"
	CodeSetPieces           EventCode = "SET PIECES"
	CodePlayersInTheBox     EventCode = "PLAYERS IN THE BOX"
	CodeDefendingDefThird   EventCode = "DEFENDING IN DEF THIRD"
)

// EventInterval is one tagged span of match time. Immutable once parsed.
// Intervals may overlap freely, both in time and in code.
type EventInterval struct {
	Code     EventCode
	Side     Side
	StartSec float64
	EndSec   float64
}

// ActiveAt reports whether the interval covers second t.
// Activity is inclusive of both endpoint seconds.
func (iv EventInterval) ActiveAt(t int) bool {
	return float64(t) >= iv.StartSec && float64(t) <= iv.EndSec
}

// InvalidIntervalError reports a malformed interval in an ingested match.
// It aborts that match's pipeline only; other matches are unaffected.
type InvalidIntervalError struct {
	MatchID string
	Code    EventCode
	Start   float64
	End     float64
	Reason  string
}

func (e *InvalidIntervalError) Error() string {
	return fmt.Sprintf("invalid interval %s [%.1f,%.1f] in match %s: %s",
		e.Code, e.Start, e.End, e.MatchID, e.Reason)
}

// Match holds one match's identity plus its full event timeline.
type Match struct {
	ID          string // content hash of the source document
	Name        string // e.g. "vs Real Sociedad (A)"
	Competition string
	MatchDate   string // "YYYY-MM-DD"
	DurationSec int    // inclusive of stoppage-time extension
	Events      []EventInterval
}

// ActiveCodesAt returns the set of codes with an interval active at second t.
func (m *Match) ActiveCodesAt(t int) map[EventCode]struct{} {
	out := make(map[EventCode]struct{})
	for _, iv := range m.Events {
		if iv.ActiveAt(t) {
			out[iv.Code] = struct{}{}
		}
	}
	return out
}

// ConcededGoalTimes returns the start seconds of opponent GOALS intervals,
// sorted ascending. These are the goals the tracked team conceded.
func (m *Match) ConcededGoalTimes() []int {
	var times []int
	for _, iv := range m.Events {
		if iv.Code == CodeGoals && iv.Side == SideOpponent {
			times = append(times, int(iv.StartSec))
		}
	}
	sort.Ints(times)
	return times
}

// RiskPoint is one second of the per-match risk series.
type RiskPoint struct {
	Second          int
	RawScore        float64
	SmoothedScore   float64
	NormalizedScore float64
}

// Severity classifies a danger episode by peak score, with a goal override.
type Severity int

const (
	SeverityModerate Severity = 1
	SeverityHigh     Severity = 2
	SeverityCritical Severity = 3
)

func (s Severity) String() string {
	switch s {
	case SeverityModerate:
		return "moderate"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "?"
	}
}

// ParseSeverity maps a stored severity label back onto a Severity.
func ParseSeverity(s string) Severity {
	switch s {
	case "moderate":
		return SeverityModerate
	case "high":
		return SeverityHigh
	case "critical":
		return SeverityCritical
	default:
		return 0
	}
}

// DangerEpisode is a time-bounded spike in the risk series. Owned by its
// parent match; never mutated after merge resolution completes.
type DangerEpisode struct {
	PeakTime       int
	WindowStart    int
	WindowEnd      int
	PeakScore      float64
	Severity       Severity
	ActiveCodes    map[EventCode]struct{}
	ResultedInGoal bool

	// Fingerprint is attached after corpus-wide stopword derivation; empty
	// means the episode is excluded from pattern mining.
	Fingerprint []EventCode
}

// CodesSorted returns ActiveCodes as a sorted slice for stable output.
func (d *DangerEpisode) CodesSorted() []EventCode {
	out := make([]EventCode, 0, len(d.ActiveCodes))
	for c := range d.ActiveCodes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PatternOccurrence ties a pattern back to one danger episode.
type PatternOccurrence struct {
	MatchID        string
	EpisodeIdx     int
	PeakTime       int
	ResultedInGoal bool
}

// Pattern is a corpus-wide cluster of similar fingerprints.
type Pattern struct {
	Sequence    []EventCode
	Occurrences []PatternOccurrence
	MatchCount  int
	GoalCount   int

	GoalRate     float64
	BaselineRate float64
	Lift         float64

	PosteriorMean float64
	CILow         float64 // 90% credible interval
	CIHigh        float64
	PGtBaseline   float64
	Confidence    float64
	Tier          string // "high" | "medium" | "low"

	// AvgTimeToGoalSec is the mean peak→goal delta over goal occurrences
	// within the 120s lookahead; negative when no such occurrence exists.
	AvgTimeToGoalSec float64
}

// MatchSummary is a lightweight record for list/show commands.
type MatchSummary struct {
	ID            string
	Name          string
	Competition   string
	MatchDate     string
	DurationSec   int
	EventCount    int
	GoalsConceded int
	EpisodeCount  int
	CriticalCount int
}
