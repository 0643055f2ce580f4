package storage

import (
	"database/sql"
	"fmt"

	"github.com/defstats/go-match-risk/internal/model"
)

// ListMatches returns summaries for all stored matches, newest first.
func (db *DB) ListMatches() ([]model.MatchSummary, error) {
	rows, err := db.conn.Query(`
		SELECT m.id, m.name, m.competition, m.match_date, m.duration_sec,
		       (SELECT COUNT(1) FROM events e WHERE e.match_id = m.id),
		       (SELECT COUNT(1) FROM events e WHERE e.match_id = m.id
		          AND e.code = 'GOALS' AND e.side = 'opponent'),
		       (SELECT COUNT(1) FROM danger_episodes d WHERE d.match_id = m.id),
		       (SELECT COUNT(1) FROM danger_episodes d WHERE d.match_id = m.id
		          AND d.severity = 'critical')
		FROM matches m ORDER BY m.match_date DESC, m.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.MatchSummary
	for rows.Next() {
		var s model.MatchSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Competition, &s.MatchDate, &s.DurationSec,
			&s.EventCount, &s.GoalsConceded, &s.EpisodeCount, &s.CriticalCount); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetMatchByPrefix finds the first match whose id starts with the given
// prefix. Returns nil without error when nothing matches.
func (db *DB) GetMatchByPrefix(prefix string) (*model.Match, error) {
	var id string
	err := db.conn.QueryRow(
		"SELECT id FROM matches WHERE id LIKE ? ORDER BY id LIMIT 1", prefix+"%").Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return db.GetMatch(id)
}

// GetMatch loads a match header plus its full event timeline.
func (db *DB) GetMatch(id string) (*model.Match, error) {
	m := &model.Match{ID: id}
	err := db.conn.QueryRow(`
		SELECT name, competition, match_date, duration_sec
		FROM matches WHERE id = ?`, id).
		Scan(&m.Name, &m.Competition, &m.MatchDate, &m.DurationSec)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("unknown match %q", id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := db.conn.Query(`
		SELECT code, side, start_sec, end_sec
		FROM events WHERE match_id = ? ORDER BY idx`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var code, side string
		var iv model.EventInterval
		if err := rows.Scan(&code, &side, &iv.StartSec, &iv.EndSec); err != nil {
			return nil, err
		}
		iv.Code = model.EventCode(code)
		iv.Side = model.ParseSide(side)
		m.Events = append(m.Events, iv)
	}
	return m, rows.Err()
}

// GetAllMatches loads every stored match with its timeline, in id order.
func (db *DB) GetAllMatches() ([]*model.Match, error) {
	rows, err := db.conn.Query("SELECT id FROM matches ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]*model.Match, 0, len(ids))
	for _, id := range ids {
		m, err := db.GetMatch(id)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// GetRiskSeries returns the stored per-second series for a match.
func (db *DB) GetRiskSeries(matchID string) ([]model.RiskPoint, error) {
	rows, err := db.conn.Query(`
		SELECT second, raw_score, smoothed_score, normalized_score
		FROM risk_points WHERE match_id = ? ORDER BY second`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RiskPoint
	for rows.Next() {
		var p model.RiskPoint
		if err := rows.Scan(&p.Second, &p.RawScore, &p.SmoothedScore, &p.NormalizedScore); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetEpisodes returns the stored episodes for a match, ordered by peak time.
func (db *DB) GetEpisodes(matchID string) ([]model.DangerEpisode, error) {
	rows, err := db.conn.Query(`
		SELECT peak_time, window_start, window_end, peak_score, severity,
		       resulted_in_goal, active_codes, fingerprint
		FROM danger_episodes WHERE match_id = ? ORDER BY peak_time`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.DangerEpisode
	for rows.Next() {
		var ep model.DangerEpisode
		var severity, codes, fp string
		var goalInt int
		if err := rows.Scan(&ep.PeakTime, &ep.WindowStart, &ep.WindowEnd,
			&ep.PeakScore, &severity, &goalInt, &codes, &fp); err != nil {
			return nil, err
		}
		ep.Severity = model.ParseSeverity(severity)
		ep.ResultedInGoal = goalInt != 0
		ep.Fingerprint = splitCodes(fp)
		if cs := splitCodes(codes); cs != nil {
			ep.ActiveCodes = make(map[model.EventCode]struct{}, len(cs))
			for _, c := range cs {
				ep.ActiveCodes[c] = struct{}{}
			}
		}
		out = append(out, ep)
	}
	return out, rows.Err()
}

// GetPatterns returns the stored corpus patterns with their occurrence lists,
// in stored (confidence-descending) order.
func (db *DB) GetPatterns() ([]model.Pattern, error) {
	rows, err := db.conn.Query(`
		SELECT idx, sequence, match_count, goal_count, goal_rate, baseline_rate, lift,
		       posterior_mean, ci_low, ci_high, p_gt_baseline, confidence, tier, avg_time_to_goal
		FROM patterns ORDER BY idx`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Pattern
	var idxs []int
	for rows.Next() {
		var p model.Pattern
		var idx int
		var seq string
		if err := rows.Scan(&idx, &seq, &p.MatchCount, &p.GoalCount, &p.GoalRate,
			&p.BaselineRate, &p.Lift, &p.PosteriorMean, &p.CILow, &p.CIHigh,
			&p.PGtBaseline, &p.Confidence, &p.Tier, &p.AvgTimeToGoalSec); err != nil {
			return nil, err
		}
		p.Sequence = splitCodes(seq)
		out = append(out, p)
		idxs = append(idxs, idx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, idx := range idxs {
		occRows, err := db.conn.Query(`
			SELECT match_id, episode_idx, peak_time, resulted_in_goal
			FROM pattern_occurrences WHERE pattern_idx = ?
			ORDER BY match_id, peak_time`, idx)
		if err != nil {
			return nil, err
		}
		for occRows.Next() {
			var occ model.PatternOccurrence
			var goalInt int
			if err := occRows.Scan(&occ.MatchID, &occ.EpisodeIdx, &occ.PeakTime, &goalInt); err != nil {
				occRows.Close()
				return nil, err
			}
			occ.ResultedInGoal = goalInt != 0
			out[i].Occurrences = append(out[i].Occurrences, occ)
		}
		if err := occRows.Err(); err != nil {
			occRows.Close()
			return nil, err
		}
		occRows.Close()
	}
	return out, nil
}

// Overview aggregates corpus totals for the summary command.
type Overview struct {
	Matches        int
	Episodes       int
	GoalEpisodes   int
	CriticalCount  int
	GoalsConceded  int
	PatternsByTier map[string]int
}

// GetOverview computes corpus-wide totals.
func (db *DB) GetOverview() (*Overview, error) {
	ov := &Overview{PatternsByTier: make(map[string]int)}
	err := db.conn.QueryRow(`
		SELECT (SELECT COUNT(1) FROM matches),
		       (SELECT COUNT(1) FROM danger_episodes),
		       (SELECT COUNT(1) FROM danger_episodes WHERE resulted_in_goal = 1),
		       (SELECT COUNT(1) FROM danger_episodes WHERE severity = 'critical'),
		       (SELECT COUNT(1) FROM events WHERE code = 'GOALS' AND side = 'opponent')`).
		Scan(&ov.Matches, &ov.Episodes, &ov.GoalEpisodes, &ov.CriticalCount, &ov.GoalsConceded)
	if err != nil {
		return nil, err
	}

	rows, err := db.conn.Query("SELECT tier, COUNT(1) FROM patterns GROUP BY tier")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var tier string
		var n int
		if err := rows.Scan(&tier, &n); err != nil {
			return nil, err
		}
		ov.PatternsByTier[tier] = n
	}
	return ov, rows.Err()
}

// QueryRaw runs an arbitrary query and returns column names plus stringified
// rows, for the sql escape-hatch command.
func (db *DB) QueryRaw(query string) ([]string, [][]string, error) {
	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var out [][]string
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		row := make([]string, len(cols))
		for i, v := range raw {
			switch x := v.(type) {
			case nil:
				row[i] = "NULL"
			case []byte:
				row[i] = string(x)
			default:
				row[i] = fmt.Sprintf("%v", x)
			}
		}
		out = append(out, row)
	}
	return cols, out, rows.Err()
}
