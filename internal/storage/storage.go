// Package storage persists matches and their derived artifacts in SQLite.
package storage

import (
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/defstats/go-match-risk/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// codeSep joins code lists in TEXT columns. Codes contain spaces, never pipes.
const codeSep = "|"

// DB wraps a sql.DB for the risk store.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database at the given path and applies
// the schema.
func Open(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// MatchExists returns true if a match with the given id is already stored.
func (db *DB) MatchExists(id string) (bool, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(1) FROM matches WHERE id = ?", id).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// InsertMatch stores the match header and its event timeline in one
// transaction. Uses INSERT OR REPLACE for idempotency.
func (db *DB) InsertMatch(m *model.Match) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT OR REPLACE INTO matches(id, name, competition, match_date, duration_sec)
		VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.Name, m.Competition, m.MatchDate, m.DurationSec,
	)
	if err != nil {
		return fmt.Errorf("insert match %s: %w", m.ID, err)
	}
	if _, err := tx.Exec("DELETE FROM events WHERE match_id = ?", m.ID); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO events(match_id, idx, code, side, start_sec, end_sec)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, iv := range m.Events {
		if _, err := stmt.Exec(m.ID, i, string(iv.Code), iv.Side.String(), iv.StartSec, iv.EndSec); err != nil {
			return fmt.Errorf("insert event %d for %s: %w", i, m.ID, err)
		}
	}
	return tx.Commit()
}

// InsertRiskSeries bulk-inserts the per-second series in a transaction.
func (db *DB) InsertRiskSeries(matchID string, series []model.RiskPoint) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM risk_points WHERE match_id = ?", matchID); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT INTO risk_points(match_id, second, raw_score, smoothed_score, normalized_score)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range series {
		if _, err := stmt.Exec(matchID, p.Second, p.RawScore, p.SmoothedScore, p.NormalizedScore); err != nil {
			return fmt.Errorf("insert risk point %d for %s: %w", p.Second, matchID, err)
		}
	}
	return tx.Commit()
}

// InsertEpisodes replaces the stored episode list for a match.
func (db *DB) InsertEpisodes(matchID string, episodes []model.DangerEpisode) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM danger_episodes WHERE match_id = ?", matchID); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT INTO danger_episodes(
			match_id, idx, peak_time, window_start, window_end,
			peak_score, severity, resulted_in_goal, active_codes, fingerprint
		) VALUES (?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, ep := range episodes {
		_, err := stmt.Exec(
			matchID, i, ep.PeakTime, ep.WindowStart, ep.WindowEnd,
			ep.PeakScore, ep.Severity.String(), boolInt(ep.ResultedInGoal),
			joinCodes(ep.CodesSorted()), joinCodes(ep.Fingerprint),
		)
		if err != nil {
			return fmt.Errorf("insert episode %d for %s: %w", i, matchID, err)
		}
	}
	return tx.Commit()
}

// ReplacePatterns swaps the stored corpus patterns for the given set. The
// pattern pass always recomputes the whole corpus, so partial updates never
// happen.
func (db *DB) ReplacePatterns(patterns []model.Pattern) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM pattern_occurrences"); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM patterns"); err != nil {
		return err
	}

	pstmt, err := tx.Prepare(`
		INSERT INTO patterns(
			idx, sequence, match_count, goal_count, goal_rate, baseline_rate, lift,
			posterior_mean, ci_low, ci_high, p_gt_baseline, confidence, tier, avg_time_to_goal
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer pstmt.Close()

	ostmt, err := tx.Prepare(`
		INSERT INTO pattern_occurrences(pattern_idx, match_id, episode_idx, peak_time, resulted_in_goal)
		VALUES (?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer ostmt.Close()

	for i, p := range patterns {
		_, err := pstmt.Exec(
			i, joinCodes(p.Sequence), p.MatchCount, p.GoalCount, p.GoalRate,
			p.BaselineRate, p.Lift, p.PosteriorMean, p.CILow, p.CIHigh,
			p.PGtBaseline, p.Confidence, p.Tier, p.AvgTimeToGoalSec,
		)
		if err != nil {
			return fmt.Errorf("insert pattern %d: %w", i, err)
		}
		for _, occ := range p.Occurrences {
			if _, err := ostmt.Exec(i, occ.MatchID, occ.EpisodeIdx, occ.PeakTime, boolInt(occ.ResultedInGoal)); err != nil {
				return fmt.Errorf("insert occurrence for pattern %d: %w", i, err)
			}
		}
	}
	return tx.Commit()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func joinCodes(codes []model.EventCode) string {
	if len(codes) == 0 {
		return ""
	}
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = string(c)
	}
	return strings.Join(parts, codeSep)
}

func splitCodes(s string) []model.EventCode {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, codeSep)
	out := make([]model.EventCode, len(parts))
	for i, p := range parts {
		out[i] = model.EventCode(p)
	}
	return out
}
