package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
)

var sqlCmd = &cobra.Command{
	Use:   "sql <query>",
	Short: "Run a raw SQL query against the risk database",
	Long: `Run an arbitrary SQL query against the risk database and print results as a table.

Schema overview:
  matches(id, name, competition, match_date, duration_sec)
  events(match_id, idx, code, side, start_sec REAL, end_sec REAL)
  risk_points(match_id, second, raw_score, smoothed_score, normalized_score)
  danger_episodes(match_id, idx, peak_time, window_start, window_end,
    peak_score, severity, resulted_in_goal, active_codes, fingerprint)
  patterns(idx, sequence, match_count, goal_count, goal_rate, baseline_rate,
    lift, posterior_mean, ci_low, ci_high, p_gt_baseline, confidence, tier,
    avg_time_to_goal)
  pattern_occurrences(pattern_idx, match_id, episode_idx, peak_time, resulted_in_goal)

Note: code lists (active_codes, fingerprint, sequence) are pipe-joined TEXT,
e.g. WHERE active_codes LIKE '%BALL IN THE BOX%'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSQL,
}

func runSQL(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	cols, rows, err := db.QueryRaw(query)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("(no rows)")
		return nil
	}

	table := tablewriter.NewTable(os.Stdout, tablewriter.WithConfig(tablewriter.Config{
		Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignRight}},
		Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignCenter}},
	}))

	colsAny := make([]any, len(cols))
	for i, c := range cols {
		colsAny[i] = c
	}
	table.Header(colsAny...)

	for _, row := range rows {
		rowAny := make([]any, len(row))
		for i, v := range row {
			rowAny[i] = v
		}
		table.Append(rowAny...)
	}
	table.Render()
	fmt.Fprintf(os.Stdout, "\n(%d rows)\n", len(rows))
	return nil
}
