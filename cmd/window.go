package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/defstats/go-match-risk/internal/report"
)

var windowCmd = &cobra.Command{
	Use:   "window <match-id-prefix> <start-sec> <end-sec>",
	Short: "Summarize risk over an arbitrary match window",
	Long: `Reduce a sub-interval of one match to average and maximum risk, event
counts by code, and the number of overlapping danger episodes. Bounds are
clamped to the match duration.`,
	Args: cobra.ExactArgs(3),
	RunE: runWindow,
}

func runWindow(cmd *cobra.Command, args []string) error {
	start, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid start %q", args[1])
	}
	end, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("invalid end %q", args[2])
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	m, err := db.GetMatchByPrefix(args[0])
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("no match with id prefix %q", args[0])
	}

	agg, err := buildCorpus(cmd.Context(), db, cfg)
	if err != nil {
		return err
	}
	ws, err := agg.Window(m.ID, start, end)
	if err != nil {
		return err
	}
	report.PrintWindowSummary(os.Stdout, ws)
	return nil
}
