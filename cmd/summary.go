package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/defstats/go-match-risk/internal/report"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show corpus-wide totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		ov, err := db.GetOverview()
		if err != nil {
			return fmt.Errorf("load overview: %w", err)
		}
		report.PrintOverview(os.Stdout, ov)
		return nil
	},
}
