package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/defstats/go-match-risk/internal/report"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored matches",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		matches, err := db.ListMatches()
		if err != nil {
			return fmt.Errorf("list matches: %w", err)
		}
		if len(matches) == 0 {
			fmt.Println("no matches stored, run `matchrisk ingest` first")
			return nil
		}
		report.PrintMatchList(os.Stdout, matches)
		return nil
	},
}
