package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/defstats/go-match-risk/internal/report"
)

var patternsRecompute bool

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Show recurring pre-concession patterns across the corpus",
	Long: `Show the mined cross-match patterns: recurring event fingerprints that
precede danger peaks, with goal rate, lift over the corpus baseline, and a
Bayesian confidence tier.`,
	RunE: runPatterns,
}

func init() {
	patternsCmd.Flags().BoolVar(&patternsRecompute, "recompute", false, "re-mine patterns before printing")
}

func runPatterns(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if patternsRecompute {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		agg, err := buildCorpus(cmd.Context(), db, cfg)
		if err != nil {
			return err
		}
		if err := persistCorpus(db, agg); err != nil {
			return err
		}
	}

	patterns, err := db.GetPatterns()
	if err != nil {
		return fmt.Errorf("load patterns: %w", err)
	}
	if len(patterns) == 0 {
		fmt.Println("no patterns mined, the corpus may be too small")
		return nil
	}
	report.PrintPatternTable(os.Stdout, patterns)
	return nil
}
