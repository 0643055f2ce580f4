package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/defstats/go-match-risk/internal/ingest"
	"github.com/defstats/go-match-risk/internal/model"
	"github.com/defstats/go-match-risk/internal/report"
)

var ingestForce bool

var ingestCmd = &cobra.Command{
	Use:   "ingest <match.json> [more.json...]",
	Short: "Ingest match event documents and recompute the corpus",
	Long: `Parse one or more tagged match-event documents, store them, and recompute
risk series, danger episodes, and corpus patterns across all stored matches.

A document that fails validation is reported and skipped; the remaining
documents still ingest. Re-ingesting an identical file is a no-op unless
--force is set.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestForce, "force", false, "re-ingest matches that are already stored")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	var ingested []*model.Match
	failures := 0
	for _, path := range args {
		m, err := ingest.ParseFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "skipping %s: %v\n", path, err)
			failures++
			continue
		}
		exists, err := db.MatchExists(m.ID)
		if err != nil {
			return err
		}
		if exists && !ingestForce {
			fmt.Printf("already ingested: %s (%s)\n", m.Name, m.ID[:12])
			continue
		}
		if err := db.InsertMatch(m); err != nil {
			return err
		}
		ingested = append(ingested, m)
		fmt.Printf("ingested: %s (%s, %d events)\n", m.Name, m.ID[:12], len(m.Events))
	}
	if len(ingested) == 0 && failures == len(args) {
		return fmt.Errorf("no documents ingested")
	}

	// Patterns are corpus-level, so every ingest recomputes everything.
	agg, err := buildCorpus(cmd.Context(), db, cfg)
	if err != nil {
		return err
	}
	if err := persistCorpus(db, agg); err != nil {
		return err
	}

	for _, m := range ingested {
		episodes, err := agg.Dangers(m.ID)
		if err != nil {
			return err
		}
		summaries := agg.Matches()
		for _, s := range summaries {
			if s.ID == m.ID {
				report.PrintMatchHeader(os.Stdout, s)
			}
		}
		report.PrintEpisodeTable(os.Stdout, episodes)
	}
	fmt.Printf("\ncorpus: %d matches, %d patterns\n", len(agg.Matches()), len(agg.Patterns()))
	return nil
}
