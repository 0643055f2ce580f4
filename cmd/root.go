package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/defstats/go-match-risk/internal/config"
	"github.com/defstats/go-match-risk/internal/corpus"
	"github.com/defstats/go-match-risk/internal/storage"
)

var (
	dbPath      string
	weightsPath string
)

var rootCmd = &cobra.Command{
	Use:   "matchrisk",
	Short: "Defensive risk analytics for tagged match events",
	Long: `Ingest tagged match-event timelines, compute per-second defensive risk,
detect danger episodes, and mine recurring concession patterns across matches.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	defaultDB := filepath.Join(mustUserHome(), ".matchrisk", "matchrisk.db")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDB, "path to SQLite database")
	rootCmd.PersistentFlags().StringVar(&weightsPath, "weights", "", "optional YAML weights/parameters override")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(dangersCmd)
	rootCmd.AddCommand(windowCmd)
	rootCmd.AddCommand(patternsCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(explainCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sqlCmd)
	rootCmd.AddCommand(dropCmd)
}

func mustUserHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// loadConfig resolves the --weights override on top of the defaults.
// Invalid configuration is fatal here, before any pipeline runs.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(weightsPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// openDB opens the store, creating the parent directory on first use.
func openDB() (*storage.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := storage.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return db, nil
}

// buildCorpus loads every stored match and runs the full pipeline plus the
// corpus pattern pass in memory.
func buildCorpus(ctx context.Context, db *storage.DB, cfg *config.Config) (*corpus.Aggregator, error) {
	matches, err := db.GetAllMatches()
	if err != nil {
		return nil, fmt.Errorf("load matches: %w", err)
	}
	agg := corpus.New(cfg)
	if err := agg.Load(ctx, matches, runtime.NumCPU()); err != nil {
		return nil, err
	}
	return agg, nil
}

// persistCorpus writes every derived artifact back to the store.
func persistCorpus(db *storage.DB, agg *corpus.Aggregator) error {
	for _, s := range agg.Matches() {
		series, err := agg.RiskSeries(s.ID)
		if err != nil {
			return err
		}
		if err := db.InsertRiskSeries(s.ID, series); err != nil {
			return fmt.Errorf("store risk series for %s: %w", s.ID, err)
		}
		episodes, err := agg.Dangers(s.ID)
		if err != nil {
			return err
		}
		if err := db.InsertEpisodes(s.ID, episodes); err != nil {
			return fmt.Errorf("store episodes for %s: %w", s.ID, err)
		}
	}
	if err := db.ReplacePatterns(agg.Patterns()); err != nil {
		return fmt.Errorf("store patterns: %w", err)
	}
	return nil
}
