package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/defstats/go-match-risk/internal/model"
	"github.com/defstats/go-match-risk/internal/report"
)

var dangersCmd = &cobra.Command{
	Use:   "dangers <match-id-prefix>",
	Short: "Show danger episodes for a match",
	Args:  cobra.ExactArgs(1),
	RunE:  runDangers,
}

func runDangers(cmd *cobra.Command, args []string) error {
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
	episodes, err := db.GetEpisodes(m.ID)
	if err != nil {
		return fmt.Errorf("load episodes: %w", err)
	}

	report.PrintMatchHeader(os.Stdout, summarize(m, episodes))
	if len(episodes) == 0 {
		fmt.Println("no danger episodes")
		return nil
	}
	report.PrintEpisodeTable(os.Stdout, episodes)
	return nil
}

func summarize(m *model.Match, episodes []model.DangerEpisode) model.MatchSummary {
	s := model.MatchSummary{
		ID:            m.ID,
		Name:          m.Name,
		Competition:   m.Competition,
		MatchDate:     m.MatchDate,
		DurationSec:   m.DurationSec,
		EventCount:    len(m.Events),
		GoalsConceded: len(m.ConcededGoalTimes()),
		EpisodeCount:  len(episodes),
	}
	for _, ep := range episodes {
		if ep.Severity == model.SeverityCritical {
			s.CriticalCount++
		}
	}
	return s
}
