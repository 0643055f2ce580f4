package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/defstats/go-match-risk/internal/source"
)

var (
	// fetchBaseURL is the tagging-platform export API root.
	fetchBaseURL string
	// fetchAPIKey falls back to $TAGGING_API_KEY when empty.
	fetchAPIKey string
	// fetchLimit caps how many matches to list.
	fetchLimit int
	// fetchOut is the directory event documents are written to.
	fetchOut string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download tagged match documents from the export API",
	Long: `List completed matches on the tagging platform and download their raw
event documents into a local directory, ready for ingest. Files are written
verbatim so the ingest content hash matches what the platform served.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchBaseURL, "base-url", "", "export API base URL")
	fetchCmd.Flags().StringVar(&fetchAPIKey, "api-key", "", "export API key (defaults to $TAGGING_API_KEY)")
	fetchCmd.Flags().IntVar(&fetchLimit, "limit", 20, "maximum matches to fetch")
	fetchCmd.Flags().StringVar(&fetchOut, "out", ".", "output directory for event documents")
	fetchCmd.MarkFlagRequired("base-url")
}

func runFetch(cmd *cobra.Command, args []string) error {
	apiKey := fetchAPIKey
	if apiKey == "" {
		apiKey = os.Getenv("TAGGING_API_KEY")
	}
	if apiKey == "" {
		return fmt.Errorf("no API key: pass --api-key or set TAGGING_API_KEY")
	}
	if err := os.MkdirAll(fetchOut, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	client := source.NewClient(fetchBaseURL, apiKey)
	refs, err := client.ListMatches(fetchLimit)
	if err != nil {
		return fmt.Errorf("list matches: %w", err)
	}
	if len(refs) == 0 {
		fmt.Println("no completed matches on the platform")
		return nil
	}

	for _, ref := range refs {
		body, err := client.FetchEvents(ref.MatchID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "skipping %s: %v\n", ref.Name, err)
			continue
		}
		path := filepath.Join(fetchOut, ref.MatchID+".json")
		if err := os.WriteFile(path, body, 0644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Printf("fetched: %s (%s) -> %s\n", ref.Name, ref.MatchDate, path)
	}
	return nil
}
