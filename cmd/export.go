package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/defstats/go-match-risk/internal/evidence"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export an evidence pack as JSON",
	Long: `Export the structured evidence for a danger episode or a mined pattern.
The pack carries a sha256 content hash, printed to stderr, so downstream
consumers can cache on identical evidence.`,
}

var exportDangerCmd = &cobra.Command{
	Use:   "danger <match-id-prefix> <episode#>",
	Short: "Export one danger episode (episodes are numbered from 1 by peak time)",
	Args:  cobra.ExactArgs(2),
	RunE:  runExportDanger,
}

var exportPatternCmd = &cobra.Command{
	Use:   "pattern <pattern#>",
	Short: "Export one mined pattern (patterns are numbered from 1 by confidence)",
	Args:  cobra.ExactArgs(1),
	RunE:  runExportPattern,
}

func init() {
	exportCmd.PersistentFlags().StringVar(&exportOut, "out", "", "write the pack to a file instead of stdout")
	exportCmd.AddCommand(exportDangerCmd)
	exportCmd.AddCommand(exportPatternCmd)
}

func runExportDanger(cmd *cobra.Command, args []string) error {
	pack, err := dangerPack(args[0], args[1])
	if err != nil {
		return err
	}
	return writePack(pack)
}

func runExportPattern(cmd *cobra.Command, args []string) error {
	pack, err := patternPack(args[0])
	if err != nil {
		return err
	}
	return writePack(pack)
}

// dangerPack resolves a match prefix plus 1-based episode number into an
// evidence pack.
func dangerPack(prefix, numArg string) (*evidence.DangerPack, error) {
	n, err := strconv.Atoi(numArg)
	if err != nil || n < 1 {
		return nil, fmt.Errorf("invalid episode number %q", numArg)
	}

	db, err := openDB()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	m, err := db.GetMatchByPrefix(prefix)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("no match with id prefix %q", prefix)
	}
	episodes, err := db.GetEpisodes(m.ID)
	if err != nil {
		return nil, err
	}
	if n > len(episodes) {
		return nil, fmt.Errorf("match has %d episodes, asked for #%d", len(episodes), n)
	}
	return evidence.ForEpisode(m, &episodes[n-1]), nil
}

// patternPack resolves a 1-based pattern number into an evidence pack.
func patternPack(numArg string) (*evidence.PatternPack, error) {
	n, err := strconv.Atoi(numArg)
	if err != nil || n < 1 {
		return nil, fmt.Errorf("invalid pattern number %q", numArg)
	}

	db, err := openDB()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	patterns, err := db.GetPatterns()
	if err != nil {
		return nil, err
	}
	if n > len(patterns) {
		return nil, fmt.Errorf("corpus has %d patterns, asked for #%d", len(patterns), n)
	}
	return evidence.ForPattern(&patterns[n-1]), nil
}

func writePack(pack any) error {
	data, hash, err := evidence.Encode(pack)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "evidence hash: %s\n", hash)
	if exportOut == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(exportOut, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write %s: %w", exportOut, err)
	}
	fmt.Printf("wrote %s\n", exportOut)
	return nil
}
