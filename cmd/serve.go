package cmd

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/defstats/go-match-risk/internal/web"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only query API over HTTP",
	Long: `Load every stored match, run the full analysis pipeline in memory, and
serve risk series, danger episodes, windows, and patterns under /api.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	agg, err := buildCorpus(cmd.Context(), db, cfg)
	if err != nil {
		return err
	}

	server := web.NewServer(agg)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(serveAddr)
	}()
	fmt.Printf("serving on %s (%d matches loaded)\n", serveAddr, len(agg.Matches()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("serve: %w", err)
		}
	case <-sigCh:
		fmt.Println("\nshutting down")
		server.Stop()
	}
	return nil
}
