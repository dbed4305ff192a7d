package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/criskgl/peritoai/internal/core/domain"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the index in sync with the collections",
	Long: `Runs an indexing pass, then watches the policy and protocol directories.
Created and modified files are reindexed; deleted files are removed from
the index. Stop with Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return notConfigured("index")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := indexService.Index(ctx, domain.IndexOptions{})
	if report != nil {
		printIndexReport(cmd, report)
	}
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	cmd.Println("Watching for changes. Press Ctrl+C to stop.")
	if err := indexService.Watch(ctx); err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}

	cmd.Println("Stopped watching.")
	return nil
}
