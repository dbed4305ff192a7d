package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/criskgl/peritoai/internal/core/domain"
)

var (
	indexRebuild bool
	indexKinds   []string
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index the policy and protocol collections",
	Long: `Extracts, chunks and embeds every new file in the policy and protocol
collections. Documents already in the index are skipped.

Use --rebuild to replace every document and drop documents whose files are
gone, and --kind to index a single collection.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexRebuild, "rebuild", false, "replace every document and prune missing ones")
	indexCmd.Flags().StringSliceVarP(&indexKinds, "kind", "k", nil, "collection to index: policy or protocol")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return notConfigured("index")
	}

	opts := domain.IndexOptions{Rebuild: indexRebuild}
	for _, raw := range indexKinds {
		kind, err := domain.ParseKind(raw)
		if err != nil {
			return err
		}
		opts.Kinds = append(opts.Kinds, kind)
	}

	if opts.Rebuild {
		cmd.Println("Rebuilding index...")
	} else {
		cmd.Println("Indexing collections...")
	}

	report, err := indexService.Index(cmd.Context(), opts)
	if report != nil {
		printIndexReport(cmd, report)
	}
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	return nil
}

func printIndexReport(cmd *cobra.Command, report *domain.IndexReport) {
	cmd.Printf("Indexed: %d  Replaced: %d  Skipped: %d  Removed: %d  Chunks: %d\n",
		report.Indexed, report.Replaced, report.Skipped, report.Removed, report.Chunks)

	if len(report.Failures) == 0 {
		return
	}
	cmd.Printf("\n%d file(s) could not be indexed:\n", len(report.Failures))
	for _, f := range report.Failures {
		cmd.Printf("  %s: %v\n", f.Path, f.Err)
	}
}
