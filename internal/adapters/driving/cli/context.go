package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/criskgl/peritoai/internal/core/domain"
)

var (
	contextDocs      []string
	contextQuery     string
	contextClaimFile string
	contextPerDoc    int
	contextBudget    int
	contextJSON      bool
)

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Build grounded context from selected documents",
	Long: `Searches each selected policy and protocol for the chunks most relevant to
the query and prints them grouped by document.

Identifiers are matched exactly, then case-insensitively, then by
substring. Prefix an identifier with "policy:" or "protocol:" to restrict
the match to one kind. Unknown identifiers are reported and skipped.

When --query is omitted, the query is built from the claim read with
--claim-file ("-" reads standard input).

Examples:
  peritoai context --doc POLIZA_HOGAR_GLOBAL --doc "protocol:lluvia" --query "daños por agua"
  peritoai context -d POLIZA_HOGAR_GLOBAL --claim-file siniestro.txt --per-doc 3`,
	Args: cobra.NoArgs,
	RunE: runContext,
}

func init() {
	contextCmd.Flags().StringArrayVarP(&contextDocs, "doc", "d", nil, "document identifier (repeatable)")
	contextCmd.Flags().StringVarP(&contextQuery, "query", "q", "", "what to look for")
	contextCmd.Flags().StringVar(&contextClaimFile, "claim-file", "", "file with pasted claim data, - for stdin")
	contextCmd.Flags().IntVar(&contextPerDoc, "per-doc", 0, "maximum chunks per document (0 = configured default)")
	contextCmd.Flags().IntVar(&contextBudget, "budget", 0, "maximum chunks in total (0 = configured default, -1 = no limit)")
	contextCmd.Flags().BoolVar(&contextJSON, "json", false, "output the context bundle as JSON")
	rootCmd.AddCommand(contextCmd)
}

func runContext(cmd *cobra.Command, _ []string) error {
	if retrievalService == nil {
		return notConfigured("retrieval")
	}
	if len(contextDocs) == 0 {
		return errors.New("at least one --doc is required")
	}

	req := domain.ContextRequest{
		Query:            contextQuery,
		DocumentIDs:      contextDocs,
		PerDocumentLimit: contextPerDoc,
		TotalChunkBudget: contextBudget,
	}

	if contextClaimFile != "" {
		claim, err := readClaim(cmd, contextClaimFile)
		if err != nil {
			return err
		}
		req.ClaimText = claim
	}
	if req.Query == "" && req.ClaimText == "" {
		return errors.New("either --query or --claim-file is required")
	}

	bundle, err := retrievalService.BuildContext(cmd.Context(), req)
	if err != nil {
		var noDocs *domain.NoRelevantDocumentsError
		if errors.As(err, &noDocs) && len(noDocs.Failures) > 0 {
			printUnresolved(cmd, noDocs.Failures)
			return errors.New("no document could be resolved")
		}
		return fmt.Errorf("failed to build context: %w", err)
	}

	if contextJSON {
		data, err := json.MarshalIndent(bundle, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal context: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	printUnresolved(cmd, bundle.Unresolved)
	cmd.Printf("Query: %s\n\n", bundle.Query)
	cmd.Println(bundle.Context)
	return nil
}

func readClaim(cmd *cobra.Command, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read claim: %w", err)
	}
	return string(data), nil
}

// printUnresolved explains each identifier that did not resolve, with the
// candidates or known ids to pick from.
func printUnresolved(cmd *cobra.Command, failures []domain.ResolutionFailure) {
	for _, f := range failures {
		var (
			notFound  *domain.NotFoundError
			ambiguous *domain.AmbiguousError
		)
		switch {
		case errors.As(f.Err, &ambiguous):
			cmd.Printf("Warning: %q matches several documents, be more specific:\n", f.Raw)
			for _, c := range ambiguous.Candidates {
				cmd.Printf("  %s\n", c)
			}
		case errors.As(f.Err, &notFound):
			cmd.Printf("Warning: no document matches %q.\n", f.Raw)
			if len(notFound.Suggestions) > 0 {
				cmd.Println("Available documents:")
				for _, id := range notFound.Suggestions {
					cmd.Printf("  %s\n", id)
				}
			}
		default:
			cmd.Printf("Warning: %s: %v\n", f.Raw, f.Err)
		}
	}
	if len(failures) > 0 {
		cmd.Println()
	}
}
