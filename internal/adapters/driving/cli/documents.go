package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/criskgl/peritoai/internal/core/domain"
)

var (
	documentsJSON bool
	documentsKind string
)

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "List indexed policies and protocols",
	Long: `Lists every indexed document with its identifier, source file and chunk
count. The identifiers are the ones accepted by 'peritoai context --doc'.`,
	Args: cobra.NoArgs,
	RunE: runDocuments,
}

var documentsRemoveCmd = &cobra.Command{
	Use:   "remove [document-id]",
	Short: "Remove a document from the index",
	Long: `Deletes a document and its chunks from the index. The identifier is
resolved the same way as in 'peritoai context'. The file itself is not
touched and is indexed again by the next 'peritoai index'.`,
	Args: cobra.ExactArgs(1),
	RunE: runDocumentsRemove,
}

func init() {
	documentsCmd.Flags().BoolVar(&documentsJSON, "json", false, "output documents as JSON")
	documentsCmd.Flags().StringVarP(&documentsKind, "kind", "k", "", "only list one kind: policy or protocol")
	documentsCmd.AddCommand(documentsRemoveCmd)
	rootCmd.AddCommand(documentsCmd)
}

func runDocuments(cmd *cobra.Command, _ []string) error {
	if retrievalService == nil {
		return notConfigured("retrieval")
	}

	var kind domain.Kind
	if documentsKind != "" {
		k, err := domain.ParseKind(documentsKind)
		if err != nil {
			return err
		}
		kind = k
	}

	docs, err := retrievalService.ListDocuments(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	filtered := make([]domain.Document, 0, len(docs))
	for i := range docs {
		if kind == "" || docs[i].Kind == kind {
			filtered = append(filtered, docs[i])
		}
	}

	if documentsJSON {
		data, err := json.MarshalIndent(filtered, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal documents: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(filtered) == 0 {
		cmd.Println("No documents indexed. Run 'peritoai index' first.")
		return nil
	}

	for i := range filtered {
		doc := &filtered[i]
		cmd.Printf("  [%s] %s\n", doc.Kind.Label(), doc.ID)
		if doc.DisplayName != "" && doc.DisplayName != doc.ID {
			cmd.Printf("    Name: %s\n", doc.DisplayName)
		}
		cmd.Printf("    File: %s\n", doc.SourceFile)
		cmd.Printf("    Chunks: %d\n", doc.ChunkCount)
		cmd.Println()
	}

	cmd.Printf("Total: %d documents\n", len(filtered))
	return nil
}

func runDocumentsRemove(cmd *cobra.Command, args []string) error {
	if retrievalService == nil || indexService == nil {
		return notConfigured("index")
	}

	doc, err := retrievalService.ResolveDocument(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if err := indexService.RemoveDocument(cmd.Context(), doc.Ref()); err != nil {
		return fmt.Errorf("failed to remove document: %w", err)
	}

	cmd.Printf("Removed %s %s from the index.\n", doc.Kind, doc.ID)
	return nil
}
