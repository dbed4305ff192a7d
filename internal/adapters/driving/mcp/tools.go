package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/criskgl/peritoai/internal/core/domain"
)

// ListDocumentsInput is the input schema for the list_documents tool.
type ListDocumentsInput struct {
	Kind string `json:"kind,omitempty" jsonschema:"restrict to one kind: policy or protocol"`
}

// ListDocumentsOutput is the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
}

// DocumentOutput represents an indexed document.
type DocumentOutput struct {
	DocumentID  string `json:"document_id"`
	Kind        string `json:"kind"`
	DisplayName string `json:"display_name"`
	SourceFile  string `json:"source_file"`
	ChunkCount  int    `json:"chunk_count"`
}

// BuildContextInput is the input schema for the build_context tool.
type BuildContextInput struct {
	Query            string   `json:"query,omitempty" jsonschema:"what to look for; derived from claim_text when empty"`
	DocumentIDs      []string `json:"document_ids" jsonschema:"policy and protocol identifiers to search, e.g. POLIZA_HOGAR_GLOBAL"`
	PerDocumentLimit int      `json:"per_document_limit,omitempty" jsonschema:"maximum chunks taken from each document"`
	TotalChunkBudget int      `json:"total_chunk_budget,omitempty" jsonschema:"maximum chunks in the whole context; 0 uses the configured default and a negative value means no limit"`
	ClaimText        string   `json:"claim_text,omitempty" jsonschema:"pasted claim data"`
}

// BuildContextOutput is the output schema for the build_context tool.
type BuildContextOutput struct {
	Context    string             `json:"context"`
	Query      string             `json:"query"`
	Documents  []DocumentOutput   `json:"documents"`
	Chunks     []ChunkOutput      `json:"chunks"`
	Unresolved []UnresolvedOutput `json:"unresolved,omitempty"`
}

// ChunkOutput represents a retrieved chunk.
type ChunkOutput struct {
	DocumentID string  `json:"document_id"`
	Kind       string  `json:"kind"`
	SourceFile string  `json:"source_file"`
	Sequence   int     `json:"sequence"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
}

// UnresolvedOutput reports an identifier that matched no document.
type UnresolvedOutput struct {
	Raw   string `json:"raw"`
	Error string `json:"error"`
}

// IndexDocumentsInput is the input schema for the index_documents tool.
type IndexDocumentsInput struct {
	Rebuild bool     `json:"rebuild,omitempty" jsonschema:"replace every document and drop documents whose files are gone"`
	Kinds   []string `json:"kinds,omitempty" jsonschema:"collections to index: policy, protocol; all when empty"`
}

// IndexDocumentsOutput is the output schema for the index_documents tool.
type IndexDocumentsOutput struct {
	Indexed  int      `json:"indexed"`
	Replaced int      `json:"replaced"`
	Skipped  int      `json:"skipped"`
	Removed  int      `json:"removed"`
	Chunks   int      `json:"chunks"`
	Failures []string `json:"failures,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List the indexed insurance policies and internal coverage protocols",
	}, s.handleListDocuments)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "build_context",
		Description: "Retrieve the most relevant sections of the selected policies and protocols " +
			"for a query or a pasted claim, grouped by document",
	}, s.handleBuildContext)

	if s.ports.Index != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "index_documents",
			Description: "Index new policy and protocol files",
		}, s.handleIndexDocuments)
	}
}

// handleListDocuments handles the list_documents tool invocation.
func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	var kind domain.Kind
	if input.Kind != "" {
		k, err := domain.ParseKind(input.Kind)
		if err != nil {
			return nil, ListDocumentsOutput{}, err
		}
		kind = k
	}

	docs, err := s.ports.Retrieval.ListDocuments(ctx)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}

	output := ListDocumentsOutput{Documents: []DocumentOutput{}}
	for i := range docs {
		if kind != "" && docs[i].Kind != kind {
			continue
		}
		output.Documents = append(output.Documents, toDocumentOutput(docs[i]))
	}
	output.Count = len(output.Documents)

	return nil, output, nil
}

// handleBuildContext handles the build_context tool invocation.
func (s *Server) handleBuildContext(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input BuildContextInput,
) (*mcp.CallToolResult, BuildContextOutput, error) {
	bundle, err := s.ports.Retrieval.BuildContext(ctx, domain.ContextRequest{
		Query:            input.Query,
		DocumentIDs:      input.DocumentIDs,
		PerDocumentLimit: input.PerDocumentLimit,
		TotalChunkBudget: input.TotalChunkBudget,
		ClaimText:        input.ClaimText,
	})
	if err != nil {
		return nil, BuildContextOutput{}, err
	}

	output := BuildContextOutput{
		Context:   bundle.Context,
		Query:     bundle.Query,
		Documents: make([]DocumentOutput, len(bundle.Documents)),
		Chunks:    make([]ChunkOutput, len(bundle.Chunks)),
	}
	for i := range bundle.Documents {
		output.Documents[i] = toDocumentOutput(bundle.Documents[i])
	}
	for i, sc := range bundle.Chunks {
		output.Chunks[i] = ChunkOutput{
			DocumentID: sc.Chunk.DocumentID,
			Kind:       sc.Chunk.Kind.String(),
			SourceFile: sc.Chunk.SourceFile,
			Sequence:   sc.Chunk.Sequence,
			Score:      sc.Score,
			Text:       sc.Chunk.Text,
		}
	}
	for _, f := range bundle.Unresolved {
		output.Unresolved = append(output.Unresolved, UnresolvedOutput{Raw: f.Raw, Error: f.Err.Error()})
	}

	return nil, output, nil
}

// handleIndexDocuments handles the index_documents tool invocation.
func (s *Server) handleIndexDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IndexDocumentsInput,
) (*mcp.CallToolResult, IndexDocumentsOutput, error) {
	opts := domain.IndexOptions{Rebuild: input.Rebuild}
	for _, raw := range input.Kinds {
		kind, err := domain.ParseKind(raw)
		if err != nil {
			return nil, IndexDocumentsOutput{}, err
		}
		opts.Kinds = append(opts.Kinds, kind)
	}

	report, err := s.ports.Index.Index(ctx, opts)
	if err != nil && report == nil {
		return nil, IndexDocumentsOutput{}, err
	}
	if report == nil {
		report = &domain.IndexReport{}
	}

	output := IndexDocumentsOutput{
		Indexed:  report.Indexed,
		Replaced: report.Replaced,
		Skipped:  report.Skipped,
		Removed:  report.Removed,
		Chunks:   report.Chunks,
	}
	for _, f := range report.Failures {
		output.Failures = append(output.Failures, f.Error())
	}

	return nil, output, err
}

func toDocumentOutput(doc domain.Document) DocumentOutput {
	return DocumentOutput{
		DocumentID:  doc.ID,
		Kind:        doc.Kind.String(),
		DisplayName: doc.DisplayName,
		SourceFile:  doc.SourceFile,
		ChunkCount:  doc.ChunkCount,
	}
}
