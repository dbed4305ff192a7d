package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/criskgl/peritoai/internal/core/domain"
)

const (
	// URIScheme is the custom URI scheme for PeritoAI resources.
	uriScheme = "peritoai://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for listing documents.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "documents",
		Name:        "documents",
		Description: "List of all indexed policies and protocols",
		MIMEType:    "application/json",
	}, s.handleDocumentsResource)

	// Template for a single document.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "documents/{kind}/{documentId}",
		Name:        "document",
		Description: "Metadata of an indexed policy or protocol",
		MIMEType:    "application/json",
	}, s.handleDocumentResource)
}

// handleDocumentsResource returns every indexed document.
func (s *Server) handleDocumentsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	docs, err := s.ports.Retrieval.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	infos := make([]DocumentOutput, len(docs))
	for i := range docs {
		infos[i] = toDocumentOutput(docs[i])
	}

	return jsonResource(req.Params.URI, infos)
}

// handleDocumentResource returns one document by kind and exact id.
func (s *Server) handleDocumentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	ref, ok := extractDocumentRef(req.Params.URI)
	if !ok {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	docs, err := s.ports.Retrieval.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	for i := range docs {
		if docs[i].Ref() == ref {
			return jsonResource(req.Params.URI, docs[i])
		}
	}
	return nil, mcp.ResourceNotFoundError(req.Params.URI)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractDocumentRef extracts the kind and id from a URI like
// peritoai://documents/{kind}/{documentId}. The id may be percent-encoded.
func extractDocumentRef(uri string) (domain.DocumentRef, bool) {
	const prefix = uriScheme + "documents/"

	if !strings.HasPrefix(uri, prefix) {
		return domain.DocumentRef{}, false
	}

	rawKind, rawID, found := strings.Cut(strings.TrimPrefix(uri, prefix), "/")
	if !found || rawID == "" {
		return domain.DocumentRef{}, false
	}

	kind, err := domain.ParseKind(rawKind)
	if err != nil {
		return domain.DocumentRef{}, false
	}
	id, err := url.PathUnescape(rawID)
	if err != nil {
		return domain.DocumentRef{}, false
	}

	return domain.DocumentRef{Kind: kind, ID: id}, true
}
