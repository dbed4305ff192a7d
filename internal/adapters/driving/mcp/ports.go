package mcp

import (
	"github.com/criskgl/peritoai/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Retrieval lists documents and builds context.
	Retrieval driving.RetrievalService

	// Index runs indexing passes. Optional: without it the
	// index_documents tool is not registered.
	Index driving.IndexService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	return nil
}
