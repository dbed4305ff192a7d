// Package mcp provides an MCP (Model Context Protocol) server adapter for PeritoAI.
// It lets AI assistants list the indexed policies and protocols, build
// grounded context for a claim and trigger reindexing.
package mcp

import "errors"

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")
