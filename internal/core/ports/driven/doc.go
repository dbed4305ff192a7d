// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - ChunkStore: Durable chunk and document persistence with vector search
//   - EmbeddingService: Turns chunk text and queries into vectors
//   - Extractor / ExtractorRegistry: Turns source files into plain text
//   - Collection: Enumerates and watches a directory of source files
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
//   - Metrics: Operational counters. A nil Metrics disables recording.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
