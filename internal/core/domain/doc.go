// Package domain defines the core business entities for PeritoAI.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An indexed policy or protocol
//   - Chunk: A retrievable, embedded slice of a document
//   - Kind: Whether a document is a Policy or a Protocol
//   - ContextRequest / ContextBundle: The retrieval round trip
//
// It also holds the identity rules (DeriveIdentity, Resolve) because they
// are pure functions over these types.
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
