// Package sqlite provides the persistent driven.ChunkStore.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. Documents and their chunks live in two tables; a chunk
// set is always written or replaced inside a single transaction, so a
// reader sees either the old set or the new one.
//
// # Schema
//
// The schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql
// files.
//
// # Data Location
//
// By default, the database is stored at ~/.peritoai/data/index.db
//
// # Search
//
// Similarity is computed in Go by a full scan over the chunks of the
// requested documents. There is no approximate nearest neighbour index.
package sqlite
