package domain

import (
	"fmt"
	"time"
)

// DocumentRef is the unique key of a document: the id qualified by its kind.
// Two kinds may carry the same id without being merged.
type DocumentRef struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id"`
}

// String renders the ref as "kind:id".
func (r DocumentRef) String() string {
	return fmt.Sprintf("%s:%s", r.Kind, r.ID)
}

// Less orders refs by id, then kind.
func (r DocumentRef) Less(other DocumentRef) bool {
	if r.ID != other.ID {
		return r.ID < other.ID
	}
	return r.Kind < other.Kind
}

// Document is one indexed source file.
// It is created on first observation and never partially updated.
type Document struct {
	// ID is the filename stem, unique within its kind.
	ID string `json:"document_id"`

	// Kind is the collection category (policy or protocol).
	Kind Kind `json:"kind"`

	// DisplayName is the human-readable name derived from the id.
	DisplayName string `json:"display_name"`

	// SourceFile is the base filename the document was read from.
	SourceFile string `json:"source_file"`

	// SourcePath is the full path of the origin file.
	SourcePath string `json:"source_path"`

	// SourceCollection names the watched collection it came from.
	SourceCollection string `json:"source_collection"`

	// ChunkCount is the number of chunks stored for the document.
	ChunkCount int `json:"chunk_count"`

	// IndexedAt is when the current chunk set was written.
	IndexedAt time.Time `json:"indexed_at"`
}

// Ref returns the unique key of the document.
func (d Document) Ref() DocumentRef {
	return DocumentRef{Kind: d.Kind, ID: d.ID}
}

// Chunk is a contiguous, embedded slice of a document's text.
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Kind       Kind      `json:"kind"`
	SourceFile string    `json:"source_file"`
	SourcePath string    `json:"source_path"`
	Sequence   int       `json:"sequence"`
	Text       string    `json:"text"`
	Embedding  []float32 `json:"-"`
}

// Ref returns the key of the document owning the chunk.
func (c Chunk) Ref() DocumentRef {
	return DocumentRef{Kind: c.Kind, ID: c.DocumentID}
}

// ScoredChunk is a chunk with its similarity to a query.
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// RankBefore reports whether a should be ordered before b.
// Order is similarity descending, then sequence ascending, then document
// id and kind ascending, so equal scores still sort deterministically.
func RankBefore(a, b ScoredChunk) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Chunk.Sequence != b.Chunk.Sequence {
		return a.Chunk.Sequence < b.Chunk.Sequence
	}
	if a.Chunk.DocumentID != b.Chunk.DocumentID {
		return a.Chunk.DocumentID < b.Chunk.DocumentID
	}
	return a.Chunk.Kind < b.Chunk.Kind
}
