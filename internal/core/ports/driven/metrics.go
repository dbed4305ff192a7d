package driven

import "time"

// Metrics records operational measurements.
type Metrics interface {
	// DocumentIndexed counts a document outcome: indexed, replaced,
	// skipped, removed or failed.
	DocumentIndexed(result string)

	// ChunksStored counts chunks written to the store.
	ChunksStored(n int)

	// EmbeddingRequest counts an embedding call and its outcome.
	EmbeddingRequest(ok bool)

	// SearchCompleted observes the duration of a store search.
	SearchCompleted(d time.Duration)

	// ContextBuilt observes the number of chunks in a built context.
	ContextBuilt(chunks int)
}
