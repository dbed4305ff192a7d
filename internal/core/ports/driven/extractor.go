package driven

import "context"

// Extractor turns a source file into plain text.
// Each extractor handles specific file extensions (e.g., .pdf, .txt).
type Extractor interface {
	// Name identifies the extractor in logs.
	Name() string

	// SupportedExtensions returns lower-case extensions including the dot.
	SupportedExtensions() []string

	// Priority returns the selection priority (higher = preferred).
	Priority() int

	// Extract returns the text content of the file at path.
	Extract(ctx context.Context, path string) (string, error)
}

// ExtractorRegistry selects the extractor for a file.
type ExtractorRegistry interface {
	// Register adds an extractor to the registry.
	Register(extractor Extractor)

	// Extract reads path with the highest-priority extractor supporting
	// its extension. Unsupported files return domain.ErrUnsupportedType.
	Extract(ctx context.Context, path string) (string, error)

	// Supports reports whether any extractor handles path.
	Supports(path string) bool
}
