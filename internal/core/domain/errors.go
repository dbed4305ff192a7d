package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates a file type no extractor handles.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrAmbiguousIdentifier indicates a document identifier matched
	// more than one indexed document.
	ErrAmbiguousIdentifier = errors.New("ambiguous identifier")

	// ErrNoRelevantDocuments indicates a retrieval resolved no documents
	// or found no chunks in the documents it resolved.
	ErrNoRelevantDocuments = errors.New("no relevant documents")

	// ErrExtraction indicates text could not be extracted from a file.
	// It is reported per file and never aborts an indexing pass.
	ErrExtraction = errors.New("extraction failed")

	// ErrEmbeddingService indicates the embedding service failed.
	// The failing operation is aborted and not retried.
	ErrEmbeddingService = errors.New("embedding service failure")

	// ErrEmbeddingUnavailable indicates no embedding service is configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrConfiguration indicates invalid settings detected at startup.
	ErrConfiguration = errors.New("configuration error")

	// ErrEmbeddingModelChanged indicates the index was built with another
	// embedding model than the configured one. It is a configuration error.
	ErrEmbeddingModelChanged = fmt.Errorf("%w: embedding model changed", ErrConfiguration)

	// ErrIndexInProgress indicates an indexing pass is already running.
	ErrIndexInProgress = errors.New("index in progress")
)

// NotFoundError reports a raw identifier that matched no indexed document.
// Suggestions lists every known document id.
type NotFoundError struct {
	Raw         string
	Suggestions []string
}

func (e *NotFoundError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("document %q not found", e.Raw)
	}
	return fmt.Sprintf("document %q not found (available: %s)", e.Raw, strings.Join(e.Suggestions, ", "))
}

// Unwrap allows errors.Is(err, ErrNotFound).
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// AmbiguousError reports a raw identifier that matched several documents.
type AmbiguousError struct {
	Raw        string
	Candidates []DocumentRef
}

func (e *AmbiguousError) Error() string {
	names := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		names[i] = c.String()
	}
	return fmt.Sprintf("identifier %q is ambiguous (candidates: %s)", e.Raw, strings.Join(names, ", "))
}

// Unwrap allows errors.Is(err, ErrAmbiguousIdentifier).
func (e *AmbiguousError) Unwrap() error {
	return ErrAmbiguousIdentifier
}

// ExtractionError reports a single file whose text could not be extracted.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting %s: %v", e.Path, e.Err)
}

// Unwrap exposes both ErrExtraction and the underlying cause.
func (e *ExtractionError) Unwrap() []error {
	return []error{ErrExtraction, e.Err}
}

// FileError reports a single file that could not be indexed. An indexing
// pass records it and carries on with the remaining files.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *FileError) Unwrap() error {
	return e.Err
}

// NoRelevantDocumentsError reports a retrieval that produced nothing.
// Failures holds the identifiers that could not be resolved, if any.
type NoRelevantDocumentsError struct {
	Reason   string
	Failures []ResolutionFailure
}

func (e *NoRelevantDocumentsError) Error() string {
	msg := "no relevant documents"
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if len(e.Failures) > 0 {
		parts := make([]string, len(e.Failures))
		for i, f := range e.Failures {
			parts[i] = f.Err.Error()
		}
		msg += " [" + strings.Join(parts, "; ") + "]"
	}
	return msg
}

// Unwrap allows errors.Is(err, ErrNoRelevantDocuments).
func (e *NoRelevantDocumentsError) Unwrap() error {
	return ErrNoRelevantDocuments
}
