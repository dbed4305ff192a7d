package driven

import (
	"context"

	"github.com/criskgl/peritoai/internal/core/domain"
)

// SourceFile is a file found in a collection.
type SourceFile struct {
	// Path is the absolute or collection-relative path used to read the file.
	Path string

	// Name is the base filename.
	Name string
}

// FileEvent is a change observed in a watched collection.
type FileEvent struct {
	Path   string
	Change domain.ChangeType
}

// Collection is a watched set of source files of a single kind.
type Collection interface {
	// Name is the collection name recorded as the document's source collection.
	Name() string

	// Kind is the kind assigned to every document in the collection.
	Kind() domain.Kind

	// Root returns the directory the collection reads from.
	Root() string

	// List returns the collection's files in lexical path order.
	// A missing root directory yields an empty list.
	List(ctx context.Context) ([]SourceFile, error)

	// Watch streams file changes until ctx is cancelled.
	Watch(ctx context.Context) (<-chan FileEvent, error)
}
