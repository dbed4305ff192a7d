// Package filesystem exposes a local directory as a watched document
// collection. Files are selected with a doublestar pattern and changes are
// observed with fsnotify.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/criskgl/peritoai/internal/core/domain"
	"github.com/criskgl/peritoai/internal/core/ports/driven"
	"github.com/criskgl/peritoai/internal/logger"
)

// DefaultPattern selects the file types the bundled extractors read.
const DefaultPattern = "**/*.{pdf,txt,md,docx}"

// Ensure Collection implements the interface.
var _ driven.Collection = (*Collection)(nil)

// Collection is a directory of documents of one kind.
type Collection struct {
	name    string
	kind    domain.Kind
	root    string
	pattern string // lowercased
}

// New creates a collection rooted at root.
// The pattern is matched case-insensitively against slash-separated paths
// relative to root. An empty pattern selects DefaultPattern.
func New(kind domain.Kind, root, pattern string) (*Collection, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	pattern = strings.ToLower(pattern)
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("%w: invalid collection pattern %q", domain.ErrConfiguration, pattern)
	}
	if root == "" {
		return nil, fmt.Errorf("%w: %s collection has no directory", domain.ErrConfiguration, kind)
	}

	return &Collection{
		name:    kind.Collection(),
		kind:    kind,
		root:    filepath.Clean(root),
		pattern: pattern,
	}, nil
}

// NewCollections creates one collection per known kind from settings.
func NewCollections(settings domain.CollectionSettings) ([]driven.Collection, error) {
	kinds := domain.Kinds()
	out := make([]driven.Collection, 0, len(kinds))
	for _, kind := range kinds {
		c, err := New(kind, settings.Path(kind), settings.Pattern)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.name
}

// Kind returns the kind of every document in the collection.
func (c *Collection) Kind() domain.Kind {
	return c.kind
}

// Root returns the collection directory.
func (c *Collection) Root() string {
	return c.root
}

// List returns matching files in lexical path order.
func (c *Collection) List(ctx context.Context) ([]driven.SourceFile, error) {
	info, err := os.Stat(c.root)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("collection %s: directory %s does not exist", c.name, c.root)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("collection %s: %w", c.name, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("collection %s: %s is not a directory", c.name, c.root)
	}

	var files []driven.SourceFile
	err = fs.WalkDir(os.DirFS(c.root), ".", func(rel string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if rel == "." {
			return nil
		}
		if isHidden(d.Name()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if !c.matches(rel) {
			return nil
		}
		files = append(files, driven.SourceFile{
			Path: filepath.Join(c.root, filepath.FromSlash(rel)),
			Name: d.Name(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing collection %s: %w", c.name, err)
	}

	slices.SortFunc(files, func(a, b driven.SourceFile) int {
		return strings.Compare(a.Path, b.Path)
	})

	logger.Debug("collection %s: %d files under %s", c.name, len(files), c.root)
	return files, nil
}

// Watch streams changes under the collection root until ctx is cancelled.
// New subdirectories are watched as they appear.
func (c *Collection) Watch(ctx context.Context) (<-chan driven.FileEvent, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	if err := c.addTree(watcher, c.root); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching collection %s: %w", c.name, err)
	}

	events := make(chan driven.FileEvent)
	go func() {
		defer close(events)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Create) {
					if info, err := os.Stat(ev.Name); err == nil && info.IsDir() && !isHidden(info.Name()) {
						if err := c.addTree(watcher, ev.Name); err != nil {
							logger.Warn("collection %s: cannot watch %s: %v", c.name, ev.Name, err)
						}
						continue
					}
				}
				change := c.handleFsEvent(ev)
				if change == nil {
					continue
				}
				select {
				case events <- *change:
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("collection %s: watcher error: %v", c.name, err)
			}
		}
	}()

	return events, nil
}

// addTree watches dir and every non-hidden directory below it.
func (c *Collection) addTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && isHidden(d.Name()) {
			return fs.SkipDir
		}
		return watcher.Add(path)
	})
}

// handleFsEvent converts an fsnotify event into a collection change.
// It returns nil for directories, hidden files, files outside the pattern
// and permission-only changes.
func (c *Collection) handleFsEvent(ev fsnotify.Event) *driven.FileEvent {
	rel, err := filepath.Rel(c.root, ev.Name)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return nil
	}
	rel = filepath.ToSlash(rel)
	if isHidden(rel) || !c.matches(rel) {
		return nil
	}

	var change domain.ChangeType
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		change = domain.ChangeDeleted
	case ev.Has(fsnotify.Create):
		change = domain.ChangeCreated
	case ev.Has(fsnotify.Write):
		change = domain.ChangeUpdated
	default:
		return nil
	}

	if change != domain.ChangeDeleted {
		info, err := os.Stat(ev.Name)
		if err != nil || info.IsDir() {
			return nil
		}
	}

	return &driven.FileEvent{Path: ev.Name, Change: change}
}

func (c *Collection) matches(rel string) bool {
	ok, err := doublestar.Match(c.pattern, strings.ToLower(rel))
	return err == nil && ok
}

// isHidden reports whether any element of path starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == "." || part == ".." || part == "" {
			continue
		}
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
