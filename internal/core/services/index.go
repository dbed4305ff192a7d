package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/criskgl/peritoai/internal/core/domain"
	"github.com/criskgl/peritoai/internal/core/ports/driven"
	"github.com/criskgl/peritoai/internal/core/ports/driving"
	"github.com/criskgl/peritoai/internal/logger"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

// Document outcomes recorded in metrics.
const (
	resultIndexed  = "indexed"
	resultReplaced = "replaced"
	resultSkipped  = "skipped"
	resultRemoved  = "removed"
	resultFailed   = "failed"
)

// DefaultBatchSize is the number of chunks embedded per request.
const DefaultBatchSize = 32

// DefaultDebounce is how long a watched file must stay quiet before it
// is reindexed.
const DefaultDebounce = 500 * time.Millisecond

var errNoText = errors.New("no text extracted")

// IndexService ingests the policy and protocol collections into the index.
//
// Passes are serialised: a second Index call while one is running fails
// with domain.ErrIndexInProgress. Watch waits for a running pass instead.
type IndexService struct {
	index       *IndexStore
	collections []driven.Collection
	extractors  driven.ExtractorRegistry
	pipeline    driven.PostProcessorPipeline
	metrics     driven.Metrics

	batchSize int
	debounce  time.Duration
	now       func() time.Time

	mu sync.Mutex
}

// IndexOption configures the index service.
type IndexOption func(*IndexService)

// WithBatchSize sets the number of chunks embedded per request.
func WithBatchSize(n int) IndexOption {
	return func(s *IndexService) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithDebounce sets the quiet period before a watched change is applied.
func WithDebounce(d time.Duration) IndexOption {
	return func(s *IndexService) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m driven.Metrics) IndexOption {
	return func(s *IndexService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithClock replaces time.Now for IndexedAt timestamps.
func WithClock(now func() time.Time) IndexOption {
	return func(s *IndexService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewIndexService creates an index service over the given collections.
func NewIndexService(
	index *IndexStore,
	collections []driven.Collection,
	extractors driven.ExtractorRegistry,
	pipeline driven.PostProcessorPipeline,
	opts ...IndexOption,
) *IndexService {
	s := &IndexService{
		index:       index,
		collections: collections,
		extractors:  extractors,
		pipeline:    pipeline,
		metrics:     nopMetrics{},
		batchSize:   DefaultBatchSize,
		debounce:    DefaultDebounce,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Index runs one indexing pass.
//
// A file that cannot be indexed is reported in the result and the pass
// carries on with the next one. Embedding service failures and
// configuration errors abort the pass. With opts.Rebuild every document is
// replaced and documents whose files are gone are removed. A pass over an
// index built with another embedding model fails unless it rebuilds every
// collection, in which case the index is cleared first.
func (s *IndexService) Index(ctx context.Context, opts domain.IndexOptions) (*domain.IndexReport, error) {
	if !s.mu.TryLock() {
		return nil, domain.ErrIndexInProgress
	}
	defer s.mu.Unlock()

	logger.Section("Indexing")
	defer logger.Timed("indexing pass")()

	report := &domain.IndexReport{}
	if err := s.prepareModel(ctx, opts, report); err != nil {
		return report, err
	}
	var errs []error

	for _, col := range s.collections {
		if !opts.Includes(col.Kind()) {
			continue
		}

		colReport, err := s.indexCollection(ctx, col, opts)
		report.Merge(colReport)
		if err != nil {
			if isFatal(err) {
				return report, err
			}
			errs = append(errs, fmt.Errorf("collection %s: %w", col.Name(), err))
		}
	}

	logger.Info("Indexed %d, replaced %d, skipped %d, removed %d, failed %d (%d chunks)",
		report.Indexed, report.Replaced, report.Skipped, report.Removed, len(report.Failures), report.Chunks)

	return report, errors.Join(errs...)
}

// prepareModel checks the index against the configured embedding model.
// Vectors of two models cannot be ranked together, so a full rebuild after
// a model change starts from an empty index.
func (s *IndexService) prepareModel(ctx context.Context, opts domain.IndexOptions, report *domain.IndexReport) error {
	err := s.index.CheckModel(ctx)
	if !errors.Is(err, domain.ErrEmbeddingModelChanged) || !opts.Rebuild {
		return err
	}
	for _, col := range s.collections {
		if !opts.Includes(col.Kind()) {
			return fmt.Errorf("%w (rebuild every collection, not only %v)", err, opts.Kinds)
		}
	}

	logger.Info("Embedding model changed to %s, clearing the index", s.index.Model())
	docs, err := s.index.ListDocuments(ctx)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if err := s.index.DeleteDocument(ctx, doc.Ref()); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		s.count(report, resultRemoved, 0)
	}
	return nil
}

// indexCollection indexes every file of one collection.
func (s *IndexService) indexCollection(
	ctx context.Context, col driven.Collection, opts domain.IndexOptions,
) (domain.IndexReport, error) {
	var report domain.IndexReport

	files, err := col.List(ctx)
	if err != nil {
		return report, err
	}
	logger.Debug("Collection %s: %d files", col.Name(), len(files))

	seen := make(map[domain.DocumentRef]string, len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		id := domain.DeriveIdentity(file.Name, col.Kind())
		ref := domain.DocumentRef{Kind: id.Kind, ID: id.ID}
		if prev, dup := seen[ref]; dup {
			s.fail(&report, file.Path, duplicateIDError(id.ID, prev))
			continue
		}
		seen[ref] = file.Path

		result, chunks, err := s.indexFile(ctx, col, file, opts.Mode())
		if err != nil {
			if isFatal(err) {
				return report, err
			}
			s.fail(&report, file.Path, err)
			continue
		}
		s.count(&report, result, chunks)
	}

	if opts.Rebuild {
		if err := s.prune(ctx, col, seen, &report); err != nil {
			return report, err
		}
	}
	return report, nil
}

// indexFile extracts, chunks, embeds and stores one file.
// Extraction problems are returned as *domain.ExtractionError.
func (s *IndexService) indexFile(
	ctx context.Context, col driven.Collection, file driven.SourceFile, mode domain.InsertMode,
) (result string, chunkCount int, err error) {
	id := domain.DeriveIdentity(file.Name, col.Kind())
	ref := domain.DocumentRef{Kind: id.Kind, ID: id.ID}

	indexed, err := s.index.IsIndexed(ctx, ref)
	if err != nil {
		return "", 0, err
	}
	if indexed && mode == domain.InsertSkipIfPresent {
		logger.Debug("Skipping %s: already indexed", ref)
		return resultSkipped, 0, nil
	}

	logger.Debug("Processing: %s", file.Path)
	text, err := s.extractors.Extract(ctx, file.Path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", 0, ctxErr
		}
		return "", 0, &domain.ExtractionError{Path: file.Path, Err: err}
	}

	doc := domain.Document{
		ID:               id.ID,
		Kind:             id.Kind,
		DisplayName:      id.DisplayName,
		SourceFile:       file.Name,
		SourcePath:       file.Path,
		SourceCollection: col.Name(),
		IndexedAt:        s.now().UTC(),
	}

	chunks, err := s.pipeline.Process(ctx, doc, text)
	if err != nil {
		return "", 0, fmt.Errorf("chunk %s: %w", ref, err)
	}
	if len(chunks) == 0 {
		return "", 0, &domain.ExtractionError{Path: file.Path, Err: errNoText}
	}

	if err := s.index.EmbedChunks(ctx, chunks, s.batchSize); err != nil {
		return "", 0, fmt.Errorf("embed %s: %w", ref, err)
	}

	inserted, err := s.index.Insert(ctx, doc, chunks, mode)
	if err != nil {
		return "", 0, err
	}

	switch {
	case !inserted:
		return resultSkipped, 0, nil
	case indexed:
		logger.Debug("Replaced %s (%d chunks)", ref, len(chunks))
		return resultReplaced, len(chunks), nil
	default:
		logger.Debug("Indexed %s (%d chunks)", ref, len(chunks))
		return resultIndexed, len(chunks), nil
	}
}

// prune removes documents of col whose files were not seen in this pass.
func (s *IndexService) prune(
	ctx context.Context, col driven.Collection, seen map[domain.DocumentRef]string, report *domain.IndexReport,
) error {
	docs, err := s.index.ListDocuments(ctx)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if doc.Kind != col.Kind() {
			continue
		}
		if _, ok := seen[doc.Ref()]; ok {
			continue
		}
		if err := s.index.DeleteDocument(ctx, doc.Ref()); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		logger.Debug("Removed %s: source file is gone", doc.Ref())
		s.count(report, resultRemoved, 0)
	}
	return nil
}

// IndexFile reindexes a single file, replacing any previous version.
// The file must belong to one of the collections.
func (s *IndexService) IndexFile(ctx context.Context, path string) (*domain.IndexReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexFileLocked(ctx, path)
}

func (s *IndexService) indexFileLocked(ctx context.Context, path string) (*domain.IndexReport, error) {
	col, err := s.collectionFor(path)
	if err != nil {
		return nil, err
	}

	report := &domain.IndexReport{}
	file := driven.SourceFile{Path: path, Name: filepath.Base(path)}

	id := domain.DeriveIdentity(file.Name, col.Kind())
	owner, err := s.ownerOf(ctx, col, domain.DocumentRef{Kind: id.Kind, ID: id.ID})
	if err != nil {
		return report, err
	}
	if owner != "" && !samePath(owner, path) {
		s.fail(report, path, duplicateIDError(id.ID, owner))
		return report, nil
	}

	result, chunks, err := s.indexFile(ctx, col, file, domain.InsertReplaceAll)
	if err != nil {
		if isFatal(err) {
			return report, err
		}
		s.fail(report, path, err)
		return report, nil
	}
	s.count(report, result, chunks)
	return report, nil
}

// ownerOf returns the source path of the indexed document ref when that
// file is still listed by col, or "" when no live file owns the id.
func (s *IndexService) ownerOf(ctx context.Context, col driven.Collection, ref domain.DocumentRef) (string, error) {
	docs, err := s.index.ListDocuments(ctx)
	if err != nil {
		return "", err
	}
	i := slices.IndexFunc(docs, func(d domain.Document) bool { return d.Ref() == ref })
	if i < 0 || docs[i].SourcePath == "" {
		return "", nil
	}

	files, err := col.List(ctx)
	if err != nil {
		return "", err
	}
	for _, f := range files {
		if samePath(f.Path, docs[i].SourcePath) {
			return docs[i].SourcePath, nil
		}
	}
	return "", nil
}

// RemoveFile deletes the document built from path, if any.
func (s *IndexService) RemoveFile(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeFileLocked(ctx, path)
}

func (s *IndexService) removeFileLocked(ctx context.Context, path string) error {
	col, err := s.collectionFor(path)
	if err != nil {
		return err
	}

	id := domain.DeriveIdentity(filepath.Base(path), col.Kind())
	ref := domain.DocumentRef{Kind: id.Kind, ID: id.ID}

	docs, err := s.index.ListDocuments(ctx)
	if err != nil {
		return err
	}
	if i := slices.IndexFunc(docs, func(d domain.Document) bool { return d.Ref() == ref }); i >= 0 {
		if src := docs[i].SourcePath; src != "" && !samePath(src, path) {
			logger.Debug("Keeping %s: built from %s", ref, src)
			return nil
		}
	}

	if err := s.index.DeleteDocument(ctx, ref); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	logger.Debug("Removed %s", ref)
	s.metrics.DocumentIndexed(resultRemoved)
	return nil
}

// RemoveDocument deletes a document and its chunks from the index.
func (s *IndexService) RemoveDocument(ctx context.Context, ref domain.DocumentRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.DeleteDocument(ctx, ref); err != nil {
		return err
	}
	s.metrics.DocumentIndexed(resultRemoved)
	return nil
}

// Watch reindexes files as they change until ctx is cancelled.
//
// Changes to the same file are coalesced until it has been quiet for the
// debounce period. Created and updated files are reindexed with
// InsertReplaceAll; deleted and renamed files are removed from the index.
// Collections whose directory cannot be watched are skipped.
func (s *IndexService) Watch(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	merged := make(chan driven.FileEvent)
	var wg sync.WaitGroup
	watching := 0

	for _, col := range s.collections {
		events, err := col.Watch(ctx)
		if err != nil {
			logger.Warn("Not watching %s: %v", col.Name(), err)
			continue
		}
		watching++
		logger.Info("Watching %s (%s)", col.Root(), col.Kind())

		wg.Add(1)
		go func() {
			defer wg.Done()
			for ev := range events {
				select {
				case merged <- ev:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	if watching == 0 {
		return fmt.Errorf("%w: no collection directory can be watched", domain.ErrConfiguration)
	}

	go func() {
		wg.Wait()
		close(merged)
	}()

	pending := make(map[string]domain.ChangeType)
	timer := time.NewTimer(s.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-merged:
			if !ok {
				return nil
			}
			prev, had := pending[ev.Path]
			pending[ev.Path] = coalesce(prev, ev.Change, had)
			timer.Reset(s.debounce)

		case <-timer.C:
			s.applyChanges(ctx, pending)
			pending = make(map[string]domain.ChangeType)
		}
	}
}

// applyChanges processes pending changes in path order.
func (s *IndexService) applyChanges(ctx context.Context, pending map[string]domain.ChangeType) {
	paths := make([]string, 0, len(pending))
	for p := range pending {
		paths = append(paths, p)
	}
	slices.Sort(paths)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, path := range paths {
		if ctx.Err() != nil {
			return
		}

		change := pending[path]
		logger.Debug("Change %s: %s", change, path)

		if change == domain.ChangeDeleted {
			if err := s.removeFileLocked(ctx, path); err != nil {
				logger.Error("removing %s: %v", path, err)
			}
			continue
		}

		report, err := s.indexFileLocked(ctx, path)
		if err != nil {
			logger.Error("indexing %s: %v", path, err)
			continue
		}
		for _, f := range report.Failures {
			logger.Warn("%v", f)
		}
	}
}

// coalesce merges a new change into a pending one. A delete followed by a
// create is an update; anything followed by a delete is a delete.
func coalesce(prev, next domain.ChangeType, hadPrev bool) domain.ChangeType {
	if !hadPrev {
		return next
	}
	if next == domain.ChangeDeleted {
		return domain.ChangeDeleted
	}
	if prev == domain.ChangeCreated {
		return domain.ChangeCreated
	}
	return domain.ChangeUpdated
}

// collectionFor returns the collection whose root contains path.
func (s *IndexService) collectionFor(path string) (driven.Collection, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, path)
	}
	for _, col := range s.collections {
		root, err := filepath.Abs(col.Root())
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(root, abs)
		if err == nil && rel != "." && !strings.HasPrefix(rel, "..") {
			return col, nil
		}
	}
	return nil, fmt.Errorf("%w: %s is not in any collection", domain.ErrInvalidInput, path)
}

func (s *IndexService) count(report *domain.IndexReport, result string, chunks int) {
	switch result {
	case resultIndexed:
		report.Indexed++
	case resultReplaced:
		report.Replaced++
	case resultSkipped:
		report.Skipped++
	case resultRemoved:
		report.Removed++
	}
	report.Chunks += chunks
	s.metrics.DocumentIndexed(result)
}

// fail records a file that could not be indexed.
func (s *IndexService) fail(report *domain.IndexReport, path string, err error) {
	var extractErr *domain.ExtractionError
	if errors.As(err, &extractErr) {
		err = fmt.Errorf("%w: %w", domain.ErrExtraction, extractErr.Err)
	}
	logger.Warn("Failed to index %s: %v", path, err)
	report.Failures = append(report.Failures, &domain.FileError{Path: path, Err: err})
	s.metrics.DocumentIndexed(resultFailed)
}

func duplicateIDError(id, owner string) error {
	return fmt.Errorf("%w: document id %q already taken by %s", domain.ErrInvalidInput, id, filepath.Base(owner))
}

func samePath(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}

// isFatal reports errors that end the whole pass rather than one file.
func isFatal(err error) bool {
	return errors.Is(err, domain.ErrEmbeddingService) ||
		errors.Is(err, domain.ErrEmbeddingUnavailable) ||
		errors.Is(err, domain.ErrConfiguration) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
