package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/criskgl/peritoai/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/criskgl/peritoai/internal/core/domain"
	"github.com/criskgl/peritoai/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.ChunkStore = (*Store)(nil)

// DatabaseFile is the file name of the index inside the data directory.
const DatabaseFile = "index.db"

// Store is a SQLite-backed chunk store.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.peritoai/data/index.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".peritoai", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	// Foreign keys are per connection, so they are set in the DSN.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
		now:  func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}

		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// IsIndexed reports whether the document has at least one chunk.
func (s *Store) IsIndexed(ctx context.Context, ref domain.DocumentRef) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM chunks WHERE kind = ? AND document_id = ?)
	`, string(ref.Kind), ref.ID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking document %s: %w", ref, err)
	}
	return exists, nil
}

// Insert stores a document and its chunks in one transaction.
// Under InsertSkipIfPresent an indexed document is left untouched and false
// is returned. Under InsertReplaceAll the previous chunk set is deleted in
// the same transaction that writes the new one.
func (s *Store) Insert(
	ctx context.Context, doc domain.Document, chunks []domain.Chunk, mode domain.InsertMode,
) (bool, error) {
	if doc.ID == "" || !doc.Kind.IsValid() {
		return false, fmt.Errorf("%w: document needs an id and a valid kind", domain.ErrInvalidInput)
	}
	if len(chunks) == 0 {
		return false, fmt.Errorf("%w: document %s has no chunks", domain.ErrInvalidInput, doc.Ref())
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if mode == domain.InsertSkipIfPresent {
		var exists bool
		if err := tx.QueryRowContext(ctx, `
			SELECT EXISTS(SELECT 1 FROM chunks WHERE kind = ? AND document_id = ?)
		`, string(doc.Kind), doc.ID).Scan(&exists); err != nil {
			return false, fmt.Errorf("checking document %s: %w", doc.Ref(), err)
		}
		if exists {
			return false, nil
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM chunks WHERE kind = ? AND document_id = ?`, string(doc.Kind), doc.ID); err != nil {
		return false, fmt.Errorf("clearing chunks: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (kind, id, display_name, source_file, source_path, source_collection, chunk_count, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(kind, id) DO UPDATE SET
			display_name = excluded.display_name,
			source_file = excluded.source_file,
			source_path = excluded.source_path,
			source_collection = excluded.source_collection,
			chunk_count = excluded.chunk_count,
			indexed_at = excluded.indexed_at
	`, string(doc.Kind), doc.ID, doc.DisplayName, doc.SourceFile, doc.SourcePath,
		doc.SourceCollection, len(chunks), s.now())
	if err != nil {
		return false, fmt.Errorf("saving document: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, kind, document_id, sequence, text, source_file, source_path, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return false, fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		if _, err := stmt.ExecContext(ctx, chunk.ID, string(doc.Kind), doc.ID, chunk.Sequence,
			chunk.Text, chunk.SourceFile, chunk.SourcePath, float32SliceToBytes(chunk.Embedding)); err != nil {
			return false, fmt.Errorf("saving chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing transaction: %w", err)
	}
	return true, nil
}

// ListDocuments returns all documents ordered by id, then kind.
func (s *Store) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, id, display_name, source_file, source_path, source_collection, chunk_count, indexed_at
		FROM documents
		ORDER BY id, kind
	`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	docs := []domain.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// Search ranks the chunks of refs by cosine similarity to vector.
// A limit of zero or less returns every chunk.
func (s *Store) Search(
	ctx context.Context, vector []float32, refs []domain.DocumentRef, limit int,
) ([]domain.ScoredChunk, error) {
	results := []domain.ScoredChunk{}
	if len(refs) == 0 {
		return results, nil
	}

	seen := make(map[domain.DocumentRef]bool, len(refs))
	clauses := make([]string, 0, len(refs))
	args := make([]any, 0, len(refs)*2)
	for _, ref := range refs {
		if seen[ref] {
			continue
		}
		seen[ref] = true
		clauses = append(clauses, "(kind = ? AND document_id = ?)")
		args = append(args, string(ref.Kind), ref.ID)
	}

	//nolint:gosec // only placeholders are concatenated
	query := `
		SELECT id, kind, document_id, sequence, text, source_file, source_path, embedding
		FROM chunks WHERE ` + strings.Join(clauses, " OR ")

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		score, err := domain.CosineSimilarity(vector, chunk.Embedding)
		if err != nil {
			return nil, fmt.Errorf("scoring chunk %s: %w", chunk.ID, err)
		}
		results = append(results, domain.ScoredChunk{Chunk: chunk, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	sort.Slice(results, func(i, j int) bool {
		return domain.RankBefore(results[i], results[j])
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// DeleteDocument removes a document and, by cascade, its chunks.
func (s *Store) DeleteDocument(ctx context.Context, ref domain.DocumentRef) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE kind = ? AND id = ?`, string(ref.Kind), ref.ID)
	if err != nil {
		return fmt.Errorf("deleting document %s: %w", ref, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Keys of the index_meta table.
const (
	metaEmbeddingModel      = "embedding_model"
	metaEmbeddingDimensions = "embedding_dimensions"
)

// EmbeddingModel returns the model recorded in index_meta.
func (s *Store) EmbeddingModel(ctx context.Context) (domain.EmbeddingModel, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM index_meta WHERE key IN (?, ?)`,
		metaEmbeddingModel, metaEmbeddingDimensions)
	if err != nil {
		return domain.EmbeddingModel{}, fmt.Errorf("querying index metadata: %w", err)
	}
	defer rows.Close()

	var model domain.EmbeddingModel
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return domain.EmbeddingModel{}, fmt.Errorf("scanning index metadata: %w", err)
		}
		switch key {
		case metaEmbeddingModel:
			model.Name = value
		case metaEmbeddingDimensions:
			dims, err := strconv.Atoi(value)
			if err != nil {
				return domain.EmbeddingModel{}, fmt.Errorf("parsing %s %q: %w", key, value, err)
			}
			model.Dimensions = dims
		}
	}
	if err := rows.Err(); err != nil {
		return domain.EmbeddingModel{}, fmt.Errorf("iterating index metadata: %w", err)
	}
	return model, nil
}

// SetEmbeddingModel records model in index_meta.
func (s *Store) SetEmbeddingModel(ctx context.Context, model domain.EmbeddingModel) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for key, value := range map[string]string{
		metaEmbeddingModel:      model.Name,
		metaEmbeddingDimensions: strconv.Itoa(model.Dimensions),
	} {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO index_meta (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, key, value); err != nil {
			return fmt.Errorf("saving %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// scanDocument scans a document from *sql.Rows.
func scanDocument(rows *sql.Rows) (domain.Document, error) {
	var doc domain.Document
	var kind string

	if err := rows.Scan(&kind, &doc.ID, &doc.DisplayName, &doc.SourceFile, &doc.SourcePath,
		&doc.SourceCollection, &doc.ChunkCount, &doc.IndexedAt); err != nil {
		return domain.Document{}, fmt.Errorf("scanning document: %w", err)
	}
	doc.Kind = domain.Kind(kind)
	return doc, nil
}

// scanChunk scans a chunk from *sql.Rows.
func scanChunk(rows *sql.Rows) (domain.Chunk, error) {
	var chunk domain.Chunk
	var kind string
	var embeddingBlob []byte

	if err := rows.Scan(&chunk.ID, &kind, &chunk.DocumentID, &chunk.Sequence, &chunk.Text,
		&chunk.SourceFile, &chunk.SourcePath, &embeddingBlob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Chunk{}, domain.ErrNotFound
		}
		return domain.Chunk{}, fmt.Errorf("scanning chunk: %w", err)
	}

	chunk.Kind = domain.Kind(kind)
	chunk.Embedding = bytesToFloat32Slice(embeddingBlob)
	return chunk, nil
}
