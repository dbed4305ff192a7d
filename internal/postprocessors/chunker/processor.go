// Package chunker splits extracted document text into overlapping segments.
package chunker

import (
	"fmt"
	"iter"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/criskgl/peritoai/internal/core/domain"
	"github.com/criskgl/peritoai/internal/core/ports/driven"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// Segment is one slice of the input text.
// Start and End are rune offsets; End is exclusive.
type Segment struct {
	Index int
	Start int
	End   int
	Text  string
}

// Validate checks that a size and overlap allow the splitter to progress.
func Validate(maxLen, overlap int) error {
	return domain.ChunkingSettings{Size: maxLen, Overlap: overlap}.Validate()
}

// Split returns a lazy sequence of overlapping segments covering text.
//
// Lengths are counted in runes. Every segment is at most maxLen runes and
// each one after the first starts overlap runes before the previous end, so
// text[prev.End:cur.End] concatenated over all segments reproduces text.
// Cut points prefer a sentence end, then whitespace, within a short
// look-back window; otherwise the text is cut at maxLen.
//
// Empty text and invalid parameters yield no segments. Callers validate
// parameters up front with Validate or New.
func Split(text string, maxLen, overlap int) iter.Seq[Segment] {
	return func(yield func(Segment) bool) {
		if text == "" || Validate(maxLen, overlap) != nil {
			return
		}

		runes := []rune(text)
		n := len(runes)
		start := 0

		for i := 0; start < n; i++ {
			end := start + maxLen
			if end >= n {
				end = n
			} else {
				end = cutPoint(runes, start, end, overlap, maxLen)
			}

			seg := Segment{
				Index: i,
				Start: start,
				End:   end,
				Text:  string(runes[start:end]),
			}
			if !yield(seg) || end == n {
				return
			}

			start = end - overlap
		}
	}
}

// cutPoint picks where a segment ending at or before limit should stop.
// The result is always greater than start+overlap so the next segment
// starts strictly after this one.
func cutPoint(runes []rune, start, limit, overlap, maxLen int) int {
	window := max(1, maxLen/10)
	lowest := max(limit-window, start+overlap+1)

	// Sentence end: terminal punctuation followed by whitespace, cut after
	// the whitespace. A line break also ends a sentence.
	for p := limit; p >= lowest; p-- {
		if runes[p-1] == '\n' {
			return p
		}
		if p-2 >= start && unicode.IsSpace(runes[p-1]) && isTerminal(runes[p-2]) {
			return p
		}
	}

	// Word boundary.
	for p := limit; p >= lowest; p-- {
		if unicode.IsSpace(runes[p-1]) {
			return p
		}
	}

	return limit
}

func isTerminal(r rune) bool {
	return strings.ContainsRune(".!?;:", r)
}

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// Processor turns document text into domain chunks.
type Processor struct {
	chunkSize int
	overlap   int
	newID     func() string
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		p.chunkSize = size
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		p.overlap = overlap
	}
}

// WithIDGenerator replaces the uuid chunk id generator.
func WithIDGenerator(fn func() string) Option {
	return func(p *Processor) {
		if fn != nil {
			p.newID = fn
		}
	}
}

// New creates a new chunker processor with the given options.
// An overlap that is not smaller than the chunk size is a configuration
// error.
func New(opts ...Option) (*Processor, error) {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
		newID:     uuid.NewString,
	}

	for _, opt := range opts {
		opt(p)
	}

	if err := Validate(p.chunkSize, p.overlap); err != nil {
		return nil, fmt.Errorf("chunker: %w", err)
	}

	return p, nil
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the configured maximum chunk length.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Segments splits text with the processor's settings.
func (p *Processor) Segments(text string) iter.Seq[Segment] {
	return Split(text, p.chunkSize, p.overlap)
}

// Chunk splits text into chunks owned by doc.
// Embeddings are left empty; empty text produces no chunks.
func (p *Processor) Chunk(doc domain.Document, text string) []domain.Chunk {
	var chunks []domain.Chunk
	for seg := range p.Segments(text) {
		chunks = append(chunks, domain.Chunk{
			ID:         p.newID(),
			DocumentID: doc.ID,
			Kind:       doc.Kind,
			SourceFile: doc.SourceFile,
			SourcePath: doc.SourcePath,
			Sequence:   seg.Index,
			Text:       seg.Text,
		})
	}
	return chunks
}
