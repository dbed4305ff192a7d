package services

import (
	"fmt"
	"slices"
	"strings"

	"github.com/criskgl/peritoai/internal/core/domain"
)

// contextGroup is the contiguous block of one document's chunks.
type contextGroup struct {
	doc    domain.Document
	chunks []domain.ScoredChunk
}

// groupChunks groups ranked chunks by document.
//
// Groups are ordered by their best chunk's rank, so the group holding the
// globally best chunk comes first; chunks inside a group keep rank order.
// ranked must already be sorted with domain.RankBefore.
func groupChunks(ranked []domain.ScoredChunk, docs map[domain.DocumentRef]domain.Document) []contextGroup {
	index := make(map[domain.DocumentRef]int)
	var groups []contextGroup

	for _, sc := range ranked {
		ref := sc.Chunk.Ref()
		i, ok := index[ref]
		if !ok {
			doc, known := docs[ref]
			if !known {
				doc = domain.Document{
					ID:          ref.ID,
					Kind:        ref.Kind,
					DisplayName: domain.DisplayName(ref.ID, ref.Kind),
					SourceFile:  sc.Chunk.SourceFile,
				}
			}
			i = len(groups)
			index[ref] = i
			groups = append(groups, contextGroup{doc: doc})
		}
		groups[i].chunks = append(groups[i].chunks, sc)
	}
	return groups
}

// formatContext renders groups as the context handed to the generator:
//
//	[Póliza: POLIZA_HOGAR_GLOBAL]
//	  [Sección 1]
//	  chunk text
//	  (Fuente: POLIZA_HOGAR_GLOBAL.pdf)
//
// Sections and groups are separated by a blank line.
func formatContext(groups []contextGroup) string {
	blocks := make([]string, 0, len(groups))
	for _, g := range groups {
		var b strings.Builder
		fmt.Fprintf(&b, "[%s: %s]\n", g.doc.Kind.Label(), displayName(g.doc))

		sections := make([]string, len(g.chunks))
		for i, sc := range g.chunks {
			source := sc.Chunk.SourceFile
			if source == "" {
				source = g.doc.SourceFile
			}
			sections[i] = fmt.Sprintf("  [Sección %d]\n%s\n  (Fuente: %s)",
				i+1, indent(strings.TrimSpace(sc.Chunk.Text), "  "), source)
		}
		b.WriteString(strings.Join(sections, "\n\n"))
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n")
}

func displayName(doc domain.Document) string {
	if doc.DisplayName != "" {
		return doc.DisplayName
	}
	return domain.DisplayName(doc.ID, doc.Kind)
}

// indent prefixes every non-empty line of s.
func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			lines[i] = prefix + line
		} else {
			lines[i] = ""
		}
	}
	return strings.Join(lines, "\n")
}

// rankChunks deduplicates by chunk id, keeping the best-scored copy, and
// sorts with domain.RankBefore.
func rankChunks(chunks []domain.ScoredChunk) []domain.ScoredChunk {
	best := make(map[string]int, len(chunks))
	out := make([]domain.ScoredChunk, 0, len(chunks))

	for _, sc := range chunks {
		if i, ok := best[sc.Chunk.ID]; ok {
			if domain.RankBefore(sc, out[i]) {
				out[i] = sc
			}
			continue
		}
		best[sc.Chunk.ID] = len(out)
		out = append(out, sc)
	}

	slices.SortStableFunc(out, func(a, b domain.ScoredChunk) int {
		switch {
		case domain.RankBefore(a, b):
			return -1
		case domain.RankBefore(b, a):
			return 1
		default:
			return strings.Compare(a.Chunk.ID, b.Chunk.ID)
		}
	})
	return out
}

// applyBudget cuts ranked chunks to budget, keeping rank order. When the
// budget covers every document present, each document keeps its best chunk
// and the remaining slots go by global rank. A budget of zero or less keeps
// everything.
func applyBudget(ranked []domain.ScoredChunk, budget int) []domain.ScoredChunk {
	if budget <= 0 || len(ranked) <= budget {
		return ranked
	}

	best := make([]bool, len(ranked))
	seen := make(map[domain.DocumentRef]bool)
	for i, sc := range ranked {
		if ref := sc.Chunk.Ref(); !seen[ref] {
			seen[ref] = true
			best[i] = true
		}
	}
	if len(seen) > budget {
		return ranked[:budget]
	}

	spare := budget - len(seen)
	out := make([]domain.ScoredChunk, 0, budget)
	for i, sc := range ranked {
		switch {
		case best[i]:
			out = append(out, sc)
		case spare > 0:
			out = append(out, sc)
			spare--
		}
	}
	return out
}
