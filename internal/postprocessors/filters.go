package postprocessors

import (
	"regexp"
	"strings"

	"github.com/criskgl/peritoai/internal/core/ports/driven"
)

// Built-in filter names.
const (
	FilterWhitespace  = "whitespace"
	FilterDehyphenate = "dehyphenate"
	FilterPageNumbers = "page_numbers"
)

// DefaultFilters is the filter chain used when none is configured.
var DefaultFilters = []string{FilterPageNumbers, FilterDehyphenate, FilterWhitespace}

var (
	_ driven.TextFilter = Whitespace{}
	_ driven.TextFilter = Dehyphenate{}
	_ driven.TextFilter = PageNumbers{}
)

var (
	horizontalSpace = regexp.MustCompile(`[ \t\f\v\x{00A0}]+`)
	blankLines      = regexp.MustCompile(`\n{3,}`)
	hyphenBreak     = regexp.MustCompile(`(\p{Ll})-\n[ \t]*(\p{Ll})`)
	pageNumberLine  = regexp.MustCompile(`(?im)^[ \t]*(?:(?:página|pagina|pág\.?|page|p\.)[ \t]*\d{1,4}(?:[ \t]*(?:de|/|of)[ \t]*\d{1,4})?|\d{1,4}[ \t]*(?:de|/|of)[ \t]*\d{1,4})[ \t]*$`)
)

// Whitespace normalises line endings, collapses runs of spaces and tabs,
// trims line ends and keeps at most one blank line between paragraphs.
type Whitespace struct{}

// Name returns the filter name.
func (Whitespace) Name() string { return FilterWhitespace }

// Apply cleans text.
func (Whitespace) Apply(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(horizontalSpace.ReplaceAllString(line, " "))
	}
	text = strings.Join(lines, "\n")

	return strings.TrimSpace(blankLines.ReplaceAllString(text, "\n\n"))
}

// Dehyphenate joins words split across lines by a hyphen, as produced by
// PDF text extraction ("cober-\nturas" becomes "coberturas").
type Dehyphenate struct{}

// Name returns the filter name.
func (Dehyphenate) Name() string { return FilterDehyphenate }

// Apply joins hyphenated line breaks between lower-case letters.
func (Dehyphenate) Apply(text string) string {
	return hyphenBreak.ReplaceAllString(text, "$1$2")
}

// PageNumbers removes lines holding only a page marker, such as
// "Página 3 de 12", "page 4" or "4/10". A bare number on its own line is
// kept: it is as likely to be an amount as a page.
type PageNumbers struct{}

// Name returns the filter name.
func (PageNumbers) Name() string { return FilterPageNumbers }

// Apply blanks page-number lines.
func (PageNumbers) Apply(text string) string {
	return pageNumberLine.ReplaceAllString(text, "")
}
