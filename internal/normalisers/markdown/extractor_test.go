package markdown

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrip(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "headings",
			input:    "# Póliza\n## Coberturas",
			expected: "Póliza\nCoberturas",
		},
		{
			name:     "emphasis and links",
			input:    "Ver **artículo 3** en [anexo](http://x/anexo.pdf).",
			expected: "Ver artículo 3 en anexo.",
		},
		{
			name:     "bullet lists keep numbered clauses",
			input:    "- daños por agua\n* incendio\n1. Exclusiones",
			expected: "daños por agua\nincendio\n1. Exclusiones",
		},
		{
			name:     "code fences keep content",
			input:    "```\nliteral\n```",
			expected: "literal",
		},
		{
			name:     "blockquote and rule",
			input:    "> nota\n\n---\n\nfin",
			expected: "nota\n\nfin",
		},
		{
			name:     "underscores in identifiers survive",
			input:    "Ver 21._Lluvia_y_nieve",
			expected: "Ver 21._Lluvia_y_nieve",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Strip(tc.input))
		})
	}
}

func TestExtract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "protocolo.md")
	require.NoError(t, os.WriteFile(path, []byte("# Lluvia\n\nCubre **daños**."), 0600))

	text, err := New().Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Lluvia\n\nCubre daños.", text)
}

func TestExtractor_Metadata(t *testing.T) {
	e := New()
	assert.Equal(t, "markdown", e.Name())
	assert.Equal(t, []string{".md", ".markdown"}, e.SupportedExtensions())
	assert.Equal(t, 50, e.Priority())
}
