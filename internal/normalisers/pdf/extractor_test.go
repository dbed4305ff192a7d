package pdf

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/criskgl/peritoai/internal/core/ports/driven"
)

// mockRunner is a test double for CommandRunner.
type mockRunner struct {
	output []byte
	err    error
	name   string
	args   []string
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	m.name, m.args = name, args
	return m.output, m.err
}

func writeFakePDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "POLIZA_HOGAR_GLOBAL.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 fake"), 0600))
	return path
}

func TestNew(t *testing.T) {
	e := New()
	require.NotNil(t, e)
	assert.Equal(t, "pdf", e.Name())
	assert.Equal(t, []string{".pdf"}, e.SupportedExtensions())
	assert.Equal(t, 50, e.Priority())
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Extractor = (*Extractor)(nil)
}

func TestExtract_WithMockRunner(t *testing.T) {
	path := writeFakePDF(t)
	runner := &mockRunner{output: []byte("Condiciones generales   \n\n\n\nDaños por agua\f\nPágina 2\n")}

	text, err := NewWithRunner(runner).Extract(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "Condiciones generales\n\nDaños por agua\n\nPágina 2", text)
	assert.Equal(t, "pdftotext", runner.name)
	assert.Equal(t, path, runner.args[len(runner.args)-2])
	assert.Equal(t, "-", runner.args[len(runner.args)-1])
}

func TestExtract_RunnerError(t *testing.T) {
	path := writeFakePDF(t)
	runner := &mockRunner{err: errors.New("pdftotext crashed")}

	_, err := NewWithRunner(runner).Extract(context.Background(), path)
	assert.ErrorContains(t, err, "pdftotext failed")
}

func TestExtract_ToolMissing(t *testing.T) {
	path := writeFakePDF(t)
	runner := &mockRunner{err: ErrPDFToolNotFound}

	_, err := NewWithRunner(runner).Extract(context.Background(), path)
	assert.ErrorIs(t, err, ErrPDFToolNotFound)
}

func TestExtract_MissingFile(t *testing.T) {
	_, err := NewWithRunner(&mockRunner{}).Extract(context.Background(), "/does/not/exist.pdf")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestInstallInstructions(t *testing.T) {
	instructions := InstallInstructions()
	assert.Contains(t, instructions, "pdftotext")
	assert.Contains(t, instructions, "brew install poppler")
	assert.Contains(t, instructions, "apt install poppler-utils")
}

func TestErrPDFToolNotFound(t *testing.T) {
	assert.Contains(t, ErrPDFToolNotFound.Error(), "pdftotext")
}

// Integration test - only runs if pdftotext is available.
func TestExtract_Integration(t *testing.T) {
	if err := CheckAvailable(); err != nil {
		t.Skip("pdftotext not available, skipping integration test")
	}
	t.Skip("integration test requires sample PDF file")
}
