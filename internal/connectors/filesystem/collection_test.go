package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/criskgl/peritoai/internal/core/domain"
	"github.com/criskgl/peritoai/internal/core/ports/driven"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		c, err := New(domain.KindProtocol, "/data/internal_protocol_coverage/", "")
		require.NoError(t, err)
		assert.Equal(t, "internal_protocol_coverage", c.Name())
		assert.Equal(t, domain.KindProtocol, c.Kind())
		assert.Equal(t, "/data/internal_protocol_coverage", c.Root())
		assert.Equal(t, DefaultPattern, c.pattern)
	})

	t.Run("invalid pattern", func(t *testing.T) {
		_, err := New(domain.KindPolicy, "/data", "**/*.{pdf")
		assert.ErrorIs(t, err, domain.ErrConfiguration)
	})

	t.Run("empty root", func(t *testing.T) {
		_, err := New(domain.KindPolicy, "", "")
		assert.ErrorIs(t, err, domain.ErrConfiguration)
	})
}

func TestNewCollections(t *testing.T) {
	cols, err := NewCollections(domain.CollectionSettings{
		PoliciesPath:  "/p",
		ProtocolsPath: "/q",
		Pattern:       "*.pdf",
	})
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, domain.KindPolicy, cols[0].Kind())
	assert.Equal(t, "/p", cols[0].Root())
	assert.Equal(t, domain.KindProtocol, cols[1].Kind())
	assert.Equal(t, "/q", cols[1].Root())
}

func TestCollection_List(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "POLIZA_HOGAR_GLOBAL.pdf"), "x")
	writeFile(t, filepath.Join(root, "POLIZA_AUTO.PDF"), "x")
	writeFile(t, filepath.Join(root, "notas.txt"), "x")
	writeFile(t, filepath.Join(root, "anexos", "ANEXO_1.md"), "x")
	writeFile(t, filepath.Join(root, "imagen.png"), "x")
	writeFile(t, filepath.Join(root, ".oculto.pdf"), "x")
	writeFile(t, filepath.Join(root, ".git", "config.txt"), "x")

	c, err := New(domain.KindPolicy, root, "")
	require.NoError(t, err)

	files, err := c.List(context.Background())
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"POLIZA_AUTO.PDF", "POLIZA_HOGAR_GLOBAL.pdf", "ANEXO_1.md", "notas.txt"}, names)
	assert.Equal(t, filepath.Join(root, "anexos", "ANEXO_1.md"), files[2].Path)
}

func TestCollection_ListPattern(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.pdf"), "x")
	writeFile(t, filepath.Join(root, "b.txt"), "x")
	writeFile(t, filepath.Join(root, "sub", "c.pdf"), "x")

	c, err := New(domain.KindPolicy, root, "*.pdf")
	require.NoError(t, err)

	files, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.pdf", files[0].Name)
}

func TestCollection_ListPatternIgnoresCase(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "POLIZA_AUTO.PDF"), "x")
	writeFile(t, filepath.Join(root, "sub", "poliza_hogar.pdf"), "x")
	writeFile(t, filepath.Join(root, "notas.txt"), "x")

	c, err := New(domain.KindPolicy, root, "**/*.PDF")
	require.NoError(t, err)

	files, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "POLIZA_AUTO.PDF", files[0].Name)
	assert.Equal(t, "poliza_hogar.pdf", files[1].Name)
	assert.True(t, c.matches("Anexos/ANEXO.Pdf"))
}

func TestCollection_ListMissingRoot(t *testing.T) {
	c, err := New(domain.KindProtocol, filepath.Join(t.TempDir(), "missing"), "")
	require.NoError(t, err)

	files, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestCollection_ListRootIsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.pdf")
	writeFile(t, path, "x")

	c, err := New(domain.KindPolicy, path, "")
	require.NoError(t, err)

	_, err = c.List(context.Background())
	assert.Error(t, err)
}

func TestCollection_ListCancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.pdf"), "x")

	c, err := New(domain.KindPolicy, root, "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = c.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsHidden(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{".hidden", true},
		{"path/to/.hidden", true},
		{"dir/.git/config", true},
		{".config/.cache/data", true},
		{"file.txt", false},
		{"path/to/file.txt", false},
		{".", false},
		{"..", false},
		{"path/../file", false},
		{"", false},
		{"file.hidden", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, isHidden(tt.path))
		})
	}
}

func TestHandleFsEvent(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "21._Lluvia_y_nieve.pdf")
	writeFile(t, existing, "x")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0755))

	c, err := New(domain.KindProtocol, root, "")
	require.NoError(t, err)

	tests := []struct {
		name     string
		path     string
		op       fsnotify.Op
		expected *driven.FileEvent
	}{
		{"create", existing, fsnotify.Create, &driven.FileEvent{Path: existing, Change: domain.ChangeCreated}},
		{"write", existing, fsnotify.Write, &driven.FileEvent{Path: existing, Change: domain.ChangeUpdated}},
		{"write and chmod", existing, fsnotify.Write | fsnotify.Chmod, &driven.FileEvent{Path: existing, Change: domain.ChangeUpdated}},
		{"remove", filepath.Join(root, "gone.pdf"), fsnotify.Remove, &driven.FileEvent{Path: filepath.Join(root, "gone.pdf"), Change: domain.ChangeDeleted}},
		{"rename", filepath.Join(root, "old.pdf"), fsnotify.Rename, &driven.FileEvent{Path: filepath.Join(root, "old.pdf"), Change: domain.ChangeDeleted}},
		{"chmod only", existing, fsnotify.Chmod, nil},
		{"directory", filepath.Join(root, "sub"), fsnotify.Create, nil},
		{"hidden", filepath.Join(root, ".tmp.pdf"), fsnotify.Remove, nil},
		{"outside pattern", filepath.Join(root, "image.png"), fsnotify.Remove, nil},
		{"outside root", "/elsewhere/file.pdf", fsnotify.Remove, nil},
		{"write to vanished file", filepath.Join(root, "vanished.pdf"), fsnotify.Write, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.handleFsEvent(fsnotify.Event{Name: tt.path, Op: tt.op})
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCollection_Watch(t *testing.T) {
	root := t.TempDir()
	c, err := New(domain.KindPolicy, root, "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := c.Watch(ctx)
	require.NoError(t, err)

	path := filepath.Join(root, "POLIZA_NUEVA.txt")
	writeFile(t, path, "contenido")

	select {
	case ev := <-events:
		assert.Equal(t, path, ev.Path)
		assert.Contains(t, []domain.ChangeType{domain.ChangeCreated, domain.ChangeUpdated}, ev.Change)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for file event")
	}

	cancel()
	for range events {
	}
}

func TestCollection_WatchMissingRoot(t *testing.T) {
	c, err := New(domain.KindPolicy, filepath.Join(t.TempDir(), "missing"), "")
	require.NoError(t, err)

	_, err = c.Watch(context.Background())
	assert.Error(t, err)
}
