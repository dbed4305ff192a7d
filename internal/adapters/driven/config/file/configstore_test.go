package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestConfigStore_SetAndGet(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("embedding.model", "models/text-embedding-004"))

	val, ok := store.Get("embedding.model")
	assert.True(t, ok)
	assert.Equal(t, "models/text-embedding-004", val)
	assert.Equal(t, "models/text-embedding-004", store.GetString("embedding.model"))
}

func TestConfigStore_Get_NotFound(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	_, ok := store.Get("missing")
	assert.False(t, ok)
	assert.Empty(t, store.GetString("missing"))
	assert.Zero(t, store.GetInt("missing"))
	assert.Zero(t, store.GetFloat("missing"))
	assert.False(t, store.GetBool("missing"))
}

func TestConfigStore_PersistsNestedTables(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("chunking.size", 800))
	require.NoError(t, store.Set("chunking.overlap", 100))
	require.NoError(t, store.Set("embedding.requests_per_second", 1.5))
	require.NoError(t, store.Set("storage.backend", "memory"))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[chunking]")
	assert.Contains(t, string(raw), "[storage]")

	reloaded, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, 800, reloaded.GetInt("chunking.size"))
	assert.Equal(t, 100, reloaded.GetInt("chunking.overlap"))
	assert.InDelta(t, 1.5, reloaded.GetFloat("embedding.requests_per_second"), 1e-9)
	assert.Equal(t, "memory", reloaded.GetString("storage.backend"))
	assert.Equal(t, []string{
		"chunking.overlap", "chunking.size", "embedding.requests_per_second", "storage.backend",
	}, reloaded.Keys())
}

func TestConfigStore_LoadsHandWrittenFile(t *testing.T) {
	tmpDir := t.TempDir()
	content := `
[collections.policies]
path = "/srv/polizas"

[retrieval]
per_document_limit = 3
verbose = true
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "/srv/polizas", store.GetString("collections.policies.path"))
	assert.Equal(t, 3, store.GetInt("retrieval.per_document_limit"))
	assert.InDelta(t, 3.0, store.GetFloat("retrieval.per_document_limit"), 1e-9)
	assert.True(t, store.GetBool("retrieval.verbose"))
}

func TestConfigStore_EnvOverride(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir, WithEnvOverrides("chunking.size", "embedding.requests_per_second"))
	require.NoError(t, err)
	require.NoError(t, store.Set("chunking.size", 1000))

	t.Setenv("PERITOAI_CHUNKING_SIZE", "500")
	t.Setenv("PERITOAI_EMBEDDING_REQUESTS_PER_SECOND", "0.5")

	assert.Equal(t, 500, store.GetInt("chunking.size"))
	assert.InDelta(t, 0.5, store.GetFloat("embedding.requests_per_second"), 1e-9)
	assert.Contains(t, store.Keys(), "embedding.requests_per_second")

	// The file keeps the stored value.
	reloaded, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, 1000, reloaded.GetInt("chunking.size"))
}

func TestConfigStore_EnvIgnoredForUnknownKeys(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	t.Setenv("PERITOAI_CHUNKING_SIZE", "500")
	_, ok := store.Get("chunking.size")
	assert.False(t, ok)
}

func TestConfigStore_EnvAlias(t *testing.T) {
	store, err := NewConfigStore(t.TempDir(),
		WithEnvOverrides("embedding.api_key"),
		WithEnvAlias("embedding.api_key", "GEMINI_API_KEY", "GOOGLE_API_KEY"))
	require.NoError(t, err)

	t.Setenv("GOOGLE_API_KEY", "google")
	assert.Equal(t, "google", store.GetString("embedding.api_key"))

	t.Setenv("GEMINI_API_KEY", "gemini")
	assert.Equal(t, "gemini", store.GetString("embedding.api_key"))

	t.Setenv("PERITOAI_EMBEDDING_API_KEY", "explicit")
	assert.Equal(t, "explicit", store.GetString("embedding.api_key"))
}

func TestEnvVar(t *testing.T) {
	assert.Equal(t, "PERITOAI_EMBEDDING_API_KEY", EnvVar("embedding.api_key"))
	assert.Equal(t, "PERITOAI_COLLECTIONS_POLICIES_PATH", EnvVar("collections.policies.path"))
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("embedding.api_key", "secret"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_EmptyFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), nil, 0600))

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Empty(t, store.Keys())
}

func TestNewConfigStore_LoadCorruptedFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("not = [valid"), 0600))

	_, err := NewConfigStore(tmpDir)
	assert.Error(t, err)
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("retrieval.per_document_limit", n)
		}(i)
		go func() {
			defer wg.Done()
			_ = store.GetInt("retrieval.per_document_limit")
		}()
	}
	wg.Wait()
}

func TestUnflattenMap(t *testing.T) {
	got := unflattenMap(map[string]any{
		"a.b.c": 1,
		"a.d":   "x",
		"e":     true,
	})

	assert.Equal(t, map[string]any{
		"a": map[string]any{
			"b": map[string]any{"c": 1},
			"d": "x",
		},
		"e": true,
	}, got)
	assert.Equal(t, map[string]any{"a.b.c": 1, "a.d": "x", "e": true}, flattenMap(got, ""))
}
