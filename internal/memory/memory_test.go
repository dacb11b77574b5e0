package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yannabadie/appia-dev/internal/config"
)

func testStore(t *testing.T) *ChromemStore {
	t.Helper()
	dir := t.TempDir()
	store, err := NewChromemStore(config.MemoryConfig{
		Path:         filepath.Join(dir, "db"),
		Collection:   "test_memory",
		LocalLogPath: filepath.Join(dir, "local_logs.jsonl"),
	}, nil, zap.NewNop())
	require.NoError(t, err)
	return store
}

func TestChromemStore_AppendAndSearch(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	id, err := store.UpsertEmbedding(ctx, "the lint pass fixed two imports")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, err = store.UpsertEmbedding(ctx, "the deployment pipeline is green")
	require.NoError(t, err)

	results, err := store.SemanticSearch(ctx, "lint imports fixed", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "the lint pass fixed two imports", results[0])
}

func TestChromemStore_SearchClampsK(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	_, err := store.UpsertEmbedding(ctx, "only one document")
	require.NoError(t, err)

	results, err := store.SemanticSearch(ctx, "document", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestChromemStore_SearchEmptyCollection(t *testing.T) {
	store := testStore(t)

	results, err := store.SemanticSearch(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestChromemStore_AppendLogNeverFails(t *testing.T) {
	store := testStore(t)

	// Channels cannot be serialized; the store logs and drops the record.
	store.AppendLog(context.Background(), map[string]any{"bad": make(chan int)})
	store.AppendLog(context.Background(), map[string]any{"step": "lint", "cycle": 1})
}

func TestLocalLog_AppendsJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "local_logs.jsonl")
	log := NewLocalLog(path)

	require.NoError(t, log.Append(map[string]string{"step": "lint"}))
	require.NoError(t, log.Append(map[string]string{"step": "tests"}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"lint"`)
	assert.Contains(t, lines[1], `"tests"`)
}

func TestLocalEmbeddingFunc_Deterministic(t *testing.T) {
	embed := LocalEmbeddingFunc()

	a, err := embed(context.Background(), "fix the failing test")
	require.NoError(t, err)
	b, err := embed(context.Background(), "fix the failing test")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := embed(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, c, localEmbeddingDims)
}
