// Package memory persists cycle logs and semantic context in an embedded
// vector store. When the store is unreachable, writes degrade to a local
// JSONL file so the pipeline never blocks on persistence.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/yannabadie/appia-dev/internal/config"
	"github.com/yannabadie/appia-dev/internal/telemetry"
)

// Store is the persistence surface the cycle controller writes through.
type Store interface {
	// AppendLog persists one structured log record. Failures fall back to
	// the local file store and are not returned to the caller.
	AppendLog(ctx context.Context, record any)

	// UpsertEmbedding stores text for later semantic retrieval and returns
	// its document id.
	UpsertEmbedding(ctx context.Context, text string) (string, error)

	// SemanticSearch returns the k most similar stored texts.
	SemanticSearch(ctx context.Context, query string, k int) ([]string, error)
}

// ChromemStore implements Store on an embedded chromem-go database.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	local      *LocalLog
	logger     *zap.Logger
}

var _ Store = (*ChromemStore)(nil)

// NewChromemStore opens (or creates) the persistent database configured in
// cfg. The embedding function defaults to a local deterministic embedder
// when embed is nil, keeping the store usable without any provider key.
func NewChromemStore(cfg config.MemoryConfig, embed chromem.EmbeddingFunc, logger *zap.Logger) (*ChromemStore, error) {
	path, err := expandPath(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand memory path: %w", err)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create memory directory %s: %w", path, err)
	}

	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}

	if embed == nil {
		embed = LocalEmbeddingFunc()
	}
	collection, err := db.GetOrCreateCollection(cfg.Collection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection %s: %w", cfg.Collection, err)
	}

	localPath, err := expandPath(cfg.LocalLogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to expand fallback log path: %w", err)
	}

	logger.Info("memory store initialized",
		zap.String("path", path),
		zap.String("collection", cfg.Collection),
		zap.String("fallback", localPath))

	return &ChromemStore{
		db:         db,
		collection: collection,
		local:      NewLocalLog(localPath),
		logger:     logger,
	}, nil
}

// NewOpenAIEmbeddingFunc returns an embedding function backed by the OpenAI
// embeddings API, or nil when no key is configured.
func NewOpenAIEmbeddingFunc(cfg config.ProviderConfig) chromem.EmbeddingFunc {
	if !cfg.APIKey.IsSet() {
		return nil
	}
	return chromem.NewEmbeddingFuncOpenAI(cfg.APIKey.Value(), chromem.EmbeddingModelOpenAI3Small)
}

func (s *ChromemStore) AppendLog(ctx context.Context, record any) {
	data, err := json.Marshal(record)
	if err != nil {
		s.logger.Error("log record is not serializable", zap.Error(err))
		return
	}

	doc := chromem.Document{
		ID:       uuid.NewString(),
		Content:  string(data),
		Metadata: map[string]string{"type": "log"},
	}
	if err := s.collection.AddDocument(ctx, doc); err != nil {
		s.logger.Warn("vector store append failed, using local fallback", zap.Error(err))
		telemetry.MemoryFallbackWrites.Inc()
		if lerr := s.local.Append(record); lerr != nil {
			s.logger.Error("local fallback append failed", zap.Error(lerr))
		}
	}
}

func (s *ChromemStore) UpsertEmbedding(ctx context.Context, text string) (string, error) {
	id := uuid.NewString()
	doc := chromem.Document{
		ID:       id,
		Content:  text,
		Metadata: map[string]string{"type": "context"},
	}
	if err := s.collection.AddDocument(ctx, doc); err != nil {
		return "", fmt.Errorf("failed to store embedding: %w", err)
	}
	return id, nil
}

func (s *ChromemStore) SemanticSearch(ctx context.Context, query string, k int) ([]string, error) {
	if k < 1 {
		return nil, nil
	}
	if count := s.collection.Count(); k > count {
		k = count
	}
	if k == 0 {
		return nil, nil
	}

	results, err := s.collection.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("semantic search failed: %w", err)
	}

	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Content
	}
	return out, nil
}

func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}
