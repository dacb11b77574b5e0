package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

// LocalLog appends records as JSON lines to a local file. It is the
// persistence of last resort when the vector store is unreachable.
type LocalLog struct {
	mu   sync.Mutex
	path string
}

// NewLocalLog returns an appender for the given file path. The file and its
// directory are created on first write.
func NewLocalLog(path string) *LocalLog {
	return &LocalLog{path: path}
}

// Append writes one record as a JSON line.
func (l *LocalLog) Append(record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to serialize record: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create fallback log directory: %w", err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open fallback log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append to fallback log: %w", err)
	}
	return nil
}

// Path returns the log file path.
func (l *LocalLog) Path() string {
	return l.path
}

const localEmbeddingDims = 64

// LocalEmbeddingFunc returns a deterministic token-hashing embedder. It has
// no semantic power beyond lexical overlap but keeps the store functional
// when no embeddings provider is configured.
func LocalEmbeddingFunc() chromem.EmbeddingFunc {
	return func(_ context.Context, text string) ([]float32, error) {
		vec := make([]float32, localEmbeddingDims)
		for _, token := range strings.Fields(strings.ToLower(text)) {
			h := fnv.New32a()
			h.Write([]byte(token))
			vec[h.Sum32()%localEmbeddingDims]++
		}

		var norm float64
		for _, v := range vec {
			norm += float64(v) * float64(v)
		}
		if norm == 0 {
			vec[0] = 1
			return vec, nil
		}
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
		return vec, nil
	}
}
