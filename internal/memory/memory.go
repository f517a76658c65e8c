// Package memory is the cross-run semantic memory: one embedded document per
// completed research run, retrieved by similarity to enrich decomposition
// prompts. The store holds a handful of vectors per installation, so
// similarity is computed in-process over the persisted rows.
package memory

import (
	"context"
	"encoding/json"
	"github.com/mkarhu/inquest/internal/errors"
	"github.com/mkarhu/inquest/internal/sqlite"
	"log/slog"
	"math"
	"sort"
	"strings"
)

// Embedder turns text into a vector. Implemented by ai.Client.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Store struct {
	dbs      *sqlite.Database
	embedder Embedder
	logger   *slog.Logger
}

func NewStore(dbs *sqlite.Database, embedder Embedder, logger *slog.Logger) *Store {
	return &Store{
		dbs:      dbs,
		embedder: embedder,
		logger:   logger.With("source", "MemoryStore"),
	}
}

// Save embeds the document and persists it under the run id, replacing any
// earlier vector for the same run.
func (s *Store) Save(ctx context.Context, runID string, content string) error {
	vector, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return errors.Wrap(err, "embed run document", slog.String("run_id", runID))
	}

	encoded, err := json.Marshal(vector)
	if err != nil {
		return errors.Wrap(err, "encode embedding", slog.String("run_id", runID))
	}

	stmt := `INSERT INTO run_vectors (run_id, content, embedding) VALUES (?, ?, ?)
	ON CONFLICT (run_id) DO UPDATE SET content = excluded.content, embedding = excluded.embedding`
	if _, err = s.dbs.ReadWrite.ExecContext(ctx, stmt, runID, content, string(encoded)); err != nil {
		return errors.Wrap(err, "insert run vector", slog.String("run_id", runID))
	}
	return nil
}

type storedVector struct {
	RunID     string `db:"run_id"`
	Content   string `db:"content"`
	Embedding string `db:"embedding"`
}

// Retrieve returns the contents of the k most similar stored runs joined by
// blank lines. An empty store yields an empty context, not an error.
func (s *Store) Retrieve(ctx context.Context, query string, k int) (string, error) {
	var rows []storedVector
	stmt := `SELECT run_id, content, embedding FROM run_vectors`
	if err := s.dbs.ReadOnly.SelectContext(ctx, &rows, stmt); err != nil {
		return "", errors.Wrap(err, "read run vectors")
	}
	if len(rows) == 0 {
		return "", nil
	}

	queryVector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return "", errors.Wrap(err, "embed query")
	}

	type scored struct {
		content    string
		similarity float64
	}
	candidates := make([]scored, 0, len(rows))
	for _, row := range rows {
		var vector []float32
		if err = json.Unmarshal([]byte(row.Embedding), &vector); err != nil {
			s.logger.LogAttrs(ctx, slog.LevelWarn, "skipping undecodable vector",
				slog.String("run_id", row.RunID), errors.SlogError(err))
			continue
		}
		candidates = append(candidates, scored{
			content:    row.Content,
			similarity: cosineSimilarity(queryVector, vector),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].similarity > candidates[j].similarity
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}

	contents := make([]string, len(candidates))
	for i, candidate := range candidates {
		contents[i] = candidate.content
	}
	return strings.Join(contents, "\n\n"), nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
