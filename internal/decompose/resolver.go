// Package decompose resolves a natural-language query into a persisted
// research run with an ordered list of searchable sub-questions.
package decompose

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/google/uuid"
	"github.com/mkarhu/inquest/internal/errors"
	"github.com/mkarhu/inquest/internal/models"
	"github.com/mkarhu/inquest/internal/repositories"
	"log/slog"
	"sort"
	"strings"
)

// Completer produces a text completion for a prompt. Implemented by ai.Client.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ContextRetriever supplies cross-run semantic context for a query.
// Implemented by memory.Store.
type ContextRetriever interface {
	Retrieve(ctx context.Context, query string, k int) (string, error)
}

// Source says how a resolution was produced, so callers can distinguish a
// cache hit from a fresh decomposition and from a degraded fallback without
// inspecting control flow.
type Source int

const (
	// SourceCached means an earlier run for the same query was reused verbatim.
	SourceCached Source = iota
	// SourceFresh means classification and decomposition both succeeded.
	SourceFresh
	// SourceDegraded means at least one of classification or decomposition
	// fell back to its default; a run was still persisted.
	SourceDegraded
)

// Result is a resolved decomposition. SubQuestions is never empty.
type Result struct {
	RunID           string
	SubQuestions    []string
	Classification  string
	PrimaryIntent   string
	Relationship    string
	DifficultyLevel string
	Source          Source
}

const memoryContextSize = 2

type Resolver struct {
	completer Completer
	memory    ContextRetriever
	runs      *repositories.RunRepository
	logger    *slog.Logger
}

func NewResolver(
	completer Completer,
	memory ContextRetriever,
	runs *repositories.RunRepository,
	logger *slog.Logger,
) *Resolver {
	return &Resolver{
		completer: completer,
		memory:    memory,
		runs:      runs,
		logger:    logger.With("source", "Resolver"),
	}
}

// Resolve returns the canonical decomposition for the query. The most recently
// created run with the same query text is reused without any external calls;
// otherwise the query is classified and decomposed, and a new run is persisted.
// Resolve never returns without a persisted run holding at least one
// sub-question: both classification and decomposition degrade to defaults on
// failure instead of propagating.
func (r *Resolver) Resolve(ctx context.Context, query string) (*Result, error) {
	cached, err := r.resolveCached(ctx, query)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		r.logger.LogAttrs(ctx, slog.LevelInfo, "reusing cached decomposition",
			slog.String("run_id", cached.RunID), slog.Int("sub_questions", len(cached.SubQuestions)))
		return cached, nil
	}

	memoryContext := r.retrieveContext(ctx, query)

	degraded := false

	classification, err := r.classify(ctx, query, memoryContext)
	if err != nil {
		r.logger.LogAttrs(ctx, slog.LevelWarn, "classification failed, defaulting to ambiguous",
			errors.SlogError(err))
		classification = models.ClassificationAmbiguous
		degraded = true
	}

	decomposition, err := r.decompose(ctx, query, classification, memoryContext)
	if err != nil {
		r.logger.LogAttrs(ctx, slog.LevelWarn, "decomposition failed, falling back to single sub-question",
			errors.SlogError(err))
		decomposition = fallbackDecomposition(query)
		degraded = true
	}

	result := &Result{
		RunID:           uuid.NewString(),
		SubQuestions:    decomposition.SubQuestions,
		Classification:  classification,
		PrimaryIntent:   decomposition.PrimaryIntent,
		Relationship:    decomposition.Relationship,
		DifficultyLevel: decomposition.DifficultyLevel,
		Source:          SourceFresh,
	}
	if degraded {
		result.Source = SourceDegraded
	}

	run := &models.Run{ //nolint:exhaustruct // nullable fields start unset
		ID:              result.RunID,
		OriginalQuery:   query,
		Classification:  result.Classification,
		PrimaryIntent:   result.PrimaryIntent,
		Relationship:    result.Relationship,
		DifficultyLevel: result.DifficultyLevel,
	}
	if err = r.runs.Create(ctx, run, result.SubQuestions); err != nil {
		return nil, errors.Wrap(err, "persist decomposition", slog.String("run_id", result.RunID))
	}

	return result, nil
}

// resolveCached returns the reused decomposition of the latest matching run,
// or nil when the query has never been decomposed.
func (r *Resolver) resolveCached(ctx context.Context, query string) (*Result, error) {
	run, err := r.runs.LatestByQuery(ctx, query)
	if err != nil {
		if errors.Is(err, repositories.ErrNoRun) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "look up cached run")
	}

	subQuestions, err := r.runs.SubQuestions(ctx, run.ID)
	if err != nil {
		return nil, errors.Wrap(err, "load cached sub-questions", slog.String("run_id", run.ID))
	}

	questions := make([]string, len(subQuestions))
	for i, q := range subQuestions {
		questions[i] = q.SubQuestion
	}

	return &Result{
		RunID:           run.ID,
		SubQuestions:    questions,
		Classification:  run.Classification,
		PrimaryIntent:   run.PrimaryIntent,
		Relationship:    run.Relationship,
		DifficultyLevel: run.DifficultyLevel,
		Source:          SourceCached,
	}, nil
}

// retrieveContext fetches similar past runs. Memory failures degrade to an
// empty context since the prompt works without it.
func (r *Resolver) retrieveContext(ctx context.Context, query string) string {
	memoryContext, err := r.memory.Retrieve(ctx, query, memoryContextSize)
	if err != nil {
		r.logger.LogAttrs(ctx, slog.LevelWarn, "memory retrieval failed, continuing without context",
			errors.SlogError(err))
		return ""
	}
	return memoryContext
}

func (r *Resolver) classify(ctx context.Context, query string, memoryContext string) (string, error) {
	response, err := r.completer.Complete(ctx, classificationPrompt(query, memoryContext))
	if err != nil {
		return "", errors.Wrap(err, "classification completion")
	}

	var parsed struct {
		Category string `json:"category"`
	}
	if err = json.Unmarshal([]byte(extractJSONObject(response)), &parsed); err != nil {
		return "", errors.Wrap(err, "parse classification response")
	}

	switch parsed.Category {
	case models.ClassificationFactual, models.ClassificationSpeculative, models.ClassificationAmbiguous:
		return parsed.Category, nil
	default:
		return "", errors.New("unknown classification category", slog.String("category", parsed.Category))
	}
}

type decomposition struct {
	SubQuestions    []string
	PrimaryIntent   string
	Relationship    string
	DifficultyLevel string
}

func (r *Resolver) decompose(
	ctx context.Context,
	query string,
	classification string,
	memoryContext string,
) (decomposition, error) {
	response, err := r.completer.Complete(ctx, decompositionPrompt(query, classification, memoryContext))
	if err != nil {
		return decomposition{}, errors.Wrap(err, "decomposition completion")
	}

	var parsed struct {
		SubQuestions    []any  `json:"sub_questions"`
		PrimaryIntent   string `json:"primary_intent"`
		Relationship    string `json:"relationship"`
		DifficultyLevel string `json:"difficulty_level"`
	}
	if err = json.Unmarshal([]byte(extractJSONObject(response)), &parsed); err != nil {
		return decomposition{}, errors.Wrap(err, "parse decomposition response")
	}

	subQuestions := normalizeSubQuestions(parsed.SubQuestions)
	if len(subQuestions) == 0 {
		return decomposition{}, errors.New("decomposition produced no sub-questions")
	}

	return decomposition{
		SubQuestions:    subQuestions,
		PrimaryIntent:   parsed.PrimaryIntent,
		Relationship:    parsed.Relationship,
		DifficultyLevel: parsed.DifficultyLevel,
	}, nil
}

func fallbackDecomposition(query string) decomposition {
	return decomposition{
		SubQuestions:    []string{query},
		PrimaryIntent:   "Answer the query directly",
		Relationship:    "parallel",
		DifficultyLevel: "moderate",
	}
}

// normalizeSubQuestions flattens decomposition entries into plain text. An
// entry that is a JSON object becomes one question per key, labeled with the
// upper-cased key, e.g. {"factual": "..."} -> "[FACTUAL] ...". Keys are
// visited in sorted order to keep the result deterministic.
func normalizeSubQuestions(entries []any) []string {
	var normalized []string
	for _, entry := range entries {
		switch v := entry.(type) {
		case map[string]any:
			keys := make([]string, 0, len(v))
			for k := range v {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				normalized = append(normalized, fmt.Sprintf("[%s] %v", strings.ToUpper(k), v[k]))
			}
		case nil:
			continue
		default:
			text := strings.TrimSpace(fmt.Sprintf("%v", v))
			if text != "" {
				normalized = append(normalized, text)
			}
		}
	}
	return normalized
}

// extractJSONObject trims everything outside the outermost braces. Models
// regularly wrap JSON in code fences or prose.
func extractJSONObject(response string) string {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end < start {
		return response
	}
	return response[start : end+1]
}
