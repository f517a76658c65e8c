// Package research implements one research pass over a set of sub-questions:
// evidence gathering with exact cache reuse, cached per-question
// summarization, and synthesis of the final answer.
package research

import (
	"context"
	"github.com/mkarhu/inquest/internal/errors"
	"github.com/mkarhu/inquest/internal/models"
	"github.com/mkarhu/inquest/internal/repositories"
	"github.com/mkarhu/inquest/internal/search"
	"golang.org/x/sync/errgroup"
	"log/slog"
	"strings"
)

// Searcher runs one web search. Implemented by search.Client.
type Searcher interface {
	Search(ctx context.Context, query string, searchType string) ([]search.Result, error)
}

// Completer produces a text completion for a prompt. Implemented by ai.Client.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Evidence is the gathered material for one sub-question. Err records a
// per-question search failure; such questions keep their key in the result so
// the pass can proceed and the judge can see the gap.
type Evidence struct {
	URLs     []string
	Snippets string
	Err      error
}

// relevanceThreshold filters search hits; items at or below it are discarded.
const relevanceThreshold = 0.5

// maxConcurrentSearches bounds the search fan-out within a pass.
const maxConcurrentSearches = 5

type Gatherer struct {
	searcher Searcher
	runs     *repositories.RunRepository
	evidence *repositories.EvidenceRepository
	logger   *slog.Logger
}

func NewGatherer(
	searcher Searcher,
	runs *repositories.RunRepository,
	evidence *repositories.EvidenceRepository,
	logger *slog.Logger,
) *Gatherer {
	return &Gatherer{
		searcher: searcher,
		runs:     runs,
		evidence: evidence,
		logger:   logger.With("source", "Gatherer"),
	}
}

// Gather returns evidence for each question. A question whose (sub-question,
// depth) pair already has stored rows is served from the database without a
// search call; the remaining questions are searched concurrently and their
// accepted results persisted exactly once. Questions without a matching
// sub-question record for the run are skipped.
func (g *Gatherer) Gather(ctx context.Context, runID string, questions []string) (map[string]Evidence, error) {
	questions = dedupe(questions)

	ids, err := g.runs.SubQuestionIDs(ctx, runID)
	if err != nil {
		return nil, errors.Wrap(err, "load sub-question ids", slog.String("run_id", runID))
	}

	gathered := make(map[string]Evidence, len(questions))
	var missing []string

	for _, question := range questions {
		id, ok := ids[question]
		if !ok {
			g.logger.LogAttrs(ctx, slog.LevelWarn, "skipping unknown question",
				slog.String("run_id", runID), slog.String("question", question))
			continue
		}

		rows, rowsErr := g.evidence.ResultsFor(ctx, id, models.SearchTypeDepth)
		if rowsErr != nil {
			return nil, rowsErr
		}
		if len(rows) > 0 {
			gathered[question] = assembleStored(rows)
			continue
		}
		missing = append(missing, question)
	}

	if len(missing) == 0 {
		return gathered, nil
	}

	fresh := make([]Evidence, len(missing))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxConcurrentSearches)
	for i, question := range missing {
		group.Go(func() error {
			results, searchErr := g.searcher.Search(groupCtx, question, models.SearchTypeDepth)
			if searchErr != nil {
				// A failed search becomes a per-question failure entry instead
				// of aborting the batch; nothing is persisted so a later pass
				// will retry the question.
				fresh[i] = Evidence{Err: searchErr} //nolint:exhaustruct // failure entry
				return nil
			}
			fresh[i] = accept(results)
			return nil
		})
	}
	if err = group.Wait(); err != nil {
		return nil, errors.Wrap(err, "search fan-out")
	}

	for i, question := range missing {
		evidence := fresh[i]
		if evidence.Err != nil {
			g.logger.LogAttrs(ctx, slog.LevelWarn, "search failed for question",
				slog.String("question", question), errors.SlogError(evidence.Err))
			gathered[question] = evidence
			continue
		}
		snippets := strings.Split(evidence.Snippets, "\n")
		if err = g.evidence.Insert(ctx, ids[question], question, models.SearchTypeDepth,
			snippets, evidence.URLs); err != nil {
			return nil, err
		}
		gathered[question] = evidence
	}

	return gathered, nil
}

// accept filters search hits by relevance score, deduplicates URLs, and
// renders one snippet line per accepted hit.
func accept(results []search.Result) Evidence {
	var (
		urls     []string
		seen     = make(map[string]struct{})
		snippets []string
	)
	for _, item := range results {
		if item.Score <= relevanceThreshold {
			continue
		}
		if item.URL != "" {
			if _, ok := seen[item.URL]; !ok {
				seen[item.URL] = struct{}{}
				urls = append(urls, item.URL)
			}
		}
		snippets = append(snippets, "- "+item.Title+" | "+item.Content)
	}
	return Evidence{ //nolint:exhaustruct // no error
		URLs:     urls,
		Snippets: strings.Join(snippets, "\n"),
	}
}

// assembleStored rebuilds the evidence set from persisted rows.
func assembleStored(rows []models.SearchResult) Evidence {
	var (
		urls     []string
		seen     = make(map[string]struct{})
		snippets []string
	)
	for _, row := range rows {
		if row.URL.Valid {
			if _, ok := seen[row.URL.String]; !ok {
				seen[row.URL.String] = struct{}{}
				urls = append(urls, row.URL.String)
			}
		}
		if row.Snippet.Valid && row.Snippet.String != "" {
			snippets = append(snippets, row.Snippet.String)
		}
	}
	return Evidence{ //nolint:exhaustruct // no error
		URLs:     urls,
		Snippets: strings.Join(snippets, "\n"),
	}
}

// dedupe removes duplicate questions preserving first-seen order.
func dedupe(questions []string) []string {
	seen := make(map[string]struct{}, len(questions))
	deduped := make([]string, 0, len(questions))
	for _, question := range questions {
		if _, ok := seen[question]; ok {
			continue
		}
		seen[question] = struct{}{}
		deduped = append(deduped, question)
	}
	return deduped
}
