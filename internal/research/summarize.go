package research

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/mkarhu/inquest/internal/errors"
	"github.com/mkarhu/inquest/internal/repositories"
	"golang.org/x/sync/errgroup"
	"log/slog"
	"strings"
)

// SummarySource says how a summary was obtained.
type SummarySource int

const (
	// SummaryCached means a previously computed summary was returned verbatim.
	SummaryCached SummarySource = iota
	// SummaryFresh means the completion response parsed cleanly.
	SummaryFresh
	// SummaryDegraded means the response was unparsable and the placeholder
	// bullet was cached in its place.
	SummaryDegraded
)

// Answer is one summarized sub-question with its sources.
type Answer struct {
	Question string
	Bullets  []string
	URLs     []string
	Source   SummarySource
}

// parseFailurePlaceholder is cached like a real summary so a malformed model
// response is not retried on every pass.
const parseFailurePlaceholder = "Failed to parse response"

const maxConcurrentSummaries = 5

type Summarizer struct {
	completer Completer
	runs      *repositories.RunRepository
	summaries *repositories.SummaryRepository
	logger    *slog.Logger
}

func NewSummarizer(
	completer Completer,
	runs *repositories.RunRepository,
	summaries *repositories.SummaryRepository,
	logger *slog.Logger,
) *Summarizer {
	return &Summarizer{
		completer: completer,
		runs:      runs,
		summaries: summaries,
		logger:    logger.With("source", "Summarizer"),
	}
}

// SummarizeAll produces one bullet summary per question, in the given order.
// A question with an existing summary is served from the cache regardless of
// any evidence accumulated since; fresh summaries are persisted exactly once.
// Questions absent from the evidence map or unknown to the run are skipped.
func (s *Summarizer) SummarizeAll(
	ctx context.Context,
	runID string,
	questions []string,
	evidence map[string]Evidence,
) ([]Answer, error) {
	ids, err := s.runs.SubQuestionIDs(ctx, runID)
	if err != nil {
		return nil, errors.Wrap(err, "load sub-question ids", slog.String("run_id", runID))
	}

	type slot struct {
		answer Answer
		ok     bool
	}
	slots := make([]slot, len(questions))

	// Each question depends only on its own evidence, so summaries can be
	// computed concurrently. The persistence layer is the only shared state.
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxConcurrentSummaries)
	for i, question := range questions {
		ev, hasEvidence := evidence[question]
		id, known := ids[question]
		// A question whose search failed gets no summary this pass; caching
		// one would pin the gap even after the search is retried.
		if !hasEvidence || !known || ev.Err != nil {
			continue
		}
		group.Go(func() error {
			answer, summarizeErr := s.summarize(groupCtx, id, question, ev)
			if summarizeErr != nil {
				return summarizeErr
			}
			slots[i] = slot{answer: answer, ok: true}
			return nil
		})
	}
	if err = group.Wait(); err != nil {
		return nil, err
	}

	answers := make([]Answer, 0, len(questions))
	for _, filled := range slots {
		if filled.ok {
			answers = append(answers, filled.answer)
		}
	}
	return answers, nil
}

func (s *Summarizer) summarize(ctx context.Context, subQuestionID int64, question string, ev Evidence) (Answer, error) {
	cached, err := s.summaries.Get(ctx, subQuestionID)
	if err == nil {
		return Answer{
			Question: question,
			Bullets:  cached,
			URLs:     ev.URLs,
			Source:   SummaryCached,
		}, nil
	}
	if !errors.Is(err, repositories.ErrNoSummary) {
		return Answer{}, err
	}

	response, err := s.completer.Complete(ctx, summaryPrompt(question, ev.Snippets))
	if err != nil {
		return Answer{}, errors.Wrap(err, "summary completion", slog.String("question", question))
	}

	source := SummaryFresh
	bullets, parseErr := parseSummary(response)
	if parseErr != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "unparsable summary response, caching placeholder",
			slog.String("question", question), errors.SlogError(parseErr))
		bullets = []string{parseFailurePlaceholder}
		source = SummaryDegraded
	}

	if err = s.summaries.Put(ctx, subQuestionID, bullets); err != nil {
		return Answer{}, err
	}

	return Answer{
		Question: question,
		Bullets:  bullets,
		URLs:     ev.URLs,
		Source:   source,
	}, nil
}

// parseSummary accepts a JSON object with a "summary" list and tolerates the
// nested "properties.summary" shape some models emit when echoing a schema.
func parseSummary(response string) ([]string, error) {
	trimmed := extractJSONObject(response)

	var direct struct {
		Summary []string `json:"summary"`
	}
	if err := json.Unmarshal([]byte(trimmed), &direct); err == nil && len(direct.Summary) > 0 {
		return direct.Summary, nil
	}

	var nested struct {
		Properties struct {
			Summary []string `json:"summary"`
		} `json:"properties"`
	}
	if err := json.Unmarshal([]byte(trimmed), &nested); err == nil && len(nested.Properties.Summary) > 0 {
		return nested.Properties.Summary, nil
	}

	return nil, errors.New("no summary list in response")
}

// extractJSONObject trims everything outside the outermost braces.
func extractJSONObject(response string) string {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end < start {
		return response
	}
	return response[start : end+1]
}

func summaryPrompt(question string, snippets string) string {
	return fmt.Sprintf(`You are a research analyst.

SUB-QUESTION:
%s

SEARCH SNIPPETS:
%s

Task:
- Answer the sub-question based on the search snippets
- Produce EXACTLY 4-5 concise factual bullet points
- Return ONLY a valid JSON object with a "summary" key containing the bullet points
- Do NOT include any other text, explanations, or schema definitions

Example output:
{
  "summary": [
    "First key point from the research",
    "Second key point from the research",
    "Third key point from the research",
    "Fourth key point from the research"
  ]
}`, question, snippets)
}
