// Package pipeline is the multi-pass research orchestrator. It drives
// decomposition, evidence gathering, summarization, synthesis, and judging
// across passes, accumulating follow-up questions until the judge's
// confidence crosses the threshold or the pass budget runs out.
package pipeline

import (
	"context"
	"fmt"
	"github.com/mkarhu/inquest/internal/decompose"
	"github.com/mkarhu/inquest/internal/errors"
	"github.com/mkarhu/inquest/internal/judge"
	"github.com/mkarhu/inquest/internal/report"
	"github.com/mkarhu/inquest/internal/repositories"
	"github.com/mkarhu/inquest/internal/research"
	"log/slog"
	"os"
)

// maxPasses bounds the loop; reaching it without crossing the threshold ends
// the run with the last answer, which is an exhausted budget, not an error.
const maxPasses = 3

// confidenceThreshold stops the loop as soon as the judge scores at or above it.
const confidenceThreshold = 0.85

type Decomposer interface {
	Resolve(ctx context.Context, query string) (*decompose.Result, error)
}

type Gatherer interface {
	Gather(ctx context.Context, runID string, questions []string) (map[string]research.Evidence, error)
}

type Summarizer interface {
	SummarizeAll(ctx context.Context, runID string, questions []string, evidence map[string]research.Evidence) ([]research.Answer, error)
}

type Synthesizer interface {
	FinalAnswer(ctx context.Context, originalQuery string, answers []research.Answer) (string, error)
}

type Evaluator interface {
	Evaluate(ctx context.Context, runID string, originalQuery string, subQuestions []string, finalAnswer string) (*judge.Verdict, error)
}

type Reporter interface {
	Generate(ctx context.Context, runID string) (report.Paths, error)
}

// MemoryWriter stores the finished run for semantic recall by later queries.
type MemoryWriter interface {
	Save(ctx context.Context, runID string, content string) error
}

// Outcome is the result of one orchestrated run.
type Outcome struct {
	RunID       string
	Query       string
	FinalAnswer string
	Verdict     *judge.Verdict
	Passes      int
	Report      report.Paths
}

type Pipeline struct {
	decomposer  Decomposer
	gatherer    Gatherer
	summarizer  Summarizer
	synthesizer Synthesizer
	evaluator   Evaluator
	reporter    Reporter
	memory      MemoryWriter
	runs        *repositories.RunRepository
	logger      *slog.Logger
}

func New(
	decomposer Decomposer,
	gatherer Gatherer,
	summarizer Summarizer,
	synthesizer Synthesizer,
	evaluator Evaluator,
	reporter Reporter,
	memory MemoryWriter,
	runs *repositories.RunRepository,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		decomposer:  decomposer,
		gatherer:    gatherer,
		summarizer:  summarizer,
		synthesizer: synthesizer,
		evaluator:   evaluator,
		reporter:    reporter,
		memory:      memory,
		runs:        runs,
		logger:      logger.With("source", "Pipeline"),
	}
}

// Run executes the research loop for one query. Passes are strictly
// sequential: pass 0 researches the base sub-questions, every later pass
// researches only the accumulated follow-ups, and the judge always scores the
// cumulative question list. The final answer is persisted whether or not the
// threshold was reached.
func (p *Pipeline) Run(ctx context.Context, query string) (*Outcome, error) {
	decomposition, err := p.decomposer.Resolve(ctx, query)
	if err != nil {
		return nil, err
	}
	runID := decomposition.RunID
	baseQuestions := decomposition.SubQuestions

	p.logger.LogAttrs(ctx, slog.LevelInfo, "research run started",
		slog.String("run_id", runID),
		slog.String("query", query),
		slog.Int("base_questions", len(baseQuestions)))

	var (
		followUps   []string
		finalAnswer string
		verdict     *judge.Verdict
		passes      int
	)

	for pass := range maxPasses {
		passes = pass + 1

		questions := baseQuestions
		if pass > 0 {
			questions = followUps
		}
		p.logger.LogAttrs(ctx, slog.LevelInfo, "pass started",
			slog.String("run_id", runID),
			slog.Int("pass", passes),
			slog.Int("questions", len(questions)))

		finalAnswer, err = p.researchPass(ctx, runID, query, questions)
		if err != nil {
			return nil, err
		}

		cumulative := append(append([]string{}, baseQuestions...), followUps...)
		verdict, err = p.evaluator.Evaluate(ctx, runID, query, cumulative, finalAnswer)
		if err != nil {
			return nil, err
		}

		if verdict.ConfidenceScore >= confidenceThreshold {
			p.logger.LogAttrs(ctx, slog.LevelInfo, "confidence threshold met",
				slog.String("run_id", runID),
				slog.Float64("confidence", verdict.ConfidenceScore))
			break
		}

		var accepted []string
		followUps, accepted = mergeFollowUps(followUps, verdict.RecommendedFollowUps)
		if err = p.runs.AppendSubQuestions(ctx, runID, accepted); err != nil {
			return nil, err
		}
		p.logger.LogAttrs(ctx, slog.LevelInfo, "follow-ups accepted",
			slog.String("run_id", runID),
			slog.Int("new", len(accepted)),
			slog.Int("total", len(followUps)))
	}

	if finalAnswer != "" {
		if err = p.runs.SetFinalAnswer(ctx, runID, finalAnswer); err != nil {
			return nil, err
		}
	}

	paths, err := p.reporter.Generate(ctx, runID)
	if err != nil {
		return nil, err
	}
	p.remember(ctx, runID, query, paths.Markdown)

	return &Outcome{
		RunID:       runID,
		Query:       query,
		FinalAnswer: finalAnswer,
		Verdict:     verdict,
		Passes:      passes,
		Report:      paths,
	}, nil
}

// researchPass runs gather, summarize, and synthesize for one question set.
func (p *Pipeline) researchPass(ctx context.Context, runID string, query string, questions []string) (string, error) {
	evidence, err := p.gatherer.Gather(ctx, runID, questions)
	if err != nil {
		return "", err
	}
	answers, err := p.summarizer.SummarizeAll(ctx, runID, questions, evidence)
	if err != nil {
		return "", err
	}
	return p.synthesizer.FinalAnswer(ctx, query, answers)
}

// remember stores the finished report in semantic memory. Memory is advisory
// context for future decompositions, so a failure here never fails the run.
func (p *Pipeline) remember(ctx context.Context, runID string, query string, markdownPath string) {
	markdown, err := os.ReadFile(markdownPath)
	if err != nil {
		p.logger.LogAttrs(ctx, slog.LevelWarn, "could not read report for memory",
			slog.String("run_id", runID), errors.SlogError(err))
		return
	}
	content := fmt.Sprintf("QUERY:\n%s\n\nFINAL REPORT:\n%s", query, markdown)
	if err = p.memory.Save(ctx, runID, content); err != nil {
		p.logger.LogAttrs(ctx, slog.LevelWarn, "could not save run to memory",
			slog.String("run_id", runID), errors.SlogError(err))
	}
}
