// Package judge scores a synthesized answer against the cumulative
// sub-question list and recommends follow-up questions for detected gaps.
package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/mkarhu/inquest/internal/errors"
	"github.com/mkarhu/inquest/internal/models"
	"github.com/mkarhu/inquest/internal/repositories"
	"log/slog"
	"strings"
)

// Completer produces a text completion for a prompt. Implemented by ai.Client.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Verdict is one parsed judge evaluation. The same data is persisted as a
// judge_evaluations row with the list fields JSON-encoded.
type Verdict struct {
	OverallStatus        string            `json:"overall_status"`
	ConfidenceScore      float64           `json:"confidence_score"`
	Coverage             map[string]string `json:"coverage_assessment"`
	DetectedGaps         []string          `json:"detected_gaps"`
	RecommendedFollowUps []string          `json:"recommended_follow_up"`
	TerminationReasoning string            `json:"termination_reasoning"`
}

type Judge struct {
	completer   Completer
	evaluations *repositories.EvaluationRepository
	logger      *slog.Logger
}

func NewJudge(completer Completer, evaluations *repositories.EvaluationRepository, logger *slog.Logger) *Judge {
	return &Judge{
		completer:   completer,
		evaluations: evaluations,
		logger:      logger.With("source", "Judge"),
	}
}

// Evaluate judges the answer fresh and persists the evaluation unconditionally.
// There is no caching here because the question set and the answer change on
// every pass. A completion or parse failure aborts the pass.
func (j *Judge) Evaluate(
	ctx context.Context,
	runID string,
	originalQuery string,
	subQuestions []string,
	finalAnswer string,
) (*Verdict, error) {
	response, err := j.completer.Complete(ctx, judgePrompt(originalQuery, subQuestions, finalAnswer))
	if err != nil {
		return nil, errors.Wrap(err, "judge completion", slog.String("run_id", runID))
	}

	verdict, err := parseVerdict(response)
	if err != nil {
		return nil, errors.Wrap(err, "parse judge response", slog.String("run_id", runID))
	}

	evaluation, err := verdict.toModel(runID)
	if err != nil {
		return nil, err
	}
	if err = j.evaluations.Insert(ctx, evaluation); err != nil {
		return nil, err
	}

	j.logger.LogAttrs(ctx, slog.LevelInfo, "answer judged",
		slog.String("run_id", runID),
		slog.String("status", verdict.OverallStatus),
		slog.Float64("confidence", verdict.ConfidenceScore),
		slog.Int("follow_ups", len(verdict.RecommendedFollowUps)))
	return verdict, nil
}

func parseVerdict(response string) (*Verdict, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end < start {
		return nil, errors.New("no JSON object in judge response")
	}

	var verdict Verdict
	if err := json.Unmarshal([]byte(response[start:end+1]), &verdict); err != nil {
		return nil, errors.Wrap(err, "decode judge response")
	}
	if verdict.OverallStatus != models.StatusReadyToDeliver &&
		verdict.OverallStatus != models.StatusNeedsMoreResearch {
		return nil, errors.New("unknown overall status", slog.String("status", verdict.OverallStatus))
	}

	// Out-of-range scores from the model are clamped rather than rejected so a
	// near-valid evaluation still drives the termination decision.
	if verdict.ConfidenceScore < 0 {
		verdict.ConfidenceScore = 0
	}
	if verdict.ConfidenceScore > 1 {
		verdict.ConfidenceScore = 1
	}
	return &verdict, nil
}

func (v *Verdict) toModel(runID string) (*models.JudgeEvaluation, error) {
	coverage, err := json.Marshal(v.Coverage)
	if err != nil {
		return nil, errors.Wrap(err, "encode coverage assessment")
	}
	gaps, err := json.Marshal(v.DetectedGaps)
	if err != nil {
		return nil, errors.Wrap(err, "encode detected gaps")
	}
	followUps, err := json.Marshal(v.RecommendedFollowUps)
	if err != nil {
		return nil, errors.Wrap(err, "encode recommended follow-ups")
	}
	return &models.JudgeEvaluation{ //nolint:exhaustruct // ID and timestamp assigned by the database
		ResearchRunID:        runID,
		OverallStatus:        v.OverallStatus,
		ConfidenceScore:      v.ConfidenceScore,
		CoverageAssessment:   string(coverage),
		DetectedGaps:         string(gaps),
		RecommendedFollowUp:  string(followUps),
		TerminationReasoning: v.TerminationReasoning,
	}, nil
}

func judgePrompt(originalQuery string, subQuestions []string, finalAnswer string) string {
	lines := make([]string, len(subQuestions))
	for i, question := range subQuestions {
		lines[i] = "- " + question
	}

	return fmt.Sprintf(`You are an expert research evaluator.

Evaluate the FINAL ANSWER based ONLY on:
- ORIGINAL QUERY
- DECOMPOSED SUB-QUESTIONS
- FINAL ANSWER

Do NOT use external knowledge.
Do NOT re-answer the query.

Tasks:
1. Check whether each sub-question is covered.
2. Judge depth and completeness.
3. Identify missing or shallow areas.
4. Recommend follow-up questions if gaps exist.

ORIGINAL QUERY:
%s

SUB-QUESTIONS:
%s

FINAL ANSWER:
%s

Return ONLY a valid JSON object with these keys:
- "overall_status": "READY_TO_DELIVER" or "NEEDS_MORE_RESEARCH"
- "confidence_score": number between 0.0 and 1.0
- "coverage_assessment": object mapping each sub-question to "covered", "partially_covered" or "missing"
- "detected_gaps": list of strings
- "recommended_follow_up": list of strings
- "termination_reasoning": string`,
		originalQuery, strings.Join(lines, "\n"), finalAnswer)
}
