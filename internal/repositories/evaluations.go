package repositories

import (
	"context"
	"database/sql"
	"github.com/mkarhu/inquest/internal/errors"
	"github.com/mkarhu/inquest/internal/models"
	"github.com/mkarhu/inquest/internal/sqlite"
	"log/slog"
)

var ErrNoEvaluation = errors.NewSentinel("no evaluation found")

type EvaluationRepository struct {
	dbs    *sqlite.Database
	logger *slog.Logger
}

func NewEvaluationRepository(dbs *sqlite.Database, logger *slog.Logger) *EvaluationRepository {
	return &EvaluationRepository{
		dbs:    dbs,
		logger: logger.With("source", "EvaluationRepository"),
	}
}

// Insert persists one judge evaluation. Evaluations are never cached or
// updated; every pass writes a fresh row.
func (r *EvaluationRepository) Insert(ctx context.Context, evaluation *models.JudgeEvaluation) error {
	stmt := `INSERT INTO judge_evaluations (research_run_id, overall_status, confidence_score,
       coverage_assessment, detected_gaps, recommended_follow_up, termination_reasoning)
	VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := r.dbs.ReadWrite.ExecContext(ctx, stmt,
		evaluation.ResearchRunID,
		evaluation.OverallStatus,
		evaluation.ConfidenceScore,
		evaluation.CoverageAssessment,
		evaluation.DetectedGaps,
		evaluation.RecommendedFollowUp,
		evaluation.TerminationReasoning,
	); err != nil {
		return errors.Wrap(err, "insert evaluation", slog.String("run_id", evaluation.ResearchRunID))
	}
	return nil
}

// LatestForRun returns the most recent evaluation for the run, which is the
// authoritative one for reporting. Returns ErrNoEvaluation when the run has
// not been judged yet.
func (r *EvaluationRepository) LatestForRun(ctx context.Context, runID string) (*models.JudgeEvaluation, error) {
	var evaluation models.JudgeEvaluation
	stmt := `SELECT id, research_run_id, overall_status, confidence_score, coverage_assessment,
       detected_gaps, recommended_follow_up, termination_reasoning, evaluated_at
	FROM judge_evaluations
	WHERE research_run_id = ?
	ORDER BY evaluated_at DESC, id DESC
	LIMIT 1`
	if err := r.dbs.ReadOnly.GetContext(ctx, &evaluation, stmt, runID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoEvaluation
		}
		return nil, errors.Wrap(err, "read latest evaluation", slog.String("run_id", runID))
	}
	return &evaluation, nil
}

// ForRun returns every evaluation recorded for the run in pass order.
func (r *EvaluationRepository) ForRun(ctx context.Context, runID string) ([]models.JudgeEvaluation, error) {
	var evaluations []models.JudgeEvaluation
	stmt := `SELECT id, research_run_id, overall_status, confidence_score, coverage_assessment,
       detected_gaps, recommended_follow_up, termination_reasoning, evaluated_at
	FROM judge_evaluations
	WHERE research_run_id = ?
	ORDER BY id`
	if err := r.dbs.ReadOnly.SelectContext(ctx, &evaluations, stmt, runID); err != nil {
		return nil, errors.Wrap(err, "read evaluations", slog.String("run_id", runID))
	}
	return evaluations, nil
}
