// Package repositories is the persistence gateway for research runs and their
// sub-questions, evidence, summaries, and judge evaluations. Every method is a
// single self-contained transaction; there is no transaction spanning a whole
// research pass, so a crash mid-pass leaves partial state that later runs
// resume from via the cache checks keyed on these tables.
package repositories

import (
	"context"
	"database/sql"
	"github.com/mkarhu/inquest/internal/errors"
	"github.com/mkarhu/inquest/internal/models"
	"github.com/mkarhu/inquest/internal/sqlite"
	"log/slog"
)

var ErrNoRun = errors.NewSentinel("no run found")

type RunRepository struct {
	dbs    *sqlite.Database
	logger *slog.Logger
}

func NewRunRepository(dbs *sqlite.Database, logger *slog.Logger) *RunRepository {
	return &RunRepository{
		dbs:    dbs,
		logger: logger.With("source", "RunRepository"),
	}
}

// LatestByQuery returns the most recently created run whose original query
// matches the given text. Returns ErrNoRun when no run matches.
func (r *RunRepository) LatestByQuery(ctx context.Context, query string) (*models.Run, error) {
	var run models.Run
	stmt := `SELECT id, original_query, classification, primary_intent, relationship, difficulty_level,
       final_answer, markdown_path, html_path, created_at
	FROM research_runs
	WHERE original_query = ?
	ORDER BY created_at DESC, id DESC
	LIMIT 1`
	if err := r.dbs.ReadOnly.GetContext(ctx, &run, stmt, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoRun
		}
		return nil, errors.Wrap(err, "read latest run by query")
	}
	return &run, nil
}

// Get returns the run with the given identifier. Returns ErrNoRun when absent.
func (r *RunRepository) Get(ctx context.Context, id string) (*models.Run, error) {
	var run models.Run
	stmt := `SELECT id, original_query, classification, primary_intent, relationship, difficulty_level,
       final_answer, markdown_path, html_path, created_at
	FROM research_runs
	WHERE id = ?`
	if err := r.dbs.ReadOnly.GetContext(ctx, &run, stmt, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoRun
		}
		return nil, errors.Wrap(err, "read run", slog.String("run_id", id))
	}
	return &run, nil
}

// Recent returns up to limit runs ordered from newest to oldest.
func (r *RunRepository) Recent(ctx context.Context, limit int) ([]models.Run, error) {
	var runs []models.Run
	stmt := `SELECT id, original_query, classification, primary_intent, relationship, difficulty_level,
       final_answer, markdown_path, html_path, created_at
	FROM research_runs
	ORDER BY created_at DESC, id DESC
	LIMIT ?`
	if err := r.dbs.ReadOnly.SelectContext(ctx, &runs, stmt, limit); err != nil {
		return nil, errors.Wrap(err, "read recent runs")
	}
	return runs, nil
}

// Create persists a new run together with its base sub-questions. Positions
// are assigned 1..n in decomposition order.
func (r *RunRepository) Create(ctx context.Context, run *models.Run, subQuestions []string) error {
	tx, err := r.dbs.ReadWrite.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			r.logger.LogAttrs(ctx, slog.LevelError, "could not roll back", errors.SlogError(rollbackErr))
		}
	}()

	stmt := `INSERT INTO research_runs (id, original_query, classification, primary_intent, relationship, difficulty_level)
	VALUES (?, ?, ?, ?, ?, ?)`
	if _, err = tx.ExecContext(ctx, stmt,
		run.ID,
		run.OriginalQuery,
		run.Classification,
		run.PrimaryIntent,
		run.Relationship,
		run.DifficultyLevel,
	); err != nil {
		return errors.Wrap(err, "insert run", slog.String("run_id", run.ID))
	}

	stmt = `INSERT INTO sub_questions (research_run_id, sub_question, position) VALUES (?, ?, ?)`
	for i, question := range subQuestions {
		if _, err = tx.ExecContext(ctx, stmt, run.ID, question, i+1); err != nil {
			return errors.Wrap(err, "insert sub-question", slog.Int("position", i+1))
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit run")
	}
	return nil
}

// SubQuestions returns the run's sub-questions ordered by position.
func (r *RunRepository) SubQuestions(ctx context.Context, runID string) ([]models.SubQuestion, error) {
	var questions []models.SubQuestion
	stmt := `SELECT id, research_run_id, sub_question, position, created_at
	FROM sub_questions
	WHERE research_run_id = ?
	ORDER BY position`
	if err := r.dbs.ReadOnly.SelectContext(ctx, &questions, stmt, runID); err != nil {
		return nil, errors.Wrap(err, "read sub-questions", slog.String("run_id", runID))
	}
	return questions, nil
}

// SubQuestionIDs returns a mapping from sub-question text to its identifier
// for the given run.
func (r *RunRepository) SubQuestionIDs(ctx context.Context, runID string) (map[string]int64, error) {
	questions, err := r.SubQuestions(ctx, runID)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]int64, len(questions))
	for _, q := range questions {
		ids[q.SubQuestion] = q.ID
	}
	return ids, nil
}

// AppendSubQuestions adds follow-up questions to the run after the existing
// positions, preserving the given order.
func (r *RunRepository) AppendSubQuestions(ctx context.Context, runID string, questions []string) error {
	if len(questions) == 0 {
		return nil
	}

	tx, err := r.dbs.ReadWrite.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			r.logger.LogAttrs(ctx, slog.LevelError, "could not roll back", errors.SlogError(rollbackErr))
		}
	}()

	var maxPosition int
	stmt := `SELECT COALESCE(MAX(position), 0) FROM sub_questions WHERE research_run_id = ?`
	if err = tx.GetContext(ctx, &maxPosition, stmt, runID); err != nil {
		return errors.Wrap(err, "read max position", slog.String("run_id", runID))
	}

	stmt = `INSERT INTO sub_questions (research_run_id, sub_question, position) VALUES (?, ?, ?)`
	for i, question := range questions {
		if _, err = tx.ExecContext(ctx, stmt, runID, question, maxPosition+i+1); err != nil {
			return errors.Wrap(err, "append sub-question", slog.Int("position", maxPosition+i+1))
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit sub-questions")
	}
	return nil
}

// SetFinalAnswer writes the synthesized answer onto the run.
func (r *RunRepository) SetFinalAnswer(ctx context.Context, runID string, answer string) error {
	stmt := `UPDATE research_runs SET final_answer = ? WHERE id = ?`
	if _, err := r.dbs.ReadWrite.ExecContext(ctx, stmt, answer, runID); err != nil {
		return errors.Wrap(err, "update final answer", slog.String("run_id", runID))
	}
	return nil
}

// SetArtifactPaths records where the run's report documents were written.
func (r *RunRepository) SetArtifactPaths(ctx context.Context, runID string, markdownPath string, htmlPath string) error {
	stmt := `UPDATE research_runs SET markdown_path = ?, html_path = ? WHERE id = ?`
	if _, err := r.dbs.ReadWrite.ExecContext(ctx, stmt, markdownPath, htmlPath, runID); err != nil {
		return errors.Wrap(err, "update artifact paths", slog.String("run_id", runID))
	}
	return nil
}
