package repositories

import (
	"context"
	"database/sql"
	"github.com/mkarhu/inquest/internal/errors"
	"github.com/mkarhu/inquest/internal/models"
	"github.com/mkarhu/inquest/internal/sqlite"
	"log/slog"
)

type EvidenceRepository struct {
	dbs    *sqlite.Database
	logger *slog.Logger
}

func NewEvidenceRepository(dbs *sqlite.Database, logger *slog.Logger) *EvidenceRepository {
	return &EvidenceRepository{
		dbs:    dbs,
		logger: logger.With("source", "EvidenceRepository"),
	}
}

// ResultsFor returns all stored evidence rows for a (sub-question, search
// type) pair. An empty result means the pair has never been searched.
func (r *EvidenceRepository) ResultsFor(
	ctx context.Context,
	subQuestionID int64,
	searchType string,
) ([]models.SearchResult, error) {
	var results []models.SearchResult
	stmt := `SELECT id, sub_question_id, search_query, search_type, url, title, snippet, score, source_engine, fetched_at
	FROM search_results
	WHERE sub_question_id = ? AND search_type = ?
	ORDER BY id`
	if err := r.dbs.ReadOnly.SelectContext(ctx, &results, stmt, subQuestionID, searchType); err != nil {
		return nil, errors.Wrap(err, "read search results", slog.Int64("sub_question_id", subQuestionID))
	}
	return results, nil
}

// Insert persists fresh evidence for a sub-question: one row per snippet and
// one row per URL. The two row kinds represent the same evidence set; both are
// written in one transaction so the cache-hit signal (any row for the pair)
// never observes half an insert.
func (r *EvidenceRepository) Insert(
	ctx context.Context,
	subQuestionID int64,
	searchQuery string,
	searchType string,
	snippets []string,
	urls []string,
) error {
	tx, err := r.dbs.ReadWrite.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			r.logger.LogAttrs(ctx, slog.LevelError, "could not roll back", errors.SlogError(rollbackErr))
		}
	}()

	stmt := `INSERT INTO search_results (sub_question_id, search_query, search_type, snippet)
	VALUES (?, ?, ?, ?)`
	for _, snippet := range snippets {
		if snippet == "" {
			continue
		}
		if _, err = tx.ExecContext(ctx, stmt, subQuestionID, searchQuery, searchType, snippet); err != nil {
			return errors.Wrap(err, "insert snippet row", slog.Int64("sub_question_id", subQuestionID))
		}
	}

	stmt = `INSERT INTO search_results (sub_question_id, search_query, search_type, url)
	VALUES (?, ?, ?, ?)`
	for _, url := range urls {
		if _, err = tx.ExecContext(ctx, stmt, subQuestionID, searchQuery, searchType, url); err != nil {
			return errors.Wrap(err, "insert URL row", slog.Int64("sub_question_id", subQuestionID))
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit evidence")
	}
	return nil
}

// URLsForRun returns the distinct non-null source URLs across all of the
// run's sub-questions, sorted.
func (r *EvidenceRepository) URLsForRun(ctx context.Context, runID string) ([]string, error) {
	var urls []string
	stmt := `SELECT DISTINCT sr.url
	FROM search_results sr
	JOIN sub_questions sq ON sq.id = sr.sub_question_id
	WHERE sq.research_run_id = ? AND sr.url IS NOT NULL
	ORDER BY sr.url`
	if err := r.dbs.ReadOnly.SelectContext(ctx, &urls, stmt, runID); err != nil {
		return nil, errors.Wrap(err, "read run URLs", slog.String("run_id", runID))
	}
	return urls, nil
}
