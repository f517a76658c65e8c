package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"github.com/mkarhu/inquest/internal/errors"
	"github.com/mkarhu/inquest/internal/sqlite"
	"log/slog"
)

var ErrNoSummary = errors.NewSentinel("no summary found")

type SummaryRepository struct {
	dbs    *sqlite.Database
	logger *slog.Logger
}

func NewSummaryRepository(dbs *sqlite.Database, logger *slog.Logger) *SummaryRepository {
	return &SummaryRepository{
		dbs:    dbs,
		logger: logger.With("source", "SummaryRepository"),
	}
}

// Get returns the cached bullet summary for a sub-question, or ErrNoSummary
// when none has been computed yet.
func (r *SummaryRepository) Get(ctx context.Context, subQuestionID int64) ([]string, error) {
	var summaryJSON string
	stmt := `SELECT summary_json FROM sub_question_summaries WHERE sub_question_id = ?`
	if err := r.dbs.ReadOnly.GetContext(ctx, &summaryJSON, stmt, subQuestionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoSummary
		}
		return nil, errors.Wrap(err, "read summary", slog.Int64("sub_question_id", subQuestionID))
	}

	var bullets []string
	if err := json.Unmarshal([]byte(summaryJSON), &bullets); err != nil {
		return nil, errors.Wrap(err, "decode summary", slog.Int64("sub_question_id", subQuestionID))
	}
	return bullets, nil
}

// Put stores the bullet summary for a sub-question. A summary is written at
// most once; the UNIQUE constraint rejects recomputation.
func (r *SummaryRepository) Put(ctx context.Context, subQuestionID int64, bullets []string) error {
	summaryJSON, err := json.Marshal(bullets)
	if err != nil {
		return errors.Wrap(err, "encode summary", slog.Int64("sub_question_id", subQuestionID))
	}

	stmt := `INSERT INTO sub_question_summaries (sub_question_id, summary_json) VALUES (?, ?)`
	if _, err = r.dbs.ReadWrite.ExecContext(ctx, stmt, subQuestionID, string(summaryJSON)); err != nil {
		return errors.Wrap(err, "insert summary", slog.Int64("sub_question_id", subQuestionID))
	}
	return nil
}
