package repositories_test

import (
	"context"
	"github.com/mkarhu/inquest/internal/models"
	"github.com/mkarhu/inquest/internal/repositories"
	"github.com/mkarhu/inquest/internal/testhelpers"
	"github.com/stretchr/testify/require"
	"io"
	"testing"
)

func TestEvaluationRepository(t *testing.T) {
	dbs := newTestDB(t)
	logger := testhelpers.NewLogger(io.Discard)
	runs := repositories.NewRunRepository(dbs, logger)
	evaluations := repositories.NewEvaluationRepository(dbs, logger)
	ctx := context.Background()

	require.NoError(t, runs.Create(ctx, newRun("run-1", "query"), []string{"q1"}))

	_, err := evaluations.LatestForRun(ctx, "run-1")
	require.ErrorIs(t, err, repositories.ErrNoEvaluation)

	first := &models.JudgeEvaluation{
		ResearchRunID:        "run-1",
		OverallStatus:        models.StatusNeedsMoreResearch,
		ConfidenceScore:      0.6,
		CoverageAssessment:   `{"q1":"partially_covered"}`,
		DetectedGaps:         `["missing cost data"]`,
		RecommendedFollowUp:  `["What does it cost?"]`,
		TerminationReasoning: "coverage is shallow",
	}
	require.NoError(t, evaluations.Insert(ctx, first))

	second := &models.JudgeEvaluation{
		ResearchRunID:        "run-1",
		OverallStatus:        models.StatusReadyToDeliver,
		ConfidenceScore:      0.9,
		CoverageAssessment:   `{"q1":"covered"}`,
		DetectedGaps:         `[]`,
		RecommendedFollowUp:  `[]`,
		TerminationReasoning: "all sub-questions covered",
	}
	require.NoError(t, evaluations.Insert(ctx, second))

	latest, err := evaluations.LatestForRun(ctx, "run-1")
	require.NoError(t, err)
	require.Equal(t, models.StatusReadyToDeliver, latest.OverallStatus)
	require.InDelta(t, 0.9, latest.ConfidenceScore, 1e-9)

	all, err := evaluations.ForRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, all, 2, "one evaluation per pass")
	require.Equal(t, models.StatusNeedsMoreResearch, all[0].OverallStatus)
}
