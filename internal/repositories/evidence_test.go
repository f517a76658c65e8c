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

func TestEvidenceRepository(t *testing.T) {
	dbs := newTestDB(t)
	logger := testhelpers.NewLogger(io.Discard)
	runs := repositories.NewRunRepository(dbs, logger)
	evidence := repositories.NewEvidenceRepository(dbs, logger)
	ctx := context.Background()

	require.NoError(t, runs.Create(ctx, newRun("run-1", "query"), []string{"first question", "second question"}))
	ids, err := runs.SubQuestionIDs(ctx, "run-1")
	require.NoError(t, err)

	// Never-searched pair reports no rows.
	results, err := evidence.ResultsFor(ctx, ids["first question"], models.SearchTypeDepth)
	require.NoError(t, err)
	require.Empty(t, results)

	snippets := []string{
		"- Photosynthesis basics | Plants use sunlight to make glucose.",
		"",
		"- Chlorophyll | The pigment absorbs mostly red and blue light.",
	}
	urls := []string{"https://example.org/photosynthesis", "https://example.org/chlorophyll"}
	require.NoError(t, evidence.Insert(ctx, ids["first question"], "first question", models.SearchTypeDepth, snippets, urls))

	results, err = evidence.ResultsFor(ctx, ids["first question"], models.SearchTypeDepth)
	require.NoError(t, err)
	require.Len(t, results, 4, "empty snippets are skipped; snippet and URL rows stored separately")

	var snippetRows, urlRows int
	for _, row := range results {
		require.Equal(t, "first question", row.SearchQuery)
		require.Equal(t, models.SearchTypeDepth, row.SearchType)
		require.Equal(t, "tavily", row.SourceEngine)
		if row.Snippet.Valid {
			snippetRows++
			require.False(t, row.URL.Valid, "snippet rows carry no URL")
		}
		if row.URL.Valid {
			urlRows++
		}
	}
	require.Equal(t, 2, snippetRows)
	require.Equal(t, 2, urlRows)

	// Breadth mode is tracked independently of depth.
	breadth, err := evidence.ResultsFor(ctx, ids["first question"], models.SearchTypeBreadth)
	require.NoError(t, err)
	require.Empty(t, breadth)
}

func TestEvidenceRepository_URLsForRun(t *testing.T) {
	dbs := newTestDB(t)
	logger := testhelpers.NewLogger(io.Discard)
	runs := repositories.NewRunRepository(dbs, logger)
	evidence := repositories.NewEvidenceRepository(dbs, logger)
	ctx := context.Background()

	require.NoError(t, runs.Create(ctx, newRun("run-1", "query"), []string{"q1", "q2"}))
	ids, err := runs.SubQuestionIDs(ctx, "run-1")
	require.NoError(t, err)

	require.NoError(t, evidence.Insert(ctx, ids["q1"], "q1", models.SearchTypeDepth,
		nil, []string{"https://b.example.org", "https://a.example.org"}))
	require.NoError(t, evidence.Insert(ctx, ids["q2"], "q2", models.SearchTypeDepth,
		[]string{"- shared | snippet"}, []string{"https://a.example.org"}))

	urls, err := evidence.URLsForRun(ctx, "run-1")
	require.NoError(t, err)
	require.Equal(t, []string{"https://a.example.org", "https://b.example.org"}, urls,
		"URLs are deduplicated across sub-questions and sorted")
}
