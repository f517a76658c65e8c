package report_test

import (
	"context"
	"github.com/PuerkitoBio/goquery"
	"github.com/mkarhu/inquest/internal/models"
	"github.com/mkarhu/inquest/internal/report"
	"github.com/mkarhu/inquest/internal/repositories"
	"github.com/mkarhu/inquest/internal/sqlite"
	"github.com/mkarhu/inquest/internal/testhelpers"
	"github.com/stretchr/testify/require"
	"io"
	"os"
	"strings"
	"testing"
)

type reportFixture struct {
	runs        *repositories.RunRepository
	evidence    *repositories.EvidenceRepository
	evaluations *repositories.EvaluationRepository
	generator   *report.Generator
	outputDir   string
}

func newReportFixture(t *testing.T) reportFixture {
	t.Helper()
	logger := testhelpers.NewLogger(io.Discard)
	dbs, err := sqlite.NewDatabase(context.Background(), ":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbs.Close() })

	runs := repositories.NewRunRepository(dbs, logger)
	evidence := repositories.NewEvidenceRepository(dbs, logger)
	evaluations := repositories.NewEvaluationRepository(dbs, logger)
	outputDir := t.TempDir()
	return reportFixture{
		runs:        runs,
		evidence:    evidence,
		evaluations: evaluations,
		generator:   report.NewGenerator(runs, evidence, evaluations, outputDir, logger),
		outputDir:   outputDir,
	}
}

func (f reportFixture) seedRun(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	run := &models.Run{
		ID:              "run-1",
		OriginalQuery:   "What is photosynthesis?",
		Classification:  models.ClassificationFactual,
		PrimaryIntent:   "Explain how photosynthesis works",
		Relationship:    "hierarchical",
		DifficultyLevel: "moderate",
	}
	require.NoError(t, f.runs.Create(ctx, run, []string{
		"What is the chemical equation of photosynthesis?",
		"Which organelles perform photosynthesis?",
	}))

	ids, err := f.runs.SubQuestionIDs(ctx, "run-1")
	require.NoError(t, err)
	require.NoError(t, f.evidence.Insert(ctx,
		ids["What is the chemical equation of photosynthesis?"],
		"What is the chemical equation of photosynthesis?", models.SearchTypeDepth,
		[]string{"- Equation | Six CO2 and six H2O yield glucose and oxygen"},
		[]string{"https://example.org/equation"}))

	require.NoError(t, f.runs.SetFinalAnswer(ctx, "run-1",
		"Photosynthesis converts light into chemical energy."))
	require.NoError(t, f.evaluations.Insert(ctx, &models.JudgeEvaluation{
		ResearchRunID:        "run-1",
		OverallStatus:        models.StatusReadyToDeliver,
		ConfidenceScore:      0.9,
		CoverageAssessment:   `{}`,
		DetectedGaps:         `[]`,
		RecommendedFollowUp:  `["How do the dark reactions work?"]`,
		TerminationReasoning: "Sufficient coverage.",
	}))
}

func TestGenerator_WritesMarkdownAndHTML(t *testing.T) {
	f := newReportFixture(t)
	f.seedRun(t)
	ctx := context.Background()

	paths, err := f.generator.Generate(ctx, "run-1")
	require.NoError(t, err)

	markdown, err := os.ReadFile(paths.Markdown)
	require.NoError(t, err)
	content := string(markdown)
	require.Contains(t, content, "# Research Report")
	require.Contains(t, content, "## Original Query\nWhat is photosynthesis?")
	require.Contains(t, content, "- Type: **factual**")
	require.Contains(t, content, "1. What is the chemical equation of photosynthesis?")
	require.Contains(t, content, "2. Which organelles perform photosynthesis?")
	require.Contains(t, content, "Photosynthesis converts light into chemical energy.")
	require.Contains(t, content, "- https://example.org/equation")
	require.Contains(t, content, "### Recommended Follow-Up Questions\n- How do the dark reactions work?")

	html, err := os.Open(paths.HTML)
	require.NoError(t, err)
	defer html.Close()
	doc, err := goquery.NewDocumentFromReader(html)
	require.NoError(t, err)
	require.Equal(t, "Research Report", doc.Find("title").Text())
	require.Contains(t, doc.Find("pre").Text(), "What is photosynthesis?")

	run, err := f.runs.Get(ctx, "run-1")
	require.NoError(t, err)
	require.Equal(t, paths.Markdown, run.MarkdownPath.String)
	require.Equal(t, paths.HTML, run.HTMLPath.String)
	require.True(t, strings.HasPrefix(paths.OutputDir, f.outputDir))
}

func TestGenerator_UnjudgedRunStillGetsAReport(t *testing.T) {
	f := newReportFixture(t)
	ctx := context.Background()
	run := &models.Run{ID: "run-2", OriginalQuery: "Unfinished query"}
	require.NoError(t, f.runs.Create(ctx, run, []string{"q1"}))

	paths, err := f.generator.Generate(ctx, "run-2")
	require.NoError(t, err)

	markdown, err := os.ReadFile(paths.Markdown)
	require.NoError(t, err)
	require.Contains(t, string(markdown), "Not available")
	require.NotContains(t, string(markdown), "Recommended Follow-Up Questions")
}

func TestGenerator_UnknownRunFails(t *testing.T) {
	f := newReportFixture(t)
	_, err := f.generator.Generate(context.Background(), "no-such-run")
	require.ErrorIs(t, err, repositories.ErrNoRun)
}
