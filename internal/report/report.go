// Package report renders a finished research run into Markdown and HTML
// documents under the configured output directory.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/mkarhu/inquest/internal/errors"
	"github.com/mkarhu/inquest/internal/models"
	"github.com/mkarhu/inquest/internal/repositories"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Paths locates the documents written for one run.
type Paths struct {
	Markdown  string
	HTML      string
	OutputDir string
}

// htmlPage wraps the Markdown content in a minimal self-contained page. The
// content is rendered preformatted; template escaping protects against markup
// smuggled through model output.
var htmlPage = template.Must(template.New("report").Parse(`<html>
<head>
    <title>Research Report</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; }
        h1, h2, h3 { color: #333; }
        ul { margin-left: 20px; }
        li { margin-bottom: 6px; }
        .box { border: 1px solid #ddd; padding: 16px; margin-bottom: 20px; }
    </style>
</head>
<body>
    <pre>{{ . }}</pre>
</body>
</html>
`))

type Generator struct {
	runs        *repositories.RunRepository
	evidence    *repositories.EvidenceRepository
	evaluations *repositories.EvaluationRepository
	outputDir   string
	logger      *slog.Logger
}

func NewGenerator(
	runs *repositories.RunRepository,
	evidence *repositories.EvidenceRepository,
	evaluations *repositories.EvaluationRepository,
	outputDir string,
	logger *slog.Logger,
) *Generator {
	return &Generator{
		runs:        runs,
		evidence:    evidence,
		evaluations: evaluations,
		outputDir:   outputDir,
		logger:      logger.With("source", "report.Generator"),
	}
}

// Generate writes <outputDir>/<runID>/<runID>.md and .html from the run's
// persisted state and records the paths on the run. Regenerating a report
// overwrites the previous documents; it never triggers new research.
func (g *Generator) Generate(ctx context.Context, runID string) (Paths, error) {
	run, err := g.runs.Get(ctx, runID)
	if err != nil {
		return Paths{}, err
	}
	subQuestions, err := g.runs.SubQuestions(ctx, runID)
	if err != nil {
		return Paths{}, err
	}
	sources, err := g.evidence.URLsForRun(ctx, runID)
	if err != nil {
		return Paths{}, err
	}

	// A run interrupted before its first judge pass still gets a report.
	evaluation, err := g.evaluations.LatestForRun(ctx, runID)
	if err != nil && !errors.Is(err, repositories.ErrNoEvaluation) {
		return Paths{}, err
	}

	markdown := renderMarkdown(run, subQuestions, sources, evaluation)

	runDir := filepath.Join(g.outputDir, runID)
	if err = os.MkdirAll(runDir, 0o755); err != nil {
		return Paths{}, errors.Wrap(err, "create run output directory", slog.String("dir", runDir))
	}

	paths := Paths{
		Markdown:  filepath.Join(runDir, runID+".md"),
		HTML:      filepath.Join(runDir, runID+".html"),
		OutputDir: runDir,
	}

	if err = os.WriteFile(paths.Markdown, []byte(markdown), 0o644); err != nil {
		return Paths{}, errors.Wrap(err, "write markdown report", slog.String("path", paths.Markdown))
	}

	var page strings.Builder
	if err = htmlPage.Execute(&page, markdown); err != nil {
		return Paths{}, errors.Wrap(err, "render html report")
	}
	if err = os.WriteFile(paths.HTML, []byte(page.String()), 0o644); err != nil {
		return Paths{}, errors.Wrap(err, "write html report", slog.String("path", paths.HTML))
	}

	if err = g.runs.SetArtifactPaths(ctx, runID, paths.Markdown, paths.HTML); err != nil {
		return Paths{}, err
	}

	g.logger.LogAttrs(ctx, slog.LevelInfo, "report generated",
		slog.String("run_id", runID), slog.String("dir", runDir))
	return paths, nil
}

func renderMarkdown(
	run *models.Run,
	subQuestions []models.SubQuestion,
	sources []string,
	evaluation *models.JudgeEvaluation,
) string {
	var md []string
	md = append(md, "# Research Report\n")

	md = append(md, "## Original Query", run.OriginalQuery+"\n")

	md = append(md, "## Query Classification",
		fmt.Sprintf("- Type: **%s**", run.Classification),
		fmt.Sprintf("- Difficulty: **%s**", run.DifficultyLevel),
		fmt.Sprintf("- Relationship: **%s**\n", run.Relationship))

	md = append(md, "## Decomposed Sub-Questions")
	for _, question := range subQuestions {
		md = append(md, fmt.Sprintf("%d. %s", question.Position, question.SubQuestion))
	}
	md = append(md, "")

	finalAnswer := "Not available"
	if run.FinalAnswer.Valid && run.FinalAnswer.String != "" {
		finalAnswer = run.FinalAnswer.String
	}
	md = append(md, "## Final Answer", finalAnswer+"\n")

	md = append(md, "## Sources")
	for _, url := range sources {
		md = append(md, "- "+url)
	}
	md = append(md, "")

	if evaluation != nil {
		if followUps := decodeFollowUps(evaluation.RecommendedFollowUp); len(followUps) > 0 {
			md = append(md, "### Recommended Follow-Up Questions")
			for _, question := range followUps {
				md = append(md, "- "+question)
			}
			md = append(md, "")
		}
	}

	return strings.Join(md, "\n")
}

// decodeFollowUps tolerates malformed stored JSON; a report is still produced
// without the follow-up section.
func decodeFollowUps(encoded string) []string {
	var followUps []string
	if err := json.Unmarshal([]byte(encoded), &followUps); err != nil {
		return nil
	}
	return followUps
}
