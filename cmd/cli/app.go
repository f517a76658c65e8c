package main

import (
	"context"
	"github.com/mkarhu/inquest/internal/ai"
	"github.com/mkarhu/inquest/internal/config"
	"github.com/mkarhu/inquest/internal/decompose"
	"github.com/mkarhu/inquest/internal/judge"
	"github.com/mkarhu/inquest/internal/logging"
	"github.com/mkarhu/inquest/internal/memory"
	"github.com/mkarhu/inquest/internal/pipeline"
	"github.com/mkarhu/inquest/internal/report"
	"github.com/mkarhu/inquest/internal/repositories"
	"github.com/mkarhu/inquest/internal/research"
	"github.com/mkarhu/inquest/internal/search"
	"github.com/mkarhu/inquest/internal/sqlite"
	"log/slog"
	"os"
)

// application wires the full research stack for one CLI invocation.
type application struct {
	pipeline *pipeline.Pipeline
	reporter *report.Generator
	logger   *slog.Logger
	dbs      *sqlite.Database
}

func newApplication(ctx context.Context) (*application, error) {
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:       slog.LevelInfo,
		AddSource:   false,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)

	cfg, err := config.Parse(os.LookupEnv)
	if err != nil {
		return nil, err
	}

	dbs, err := sqlite.NewDatabase(ctx, cfg.SQLiteURL, logger)
	if err != nil {
		return nil, err
	}

	runs := repositories.NewRunRepository(dbs, logger)
	evidence := repositories.NewEvidenceRepository(dbs, logger)
	summaries := repositories.NewSummaryRepository(dbs, logger)
	evaluations := repositories.NewEvaluationRepository(dbs, logger)

	aiClient := ai.NewClient(cfg.OpenAIAPIKey)
	searchClient := search.NewClient(cfg.TavilyAPIKey)
	memoryStore := memory.NewStore(dbs, aiClient, logger)

	resolver := decompose.NewResolver(aiClient, memoryStore, runs, logger)
	gatherer := research.NewGatherer(searchClient, runs, evidence, logger)
	summarizer := research.NewSummarizer(aiClient, runs, summaries, logger)
	synthesizer := research.NewSynthesizer(aiClient, logger)
	answerJudge := judge.NewJudge(aiClient, evaluations, logger)
	reporter := report.NewGenerator(runs, evidence, evaluations, cfg.OutputDir, logger)

	return &application{
		pipeline: pipeline.New(
			resolver, gatherer, summarizer, synthesizer, answerJudge, reporter, memoryStore, runs, logger),
		reporter: reporter,
		logger:   logger,
		dbs:      dbs,
	}, nil
}

func (app *application) close() {
	if err := app.dbs.Close(); err != nil {
		app.logger.Error("could not close database", "error", err.Error())
	}
}
