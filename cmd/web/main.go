package main

import (
	"context"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/donseba/go-htmx"
	"github.com/joho/godotenv"
	"github.com/mkarhu/inquest/internal/ai"
	"github.com/mkarhu/inquest/internal/config"
	"github.com/mkarhu/inquest/internal/decompose"
	"github.com/mkarhu/inquest/internal/judge"
	"github.com/mkarhu/inquest/internal/logging"
	"github.com/mkarhu/inquest/internal/memory"
	"github.com/mkarhu/inquest/internal/pipeline"
	"github.com/mkarhu/inquest/internal/pprofserver"
	"github.com/mkarhu/inquest/internal/report"
	"github.com/mkarhu/inquest/internal/repositories"
	"github.com/mkarhu/inquest/internal/research"
	"github.com/mkarhu/inquest/internal/search"
	"github.com/mkarhu/inquest/internal/sqlite"
	"log/slog"
	"os"
	"time"
)

// queryResolver resolves a query to its decomposed run, creating it on a
// cache miss. Implemented by decompose.Resolver.
type queryResolver interface {
	Resolve(ctx context.Context, query string) (*decompose.Result, error)
}

// researchRunner drives the full multi-pass loop. Implemented by
// pipeline.Pipeline.
type researchRunner interface {
	Run(ctx context.Context, query string) (*pipeline.Outcome, error)
}

type application struct {
	logger         *slog.Logger
	sessionManager *scs.SessionManager
	htmx           *htmx.HTMX
	resolver       queryResolver
	pipeline       researchRunner
	runs           *repositories.RunRepository
	evidence       *repositories.EvidenceRepository
	evaluations    *repositories.EvaluationRepository
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	cfg, err := config.Parse(lookupEnv)
	if err != nil {
		return err
	}

	// Loopback only, so the profiling endpoints are not open to the world.
	pprofserver.Launch(cfg.PprofPort, logger)

	dbs, err := sqlite.NewDatabase(ctx, cfg.SQLiteURL, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := dbs.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "could not close database")
		}
	}()

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
	researchPipeline := pipeline.New(
		resolver, gatherer, summarizer, synthesizer, answerJudge, reporter, memoryStore, runs, logger)

	sessionManager := scs.New()
	sessionManager.Store = sqlite3store.NewWithCleanupInterval(dbs.ReadWrite.DB, 24*time.Hour)
	sessionManager.Lifetime = 12 * time.Hour

	app := application{
		logger:         logger,
		sessionManager: sessionManager,
		htmx:           htmx.New(),
		resolver:       resolver,
		pipeline:       researchPipeline,
		runs:           runs,
		evidence:       evidence,
		evaluations:    evaluations,
	}

	return app.configureAndStartServer(ctx, cfg.Addr)
}

func main() {
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:       slog.LevelDebug,
		AddSource:   true,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)

	// A missing .env file is fine in production where the environment is set
	// by the process manager.
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file loaded", "error", err.Error())
	}

	if err := run(context.Background(), logger, os.LookupEnv); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}
