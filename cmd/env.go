package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/research-orchestrator/internal/citations"
	"github.com/sells-group/research-orchestrator/internal/model"
	"github.com/sells-group/research-orchestrator/internal/pipeline"
	"github.com/sells-group/research-orchestrator/internal/resilience"
	"github.com/sells-group/research-orchestrator/internal/store"
	"github.com/sells-group/research-orchestrator/internal/tracking"
	anthropicpkg "github.com/sells-group/research-orchestrator/pkg/anthropic"
	"github.com/sells-group/research-orchestrator/pkg/firecrawl"
	"github.com/sells-group/research-orchestrator/pkg/perplexity"
)

// env bundles the wired collaborators shared by the run, topic, and
// serve commands.
type env struct {
	researcher *pipeline.PerplexityResearcher
	scraper    citations.Scraper
	cleaner    citations.Cleaner
	prechecker citations.Prechecker
	tracker    tracking.Tracker
}

func initEnv() (*env, error) {
	if cfg.Perplexity.Key == "" {
		return nil, eris.New("perplexity API key not configured (RESEARCH_PERPLEXITY_KEY)")
	}
	if cfg.Firecrawl.Key == "" {
		return nil, eris.New("firecrawl API key not configured (RESEARCH_FIRECRAWL_KEY)")
	}

	perplexityClient := perplexity.NewClient(cfg.Perplexity.Key,
		perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
		perplexity.WithTimeout(time.Duration(cfg.Perplexity.TimeoutSecs)*time.Second),
	)
	firecrawlClient := firecrawl.NewClient(cfg.Firecrawl.Key,
		firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL))

	var cleaner citations.Cleaner
	switch cfg.Research.Cleaner {
	case "anthropic":
		if cfg.Anthropic.Key == "" {
			return nil, eris.New("anthropic API key not configured (RESEARCH_ANTHROPIC_KEY)")
		}
		cleaner = pipeline.NewAnthropicCleaner(anthropicpkg.NewClient(cfg.Anthropic.Key), cfg.Anthropic.Model)
	default:
		cleaner = pipeline.NewPerplexityCleaner(perplexityClient, cfg.Perplexity.CleanupModel)
	}

	tracker, err := initTracker()
	if err != nil {
		return nil, err
	}

	return &env{
		researcher: pipeline.NewPerplexityResearcher(perplexityClient, cfg.Perplexity.ResearchModel, cfg.Perplexity.CleanupModel),
		scraper:    pipeline.NewFirecrawlScraper(firecrawlClient),
		cleaner:    cleaner,
		prechecker: citations.NewPrechecker(),
		tracker:    tracker,
	}, nil
}

func initTracker() (tracking.Tracker, error) {
	switch cfg.Tracking.Backend {
	case "sqlite":
		return tracking.NewSQLite(cfg.Tracking.Path)
	default:
		return tracking.NewJSONTracker(cfg.Tracking.Path)
	}
}

func (e *env) Close() {
	if err := e.tracker.Close(); err != nil {
		zap.L().Warn("tracker close failed", zap.Error(err))
	}
}

func pipelineConfig() pipeline.Config {
	return pipeline.Config{
		QuestionWorkers:    cfg.Research.QuestionWorkers,
		CitationWorkers:    cfg.Research.CitationWorkers,
		Stagger:            cfg.Research.Stagger(),
		ResearchTimeout:    cfg.Research.ResearchTimeout(),
		CitationTimeout:    cfg.Research.CitationTimeout(),
		PrecheckTimeout:    cfg.Research.PrecheckTimeout(),
		MaxCitations:       cfg.Research.MaxCitations,
		ExecutiveSummaries: cfg.Research.ExecutiveSummaries,
		Retry: resilience.RetryConfig{
			MaxRetries:   cfg.Retry.MaxRetries,
			InitialDelay: time.Duration(cfg.Retry.InitialDelaySecs) * time.Second,
			MaxDelay:     time.Duration(cfg.Retry.MaxDelaySecs) * time.Second,
		},
	}
}

// executeRun drives one full research run: create the run folder and
// tracking record, run the pipeline, then finalize both.
func executeRun(ctx context.Context, e *env, topic, perspective string, questions []model.Question) (*model.BatchResult, error) {
	run, err := store.NewRun(cfg.Research.OutputDir, topic)
	if err != nil {
		return nil, err
	}

	project := tracking.Project{
		ID:          uuid.New().String(),
		Topic:       topic,
		Perspective: perspective,
		Dir:         run.Dir,
		Status:      tracking.StatusRunning,
		Questions:   len(questions),
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	if err := e.tracker.Create(ctx, project); err != nil {
		return nil, eris.Wrap(err, "create tracking record")
	}

	p := pipeline.New(e.researcher, e.researcher, e.scraper, e.cleaner, e.prechecker, run, pipelineConfig())

	batch, runErr := p.Run(ctx, project.ID, questions)

	project.Status = tracking.StatusComplete
	if runErr != nil || batch.SuccessfulQuestions() == 0 {
		project.Status = tracking.StatusFailed
	}
	if batch.Citations != nil {
		project.Citations = batch.Citations.Len()
	}
	project.UpdatedAt = time.Now().UTC()
	if err := e.tracker.Update(ctx, project); err != nil {
		zap.L().Warn("failed to update tracking record", zap.Error(err))
	}

	if runErr != nil {
		return batch, eris.Wrap(runErr, "pipeline run")
	}

	zap.L().Info("research run complete",
		zap.String("project", project.ID),
		zap.String("dir", run.Dir),
		zap.Int("questions_answered", batch.SuccessfulQuestions()),
		zap.Int("citations_processed", len(batch.CitationResults)),
	)
	return batch, nil
}
