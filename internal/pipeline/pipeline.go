// Package pipeline drives a research run end to end: answer every
// question concurrently, aggregate and rank the citations they surface,
// process the ranked citations through the worker pool, then render the
// run's reports. Phases are strictly ordered; within a phase, work is
// concurrent and individual failures never abort the batch.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/research-orchestrator/internal/citations"
	"github.com/sells-group/research-orchestrator/internal/deadline"
	"github.com/sells-group/research-orchestrator/internal/model"
	"github.com/sells-group/research-orchestrator/internal/report"
	"github.com/sells-group/research-orchestrator/internal/resilience"
)

// questionsPerWorker sets how many questions share one research worker
// when the worker count is derived automatically.
const questionsPerWorker = 10

// Artifacts is everything the pipeline persists during a run. A store.Run
// satisfies it.
type Artifacts interface {
	citations.Sink
	SaveAnswer(q model.Question, answer string) (string, error)
	SaveExecutiveSummary(q model.Question, summary string) (string, error)
	SaveReport(name, content string) (string, error)
	SaveBatchResult(b *model.BatchResult) error
}

// Config tunes a pipeline run.
type Config struct {
	// QuestionWorkers bounds concurrent research calls. Zero derives
	// max(1, questions/10).
	QuestionWorkers int
	// CitationWorkers bounds concurrent citation tasks.
	CitationWorkers int
	// Stagger paces dispatches in both pools.
	Stagger time.Duration
	// ResearchTimeout is the wall-clock budget per question.
	ResearchTimeout time.Duration
	// CitationTimeout is the wall-clock budget per citation.
	CitationTimeout time.Duration
	// PrecheckTimeout bounds the reachability probe per citation.
	PrecheckTimeout time.Duration
	// MaxCitations caps how many ranked citations are processed.
	MaxCitations int
	// ExecutiveSummaries enables the per-question summary pass.
	ExecutiveSummaries bool
	// Retry governs calls to the research and cleanup APIs.
	Retry resilience.RetryConfig
	// OnProgress, when set, receives citation pool progress snapshots.
	OnProgress func(model.ProgressSnapshot)
}

// Pipeline holds the collaborators for a run.
type Pipeline struct {
	researcher Researcher
	summarizer Summarizer
	scraper    citations.Scraper
	cleaner    citations.Cleaner
	prechecker citations.Prechecker
	artifacts  Artifacts
	cfg        Config
}

// New assembles a pipeline.
func New(researcher Researcher, summarizer Summarizer, scraper citations.Scraper, cleaner citations.Cleaner, prechecker citations.Prechecker, artifacts Artifacts, cfg Config) *Pipeline {
	if cfg.ResearchTimeout <= 0 {
		cfg.ResearchTimeout = 10 * time.Minute
	}
	if cfg.CitationTimeout <= 0 {
		cfg.CitationTimeout = 5 * time.Minute
	}
	if cfg.CitationWorkers < 1 {
		cfg.CitationWorkers = 4
	}
	if cfg.MaxCitations <= 0 {
		cfg.MaxCitations = 50
	}
	return &Pipeline{
		researcher: researcher,
		summarizer: summarizer,
		scraper:    scraper,
		cleaner:    cleaner,
		prechecker: prechecker,
		artifacts:  artifacts,
		cfg:        cfg,
	}
}

// Run executes all phases for the given questions and returns the full
// batch record. The error is non-nil only for run-level failures
// (persistence, cancellation); per-question and per-citation failures
// are recorded in the result instead.
func (p *Pipeline) Run(ctx context.Context, projectID string, questions []model.Question) (*model.BatchResult, error) {
	batch := &model.BatchResult{
		ProjectID: projectID,
		StartedAt: time.Now().UTC(),
		Questions: questions,
	}
	if len(questions) > 0 {
		batch.Topic = questions[0].Topic
		batch.Perspective = questions[0].Perspective
	}

	// Phase 1: research. Every question gets a result before phase 2
	// starts; there is no partial aggregation.
	batch.Results = p.researchAll(ctx, questions)
	zap.L().Info("research phase complete",
		zap.Int("questions", len(questions)),
		zap.Int("succeeded", batch.SuccessfulQuestions()))

	// Phase 2: aggregate and rank. Runs even when every question failed;
	// the citation phases then see empty input and the reports record a
	// failed run rather than nothing.
	batch.Citations = citations.Aggregate(batch.Results)
	batch.Prioritized, batch.Skipped = citations.Prioritize(batch.Citations, p.cfg.MaxCitations)
	zap.L().Info("citation aggregation complete",
		zap.Int("unique", batch.Citations.Len()),
		zap.Int("prioritized", len(batch.Prioritized)),
		zap.Int("skipped", batch.Skipped))

	// Phase 3: process citations.
	pool := citations.NewPool(p.scraper, p.cleaner, p.artifacts, p.prechecker, citations.PoolConfig{
		MaxWorkers:      p.cfg.CitationWorkers,
		Stagger:         p.cfg.Stagger,
		TaskTimeout:     p.cfg.CitationTimeout,
		PrecheckTimeout: p.cfg.PrecheckTimeout,
		Retry:           p.cfg.Retry,
		OnProgress:      p.cfg.OnProgress,
	})
	batch.CitationResults = pool.ProcessAll(ctx, batch.Prioritized)

	// Phase 4: reports.
	batch.FinishedAt = time.Now().UTC()
	if _, err := p.artifacts.SaveReport("master_index.md", report.MasterIndex(batch)); err != nil {
		return batch, err
	}
	if _, err := p.artifacts.SaveReport("citation_index.md", report.CitationIndex(batch)); err != nil {
		return batch, err
	}
	if err := p.artifacts.SaveBatchResult(batch); err != nil {
		return batch, err
	}

	return batch, ctx.Err()
}

// researchAll answers every question with bounded concurrency. Results
// land at the index matching the question's position, so each slot is
// written by exactly one worker.
func (p *Pipeline) researchAll(ctx context.Context, questions []model.Question) []model.QuestionResult {
	results := make([]model.QuestionResult, len(questions))

	workers := p.cfg.QuestionWorkers
	if workers < 1 {
		workers = len(questions) / questionsPerWorker
		if workers < 1 {
			workers = 1
		}
	}

	var pacer *rate.Limiter
	if p.cfg.Stagger > 0 {
		pacer = rate.NewLimiter(rate.Every(p.cfg.Stagger), 1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	zap.L().Info("researching questions",
		zap.Int("questions", len(questions)),
		zap.Int("workers", workers))

	for i, q := range questions {
		if pacer != nil {
			if err := pacer.Wait(gctx); err != nil {
				break
			}
		}
		i, q := i, q
		g.Go(func() error {
			results[i] = p.researchOne(gctx, q)
			return nil
		})
	}
	_ = g.Wait()

	// Questions never dispatched (cancellation mid-loop) still get a
	// result so downstream phases see a slot per question.
	for i, q := range questions {
		if results[i].QuestionNumber == 0 {
			results[i] = model.QuestionResult{
				QuestionNumber: q.Number,
				Question:       q.Text,
				Error:          "not attempted: run cancelled",
			}
		}
	}
	return results
}

type researchOutput struct {
	answer string
	cites  []string
}

func (p *Pipeline) researchOne(ctx context.Context, q model.Question) model.QuestionResult {
	res := model.QuestionResult{
		QuestionNumber: q.Number,
		Question:       q.Text,
	}
	log := zap.L().With(zap.Int("question", q.Number))
	log.Info("researching", zap.String("text", q.Text))

	retryCfg := p.cfg.Retry
	retryCfg.OnRetry = resilience.RetryLogger("perplexity", fmt.Sprintf("research_q%d", q.Number), retryCfg.MaxRetries)

	outcome := deadline.Run(ctx, p.cfg.ResearchTimeout, func(ctx context.Context) (researchOutput, error) {
		return resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (researchOutput, error) {
			answer, cites, err := p.researcher.Research(ctx, q)
			return researchOutput{answer: answer, cites: cites}, err
		})
	})

	switch outcome.Status {
	case deadline.StatusSuccess:
		res.Success = true
		res.Answer = outcome.Value.answer
		res.Citations = outcome.Value.cites
	case deadline.StatusTimeout:
		res.Error = outcome.Err.Error()
		log.Warn("research timed out", zap.Duration("budget", p.cfg.ResearchTimeout))
		return res
	default:
		res.Error = outcome.Err.Error()
		log.Warn("research failed", zap.Error(outcome.Err))
		return res
	}

	if _, err := p.artifacts.SaveAnswer(q, res.Answer); err != nil {
		log.Error("failed to save answer", zap.Error(err))
	}

	if p.cfg.ExecutiveSummaries && p.summarizer != nil {
		summary, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (string, error) {
			return p.summarizer.Summarize(ctx, q, res.Answer)
		})
		if err != nil {
			// Summaries are a nicety; the answer already succeeded.
			log.Warn("executive summary failed", zap.Error(err))
		} else if summary != "" {
			res.ExecutiveSummary = summary
			if _, err := p.artifacts.SaveExecutiveSummary(q, summary); err != nil {
				log.Error("failed to save executive summary", zap.Error(err))
			}
		}
	}

	log.Info("question answered", zap.Int("citations", len(res.Citations)))
	return res
}
