package citations

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/research-orchestrator/internal/deadline"
	"github.com/sells-group/research-orchestrator/internal/model"
	"github.com/sells-group/research-orchestrator/internal/resilience"
)

// PoolConfig tunes the citation worker pool.
type PoolConfig struct {
	// MaxWorkers bounds concurrent citation tasks. Values below 1 run
	// sequentially.
	MaxWorkers int
	// Stagger is the minimum spacing between task dispatches, smoothing
	// the initial burst against downstream APIs. Zero disables pacing.
	Stagger time.Duration
	// TaskTimeout is the wall-clock budget for one citation end to end.
	TaskTimeout time.Duration
	// PrecheckTimeout bounds the reachability probe inside each task.
	PrecheckTimeout time.Duration
	// Retry governs the cleanup call inside each task.
	Retry resilience.RetryConfig
	// OnProgress, when set, is invoked after every task completes with a
	// consistent snapshot of the counters.
	OnProgress func(model.ProgressSnapshot)
}

// Pool processes prioritized citations with bounded concurrency, paced
// dispatch, and a per-task deadline. Individual failures never abort the
// batch; every citation yields a CitationResult.
type Pool struct {
	scraper    Scraper
	cleaner    Cleaner
	sink       Sink
	prechecker Prechecker
	cfg        PoolConfig
}

// NewPool assembles a pool from its collaborators.
func NewPool(scraper Scraper, cleaner Cleaner, sink Sink, prechecker Prechecker, cfg PoolConfig) *Pool {
	if cfg.MaxWorkers < 1 {
		cfg.MaxWorkers = 1
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 5 * time.Minute
	}
	if cfg.PrecheckTimeout <= 0 {
		cfg.PrecheckTimeout = 15 * time.Second
	}
	return &Pool{scraper: scraper, cleaner: cleaner, sink: sink, prechecker: prechecker, cfg: cfg}
}

// ProcessAll runs every prioritized citation through the pool and returns
// one result per citation, ordered by citation ID. Workers complete in
// arbitrary order; the counters and the returned slice are the only
// shared state, and both are synchronized.
func (p *Pool) ProcessAll(ctx context.Context, prioritized []model.PrioritizedCitation) []model.CitationResult {
	if len(prioritized) == 0 {
		return nil
	}

	total := len(prioritized)
	var succeeded, failed, timedOut atomic.Int64

	var mu sync.Mutex
	results := make([]model.CitationResult, 0, total)

	var pacer *rate.Limiter
	if p.cfg.Stagger > 0 {
		pacer = rate.NewLimiter(rate.Every(p.cfg.Stagger), 1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.MaxWorkers)

	zap.L().Info("processing citations",
		zap.Int("total", total),
		zap.Int("workers", p.cfg.MaxWorkers),
		zap.Duration("stagger", p.cfg.Stagger),
		zap.Duration("timeout", p.cfg.TaskTimeout))

	for _, c := range prioritized {
		if pacer != nil {
			if err := pacer.Wait(gctx); err != nil {
				break
			}
		}
		c := c
		g.Go(func() error {
			res := p.runTask(gctx, c)

			switch {
			case res.TimedOut:
				timedOut.Add(1)
				failed.Add(1)
			case res.Success:
				succeeded.Add(1)
			default:
				failed.Add(1)
			}

			mu.Lock()
			results = append(results, res)
			mu.Unlock()

			snap := model.ProgressSnapshot{
				Total:     total,
				Succeeded: int(succeeded.Load()),
				Failed:    int(failed.Load()),
				TimedOut:  int(timedOut.Load()),
			}
			zap.L().Info("citation complete",
				zap.Int("citation", res.CitationID),
				zap.Bool("success", res.Success),
				zap.Int("done", snap.Completed()),
				zap.Int("total", snap.Total))
			if p.cfg.OnProgress != nil {
				p.cfg.OnProgress(snap)
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].CitationID < results[j].CitationID })

	zap.L().Info("citation processing finished",
		zap.Int("succeeded", int(succeeded.Load())),
		zap.Int("failed", int(failed.Load())),
		zap.Int("timed_out", int(timedOut.Load())))

	return results
}

// runTask executes one citation under the pool's deadline and folds the
// outcome into a CitationResult.
func (p *Pool) runTask(ctx context.Context, c model.PrioritizedCitation) model.CitationResult {
	res := model.CitationResult{
		CitationID: c.Rank,
		URL:        c.URL,
		RefCount:   c.RefCount(),
	}

	// Obviously invalid URLs fail before any collaborator is touched.
	if err := ValidateURL(c.URL); err != nil {
		res.Error = eris.ToString(err, false)
		res.Kind = model.KindValidation
		return res
	}

	start := time.Now()
	outcome := deadline.Run(ctx, p.cfg.TaskTimeout, func(ctx context.Context) (taskOutput, error) {
		return p.processOne(ctx, c)
	})
	res.Elapsed = time.Since(start)
	res.RawContent = outcome.Value.raw
	res.FormattedContent = outcome.Value.formatted
	res.Warnings = outcome.Value.warnings
	res.StatusCode = outcome.Value.statusCode
	res.ContentType = outcome.Value.contentType

	switch outcome.Status {
	case deadline.StatusSuccess:
		res.Success = true
	case deadline.StatusTimeout:
		res.TimedOut = true
		res.Kind = model.KindTimeout
		res.Error = eris.ToString(outcome.Err, false)
	default:
		res.Kind = resilience.Kind(outcome.Err)
		if res.Kind == model.KindNone {
			res.Kind = model.KindOther
		}
		if sc := resilience.StatusCode(outcome.Err); sc != 0 {
			res.StatusCode = sc
		}
		res.Error = eris.ToString(outcome.Err, false)
	}
	return res
}
