package crawl

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"site-analyzer/pkg/config"
	"site-analyzer/pkg/fetch"
	"site-analyzer/pkg/models"
	"site-analyzer/pkg/utils"
)

// Coordinator runs independent crawl runs across multiple seeds and
// assembles a BatchResult preserving seed input order. Each seed gets its
// own orchestrator state (frontier, visited set); re-fetching the same URL
// from two different seeds is intentional.
type Coordinator struct {
	cfg  *config.AppConfig
	orch *Orchestrator
	log  *logrus.Entry
}

// NewCoordinator creates a batch Coordinator on top of an Orchestrator.
func NewCoordinator(cfg *config.AppConfig, orch *Orchestrator, log *logrus.Entry) *Coordinator {
	return &Coordinator{
		cfg:  cfg,
		orch: orch,
		log:  log,
	}
}

// RunBatch crawls every seed request, up to cfg.BatchConcurrency seeds at a
// time. With the shared-limiter default, one turnstile paces fetches across
// all seeds (global politeness); otherwise each seed paces itself. Results
// are buffered into seed input order regardless of completion order, and a
// failing seed never prevents the others from running.
func (bc *Coordinator) RunBatch(ctx context.Context, reqs []models.CrawlRequest) models.BatchResult {
	batch := models.BatchResult{
		Runs:      make([]models.CrawlRunResult, len(reqs)),
		StartedAt: time.Now(),
	}
	bc.log.Infof("Batch starting: %d seed(s), concurrency %d, shared limiter: %v",
		len(reqs), bc.cfg.BatchConcurrency, bc.cfg.EffectiveSharedRateLimiter())

	var shared *fetch.RateLimiter
	if bc.cfg.EffectiveSharedRateLimiter() {
		// The shared turnstile paces all seeds at the slowest requested delay.
		shared = fetch.NewRateLimiter(bc.maxDelay(reqs), bc.log)
	}

	sem := semaphore.NewWeighted(int64(bc.cfg.BatchConcurrency))
	var wg sync.WaitGroup

	for i, req := range reqs {
		wg.Add(1)
		go func(idx int, req models.CrawlRequest) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				batch.Runs[idx] = failedRun(req.URL, fmt.Errorf("batch cancelled: %w", err))
				return
			}
			defer sem.Release(1)
			batch.Runs[idx] = bc.runSeed(ctx, req, shared)
		}(i, req)
	}
	wg.Wait()

	for _, run := range batch.Runs {
		if run.Status == models.RunStatusFailed {
			batch.Failed++
		} else {
			batch.Succeeded++
		}
	}
	batch.Duration = time.Since(batch.StartedAt)
	bc.log.WithFields(logrus.Fields{
		"seeds":     len(reqs),
		"succeeded": batch.Succeeded,
		"failed":    batch.Failed,
		"duration":  batch.Duration.String(),
	}).Info("Batch finished")
	return batch
}

// runSeed executes one seed's run, degrading input errors into that seed's
// failed result instead of aborting the batch.
func (bc *Coordinator) runSeed(ctx context.Context, req models.CrawlRequest, shared *fetch.RateLimiter) models.CrawlRunResult {
	req = bc.orch.applyDefaults(req)
	if err := req.Validate(); err != nil {
		bc.log.WithField("seed", req.URL).Warnf("Seed request rejected: %v", err)
		return failedRun(req.URL, fmt.Errorf("%w: %w", utils.ErrInvalidRequest, err))
	}

	limiter := shared
	if limiter == nil {
		limiter = fetch.NewRateLimiter(req.CrawlDelay, bc.log)
	}
	return bc.orch.run(ctx, req, limiter)
}

// maxDelay picks the largest effective crawl delay across the batch.
func (bc *Coordinator) maxDelay(reqs []models.CrawlRequest) time.Duration {
	delay := bc.cfg.DefaultCrawlDelay
	for _, req := range reqs {
		if req.CrawlDelay > delay {
			delay = req.CrawlDelay
		}
	}
	return delay
}

// failedRun builds the zero-page failed result recorded for a seed that
// never got to fetch anything.
func failedRun(seed string, err error) models.CrawlRunResult {
	now := time.Now()
	return models.CrawlRunResult{
		Seed:       seed,
		Status:     models.RunStatusFailed,
		Error:      err.Error(),
		StartedAt:  now,
		FinishedAt: now,
	}
}
