package crawl

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"site-analyzer/pkg/config"
	"site-analyzer/pkg/fetch"
	"site-analyzer/pkg/models"
	"site-analyzer/pkg/parse"
	"site-analyzer/pkg/utils"
)

// Orchestrator turns one CrawlRequest into a bounded, deduplicated,
// rate-limited traversal of the site graph. Frontier and visited state are
// created per run; an Orchestrator is stateless between runs and safe to
// share across concurrent RunCrawl calls.
type Orchestrator struct {
	cfg     *config.AppConfig
	fetcher fetch.PageFetcher
	log     *logrus.Entry
}

// NewOrchestrator creates an Orchestrator using the given fetcher and
// process defaults.
func NewOrchestrator(cfg *config.AppConfig, fetcher fetch.PageFetcher, log *logrus.Entry) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg,
		fetcher: fetcher,
		log:     log,
	}
}

// RunCrawl executes a single crawl run with its own rate limiter.
// Input errors (malformed seed, bad bounds) surface as an error; fetch
// failures never do — they are folded into the result.
func (o *Orchestrator) RunCrawl(ctx context.Context, req models.CrawlRequest) (models.CrawlRunResult, error) {
	req = o.applyDefaults(req)
	if err := req.Validate(); err != nil {
		return models.CrawlRunResult{}, fmt.Errorf("%w: %w", utils.ErrInvalidRequest, err)
	}
	limiter := fetch.NewRateLimiter(req.CrawlDelay, o.log)
	return o.run(ctx, req, limiter), nil
}

// applyDefaults resolves zero-valued request fields from the process
// configuration. MaxPages deliberately gets no default here: an unset page
// budget is an input error, not a preference.
func (o *Orchestrator) applyDefaults(req models.CrawlRequest) models.CrawlRequest {
	if req.UserAgent == "" {
		req.UserAgent = o.cfg.DefaultUserAgent
	}
	if req.CrawlDelay == 0 {
		req.CrawlDelay = o.cfg.DefaultCrawlDelay
	}
	return req
}

// run drives the frontier until it drains, the page budget is spent, or the
// run times out. Called with a validated request and a ready limiter (which
// may be shared with other seeds by the batch coordinator).
func (o *Orchestrator) run(ctx context.Context, req models.CrawlRequest, limiter *fetch.RateLimiter) models.CrawlRunResult {
	result := models.CrawlRunResult{
		Seed:      req.URL,
		StartedAt: time.Now(),
	}
	runLog := o.log.WithField("seed", req.URL)

	_, seedURL, seedErr := parse.ParseAndNormalize(req.URL)
	if seedErr != nil {
		runLog.Warnf("Seed URL rejected: %v", seedErr)
		result.Error = fmt.Sprintf("invalid seed URL: %v", seedErr)
		result.Status = models.RunStatusFailed
		result.FinishedAt = time.Now()
		return result
	}
	seedHost := seedURL.Hostname()

	if o.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.RunTimeout)
		defer cancel()
	}

	frontier := NewFrontier()
	frontier.Push(req.URL, 0, "")

	fetched := 0
	for fetched < req.MaxPages {
		entry, ok := frontier.Pop()
		if !ok {
			break
		}
		// Entries discovered beyond the depth bound are discarded without
		// fetching and without counting against max_pages.
		if entry.Depth > req.Depth {
			continue
		}

		if err := limiter.Acquire(ctx); err != nil {
			runLog.Warnf("Run cut short while waiting on rate limiter: %v", err)
			result.Truncated = true
			break
		}
		if ctx.Err() != nil {
			result.Truncated = true
			break
		}

		taskLog := runLog.WithFields(logrus.Fields{"url": entry.URL, "depth": entry.Depth})
		page, fetchErr := o.fetcher.Fetch(ctx, entry.URL, req.UserAgent)
		frontier.MarkVisited(entry.URL) // A failed URL is not retried within the run
		fetched++

		if fetchErr != nil {
			taskLog.WithField("category", utils.CategorizeError(fetchErr)).
				Warnf("Page fetch failed: %v", fetchErr)
			result.Pages = append(result.Pages, models.PageResult{
				URL:       entry.URL,
				Success:   false,
				Depth:     entry.Depth,
				FetchedAt: time.Now(),
				Error:     fetchErr.Error(),
			})
			result.Failures++
			// Give up early if the whole run's context is gone; every
			// remaining fetch would fail the same way.
			if ctx.Err() != nil {
				result.Truncated = true
				break
			}
			continue
		}

		// A redirect leaves the final URL differing from the requested one;
		// mark it too so the page is never fetched again under that name.
		if page.URL != entry.URL {
			frontier.MarkVisited(page.URL)
		}

		result.Pages = append(result.Pages, o.buildPageResult(req, entry, page))
		result.Successes++
		taskLog.WithField("title", page.Title).Debug("Page fetched")

		if req.FollowLinks && entry.Depth < req.Depth {
			queued := o.queueLinks(frontier, entry, page, seedHost)
			taskLog.WithField("queued", queued).Debug("Links queued")
		}
	}

	result.Status = models.DeriveRunStatus(result.Successes, result.Failures, result.Truncated)
	result.FinishedAt = time.Now()
	runLog.WithFields(logrus.Fields{
		"pages":     len(result.Pages),
		"successes": result.Successes,
		"failures":  result.Failures,
		"status":    result.Status,
		"duration":  result.FinishedAt.Sub(result.StartedAt).String(),
	}).Info("Crawl finished")
	return result
}

// buildPageResult populates a successful PageResult according to the
// request's save_html/extract_metadata/save_links flags.
func (o *Orchestrator) buildPageResult(req models.CrawlRequest, entry Entry, page *fetch.PageData) models.PageResult {
	pr := models.PageResult{
		URL:       page.URL,
		Success:   true,
		Title:     page.Title,
		Content:   page.Content,
		Depth:     entry.Depth,
		FetchedAt: time.Now(),
	}
	if req.ExtractMetadata {
		pr.Metadata = page.Metadata
	}
	if req.SaveLinks {
		links := make([]string, 0, len(page.Links))
		for _, l := range page.Links {
			links = append(links, l.URL)
		}
		pr.Links = links
	}
	if req.SaveHTML {
		pr.HTML = page.HTML
	}
	return pr
}

// queueLinks pushes the page's discovered links into the frontier one depth
// level down, honoring the same-site policy relative to the seed host.
func (o *Orchestrator) queueLinks(frontier *Frontier, entry Entry, page *fetch.PageData, seedHost string) int {
	queued := 0
	for _, link := range page.Links {
		if o.cfg.EffectiveSameSiteOnly() && !sameHost(link.URL, seedHost) {
			continue
		}
		if frontier.Push(link.URL, entry.Depth+1, entry.URL) {
			queued++
		}
	}
	return queued
}

// sameHost reports whether rawURL points at host (case-insensitive).
func sameHost(rawURL, host string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Hostname(), host)
}
