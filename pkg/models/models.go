package models

import (
	"fmt"
	"time"
)

// CrawlRequest is the immutable input to a single crawl run.
// Zero values for CrawlDelay and UserAgent mean "use the process defaults";
// the orchestrator resolves them from its configuration before the run starts.
type CrawlRequest struct {
	URL             string        `json:"url" yaml:"url"`
	MaxPages        int           `json:"max_pages" yaml:"max_pages"`
	Depth           int           `json:"depth" yaml:"depth"`
	FollowLinks     bool          `json:"follow_links" yaml:"follow_links"`
	SaveHTML        bool          `json:"save_html" yaml:"save_html"`
	ExtractMetadata bool          `json:"extract_metadata" yaml:"extract_metadata"`
	SaveLinks       bool          `json:"save_links" yaml:"save_links"`
	CrawlDelay      time.Duration `json:"crawl_delay" yaml:"crawl_delay"`
	UserAgent       string        `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
}

// Validate checks the request fields that must be rejected before any fetch.
// Adapters are responsible for filling defaults (MaxPages=1 etc.) from their
// own input formats; by the time a request reaches the orchestrator the
// fields must be concrete.
func (r CrawlRequest) Validate() error {
	if r.URL == "" {
		return fmt.Errorf("seed URL is empty")
	}
	if r.MaxPages < 1 {
		return fmt.Errorf("max_pages must be >= 1, got %d", r.MaxPages)
	}
	if r.Depth < 0 {
		return fmt.Errorf("depth must be >= 0, got %d", r.Depth)
	}
	if r.CrawlDelay < 0 {
		return fmt.Errorf("crawl_delay must be >= 0, got %v", r.CrawlDelay)
	}
	return nil
}

// PageResult records the outcome of one fetch attempt. Created once per
// attempt and never mutated afterwards.
type PageResult struct {
	URL       string            `json:"url"`
	Success   bool              `json:"success"`
	Title     string            `json:"title,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"` // populated only when extract_metadata is set
	Content   string            `json:"content,omitempty"`  // body converted to markdown
	Links     []string          `json:"links,omitempty"`    // absolute URLs, populated only when save_links is set
	HTML      string            `json:"html,omitempty"`     // raw markup, retained only when save_html is set
	Depth     int               `json:"depth"`
	FetchedAt time.Time         `json:"fetched_at"`
	Error     string            `json:"error,omitempty"`
}

// CrawlRunResult aggregates all PageResults for one seed, in fetch order.
type CrawlRunResult struct {
	Seed       string       `json:"seed"`
	Pages      []PageResult `json:"pages"`
	Successes  int          `json:"successes"`
	Failures   int          `json:"failures"`
	Status     RunStatus    `json:"status"`
	Truncated  bool         `json:"truncated,omitempty"` // run-level timeout expired before the frontier drained
	Error      string       `json:"error,omitempty"`     // input-error description (malformed seed, bad bounds)
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

// BatchResult aggregates one CrawlRunResult per seed, preserving the input
// order of the seeds regardless of completion order.
type BatchResult struct {
	Runs      []CrawlRunResult `json:"runs"`
	Succeeded int              `json:"succeeded"` // runs that fetched at least one page
	Failed    int              `json:"failed"`    // runs with status "failed"
	StartedAt time.Time        `json:"started_at"`
	Duration  time.Duration    `json:"duration"`
}
