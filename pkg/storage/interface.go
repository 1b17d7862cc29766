package storage

import (
	"time"

	"site-analyzer/pkg/models"
)

// RunRecord is the listing view of a persisted crawl run.
type RunRecord struct {
	ID      string           `json:"id"`
	Seed    string           `json:"seed"`
	Status  models.RunStatus `json:"status"`
	Pages   int              `json:"pages"`
	SavedAt time.Time        `json:"saved_at"`
}

// ResultStore persists completed crawl runs for later retrieval.
// The orchestrator never touches it; callers hand finished results in.
type ResultStore interface {
	// SaveRun persists a run result and returns its generated ID
	SaveRun(result *models.CrawlRunResult) (id string, err error)

	// GetRun retrieves a persisted run by ID.
	// Returns ErrRunNotFound if no run with that ID exists
	GetRun(id string) (*models.CrawlRunResult, error)

	// ListRuns returns records for all persisted runs, newest first
	ListRuns() ([]RunRecord, error)

	// Close cleanly closes the underlying database
	Close() error
}
