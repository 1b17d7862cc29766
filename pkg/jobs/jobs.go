package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"site-analyzer/pkg/models"
)

// Status represents the current state of a background crawl job
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Kind distinguishes single-seed jobs from batch jobs
type Kind string

const (
	KindCrawl Kind = "crawl"
	KindBatch Kind = "batch"
)

// Job is a snapshot of one background job. The orchestrator itself stays
// synchronous and handle-free; jobs wrap it with an ID a caller can poll.
// Request/Result are set for crawl jobs, BatchRequests/BatchResult for
// batch jobs.
type Job struct {
	ID            string                 `json:"id"`
	Kind          Kind                   `json:"kind"`
	Request       *models.CrawlRequest   `json:"request,omitempty"`
	BatchRequests []models.CrawlRequest  `json:"batch_requests,omitempty"`
	Status        Status                 `json:"status"`
	SubmittedAt   time.Time              `json:"submitted_at"`
	CompletedAt   time.Time              `json:"completed_at,omitempty"`
	Result        *models.CrawlRunResult `json:"result,omitempty"`
	BatchResult   *models.BatchResult    `json:"batch_result,omitempty"`
	Error         string                 `json:"error,omitempty"`
}

// Runner is the single-crawl entry point a Manager drives. Satisfied by
// crawl.Orchestrator.
type Runner interface {
	RunCrawl(ctx context.Context, req models.CrawlRequest) (models.CrawlRunResult, error)
}

// BatchRunner is the batch entry point. Satisfied by crawl.Coordinator.
type BatchRunner interface {
	RunBatch(ctx context.Context, reqs []models.CrawlRequest) models.BatchResult
}

// Manager runs submitted crawl and batch requests in the background and
// tracks them by ID.
type Manager struct {
	runner Runner
	batch  BatchRunner
	log    *logrus.Entry

	mu      sync.RWMutex
	jobs    map[string]*Job
	cancels map[string]context.CancelFunc
}

// NewManager creates a job manager driving the given runners.
func NewManager(runner Runner, batch BatchRunner, log *logrus.Entry) *Manager {
	return &Manager{
		runner:  runner,
		batch:   batch,
		log:     log,
		jobs:    make(map[string]*Job),
		cancels: make(map[string]context.CancelFunc),
	}
}

// Submit starts a crawl in the background and returns its job handle
// immediately.
func (m *Manager) Submit(req models.CrawlRequest) *Job {
	job := &Job{
		ID:          uuid.NewString(),
		Kind:        KindCrawl,
		Request:     &req,
		Status:      StatusPending,
		SubmittedAt: time.Now(),
	}
	ctx := m.register(job)

	jobLog := m.log.WithFields(logrus.Fields{"job_id": job.ID, "seed": req.URL})
	jobLog.Info("Job submitted")

	go m.execute(ctx, job.ID, req, jobLog)

	snapshot := *job
	return &snapshot
}

// SubmitBatch starts a multi-seed batch in the background and returns its
// job handle immediately.
func (m *Manager) SubmitBatch(reqs []models.CrawlRequest) *Job {
	job := &Job{
		ID:            uuid.NewString(),
		Kind:          KindBatch,
		BatchRequests: reqs,
		Status:        StatusPending,
		SubmittedAt:   time.Now(),
	}
	ctx := m.register(job)

	jobLog := m.log.WithFields(logrus.Fields{"job_id": job.ID, "seeds": len(reqs)})
	jobLog.Info("Batch job submitted")

	go m.executeBatch(ctx, job.ID, reqs, jobLog)

	snapshot := *job
	return &snapshot
}

// register stores the job and its cancel func, returning the job's context.
func (m *Manager) register(job *Job) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	m.jobs[job.ID] = job
	m.cancels[job.ID] = cancel
	m.mu.Unlock()
	return ctx
}

// execute runs the crawl and records the outcome on the job.
func (m *Manager) execute(ctx context.Context, jobID string, req models.CrawlRequest, jobLog *logrus.Entry) {
	m.setStatus(jobID, StatusRunning, "", nil, nil)

	result, err := m.runner.RunCrawl(ctx, req)
	switch {
	case ctx.Err() != nil:
		jobLog.Warn("Job cancelled")
		m.setStatus(jobID, StatusCancelled, fmt.Sprintf("cancelled: %v", ctx.Err()), nil, nil)
	case err != nil:
		jobLog.Warnf("Job rejected: %v", err)
		m.setStatus(jobID, StatusFailed, err.Error(), nil, nil)
	default:
		jobLog.WithField("status", result.Status).Info("Job finished")
		m.setStatus(jobID, StatusCompleted, "", &result, nil)
	}

	m.release(jobID)
}

// executeBatch runs the batch and records the outcome on the job. A batch
// run never returns an error; per-seed failures live inside the result.
func (m *Manager) executeBatch(ctx context.Context, jobID string, reqs []models.CrawlRequest, jobLog *logrus.Entry) {
	m.setStatus(jobID, StatusRunning, "", nil, nil)

	result := m.batch.RunBatch(ctx, reqs)
	if ctx.Err() != nil {
		jobLog.Warn("Batch job cancelled")
		m.setStatus(jobID, StatusCancelled, fmt.Sprintf("cancelled: %v", ctx.Err()), nil, nil)
	} else {
		jobLog.WithFields(logrus.Fields{
			"succeeded": result.Succeeded,
			"failed":    result.Failed,
		}).Info("Batch job finished")
		m.setStatus(jobID, StatusCompleted, "", nil, &result)
	}

	m.release(jobID)
}

// release drops the job's cancel func once it has reached a terminal state.
func (m *Manager) release(jobID string) {
	m.mu.Lock()
	if cancel, ok := m.cancels[jobID]; ok {
		cancel()
		delete(m.cancels, jobID)
	}
	m.mu.Unlock()
}

// setStatus updates one job's terminal fields under the lock.
func (m *Manager) setStatus(jobID string, status Status, errMsg string, result *models.CrawlRunResult, batch *models.BatchResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return
	}
	job.Status = status
	job.Error = errMsg
	job.Result = result
	job.BatchResult = batch
	if status == StatusCompleted || status == StatusFailed || status == StatusCancelled {
		job.CompletedAt = time.Now()
	}
}

// Get returns a snapshot of a job by ID.
func (m *Manager) Get(jobID string) (*Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, false
	}
	snapshot := *job
	return &snapshot, true
}

// List returns snapshots of all known jobs, in no particular order.
func (m *Manager) List() []*Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		snapshot := *job
		out = append(out, &snapshot)
	}
	return out
}

// Cancel requests cancellation of a running job. Returns false if the job
// is unknown or already finished.
func (m *Manager) Cancel(jobID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok || job.Status == StatusCompleted || job.Status == StatusFailed || job.Status == StatusCancelled {
		return false
	}
	cancel, ok := m.cancels[jobID]
	if !ok {
		return false
	}
	cancel()
	return true
}
