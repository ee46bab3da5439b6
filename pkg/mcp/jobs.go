package mcp

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the current state of a batch generation job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Job represents a background batch generation over a set of documents
type Job struct {
	ID              string    `json:"id"`
	Scope           string    `json:"scope"` // Document set the job covers, one running job per scope
	Status          JobStatus `json:"status"`
	StartedAt       time.Time `json:"started_at"`
	CompletedAt     time.Time `json:"completed_at,omitempty"`
	DocumentsTotal  int       `json:"documents_total"`
	DocumentsOK     int       `json:"documents_ok"`
	DocumentsFailed int       `json:"documents_failed"`
	Headings        int       `json:"headings"`
	ErrorMessage    string    `json:"error_message,omitempty"`

	// Internal fields
	ctx    context.Context
	cancel context.CancelFunc
}

func (j *Job) active() bool {
	return j.Status == JobStatusPending || j.Status == JobStatusRunning
}

// JobManager manages background generation jobs
type JobManager struct {
	jobs    map[string]*Job
	mu      sync.RWMutex
	byScope map[string]string // scope -> jobID for running jobs
}

// NewJobManager creates a new job manager
func NewJobManager() *JobManager {
	return &JobManager{
		jobs:    make(map[string]*Job),
		byScope: make(map[string]string),
	}
}

// CreateJob creates a job for scope, or returns the job already running for it
func (m *JobManager) CreateJob(scope string, total int) *Job {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existingJobID, exists := m.byScope[scope]; exists {
		if existing := m.jobs[existingJobID]; existing != nil && existing.active() {
			return existing
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	job := &Job{
		ID:             uuid.New().String(),
		Scope:          scope,
		Status:         JobStatusPending,
		StartedAt:      time.Now(),
		DocumentsTotal: total,
		ctx:            ctx,
		cancel:         cancel,
	}

	m.jobs[job.ID] = job
	m.byScope[scope] = job.ID
	return job
}

// GetJob returns a snapshot of a job by ID, or nil
func (m *JobManager) GetJob(jobID string) *Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return nil
	}
	snapshot := *job
	return &snapshot
}

// GetJobByScope returns a snapshot of the latest running job for a scope, or nil
func (m *JobManager) GetJobByScope(scope string) *Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if jobID, exists := m.byScope[scope]; exists {
		if job := m.jobs[jobID]; job != nil {
			snapshot := *job
			return &snapshot
		}
	}
	return nil
}

// IsRunning checks if a job is currently running for a scope
func (m *JobManager) IsRunning(scope string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if jobID, exists := m.byScope[scope]; exists {
		job := m.jobs[jobID]
		return job != nil && job.active()
	}
	return false
}

// UpdateStatus updates the status of a job. Terminal jobs are left unchanged.
func (m *JobManager) UpdateStatus(jobID string, status JobStatus, errorMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists || !job.active() {
		return
	}
	job.Status = status
	if !job.active() {
		job.CompletedAt = time.Now()
		delete(m.byScope, job.Scope)
		job.cancel()
	}
	if errorMsg != "" {
		job.ErrorMessage = errorMsg
	}
}

// UpdateProgress records per-document outcome counters of a job
func (m *JobManager) UpdateProgress(jobID string, ok, failed, headings int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if job, exists := m.jobs[jobID]; exists {
		job.DocumentsOK = ok
		job.DocumentsFailed = failed
		job.Headings = headings
	}
}

// CancelJob cancels a running job
func (m *JobManager) CancelJob(jobID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if job, exists := m.jobs[jobID]; exists && job.active() {
		job.cancel()
		job.Status = JobStatusCancelled
		job.CompletedAt = time.Now()
		delete(m.byScope, job.Scope)
		return true
	}
	return false
}

// CancelAll cancels all running jobs
func (m *JobManager) CancelAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, job := range m.jobs {
		if job.active() {
			job.cancel()
			job.Status = JobStatusCancelled
			job.CompletedAt = time.Now()
		}
	}
	m.byScope = make(map[string]string)
}

// ListJobs returns snapshots of all jobs
func (m *JobManager) ListJobs() []*Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		snapshot := *job
		jobs = append(jobs, &snapshot)
	}
	return jobs
}

// GetContext returns the context a job runs under
func (m *JobManager) GetContext(jobID string) context.Context {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if job, exists := m.jobs[jobID]; exists {
		return job.ctx
	}
	return context.Background()
}
