package models

import (
	"time"
)

// JobStatus represents the status of a build job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// BuildTrigger records what asked for a build
type BuildTrigger string

const (
	TriggerStartup BuildTrigger = "startup"
	TriggerWebhook BuildTrigger = "webhook"
	TriggerCLI     BuildTrigger = "cli"
)

// BuildJob represents one pre-render run of the site
type BuildJob struct {
	ID             string       `json:"job_id" db:"id"`
	Trigger        BuildTrigger `json:"trigger" db:"trigger"`
	Status         JobStatus    `json:"status" db:"status"`
	IdempotencyKey string       `json:"idempotency_key,omitempty" db:"idempotency_key"`
	PagesTotal     int          `json:"pages_total" db:"pages_total"`
	PagesBuilt     int          `json:"pages_built" db:"pages_built"`
	PagesFailed    int          `json:"pages_failed" db:"pages_failed"`
	DurationMs     int64        `json:"duration_ms,omitempty" db:"duration_ms"`
	CreatedAt      time.Time    `json:"created_at" db:"created_at"`
	StartedAt      *time.Time   `json:"started_at,omitempty" db:"started_at"`
	CompletedAt    *time.Time   `json:"completed_at,omitempty" db:"completed_at"`
}

// BuildError is a route that could not be rendered during a build
type BuildError struct {
	Route   string `json:"route"`
	Message string `json:"message"`
}

// BuildReport summarises the outcome of SiteBuilder.Build
type BuildReport struct {
	PagesTotal   int           `json:"pages_total"`
	PagesBuilt   int           `json:"pages_built"`
	PagesFailed  int           `json:"pages_failed"`
	PagesRemoved int           `json:"pages_removed"`
	Errors       []BuildError  `json:"errors,omitempty"`
	Duration     time.Duration `json:"-"`
}

// JobResponse is the API response for build status
type JobResponse struct {
	BuildJob
	Errors      []BuildError `json:"errors,omitempty"`
	ErrorCount  int          `json:"error_count,omitempty"`
	ErrorReport string       `json:"error_report_url,omitempty"`
}

// BuildRequest represents a rebuild request, typically a CMS webhook
type BuildRequest struct {
	Secret         string       `json:"secret,omitempty"`
	Type           string       `json:"type,omitempty"`
	Trigger        BuildTrigger `json:"-"`
	IdempotencyKey string       `json:"-"`
}
