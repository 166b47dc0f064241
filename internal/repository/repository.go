package repository

import (
	"context"

	"github.com/spacetraveling/internal/database"
	"github.com/spacetraveling/internal/models"
)

// PageRepository stores rendered pages keyed by route
type PageRepository interface {
	// Get returns nil, nil when no page is stored at path
	Get(ctx context.Context, path string) (*models.Page, error)
	Save(ctx context.Context, page *models.Page) error
	ListPaths(ctx context.Context) ([]string, error)
	CountByKind(ctx context.Context) (map[models.PageKind]int, error)
	// DeleteStale removes the post pages not written by buildID, including
	// those generated on demand, and returns how many were removed
	DeleteStale(ctx context.Context, buildID string) (int, error)
}

// JobRepository defines the interface for build job persistence
type JobRepository interface {
	Create(ctx context.Context, job *models.BuildJob) error
	Update(ctx context.Context, job *models.BuildJob) error
	GetByID(ctx context.Context, id string) (*models.BuildJob, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*models.BuildJob, error)
	GetPendingJobs(ctx context.Context) ([]*models.BuildJob, error)
	MarkJobAsProcessing(ctx context.Context, jobID string) (bool, error)
	AddErrors(ctx context.Context, jobID string, errors []models.BuildError) error
	GetErrors(ctx context.Context, jobID string, limit int) ([]models.BuildError, error)
	CountByStatus(ctx context.Context) (map[models.JobStatus]int, error)
}

// Repositories holds all repository interfaces
type Repositories struct {
	Page PageRepository
	Job  JobRepository
}

// New creates the postgres-backed repositories
func New(db *database.DB) *Repositories {
	return &Repositories{
		Page: NewPageRepo(db),
		Job:  NewJobRepo(db),
	}
}
