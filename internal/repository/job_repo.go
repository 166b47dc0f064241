package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/spacetraveling/internal/database"
	"github.com/spacetraveling/internal/models"
)

const jobColumns = `id, trigger, status, idempotency_key, pages_total, pages_built,
	pages_failed, duration_ms, created_at, started_at, completed_at`

// jobRepo is the postgres implementation of JobRepository
type jobRepo struct {
	db *database.DB
}

// NewJobRepo creates a new build job repository
func NewJobRepo(db *database.DB) JobRepository {
	return &jobRepo{db: db}
}

// Create inserts a new build job
func (r *jobRepo) Create(ctx context.Context, job *models.BuildJob) error {
	query := `
		INSERT INTO build_jobs (id, trigger, status, idempotency_key, pages_total,
			pages_built, pages_failed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		job.ID, job.Trigger, job.Status, nullString(job.IdempotencyKey),
		job.PagesTotal, job.PagesBuilt, job.PagesFailed, job.CreatedAt,
	)
	return err
}

// Update writes the job status and page counters
func (r *jobRepo) Update(ctx context.Context, job *models.BuildJob) error {
	query := `
		UPDATE build_jobs SET
			status = $1, pages_total = $2, pages_built = $3, pages_failed = $4,
			duration_ms = $5, started_at = $6, completed_at = $7
		WHERE id = $8
	`
	_, err := r.db.ExecContext(ctx, query,
		job.Status, job.PagesTotal, job.PagesBuilt, job.PagesFailed,
		job.DurationMs, job.StartedAt, job.CompletedAt, job.ID,
	)
	return err
}

// GetByID retrieves a build job by ID. Ids that are not uuids match nothing.
func (r *jobRepo) GetByID(ctx context.Context, id string) (*models.BuildJob, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM build_jobs WHERE id = $1`, id)
	return scanJob(row)
}

// GetByIdempotencyKey retrieves a build job by idempotency key
func (r *jobRepo) GetByIdempotencyKey(ctx context.Context, key string) (*models.BuildJob, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM build_jobs WHERE idempotency_key = $1`, key)
	return scanJob(row)
}

// GetPendingJobs retrieves pending jobs oldest first
func (r *jobRepo) GetPendingJobs(ctx context.Context) ([]*models.BuildJob, error) {
	query := `
		SELECT id, trigger, created_at
		FROM build_jobs WHERE status = 'pending'
		ORDER BY created_at
		FOR UPDATE SKIP LOCKED
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.BuildJob
	for rows.Next() {
		var job models.BuildJob
		if err := rows.Scan(&job.ID, &job.Trigger, &job.CreatedAt); err != nil {
			continue
		}
		job.Status = models.JobStatusPending
		jobs = append(jobs, &job)
	}

	return jobs, rows.Err()
}

// MarkJobAsProcessing atomically claims a pending job
func (r *jobRepo) MarkJobAsProcessing(ctx context.Context, jobID string) (bool, error) {
	query := `
		UPDATE build_jobs SET status = 'processing', started_at = $1
		WHERE id = $2 AND status = 'pending'
	`
	result, err := r.db.ExecContext(ctx, query, time.Now(), jobID)
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// AddErrors records failed routes using the COPY protocol
func (r *jobRepo) AddErrors(ctx context.Context, jobID string, buildErrors []models.BuildError) error {
	if len(buildErrors) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("build_errors", "job_id", "route", "message"))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range buildErrors {
		if _, err := stmt.ExecContext(ctx, jobID, e.Route, e.Message); err != nil {
			return err
		}
	}

	// Flush the COPY buffer
	if _, err := stmt.ExecContext(ctx); err != nil {
		return err
	}

	return tx.Commit()
}

// GetErrors retrieves the failed routes of a job in insertion order
func (r *jobRepo) GetErrors(ctx context.Context, jobID string, limit int) ([]models.BuildError, error) {
	if _, err := uuid.Parse(jobID); err != nil {
		return nil, nil
	}
	query := `SELECT route, message FROM build_errors WHERE job_id = $1 ORDER BY id`
	args := []interface{}{jobID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.BuildError
	for rows.Next() {
		var e models.BuildError
		if err := rows.Scan(&e.Route, &e.Message); err != nil {
			continue
		}
		out = append(out, e)
	}

	return out, rows.Err()
}

// CountByStatus returns the number of jobs per status
func (r *jobRepo) CountByStatus(ctx context.Context) (map[models.JobStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM build_jobs GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.JobStatus]int)
	for rows.Next() {
		var status models.JobStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func scanJob(row *sql.Row) (*models.BuildJob, error) {
	var job models.BuildJob
	var idempotencyKey sql.NullString
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&job.ID, &job.Trigger, &job.Status, &idempotencyKey, &job.PagesTotal,
		&job.PagesBuilt, &job.PagesFailed, &job.DurationMs, &job.CreatedAt,
		&startedAt, &completedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	job.IdempotencyKey = idempotencyKey.String
	if startedAt.Valid {
		job.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	return &job, nil
}
