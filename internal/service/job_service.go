package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spacetraveling/internal/config"
	"github.com/spacetraveling/internal/content"
	"github.com/spacetraveling/internal/models"
	"github.com/spacetraveling/internal/repository"
)

// jobService runs queued builds on a bounded worker pool
type jobService struct {
	jobRepo     repository.JobRepository
	builder     SiteBuilder
	invalidator content.Invalidator
	interval    time.Duration
	log         zerolog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	running     bool
	mu          sync.Mutex
	// one slot per concurrently running build
	sem chan struct{}
}

// NewJobService creates the build job processor. invalidator may be nil.
func NewJobService(jobRepo repository.JobRepository, builder SiteBuilder, invalidator content.Invalidator, cfg *config.BuildConfig, log zerolog.Logger) JobService {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	log.Info().Int("max_workers", workers).Msg("Initializing build worker pool")

	return &jobService{
		jobRepo:     jobRepo,
		builder:     builder,
		invalidator: invalidator,
		interval:    interval,
		log:         log.With().Str("service", "job").Logger(),
		sem:         make(chan struct{}, workers),
	}
}

// CreateBuild queues a build. A request carrying an idempotency key already
// seen returns the job created for it.
func (s *jobService) CreateBuild(ctx context.Context, req *models.BuildRequest) (*models.BuildJob, error) {
	if req.IdempotencyKey != "" {
		existing, err := s.jobRepo.GetByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	trigger := req.Trigger
	if trigger == "" {
		trigger = models.TriggerWebhook
	}

	job := &models.BuildJob{
		ID:             uuid.New().String(),
		Trigger:        trigger,
		Status:         models.JobStatusPending,
		IdempotencyKey: req.IdempotencyKey,
		CreatedAt:      time.Now(),
	}
	if err := s.jobRepo.Create(ctx, job); err != nil {
		return nil, err
	}

	s.log.Info().Str("job_id", job.ID).Str("trigger", string(trigger)).Msg("Build queued")
	return job, nil
}

// StartProcessor polls for pending builds until ctx is done or
// StopProcessor is called
func (s *jobService) StartProcessor(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.log.Info().Dur("interval", s.interval).Msg("Job processor started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.processPendingJobs()
	for {
		select {
		case <-s.ctx.Done():
			s.log.Info().Msg("Job processor stopping")
			return
		case <-ticker.C:
			s.processPendingJobs()
		}
	}
}

// StopProcessor cancels running builds and waits for them to return
func (s *jobService) StopProcessor() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.cancel()
	s.wg.Wait()
	s.running = false
	s.log.Info().Msg("Job processor stopped")
}

func (s *jobService) processPendingJobs() {
	jobs, err := s.jobRepo.GetPendingJobs(s.ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to get pending jobs")
		return
	}

	for _, job := range jobs {
		// blocks while every worker is busy
		select {
		case s.sem <- struct{}{}:
		case <-s.ctx.Done():
			return
		}

		marked, err := s.jobRepo.MarkJobAsProcessing(s.ctx, job.ID)
		if err != nil || !marked {
			<-s.sem
			continue
		}

		s.wg.Add(1)
		go func(j *models.BuildJob) {
			defer s.wg.Done()
			defer func() { <-s.sem }()

			defer func() {
				if r := recover(); r != nil {
					s.log.Error().
						Interface("panic", r).
						Str("job_id", j.ID).
						Msg("Build panicked - recovered")
					started := time.Now()
					if j.StartedAt != nil {
						started = *j.StartedAt
					}
					s.finish(j, models.JobStatusFailed, started)
				}
			}()
			s.processJob(j)
		}(job)
	}
}

func (s *jobService) processJob(job *models.BuildJob) {
	select {
	case <-s.ctx.Done():
		s.log.Warn().Str("job_id", job.ID).Msg("Build cancelled due to shutdown, requeueing")
		s.requeue(job)
		return
	default:
	}

	started := time.Now()
	job.Status = models.JobStatusProcessing
	job.StartedAt = &started

	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(s.ctx); err != nil {
			s.log.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to invalidate content cache")
		}
	}

	s.log.Info().Str("job_id", job.ID).Str("trigger", string(job.Trigger)).Msg("Processing build")

	report, err := s.builder.Build(s.ctx, job.ID)

	job.PagesTotal = report.PagesTotal
	job.PagesBuilt = report.PagesBuilt
	job.PagesFailed = report.PagesFailed

	buildErrors := report.Errors
	status := models.JobStatusCompleted
	if err != nil {
		status = models.JobStatusFailed
		s.log.Error().Err(err).Str("job_id", job.ID).Msg("Build failed")
		if len(buildErrors) == 0 {
			buildErrors = []models.BuildError{{Route: "*", Message: err.Error()}}
		}
	}

	if err := s.jobRepo.AddErrors(s.ctx, job.ID, buildErrors); err != nil {
		s.log.Error().Err(err).Str("job_id", job.ID).Msg("Failed to record build errors")
	}

	s.finish(job, status, started)
}

// requeue puts a claimed job back so the next processor picks it up
func (s *jobService) requeue(job *models.BuildJob) {
	job.Status = models.JobStatusPending
	job.StartedAt = nil
	if err := s.jobRepo.Update(context.Background(), job); err != nil {
		s.log.Error().Err(err).Str("job_id", job.ID).Msg("Failed to requeue job")
	}
}

func (s *jobService) finish(job *models.BuildJob, status models.JobStatus, started time.Time) {
	now := time.Now()
	job.Status = status
	job.CompletedAt = &now
	job.DurationMs = now.Sub(started).Milliseconds()

	// the processor context may already be cancelled
	if err := s.jobRepo.Update(context.Background(), job); err != nil {
		s.log.Error().Err(err).Str("job_id", job.ID).Msg("Failed to update job")
	}
}

// GetJob retrieves a build job with its first errors
func (s *jobService) GetJob(ctx context.Context, id string) (*models.JobResponse, error) {
	job, err := s.jobRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, nil
	}

	errs, err := s.jobRepo.GetErrors(ctx, id, 100)
	if err != nil {
		s.log.Error().Err(err).Str("job_id", id).Msg("Failed to get job errors")
	}

	response := &models.JobResponse{
		BuildJob:   *job,
		Errors:     errs,
		ErrorCount: len(errs),
	}
	if len(errs) > 0 {
		response.ErrorReport = "/v1/builds/" + job.ID + "/errors"
	}

	return response, nil
}

// GetJobByIdempotencyKey retrieves a build job by idempotency key
func (s *jobService) GetJobByIdempotencyKey(ctx context.Context, key string) (*models.BuildJob, error) {
	return s.jobRepo.GetByIdempotencyKey(ctx, key)
}

// GetJobErrors retrieves every recorded error of a build
func (s *jobService) GetJobErrors(ctx context.Context, id string) ([]models.BuildError, error) {
	return s.jobRepo.GetErrors(ctx, id, 0)
}

// Counts returns the number of builds per status
func (s *jobService) Counts(ctx context.Context) (map[models.JobStatus]int, error) {
	return s.jobRepo.CountByStatus(ctx)
}
