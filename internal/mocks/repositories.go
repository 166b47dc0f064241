package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/spacetraveling/internal/models"
	"github.com/spacetraveling/internal/repository"
)

// MockPageRepository is an in-memory PageRepository
type MockPageRepository struct {
	mu          sync.Mutex
	Pages       map[string]*models.Page
	SaveError   error
	GetError    error
	DeleteError error
	SaveCalls   int
}

var _ repository.PageRepository = (*MockPageRepository)(nil)

func NewMockPageRepository() *MockPageRepository {
	return &MockPageRepository{Pages: make(map[string]*models.Page)}
}

func (m *MockPageRepository) Get(ctx context.Context, path string) (*models.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	page, ok := m.Pages[path]
	if !ok {
		return nil, nil
	}
	cp := *page
	return &cp, nil
}

func (m *MockPageRepository) Save(ctx context.Context, page *models.Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++
	if m.SaveError != nil {
		return m.SaveError
	}
	if prev, ok := m.Pages[page.Path]; ok && prev.Prebuilt && !page.Prebuilt {
		return nil
	}
	cp := *page
	m.Pages[page.Path] = &cp
	return nil
}

func (m *MockPageRepository) ListPaths(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	paths := make([]string, 0, len(m.Pages))
	for p := range m.Pages {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

func (m *MockPageRepository) CountByKind(ctx context.Context) (map[models.PageKind]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	counts := make(map[models.PageKind]int)
	for _, p := range m.Pages {
		counts[p.Kind]++
	}
	return counts, nil
}

func (m *MockPageRepository) DeleteStale(ctx context.Context, buildID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteError != nil {
		return 0, m.DeleteError
	}
	removed := 0
	for path, p := range m.Pages {
		if p.Kind == models.PageKindPost && p.BuildID != buildID {
			delete(m.Pages, path)
			removed++
		}
	}
	return removed, nil
}

// MockJobRepository is an in-memory JobRepository
type MockJobRepository struct {
	mu              sync.Mutex
	Jobs            map[string]*models.BuildJob
	IdempotencyJobs map[string]*models.BuildJob
	Errors          map[string][]models.BuildError
	CreateError     error
	UpdateError     error
	// OnMarkProcessing runs once a job has been claimed
	OnMarkProcessing func(jobID string)
}

var _ repository.JobRepository = (*MockJobRepository)(nil)

func NewMockJobRepository() *MockJobRepository {
	return &MockJobRepository{
		Jobs:            make(map[string]*models.BuildJob),
		IdempotencyJobs: make(map[string]*models.BuildJob),
		Errors:          make(map[string][]models.BuildError),
	}
}

func (m *MockJobRepository) Create(ctx context.Context, job *models.BuildJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateError != nil {
		return m.CreateError
	}
	cp := *job
	m.Jobs[job.ID] = &cp
	if job.IdempotencyKey != "" {
		m.IdempotencyJobs[job.IdempotencyKey] = &cp
	}
	return nil
}

func (m *MockJobRepository) Update(ctx context.Context, job *models.BuildJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateError != nil {
		return m.UpdateError
	}
	cp := *job
	m.Jobs[job.ID] = &cp
	if job.IdempotencyKey != "" {
		m.IdempotencyJobs[job.IdempotencyKey] = &cp
	}
	return nil
}

func (m *MockJobRepository) GetByID(ctx context.Context, id string) (*models.BuildJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.Jobs[id]
	if !ok {
		return nil, nil
	}
	cp := *job
	return &cp, nil
}

func (m *MockJobRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.BuildJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.IdempotencyJobs[key]
	if !ok {
		return nil, nil
	}
	cp := *job
	return &cp, nil
}

func (m *MockJobRepository) GetPendingJobs(ctx context.Context) ([]*models.BuildJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pending []*models.BuildJob
	for _, job := range m.Jobs {
		if job.Status == models.JobStatusPending {
			cp := *job
			pending = append(pending, &cp)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })
	return pending, nil
}

func (m *MockJobRepository) MarkJobAsProcessing(ctx context.Context, jobID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, exists := m.Jobs[jobID]
	if !exists || job.Status != models.JobStatusPending {
		return false, nil
	}
	job.Status = models.JobStatusProcessing
	if m.OnMarkProcessing != nil {
		m.OnMarkProcessing(jobID)
	}
	return true, nil
}

func (m *MockJobRepository) AddErrors(ctx context.Context, jobID string, errors []models.BuildError) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors[jobID] = append(m.Errors[jobID], errors...)
	return nil
}

func (m *MockJobRepository) GetErrors(ctx context.Context, jobID string, limit int) ([]models.BuildError, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	errs := m.Errors[jobID]
	if limit > 0 && len(errs) > limit {
		errs = errs[:limit]
	}
	return append([]models.BuildError(nil), errs...), nil
}

func (m *MockJobRepository) CountByStatus(ctx context.Context) (map[models.JobStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[models.JobStatus]int)
	for _, job := range m.Jobs {
		counts[job.Status]++
	}
	return counts, nil
}

// JobStatus returns the stored status of a job, for polling in tests
func (m *MockJobRepository) JobStatus(id string) models.JobStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.Jobs[id]; ok {
		return job.Status
	}
	return ""
}
