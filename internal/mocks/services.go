package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/spacetraveling/internal/blog"
	"github.com/spacetraveling/internal/models"
	"github.com/spacetraveling/internal/service"
)

// MockListingService is a mock implementation of ListingService
type MockListingService struct {
	FirstPageFunc func(ctx context.Context) (models.PaginationState, error)
	LoadMoreFunc  func(ctx context.Context, state models.PaginationState) (models.PaginationState, error)
	LoadMoreCalls []models.PaginationState
}

// Verify interface compliance
var _ service.ListingService = (*MockListingService)(nil)

func (m *MockListingService) FirstPage(ctx context.Context) (models.PaginationState, error) {
	if m.FirstPageFunc != nil {
		return m.FirstPageFunc(ctx)
	}
	return models.PaginationState{}, nil
}

func (m *MockListingService) LoadMore(ctx context.Context, state models.PaginationState) (models.PaginationState, error) {
	m.LoadMoreCalls = append(m.LoadMoreCalls, state)
	if m.LoadMoreFunc != nil {
		return m.LoadMoreFunc(ctx, state)
	}
	return state, blog.ErrExhausted
}

// MockArticleService is a mock implementation of ArticleService
type MockArticleService struct {
	mu            sync.Mutex
	States        map[string]models.PostState
	Summaries     []models.ArticleSummary
	Paths         []string
	GenerateCalls []string
}

var _ service.ArticleService = (*MockArticleService)(nil)

func NewMockArticleService() *MockArticleService {
	return &MockArticleService{States: make(map[string]models.PostState)}
}

func (m *MockArticleService) All(ctx context.Context) ([]models.ArticleSummary, error) {
	return m.Summaries, nil
}

func (m *MockArticleService) StaticPaths(ctx context.Context) ([]string, error) {
	return m.Paths, nil
}

func (m *MockArticleService) Get(ctx context.Context, uid string) (models.ArticleDetail, error) {
	state := m.Resolve(ctx, uid)
	if state.Article == nil {
		return models.ArticleDetail{}, blog.ErrInvalidUID
	}
	return *state.Article, nil
}

func (m *MockArticleService) Resolve(ctx context.Context, uid string) models.PostState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state, ok := m.States[uid]; ok {
		return state
	}
	return models.NotFound(uid)
}

func (m *MockArticleService) Generate(ctx context.Context, uid string) models.PostState {
	m.mu.Lock()
	m.GenerateCalls = append(m.GenerateCalls, uid)
	m.mu.Unlock()
	return m.Resolve(ctx, uid)
}

// MockPageService serves pages from a MockPageRepository
type MockPageService struct {
	Repo *MockPageRepository
}

var _ service.PageService = (*MockPageService)(nil)

func NewMockPageService() *MockPageService {
	return &MockPageService{Repo: NewMockPageRepository()}
}

func (m *MockPageService) Lookup(ctx context.Context, path string) (*models.Page, error) {
	return m.Repo.Get(ctx, path)
}

func (m *MockPageService) Counts(ctx context.Context) (map[models.PageKind]int, error) {
	return m.Repo.CountByKind(ctx)
}

// MockJobService is a mock implementation of JobService
type MockJobService struct {
	Jobs            map[string]*models.JobResponse
	IdempotencyJobs map[string]*models.BuildJob
	Errors          map[string][]models.BuildError
	CreateFunc      func(ctx context.Context, req *models.BuildRequest) (*models.BuildJob, error)
	Created         []*models.BuildRequest
}

var _ service.JobService = (*MockJobService)(nil)

func NewMockJobService() *MockJobService {
	return &MockJobService{
		Jobs:            make(map[string]*models.JobResponse),
		IdempotencyJobs: make(map[string]*models.BuildJob),
		Errors:          make(map[string][]models.BuildError),
	}
}

func (m *MockJobService) CreateBuild(ctx context.Context, req *models.BuildRequest) (*models.BuildJob, error) {
	m.Created = append(m.Created, req)
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, req)
	}
	if existing, ok := m.IdempotencyJobs[req.IdempotencyKey]; ok && req.IdempotencyKey != "" {
		return existing, nil
	}
	job := &models.BuildJob{
		ID:             "test-build-id",
		Trigger:        req.Trigger,
		Status:         models.JobStatusPending,
		IdempotencyKey: req.IdempotencyKey,
		CreatedAt:      time.Now(),
	}
	if req.IdempotencyKey != "" {
		m.IdempotencyJobs[req.IdempotencyKey] = job
	}
	m.Jobs[job.ID] = &models.JobResponse{BuildJob: *job}
	return job, nil
}

func (m *MockJobService) StartProcessor(ctx context.Context) {}

func (m *MockJobService) StopProcessor() {}

func (m *MockJobService) GetJob(ctx context.Context, id string) (*models.JobResponse, error) {
	return m.Jobs[id], nil
}

func (m *MockJobService) GetJobByIdempotencyKey(ctx context.Context, key string) (*models.BuildJob, error) {
	return m.IdempotencyJobs[key], nil
}

func (m *MockJobService) GetJobErrors(ctx context.Context, id string) ([]models.BuildError, error) {
	return m.Errors[id], nil
}

func (m *MockJobService) Counts(ctx context.Context) (map[models.JobStatus]int, error) {
	counts := make(map[models.JobStatus]int)
	for _, j := range m.Jobs {
		counts[j.Status]++
	}
	return counts, nil
}
