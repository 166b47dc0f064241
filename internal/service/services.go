package service

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spacetraveling/internal/config"
	"github.com/spacetraveling/internal/content"
	"github.com/spacetraveling/internal/models"
	"github.com/spacetraveling/internal/render"
	"github.com/spacetraveling/internal/repository"
	"github.com/spacetraveling/internal/validation"
)

// ListingService drives the home page and its load-more control
type ListingService interface {
	FirstPage(ctx context.Context) (models.PaginationState, error)
	LoadMore(ctx context.Context, state models.PaginationState) (models.PaginationState, error)
}

// ArticleService drives the post pages
type ArticleService interface {
	All(ctx context.Context) ([]models.ArticleSummary, error)
	StaticPaths(ctx context.Context) ([]string, error)
	Get(ctx context.Context, uid string) (models.ArticleDetail, error)
	Resolve(ctx context.Context, uid string) models.PostState
	Generate(ctx context.Context, uid string) models.PostState
}

// SiteBuilder pre-renders the site into the page store
type SiteBuilder interface {
	Build(ctx context.Context, buildID string) (models.BuildReport, error)
}

// PageService reads the page store
type PageService interface {
	Lookup(ctx context.Context, path string) (*models.Page, error)
	Counts(ctx context.Context) (map[models.PageKind]int, error)
}

// JobService defines the interface for build job management
type JobService interface {
	CreateBuild(ctx context.Context, req *models.BuildRequest) (*models.BuildJob, error)
	StartProcessor(ctx context.Context)
	StopProcessor()
	GetJob(ctx context.Context, id string) (*models.JobResponse, error)
	GetJobByIdempotencyKey(ctx context.Context, key string) (*models.BuildJob, error)
	GetJobErrors(ctx context.Context, id string) ([]models.BuildError, error)
	Counts(ctx context.Context) (map[models.JobStatus]int, error)
}

// Services holds all service interfaces
type Services struct {
	Listing ListingService
	Article ArticleService
	Builder SiteBuilder
	Pages   PageService
	Job     JobService
}

// NewServices creates all services. The content cache is invalidated at the
// start of every build when client supports it.
func NewServices(client content.Client, repos *repository.Repositories, renderer *render.Renderer, cfg *config.Config, log zerolog.Logger) *Services {
	validator := validation.NewValidator(cfg.Content.APIEndpoint)

	listing := NewListingService(client, validator, &cfg.Content, log)
	articles := NewArticleService(client, validator, repos.Page, renderer, &cfg.Content, log)
	builder := NewSiteBuilder(listing, articles, repos.Page, renderer, cfg.Build.Workers, log)

	invalidator, _ := client.(content.Invalidator)

	return &Services{
		Listing: listing,
		Article: articles,
		Builder: builder,
		Pages:   NewPageService(repos.Page),
		Job:     NewJobService(repos.Job, builder, invalidator, &cfg.Build, log),
	}
}

type pageService struct {
	pages repository.PageRepository
}

// NewPageService exposes the page store to handlers
func NewPageService(pages repository.PageRepository) PageService {
	return &pageService{pages: pages}
}

func (s *pageService) Lookup(ctx context.Context, path string) (*models.Page, error) {
	return s.pages.Get(ctx, path)
}

func (s *pageService) Counts(ctx context.Context) (map[models.PageKind]int, error) {
	return s.pages.CountByKind(ctx)
}
