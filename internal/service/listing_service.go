package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spacetraveling/internal/blog"
	"github.com/spacetraveling/internal/config"
	"github.com/spacetraveling/internal/content"
	"github.com/spacetraveling/internal/models"
	"github.com/spacetraveling/internal/validation"
)

type listingService struct {
	client     content.Client
	validator  *validation.Validator
	normalizer *blog.Normalizer
	cfg        *config.ContentConfig
	log        zerolog.Logger
}

// NewListingService creates the listing flow over client
func NewListingService(client content.Client, v *validation.Validator, cfg *config.ContentConfig, log zerolog.Logger) ListingService {
	return &listingService{
		client:     client,
		validator:  v,
		normalizer: blog.NewNormalizer(v),
		cfg:        cfg,
		log:        log.With().Str("service", "listing").Logger(),
	}
}

// FirstPage queries the first page of documents of the configured type
func (s *listingService) FirstPage(ctx context.Context) (models.PaginationState, error) {
	resp, err := s.client.Query(ctx,
		[]content.Predicate{content.At("document.type", s.cfg.DocumentType)},
		content.QueryOptions{PageSize: s.cfg.PageSize},
	)
	if err != nil {
		return models.PaginationState{}, fmt.Errorf("querying %s: %w", s.cfg.DocumentType, err)
	}

	posts, err := s.normalizer.Summaries(resp.Results)
	if err != nil {
		return models.PaginationState{}, fmt.Errorf("first page: %w", err)
	}

	return blog.Initial(posts, resp.Next()), nil
}

// LoadMore fetches exactly state.NextPage and appends its posts. On error
// the returned state is the unchanged input.
func (s *listingService) LoadMore(ctx context.Context, state models.PaginationState) (models.PaginationState, error) {
	if !state.HasMore() {
		return state, blog.ErrExhausted
	}

	cursor := state.NextPage
	if err := s.validator.ValidateCursor(cursor); err != nil {
		return state, err
	}
	if blog.Stale(state) {
		s.log.Debug().Str("cursor", cursor).Int("listed", len(state.Posts)).Msg("Rejected stale cursor")
		return state, blog.ErrStaleCursor
	}

	resp, err := s.client.FetchPage(ctx, cursor)
	if err != nil {
		return state, fmt.Errorf("fetching next page: %w", err)
	}

	posts, err := s.normalizer.Summaries(resp.Results)
	if err != nil {
		return state, fmt.Errorf("next page: %w", err)
	}

	next, err := blog.Append(state, blog.Page{Cursor: cursor, Posts: posts, NextPage: resp.Next()})
	if err != nil {
		return state, err
	}

	s.log.Debug().
		Int("added", len(next.Posts)-len(state.Posts)).
		Strs("listed", next.UIDs()).
		Bool("has_more", next.HasMore()).
		Msg("Loaded next page")

	return next, nil
}
