package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spacetraveling/internal/blog"
	"github.com/spacetraveling/internal/config"
	"github.com/spacetraveling/internal/content"
	"github.com/spacetraveling/internal/models"
	"github.com/spacetraveling/internal/render"
	"github.com/spacetraveling/internal/repository"
	"github.com/spacetraveling/internal/validation"
	"golang.org/x/sync/singleflight"
)

// allPageSize is the largest page the content service hands out
const allPageSize = 100

const htmlContentType = "text/html; charset=utf-8"

type articleService struct {
	client     content.Client
	normalizer *blog.Normalizer
	pages      repository.PageRepository
	renderer   *render.Renderer
	cfg        *config.ContentConfig
	log        zerolog.Logger

	generating singleflight.Group
}

// NewArticleService creates the detail flow over client
func NewArticleService(client content.Client, v *validation.Validator, pages repository.PageRepository, renderer *render.Renderer, cfg *config.ContentConfig, log zerolog.Logger) ArticleService {
	return &articleService{
		client:     client,
		normalizer: blog.NewNormalizer(v),
		pages:      pages,
		renderer:   renderer,
		cfg:        cfg,
		log:        log.With().Str("service", "article").Logger(),
	}
}

// All lists every document of the type in service order
func (s *articleService) All(ctx context.Context) ([]models.ArticleSummary, error) {
	resp, err := s.client.Query(ctx,
		[]content.Predicate{content.At("document.type", s.cfg.DocumentType)},
		content.QueryOptions{PageSize: allPageSize},
	)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", s.cfg.DocumentType, err)
	}

	var all []models.ArticleSummary
	seen := make(map[string]bool)
	for {
		posts, err := s.normalizer.Summaries(resp.Results)
		if err != nil {
			return nil, err
		}
		for _, p := range posts {
			if !seen[p.UID] {
				seen[p.UID] = true
				all = append(all, p)
			}
		}

		next := resp.Next()
		if next == "" {
			return all, nil
		}
		if resp, err = s.client.FetchPage(ctx, next); err != nil {
			return nil, fmt.Errorf("following %s: %w", next, err)
		}
	}
}

// StaticPaths returns the uids pre-rendered at build time
func (s *articleService) StaticPaths(ctx context.Context) ([]string, error) {
	if s.cfg.PrebuildCount == 0 {
		all, err := s.All(ctx)
		if err != nil {
			return nil, err
		}
		uids := make([]string, len(all))
		for i, p := range all {
			uids[i] = p.UID
		}
		return uids, nil
	}

	resp, err := s.client.Query(ctx,
		[]content.Predicate{content.At("document.type", s.cfg.DocumentType)},
		content.QueryOptions{PageSize: s.cfg.PrebuildCount},
	)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", s.cfg.DocumentType, err)
	}

	posts, err := s.normalizer.Summaries(resp.Results)
	if err != nil {
		return nil, err
	}

	uids := make([]string, 0, s.cfg.PrebuildCount)
	for _, p := range posts {
		if len(uids) == s.cfg.PrebuildCount {
			break
		}
		uids = append(uids, p.UID)
	}
	return uids, nil
}

// Get fetches and normalizes one post. Unknown uids wrap content.ErrNotFound.
func (s *articleService) Get(ctx context.Context, uid string) (models.ArticleDetail, error) {
	rec, err := s.client.GetByUID(ctx, s.cfg.DocumentType, uid, content.QueryOptions{})
	if err != nil {
		return models.ArticleDetail{}, fmt.Errorf("getting %s: %w", uid, err)
	}
	return s.normalizer.Detail(rec)
}

// Resolve never returns a Loading state
func (s *articleService) Resolve(ctx context.Context, uid string) models.PostState {
	if !validation.ValidUID(uid) {
		return models.NotFound(uid)
	}

	article, err := s.Get(ctx, uid)
	switch {
	case err == nil:
		return models.Ready(article)
	case errors.Is(err, content.ErrNotFound):
		return models.NotFound(uid)
	default:
		s.log.Error().Err(err).Str("uid", uid).Msg("Failed to resolve post")
		return models.Failed(uid, err.Error())
	}
}

// Generate resolves uid once for all concurrent callers and stores the
// rendered page when the post exists. The shared work outlives the request
// that started it and is bounded by the content timeout instead.
func (s *articleService) Generate(ctx context.Context, uid string) models.PostState {
	v, _, _ := s.generating.Do(uid, func() (interface{}, error) {
		ctx := context.WithoutCancel(ctx)
		if s.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
			defer cancel()
		}

		state := s.Resolve(ctx, uid)
		if state.Kind != models.PostReady {
			return state, nil
		}

		body, err := s.renderer.PostBytes(state)
		if err != nil {
			s.log.Error().Err(err).Str("uid", uid).Msg("Failed to render generated post")
			return state, nil
		}

		page := &models.Page{
			Path:        models.PostPath(uid),
			Kind:        models.PageKindPost,
			UID:         uid,
			ContentType: htmlContentType,
			Body:        body,
			BuiltAt:     time.Now(),
		}
		if err := s.pages.Save(ctx, page); err != nil {
			s.log.Error().Err(err).Str("uid", uid).Msg("Failed to store generated post")
		} else {
			s.log.Info().Str("uid", uid).Msg("Generated post on demand")
		}
		return state, nil
	})
	return v.(models.PostState)
}
