package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spacetraveling/internal/models"
	"github.com/spacetraveling/internal/render"
	"github.com/spacetraveling/internal/repository"
	"golang.org/x/sync/errgroup"
)

// ErrBuildIncomplete is returned when some post pages could not be built
var ErrBuildIncomplete = errors.New("build incomplete")

type siteBuilder struct {
	listing  ListingService
	articles ArticleService
	pages    repository.PageRepository
	renderer *render.Renderer
	workers  int
	log      zerolog.Logger
	now      func() time.Time
}

// NewSiteBuilder creates a builder rendering posts with up to workers
// concurrent content requests
func NewSiteBuilder(listing ListingService, articles ArticleService, pages repository.PageRepository, renderer *render.Renderer, workers int, log zerolog.Logger) SiteBuilder {
	if workers < 1 {
		workers = 1
	}
	return &siteBuilder{
		listing:  listing,
		articles: articles,
		pages:    pages,
		renderer: renderer,
		workers:  workers,
		log:      log.With().Str("service", "builder").Logger(),
		now:      time.Now,
	}
}

// Build renders the listing, the feed, the static post paths and the client
// script. Listing or feed failures abort the build; a failed post is
// reported and the build returns ErrBuildIncomplete. A complete build drops
// every post page it did not write itself.
func (b *siteBuilder) Build(ctx context.Context, buildID string) (models.BuildReport, error) {
	start := b.now()
	var report models.BuildReport

	state, err := b.listing.FirstPage(ctx)
	if err != nil {
		return report, fmt.Errorf("building listing: %w", err)
	}
	all, err := b.articles.All(ctx)
	if err != nil {
		return report, fmt.Errorf("building feed: %w", err)
	}
	uids, err := b.articles.StaticPaths(ctx)
	if err != nil {
		return report, fmt.Errorf("resolving static paths: %w", err)
	}

	report.PagesTotal = 3 + len(uids)

	home, err := b.renderer.HomeBytes(state)
	if err != nil {
		return report, fmt.Errorf("rendering listing: %w", err)
	}
	if err := b.save(ctx, buildID, models.IndexPath, models.PageKindListing, "", htmlContentType, home); err != nil {
		return report, err
	}
	report.PagesBuilt++

	var feed bytes.Buffer
	if err := b.renderer.Feed(&feed, all, start); err != nil {
		return report, fmt.Errorf("rendering feed: %w", err)
	}
	if err := b.save(ctx, buildID, models.FeedPath, models.PageKindFeed, "", "application/rss+xml; charset=utf-8", feed.Bytes()); err != nil {
		return report, err
	}
	report.PagesBuilt++

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for _, uid := range uids {
		uid := uid
		g.Go(func() error {
			err := b.buildPost(gctx, buildID, uid)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.PagesFailed++
				report.Errors = append(report.Errors, models.BuildError{Route: models.PostPath(uid), Message: err.Error()})
				b.log.Warn().Err(err).Str("uid", uid).Msg("Post page failed")
				return nil
			}
			report.PagesBuilt++
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return report, err
	}

	if err := b.save(ctx, buildID, models.ScriptPath, models.PageKindAsset, "", "application/javascript; charset=utf-8", render.Script()); err != nil {
		return report, err
	}
	report.PagesBuilt++

	// a failed post keeps its page from the previous build
	if report.PagesFailed == 0 {
		removed, err := b.pages.DeleteStale(ctx, buildID)
		if err != nil {
			return report, fmt.Errorf("removing stale pages: %w", err)
		}
		report.PagesRemoved = removed
	}

	sort.Slice(report.Errors, func(i, j int) bool { return report.Errors[i].Route < report.Errors[j].Route })
	report.Duration = b.now().Sub(start)

	b.log.Info().
		Str("build_id", buildID).
		Int("pages_built", report.PagesBuilt).
		Int("pages_failed", report.PagesFailed).
		Int("pages_removed", report.PagesRemoved).
		Dur("duration", report.Duration).
		Msg("Build finished")

	if report.PagesFailed > 0 {
		return report, fmt.Errorf("%w: %d of %d pages failed", ErrBuildIncomplete, report.PagesFailed, report.PagesTotal)
	}
	return report, nil
}

func (b *siteBuilder) buildPost(ctx context.Context, buildID, uid string) error {
	article, err := b.articles.Get(ctx, uid)
	if err != nil {
		return err
	}
	body, err := b.renderer.PostBytes(models.Ready(article))
	if err != nil {
		return fmt.Errorf("rendering: %w", err)
	}
	return b.save(ctx, buildID, models.PostPath(uid), models.PageKindPost, uid, htmlContentType, body)
}

func (b *siteBuilder) save(ctx context.Context, buildID, path string, kind models.PageKind, uid, contentType string, body []byte) error {
	page := &models.Page{
		Path:        path,
		Kind:        kind,
		UID:         uid,
		ContentType: contentType,
		Body:        body,
		Prebuilt:    true,
		BuildID:     buildID,
		BuiltAt:     b.now(),
	}
	if err := b.pages.Save(ctx, page); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}
