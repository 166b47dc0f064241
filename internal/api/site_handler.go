package api

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spacetraveling/internal/blog"
	"github.com/spacetraveling/internal/config"
	"github.com/spacetraveling/internal/models"
	"github.com/spacetraveling/internal/render"
	"github.com/spacetraveling/internal/service"
)

const (
	htmlContentType = "text/html; charset=utf-8"
	feedContentType = "application/rss+xml; charset=utf-8"
	jsContentType   = "application/javascript; charset=utf-8"
)

// SiteHandler serves the pages of the blog
type SiteHandler struct {
	services *service.Services
	renderer *render.Renderer
	cfg      *config.Config
	log      zerolog.Logger
}

// NewSiteHandler creates a new SiteHandler
func NewSiteHandler(services *service.Services, renderer *render.Renderer, cfg *config.Config, log zerolog.Logger) *SiteHandler {
	return &SiteHandler{
		services: services,
		renderer: renderer,
		cfg:      cfg,
		log:      log.With().Str("handler", "site").Logger(),
	}
}

// serveStored writes the page stored at path and reports whether there was one
func (h *SiteHandler) serveStored(c *gin.Context, path string) bool {
	page, err := h.services.Pages.Lookup(c.Request.Context(), path)
	if err != nil {
		h.log.Error().Err(err).Str("path", path).Msg("Failed to read page store")
		return false
	}
	if page == nil {
		return false
	}

	c.Header("X-Page-Prebuilt", boolHeader(page.Prebuilt))
	c.Data(http.StatusOK, page.ContentType, page.Body)
	return true
}

// Home handles GET /
func (h *SiteHandler) Home(c *gin.Context) {
	if h.serveStored(c, models.IndexPath) {
		return
	}

	state, err := h.services.Listing.FirstPage(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load first page")
		c.String(http.StatusBadGateway, "content service unavailable")
		return
	}

	var buf bytes.Buffer
	if err := h.renderer.Home(&buf, state); err != nil {
		h.log.Error().Err(err).Msg("Failed to render listing")
		c.String(http.StatusInternalServerError, "internal server error")
		return
	}
	c.Data(http.StatusOK, htmlContentType, buf.Bytes())
}

// Post handles GET /post/:slug. Stored pages are served as they are; other
// slugs get the loading shell or, in blocking mode, are generated inline.
func (h *SiteHandler) Post(c *gin.Context) {
	slug := c.Param("slug")
	uid, err := blog.NormalizeUID(slug)
	if err != nil {
		h.renderPost(c, http.StatusNotFound, models.NotFound(slug))
		return
	}
	if uid != slug {
		c.Redirect(http.StatusMovedPermanently, models.PostPath(uid))
		return
	}

	if h.serveStored(c, models.PostPath(uid)) {
		return
	}

	if h.cfg.Site.FallbackMode == config.FallbackBlocking {
		state := h.services.Article.Generate(c.Request.Context(), uid)
		h.renderPost(c, statusFor(state), state)
		return
	}

	c.Header("Cache-Control", "no-store")
	h.renderPost(c, http.StatusOK, models.Loading(uid))
}

// PostFragment handles GET /post/:slug/fragment, resolving a loading shell
func (h *SiteHandler) PostFragment(c *gin.Context) {
	slug := c.Param("slug")
	uid, err := blog.NormalizeUID(slug)
	state := models.NotFound(slug)
	if err == nil {
		state = h.services.Article.Generate(c.Request.Context(), uid)
	}

	var buf bytes.Buffer
	if err := h.renderer.PostFragment(&buf, state); err != nil {
		h.log.Error().Err(err).Str("uid", uid).Msg("Failed to render fragment")
		c.String(http.StatusInternalServerError, "internal server error")
		return
	}

	if state.Kind != models.PostReady {
		c.Header("Cache-Control", "no-store")
	}
	c.Data(statusFor(state), htmlContentType, buf.Bytes())
}

// Feed handles GET /feed.xml
func (h *SiteHandler) Feed(c *gin.Context) {
	if h.serveStored(c, models.FeedPath) {
		return
	}

	posts, err := h.services.Article.All(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list posts for feed")
		c.String(http.StatusBadGateway, "content service unavailable")
		return
	}

	var buf bytes.Buffer
	if err := h.renderer.Feed(&buf, posts, time.Now()); err != nil {
		h.log.Error().Err(err).Msg("Failed to render feed")
		c.String(http.StatusInternalServerError, "internal server error")
		return
	}
	c.Data(http.StatusOK, feedContentType, buf.Bytes())
}

// Script handles GET /assets/site.js
func (h *SiteHandler) Script(c *gin.Context) {
	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, jsContentType, render.Script())
}

func (h *SiteHandler) renderPost(c *gin.Context, status int, state models.PostState) {
	var buf bytes.Buffer
	if err := h.renderer.Post(&buf, state); err != nil {
		h.log.Error().Err(err).Str("uid", state.UID).Msg("Failed to render post")
		c.String(http.StatusInternalServerError, "internal server error")
		return
	}
	c.Data(status, htmlContentType, buf.Bytes())
}

func statusFor(state models.PostState) int {
	switch state.Kind {
	case models.PostReady, models.PostLoading:
		return http.StatusOK
	case models.PostNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

func boolHeader(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
