package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spacetraveling/internal/blog"
	"github.com/spacetraveling/internal/models"
	"github.com/spacetraveling/internal/render"
	"github.com/spacetraveling/internal/service"
	"github.com/spacetraveling/internal/validation"
)

// maxSeen bounds the uids a client may report as already listed
const maxSeen = 1000

// MoreHandler serves the load-more control
type MoreHandler struct {
	services *service.Services
	renderer *render.Renderer
	log      zerolog.Logger
}

// NewMoreHandler creates a new MoreHandler
func NewMoreHandler(services *service.Services, renderer *render.Renderer, log zerolog.Logger) *MoreHandler {
	return &MoreHandler{
		services: services,
		renderer: renderer,
		log:      log.With().Str("handler", "more").Logger(),
	}
}

// MoreRequest is what the client script posts: the cursor it holds and the
// uids it already shows
type MoreRequest struct {
	Cursor string   `json:"cursor" binding:"required"`
	Seen   []string `json:"seen"`
}

// MoreResponse carries the appended posts both as data and as markup
type MoreResponse struct {
	Posts    []models.ArticleSummary `json:"posts"`
	NextPage *string                 `json:"next_page"`
	HTML     string                  `json:"html"`
}

// LoadMore handles POST /api/posts/more
func (h *MoreHandler) LoadMore(c *gin.Context) {
	var req MoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cursor is required"})
		return
	}
	if len(req.Seen) > maxSeen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "too many seen posts"})
		return
	}

	state := models.PaginationState{
		Posts:    make([]models.ArticleSummary, 0, len(req.Seen)),
		NextPage: req.Cursor,
	}
	for _, uid := range req.Seen {
		state.Posts = append(state.Posts, models.ArticleSummary{UID: uid})
	}

	next, err := h.services.Listing.LoadMore(c.Request.Context(), state)
	switch {
	case err == nil:
	case errors.Is(err, blog.ErrExhausted), errors.Is(err, blog.ErrStaleCursor):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, validation.ErrForeignCursor):
		h.log.Warn().Str("cursor", req.Cursor).Msg("Rejected foreign cursor")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cursor"})
		return
	default:
		h.log.Error().Err(err).Str("cursor", req.Cursor).Msg("Failed to load more posts")
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not load more posts"})
		return
	}

	added := blog.Added(state, next)
	if added == nil {
		added = []models.ArticleSummary{}
	}
	html, err := h.renderer.PostListString(added)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to render post list")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	resp := MoreResponse{Posts: added, HTML: html}
	if next.HasMore() {
		resp.NextPage = &next.NextPage
	}
	c.JSON(http.StatusOK, resp)
}
