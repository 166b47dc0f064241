package api

import (
	"crypto/subtle"
	"encoding/csv"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spacetraveling/internal/config"
	"github.com/spacetraveling/internal/models"
	"github.com/spacetraveling/internal/service"
)

// BuildHandler handles rebuild endpoints
type BuildHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewBuildHandler creates a new BuildHandler
func NewBuildHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *BuildHandler {
	return &BuildHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "build").Logger(),
	}
}

// CreateBuild handles POST /v1/builds, called by the CMS publish webhook or
// by hand. The body is optional unless a webhook secret is configured.
func (h *BuildHandler) CreateBuild(c *gin.Context) {
	ctx := c.Request.Context()

	var req models.BuildRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
			return
		}
	}

	if secret := h.cfg.Content.WebhookSecret; secret != "" {
		if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(secret)) != 1 {
			h.log.Warn().Str("client_ip", c.ClientIP()).Msg("Rejected build request with bad secret")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid secret"})
			return
		}
	}

	req.Trigger = models.TriggerWebhook
	req.IdempotencyKey = c.GetHeader("Idempotency-Key")

	if req.IdempotencyKey != "" {
		existing, err := h.services.Job.GetJobByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to check idempotency key")
		}
		if existing != nil {
			h.log.Info().Str("job_id", existing.ID).Msg("Returning existing job for idempotency key")
			c.JSON(http.StatusOK, existing)
			return
		}
	}

	job, err := h.services.Job.CreateBuild(ctx, &req)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create build job")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create build job"})
		return
	}

	h.log.Info().
		Str("job_id", job.ID).
		Str("event", req.Type).
		Msg("Build job created")

	c.JSON(http.StatusAccepted, gin.H{
		"job_id":  job.ID,
		"status":  job.Status,
		"message": "Build job created and queued for processing",
	})
}

// GetBuildStatus handles GET /v1/builds/:job_id
func (h *BuildHandler) GetBuildStatus(c *gin.Context) {
	jobID := c.Param("job_id")

	job, err := h.services.Job.GetJob(c.Request.Context(), jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get build status"})
		return
	}
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	c.JSON(http.StatusOK, job)
}

// GetBuildErrors handles GET /v1/builds/:job_id/errors, as JSON or ?format=csv
func (h *BuildHandler) GetBuildErrors(c *gin.Context) {
	jobID := c.Param("job_id")

	errs, err := h.services.Job.GetJobErrors(c.Request.Context(), jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job errors")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get errors"})
		return
	}

	if c.Query("format") == "csv" {
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=build_errors_%s.csv", jobID))
		writer := csv.NewWriter(c.Writer)
		writer.Write([]string{"route", "message"})
		for _, e := range errs {
			writer.Write([]string{e.Route, e.Message})
		}
		writer.Flush()
		return
	}

	if errs == nil {
		errs = []models.BuildError{}
	}
	c.JSON(http.StatusOK, gin.H{
		"job_id":      jobID,
		"error_count": len(errs),
		"errors":      errs,
	})
}
