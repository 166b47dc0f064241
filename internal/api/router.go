package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spacetraveling/internal/config"
	"github.com/spacetraveling/internal/render"
	"github.com/spacetraveling/internal/service"
)

// NewRouter creates and configures the Gin router
func NewRouter(services *service.Services, renderer *render.Renderer, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))

	site := NewSiteHandler(services, renderer, cfg, log)
	more := NewMoreHandler(services, renderer, log)
	builds := NewBuildHandler(services, cfg, log)

	router.GET("/health", healthCheck(services))
	router.GET("/metrics", metricsHandler(services))

	router.GET("/", site.Home)
	router.GET("/feed.xml", site.Feed)
	router.GET("/assets/site.js", site.Script)
	router.GET("/post/:slug", site.Post)
	router.GET("/post/:slug/fragment", site.PostFragment)

	apiGroup := router.Group("/api")
	apiGroup.Use(corsMiddleware(cfg.Server.CORSOrigins))
	{
		apiGroup.POST("/posts/more", more.LoadMore)
		apiGroup.OPTIONS("/posts/more", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	}

	v1 := router.Group("/v1")
	{
		buildRoutes := v1.Group("/builds")
		{
			buildRoutes.POST("", builds.CreateBuild)
			buildRoutes.GET("/:job_id", builds.GetBuildStatus)
			buildRoutes.GET("/:job_id/errors", builds.GetBuildErrors)
		}
	}

	return router
}

// healthCheck reports whether the page store answers
func healthCheck(services *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status, code := "healthy", http.StatusOK
		if _, err := services.Pages.Counts(ctx); err != nil {
			status, code = "unhealthy", http.StatusServiceUnavailable
		}

		c.JSON(code, gin.H{
			"status":    status,
			"timestamp": time.Now().Format(time.RFC3339),
			"service":   "spacetraveling",
		})
	}
}

// metricsHandler returns page store and build counters
func metricsHandler(services *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		pages, _ := services.Pages.Counts(ctx)
		jobs, _ := services.Job.Counts(ctx)

		c.JSON(http.StatusOK, gin.H{
			"pages":     pages,
			"builds":    jobs,
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("error", err).Str("path", c.Request.URL.Path).Msg("Panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs requests
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		statusCode := c.Writer.Status()

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("Request completed")
	}
}

// corsMiddleware lets a statically hosted copy of the site call the api
func corsMiddleware(origins []string) gin.HandlerFunc {
	conf := cors.Config{
		AllowMethods:  []string{"POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		conf.AllowAllOrigins = true
	} else {
		conf.AllowOrigins = origins
	}
	return cors.New(conf)
}
