package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spacetraveling/internal/config"
	"github.com/spacetraveling/internal/content"
	"github.com/spacetraveling/internal/render"
	"github.com/spacetraveling/internal/repository"
	"github.com/spacetraveling/internal/service"
	"github.com/spacetraveling/internal/validation"
	"github.com/spacetraveling/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var flagConfig string

var rootCmd = &cobra.Command{
	Use:           "sitegen",
	Short:         "Pre-render the spacetraveling blog",
	Long:          "sitegen renders the listing, the feed and the pre-built posts of the blog into static files.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(pathsCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "sitegen %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// env is what the commands need from configuration
type env struct {
	cfg    *config.Config
	client content.Client
	log    zerolog.Logger
}

func loadEnv() (*env, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	log := logger.NewWithWriter(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	client, err := content.NewHTTPClient(&cfg.Content, log)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, client: client, log: log}, nil
}

// builder wires the build pipeline onto a file page store
func (e *env) builder(pages repository.PageRepository) (service.SiteBuilder, service.ArticleService, error) {
	renderer, err := render.New(e.cfg.Site)
	if err != nil {
		return nil, nil, err
	}
	v := validation.NewValidator(e.cfg.Content.APIEndpoint)
	listing := service.NewListingService(e.client, v, &e.cfg.Content, e.log)
	articles := service.NewArticleService(e.client, v, pages, renderer, &e.cfg.Content, e.log)
	return service.NewSiteBuilder(listing, articles, pages, renderer, e.cfg.Build.Workers, e.log), articles, nil
}
