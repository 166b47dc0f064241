package main

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spacetraveling/internal/models"
	"github.com/spacetraveling/internal/repository"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var flagOut string

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Render the site into a directory",
	Long: `Render the listing, the feed, the client script and the pre-built posts
into static files. Posts left out are generated on first request by the server.

Exits with status 1 when any page fails to build.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		out := flagOut
		if out == "" {
			out = e.cfg.Site.OutputDir
		}
		return runBuild(cmd.Context(), e, afero.NewOsFs(), out, cmd.OutOrStdout())
	},
}

var pathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "Print the post paths rendered at build time",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		return runPaths(cmd.Context(), e, cmd.OutOrStdout())
	},
}

func init() {
	buildCmd.Flags().StringVarP(&flagOut, "out", "o", "", "output directory (default: site.output_dir)")
}

func runBuild(ctx context.Context, e *env, fs afero.Fs, out string, w io.Writer) error {
	pages, err := repository.NewFilePageRepo(fs, out)
	if err != nil {
		return err
	}
	builder, _, err := e.builder(pages)
	if err != nil {
		return err
	}

	buildID := uuid.New().String()
	report, err := builder.Build(ctx, buildID)

	fmt.Fprintf(w, "Built %d of %d pages into %s\n", report.PagesBuilt, report.PagesTotal, out)
	if routes, lerr := pages.ListPaths(ctx); lerr == nil {
		for _, route := range routes {
			fmt.Fprintf(w, "  + %s\n", route)
		}
	}
	if report.PagesRemoved > 0 {
		fmt.Fprintf(w, "Removed %d stale post pages\n", report.PagesRemoved)
	}
	for _, be := range report.Errors {
		fmt.Fprintf(w, "  ! %s: %s\n", be.Route, be.Message)
	}
	if err != nil {
		return fmt.Errorf("build %s: %w", buildID, err)
	}
	return nil
}

func runPaths(ctx context.Context, e *env, w io.Writer) error {
	// paths never writes, the store only satisfies the wiring
	pages, err := repository.NewFilePageRepo(afero.NewMemMapFs(), "/")
	if err != nil {
		return err
	}
	_, articles, err := e.builder(pages)
	if err != nil {
		return err
	}

	uids, err := articles.StaticPaths(ctx)
	if err != nil {
		return err
	}
	for _, uid := range uids {
		fmt.Fprintln(w, models.PostPath(uid))
	}
	return nil
}
