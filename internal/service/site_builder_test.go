package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spacetraveling/internal/content"
	"github.com/spacetraveling/internal/mocks"
	"github.com/spacetraveling/internal/models"
	"github.com/spacetraveling/internal/render"
	"github.com/spacetraveling/internal/repository"
	"github.com/spacetraveling/internal/service"
	"github.com/spacetraveling/internal/validation"
	"github.com/spf13/afero"
)

func TestSiteBuilder_Build(t *testing.T) {
	h := newTestHarness(t)
	for _, uid := range []string{"a", "b", "c"} {
		h.client.AddPost(mocks.PostRecord(uid, "Post "+uid))
	}
	ctx := context.Background()

	report, err := h.services.Builder.Build(ctx, "build-1")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if report.PagesTotal != 5 || report.PagesBuilt != 5 || report.PagesFailed != 0 {
		t.Errorf("Unexpected report: %+v", report)
	}

	for _, path := range []string{"/", "/feed.xml", "/assets/site.js", "/post/a", "/post/b"} {
		page, _ := h.pages.Get(ctx, path)
		if page == nil {
			t.Errorf("Expected %s to be stored", path)
			continue
		}
		if !page.Prebuilt || page.BuildID != "build-1" {
			t.Errorf("%s: expected prebuilt page of build-1, got %+v", path, page)
		}
	}
	if page, _ := h.pages.Get(ctx, "/post/c"); page != nil {
		t.Error("Expected /post/c to be left for on-demand generation")
	}

	home, _ := h.pages.Get(ctx, "/")
	if !strings.Contains(string(home.Body), "data-load-more") {
		t.Error("Expected listing with more pages to render the load-more control")
	}
	feed, _ := h.pages.Get(ctx, "/feed.xml")
	if !strings.Contains(string(feed.Body), "/post/c") {
		t.Error("Expected feed to list every post")
	}
}

func TestSiteBuilder_RebuildDropsRemovedPosts(t *testing.T) {
	h := newTestHarness(t)
	for _, uid := range []string{"a", "b", "c"} {
		h.client.AddPost(mocks.PostRecord(uid, "Post "+uid))
	}
	ctx := context.Background()

	if _, err := h.services.Builder.Build(ctx, "build-1"); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if state := h.services.Article.Generate(ctx, "c"); state.Kind != models.PostReady {
		t.Fatalf("Expected c to be generated, got %s", state.Kind)
	}

	// a and c are unpublished
	h.client.Posts = []content.Record{mocks.PostRecord("b", "Post B")}
	delete(h.client.Documents, "a")
	delete(h.client.Documents, "c")

	report, err := h.services.Builder.Build(ctx, "build-2")
	if err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	if report.PagesRemoved != 2 {
		t.Errorf("Expected 2 pages removed, got %d", report.PagesRemoved)
	}

	for _, uid := range []string{"a", "c"} {
		if page, _ := h.pages.Get(ctx, models.PostPath(uid)); page != nil {
			t.Errorf("%s still served after rebuild: prebuilt=%v build=%q", uid, page.Prebuilt, page.BuildID)
		}
		if state := h.services.Article.Resolve(ctx, uid); state.Kind != models.PostNotFound {
			t.Errorf("%s: expected not_found, got %s", uid, state.Kind)
		}
	}
	page, _ := h.pages.Get(ctx, models.PostPath("b"))
	if page == nil || page.BuildID != "build-2" {
		t.Errorf("Expected b from build-2, got %+v", page)
	}
}

func TestSiteBuilder_IncompleteBuildKeepsPages(t *testing.T) {
	h := newTestHarness(t)
	h.client.AddPost(mocks.PostRecord("a", "Post A"))
	h.client.AddPost(mocks.PostRecord("b", "Post B"))
	ctx := context.Background()

	if _, err := h.services.Builder.Build(ctx, "build-1"); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	broken := mocks.PostRecord("b", "Post B")
	broken.Data.Banner.URL = "not-a-url"
	h.client.AddDocument(broken)

	report, err := h.services.Builder.Build(ctx, "build-2")
	if !errors.Is(err, service.ErrBuildIncomplete) {
		t.Fatalf("Expected ErrBuildIncomplete, got %v", err)
	}
	if report.PagesRemoved != 0 {
		t.Errorf("Expected nothing removed, got %d", report.PagesRemoved)
	}
	page, _ := h.pages.Get(ctx, models.PostPath("b"))
	if page == nil || page.BuildID != "build-1" {
		t.Errorf("Expected b from build-1 to stay, got %+v", page)
	}
}

func TestSiteBuilder_DeleteStaleFailure(t *testing.T) {
	h := newTestHarness(t)
	h.client.AddPost(mocks.PostRecord("a", "Post A"))
	h.pages.DeleteError = errors.New("connection reset")

	_, err := h.services.Builder.Build(context.Background(), "build-1")
	if err == nil || !strings.Contains(err.Error(), "removing stale pages") {
		t.Errorf("Expected stale page removal error, got %v", err)
	}
}

func TestSiteBuilder_PostFailureIsReported(t *testing.T) {
	h := newTestHarness(t)
	h.client.AddPost(mocks.PostRecord("a", "Post A"))
	h.client.AddPost(mocks.PostRecord("b", "Post B"))
	// b is listed but its detail is malformed
	broken := mocks.PostRecord("b", "Post B")
	broken.Data.Banner.URL = "not-a-url"
	h.client.AddDocument(broken)

	report, err := h.services.Builder.Build(context.Background(), "build-2")
	if !errors.Is(err, service.ErrBuildIncomplete) {
		t.Fatalf("Expected ErrBuildIncomplete, got %v", err)
	}
	if report.PagesFailed != 1 || report.PagesBuilt != 4 {
		t.Errorf("Unexpected report: %+v", report)
	}
	if len(report.Errors) != 1 || report.Errors[0].Route != "/post/b" {
		t.Errorf("Expected error for /post/b, got %+v", report.Errors)
	}
}

func TestSiteBuilder_ListingFailureAborts(t *testing.T) {
	h := newTestHarness(t)
	h.client.QueryError = errors.New("dial tcp: connection refused")

	_, err := h.services.Builder.Build(context.Background(), "build-3")
	if err == nil {
		t.Fatal("Expected build to fail")
	}
	if h.pages.SaveCalls != 0 {
		t.Errorf("Expected nothing to be stored, got %d saves", h.pages.SaveCalls)
	}
}

func TestSiteBuilder_WritesStaticTree(t *testing.T) {
	cfg := testConfig()
	renderer, err := render.New(cfg.Site)
	if err != nil {
		t.Fatalf("render.New failed: %v", err)
	}

	fs := afero.NewMemMapFs()
	pages, err := repository.NewFilePageRepo(fs, "/public")
	if err != nil {
		t.Fatalf("NewFilePageRepo failed: %v", err)
	}

	client := mocks.NewMockContentClient()
	client.AddPost(mocks.HelloWorld())
	client.AddPost(mocks.PostRecord("second-post", "Second"))

	log := zerolog.Nop()
	v := validation.NewValidator(cfg.Content.APIEndpoint)
	listing := service.NewListingService(client, v, &cfg.Content, log)
	articles := service.NewArticleService(client, v, pages, renderer, &cfg.Content, log)
	builder := service.NewSiteBuilder(listing, articles, pages, renderer, 1, log)

	if _, err := builder.Build(context.Background(), "cli-build"); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	for _, file := range []string{
		"/public/index.html",
		"/public/feed.xml",
		"/public/assets/site.js",
		"/public/post/hello-world/index.html",
		"/public/post/second-post/index.html",
	} {
		if ok, _ := afero.Exists(fs, file); !ok {
			t.Errorf("Expected %s to be written", file)
		}
	}

	stored, _ := pages.Get(context.Background(), models.PostPath("hello-world"))
	if stored == nil || !stored.Prebuilt {
		t.Error("Expected hello-world to be a prebuilt page")
	}
}
