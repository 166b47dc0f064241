package service_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/spacetraveling/internal/blog"
	"github.com/spacetraveling/internal/content"
	"github.com/spacetraveling/internal/mocks"
	"github.com/spacetraveling/internal/models"
	"github.com/spacetraveling/internal/validation"
)

func uids(posts []models.ArticleSummary) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.UID
	}
	return out
}

func TestListingService_FirstPage(t *testing.T) {
	h := newTestHarness(t)
	h.client.AddPost(mocks.PostRecord("a", "Post A"))
	h.client.AddPost(mocks.PostRecord("b", "Post B"))

	state, err := h.services.Listing.FirstPage(context.Background())
	if err != nil {
		t.Fatalf("FirstPage failed: %v", err)
	}

	if got := uids(state.Posts); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("Expected [a], got %v", got)
	}
	if state.NextPage != h.client.CursorFor(2, 1) {
		t.Errorf("Expected cursor %q, got %q", h.client.CursorFor(2, 1), state.NextPage)
	}
	if state.Posts[0].FirstPublicationDate == nil {
		t.Error("Expected publication date to be parsed")
	}
}

func TestListingService_LoadMoreScenario(t *testing.T) {
	h := newTestHarness(t)
	h.client.AddPost(mocks.PostRecord("a", "Post A"))
	h.client.AddPost(mocks.PostRecord("b", "Post B"))
	ctx := context.Background()

	first, err := h.services.Listing.FirstPage(ctx)
	if err != nil {
		t.Fatalf("FirstPage failed: %v", err)
	}

	next, err := h.services.Listing.LoadMore(ctx, first)
	if err != nil {
		t.Fatalf("LoadMore failed: %v", err)
	}

	if got := uids(next.Posts); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Expected [a b], got %v", got)
	}
	if next.HasMore() {
		t.Errorf("Expected cursor to be absent, got %q", next.NextPage)
	}
	if len(first.Posts) != 1 || first.NextPage == "" {
		t.Error("Input state was modified")
	}
	if len(h.client.FetchCalls) != 1 || h.client.FetchCalls[0] != first.NextPage {
		t.Errorf("Expected exactly the state cursor to be fetched, got %v", h.client.FetchCalls)
	}

	_, err = h.services.Listing.LoadMore(ctx, next)
	if !errors.Is(err, blog.ErrExhausted) {
		t.Errorf("Expected ErrExhausted, got %v", err)
	}
	if len(h.client.FetchCalls) != 1 {
		t.Error("Expected no fetch once exhausted")
	}
}

func TestListingService_LoadMoreRejectsReplayedCursor(t *testing.T) {
	h := newTestHarness(t)
	for _, uid := range []string{"a", "b", "c"} {
		h.client.AddPost(mocks.PostRecord(uid, "Post "+uid))
	}
	ctx := context.Background()

	first, err := h.services.Listing.FirstPage(ctx)
	if err != nil {
		t.Fatalf("FirstPage failed: %v", err)
	}
	second, err := h.services.Listing.LoadMore(ctx, first)
	if err != nil {
		t.Fatalf("LoadMore failed: %v", err)
	}

	replayed := models.PaginationState{Posts: second.Posts, NextPage: first.NextPage}
	got, err := h.services.Listing.LoadMore(ctx, replayed)
	if !errors.Is(err, blog.ErrStaleCursor) {
		t.Fatalf("Expected ErrStaleCursor, got %v", err)
	}
	if !reflect.DeepEqual(got, replayed) {
		t.Error("Expected state to be returned unchanged")
	}
	if len(h.client.FetchCalls) != 1 {
		t.Errorf("Expected no fetch for a replayed cursor, got %v", h.client.FetchCalls)
	}
}

func TestListingService_LoadMoreRejectsForeignCursor(t *testing.T) {
	h := newTestHarness(t)

	for _, cursor := range []string{
		"https://evil.example.com/api/v2/documents/search?page=2",
		"http://spacetraveling.cdn.prismic.io/api/v2/documents/search?page=2",
		"/documents/search?page=2",
	} {
		state := models.PaginationState{NextPage: cursor}
		got, err := h.services.Listing.LoadMore(context.Background(), state)
		if !errors.Is(err, validation.ErrForeignCursor) {
			t.Errorf("%s: expected ErrForeignCursor, got %v", cursor, err)
		}
		if got.NextPage != cursor {
			t.Errorf("%s: expected state to be returned unchanged", cursor)
		}
	}

	if len(h.client.FetchCalls) != 0 {
		t.Errorf("Expected no network call, got %v", h.client.FetchCalls)
	}
}

func TestListingService_LoadMoreUpstreamFailure(t *testing.T) {
	h := newTestHarness(t)
	h.client.FetchError = &content.StatusError{Code: 503, Body: "unavailable"}

	state := models.PaginationState{
		Posts:    []models.ArticleSummary{{UID: "a", Title: "Post A"}},
		NextPage: mocks.ContentEndpoint + "/documents/search?page=2",
	}

	got, err := h.services.Listing.LoadMore(context.Background(), state)
	var statusErr *content.StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != 503 {
		t.Fatalf("Expected wrapped StatusError, got %v", err)
	}
	if !reflect.DeepEqual(got, state) {
		t.Error("Expected the list to stay intact on failure")
	}
}

func TestListingService_LoadMoreMalformedRecord(t *testing.T) {
	h := newTestHarness(t)
	cursor := mocks.ContentEndpoint + "/documents/search?page=2"
	h.client.Cursors[cursor] = mocks.PageOf("", mocks.PostRecord("Not A Slug", "Broken"))

	_, err := h.services.Listing.LoadMore(context.Background(), models.PaginationState{NextPage: cursor})
	if !errors.Is(err, content.ErrMalformedResponse) {
		t.Errorf("Expected ErrMalformedResponse, got %v", err)
	}
}

func TestListingService_LoadMoreDropsRepeatedRecords(t *testing.T) {
	h := newTestHarness(t)
	cursor := mocks.ContentEndpoint + "/documents/search?page=2"
	h.client.Cursors[cursor] = mocks.PageOf("", mocks.PostRecord("a", "Post A"), mocks.PostRecord("b", "Post B"))

	state := models.PaginationState{
		Posts:    []models.ArticleSummary{{UID: "a", Title: "Post A"}},
		NextPage: cursor,
	}

	next, err := h.services.Listing.LoadMore(context.Background(), state)
	if err != nil {
		t.Fatalf("LoadMore failed: %v", err)
	}
	if got := uids(next.Posts); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Expected [a b], got %v", got)
	}
}

func TestListingService_EmptyPage(t *testing.T) {
	h := newTestHarness(t)
	cursor := mocks.ContentEndpoint + "/documents/search?page=2"
	h.client.Cursors[cursor] = mocks.PageOf("")

	state := models.PaginationState{Posts: []models.ArticleSummary{{UID: "a"}}, NextPage: cursor}
	next, err := h.services.Listing.LoadMore(context.Background(), state)
	if err != nil {
		t.Fatalf("LoadMore failed: %v", err)
	}
	if len(next.Posts) != 1 || next.HasMore() {
		t.Errorf("Expected unchanged posts and no cursor, got %+v", next)
	}
}
