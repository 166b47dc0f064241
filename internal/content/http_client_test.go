package content_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spacetraveling/internal/config"
	"github.com/spacetraveling/internal/content"
	"github.com/spacetraveling/internal/mocks"
)

// fakeService mimics the content API entry point and search endpoint
type fakeService struct {
	server     *httptest.Server
	entryCalls int32
	lastQuery  atomic.Value
	search     func(w http.ResponseWriter, r *http.Request)
}

func newFakeService(t *testing.T) *fakeService {
	t.Helper()
	f := &fakeService{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.entryCalls, 1)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"refs": []map[string]interface{}{
				{"id": "release", "ref": "release-ref", "isMasterRef": false},
				{"id": "master", "ref": "master-ref", "isMasterRef": true},
			},
		})
	})
	mux.HandleFunc("/api/v2/documents/search", func(w http.ResponseWriter, r *http.Request) {
		f.lastQuery.Store(r.URL.Query())
		f.search(w, r)
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeService) query() url.Values {
	v, _ := f.lastQuery.Load().(url.Values)
	return v
}

func (f *fakeService) client(t *testing.T, token string) *content.HTTPClient {
	t.Helper()
	c, err := content.NewHTTPClient(&config.ContentConfig{
		APIEndpoint: f.server.URL + "/api/v2",
		AccessToken: token,
		Timeout:     2 * time.Second,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHTTPClient failed: %v", err)
	}
	return c
}

func writePage(w http.ResponseWriter, next string, records ...interface{}) {
	if records == nil {
		records = []interface{}{}
	}
	page := map[string]interface{}{
		"page":      1,
		"results":   records,
		"next_page": nil,
	}
	if next != "" {
		page["next_page"] = next
	}
	json.NewEncoder(w).Encode(page)
}

func rawPost(uid string) map[string]interface{} {
	return map[string]interface{}{
		"uid":                    uid,
		"first_publication_date": mocks.PublishedAt,
		"data": map[string]interface{}{
			"title":    "Post " + uid,
			"subtitle": "Sub",
			"author":   "Ana",
			"content": []map[string]interface{}{
				{"heading": "Intro", "body": []map[string]interface{}{{"type": "paragraph", "text": "Hi"}}},
			},
		},
	}
}

func TestHTTPClient_Query(t *testing.T) {
	f := newFakeService(t)
	next := ""
	f.search = func(w http.ResponseWriter, r *http.Request) {
		next = f.server.URL + "/api/v2/documents/search?ref=master-ref&page=2&pageSize=1"
		writePage(w, next, rawPost("a"))
	}

	page, err := f.client(t, "").Query(context.Background(),
		[]content.Predicate{content.At("document.type", "posts")},
		content.QueryOptions{PageSize: 1},
	)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	q := f.query()
	if q.Get("ref") != "master-ref" {
		t.Errorf("Expected master ref, got %v", q["ref"])
	}
	if q.Get("q") != `[[at(document.type, "posts")]]` {
		t.Errorf("Unexpected predicate %q", q.Get("q"))
	}
	if q.Get("pageSize") != "1" {
		t.Errorf("Expected pageSize 1, got %v", q["pageSize"])
	}
	if _, ok := q["access_token"]; ok {
		t.Error("Expected no access token")
	}

	if len(page.Results) != 1 || page.Results[0].UID != "a" {
		t.Errorf("Unexpected results %+v", page.Results)
	}
	if page.Next() != next {
		t.Errorf("Expected next %q, got %q", next, page.Next())
	}
	if *page.Results[0].FirstPublicationDate != mocks.PublishedAt {
		t.Error("Expected raw date to be kept")
	}
}

func TestHTTPClient_MasterRefIsCached(t *testing.T) {
	f := newFakeService(t)
	f.search = func(w http.ResponseWriter, r *http.Request) { writePage(w, "") }
	c := f.client(t, "")
	ctx := context.Background()

	c.Query(ctx, nil, content.QueryOptions{})
	c.Query(ctx, nil, content.QueryOptions{})
	if n := atomic.LoadInt32(&f.entryCalls); n != 1 {
		t.Errorf("Expected 1 entry point call, got %d", n)
	}

	c.Invalidate(ctx)
	c.Query(ctx, nil, content.QueryOptions{})
	if n := atomic.LoadInt32(&f.entryCalls); n != 2 {
		t.Errorf("Expected ref to be fetched again after Invalidate, got %d calls", n)
	}
}

func TestHTTPClient_GetByUID(t *testing.T) {
	f := newFakeService(t)
	f.search = func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Query().Get("q"), `"hello-world"`) {
			writePage(w, "", rawPost("hello-world"))
			return
		}
		writePage(w, "")
	}
	c := f.client(t, "")

	rec, err := c.GetByUID(context.Background(), "posts", "hello-world", content.QueryOptions{})
	if err != nil {
		t.Fatalf("GetByUID failed: %v", err)
	}
	if rec.UID != "hello-world" {
		t.Errorf("Unexpected record %+v", rec)
	}
	q := f.query()
	if q.Get("q") != `[[at(my.posts.uid, "hello-world")]]` || q.Get("pageSize") != "1" {
		t.Errorf("Unexpected query %v", q)
	}

	_, err = c.GetByUID(context.Background(), "posts", "missing", content.QueryOptions{})
	if !errors.Is(err, content.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestHTTPClient_FetchPage(t *testing.T) {
	f := newFakeService(t)
	f.search = func(w http.ResponseWriter, r *http.Request) { writePage(w, "", rawPost("b")) }
	c := f.client(t, "secret-token")

	cursor := f.server.URL + "/api/v2/documents/search?ref=master-ref&q=%5B%5Bat%28document.type%2C+%22posts%22%29%5D%5D&page=2&pageSize=1"
	page, err := c.FetchPage(context.Background(), cursor)
	if err != nil {
		t.Fatalf("FetchPage failed: %v", err)
	}
	if len(page.Results) != 1 || page.Results[0].UID != "b" || page.Next() != "" {
		t.Errorf("Unexpected page %+v", page)
	}

	q := f.query()
	if q.Get("page") != "2" || q.Get("ref") != "master-ref" {
		t.Errorf("Expected cursor to be followed as is, got %v", q)
	}
	if q.Get("access_token") != "secret-token" {
		t.Errorf("Expected access token to be added, got %v", q["access_token"])
	}
	if atomic.LoadInt32(&f.entryCalls) != 0 {
		t.Error("Expected FetchPage not to resolve a ref")
	}
}

func TestHTTPClient_Errors(t *testing.T) {
	tests := []struct {
		name   string
		handle func(w http.ResponseWriter, r *http.Request)
		check  func(t *testing.T, err error)
	}{
		{
			name: "status",
			handle: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "rate limited", http.StatusTooManyRequests)
			},
			check: func(t *testing.T, err error) {
				var statusErr *content.StatusError
				if !errors.As(err, &statusErr) || statusErr.Code != http.StatusTooManyRequests {
					t.Errorf("Expected StatusError 429, got %v", err)
				}
			},
		},
		{
			name: "invalid json",
			handle: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"results": [`))
			},
			check: func(t *testing.T, err error) {
				if !errors.Is(err, content.ErrMalformedResponse) {
					t.Errorf("Expected ErrMalformedResponse, got %v", err)
				}
			},
		},
		{
			name: "missing results",
			handle: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"next_page": null}`))
			},
			check: func(t *testing.T, err error) {
				if !errors.Is(err, content.ErrMalformedResponse) {
					t.Errorf("Expected ErrMalformedResponse, got %v", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeService(t)
			f.search = tt.handle
			_, err := f.client(t, "").Query(context.Background(), nil, content.QueryOptions{})
			tt.check(t, err)
		})
	}
}

func TestHTTPClient_HonoursContext(t *testing.T) {
	f := newFakeService(t)
	f.search = func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
		writePage(w, "")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := f.client(t, "").Query(ctx, nil, content.QueryOptions{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}

func TestNewHTTPClient_RejectsRelativeEndpoint(t *testing.T) {
	_, err := content.NewHTTPClient(&config.ContentConfig{APIEndpoint: "/api/v2"}, zerolog.Nop())
	if err == nil {
		t.Error("Expected error for relative endpoint")
	}
}
