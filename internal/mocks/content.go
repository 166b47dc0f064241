package mocks

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spacetraveling/internal/content"
)

// MockContentClient is an in-memory content service
type MockContentClient struct {
	mu sync.Mutex

	// Endpoint prefixes the cursors handed out by Query
	Endpoint string
	// Posts are paged through by Query in order, unless First is set
	Posts []content.Record
	// First overrides the response of Query
	First *content.PageResponse
	// Cursors maps next_page URLs to the page they resolve to
	Cursors map[string]*content.PageResponse
	// Documents is searched by GetByUID
	Documents map[string]content.Record

	QueryError error
	FetchError error
	GetError   error
	// GetDelay blocks GetByUID, for exercising de-duplication
	GetDelay time.Duration

	QueryCalls      int
	FetchCalls      []string
	GetCalls        map[string]int
	InvalidateCalls int
}

var (
	_ content.Client      = (*MockContentClient)(nil)
	_ content.Invalidator = (*MockContentClient)(nil)
)

func NewMockContentClient() *MockContentClient {
	return &MockContentClient{
		Endpoint:  ContentEndpoint,
		Cursors:   make(map[string]*content.PageResponse),
		Documents: make(map[string]content.Record),
		GetCalls:  make(map[string]int),
	}
}

// AddDocument registers a record for GetByUID only
func (m *MockContentClient) AddDocument(rec content.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Documents[rec.UID] = rec
}

// AddPost registers a record for both listing and GetByUID
func (m *MockContentClient) AddPost(rec content.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Posts = append(m.Posts, rec)
	m.Documents[rec.UID] = rec
}

// CursorFor is the next_page URL Query hands out for page n
func (m *MockContentClient) CursorFor(page, pageSize int) string {
	return fmt.Sprintf("%s/documents/search?ref=master&page=%d&pageSize=%d", m.Endpoint, page, pageSize)
}

func (m *MockContentClient) Query(ctx context.Context, predicates []content.Predicate, opts content.QueryOptions) (*content.PageResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QueryCalls++
	if m.QueryError != nil {
		return nil, m.QueryError
	}
	if m.First != nil {
		return m.First, nil
	}

	size := opts.PageSize
	if size <= 0 {
		size = 20
	}
	var first *content.PageResponse
	for n, start := 1, 0; first == nil || start < len(m.Posts); n, start = n+1, start+size {
		end := start + size
		if end > len(m.Posts) {
			end = len(m.Posts)
		}
		page := &content.PageResponse{
			Page:             n,
			ResultsPerPage:   size,
			ResultsSize:      end - start,
			TotalResultsSize: len(m.Posts),
			Results:          append([]content.Record{}, m.Posts[start:end]...),
		}
		if end < len(m.Posts) {
			next := m.CursorFor(n+1, size)
			page.NextPage = &next
		}
		if first == nil {
			first = page
		} else {
			m.Cursors[m.CursorFor(n, size)] = page
		}
	}
	return first, nil
}

func (m *MockContentClient) GetByUID(ctx context.Context, docType, uid string, opts content.QueryOptions) (*content.Record, error) {
	m.mu.Lock()
	m.GetCalls[uid]++
	delay := m.GetDelay
	getErr := m.GetError
	rec, ok := m.Documents[uid]
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if getErr != nil {
		return nil, getErr
	}
	if !ok {
		return nil, fmt.Errorf("%s %q: %w", docType, uid, content.ErrNotFound)
	}
	return &rec, nil
}

func (m *MockContentClient) FetchPage(ctx context.Context, cursor string) (*content.PageResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FetchCalls = append(m.FetchCalls, cursor)
	if m.FetchError != nil {
		return nil, m.FetchError
	}
	page, ok := m.Cursors[cursor]
	if !ok {
		return nil, &content.StatusError{Code: 404, Body: "unknown cursor"}
	}
	return page, nil
}

func (m *MockContentClient) Invalidate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InvalidateCalls++
	return nil
}

// GetCount returns how often GetByUID was called for uid
func (m *MockContentClient) GetCount(uid string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.GetCalls[uid]
}

// MemoryStore is an in-memory content.Store
type MemoryStore struct {
	mu      sync.Mutex
	Values  map[string][]byte
	TTLs    map[string]time.Duration
	Err     error
	Deletes []string
}

var _ content.Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{Values: make(map[string][]byte), TTLs: make(map[string]time.Duration)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, false, s.Err
	}
	v, ok := s.Values[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Values[key] = value
	s.TTLs[key] = ttl
	return nil
}

func (s *MemoryStore) DeletePrefix(ctx context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Deletes = append(s.Deletes, prefix)
	if s.Err != nil {
		return s.Err
	}
	for k := range s.Values {
		if strings.HasPrefix(k, prefix) {
			delete(s.Values, k)
		}
	}
	return nil
}

// Len returns the number of stored keys
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Values)
}
