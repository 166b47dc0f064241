package content

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spacetraveling/internal/config"
)

const (
	maxBodyBytes = 8 << 20
	refTTL       = 5 * time.Second
)

// HTTPClient talks to the content service REST API
type HTTPClient struct {
	endpoint    *url.URL
	accessToken string
	httpClient  *http.Client
	log         zerolog.Logger

	mu         sync.Mutex
	ref        string
	refFetched time.Time
	now        func() time.Time
}

var _ Client = (*HTTPClient)(nil)
var _ Invalidator = (*HTTPClient)(nil)

// NewHTTPClient creates a client for the API entry point in cfg
func NewHTTPClient(cfg *config.ContentConfig, log zerolog.Logger) (*HTTPClient, error) {
	endpoint, err := url.Parse(strings.TrimSuffix(cfg.APIEndpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid content api endpoint: %w", err)
	}
	if endpoint.Scheme == "" || endpoint.Host == "" {
		return nil, fmt.Errorf("content api endpoint must be an absolute url, got %q", cfg.APIEndpoint)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &HTTPClient{
		endpoint:    endpoint,
		accessToken: cfg.AccessToken,
		httpClient:  &http.Client{Timeout: timeout},
		log:         log.With().Str("component", "content").Logger(),
		now:         time.Now,
	}, nil
}

// Query runs a search against the master ref
func (c *HTTPClient) Query(ctx context.Context, predicates []Predicate, opts QueryOptions) (*PageResponse, error) {
	ref, err := c.masterRef(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("ref", ref)
	if len(predicates) > 0 {
		params.Set("q", encodeQuery(predicates))
	}
	if opts.PageSize > 0 {
		params.Set("pageSize", strconv.Itoa(opts.PageSize))
	}
	if opts.Page > 0 {
		params.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Orderings != "" {
		params.Set("orderings", opts.Orderings)
	}
	if opts.Lang != "" {
		params.Set("lang", opts.Lang)
	}
	if c.accessToken != "" {
		params.Set("access_token", c.accessToken)
	}

	searchURL := *c.endpoint
	searchURL.Path = c.endpoint.Path + "/documents/search"
	searchURL.RawQuery = params.Encode()

	var page PageResponse
	if err := c.getJSON(ctx, searchURL.String(), &page); err != nil {
		return nil, err
	}
	if page.Results == nil {
		return nil, fmt.Errorf("%w: search response has no results field", ErrMalformedResponse)
	}

	c.log.Debug().
		Str("q", params.Get("q")).
		Int("results", len(page.Results)).
		Bool("has_next", page.NextPage != nil).
		Msg("Query completed")

	return &page, nil
}

// GetByUID fetches one document by its unique identifier
func (c *HTTPClient) GetByUID(ctx context.Context, docType, uid string, opts QueryOptions) (*Record, error) {
	opts.PageSize = 1
	opts.Page = 0
	page, err := c.Query(ctx, []Predicate{At(fmt.Sprintf("my.%s.uid", docType), uid)}, opts)
	if err != nil {
		return nil, err
	}
	if len(page.Results) == 0 {
		return nil, fmt.Errorf("%s %q: %w", docType, uid, ErrNotFound)
	}
	return &page.Results[0], nil
}

// FetchPage requests the cursor URL without rewriting it, apart from adding
// the access token the service leaves out of next_page links.
func (c *HTTPClient) FetchPage(ctx context.Context, cursor string) (*PageResponse, error) {
	u, err := url.Parse(cursor)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor: %w", err)
	}
	if c.accessToken != "" && u.Query().Get("access_token") == "" {
		q := u.Query()
		q.Set("access_token", c.accessToken)
		u.RawQuery = q.Encode()
	}

	var page PageResponse
	if err := c.getJSON(ctx, u.String(), &page); err != nil {
		return nil, err
	}
	if page.Results == nil {
		return nil, fmt.Errorf("%w: page response has no results field", ErrMalformedResponse)
	}
	return &page, nil
}

// Invalidate forgets the cached master ref so the next call sees freshly
// published content.
func (c *HTTPClient) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ref = ""
	c.refFetched = time.Time{}
	return nil
}

func (c *HTTPClient) masterRef(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.ref != "" && c.now().Sub(c.refFetched) < refTTL {
		ref := c.ref
		c.mu.Unlock()
		return ref, nil
	}
	c.mu.Unlock()

	entryURL := *c.endpoint
	if c.accessToken != "" {
		q := entryURL.Query()
		q.Set("access_token", c.accessToken)
		entryURL.RawQuery = q.Encode()
	}

	var entry apiEntry
	if err := c.getJSON(ctx, entryURL.String(), &entry); err != nil {
		return "", fmt.Errorf("resolving master ref: %w", err)
	}

	for _, r := range entry.Refs {
		if r.IsMasterRef && r.Ref != "" {
			c.mu.Lock()
			c.ref = r.Ref
			c.refFetched = c.now()
			c.mu.Unlock()
			return r.Ref, nil
		}
	}
	return "", fmt.Errorf("%w: api entry point lists no master ref", ErrMalformedResponse)
}

func (c *HTTPClient) getJSON(ctx context.Context, target string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("requesting content service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("reading content service response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Body: truncate(string(body), 256)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
