package content

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrNotFound is returned when no document matches a unique identifier
	ErrNotFound = errors.New("document not found")
	// ErrMalformedResponse is returned when a response body cannot be decoded
	ErrMalformedResponse = errors.New("malformed content service response")
)

// Client is the content-service collaborator shared by both page flows
type Client interface {
	// Query runs a search and returns one page of results
	Query(ctx context.Context, predicates []Predicate, opts QueryOptions) (*PageResponse, error)
	// GetByUID returns the single document of docType with the given uid
	GetByUID(ctx context.Context, docType, uid string, opts QueryOptions) (*Record, error)
	// FetchPage follows a next_page cursor exactly as it was handed out
	FetchPage(ctx context.Context, cursor string) (*PageResponse, error)
}

// Invalidator is implemented by clients holding state derived from the
// currently published content.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// StatusError is returned for non-2xx responses
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("content service returned status %d: %s", e.Code, e.Body)
}

// Predicate is a single query predicate, e.g. at(document.type, "posts")
type Predicate struct {
	Op     string
	Path   string
	Values []string
}

// At matches documents whose path equals value
func At(path, value string) Predicate {
	return Predicate{Op: "at", Path: path, Values: []string{value}}
}

func (p Predicate) String() string {
	quoted := make([]string, len(p.Values))
	for i, v := range p.Values {
		quoted[i] = strconv.Quote(v)
	}
	return fmt.Sprintf("[%s(%s, %s)]", p.Op, p.Path, strings.Join(quoted, ", "))
}

// QueryOptions are the search options understood by the service
type QueryOptions struct {
	PageSize  int
	Page      int
	Orderings string
	Lang      string
}

// encodeQuery renders predicates into the q parameter format
func encodeQuery(predicates []Predicate) string {
	var b strings.Builder
	b.WriteString("[")
	for _, p := range predicates {
		b.WriteString(p.String())
	}
	b.WriteString("]")
	return b.String()
}
