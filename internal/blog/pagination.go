package blog

import (
	"errors"
	"net/url"
	"strconv"

	"github.com/spacetraveling/internal/models"
)

var (
	// ErrExhausted is returned when loading past the last page
	ErrExhausted = errors.New("no more pages to load")
	// ErrStaleCursor is returned for a page fetched from a cursor the state
	// has already moved past
	ErrStaleCursor = errors.New("page was fetched from a stale cursor")
)

// Page is one batch of normalized posts together with the cursor it was
// fetched from and the cursor that follows it.
type Page struct {
	Cursor   string
	Posts    []models.ArticleSummary
	NextPage string
}

// Initial builds the state of the first page
func Initial(posts []models.ArticleSummary, nextPage string) models.PaginationState {
	return models.PaginationState{
		Posts:    appendUnique(nil, nil, posts),
		NextPage: nextPage,
	}
}

// Append returns a new state with page's posts added at the tail and the
// cursor replaced by page's. state is left untouched. Posts whose uid is
// already listed are skipped.
func Append(state models.PaginationState, page Page) (models.PaginationState, error) {
	if !state.HasMore() {
		return state, ErrExhausted
	}
	if page.Cursor != state.NextPage {
		return state, ErrStaleCursor
	}

	seen := make(map[string]struct{}, len(state.Posts)+len(page.Posts))
	for _, p := range state.Posts {
		seen[p.UID] = struct{}{}
	}

	posts := make([]models.ArticleSummary, len(state.Posts), len(state.Posts)+len(page.Posts))
	copy(posts, state.Posts)

	return models.PaginationState{
		Posts:    appendUnique(posts, seen, page.Posts),
		NextPage: page.NextPage,
	}, nil
}

// Stale reports whether state already lists more posts than precede the page
// its cursor points at. A cursor replayed after its page was appended is
// stale. Cursors without page and pageSize parameters are never stale.
func Stale(state models.PaginationState) bool {
	offset, ok := cursorOffset(state.NextPage)
	return ok && len(state.Posts) > offset
}

// cursorOffset returns how many results precede the page cursor addresses
func cursorOffset(cursor string) (int, bool) {
	u, err := url.Parse(cursor)
	if err != nil {
		return 0, false
	}
	q := u.Query()
	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page < 1 {
		return 0, false
	}
	size, err := strconv.Atoi(q.Get("pageSize"))
	if err != nil || size < 1 {
		return 0, false
	}
	return (page - 1) * size, true
}

// Added returns the posts of next that are not in prev, in order
func Added(prev, next models.PaginationState) []models.ArticleSummary {
	if len(next.Posts) <= len(prev.Posts) {
		return nil
	}
	return next.Posts[len(prev.Posts):]
}

func appendUnique(dst []models.ArticleSummary, seen map[string]struct{}, src []models.ArticleSummary) []models.ArticleSummary {
	if seen == nil {
		seen = make(map[string]struct{}, len(src))
	}
	for _, p := range src {
		if _, dup := seen[p.UID]; dup {
			continue
		}
		seen[p.UID] = struct{}{}
		dst = append(dst, p)
	}
	return dst
}
