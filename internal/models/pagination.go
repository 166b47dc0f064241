package models

// PaginationState is the listing as shown to a reader: the posts loaded so far
// and the cursor of the next page. An empty NextPage means there is nothing
// left to load.
type PaginationState struct {
	Posts    []ArticleSummary `json:"results"`
	NextPage string           `json:"next_page"`
}

// HasMore reports whether a next page can be requested
func (s PaginationState) HasMore() bool {
	return s.NextPage != ""
}

// UIDs returns the identifiers of the loaded posts in order
func (s PaginationState) UIDs() []string {
	ids := make([]string, len(s.Posts))
	for i, p := range s.Posts {
		ids[i] = p.UID
	}
	return ids
}
