package content

import "time"

// Record is a document as returned by the content service, before it is
// mapped into the article models.
type Record struct {
	ID                   string     `json:"id"`
	UID                  string     `json:"uid"`
	Type                 string     `json:"type"`
	FirstPublicationDate *string    `json:"first_publication_date"`
	LastPublicationDate  *string    `json:"last_publication_date"`
	Data                 RecordData `json:"data"`
}

// RecordData holds the custom fields of a post document
type RecordData struct {
	Title    string         `json:"title"`
	Subtitle string         `json:"subtitle"`
	Author   string         `json:"author"`
	Banner   ImageField     `json:"banner"`
	Content  []ContentGroup `json:"content"`
}

// ImageField is an image field; every attribute is optional
type ImageField struct {
	URL string `json:"url"`
	Alt string `json:"alt"`
}

// ContentGroup is one repeatable group of the post body
type ContentGroup struct {
	Heading string          `json:"heading"`
	Body    []RichTextBlock `json:"body"`
}

// RichTextBlock is a single block of a rich text field. Spans are ignored;
// only the plain text is rendered.
type RichTextBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// PageResponse is the paginated search response
type PageResponse struct {
	Page             int      `json:"page"`
	ResultsPerPage   int      `json:"results_per_page"`
	ResultsSize      int      `json:"results_size"`
	TotalResultsSize int      `json:"total_results_size"`
	TotalPages       int      `json:"total_pages"`
	NextPage         *string  `json:"next_page"`
	PrevPage         *string  `json:"prev_page"`
	Results          []Record `json:"results"`
}

// Next returns the next page cursor, or "" once the results are exhausted
func (p *PageResponse) Next() string {
	if p == nil || p.NextPage == nil {
		return ""
	}
	return *p.NextPage
}

// apiEntry is the subset of the API entry point we need to pick a ref
type apiEntry struct {
	Refs []struct {
		ID          string `json:"id"`
		Ref         string `json:"ref"`
		Label       string `json:"label"`
		IsMasterRef bool   `json:"isMasterRef"`
	} `json:"refs"`
}

// Date layouts accepted for publication timestamps; the service emits the
// first one.
var dateLayouts = []string{
	"2006-01-02T15:04:05-0700",
	time.RFC3339,
}

// ParseDate parses a publication timestamp
func ParseDate(raw string) (time.Time, error) {
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
