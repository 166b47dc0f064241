package mocks

import (
	"github.com/spacetraveling/internal/content"
)

// ContentEndpoint is the content API used throughout the tests
const ContentEndpoint = "https://spacetraveling.cdn.prismic.io/api/v2"

// PublishedAt is the publication date of every fixture post
const PublishedAt = "2021-03-25T19:25:28+0000"

// PostRecord returns a minimal valid post document
func PostRecord(uid, title string) content.Record {
	published := PublishedAt
	return content.Record{
		ID:                   "id-" + uid,
		UID:                  uid,
		Type:                 "posts",
		FirstPublicationDate: &published,
		LastPublicationDate:  &published,
		Data: content.RecordData{
			Title:    title,
			Subtitle: "Subtitle of " + title,
			Author:   "Joseph Oliveira",
			Content: []content.ContentGroup{
				{Heading: "Intro", Body: []content.RichTextBlock{{Type: "paragraph", Text: "Some words."}}},
			},
		},
	}
}

// HelloWorld returns the two section post used by the detail tests
func HelloWorld() content.Record {
	rec := PostRecord("hello-world", "Hello World")
	rec.Data.Banner = content.ImageField{URL: "https://images.prismic.io/spacetraveling/banner.png", Alt: "banner"}
	rec.Data.Content = []content.ContentGroup{
		{
			Heading: "Proin et varius",
			Body: []content.RichTextBlock{
				{Type: "paragraph", Text: "Lorem ipsum dolor sit amet."},
				{Type: "paragraph", Text: "Nullam dolor sapien."},
			},
		},
		{
			Heading: "Cras laoreet mi",
			Body: []content.RichTextBlock{
				{Type: "paragraph", Text: "Ut varius quis velit sed cursus."},
			},
		},
	}
	return rec
}

// PageOf builds a search response; an empty next means no next page
func PageOf(next string, records ...content.Record) *content.PageResponse {
	page := &content.PageResponse{
		Page:        1,
		ResultsSize: len(records),
		Results:     append([]content.Record{}, records...),
	}
	if next != "" {
		page.NextPage = &next
	}
	return page
}
