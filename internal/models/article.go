package models

import (
	"time"
)

// ArticleSummary is the listing view of a post
type ArticleSummary struct {
	UID                  string     `json:"uid"`
	FirstPublicationDate *time.Time `json:"first_publication_date"`
	Title                string     `json:"title"`
	Subtitle             string     `json:"subtitle"`
	Author               string     `json:"author"`
}

// Image is a media reference returned by the content service
type Image struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

// Section is one heading of a post followed by its paragraphs
type Section struct {
	Heading string   `json:"heading"`
	Body    []string `json:"body"`
}

// ArticleDetail is the full post as rendered on its own page
type ArticleDetail struct {
	UID                  string     `json:"uid"`
	FirstPublicationDate *time.Time `json:"first_publication_date"`
	LastPublicationDate  *time.Time `json:"last_publication_date,omitempty"`
	Title                string     `json:"title"`
	Subtitle             string     `json:"subtitle,omitempty"`
	Banner               Image      `json:"banner"`
	Author               string     `json:"author"`
	Sections             []Section  `json:"content"`
	ReadingMinutes       int        `json:"reading_minutes"`
}

// Summary projects the detail down to its listing fields
func (a ArticleDetail) Summary() ArticleSummary {
	return ArticleSummary{
		UID:                  a.UID,
		FirstPublicationDate: a.FirstPublicationDate,
		Title:                a.Title,
		Subtitle:             a.Subtitle,
		Author:               a.Author,
	}
}
