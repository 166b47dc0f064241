package render

import (
	"encoding/xml"
	"io"
	"strings"
	"time"

	"github.com/spacetraveling/internal/models"
)

type rssDocument struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	Language      string    `xml:"language,omitempty"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	GUID        string `xml:"guid"`
	Description string `xml:"description,omitempty"`
	Creator     string `xml:"http://purl.org/dc/elements/1.1/ creator,omitempty"`
	PubDate     string `xml:"pubDate,omitempty"`
}

// Feed writes an RSS 2.0 document listing posts in the given order
func (r *Renderer) Feed(w io.Writer, posts []models.ArticleSummary, builtAt time.Time) error {
	base := strings.TrimSuffix(r.site.BaseURL, "/")

	doc := rssDocument{
		Version: "2.0",
		Channel: rssChannel{
			Title:         r.site.Title,
			Link:          base + "/",
			Description:   r.site.Title,
			Language:      strings.ToLower(r.site.Locale),
			LastBuildDate: builtAt.UTC().Format(time.RFC1123Z),
		},
	}

	for _, p := range posts {
		link := base + models.PostPath(p.UID)
		item := rssItem{
			Title:       p.Title,
			Link:        link,
			GUID:        link,
			Description: p.Subtitle,
			Creator:     p.Author,
		}
		if p.FirstPublicationDate != nil {
			item.PubDate = p.FirstPublicationDate.UTC().Format(time.RFC1123Z)
		}
		doc.Channel.Items = append(doc.Channel.Items, item)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Flush()
}
