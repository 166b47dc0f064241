package blog

import (
	"fmt"
	"strings"
	"time"

	"github.com/spacetraveling/internal/content"
	"github.com/spacetraveling/internal/models"
	"github.com/spacetraveling/internal/validation"
)

// Normalizer maps raw content-service records into article models
type Normalizer struct {
	validator *validation.Validator
}

// NewNormalizer creates a Normalizer that rejects records failing v
func NewNormalizer(v *validation.Validator) *Normalizer {
	return &Normalizer{validator: v}
}

// Summary maps a record into a listing entry
func (n *Normalizer) Summary(rec *content.Record) (models.ArticleSummary, error) {
	if err := n.validator.CheckSummary(rec); err != nil {
		return models.ArticleSummary{}, err
	}

	first, err := parseOptionalDate(rec.FirstPublicationDate)
	if err != nil {
		return models.ArticleSummary{}, err
	}

	return models.ArticleSummary{
		UID:                  rec.UID,
		FirstPublicationDate: first,
		Title:                strings.TrimSpace(rec.Data.Title),
		Subtitle:             strings.TrimSpace(rec.Data.Subtitle),
		Author:               strings.TrimSpace(rec.Data.Author),
	}, nil
}

// Summaries maps every record of a page, in order
func (n *Normalizer) Summaries(records []content.Record) ([]models.ArticleSummary, error) {
	out := make([]models.ArticleSummary, 0, len(records))
	for i := range records {
		s, err := n.Summary(&records[i])
		if err != nil {
			return nil, fmt.Errorf("result %d: %w", i, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// Detail maps a record into a full article and estimates its reading time
func (n *Normalizer) Detail(rec *content.Record) (models.ArticleDetail, error) {
	if err := n.validator.CheckDetail(rec); err != nil {
		return models.ArticleDetail{}, err
	}

	first, err := parseOptionalDate(rec.FirstPublicationDate)
	if err != nil {
		return models.ArticleDetail{}, err
	}
	last, err := parseOptionalDate(rec.LastPublicationDate)
	if err != nil {
		return models.ArticleDetail{}, err
	}

	sections := make([]models.Section, 0, len(rec.Data.Content))
	for _, group := range rec.Data.Content {
		section := models.Section{Heading: strings.TrimSpace(group.Heading)}
		for _, block := range group.Body {
			// blank blocks are editor artifacts
			if text := strings.TrimSpace(block.Text); text != "" {
				section.Body = append(section.Body, text)
			}
		}
		sections = append(sections, section)
	}

	detail := models.ArticleDetail{
		UID:                  rec.UID,
		FirstPublicationDate: first,
		LastPublicationDate:  last,
		Title:                strings.TrimSpace(rec.Data.Title),
		Subtitle:             strings.TrimSpace(rec.Data.Subtitle),
		Banner:               models.Image{URL: rec.Data.Banner.URL, Alt: rec.Data.Banner.Alt},
		Author:               strings.TrimSpace(rec.Data.Author),
		Sections:             sections,
	}
	detail.ReadingMinutes = ReadingMinutes(detail.Sections)
	return detail, nil
}

func parseOptionalDate(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	t, err := content.ParseDate(*raw)
	if err != nil {
		return nil, fmt.Errorf("%w: date %q: %v", content.ErrMalformedResponse, *raw, err)
	}
	return &t, nil
}
