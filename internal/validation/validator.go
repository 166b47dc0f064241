package validation

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/spacetraveling/internal/content"
)

var uidRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_\-]*$`)

// ErrForeignCursor is returned for cursors that do not point at the content service
var ErrForeignCursor = errors.New("cursor does not belong to the content service")

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// RecordError reports every problem found in one record. It unwraps to
// content.ErrMalformedResponse.
type RecordError struct {
	UID    string
	Errors []ValidationError
}

func (e *RecordError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, v := range e.Errors {
		parts[i] = v.Field + ": " + v.Message
	}
	return fmt.Sprintf("record %q is invalid: %s", e.UID, strings.Join(parts, "; "))
}

func (e *RecordError) Unwrap() error {
	return content.ErrMalformedResponse
}

// Validator checks records coming from the content service
type Validator struct {
	endpoint *url.URL
}

// NewValidator creates a validator. Cursors are only accepted on the host
// and scheme of apiEndpoint.
func NewValidator(apiEndpoint string) *Validator {
	u, err := url.Parse(apiEndpoint)
	if err != nil {
		u = &url.URL{}
	}
	return &Validator{endpoint: u}
}

// ValidateSummary validates the fields a listing entry needs
func (v *Validator) ValidateSummary(rec *content.Record) []ValidationError {
	var errs []ValidationError

	if rec.UID == "" {
		errs = append(errs, ValidationError{Field: "uid", Message: "uid is required"})
	} else if !uidRegex.MatchString(rec.UID) {
		errs = append(errs, ValidationError{Field: "uid", Message: "uid must be lowercase letters, numbers, hyphens or underscores", Value: rec.UID})
	}

	if strings.TrimSpace(rec.Data.Title) == "" {
		errs = append(errs, ValidationError{Field: "data.title", Message: "title is required"})
	}

	errs = append(errs, validateDate("first_publication_date", rec.FirstPublicationDate)...)

	return errs
}

// ValidateDetail validates a full post document
func (v *Validator) ValidateDetail(rec *content.Record) []ValidationError {
	errs := v.ValidateSummary(rec)
	errs = append(errs, validateDate("last_publication_date", rec.LastPublicationDate)...)

	if rec.Data.Banner.URL != "" {
		u, err := url.Parse(rec.Data.Banner.URL)
		if err != nil || !u.IsAbs() {
			errs = append(errs, ValidationError{Field: "data.banner.url", Message: "banner url must be absolute", Value: rec.Data.Banner.URL})
		}
	}

	for i, group := range rec.Data.Content {
		if strings.TrimSpace(group.Heading) == "" && len(group.Body) == 0 {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("data.content[%d]", i), Message: "section has neither heading nor body"})
		}
	}

	return errs
}

// CheckSummary returns a *RecordError when the record cannot be listed
func (v *Validator) CheckSummary(rec *content.Record) error {
	if errs := v.ValidateSummary(rec); len(errs) > 0 {
		return &RecordError{UID: rec.UID, Errors: errs}
	}
	return nil
}

// CheckDetail returns a *RecordError when the record cannot be rendered
func (v *Validator) CheckDetail(rec *content.Record) error {
	if errs := v.ValidateDetail(rec); len(errs) > 0 {
		return &RecordError{UID: rec.UID, Errors: errs}
	}
	return nil
}

// ValidateCursor accepts only absolute cursors on the content service origin
func (v *Validator) ValidateCursor(cursor string) error {
	u, err := url.Parse(cursor)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrForeignCursor, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%w: cursor must be an absolute url", ErrForeignCursor)
	}
	if !strings.EqualFold(u.Scheme, v.endpoint.Scheme) || !strings.EqualFold(u.Host, v.endpoint.Host) {
		return fmt.Errorf("%w: %s", ErrForeignCursor, u.Host)
	}
	if u.User != nil {
		return fmt.Errorf("%w: cursor carries credentials", ErrForeignCursor)
	}
	return nil
}

// ValidUID reports whether s has the shape of a document uid
func ValidUID(s string) bool {
	return uidRegex.MatchString(s)
}

func validateDate(field string, raw *string) []ValidationError {
	if raw == nil {
		return nil
	}
	if _, err := content.ParseDate(*raw); err != nil {
		return []ValidationError{{Field: field, Message: "invalid ISO 8601 date format", Value: *raw}}
	}
	return nil
}
