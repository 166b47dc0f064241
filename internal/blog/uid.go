package blog

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/spacetraveling/internal/validation"
)

var (
	// ErrInvalidUID is returned for path segments that cannot name a post
	ErrInvalidUID = errors.New("invalid post identifier")

	repeatedHyphens = regexp.MustCompile(`-+`)
)

// NormalizeUID turns a requested path segment into the canonical uid form:
// lowercase, accents stripped, spaces as hyphens.
func NormalizeUID(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if strings.ContainsAny(trimmed, "/\\?&:#'\"") || strings.Contains(trimmed, "..") {
		return "", ErrInvalidUID
	}

	// transformers carry state, so one per call
	stripper := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if stripped, _, err := transform.String(stripper, trimmed); err == nil {
		trimmed = stripped
	}
	trimmed = strings.ToLower(trimmed)
	trimmed = strings.ReplaceAll(trimmed, " ", "-")
	trimmed = repeatedHyphens.ReplaceAllString(trimmed, "-")
	trimmed = strings.Trim(trimmed, "-")

	if !validation.ValidUID(trimmed) {
		return "", ErrInvalidUID
	}
	return trimmed, nil
}
