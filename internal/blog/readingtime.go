package blog

import (
	"strings"

	"github.com/spacetraveling/internal/models"
)

// WordsPerMinute is the reading speed used for estimates
const WordsPerMinute = 200

// ReadingMinutes estimates how long the sections take to read, rounded up.
// Any article takes at least one minute.
func ReadingMinutes(sections []models.Section) int {
	words := 0
	for _, s := range sections {
		words += len(strings.Fields(s.Heading))
		for _, p := range s.Body {
			words += len(strings.Fields(p))
		}
	}

	minutes := (words + WordsPerMinute - 1) / WordsPerMinute
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}
