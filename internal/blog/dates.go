package blog

import (
	"fmt"
	"strings"
	"time"
)

var monthAbbrev = map[string][12]string{
	"pt-br": {"jan", "fev", "mar", "abr", "mai", "jun", "jul", "ago", "set", "out", "nov", "dez"},
	"en-us": {"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
}

// FormatDate renders t as "dd MMM yyyy" with the month abbreviated for
// locale. Unknown locales use pt-BR; a nil time renders as "".
func FormatDate(t *time.Time, locale string) string {
	if t == nil {
		return ""
	}
	months, ok := monthAbbrev[strings.ToLower(locale)]
	if !ok {
		months = monthAbbrev["pt-br"]
	}
	return fmt.Sprintf("%02d %s %d", t.Day(), months[t.Month()-1], t.Year())
}
