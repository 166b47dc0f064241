package blog

import (
	"testing"
	"time"
)

func TestFormatDate(t *testing.T) {
	d := time.Date(2021, 3, 25, 19, 25, 28, 0, time.UTC)
	early := time.Date(2021, 2, 5, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		t      *time.Time
		locale string
		want   string
	}{
		{"pt-BR", &d, "pt-BR", "25 mar 2021"},
		{"pt-BR padded day", &early, "pt-BR", "05 fev 2021"},
		{"en-US", &d, "en-US", "25 Mar 2021"},
		{"unknown locale", &early, "de-DE", "05 fev 2021"},
		{"nil", nil, "pt-BR", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDate(tt.t, tt.locale); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}
