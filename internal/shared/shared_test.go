package shared

import (
	"bytes"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase passthrough", "workout", "workout"},
		{"spaces to hyphens", "Deep Work", "deep-work"},
		{"emoji stripped", "🧠 Deep Work", "deep-work"},
		{"punctuation collapsed", "Late Night... Drive!!", "late-night-drive"},
		{"leading trailing trimmed", "  Chill  ", "chill"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slugify(tt.in); got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "0:00"},
		{59, "0:59"},
		{225, "3:45"},
		{3750, "1:02:30"},
		{-5, "0:00"},
	}

	for _, tt := range tests {
		if got := FormatDuration(tt.seconds); got != tt.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestGenerateID(t *testing.T) {
	a := GenerateID()
	b := GenerateID()
	if a == "" || b == "" {
		t.Fatal("expected non-empty IDs")
	}
	if a == b {
		t.Error("expected unique IDs")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf)
	logger.Info("hello")
	if buf.Len() == 0 {
		t.Error("expected log output")
	}

	if NewLogger(nil) == nil {
		t.Error("nil writer should fall back to stderr")
	}
}
