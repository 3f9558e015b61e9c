package slogcustom

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestHandlerWritesAttrsAndFiltersLevel(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelInfo).With("component", "quiz")

	logger.Debug("hidden")
	logger.Info("attempt opened", "attempt", "a1")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug record should be filtered: %q", out)
	}
	for _, want := range []string{"INFO:", "attempt opened", "component=quiz", "attempt=a1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}
