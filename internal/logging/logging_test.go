package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestHandlerForFormats(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(handlerFor(&buf, "info", "json"))
	logger.Info("cycle finished", "saved", 12)
	if !strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
		t.Fatalf("json format must emit JSON lines, got %q", buf.String())
	}

	buf.Reset()
	logger = slog.New(handlerFor(&buf, "info", "text"))
	logger.Info("cycle finished")
	if strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
		t.Fatalf("text format must not emit JSON, got %q", buf.String())
	}
}

func TestForComponentTagsRecords(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	parent := slog.New(handlerFor(&buf, "debug", "text"))
	ForComponent(parent, "scrape").Info("fetching page")
	if !strings.Contains(buf.String(), "component=scrape") {
		t.Fatalf("expected component attribute, got %q", buf.String())
	}

	// A nil parent must stay usable without output.
	ForComponent(nil, "ranking").Error("discarded")
}

func TestLevelFromString(t *testing.T) {
	t.Parallel()

	cases := map[string]slog.Level{
		"error":   slog.LevelError,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		" info ":  slog.LevelInfo,
		"":        slog.LevelDebug,
		"trace":   slog.LevelDebug,
	}
	for in, want := range cases {
		if got := levelFromString(in); got != want {
			t.Fatalf("levelFromString(%q) = %v, want %v", in, got, want)
		}
	}
}
