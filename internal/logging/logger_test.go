package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFanoutRespectsLevels(t *testing.T) {
	var infoBuf, errBuf bytes.Buffer
	h := fanout{
		slog.NewTextHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&errBuf, &slog.HandlerOptions{Level: slog.LevelError}),
	}
	logger := slog.New(h).With(slog.String("stage", "tokenize"))

	logger.Info("[Test] hello")
	logger.Error("[Test] failed")

	if !strings.Contains(infoBuf.String(), "hello") || !strings.Contains(infoBuf.String(), "failed") {
		t.Errorf("info handler missed records: %q", infoBuf.String())
	}
	if strings.Contains(errBuf.String(), "hello") {
		t.Errorf("error handler should drop info records: %q", errBuf.String())
	}
	if !strings.Contains(errBuf.String(), "stage=tokenize") {
		t.Errorf("attrs not propagated: %q", errBuf.String())
	}
	if h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug should be disabled for both handlers")
	}
}
