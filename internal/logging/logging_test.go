package logging

import (
	"context"
	"io"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
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

func TestFromCtx(t *testing.T) {
	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	if got := FromCtx(WithCtx(context.Background(), l)); got != l {
		t.Fatal("logger not carried by context")
	}
	if FromCtx(context.Background()) == nil {
		t.Fatal("missing fallback logger")
	}
}
