package logger

import (
	"context"
	"log/slog"
	"testing"
)

func TestInitWithLevel(t *testing.T) {
	t.Setenv("CHARCHAT_LOG_LEVEL", "")
	t.Setenv("CHARCHAT_LOG_SINK", "")
	cases := []struct {
		level   string
		enabled slog.Level
		muted   slog.Level
	}{
		{"debug", slog.LevelDebug, slog.LevelDebug - 4},
		{"info", slog.LevelInfo, slog.LevelDebug},
		{"warn", slog.LevelWarn, slog.LevelInfo},
		{"error", slog.LevelError, slog.LevelWarn},
		{"", slog.LevelInfo, slog.LevelDebug},
		{"bogus", slog.LevelInfo, slog.LevelDebug},
	}
	for _, tc := range cases {
		InitWithLevel(tc.level)
		if Log == nil {
			t.Fatalf("%q: logger not initialized", tc.level)
		}
		if !Log.Enabled(context.Background(), tc.enabled) {
			t.Fatalf("%q: level %v should be enabled", tc.level, tc.enabled)
		}
		if Log.Enabled(context.Background(), tc.muted) {
			t.Fatalf("%q: level %v should be muted", tc.level, tc.muted)
		}
	}
}
