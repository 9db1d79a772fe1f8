package main

import (
	"testing"

	"github.com/bendsql/bendsql-go/internal/logger"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want logger.Level
	}{
		{"debug", logger.LevelDebug},
		{"DEBUG", logger.LevelDebug},
		{"error", logger.LevelError},
		{"info", logger.LevelInfo},
		{"", logger.LevelInfo},
		{"garbage", logger.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPromptFor(t *testing.T) {
	if got := promptFor("{database}> "); got != "> " {
		t.Errorf("promptFor template substitution = %q, want %q", got, "> ")
	}
}
