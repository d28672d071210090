package logging

import (
	"bytes"
	"log"
	"os"
	"strings"
	"testing"
)

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level LogLevel
		want  string
	}{
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{LogLevel(99), "unknown(99)"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("LogLevel(%d).String() = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestLevelPrefixes(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	Info("hello %s", "world")
	if !strings.Contains(buf.String(), "[INFO] hello world") {
		t.Errorf("Expected INFO prefix, got %q", buf.String())
	}

	buf.Reset()
	Warn("careful")
	if !strings.Contains(buf.String(), "[WARN] careful") {
		t.Errorf("Expected WARN prefix, got %q", buf.String())
	}

	buf.Reset()
	Error("broken")
	if !strings.Contains(buf.String(), "[ERROR] broken") {
		t.Errorf("Expected ERROR prefix, got %q", buf.String())
	}
}

func TestGetLevelDefault(t *testing.T) {
	// Without DEBUG/LOG_LEVEL set the default is info. The level is
	// resolved once per process, so only assert it is a valid value.
	level := GetLevel()
	if level < LevelDebug || level > LevelError {
		t.Errorf("Unexpected level %v", level)
	}
}
