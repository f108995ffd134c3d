package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	log := New("info", &buf)

	log.Info("trial evaluated", "iteration", 3, "objective", 0.61)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "trial evaluated" {
		t.Fatalf("expected msg 'trial evaluated', got %v", entry["msg"])
	}
	if entry["iteration"] != float64(3) {
		t.Fatalf("expected iteration 3, got %v", entry["iteration"])
	}
}

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		wantDebug bool
	}{
		{name: "debug level passes debug", level: "debug", wantDebug: true},
		{name: "info level drops debug", level: "info", wantDebug: false},
		{name: "warn level drops debug", level: "warn", wantDebug: false},
		{name: "unknown level defaults to info", level: "bogus", wantDebug: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := NewText(tt.level, &buf)
			log.Debug("debug message")
			got := strings.Contains(buf.String(), "debug message")
			if got != tt.wantDebug {
				t.Fatalf("level %s: debug logged = %v, want %v", tt.level, got, tt.wantDebug)
			}
		})
	}
}

func TestSetDefault(t *testing.T) {
	old := Default
	defer SetDefault(old)

	var buf bytes.Buffer
	SetDefault(NewText("info", &buf))

	Info("hello", "key", "value")
	if !strings.Contains(buf.String(), "hello") {
		t.Fatalf("expected default logger to receive message, got %q", buf.String())
	}
}
