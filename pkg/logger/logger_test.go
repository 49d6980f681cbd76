package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("no log output")
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("decode %q: %v", line, err)
	}
	return m
}

func TestFieldsAreWritten(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, "debug")

	l.Info("fetch finished",
		String("coin", "bitcoin"),
		Int("days", 7),
		Int64("bucket", 1888889),
		Float64("price", 65000.5),
		Bool("shared", true),
		Duration("elapsed", 1500*time.Millisecond),
		Strings("brokers", []string{"a:9092", "b:9092"}),
		Error(errors.New("boom")),
	)

	m := decodeLine(t, &buf)
	tests := []struct {
		key  string
		want interface{}
	}{
		{"level", "info"},
		{"message", "fetch finished"},
		{"coin", "bitcoin"},
		{"days", float64(7)},
		{"bucket", float64(1888889)},
		{"price", 65000.5},
		{"shared", true},
		{"elapsed", float64(1500)},
		{"brokers", "a:9092, b:9092"},
		{"error", "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := m[tt.key]; got != tt.want {
				t.Errorf("%s = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, "warn")

	l.Debug("hidden")
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("unexpected output: %s", buf.String())
	}

	l.Warn("shown")
	if m := decodeLine(t, &buf); m["level"] != "warn" {
		t.Errorf("level = %v, want warn", m["level"])
	}
}

func TestWithCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, "info").With(String("component", "refresher"))

	l.Error("run failed", Int("failed", 2))

	m := decodeLine(t, &buf)
	if m["component"] != "refresher" {
		t.Errorf("component = %v", m["component"])
	}
	if m["failed"] != float64(2) {
		t.Errorf("failed = %v", m["failed"])
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New(&Config{Level: "loud"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := New(&Config{Level: "info", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Info("started")
}

func TestNopDiscards(t *testing.T) {
	l := NewNop()
	l.Info("nothing")
	l.With(String("k", "v")).Error("nothing")
}
