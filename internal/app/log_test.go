package app

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"rgit-go/internal/config"
)

func TestTSVHandler_Handle(t *testing.T) {
	ts := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name    string
		opID    string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "basic info message",
			opID:    "op-123",
			level:   slog.LevelInfo,
			message: "commit created",
			want:    "2024-06-15T14:30:45Z\tINFO\top-123\tcommit created\n",
		},
		{
			name:    "warn level",
			opID:    "op-456",
			level:   slog.LevelWarn,
			message: "commit rejected: branch tip moved",
			want:    "2024-06-15T14:30:45Z\tWARN\top-456\tcommit rejected: branch tip moved\n",
		},
		{
			name:    "with record attrs",
			opID:    "op-789",
			level:   slog.LevelInfo,
			message: "branch created",
			attrs:   []slog.Attr{slog.String("branch", "google-swe"), slog.Int("depth", 3)},
			want:    "2024-06-15T14:30:45Z\tINFO\top-789\tbranch created\tbranch=google-swe\tdepth=3\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := &tsvHandler{w: &buf, opID: tt.opID}

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			r.AddAttrs(tt.attrs...)

			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}
			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() output =\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestTSVHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := &tsvHandler{w: &buf, opID: "op-1", attrs: []slog.Attr{slog.String("a", "1")}}

	h2 := h.WithAttrs([]slog.Attr{slog.String("resume", "r-1")}).(*tsvHandler)
	if len(h.attrs) != 1 {
		t.Errorf("original handler attrs modified: got %d, want 1", len(h.attrs))
	}

	r := slog.NewRecord(time.Now(), slog.LevelInfo, "edit", 0)
	r.AddAttrs(slog.String("branch", "main"))
	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "\ta=1\tresume=r-1\tbranch=main\n") {
		t.Errorf("expected preset attrs before record attrs, got: %q", got)
	}
}

func TestTSVHandler_Enabled(t *testing.T) {
	h := &tsvHandler{level: slog.LevelWarn}
	ctx := context.Background()

	if h.Enabled(ctx, slog.LevelInfo) {
		t.Errorf("Enabled(INFO) = true at WARN level")
	}
	if !h.Enabled(ctx, slog.LevelError) {
		t.Errorf("Enabled(ERROR) = false at WARN level")
	}
	if !(&tsvHandler{}).Enabled(ctx, slog.LevelDebug) {
		t.Errorf("handler without level should enable everything")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"WARN", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", 0, true},
	}
	for _, tt := range tests {
		got, err := parseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLoggerTo_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLoggerTo(config.LogConfig{Format: "json", Level: "info"}, &buf, "op-7")
	if err != nil {
		t.Fatalf("newLoggerTo() error = %v", err)
	}

	logger.Debug("hidden")
	logger.Info("commit created", "resume", "r-1", "depth", 2)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	want := map[string]any{
		"level":   "info",
		"message": "commit created",
		"service": "rgit",
		"op":      "op-7",
		"resume":  "r-1",
		"depth":   float64(2),
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("entry[%q] = %v, want %v", k, entry[k], v)
		}
	}
	if _, ok := entry["time"]; !ok {
		t.Errorf("entry has no timestamp: %v", entry)
	}
}

func TestNewLoggerTo_Errors(t *testing.T) {
	var buf bytes.Buffer
	if _, err := newLoggerTo(config.LogConfig{Format: "xml"}, &buf, "op"); err == nil {
		t.Errorf("expected error for unknown format")
	}
	if _, err := newLoggerTo(config.LogConfig{Format: "json", Level: "loud"}, &buf, "op"); err == nil {
		t.Errorf("expected error for unknown json level")
	}
	if _, err := newLoggerTo(config.LogConfig{Format: "text", Level: "loud"}, &buf, "op"); err == nil {
		t.Errorf("expected error for unknown text level")
	}
}

func TestNewLogger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "log")

	logger, f, err := newLogger(config.LogConfig{}, dir, "test-op")
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	logger.Info("resume created", "resume", "r-1")
	f.Close()

	data, err := os.ReadFile(filepath.Join(dir, "rgit.log"))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "\ttest-op\tresume created\tresume=r-1\n") {
		t.Errorf("unexpected log file content: %q", data)
	}
}
