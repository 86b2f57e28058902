package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dpc-go/internal/config"
)

func TestDpcHandler_Handle(t *testing.T) {
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
			message: "directory scanned",
			want:    "2024-06-15T14:30:45Z\tINFO\top-123\tdirectory scanned\n",
		},
		{
			name:    "debug level",
			opID:    "op-456",
			level:   slog.LevelDebug,
			message: "scanning directory",
			want:    "2024-06-15T14:30:45Z\tDEBUG\top-456\tscanning directory\n",
		},
		{
			name:    "with record attrs",
			opID:    "op-789",
			level:   slog.LevelInfo,
			message: "directory scanned",
			attrs:   []slog.Attr{slog.String("path", "/docs"), slog.Int("added", 42)},
			want:    "2024-06-15T14:30:45Z\tINFO\top-789\tdirectory scanned\tpath=/docs\tadded=42\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := &dpcHandler{w: &buf, opID: tt.opID}

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

func TestDpcHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := &dpcHandler{w: &buf, opID: "op-1", attrs: []slog.Attr{slog.String("a", "1")}}

	h2 := h.WithAttrs([]slog.Attr{slog.String("component", "vault")}).(*dpcHandler)
	if len(h.attrs) != 1 {
		t.Errorf("original handler attrs modified: got %d, want 1", len(h.attrs))
	}

	r := slog.NewRecord(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), slog.LevelInfo, "upload", 0)
	r.AddAttrs(slog.String("key", "abc"))
	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	got := buf.String()
	for _, want := range []string{"a=1", "component=vault", "key=abc"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %s in output, got: %q", want, got)
		}
	}
}

func TestDpcHandler_Enabled(t *testing.T) {
	all := &dpcHandler{}
	warn := &dpcHandler{level: slog.LevelWarn}

	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if !all.Enabled(context.Background(), level) {
			t.Errorf("Enabled(%v) without level = false, want true", level)
		}
		if got, want := warn.Enabled(context.Background(), level), level >= slog.LevelWarn; got != want {
			t.Errorf("Enabled(%v) with warn level = %v, want %v", level, got, want)
		}
	}
}

func TestFanoutHandler(t *testing.T) {
	var infoBuf, errBuf bytes.Buffer
	h := fanoutHandler{
		&dpcHandler{w: &infoBuf, level: slog.LevelInfo, opID: "op"},
		&dpcHandler{w: &errBuf, level: slog.LevelError, opID: "op"},
	}
	logger := slog.New(h)

	logger.Info("scanned")
	logger.Error("failed")
	logger.Debug("dropped")

	if got := strings.Count(infoBuf.String(), "\n"); got != 2 {
		t.Errorf("info handler lines = %d, want 2: %q", got, infoBuf.String())
	}
	if got := errBuf.String(); !strings.Contains(got, "failed") || strings.Contains(got, "scanned") {
		t.Errorf("error handler output = %q, want only the error record", got)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "", want: slog.LevelInfo},
		{in: "debug", want: slog.LevelDebug},
		{in: "WARN", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseLevel() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	cfg := config.LogConfig{Level: "info", MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1}
	logger, closer, err := newLogger(cfg, dir, "test-op", &console)
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}

	logger.Info("written to file only")
	logger.Warn("written to both")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "\ttest-op\twritten to file only") {
		t.Errorf("log file missing info record: %q", data)
	}
	if strings.Contains(console.String(), "written to file only") {
		t.Errorf("console got info record: %q", console.String())
	}
	if !strings.Contains(console.String(), "written to both") {
		t.Errorf("console missing warn record: %q", console.String())
	}
}

func TestNewLogger_BadLevel(t *testing.T) {
	_, _, err := newLogger(config.LogConfig{Level: "shout"}, t.TempDir(), "op", &bytes.Buffer{})
	if err == nil {
		t.Error("newLogger() expected error for unknown level, got nil")
	}
}
