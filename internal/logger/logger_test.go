// Package logger tests verify the custom [Handler] output format, value
// quoting, level filtering, attribute grouping, and [NewLogger] outputs.
package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// ///////////////////////////////////////////////
// Handler Output Format
// ///////////////////////////////////////////////

func TestHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, LevelInfo))

	logger.Info("cache complete", "character", "yuraa")

	line := strings.TrimRight(buf.String(), "\r\n")
	if !strings.Contains(line, "[INFO]") {
		t.Errorf("expected [INFO] in output, got %q", line)
	}
	if !strings.Contains(line, "| character=yuraa") {
		t.Errorf("expected character=yuraa in output, got %q", line)
	}
	if !strings.HasSuffix(strings.Split(line, " [")[0], "Z") {
		t.Errorf("expected UTC timestamp ending with Z, got %q", line)
	}
}

func TestHandler_NoAttrs(t *testing.T) {
	var buf bytes.Buffer
	slog.New(NewHandler(&buf, LevelInfo)).Info("no attrs")

	line := strings.TrimRight(buf.String(), "\r\n")
	if strings.Contains(line, "|") {
		t.Errorf("expected no pipe separator without attrs, got %q", line)
	}
}

func TestHandler_QuotesAmbiguousValues(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"plain", "park", "path=park"},
		{"space", "my assets/bg.png", `path="my assets/bg.png"`},
		{"comma", "a,b", `path="a,b"`},
		{"empty", "", `path=""`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			slog.New(NewHandler(&buf, LevelInfo)).Info("msg", "path", tt.value)
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output %q does not contain %q", buf.String(), tt.want)
			}
		})
	}
}

func TestHandler_MultipleAttrs(t *testing.T) {
	var buf bytes.Buffer
	slog.New(NewHandler(&buf, LevelInfo)).Info("multi", "current", 1, "total", 4)

	line := strings.TrimRight(buf.String(), "\r\n")
	if !strings.Contains(line, "current=1, total=4") {
		t.Errorf("expected comma-separated attrs, got %q", line)
	}
}

// ///////////////////////////////////////////////
// Levels
// ///////////////////////////////////////////////

func TestHandler_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, LevelWarn))

	logger.Info("should be filtered")
	logger.Warn("should appear")

	output := buf.String()
	if strings.Contains(output, "should be filtered") {
		t.Error("info message should have been filtered at warn level")
	}
	if !strings.Contains(output, "should appear") {
		t.Error("warn message should appear at warn level")
	}
}

func TestHandler_CustomLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, LevelTrace))

	Trace(logger, "trace msg")
	Fail(logger, "fail msg")

	output := buf.String()
	if !strings.Contains(output, "[TRACE]") {
		t.Errorf("expected [TRACE] in output, got %q", output)
	}
	if !strings.Contains(output, "[FAIL]") {
		t.Errorf("expected [FAIL] in output, got %q", output)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"trace", LevelTrace},
		{"TRACE", LevelTrace},
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"fail", LevelFail},
		{"unknown", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

// ///////////////////////////////////////////////
// WithAttrs / WithGroup
// ///////////////////////////////////////////////

func TestHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(&buf, LevelInfo).WithAttrs([]slog.Attr{slog.String("character", "yuraa")})
	slog.New(h).Info("test")

	if !strings.Contains(buf.String(), "character=yuraa") {
		t.Errorf("expected pre-applied attr, got %q", buf.String())
	}
}

func TestHandler_WithGroup(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(&buf, LevelInfo).WithGroup("build").WithGroup("pair")
	slog.New(h).Info("grouped", "portrait", "smile")

	if !strings.Contains(buf.String(), "build.pair.portrait=smile") {
		t.Errorf("expected nested group prefix, got %q", buf.String())
	}

	base := NewHandler(&buf, LevelInfo)
	if base.WithGroup("") != base {
		t.Error("WithGroup with empty string should return same handler")
	}
}

// ///////////////////////////////////////////////
// NewLogger Constructor
// ///////////////////////////////////////////////

func TestNewLogger_FileAndMirror(t *testing.T) {
	path := filepath.Join(t.TempDir(), "galcard.log")
	var mirror bytes.Buffer

	logger, closer := NewLogger(Options{Path: path, Level: LevelInfo, MaxSizeMB: 10, Mirror: &mirror})
	logger.Info("constructor test")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "constructor test") {
		t.Errorf("expected log output in file, got %q", string(data))
	}
	if !strings.Contains(mirror.String(), "constructor test") {
		t.Errorf("expected log output in mirror, got %q", mirror.String())
	}
}

func TestNewLogger_NoOutputs(t *testing.T) {
	logger, closer := NewLogger(Options{Level: LevelInfo})
	logger.Info("discarded")
	if err := closer.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
