package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestSetup(t *testing.T) {
	// Reset logger for testing
	logger = nil
	once = *new(sync.Once)

	if err := Setup(Options{Level: "DEBUG"}); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if logger == nil {
		t.Fatal("Logger should not be nil")
	}
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected DEBUG to be enabled")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		" error ": slog.LevelError,
		"info":    slog.LevelInfo,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestBuild_ConsoleFormat(t *testing.T) {
	var stdout, stderr bytes.Buffer
	l, f, err := build(Options{Level: "info", Format: "console"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("build() error = %v", err)
	}
	if f != nil {
		t.Fatal("no log file expected")
	}

	l.Info("hello console")

	if stdout.Len() != 0 {
		t.Errorf("console format should not write to stdout, got %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "hello console") {
		t.Errorf("stderr = %q, want message", stderr.String())
	}
}

func TestBuild_FileFanout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.log")
	var stdout, stderr bytes.Buffer

	l, f, err := build(Options{Level: "info", Format: "json", File: path}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("build() error = %v", err)
	}
	l.Info("fanned out", "k", "v")
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &out); err != nil {
		t.Fatalf("file record is not JSON: %v", err)
	}
	if out["msg"] != "fanned out" {
		t.Errorf("file msg = %v", out["msg"])
	}
	if !strings.Contains(stdout.String(), "fanned out") {
		t.Errorf("stdout missing record: %q", stdout.String())
	}
}

func TestBuild_BadFile(t *testing.T) {
	_, _, err := build(Options{File: filepath.Join(t.TempDir(), "missing", "x.log")}, &bytes.Buffer{}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected error for unwritable log file")
	}
}

func TestContextHelpers(t *testing.T) {
	var buf bytes.Buffer
	h := slog.NewJSONHandler(&buf, nil)
	logger = slog.New(h)

	l2 := WithComponent("test-comp")
	l2.Info("hello")

	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("Failed to decode JSON: %v", err)
	}

	if out["component"] != "test-comp" {
		t.Errorf("Expected component 'test-comp', got %v", out["component"])
	}
	if out["msg"] != "hello" {
		t.Errorf("Expected msg 'hello', got %v", out["msg"])
	}
}

func TestWithConversation(t *testing.T) {
	var buf bytes.Buffer
	h := slog.NewJSONHandler(&buf, nil)
	logger = slog.New(h)

	WithConversation(nil, "conv-9").Info("conversation msg")

	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("Failed to decode JSON: %v", err)
	}

	if out["conversation_id"] != "conv-9" {
		t.Errorf("Expected conversation_id 'conv-9', got %v", out["conversation_id"])
	}
}

func TestWithConversation_ScopesGivenLogger(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil)).With("component", "kommo")

	WithConversation(base, "conv-7").Info("sent")

	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("Failed to decode JSON: %v", err)
	}
	if out["conversation_id"] != "conv-7" || out["component"] != "kommo" {
		t.Errorf("Expected component and conversation_id, got %v", out)
	}
}
