package logger

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewJSONFileOutputCarriesTag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "run.log")
	log, closers, err := New(Config{Level: "info", Format: "json", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	Tagged(log, "#1 0xaa..aa > Wrap ETH").Warn("No native balance")
	for _, c := range closers {
		_ = c.Close()
	}

	buf, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(buf))), &record); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf)
	}
	if record["tag"] != "#1 0xaa..aa > Wrap ETH" {
		t.Fatalf("unexpected tag: %v", record["tag"])
	}
	if record["level"] != "WARN" {
		t.Fatalf("unexpected level: %v", record["level"])
	}
}

func TestNewFiltersBelowLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	log, closers, err := New(Config{Level: "warn", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	log.Info("progress")
	for _, c := range closers {
		_ = c.Close()
	}
	buf, _ := os.ReadFile(path)
	if len(buf) != 0 {
		t.Fatalf("expected info to be filtered, got %q", buf)
	}
}
