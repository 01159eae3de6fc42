package observe

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var entry map[string]any
		if err := json.Unmarshal(sc.Bytes(), &entry); err != nil {
			t.Fatalf("log line is not JSON: %v\n%s", err, sc.Text())
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestLogger_IncludesDependencyFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf).WithDependency(DependencyMeta{
		Name:   "db",
		Level:  "HARD",
		Target: "postgres://app:hunter2@db:5432/orders",
	})

	logger.Info(context.Background(), "checked")

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e["dependency.name"] != "db" || e["dependency.level"] != "HARD" {
		t.Errorf("entry = %v, want db HARD", e)
	}
	if e["dependency.target"] != "postgres://app:xxxxx@db:5432/orders" {
		t.Errorf("dependency.target = %v, want redacted password", e["dependency.target"])
	}
	if e["msg"] != "checked" || e["level"] != "info" || e["timestamp"] == nil {
		t.Errorf("entry missing base fields: %v", e)
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("warn", &buf)
	ctx := context.Background()

	logger.Debug(ctx, "debug")
	logger.Info(ctx, "info")
	logger.Warn(ctx, "warn")
	logger.Error(ctx, "error")

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2: %v", len(entries), entries)
	}
	if entries[0]["msg"] != "warn" || entries[1]["msg"] != "error" {
		t.Errorf("entries = %v, want warn then error", entries)
	}
}

func TestLogger_RedactsSensitiveFields(t *testing.T) {
	var buf bytes.Buffer
	NewLoggerWithWriter("debug", &buf).Info(context.Background(), "auth",
		Field{Key: "token", Value: "abc"},
		Field{Key: "password", Value: "hunter2"},
		Field{Key: "attempt", Value: 2},
	)

	e := decodeLines(t, &buf)[0]
	if e["token"] != "[REDACTED]" || e["password"] != "[REDACTED]" {
		t.Errorf("sensitive fields not redacted: %v", e)
	}
	if e["attempt"] != float64(2) {
		t.Errorf("attempt = %v, want 2", e["attempt"])
	}
}

func TestLogger_ErrorValues(t *testing.T) {
	var buf bytes.Buffer
	NewLoggerWithWriter("info", &buf).Error(context.Background(), "failed",
		Field{Key: "error", Value: errors.New("connection refused")})

	if got := decodeLines(t, &buf)[0]["error"]; got != "connection refused" {
		t.Errorf("error field = %v, want message string", got)
	}
}

func TestLogger_WithDependencyDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewLoggerWithWriter("info", &buf)
	_ = parent.WithDependency(DependencyMeta{Name: "db"})

	parent.Info(context.Background(), "plain")
	if _, ok := decodeLines(t, &buf)[0]["dependency.name"]; ok {
		t.Error("parent logger picked up dependency fields")
	}
}

func TestLogger_ConcurrentWritesAreWholeLines(t *testing.T) {
	var buf bytes.Buffer
	base := NewLoggerWithWriter("info", &buf)
	a := base.WithDependency(DependencyMeta{Name: "a"})
	b := base.WithDependency(DependencyMeta{Name: "b"})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); a.Info(context.Background(), "a") }()
		go func() { defer wg.Done(); b.Info(context.Background(), "b") }()
	}
	wg.Wait()

	if n := len(decodeLines(t, &buf)); n != 100 {
		t.Errorf("got %d entries, want 100", n)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug": LevelDebug,
		"info":  LevelInfo,
		"warn":  LevelWarn,
		"error": LevelError,
		"":      LevelInfo,
		"loud":  LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
