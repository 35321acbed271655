package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestMinimumLevelFiltering(t *testing.T) {
	memory := NewMemoryProvider()
	factory := NewLoggingBuilder().
		SetMinimumLevel(LogLevelInfo).
		AddProvider(memory).
		Build()

	logger := factory.CreateLogger("test")
	logger.Debug("dropped")
	logger.Info("kept")
	logger.Error("kept too")

	entries := memory.Entries()
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries after filtering, got %d", len(entries))
	}
	if entries[0].Message != "kept" || entries[0].Level != LogLevelInfo {
		t.Errorf("Unexpected first entry: %+v", entries[0])
	}
}

func TestWithFieldsAndCategory(t *testing.T) {
	memory := NewMemoryProvider()
	factory := NewLoggingBuilder().
		SetMinimumLevel(LogLevelTrace).
		AddProvider(memory).
		Build()

	logger := factory.CreateLogger("base").
		WithCategory("Worker").
		WithFields(Field{Key: "id", Value: 7})

	logger.Info("working", Field{Key: "step", Value: "one"})

	entries := memory.Entries()
	if len(entries) != 1 {
		t.Fatalf("Expected one entry, got %d", len(entries))
	}

	entry := entries[0]
	if entry.Category != "Worker" {
		t.Errorf("Category = %q", entry.Category)
	}
	if len(entry.Fields) != 2 || entry.Fields[0].Key != "id" || entry.Fields[1].Key != "step" {
		t.Errorf("Fields must merge bound fields first: %+v", entry.Fields)
	}
}

func TestTextFormatter(t *testing.T) {
	formatter := &TextFormatter{}
	data, err := formatter.Format(&LogEntry{
		Time:     time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Level:    LogLevelWarn,
		Category: "Core",
		Message:  "slow query",
		Fields:   []Field{{Key: "ms", Value: 250}},
	})
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	line := string(data)
	for _, want := range []string{"2025-01-02 03:04:05", "WARN", "[Core]", "slow query", "ms=250"} {
		if !strings.Contains(line, want) {
			t.Errorf("Formatted line missing %q: %s", want, line)
		}
	}
	if !strings.HasSuffix(line, "\n") {
		t.Error("The formatted line must end with a newline")
	}
}

func TestJSONFormatter(t *testing.T) {
	formatter := &JSONFormatter{}
	data, err := formatter.Format(&LogEntry{
		Time:    time.Now(),
		Level:   LogLevelError,
		Message: "boom",
		Fields:  []Field{{Key: "code", Value: 500}},
	})
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		t.Fatalf("The output must be valid JSON: %v", err)
	}
	if record["level"] != "ERROR" || record["message"] != "boom" {
		t.Errorf("Unexpected record: %v", record)
	}
	if record["code"] != float64(500) {
		t.Errorf("Fields must be flattened into the record: %v", record)
	}
}

func TestWriterProvider(t *testing.T) {
	var buf bytes.Buffer
	provider := NewWriterProvider(WriterProviderOptions{
		Writer:    &buf,
		Formatter: &TextFormatter{},
	})

	provider.WriteLog(&LogEntry{Time: time.Now(), Level: LogLevelInfo, Message: "hello"})

	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("Expected the entry in the buffer, got %q", buf.String())
	}
}

func TestAsyncWriterDrainsOnClose(t *testing.T) {
	var buf safeBuffer
	provider := NewWriterProvider(WriterProviderOptions{
		Writer:    &buf,
		Formatter: &TextFormatter{},
		Async:     true,
	})

	for i := 0; i < 100; i++ {
		provider.WriteLog(&LogEntry{Time: time.Now(), Level: LogLevelInfo, Message: "entry"})
	}
	if err := provider.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if got := strings.Count(buf.String(), "entry"); got != 100 {
		t.Errorf("Close must drain the queue, got %d of 100 entries", got)
	}
}

// safeBuffer 并发安全的写入缓冲
type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
