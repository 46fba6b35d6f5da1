package convlog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/toolbridge/toolbridge/internal/schema"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestWriter_WritesTimestampedFile(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	w.now = fixedClock(time.Date(2026, 8, 29, 10, 30, 5, 0, time.UTC))

	transcript := []schema.Message{
		schema.NewUserMessage("What is 2+2?"),
		schema.NewAssistantText("4"),
	}
	if err := w.Write(transcript); err != nil {
		t.Fatalf("write: %v", err)
	}

	path := filepath.Join(dir, "conversation_2026-08-29_10-30-05.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected log file at %s: %v", path, err)
	}

	var got []schema.Message
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("log file is not a transcript: %v", err)
	}
	if len(got) != 2 || got[0].Text() != "What is 2+2?" || got[1].Text() != "4" {
		t.Errorf("unexpected transcript: %+v", got)
	}
}

func TestWriter_SameSecondCollision(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	w.now = fixedClock(time.Date(2026, 8, 29, 10, 30, 5, 0, time.UTC))

	for i := 0; i < 3; i++ {
		if err := w.Write([]schema.Message{schema.NewUserMessage("hi")}); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	for _, name := range []string{
		"conversation_2026-08-29_10-30-05.json",
		"conversation_2026-08-29_10-30-05_1.json",
		"conversation_2026-08-29_10-30-05_2.json",
	} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s to exist: %v", name, err)
		}
	}
}

func TestWriter_NormalizedMessageShape(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	transcript := []schema.Message{
		schema.NewUserMessage("look up x"),
		schema.NewAssistantBlocks([]schema.ContentBlock{
			{Type: schema.BlockToolUse, ID: "tu_1", Name: "lookup", Input: map[string]any{"x": 1}},
		}),
		schema.NewToolResultMessage("tu_1", json.RawMessage(`[{"type":"text","text":"42"}]`)),
	}
	if err := w.Write(transcript); err != nil {
		t.Fatalf("write: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected exactly one log file, got %d (%v)", len(entries), err)
	}

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatal(err)
	}
	var got []schema.Message
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("round trip: %v", err)
	}
	blocks := got[2].Blocks()
	if len(blocks) != 1 || blocks[0].Type != schema.BlockToolResult || blocks[0].ToolUseID != "tu_1" {
		t.Errorf("tool result shape lost in log: %+v", blocks)
	}
}

func TestSweeper_RemovesOnlyExpiredLogs(t *testing.T) {
	dir := t.TempDir()
	s := NewSweeper(dir, 30)

	old := filepath.Join(dir, "conversation_2026-01-01_00-00-00.json")
	fresh := filepath.Join(dir, "conversation_2026-08-29_00-00-00.json")
	other := filepath.Join(dir, "notes.txt")
	for _, p := range []string{old, fresh, other} {
		if err := os.WriteFile(p, []byte("[]"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().Add(-40 * 24 * time.Hour)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(other, past, past); err != nil {
		t.Fatal(err)
	}

	n, err := s.sweep()
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 removal, got %d", n)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("expired log should be removed")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("fresh log must survive the sweep")
	}
	if _, err := os.Stat(other); err != nil {
		t.Error("non-conversation files must not be touched")
	}
}
