package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/toolbridge/toolbridge/internal/schema"
)

func TestGetOrCreate_NewSession(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	s, err := m.GetOrCreate("alice")
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if s.Key != "alice" || s.Len() != 0 {
		t.Errorf("expected empty new session, got key=%q len=%d", s.Key, s.Len())
	}

	again, err := m.GetOrCreate("alice")
	if err != nil {
		t.Fatal(err)
	}
	if again != s {
		t.Error("same key must return the same cached session")
	}
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir)
	if err != nil {
		t.Fatal(err)
	}

	s, _ := m.GetOrCreate("alice")
	s.Replace([]schema.Message{
		schema.NewUserMessage("What is 2+2?"),
		schema.NewAssistantText("4"),
		schema.NewToolResultMessage("tu_1", json.RawMessage(`[{"type":"text","text":"42"}]`)),
	})
	if err := m.Save(s); err != nil {
		t.Fatalf("save: %v", err)
	}

	// A fresh manager must reload from disk.
	m2, err := NewManager(dir)
	if err != nil {
		t.Fatal(err)
	}
	loaded, err := m2.GetOrCreate("alice")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}

	msgs := loaded.Snapshot()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 reloaded messages, got %d", len(msgs))
	}
	if msgs[0].Text() != "What is 2+2?" || msgs[1].Text() != "4" {
		t.Errorf("unexpected reloaded transcript: %+v", msgs)
	}
	blocks := msgs[2].Blocks()
	if blocks[0].Type != schema.BlockToolResult || blocks[0].ToolUseID != "tu_1" {
		t.Errorf("tool result shape lost on reload: %+v", blocks[0])
	}
}

func TestSave_FileLayout(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir)
	if err != nil {
		t.Fatal(err)
	}

	s, _ := m.GetOrCreate("alice")
	s.Replace([]schema.Message{schema.NewUserMessage("hi")})
	if err := m.Save(s); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "sessions", "alice.jsonl"))
	if err != nil {
		t.Fatalf("expected session file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected metadata line plus one message line, got %d lines", len(lines))
	}

	var meta map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &meta); err != nil || meta["key"] != "alice" {
		t.Errorf("bad metadata line: %s", lines[0])
	}
}

func TestSnapshot_IndependentOfLaterReplace(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	s, _ := m.GetOrCreate("alice")
	s.Replace([]schema.Message{schema.NewUserMessage("one")})

	snap := s.Snapshot()
	s.Replace([]schema.Message{
		schema.NewUserMessage("one"),
		schema.NewAssistantText("two"),
	})

	if len(snap) != 1 {
		t.Errorf("snapshot must not see later replacements, got %d messages", len(snap))
	}
	if s.Len() != 2 {
		t.Errorf("session must hold the replaced transcript, got %d", s.Len())
	}
}

func TestSanitizeKey(t *testing.T) {
	cases := map[string]string{
		"alice":       "alice",
		"a/b\\c":      "a_b_c",
		"..":          "__",
		"":            "default",
		"user@web-1":  "user_web-1",
		"UPPER_lower": "UPPER_lower",
	}
	for in, want := range cases {
		if got := sanitizeKey(in); got != want {
			t.Errorf("sanitizeKey(%q) = %q, want %q", in, got, want)
		}
	}
}
