package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/toolbridge/toolbridge/internal/schema"
)

// Manager owns the session cache and its on-disk JSONL mirror. Files live
// under <dataDir>/sessions, one per session key.
type Manager struct {
	dir   string
	cache sync.Map // key string -> *Session
}

func NewManager(dataDir string) (*Manager, error) {
	dir := filepath.Join(dataDir, "sessions")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}
	return &Manager{dir: dir}, nil
}

// GetOrCreate returns the session for key, loading it from disk on first
// access and creating it when it does not exist.
func (m *Manager) GetOrCreate(key string) (*Session, error) {
	if v, ok := m.cache.Load(key); ok {
		return v.(*Session), nil
	}

	s, err := m.load(key)
	if err != nil {
		return nil, err
	}
	if s == nil {
		s = newSession(key, time.Now())
	}

	actual, _ := m.cache.LoadOrStore(key, s)
	return actual.(*Session), nil
}

// Save writes the session's transcript to its JSONL file: one metadata line
// followed by one line per message. The file is replaced atomically.
func (m *Manager) Save(s *Session) error {
	s.mu.Lock()
	msgs := schema.CloneTranscript(s.messages)
	meta := sessionMeta{Key: s.Key, CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt}
	s.mu.Unlock()

	path := m.pathFor(s.Key)
	tmp := path + ".tmp"

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create session file: %w", err)
	}

	enc := json.NewEncoder(f)
	if err := enc.Encode(meta); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write session metadata: %w", err)
	}
	for _, msg := range msgs {
		if err := enc.Encode(msg); err != nil {
			f.Close()
			os.Remove(tmp)
			return fmt.Errorf("write session message: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close session file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("install session file: %w", err)
	}
	return nil
}

// Keys lists the keys of all sessions currently cached in memory.
func (m *Manager) Keys() []string {
	var keys []string
	m.cache.Range(func(k, _ any) bool {
		keys = append(keys, k.(string))
		return true
	})
	return keys
}

type sessionMeta struct {
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// load reads a session file; returns (nil, nil) when none exists.
func (m *Manager) load(key string) (*Session, error) {
	f, err := os.Open(m.pathFor(key))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open session file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	if !scanner.Scan() {
		return nil, nil // empty file, treat as absent
	}
	var meta sessionMeta
	if err := json.Unmarshal(scanner.Bytes(), &meta); err != nil {
		return nil, fmt.Errorf("decode session metadata: %w", err)
	}

	s := &Session{Key: key, CreatedAt: meta.CreatedAt, UpdatedAt: meta.UpdatedAt}
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var msg schema.Message
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			slog.Warn("skipping corrupt session line", "session", key, "error", err)
			continue
		}
		s.messages = append(s.messages, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	return s, nil
}

func (m *Manager) pathFor(key string) string {
	return filepath.Join(m.dir, sanitizeKey(key)+".jsonl")
}

// sanitizeKey maps a session key to a safe filename component.
func sanitizeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "default"
	}
	return b.String()
}
